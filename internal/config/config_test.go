package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "lenient", cfg.Validation.Mode)
	assert.False(t, cfg.Workflow.EnforceOrder)
	assert.Equal(t, 50, cfg.Export.LinesPerPage)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
store:
  driver: Postgres
db:
  host: db.internal
  port: 6543
validation:
  mode: strict
auth:
  okta_domain: https://example.okta.com/oauth2/default/
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("RUBRIC_WORKFLOW_ENFORCE_ORDER", "true")
	t.Setenv("RUBRIC_DB_PASSWORD", "s3cret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "strict", cfg.Validation.Mode)
	assert.True(t, cfg.Workflow.EnforceOrder)
	assert.Equal(t, "https://example.okta.com/oauth2/default", cfg.Auth.OktaDomain)
	assert.Equal(t, "host=db.internal port=6543 user=postgres password=s3cret dbname=rubric_review sslmode=disable", cfg.DSN())
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RUBRIC_STORE_DRIVER", "sqlite")

	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "unknown store driver")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
