package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rubric-review/backend/internal/auth"
	"rubric-review/backend/internal/config"
	"rubric-review/backend/internal/logging"
	"rubric-review/backend/internal/metrics"
	"rubric-review/backend/internal/repository"
	"rubric-review/backend/internal/services"
	"rubric-review/backend/internal/validation"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	h, _ := newTestServerWithAuth(t, nil)
	return h
}

func newTestServerWithAuth(t *testing.T, authz *auth.Auth) (http.Handler, *repository.MemoryWorkflowStore) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Store.Driver = config.DriverMemory

	reg := prometheus.NewRegistry()
	m := metrics.InitMetrics(reg)
	store := repository.NewMemoryWorkflowStore()
	svc := services.NewWorkflowService(store, validation.New(validation.ModeLenient),
		services.WithMetrics(m))

	return newEcho(cfg, logging.NewNop(), m, reg, svc, authz), store
}

// newIssuer serves just enough OpenID discovery for auth.New to succeed.
func newIssuer(t *testing.T) string {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/authorize",
			"token_endpoint":         srv.URL + "/token",
			"jwks_uri":               srv.URL + "/keys",
			"userinfo_endpoint":      srv.URL + "/userinfo",
		})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTestAuth(t *testing.T) *auth.Auth {
	t.Helper()
	cfg := &config.Config{Environment: "PROD"}
	cfg.Auth.Enable = true
	cfg.Auth.OktaDomain = newIssuer(t)
	cfg.Auth.ClientID = "rubric-backend"
	cfg.Auth.ClientSecret = "secret"
	cfg.Auth.RedirectURL = "http://localhost:8080/auth/callback"

	authz, err := auth.New(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	return authz
}

func TestServer_Routes(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/workflow", strings.NewReader(`{"expert_a_domain":"Physics","expert_a_rubric":"1. Units are consistent"}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rubric_workflows_created_total 1`)
	assert.Contains(t, rec.Body.String(), `path_pattern="/api/workflow"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_AuthDisabledLeavesLoginUnrouted(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_AuthEnabledProtectsAPIAndMCP(t *testing.T) {
	h, store := newTestServerWithAuth(t, newTestAuth(t))

	createBody := `{"expert_a_domain":"Physics","expert_a_rubric":"1. Units"}`
	requests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"rest create", http.MethodPost, "/api/workflow", createBody},
		{"mcp message", http.MethodPost, "/mcp/message?sessionId=x",
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"create_workflow","arguments":{"payload":` + createBody + `}}}`},
		{"mcp post", http.MethodPost, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`},
		{"mcp sse", http.MethodGet, "/mcp/sse", ""},
	}
	for _, tt := range requests {
		t.Run(tt.name+" without credentials", func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
		})
		t.Run(tt.name+" with bad token", func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer not-a-jwt")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	assert.Equal(t, 0, store.Len())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
