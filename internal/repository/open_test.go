package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rubric-review/backend/internal/config"
)

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Driver = config.DriverMemory

	store, closeFn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &MemoryWorkflowStore{}, store)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Driver = "sqlite"

	_, _, err := Open(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown store driver")
}
