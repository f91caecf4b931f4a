package main

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRun_ConfigError(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	err := run(context.Background())
	assert.ErrorContains(t, err, "failed to load config")
}

func TestRun_StartupFailureReleasesResources(t *testing.T) {
	addr := freeAddr(t)
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_ADDR", addr)
	t.Setenv("REDIS_URL", "redis://127.0.0.1:1/0")
	t.Setenv("LANDMARKS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	err := run(context.Background())
	require.ErrorContains(t, err, "failed to load landmarks")

	// The metrics listener is shut down on the way out
	l, err := net.Listen("tcp", addr)
	require.NoError(t, err, "metrics address still bound after run returned")
	assert.NoError(t, l.Close())
}
