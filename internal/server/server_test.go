package server

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourceshare-ph/apiserver/config"
	"github.com/resourceshare-ph/apiserver/internal/blob"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		JWTSecret: "test-secret",
		DataDir:   t.TempDir(),
		Bulk:      config.BulkConfig{Backend: "none"},
		Events:    config.EventsConfig{Backend: "none"},
	}
}

func TestNewAndShutdown(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(context.Background(), testConfig(t), log)
	require.NoError(t, err)
	require.NotNil(t, srv.Router())
	assert.NoError(t, srv.Shutdown())
}

func TestNewRequiresJWTSecret(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t)
	cfg.JWTSecret = "  "
	_, err := New(context.Background(), cfg, log)
	assert.Error(t, err)
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := testConfig(t)
	cfg.Bulk.Backend = "ftp"
	_, err := New(context.Background(), cfg, log)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Events.Backend = "kafka"
	_, err = New(context.Background(), cfg, log)
	assert.Error(t, err)
}

func TestOpenBulkSource(t *testing.T) {
	ctx := context.Background()

	src, err := OpenBulkSource(ctx, config.BulkConfig{Backend: "none"})
	require.NoError(t, err)
	assert.IsType(t, blob.Empty{}, src)

	src, err = OpenBulkSource(ctx, config.BulkConfig{Backend: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &blob.LocalDir{}, src)

	_, err = OpenBulkSource(ctx, config.BulkConfig{Backend: "minio"})
	assert.Error(t, err, "minio without an endpoint must not construct")
}
