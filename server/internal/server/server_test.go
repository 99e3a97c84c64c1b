package server

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemax-app/subscribe/server/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Addr: "127.0.0.1:0", AllowedOrigins: []string{"https://app.example.com"}},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret-at-least-32-chars-long",
			JWTExpiry: config.Duration{Duration: time.Hour},
		},
		Storage:   config.StorageConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "seed.db")},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 2, Burst: 5},
	}
	srv, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestSeed(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	res, err := srv.Seed(ctx, "Demo")
	require.NoError(t, err)
	assert.Equal(t, len(DefaultPlans), res.Plans)
	require.NotEmpty(t, res.UserID)

	plans, err := srv.Store().ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, []string{"basic", "standard", "premium"}, []string{plans[0].Type, plans[1].Type, plans[2].Type})

	identity, err := srv.Auth().ValidateToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, identity.UserID)
	assert.Empty(t, identity.Plan)
}

func TestSeed_IsRepeatable(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.Seed(ctx, "")
	require.NoError(t, err)
	res, err := srv.Seed(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, res.Token)

	plans, err := srv.Store().ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 3)
}
