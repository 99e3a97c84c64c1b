package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemax-app/subscribe/server/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.json")

	out, err := execute(t, "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Auth.JWTSecret, 64)

	_, err = execute(t, "init", "-o", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestSeedPrintsToken(t *testing.T) {
	dir := t.TempDir()
	cfg, err := starterConfig()
	require.NoError(t, err)
	cfg.Storage.DSN = filepath.Join(dir, "seed.db")
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "api.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	out, err := execute(t, "seed", "-c", path, "--user", "Ana")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 3 plans.")
	assert.Contains(t, out, "Token: ")

	out, err = execute(t, "seed", path, "--user", "")
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, "Token:"))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "subscribe-api test\n", out)
}
