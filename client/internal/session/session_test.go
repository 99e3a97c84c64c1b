package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, uid, plan string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{UserID: uid, Plan: plan})
	s, err := tok.SignedString([]byte("client-does-not-verify-this-secret"))
	require.NoError(t, err)
	return s
}

func TestNew_UserIDFromToken(t *testing.T) {
	s, err := New("", signed(t, "u-42", ""), "")
	require.NoError(t, err)
	assert.Equal(t, "u-42", s.UserID())
}

func TestNew_ExplicitUserIDWins(t *testing.T) {
	s, err := New("u-1", signed(t, "u-42", ""), "")
	require.NoError(t, err)
	assert.Equal(t, "u-1", s.UserID())
}

func TestNew_NoUser(t *testing.T) {
	_, err := New("", "not-a-jwt", "")
	assert.ErrorIs(t, err, ErrNoUser)

	_, err = New("", "", "")
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestReplaceCredential_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	s, err := New("u-1", "old", path)
	require.NoError(t, err)

	renewed := signed(t, "u-1", "premium")
	require.NoError(t, s.ReplaceCredential(renewed))

	assert.Equal(t, renewed, s.Token())
	assert.Equal(t, "premium", s.Plan())

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, renewed, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestReplaceCredential_InMemoryOnly(t *testing.T) {
	s, err := New("u-1", "", "")
	require.NoError(t, err)
	require.NoError(t, s.ReplaceCredential("fresh"))
	assert.Equal(t, "fresh", s.Token())
	assert.Empty(t, s.Plan())
}

func TestLoadToken_Missing(t *testing.T) {
	got, err := LoadToken(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
