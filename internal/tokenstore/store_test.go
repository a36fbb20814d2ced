package tokenstore_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ErlanBelekov/vsm-auth/internal/tokenstore"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s tokenstore.Store) {
	t.Helper()

	_, ok, err := s.Get("authToken")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("authToken", "tok_abc"))
	v, ok, err := s.Get("authToken")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok_abc", v)

	require.NoError(t, s.Set("authToken", "tok_def"))
	v, _, _ = s.Get("authToken")
	assert.Equal(t, "tok_def", v)

	require.NoError(t, s.Delete("authToken"))
	_, ok, err = s.Get("authToken")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete("authToken"), "deleting a missing key is not an error")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, tokenstore.NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	exerciseStore(t, tokenstore.NewFileStore(path))
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, tokenstore.NewFileStore(path).Set("authToken", "tok_abc"))

	v, ok, err := tokenstore.NewFileStore(path).Get("authToken")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok_abc", v)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := tokenstore.NewFileStore(path).Get("authToken")
	assert.Error(t, err)
}

func TestDescribe_JWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-1",
		"email": "bob@example.com",
		"exp":   exp.Unix(),
	}).SignedString([]byte("any-key-the-client-never-sees"))
	require.NoError(t, err)

	id, err := tokenstore.Describe(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.Subject)
	assert.Equal(t, "bob@example.com", id.Name())
	assert.True(t, id.ExpiresAt.Equal(exp))
}

func TestDescribe_OpaqueToken(t *testing.T) {
	_, err := tokenstore.Describe("tok_abc")
	assert.True(t, errors.Is(err, tokenstore.ErrOpaqueToken))
}
