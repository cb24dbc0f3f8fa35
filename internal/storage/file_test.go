package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store, err := NewFileStore(path, "test-passphrase")
	require.NoError(t, err)
	return store, path
}

func TestNewFileStore_Validation(t *testing.T) {
	_, err := NewFileStore("", "secret")
	assert.Error(t, err)

	_, err = NewFileStore(filepath.Join(t.TempDir(), "s.json"), "")
	assert.Error(t, err)
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store, path := newTestFileStore(t)

	_, ok, err := store.Get(KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing from a store that was never written does not create the file
	require.NoError(t, store.Remove(KeyToken))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_SetGet(t *testing.T) {
	store, path := newTestFileStore(t)

	require.NoError(t, store.Set(KeyToken, "a1"))
	require.NoError(t, store.Set(KeyUser, `{"id":7}`))

	value, ok, err := store.Get(KeyUser)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":7}`, value)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_ValuesAreEncrypted(t *testing.T) {
	store, path := newTestFileStore(t)

	require.NoError(t, store.Set(KeyRefreshToken, "super-secret-refresh-token"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "super-secret-refresh-token"))
	assert.True(t, strings.Contains(string(data), KeyRefreshToken))
}

func TestFileStore_SurvivesNewInstance(t *testing.T) {
	store, path := newTestFileStore(t)
	require.NoError(t, store.Set(KeyToken, "a1"))

	reopened, err := NewFileStore(path, "test-passphrase")
	require.NoError(t, err)

	value, ok, err := reopened.Get(KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a1", value)
}

func TestFileStore_SeesWritesFromOtherInstance(t *testing.T) {
	first, path := newTestFileStore(t)
	second, err := NewFileStore(path, "test-passphrase")
	require.NoError(t, err)

	require.NoError(t, first.Set(KeyToken, "a1"))
	require.NoError(t, second.Set(KeyToken, "a2"))

	value, _, err := first.Get(KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "a2", value)

	require.NoError(t, second.Remove(KeyToken))
	_, ok, err := first.Get(KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_WrongPassphrase(t *testing.T) {
	store, path := newTestFileStore(t)
	require.NoError(t, store.Set(KeyToken, "a1"))

	other, err := NewFileStore(path, "another-passphrase")
	require.NoError(t, err)

	_, _, err = other.Get(KeyToken)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, KeyToken, parseErr.Key)
}

func TestFileStore_CorruptedFile(t *testing.T) {
	store, path := newTestFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, _, err := store.Get(KeyToken)
	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestFileStore_ConcurrentWrites(t *testing.T) {
	store, _ := newTestFileStore(t)

	var wg sync.WaitGroup
	for _, k := range AuthKeys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			assert.NoError(t, store.Set(key, key+"-value"))
		}(k)
	}
	wg.Wait()

	for _, k := range AuthKeys {
		assert.Equal(t, k+"-value", GetString(store, k))
	}

	require.NoError(t, ClearAuth(store))
	for _, k := range AuthKeys {
		_, ok, _ := store.Get(k)
		assert.False(t, ok)
	}
}
