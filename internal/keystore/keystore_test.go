package keystore

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "credvault", ".master.key")
}

func TestKey_GeneratesAndPersists(t *testing.T) {
	path := keyPath(t)
	ks := New(path, nil)

	key, err := ks.Key()
	require.NoError(t, err)
	require.Len(t, key, KeySize)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, key, onDisk)

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}
}

func TestKey_ReloadUsesPersistedKey(t *testing.T) {
	path := keyPath(t)

	first, err := New(path, nil).Key()
	require.NoError(t, err)

	second, err := New(path, nil).Key()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestKey_CachedForProcessLifetime(t *testing.T) {
	path := keyPath(t)
	ks := New(path, nil)

	first, err := ks.Key()
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	second, err := ks.Key()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "cached key must not touch the file again")
}

func TestKey_ReturnsCopy(t *testing.T) {
	ks := New(keyPath(t), nil)

	key, err := ks.Key()
	require.NoError(t, err)
	want := append([]byte(nil), key...)

	for i := range key {
		key[i] = 0
	}

	again, err := ks.Key()
	require.NoError(t, err)
	assert.Equal(t, want, again)
}

func TestKey_WrongLengthIsRegenerated(t *testing.T) {
	path := keyPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	short := []byte("0123456789")
	require.NoError(t, os.WriteFile(path, short, 0o600))

	key, err := New(path, nil).Key()
	require.NoError(t, err)
	require.Len(t, key, KeySize)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, key, onDisk, "key file must be overwritten with the new key")
}

func TestKey_UnreadableIsRegenerated(t *testing.T) {
	path := keyPath(t)
	// an empty directory in place of the key file cannot be read as a file
	require.NoError(t, os.MkdirAll(path, 0o700))

	key, err := New(path, nil).Key()
	require.NoError(t, err)
	require.Len(t, key, KeySize)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, key, onDisk)
}

func TestKey_WriteFailureIsHardError(t *testing.T) {
	path := keyPath(t)
	require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0o700))

	ks := New(path, nil)
	_, err := ks.Key()
	require.ErrorIs(t, err, ErrKeyUnavailable)

	// nothing cached, so once the obstacle is gone the next call succeeds
	require.NoError(t, os.RemoveAll(path))
	key, err := ks.Key()
	require.NoError(t, err)
	assert.Len(t, key, KeySize)
}

func TestKey_DirectoryCreationFailure(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0o600))

	_, err := New(filepath.Join(parent, ".master.key"), nil).Key()
	require.ErrorIs(t, err, ErrKeyUnavailable)
}

func TestKey_ConcurrentFirstUseGeneratesOnce(t *testing.T) {
	path := keyPath(t)
	ks := New(path, nil)

	const n = 16
	keys := make([][]byte, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := ks.Key()
			assert.NoError(t, err)
			keys[i] = k
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Equal(t, keys[0], keys[i])
	}
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, keys[0], onDisk)
}

func TestPath(t *testing.T) {
	assert.Equal(t, "/x/.master.key", New("/x/.master.key", nil).Path())
}
