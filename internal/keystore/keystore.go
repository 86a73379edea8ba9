// Package keystore owns the lifecycle of the vault master key: it loads the
// key from its file, validates it, regenerates it when the file is missing
// or corrupted, and caches it for the lifetime of the process.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/credvault/internal/filex"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/shared"
)

// KeySize is the master key length in bytes (AES-256).
const KeySize = 32

// ErrKeyUnavailable is returned when no usable key could be loaded or generated.
var ErrKeyUnavailable = errors.New("master key unavailable")

// KeyStore provides the master key, creating it on first use.
//
// It is safe for concurrent use. Concurrent first callers wait for a single
// initialisation; a failed initialisation is not cached and the next call
// tries again.
type KeyStore struct {
	path string
	log  logging.Logger

	mu  sync.Mutex
	key []byte
}

// New returns a KeyStore backed by the key file at path. A nil log discards
// diagnostics.
func New(path string, log logging.Logger) *KeyStore {
	if log == nil {
		log = logging.Nop()
	}
	return &KeyStore{path: path, log: log.With("component", "keystore")}
}

// Path returns the key file location.
func (k *KeyStore) Path() string {
	return k.path
}

// Key returns a copy of the master key.
func (k *KeyStore) Key() ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.key == nil {
		key, err := k.loadOrGenerate()
		if err != nil {
			return nil, err
		}
		k.key = key
	}

	out := make([]byte, len(k.key))
	copy(out, k.key)
	return out, nil
}

func (k *KeyStore) loadOrGenerate() ([]byte, error) {
	ctx := context.Background()

	data, ok, err := filex.ReadFile(k.path)
	switch {
	case err != nil:
		k.log.Warn(ctx, "key file unreadable, generating a new key", "path", k.path, "error", err)
	case ok && len(data) == KeySize:
		return data, nil
	case ok:
		k.log.Warn(ctx, "key file has wrong length, generating a new key", "path", k.path, "len", len(data))
		shared.WipeByteArray(data)
	}

	return k.generate(ctx)
}

func (k *KeyStore) generate(ctx context.Context) ([]byte, error) {
	key, err := shared.RandomBytes(KeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: random source: %v", ErrKeyUnavailable, err)
	}

	if err := filex.EnsureDir(filepath.Dir(k.path)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	// a hidden file cannot be truncated in place on windows
	if err := os.Remove(k.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		k.log.Debug(ctx, "could not remove stale key file", "path", k.path, "error", err)
	}
	if err := os.WriteFile(k.path, key, 0o600); err != nil {
		return nil, fmt.Errorf("%w: write key file: %v", ErrKeyUnavailable, err)
	}

	if err := hideFile(k.path); err != nil {
		k.log.Debug(ctx, "could not mark key file hidden", "path", k.path, "error", err)
	}

	k.log.Info(ctx, "generated new master key", "path", k.path)
	return key, nil
}
