// Package vault assembles the credential vault: a KeyStore holding the
// master key, the Codec that encrypts with it and the account Store that
// persists encrypted records. All files live in one directory.
package vault

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/credvault/internal/accounts"
	"github.com/dmitrijs2005/credvault/internal/cryptox"
	"github.com/dmitrijs2005/credvault/internal/keystore"
	"github.com/dmitrijs2005/credvault/internal/logging"
)

const (
	AppDirName       = "credvault"
	KeyFileName      = ".master.key"
	AccountsFileName = "accounts.json"
)

// Vault bundles the three layers; callers normally only use Accounts.
type Vault struct {
	Dir      string
	Keys     *keystore.KeyStore
	Codec    *cryptox.Codec
	Accounts *accounts.Store
}

// DefaultDir returns the per-user configuration directory for credvault.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, AppDirName), nil
}

// Open wires the vault rooted at dir. It does not touch the key file until
// a value is first encrypted or decrypted.
func Open(dir string, log logging.Logger, opts ...accounts.Option) *Vault {
	if log == nil {
		log = logging.Nop()
	}

	keys := keystore.New(filepath.Join(dir, KeyFileName), log)
	codec := cryptox.NewCodec(keys, log)
	store := accounts.Open(
		filepath.Join(dir, AccountsFileName),
		codec,
		append([]accounts.Option{accounts.WithLogger(log)}, opts...)...,
	)

	return &Vault{Dir: dir, Keys: keys, Codec: codec, Accounts: store}
}
