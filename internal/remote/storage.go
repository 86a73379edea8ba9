// Package remote is the file-storage client the vault's accounts log in
// to. The store is any S3-compatible service; a saved account's identifier
// is the access key ID and its secret is the secret access key.
package remote

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/dmitrijs2005/credvault/internal/accounts"
)

var (
	// ErrUnauthorized is returned by Connect when the store rejects the credentials.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Credentials authenticate against the store.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// FromAccount maps a saved account onto store credentials.
func FromAccount(a accounts.Account) Credentials {
	return Credentials{AccessKeyID: a.Email, SecretAccessKey: a.Password}
}

// Object describes a stored file.
type Object struct {
	Key      string
	Size     int64
	Modified time.Time
}

// Storage is what the CLI needs from a logged-in file store.
type Storage interface {
	List(ctx context.Context) ([]Object, error)
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
	Download(ctx context.Context, key string, w io.Writer) (int64, error)
	Link(ctx context.Context, key string, ttl time.Duration) (string, error)
}
