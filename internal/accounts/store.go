// Package accounts keeps the saved login accounts: an in-memory collection
// mirrored to a JSON file, with email and password encrypted by a Codec at
// the serialization boundary.
//
// Lookups scan the collection and decode each stored email. Saved accounts
// are expected to number in the handful, and an index would need either
// cached plaintext or a deterministic lookup key.
package accounts

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/credvault/internal/cryptox"
	"github.com/dmitrijs2005/credvault/internal/logging"
)

var (
	// ErrEmptyEmail is returned by Save when no email is given.
	ErrEmptyEmail = errors.New("email is required")

	// ErrPersist wraps failures to write the accounts file. The in-memory
	// change that triggered the write is kept.
	ErrPersist = errors.New("persist accounts")
)

// Codec turns secrets into stored text and back.
type Codec interface {
	Encrypt(plaintext string) string
	Open(text string) (string, cryptox.Outcome)
}

// Store is the account collection. Methods are safe for concurrent use,
// but the store assumes it is the only writer of its file.
type Store struct {
	path  string
	codec Codec
	log   logging.Logger
	now   func() time.Time

	mu      sync.Mutex
	records []record
}

type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides time.Now for LastUsed stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open loads the accounts file at path. It never fails: a missing file
// gives an empty store, and so does an unreadable one, after a copy of it
// has been set aside as <path>.corrupt.
func Open(path string, codec Codec, opts ...Option) *Store {
	s := &Store{
		path:  path,
		codec: codec,
		log:   logging.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "accounts")
	s.load()
	return s
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of saved accounts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// List returns all accounts, most recently used first. Accounts with equal
// LastUsed keep their insertion order.
func (s *Store) List() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := slices.Clone(s.records)
	slices.SortStableFunc(sorted, func(a, b record) int {
		return b.LastUsed.Compare(a.LastUsed.Time)
	})

	out := make([]Account, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, s.decode(r))
	}
	return out
}

// Get returns the account whose decrypted email equals email.
func (s *Store) Get(email string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(email)
	if i < 0 {
		return Account{}, false
	}
	return s.decode(s.records[i]), true
}

// Save stores the password for email. An existing account keeps its
// AccountName; a new one gets the next free "login_N" name.
func (s *Store) Save(email, password string) error {
	if email == "" {
		return ErrEmptyEmail
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if i := s.find(email); i >= 0 {
		s.records[i].Password = s.codec.Encrypt(password)
		s.records[i].LastUsed = timestamp{now}
	} else {
		s.records = append(s.records, record{
			Email:       s.codec.Encrypt(email),
			Password:    s.codec.Encrypt(password),
			AccountName: s.nextName(),
			LastUsed:    timestamp{now},
		})
	}
	return s.persist()
}

// Touch marks email as used now. Unknown emails are ignored.
func (s *Store) Touch(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(email)
	if i < 0 {
		return nil
	}
	s.records[i].LastUsed = timestamp{s.now()}
	return s.persist()
}

// Delete removes every account whose decrypted email equals email.
func (s *Store) Delete(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	s.records = slices.DeleteFunc(s.records, func(r record) bool {
		return s.matches(r, email)
	})
	if len(s.records) == n {
		return nil
	}
	return s.persist()
}

func (s *Store) find(email string) int {
	if email == "" {
		return -1
	}
	return slices.IndexFunc(s.records, func(r record) bool {
		return s.matches(r, email)
	})
}

func (s *Store) matches(r record, email string) bool {
	got, outcome := s.codec.Open(r.Email)
	switch outcome {
	case cryptox.OutcomeDecrypted, cryptox.OutcomeLegacy:
		return got == email
	default:
		return false
	}
}

func (s *Store) decode(r record) Account {
	email, _ := s.codec.Open(r.Email)
	password, _ := s.codec.Open(r.Password)
	return Account{
		Email:       email,
		Password:    password,
		AccountName: r.AccountName,
		LastUsed:    r.LastUsed.Time,
	}
}

func (s *Store) nextName() string {
	for n := len(s.records) + 1; ; n++ {
		name := fmt.Sprintf("login_%d", n)
		taken := slices.ContainsFunc(s.records, func(r record) bool {
			return r.AccountName == name
		})
		if !taken {
			return name
		}
	}
}
