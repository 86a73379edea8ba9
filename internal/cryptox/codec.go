// Package cryptox implements the string codec used to protect account
// secrets at rest.
//
// Encrypted values are AES-256-CBC with PKCS#7 padding under the vault
// master key. Each value gets a fresh random IV; the stored text is
//
//	base64(IV[16] || ciphertext)
//
// Values written before encryption was introduced are plain base64 of the
// UTF-8 text. Decoding accepts both forms.
package cryptox

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/shared"
)

var (
	// ErrKeyUnavailable is returned by Seal when the key source fails.
	ErrKeyUnavailable = errors.New("encryption key unavailable")

	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	ErrBadPadding          = errors.New("invalid padding")
	ErrNotText             = errors.New("plaintext is not valid UTF-8")
)

// KeySource supplies the 32-byte master key.
type KeySource interface {
	Key() ([]byte, error)
}

// Outcome reports how Open produced its result.
type Outcome int

const (
	// OutcomeEmpty: the input was empty.
	OutcomeEmpty Outcome = iota
	// OutcomeDecrypted: an IV-framed blob decrypted under the current key.
	OutcomeDecrypted
	// OutcomeLegacy: the input was read as plain base64 text.
	OutcomeLegacy
	// OutcomeUnreadable: nothing produced valid text; the result is "".
	OutcomeUnreadable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeDecrypted:
		return "decrypted"
	case OutcomeLegacy:
		return "legacy"
	case OutcomeUnreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Codec encrypts and decrypts individual strings.
type Codec struct {
	keys KeySource
	log  logging.Logger
}

// NewCodec returns a Codec using keys. A nil log discards diagnostics.
func NewCodec(keys KeySource, log logging.Logger) *Codec {
	if log == nil {
		log = logging.Nop()
	}
	return &Codec{keys: keys, log: log.With("component", "codec")}
}

// Seal encrypts plaintext and returns the base64 text of IV||ciphertext.
// Empty input yields empty output without touching the key.
func (c *Codec) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	key, err := c.keys.Key()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	defer shared.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}

	iv, err := shared.RandomBytes(aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	defer shared.WipeByteArray(padded)

	blob := make([]byte, aes.BlockSize+len(padded))
	copy(blob, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(blob[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Encrypt is Seal that never fails. If encryption is impossible it logs a
// warning and returns the plain base64 encoding of plaintext, trading
// confidentiality of this value for the ability to save it at all.
func (c *Codec) Encrypt(plaintext string) string {
	text, err := c.Seal(plaintext)
	if err != nil {
		c.log.Warn(context.Background(), "encryption failed, storing value in legacy encoding", "error", err)
		return base64.StdEncoding.EncodeToString([]byte(plaintext))
	}
	return text
}

// Open decodes text produced by Seal, Encrypt or the legacy plain-base64
// format. It never fails; the Outcome tells which path produced the value.
func (c *Codec) Open(text string) (string, Outcome) {
	if text == "" {
		return "", OutcomeEmpty
	}

	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return "", OutcomeUnreadable
	}

	if len(raw) >= aes.BlockSize {
		pt, err := c.openBlob(raw)
		if err == nil {
			s := string(pt)
			shared.WipeByteArray(pt)
			return s, OutcomeDecrypted
		}
		c.log.Debug(context.Background(), "decryption failed, trying legacy format", "error", err)
	}

	if !utf8.Valid(raw) {
		return "", OutcomeUnreadable
	}
	return string(raw), OutcomeLegacy
}

// Decrypt is Open without the outcome.
func (c *Codec) Decrypt(text string) string {
	s, _ := c.Open(text)
	return s
}

func (c *Codec) openBlob(raw []byte) ([]byte, error) {
	iv, ct := raw[:aes.BlockSize], raw[aes.BlockSize:]
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, ErrMalformedCiphertext
	}

	key, err := c.keys.Key()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	defer shared.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}

	buf := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(buf, ct)

	pt, err := pkcs7Unpad(buf, aes.BlockSize)
	if err != nil {
		shared.WipeByteArray(buf)
		return nil, err
	}
	if !utf8.Valid(pt) {
		shared.WipeByteArray(buf)
		return nil, ErrNotText
	}
	return pt, nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b)+n)
	copy(out, b)
	copy(out[len(b):], bytes.Repeat([]byte{byte(n)}, n))
	return out
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, ErrBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, ErrBadPadding
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, ErrBadPadding
		}
	}
	return b[:len(b)-n], nil
}
