// Package shared provides small helpers for handling secret material:
// reading from the system random source and wiping buffers once a secret
// is no longer needed.
package shared

import (
	"crypto/rand"
	"io"
)

// randReader is a test seam for the system CSPRNG.
var randReader io.Reader = rand.Reader

// RandomBytes returns size bytes read from the system CSPRNG.
//
// It returns an error if the random source fails or returns short data;
// callers must not fall back to a weaker source.
func RandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// This is useful for removing sensitive data such as passwords or cryptographic
// keys from memory after use.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
