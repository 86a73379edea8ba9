//go:build darwin

package keystore

import "golang.org/x/sys/unix"

// The dot prefix already hides the file from ls; UF_HIDDEN hides it from Finder.
func hideFile(path string) error {
	return unix.Chflags(path, unix.UF_HIDDEN)
}
