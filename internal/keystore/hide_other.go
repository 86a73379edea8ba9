//go:build !windows && !darwin

package keystore

// Dot-prefixed names are hidden by convention; there is no attribute to set.
func hideFile(string) error { return nil }
