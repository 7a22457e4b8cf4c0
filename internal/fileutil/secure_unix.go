//go:build !windows

package fileutil

import "os"

// WriteOwnerOnly writes data to path with mode 0600.
func WriteOwnerOnly(path string, data []byte) error {
	return os.WriteFile(path, data, 0600)
}

// MkdirOwnerOnly creates a directory tree with mode 0700.
func MkdirOwnerOnly(path string) error {
	return os.MkdirAll(path, 0700)
}

// OpenOwnerOnly opens a file for writing with mode 0600.
func OpenOwnerOnly(path string, flag int) (*os.File, error) {
	return os.OpenFile(path, flag, 0600)
}
