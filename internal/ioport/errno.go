//go:build linux || freebsd

package ioport

import (
	"errors"

	"golang.org/x/sys/unix"
)

// openError classifies an open(2) failure.
func openError(path string, err error) error {
	kind := ErrUnavailable
	if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
		kind = ErrPermission
	}
	return &OpenError{Path: path, Kind: kind, Err: err}
}
