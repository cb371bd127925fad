// Package ioport gives byte-wide access to the host's legacy I/O port space.
//
// A Port is the only thing in this module allowed to touch port addresses.
// Calls on a single Port are serialized; nothing serializes access between
// processes.
package ioport

import (
	"errors"
	"fmt"
)

// Port reads and writes single bytes at I/O port addresses.
type Port interface {
	// In reads one byte from addr.
	In(addr uint16) (uint8, error)
	// Out writes one byte to addr.
	Out(addr uint16, v uint8) error
	// Close releases the underlying handle. It is safe to call twice.
	Close() error
}

var (
	// ErrPermission means the process lacks the privilege to open the port device.
	ErrPermission = errors.New("ioport: permission denied")
	// ErrUnavailable means the port device is missing, busy or unsupported here.
	ErrUnavailable = errors.New("ioport: device unavailable")
	// ErrIO is matched by every failed In or Out.
	ErrIO = errors.New("ioport: i/o error")
	// ErrClosed is returned for accesses after Close.
	ErrClosed = errors.New("ioport: port closed")
)

// Error describes a failed port access.
type Error struct {
	Op   string // "in" or "out"
	Addr uint16
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ioport: %s 0x%04x: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrIO for every access failure.
func (e *Error) Is(target error) bool { return target == ErrIO }

// OpenError describes a failure to acquire the port device. Kind is
// ErrPermission or ErrUnavailable.
type OpenError struct {
	Path string
	Kind error
	Err  error
}

func (e *OpenError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("ioport: open: %v", e.Err)
	}
	return fmt.Sprintf("ioport: open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() []error { return []error{e.Kind, e.Err} }
