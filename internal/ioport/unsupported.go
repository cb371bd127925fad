//go:build !linux && !freebsd

package ioport

import (
	"fmt"
	"runtime"
)

const DefaultDevice = ""

type Device struct{}

func Open(path string) (*Device, error) {
	return nil, &OpenError{
		Path: path,
		Kind: ErrUnavailable,
		Err:  fmt.Errorf("port i/o not supported on %s", runtime.GOOS),
	}
}

func (d *Device) String() string { return "unsupported" }

func (d *Device) In(addr uint16) (uint8, error) {
	return 0, &Error{Op: "in", Addr: addr, Err: ErrUnavailable}
}

func (d *Device) Out(addr uint16, v uint8) error {
	return &Error{Op: "out", Addr: addr, Err: ErrUnavailable}
}

func (d *Device) Close() error { return nil }
