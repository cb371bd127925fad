//go:build linux

package ioport

import (
	"io"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultDevice is the character device exposing the port space. A byte at
// file offset N is port N.
const DefaultDevice = "/dev/port"

// Device is a Port backed by /dev/port.
type Device struct {
	mu   sync.Mutex
	fd   int
	path string
}

// Open opens the port device at path, or DefaultDevice when path is empty.
// It needs CAP_SYS_RAWIO.
func Open(path string) (*Device, error) {
	if path == "" {
		path = DefaultDevice
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, openError(path, err)
	}
	return &Device{fd: fd, path: path}, nil
}

func (d *Device) String() string { return d.path }

func (d *Device) In(addr uint16) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return 0, &Error{Op: "in", Addr: addr, Err: ErrClosed}
	}
	var b [1]byte
	n, err := unix.Pread(d.fd, b[:], int64(addr))
	if err != nil {
		return 0, &Error{Op: "in", Addr: addr, Err: err}
	}
	if n != 1 {
		return 0, &Error{Op: "in", Addr: addr, Err: io.ErrUnexpectedEOF}
	}
	return b[0], nil
}

func (d *Device) Out(addr uint16, v uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return &Error{Op: "out", Addr: addr, Err: ErrClosed}
	}
	n, err := unix.Pwrite(d.fd, []byte{v}, int64(addr))
	if err != nil {
		return &Error{Op: "out", Addr: addr, Err: err}
	}
	if n != 1 {
		return &Error{Op: "out", Addr: addr, Err: io.ErrShortWrite}
	}
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
