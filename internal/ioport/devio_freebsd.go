//go:build freebsd

package ioport

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultDevice grants I/O privilege to the process holding it open.
const DefaultDevice = "/dev/io"

// _IOWR('I', 0, struct iodev_pio_req)
const iodevPIO = 0xc0104900

const (
	pioRead  = 0
	pioWrite = 1
)

type pioReq struct {
	access uint32
	port   uint32
	width  uint32
	val    uint32
}

// Device is a Port backed by the IODEV_PIO ioctl on /dev/io.
type Device struct {
	mu   sync.Mutex
	fd   int
	path string
}

// Open opens the I/O device at path, or DefaultDevice when path is empty.
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

func (d *Device) pio(req *pioReq) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), iodevPIO, uintptr(unsafe.Pointer(req)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *Device) In(addr uint16) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return 0, &Error{Op: "in", Addr: addr, Err: ErrClosed}
	}
	req := pioReq{access: pioRead, port: uint32(addr), width: 1}
	if err := d.pio(&req); err != nil {
		return 0, &Error{Op: "in", Addr: addr, Err: err}
	}
	return uint8(req.val), nil
}

func (d *Device) Out(addr uint16, v uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return &Error{Op: "out", Addr: addr, Err: ErrClosed}
	}
	req := pioReq{access: pioWrite, port: uint32(addr), width: 1, val: uint32(v)}
	if err := d.pio(&req); err != nil {
		return &Error{Op: "out", Addr: addr, Err: err}
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
