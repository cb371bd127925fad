package superio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3"
)

// Configuration registers shared by every logical device.
const (
	RegLogicalDevice uint8 = 0x07
	RegChipIDHigh    uint8 = 0x20
	RegChipIDLow     uint8 = 0x21
)

const (
	enterKey uint8 = 0x87
	exitKey  uint8 = 0xAA
)

// NCT6795D is the chip ID of the supported part with the revision nibble
// cleared.
const (
	NCT6795D uint16 = 0xD350
	idMask   uint16 = 0xFFF0
)

// ErrUnsupportedChip is matched by IDMismatchError.
var ErrUnsupportedChip = errors.New("superio: unsupported chip")

// IDMismatchError reports a chip that does not identify as an NCT6795D.
type IDMismatchError struct {
	ID uint16
}

func (e *IDMismatchError) Error() string {
	return fmt.Sprintf("superio: chip identifies as 0x%04x, not an NCT6795D", e.ID)
}

func (e *IDMismatchError) Is(target error) bool { return target == ErrUnsupportedChip }

// RegisterWrite is one value stored into a configuration register.
type RegisterWrite struct {
	Reg   uint8
	Value uint8
}

func (w RegisterWrite) String() string { return fmt.Sprintf("%02x<-%02x", w.Reg, w.Value) }

// Chip drives the configuration space of a Super I/O chip over c.
// It holds no register contents: every read goes to the hardware.
type Chip struct {
	c        conn.Conn
	log      zerolog.Logger
	extended bool
}

// Option configures a Chip.
type Option func(*Chip)

// WithLogger logs every register access at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Chip) { d.log = l }
}

// New returns a Chip using c, usually a *Conn.
func New(c conn.Conn, opts ...Option) *Chip {
	d := &Chip{c: c, log: zerolog.Nop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Chip) String() string { return d.c.String() }

// Enter unlocks the extended function mode.
func (d *Chip) Enter() error {
	d.extended = true
	for i := 0; i < 2; i++ {
		if err := d.c.Tx([]byte{enterKey}, nil); err != nil {
			return fmt.Errorf("superio: enter extended mode: %w", err)
		}
	}
	d.log.Debug().Msg("extended function mode entered")
	return nil
}

// Exit locks the configuration space again.
func (d *Chip) Exit() error {
	if err := d.c.Tx([]byte{exitKey}, nil); err != nil {
		return fmt.Errorf("superio: exit extended mode: %w", err)
	}
	d.extended = false
	d.log.Debug().Msg("extended function mode exited")
	return nil
}

// Halt implements conn.Resource. It exits the extended function mode if
// Enter was called without a matching Exit.
func (d *Chip) Halt() error {
	if !d.extended {
		return nil
	}
	return d.Exit()
}

// Read returns the value of reg in the selected logical device.
func (d *Chip) Read(reg uint8) (uint8, error) {
	var r [1]byte
	if err := d.c.Tx([]byte{reg}, r[:]); err != nil {
		return 0, fmt.Errorf("superio: read 0x%02x: %w", reg, err)
	}
	d.log.Debug().Str("reg", hex8(reg)).Str("val", hex8(r[0])).Msg("read")
	return r[0], nil
}

// Write stores v into reg of the selected logical device.
func (d *Chip) Write(reg, v uint8) error {
	if err := d.c.Tx([]byte{reg, v}, nil); err != nil {
		return fmt.Errorf("superio: write 0x%02x: %w", reg, err)
	}
	d.log.Debug().Str("reg", hex8(reg)).Str("val", hex8(v)).Msg("write")
	return nil
}

// Store performs w on the selected logical device.
func (d *Chip) Store(w RegisterWrite) error { return d.Write(w.Reg, w.Value) }

// Update reads reg, replaces the bits in mask with those of v and writes
// the result back. Bits outside mask keep their current value.
func (d *Chip) Update(reg, mask, v uint8) (uint8, error) {
	cur, err := d.Read(reg)
	if err != nil {
		return 0, err
	}
	next := cur&^mask | v&mask
	if err := d.Write(reg, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Select makes bank the current logical device.
func (d *Chip) Select(bank uint8) error {
	d.log.Debug().Str("bank", hex8(bank)).Msg("select")
	return d.Store(RegisterWrite{Reg: RegLogicalDevice, Value: bank})
}

// ID reads the 16 bit chip ID.
func (d *Chip) ID() (uint16, error) {
	hi, err := d.Read(RegChipIDHigh)
	if err != nil {
		return 0, err
	}
	lo, err := d.Read(RegChipIDLow)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// Identify reads the chip ID and checks it is an NCT6795D.
func (d *Chip) Identify() (uint16, error) {
	id, err := d.ID()
	if err != nil {
		return 0, err
	}
	if id&idMask != NCT6795D {
		return id, &IDMismatchError{ID: id}
	}
	d.log.Debug().Str("id", fmt.Sprintf("0x%04x", id)).Msg("chip identified")
	return id, nil
}

func hex8(v uint8) string { return fmt.Sprintf("0x%02x", v) }

var _ conn.Resource = (*Chip)(nil)
