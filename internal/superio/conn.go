// Package superio talks to a Nuvoton Super I/O chip through its
// index/data port pair.
package superio

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"

	"github.com/coreman2200/msirgb/internal/ioport"
)

// Base ports a Super I/O chip decodes. The data port is always base+1.
const (
	PortPrimary   uint16 = 0x4E
	PortSecondary uint16 = 0x2E
)

// ErrTxShape is returned by Conn.Tx for buffers it cannot map onto the
// index/data pair.
var ErrTxShape = errors.New("superio: unsupported transaction shape")

// Conn exposes an index/data port pair as a half duplex conn.Conn.
//
// Tx maps its buffers as follows:
//
//	w=[key]           write key to the index port
//	w=[reg] r=[_]     write reg to the index port, read the data port
//	w=[reg, v]        write reg to the index port, write v to the data port
type Conn struct {
	port ioport.Port
	base uint16
}

// NewConn returns a Conn for the chip decoding base and base+1.
func NewConn(p ioport.Port, base uint16) *Conn {
	return &Conn{port: p, base: base}
}

func (c *Conn) String() string { return fmt.Sprintf("superio@0x%02x", c.base) }

// Duplex implements conn.Conn.
func (c *Conn) Duplex() conn.Duplex { return conn.Half }

// Tx implements conn.Conn.
func (c *Conn) Tx(w, r []byte) error {
	switch {
	case len(w) == 1 && len(r) == 0:
		return c.port.Out(c.base, w[0])
	case len(w) == 1 && len(r) == 1:
		if err := c.port.Out(c.base, w[0]); err != nil {
			return err
		}
		v, err := c.port.In(c.base + 1)
		if err != nil {
			return err
		}
		r[0] = v
		return nil
	case len(w) == 2 && len(r) == 0:
		if err := c.port.Out(c.base, w[0]); err != nil {
			return err
		}
		return c.port.Out(c.base+1, w[1])
	}
	return fmt.Errorf("%w: w=%d r=%d", ErrTxShape, len(w), len(r))
}

var _ conn.Conn = (*Conn)(nil)
