// Package sim provides an in-memory NCT6795D-style Super I/O chip that
// implements ioport.Port. It backs the tests and the -dry-run mode.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coreman2200/msirgb/internal/ioport"
)

// DefaultID is what the simulated chip reports in registers 0x20/0x21.
const DefaultID = 0xD352

const (
	enterKey  = 0x87
	exitKey   = 0xAA
	regLDN    = 0x07
	regIDHigh = 0x20
	regIDLow  = 0x21
)

// ErrInjected is returned by the access selected with FailAt.
var ErrInjected = errors.New("sim: injected fault")

// Dir is the direction of a port access.
type Dir uint8

const (
	Read Dir = iota
	Write
)

func (d Dir) String() string {
	if d == Write {
		return "out"
	}
	return "in"
}

// Access is one completed port access.
type Access struct {
	Dir   Dir
	Addr  uint16
	Value uint8
}

func (a Access) String() string {
	return fmt.Sprintf("%s 0x%04x 0x%02x", a.Dir, a.Addr, a.Value)
}

// Chip simulates the configuration space behind an index/data port pair.
// Only 0x07 and the ID registers are global; every other register lives in
// the bank selected through 0x07.
type Chip struct {
	mu sync.Mutex

	// Base is the index port; the data port is Base+1.
	Base uint16
	// ID is reported through registers 0x20 (high) and 0x21 (low).
	ID uint16
	// FailAt makes the Nth access (1-based) fail with ErrInjected. Zero disables it.
	FailAt int
	// Log holds every successful access in order.
	Log []Access

	count    int
	keys     int
	extended bool
	index    uint8
	ldn      uint8
	banks    map[uint8]map[uint8]uint8
	closed   bool
}

// New returns a chip listening on base and base+1.
func New(base uint16) *Chip {
	return &Chip{Base: base, ID: DefaultID, banks: map[uint8]map[uint8]uint8{}}
}

// Reg returns a register of a bank without going through the ports.
func (c *Chip) Reg(bank, reg uint8) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banks[bank][reg]
}

// SetReg seeds a register of a bank without going through the ports.
func (c *Chip) SetReg(bank, reg, v uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(bank, reg, v)
}

// Bank returns the currently selected logical device.
func (c *Chip) Bank() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ldn
}

// Extended reports whether the extended function mode is unlocked.
func (c *Chip) Extended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extended
}

// Closed reports whether Close was called.
func (c *Chip) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Writes returns the logged writes.
func (c *Chip) Writes() []Access {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Access
	for _, a := range c.Log {
		if a.Dir == Write {
			out = append(out, a)
		}
	}
	return out
}

func (c *Chip) set(bank, reg, v uint8) {
	if c.banks == nil {
		c.banks = map[uint8]map[uint8]uint8{}
	}
	b := c.banks[bank]
	if b == nil {
		b = map[uint8]uint8{}
		c.banks[bank] = b
	}
	b[reg] = v
}

func (c *Chip) fault(op string, addr uint16) error {
	if c.closed {
		return &ioport.Error{Op: op, Addr: addr, Err: ioport.ErrClosed}
	}
	c.count++
	if c.FailAt > 0 && c.count == c.FailAt {
		return &ioport.Error{Op: op, Addr: addr, Err: ErrInjected}
	}
	return nil
}

func (c *Chip) In(addr uint16) (uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault("in", addr); err != nil {
		return 0, err
	}
	v := uint8(0xFF)
	switch addr {
	case c.Base:
		v = c.index
	case c.Base + 1:
		if c.extended {
			v = c.read(c.index)
		}
	}
	c.Log = append(c.Log, Access{Dir: Read, Addr: addr, Value: v})
	return v, nil
}

func (c *Chip) read(reg uint8) uint8 {
	switch reg {
	case regLDN:
		return c.ldn
	case regIDHigh:
		return uint8(c.ID >> 8)
	case regIDLow:
		return uint8(c.ID)
	}
	return c.banks[c.ldn][reg]
}

func (c *Chip) Out(addr uint16, v uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault("out", addr); err != nil {
		return err
	}
	switch addr {
	case c.Base:
		c.writeIndex(v)
	case c.Base + 1:
		if c.extended {
			c.writeData(v)
		}
	}
	c.Log = append(c.Log, Access{Dir: Write, Addr: addr, Value: v})
	return nil
}

func (c *Chip) writeIndex(v uint8) {
	if !c.extended {
		if v != enterKey {
			c.keys = 0
			return
		}
		c.keys++
		if c.keys == 2 {
			c.extended = true
			c.keys = 0
		}
		return
	}
	if v == exitKey {
		c.extended = false
		return
	}
	c.index = v
}

func (c *Chip) writeData(v uint8) {
	switch c.index {
	case regLDN:
		c.ldn = v
	case regIDHigh, regIDLow:
		// read-only
	default:
		c.set(c.ldn, c.index, v)
	}
}

func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

var _ ioport.Port = (*Chip)(nil)
