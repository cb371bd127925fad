package rgb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreman2200/msirgb/internal/superio"
)

// OpKind tells a plain write from a read-modify-write.
type OpKind uint8

const (
	OpWrite OpKind = iota
	OpUpdate
)

// Op is one step of a register program.
type Op struct {
	Kind  OpKind
	Reg   uint8
	Value uint8
	// Mask selects the bits an OpUpdate owns.
	Mask uint8
}

// Write returns an op storing v into reg.
func Write(reg, v uint8) Op { return Op{Kind: OpWrite, Reg: reg, Value: v, Mask: 0xFF} }

// Update returns an op replacing the mask bits of reg with those of v.
func Update(reg, mask, v uint8) Op { return Op{Kind: OpUpdate, Reg: reg, Value: v & mask, Mask: mask} }

// Apply returns what the register holds after the op when it held cur.
func (o Op) Apply(cur uint8) uint8 {
	if o.Kind == OpWrite {
		return o.Value
	}
	return cur&^o.Mask | o.Value&o.Mask
}

// RegisterWrite returns the op as a plain write. ok is false for updates.
func (o Op) RegisterWrite() (w superio.RegisterWrite, ok bool) {
	return superio.RegisterWrite{Reg: o.Reg, Value: o.Value}, o.Kind == OpWrite
}

func (o Op) String() string {
	if o.Kind == OpWrite {
		return fmt.Sprintf("%02x = %02x", o.Reg, o.Value)
	}
	return fmt.Sprintf("%02x &^ %02x | %02x", o.Reg, o.Mask, o.Value)
}

func (o Op) run(chip *superio.Chip) error {
	if w, ok := o.RegisterWrite(); ok {
		return chip.Store(w)
	}
	_, err := chip.Update(o.Reg, o.Mask, o.Value)
	return err
}

// Program is the register program for one Settings.
type Program struct {
	// Prelude runs before the RGB bank is selected; it carries its own
	// bank select.
	Prelude []Op
	// Bank is selected before Body runs.
	Bank uint8
	Body []Op
	// Restore is selected once the program is done, even on failure.
	Restore uint8
}

// Build validates s and returns its register program. It does no I/O.
func Build(s Settings) (*Program, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	p := &Program{Bank: BankRGB, Restore: BankDefault}

	if s.Pulse {
		p.Prelude = append(p.Prelude,
			Write(superio.RegLogicalDevice, BankGPIO),
			Update(RegGPIOMode, gpioPulse, gpioPulse),
		)
	}

	p.Body = append(p.Body, Update(RegControl, control16, control16))

	for _, c := range Channels {
		seq := s.Pattern[c]
		if s.Modifiers[c].Invert {
			seq = seq.Invert()
		}
		for i, b := range seq.Pack() {
			p.Body = append(p.Body, Write(tableBase[c]+uint8(i), b))
		}
	}

	for _, c := range Channels {
		var v uint8
		if s.Modifiers[c].Blink {
			v = blinkBit[c]
		}
		p.Body = append(p.Body, Update(RegMode, blinkBit[c], v))
	}
	p.Body = append(p.Body, Update(RegMode, modePulse|modePeriod, modeBits(s)))

	low, high := s.Divisor.Split()
	p.Body = append(p.Body,
		Write(RegDivisorLow, low),
		Update(RegTiming, timingDivHigh|timingHWInvert, high),
		Update(RegTiming, timingHeader, timingHeader),
	)
	return p, nil
}

func modeBits(s Settings) uint8 {
	var v uint8
	if s.Pulse {
		v |= modePulse
	}
	switch {
	case s.Disable:
		v |= modeOff
	case s.BlinkRate > 0:
		v |= (s.BlinkRate + 1) & modePeriod
	}
	return v
}

// Ops returns the whole program in execution order, bank selects included.
func (p *Program) Ops() []Op {
	ops := make([]Op, 0, len(p.Prelude)+len(p.Body)+2)
	ops = append(ops, p.Prelude...)
	ops = append(ops, Write(superio.RegLogicalDevice, p.Bank))
	ops = append(ops, p.Body...)
	return append(ops, Write(superio.RegLogicalDevice, p.Restore))
}

// Table returns the duty table bytes the program writes for c.
func (p *Program) Table(c Channel) [Steps / 2]uint8 {
	var b [Steps / 2]uint8
	for _, o := range p.Body {
		if o.Kind == OpWrite && o.Reg >= tableBase[c] && o.Reg < tableBase[c]+Steps/2 {
			b[o.Reg-tableBase[c]] = o.Value
		}
	}
	return b
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, o := range p.Ops() {
		sb.WriteString(o.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Run executes the program on chip, which must already be in extended
// function mode. The restore bank is selected on every path; a failure
// there is joined to the first error.
func (p *Program) Run(chip *superio.Chip) (err error) {
	defer func() {
		if rerr := chip.Select(p.Restore); rerr != nil {
			err = errors.Join(err, fmt.Errorf("rgb: restore bank 0x%02x: %w", p.Restore, rerr))
		}
	}()
	for _, o := range p.Prelude {
		if err := o.run(chip); err != nil {
			return fmt.Errorf("rgb: prelude %v: %w", o, err)
		}
	}
	if err := chip.Select(p.Bank); err != nil {
		return fmt.Errorf("rgb: select bank 0x%02x: %w", p.Bank, err)
	}
	for _, o := range p.Body {
		if err := o.run(chip); err != nil {
			return fmt.Errorf("rgb: %v: %w", o, err)
		}
	}
	return nil
}

// Options control Apply.
type Options struct {
	// IgnoreCheck skips the chip identification.
	IgnoreCheck bool
}

// Apply validates s and programs chip. Nothing touches the hardware when
// validation fails or ctx is already done. Once started the program runs to
// completion or to the first I/O error; the extended function mode is left
// on every path.
func Apply(ctx context.Context, chip *superio.Chip, s Settings, opt Options) (err error) {
	p, err := Build(s)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	defer func() {
		if xerr := chip.Halt(); xerr != nil {
			err = errors.Join(err, xerr)
		}
	}()
	if err := chip.Enter(); err != nil {
		return err
	}
	if !opt.IgnoreCheck {
		if _, err := chip.Identify(); err != nil {
			return err
		}
	}
	return p.Run(chip)
}
