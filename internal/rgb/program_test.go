package rgb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/msirgb/internal/ioport"
	"github.com/coreman2200/msirgb/internal/ioport/sim"
	"github.com/coreman2200/msirgb/internal/superio"
)

const base = superio.PortPrimary

func mustPattern(t *testing.T, r, g, b string) Pattern {
	t.Helper()
	var p Pattern
	for i, s := range []string{r, g, b} {
		seq, err := ParseSequence(s)
		require.NoError(t, err)
		p[i] = seq
	}
	return p
}

func newChip() (*sim.Chip, *superio.Chip) {
	c := sim.New(base)
	return c, superio.New(superio.NewConn(c, base))
}

// selects returns the values written to the logical device register, in order.
func selects(log []sim.Access) []uint8 {
	var out []uint8
	for i := 0; i+1 < len(log); i++ {
		a, next := log[i], log[i+1]
		if a.Dir == sim.Write && a.Addr == base && a.Value == superio.RegLogicalDevice &&
			next.Dir == sim.Write && next.Addr == base+1 {
			out = append(out, next.Value)
		}
	}
	return out
}

func TestOpApplyPreservesOtherBits(t *testing.T) {
	for _, c := range Channels {
		for _, on := range []bool{false, true} {
			var v uint8
			if on {
				v = BlinkBit(c)
			}
			op := Update(RegMode, BlinkBit(c), v)
			for cur := 0; cur < 256; cur++ {
				got := op.Apply(uint8(cur))
				assert.Equal(t, uint8(cur)&^BlinkBit(c), got&^BlinkBit(c), "%v cur=%02x", c, cur)
				assert.Equal(t, on, got&BlinkBit(c) != 0)
			}
		}
	}
	w := Write(RegDivisorLow, 0x42)
	assert.Equal(t, uint8(0x42), w.Apply(0xff))
	rw, ok := w.RegisterWrite()
	assert.True(t, ok)
	assert.Equal(t, superio.RegisterWrite{Reg: RegDivisorLow, Value: 0x42}, rw)
	_, ok = Update(RegTiming, 1, 1).RegisterWrite()
	assert.False(t, ok)
}

func TestBuildGreenOnly(t *testing.T) {
	s := DefaultSettings()
	s.Pattern = mustPattern(t, "00000000", "FFFFFFFF", "00000000")

	p, err := Build(s)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{}, p.Table(Red))
	assert.Equal(t, [4]uint8{0xff, 0xff, 0xff, 0xff}, p.Table(Green))
	assert.Equal(t, [4]uint8{}, p.Table(Blue))

	again, err := Build(s)
	require.NoError(t, err)
	assert.Equal(t, p.Ops(), again.Ops())
}

func TestBuildDivisor(t *testing.T) {
	s := DefaultSettings()
	s.Pattern = mustPattern(t, "FF00FF00", "00000000", "00FF00FF")
	s.Divisor = 15

	p, err := Build(s)
	require.NoError(t, err)
	assert.Contains(t, p.Body, Write(RegDivisorLow, 15))
	assert.Contains(t, p.Body, Update(RegTiming, 0x1d, 0))
	assert.Equal(t, [4]uint8{0xff, 0x00, 0xff, 0x00}, p.Table(Red))
	assert.Equal(t, [4]uint8{0x00, 0xff, 0x00, 0xff}, p.Table(Blue))
}

func TestBuildInvert(t *testing.T) {
	s := DefaultSettings()
	s.Pattern = mustPattern(t, "0123456F", "0123456F", "00000000")
	s.Modifiers[Green].Invert = true

	p, err := Build(s)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{0x01, 0x23, 0x45, 0x6f}, p.Table(Red))
	assert.Equal(t, [4]uint8{0xfe, 0xdc, 0xba, 0x90}, p.Table(Green))
}

func TestBuildOrder(t *testing.T) {
	s := DefaultSettings()
	s.Modifiers[Blue].Blink = true
	s.BlinkRate = 2
	p, err := Build(s)
	require.NoError(t, err)

	ops := p.Ops()
	require.Len(t, ops, 1+1+12+3+1+3+1)
	assert.Equal(t, Write(superio.RegLogicalDevice, BankRGB), ops[0])
	assert.Equal(t, Update(RegControl, 0xe0, 0xe0), ops[1])
	assert.Equal(t, Write(RegRedTable, 0), ops[2])
	assert.Equal(t, Write(RegBlueTable+3, 0), ops[13])
	assert.Equal(t, Update(RegMode, 0x10, 0), ops[14])
	assert.Equal(t, Update(RegMode, 0x20, 0), ops[15])
	assert.Equal(t, Update(RegMode, 0x40, 0x40), ops[16])
	assert.Equal(t, Update(RegMode, 0x0f, 0x03), ops[17])
	assert.Equal(t, Write(RegDivisorLow, 25), ops[18])
	assert.Equal(t, Update(RegTiming, 0x1d, 0), ops[19])
	assert.Equal(t, Update(RegTiming, 0x02, 0x02), ops[20])
	assert.Equal(t, Write(superio.RegLogicalDevice, BankDefault), ops[21])
}

func TestModeBits(t *testing.T) {
	for _, tc := range []struct {
		s    Settings
		want uint8
	}{
		{Settings{}, 0x00},
		{Settings{Pulse: true}, 0x08},
		{Settings{Disable: true}, 0x01},
		{Settings{BlinkRate: 1}, 0x02},
		{Settings{BlinkRate: 6, Pulse: true}, 0x0f},
	} {
		assert.Equal(t, tc.want, modeBits(tc.s), "%+v", tc.s)
	}
}

func TestApplyProgramsChip(t *testing.T) {
	c, chip := newChip()
	c.SetReg(BankRGB, RegControl, 0x1f)
	c.SetReg(BankRGB, RegMode, 0x80)
	c.SetReg(BankRGB, RegTiming, 0x9c)

	s := DefaultSettings()
	s.Pattern = mustPattern(t, "FF00FF00", "0F0F0F0F", "00FF00FF")
	s.Modifiers[Red].Blink = true
	s.Modifiers[Blue].Invert = true
	s.BlinkRate = 3
	s.Divisor = 271

	require.NoError(t, Apply(context.Background(), chip, s, Options{}))

	assert.Equal(t, uint8(0xff), c.Reg(BankRGB, RegControl))
	assert.Equal(t, uint8(0x94), c.Reg(BankRGB, RegMode))
	assert.Equal(t, uint8(15), c.Reg(BankRGB, RegDivisorLow))
	assert.Equal(t, uint8(0x83), c.Reg(BankRGB, RegTiming))
	for i, want := range []uint8{0xff, 0x00, 0xff, 0x00} {
		assert.Equal(t, want, c.Reg(BankRGB, RegRedTable+uint8(i)))
	}
	for i, want := range []uint8{0x0f, 0x0f, 0x0f, 0x0f} {
		assert.Equal(t, want, c.Reg(BankRGB, RegGreenTable+uint8(i)))
	}
	for i, want := range []uint8{0xff, 0x00, 0xff, 0x00} {
		assert.Equal(t, want, c.Reg(BankRGB, RegBlueTable+uint8(i)))
	}
	assert.Equal(t, BankDefault, c.Bank())
	assert.False(t, c.Extended())
}

func TestApplyClearsHardwareInvert(t *testing.T) {
	c, chip := newChip()
	c.SetReg(BankRGB, RegTiming, 0xfe)

	s := DefaultSettings()
	s.Pattern = mustPattern(t, "00000000", "FFFFFFFF", "00000000")
	require.NoError(t, Apply(context.Background(), chip, s, Options{}))

	got := c.Reg(BankRGB, RegTiming)
	assert.Zero(t, got&0x1c, "hardware invert left at 0x%02x", got)
	assert.Equal(t, uint8(0xe2), got, "bits 7..5 kept, header on, divisor bit 8 clear")
	for i := uint8(0); i < 4; i++ {
		assert.Equal(t, uint8(0xff), c.Reg(BankRGB, RegGreenTable+i))
		assert.Equal(t, uint8(0x00), c.Reg(BankRGB, RegRedTable+i))
	}
}

func TestApplyBracket(t *testing.T) {
	for _, mods := range [][3]Modifiers{
		{},
		{{Invert: true}, {Blink: true}, {Invert: true, Blink: true}},
		{{Blink: true}, {Blink: true}, {Blink: true}},
	} {
		c, chip := newChip()
		s := DefaultSettings()
		s.Modifiers = mods
		s.BlinkRate = 1
		require.NoError(t, Apply(context.Background(), chip, s, Options{}))

		assert.Equal(t, []uint8{BankRGB, BankDefault}, selects(c.Log))
		w := c.Writes()
		assert.Equal(t, []sim.Access{
			{Dir: sim.Write, Addr: base, Value: 0x87},
			{Dir: sim.Write, Addr: base, Value: 0x87},
		}, w[:2])
		assert.Equal(t, []sim.Access{
			{Dir: sim.Write, Addr: base, Value: 0x07},
			{Dir: sim.Write, Addr: base + 1, Value: BankDefault},
			{Dir: sim.Write, Addr: base, Value: 0xaa},
		}, w[len(w)-3:])
	}
}

func TestApplyPulsePrelude(t *testing.T) {
	c, chip := newChip()
	c.SetReg(BankGPIO, RegGPIOMode, 0x41)
	s := DefaultSettings()
	s.Pulse = true

	require.NoError(t, Apply(context.Background(), chip, s, Options{}))
	assert.Equal(t, uint8(0x51), c.Reg(BankGPIO, RegGPIOMode))
	assert.Equal(t, uint8(0x08), c.Reg(BankRGB, RegMode))
	assert.Equal(t, []uint8{BankGPIO, BankRGB, BankDefault}, selects(c.Log))
}

func TestApplyRejectsInputWithoutIO(t *testing.T) {
	c, chip := newChip()
	s := DefaultSettings()
	s.Divisor = 600
	err := Apply(context.Background(), chip, s, Options{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, c.Log)

	s = DefaultSettings()
	s.Pattern[Red][0] = 0x10
	assert.ErrorIs(t, Apply(context.Background(), chip, s, Options{}), ErrInvalidInput)
	assert.Empty(t, c.Log)
}

func TestApplyCanceledContext(t *testing.T) {
	c, chip := newChip()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Apply(ctx, chip, DefaultSettings(), Options{}), context.Canceled)
	assert.Empty(t, c.Log)
}

func TestApplyUnsupportedChip(t *testing.T) {
	c, chip := newChip()
	c.ID = 0xd423
	err := Apply(context.Background(), chip, DefaultSettings(), Options{})
	assert.ErrorIs(t, err, superio.ErrUnsupportedChip)
	assert.Empty(t, selects(c.Log))
	assert.False(t, c.Extended())

	c, chip = newChip()
	c.ID = 0xd423
	require.NoError(t, Apply(context.Background(), chip, DefaultSettings(), Options{IgnoreCheck: true}))
	assert.Equal(t, []uint8{BankRGB, BankDefault}, selects(c.Log))
}

func TestApplyIOErrorStillRestores(t *testing.T) {
	// 2 unlock writes, 4 accesses for the ID, 2 for the bank select,
	// then the first table write lands well inside the body.
	for _, failAt := range []int{9, 12, 20, 40} {
		c, chip := newChip()
		c.FailAt = failAt
		err := Apply(context.Background(), chip, DefaultSettings(), Options{})
		require.Error(t, err, "failAt=%d", failAt)
		assert.ErrorIs(t, err, ioport.ErrIO)
		assert.ErrorIs(t, err, sim.ErrInjected)
		assert.Equal(t, BankDefault, c.Bank(), "failAt=%d", failAt)
		assert.False(t, c.Extended(), "failAt=%d", failAt)
	}
}

func TestApplyEnterFailureStillExits(t *testing.T) {
	c, chip := newChip()
	c.FailAt = 2
	err := Apply(context.Background(), chip, DefaultSettings(), Options{})
	assert.ErrorIs(t, err, ioport.ErrIO)
	assert.Empty(t, selects(c.Log))
	w := c.Writes()
	assert.Equal(t, uint8(0xaa), w[len(w)-1].Value)
}
