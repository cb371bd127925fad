package rgb

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Steps is the number of time slots the chip cycles through.
	Steps = 8
	// MaxLevel is the brightest a slot can be.
	MaxLevel uint8 = 15
)

const (
	HIGH_NIBBLE uint8 = 4
	LOW_NIBBLE  uint8 = 0
)

// Sequence is the brightness of one channel for each time slot.
type Sequence [Steps]uint8

// ParseSequence reads exactly Steps hex digits; digit i is slot i.
func ParseSequence(s string) (Sequence, error) {
	var seq Sequence
	if len(s) != Steps {
		return seq, &ValidationError{Field: "sequence", Reason: fmt.Sprintf("%q has %d digits, want %d", s, len(s), Steps)}
	}
	for i := 0; i < Steps; i++ {
		v, err := strconv.ParseUint(s[i:i+1], 16, 8)
		if err != nil {
			return seq, &ValidationError{Field: "sequence", Reason: fmt.Sprintf("%q: digit %d is not hex", s, i)}
		}
		seq[i] = uint8(v)
	}
	return seq, nil
}

// Solid returns a sequence holding level in every slot.
func Solid(level uint8) Sequence {
	var s Sequence
	for i := range s {
		s[i] = level
	}
	return s
}

// Validate checks every slot is in [0, MaxLevel].
func (s Sequence) Validate() error {
	for i, v := range s {
		if v > MaxLevel {
			return &ValidationError{Field: "sequence", Reason: fmt.Sprintf("slot %d is %d, max %d", i, v, MaxLevel)}
		}
	}
	return nil
}

// Invert complements every slot within the nibble range.
func (s Sequence) Invert() Sequence {
	var out Sequence
	for i, v := range s {
		out[i] = MaxLevel - v
	}
	return out
}

// Pack folds pairs of slots into bytes: slot 2i in the high nibble, slot
// 2i+1 in the low one.
func (s Sequence) Pack() [Steps / 2]uint8 {
	var b [Steps / 2]uint8
	for i := range b {
		b[i] = setnibble(b[i], s[2*i], HIGH_NIBBLE)
		b[i] = setnibble(b[i], s[2*i+1], LOW_NIBBLE)
	}
	return b
}

// Unpack is the inverse of Pack.
func Unpack(b [Steps / 2]uint8) Sequence {
	var s Sequence
	for i, v := range b {
		s[2*i] = getnibble(v, HIGH_NIBBLE)
		s[2*i+1] = getnibble(v, LOW_NIBBLE)
	}
	return s
}

func (s Sequence) String() string {
	var sb strings.Builder
	for _, v := range s {
		sb.WriteString(strings.ToUpper(strconv.FormatUint(uint64(v&0xF), 16)))
	}
	return sb.String()
}

func setnibble(b uint8, n uint8, off uint8) uint8 {
	var mask uint8 = 0xF << off
	return (b &^ mask) | (n<<off)&mask
}

func getnibble(b uint8, off uint8) uint8 {
	return (b >> off) & 0xF
}
