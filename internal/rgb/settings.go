// Package rgb encodes an RGB header pattern into the NCT6795D register
// program and runs it against a superio.Chip.
package rgb

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is matched by every ValidationError.
var ErrInvalidInput = errors.New("rgb: invalid input")

// ValidationError reports input rejected before any hardware access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rgb: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// Channel is one of the header's three color lines.
type Channel int

const (
	Red Channel = iota
	Green
	Blue
)

// Channels lists every channel in programming order.
var Channels = [...]Channel{Red, Green, Blue}

func (c Channel) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// ParseChannels accepts a list like "r,b", "rgb" or "red,green".
func ParseChannels(s string) ([]Channel, error) {
	var out []Channel
	seen := map[Channel]bool{}
	add := func(c Channel) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return r == ',' || r == ' ' }) {
		switch f {
		case "red":
			add(Red)
			continue
		case "green":
			add(Green)
			continue
		case "blue":
			add(Blue)
			continue
		}
		for _, r := range f {
			switch r {
			case 'r':
				add(Red)
			case 'g':
				add(Green)
			case 'b':
				add(Blue)
			default:
				return nil, &ValidationError{Field: "channels", Reason: fmt.Sprintf("unknown channel %q in %q", r, s)}
			}
		}
	}
	return out, nil
}

// Pattern holds one Sequence per channel, indexed by Channel.
type Pattern [len(Channels)]Sequence

// Modifiers alter how a channel is programmed.
type Modifiers struct {
	// Invert complements every slot before packing.
	Invert bool
	// Blink routes the channel through the chip's blink comparator.
	Blink bool
}

// Divisor stretches the time each slot is shown. It is 9 bits wide.
type Divisor uint16

const (
	DefaultDivisor Divisor = 25
	MaxDivisor     Divisor = 511
)

// Split returns the low byte and the ninth bit.
func (d Divisor) Split() (low, high uint8) {
	return uint8(d), uint8(d>>8) & 1
}

// JoinDivisor is the inverse of Divisor.Split.
func JoinDivisor(low, high uint8) Divisor {
	return Divisor(high&1)<<8 | Divisor(low)
}

// MaxBlinkRate is the slowest blink period.
const MaxBlinkRate uint8 = 6

// Settings is everything programmed in one run.
type Settings struct {
	Pattern   Pattern
	Modifiers [len(Channels)]Modifiers
	Divisor   Divisor

	// BlinkRate is the blink period for blinking channels, 1 (fastest)
	// to MaxBlinkRate. 0 keeps every channel steady.
	BlinkRate uint8
	// Pulse enables smooth pulsing.
	Pulse bool
	// Disable turns the whole RGB subsystem off.
	Disable bool
}

// DefaultSettings is every channel off with the default divisor.
func DefaultSettings() Settings {
	return Settings{Divisor: DefaultDivisor}
}

// Blinking reports whether any channel has Blink set.
func (s Settings) Blinking() bool {
	for _, m := range s.Modifiers {
		if m.Blink {
			return true
		}
	}
	return false
}

// Validate checks s completely. It is called before any hardware access.
func (s Settings) Validate() error {
	for _, c := range Channels {
		if err := s.Pattern[c].Validate(); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Field = c.String() + " sequence"
			}
			return err
		}
	}
	if s.Divisor > MaxDivisor {
		return &ValidationError{Field: "divisor", Reason: fmt.Sprintf("%d exceeds %d", s.Divisor, MaxDivisor)}
	}
	if s.BlinkRate > MaxBlinkRate {
		return &ValidationError{Field: "blink rate", Reason: fmt.Sprintf("%d exceeds %d", s.BlinkRate, MaxBlinkRate)}
	}
	if s.Blinking() && s.BlinkRate == 0 {
		return &ValidationError{Field: "blink", Reason: "channels set to blink but blink rate is 0"}
	}
	if s.Disable && (s.Pulse || s.BlinkRate != 0) {
		return &ValidationError{Field: "disable", Reason: "cannot be combined with pulse or blink"}
	}
	return nil
}
