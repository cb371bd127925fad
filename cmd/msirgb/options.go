package main

import (
	"fmt"

	"github.com/coreman2200/msirgb/internal/config"
	"github.com/coreman2200/msirgb/internal/ioport"
	"github.com/coreman2200/msirgb/internal/rgb"
	"github.com/coreman2200/msirgb/internal/superio"
)

type options struct {
	configPath  string
	device      string
	basePort    string
	duration    int
	blinkRate   uint
	invert      string
	blink       string
	pulse       bool
	disable     bool
	ignoreCheck bool
	preset      string
	savePreset  string
	dryRun      bool
	logLevel    string

	// set holds the names of flags given on the command line.
	set  map[string]bool
	args []string
}

// target is where the program goes.
type target struct {
	device      string
	base        uint16
	ignoreCheck bool
}

// usageError is reported with the usage text and exit code 2.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

// resolve merges defaults, the config file, the preset, the flags and the
// positional sequences, in increasing precedence.
func (o *options) resolve(cfg *config.Config) (rgb.Settings, target, error) {
	s := rgb.DefaultSettings()
	t := target{device: ioport.DefaultDevice, base: superio.PortPrimary}

	if cfg != nil {
		if cfg.Device != "" {
			t.device = cfg.Device
		}
		b, err := cfg.Base(t.base)
		if err != nil {
			return s, t, err
		}
		t.base = b
		if cfg.Duration != nil {
			if *cfg.Duration < 0 || *cfg.Duration > int(rgb.MaxDivisor) {
				return s, t, &rgb.ValidationError{Field: "duration", Reason: fmt.Sprintf("config value %d out of range 0..%d", *cfg.Duration, rgb.MaxDivisor)}
			}
			s.Divisor = rgb.Divisor(*cfg.Duration)
		}
		s.BlinkRate = cfg.BlinkRate
		t.ignoreCheck = cfg.IgnoreCheck
	}

	if o.preset != "" {
		p, err := cfg.Preset(o.preset)
		if err != nil {
			return s, t, &usageError{msg: err.Error()}
		}
		if s, err = p.Settings(s); err != nil {
			return s, t, fmt.Errorf("preset %q: %w", o.preset, err)
		}
	}

	switch {
	case len(o.args) == len(rgb.Channels):
		for i, a := range o.args {
			seq, err := rgb.ParseSequence(a)
			if err != nil {
				return s, t, fmt.Errorf("%s: %w", rgb.Channels[i], err)
			}
			s.Pattern[rgb.Channels[i]] = seq
		}
	case len(o.args) == 0 && o.preset != "":
	default:
		return s, t, &usageError{msg: "expected RED GREEN BLUE sequences or -preset"}
	}

	if o.set["device"] {
		t.device = o.device
	}
	if o.set["base-port"] {
		b, err := config.ParsePort(o.basePort)
		if err != nil {
			return s, t, &usageError{msg: err.Error()}
		}
		t.base = b
	}
	if o.set["ignore-check"] {
		t.ignoreCheck = o.ignoreCheck
	}
	if o.set["duration"] {
		if o.duration < 0 || o.duration > int(rgb.MaxDivisor) {
			return s, t, &rgb.ValidationError{Field: "duration", Reason: fmt.Sprintf("%d out of range 0..%d", o.duration, rgb.MaxDivisor)}
		}
		s.Divisor = rgb.Divisor(o.duration)
	}
	if o.set["blink-rate"] {
		if o.blinkRate > uint(rgb.MaxBlinkRate) {
			return s, t, &rgb.ValidationError{Field: "blink rate", Reason: fmt.Sprintf("%d exceeds %d", o.blinkRate, rgb.MaxBlinkRate)}
		}
		s.BlinkRate = uint8(o.blinkRate)
	}
	if o.set["invert"] {
		if err := o.modifiers(&s, o.invert, func(m *rgb.Modifiers) { m.Invert = true }, func(m *rgb.Modifiers) { m.Invert = false }); err != nil {
			return s, t, err
		}
	}
	if o.set["blink"] {
		if err := o.modifiers(&s, o.blink, func(m *rgb.Modifiers) { m.Blink = true }, func(m *rgb.Modifiers) { m.Blink = false }); err != nil {
			return s, t, err
		}
	}
	s.Pulse = s.Pulse || o.pulse
	s.Disable = o.disable
	if s.Disable {
		// Only explicit flags can conflict with -disable.
		s.Pulse = o.pulse
		if !o.set["blink-rate"] {
			s.BlinkRate = 0
		}
		if !o.set["blink"] {
			for _, c := range rgb.Channels {
				s.Modifiers[c].Blink = false
			}
		}
	}

	return s, t, s.Validate()
}

// modifiers applies on to the channels listed in list and off to the rest.
func (o *options) modifiers(s *rgb.Settings, list string, on, off func(*rgb.Modifiers)) error {
	chs, err := rgb.ParseChannels(list)
	if err != nil {
		return err
	}
	for _, c := range rgb.Channels {
		off(&s.Modifiers[c])
	}
	for _, c := range chs {
		on(&s.Modifiers[c])
	}
	return nil
}
