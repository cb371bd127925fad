package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/msirgb/internal/rgb"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "/etc/msirgb.yaml"

// Preset is a named pattern. Channel lists use the same syntax as the
// -invert and -blink flags ("r,g,b").
type Preset struct {
	Red       string `yaml:"red"`
	Green     string `yaml:"green"`
	Blue      string `yaml:"blue"`
	Invert    string `yaml:"invert,omitempty"`
	Blink     string `yaml:"blink,omitempty"`
	BlinkRate uint8  `yaml:"blink_rate,omitempty"`
	Duration  *int   `yaml:"duration,omitempty"`
	Pulse     bool   `yaml:"pulse,omitempty"`
}

type Config struct {
	Device      string `yaml:"device,omitempty"`    // e.g. /dev/port
	BasePort    string `yaml:"base_port,omitempty"` // hex, 4e or 2e
	Duration    *int   `yaml:"duration,omitempty"`  // 0..511
	BlinkRate   uint8  `yaml:"blink_rate,omitempty"`
	IgnoreCheck bool   `yaml:"ignore_check,omitempty"`
	LogLevel    string `yaml:"log_level,omitempty"`

	Presets map[string]Preset `yaml:"presets,omitempty"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Base returns the configured base port, or fallback when unset.
func (c *Config) Base(fallback uint16) (uint16, error) {
	if c == nil || c.BasePort == "" {
		return fallback, nil
	}
	return ParsePort(c.BasePort)
}

// ParsePort reads a hex port number with or without a 0x prefix.
func ParsePort(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("base port %q: %w", s, err)
	}
	return uint16(v), nil
}

// Preset looks up a preset by name.
func (c *Config) Preset(name string) (Preset, error) {
	if c != nil {
		if p, ok := c.Presets[name]; ok {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("preset %q not found", name)
}

// PresetFrom captures s as a preset. Disable has no preset form and is
// dropped.
func PresetFrom(s rgb.Settings) Preset {
	d := int(s.Divisor)
	p := Preset{
		Red:       s.Pattern[rgb.Red].String(),
		Green:     s.Pattern[rgb.Green].String(),
		Blue:      s.Pattern[rgb.Blue].String(),
		BlinkRate: s.BlinkRate,
		Duration:  &d,
		Pulse:     s.Pulse,
	}
	var inv, blink []string
	for _, c := range rgb.Channels {
		if s.Modifiers[c].Invert {
			inv = append(inv, c.String())
		}
		if s.Modifiers[c].Blink {
			blink = append(blink, c.String())
		}
	}
	p.Invert = strings.Join(inv, ",")
	p.Blink = strings.Join(blink, ",")
	return p
}

// Settings converts the preset. Fields it leaves unset keep the values of
// base.
func (p Preset) Settings(base rgb.Settings) (rgb.Settings, error) {
	s := base
	for c, str := range map[rgb.Channel]string{rgb.Red: p.Red, rgb.Green: p.Green, rgb.Blue: p.Blue} {
		seq, err := rgb.ParseSequence(str)
		if err != nil {
			return s, fmt.Errorf("%s: %w", c, err)
		}
		s.Pattern[c] = seq
	}
	inv, err := rgb.ParseChannels(p.Invert)
	if err != nil {
		return s, err
	}
	for _, c := range inv {
		s.Modifiers[c].Invert = true
	}
	blink, err := rgb.ParseChannels(p.Blink)
	if err != nil {
		return s, err
	}
	for _, c := range blink {
		s.Modifiers[c].Blink = true
	}
	if p.BlinkRate != 0 {
		s.BlinkRate = p.BlinkRate
	}
	if p.Duration != nil {
		if *p.Duration < 0 || *p.Duration > int(rgb.MaxDivisor) {
			return s, &rgb.ValidationError{Field: "duration", Reason: fmt.Sprintf("%d out of range 0..%d", *p.Duration, rgb.MaxDivisor)}
		}
		s.Divisor = rgb.Divisor(*p.Duration)
	}
	s.Pulse = s.Pulse || p.Pulse
	return s, nil
}
