package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/msirgb/internal/config"
	"github.com/coreman2200/msirgb/internal/ioport"
	"github.com/coreman2200/msirgb/internal/ioport/sim"
	"github.com/coreman2200/msirgb/internal/rgb"
	"github.com/coreman2200/msirgb/internal/superio"
)

const usage = `usage: msirgb [flags] RED GREEN BLUE
       msirgb [flags] -preset NAME

Each of RED, GREEN and BLUE is 8 hex digits, one brightness level (0-F)
per step. The header cycles through the 8 steps; -duration sets how long
each step lasts.

Flags:
`

func main() {
	os.Exit(realMain())
}

func realMain() int {
	o := options{set: map[string]bool{}}
	flag.StringVar(&o.configPath, "config", config.DefaultPath, "path to config YAML")
	flag.StringVar(&o.device, "device", ioport.DefaultDevice, "port I/O device")
	flag.StringVar(&o.basePort, "base-port", "4e", "Super I/O base port in hex (4e or 2e)")
	flag.IntVar(&o.duration, "duration", int(rgb.DefaultDivisor), "time per step, 0 (fastest) to 511 (slowest)")
	flag.UintVar(&o.blinkRate, "blink-rate", 0, "blink period for -blink channels, 1 (fastest) to 6")
	flag.StringVar(&o.invert, "invert", "", "channels to invert, e.g. r,b")
	flag.StringVar(&o.blink, "blink", "", "channels to blink, e.g. g")
	flag.BoolVar(&o.pulse, "pulse", false, "smooth pulsing")
	flag.BoolVar(&o.disable, "disable", false, "turn the RGB header off")
	flag.BoolVar(&o.ignoreCheck, "ignore-check", false, "skip the NCT6795D identification (may be dangerous)")
	flag.StringVar(&o.preset, "preset", "", "apply a preset from the config file")
	flag.StringVar(&o.savePreset, "save-preset", "", "store the resolved pattern as a preset in the config file")
	flag.BoolVar(&o.dryRun, "dry-run", false, "program a simulated chip and print its registers")
	flag.StringVar(&o.logLevel, "log-level", "info", "debug | info | warn | error")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	flag.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	o.args = flag.Args()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	setLevel(o.logLevel)

	// ---- Config (optional) ----
	cfg, err := config.Load(o.configPath)
	if err != nil {
		lvl := zerolog.WarnLevel
		if errors.Is(err, fs.ErrNotExist) && !o.set["config"] {
			lvl = zerolog.DebugLevel
		}
		log.WithLevel(lvl).Err(err).Str("path", o.configPath).Msg("config load failed; proceeding with flags")
		cfg = nil
	}
	if !o.set["log-level"] && cfg != nil && cfg.LogLevel != "" {
		setLevel(cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, &o, cfg, os.Stdout)
	var ue *usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue):
		fmt.Fprintf(os.Stderr, "msirgb: %v\n\n", err)
		flag.Usage()
		return 2
	case errors.Is(err, rgb.ErrInvalidInput):
		log.Error().Err(err).Msg("invalid input")
		return 2
	case errors.Is(err, ioport.ErrPermission):
		log.Error().Err(err).Msg("could not open the port device; try sudo?")
	case errors.Is(err, ioport.ErrUnavailable):
		log.Error().Err(err).Msg("port device unavailable")
	case errors.Is(err, superio.ErrUnsupportedChip):
		log.Error().Err(err).Msg("try -base-port 2e, or -ignore-check to skip the check (may be dangerous)")
	default:
		log.Error().Err(err).Msg("could not set the colour")
	}
	return 1
}

func setLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("level", level).Msg("unknown log level; using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func run(ctx context.Context, o *options, cfg *config.Config, out io.Writer) error {
	s, t, err := o.resolve(cfg)
	if err != nil {
		return err
	}
	if o.savePreset != "" {
		if err := savePreset(o.configPath, cfg, o.savePreset, s); err != nil {
			return err
		}
	}

	var (
		port ioport.Port
		chip *sim.Chip
	)
	if o.dryRun {
		chip = sim.New(t.base)
		port = chip
	} else {
		dev, err := ioport.Open(t.device)
		if err != nil {
			return err
		}
		port = dev
	}
	defer func() {
		if err := port.Close(); err != nil {
			log.Warn().Err(err).Msg("closing port device")
		}
	}()

	sio := superio.New(superio.NewConn(port, t.base),
		superio.WithLogger(log.Logger.With().Str("component", "superio").Logger()))
	log.Debug().
		Str("device", t.device).
		Str("base", fmt.Sprintf("0x%02x", t.base)).
		Bool("dry_run", o.dryRun).
		Msg("programming RGB header")

	if err := rgb.Apply(ctx, sio, s, rgb.Options{IgnoreCheck: t.ignoreCheck}); err != nil {
		return err
	}
	log.Info().
		Str("red", s.Pattern[rgb.Red].String()).
		Str("green", s.Pattern[rgb.Green].String()).
		Str("blue", s.Pattern[rgb.Blue].String()).
		Uint16("duration", uint16(s.Divisor)).
		Msg("RGB header programmed")

	if chip != nil {
		if p, err := rgb.Build(s); err == nil {
			fmt.Fprintf(out, "program:\n%s\n", p)
		}
		printRegisters(out, chip)
	}
	return nil
}

// savePreset adds s to cfg under name and writes cfg to path. A file that
// exists but failed to load is left alone.
func savePreset(path string, cfg *config.Config, name string, s rgb.Settings) error {
	if cfg == nil {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("save preset %q: %s exists but could not be loaded", name, path)
		}
		cfg = &config.Config{}
	}
	if cfg.Presets == nil {
		cfg.Presets = map[string]config.Preset{}
	}
	cfg.Presets[name] = config.PresetFrom(s)
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("save preset %q: %w", name, err)
	}
	log.Info().Str("preset", name).Str("path", path).Msg("preset saved")
	return nil
}

func printRegisters(w io.Writer, c *sim.Chip) {
	reg := func(r uint8) uint8 { return c.Reg(rgb.BankRGB, r) }
	fmt.Fprintf(w, "bank %02x: e0=%02x e4=%02x fe=%02x ff=%02x\n",
		rgb.BankRGB, reg(rgb.RegControl), reg(rgb.RegMode), reg(rgb.RegDivisorLow), reg(rgb.RegTiming))
	for _, ch := range rgb.Channels {
		var b [rgb.Steps / 2]uint8
		for i := range b {
			b[i] = reg(rgb.TableReg(ch) + uint8(i))
		}
		fmt.Fprintf(w, "%-5s %02x: % x  %s\n", ch, rgb.TableReg(ch), b[:], rgb.Unpack(b))
	}
	fmt.Fprintf(w, "bank %02x: 2c=%02x\n", rgb.BankGPIO, c.Reg(rgb.BankGPIO, rgb.RegGPIOMode))
}
