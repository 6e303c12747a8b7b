package config

// This file binds CLI flags onto a Config. Flags are grouped into encoding,
// behavior, display, and batch. Negated flags (e.g. --no-color) are applied
// after parsing so Config defaults hold unless set.

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Flags holds values that are applied to the Config after parsing instead
// of being bound to a field directly.
type Flags struct {
	forceColor bool
	noColor    bool
}

// BindFlags registers the flags shared by every command on fs.
func BindFlags(fs *pflag.FlagSet, cfg *Config) *Flags {
	f := &Flags{}
	defineEncodingFlags(fs, cfg)
	defineBehaviorFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, f)
	return f
}

// BindBatchFlags registers flags that only the batch command understands.
func BindBatchFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVarP(&cfg.Jobs, "jobs", "j", cfg.Jobs, "Number of files encoded in parallel")
	fs.Var(&containerValue{&cfg.OutputContainer}, "container", "Output container: mkv | mp4")
}

// defineEncodingFlags registers -m/--mode, -e/--encoder, -s/--size-mb.
func defineEncodingFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.VarP(&modeValue{&cfg.Mode}, "mode", "m", "Packet handling: transcode | passthrough")
	fs.StringVarP(&cfg.Encoder, "encoder", "e", cfg.Encoder, "Encoder implementation name")
	fs.Float64VarP(&cfg.TargetSizeMB, "size-mb", "s", cfg.TargetSizeMB, "Target output size in MiB")
}

// defineBehaviorFlags registers dry-run, force, no-prompt and config.
func defineBehaviorFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVarP(&cfg.DryRun, "dry-run", "d", false, "Plan only; print the bit rate and exit")
	fs.BoolVarP(&cfg.Overwrite, "force", "f", false, "Overwrite existing output files")
	fs.BoolVar(&cfg.NoPrompt, "no-prompt", false, "Fail instead of prompting for missing values")
	fs.StringVar(&cfg.ConfigFile, "config", "", "Read defaults from a YAML file")
}

// defineDisplayFlags registers --color, --no-color, verbose, --log, --metrics-file.
func defineDisplayFlags(fs *pflag.FlagSet, cfg *Config, f *Flags) {
	fs.BoolVar(&f.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output (includes libav messages)")
	fs.StringVarP(&cfg.LogFile, "log", "l", "", "Append logs to file")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus metrics to file on exit")
}

// Apply copies negated and override flag values into cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.noColor {
		cfg.ColorMode = ColorNever
	} else if f.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// pflag.Value adapters so we can use enum types (Mode, Container) with fs.Var.

type modeValue struct{ p *Mode }

func (m *modeValue) String() string { return string(*m.p) }
func (m *modeValue) Type() string { return "mode" }
func (m *modeValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "transcode":
		*m.p = ModeTranscode
	case "passthrough", "copy":
		*m.p = ModePassthrough
	default:
		return fmt.Errorf("invalid mode %q (use 'transcode' or 'passthrough')", s)
	}
	return nil
}

type containerValue struct{ p *Container }

func (c *containerValue) String() string { return string(*c.p) }
func (c *containerValue) Type() string { return "container" }
func (c *containerValue) Set(s string) error {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "mkv":
		*c.p = ContainerMKV
	case "mp4":
		*c.p = ContainerMP4
	default:
		return fmt.Errorf("invalid container %q (use 'mkv' or 'mp4')", s)
	}
	return nil
}
