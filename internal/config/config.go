// Package config holds runtime configuration: defaults, CLI flag binding,
// optional YAML config file, and validation.
package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/backmassage/vidsqueeze/internal/failure"
)

// --- Enum types for validated string fields ---

// Mode selects how video packets reach the output.
type Mode string

const (
	ModeTranscode   Mode = "transcode"   // Decode and re-encode at the planned bit rate (default).
	ModePassthrough Mode = "passthrough" // Copy packets; the planned bit rate is declared only.
)

// Container is the output container format used in batch mode. Single jobs
// infer it from the output path extension.
type Container string

const (
	ContainerMKV Container = "mkv" // Matroska (default).
	ContainerMP4 Container = "mp4"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// DefaultEncoder is the HEVC software encoder used unless --encoder is given.
const DefaultEncoder = "libx265"

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by an optional config file, then by CLI flags, before being passed
// (by pointer) to packages that need it.
type Config struct {
	// Single job (positional args or prompts).
	InputPath    string
	OutputPath   string
	TargetSizeMB float64 // Target output size in MiB. Required.

	// Batch job (batch subcommand).
	Batch           bool
	InputDir        string
	OutputDir       string
	OutputContainer Container // Default: "mkv".
	Jobs            int       // Parallel jobs. Default: 1.

	// Encoding.
	Mode    Mode   // Default: "transcode".
	Encoder string // Default: "libx265".

	// Behavior flags.
	DryRun    bool
	Overwrite bool // --force.
	NoPrompt  bool // Never prompt for missing values.

	// Display and logging.
	Verbose     bool
	ColorMode   ColorMode // Default: "auto".
	LogFile     string    // Optional log file path.
	MetricsFile string    // Optional Prometheus textfile path.
	ConfigFile  string    // Optional YAML file read before flags apply.
}

// DefaultConfig returns a Config with all defaults set.
func DefaultConfig() Config {
	return Config{
		OutputContainer: ContainerMKV,
		Jobs:            1,
		Mode:            ModeTranscode,
		Encoder:         DefaultEncoder,
		ColorMode:       ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges, then requires the paths
// of the selected job kind. Errors are validation failures.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return failure.New(failure.KindValidation, "config", err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeTranscode, ModePassthrough:
		// valid
	default:
		return errors.New("invalid mode (use 'transcode' or 'passthrough')")
	}

	switch c.OutputContainer {
	case ContainerMKV, ContainerMP4:
		// valid
	default:
		return errors.New("invalid container (use 'mkv' or 'mp4')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if strings.TrimSpace(c.Encoder) == "" {
		return errors.New("encoder name must not be empty")
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1 (got %d)", c.Jobs)
	}
	if math.IsNaN(c.TargetSizeMB) || math.IsInf(c.TargetSizeMB, 0) || c.TargetSizeMB <= 0 {
		return fmt.Errorf("%w (got %v MB)", failure.ErrInvalidTarget, c.TargetSizeMB)
	}

	if c.Batch {
		if c.InputDir == "" || c.OutputDir == "" {
			return errors.New("need exactly input_dir and output_dir")
		}
		return nil
	}
	if c.InputPath == "" || c.OutputPath == "" {
		return errors.New("need input and output file paths")
	}
	return nil
}

// ValidatePaths ensures the resolved output directory is not inside (or equal
// to) the resolved input directory. This prevents the batch runner from
// recursively discovering its own output files. Both arguments must be
// absolute, symlink-resolved paths.
func (c *Config) ValidatePaths(inputAbs, outputAbs string) error {
	sep := string(filepath.Separator)
	if outputAbs == inputAbs || strings.HasPrefix(outputAbs+sep, inputAbs+sep) {
		return failure.New(failure.KindValidation, "paths",
			errors.New("output directory must not be inside input directory"))
	}
	return nil
}

// ValidateFilePaths rejects a single job whose output would overwrite its
// own input. Paths are compared after cleaning and making them absolute.
func ValidateFilePaths(input, output string) error {
	in, err := filepath.Abs(input)
	if err != nil {
		return failure.WithPath(failure.KindIO, "resolve", input, err)
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return failure.WithPath(failure.KindIO, "resolve", output, err)
	}
	if in == out {
		return failure.WithPath(failure.KindValidation, "output", output, failure.ErrSamePath)
	}
	return nil
}
