package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/backmassage/vidsqueeze/internal/failure"
)

// fileConfig is the YAML shape of a config file. Pointer fields tell
// "absent" apart from a zero value.
type fileConfig struct {
	Mode        *string  `yaml:"mode"`
	Encoder     *string  `yaml:"encoder"`
	SizeMB      *float64 `yaml:"size_mb"`
	Container   *string  `yaml:"container"`
	Jobs        *int     `yaml:"jobs"`
	Force       *bool    `yaml:"force"`
	Verbose     *bool    `yaml:"verbose"`
	Color       *string  `yaml:"color"`
	LogFile     *string  `yaml:"log_file"`
	MetricsFile *string  `yaml:"metrics_file"`
}

// LoadFile reads the YAML file at path into cfg. Keys whose flag was set
// on the command line (changed reports true for its flag name) are
// skipped, so explicit flags always win.
func LoadFile(path string, cfg *Config, changed func(flag string) bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return failure.WithPath(failure.KindIO, "read config", path, err)
	}
	if err := apply(b, cfg, changed); err != nil {
		return failure.WithPath(failure.KindValidation, "parse config", path, err)
	}
	return nil
}

func apply(b []byte, cfg *Config, changed func(string) bool) error {
	if changed == nil {
		changed = func(string) bool { return false }
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if fc.Mode != nil && !changed("mode") {
		if err := (&modeValue{&cfg.Mode}).Set(*fc.Mode); err != nil {
			return err
		}
	}
	if fc.Container != nil && !changed("container") {
		if err := (&containerValue{&cfg.OutputContainer}).Set(*fc.Container); err != nil {
			return err
		}
	}
	if fc.Color != nil && !changed("color") && !changed("no-color") {
		switch ColorMode(*fc.Color) {
		case ColorAuto, ColorAlways, ColorNever:
			cfg.ColorMode = ColorMode(*fc.Color)
		default:
			return fmt.Errorf("invalid color %q (use 'auto', 'always' or 'never')", *fc.Color)
		}
	}
	setString(&cfg.Encoder, fc.Encoder, !changed("encoder"))
	setString(&cfg.LogFile, fc.LogFile, !changed("log"))
	setString(&cfg.MetricsFile, fc.MetricsFile, !changed("metrics-file"))
	if fc.SizeMB != nil && !changed("size-mb") {
		cfg.TargetSizeMB = *fc.SizeMB
	}
	if fc.Jobs != nil && !changed("jobs") {
		cfg.Jobs = *fc.Jobs
	}
	if fc.Force != nil && !changed("force") {
		cfg.Overwrite = *fc.Force
	}
	if fc.Verbose != nil && !changed("verbose") {
		cfg.Verbose = *fc.Verbose
	}
	return nil
}

func setString(dst *string, v *string, ok bool) {
	if v != nil && ok {
		*dst = *v
	}
}
