// Package check provides system diagnostics (the check command) and the
// pre-job capability validation (CheckDeps) for the linked FFmpeg libraries.
package check

import (
	"github.com/backmassage/vidsqueeze/internal/config"
	"github.com/backmassage/vidsqueeze/internal/failure"
)

// Capabilities answers what the linked libraries can do. libav.Backend
// implements it.
type Capabilities interface {
	HasEncoder(name string) bool
	HasDecoder(name string) bool
	HasMuxer(ext string) bool
}

// Logger is the minimal logging interface needed by RunCheck.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// Encoders listed by RunCheck besides the configured one.
var hevcEncoders = []string{"libx265", "hevc_vaapi", "hevc_nvenc", "hevc_qsv", "hevc_videotoolbox"}

// Decoders commonly found in inputs.
var commonDecoders = []string{"h264", "hevc", "vp9", "av1", "mpeg4", "mpeg2video"}

// RunCheck logs the availability of output muxers, HEVC encoders and common
// decoders. It reports whether everything cfg needs is present.
func RunCheck(cfg *config.Config, caps Capabilities, log Logger) bool {
	log.Info("=== System Check ===")
	ok := true

	log.Info("Muxers:")
	for _, c := range []config.Container{config.ContainerMKV, config.ContainerMP4} {
		if caps.HasMuxer(string(c)) {
			log.Success("  %s", c)
		} else {
			log.Error("  %s not available", c)
			ok = false
		}
	}

	log.Info("HEVC encoders:")
	seen := false
	for _, name := range hevcEncoders {
		if name == cfg.Encoder {
			seen = true
		}
		reportEncoder(caps, log, name, name == cfg.Encoder, &ok)
	}
	if !seen {
		reportEncoder(caps, log, cfg.Encoder, true, &ok)
	}

	log.Info("Decoders:")
	for _, name := range commonDecoders {
		if caps.HasDecoder(name) {
			log.Success("  %s", name)
		} else {
			log.Warn("  %s not available", name)
		}
	}
	return ok
}

func reportEncoder(caps Capabilities, log Logger, name string, required bool, ok *bool) {
	switch {
	case caps.HasEncoder(name):
		log.Success("  %s", name)
	case required:
		log.Error("  %s not available (configured encoder)", name)
		*ok = false
	default:
		log.Warn("  %s not available", name)
	}
}

// CheckDeps verifies that the configured encoder exists (transcode mode)
// and, in batch mode, that the output container can be muxed. It returns
// a capability failure naming what is missing.
func CheckDeps(cfg *config.Config, caps Capabilities) error {
	if cfg.Mode != config.ModePassthrough && !caps.HasEncoder(cfg.Encoder) {
		return failure.New(failure.KindCapability, "find encoder "+cfg.Encoder, failure.ErrEncoderNotFound)
	}
	if cfg.Batch && !caps.HasMuxer(string(cfg.OutputContainer)) {
		return failure.New(failure.KindCapability, "find muxer "+string(cfg.OutputContainer), failure.ErrOutputFormat)
	}
	return nil
}
