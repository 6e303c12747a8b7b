package libav

import (
	"strings"

	"github.com/asticode/go-astiav"
)

// Logger receives FFmpeg's own log lines.
type Logger interface {
	Debug(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// SetLogger routes FFmpeg logging to l. Only warnings and errors are kept
// unless verbose is set. A nil l silences FFmpeg.
func SetLogger(l Logger, verbose bool) {
	if l == nil {
		astiav.SetLogLevel(astiav.LogLevelQuiet)
		return
	}
	level := astiav.LogLevelWarning
	if verbose {
		level = astiav.LogLevelVerbose
	}
	astiav.SetLogLevel(level)
	astiav.SetLogCallback(func(c astiav.Classer, lvl astiav.LogLevel, _, msg string) {
		msg = strings.TrimSpace(msg)
		if msg == "" {
			return
		}
		if c != nil {
			if cl := c.Class(); cl != nil {
				msg = cl.Name() + ": " + msg
			}
		}
		switch {
		case lvl <= astiav.LogLevelError:
			l.Error("ffmpeg %s", msg)
		case lvl <= astiav.LogLevelWarning:
			l.Warn("ffmpeg %s", msg)
		default:
			l.Debug("ffmpeg %s", msg)
		}
	})
}
