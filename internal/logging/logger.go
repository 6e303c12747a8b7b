// Package logging provides the leveled, optionally colored logger used by
// every command. It keeps one line per message in the form
// "2006-01-02 15:04:05 [LEVEL] text", mirrors lines to an optional log file
// without color, and sends ERROR lines to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/backmassage/vidsqueeze/internal/config"
	"github.com/backmassage/vidsqueeze/internal/term"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	tagField   = "tag"
)

// Logger wraps a logrus entry with the level helpers the commands use.
type Logger struct {
	entry *logrus.Entry
	file  *fileSink
}

// NewLogger builds a logger from cfg: colors follow cfg.ColorMode, debug
// lines are enabled by cfg.Verbose, and cfg.LogFile (if set) is opened for
// append. Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	var sink *fileSink
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		sink = &fileSink{f: f}
	}
	return newLogger(os.Stdout, os.Stderr, sink, cfg.Verbose, term.Enabled()), nil
}

// New builds a logger writing to out (INFO..WARN) and errOut (ERROR)
// without a log file.
func New(out, errOut io.Writer, verbose bool) *Logger {
	return newLogger(out, errOut, nil, verbose, false)
}

func newLogger(out, errOut io.Writer, sink *fileSink, verbose, color bool) *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.InfoLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	l.AddHook(&consoleHook{out: out, errOut: errOut, format: lineFormatter{color: color}})
	if sink != nil {
		l.AddHook(&fileHook{sink: sink, format: lineFormatter{}})
	}
	return &Logger{entry: logrus.NewEntry(l), file: sink}
}

// With returns a child logger that appends key=value to every line.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value), file: l.file}
}

// Verbose reports whether debug lines are written.
func (l *Logger) Verbose() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.entry.WithField(tagField, "SUCCESS").Infof(format, args...)
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Error logs at ERROR level (red) to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Debug logs at DEBUG level (cyan) when verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// consoleHook writes formatted lines to stdout, or stderr for errors.
type consoleHook struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	format lineFormatter
}

func (h *consoleHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *consoleHook) Fire(e *logrus.Entry) error {
	b, err := h.format.Format(e)
	if err != nil {
		return err
	}
	w := h.out
	if e.Level <= logrus.ErrorLevel {
		w = h.errOut
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = w.Write(b)
	return err
}

type fileSink struct {
	mu sync.Mutex
	f  *os.File
}

func (s *fileSink) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return len(b), nil
	}
	return s.f.Write(b)
}

func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

type fileHook struct {
	sink   *fileSink
	format lineFormatter
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	b, err := h.format.Format(e)
	if err != nil {
		return err
	}
	_, err = h.sink.Write(b)
	return err
}

// lineFormatter renders "timestamp [LEVEL] message key=value...".
type lineFormatter struct {
	color bool
}

func (f lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	label, color := levelLabel(e)
	var b strings.Builder
	b.WriteString(e.Time.Format(timeLayout))
	b.WriteByte(' ')
	if f.color && color != "" {
		b.WriteString(color + "[" + label + "]" + term.NC)
	} else {
		b.WriteString("[" + label + "]")
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != tagField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func levelLabel(e *logrus.Entry) (string, string) {
	if tag, ok := e.Data[tagField].(string); ok && tag == "SUCCESS" {
		return tag, term.Green
	}
	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return "ERROR", term.Red
	case logrus.WarnLevel:
		return "WARN", term.Yellow
	case logrus.DebugLevel, logrus.TraceLevel:
		return "DEBUG", term.Cyan
	default:
		return "INFO", term.Blue
	}
}
