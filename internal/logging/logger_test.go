package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/vidsqueeze/internal/config"
)

func TestNewLogger_NoFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	l, err := NewLogger(&cfg)
	require.NoError(t, err)
	defer l.Close()
	l.Info("test message")
}

func TestNewLogger_WithFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	cfg.LogFile = filepath.Join(dir, "logs", "vidsqueeze.log")
	l, err := NewLogger(&cfg)
	require.NoError(t, err)

	l.Info("to file")
	l.Success("done")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second Close is a no-op")

	b, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[INFO] to file")
	assert.Contains(t, string(b), "[SUCCESS] done")
}

func TestLogger_LineFormatAndRouting(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut, false)

	l.Info("hello %d", 1)
	l.Warn("careful")
	l.Error("broken")
	l.Debug("hidden")

	line := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} \[INFO\] hello 1\n`)
	assert.Regexp(t, line, out.String())
	assert.Contains(t, out.String(), "[WARN] careful")
	assert.NotContains(t, out.String(), "broken")
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, errOut.String(), "[ERROR] broken")
}

func TestLogger_VerboseAndFields(t *testing.T) {
	var out bytes.Buffer
	l := New(&out, &out, true)
	assert.True(t, l.Verbose())

	l.With("job", "abc").With("file", "a.mp4").Debug("probing")
	assert.Contains(t, out.String(), "[DEBUG] probing file=a.mp4 job=abc")
}
