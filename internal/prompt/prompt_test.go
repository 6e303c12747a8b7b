package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/vidsqueeze/internal/config"
	"github.com/backmassage/vidsqueeze/internal/failure"
)

func TestLine(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("first\r\nsecond\nlast"), &out)

	for _, want := range []string{"first", "second", "last"} {
		got, err := p.Line("> ")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := p.Line("> ")
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Equal(t, "> > > > ", out.String())
}

func TestLine_Bounded(t *testing.T) {
	exact := strings.Repeat("a", MaxLineBytes)
	got, err := New(strings.NewReader(exact+"\r\n"), &bytes.Buffer{}).Line("")
	require.NoError(t, err)
	assert.Len(t, got, MaxLineBytes)

	_, err = New(strings.NewReader(exact+"b\n"), &bytes.Buffer{}).Line("")
	assert.ErrorIs(t, err, ErrLineTooLong)
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))

	_, err = New(strings.NewReader(strings.Repeat("x", 3*MaxLineBytes)), &bytes.Buffer{}).Line("")
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestFloat(t *testing.T) {
	v, err := New(strings.NewReader(" 12.5 \n"), &bytes.Buffer{}).Float("")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	_, err = New(strings.NewReader("ten\n"), &bytes.Buffer{}).Float("")
	assert.ErrorIs(t, err, failure.ErrInvalidTarget)
}

func TestFill(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputPath = "given.mkv"
	var out bytes.Buffer
	require.NoError(t, New(strings.NewReader("  in.mp4 \n10\n"), &out).Fill(&cfg))

	assert.Equal(t, "in.mp4", cfg.InputPath)
	assert.Equal(t, "given.mkv", cfg.OutputPath)
	assert.Equal(t, 10.0, cfg.TargetSizeMB)
	assert.Equal(t, "Input file: Target size (MB): ", out.String())
}

func TestFill_EmptyPath(t *testing.T) {
	cfg := config.DefaultConfig()
	err := New(strings.NewReader("\n"), &bytes.Buffer{}).Fill(&cfg)
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, 2, failure.ExitCode(err))
}
