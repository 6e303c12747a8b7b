// Package prompt reads the values a single job needs from an interactive
// terminal when they were not given on the command line.
package prompt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/backmassage/vidsqueeze/internal/config"
	"github.com/backmassage/vidsqueeze/internal/failure"
)

// MaxLineBytes bounds a single answer, excluding the line terminator.
const MaxLineBytes = 4096

var (
	ErrLineTooLong = errors.New("input line too long")
	ErrNoInput     = errors.New("no input")
	ErrEmpty       = errors.New("empty answer")
)

// Prompter writes questions to w and reads one line per answer from r.
type Prompter struct {
	r *bufio.Reader
	w io.Writer
}

// New returns a Prompter over r and w.
func New(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{r: bufio.NewReaderSize(r, MaxLineBytes+2), w: w}
}

// Interactive reports whether f is a terminal.
func Interactive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Line prints label and returns the next line with its terminator removed.
// A line longer than MaxLineBytes is an error, never truncated.
func (p *Prompter) Line(label string) (string, error) {
	if _, err := fmt.Fprint(p.w, label); err != nil {
		return "", err
	}
	line, err := p.r.ReadSlice('\n')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return "", failure.Validation(ErrLineTooLong, "more than %d bytes", MaxLineBytes)
	case errors.Is(err, io.EOF):
		if len(line) == 0 {
			return "", failure.Validation(ErrNoInput, "end of input at %q", strings.TrimSpace(label))
		}
	case err != nil:
		return "", failure.New(failure.KindIO, "read answer", err)
	}
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) > MaxLineBytes {
		return "", failure.Validation(ErrLineTooLong, "more than %d bytes", MaxLineBytes)
	}
	return string(line), nil
}

// Path asks for a non-empty path. Surrounding blanks are removed.
func (p *Prompter) Path(label string) (string, error) {
	s, err := p.Line(label)
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", failure.Validation(ErrEmpty, "%s", strings.TrimSpace(label))
	}
	return s, nil
}

// Float asks for a finite positive number.
func (p *Prompter) Float(label string) (float64, error) {
	s, err := p.Line(label)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, failure.Validation(failure.ErrInvalidTarget, "%q is not a number", strings.TrimSpace(s))
	}
	return v, nil
}

// Fill prompts for whichever of input path, output path and target size
// cfg is missing, in that order.
func (p *Prompter) Fill(cfg *config.Config) error {
	var err error
	if cfg.InputPath == "" {
		if cfg.InputPath, err = p.Path("Input file: "); err != nil {
			return err
		}
	}
	if cfg.OutputPath == "" {
		if cfg.OutputPath, err = p.Path("Output file: "); err != nil {
			return err
		}
	}
	if cfg.TargetSizeMB == 0 {
		if cfg.TargetSizeMB, err = p.Float("Target size (MB): "); err != nil {
			return err
		}
	}
	return nil
}
