// Package term holds the ANSI color state shared by logging and display.
// When colors are off every color is the empty string, so callers can
// concatenate them unconditionally.
package term

import (
	"os"
	"strings"

	xterm "golang.org/x/term"

	"github.com/backmassage/vidsqueeze/internal/config"
)

// Colors in use. Empty when disabled.
var (
	Red     string
	Green   string
	Yellow  string
	Blue    string
	Cyan    string
	Magenta string
	NC      string // Reset.
)

// Configure resolves mode against stdout and the environment and sets the
// color variables. It runs once, before the logger is built.
func Configure(mode config.ColorMode) {
	on := false
	switch mode {
	case config.ColorAlways:
		on = true
	case config.ColorAuto:
		on = IsTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "" &&
			!strings.EqualFold(os.Getenv("TERM"), "dumb")
	}
	set := func(code string) string {
		if !on {
			return ""
		}
		return code
	}
	Red, Green, Yellow = set("\033[1;91m"), set("\033[1;92m"), set("\033[1;93m")
	Blue, Cyan, Magenta = set("\033[1;94m"), set("\033[1;96m"), set("\033[1;95m")
	NC = set("\033[0m")
}

// Enabled reports whether colors are on.
func Enabled() bool { return NC != "" }

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && xterm.IsTerminal(int(f.Fd()))
}
