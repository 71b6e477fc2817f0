// Package display renders the prayer board on a terminal using ANSI escapes.
//
// Color follows NO_COLOR (https://no-color.org/) and FORCE_COLOR, and is
// otherwise on only when stdout is a terminal, so piped output stays plain.
package display

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	blink  = "\033[5m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	gray   = "\033[90m"
)

var enabled = shouldEnable()

func shouldEnable() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if _, ok := os.LookupEnv("FORCE_COLOR"); ok {
		return true
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetEnabled overrides the detected color state, e.g. for --json output.
func SetEnabled(b bool) {
	enabled = b
}

// Enabled reports whether color output is active.
func Enabled() bool {
	return enabled
}

// paint wraps text in the given codes when color is enabled.
func paint(text string, codes ...string) string {
	if !enabled || len(codes) == 0 {
		return text
	}
	return strings.Join(codes, "") + text + reset
}

func Bold(text string) string   { return paint(text, bold) }
func Dim(text string) string    { return paint(text, dim) }
func Red(text string) string    { return paint(text, red) }
func Green(text string) string  { return paint(text, green) }
func Yellow(text string) string { return paint(text, yellow) }
func Cyan(text string) string   { return paint(text, cyan) }
func Gray(text string) string   { return paint(text, gray) }

// Accent marks the highlighted prayer (bold cyan).
func Accent(text string) string {
	return paint(text, bold, cyan)
}

// Alert marks a prayer in its Adhan phase (bold red, blinking).
func Alert(text string) string {
	return paint(text, bold, red, blink)
}

// Label styles the countdown line by its tone.
func Label(l prayer.Label) string {
	switch l.Tone {
	case prayer.ToneAdhan:
		if l.Blink {
			return Alert(l.Text)
		}
		return paint(l.Text, bold, red)
	case prayer.ToneIqama:
		return Accent(l.Text)
	case prayer.ToneCountdown:
		return Green(l.Text)
	default:
		return Dim(l.Text)
	}
}
