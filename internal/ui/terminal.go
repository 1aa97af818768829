package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Color modes accepted by the color.ui workspace key.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor decides whether output is colored. NO_COLOR always wins,
// then CLICOLOR_FORCE, then an explicit mode, then CLICOLOR=0, then the
// TTY check.
func ShouldUseColor(mode string) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" && os.Getenv("CLICOLOR_FORCE") != "0" {
		return true
	}
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	return IsTerminal()
}

// Configure sets the lipgloss color profile for mode and reports whether
// color is on.
func Configure(mode string) bool {
	if !ShouldUseColor(mode) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return false
	}
	profile := termenv.EnvColorProfile()
	if profile == termenv.Ascii {
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
	return true
}

// Width returns the terminal width, or fallback when stdout is not a
// terminal.
func Width(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}
