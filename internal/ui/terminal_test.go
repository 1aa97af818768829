package ui

import (
	"os"
	"testing"

	"github.com/tixhq/tix/internal/types"
)

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		cliColor      string
		cliColorForce string
		mode          string
		want          bool
	}{
		{name: "NO_COLOR disables color", noColor: "1", mode: ColorAlways, want: false},
		{name: "CLICOLOR_FORCE enables color in non-TTY", cliColorForce: "1", want: true},
		{name: "NO_COLOR beats CLICOLOR_FORCE", noColor: "1", cliColorForce: "1", want: false},
		{name: "always enables color", mode: ColorAlways, want: true},
		{name: "never disables color", mode: ColorNever, cliColor: "1", want: false},
		{name: "CLICOLOR=0 disables auto", mode: ColorAuto, cliColor: "0", want: false},
		{name: "auto off when not a terminal", mode: ColorAuto, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"NO_COLOR", "CLICOLOR", "CLICOLOR_FORCE"} {
				t.Setenv(k, "")
				os.Unsetenv(k)
			}
			if tt.noColor != "" {
				t.Setenv("NO_COLOR", tt.noColor)
			}
			if tt.cliColor != "" {
				t.Setenv("CLICOLOR", tt.cliColor)
			}
			if tt.cliColorForce != "" {
				t.Setenv("CLICOLOR_FORCE", tt.cliColorForce)
			}
			if tt.mode == ColorAuto && IsTerminal() {
				t.Skip("stdout is a terminal")
			}
			if got := ShouldUseColor(tt.mode); got != tt.want {
				t.Errorf("ShouldUseColor(%q) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestRenderWithoutColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	Configure(ColorAlways)

	if got := RenderStatus(types.StatusDoing); got != "doing" {
		t.Errorf("RenderStatus = %q, want plain text", got)
	}
	if got := RenderPriority(types.PriorityA); got != "a" {
		t.Errorf("RenderPriority = %q, want plain text", got)
	}
	if got := RenderID("01JABCDEFGHJKMNPQRSTVWXYZ0", 8); got != "01JABCDE" {
		t.Errorf("RenderID = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"too long title", 8, "too lon…"},
		{"ünïcödé", 4, "ünï…"},
		{"x", 0, "x"},
		{"ab", 1, "…"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
