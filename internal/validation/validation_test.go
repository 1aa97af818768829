package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/types"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "Fix bug", "Fix bug", false},
		{"trimmed", "  Fix bug \n", "Fix bug", false},
		{"empty", "", "", true},
		{"whitespace", " \t\n", "", true},
		{"too long", strings.Repeat("x", types.MaxTitleLength+1), "", true},
		{"max length", strings.Repeat("x", types.MaxTitleLength), strings.Repeat("x", types.MaxTitleLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateTitle(tt.input)
			if tt.wantErr {
				if !errors.Is(err, errcode.ErrInvalidTitle) {
					t.Fatalf("expected InvalidTitle, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidatePriority(t *testing.T) {
	tests := []struct {
		input            types.Priority
		allowUnspecified bool
		want             types.Priority
		wantErr          bool
	}{
		{'a', false, 'a', false},
		{'b', false, 'b', false},
		{'B', false, 0, true},
		{'A', true, 0, true},
		{'z', false, 'z', false},
		{0, true, 0, false},
		{0, false, 0, true},
		{'d', true, 0, true},
		{'1', true, 0, true},
	}

	for _, tt := range tests {
		got, err := ValidatePriority(tt.input, tt.allowUnspecified)
		if tt.wantErr {
			if !errors.Is(err, errcode.ErrInvalidPriority) {
				t.Errorf("ValidatePriority(%q): expected InvalidPriority, got %v", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ValidatePriority(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
		}
	}
}

func TestParseStatusFilter(t *testing.T) {
	got, err := ParseStatusFilter("btb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != types.StatusBacklog || got[1] != types.StatusTodo {
		t.Errorf("got %v", got)
	}

	if got, err := ParseStatusFilter(""); err != nil || got != nil {
		t.Errorf("empty filter = %v, %v", got, err)
	}

	if _, err := ParseStatusFilter("bx"); !errors.Is(err, errcode.ErrInvalidStatus) {
		t.Errorf("expected InvalidStatus, got %v", err)
	}
}

func TestParsePriorityFilter(t *testing.T) {
	got, err := ParsePriorityFilter("zaz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != types.PriorityZ || got[1] != types.PriorityA {
		t.Errorf("got %v", got)
	}
	if _, err := ParsePriorityFilter("zA"); !errors.Is(err, errcode.ErrInvalidPriority) {
		t.Errorf("upper-case priority: expected InvalidPriority, got %v", err)
	}
	if _, err := ParsePriorityFilter("ay"); !errors.Is(err, errcode.ErrInvalidPriority) {
		t.Errorf("expected InvalidPriority, got %v", err)
	}
}

func TestNormalizeTicketID(t *testing.T) {
	tests := []struct {
		input    string
		want     string
		wantFull bool
		wantErr  bool
	}{
		{"01ARZ3NDEKTSV4RRFFQ69G5FAV", "01ARZ3NDEKTSV4RRFFQ69G5FAV", true, false},
		{"01arz3ndektsv4rrffq69g5fav", "01ARZ3NDEKTSV4RRFFQ69G5FAV", true, false},
		{" 01ARZ ", "01ARZ", false, false},
		{"01A", "", false, true},
		{"01ARZ3NDEKTSV4RRFFQ69G5FAVX", "", false, true},
		{"01ARZ3NDEKTSV4RRFFQ69G5FAU", "", false, true}, // U is not Crockford
		{"81ARZ3NDEKTSV4RRFFQ69G5FAV", "", false, true}, // overflow
		{"tx-a3f8", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, full, err := NormalizeTicketID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, errcode.ErrInvalidTicketID) {
					t.Fatalf("expected InvalidTicketID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || full != tt.wantFull {
				t.Errorf("got %q (full=%v), want %q (full=%v)", got, full, tt.want, tt.wantFull)
			}
		})
	}
}

func TestValidateRemote(t *testing.T) {
	valid := []string{"origin", "up-stream", "a", "mirror_2", "v1.0"}
	for _, name := range valid {
		if err := ValidateRemote(name, "https://example.com/repo.git"); err != nil {
			t.Errorf("ValidateRemote(%q): %v", name, err)
		}
	}

	invalid := []string{"", "-origin", ".hidden", "has space", "a/b", "x..y", "name.lock", strings.Repeat("r", 65)}
	for _, name := range invalid {
		if err := ValidateRemote(name, "u"); !errors.Is(err, errcode.ErrRemoteInvalidName) {
			t.Errorf("ValidateRemote(%q): expected RemoteInvalidName, got %v", name, err)
		}
	}

	if err := ValidateRemote("origin", "  "); !errors.Is(err, errcode.ErrRemoteInvalidName) {
		t.Errorf("empty url: expected RemoteInvalidName, got %v", err)
	}
}

func TestValidateProjectName(t *testing.T) {
	valid := []string{"main", "feature/login", "release-1.2", "v2_backlog"}
	for _, name := range valid {
		if err := ValidateProjectName(name); err != nil {
			t.Errorf("ValidateProjectName(%q): %v", name, err)
		}
	}

	invalid := []string{"", "@", "-x", "a..b", "a b", "a:b", "ends.", "x.lock", "/lead", "trail/", "a//b", ".hidden", "a/.b", "a@{b"}
	for _, name := range invalid {
		if err := ValidateProjectName(name); !errors.Is(err, errcode.ErrSwitchFailed) {
			t.Errorf("ValidateProjectName(%q): expected SwitchFailed, got %v", name, err)
		}
	}
}
