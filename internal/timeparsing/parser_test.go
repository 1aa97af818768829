package timeparsing

import (
	"errors"
	"testing"
	"time"
)

func TestParseCompactDuration(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "+6h", want: time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)},
		{input: "-1d", want: time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)},
		{input: "-2w", want: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		{input: "3m", want: time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)},
		{input: "+1y", want: time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)},
		{input: "+365d", want: time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)},
		{input: "6h+", wantErr: true},
		{input: "++1d", wantErr: true},
		{input: "1x", wantErr: true},
		{input: "", wantErr: true},
		{input: "+ 6h", wantErr: true},
		{input: "2025-01-15", wantErr: true},
		{input: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCompactDuration(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCompactDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseCompactDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if IsCompactDuration(tt.input) == tt.wantErr {
				t.Errorf("IsCompactDuration(%q) disagrees with ParseCompactDuration", tt.input)
			}
		})
	}
}

func TestParseCompactDurationLeapYear(t *testing.T) {
	got, err := ParseCompactDuration("+1d", time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// Wednesday, January 15, 2025, 10:00 local.
var reference = time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

func TestParseNaturalLanguage(t *testing.T) {
	tests := []struct {
		input   string
		wantDay int
		wantErr bool
	}{
		{input: "tomorrow", wantDay: 16},
		{input: "yesterday", wantDay: 14},
		{input: "next monday", wantDay: 20},
		{input: "3 days ago", wantDay: 12},
		{input: "not a date at all", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNaturalLanguage(tt.input, reference)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNaturalLanguage(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Year() != 2025 || got.Month() != time.January || got.Day() != tt.wantDay {
				t.Errorf("ParseNaturalLanguage(%q) = %v, want Jan %d 2025", tt.input, got, tt.wantDay)
			}
		})
	}
}

func TestParseRelativeTimeLayers(t *testing.T) {
	got, err := ParseRelativeTime("+1d", reference)
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if want := reference.AddDate(0, 0, 1); !got.Equal(want) {
		t.Errorf("compact duration should keep the time of day: got %v, want %v", got, want)
	}

	got, err = ParseRelativeTime("2025-02-01", reference)
	if err != nil {
		t.Fatalf("date-only: %v", err)
	}
	if got.Month() != time.February || got.Day() != 1 || got.Hour() != 0 {
		t.Errorf("date-only = %v, want Feb 1 00:00", got)
	}

	got, err = ParseRelativeTime("2025-03-15T14:30:00Z", reference)
	if err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if want := time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("rfc3339 = %v, want %v", got, want)
	}

	if _, err := ParseRelativeTime("not-a-date", reference); !errors.Is(err, ErrUnrecognized) {
		t.Errorf("expected ErrUnrecognized, got %v", err)
	}
}

func TestParseSinceCountsBackwards(t *testing.T) {
	for _, input := range []string{"2d", "-2d", " 2d "} {
		got, err := ParseSince(input, reference)
		if err != nil {
			t.Fatalf("ParseSince(%q): %v", input, err)
		}
		if want := reference.AddDate(0, 0, -2); !got.Equal(want) {
			t.Errorf("ParseSince(%q) = %v, want %v", input, got, want)
		}
	}

	got, err := ParseSince("+1h", reference)
	if err != nil {
		t.Fatalf("ParseSince(+1h): %v", err)
	}
	if !got.After(reference) {
		t.Errorf("explicit + should stay in the future, got %v", got)
	}
}
