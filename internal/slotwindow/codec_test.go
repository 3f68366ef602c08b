package slotwindow

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "9:00 AM - 12:00 PM", "9:00 AM - 12:00 PM"},
		{"lowercase with to", "9:00 am to 12:00 pm", "9:00 AM - 12:00 PM"},
		{"dotted meridiem", "9:00 a.m. - 12:00 p.m.", "9:00 AM - 12:00 PM"},
		{"bare hyphen", "9:00 AM-12:00 PM", "9:00 AM - 12:00 PM"},
		{"extra whitespace", "  9:00  AM   -  12:00 PM ", "9:00 AM - 12:00 PM"},
		{"glued meridiem", "3:00pm - 6:00pm", "3:00 PM - 6:00 PM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		label   string
		want    int
		wantErr bool
	}{
		{"12:00 AM", 0, false},
		{"12:30 AM", 30, false},
		{"9:00 AM", 540, false},
		{"12:00 PM", 720, false},
		{"1:05 PM", 785, false},
		{"11:59 PM", 1439, false},
		{"13:00 PM", 0, true},
		{"9:60 AM", 0, true},
		{"nine AM", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseClock(tt.label)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q) expected error", tt.label)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q) unexpected error: %v", tt.label, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "12:00 AM"},
		{30, "12:30 AM"},
		{540, "9:00 AM"},
		{719, "11:59 AM"},
		{720, "12:00 PM"},
		{785, "1:05 PM"},
		{1439, "11:59 PM"},
	}

	for _, tt := range tests {
		if got := FormatClock(tt.minutes); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("9:00 am to 12:00 pm")
	if err != nil {
		t.Fatalf("ParseWindow: %v", err)
	}
	if w.Start != 540 || w.End != 720 {
		t.Errorf("window = [%d,%d), want [540,720)", w.Start, w.End)
	}
	if w.Label() != "9:00 AM - 12:00 PM" {
		t.Errorf("Label() = %q", w.Label())
	}
	if !w.Contains(540) || w.Contains(720) || w.Contains(539) {
		t.Error("Contains should be half-open [start, end)")
	}
}

func TestParseWindowErrors(t *testing.T) {
	for _, raw := range []string{"", "9:00 AM", "morning shift", "12:00 PM - 9:00 AM"} {
		if _, err := ParseWindow(raw); err == nil {
			t.Errorf("ParseWindow(%q) expected error", raw)
		}
	}

	if _, err := ParseWindow("nope"); !errors.Is(err, ErrBadFormat) {
		t.Errorf("expected ErrBadFormat, got %v", err)
	}
	if _, err := ParseWindow("12:00 PM - 9:00 AM"); !errors.Is(err, ErrEmptyWindow) {
		t.Errorf("expected ErrEmptyWindow, got %v", err)
	}
}

// format(parse(s)) == canonicalize(s) for every valid [a, b) pair boundary;
// exercised on a grid rather than the full space.
func TestRoundTrip(t *testing.T) {
	for start := 0; start < MinutesPerDay; start += 95 {
		for end := start + 5; end < MinutesPerDay; end += 250 {
			label := FormatPair(start, end)
			w, err := ParseWindow(label)
			if err != nil {
				t.Fatalf("ParseWindow(%q): %v", label, err)
			}
			if w.Start != start || w.End != end {
				t.Fatalf("round-trip %q → [%d,%d), want [%d,%d)", label, w.Start, w.End, start, end)
			}
			if w.Label() != label {
				t.Fatalf("label round-trip: %q → %q", label, w.Label())
			}
		}
	}
}
