// Package slotwindow converts between human time-range labels
// ("9:00 AM - 12:00 PM") and minute-of-day intervals, and partitions an
// operating day into fixed-duration bookable windows.
package slotwindow

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MinutesPerDay is the number of minutes in one calendar day.
const MinutesPerDay = 24 * 60

var (
	// ErrBadFormat is returned when a window or clock label cannot be parsed.
	ErrBadFormat = errors.New("slotwindow: invalid time format")

	// ErrEmptyWindow is returned when a window's end does not follow its start.
	ErrEmptyWindow = errors.New("slotwindow: window end must be after start")
)

// Window is a half-open [Start, End) interval in minutes since midnight,
// carrying the canonical display labels it was parsed from.
type Window struct {
	Start      int
	End        int
	StartLabel string
	EndLabel   string
}

// Label returns the canonical "H:MM AM - H:MM PM" form.
func (w Window) Label() string {
	return w.StartLabel + " - " + w.EndLabel
}

// Contains reports whether a minute-of-day falls inside the window.
func (w Window) Contains(minute int) bool {
	return minute >= w.Start && minute < w.End
}

var (
	rangeSepRe = regexp.MustCompile(`\s+to\s+`)
	meridiemRe = regexp.MustCompile(`([ap])\.?m\.?`)
	spacesRe   = regexp.MustCompile(`\s+`)
	clockRe    = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*(AM|PM)$`)
)

// Normalize canonicalizes free-form window text: lower-cases, rewrites
// "to" to "-", expands a.m./p.m. variants, spaces out a bare hyphen,
// collapses whitespace, and upper-cases the result.
func Normalize(raw string) string {
	clean := strings.ToLower(raw)
	clean = rangeSepRe.ReplaceAllString(clean, " - ")
	clean = meridiemRe.ReplaceAllString(clean, " ${1}M")
	if strings.Contains(clean, "-") && !strings.Contains(clean, " - ") {
		clean = strings.Replace(clean, "-", " - ", 1)
	}
	clean = spacesRe.ReplaceAllString(clean, " ")
	return strings.ToUpper(strings.TrimSpace(clean))
}

// ParseClock converts a canonical "H:MM AM/PM" label to minutes since midnight.
func ParseClock(label string) (int, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrBadFormat, label)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrBadFormat, label)
	}

	if m[3] == "PM" && hour != 12 {
		hour += 12
	}
	if m[3] == "AM" && hour == 12 {
		hour = 0
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as "H:MM AM/PM".
// Midnight is "12:00 AM"; anything in [720, 1440) is PM.
func FormatClock(total int) string {
	total = ((total % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	hour := total / 60
	minute := total % 60

	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	hour = hour % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, period)
}

// ParseWindow normalizes raw text and parses it into a Window.
// The text must canonicalize to "H:MM AM - H:MM PM".
func ParseWindow(raw string) (Window, error) {
	clean := Normalize(raw)
	parts := strings.Split(clean, " - ")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("%w: %q", ErrBadFormat, raw)
	}

	startLabel := strings.TrimSpace(parts[0])
	endLabel := strings.TrimSpace(parts[1])

	start, err := ParseClock(startLabel)
	if err != nil {
		return Window{}, err
	}
	end, err := ParseClock(endLabel)
	if err != nil {
		return Window{}, err
	}
	if end <= start {
		return Window{}, fmt.Errorf("%w: %q", ErrEmptyWindow, raw)
	}

	return Window{
		Start:      start,
		End:        end,
		StartLabel: FormatClock(start),
		EndLabel:   FormatClock(end),
	}, nil
}

// FormatPair builds the canonical label for a [start, end) minute pair.
func FormatPair(start, end int) string {
	return FormatClock(start) + " - " + FormatClock(end)
}
