package slotwindow

import "fmt"

// Generated is a window produced by partitioning the operating day,
// numbered from 1 for display.
type Generated struct {
	Window   Window `json:"-"`
	Number   int    `json:"number"`
	Label    string `json:"label"`
	Bookable bool   `json:"bookable"`
}

// Generate partitions [open, close) into consecutive windows of the given
// duration, truncating the final window at close. A window is bookable iff
// its end is strictly after nowMinutes. Numbering is stable for a fixed
// open/close pair; only the bookable flags change as the day advances.
func Generate(openLabel, closeLabel string, durationMinutes, nowMinutes int) ([]Generated, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("slotwindow: duration must be positive, got %d", durationMinutes)
	}

	open, err := ParseClock(Normalize(openLabel))
	if err != nil {
		return nil, err
	}
	closeAt, err := ParseClock(Normalize(closeLabel))
	if err != nil {
		return nil, err
	}
	if closeAt <= open {
		return nil, fmt.Errorf("%w: %q - %q", ErrEmptyWindow, openLabel, closeLabel)
	}

	var out []Generated
	number := 1
	for start := open; start < closeAt; start += durationMinutes {
		end := start + durationMinutes
		if end > closeAt {
			end = closeAt
		}
		w := Window{
			Start:      start,
			End:        end,
			StartLabel: FormatClock(start),
			EndLabel:   FormatClock(end),
		}
		out = append(out, Generated{
			Window:   w,
			Number:   number,
			Label:    w.Label(),
			Bookable: end > nowMinutes,
		})
		number++
	}
	return out, nil
}
