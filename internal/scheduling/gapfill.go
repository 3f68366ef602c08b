// Package scheduling holds the pure time-assignment algorithms: the
// gap-filling booking scan, the tail-append reschedule heuristic, and the
// delay shift rule. All inputs are minutes since midnight; "now" is always
// an explicit argument so callers control the clock.
package scheduling

import (
	"errors"

	"github.com/healthsched/opd-platform/internal/slotwindow"
)

// RoundingStep is the granularity assigned times snap to at booking.
const RoundingStep = 5

// ErrNoCapacity is returned when no assignable time remains before the
// window closes. Callers surface it with the window's close label.
var ErrNoCapacity = errors.New("scheduling: no capacity before window close")

// Params carries the tunable spacing constants.
type Params struct {
	// ArrivalBuffer is the minimum lead time between booking and the
	// assigned time-of-day.
	ArrivalBuffer int
	// MinSpacing is the minimum distance between two assigned times in
	// the same queue.
	MinSpacing int
}

// DefaultParams mirrors the clinic defaults: 20-minute buffer and spacing.
func DefaultParams() Params {
	return Params{ArrivalBuffer: 20, MinSpacing: 20}
}

// GapFill computes the earliest assignable time inside the window given the
// occupied times of the same (site, date, window, practitioner) queue,
// sorted ascending. It walks the queue once: a candidate survives when a
// full MinSpacing fits before the next occupant; otherwise it jumps past
// that occupant. The first open gap wins, never first-fit-at-end.
func GapFill(w slotwindow.Window, occupied []int, now int, p Params) (int, error) {
	candidate := w.Start
	if floor := now + p.ArrivalBuffer; floor > candidate {
		candidate = floor
	}
	candidate = roundUp(candidate, RoundingStep)

	for _, t := range occupied {
		if candidate+p.MinSpacing <= t {
			// Gap before this occupant fits the new appointment.
			break
		}
		if candidate < t+p.MinSpacing {
			candidate = t + p.MinSpacing
		}
	}

	if candidate >= w.End {
		return 0, ErrNoCapacity
	}
	return candidate, nil
}

// TailAppend computes the rescheduled time for an appointment moving into
// the window: after the last occupant when the window has any, else at the
// window start, floored at now plus spacing. Unlike GapFill it never scans
// for interior gaps; an earlier cancellation does not get reclaimed.
func TailAppend(w slotwindow.Window, occupied []int, now int, p Params) (int, error) {
	next := w.Start
	if len(occupied) > 0 {
		next = occupied[len(occupied)-1] + p.MinSpacing
	}
	if floor := now + p.MinSpacing; floor > next {
		next = floor
	}

	if next >= w.End {
		return 0, ErrNoCapacity
	}
	return next, nil
}

func roundUp(v, step int) int {
	if r := v % step; r != 0 {
		return v + step - r
	}
	return v
}
