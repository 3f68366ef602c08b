package appointments

import (
	"errors"
	"fmt"
)

var (
	// ErrNameRequired is returned when the patient name is missing.
	ErrNameRequired = errors.New("full name is required")

	// ErrInvalidSiteID is returned when the site id is malformed.
	ErrInvalidSiteID = errors.New("invalid site id")

	// ErrWindowRequired is returned when no window was supplied.
	ErrWindowRequired = errors.New("preferred window is required")

	// ErrWindowElapsed is returned when the chosen window's end has
	// already passed at booking time.
	ErrWindowElapsed = errors.New("selected window has already passed")

	// ErrAppointmentNotFound is returned for unknown appointment ids.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrDelayNotAllowed is returned when the delay increment is not one
	// of the enumerated choices.
	ErrDelayNotAllowed = errors.New("delay must be one of the allowed increments")
)

// DuplicateBookingError reports that the patient already holds an
// appointment at this site today, including its time so the caller can
// relay it.
type DuplicateBookingError struct {
	FullName     string
	ExistingTime string
}

func (e *DuplicateBookingError) Error() string {
	return fmt.Sprintf("duplicate booking: %q already has an appointment today at %s", e.FullName, e.ExistingTime)
}

// SlotFullError reports that no assignable time remains before the window
// closes. CloseTime lets the caller suggest picking another window.
type SlotFullError struct {
	Window    string
	CloseTime string
}

func (e *SlotFullError) Error() string {
	return fmt.Sprintf("slot full: no available time in %s before %s", e.Window, e.CloseTime)
}
