// Package appointments implements the slot allocation and queue management
// core: booking with gap-filling time assignment, duplicate prevention,
// sequential token issue, reschedule, and bulk delay propagation.
package appointments

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Practitioner identifies the queue bucket an appointment belongs to.
// The zero value is the shared "unassigned" bucket, distinct from every
// named practitioner.
type Practitioner struct {
	id string
}

// Unassigned returns the shared queue bucket with no named practitioner.
func Unassigned() Practitioner {
	return Practitioner{}
}

// Assigned returns the queue bucket for a named practitioner.
func Assigned(id string) Practitioner {
	return Practitioner{id: strings.TrimSpace(id)}
}

// ParsePractitioner interprets request input; empty and the literal "null"
// both mean unassigned.
func ParsePractitioner(raw string) Practitioner {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return Unassigned()
	}
	return Practitioner{id: raw}
}

// IsAssigned reports whether this is a named practitioner bucket.
func (p Practitioner) IsAssigned() bool {
	return p.id != ""
}

// ID returns the practitioner id and whether one is assigned.
func (p Practitioner) ID() (string, bool) {
	return p.id, p.id != ""
}

// QueueKey is the stable partition-key fragment for this bucket.
func (p Practitioner) QueueKey() string {
	if p.id == "" {
		return "unassigned"
	}
	return "practitioner:" + p.id
}

// MarshalJSON renders the unassigned bucket as JSON null.
func (p Practitioner) MarshalJSON() ([]byte, error) {
	if p.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(p.id)
}

// UnmarshalJSON accepts null or a practitioner id string.
func (p *Practitioner) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Unassigned()
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*p = ParsePractitioner(id)
	return nil
}

// Appointment is one patient's place in a site's daily queue.
type Appointment struct {
	ID            string       `json:"id"`
	SiteID        string       `json:"siteId"`
	FullName      string       `json:"fullName"`
	ContactNumber string       `json:"contactNumber"`
	Email         string       `json:"email,omitempty"`
	Date          string       `json:"appointmentDate"` // site-local YYYY-MM-DD
	Window        string       `json:"preferredWindow"` // canonical "H:MM AM - H:MM PM"
	TimeLabel     string       `json:"appointmentTime"` // formatted "H:MM AM/PM"
	TimeMinutes   int          `json:"-"`
	Number        int64        `json:"appointmentNumber"`
	Practitioner  Practitioner `json:"assignedDoctor"`
	Reason        string       `json:"reason,omitempty"`
	Diagnosis     string       `json:"diagnosis,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Prescription is the optional payload a practitioner attaches after a visit.
type Prescription struct {
	Data        []byte `json:"data,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Diagnosis   string `json:"diagnosis,omitempty"`
}

// BookingRequest is the request body for creating an appointment.
type BookingRequest struct {
	SiteID          string `json:"-"`
	FullName        string `json:"fullName"`
	ContactNumber   string `json:"contactNumber"`
	Email           string `json:"email"`
	PreferredWindow string `json:"preferredWindow"`
	PractitionerID  string `json:"practitionerId"`
	Reason          string `json:"reason"`
}

var siteIDRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// Validate checks the caller-supplied fields and canonicalizes them in place.
// Window resolution happens separately because it needs the codec.
func (r *BookingRequest) Validate() error {
	r.FullName = strings.TrimSpace(r.FullName)
	if r.FullName == "" {
		return ErrNameRequired
	}
	if !siteIDRe.MatchString(r.SiteID) {
		return ErrInvalidSiteID
	}
	r.ContactNumber = CleanPhone(r.ContactNumber)
	r.Email = strings.TrimSpace(r.Email)
	if strings.TrimSpace(r.PreferredWindow) == "" {
		return ErrWindowRequired
	}
	return nil
}

var nonDigitRe = regexp.MustCompile(`\D`)

// CleanPhone canonicalizes a contact number to its last ten digits.
func CleanPhone(raw string) string {
	digits := nonDigitRe.ReplaceAllString(raw, "")
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}
