// Package notify delivers appointment lifecycle notifications to patients.
package notify

import (
	"context"
	"fmt"

	"github.com/healthsched/opd-platform/internal/appointments"
	"github.com/healthsched/opd-platform/pkg/logging"
)

// SiteNamer resolves a site id to a display name for message templates.
type SiteNamer interface {
	SiteName(ctx context.Context, siteID string) (string, error)
}

// Service formats and sends appointment event emails. It implements the
// appointments.Notifier interface.
type Service struct {
	email  EmailSender
	names  SiteNamer
	logger *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, names SiteNamer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, names: names, logger: logger}
}

// NotifyAppointment sends the patient an email describing what happened to
// their appointment. Patients without an email address are skipped.
func (s *Service) NotifyAppointment(ctx context.Context, a *appointments.Appointment, event string) error {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping")
		return nil
	}
	if a.Email == "" {
		s.logger.Debug("notify: appointment has no email, skipping",
			"appointment_id", a.ID, "event", event)
		return nil
	}

	siteName := a.SiteID
	if s.names != nil {
		if name, err := s.names.SiteName(ctx, a.SiteID); err == nil && name != "" {
			siteName = name
		}
	}

	subject, body := s.compose(a, event, siteName)
	if err := s.email.Send(ctx, EmailMessage{
		To:      a.Email,
		ToName:  a.FullName,
		Subject: subject,
		Body:    body,
	}); err != nil {
		return fmt.Errorf("notify: %s email failed: %w", event, err)
	}
	s.logger.Info("appointment notification sent",
		"appointment_id", a.ID, "event", event, "to", a.Email)
	return nil
}

func (s *Service) compose(a *appointments.Appointment, event, siteName string) (subject, body string) {
	switch event {
	case appointments.EventRescheduled:
		subject = fmt.Sprintf("Appointment rescheduled - %s", siteName)
		body = fmt.Sprintf(
			"Dear %s,\n\nYour appointment at %s has been rescheduled.\n\n"+
				"New time: %s\nWindow: %s\nDate: %s\nToken number: %d\n\n"+
				"Please arrive a few minutes early.\n",
			a.FullName, siteName, a.TimeLabel, a.Window, a.Date, a.Number)
	case appointments.EventDelayed:
		subject = fmt.Sprintf("Appointment delayed - %s", siteName)
		body = fmt.Sprintf(
			"Dear %s,\n\nDue to a schedule change at %s your appointment has "+
				"been moved.\n\nNew time: %s\nDate: %s\nToken number: %d\n\n"+
				"We apologize for the inconvenience.\n",
			a.FullName, siteName, a.TimeLabel, a.Date, a.Number)
	default:
		subject = fmt.Sprintf("Appointment confirmed - %s", siteName)
		body = fmt.Sprintf(
			"Dear %s,\n\nYour appointment at %s is confirmed.\n\n"+
				"Time: %s\nWindow: %s\nDate: %s\nToken number: %d\n\n"+
				"Please arrive a few minutes early.\n",
			a.FullName, siteName, a.TimeLabel, a.Window, a.Date, a.Number)
	}
	return subject, body
}

// Ensure interface compliance
var _ appointments.Notifier = (*Service)(nil)
