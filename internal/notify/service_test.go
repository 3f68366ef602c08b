package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/healthsched/opd-platform/internal/appointments"
)

type captureSender struct {
	sent []EmailMessage
	fail bool
}

func (c *captureSender) Send(ctx context.Context, msg EmailMessage) error {
	c.sent = append(c.sent, msg)
	if c.fail {
		return errors.New("smtp down")
	}
	return nil
}

type staticNamer struct{ name string }

func (s staticNamer) SiteName(ctx context.Context, siteID string) (string, error) {
	return s.name, nil
}

func testAppointment(email string) *appointments.Appointment {
	return &appointments.Appointment{
		ID:        "a1",
		SiteID:    "clinic-1",
		FullName:  "Asha Rao",
		Email:     email,
		Date:      "2026-08-29",
		Window:    "9:00 AM - 12:00 PM",
		TimeLabel: "9:25 AM",
		Number:    41,
	}
}

func TestNotifyBookedSendsConfirmation(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, staticNamer{name: "City OPD"}, nil)

	err := svc.NotifyAppointment(context.Background(), testAppointment("asha@example.com"), appointments.EventBooked)
	if err != nil {
		t.Fatalf("NotifyAppointment returned error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "asha@example.com" {
		t.Fatalf("unexpected recipient %q", msg.To)
	}
	if !strings.Contains(msg.Subject, "confirmed") || !strings.Contains(msg.Subject, "City OPD") {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "9:25 AM") || !strings.Contains(msg.Body, "41") {
		t.Fatalf("body missing time or token: %q", msg.Body)
	}
}

func TestNotifyDelayedSubject(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, nil, nil)

	err := svc.NotifyAppointment(context.Background(), testAppointment("asha@example.com"), appointments.EventDelayed)
	if err != nil {
		t.Fatalf("NotifyAppointment returned error: %v", err)
	}
	if !strings.Contains(sender.sent[0].Subject, "delayed") {
		t.Fatalf("unexpected subject %q", sender.sent[0].Subject)
	}
}

func TestNotifySkipsWithoutEmail(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, nil, nil)

	err := svc.NotifyAppointment(context.Background(), testAppointment(""), appointments.EventBooked)
	if err != nil {
		t.Fatalf("NotifyAppointment returned error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no email for a patient without an address")
	}
}

func TestNotifySurfacesSendFailure(t *testing.T) {
	sender := &captureSender{fail: true}
	svc := NewService(sender, nil, nil)

	err := svc.NotifyAppointment(context.Background(), testAppointment("asha@example.com"), appointments.EventBooked)
	if err == nil {
		t.Fatalf("expected error when the sender fails")
	}
}

func TestNotifyNilSenderIsNoop(t *testing.T) {
	svc := NewService(nil, nil, nil)
	if err := svc.NotifyAppointment(context.Background(), testAppointment("asha@example.com"), appointments.EventBooked); err != nil {
		t.Fatalf("nil sender must be a no-op, got %v", err)
	}
}
