package notify

import (
	"context"
	"testing"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "OPD Booking" {
		t.Errorf("expected default from name 'OPD Booking', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{client: nil, logger: nil}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test",
		Body:    "Test body",
	})

	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestNewSESSender_NilWithoutClient(t *testing.T) {
	if sender := NewSESSender(nil, SESConfig{FromEmail: "test@example.com"}, nil); sender != nil {
		t.Error("expected nil sender when SES client is nil")
	}
}

func TestStubEmailSender(t *testing.T) {
	sender := NewStubEmailSender(nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "a@b.c"}); err != nil {
		t.Errorf("stub sender must never fail: %v", err)
	}
}
