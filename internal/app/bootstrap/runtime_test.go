package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/healthsched/opd-platform/internal/config"
	"github.com/healthsched/opd-platform/internal/notify"
	"github.com/healthsched/opd-platform/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "  "}
	if client := BuildRedisClient(context.Background(), cfg, nil, false); client != nil {
		t.Fatal("expected nil client when addr is blank")
	}
}

func TestBuildRedisClientVerifyPing(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	if client == nil {
		t.Fatal("expected client for reachable redis")
	}
	defer func() { _ = client.Close() }()
}

func TestBuildRedisClientVerifyFailureReturnsNil(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	if client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); client != nil {
		t.Fatal("expected nil client when ping fails")
	}
}

func TestBuildEmailSenderFallsBackToStub(t *testing.T) {
	logger := logging.New("error")

	cfg := &appconfig.Config{EmailProvider: "sendgrid"} // no API key
	if _, ok := BuildEmailSender(context.Background(), cfg, logger).(*notify.StubEmailSender); !ok {
		t.Fatal("expected stub sender when sendgrid key missing")
	}

	cfg = &appconfig.Config{EmailProvider: "stub"}
	if _, ok := BuildEmailSender(context.Background(), cfg, logger).(*notify.StubEmailSender); !ok {
		t.Fatal("expected stub sender for stub provider")
	}
}

func TestBuildEmailSenderSendGrid(t *testing.T) {
	cfg := &appconfig.Config{
		EmailProvider:     "sendgrid",
		SendGridAPIKey:    "SG.test",
		SendGridFromEmail: "noreply@clinic.example",
	}
	if _, ok := BuildEmailSender(context.Background(), cfg, logging.New("error")).(*notify.SendGridSender); !ok {
		t.Fatal("expected sendgrid sender when configured")
	}
}
