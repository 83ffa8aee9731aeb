package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HTTP.Port != defaultPort {
		t.Fatalf("expected default port %d, got %d", defaultPort, cfg.HTTP.Port)
	}
	if cfg.Capture.MaxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("expected default body cap %d, got %d", defaultMaxBodyBytes, cfg.Capture.MaxBodyBytes)
	}
	if !cfg.Capture.AutoCreateInbox {
		t.Fatal("expected auto-create inbox to default to true")
	}
	if cfg.Delivery.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("expected default request timeout %v, got %v", defaultRequestTimeout, cfg.Delivery.RequestTimeout)
	}
	if cfg.Logging.Level != defaultLoggingLevel {
		t.Fatalf("expected default log level %q, got %q", defaultLoggingLevel, cfg.Logging.Level)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CAPTURE_MAX_BODY_BYTES", "1024")
	t.Setenv("CAPTURE_AUTO_CREATE_INBOX", "false")
	t.Setenv("WEBHOOK_URL", "https://example.com/hook/abc")
	t.Setenv("WEBHOOK_REQUEST_TIMEOUT", "3s")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HTTP.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Capture.MaxBodyBytes != 1024 {
		t.Fatalf("expected body cap 1024, got %d", cfg.Capture.MaxBodyBytes)
	}
	if cfg.Capture.AutoCreateInbox {
		t.Fatal("expected auto-create inbox disabled")
	}
	if cfg.Delivery.WebhookURL != "https://example.com/hook/abc" {
		t.Fatalf("unexpected webhook URL %q", cfg.Delivery.WebhookURL)
	}
	if cfg.Delivery.RequestTimeout != 3*time.Second {
		t.Fatalf("expected 3s request timeout, got %v", cfg.Delivery.RequestTimeout)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{"SERVER_PORT", "not-a-port"},
		{"SERVER_PORT", "70000"},
		{"SERVER_READ_TIMEOUT", "soon"},
		{"WEBHOOK_INITIAL_BACKOFF", "later"},
	}

	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}
