package config

import (
	"strings"
	"testing"

	"github.com/dgnsrekt/plurk-comet/internal/notify"
)

func validConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:       "https://www.plurk.com",
			TimeoutSec:    30,
			RetryCount:    3,
			RetryDelay:    2,
			RatePerSecond: 2,
		},
		Comet: CometConfig{
			KnockURL:         "https://www.plurk.com/_comet/generic",
			PollTimeoutSec:   120,
			KnockTimeoutSec:  10,
			KnockEvery:       10,
			RetryDelayMs:     1000,
			RetryMaxDelaySec: 30,
		},
		Logging: LoggingConfig{Level: "info"},
		Notify:  notify.Config{Priority: "default"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no error for valid config, got: %v", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.API.BaseURL = "www.plurk.com"
	cfg.Comet.KnockURL = "ftp://plurk.com/_comet/generic"
	cfg.Comet.RetryDelayMs = -1
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}

	verrs, ok := err.(*ValidationErrors)
	if !ok {
		t.Fatalf("expected *ValidationErrors, got %T", err)
	}
	if len(verrs.InvalidFields) != 4 {
		t.Errorf("expected 4 invalid fields, got %d: %v", len(verrs.InvalidFields), verrs.InvalidFields)
	}

	msg := err.Error()
	for _, key := range []string{"api.base_url", "comet.knock_url", "comet.retry_delay_ms", "logging.level"} {
		if !strings.Contains(msg, key) {
			t.Errorf("error should mention %s, got: %v", key, msg)
		}
	}
}

func TestValidate_LoggingDirectoryRequiredWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Enabled = true

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "logging.directory") {
		t.Errorf("expected logging.directory error, got: %v", err)
	}
}

func TestValidate_NotifyPriority(t *testing.T) {
	cfg := validConfig()
	cfg.Notify = notify.Config{Enabled: true, Topic: "plurk", Priority: "asap"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid priority")
	}
	if !strings.Contains(err.Error(), "asap") {
		t.Errorf("error should mention the priority, got: %v", err)
	}
}
