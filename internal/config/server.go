package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type ServerConfig struct {
	Port          string
	ChannelPrefix string
	// Hold is how long a /comet request waits for events before it answers
	// with an empty batch.
	Hold time.Duration
	// DemoInterval publishes a synthetic plurk on every channel at this
	// rate. Zero disables the demo streamer.
	DemoInterval time.Duration
	// ChannelTTL drops channels that were neither polled nor knocked for
	// this long.
	ChannelTTL time.Duration
	UserID     int64
}

func LoadServerConfig() (*ServerConfig, error) {
	hold, err := time.ParseDuration(getEnvOrDefault("FAKE_HOLD", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FAKE_HOLD: %w", err)
	}

	demoInterval, err := time.ParseDuration(getEnvOrDefault("FAKE_DEMO_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FAKE_DEMO_INTERVAL: %w", err)
	}

	ttl, err := time.ParseDuration(getEnvOrDefault("FAKE_CHANNEL_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid FAKE_CHANNEL_TTL: %w", err)
	}

	userID, err := strconv.ParseInt(getEnvOrDefault("FAKE_USER_ID", "1"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid FAKE_USER_ID: %w", err)
	}

	cfg := &ServerConfig{
		Port:          getEnvOrDefault("PORT", "8080"),
		ChannelPrefix: getEnvOrDefault("FAKE_CHANNEL_PREFIX", "generic-4"),
		Hold:          hold,
		DemoInterval:  demoInterval,
		ChannelTTL:    ttl,
		UserID:        userID,
	}

	// Validate
	if cfg.Hold <= 0 {
		return nil, fmt.Errorf("invalid FAKE_HOLD: %s (must be positive)", cfg.Hold)
	}
	if cfg.ChannelTTL <= cfg.Hold {
		return nil, fmt.Errorf("invalid FAKE_CHANNEL_TTL: %s (must exceed FAKE_HOLD)", cfg.ChannelTTL)
	}
	if cfg.DemoInterval < 0 {
		return nil, fmt.Errorf("invalid FAKE_DEMO_INTERVAL: %s (must not be negative)", cfg.DemoInterval)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
