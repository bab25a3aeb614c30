package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/plurk-comet/internal/notify"
)

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Comet   CometConfig   `mapstructure:"comet"`
	Keys    KeysConfig    `mapstructure:"keys"`
	Logging LoggingConfig `mapstructure:"logging"`
	Notify  notify.Config `mapstructure:"notify"`
}

type APIConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelay    int    `mapstructure:"retry_delay_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

type CometConfig struct {
	KnockURL         string `mapstructure:"knock_url"`
	PollTimeoutSec   int    `mapstructure:"poll_timeout_sec"`
	KnockTimeoutSec  int    `mapstructure:"knock_timeout_sec"`
	KnockEvery       int    `mapstructure:"knock_every"`
	RetryDelayMs     int    `mapstructure:"retry_delay_ms"`
	RetryMaxDelaySec int    `mapstructure:"retry_max_delay_sec"`
}

type KeysConfig struct {
	File string `mapstructure:"file"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func (c APIConfig) RetryInterval() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}

func (c CometConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSec) * time.Second
}

func (c CometConfig) KnockTimeout() time.Duration {
	return time.Duration(c.KnockTimeoutSec) * time.Second
}

func (c CometConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

func (c CometConfig) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelaySec) * time.Second
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("api.base_url", "https://www.plurk.com")
	v.SetDefault("api.timeout_sec", 30)
	v.SetDefault("api.retry_count", 3)
	v.SetDefault("api.retry_delay_sec", 2)
	v.SetDefault("api.rate_per_second", 2)
	v.SetDefault("comet.knock_url", "https://www.plurk.com/_comet/generic")
	v.SetDefault("comet.poll_timeout_sec", 120)
	v.SetDefault("comet.knock_timeout_sec", 10)
	v.SetDefault("comet.knock_every", 10)
	v.SetDefault("comet.retry_delay_ms", 1000)
	v.SetDefault("comet.retry_max_delay_sec", 30)
	v.SetDefault("keys.file", "")
	v.SetDefault("logging.enabled", false)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.topic", "")
	v.SetDefault("notify.priority", "default")
	v.SetDefault("notify.tags", "speech_balloon")
	v.SetDefault("notify.token", "")

	// Environment variable support
	v.SetEnvPrefix("PLURK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
