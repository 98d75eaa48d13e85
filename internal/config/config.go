package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	PlatformURL    string `mapstructure:"HV_PLATFORM_URL"`
	ShellURL       string `mapstructure:"HV_SHELL_URL"`
	AppID          string `mapstructure:"HV_APP_ID"`
	RecordID       string `mapstructure:"HV_RECORD_ID"`
	AuthToken      string `mapstructure:"HV_AUTH_TOKEN"`
	TimeoutSeconds int    `mapstructure:"HV_TIMEOUT_SECONDS"`
	LogLevel       string `mapstructure:"HV_LOG_LEVEL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults point at the pre-production environment.
	v.SetDefault("HV_PLATFORM_URL", "https://platform.healthvault-ppe.com/platform/wildcat.ashx")
	v.SetDefault("HV_SHELL_URL", "https://account.healthvault-ppe.com")
	v.SetDefault("HV_TIMEOUT_SECONDS", 30)
	v.SetDefault("HV_LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("HV_PLATFORM_URL")
	v.BindEnv("HV_SHELL_URL")
	v.BindEnv("HV_APP_ID")
	v.BindEnv("HV_RECORD_ID")
	v.BindEnv("HV_AUTH_TOKEN")
	v.BindEnv("HV_TIMEOUT_SECONDS")
	v.BindEnv("HV_LOG_LEVEL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Timeout returns the per-call deadline for network operations.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AppUUID parses the configured application id.
func (c *Config) AppUUID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.AppID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("HV_APP_ID is not a valid guid: %w", err)
	}
	return id, nil
}

// RecordUUID parses the configured record id. Returns uuid.Nil when unset.
func (c *Config) RecordUUID() (uuid.UUID, error) {
	if c.RecordID == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(c.RecordID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("HV_RECORD_ID is not a valid guid: %w", err)
	}
	return id, nil
}

// Validate checks that the configuration can reach the platform. Commands
// that stay offline skip this.
func (c *Config) Validate() error {
	if c.PlatformURL == "" {
		return fmt.Errorf("HV_PLATFORM_URL is required")
	}
	if c.AppID == "" {
		return fmt.Errorf("HV_APP_ID is required")
	}
	if _, err := c.AppUUID(); err != nil {
		return err
	}
	if _, err := c.RecordUUID(); err != nil {
		return err
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("HV_TIMEOUT_SECONDS must be positive, got %d", c.TimeoutSeconds)
	}
	return nil
}
