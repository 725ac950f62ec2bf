package config

import (
	"os"
	"time"

	"github.com/ccollicutt/log2sql/pkg/resolve"
	"github.com/ccollicutt/log2sql/pkg/template"
)

// Environment variable names.
const (
	EnvDateFormat = "LOG2SQL_DATE_FORMAT"
	EnvTimeFormat = "LOG2SQL_TIME_FORMAT"
	EnvDatabase   = "LOG2SQL_DATABASE"
)

// DefaultWebhookTimeout is used when a webhook has no timeout.
const DefaultWebhookTimeout = 10 * time.Second

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DateFormat:      resolve.DefaultDateFormat,
		TimeFormat:      resolve.DefaultTimeFormat,
		DuplicateFields: template.DuplicateReject,
		Inputs:          []string{},
		Webhooks:        []WebhookConfig{},
	}
}

// ApplyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvironmentOverrides() {
	if v := os.Getenv(EnvDateFormat); v != "" {
		c.DateFormat = v
	}
	if v := os.Getenv(EnvTimeFormat); v != "" {
		c.TimeFormat = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
}
