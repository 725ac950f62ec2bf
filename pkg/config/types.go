// Package config provides configuration loading and validation for log2sql.
package config

import (
	"time"

	"github.com/ccollicutt/log2sql/pkg/resolve"
	"github.com/ccollicutt/log2sql/pkg/schema"
	"github.com/ccollicutt/log2sql/pkg/template"
)

// Config is the root configuration structure loaded from YAML and flags.
// It is treated as read-only once Validate has succeeded.
type Config struct {
	// Template is the line template, e.g. "[ts:time] [user:word] [msg]".
	Template string `yaml:"template"`

	// Schema is the table description, e.g. "log(ts time, user string)".
	Schema string `yaml:"schema"`

	// Database is the SQLite file to write to. Empty means print statements.
	Database string `yaml:"database,omitempty"`

	// DateFormat and TimeFormat are strftime formats for date and time fields.
	DateFormat string `yaml:"date_format,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty"`

	CaseSensitive   bool                     `yaml:"case_sensitive,omitempty"`
	DuplicateFields template.DuplicatePolicy `yaml:"duplicate_fields,omitempty"`

	KeepDuplicates bool `yaml:"keep_duplicates,omitempty"`
	KeepMidpoints  bool `yaml:"keep_midpoints,omitempty"`

	// Inputs are used when no inputs are given on the command line.
	Inputs []string `yaml:"inputs,omitempty"`

	// Webhooks receive the run summary when a convert run ends.
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`

	// Compiled forms (populated during validation)
	compiledTemplate *template.Template
	parsedSchema     *schema.Description
	resolver         *resolve.Resolver
}

// CompiledTemplate returns the template compiled during validation.
func (c *Config) CompiledTemplate() *template.Template {
	return c.compiledTemplate
}

// ParsedSchema returns the schema description parsed during validation.
func (c *Config) ParsedSchema() *schema.Description {
	return c.parsedSchema
}

// Resolver returns the field resolver built during validation.
func (c *Config) Resolver() *resolve.Resolver {
	return c.resolver
}

// TemplateOptions returns the options the template is compiled with.
func (c *Config) TemplateOptions() template.Options {
	return template.Options{
		CaseSensitive: c.CaseSensitive,
		Duplicates:    c.DuplicateFields,
	}
}

// ResolveOptions returns the date and time formats for the resolver.
func (c *Config) ResolveOptions() resolve.Options {
	return resolve.Options{
		DateFormat: c.DateFormat,
		TimeFormat: c.TimeFormat,
	}
}

// PrintOnly reports whether statements are printed instead of stored.
func (c *Config) PrintOnly() bool {
	return c.Database == ""
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnIssues fires when lines were skipped or the run failed (default).
	WebhookTriggerOnIssues WebhookTrigger = "on_issues"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines an endpoint that receives the JSON run summary.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token. ${VAR} and $VAR are expanded.
	Token string `yaml:"token,omitempty"`

	// Trigger defaults to "on_issues".
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout defaults to 10s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
