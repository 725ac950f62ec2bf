package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/log2sql/pkg/errdefs"
	"github.com/ccollicutt/log2sql/pkg/resolve"
	"github.com/ccollicutt/log2sql/pkg/schema"
	"github.com/ccollicutt/log2sql/pkg/template"
)

// ErrNotValidated is returned when a run is started with an unvalidated config.
var ErrNotValidated = errors.New("configuration has not been validated")

// Load reads and validates a configuration file.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg, err := Read(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Read loads a configuration file on top of the defaults and applies
// environment overrides, without validating. An empty path yields the
// defaults.
func Read(_ context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ApplyEnvironmentOverrides()

	return cfg, nil
}

// Validate checks a configuration for errors, compiles the template, parses
// the schema and builds the resolver.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Template) == "" {
		return fmt.Errorf("%w: template: a line template is required", errdefs.ErrStructuralConfig)
	}
	if strings.TrimSpace(cfg.Schema) == "" {
		return fmt.Errorf("%w: schema: a schema description is required", errdefs.ErrStructuralConfig)
	}

	if cfg.DateFormat == "" {
		cfg.DateFormat = resolve.DefaultDateFormat
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = resolve.DefaultTimeFormat
	}

	switch cfg.DuplicateFields {
	case "":
		cfg.DuplicateFields = template.DuplicateReject
	case template.DuplicateReject, template.DuplicateLastWins:
		// Valid
	default:
		return fmt.Errorf("%w: duplicate_fields: invalid policy %q (must be %s or %s)",
			errdefs.ErrStructuralConfig, cfg.DuplicateFields, template.DuplicateReject, template.DuplicateLastWins)
	}

	cfg.Database = expandEnvVar(cfg.Database)

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := ValidateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("%w: webhooks[%d] (%s): %v", errdefs.ErrStructuralConfig, i, name, err)
		}
	}

	tmpl, err := template.Compile(cfg.Template, cfg.TemplateOptions())
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}

	desc, err := schema.Parse(cfg.Schema)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	res, err := resolve.New(tmpl, desc, cfg.ResolveOptions())
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	cfg.compiledTemplate = tmpl
	cfg.parsedSchema = desc
	cfg.resolver = res

	return nil
}

// Validated reports whether Validate has succeeded on cfg.
func (c *Config) Validated() bool {
	return c.compiledTemplate != nil && c.parsedSchema != nil && c.resolver != nil
}

// ValidateWebhook checks a webhook definition and fills in its defaults.
func ValidateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnIssues
	case WebhookTriggerOnIssues, WebhookTriggerAlways, WebhookTriggerNever:
		// Valid
	default:
		return fmt.Errorf("invalid trigger %q (must be on_issues, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
