package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/log2sql/pkg/config"
	"github.com/ccollicutt/log2sql/pkg/output"
	"github.com/ccollicutt/log2sql/pkg/parser"
	"github.com/ccollicutt/log2sql/pkg/pipeline"
	"github.com/ccollicutt/log2sql/pkg/webhook"
)

// ConvertOptions holds command-line options for the convert command.
type ConvertOptions struct {
	ConfigOptions

	// Summary selects the run summary written to stderr: text, short, json
	// or short-json.
	Summary string

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "convert [flags] <input>...",
		Short: "Convert log lines into SQL rows",
		Long: `Convert log lines into SQL INSERT statements, or write them to a SQLite
database.

Every line of every input is matched against the template. Matching lines are
converted to the column types of the data description and turned into one
INSERT statement. Lines that don't match, or whose values don't convert, are
skipped.

With --sql the rows are written to the database and, once every input has been
read, rows repeating an earlier datetime are deleted, then rows whose previous
and next rows (by datetime) hold the same values. This needs exactly one
datetime column; use --keep or --midpoints to skip the passes.

Inputs are files, glob patterns, or - for standard input. Files ending in
.gz, .bz2, .xz or .zst are decompressed. Missing files are reported and
skipped.

Run 'log2sql info' for the template and data description formats.

Exit codes:
  0 - Success
  2 - Configuration or runtime error`,
		Example: `  log2sql convert -t "[ts:time] temp=[t:word]" -d "log(ts time, t real)" app.log
  log2sql convert --config log2sql.yaml -s readings -v /var/log/sensor/*.log
  zcat old.log.gz | log2sql convert --config log2sql.yaml -s readings -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, opts)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Summary, "summary", "", "write a run summary to stderr (text|short|json|short-json)")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "post the JSON run summary to this URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnIssues), "when to fire the webhook (on_issues|always|never)")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string, opts *ConvertOptions) error {
	ctx := contextOf(cmd)

	formatter, err := createFormatter(opts)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose, runID)

	cfg, err := opts.loadConfig(ctx, cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	webhooks, err := collectWebhooks(cfg, opts)
	if err != nil {
		return err
	}

	inputs := args
	if len(inputs) == 0 {
		inputs = cfg.Inputs
	}
	if len(inputs) == 0 {
		return errors.New("no inputs given (pass files, glob patterns or - for standard input)")
	}

	files, err := parser.ExpandGlobs(inputs)
	if err != nil {
		return fmt.Errorf("expanding inputs: %w", err)
	}

	found, missing := parser.SplitExisting(files)
	for _, m := range missing {
		logger.Warn("input not found, skipping", "path", m)
	}
	if len(found) == 0 {
		return fmt.Errorf("no readable inputs among %s", describeInputs(inputs))
	}

	source := parser.NewFileSource(found, parser.WithStdin(cmd.InOrStdin()))
	defer source.Close()

	result, runErr := pipeline.Convert(ctx, cfg, source, cmd.OutOrStdout(), logger)

	if result != nil {
		report := output.NewReport(result, runID)

		// Webhook errors are logged but don't fail the run
		sendWebhooks(ctx, logger, webhooks, webhook.NewPayload(report, runErr))

		if formatter != nil {
			if err := formatter.Format(ctx, report, cmd.ErrOrStderr()); err != nil {
				return errors.Join(runErr, fmt.Errorf("formatting summary: %w", err))
			}
		}
	}

	if runErr != nil {
		return fmt.Errorf("conversion failed: %w", runErr)
	}
	return nil
}

// createFormatter returns nil when no summary was asked for.
func createFormatter(opts *ConvertOptions) (output.Formatter, error) {
	formatOpts := output.FormatOptions{
		Verbose: opts.Verbose > 0,
	}

	switch opts.Summary {
	case "":
		return nil, nil
	case "short":
		formatOpts.Quiet = true
		return output.NewTextFormatter(formatOpts), nil
	case "short-json":
		formatOpts.Quiet = true
		return output.NewJSONFormatter(formatOpts), nil
	default:
		return output.NewFormatter(opts.Summary, formatOpts)
	}
}

// collectWebhooks merges config file webhooks with the one given by flags.
func collectWebhooks(cfg *config.Config, opts *ConvertOptions) ([]config.WebhookConfig, error) {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		wh := config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
		}
		if err := config.ValidateWebhook(&wh); err != nil {
			return nil, fmt.Errorf("--webhook-url: %w", err)
		}
		webhooks = append(webhooks, wh)
	}

	return webhooks, nil
}

// sendWebhooks posts the report to every webhook whose trigger matches.
func sendWebhooks(ctx context.Context, logger *slog.Logger, webhooks []config.WebhookConfig, payload *webhook.Payload) {
	if len(webhooks) == 0 {
		return
	}

	client := webhook.NewClient()

	for _, wh := range webhooks {
		if !shouldFireWebhook(wh.Trigger, payload.HasIssues()) {
			continue
		}

		resp := client.Send(ctx, payload, webhook.SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
		})

		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		if resp.Success() {
			logger.Info("webhook sent", "webhook", name, "event", payload.Event, "status", resp.StatusCode, "duration", resp.Duration)
		} else {
			logger.Warn("webhook failed", "webhook", name, "error", resp.Error)
		}
	}
}

// shouldFireWebhook determines if a webhook fires for a run.
func shouldFireWebhook(trigger config.WebhookTrigger, hasIssues bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return hasIssues
	}
}
