package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/log2sql/pkg/config"
	"github.com/ccollicutt/log2sql/pkg/template"
)

// ConfigOptions holds the flags that make up a run configuration. Flags that
// are set override the config file and the environment.
type ConfigOptions struct {
	ConfigFile      string
	Template        string
	Schema          string
	Database        string
	DateFormat      string
	TimeFormat      string
	CaseSensitive   bool
	DuplicateFields string
	KeepDuplicates  bool
	KeepMidpoints   bool
	Verbose         int
}

func (o *ConfigOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.ConfigFile, "config", "", "YAML configuration file")
	f.StringVarP(&o.Template, "template", "t", "", "template for what lines look like, e.g. \"[ts:time] temp=[t:word]\"")
	f.StringVarP(&o.Schema, "data", "d", "", "description of the table and columns, e.g. \"log(ts time, t real)\"")
	f.StringVarP(&o.Database, "sql", "s", "", "SQLite database to write to (default: print INSERT statements)")
	f.StringVar(&o.DateFormat, "date", "", "strftime format of date fields (default \"%Y-%m-%d\")")
	f.StringVar(&o.TimeFormat, "time", "", "strftime format of time fields (default \"%H:%M:%S\")")
	f.BoolVarP(&o.CaseSensitive, "case", "c", false, "field names are case-sensitive")
	f.StringVar(&o.DuplicateFields, "duplicate-fields", "", "repeated template field names: reject or last-wins (default reject)")
	f.BoolVarP(&o.KeepDuplicates, "keep", "k", false, "keep rows with a duplicate datetime (also keeps midpoints)")
	f.BoolVarP(&o.KeepMidpoints, "midpoints", "m", false, "keep rows whose neighbours hold the same values")
	f.CountVarP(&o.Verbose, "verbose", "v", "show what's happening (repeat for more)")
}

// loadConfig reads the config file, applies the environment and any flags
// that were set, and validates the result.
func (o *ConfigOptions) loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := o.readConfig(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (o *ConfigOptions) readConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Read(ctx, o.ConfigFile)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("template") {
		cfg.Template = o.Template
	}
	if f.Changed("data") {
		cfg.Schema = o.Schema
	}
	if f.Changed("sql") {
		cfg.Database = o.Database
	}
	if f.Changed("date") {
		cfg.DateFormat = o.DateFormat
	}
	if f.Changed("time") {
		cfg.TimeFormat = o.TimeFormat
	}
	if f.Changed("case") {
		cfg.CaseSensitive = o.CaseSensitive
	}
	if f.Changed("duplicate-fields") {
		cfg.DuplicateFields = template.DuplicatePolicy(o.DuplicateFields)
	}
	if f.Changed("keep") {
		cfg.KeepDuplicates = o.KeepDuplicates
	}
	if f.Changed("midpoints") {
		cfg.KeepMidpoints = o.KeepMidpoints
	}

	return cfg, nil
}

// newLogger returns a text logger on w. Verbosity 0 shows warnings, 1 adds
// progress and 2 or more adds per-line detail and generated SQL.
func newLogger(w io.Writer, verbosity int, runID string) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	if runID != "" {
		logger = logger.With("run", runID)
	}
	return logger
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func describeInputs(inputs []string) string {
	if len(inputs) == 0 {
		return "(none)"
	}
	return fmt.Sprint(inputs)
}
