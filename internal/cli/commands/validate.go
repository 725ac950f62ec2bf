package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/log2sql/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ConfigOptions{}

	cmd := &cobra.Command{
		Use:   "validate [flags]",
		Short: "Validate a template and data description",
		Long: `Validate a template and data description without reading any input.

Checks:
  - Template placeholders are well formed and field names are unique
  - Data description syntax
  - Column types are supported
  - Config file syntax, when --config is given`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts)
		},
	}

	opts.addFlags(cmd)

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ConfigOptions) error {
	out := cmd.OutOrStdout()

	cfg, err := opts.loadConfig(contextOf(cmd), cmd)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	printConfig(cmd, cfg)

	tmpl := cfg.CompiledTemplate()
	fmt.Fprintf(out, "\nFields:\n")
	for i, f := range tmpl.Fields() {
		if f.Declared != "" && f.Declared != string(f.Kind) {
			fmt.Fprintf(out, "  %d. %s (%s, declared %q)\n", i+1, f.Name, f.Kind, f.Declared)
			continue
		}
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, f.Name, f.Kind)
	}

	desc := cfg.ParsedSchema()
	fmt.Fprintf(out, "\nColumns:\n")
	for i, c := range desc.Columns {
		fmt.Fprintf(out, "  %d. %s %s\n", i+1, c.Name, c.Type)
	}

	if opts.Verbose > 0 {
		fmt.Fprintf(out, "\nPattern:\n  %s\n", tmpl.Pattern())
		fmt.Fprintf(out, "\nCreate statement:\n  %s\n", desc.CreateSQL())
	}

	return nil
}

func printConfig(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	desc := cfg.ParsedSchema()

	fmt.Fprintf(out, "Configuration valid!\n")
	fmt.Fprintf(out, "  Template: %s\n", cfg.Template)
	fmt.Fprintf(out, "  Table:    %s (%d columns)\n", desc.Table, len(desc.Columns))
	if cfg.PrintOnly() {
		fmt.Fprintf(out, "  Output:   INSERT statements on stdout\n")
	} else {
		fmt.Fprintf(out, "  Output:   %s\n", cfg.Database)
	}
}
