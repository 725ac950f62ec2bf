package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/log2sql/pkg/config"
	"github.com/ccollicutt/log2sql/pkg/dedup"
	"github.com/ccollicutt/log2sql/pkg/parser"
	"github.com/ccollicutt/log2sql/pkg/pipeline"
	"github.com/ccollicutt/log2sql/pkg/sqlgen"
	"github.com/ccollicutt/log2sql/pkg/store"
)

// DefaultSampleLines is how many lines of an input diagnose tries.
const DefaultSampleLines = 10

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	ConfigOptions

	Sample int
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose [flags] [input]...",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks a run configuration for common problems without writing
anything:
- Config file existence and syntax
- Template and data description validity
- Input file existence
- How the first lines of the first input fare against the template
- Whether an existing database table fits the data description
- Whether duplicate removal will find its datetime column

Example:
  log2sql diagnose --config log2sql.yaml app.log
  log2sql diagnose -t "[ts:time] temp=[t:word]" -d "log(ts time, t real)" -v app.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd, args, opts)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().IntVar(&opts.Sample, "sample", DefaultSampleLines, "number of input lines to try")

	return cmd
}

func runDiagnose(cmd *cobra.Command, args []string, opts *DiagnoseOptions) error {
	ctx := contextOf(cmd)
	out := cmd.OutOrStdout()
	results := []DiagnosticResult{}

	// 1. Check config file existence
	if opts.ConfigFile != "" {
		result := checkConfigExists(opts.ConfigFile)
		results = append(results, result)
		if result.Status == "error" {
			printDiagnostics(out, results, opts)
			return nil
		}
	}

	// 2. Build and validate the configuration
	cfg, result := checkConfigValid(ctx, cmd, opts)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(out, results, opts)
		return nil
	}

	// 3. Check inputs
	inputs := args
	if len(inputs) == 0 {
		inputs = cfg.Inputs
	}
	files, inputResults := checkInputs(inputs)
	results = append(results, inputResults...)

	// 4. Try the template on the first readable input
	results = append(results, checkTemplateMatches(ctx, cfg, files, opts)...)

	// 5. Check the database table
	results = append(results, checkDatabase(ctx, cfg)...)

	// 6. Check webhooks
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(out, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Pass --template and --data directly instead of a config file",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigValid(ctx context.Context, cmd *cobra.Command, opts *DiagnoseOptions) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Configuration",
	}

	cfg, err := opts.loadConfig(ctx, cmd)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Invalid configuration: %v", err)
		switch {
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		case strings.Contains(err.Error(), "template"):
			result.Suggests = []string{
				"Placeholders look like [name:kind] and cannot be nested",
				"Run 'log2sql info' for the template format",
			}
		case strings.Contains(err.Error(), "schema"):
			result.Suggests = []string{
				"The data description looks like table(name type, ...)",
				"Run 'log2sql info' for the supported column types",
			}
		}
		return nil, result
	}

	tmpl := cfg.CompiledTemplate()
	desc := cfg.ParsedSchema()

	result.Status = "ok"
	result.Message = "Template and data description are valid"
	result.Details = []string{
		fmt.Sprintf("Fields: %d", len(tmpl.Fields())),
		fmt.Sprintf("Table: %s (%d columns)", desc.Table, len(desc.Columns)),
		fmt.Sprintf("Pattern: %s", tmpl.Pattern()),
	}
	return cfg, result
}

func checkInputs(inputs []string) ([]string, []DiagnosticResult) {
	results := []DiagnosticResult{}

	if len(inputs) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Inputs",
			Status:  "warning",
			Message: "No inputs given, template matching not tested",
			Suggests: []string{
				"Pass an input file to test the template against real lines",
			},
		})
		return nil, results
	}

	files, err := parser.ExpandGlobs(inputs)
	if err != nil {
		results = append(results, DiagnosticResult{
			Check:   "Inputs",
			Status:  "error",
			Message: fmt.Sprintf("Invalid glob pattern: %v", err),
		})
		return nil, results
	}

	var readable []string
	for _, file := range files {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Input: %s", file),
		}

		if file == parser.StdinName {
			result.Status = "ok"
			result.Message = "Standard input (not sampled)"
			results = append(results, result)
			continue
		}

		info, err := os.Stat(file)
		switch {
		case os.IsNotExist(err):
			result.Status = "warning"
			result.Message = "File does not exist, it will be skipped"
			result.Suggests = []string{"Check if the input path is correct"}
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot access file: %v", err)
			result.Suggests = []string{"Check file permissions"}
		case info.IsDir():
			result.Status = "warning"
			result.Message = "Path is a directory, it will be skipped"
			result.Suggests = []string{"Use a glob pattern to match files in a directory"}
		case info.Size() == 0:
			result.Status = "warning"
			result.Message = "File is empty (0 bytes)"
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
			if c := parser.DetectCompression(file); c != parser.CompressionNone {
				result.Message += ", compressed"
			}
			readable = append(readable, file)
		}
		results = append(results, result)
	}

	return readable, results
}

// discardSink accepts every statement.
type discardSink struct{}

func (discardSink) Write(context.Context, *sqlgen.Statement) error { return nil }

func checkTemplateMatches(ctx context.Context, cfg *config.Config, files []string, opts *DiagnoseOptions) []DiagnosticResult {
	if len(files) == 0 {
		return nil
	}

	// Test first file
	file := files[0]
	result := DiagnosticResult{
		Check: fmt.Sprintf("Template Test: %s", file),
	}

	sample := opts.Sample
	if sample <= 0 {
		sample = DefaultSampleLines
	}

	desc := cfg.ParsedSchema()
	p := pipeline.New(cfg.CompiledTemplate(), cfg.Resolver(), sqlgen.New(desc.Table, desc.Columns), discardSink{})

	source := parser.NewFileSource([]string{file})
	defer source.Close()

	counts := make(map[pipeline.Outcome]int)
	samples := make(map[pipeline.Outcome]string)
	read := 0
	for read < sample {
		line, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Status = "warning"
			result.Message = fmt.Sprintf("Cannot read file: %v", err)
			return []DiagnosticResult{result}
		}
		if strings.TrimSpace(line.Content) == "" {
			continue
		}
		read++

		outcome, err := p.Process(ctx, line.Content)
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Line %d: %v", line.LineNum, err)
			return []DiagnosticResult{result}
		}
		counts[outcome]++
		if _, ok := samples[outcome]; !ok {
			samples[outcome] = line.Content
		}
	}

	matched := counts[pipeline.OutcomeInserted]
	switch {
	case read == 0:
		result.Status = "warning"
		result.Message = "No non-empty lines to test"
		return []DiagnosticResult{result}
	case matched == 0:
		result.Status = "error"
		result.Message = fmt.Sprintf("No row produced from %d sample lines", read)
	case matched < read/2:
		result.Status = "warning"
		result.Message = fmt.Sprintf("Rows produced from only %d/%d sample lines", matched, read)
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("Rows produced from %d/%d sample lines", matched, read)
	}

	for _, o := range pipeline.Outcomes {
		if counts[o] == 0 || (o == pipeline.OutcomeInserted && !opts.showDetails()) {
			continue
		}
		result.Details = append(result.Details,
			fmt.Sprintf("%s: %d, e.g. %s", o, counts[o], truncate(samples[o], 80)))
	}

	if counts[pipeline.OutcomeNoMatch] > 0 {
		result.Suggests = append(result.Suggests,
			"Text outside placeholders must appear in the line exactly, including spaces")
	}
	if counts[pipeline.OutcomeFieldNotFound] > 0 {
		result.Suggests = append(result.Suggests,
			"Every column needs a template field of the same name (a datetime column needs a date field)")
	}
	if counts[pipeline.OutcomeTypeCoercion] > 0 {
		result.Suggests = append(result.Suggests,
			fmt.Sprintf("Check --date %q and --time %q against the captured values", cfg.DateFormat, cfg.TimeFormat))
	}

	return []DiagnosticResult{result}
}

func checkDatabase(ctx context.Context, cfg *config.Config) []DiagnosticResult {
	if cfg.PrintOnly() {
		return nil
	}

	results := []DiagnosticResult{}
	desc := cfg.ParsedSchema()
	path := store.Path(cfg.Database)

	result := DiagnosticResult{
		Check: fmt.Sprintf("Database: %s", path),
	}
	usable := desc.Columns

	if _, err := os.Stat(path); os.IsNotExist(err) {
		result.Status = "ok"
		result.Message = "Database will be created"
	} else {
		st, err := store.Open(ctx, path)
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot open database: %v", err)
			return append(results, result)
		}
		defer st.Close()

		existing, exists, err := st.TableColumns(ctx, desc.Table)
		switch {
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot read table %s: %v", desc.Table, err)
		case !exists:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Table %s will be created", desc.Table)
		default:
			usable = store.UsableColumns(desc.Columns, existing)
			if len(usable) != len(desc.Columns) {
				result.Status = "error"
				result.Message = fmt.Sprintf("Existing table %s and data description do not match", desc.Table)
				for _, c := range existing {
					result.Details = append(result.Details, fmt.Sprintf("%s %s", c.Name, c.Type))
				}
				result.Suggests = []string{"Use column names that exist in the table, or a new table name"}
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("Table %s has every column", desc.Table)
			}
		}
	}
	results = append(results, result)

	if cfg.KeepDuplicates {
		return results
	}

	pruning := DiagnosticResult{
		Check: "Duplicate Removal",
	}
	engine := dedup.New(nil, desc.Table, usable, nil)
	if dt, err := engine.DatetimeColumn(); err != nil {
		pruning.Status = "warning"
		pruning.Message = "Duplicate removal will fail after the rows are written"
		pruning.Details = []string{err.Error()}
		pruning.Suggests = []string{
			"Add one datetime column, built from a date and a time field",
			"Or pass --keep to skip duplicate removal",
		}
	} else {
		pruning.Status = "ok"
		pruning.Message = fmt.Sprintf("Keyed on datetime column %s", dt.Name)
	}

	return append(results, pruning)
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.showDetails() {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
			Details: []string{
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			},
		}

		switch {
		case wh.Trigger == config.WebhookTriggerNever:
			result.Status = "warning"
			result.Message = "Webhook is disabled (trigger: never)"
		case wh.Token == "" && strings.HasPrefix(wh.URL, "http://"):
			result.Status = "warning"
			result.Message = fmt.Sprintf("Fires %s, without a token over plain http", wh.Trigger)
			result.Suggests = []string{"Set token, e.g. token: ${LOG2SQL_WEBHOOK_TOKEN}"}
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Fires %s", wh.Trigger)
		}

		results = append(results, result)
	}

	return results
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== log2sql Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.showDetails() || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before converting.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

// showDetails reports whether -v was given.
func (o *DiagnoseOptions) showDetails() bool {
	return o.Verbose > 0
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
