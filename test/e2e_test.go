package test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/ccollicutt/log2sql/internal/cli"
	"github.com/ccollicutt/log2sql/pkg/errdefs"
	"github.com/ccollicutt/log2sql/pkg/output"
	"github.com/ccollicutt/log2sql/pkg/pipeline"
	"github.com/ccollicutt/log2sql/pkg/store"
)

var (
	projectRoot string
	rootOnce    sync.Once
)

const (
	sensorConfig = "testdata/configs/sensor.yaml"
	sensorLog    = "testdata/logs/sensor.log"
)

// chdir changes to the project root directory for tests.
// Config files use paths relative to project root.
func chdir(t *testing.T) {
	t.Helper()
	rootOnce.Do(func() {
		// Get the directory containing this test file, then go up one level
		_, filename, _, _ := runtime.Caller(0)
		projectRoot = filepath.Dir(filepath.Dir(filename))
	})
	if err := os.Chdir(projectRoot); err != nil {
		t.Fatalf("Failed to chdir to project root: %v", err)
	}
}

// requireFile fails the test if the required test file doesn't exist.
// We never skip tests - missing test data is a test failure.
func requireFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Required test file not found: %s", path)
	}
}

type runResult struct {
	stdout string
	stderr string
	err    error
}

// run executes the log2sql root command with args and stdin.
func run(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()
	cmd := cli.NewRootCommand()

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func countRows(t *testing.T, path, table string) int {
	t.Helper()
	st, err := store.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer st.Close()

	var n int
	if err := st.DB().QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	return n
}

// TestE2E_PrintStatements converts the sample log without a database.
func TestE2E_PrintStatements(t *testing.T) {
	chdir(t)
	requireFile(t, sensorConfig)
	requireFile(t, sensorLog)

	res := run(t, "", "convert", "--config", sensorConfig)
	if res.err != nil {
		t.Fatalf("convert error = %v\nstderr: %s", res.err, res.stderr)
	}

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	// 9 lines: one doesn't match, one has no temperature
	if len(lines) != 7 {
		t.Fatalf("Got %d statements, want 7:\n%s", len(lines), res.stdout)
	}

	want := `INSERT INTO "readings" ("at", "sensor", "temp", "state") VALUES ('2024-01-15 10:00:00', 'boiler', 20.50, 'ok');`
	if lines[0] != want {
		t.Errorf("first statement =\n  %s\nwant\n  %s", lines[0], want)
	}
	for _, l := range lines {
		if !strings.HasSuffix(l, ";") {
			t.Errorf("statement not terminated: %s", l)
		}
	}
}

// TestE2E_Database writes the sample log into SQLite and prunes it.
func TestE2E_Database(t *testing.T) {
	chdir(t)
	requireFile(t, sensorConfig)

	db := filepath.Join(t.TempDir(), "readings")
	res := run(t, "", "convert", "--config", sensorConfig, "-s", db, "--summary", "json")
	if res.err != nil {
		t.Fatalf("convert error = %v\nstderr: %s", res.err, res.stderr)
	}
	if res.stdout != "" {
		t.Errorf("stdout = %q, want nothing when writing to a database", res.stdout)
	}

	var report output.Report
	if err := json.Unmarshal([]byte(res.stderr), &report); err != nil {
		t.Fatalf("summary is not valid JSON: %v\n%s", err, res.stderr)
	}

	if report.Summary.LinesRead != 9 {
		t.Errorf("LinesRead = %d, want 9", report.Summary.LinesRead)
	}
	if report.Summary.Inserted != 7 {
		t.Errorf("Inserted = %d, want 7", report.Summary.Inserted)
	}
	if got := report.Summary.Outcomes[pipeline.OutcomeTypeCoercion]; got != 1 {
		t.Errorf("type_coercion = %d, want 1", got)
	}
	if got := report.Summary.Outcomes[pipeline.OutcomeNoMatch]; got != 1 {
		t.Errorf("no_match = %d, want 1", got)
	}
	if report.Metadata.Database != db+".db" {
		t.Errorf("Database = %q, want %q", report.Metadata.Database, db+".db")
	}
	if report.Metadata.RunID == "" {
		t.Error("RunID is empty")
	}

	p := report.Summary.Pruning
	if p == nil {
		t.Fatal("Pruning = nil, want both passes")
	}
	if p.DuplicatesDeleted != 1 || p.MidpointsDeleted != 1 {
		t.Errorf("Pruning = %+v, want 1 duplicate and 1 midpoint", p)
	}

	if got := countRows(t, db+".db", "readings"); got != 5 {
		t.Errorf("rows = %d, want 5", got)
	}
}

// TestE2E_Database_Append runs twice into the same table.
func TestE2E_Database_Append(t *testing.T) {
	chdir(t)

	db := filepath.Join(t.TempDir(), "readings.db")
	for i := 0; i < 2; i++ {
		res := run(t, "", "convert", "--config", sensorConfig, "-s", db, "--keep")
		if res.err != nil {
			t.Fatalf("run %d: convert error = %v", i+1, res.err)
		}
	}

	if got := countRows(t, db, "readings"); got != 14 {
		t.Errorf("rows = %d, want 14 with duplicates kept", got)
	}
}

// TestE2E_TimeOnlySchema stores rows even though pruning cannot run.
func TestE2E_TimeOnlySchema(t *testing.T) {
	db := filepath.Join(t.TempDir(), "temps.db")
	stdin := "10:00:00 temp=20.0\n10:00:05 temp=20.0\n10:00:10 temp=25.0\n"

	res := run(t, stdin, "convert",
		"-t", "[ts:time] temp=[t:word]",
		"-d", "log(ts TIME, t REAL)",
		"-s", db,
		"-")
	if res.err == nil {
		t.Fatal("convert expected error: no datetime column for duplicate removal")
	}
	if !errors.Is(res.err, errdefs.ErrDedupPrecondition) {
		t.Errorf("error = %v, want ErrDedupPrecondition", res.err)
	}
	if got := countRows(t, db, "log"); got != 3 {
		t.Errorf("rows = %d, want 3", got)
	}

	// With --keep the same input succeeds.
	db2 := filepath.Join(t.TempDir(), "temps.db")
	res = run(t, stdin, "convert",
		"-t", "[ts:time] temp=[t:word]",
		"-d", "log(ts TIME, t REAL)",
		"-s", db2, "-k", "-")
	if res.err != nil {
		t.Fatalf("convert --keep error = %v", res.err)
	}
	if got := countRows(t, db2, "log"); got != 3 {
		t.Errorf("rows = %d, want 3", got)
	}
}

// TestE2E_Stdin reads lines from standard input.
func TestE2E_Stdin(t *testing.T) {
	res := run(t, "user=alice msg='hello there'\nuser=bob msg=hi\n", "convert",
		"-t", "user=[user:word] msg=[msg]",
		"-d", "events(user string, msg string)",
		"-")
	if res.err != nil {
		t.Fatalf("convert error = %v", res.err)
	}

	want := `INSERT INTO "events" ("user", "msg") VALUES ('alice', 'hello there');` + "\n" +
		`INSERT INTO "events" ("user", "msg") VALUES ('bob', 'hi');` + "\n"
	if res.stdout != want {
		t.Errorf("stdout =\n%s\nwant\n%s", res.stdout, want)
	}
}

// TestE2E_CompressedInput reads a gzip-compressed log.
func TestE2E_CompressedInput(t *testing.T) {
	chdir(t)

	data, err := os.ReadFile(sensorLog)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	gz := filepath.Join(t.TempDir(), "sensor.log.gz")
	if err := os.WriteFile(gz, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	res := run(t, "", "convert", "--config", sensorConfig, gz)
	if res.err != nil {
		t.Fatalf("convert error = %v", res.err)
	}
	if got := strings.Count(res.stdout, "INSERT INTO"); got != 7 {
		t.Errorf("Got %d statements, want 7", got)
	}
}

// TestE2E_MissingInputSkipped reports a missing file and carries on.
func TestE2E_MissingInputSkipped(t *testing.T) {
	chdir(t)

	missing := filepath.Join(t.TempDir(), "nope.log")
	res := run(t, "", "convert", "--config", sensorConfig, missing, sensorLog)
	if res.err != nil {
		t.Fatalf("convert error = %v", res.err)
	}
	if !strings.Contains(res.stderr, "input not found") || !strings.Contains(res.stderr, "nope.log") {
		t.Errorf("stderr = %q, want missing input warning", res.stderr)
	}
	if got := strings.Count(res.stdout, "INSERT INTO"); got != 7 {
		t.Errorf("Got %d statements, want 7", got)
	}
}

func TestE2E_NoReadableInputs(t *testing.T) {
	res := run(t, "", "convert", "-t", "[a]", "-d", "t(a string)", filepath.Join(t.TempDir(), "nope.log"))
	if res.err == nil {
		t.Error("convert expected error when no input exists")
	}
}

func TestE2E_NoInputs(t *testing.T) {
	res := run(t, "", "convert", "-t", "[a]", "-d", "t(a string)")
	if res.err == nil || !strings.Contains(res.err.Error(), "no inputs") {
		t.Errorf("convert error = %v, want no inputs error", res.err)
	}
}

func TestE2E_InvalidTemplate(t *testing.T) {
	res := run(t, "", "convert", "-t", "[a [b]]", "-d", "t(a string)", "-")
	if !errors.Is(res.err, errdefs.ErrStructuralConfig) {
		t.Errorf("convert error = %v, want ErrStructuralConfig", res.err)
	}
	if res.stdout != "" {
		t.Errorf("stdout = %q, want nothing", res.stdout)
	}
}

func TestE2E_ExistingTableMismatch(t *testing.T) {
	db := filepath.Join(t.TempDir(), "events.db")
	st, err := store.Open(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.DB().Exec(`CREATE TABLE events (who TEXT, what TEXT)`); err != nil {
		t.Fatal(err)
	}
	st.Close()

	res := run(t, "user=alice\n", "convert", "-t", "user=[user:word]", "-d", "events(user string)", "-s", db, "-")
	if !errors.Is(res.err, errdefs.ErrStructuralConfig) {
		t.Fatalf("convert error = %v, want ErrStructuralConfig", res.err)
	}
	if !strings.Contains(res.err.Error(), "who") {
		t.Errorf("error = %v, want existing columns listed", res.err)
	}
	if got := countRows(t, db, "events"); got != 0 {
		t.Errorf("rows = %d, want 0", got)
	}
}

func TestE2E_SummaryText(t *testing.T) {
	chdir(t)

	res := run(t, "", "convert", "--config", sensorConfig, "--summary", "text")
	if res.err != nil {
		t.Fatalf("convert error = %v", res.err)
	}
	if !strings.Contains(res.stderr, "9 lines read, 7 inserted, 2 skipped") {
		t.Errorf("stderr = %q, want text summary", res.stderr)
	}
}

func TestE2E_SummaryUnknownFormat(t *testing.T) {
	chdir(t)

	res := run(t, "", "convert", "--config", sensorConfig, "--summary", "xml")
	if res.err == nil {
		t.Error("convert expected error for unknown summary format")
	}
	if res.stdout != "" {
		t.Error("convert wrote statements before rejecting the summary format")
	}
}

func TestE2E_Validate(t *testing.T) {
	chdir(t)

	res := run(t, "", "validate", "--config", sensorConfig, "-v")
	if res.err != nil {
		t.Fatalf("validate error = %v", res.err)
	}
	for _, want := range []string{
		"Configuration valid!",
		"1. day (date)",
		"3. sensor (word)",
		"3. temp number(5.2)",
		"CREATE TABLE \"readings\"",
	} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("validate output missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestE2E_Validate_Invalid(t *testing.T) {
	res := run(t, "", "validate", "-t", "[a]", "-d", "log(a blob)")
	if !errors.Is(res.err, errdefs.ErrStructuralConfig) {
		t.Errorf("validate error = %v, want ErrStructuralConfig", res.err)
	}
}

func TestE2E_Diagnose(t *testing.T) {
	chdir(t)

	db := filepath.Join(t.TempDir(), "readings.db")
	res := run(t, "", "diagnose", "--config", sensorConfig, "-s", db)
	if res.err != nil {
		t.Fatalf("diagnose error = %v", res.err)
	}
	for _, want := range []string{
		"[PASS] Config File",
		"[PASS] Configuration",
		"[PASS] Input: " + sensorLog,
		"Rows produced from 7/9 sample lines",
		"Database will be created",
		"Keyed on datetime column at",
	} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("diagnose output missing %q:\n%s", want, res.stdout)
		}
	}
	if _, err := os.Stat(db); !os.IsNotExist(err) {
		t.Error("diagnose created the database")
	}
}

func TestE2E_Diagnose_NoDatetime(t *testing.T) {
	chdir(t)

	res := run(t, "", "diagnose",
		"-t", "[day:date] [clock:time] sensor=[sensor:word]",
		"-d", "readings(clock time, sensor string)",
		"-s", filepath.Join(t.TempDir(), "readings.db"),
		sensorLog)
	if res.err != nil {
		t.Fatalf("diagnose error = %v", res.err)
	}
	if !strings.Contains(res.stdout, "[WARN] Duplicate Removal") {
		t.Errorf("diagnose output missing duplicate removal warning:\n%s", res.stdout)
	}
}

func TestE2E_Diagnose_InvalidConfig(t *testing.T) {
	res := run(t, "", "diagnose", "-t", "[a", "-d", "log(a string)")
	if res.err != nil {
		t.Fatalf("diagnose error = %v", res.err)
	}
	if !strings.Contains(res.stdout, "[FAIL] Configuration") {
		t.Errorf("diagnose output missing failure:\n%s", res.stdout)
	}
}

func TestE2E_Diagnose_NonexistentConfig(t *testing.T) {
	res := run(t, "", "diagnose", "--config", "/nonexistent/log2sql.yaml")
	if res.err != nil {
		t.Fatalf("diagnose error = %v", res.err)
	}
	if !strings.Contains(res.stdout, "Config file not found") {
		t.Errorf("diagnose output missing config error:\n%s", res.stdout)
	}
}

func TestE2E_Info(t *testing.T) {
	res := run(t, "", "info")
	if res.err != nil {
		t.Fatalf("info error = %v", res.err)
	}
	for _, want := range []string{"[name:kind]", "NUMBER(a.b)", "DATETIME"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("info output missing %q", want)
		}
	}
}

func TestE2E_Version(t *testing.T) {
	res := run(t, "", "version")
	if res.err != nil {
		t.Fatalf("version error = %v", res.err)
	}
	if !strings.HasPrefix(res.stdout, "log2sql ") {
		t.Errorf("version output = %q", res.stdout)
	}
}
