// Package dedup removes duplicate and midpoint rows once a table is fully
// populated.
//
// Both passes key on the table's single datetime column. The duplicate pass
// keeps the earliest inserted row of each datetime. The midpoint pass then
// deletes every row whose predecessor and successor, in datetime order, hold
// the same values on all other columns. Neighbors are evaluated on the whole
// table at once, so the passes must only run after all input is written.
package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ccollicutt/log2sql/pkg/errdefs"
	"github.com/ccollicutt/log2sql/pkg/schema"
)

// Execer runs statements. *sql.DB and *sql.Tx satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Options toggles the passes.
type Options struct {
	// KeepDuplicates skips the duplicate pass, and with it the midpoint pass.
	KeepDuplicates bool

	// KeepMidpoints skips the midpoint pass.
	KeepMidpoints bool
}

// Result reports what the passes did.
type Result struct {
	DuplicatesRan     bool
	MidpointsRan      bool
	DuplicatesDeleted int64
	MidpointsDeleted  int64
}

// PreconditionError reports a table without exactly one datetime column.
type PreconditionError struct {
	Table   string
	Columns []schema.Column
	Found   int
}

func (e *PreconditionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "removing duplicates from %s needs exactly one datetime column, found %d. Usable columns:",
		e.Table, e.Found)
	for _, c := range e.Columns {
		fmt.Fprintf(&b, "\n  %s %s", c.Name, c.Type)
	}
	return b.String()
}

func (e *PreconditionError) Unwrap() error {
	return errdefs.ErrDedupPrecondition
}

// Engine runs the passes against one table.
type Engine struct {
	db      Execer
	table   string
	columns []schema.Column
	logger  *slog.Logger
}

// New creates an engine. columns is the usable column set of the table.
func New(db Execer, table string, columns []schema.Column, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{db: db, table: table, columns: columns, logger: logger}
}

// DatetimeColumn returns the column both passes key on.
func (e *Engine) DatetimeColumn() (schema.Column, error) {
	var found []schema.Column
	for _, c := range e.columns {
		if c.Kind() == schema.TypeDatetime {
			found = append(found, c)
		}
	}
	if len(found) != 1 {
		return schema.Column{}, &PreconditionError{Table: e.table, Columns: e.columns, Found: len(found)}
	}
	return found[0], nil
}

// Run executes the enabled passes. With KeepDuplicates set nothing runs and
// no datetime column is required.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}
	if opts.KeepDuplicates {
		return res, nil
	}

	n, err := e.DeleteDuplicates(ctx)
	if err != nil {
		return res, err
	}
	res.DuplicatesRan = true
	res.DuplicatesDeleted = n

	if opts.KeepMidpoints {
		return res, nil
	}

	n, err = e.DeleteMidpoints(ctx)
	if err != nil {
		return res, err
	}
	res.MidpointsRan = true
	res.MidpointsDeleted = n

	return res, nil
}

// DuplicatesSQL returns the duplicate pass statement.
func (e *Engine) DuplicatesSQL() (string, error) {
	dt, err := e.DatetimeColumn()
	if err != nil {
		return "", err
	}
	t, c := schema.QuoteIdent(e.table), schema.QuoteIdent(dt.Name)
	return fmt.Sprintf(
		"DELETE FROM %[1]s WHERE EXISTS (SELECT 1 FROM %[1]s AS older WHERE older.%[2]s = %[1]s.%[2]s AND older.rowid < %[1]s.rowid)",
		t, c), nil
}

// DeleteDuplicates keeps only the earliest inserted row per datetime value.
func (e *Engine) DeleteDuplicates(ctx context.Context) (int64, error) {
	query, err := e.DuplicatesSQL()
	if err != nil {
		return 0, err
	}
	return e.exec(ctx, "duplicates", query)
}

// MidpointsSQL returns the midpoint pass statement.
func (e *Engine) MidpointsSQL() (string, error) {
	dt, err := e.DatetimeColumn()
	if err != nil {
		return "", err
	}

	selects := []string{
		"rowid AS rid",
		"LAG(rowid) OVER w AS prev_rid",
		"LEAD(rowid) OVER w AS next_rid",
	}
	conds := []string{"prev_rid IS NOT NULL", "next_rid IS NOT NULL"}

	i := 0
	for _, c := range e.columns {
		if c.Name == dt.Name {
			continue
		}
		col := schema.QuoteIdent(c.Name)
		selects = append(selects,
			fmt.Sprintf("%s AS cur_%d", col, i),
			fmt.Sprintf("LAG(%s) OVER w AS prev_%d", col, i),
			fmt.Sprintf("LEAD(%s) OVER w AS next_%d", col, i),
		)
		conds = append(conds, fmt.Sprintf("prev_%[1]d IS cur_%[1]d AND cur_%[1]d IS next_%[1]d", i))
		i++
	}

	t := schema.QuoteIdent(e.table)
	return fmt.Sprintf(
		"DELETE FROM %s WHERE rowid IN (SELECT rid FROM (SELECT %s FROM %s WINDOW w AS (ORDER BY %s, rowid)) WHERE %s)",
		t, strings.Join(selects, ", "), t, schema.QuoteIdent(dt.Name), strings.Join(conds, " AND ")), nil
}

// DeleteMidpoints deletes rows that sit inside a run of identical readings.
// The first and last rows by datetime are never deleted.
func (e *Engine) DeleteMidpoints(ctx context.Context) (int64, error) {
	query, err := e.MidpointsSQL()
	if err != nil {
		return 0, err
	}
	return e.exec(ctx, "midpoints", query)
}

func (e *Engine) exec(ctx context.Context, pass, query string) (int64, error) {
	e.logger.Debug("dedup pass", "pass", pass, "sql", query)

	res, err := e.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("removing %s from %s: %w", pass, e.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("removing %s from %s: %w", pass, e.table, err)
	}

	e.logger.Info("dedup pass complete", "pass", pass, "deleted", n)
	return n, nil
}
