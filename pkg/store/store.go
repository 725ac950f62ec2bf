// Package store manages the embedded SQLite database rows are written to.
//
// The store is opened with a single connection; every mutation of a run goes
// through it in order.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/ccollicutt/log2sql/pkg/errdefs"
	"github.com/ccollicutt/log2sql/pkg/schema"
	"github.com/ccollicutt/log2sql/pkg/sqlgen"
)

// DriverName is the database/sql driver used for the store.
const DriverName = "sqlite"

// DefaultExtension is appended to store paths that have none.
const DefaultExtension = ".db"

// Path returns the store file path, adding DefaultExtension when p has no
// extension.
func Path(p string) string {
	if filepath.Ext(p) == "" {
		return p + DefaultExtension
	}
	return p
}

// Store is an open SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("opening store %s: %w", path, err), closeErr)
	}

	return &Store{db: db, path: path}, nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ColumnInfo describes one column of an existing table.
type ColumnInfo struct {
	Name string
	Type string
}

// TableColumns returns the columns of table. exists is false when there is
// no such table.
func (s *Store) TableColumns(ctx context.Context, table string) (cols []ColumnInfo, exists bool, err error) {
	var name string
	err = s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("looking up table %s: %w", table, err)
	}

	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+schema.QuoteIdent(table)+")")
	if err != nil {
		return nil, true, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			ci         ColumnInfo
			notNull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &ci.Name, &ci.Type, &notNull, &dflt, &primaryKey); err != nil {
			return nil, true, fmt.Errorf("reading columns of %s: %w", table, err)
		}
		cols = append(cols, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, true, fmt.Errorf("reading columns of %s: %w", table, err)
	}

	return cols, true, nil
}

// MismatchError reports an existing table that does not fit the schema.
type MismatchError struct {
	Table    string
	Existing []ColumnInfo
	Schema   []schema.Column
	Usable   []schema.Column
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "existing table %s and schema description do not match (%d of %d columns usable). Existing columns:",
		e.Table, len(e.Usable), len(e.Schema))
	for _, c := range e.Existing {
		fmt.Fprintf(&b, "\n  %s %s", c.Name, c.Type)
	}
	return b.String()
}

func (e *MismatchError) Unwrap() error {
	return errdefs.ErrStructuralConfig
}

// Prepare makes sure the schema's table exists and returns the usable
// columns in schema order. A new table is created from the description.
// An existing table must carry every schema column.
func (s *Store) Prepare(ctx context.Context, desc *schema.Description) ([]schema.Column, error) {
	existing, exists, err := s.TableColumns(ctx, desc.Table)
	if err != nil {
		return nil, err
	}

	if !exists {
		if _, err := s.db.ExecContext(ctx, desc.CreateSQL()); err != nil {
			return nil, fmt.Errorf("%w: schema description cannot be used to create table %s: %v",
				errdefs.ErrStructuralConfig, desc.Table, err)
		}
		return desc.Columns, nil
	}

	usable := UsableColumns(desc.Columns, existing)
	if len(usable) != len(desc.Columns) {
		return nil, &MismatchError{
			Table:    desc.Table,
			Existing: existing,
			Schema:   desc.Columns,
			Usable:   usable,
		}
	}
	return usable, nil
}

// UsableColumns returns the schema columns that exist in the table, in
// schema order. Names compare case-insensitively, as SQLite does.
func UsableColumns(want []schema.Column, existing []ColumnInfo) []schema.Column {
	var usable []schema.Column
	for _, c := range want {
		for _, e := range existing {
			if strings.EqualFold(c.Name, e.Name) {
				usable = append(usable, c)
				break
			}
		}
	}
	return usable
}

// Writer executes statements inside one transaction.
type Writer struct {
	tx    *sql.Tx
	stmts map[string]*sql.Stmt
}

// Begin starts a transaction for a batch of inserts.
func (s *Store) Begin(ctx context.Context) (*Writer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &Writer{tx: tx, stmts: make(map[string]*sql.Stmt)}, nil
}

// Write executes one statement with bound arguments. A failure concerns only
// this row and wraps errdefs.ErrRowRejected.
func (w *Writer) Write(ctx context.Context, stmt *sqlgen.Statement) error {
	query := stmt.Query()
	prepared, ok := w.stmts[query]
	if !ok {
		var err error
		prepared, err = w.tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("%w: preparing %s: %v", errdefs.ErrRowRejected, query, err)
		}
		w.stmts[query] = prepared
	}

	if _, err := prepared.ExecContext(ctx, stmt.Args()...); err != nil {
		return fmt.Errorf("%w: %v", errdefs.ErrRowRejected, err)
	}
	return nil
}

// Commit commits every row written so far.
func (w *Writer) Commit() error {
	w.closeStatements()
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("committing rows: %w", err)
	}
	return nil
}

// Rollback discards the transaction. It is a no-op after Commit.
func (w *Writer) Rollback() error {
	w.closeStatements()
	if err := w.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (w *Writer) closeStatements() {
	for q, st := range w.stmts {
		_ = st.Close()
		delete(w.stmts, q)
	}
}
