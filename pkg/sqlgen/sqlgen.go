// Package sqlgen renders typed rows into INSERT statements.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/ccollicutt/log2sql/pkg/errdefs"
	"github.com/ccollicutt/log2sql/pkg/resolve"
	"github.com/ccollicutt/log2sql/pkg/schema"
)

// Statement is one INSERT for one row.
type Statement struct {
	Table   string
	Columns []string
	Values  []resolve.Value
}

// Query returns the statement with ? placeholders.
func (s *Statement) Query() string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(s.Columns)), ", ")
	return s.prefix() + marks + ")"
}

// Args returns the values bound to the placeholders of Query.
func (s *Statement) Args() []any {
	args := make([]any, len(s.Values))
	for i, v := range s.Values {
		args[i] = v.Arg
	}
	return args
}

// String renders the statement with literal values.
func (s *Statement) String() string {
	lits := make([]string, len(s.Values))
	for i, v := range s.Values {
		lits[i] = v.Literal
	}
	return s.prefix() + strings.Join(lits, ", ") + ")"
}

func (s *Statement) prefix() string {
	cols := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = schema.QuoteIdent(c)
	}
	return "INSERT INTO " + schema.QuoteIdent(s.Table) + " (" + strings.Join(cols, ", ") + ") VALUES ("
}

// Builder builds statements against a fixed column list.
type Builder struct {
	table   string
	columns []schema.Column
}

// New creates a builder. columns is the usable column set in schema order.
func New(table string, columns []schema.Column) *Builder {
	return &Builder{table: table, columns: columns}
}

// Columns returns the columns the builder writes.
func (b *Builder) Columns() []schema.Column {
	return b.columns
}

// Build renders one row. Every column must have a value; a missing one,
// such as a datetime that could not be synthesized, fails the row.
func (b *Builder) Build(row resolve.Row) (*Statement, error) {
	stmt := &Statement{
		Table:   b.table,
		Columns: make([]string, 0, len(b.columns)),
		Values:  make([]resolve.Value, 0, len(b.columns)),
	}

	for _, c := range b.columns {
		v, ok := row[c.Name]
		if !ok {
			return nil, fmt.Errorf("column %q has no value: %w", c.Name, errdefs.ErrFieldNotFound)
		}
		stmt.Columns = append(stmt.Columns, c.Name)
		stmt.Values = append(stmt.Values, v)
	}

	return stmt, nil
}
