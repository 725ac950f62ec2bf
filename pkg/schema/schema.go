// Package schema parses schema descriptions of the form
//
//	table(col type, col type, ...)
//
// where type is one of string, integer, number(a.b), real, date, time or
// datetime. Type keywords are case-insensitive.
package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ccollicutt/log2sql/pkg/errdefs"
)

// DefaultTable is used when the description has no table name.
const DefaultTable = "aTable"

// TypeKind is the coercion target of a column.
type TypeKind string

const (
	TypeString   TypeKind = "string"
	TypeInteger  TypeKind = "integer"
	TypeNumber   TypeKind = "number"
	TypeReal     TypeKind = "real"
	TypeDate     TypeKind = "date"
	TypeTime     TypeKind = "time"
	TypeDatetime TypeKind = "datetime"
	TypeUnknown  TypeKind = ""
)

var numberRe = regexp.MustCompile(`^number\((\d*)[.,](\d+)\)$`)

// Column is one declared column.
type Column struct {
	// Name is the column name as written.
	Name string

	// Type is the lower-cased type token, e.g. "number(5.2)".
	Type string

	// Constraints holds any tokens after the type, e.g. "not null".
	Constraints string
}

// Kind returns the coercion target of the column.
func (c Column) Kind() TypeKind {
	if strings.HasPrefix(c.Type, string(TypeNumber)) {
		return TypeNumber
	}
	switch k := TypeKind(c.Type); k {
	case TypeString, TypeInteger, TypeReal, TypeDate, TypeTime, TypeDatetime:
		return k
	}
	return TypeUnknown
}

// NumberFormat returns the precision and scale of a number(a.b) column.
// ok is false when the annotation is malformed.
func (c Column) NumberFormat() (precision, scale int, ok bool) {
	m := numberRe.FindStringSubmatch(c.Type)
	if m == nil {
		return 0, 0, false
	}
	if m[1] != "" {
		precision, _ = strconv.Atoi(m[1])
	}
	scale, _ = strconv.Atoi(m[2])
	return precision, scale, true
}

// StorageType maps the column type to a native SQLite type.
func (c Column) StorageType() string {
	switch c.Kind() {
	case TypeInteger:
		return "INTEGER"
	case TypeNumber, TypeReal:
		return "REAL"
	case TypeString, TypeDate, TypeTime, TypeDatetime:
		return "TEXT"
	default:
		return strings.ToUpper(c.Type)
	}
}

// Description is a parsed schema description. It is immutable.
type Description struct {
	Table   string
	Columns []Column
}

// Parse parses a schema description. Surrounding quotes are ignored.
func Parse(desc string) (*Description, error) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(desc), `"'`))
	if s == "" {
		return nil, schemaErr("empty schema description")
	}

	table, rest := s, ""
	if i := strings.IndexByte(s, '('); i >= 0 {
		table, rest = s[:i], s[i:]
	}
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultTable
	}

	rest = strings.TrimSpace(rest)
	if rest != "" {
		if !strings.HasSuffix(rest, ")") {
			return nil, schemaErr("unbalanced parentheses in %q", s)
		}
		rest = rest[1 : len(rest)-1]
	}

	d := &Description{Table: table}
	seen := make(map[string]bool)

	for _, entry := range splitTopLevel(rest) {
		col, err := parseColumn(entry)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(col.Name)
		if seen[key] {
			return nil, schemaErr("duplicate column %q", col.Name)
		}
		seen[key] = true
		d.Columns = append(d.Columns, col)
	}

	return d, nil
}

func parseColumn(entry string) (Column, error) {
	tokens := strings.Fields(entry)
	switch len(tokens) {
	case 0:
		return Column{}, schemaErr("empty column entry")
	case 1:
		return Column{}, schemaErr("column %q has no type", tokens[0])
	}

	typ, i := tokens[1], 2
	for strings.Count(typ, "(") > strings.Count(typ, ")") && i < len(tokens) {
		typ += tokens[i]
		i++
	}

	return Column{
		Name:        tokens[0],
		Type:        strings.ToLower(typ),
		Constraints: strings.Join(tokens[i:], " "),
	}, nil
}

// splitTopLevel splits on commas that are not inside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func schemaErr(format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", errdefs.ErrStructuralConfig, errdefs.ErrSchema, fmt.Sprintf(format, args...))
}

// Column returns the column with the given name, compared case-insensitively.
func (d *Description) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnsOfKind returns the columns with the given coercion target.
func (d *Description) ColumnsOfKind(k TypeKind) []Column {
	var out []Column
	for _, c := range d.Columns {
		if c.Kind() == k {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the column names in declaration order.
func (d *Description) Names() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// String re-expresses the description in the mini-language.
func (d *Description) String() string {
	cols := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = c.Name + " " + c.Type
		if c.Constraints != "" {
			cols[i] += " " + c.Constraints
		}
	}
	return d.Table + "(" + strings.Join(cols, ", ") + ")"
}

// CreateSQL renders the CREATE TABLE statement for the description.
func (d *Description) CreateSQL() string {
	cols := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = QuoteIdent(c.Name) + " " + c.StorageType()
		if c.Constraints != "" {
			cols[i] += " " + c.Constraints
		}
	}
	return "CREATE TABLE " + QuoteIdent(d.Table) + " (" + strings.Join(cols, ", ") + ")"
}

// QuoteIdent double-quotes an identifier so keywords and odd names are safe.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
