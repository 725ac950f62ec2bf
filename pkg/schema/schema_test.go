package schema

import (
	"errors"
	"testing"

	"github.com/ccollicutt/log2sql/pkg/errdefs"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		desc  string
		table string
		cols  []Column
	}{
		{
			name:  "basic",
			desc:  "log(ts TIME, t REAL)",
			table: "log",
			cols:  []Column{{Name: "ts", Type: "time"}, {Name: "t", Type: "real"}},
		},
		{
			name:  "surrounding quotes",
			desc:  `"readings(when DATETIME, v INTEGER)"`,
			table: "readings",
			cols:  []Column{{Name: "when", Type: "datetime"}, {Name: "v", Type: "integer"}},
		},
		{
			name:  "default table name",
			desc:  "(msg String)",
			table: DefaultTable,
			cols:  []Column{{Name: "msg", Type: "string"}},
		},
		{
			name:  "number with dot",
			desc:  "m(v NUMBER(5.2))",
			table: "m",
			cols:  []Column{{Name: "v", Type: "number(5.2)"}},
		},
		{
			name:  "number with comma and spaces",
			desc:  "m(v NUMBER(5, 2), w integer)",
			table: "m",
			cols:  []Column{{Name: "v", Type: "number(5,2)"}, {Name: "w", Type: "integer"}},
		},
		{
			name:  "constraints kept",
			desc:  "m(id INTEGER not null, Name string)",
			table: "m",
			cols:  []Column{{Name: "id", Type: "integer", Constraints: "not null"}, {Name: "Name", Type: "string"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.desc)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if d.Table != tt.table {
				t.Errorf("Table = %q, want %q", d.Table, tt.table)
			}
			if len(d.Columns) != len(tt.cols) {
				t.Fatalf("Columns = %v, want %v", d.Columns, tt.cols)
			}
			for i := range d.Columns {
				if d.Columns[i] != tt.cols[i] {
					t.Errorf("Columns[%d] = %+v, want %+v", i, d.Columns[i], tt.cols[i])
				}
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		desc string
	}{
		{"empty", ""},
		{"only quotes", `  ""  `},
		{"missing type", "log(ts TIME, t)"},
		{"no columns", "log"},
		{"empty entry", "log(a int,,b int)"},
		{"duplicate column", "log(a int, A real)"},
		{"unclosed paren", "log(a int, b real"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.desc)
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !errors.Is(err, errdefs.ErrSchema) || !errors.Is(err, errdefs.ErrStructuralConfig) {
				t.Errorf("Parse() error = %v, want ErrSchema and ErrStructuralConfig", err)
			}
		})
	}
}

// Parsing the re-expressed description gives the same name to type mapping.
func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		"log(ts TIME, t REAL)",
		"events(when DateTime, level STRING, code Integer, load number(4.1))",
		"(a date, b time)",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first, err := Parse(in)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			second, err := Parse(first.String())
			if err != nil {
				t.Fatalf("Parse(String()) error = %v", err)
			}

			want := make(map[string]string)
			for _, c := range first.Columns {
				want[c.Name] = c.Type
			}
			if len(second.Columns) != len(want) {
				t.Fatalf("round trip has %d columns, want %d", len(second.Columns), len(want))
			}
			for _, c := range second.Columns {
				if want[c.Name] != c.Type {
					t.Errorf("column %s type = %q, want %q", c.Name, c.Type, want[c.Name])
				}
			}
			if second.Table != first.Table {
				t.Errorf("Table = %q, want %q", second.Table, first.Table)
			}
		})
	}
}

func TestColumn_Kind(t *testing.T) {
	tests := []struct {
		typ  string
		want TypeKind
	}{
		{"string", TypeString},
		{"integer", TypeInteger},
		{"number(5.2)", TypeNumber},
		{"number", TypeNumber},
		{"real", TypeReal},
		{"date", TypeDate},
		{"time", TypeTime},
		{"datetime", TypeDatetime},
		{"varchar(20)", TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			if got := (Column{Name: "c", Type: tt.typ}).Kind(); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColumn_NumberFormat(t *testing.T) {
	tests := []struct {
		typ       string
		precision int
		scale     int
		ok        bool
	}{
		{"number(5.2)", 5, 2, true},
		{"number(10,3)", 10, 3, true},
		{"number(.1)", 0, 1, true},
		{"number", 0, 0, false},
		{"number(5)", 0, 0, false},
		{"number(a.b)", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			p, s, ok := Column{Type: tt.typ}.NumberFormat()
			if ok != tt.ok || p != tt.precision || s != tt.scale {
				t.Errorf("NumberFormat() = (%d, %d, %v), want (%d, %d, %v)", p, s, ok, tt.precision, tt.scale, tt.ok)
			}
		})
	}
}

func TestDescription_CreateSQL(t *testing.T) {
	d, err := Parse("log(when DATETIME, level string, n number(5.2) not null, c INTEGER, t time)")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := `CREATE TABLE "log" ("when" TEXT, "level" TEXT, "n" REAL not null, "c" INTEGER, "t" TEXT)`
	if got := d.CreateSQL(); got != want {
		t.Errorf("CreateSQL() =\n%s\nwant\n%s", got, want)
	}
}

func TestDescription_Lookup(t *testing.T) {
	d, err := Parse("log(When DATETIME, v real)")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	c, ok := d.Column("when")
	if !ok || c.Name != "When" {
		t.Errorf("Column(when) = %+v, %v", c, ok)
	}
	if got := d.ColumnsOfKind(TypeDatetime); len(got) != 1 {
		t.Errorf("ColumnsOfKind(datetime) = %v", got)
	}
	if got := d.Names(); len(got) != 2 || got[0] != "When" || got[1] != "v" {
		t.Errorf("Names() = %v", got)
	}
}

func TestQuoteIdent(t *testing.T) {
	tests := map[string]string{
		"temp":   `"temp"`,
		"when":   `"when"`,
		"my col": `"my col"`,
		`a"b`:    `"a""b"`,
	}
	for in, want := range tests {
		if got := QuoteIdent(in); got != want {
			t.Errorf("QuoteIdent(%q) = %q, want %q", in, got, want)
		}
	}
}
