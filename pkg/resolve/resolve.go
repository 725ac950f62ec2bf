// Package resolve converts matched raw records into typed rows.
package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/ccollicutt/log2sql/pkg/errdefs"
	"github.com/ccollicutt/log2sql/pkg/schema"
	"github.com/ccollicutt/log2sql/pkg/template"
)

// Default strftime formats for date and time fields.
const (
	DefaultDateFormat = "%Y-%m-%d"
	DefaultTimeFormat = "%H:%M:%S"
)

// ISO output layouts.
const (
	isoDate     = "2006-01-02"
	isoTime     = "15:04:05"
	isoDatetime = "2006-01-02 15:04:05"
)

// Options holds the strftime formats used to read date and time fields.
type Options struct {
	DateFormat string
	TimeFormat string
}

// Value is one store-ready column value.
type Value struct {
	// Literal is the value rendered as an SQL literal.
	Literal string

	// Arg is the value bound to a statement parameter.
	Arg any
}

// Row maps column names, as declared in the schema, to values.
// A synthesized datetime column is absent when no date could be read.
type Row map[string]Value

// Resolver turns raw records into rows for one template and schema.
type Resolver struct {
	desc  *schema.Description
	opts  Options
	names template.Options

	dates  []template.FieldSpec
	times  []template.FieldSpec
	jsonFs []template.FieldSpec

	// aliases maps a normalized column name to a field name that keeps
	// its case, such as an auto-numbered Field2.
	aliases map[string]string
}

// New creates a resolver. It fails when a column type is not supported.
func New(tmpl *template.Template, desc *schema.Description, opts Options) (*Resolver, error) {
	for _, c := range desc.Columns {
		if c.Kind() == schema.TypeUnknown {
			return nil, fmt.Errorf("%w: column %q has unsupported type %q (use string, integer, number(a.b), real, date, time or datetime)",
				errdefs.ErrStructuralConfig, c.Name, c.Type)
		}
	}

	if opts.DateFormat == "" {
		opts.DateFormat = DefaultDateFormat
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = DefaultTimeFormat
	}

	names := tmpl.Options()
	aliases := make(map[string]string)
	for _, f := range tmpl.Fields() {
		if n := names.NormalizeName(f.Name); n != f.Name {
			aliases[n] = f.Name
		}
	}

	return &Resolver{
		desc:    desc,
		opts:    opts,
		names:   names,
		dates:   tmpl.FieldsOfKind(template.KindDate),
		times:   tmpl.FieldsOfKind(template.KindTime),
		jsonFs:  tmpl.FieldsOfKind(template.KindJSON),
		aliases: aliases,
	}, nil
}

// Resolve converts one raw record. Errors are row-local and wrap either
// errdefs.ErrFieldNotFound or errdefs.ErrTypeCoercion.
func (r *Resolver) Resolve(raw template.RawRecord) (Row, error) {
	rec := r.expand(raw)
	row := make(Row, len(r.desc.Columns))

	for _, col := range r.desc.Columns {
		if col.Kind() == schema.TypeDatetime {
			if v, ok := r.datetime(rec); ok {
				row[col.Name] = v
			}
			continue
		}

		field := r.names.NormalizeName(col.Name)
		s, ok := rec[field]
		if !ok {
			s, ok = rec[r.aliases[field]]
		}
		if !ok {
			return nil, &FieldNotFoundError{Column: col.Name, Field: field}
		}

		v, err := r.coerce(col, s)
		if err != nil {
			return nil, &CoercionError{Column: col.Name, Type: col.Type, Value: s, Err: err}
		}
		row[col.Name] = v
	}

	return row, nil
}

// expand merges decoded json fields into a copy of the record.
// Values that are not json objects are left alone.
func (r *Resolver) expand(raw template.RawRecord) template.RawRecord {
	if len(r.jsonFs) == 0 {
		return raw
	}

	rec := maps.Clone(raw)
	for _, f := range r.jsonFs {
		s, ok := raw[f.Name]
		if !ok {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			continue
		}

		for k, v := range obj {
			if v == nil {
				continue
			}
			rec[r.names.NormalizeName(k)] = jsonText(v)
		}
	}
	return rec
}

func jsonText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func (r *Resolver) coerce(col schema.Column, s string) (Value, error) {
	switch col.Kind() {
	case schema.TypeString:
		return Value{Literal: quote(s), Arg: s}, nil

	case schema.TypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Value{}, err
		}
		return Value{Literal: strconv.FormatInt(n, 10), Arg: n}, nil

	case schema.TypeNumber:
		_, scale, ok := col.NumberFormat()
		if !ok {
			return Value{}, errMalformedNumber
		}
		lit, err := roundDecimal(strings.TrimSpace(s), scale)
		if err != nil {
			return Value{}, err
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return Value{}, err
		}
		return Value{Literal: lit, Arg: f}, nil

	case schema.TypeReal:
		f, err := parseFinite(strings.TrimSpace(s))
		if err != nil {
			return Value{}, err
		}
		return Value{Literal: strconv.FormatFloat(f, 'e', 6, 64), Arg: f}, nil

	case schema.TypeDate:
		t, err := strftime.Parse(r.opts.DateFormat, s)
		if err != nil {
			return Value{}, err
		}
		iso := t.Format(isoDate)
		return Value{Literal: quote(iso), Arg: iso}, nil

	case schema.TypeTime:
		t, err := strftime.Parse(r.opts.TimeFormat, s)
		if err != nil {
			return Value{}, err
		}
		iso := t.Format(isoTime)
		return Value{Literal: quote(iso), Arg: iso}, nil

	default:
		return Value{}, fmt.Errorf("unsupported type %q", col.Type)
	}
}

// datetime combines the first date field that parses with the first time
// field that parses. Without a date there is no value.
func (r *Resolver) datetime(rec template.RawRecord) (Value, bool) {
	var date time.Time
	found := false
	for _, f := range r.dates {
		s, ok := rec[f.Name]
		if !ok {
			continue
		}
		if d, err := strftime.Parse(r.opts.DateFormat, s); err == nil {
			date, found = d, true
			break
		}
	}
	if !found {
		return Value{}, false
	}

	var clock time.Time
	for _, f := range r.times {
		s, ok := rec[f.Name]
		if !ok {
			continue
		}
		if c, err := strftime.Parse(r.opts.TimeFormat, s); err == nil {
			clock = c
			break
		}
	}

	dt := time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
	iso := dt.Format(isoDatetime)
	return Value{Literal: quote(iso), Arg: iso}, true
}

// roundDecimal formats s with exactly scale fraction digits, rounding
// half away from zero on the decimal text.
func roundDecimal(s string, scale int) (string, error) {
	f, err := parseFinite(s)
	if err != nil {
		return "", err
	}
	rat, ok := new(big.Rat).SetString(s)
	if !ok {
		rat = new(big.Rat).SetFloat64(f)
	}
	return rat.FloatString(scale), nil
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errors.New("not a finite number")
	}
	return f, nil
}

// quote renders s as a single-quoted SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
