package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ccollicutt/log2sql/pkg/errdefs"
)

// Capture sub-patterns per kind.
const (
	stringPattern = `('[^']*'|"[^"]*"|\S+)`
	wordPattern   = `(\S+)`
)

// Template is a compiled line template. It is immutable and safe to share.
type Template struct {
	source  string
	pattern *regexp.Regexp
	fields  []FieldSpec
	opts    Options
}

// Compile turns a template string into a line matcher.
// It fails only on bracket syntax errors, or on a repeated field name when
// the duplicate policy is DuplicateReject.
func Compile(tmpl string, opts Options) (*Template, error) {
	switch opts.Duplicates {
	case "":
		opts.Duplicates = DuplicateReject
	case DuplicateReject, DuplicateLastWins:
	default:
		return nil, fmt.Errorf("%w: invalid duplicate field policy %q (must be reject or last-wins)",
			errdefs.ErrStructuralConfig, opts.Duplicates)
	}

	literals, bodies, err := scan(tmpl)
	if err != nil {
		return nil, err
	}

	var expr strings.Builder
	fields := make([]FieldSpec, 0, len(bodies))
	seen := make(map[string]bool, len(bodies))

	for i, body := range bodies {
		expr.WriteString(regexp.QuoteMeta(literals[i]))

		name, declared, _ := strings.Cut(body, ":")
		name = opts.NormalizeName(strings.TrimSpace(name))
		if name == "" {
			name = fmt.Sprintf("Field%d", i+1)
		}

		key := opts.NormalizeName(name)
		if seen[key] && opts.Duplicates == DuplicateReject {
			return nil, fmt.Errorf("%w: template: duplicate field name %q, use unique names",
				errdefs.ErrStructuralConfig, name)
		}
		seen[key] = true

		declared = strings.ToLower(strings.TrimSpace(declared))
		kind := kindOf(declared)
		fields = append(fields, FieldSpec{Name: name, Kind: kind, Declared: declared})

		if kind.quoted() {
			expr.WriteString(stringPattern)
		} else {
			expr.WriteString(wordPattern)
		}
	}
	expr.WriteString(regexp.QuoteMeta(literals[len(literals)-1]))

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("%w: template: %v", errdefs.ErrStructuralConfig, err)
	}

	return &Template{
		source:  tmpl,
		pattern: re,
		fields:  fields,
		opts:    opts,
	}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(tmpl string, opts Options) *Template {
	t, err := Compile(tmpl, opts)
	if err != nil {
		panic(err)
	}
	return t
}

// scan splits a template into literal runs and placeholder bodies.
// len(literals) is always len(bodies)+1.
func scan(tmpl string) (literals, bodies []string, err error) {
	var lit strings.Builder
	open := -1

	for i := 0; i < len(tmpl); i++ {
		switch tmpl[i] {
		case '[':
			if open >= 0 {
				return nil, nil, fmt.Errorf("%w: template: '[' at offset %d inside placeholder opened at %d",
					errdefs.ErrStructuralConfig, i, open)
			}
			open = i
		case ']':
			if open < 0 {
				return nil, nil, fmt.Errorf("%w: template: unmatched ']' at offset %d",
					errdefs.ErrStructuralConfig, i)
			}
			literals = append(literals, lit.String())
			lit.Reset()
			bodies = append(bodies, tmpl[open+1:i])
			open = -1
		default:
			if open < 0 {
				lit.WriteByte(tmpl[i])
			}
		}
	}

	if open >= 0 {
		return nil, nil, fmt.Errorf("%w: template: unclosed '[' at offset %d",
			errdefs.ErrStructuralConfig, open)
	}

	return append(literals, lit.String()), bodies, nil
}

// kindOf maps a declared kind token to its effective kind.
// Unrecognized tokens fall back to KindWord.
func kindOf(declared string) Kind {
	switch Kind(declared) {
	case "":
		return KindString
	case KindString, KindWord, KindDate, KindTime, KindJSON:
		return Kind(declared)
	default:
		return KindWord
	}
}

// Match applies the template to one line.
// It returns false, not an error, when the line does not match.
func (t *Template) Match(line string) (RawRecord, bool) {
	m := t.pattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return nil, false
	}

	rec := make(RawRecord, len(t.fields))
	for i, f := range t.fields {
		s := m[i+1]
		if f.Kind.quoted() {
			s = unquote(s)
		}
		rec[f.Name] = strings.TrimSpace(s)
	}
	return rec, true
}

// unquote strips one pair of matching quotes.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// Fields returns the placeholders in template order.
func (t *Template) Fields() []FieldSpec {
	out := make([]FieldSpec, len(t.fields))
	copy(out, t.fields)
	return out
}

// FieldsOfKind returns the placeholders of one kind in template order.
func (t *Template) FieldsOfKind(k Kind) []FieldSpec {
	var out []FieldSpec
	for _, f := range t.fields {
		if f.Kind == k {
			out = append(out, f)
		}
	}
	return out
}

// Pattern returns the compiled regular expression source.
func (t *Template) Pattern() string {
	return t.pattern.String()
}

// Source returns the template as written.
func (t *Template) Source() string {
	return t.source
}

// Options returns the options the template was compiled with.
func (t *Template) Options() Options {
	return t.opts
}
