// Package template compiles log line templates into line matchers.
//
// A template is literal text with bracketed placeholders:
//
//	[name:kind]   [name]   [:kind]   []
//
// where kind is one of string, word, date, time or json. Each placeholder
// becomes one capture group; the ordered list of placeholders is the
// template's field list.
package template

import "strings"

// Kind is the lexical category of a placeholder.
type Kind string

const (
	// KindString matches a single- or double-quoted run, or one token.
	KindString Kind = "string"
	// KindWord matches one non-whitespace token.
	KindWord Kind = "word"
	// KindDate is captured like a string and parsed with the date format.
	KindDate Kind = "date"
	// KindTime is captured like a string and parsed with the time format.
	KindTime Kind = "time"
	// KindJSON is captured like a string and decoded into extra fields.
	KindJSON Kind = "json"
)

// quoted reports whether captures of this kind may be quoted.
func (k Kind) quoted() bool {
	return k != KindWord
}

// FieldSpec describes one placeholder.
type FieldSpec struct {
	// Name is the field name after case normalization.
	Name string

	// Kind is the effective kind. Unrecognized kinds become KindWord.
	Kind Kind

	// Declared is the kind token as written (lower-cased), empty if omitted.
	Declared string
}

// DuplicatePolicy decides what happens when two placeholders share a name.
type DuplicatePolicy string

const (
	// DuplicateReject fails compilation on a repeated field name.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateLastWins keeps both captures; the later one overwrites the
	// earlier in the matched record.
	DuplicateLastWins DuplicatePolicy = "last-wins"
)

// Options controls compilation.
type Options struct {
	// CaseSensitive keeps field names as written. Otherwise they are
	// lower-cased.
	CaseSensitive bool

	// Duplicates is the repeated-name policy. Empty means DuplicateReject.
	Duplicates DuplicatePolicy
}

// NormalizeName applies the case rule to a field or column name.
func (o Options) NormalizeName(name string) string {
	if o.CaseSensitive {
		return name
	}
	return strings.ToLower(name)
}

// RawRecord maps field names to captured text for one matched line.
type RawRecord map[string]string
