package query

import (
	"regexp"

	"tsintrospect/internal/core/errors"
	"tsintrospect/internal/core/model"
)

// Matcher is a compiled search term. The zero value and a nil *Matcher
// match everything.
type Matcher struct {
	re *regexp.Regexp
}

// Compile builds a case-insensitive matcher for term. An empty term matches
// everything.
func Compile(term string) (*Matcher, error) {
	if term == "" {
		return &Matcher{}, nil
	}
	re, err := regexp.Compile("(?i)" + term)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInvalidPattern, "invalid search term"), errors.CtxPattern, term)
	}
	return &Matcher{re: re}, nil
}

// Match reports whether the term matches the record's name, signature or
// description.
func (m *Matcher) Match(r model.ExportRecord) bool {
	if m == nil || m.re == nil {
		return true
	}
	return m.re.MatchString(r.Name) || m.re.MatchString(r.TypeSignature) || m.re.MatchString(r.Description)
}

// Apply keeps matching records in order and truncates to limit when limit
// is positive. records is never modified.
func (m *Matcher) Apply(records []model.ExportRecord, limit int) []model.ExportRecord {
	out := make([]model.ExportRecord, 0, len(records))
	for _, r := range records {
		if !m.Match(r) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Filter compiles term and applies it with limit.
func Filter(records []model.ExportRecord, term string, limit int) ([]model.ExportRecord, error) {
	m, err := Compile(term)
	if err != nil {
		return nil, err
	}
	return m.Apply(records, limit), nil
}
