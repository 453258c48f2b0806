// Package placeholder builds the substitution map applied to routine
// sources before they are submitted to the database. Placeholders refer
// to column types and named constants, so routine definitions stay in
// sync with the schema they operate on.
package placeholder

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholderPattern matches @...@ tokens in routine source text.
var placeholderPattern = regexp.MustCompile(`@[a-zA-Z0-9_.%\-]+@`)

// Resolver maps symbolic placeholders to literal substitution text.
// Keys are case-normalized; later registrations shadow earlier ones, so
// file-scoped constants override schema-derived entries. A Resolver is
// rebuilt each run and never persisted.
type Resolver struct {
	pairs map[string]string
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{pairs: make(map[string]string)}
}

// AddColumnType registers the type placeholders for one table column:
// @table.column%type@ expands to the column's full SQL type (with its
// character set when present) and @table.column%max-length@ to the
// column's maximum length when defined.
func (r *Resolver) AddColumnType(table, column, columnType, characterSet string, maxLength int64) {
	fullType := columnType
	if characterSet != "" {
		fullType = fmt.Sprintf("%s character set %s", columnType, characterSet)
	}
	r.pairs[key(fmt.Sprintf("@%s.%s%%type@", table, column))] = fullType

	if maxLength > 0 {
		r.pairs[key(fmt.Sprintf("@%s.%s%%max-length@", table, column))] = fmt.Sprintf("%d", maxLength)
	}
}

// AddConstant registers a named constant placeholder: @name@ expands to
// the literal value.
func (r *Resolver) AddConstant(name, value string) {
	r.pairs[key("@"+name+"@")] = value
}

// Lookup returns the substitution text for a placeholder.
func (r *Resolver) Lookup(placeholder string) (string, bool) {
	v, ok := r.pairs[key(placeholder)]
	return v, ok
}

// Len returns the number of registered pairs.
func (r *Resolver) Len() int {
	return len(r.pairs)
}

// Apply substitutes every placeholder in text. A placeholder with no
// registered substitution is an error naming all unknown placeholders.
func (r *Resolver) Apply(text string) (string, error) {
	unknown := make(map[string]bool)

	result := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		if v, ok := r.pairs[key(match)]; ok {
			return v
		}
		unknown[match] = true
		return match
	})

	if len(unknown) > 0 {
		names := make([]string, 0, len(unknown))
		for name := range unknown {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", fmt.Errorf("unknown placeholder(s): %s", strings.Join(names, ", "))
	}

	return result, nil
}

func key(placeholder string) string {
	return strings.ToLower(placeholder)
}
