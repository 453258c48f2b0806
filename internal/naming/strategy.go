// Package naming derives wrapper method names from routine names. The
// strategy is a pluggable capability: when none is configured, sources
// carry no wrapper name and are exempt from conflict detection.
package naming

import (
	"fmt"
	"regexp"
	"strings"
)

// Strategy maps a routine name to a wrapper method name. The second
// return value is false when the strategy produces no name.
type Strategy interface {
	MethodName(routineName string) (string, bool)
}

// RegexStrategy rewrites the routine name with a configured pattern and
// replacement, then converts the result to an exported CamelCase Go
// identifier. A typical configuration strips a schema prefix, so
// distinct routines can collapse onto the same wrapper name; the sync
// engine treats that as a conflict.
type RegexStrategy struct {
	pattern     *regexp.Regexp
	replacement string
}

// NewRegexStrategy compiles a regex strategy from configuration.
func NewRegexStrategy(pattern, replacement string) (*RegexStrategy, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid naming pattern %q: %w", pattern, err)
	}
	return &RegexStrategy{pattern: re, replacement: replacement}, nil
}

// MethodName implements Strategy.
func (s *RegexStrategy) MethodName(routineName string) (string, bool) {
	rewritten := s.pattern.ReplaceAllString(routineName, s.replacement)
	name := ToCamel(rewritten)
	if name == "" {
		return "", false
	}
	return name, true
}

// ToCamel converts a snake_case routine name to an exported CamelCase
// Go identifier.
func ToCamel(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
