// Package report accumulates the recoverable per-item errors of a
// synchronization run. Entries never abort the run; they are reported
// once, at the end, as a consolidated listing. Fatal errors bypass this
// package entirely and propagate as ordinary error returns.
package report

import (
	"fmt"
	"strings"
)

// Kind categorizes a recoverable error.
type Kind int

const (
	KindDiscovery Kind = iota
	KindConflict
	KindLoad
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindDiscovery:
		return "discovery"
	case KindConflict:
		return "conflict"
	case KindLoad:
		return "load"
	default:
		return "unknown"
	}
}

// Entry is one recorded error.
type Entry struct {
	Kind    Kind
	Path    string
	Message string
}

// List collects entries over a run. The zero value is ready to use.
type List struct {
	entries []Entry
}

// Add records an entry.
func (l *List) Add(kind Kind, path, format string, args ...interface{}) {
	l.entries = append(l.entries, Entry{
		Kind:    kind,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

// Empty reports whether no errors were recorded.
func (l *List) Empty() bool {
	return len(l.entries) == 0
}

// Len returns the number of recorded entries.
func (l *List) Len() int {
	return len(l.entries)
}

// Entries returns the recorded entries in insertion order.
func (l *List) Entries() []Entry {
	return l.entries
}

// Paths returns the distinct paths recorded, in insertion order.
func (l *List) Paths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, e := range l.entries {
		if e.Path == "" || seen[e.Path] {
			continue
		}
		seen[e.Path] = true
		paths = append(paths, e.Path)
	}
	return paths
}

// Summary renders the consolidated end-of-run listing.
func (l *List) Summary() string {
	if l.Empty() {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d error(s) occurred:\n", len(l.entries))
	for _, e := range l.entries {
		if e.Path != "" {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", e.Kind, e.Path, e.Message)
		} else {
			fmt.Fprintf(&b, "  [%s] %s\n", e.Kind, e.Message)
		}
	}
	return b.String()
}
