// Package metadata defines the persisted per-routine metadata cache.
// The cache is the contract between the synchronization engine, which
// writes it after each run, and the wrapper generation engine, which
// reads it to emit typed call wrappers.
package metadata

import (
	"fmt"
	"strings"
)

// Designation identifies a wrapper's result-handling contract.
// The set is closed; dispatch over it must be total.
type Designation string

const (
	DesignationBulk          Designation = "bulk"
	DesignationBulkInsert    Designation = "bulk_insert"
	DesignationFunction      Designation = "function"
	DesignationLog           Designation = "log"
	DesignationMap           Designation = "map"
	DesignationNone          Designation = "none"
	DesignationRow0          Designation = "row0"
	DesignationRow1          Designation = "row1"
	DesignationRows          Designation = "rows"
	DesignationRowsWithIndex Designation = "rows_with_index"
	DesignationRowsWithKey   Designation = "rows_with_key"
	DesignationSingleton0    Designation = "singleton0"
	DesignationSingleton1    Designation = "singleton1"
	DesignationTable         Designation = "table"
)

// Designations lists every valid designation in sorted order.
var Designations = []Designation{
	DesignationBulk,
	DesignationBulkInsert,
	DesignationFunction,
	DesignationLog,
	DesignationMap,
	DesignationNone,
	DesignationRow0,
	DesignationRow1,
	DesignationRows,
	DesignationRowsWithIndex,
	DesignationRowsWithKey,
	DesignationSingleton0,
	DesignationSingleton1,
	DesignationTable,
}

// ParseDesignation validates a designation tag read from a routine source.
func ParseDesignation(s string) (Designation, error) {
	d := Designation(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Designations {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown designation type %q", s)
}

// Valid reports whether d is a member of the closed designation set.
func (d Designation) Valid() bool {
	_, err := ParseDesignation(string(d))
	return err == nil
}

// ParameterDescriptor describes one routine parameter. Order within
// RoutineMetadata.Parameters mirrors the routine's positional parameter
// order; the generated wrapper's arguments and call list agree by index.
type ParameterDescriptor struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Lob         bool   `json:"lob,omitempty"`
	Description string `json:"description,omitempty"`
}

// RoutineMetadata is one cache entry, keyed by routine name.
type RoutineMetadata struct {
	RoutineName string                `json:"routine_name"`
	RoutineType string                `json:"routine_type"` // PROCEDURE or FUNCTION
	Designation Designation           `json:"designation"`
	Parameters  []ParameterDescriptor `json:"parameters"`

	// KeyColumns is set for rows_with_key and rows_with_index; the
	// nesting depth of the returned structure equals len(KeyColumns).
	KeyColumns []string `json:"key_columns,omitempty"`

	// TableName and ColumnNames are set for bulk_insert.
	TableName   string   `json:"table_name,omitempty"`
	ColumnNames []string `json:"column_names,omitempty"`

	ShortDescription string `json:"short_description,omitempty"`
	LongDescription  string `json:"long_description,omitempty"`
	ReturnType       string `json:"return_type,omitempty"`

	// SourceHash is the hash of the preprocessed source text; an
	// unchanged hash lets the loader skip resubmitting the definition.
	SourceHash string `json:"source_hash"`
}

// Hidden reports whether the routine is excluded from wrapper output.
// Routines whose name starts with an underscore are loadable but not
// exposed as wrappers.
func (m *RoutineMetadata) Hidden() bool {
	return strings.HasPrefix(m.RoutineName, "_")
}

// HasLobParameter reports whether any parameter requires the
// large-object streaming call path.
func (m *RoutineMetadata) HasLobParameter() bool {
	for _, p := range m.Parameters {
		if p.Lob {
			return true
		}
	}
	return false
}

// lobTypes are the MySQL types transmitted through the chunked
// streaming protocol rather than inlined into the call text.
var lobTypes = map[string]bool{
	"tinytext":   true,
	"text":       true,
	"mediumtext": true,
	"longtext":   true,
	"tinyblob":   true,
	"blob":       true,
	"mediumblob": true,
	"longblob":   true,
}

// IsLobType reports whether a declared data type requires large-object
// streaming. The property depends on the type alone, not on the
// routine's designation.
func IsLobType(dataType string) bool {
	base := strings.ToLower(dataType)
	if i := strings.IndexAny(base, " ("); i >= 0 {
		base = base[:i]
	}
	return lobTypes[base]
}
