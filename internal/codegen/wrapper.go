package codegen

import (
	"fmt"
	"strings"

	"github.com/sprocsync/sprocsync/internal/metadata"
	"github.com/sprocsync/sprocsync/internal/naming"
)

// writeWrapper emits one wrapper function.
func (g *Generator) writeWrapper(m *metadata.RoutineMetadata, methodName string) error {
	g.writeDoc(m, methodName)

	params := m.Parameters
	if m.Designation == metadata.DesignationBulkInsert {
		// The routine is not called; the wrapper inserts caller rows
		// directly into the target table.
		params = nil
	}

	signature := []string{"ctx context.Context", "db *sql.DB"}
	switch m.Designation {
	case metadata.DesignationLog:
		signature = append(signature, "logger *zap.Logger")
	case metadata.DesignationTable:
		signature = append(signature, "w io.Writer")
	case metadata.DesignationBulk:
		signature = append(signature, "handler runtime.RowHandler")
	case metadata.DesignationBulkInsert:
		signature = append(signature, "rows [][]interface{}")
	}
	for _, p := range params {
		signature = append(signature, fmt.Sprintf("%s %s", paramVar(p.Name), paramGoType(p)))
	}

	result, err := resultSignature(m.Designation)
	if err != nil {
		return fmt.Errorf("routine %s: %w", m.RoutineName, err)
	}

	g.writeLine("func %s(%s) %s {", methodName, strings.Join(signature, ", "), result)
	g.indent++

	if m.Designation == metadata.DesignationBulkInsert {
		g.writeBulkInsertBody(m)
	} else {
		g.writeCallBody(m, params)
	}

	g.indent--
	g.writeLine("}")
	return nil
}

// writeDoc emits the wrapper's doc comment: the routine description
// followed by an aligned parameter table.
func (g *Generator) writeDoc(m *metadata.RoutineMetadata, methodName string) {
	verb := "calls the stored procedure"
	if m.RoutineType == "FUNCTION" {
		verb = "calls the stored function"
	}
	g.writeLine("// %s %s %s.", methodName, verb, m.RoutineName)

	for _, paragraph := range []string{m.ShortDescription, m.LongDescription} {
		if paragraph == "" {
			continue
		}
		g.writeLine("//")
		for _, line := range strings.Split(paragraph, "\n") {
			g.writeLine("// %s", line)
		}
	}

	params := m.Parameters
	if m.Designation == metadata.DesignationBulkInsert {
		params = nil
	}
	if len(params) > 0 {
		nameWidth, typeWidth := 0, 0
		for _, p := range params {
			if len(p.Name) > nameWidth {
				nameWidth = len(p.Name)
			}
			if len(p.DataType) > typeWidth {
				typeWidth = len(p.DataType)
			}
		}

		g.writeLine("//")
		g.writeLine("// Parameters:")
		for _, p := range params {
			desc := descriptionLines(p.Description)
			first := ""
			if len(desc) > 0 {
				first = desc[0]
			}
			line := fmt.Sprintf("//   %-*s  %-*s  %s",
				nameWidth, p.Name, typeWidth, p.DataType, first)
			g.writeLine("%s", strings.TrimRight(line, " "))
			// Continuation lines stay in the description column.
			for i := 1; i < len(desc); i++ {
				g.writeLine("//   %-*s  %-*s  %s", nameWidth, "", typeWidth, "", desc[i])
			}
		}
	}

	if m.RoutineType == "FUNCTION" && m.ReturnType != "" {
		g.writeLine("//")
		g.writeLine("// Returns: %s", m.ReturnType)
	}
}

// writeCallBody emits the call-text assembly and the runtime dispatch.
func (g *Generator) writeCallBody(m *metadata.RoutineMetadata, params []metadata.ParameterDescriptor) {
	lobs := lobParams(params)

	if len(lobs) > 0 {
		g.writeLine("lobs := []runtime.LobParam{")
		g.indent++
		for i, p := range lobs {
			data := paramVar(p.Name)
			if paramGoType(p) == "string" {
				data = fmt.Sprintf("[]byte(%s)", data)
			}
			g.writeLine("{Variable: %q, Data: %s},", lobVariable(i), data)
		}
		g.indent--
		g.writeLine("}")
	}

	g.writeLine("callText := %s", g.callTextExpr(m, params))
	g.writeLine("return %s", g.dispatchExpr(m, len(lobs) > 0))
}

// callTextExpr builds the Go expression producing the SQL call text.
// Scalar arguments are inlined as quoted literals; large-object
// arguments reference their session variable.
func (g *Generator) callTextExpr(m *metadata.RoutineMetadata, params []metadata.ParameterDescriptor) string {
	head := fmt.Sprintf("CALL `%s`(", m.RoutineName)
	if m.RoutineType == "FUNCTION" {
		head = fmt.Sprintf("SELECT `%s`(", m.RoutineName)
	}

	if len(params) == 0 {
		return fmt.Sprintf("%q", head+")")
	}

	var parts []string
	lobIndex := 0
	open := head
	for i, p := range params {
		if i > 0 {
			open += ", "
		}
		if p.Lob {
			open += lobVariable(lobIndex)
			lobIndex++
			continue
		}
		parts = append(parts, fmt.Sprintf("%q", open))
		parts = append(parts, quoteExpr(p))
		open = ""
	}
	parts = append(parts, fmt.Sprintf("%q", open+")"))

	return strings.Join(parts, " + ")
}

// dispatchExpr builds the runtime call for the routine's designation.
// The switch is total over the designation set; metadata with an
// unknown designation never reaches here because the cache rejects it
// on load.
func (g *Generator) dispatchExpr(m *metadata.RoutineMetadata, lob bool) string {
	args := "ctx, db"
	switch m.Designation {
	case metadata.DesignationLog:
		args += ", logger"
	case metadata.DesignationTable:
		args += ", w"
	case metadata.DesignationBulk:
		args += ", handler"
	}
	args += ", callText"

	suffix := ""
	if lob {
		args += fmt.Sprintf(", %d, lobs", g.chunkSize)
	}
	switch m.Designation {
	case metadata.DesignationRowsWithKey, metadata.DesignationRowsWithIndex:
		var keys []string
		for _, k := range m.KeyColumns {
			keys = append(keys, fmt.Sprintf("%q", k))
		}
		suffix = ", " + strings.Join(keys, ", ")
	}

	helper := map[metadata.Designation]string{
		metadata.DesignationNone:          "ExecNone",
		metadata.DesignationRow0:          "ExecRow0",
		metadata.DesignationRow1:          "ExecRow1",
		metadata.DesignationRows:          "ExecRows",
		metadata.DesignationMap:           "ExecMap",
		metadata.DesignationSingleton0:    "ExecSingleton0",
		metadata.DesignationSingleton1:    "ExecSingleton1",
		metadata.DesignationFunction:      "ExecFunction",
		metadata.DesignationLog:           "ExecLog",
		metadata.DesignationTable:         "ExecTable",
		metadata.DesignationRowsWithKey:   "ExecRowsWithKey",
		metadata.DesignationRowsWithIndex: "ExecRowsWithIndex",
		metadata.DesignationBulk:          "ExecBulk",
	}[m.Designation]

	if lob {
		helper = "ExecLob" + strings.TrimPrefix(helper, "Exec")
	}

	return fmt.Sprintf("runtime.%s(%s%s)", helper, args, suffix)
}

// writeBulkInsertBody emits the direct-insert body of a bulk_insert
// wrapper.
func (g *Generator) writeBulkInsertBody(m *metadata.RoutineMetadata) {
	var columns []string
	for _, c := range m.ColumnNames {
		columns = append(columns, fmt.Sprintf("%q", c))
	}
	g.writeLine("_, err := runtime.ExecBulkInsert(ctx, db, %q, []string{%s}, rows)",
		m.TableName, strings.Join(columns, ", "))
	g.writeLine("return err")
}

// resultSignature maps a designation to the wrapper's return types.
func resultSignature(d metadata.Designation) (string, error) {
	switch d {
	case metadata.DesignationNone, metadata.DesignationLog,
		metadata.DesignationTable, metadata.DesignationBulk:
		return "(int64, error)", nil
	case metadata.DesignationRow0, metadata.DesignationRow1,
		metadata.DesignationMap, metadata.DesignationRowsWithKey,
		metadata.DesignationRowsWithIndex:
		return "(map[string]interface{}, error)", nil
	case metadata.DesignationRows:
		return "([]map[string]interface{}, error)", nil
	case metadata.DesignationSingleton0, metadata.DesignationSingleton1,
		metadata.DesignationFunction:
		return "(interface{}, error)", nil
	case metadata.DesignationBulkInsert:
		return "error", nil
	default:
		return "", fmt.Errorf("unknown designation %q", d)
	}
}

// lobVariable names the session variable of the i-th large-object
// argument.
func lobVariable(i int) string {
	return fmt.Sprintf("@sprocsync_lob%d", i)
}

// lobParams returns the large-object parameters in positional order.
func lobParams(params []metadata.ParameterDescriptor) []metadata.ParameterDescriptor {
	var lobs []metadata.ParameterDescriptor
	for _, p := range params {
		if p.Lob {
			lobs = append(lobs, p)
		}
	}
	return lobs
}

// paramVar converts a routine parameter name to a Go argument name.
func paramVar(name string) string {
	camel := naming.ToCamel(name)
	if camel == "" {
		return name
	}
	return strings.ToLower(camel[:1]) + camel[1:]
}

// paramGoType maps a MySQL parameter type to the Go argument type.
func paramGoType(p metadata.ParameterDescriptor) string {
	base := p.DataType
	if i := strings.IndexAny(base, " ("); i >= 0 {
		base = base[:i]
	}

	switch strings.ToLower(base) {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint", "year":
		return "int64"
	case "decimal", "numeric", "float", "double", "real":
		return "float64"
	case "binary", "varbinary", "bit",
		"tinyblob", "blob", "mediumblob", "longblob":
		return "[]byte"
	default:
		// char, varchar, the text family, enum, set, and the temporal
		// types all travel as strings.
		return "string"
	}
}

// quoteExpr builds the runtime quoting call for a scalar argument.
func quoteExpr(p metadata.ParameterDescriptor) string {
	v := paramVar(p.Name)
	switch paramGoType(p) {
	case "int64":
		return fmt.Sprintf("runtime.QuoteInt(%s)", v)
	case "float64":
		return fmt.Sprintf("runtime.QuoteFloat(%s)", v)
	case "[]byte":
		return fmt.Sprintf("runtime.QuoteBytes(%s)", v)
	default:
		return fmt.Sprintf("runtime.QuoteString(%s)", v)
	}
}

// descriptionLines splits a parameter description into trimmed,
// non-empty lines.
func descriptionLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
