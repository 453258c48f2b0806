package loader

import (
	"fmt"
	"strings"

	"github.com/sprocsync/sprocsync/internal/metadata"
)

// DocBlock is the parsed documentation header of a routine source file:
// a /** ... */ block with a description, @param tags, and the mandatory
// @type tag naming the routine's designation.
type DocBlock struct {
	ShortDescription string
	LongDescription  string
	Designation      metadata.Designation
	KeyColumns       []string // rows_with_key, rows_with_index
	TableName        string   // bulk_insert
	ColumnNames      []string // bulk_insert
	ParamDocs        map[string]string
}

// ParseDocBlock extracts the documentation header from routine source
// text. A missing block or missing @type tag makes the definition
// invalid.
func ParseDocBlock(source string) (*DocBlock, error) {
	start := strings.Index(source, "/**")
	if start < 0 {
		return nil, fmt.Errorf("missing documentation block")
	}
	end := strings.Index(source[start:], "*/")
	if end < 0 {
		return nil, fmt.Errorf("unterminated documentation block")
	}

	lines := strings.Split(source[start+3:start+end], "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		if strings.HasPrefix(line, " ") {
			line = line[1:]
		}
		lines[i] = line
	}

	block := &DocBlock{ParamDocs: make(map[string]string)}

	var description []string
	var currentTag, currentName string
	var currentText []string

	flush := func() error {
		if currentTag == "" {
			return nil
		}
		text := strings.TrimSpace(strings.Join(currentText, "\n"))
		switch currentTag {
		case "param":
			block.ParamDocs[currentName] = text
		case "type":
			return block.setType(strings.Fields(currentName + " " + text))
		default:
			// Unknown tags are tolerated, matching how permissive
			// docblock parsers behave.
		}
		return nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "@") {
			if err := flush(); err != nil {
				return nil, err
			}
			fields := strings.SplitN(line[1:], " ", 3)
			currentTag = fields[0]
			currentName = ""
			currentText = nil
			if len(fields) > 1 {
				currentName = strings.TrimSpace(fields[1])
			}
			if len(fields) > 2 {
				currentText = []string{strings.TrimSpace(fields[2])}
			}
			continue
		}

		if currentTag != "" {
			currentText = append(currentText, line)
		} else {
			description = append(description, line)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if block.Designation == "" {
		return nil, fmt.Errorf("missing @type tag in documentation block")
	}

	block.ShortDescription, block.LongDescription = splitDescription(description)
	return block, nil
}

// setType interprets the @type tag: the designation name plus its
// designation-specific arguments.
func (b *DocBlock) setType(fields []string) error {
	fields = nonEmpty(fields)
	if len(fields) == 0 {
		return fmt.Errorf("@type tag requires a designation")
	}

	designation, err := metadata.ParseDesignation(fields[0])
	if err != nil {
		return err
	}
	b.Designation = designation

	switch designation {
	case metadata.DesignationRowsWithKey, metadata.DesignationRowsWithIndex:
		if len(fields) != 2 {
			return fmt.Errorf("@type %s requires a comma-separated key column list", designation)
		}
		b.KeyColumns = strings.Split(fields[1], ",")
	case metadata.DesignationBulkInsert:
		if len(fields) != 3 {
			return fmt.Errorf("@type bulk_insert requires a table name and a comma-separated column list")
		}
		b.TableName = fields[1]
		b.ColumnNames = strings.Split(fields[2], ",")
	default:
		if len(fields) != 1 {
			return fmt.Errorf("@type %s takes no arguments", designation)
		}
	}

	return nil
}

// splitDescription separates the first paragraph (short description)
// from the rest (long description).
func splitDescription(lines []string) (string, string) {
	// Trim leading and trailing blank lines.
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	blank := -1
	for i, line := range lines {
		if line == "" {
			blank = i
			break
		}
	}

	if blank < 0 {
		return strings.Join(lines, "\n"), ""
	}

	long := lines[blank+1:]
	for len(long) > 0 && long[0] == "" {
		long = long[1:]
	}
	return strings.Join(lines[:blank], "\n"), strings.Join(long, "\n")
}

func nonEmpty(fields []string) []string {
	var result []string
	for _, f := range fields {
		if f != "" {
			result = append(result, f)
		}
	}
	return result
}
