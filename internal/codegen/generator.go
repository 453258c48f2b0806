// Package codegen generates typed Go wrapper functions from routine
// metadata. Each visible routine becomes one function that inlines its
// scalar arguments as SQL literals and delegates result handling to the
// runtime package.
package codegen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sprocsync/sprocsync/internal/metadata"
	"github.com/sprocsync/sprocsync/internal/naming"
)

// runtimeImport is the package the generated wrappers delegate to.
const runtimeImport = "github.com/sprocsync/sprocsync/pkg/runtime"

// Generator transforms routine metadata into Go source.
type Generator struct {
	buf     *bytes.Buffer
	indent  int
	imports map[string]bool

	pkg       string
	chunkSize int
}

// NewGenerator creates a generator emitting package pkg. chunkSize is
// the LOB streaming chunk size baked into the generated calls; zero or
// negative selects the runtime default.
func NewGenerator(pkg string, chunkSize int) *Generator {
	return &Generator{
		buf:       &bytes.Buffer{},
		imports:   make(map[string]bool),
		pkg:       pkg,
		chunkSize: chunkSize,
	}
}

// Generate renders the wrapper file for every visible routine in the
// cache, in routine-name order. Hidden routines (name starting with an
// underscore) and routines the strategy produces no name for are
// skipped. A nil strategy falls back to CamelCasing the routine name.
func (g *Generator) Generate(cache metadata.Cache, strategy naming.Strategy) (string, error) {
	g.reset()

	names := make([]string, 0, len(cache))
	for name := range cache {
		names = append(names, name)
	}
	sort.Strings(names)

	type wrapper struct {
		m          *metadata.RoutineMetadata
		methodName string
	}
	var wrappers []wrapper

	for _, name := range names {
		m := cache[name]
		if m.Hidden() {
			continue
		}
		methodName := naming.ToCamel(m.RoutineName)
		if strategy != nil {
			var ok bool
			methodName, ok = strategy.MethodName(m.RoutineName)
			if !ok {
				continue
			}
		}
		wrappers = append(wrappers, wrapper{m: m, methodName: methodName})
	}

	for _, w := range wrappers {
		g.collectImports(w.m)
	}

	g.writeLine("// Code generated by sprocsync. DO NOT EDIT.")
	g.writeLine("")
	g.writeLine("package %s", g.pkg)
	g.writeLine("")
	g.writeImports()

	for _, w := range wrappers {
		g.writeLine("")
		if err := g.writeWrapper(w.m, w.methodName); err != nil {
			return "", err
		}
	}

	return g.buf.String(), nil
}

// reset clears the generator state.
func (g *Generator) reset() {
	g.buf.Reset()
	g.indent = 0
	g.imports = make(map[string]bool)
}

// writeLine writes a formatted line with proper indentation.
func (g *Generator) writeLine(format string, args ...interface{}) {
	if format == "" {
		g.buf.WriteString("\n")
		return
	}

	for i := 0; i < g.indent; i++ {
		g.buf.WriteString("\t")
	}

	if len(args) > 0 {
		g.buf.WriteString(fmt.Sprintf(format, args...))
	} else {
		g.buf.WriteString(format)
	}
	g.buf.WriteString("\n")
}

// collectImports records the imports one routine's wrapper needs.
func (g *Generator) collectImports(m *metadata.RoutineMetadata) {
	g.imports["context"] = true
	g.imports["database/sql"] = true
	g.imports[runtimeImport] = true

	switch m.Designation {
	case metadata.DesignationTable:
		g.imports["io"] = true
	case metadata.DesignationLog:
		g.imports["go.uber.org/zap"] = true
	}
}

// writeImports writes the import block, stdlib first.
func (g *Generator) writeImports() {
	g.writeLine("import (")
	g.indent++

	var stdlib, external []string
	for imp := range g.imports {
		if strings.Contains(imp, ".") {
			external = append(external, imp)
		} else {
			stdlib = append(stdlib, imp)
		}
	}
	sort.Strings(stdlib)
	sort.Strings(external)

	for _, imp := range stdlib {
		g.writeLine("%q", imp)
	}
	if len(stdlib) > 0 && len(external) > 0 {
		g.writeLine("")
	}
	for _, imp := range external {
		g.writeLine("%q", imp)
	}

	g.indent--
	g.writeLine(")")
}

// WriteFileIfChanged writes content to path only when it differs from
// the file's current content, so an unchanged generation leaves the
// file's timestamp alone.
func WriteFileIfChanged(path, content string) error {
	current, err := os.ReadFile(path)
	if err == nil && string(current) == content {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create wrapper directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write wrapper file: %w", err)
	}
	return nil
}
