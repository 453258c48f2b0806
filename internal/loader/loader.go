// Package loader applies one routine definition to the database and
// builds its metadata entry. It is the per-routine collaborator the
// sync engine drives: the engine decides what to load, the loader does
// the DDL work and reports success or failure.
package loader

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sprocsync/sprocsync/internal/catalog"
	"github.com/sprocsync/sprocsync/internal/metadata"
	"github.com/sprocsync/sprocsync/internal/placeholder"
)

// headPattern locates the CREATE head of the preprocessed source.
var headPattern = regexp.MustCompile(`(?is)\bcreate\s+(procedure|function)\s+` + "`?" + `([a-zA-Z0-9_]+)` + "`?")

// returnsPattern extracts the declared result type of a stored function.
var returnsPattern = regexp.MustCompile(`(?is)\breturns\s+([a-zA-Z0-9_]+(?:\([0-9,]+\))?)`)

// Request carries everything one load needs: the source location, the
// prior state on both sides (cache and live catalog), the placeholder
// map, and the target SQL dialect settings.
type Request struct {
	Path        string
	RoutineName string
	Prior       *metadata.RoutineMetadata
	Resolver    *placeholder.Resolver
	Live        *catalog.RoutineDescriptor

	SQLMode      string
	CharacterSet string
	Collation    string
}

// Loader submits routine definitions to the live database.
type Loader struct {
	db     *sql.DB
	reader *catalog.Reader
	log    *zap.Logger
}

// New creates a loader on an open connection.
func New(db *sql.DB, reader *catalog.Reader, log *zap.Logger) *Loader {
	return &Loader{db: db, reader: reader, log: log}
}

// Load applies the routine definition at req.Path and returns its
// metadata. When the preprocessed source and dialect settings hash to
// the cached entry's hash and the routine still exists live, the DDL is
// skipped and the cached entry returned unchanged.
func (l *Loader) Load(ctx context.Context, req Request) (*metadata.RoutineMetadata, error) {
	raw, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routine source: %w", err)
	}

	source, err := req.Resolver.Apply(string(raw))
	if err != nil {
		return nil, err
	}

	block, err := ParseDocBlock(source)
	if err != nil {
		return nil, err
	}

	head := headPattern.FindStringSubmatch(source)
	if head == nil {
		return nil, fmt.Errorf("no CREATE PROCEDURE or CREATE FUNCTION statement found")
	}
	routineType := strings.ToUpper(head[1])
	routineName := head[2]

	if routineName != req.RoutineName {
		return nil, fmt.Errorf("routine name %q does not match file name %q", routineName, req.RoutineName)
	}

	hash := sourceHash(source, req.SQLMode, req.CharacterSet, req.Collation)
	if req.Prior != nil && req.Prior.SourceHash == hash && req.Live != nil {
		l.log.Debug("routine unchanged, skipping load", zap.String("routine", routineName))
		return req.Prior, nil
	}

	l.log.Info("loading routine",
		zap.String("routine", routineName),
		zap.String("type", routineType),
		zap.String("path", req.Path))

	if req.Live != nil {
		if err := l.reader.DropRoutine(ctx, req.Live.Type, req.Live.Name); err != nil {
			return nil, err
		}
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if err := setSession(ctx, conn, req); err != nil {
		return nil, err
	}

	if _, err := conn.ExecContext(ctx, stripDocBlock(source)); err != nil {
		return nil, fmt.Errorf("failed to create routine %s: %w", routineName, err)
	}

	params, err := l.reader.Parameters(ctx, routineName)
	if err != nil {
		return nil, err
	}

	m := &metadata.RoutineMetadata{
		RoutineName:      routineName,
		RoutineType:      routineType,
		Designation:      block.Designation,
		KeyColumns:       block.KeyColumns,
		TableName:        block.TableName,
		ColumnNames:      block.ColumnNames,
		ShortDescription: block.ShortDescription,
		LongDescription:  block.LongDescription,
		SourceHash:       hash,
	}

	for _, p := range params {
		m.Parameters = append(m.Parameters, metadata.ParameterDescriptor{
			Name:        p.Name,
			DataType:    p.DataType,
			Lob:         metadata.IsLobType(p.DataType),
			Description: block.ParamDocs[p.Name],
		})
	}

	if routineType == "FUNCTION" {
		if match := returnsPattern.FindStringSubmatch(source); match != nil {
			m.ReturnType = strings.ToLower(match[1])
		}
	}

	return m, nil
}

// setSession applies the dialect settings the definition is compiled
// under. The settings are session state, so they must run on the same
// connection as the CREATE statement that follows.
func setSession(ctx context.Context, conn *sql.Conn, req Request) error {
	if _, err := conn.ExecContext(ctx, "SET sql_mode = ?", req.SQLMode); err != nil {
		return fmt.Errorf("failed to set sql_mode: %w", err)
	}
	stmt := fmt.Sprintf("SET names '%s' COLLATE '%s'", req.CharacterSet, req.Collation)
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to set character set: %w", err)
	}
	return nil
}

// stripDocBlock removes the documentation header so only the CREATE
// statement is submitted.
func stripDocBlock(source string) string {
	start := strings.Index(source, "/**")
	if start < 0 {
		return source
	}
	end := strings.Index(source[start:], "*/")
	if end < 0 {
		return source
	}
	return strings.TrimSpace(source[:start] + source[start+end+2:])
}

// sourceHash fingerprints the preprocessed source together with the
// dialect settings it would be loaded under.
func sourceHash(source, sqlMode, characterSet, collation string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s", source, sqlMode, characterSet, collation)
	return hex.EncodeToString(h.Sum(nil))
}

// RoutineNameFromPath derives the routine name from a source file's
// base name.
func RoutineNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
