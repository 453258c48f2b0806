package commands

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/sprocsync/sprocsync/internal/cli/config"
	"github.com/sprocsync/sprocsync/internal/codegen"
	"github.com/sprocsync/sprocsync/internal/metadata"
	"github.com/sprocsync/sprocsync/internal/naming"
	enginesync "github.com/sprocsync/sprocsync/internal/sync"
)

// setup is the shared state of one command invocation.
type setup struct {
	dir     string
	cfg     *config.Config
	log     *zap.Logger
	noColor bool
}

func loadConfig(dir string) (*config.Config, error) {
	return config.Load(dir)
}

// path resolves a configured path relative to the project directory.
func (s *setup) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.dir, p)
}

// strategy builds the wrapper naming strategy, nil when none is
// configured.
func (s *setup) strategy() (naming.Strategy, error) {
	if s.cfg.Naming.Pattern == "" {
		return nil, nil
	}
	return naming.NewRegexStrategy(s.cfg.Naming.Pattern, s.cfg.Naming.Replacement)
}

// engineOptions maps the configuration onto synchronization options.
func (s *setup) engineOptions(strategy naming.Strategy) enginesync.Options {
	files := make([]string, 0, len(s.cfg.Sources.Files))
	for _, f := range s.cfg.Sources.Files {
		files = append(files, s.path(f))
	}

	return enginesync.Options{
		SourceDir:    s.path(s.cfg.Sources.Dir),
		Pattern:      s.cfg.Sources.Pattern,
		Files:        files,
		MetadataPath: s.path(s.cfg.Metadata.Path),
		Constants:    s.cfg.Constants,
		SQLMode:      s.cfg.SQLMode,
		CharacterSet: s.cfg.CharacterSet,
		Collation:    s.cfg.Collation,
		Strategy:     strategy,
	}
}

// writeWrappers regenerates the wrapper file from cache and returns
// the path written.
func (s *setup) writeWrappers(cache metadata.Cache, strategy naming.Strategy) (string, error) {
	generator := codegen.NewGenerator(s.cfg.Wrapper.Package, s.cfg.Wrapper.ChunkSize)
	code, err := generator.Generate(cache, strategy)
	if err != nil {
		return "", err
	}

	path := s.path(s.cfg.Wrapper.Path)
	if err := codegen.WriteFileIfChanged(path, code); err != nil {
		return "", err
	}
	return path, nil
}

// openDB connects to the configured database and verifies the
// connection.
func (s *setup) openDB(ctx context.Context) (*sql.DB, error) {
	dsn, err := s.cfg.RequireDSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
