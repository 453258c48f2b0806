// Package sync drives a full synchronization run: discover routine
// sources, resolve naming conflicts, reconcile the live catalog against
// the wanted set, load changed definitions, and prune the metadata
// cache. A run is best effort: per-routine failures are recorded and
// the remaining work continues; only environmental failures abort.
package sync

import (
	"context"
	"database/sql"
	"sort"

	"go.uber.org/zap"

	"github.com/sprocsync/sprocsync/internal/catalog"
	"github.com/sprocsync/sprocsync/internal/loader"
	"github.com/sprocsync/sprocsync/internal/metadata"
	"github.com/sprocsync/sprocsync/internal/naming"
	"github.com/sprocsync/sprocsync/internal/placeholder"
	"github.com/sprocsync/sprocsync/internal/report"
)

// Options configures a synchronization run.
type Options struct {
	// SourceDir is walked recursively for files matching Pattern. It
	// is ignored when Files is non-empty.
	SourceDir string
	Pattern   string

	// Files is an explicit source list; each entry must exist.
	Files []string

	// MetadataPath locates the JSON metadata cache.
	MetadataPath string

	// Constants are extra placeholder definitions beyond the column
	// types read from the catalog.
	Constants map[string]string

	SQLMode      string
	CharacterSet string
	Collation    string

	// Strategy derives wrapper method names; nil disables wrapper
	// naming and wrapper-name conflict detection.
	Strategy naming.Strategy
}

// RoutineLoader loads one routine definition. *loader.Loader is the
// production implementation.
type RoutineLoader interface {
	Load(ctx context.Context, req loader.Request) (*metadata.RoutineMetadata, error)
}

// Engine runs the synchronization pipeline.
type Engine struct {
	reader *catalog.Reader
	loader RoutineLoader
	log    *zap.Logger
	opts   Options
	errs   report.List
}

// New creates an engine. The reader and loader share the target
// database connection.
func New(reader *catalog.Reader, l RoutineLoader, log *zap.Logger, opts Options) *Engine {
	return &Engine{reader: reader, loader: l, log: log, opts: opts}
}

// NewWithDB creates an engine with the production loader on db.
func NewWithDB(db *sql.DB, log *zap.Logger, opts Options) *Engine {
	reader := catalog.NewReader(db)
	return New(reader, loader.New(db, reader, log), log, opts)
}

// Errors returns the recoverable errors recorded so far. The run
// failed, for exit-status purposes, when this list is non-empty.
func (e *Engine) Errors() *report.List {
	return &e.errs
}

// Run executes one synchronization pass and returns the updated
// metadata cache. The cache is saved even when per-routine errors were
// recorded; the returned error is non-nil only for environmental
// failures that abort the run.
func (e *Engine) Run(ctx context.Context) (metadata.Cache, error) {
	cache, err := metadata.Load(e.opts.MetadataPath)
	if err != nil {
		return nil, err
	}

	sources, err := Discover(e.opts.SourceDir, e.opts.Pattern, e.opts.Files, e.opts.Strategy, &e.errs)
	if err != nil {
		return nil, err
	}
	valid := detectConflicts(sources, &e.errs)

	e.log.Info("discovered routine sources",
		zap.Int("total", len(sources)),
		zap.Int("valid", len(valid)))

	resolver, err := e.buildResolver(ctx)
	if err != nil {
		return nil, err
	}

	sqlMode, err := e.reader.CanonicalSQLMode(ctx, e.opts.SQLMode)
	if err != nil {
		return nil, err
	}

	live, err := e.reconcileCatalog(ctx, valid)
	if err != nil {
		return nil, err
	}

	e.loadAll(ctx, valid, live, resolver, sqlMode, cache)
	pruneStaleMetadata(valid, cache)

	if err := metadata.Save(e.opts.MetadataPath, cache); err != nil {
		return nil, err
	}

	return cache, nil
}

// buildResolver reads every column of the current schema plus the
// configured constants into a placeholder resolver.
func (e *Engine) buildResolver(ctx context.Context) (*placeholder.Resolver, error) {
	columns, err := e.reader.Columns(ctx)
	if err != nil {
		return nil, err
	}

	resolver := placeholder.NewResolver()
	for _, c := range columns {
		resolver.AddColumnType(c.TableName, c.ColumnName, c.ColumnType, c.CharacterSet, c.MaxLength)
	}
	for name, value := range e.opts.Constants {
		resolver.AddConstant(name, value)
	}

	e.log.Debug("placeholder resolver built",
		zap.Int("columns", len(columns)),
		zap.Int("constants", len(e.opts.Constants)))

	return resolver, nil
}

// reconcileCatalog drops every live routine that no valid source
// defines and returns the remaining live routines keyed by name. A
// routine excluded by a conflict counts as undefined and is dropped.
func (e *Engine) reconcileCatalog(ctx context.Context, valid []Source) (map[string]*catalog.RoutineDescriptor, error) {
	routines, err := e.reader.Routines(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(valid))
	for _, s := range valid {
		wanted[s.RoutineName] = true
	}

	live := make(map[string]*catalog.RoutineDescriptor, len(routines))
	for i := range routines {
		d := &routines[i]
		if wanted[d.Name] {
			live[d.Name] = d
			continue
		}
		e.log.Info("dropping obsolete routine",
			zap.String("routine", d.Name),
			zap.String("type", d.Type))
		if err := e.reader.DropRoutine(ctx, d.Type, d.Name); err != nil {
			return nil, err
		}
	}

	return live, nil
}

// loadAll loads the valid sources in routine-name order. A failed load
// is recorded and its cache entry removed, so the next run retries it;
// the remaining sources still load.
func (e *Engine) loadAll(ctx context.Context, valid []Source, live map[string]*catalog.RoutineDescriptor, resolver *placeholder.Resolver, sqlMode string, cache metadata.Cache) {
	sorted := make([]Source, len(valid))
	copy(sorted, valid)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RoutineName < sorted[j].RoutineName
	})

	for _, s := range sorted {
		req := loader.Request{
			Path:         s.Path,
			RoutineName:  s.RoutineName,
			Prior:        cache[s.RoutineName],
			Resolver:     resolver,
			Live:         live[s.RoutineName],
			SQLMode:      sqlMode,
			CharacterSet: e.opts.CharacterSet,
			Collation:    e.opts.Collation,
		}

		m, err := e.loader.Load(ctx, req)
		if err != nil {
			delete(cache, s.RoutineName)
			e.errs.Add(report.KindLoad, s.Path, "%s", err)
			e.log.Warn("routine load failed",
				zap.String("routine", s.RoutineName),
				zap.Error(err))
			continue
		}

		cache[s.RoutineName] = m
	}
}

// pruneStaleMetadata removes cache entries whose routine no valid
// source defines.
func pruneStaleMetadata(valid []Source, cache metadata.Cache) {
	wanted := make(map[string]bool, len(valid))
	for _, s := range valid {
		wanted[s.RoutineName] = true
	}
	for name := range cache {
		if !wanted[name] {
			delete(cache, name)
		}
	}
}
