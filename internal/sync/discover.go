package sync

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sprocsync/sprocsync/internal/loader"
	"github.com/sprocsync/sprocsync/internal/naming"
	"github.com/sprocsync/sprocsync/internal/report"
)

// Source is one discovered routine definition file. Sources are
// transient: rebuilt each run, never persisted.
type Source struct {
	Path        string
	RoutineName string

	// WrapperName is the method name the naming strategy derives; it
	// is absent when no strategy is configured.
	WrapperName    string
	HasWrapperName bool
}

// Discover finds routine sources. With an explicit file list each path
// is stat-checked and a missing path is recorded as an error and
// excluded; otherwise the source directory is walked recursively for
// files matching the pattern.
func Discover(dir, pattern string, files []string, strategy naming.Strategy, errs *report.List) ([]Source, error) {
	var paths []string

	if len(files) > 0 {
		for _, path := range files {
			if _, err := os.Stat(path); err != nil {
				errs.Add(report.KindDiscovery, path, "file does not exist")
				continue
			}
			paths = append(paths, path)
		}
	} else {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			match, err := filepath.Match(pattern, d.Name())
			if err != nil {
				return err
			}
			if match {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(paths)

	sources := make([]Source, 0, len(paths))
	for _, path := range paths {
		s := Source{Path: path, RoutineName: loader.RoutineNameFromPath(path)}
		if strategy != nil {
			s.WrapperName, s.HasWrapperName = strategy.MethodName(s.RoutineName)
		}
		sources = append(sources, s)
	}

	return sources, nil
}

// detectConflicts removes sources whose routine name or derived
// wrapper name is not unique. Every source sharing a colliding name is
// excluded, not just the duplicates beyond the first, and each entry
// names the full list of offending paths. Sources without a wrapper
// name never conflict on it.
func detectConflicts(sources []Source, errs *report.List) []Source {
	byRoutine := make(map[string][]int)
	byWrapper := make(map[string][]int)
	for i, s := range sources {
		byRoutine[s.RoutineName] = append(byRoutine[s.RoutineName], i)
		if s.HasWrapperName {
			byWrapper[s.WrapperName] = append(byWrapper[s.WrapperName], i)
		}
	}

	excluded := make(map[int]bool)
	reportGroup := func(kind string, name string, indexes []int) {
		paths := make([]string, 0, len(indexes))
		for _, i := range indexes {
			paths = append(paths, sources[i].Path)
		}
		for _, i := range indexes {
			excluded[i] = true
			errs.Add(report.KindConflict, sources[i].Path,
				"%s name %q is shared by %d sources: %s",
				kind, name, len(indexes), strings.Join(paths, ", "))
		}
	}

	for _, name := range sortedKeys(byRoutine) {
		if indexes := byRoutine[name]; len(indexes) > 1 {
			reportGroup("routine", name, indexes)
		}
	}
	for _, name := range sortedKeys(byWrapper) {
		if indexes := byWrapper[name]; len(indexes) > 1 {
			alreadyExcluded := true
			for _, i := range indexes {
				if !excluded[i] {
					alreadyExcluded = false
				}
			}
			if !alreadyExcluded {
				reportGroup("wrapper", name, indexes)
			}
		}
	}

	var valid []Source
	for i, s := range sources {
		if !excluded[i] {
			valid = append(valid, s)
		}
	}
	return valid
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
