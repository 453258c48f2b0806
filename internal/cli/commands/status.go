package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprocsync/sprocsync/internal/cli/ui"
	"github.com/sprocsync/sprocsync/internal/metadata"
	"github.com/sprocsync/sprocsync/internal/naming"
	"github.com/sprocsync/sprocsync/internal/report"
	enginesync "github.com/sprocsync/sprocsync/internal/sync"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Compare routine sources against the metadata cache",
		Long: `List every routine known from the source directory or the metadata
cache, with its designation, wrapper name, and pending work: sources
not yet loaded and cache entries whose source file is gone. The
database is not touched; run sync to apply pending work.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := commandSetup(cmd)
			if err != nil {
				return err
			}
			defer s.log.Sync()

			cache, err := metadata.Load(s.path(s.cfg.Metadata.Path))
			if err != nil {
				return err
			}

			strategy, err := s.strategy()
			if err != nil {
				return err
			}

			var errs report.List
			opts := s.engineOptions(strategy)
			sources, err := enginesync.Discover(opts.SourceDir, opts.Pattern, opts.Files, strategy, &errs)
			if err != nil {
				return err
			}

			bySource := make(map[string]enginesync.Source, len(sources))
			names := make(map[string]bool)
			for _, src := range sources {
				bySource[src.RoutineName] = src
				names[src.RoutineName] = true
			}
			for name := range cache {
				names[name] = true
			}

			sorted := make([]string, 0, len(names))
			for name := range names {
				sorted = append(sorted, name)
			}
			sort.Strings(sorted)

			table := ui.NewTable(os.Stdout, "ROUTINE", "TYPE", "DESIGNATION", "WRAPPER", "STATE")
			if s.noColor {
				table.DisableColor()
			}

			pending := 0
			for _, name := range sorted {
				m := cache[name]
				src, hasSource := bySource[name]

				routineType, designation := "", ""
				if m != nil {
					routineType = m.RoutineType
					designation = string(m.Designation)
				}

				wrapper := wrapperName(name, src, strategy)

				state := "synced"
				switch {
				case m == nil:
					state = "pending load"
					pending++
				case !hasSource:
					state = "missing source"
					pending++
				}

				table.AddRow(name, routineType, designation, wrapper, state)
			}
			table.Render()

			if !errs.Empty() {
				fmt.Println()
				ui.PrintErrorSummary(os.Stdout, &errs, s.noColor)
			}

			fmt.Printf("\n%d routine(s), %d pending\n", len(sorted), pending)
			return nil
		},
	}
}

// wrapperName resolves the wrapper method name shown in the status
// table.
func wrapperName(routineName string, src enginesync.Source, strategy naming.Strategy) string {
	if strings.HasPrefix(routineName, "_") {
		return "(hidden)"
	}
	if src.HasWrapperName {
		return src.WrapperName
	}
	if strategy != nil {
		name, ok := strategy.MethodName(routineName)
		if !ok {
			return "(none)"
		}
		return name
	}
	return naming.ToCamel(routineName)
}
