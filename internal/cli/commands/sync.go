package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sprocsync/sprocsync/internal/cli/ui"
	"github.com/sprocsync/sprocsync/internal/metadata"
	"github.com/sprocsync/sprocsync/internal/naming"
	"github.com/sprocsync/sprocsync/internal/report"
	enginesync "github.com/sprocsync/sprocsync/internal/sync"
)

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize routine sources and regenerate the wrappers",
		Long: `Load changed routine definitions into the database, drop routines
no source defines anymore, update the metadata cache, and regenerate
the Go wrapper file from it.

Failures of individual routines do not abort the run; they are
reported together at the end and the command exits non-zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := commandSetup(cmd)
			if err != nil {
				return err
			}
			defer s.log.Sync()

			strategy, err := s.strategy()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := s.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			cache, errs, err := runSync(ctx, s, db, strategy)
			if err != nil {
				return err
			}

			if !errs.Empty() {
				ui.PrintErrorSummary(os.Stderr, errs, s.noColor)
				return fmt.Errorf("synchronization finished with %d error(s)", errs.Len())
			}

			successColor := color.New(color.FgGreen, color.Bold)
			successColor.Printf("✓ %d routine(s) synchronized, wrappers regenerated\n", len(cache))
			return nil
		},
	}
}

// runSync performs one synchronize-and-generate pass on db: run the
// engine, then rewrite the wrapper file from the resulting cache.
// Routines that failed to load are already evicted from the cache, so
// the wrappers reflect what actually synchronized; the recoverable
// errors come back for the caller to report.
func runSync(ctx context.Context, s *setup, db *sql.DB, strategy naming.Strategy) (metadata.Cache, *report.List, error) {
	engine := enginesync.NewWithDB(db, s.log, s.engineOptions(strategy))
	cache, err := engine.Run(ctx)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.writeWrappers(cache, strategy); err != nil {
		return nil, nil, err
	}

	return cache, engine.Errors(), nil
}
