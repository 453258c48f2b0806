package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sprocsync/sprocsync/internal/cli/ui"
	"github.com/sprocsync/sprocsync/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Synchronize and regenerate on every source change",
		Long: `Run sync and generate once, then keep watching the source directory
and rerun both whenever a routine definition changes. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := commandSetup(cmd)
			if err != nil {
				return err
			}
			defer s.log.Sync()

			if len(s.cfg.Sources.Files) > 0 {
				return fmt.Errorf("watch requires sources.dir; an explicit sources.files list cannot be watched")
			}

			strategy, err := s.strategy()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := s.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			successColor := color.New(color.FgGreen, color.Bold)

			runOnce := func() {
				cache, errs, err := runSync(ctx, s, db, strategy)
				if err != nil {
					s.log.Error("synchronization failed", zap.Error(err))
					return
				}
				if !errs.Empty() {
					ui.PrintErrorSummary(os.Stderr, errs, s.noColor)
				}

				successColor.Printf("✓ %d routine(s) synchronized\n", len(cache))
			}

			runOnce()

			watcher, err := watch.New(s.path(s.cfg.Sources.Dir), s.cfg.Sources.Pattern, s.log,
				func(paths []string) {
					for _, p := range paths {
						s.log.Info("source changed", zap.String("path", p))
					}
					runOnce()
				})
			if err != nil {
				return err
			}
			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()

			fmt.Printf("Watching %s for changes. Press Ctrl-C to stop.\n", s.path(s.cfg.Sources.Dir))
			<-ctx.Done()
			return nil
		},
	}
}
