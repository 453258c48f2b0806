package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sprocsync/sprocsync/internal/metadata"
)

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "generate",
		Aliases: []string{"g"},
		Short:   "Generate the Go wrapper file from the metadata cache",
		Long: `Generate one Go source file with a typed wrapper function for every
visible routine in the metadata cache. Run sync first; generate never
touches the database.

The wrapper file is only rewritten when its content changes.`,
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

			path, err := s.writeWrappers(cache, strategy)
			if err != nil {
				return err
			}

			successColor := color.New(color.FgGreen, color.Bold)
			successColor.Printf("✓ wrappers written to %s\n", path)
			return nil
		},
	}
}
