// Package commands implements the sprocsync CLI.
package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sprocsync",
		Short: "Stored routine synchronization and wrapper generation for MySQL",
		Long: color.CyanString(`sprocsync - stored routines as source files

sprocsync keeps a directory of stored routine definitions in lockstep
with a MySQL schema and generates typed Go wrapper functions for them.

Workflow:
  • Write each routine in its own .sql file with a documentation block
  • sprocsync sync      - load changed routines, drop obsolete ones
  • sprocsync generate  - regenerate the Go wrapper file
  • sprocsync status    - inspect the synchronized routines`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("dir", "C", ".", "project directory containing sprocsync.yml")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewGenerateCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewStatusCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Print("sprocsync version: ")
			valueColor.Println(Version)

			titleColor.Print("Git commit: ")
			valueColor.Println(GitCommit)

			titleColor.Print("Build date: ")
			valueColor.Println(BuildDate)

			titleColor.Print("Go version: ")
			valueColor.Println(runtime.Version())
		},
	}
}

// commandSetup reads the flags every command shares and loads the
// project configuration.
func commandSetup(cmd *cobra.Command) (*setup, error) {
	dir, _ := cmd.Flags().GetString("dir")
	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")

	if noColor {
		color.NoColor = true
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return nil, err
	}

	return &setup{dir: dir, cfg: cfg, log: logger, noColor: noColor}, nil
}

// newLogger builds the CLI logger: console encoding, warnings and up
// unless verbose mode lowers the threshold to debug.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
