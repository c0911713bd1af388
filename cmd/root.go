package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "sheetcalc",
	Short:         "Evaluate and auto-fill tab separated grids",
	Version:       Version,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine debug events to stderr")
}

// newEngine builds an engine logging to the command's stderr
func newEngine(cmd *cobra.Command) *spreadsheet.Engine {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})).
		With(slog.String("component", "engine"))
	return spreadsheet.NewEngine(spreadsheet.WithLogger(logger))
}

func Execute() error {
	return rootCmd.Execute()
}
