package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

var fillEval bool

var fillCmd = &cobra.Command{
	Use:   "fill <range> [file]",
	Short: "Auto-fill a range of a TSV grid",
	Long: `Extend the pattern of the filled cells of <range> into its empty cells and
print the resulting grid.

Behavior:
  - Cells are read in reading order (left to right, then top to bottom).
  - Numbers continue by their common step, dates by their day step, "Item 1"
    style text by its counter, and weekday or month names wrap around.
    Formulas are copied with their relative references shifted.
  - Filled cells are never overwritten.
  - By default the raw grid is printed, formulas as text. With --eval the
    evaluated grid is printed instead.

Examples:
  sheetcalc fill A1:A10 series.tsv
  sheetcalc fill B2:H2 --eval report.tsv`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFill,
}

func init() {
	fillCmd.Flags().BoolVar(&fillEval, "eval", false, "Print evaluated values instead of the raw grid")
	rootCmd.AddCommand(fillCmd)
}

func runFill(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	data, err := readGrid(cmd, args[1:])
	if err != nil {
		return err
	}

	sheet := spreadsheet.NewSheet(newEngine(cmd), func(line string) {
		fmt.Fprintln(cmd.ErrOrStderr(), line)
	}).Load(data).Fill(args[0])
	if err := sheet.Error(); err != nil {
		return err
	}

	model := sheet.Model()
	if fillEval {
		return writeGrid(cmd.OutOrStdout(), model.EvaluatedData)
	}
	return writeGrid(cmd.OutOrStdout(), model.Data)
}
