package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

var (
	evalSets   []string
	evalStrict bool
)

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Evaluate every formula of a TSV grid",
	Long: `Evaluate every formula of a tab separated grid and print the evaluated grid.

Behavior:
  - The grid is read from [file], or stdin when it is omitted or "-".
  - Fields are typed as numbers, TRUE/FALSE, YYYY-MM-DD dates, or text.
    Text starting with "=" is a formula.
  - Each --set edit is applied in order after the grid is loaded; only the
    edited cell and its dependents are evaluated again.
  - With --strict, returns exit code 2 when any cell holds an error value.

Examples:
  sheetcalc eval budget.tsv
  sheetcalc eval budget.tsv --set B2=120 --set C1==SUM(B1:B9)
  printf '1\t=A1*2\n' | sheetcalc eval`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringArrayVar(&evalSets, "set", nil, "Cell edit applied after loading, as A1=value (repeatable)")
	evalCmd.Flags().BoolVar(&evalStrict, "strict", false, "Exit 2 when any cell evaluates to an error")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	data, err := readGrid(cmd, args)
	if err != nil {
		return err
	}

	sheet := spreadsheet.NewSheet(newEngine(cmd), func(line string) {
		fmt.Fprintln(cmd.ErrOrStderr(), line)
	}).Load(data)

	for _, assignment := range evalSets {
		address, raw, ok := strings.Cut(assignment, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q: expected A1=value", assignment)
		}
		sheet.Set(strings.TrimSpace(address), parseValue(raw))
	}
	if err := sheet.Error(); err != nil {
		return err
	}

	evaluated := sheet.Model().EvaluatedData
	if err := writeGrid(cmd.OutOrStdout(), evaluated); err != nil {
		return err
	}

	if evalStrict {
		if failed := errorCells(evaluated); len(failed) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d cell(s) evaluate to an error: %s\n", len(failed), strings.Join(failed, ", "))
			return &ExitError{Code: 2}
		}
	}
	return nil
}
