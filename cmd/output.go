package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// ExitError signals a non-zero exit code without printing an error message.
type ExitError struct{ Code int }

func (e *ExitError) Error() string { return "" }

// readGrid loads a TSV grid from the file named by args[0], or stdin when
// args is empty or "-"
func readGrid(cmd *cobra.Command, args []string) (spreadsheet.Matrix[spreadsheet.Cell], error) {
	var (
		raw []byte
		err error
	)
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("reading grid: %w", err)
	}

	values := spreadsheet.SplitMatrix(string(raw), parseField)
	return spreadsheet.MapMatrix(values, func(v *spreadsheet.Primitive, _ spreadsheet.Point) *spreadsheet.Cell {
		return spreadsheet.NewCell(*v)
	}), nil
}

// parseField reads one TSV field. empty fields are empty cells
func parseField(field string) *spreadsheet.Primitive {
	if field == "" {
		return nil
	}
	v := parseValue(field)
	return &v
}

// parseValue types a literal: numbers, TRUE/FALSE, YYYY-MM-DD dates, and
// text for everything else, formulas included
func parseValue(s string) spreadsheet.Primitive {
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "=") {
		return s
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return n
	}
	switch strings.ToUpper(s) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d
	}
	return s
}

// writeGrid prints m as TSV
func writeGrid(w io.Writer, m spreadsheet.Matrix[spreadsheet.Cell]) error {
	text := m.Join(func(c *spreadsheet.Cell) string {
		return spreadsheet.FormatValue(c.Value)
	})
	if text == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// errorCells lists the addresses holding an error value, in reading order
func errorCells(m spreadsheet.Matrix[spreadsheet.Cell]) []string {
	var addresses []string
	for p, c := range m.Entries() {
		if _, ok := spreadsheet.ParseErrorValue(c.Value); ok {
			addresses = append(addresses, p.String())
		}
	}
	return addresses
}
