package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// resetFlags restores the package-level flag values after the test
func resetFlags(t *testing.T) {
	t.Helper()
	origSets := append([]string(nil), evalSets...)
	origStrict := evalStrict
	origFillEval := fillEval
	origVerbose := verbose
	t.Cleanup(func() {
		evalSets = origSets
		evalStrict = origStrict
		fillEval = origFillEval
		verbose = origVerbose
	})
	evalSets = nil
	evalStrict = false
	fillEval = false
	verbose = false
}

// testCommand wires stdin and captures stdout and stderr
func testCommand(stdin string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	c := &cobra.Command{}
	c.SetIn(strings.NewReader(stdin))
	c.SetOut(&stdout)
	c.SetErr(&stderr)
	return c, &stdout, &stderr
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		field    string
		expected spreadsheet.Primitive
	}{
		{"", nil},
		{"12", 12.0},
		{"-0.5", -0.5},
		{"1e3", 1000.0},
		{"TRUE", true},
		{"false", false},
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"=A1+1", "=A1+1"},
		{"=1", "=1"},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
		{"Task 1", "Task 1"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseValue(tt.field))
		})
	}
	assert.Nil(t, parseField(""))
}

func TestRunEval(t *testing.T) {
	t.Run("Stdin", func(t *testing.T) {
		resetFlags(t)
		c, stdout, _ := testCommand("1\t=A1*2\n=A1+B1\t\n")
		require.NoError(t, runEval(c, nil))
		assert.Equal(t, "1\t2\n3\t\n", stdout.String())
	})

	t.Run("Set", func(t *testing.T) {
		resetFlags(t)
		evalSets = []string{"B1=10", "C1==A1*5"}
		c, stdout, _ := testCommand("1\t=A1*2\n=A1+B1\t\n")
		require.NoError(t, runEval(c, []string{"-"}))
		assert.Equal(t, "1\t10\t5\n11\t\t\n", stdout.String())
	})

	t.Run("File", func(t *testing.T) {
		resetFlags(t)
		path := filepath.Join(t.TempDir(), "grid.tsv")
		require.NoError(t, os.WriteFile(path, []byte("2024-01-15\t=A1+1\r\nTRUE\t=NOT(A2)\r\n"), 0o644))
		c, stdout, _ := testCommand("")
		require.NoError(t, runEval(c, []string{path}))
		assert.Equal(t, "2024-01-15\t45307\nTRUE\tFALSE\n", stdout.String())
	})

	t.Run("MissingFile", func(t *testing.T) {
		resetFlags(t)
		c, _, _ := testCommand("")
		err := runEval(c, []string{filepath.Join(t.TempDir(), "missing.tsv")})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("StrictFailsOnErrorCells", func(t *testing.T) {
		resetFlags(t)
		evalStrict = true
		c, stdout, stderr := testCommand("=1/0\t=A1\n")
		err := runEval(c, nil)

		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, 2, exitErr.Code)
		assert.Equal(t, "#DIV/0!\t#DIV/0!\n", stdout.String())
		assert.Contains(t, stderr.String(), "A1, B1")
	})

	t.Run("StrictPassesCleanGrids", func(t *testing.T) {
		resetFlags(t)
		evalStrict = true
		c, _, _ := testCommand("1\t=A1\n")
		assert.NoError(t, runEval(c, nil))
	})

	t.Run("BadAssignments", func(t *testing.T) {
		resetFlags(t)
		evalSets = []string{"A1"}
		c, _, _ := testCommand("1\n")
		assert.ErrorContains(t, runEval(c, nil), "expected A1=value")

		evalSets = []string{"?1=3"}
		c, _, _ = testCommand("1\n")
		err := runEval(c, nil)
		assert.ErrorIs(t, err, spreadsheet.ErrInvalidAddress)
		var appErr *spreadsheet.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, spreadsheet.InvalidArgument, appErr.Code)
	})

	t.Run("VerboseLogsCycles", func(t *testing.T) {
		resetFlags(t)
		verbose = true
		c, stdout, stderr := testCommand("=B1\t=A1\n")
		require.NoError(t, runEval(c, nil))
		assert.Equal(t, "#REF!\t#REF!\n", stdout.String())
		assert.Contains(t, stderr.String(), "circular dependency")
		assert.Contains(t, stderr.String(), "component=engine")
	})

	t.Run("EmptyInput", func(t *testing.T) {
		resetFlags(t)
		c, stdout, _ := testCommand("")
		require.NoError(t, runEval(c, nil))
		assert.Empty(t, stdout.String())
	})
}

func TestRunFill(t *testing.T) {
	t.Run("Numbers", func(t *testing.T) {
		resetFlags(t)
		c, stdout, _ := testCommand("1\n2\n")
		require.NoError(t, runFill(c, []string{"A1:A4"}))
		assert.Equal(t, "1\n2\n3\n4\n", stdout.String())
	})

	t.Run("Lists", func(t *testing.T) {
		resetFlags(t)
		c, stdout, _ := testCommand("Fri\t\t\t\n")
		require.NoError(t, runFill(c, []string{"A1:D1", "-"}))
		assert.Equal(t, "Fri\tSat\tSun\tMon\n", stdout.String())
	})

	t.Run("FormulasRaw", func(t *testing.T) {
		resetFlags(t)
		c, stdout, _ := testCommand("1\t=A1*10\n2\t\n")
		require.NoError(t, runFill(c, []string{"B1:B3"}))
		assert.Equal(t, "1\t=A1*10\n2\t=A2*10\n\t=A3*10\n", stdout.String())
	})

	t.Run("FormulasEvaluated", func(t *testing.T) {
		resetFlags(t)
		fillEval = true
		c, stdout, _ := testCommand("1\t=A1*10\n2\t\n")
		require.NoError(t, runFill(c, []string{"B1:B3"}))
		assert.Equal(t, "1\t10\n2\t20\n\t0\n", stdout.String())
	})

	t.Run("InvalidRange", func(t *testing.T) {
		resetFlags(t)
		c, _, _ := testCommand("1\n")
		err := runFill(c, []string{"A1:"})
		assert.ErrorIs(t, err, spreadsheet.ErrInvalidRange)
	})
}

func TestExitError(t *testing.T) {
	err := error(&ExitError{Code: 2})
	assert.Empty(t, err.Error())
}
