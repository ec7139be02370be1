package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tokenledger/internal/genesis"
)

// ValidationError is one genesis validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Name    string            `json:"name,omitempty"`
	Symbol  string            `json:"symbol,omitempty"`
	Scale   uint8             `json:"scale,omitempty"`
	Supply  string            `json:"supply,omitempty"`
	Creator string            `json:"creator,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <genesis-file>",
		Short: "Validate a genesis document without initializing",
		Long: `Validate a genesis document against the genesis schema.

Checks syntax, required fields, the supply range, and the creator
account without touching any journal.

Exit codes:
  0 - Document is valid
  1 - Document failed validation
  2 - Command error (file not found, etc.)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("genesis file not found: %s", path))
	}

	formatter.VerboseLog("Validating %s", path)
	doc, err := genesis.Load(path)
	if err != nil {
		var gErr *genesis.Error
		if !errors.As(err, &gErr) {
			return outputValidateError(formatter, ErrCodeGeneric, err.Error())
		}
		return outputValidationErrors(formatter, []ValidationError{toValidationError(gErr)})
	}

	result := ValidationResult{
		Valid:   true,
		Name:    doc.Name,
		Symbol:  doc.Symbol,
		Scale:   doc.Scale,
		Supply:  doc.Supply.Dec(),
		Creator: doc.Creator.String(),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s valid: %s (%s), supply %s to %s\n",
		path, doc.Name, doc.Symbol, result.Supply, result.Creator)
	return nil
}

func toValidationError(e *genesis.Error) ValidationError {
	v := ValidationError{Field: e.Field, Message: e.Message}
	if e.Pos.IsValid() {
		v.Line = e.Pos.Line()
		v.Column = e.Pos.Column()
	}
	return v
}

// outputValidateError outputs a single command-level error (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs validation failures (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		_ = formatter.Error(ErrCodeInvalidGenesis, errs[0].Message, ValidationResult{Valid: false, Errors: errs})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
