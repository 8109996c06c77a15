package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/query"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query>",
		Short: "Check a condition query without evaluating it",
		Long: `Parse a condition query and check every field name.

No resolver runs. Arguments are joined with spaces, so quoting is optional.

Exit codes:
  0 - Query is valid
  1 - Query is invalid
  2 - Command error

Example:
  questd validate "checkin_streak >= 5 AND coins >= 100"
  questd validate item_12 '>=' 1 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, strings.Join(args, " "), cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, q string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	a, err := opts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	result := query.Validate(commandContext(cmd.Context()), q, a.registry)
	formatter.VerboseLog("Validated %q: %d condition(s)", q, result.ConditionCount)

	if !result.Valid {
		if formatter.Format == "json" {
			return formatter.Fail(ExitFailure, ErrCodeInvalidQuery, result.Error, result)
		}
		fmt.Fprintf(formatter.Writer, "✗ %s\n", result.Error)
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeInvalidQuery, result.Error))
	}

	return formatter.Render(result, func(w io.Writer) {
		printValidation(w, result)
	})
}

func printValidation(w io.Writer, result ir.ValidationResult) {
	fmt.Fprintf(w, "✓ Valid query (%d condition(s))\n", result.ConditionCount)
	fmt.Fprintf(w, "  Fields: %s\n", strings.Join(result.Fields, ", "))
}
