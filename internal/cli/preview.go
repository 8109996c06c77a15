package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kritdbb/DobyHR/internal/ir"
)

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <query>",
		Short: "Show which users currently satisfy a query",
		Long: `Evaluate a condition query against every user without granting anything.

An invalid query is reported with exit code 1.

Example:
  questd preview "total_steps >= 10000"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(rootOpts, strings.Join(args, " "), cmd)
		},
	}
}

func runPreview(opts *RootOptions, q string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	a, err := opts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.runner().Preview(commandContext(cmd.Context()), q)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	if !result.Validation.Valid {
		return formatter.Fail(ExitFailure, ErrCodeInvalidQuery, result.Validation.Error, result)
	}

	return formatter.Render(result, func(w io.Writer) {
		printPreview(w, result)
	})
}

func printPreview(w io.Writer, result ir.PreviewResult) {
	fmt.Fprintf(w, "%d of %d user(s) match %q\n", result.MatchingUsers, result.TotalUsers, result.Query)
	for _, m := range result.Users {
		fmt.Fprintf(w, "  %d %s %s\n", m.UserID, m.UserName, formatValues(m.FieldValues))
	}
}
