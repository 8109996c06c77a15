package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/store"
)

// NewProgressCommand creates the progress command.
func NewProgressCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <user-id>",
		Short: "Show a user's progress on every active quest",
		Long: `List active quests with the user's current field values and whether the
quest's award is already held.

Example:
  questd progress 42 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgress(rootOpts, args[0], cmd)
		},
	}
}

func runProgress(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	userID, err := parseID("user", arg)
	if err != nil {
		return err
	}

	a, err := opts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	progress, err := a.runner().Progress(commandContext(cmd.Context()), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("user %d not found", userID), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	return formatter.Render(progress, func(w io.Writer) {
		printProgress(w, progress)
	})
}

func printProgress(w io.Writer, progress []ir.QuestProgress) {
	if len(progress) == 0 {
		fmt.Fprintln(w, "No active quests.")
		return
	}
	for _, p := range progress {
		mark := "·"
		if p.Completed {
			mark = "✓"
		}
		fmt.Fprintf(w, "%s quest %d: %s\n", mark, p.QuestID, p.Description)
		fmt.Fprintf(w, "    %s", p.Query)
		if p.Error != "" {
			fmt.Fprintf(w, "  (error: %s)\n", p.Error)
			continue
		}
		fmt.Fprintf(w, "  [%s]\n", formatValues(p.FieldValues))
	}
}
