package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kritdbb/DobyHR/internal/engine"
	"github.com/kritdbb/DobyHR/internal/ir"
)

// EvaluateOptions holds flags for the evaluate command.
type EvaluateOptions struct {
	*RootOptions

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvaluateOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:   "evaluate",
		Short: "Run one quest evaluation pass",
		Long: `Evaluate every active quest against every user and grant rewards.

Pairs that already hold a quest's award are skipped, so running evaluate
twice grants nothing the second time. Failures of individual quests or
users are listed in the summary and do not change the exit code.

Example:
  questd evaluate --db ./dobyhr.db
  questd evaluate --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(opts, cmd)
		},
	}
}

func runEvaluate(opts *EvaluateOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	a, err := opts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	var extra []engine.RunnerOption
	if opts.RunIDs != nil {
		extra = append(extra, engine.WithRunIDGenerator(opts.RunIDs))
	}

	summary, err := a.runner(extra...).Run(commandContext(cmd.Context()))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRunAborted, err.Error(), summary)
	}

	return formatter.Render(summary, func(w io.Writer) {
		printSummary(w, summary)
	})
}

func printSummary(w io.Writer, s ir.RunSummary) {
	fmt.Fprintf(w, "Run %s: %d reward(s) granted, %d failure(s)\n", s.RunID, s.Awarded, len(s.Failures))
	for _, d := range s.Details {
		fmt.Fprintf(w, "  ✓ quest %d → %s: %s\n", d.QuestID, d.UserName, d.Reward)
	}
	for _, f := range s.Failures {
		if f.UserID != 0 {
			fmt.Fprintf(w, "  ✗ quest %d user %d [%s] %s\n", f.QuestID, f.UserID, f.Code, f.Message)
		} else {
			fmt.Fprintf(w, "  ✗ quest %d [%s] %s\n", f.QuestID, f.Code, f.Message)
		}
	}
	for _, id := range s.QuestsDisabled {
		fmt.Fprintf(w, "  quest %d reached max awards and was deactivated\n", id)
	}
}

// formatValues renders resolved field values as "a=1 b=2" in name order.
func formatValues(values map[string]int64) string {
	parts := make([]string, 0, len(values))
	for _, name := range slices.Sorted(maps.Keys(values)) {
		parts = append(parts, fmt.Sprintf("%s=%d", name, values[name]))
	}
	return strings.Join(parts, " ")
}
