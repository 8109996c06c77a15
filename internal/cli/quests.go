package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kritdbb/DobyHR/internal/compiler"
	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/store"
)

// NewQuestsCommand creates the quests command group.
func NewQuestsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quests",
		Short: "Manage quest definitions",
	}
	cmd.AddCommand(newQuestsImportCommand(rootOpts))
	cmd.AddCommand(newQuestsListCommand(rootOpts))
	cmd.AddCommand(newQuestsAwardsCommand(rootOpts))
	cmd.AddCommand(newQuestsDeleteCommand(rootOpts))
	return cmd
}

// ImportResult is the payload of a successful import.
type ImportResult struct {
	File     string  `json:"file"`
	Imported int     `json:"imported"`
	IDs      []int64 `json:"ids"`
}

func newQuestsImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Compile quest definitions and save them",
		Long: `Compile a quest file (.yaml, .yml or .cue) and save every quest.

Nothing is saved unless the whole file compiles and every badge_id names
an existing badge. The quests are saved in one transaction. Quests with an
id replace the stored quest with that id; quests without one are created.

Exit codes:
  0 - All quests saved
  1 - The file does not compile
  2 - Command error

Example:
  questd quests import ./quests.yaml
  questd quests import ./quests.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuestsImport(rootOpts, args[0], cmd)
		},
	}
}

func runQuestsImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd.Context())

	a, err := opts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	quests, errs := compiler.CompileFile(ctx, path, a.registry, compiler.WithBadges(a.store))
	if len(errs) > 0 {
		return outputCompileErrors(formatter, path, errs)
	}
	formatter.VerboseLog("Compiled %d quest(s) from %s", len(quests), path)

	result := ImportResult{File: path, IDs: make([]int64, 0, len(quests))}
	now := time.Now().UTC()
	err = a.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, q := range quests {
			q.CreatedAt = now
			id, err := tx.SaveQuest(ctx, q)
			if err != nil {
				return err
			}
			result.IDs = append(result.IDs, id)
		}
		return nil
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	for i, id := range result.IDs {
		a.logger.Info("quest saved", "quest_id", id, "reward_type", quests[i].RewardType)
	}
	result.Imported = len(result.IDs)

	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Imported %d quest(s) from %s\n", result.Imported, path)
	})
}

// outputCompileErrors reports every compile error and returns exit code 1.
func outputCompileErrors(formatter *OutputFormatter, path string, errs []error) error {
	msg := fmt.Sprintf("%s: %d error(s)", path, len(errs))
	if formatter.Format == "json" {
		details := make([]string, len(errs))
		for i, err := range errs {
			details[i] = err.Error()
		}
		return formatter.Fail(ExitFailure, ErrCodeCompile, msg, details)
	}

	fmt.Fprintf(formatter.Writer, "✗ %s\n", msg)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", err)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeCompile, msg))
}

// QuestListing is a stored quest with its award count.
type QuestListing struct {
	ir.Quest
	CurrentAwards int64 `json:"current_awards"`
}

func newQuestsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored quests with their award counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuestsList(rootOpts, cmd)
		},
	}
}

func runQuestsList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd.Context())

	a, err := opts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	quests, err := a.store.ListQuests(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	listing := make([]QuestListing, 0, len(quests))
	for _, q := range quests {
		n, err := a.store.CountAwards(ctx, q)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		listing = append(listing, QuestListing{Quest: q, CurrentAwards: n})
	}

	return formatter.Render(listing, func(w io.Writer) {
		printQuests(w, listing)
	})
}

func printQuests(w io.Writer, listing []QuestListing) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTIVE\tREWARD\tAWARDS\tCONDITION")
	for _, q := range listing {
		cond, _ := q.EffectiveQuery()
		awards := fmt.Sprintf("%d", q.CurrentAwards)
		if q.MaxAwards != nil {
			awards = fmt.Sprintf("%d/%d", q.CurrentAwards, *q.MaxAwards)
		}
		fmt.Fprintf(tw, "%d\t%t\t%s %d\t%s\t%s\n", q.ID, q.Active, q.RewardType, q.RewardValue, awards, cond)
	}
	_ = tw.Flush()
}

func newQuestsAwardsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "awards <quest-id>",
		Short: "List the award records of a quest",
		Long: `List who holds a quest's award, with the run that granted it.

Records backfilled from badge ownership or ledger markers have source
legacy_badge or legacy_marker and no run id.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuestsAwards(rootOpts, args[0], cmd)
		},
	}
}

func runQuestsAwards(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd.Context())

	questID, err := parseID("quest", arg)
	if err != nil {
		return err
	}

	a, err := opts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.store.QuestByID(ctx, questID); err != nil {
		return questLookupError(formatter, questID, err)
	}
	records, err := a.store.AwardRecords(ctx, questID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	if records == nil {
		records = []ir.AwardRecord{}
	}

	return formatter.Render(records, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "USER\tSOURCE\tRUN\tAWARDED AT")
		for _, r := range records {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.UserID, r.Source, r.RunID, r.AwardedAt.Format(time.RFC3339))
		}
		_ = tw.Flush()
	})
}

func newQuestsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <quest-id>",
		Short:         "Delete a quest and its award records",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuestsDelete(rootOpts, args[0], cmd)
		},
	}
}

func runQuestsDelete(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	questID, err := parseID("quest", arg)
	if err != nil {
		return err
	}

	a, err := opts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.DeleteQuest(commandContext(cmd.Context()), questID); err != nil {
		return questLookupError(formatter, questID, err)
	}
	a.logger.Info("quest deleted", "quest_id", questID)

	return formatter.Render(map[string]int64{"deleted": questID}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Deleted quest %d\n", questID)
	})
}

func questLookupError(formatter *OutputFormatter, questID int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("quest %d not found", questID), nil)
	}
	return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}

// parseID parses a positive id argument.
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", kind, arg))
	}
	return id, nil
}
