package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/testutil"
)

func TestValidate_Valid(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "--db", db, "validate", "total_steps >= 100 AND coins >= 5")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Valid query (2 condition(s))")
	assert.Contains(t, out, "Fields: total_steps, coins")
}

func TestValidate_JoinsArguments(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "--db", db, "--format", "json", "validate", "item_12", ">=", "1")
	require.NoError(t, err)

	var result ir.ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"item_12"}, result.Fields)
}

func TestValidate_Invalid(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "--db", db, "validate", "total_stepz >= 100")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "unknown field: 'total_stepz'")
}

func TestValidate_InvalidJSON(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "--db", db, "--format", "json", "validate", "coins >= lots")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidQuery, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "invalid condition")
}

func TestFields_CatalogIncludesItems(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "--db", db, "--format", "json", "fields")
	require.NoError(t, err)

	var catalog map[string]FieldInfo
	decodeResponse(t, out, &catalog)
	require.Contains(t, catalog, "total_steps")
	require.Contains(t, catalog, "item_12")
	assert.Contains(t, catalog["item_12"].Label, "Lunch Voucher")
	assert.Equal(t, FieldKindStatic, catalog["total_steps"].Kind)
	assert.Equal(t, FieldKindItem, catalog["item_12"].Kind)
}

func TestFields_Text(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "--db", db, "fields")
	require.NoError(t, err)
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "checkin_streak")
	assert.Regexp(t, `item_12\s+item\s+`, out)
}

func TestPreview(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "--db", db, "--format", "json", "preview", "total_steps >= 10000")
	require.NoError(t, err)

	var result ir.PreviewResult
	decodeResponse(t, out, &result)
	assert.Equal(t, 2, result.TotalUsers)
	assert.Equal(t, 1, result.MatchingUsers)
	require.Len(t, result.Users, 1)
	assert.Equal(t, int64(1), result.Users[0].UserID)
	assert.Equal(t, map[string]int64{"total_steps": 12000}, result.Users[0].FieldValues)
}

func TestPreview_InvalidQuery(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "--db", db, "preview", "AND")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeInvalidQuery)
}

func TestEvaluate_Idempotent(t *testing.T) {
	db := seedDB(t)
	opts := &EvaluateOptions{
		RootOptions: &RootOptions{Format: "json", Database: db},
		RunIDs:      testutil.NewSequentialRunIDs("cli"),
	}

	run := func() ir.RunSummary {
		buf := &bytes.Buffer{}
		cmd := &cobra.Command{}
		cmd.SetOut(buf)
		cmd.SetErr(io.Discard)
		require.NoError(t, runEvaluate(opts, cmd))

		var summary ir.RunSummary
		decodeResponse(t, buf.String(), &summary)
		return summary
	}

	first := run()
	assert.Equal(t, "cli-1", first.RunID)
	assert.Equal(t, 1, first.Awarded)
	require.Len(t, first.Details, 1)
	assert.Equal(t, "+10 Gold", first.Details[0].Reward)
	assert.Equal(t, "Alice", first.Details[0].UserName)

	second := run()
	assert.Equal(t, "cli-2", second.RunID)
	assert.Equal(t, 0, second.Awarded)
	assert.Empty(t, second.Failures)
}

func TestEvaluate_Text(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "--db", db, "evaluate")
	require.NoError(t, err)
	assert.Contains(t, out, "1 reward(s) granted, 0 failure(s)")
	assert.Contains(t, out, "quest 1 → Alice: +10 Gold")
}

func TestProgress(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "--db", db, "--format", "json", "progress", "2")
	require.NoError(t, err)

	var progress []ir.QuestProgress
	decodeResponse(t, out, &progress)
	require.Len(t, progress, 1)
	assert.Equal(t, int64(1), progress[0].QuestID)
	assert.False(t, progress[0].Completed)
	assert.Equal(t, map[string]int64{"total_steps": 3000}, progress[0].FieldValues)
}

func TestProgress_AfterEvaluate(t *testing.T) {
	db := seedDB(t)

	_, err := execute(t, "--db", db, "evaluate")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "progress", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ quest 1: Walk ten thousand steps")
	assert.Contains(t, out, "total_steps=12000")
}

func TestProgress_Errors(t *testing.T) {
	db := seedDB(t)

	_, err := execute(t, "--db", db, "progress", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid user id")

	out, err := execute(t, "--db", db, "progress", "99")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "user 99 not found")
}

func TestQuestsImportAndList(t *testing.T) {
	db := seedDB(t)
	file := filepath.Join(t.TempDir(), "quests.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`quests:
  - name: replace-walker
    id: 1
    description: Walk a little
    condition_query: "total_steps >= 1000"
    reward_type: str
    reward_value: 2
    max_awards: 5
  - name: shopper
    id: 2
    condition_query: "coins >= 100"
    reward_type: badge
    badge_id: 3
`), 0o644))

	out, err := execute(t, "--db", db, "--format", "json", "quests", "import", file)
	require.NoError(t, err)
	var imported ImportResult
	decodeResponse(t, out, &imported)
	assert.Equal(t, 2, imported.Imported)
	assert.Equal(t, []int64{1, 2}, imported.IDs)

	_, err = execute(t, "--db", db, "evaluate")
	require.NoError(t, err)

	out, err = execute(t, "--db", db, "--format", "json", "quests", "list")
	require.NoError(t, err)
	var listing []QuestListing
	decodeResponse(t, out, &listing)
	require.Len(t, listing, 2)

	assert.Equal(t, int64(1), listing[0].ID)
	assert.Equal(t, ir.RewardStr, listing[0].RewardType)
	assert.Equal(t, int64(2), listing[0].CurrentAwards)
	require.NotNil(t, listing[0].MaxAwards)
	assert.Equal(t, int64(5), *listing[0].MaxAwards)

	assert.Equal(t, int64(2), listing[1].ID)
	assert.Equal(t, int64(1), listing[1].CurrentAwards)
}

func TestQuestsImport_CompileErrors(t *testing.T) {
	db := seedDB(t)
	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`quests:
  - name: typo
    condition_query: "total_stepz >= 1"
    reward_type: gold
    reward_value: 5
  - name: no-badge
    condition_query: "coins >= 1"
    reward_type: badge
`), 0o644))

	out, err := execute(t, "--db", db, "quests", "import", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "2 error(s)")
	assert.Contains(t, out, "total_stepz")
	assert.Contains(t, out, "badge_id")

	// Nothing from the file was saved.
	out, err = execute(t, "--db", db, "--format", "json", "quests", "list")
	require.NoError(t, err)
	var listing []QuestListing
	decodeResponse(t, out, &listing)
	assert.Len(t, listing, 1)
}

func TestQuestsImport_UnknownBadge(t *testing.T) {
	db := seedDB(t)
	file := filepath.Join(t.TempDir(), "badges.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`quests:
  - name: shopper
    id: 2
    condition_query: "coins >= 100"
    reward_type: gold
    reward_value: 5
  - name: ghost
    id: 3
    condition_query: "total_steps >= 1"
    reward_type: badge
    badge_id: 999
`), 0o644))

	out, err := execute(t, "--db", db, "--format", "json", "quests", "import", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCompile, resp.Error.Code)
	assert.Contains(t, fmt.Sprint(resp.Error.Details), "badge 999 not found")

	out, err = execute(t, "--db", db, "--format", "json", "quests", "list")
	require.NoError(t, err)
	var listing []QuestListing
	decodeResponse(t, out, &listing)
	require.Len(t, listing, 1)
	assert.Equal(t, int64(1), listing[0].ID)
}

func TestServe_StopsOnCancel(t *testing.T) {
	db := seedDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--db", db, "serve"})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, buf.String(), "Quest scheduler started.")
}

func TestQuestsAwardsAndDelete(t *testing.T) {
	db := seedDB(t)

	_, err := execute(t, "--db", db, "evaluate")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "--format", "json", "quests", "awards", "1")
	require.NoError(t, err)
	var records []ir.AwardRecord
	decodeResponse(t, out, &records)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].UserID)
	assert.Equal(t, ir.AwardSourceRunner, records[0].Source)

	out, err = execute(t, "--db", db, "quests", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Deleted quest 1")

	out, err = execute(t, "--db", db, "quests", "awards", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "quest 1 not found")

	_, err = execute(t, "--db", db, "quests", "delete", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid quest id")
}
