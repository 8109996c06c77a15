package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/store"
)

// seedDB creates a database with two users, a catalog item, a badge and one
// active gold quest, and returns its path.
//
//	Alice: 12000 steps, 120 coins
//	Bob:   3000 steps, 20 coins
func seedDB(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "questd.db")

	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	day := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	for _, u := range []struct {
		user  ir.User
		steps int64
	}{
		{ir.User{ID: 1, Name: "Alice", Coins: 120}, 12000},
		{ir.User{ID: 2, Name: "Bob", Coins: 20}, 3000},
	} {
		_, err := s.CreateUser(ctx, u.user)
		require.NoError(t, err)
		require.NoError(t, s.RecordSteps(ctx, u.user.ID, day, u.steps))
	}

	_, err = s.CreateReward(ctx, ir.RewardItem{ID: 12, Name: "Lunch Voucher", PointCost: 30, Active: true})
	require.NoError(t, err)
	_, err = s.CreateBadge(ctx, ir.Badge{ID: 3, Name: "Walker"})
	require.NoError(t, err)

	_, err = s.SaveQuest(ctx, ir.Quest{
		ID:             1,
		Description:    "Walk ten thousand steps",
		ConditionQuery: "total_steps >= 10000",
		Active:         true,
		RewardType:     ir.RewardGold,
		RewardValue:    10,
		CreatedAt:      day,
	})
	require.NoError(t, err)
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// response mirrors CLIResponse with a raw payload.
type response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeResponse(t *testing.T, out string, data any) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}
