package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kritdbb/DobyHR/internal/ir"
)

func TestMigrateToV2_BackfillsLegacyProof(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	createTestUser(t, s, 1, "Anan")
	createTestUser(t, s, 2, "Malee")
	badgeID, err := s.CreateBadge(ctx, ir.Badge{Name: "Walker"})
	require.NoError(t, err)
	_, err = s.SaveQuest(ctx, ir.Quest{ID: 1, BadgeID: &badgeID, Active: true, RewardType: ir.RewardBadge})
	require.NoError(t, err)
	_, err = s.SaveQuest(ctx, ir.Quest{ID: 2, Active: true, RewardType: ir.RewardGold, RewardValue: 5})
	require.NoError(t, err)

	// Simulate a deployment that predates award_records.
	_, err = s.GrantBadge(ctx, 1, badgeID, ir.AwardedBy)
	require.NoError(t, err)
	_, err = s.AppendLedger(ctx, ir.LedgerEntry{UserID: 2, Amount: 5, Reason: ir.MarkerReason(2), CreatedBy: ir.AwardedBy})
	require.NoError(t, err)
	_, err = s.AppendLedger(ctx, ir.LedgerEntry{UserID: 2, Amount: 5, Reason: ir.MarkerReason(2), CreatedBy: ir.AwardedBy})
	require.NoError(t, err)
	_, err = s.DB().Exec(`PRAGMA user_version = 0`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	badgeRecords, err := s.AwardRecords(ctx, 1)
	require.NoError(t, err)
	require.Len(t, badgeRecords, 1)
	assert.Equal(t, int64(1), badgeRecords[0].UserID)
	assert.Equal(t, ir.AwardSourceLegacyBadge, badgeRecords[0].Source)

	goldRecords, err := s.AwardRecords(ctx, 2)
	require.NoError(t, err)
	require.Len(t, goldRecords, 1)
	assert.Equal(t, int64(2), goldRecords[0].UserID)
	assert.Equal(t, ir.AwardSourceLegacyMarker, goldRecords[0].Source)
	assert.Equal(t, ir.RewardGold, goldRecords[0].RewardType)

	assert.NoError(t, s.verifyPragma("user_version", "2"))
}
