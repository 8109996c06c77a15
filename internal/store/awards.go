package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kritdbb/DobyHR/internal/ir"
)

// HasAward reports whether user already holds quest's reward.
//
// The award_records table is checked first. Pairs rewarded before it existed
// are recognised by their legacy proof: badge ownership for badge quests and
// an exact ledger marker for every other reward type.
func (s *Store) HasAward(ctx context.Context, quest ir.Quest, userID int64) (bool, error) {
	var exists bool
	var err error
	if quest.RewardType == ir.RewardBadge && quest.BadgeID != nil {
		err = s.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM award_records WHERE quest_id = ? AND user_id = ?)
			    OR EXISTS(SELECT 1 FROM user_badges WHERE user_id = ? AND badge_id = ?)
		`, quest.ID, userID, userID, *quest.BadgeID).Scan(&exists)
	} else {
		err = s.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM award_records WHERE quest_id = ? AND user_id = ?)
			    OR EXISTS(SELECT 1 FROM coin_logs WHERE user_id = ? AND reason = ?)
		`, quest.ID, userID, userID, ir.MarkerReason(quest.ID)).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("has award quest=%d user=%d: %w", quest.ID, userID, err)
	}
	return exists, nil
}

// CountAwards returns the number of distinct users holding quest's reward.
func (s *Store) CountAwards(ctx context.Context, quest ir.Quest) (int64, error) {
	return countAwards(ctx, s.db, quest)
}

// countAwards is the authoritative cap count: award records united with the
// legacy proof for the quest's reward type.
func countAwards(ctx context.Context, q querier, quest ir.Quest) (int64, error) {
	var n int64
	var err error
	if quest.RewardType == ir.RewardBadge && quest.BadgeID != nil {
		err = q.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM (
				SELECT user_id FROM award_records WHERE quest_id = ?
				UNION
				SELECT user_id FROM user_badges WHERE badge_id = ?
			)
		`, quest.ID, *quest.BadgeID).Scan(&n)
	} else {
		err = q.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM (
				SELECT user_id FROM award_records WHERE quest_id = ?
				UNION
				SELECT user_id FROM coin_logs WHERE reason = ?
			)
		`, quest.ID, ir.MarkerReason(quest.ID)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count awards quest=%d: %w", quest.ID, err)
	}
	return n, nil
}

// AwardRecords returns the award records of a quest ordered by id.
func (s *Store) AwardRecords(ctx context.Context, questID int64) ([]ir.AwardRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, quest_id, user_id, reward_type, query_hash, run_id, source, awarded_at
		FROM award_records
		WHERE quest_id = ?
		ORDER BY id ASC
	`, questID)
	if err != nil {
		return nil, fmt.Errorf("award records: %w", err)
	}
	defer rows.Close()

	var records []ir.AwardRecord
	for rows.Next() {
		var r ir.AwardRecord
		var rewardType, source string
		if err := rows.Scan(&r.ID, &r.QuestID, &r.UserID, &rewardType, &r.QueryHash, &r.RunID, &source, &r.AwardedAt); err != nil {
			return nil, fmt.Errorf("award records: scan: %w", err)
		}
		r.RewardType = ir.RewardType(rewardType)
		r.Source = ir.AwardSource(source)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("award records: %w", err)
	}
	return records, nil
}

func insertAward(ctx context.Context, q querier, rec ir.AwardRecord) (bool, error) {
	source := rec.Source
	if source == "" {
		source = ir.AwardSourceRunner
	}
	result, err := q.ExecContext(ctx, `
		INSERT INTO award_records
		(quest_id, user_id, reward_type, query_hash, run_id, source, awarded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(quest_id, user_id) DO NOTHING
	`,
		rec.QuestID,
		rec.UserID,
		string(rec.RewardType),
		rec.QueryHash,
		rec.RunID,
		string(source),
		rec.AwardedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert award: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert award: %w", err)
	}
	return n == 1, nil
}

var (
	_ querier = (*sql.DB)(nil)
	_ querier = (*sql.Tx)(nil)
)
