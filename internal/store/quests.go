package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kritdbb/DobyHR/internal/ir"
)

const questColumns = `id, badge_id, condition_query, condition_type, threshold, is_active,
	description, max_awards, reward_type, reward_value, created_at`

func scanQuest(row rowScanner) (ir.Quest, error) {
	var q ir.Quest
	var badgeID, threshold, maxAwards sql.NullInt64
	var rewardType string
	if err := row.Scan(&q.ID, &badgeID, &q.ConditionQuery, &q.ConditionType, &threshold,
		&q.Active, &q.Description, &maxAwards, &rewardType, &q.RewardValue, &q.CreatedAt); err != nil {
		return ir.Quest{}, err
	}
	q.BadgeID = nullableInt(badgeID)
	q.Threshold = nullableInt(threshold)
	q.MaxAwards = nullableInt(maxAwards)
	q.RewardType = ir.RewardType(rewardType)
	if q.RewardType == "" {
		q.RewardType = ir.RewardBadge
	}
	return q, nil
}

func nullableInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func intOrNil(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func (s *Store) listQuests(ctx context.Context, where string) ([]ir.Quest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+questColumns+` FROM quests `+where+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer rows.Close()

	var quests []ir.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("list quests: scan: %w", err)
		}
		quests = append(quests, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	return quests, nil
}

// ListQuests returns every quest ordered by id.
func (s *Store) ListQuests(ctx context.Context) ([]ir.Quest, error) {
	return s.listQuests(ctx, "")
}

// ListActiveQuests returns the active quests ordered by id.
func (s *Store) ListActiveQuests(ctx context.Context) ([]ir.Quest, error) {
	return s.listQuests(ctx, "WHERE is_active = 1")
}

// QuestByID returns one quest or ErrNotFound.
func (s *Store) QuestByID(ctx context.Context, id int64) (ir.Quest, error) {
	q, err := scanQuest(s.db.QueryRowContext(ctx, `SELECT `+questColumns+` FROM quests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Quest{}, fmt.Errorf("quest %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Quest{}, fmt.Errorf("get quest %d: %w", id, err)
	}
	return q, nil
}

// SaveQuest inserts q, or replaces the quest with the same non-zero ID.
// Returns the quest id.
func (s *Store) SaveQuest(ctx context.Context, q ir.Quest) (int64, error) {
	return saveQuest(ctx, s.db, q)
}

func saveQuest(ctx context.Context, db querier, q ir.Quest) (int64, error) {
	var id any
	if q.ID != 0 {
		id = q.ID
	}
	createdAt := q.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	result, err := db.ExecContext(ctx, `
		INSERT INTO quests
		(id, badge_id, condition_query, condition_type, threshold, is_active,
		 description, max_awards, reward_type, reward_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			badge_id = excluded.badge_id,
			condition_query = excluded.condition_query,
			condition_type = excluded.condition_type,
			threshold = excluded.threshold,
			is_active = excluded.is_active,
			description = excluded.description,
			max_awards = excluded.max_awards,
			reward_type = excluded.reward_type,
			reward_value = excluded.reward_value
	`,
		id,
		intOrNil(q.BadgeID),
		q.ConditionQuery,
		q.ConditionType,
		intOrNil(q.Threshold),
		q.Active,
		q.Description,
		intOrNil(q.MaxAwards),
		string(q.RewardType),
		q.RewardValue,
		createdAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("save quest: %w", err)
	}
	if q.ID != 0 {
		return q.ID, nil
	}
	return result.LastInsertId()
}

// SetQuestActive flips a quest's active flag.
func (s *Store) SetQuestActive(ctx context.Context, id int64, active bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE quests SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("set quest %d active: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set quest %d active: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("quest %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteQuest removes a quest and, by cascade, its award records.
func (s *Store) DeleteQuest(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM quests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete quest %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("quest %d: %w", id, ErrNotFound)
	}
	return nil
}
