package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kritdbb/DobyHR/internal/ir"
)

// RewardByID returns a reward catalog row or ErrNotFound.
func (s *Store) RewardByID(ctx context.Context, id int64) (ir.RewardItem, error) {
	return rewardByID(ctx, s.db, id)
}

// ActiveRewards returns the active catalog rows ordered by id.
func (s *Store) ActiveRewards(ctx context.Context) ([]ir.RewardItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, point_cost, is_active FROM rewards
		WHERE is_active = 1
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("active rewards: %w", err)
	}
	defer rows.Close()

	var items []ir.RewardItem
	for rows.Next() {
		var r ir.RewardItem
		if err := rows.Scan(&r.ID, &r.Name, &r.PointCost, &r.Active); err != nil {
			return nil, fmt.Errorf("active rewards: scan: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("active rewards: %w", err)
	}
	return items, nil
}

// CreateReward inserts a catalog row. A zero ID lets SQLite assign one.
func (s *Store) CreateReward(ctx context.Context, r ir.RewardItem) (int64, error) {
	var id any
	if r.ID != 0 {
		id = r.ID
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rewards (id, name, point_cost, is_active) VALUES (?, ?, ?, ?)
	`, id, r.Name, r.PointCost, r.Active)
	if err != nil {
		return 0, fmt.Errorf("create reward: %w", err)
	}
	return result.LastInsertId()
}

// BadgeByID returns a badge or ErrNotFound.
func (s *Store) BadgeByID(ctx context.Context, id int64) (ir.Badge, error) {
	var b ir.Badge
	err := s.db.QueryRowContext(ctx, `SELECT id, name, image FROM badges WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &b.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Badge{}, fmt.Errorf("badge %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Badge{}, fmt.Errorf("get badge %d: %w", id, err)
	}
	return b, nil
}

// BadgeExists reports whether a badge row with id exists.
func (s *Store) BadgeExists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM badges WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("check badge %d: %w", id, err)
	}
	return n > 0, nil
}

// CreateBadge inserts a badge. A zero ID lets SQLite assign one.
func (s *Store) CreateBadge(ctx context.Context, b ir.Badge) (int64, error) {
	var id any
	if b.ID != 0 {
		id = b.ID
	}
	result, err := s.db.ExecContext(ctx, `INSERT INTO badges (id, name, image) VALUES (?, ?, ?)`, id, b.Name, b.Image)
	if err != nil {
		return 0, fmt.Errorf("create badge: %w", err)
	}
	return result.LastInsertId()
}

// querier is the read surface shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func rewardByID(ctx context.Context, q querier, id int64) (ir.RewardItem, error) {
	var r ir.RewardItem
	err := q.QueryRowContext(ctx, `SELECT id, name, point_cost, is_active FROM rewards WHERE id = ?`, id).
		Scan(&r.ID, &r.Name, &r.PointCost, &r.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RewardItem{}, fmt.Errorf("reward %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.RewardItem{}, fmt.Errorf("get reward %d: %w", id, err)
	}
	return r, nil
}
