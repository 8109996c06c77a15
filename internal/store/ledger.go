package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kritdbb/DobyHR/internal/ir"
)

// BalanceColumn names a user column that rewards may increment.
type BalanceColumn string

const (
	ColumnCoins   BalanceColumn = "coins"
	ColumnMana    BalanceColumn = "angel_coins"
	ColumnBaseStr BalanceColumn = "base_str"
	ColumnBaseDef BalanceColumn = "base_def"
	ColumnBaseLuk BalanceColumn = "base_luk"
)

func (c BalanceColumn) valid() bool {
	switch c {
	case ColumnCoins, ColumnMana, ColumnBaseStr, ColumnBaseDef, ColumnBaseLuk:
		return true
	}
	return false
}

func adjustUser(ctx context.Context, q querier, userID int64, col BalanceColumn, delta int64) error {
	if !col.valid() {
		return fmt.Errorf("adjust user %d: unknown column %q", userID, col)
	}
	// col is one of the constants above, never caller text.
	result, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %[1]s = COALESCE(%[1]s, 0) + ? WHERE id = ?`, col),
		delta, userID)
	if err != nil {
		return fmt.Errorf("adjust user %d %s: %w", userID, col, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

func appendLedger(ctx context.Context, q querier, e ir.LedgerEntry) (int64, error) {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	result, err := q.ExecContext(ctx, `
		INSERT INTO coin_logs (user_id, amount, reason, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.UserID, e.Amount, e.Reason, e.CreatedBy, createdAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("append ledger: %w", err)
	}
	return result.LastInsertId()
}

func grantBadge(ctx context.Context, q querier, userID, badgeID int64, awardedBy string, at time.Time) (bool, error) {
	if at.IsZero() {
		at = time.Now()
	}
	result, err := q.ExecContext(ctx, `
		INSERT INTO user_badges (user_id, badge_id, awarded_at, awarded_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, badge_id) DO NOTHING
	`, userID, badgeID, at.UTC(), awardedBy)
	if err != nil {
		return false, fmt.Errorf("grant badge %d to user %d: %w", badgeID, userID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("grant badge %d to user %d: %w", badgeID, userID, err)
	}
	return n == 1, nil
}

func createRedemption(ctx context.Context, q querier, userID, rewardID int64, status string) (int64, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO redemptions (user_id, reward_id, status) VALUES (?, ?, ?)
	`, userID, rewardID, status)
	if err != nil {
		return 0, fmt.Errorf("create redemption: %w", err)
	}
	return result.LastInsertId()
}

// AppendLedger writes one coin_logs row without touching balances.
func (s *Store) AppendLedger(ctx context.Context, e ir.LedgerEntry) (int64, error) {
	return appendLedger(ctx, s.db, e)
}

// GrantBadge gives a badge to a user. Returns false if already held.
func (s *Store) GrantBadge(ctx context.Context, userID, badgeID int64, awardedBy string) (bool, error) {
	return grantBadge(ctx, s.db, userID, badgeID, awardedBy, time.Time{})
}

// CreateRedemption records a catalog redemption with the given status.
func (s *Store) CreateRedemption(ctx context.Context, userID, rewardID int64, status string) (int64, error) {
	return createRedemption(ctx, s.db, userID, rewardID, status)
}

// LedgerEntries returns a user's ledger rows ordered by id.
func (s *Store) LedgerEntries(ctx context.Context, userID int64) ([]ir.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, reason, created_by, created_at
		FROM coin_logs
		WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []ir.LedgerEntry
	for rows.Next() {
		var e ir.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger entries: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger entries: %w", err)
	}
	return entries, nil
}
