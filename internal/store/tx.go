package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kritdbb/DobyHR/internal/ir"
)

// Tx is one write transaction: a grant or a quest import. Every effect
// goes through the same Tx so it commits or rolls back as a unit.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise; fn's error is returned unchanged.
//
// The connection is opened with _txlock=immediate, so BEGIN takes the write
// lock and concurrent grants serialise instead of failing on upgrade.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CountAwards is Store.CountAwards read inside the transaction.
func (t *Tx) CountAwards(ctx context.Context, quest ir.Quest) (int64, error) {
	return countAwards(ctx, t.tx, quest)
}

// InsertAward writes an award record. It returns false without error when
// the (quest, user) pair already has one.
func (t *Tx) InsertAward(ctx context.Context, rec ir.AwardRecord) (bool, error) {
	return insertAward(ctx, t.tx, rec)
}

// AdjustUser adds delta to one of the user's balance columns.
func (t *Tx) AdjustUser(ctx context.Context, userID int64, col BalanceColumn, delta int64) error {
	return adjustUser(ctx, t.tx, userID, col, delta)
}

// AppendLedger writes one coin_logs row.
func (t *Tx) AppendLedger(ctx context.Context, e ir.LedgerEntry) (int64, error) {
	return appendLedger(ctx, t.tx, e)
}

// GrantBadge inserts a badge ownership row, ignoring an existing one.
func (t *Tx) GrantBadge(ctx context.Context, userID, badgeID int64, awardedBy string, at time.Time) (bool, error) {
	return grantBadge(ctx, t.tx, userID, badgeID, awardedBy, at)
}

// CreateRedemption records a catalog redemption.
func (t *Tx) CreateRedemption(ctx context.Context, userID, rewardID int64, status string) (int64, error) {
	return createRedemption(ctx, t.tx, userID, rewardID, status)
}

// SaveQuest is Store.SaveQuest inside the transaction.
func (t *Tx) SaveQuest(ctx context.Context, q ir.Quest) (int64, error) {
	return saveQuest(ctx, t.tx, q)
}

// RewardByID reads a catalog row inside the transaction.
func (t *Tx) RewardByID(ctx context.Context, id int64) (ir.RewardItem, error) {
	return rewardByID(ctx, t.tx, id)
}

// BadgeByID reads a badge inside the transaction.
func (t *Tx) BadgeByID(ctx context.Context, id int64) (ir.Badge, error) {
	var b ir.Badge
	err := t.tx.QueryRowContext(ctx, `SELECT id, name, image FROM badges WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &b.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Badge{}, fmt.Errorf("badge %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Badge{}, fmt.Errorf("get badge %d: %w", id, err)
	}
	return b, nil
}
