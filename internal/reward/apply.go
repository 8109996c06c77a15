// Package reward applies a quest's reward to a user inside a grant
// transaction.
package reward

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/store"
)

// Ledger is the write surface of one grant transaction. *store.Tx
// implements it.
type Ledger interface {
	AdjustUser(ctx context.Context, userID int64, col store.BalanceColumn, delta int64) error
	AppendLedger(ctx context.Context, e ir.LedgerEntry) (int64, error)
	GrantBadge(ctx context.Context, userID, badgeID int64, awardedBy string, at time.Time) (bool, error)
	CreateRedemption(ctx context.Context, userID, rewardID int64, status string) (int64, error)
	RewardByID(ctx context.Context, id int64) (ir.RewardItem, error)
	BadgeByID(ctx context.Context, id int64) (ir.Badge, error)
}

// statRewards maps balance-style rewards to their column and label suffix.
var statRewards = map[ir.RewardType]struct {
	col    store.BalanceColumn
	suffix string
}{
	ir.RewardGold: {store.ColumnCoins, "Gold"},
	ir.RewardMana: {store.ColumnMana, "Mana"},
	ir.RewardStr:  {store.ColumnBaseStr, "STR"},
	ir.RewardDef:  {store.ColumnBaseDef, "DEF"},
	ir.RewardLuk:  {store.ColumnBaseLuk, "LUK"},
}

// Applier applies rewards. It holds no state besides its clock.
type Applier struct {
	clock ir.Clock
}

// Option configures an Applier.
type Option func(*Applier)

// WithClock sets the clock used to stamp ledger rows and badge grants.
func WithClock(c ir.Clock) Option {
	return func(a *Applier) {
		a.clock = c
	}
}

// NewApplier creates an Applier.
func NewApplier(opts ...Option) *Applier {
	a := &Applier{clock: ir.SystemClock{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply performs quest's reward for user through l.
//
// Every non-badge reward also writes the quest's marker row to the ledger;
// only gold carries a non-zero amount. A coupon whose catalog item is gone
// yields a non-durable outcome: the caller reports it and rolls back so the
// pair is retried on the next run.
func (a *Applier) Apply(ctx context.Context, l Ledger, quest ir.Quest, user ir.User) (ir.Outcome, error) {
	now := a.clock.Now()
	value := quest.RewardValue

	switch quest.RewardType {
	case ir.RewardBadge:
		if quest.BadgeID == nil {
			return ir.Outcome{}, fmt.Errorf("quest %d: badge reward without badge", quest.ID)
		}
		badge, err := l.BadgeByID(ctx, *quest.BadgeID)
		if err != nil {
			return ir.Outcome{}, err
		}
		if _, err := l.GrantBadge(ctx, user.ID, badge.ID, ir.AwardedBy, now); err != nil {
			return ir.Outcome{}, err
		}
		return ir.Outcome{Label: "Badge: " + badge.Name, Durable: true}, nil

	case ir.RewardGold, ir.RewardMana, ir.RewardStr, ir.RewardDef, ir.RewardLuk:
		stat := statRewards[quest.RewardType]
		if err := l.AdjustUser(ctx, user.ID, stat.col, value); err != nil {
			return ir.Outcome{}, err
		}
		var amount int64
		if quest.RewardType == ir.RewardGold {
			amount = value
		}
		if err := a.mark(ctx, l, quest, user, amount, now); err != nil {
			return ir.Outcome{}, err
		}
		return ir.Outcome{Label: fmt.Sprintf("+%d %s", value, stat.suffix), Durable: true}, nil

	case ir.RewardCoupon:
		item, err := l.RewardByID(ctx, value)
		if errors.Is(err, store.ErrNotFound) {
			return ir.Outcome{Label: fmt.Sprintf("Coupon (item %d not found)", value), Durable: false}, nil
		}
		if err != nil {
			return ir.Outcome{}, err
		}
		if _, err := l.CreateRedemption(ctx, user.ID, item.ID, ir.RedemptionApproved); err != nil {
			return ir.Outcome{}, err
		}
		if err := a.mark(ctx, l, quest, user, 0, now); err != nil {
			return ir.Outcome{}, err
		}
		return ir.Outcome{Label: "Coupon: " + item.Name, Durable: true}, nil

	default:
		return ir.Outcome{}, fmt.Errorf("quest %d: unknown reward type %q (want one of %s)",
			quest.ID, quest.RewardType, joinTypes(ir.ValidRewardTypes))
	}
}

func (a *Applier) mark(ctx context.Context, l Ledger, quest ir.Quest, user ir.User, amount int64, at time.Time) error {
	_, err := l.AppendLedger(ctx, ir.LedgerEntry{
		UserID:    user.ID,
		Amount:    amount,
		Reason:    ir.MarkerReason(quest.ID),
		CreatedBy: ir.AwardedBy,
		CreatedAt: at,
	})
	return err
}

func joinTypes(types []ir.RewardType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
