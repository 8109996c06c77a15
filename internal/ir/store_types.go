package ir

import "time"

// AwardSource records where an award record came from.
type AwardSource string

const (
	// AwardSourceRunner marks records written by a runner grant.
	AwardSourceRunner AwardSource = "runner"
	// AwardSourceLegacyMarker marks records backfilled from ledger markers.
	AwardSourceLegacyMarker AwardSource = "legacy_marker"
	// AwardSourceLegacyBadge marks records backfilled from badge ownership.
	AwardSourceLegacyBadge AwardSource = "legacy_badge"
)

// AwardRecord is durable proof that a (quest, user) pair was rewarded.
// The store enforces UNIQUE(quest_id, user_id).
type AwardRecord struct {
	ID         int64       `json:"id"`
	QuestID    int64       `json:"quest_id"`
	UserID     int64       `json:"user_id"`
	RewardType RewardType  `json:"reward_type"`
	QueryHash  string      `json:"query_hash,omitempty"`
	RunID      string      `json:"run_id,omitempty"`
	Source     AwardSource `json:"source"`
	AwardedAt  time.Time   `json:"awarded_at"`
}

// LedgerEntry is a coin_logs row.
type LedgerEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Redemption statuses.
const (
	RedemptionPending  = "pending"
	RedemptionApproved = "approved"
	RedemptionRejected = "rejected"
)
