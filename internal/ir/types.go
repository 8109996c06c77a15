package ir

import (
	"fmt"
	"strings"
	"time"
)

// RewardType identifies the effect applied when a quest is completed.
type RewardType string

const (
	RewardBadge  RewardType = "badge"
	RewardGold   RewardType = "gold"
	RewardMana   RewardType = "mana"
	RewardStr    RewardType = "str"
	RewardDef    RewardType = "def"
	RewardLuk    RewardType = "luk"
	RewardCoupon RewardType = "coupon"
)

// ValidRewardTypes lists reward types in display order.
var ValidRewardTypes = []RewardType{
	RewardBadge, RewardGold, RewardMana, RewardStr, RewardDef, RewardLuk, RewardCoupon,
}

// Valid reports whether t is a known reward type.
func (t RewardType) Valid() bool {
	for _, v := range ValidRewardTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Quest is an administrator-defined achievement with a condition and a reward.
//
// The condition is either a free-form query (ConditionQuery) or the legacy
// (ConditionType, Threshold) pair. ConditionQuery always wins when both are set.
type Quest struct {
	ID             int64      `json:"id"`
	BadgeID        *int64     `json:"badge_id,omitempty"`
	ConditionQuery string     `json:"condition_query,omitempty"`
	ConditionType  string     `json:"condition_type,omitempty"`
	Threshold      *int64     `json:"threshold,omitempty"`
	Active         bool       `json:"is_active"`
	Description    string     `json:"description,omitempty"`
	MaxAwards      *int64     `json:"max_awards,omitempty"` // nil = unlimited
	RewardType     RewardType `json:"reward_type"`
	RewardValue    int64      `json:"reward_value"`
	CreatedAt      time.Time  `json:"created_at"`
}

// EffectiveQuery returns the condition the runner evaluates for q.
//
// The free-form query is preferred. Otherwise the legacy pair is converted
// with LegacyQuery. The second result is false when q has no condition.
func (q Quest) EffectiveQuery() (string, bool) {
	if cq := strings.TrimSpace(q.ConditionQuery); cq != "" {
		return cq, true
	}
	if q.ConditionType != "" {
		threshold := int64(0)
		if q.Threshold != nil {
			threshold = *q.Threshold
		}
		return LegacyQuery(q.ConditionType, threshold), true
	}
	return "", false
}

// LegacyQuery converts a legacy (condition_type, threshold) pair to query
// syntax. A zero threshold becomes 1. The output format is frozen: existing
// quests depend on it producing the same eligible set as before.
func LegacyQuery(conditionType string, threshold int64) string {
	if threshold == 0 {
		threshold = 1
	}
	return fmt.Sprintf("%s >= %d", conditionType, threshold)
}

// LegacyConditionLabels maps the legacy condition types to their labels.
var LegacyConditionLabels = map[string]string{
	"checkin_streak":   "Check-in on time X consecutive days",
	"total_steps":      "Walk X total steps",
	"mana_received":    "Receive Mana X times",
	"mana_sent":        "Send Mana X times",
	"scroll_purchased": "Purchase Scrolls X times",
}

// User is the subset of a user row the engine reads.
type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Surname   string     `json:"surname,omitempty"`
	Image     string     `json:"image,omitempty"`
	Coins     int64      `json:"coins"`
	Mana      int64      `json:"angel_coins"`
	BaseStr   int64      `json:"base_str"`
	BaseDef   int64      `json:"base_def"`
	BaseLuk   int64      `json:"base_luk"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

// DisplayName returns the full name used in summaries and ledger reasons.
func (u User) DisplayName() string {
	if u.Surname == "" {
		return u.Name
	}
	return u.Name + " " + u.Surname
}

// RewardItem is a row of the reward catalog (the shop).
type RewardItem struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PointCost int64  `json:"point_cost"`
	Active    bool   `json:"is_active"`
}

// Badge is a collectible granted by badge-reward quests.
type Badge struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}
