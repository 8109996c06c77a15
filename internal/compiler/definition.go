package compiler

import (
	"strings"

	"github.com/kritdbb/DobyHR/internal/ir"
)

// QuestDef is one quest as written in a definition file.
type QuestDef struct {
	// Name labels the quest in error messages. For CUE it is the field label.
	Name string `yaml:"name" json:"name,omitempty"`

	// ID updates an existing quest when set.
	ID *int64 `yaml:"id" json:"id,omitempty"`

	Description    string `yaml:"description" json:"description,omitempty"`
	ConditionQuery string `yaml:"condition_query" json:"condition_query,omitempty"`
	ConditionType  string `yaml:"condition_type" json:"condition_type,omitempty"`
	Threshold      *int64 `yaml:"threshold" json:"threshold,omitempty"`
	RewardType     string `yaml:"reward_type" json:"reward_type"`
	RewardValue    int64  `yaml:"reward_value" json:"reward_value"`
	BadgeID        *int64 `yaml:"badge_id" json:"badge_id,omitempty"`
	MaxAwards      *int64 `yaml:"max_awards" json:"max_awards,omitempty"`
	Active         *bool  `yaml:"active" json:"active,omitempty"`

	// Line is the definition's line in its source file, 0 if unknown.
	Line int `yaml:"-" json:"-"`
}

// Quest normalizes d into an ir.Quest.
//
// Reward types are lower-cased. badge_id is dropped for non-badge rewards,
// a non-positive max_awards means unlimited, and quests are active unless
// the file says otherwise.
func (d QuestDef) Quest() ir.Quest {
	q := ir.Quest{
		Description:    strings.TrimSpace(d.Description),
		ConditionQuery: strings.TrimSpace(d.ConditionQuery),
		ConditionType:  strings.TrimSpace(d.ConditionType),
		Threshold:      d.Threshold,
		RewardType:     ir.RewardType(strings.ToLower(strings.TrimSpace(d.RewardType))),
		RewardValue:    d.RewardValue,
		MaxAwards:      d.MaxAwards,
		Active:         true,
	}
	if d.ID != nil {
		q.ID = *d.ID
	}
	if q.RewardType == ir.RewardBadge {
		q.BadgeID = d.BadgeID
	}
	if q.MaxAwards != nil && *q.MaxAwards <= 0 {
		q.MaxAwards = nil
	}
	if d.Active != nil {
		q.Active = *d.Active
	}
	return q
}

// label names d in error messages.
func (d QuestDef) label(index int) string {
	if d.Name != "" {
		return d.Name
	}
	if d.ID != nil {
		return "quest#" + itoa(*d.ID)
	}
	return "quests[" + itoa(int64(index)) + "]"
}
