package ir

import "time"

// Outcome is what a reward application reports back to the runner.
// A non-durable outcome is reported in the run summary but its transaction
// is rolled back so the pair is retried on the next run.
type Outcome struct {
	Label   string `json:"label"`
	Durable bool   `json:"durable"`
}

// GrantDetail is one awarded (quest, user) pair in a run summary.
type GrantDetail struct {
	QuestID  int64  `json:"quest_id"`
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	Reward   string `json:"reward"`
	Query    string `json:"query"`
}

// RunFailure records a pair or quest the runner could not process.
type RunFailure struct {
	QuestID int64  `json:"quest_id"`
	UserID  int64  `json:"user_id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunSummary is the result of one full evaluation pass.
type RunSummary struct {
	RunID          string        `json:"run_id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Awarded        int           `json:"awarded"`
	Details        []GrantDetail `json:"details"`
	Failures       []RunFailure  `json:"failures"`
	QuestsDisabled []int64       `json:"quests_disabled"`
}

// PreviewMatch is one user who would satisfy a previewed query.
type PreviewMatch struct {
	UserID      int64            `json:"user_id"`
	UserName    string           `json:"user_name"`
	UserImage   string           `json:"user_image,omitempty"`
	FieldValues map[string]int64 `json:"field_values"`
}

// PreviewResult is the dry-run result of a query across all users.
type PreviewResult struct {
	Query         string           `json:"query"`
	Validation    ValidationResult `json:"validation"`
	TotalUsers    int              `json:"total_users"`
	MatchingUsers int              `json:"matching_users"`
	Users         []PreviewMatch   `json:"users"`
}

// QuestProgress is one active quest as seen by a single user.
type QuestProgress struct {
	QuestID     int64            `json:"quest_id"`
	Description string           `json:"description"`
	BadgeName   string           `json:"badge_name,omitempty"`
	Query       string           `json:"query"`
	RewardType  RewardType       `json:"reward_type"`
	RewardValue int64            `json:"reward_value"`
	Completed   bool             `json:"completed"`
	FieldValues map[string]int64 `json:"field_values"`
	Error       string           `json:"error,omitempty"`
}
