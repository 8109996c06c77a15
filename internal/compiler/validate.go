package compiler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/query"
)

// Validation error codes (E100-E199)
const (
	ErrInvalidRewardType    = "E101" // reward_type not one of ir.ValidRewardTypes
	ErrBadgeRequired        = "E102" // badge reward without badge_id
	ErrNoCondition          = "E103" // neither condition_query nor condition_type
	ErrUnknownConditionType = "E104" // legacy condition_type not accepted
	ErrInvalidThreshold     = "E105" // legacy threshold below 1
	ErrInvalidQuery         = "E106" // condition_query fails to parse
	ErrInvalidRewardValue   = "E107" // non-badge reward_value below 1
	ErrDuplicateQuestID     = "E108" // two definitions share an id
	ErrBadgeNotFound        = "E109" // badge_id not in the badge table
)

// ValidationError represents a quest validation error.
type ValidationError struct {
	Quest   string `json:"quest,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	field := e.Field
	if e.Quest != "" {
		field = e.Quest + "." + e.Field
	}
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, field, e.Message)
}

// Validate checks one normalized quest. It returns all errors found.
//
// The condition query is parsed against reg; resolvers are never called.
// When condition_query is set the legacy pair is ignored, as the runner
// ignores it.
func Validate(ctx context.Context, q ir.Quest, reg query.Registry) []ValidationError {
	var errs []ValidationError

	if !q.RewardType.Valid() {
		errs = append(errs, ValidationError{
			Field:   "reward_type",
			Message: fmt.Sprintf("invalid reward type %q, must be one of %s", q.RewardType, rewardTypeList()),
			Code:    ErrInvalidRewardType,
		})
	}

	switch {
	case q.RewardType == ir.RewardBadge && q.BadgeID == nil:
		errs = append(errs, ValidationError{
			Field:   "badge_id",
			Message: "badge rewards require badge_id",
			Code:    ErrBadgeRequired,
		})
	case q.RewardType != ir.RewardBadge && q.RewardType.Valid() && q.RewardValue < 1:
		errs = append(errs, ValidationError{
			Field:   "reward_value",
			Message: fmt.Sprintf("%s rewards need a positive reward_value", q.RewardType),
			Code:    ErrInvalidRewardValue,
		})
	}

	switch {
	case q.ConditionQuery != "":
		if res := query.Validate(ctx, q.ConditionQuery, reg); !res.Valid {
			errs = append(errs, ValidationError{
				Field:   "condition_query",
				Message: res.Error,
				Code:    ErrInvalidQuery,
			})
		}
	case q.ConditionType != "":
		if _, ok := ir.LegacyConditionLabels[q.ConditionType]; !ok {
			errs = append(errs, ValidationError{
				Field:   "condition_type",
				Message: fmt.Sprintf("unknown condition type %q, must be one of %s", q.ConditionType, legacyTypeList()),
				Code:    ErrUnknownConditionType,
			})
		}
		if q.Threshold != nil && *q.Threshold < 1 {
			errs = append(errs, ValidationError{
				Field:   "threshold",
				Message: fmt.Sprintf("threshold must be at least 1, got %d", *q.Threshold),
				Code:    ErrInvalidThreshold,
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "condition_query",
			Message: "quest needs condition_query or condition_type",
			Code:    ErrNoCondition,
		})
	}

	return errs
}

func rewardTypeList() string {
	parts := make([]string, len(ir.ValidRewardTypes))
	for i, t := range ir.ValidRewardTypes {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func legacyTypeList() string {
	types := make([]string, 0, len(ir.LegacyConditionLabels))
	for t := range ir.LegacyConditionLabels {
		types = append(types, t)
	}
	sort.Strings(types)
	return strings.Join(types, ", ")
}
