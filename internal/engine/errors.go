package engine

import (
	"errors"
	"fmt"

	"github.com/kritdbb/DobyHR/internal/ir"
)

// RuntimeError represents a failure detected while running quests.
//
// Runtime errors include:
//   - Evaluation failure: the condition could not be evaluated for a user
//   - Grant failure: the reward could not be applied
//   - Missing badge: a badge quest points at a badge that does not exist
//   - Cap reached: the quest hit max_awards (informational)
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// QuestID identifies the affected quest.
	QuestID int64

	// UserID identifies the affected user, 0 for quest-level errors.
	UserID int64

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeEvaluationFailed indicates a condition could not be evaluated.
	ErrCodeEvaluationFailed RuntimeErrorCode = "EVALUATION_FAILED"

	// ErrCodeGrantFailed indicates a reward could not be applied.
	ErrCodeGrantFailed RuntimeErrorCode = "GRANT_FAILED"

	// ErrCodeBadgeMissing indicates a badge quest references no badge row.
	ErrCodeBadgeMissing RuntimeErrorCode = "BADGE_MISSING"

	// ErrCodeCapReached indicates a quest reached its max_awards.
	ErrCodeCapReached RuntimeErrorCode = "CAP_REACHED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.UserID != 0 {
		return fmt.Sprintf("%s: %s (quest=%d, user=%d)", e.Code, msg, e.QuestID, e.UserID)
	}
	return fmt.Sprintf("%s: %s (quest=%d)", e.Code, msg, e.QuestID)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsCapReached returns true if the error reports a quest at its award cap.
// Uses errors.As to handle wrapped errors.
func IsCapReached(err error) bool {
	return hasCode(err, ErrCodeCapReached)
}

// IsGrantFailed returns true if the error is a reward application failure.
func IsGrantFailed(err error) bool {
	return hasCode(err, ErrCodeGrantFailed)
}

// IsEvaluationFailed returns true if the error is an evaluation failure.
func IsEvaluationFailed(err error) bool {
	return hasCode(err, ErrCodeEvaluationFailed)
}

// NewEvaluationError creates a RuntimeError for a failed evaluation.
func NewEvaluationError(questID, userID int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeEvaluationFailed,
		Message: "condition evaluation failed",
		QuestID: questID,
		UserID:  userID,
		Err:     err,
	}
}

// NewGrantError creates a RuntimeError for a failed reward application.
func NewGrantError(questID, userID int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeGrantFailed,
		Message: "reward application failed",
		QuestID: questID,
		UserID:  userID,
		Err:     err,
	}
}

// NewBadgeMissingError creates a RuntimeError for a badge quest whose badge
// row does not exist.
func NewBadgeMissingError(questID, badgeID int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeBadgeMissing,
		Message: fmt.Sprintf("badge %d not found", badgeID),
		QuestID: questID,
	}
}

// NewCapReachedError creates a RuntimeError for a quest at its award cap.
func NewCapReachedError(questID, awarded, maxAwards int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCapReached,
		Message: fmt.Sprintf("max awards reached (%d >= %d)", awarded, maxAwards),
		QuestID: questID,
	}
}

// failure converts a RuntimeError into a run summary entry.
func (e *RuntimeError) failure() ir.RunFailure {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return ir.RunFailure{
		QuestID: e.QuestID,
		UserID:  e.UserID,
		Code:    string(e.Code),
		Message: msg,
	}
}
