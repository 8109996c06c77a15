package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kritdbb/DobyHR/internal/fields"
)

// ParseErrorCode categorizes parse errors.
type ParseErrorCode string

const (
	// ErrCodeEmptyQuery indicates a blank query.
	ErrCodeEmptyQuery ParseErrorCode = "EMPTY_QUERY"

	// ErrCodeMalformedCondition indicates a clause that is not FIELD OP INT.
	ErrCodeMalformedCondition ParseErrorCode = "MALFORMED_CONDITION"

	// ErrCodeUnknownField indicates a field with no resolver.
	ErrCodeUnknownField ParseErrorCode = "UNKNOWN_FIELD"

	// ErrCodeFieldLookupFailed indicates the reward catalog could not be
	// read while binding an item_<id> field.
	ErrCodeFieldLookupFailed ParseErrorCode = "FIELD_LOOKUP_FAILED"
)

// ParseError reports why a query string was rejected.
type ParseError struct {
	// Code identifies the error category.
	Code ParseErrorCode

	// Clause is the offending clause text, when there is one.
	Clause string

	// Field is the offending field name, for field errors.
	Field string

	// Suggestions are close field names, for UNKNOWN_FIELD.
	Suggestions []string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch e.Code {
	case ErrCodeEmptyQuery:
		return "query is empty"
	case ErrCodeMalformedCondition:
		msg := fmt.Sprintf("invalid condition: '%s'; expected format: field >= value", e.Clause)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	case ErrCodeUnknownField:
		if len(e.Suggestions) > 0 {
			return fmt.Sprintf("unknown field: '%s' (did you mean %s?)", e.Field, strings.Join(e.Suggestions, ", "))
		}
		return fmt.Sprintf("unknown field: '%s'", e.Field)
	case ErrCodeFieldLookupFailed:
		return fmt.Sprintf("lookup field '%s': %v", e.Field, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsUnknownField returns true if err reports an unknown field.
// Uses errors.As to handle wrapped errors.
func IsUnknownField(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeUnknownField
	}
	return errors.Is(err, fields.ErrUnknownField)
}

// ResolveError reports a resolver failure during evaluation. The runner
// treats it as "not satisfied" for the pair and records a failure.
type ResolveError struct {
	Field  string
	UserID int64
	Err    error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s for user %d: %v", e.Field, e.UserID, e.Err)
}

// Unwrap returns the resolver's error.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// IsResolveError returns true if err is a resolver failure.
func IsResolveError(err error) bool {
	var re *ResolveError
	return errors.As(err, &re)
}
