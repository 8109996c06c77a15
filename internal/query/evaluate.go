package query

import (
	"context"

	"github.com/kritdbb/DobyHR/internal/ir"
)

// resolveAll resolves every field of q once, in condition order.
func resolveAll(ctx context.Context, userID int64, q ir.Query, reg Registry) (map[string]int64, error) {
	values := make(map[string]int64, len(q))
	for _, c := range q {
		if _, ok := values[c.Field]; ok {
			continue
		}
		res, err := reg.Lookup(ctx, c.Field)
		if err != nil {
			return nil, &ResolveError{Field: c.Field, UserID: userID, Err: err}
		}
		v, err := res(ctx, userID)
		if err != nil {
			return nil, &ResolveError{Field: c.Field, UserID: userID, Err: err}
		}
		values[c.Field] = v
	}
	return values, nil
}

// Fold combines the conditions of q over resolved values strictly left to
// right: the first condition seeds the result and each later one is merged
// with its own conjunction. An empty query is false.
func Fold(q ir.Query, values map[string]int64) bool {
	var result bool
	for i, c := range q {
		ok := c.Op.Apply(values[c.Field], c.Value)
		switch {
		case i == 0:
			result = ok
		case c.Conjunction == ir.ConjOr:
			result = result || ok
		default:
			result = result && ok
		}
	}
	return result
}

// EvaluateParsed evaluates an already parsed query for one user.
//
// Every field is resolved before folding, so a failing resolver always
// surfaces as a *ResolveError, even when the result would not depend on it.
func EvaluateParsed(ctx context.Context, userID int64, q ir.Query, reg Registry) (bool, error) {
	values, err := resolveAll(ctx, userID, q, reg)
	if err != nil {
		return false, err
	}
	return Fold(q, values), nil
}

// Evaluate parses q and evaluates it for one user. Parse failures are
// *ParseError; resolver failures are *ResolveError.
func Evaluate(ctx context.Context, userID int64, q string, reg Registry) (bool, error) {
	parsed, err := Parse(ctx, q, reg)
	if err != nil {
		return false, err
	}
	return EvaluateParsed(ctx, userID, parsed, reg)
}

// ResolveFields returns the current value of every field q references.
func ResolveFields(ctx context.Context, userID int64, q string, reg Registry) (map[string]int64, error) {
	parsed, err := Parse(ctx, q, reg)
	if err != nil {
		return nil, err
	}
	return resolveAll(ctx, userID, parsed, reg)
}
