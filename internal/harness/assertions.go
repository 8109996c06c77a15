package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/kritdbb/DobyHR/internal/fields"
	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/store"
)

// balanceColumns are the user columns a balance assertion may read.
var balanceColumns = map[string]func(ir.User) int64{
	"coins":       func(u ir.User) int64 { return u.Coins },
	"angel_coins": func(u ir.User) int64 { return u.Mana },
	"base_str":    func(u ir.User) int64 { return u.BaseStr },
	"base_def":    func(u ir.User) int64 { return u.BaseDef },
	"base_luk":    func(u ir.User) int64 { return u.BaseLuk },
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext provides what state assertions need to read.
type AssertionContext struct {
	Store    *store.Store
	Registry *fields.Registry
	Ctx      context.Context
}

// EvaluateAssertions checks every assertion and returns one message per
// failure, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertAwardedCount:
		run, err := pickRun(result, a.Run)
		if err != nil {
			return err
		}
		return expectInt(a.Type, fmt.Sprintf("run %s", run.RunID), int64(a.Count), int64(run.Awarded))

	case AssertFailureCount:
		run, err := pickRun(result, a.Run)
		if err != nil {
			return err
		}
		n := 0
		for _, f := range run.Failures {
			if a.Code == "" || f.Code == a.Code {
				n++
			}
		}
		return expectInt(a.Type, fmt.Sprintf("run %s failures %s", run.RunID, a.Code), int64(a.Count), int64(n))

	case AssertBalance:
		read, ok := balanceColumns[a.Column]
		if !ok {
			return fmt.Errorf("unknown balance column %q", a.Column)
		}
		u, err := actx.Store.UserByID(actx.Ctx, a.User)
		if err != nil {
			return err
		}
		return expectInt(a.Type, fmt.Sprintf("user %d %s", a.User, a.Column), a.Expect, read(u))

	case AssertLedgerCount:
		entries, err := actx.Store.LedgerEntries(actx.Ctx, a.User)
		if err != nil {
			return err
		}
		n := 0
		for _, e := range entries {
			if a.Reason != "" && e.Reason != a.Reason {
				continue
			}
			if a.Quest != 0 {
				if id, ok := ir.ParseMarkerReason(e.Reason); !ok || id != a.Quest {
					continue
				}
			}
			n++
		}
		what := fmt.Sprintf("user %d ledger rows %q", a.User, a.Reason)
		if a.Quest != 0 {
			what = fmt.Sprintf("user %d quest %d markers", a.User, a.Quest)
		}
		return expectInt(a.Type, what, int64(a.Count), int64(n))

	case AssertQuestActive:
		q, err := actx.Store.QuestByID(actx.Ctx, a.Quest)
		if err != nil {
			return err
		}
		if q.Active != *a.Active {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("quest %d active=%t", a.Quest, *a.Active),
				Actual:   fmt.Sprintf("active=%t", q.Active),
			}
		}
		return nil

	case AssertHasAward:
		q, err := actx.Store.QuestByID(actx.Ctx, a.Quest)
		if err != nil {
			return err
		}
		held, err := actx.Store.HasAward(actx.Ctx, q, a.User)
		if err != nil {
			return err
		}
		if held != *a.Held {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("quest %d user %d held=%t", a.Quest, a.User, *a.Held),
				Actual:   fmt.Sprintf("held=%t", held),
			}
		}
		return nil

	case AssertFieldValue:
		res, err := actx.Registry.Lookup(actx.Ctx, a.Field)
		if err != nil {
			return err
		}
		v, err := res(actx.Ctx, a.User)
		if err != nil {
			return err
		}
		return expectInt(a.Type, fmt.Sprintf("user %d %s", a.User, a.Field), a.Expect, v)

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// pickRun returns the 1-based run n, or the last run when n is 0.
func pickRun(result *Result, n int) (ir.RunSummary, error) {
	if len(result.Runs) == 0 {
		return ir.RunSummary{}, fmt.Errorf("no runs recorded")
	}
	if n == 0 {
		n = len(result.Runs)
	}
	if n < 1 || n > len(result.Runs) {
		return ir.RunSummary{}, fmt.Errorf("run %d out of range 1..%d", n, len(result.Runs))
	}
	return result.Runs[n-1], nil
}

func expectInt(typ, what string, want, got int64) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s = %d", what, want),
		Actual:   fmt.Sprintf("%d", got),
	}
}
