package query

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/kritdbb/DobyHR/internal/fields"
	"github.com/kritdbb/DobyHR/internal/ir"
)

// Registry resolves field names. *fields.Registry implements it.
type Registry interface {
	Lookup(ctx context.Context, name string) (fields.Resolver, error)
}

var (
	conjRe      = regexp.MustCompile(`(?i)\s+(AND|OR)\s+`)
	conditionRe = regexp.MustCompile(`^(\w+)\s*(>=|<=|!=|==|>|<)\s*(\d+)$`)
)

// clause is one condition as written, before field lookup.
type clause struct {
	conj  ir.Conjunction
	text  string
	field string
	op    ir.Operator
	value int64
}

// tokenize splits q into clauses and checks each against FIELD OP INT.
// It never looks at field names. q is NFKC-normalized first, so full-width
// letters, digits and operators read as their ASCII forms.
func tokenize(q string) ([]clause, error) {
	q = strings.TrimSpace(norm.NFKC.String(q))
	if q == "" {
		return nil, &ParseError{Code: ErrCodeEmptyQuery}
	}

	var clauses []clause
	conj := ir.ConjNone
	rest := 0
	for _, loc := range conjRe.FindAllStringSubmatchIndex(q, -1) {
		c, err := parseClause(conj, q[rest:loc[0]])
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
		conj = ir.Conjunction(strings.ToUpper(q[loc[2]:loc[3]]))
		rest = loc[1]
	}
	c, err := parseClause(conj, q[rest:])
	if err != nil {
		return nil, err
	}
	return append(clauses, c), nil
}

func parseClause(conj ir.Conjunction, text string) (clause, error) {
	text = strings.TrimSpace(text)
	m := conditionRe.FindStringSubmatch(text)
	if m == nil {
		return clause{}, &ParseError{Code: ErrCodeMalformedCondition, Clause: text}
	}
	value, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return clause{}, &ParseError{Code: ErrCodeMalformedCondition, Clause: text, Err: errors.New("value out of range")}
	}
	return clause{conj: conj, text: text, field: m[1], op: ir.Operator(m[2]), value: value}, nil
}

// Parse converts q into a Query, checking every field against reg.
// Errors are always *ParseError.
func Parse(ctx context.Context, q string, reg Registry) (ir.Query, error) {
	clauses, err := tokenize(q)
	if err != nil {
		return nil, err
	}

	query := make(ir.Query, 0, len(clauses))
	for _, c := range clauses {
		if _, err := reg.Lookup(ctx, c.field); err != nil {
			return nil, lookupError(c, err)
		}
		query = append(query, ir.Condition{Conjunction: c.conj, Field: c.field, Op: c.op, Value: c.value})
	}
	return query, nil
}

func lookupError(c clause, err error) *ParseError {
	if !errors.Is(err, fields.ErrUnknownField) {
		return &ParseError{Code: ErrCodeFieldLookupFailed, Clause: c.text, Field: c.field, Err: err}
	}
	pe := &ParseError{Code: ErrCodeUnknownField, Clause: c.text, Field: c.field, Err: err}
	var ufe *fields.UnknownFieldError
	if errors.As(err, &ufe) {
		pe.Suggestions = ufe.Suggestions
	}
	return pe
}

// Validate reports whether q parses against reg. It never calls a resolver,
// never panics and never fails: every problem is in the result.
func Validate(ctx context.Context, q string, reg Registry) ir.ValidationResult {
	query, err := Parse(ctx, q, reg)
	if err != nil {
		result := ir.ValidationResult{Valid: false, Error: err.Error(), Fields: []string{}}
		var pe *ParseError
		if errors.As(err, &pe) {
			result.Code = string(pe.Code)
		}
		return result
	}
	return ir.ValidationResult{
		Valid:          true,
		Fields:         query.Fields(),
		ConditionCount: len(query),
	}
}
