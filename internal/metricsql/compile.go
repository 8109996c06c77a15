// Package metricsql compiles metricir metrics to parameterized SQLite SQL.
package metricsql

import (
	"fmt"
	"strings"

	"github.com/kritdbb/DobyHR/internal/metricir"
)

// subject marks a parameter slot that receives the subject user's id.
type subject struct{}

// Statement is a compiled metric. The SQL always yields exactly one integer
// column; Column metrics may yield no row, which callers read as 0.
//
// All literal values are parameterized, never interpolated.
type Statement struct {
	SQL    string
	params []any
}

// Args returns the statement parameters with the subject bound to userID.
func (s Statement) Args(userID int64) []any {
	args := make([]any, len(s.params))
	for i, p := range s.params {
		if _, ok := p.(subject); ok {
			args[i] = userID
			continue
		}
		args[i] = p
	}
	return args
}

// Compile validates m and converts it to a Statement.
func Compile(m metricir.Metric) (Statement, error) {
	if result := metricir.Validate(m); !result.Valid {
		return Statement{}, fmt.Errorf("invalid metric: %s", strings.Join(result.Errors, "; "))
	}

	switch metric := m.(type) {
	case metricir.Aggregate:
		return compileAggregate(metric)
	case *metricir.Aggregate:
		return compileAggregate(*metric)
	case metricir.Column:
		return compileColumn(metric)
	case *metricir.Column:
		return compileColumn(*metric)
	default:
		return Statement{}, fmt.Errorf("unsupported metric type: %T", m)
	}
}

// MustCompile is like Compile but panics on error.
// Use only for metric tables fixed at build time.
func MustCompile(m metricir.Metric) Statement {
	stmt, err := Compile(m)
	if err != nil {
		panic(err)
	}
	return stmt
}

func compileAggregate(a metricir.Aggregate) (Statement, error) {
	var selectExpr string
	switch a.Func {
	case metricir.Count:
		selectExpr = "COUNT(*)"
	case metricir.Sum:
		selectExpr = fmt.Sprintf("COALESCE(SUM(%s), 0)", a.Column)
	case metricir.AbsSum:
		selectExpr = fmt.Sprintf("ABS(COALESCE(SUM(%s), 0))", a.Column)
	default:
		return Statement{}, fmt.Errorf("unsupported aggregate: %s", a.Func)
	}

	where, params, err := compileWhere(a.Filter)
	if err != nil {
		return Statement{}, err
	}

	return Statement{
		SQL:    fmt.Sprintf("SELECT %s FROM %s%s", selectExpr, a.Table, where),
		params: params,
	}, nil
}

func compileColumn(c metricir.Column) (Statement, error) {
	where, params, err := compileWhere(c.Filter)
	if err != nil {
		return Statement{}, err
	}

	return Statement{
		SQL:    fmt.Sprintf("SELECT COALESCE(%s, 0) FROM %s%s LIMIT 1", c.Column, c.Table, where),
		params: params,
	}, nil
}

func compileWhere(p metricir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	sql, params, err := compilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + sql, params, nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
func compilePredicate(p metricir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case metricir.SubjectEquals:
		return pred.Field + " = ?", []any{subject{}}, nil
	case metricir.Equals:
		return pred.Field + " = ?", []any{pred.Value}, nil
	case metricir.NotEquals:
		return pred.Field + " != ?", []any{pred.Value}, nil
	case metricir.Compare:
		return fmt.Sprintf("%s %s ?", pred.Field, pred.Op), []any{pred.Value}, nil
	case metricir.Like:
		return fmt.Sprintf("%s LIKE ? ESCAPE '%s'", pred.Field, metricir.LikeEscape), []any{pred.Pattern}, nil
	case metricir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		return compileJunction(pred.Predicates, " AND ")
	case metricir.Or:
		if len(pred.Predicates) == 0 {
			return "1 = 0", nil, nil
		}
		return compileJunction(pred.Predicates, " OR ")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileJunction(preds []metricir.Predicate, sep string) (string, []any, error) {
	parts := make([]string, 0, len(preds))
	var params []any
	for _, sub := range preds {
		sql, subParams, err := compilePredicate(sub)
		if err != nil {
			return "", nil, err
		}
		if len(preds) > 1 {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, subParams...)
	}
	return strings.Join(parts, sep), params, nil
}
