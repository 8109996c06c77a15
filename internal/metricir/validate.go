package metricir

import (
	"fmt"
	"regexp"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidationResult reports problems found in a metric.
//
// Errors make a metric uncompilable. Warnings flag metrics that are legal but
// unusual, such as metrics not scoped to the subject user.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validate checks identifiers, aggregate shape and predicate values.
//
// Validate is a pure function with no side effects.
func Validate(m Metric) ValidationResult {
	v := &validator{}
	v.validateMetric(m)
	if !v.scoped && len(v.errors) == 0 {
		v.addWarning("metric is not scoped to the subject user")
	}
	return ValidationResult{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

type validator struct {
	errors   []string
	warnings []string
	scoped   bool
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) ident(kind, name string) {
	if !identRe.MatchString(name) {
		v.addError("invalid %s name %q", kind, name)
	}
}

func (v *validator) validateMetric(m Metric) {
	switch metric := m.(type) {
	case nil:
		v.addError("nil metric")
	case Aggregate:
		v.validateAggregate(metric)
	case *Aggregate:
		v.validateAggregate(*metric)
	case Column:
		v.validateColumn(metric)
	case *Column:
		v.validateColumn(*metric)
	default:
		v.addError("unknown metric type: %T", m)
	}
}

func (v *validator) validateAggregate(a Aggregate) {
	v.ident("table", a.Table)
	switch a.Func {
	case Count:
		if a.Column != "" {
			v.ident("column", a.Column)
		}
	case Sum, AbsSum:
		if a.Column == "" {
			v.addError("%s over %s requires a column", a.Func, a.Table)
		} else {
			v.ident("column", a.Column)
		}
	default:
		v.addError("unknown aggregate function %q", a.Func)
	}
	v.validatePredicate(a.Filter)
}

func (v *validator) validateColumn(c Column) {
	v.ident("table", c.Table)
	v.ident("column", c.Column)
	if c.Filter == nil {
		v.addError("column %s.%s requires a row filter", c.Table, c.Column)
		return
	}
	v.validatePredicate(c.Filter)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case SubjectEquals:
		v.ident("field", pred.Field)
		v.scoped = true
	case Equals:
		v.ident("field", pred.Field)
		v.literal(pred.Field, pred.Value)
	case NotEquals:
		v.ident("field", pred.Field)
		v.literal(pred.Field, pred.Value)
	case Compare:
		v.ident("field", pred.Field)
		if pred.Op != Less && pred.Op != Greater {
			v.addError("unknown compare operator %q on %s", pred.Op, pred.Field)
		}
	case Like:
		v.ident("field", pred.Field)
		if pred.Pattern == "" {
			v.addError("empty LIKE pattern on %s", pred.Field)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Or:
		if len(pred.Predicates) == 0 {
			v.addWarning("empty OR never matches")
		}
		// An OR is scoped only when every branch is.
		outer := v.scoped
		all := len(pred.Predicates) > 0
		for _, sub := range pred.Predicates {
			v.scoped = false
			v.validatePredicate(sub)
			all = all && v.scoped
		}
		v.scoped = outer || all
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) literal(field string, value any) {
	switch value.(type) {
	case string, int64:
	default:
		v.addError("unsupported literal %T for %s", value, field)
	}
}
