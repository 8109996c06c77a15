package ir

import (
	"strconv"
	"strings"
)

// Operator is a comparison operator of a condition.
type Operator string

const (
	OpGTE Operator = ">="
	OpLTE Operator = "<="
	OpNEQ Operator = "!="
	OpEQ  Operator = "=="
	OpGT  Operator = ">"
	OpLT  Operator = "<"
)

// Operators lists the supported operators, two-character forms first so a
// scanner can match greedily.
var Operators = []Operator{OpGTE, OpLTE, OpNEQ, OpEQ, OpGT, OpLT}

// Apply compares actual against the literal.
// Unknown operators compare false.
func (o Operator) Apply(actual, literal int64) bool {
	switch o {
	case OpGTE:
		return actual >= literal
	case OpLTE:
		return actual <= literal
	case OpNEQ:
		return actual != literal
	case OpEQ:
		return actual == literal
	case OpGT:
		return actual > literal
	case OpLT:
		return actual < literal
	default:
		return false
	}
}

// Conjunction joins a condition to the running result.
type Conjunction string

const (
	ConjNone Conjunction = "" // first condition of a query
	ConjAnd  Conjunction = "AND"
	ConjOr   Conjunction = "OR"
)

// Condition is one FIELD OP VALUE comparison together with the conjunction
// that preceded it.
type Condition struct {
	Conjunction Conjunction `json:"conjunction,omitempty"`
	Field       string      `json:"field"`
	Op          Operator    `json:"op"`
	Value       int64       `json:"value"`
}

// String renders the condition without its conjunction.
func (c Condition) String() string {
	return c.Field + " " + string(c.Op) + " " + strconv.FormatInt(c.Value, 10)
}

// Query is an ordered sequence of conditions folded strictly left to right.
type Query []Condition

// Fields returns the field names in condition order, duplicates included.
func (q Query) Fields() []string {
	fields := make([]string, 0, len(q))
	for _, c := range q {
		fields = append(fields, c.Field)
	}
	return fields
}

// String renders the canonical text form: single spaces, upper-case
// conjunctions. Parsing the output yields an equal Query.
func (q Query) String() string {
	var b strings.Builder
	for i, c := range q {
		if i > 0 {
			conj := c.Conjunction
			if conj == ConjNone {
				conj = ConjAnd
			}
			b.WriteString(" ")
			b.WriteString(string(conj))
			b.WriteString(" ")
		}
		b.WriteString(c.String())
	}
	return b.String()
}

// ValidationResult is the structured outcome of validating a query string.
// Validation never fails with an error; problems are reported here.
type ValidationResult struct {
	Valid          bool     `json:"valid"`
	Error          string   `json:"error,omitempty"`
	Code           string   `json:"code,omitempty"`
	Fields         []string `json:"fields"`
	ConditionCount int      `json:"condition_count"`
}
