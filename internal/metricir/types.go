package metricir

// Metric is a per-user integer measurement.
//
// This is a sealed interface. Only Aggregate and Column implement it.
type Metric interface {
	metricNode()
}

// Predicate is a row filter.
//
// This is a sealed interface. Only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// AggFunc selects how an Aggregate folds matching rows.
type AggFunc string

const (
	// Count counts matching rows.
	Count AggFunc = "COUNT"
	// Sum adds Column over matching rows. No rows sum to 0.
	Sum AggFunc = "SUM"
	// AbsSum is the absolute value of Sum.
	AbsSum AggFunc = "ABS_SUM"
)

// Aggregate folds the rows of Table that satisfy Filter.
//
//	Aggregate{Func: Count, Table: "pvp_battles",
//	    Filter: SubjectEquals{Field: "winner_id"}}
//
// compiles to
//
//	SELECT COUNT(*) FROM pvp_battles WHERE winner_id = ?
type Aggregate struct {
	Func   AggFunc
	Table  string
	Column string // required for Sum and AbsSum, ignored for Count
	Filter Predicate
}

func (Aggregate) metricNode() {}

// Column reads one column of the row selected by Filter. A missing row or a
// NULL value reads as 0.
type Column struct {
	Table  string
	Column string
	Filter Predicate
}

func (Column) metricNode() {}

// SubjectEquals matches rows whose Field holds the subject user's id.
type SubjectEquals struct {
	Field string
}

func (SubjectEquals) predicateNode() {}

// Equals matches Field = Value. Value is a string or an int64.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// NotEquals matches Field != Value. Value is a string or an int64.
type NotEquals struct {
	Field string
	Value any
}

func (NotEquals) predicateNode() {}

// CompareOp is an ordering operator for Compare.
type CompareOp string

const (
	Less    CompareOp = "<"
	Greater CompareOp = ">"
)

// Compare matches Field Op Value on integer columns.
type Compare struct {
	Field string
	Op    CompareOp
	Value int64
}

func (Compare) predicateNode() {}

// Like matches Field against an ASCII case-insensitive pattern where % is
// any run of characters. Literal text taken from user data must go through
// EscapeLike first.
type Like struct {
	Field   string
	Pattern string
}

func (Like) predicateNode() {}

// And matches when every predicate matches. Empty And matches every row.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or matches when any predicate matches. Empty Or matches no row.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}
