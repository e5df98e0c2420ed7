package sql

// Query is a syntax tree that represents a query.
type Query struct {
	From      *tableRef
	Joins     []joinspec
	Filter    expression
	Selectors []selector
	GroupBy   []expression
	OrderBy   []orderspec
	Limit     struct {
		Set   bool
		Value int
	}

	// Tables of the FROM and JOIN clauses in that order, set by normalize.
	tables []boundTable
}

// tableRef is a table name with an optional alias, as written in the query.
type tableRef struct {
	Name  string
	Alias string
}

// alias returns the name the table's columns are qualified with.
func (t tableRef) alias() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

type boundTable struct {
	alias   string
	table   Table
	columns []string
}

type selector struct {
	expr  expression
	alias string
}

// expression is a node in an SQL expression tree.
type expression interface {
	String() string
}

type joinspec struct {
	Table     *tableRef
	Left      bool
	Condition expression
}

type orderspec struct {
	desc bool
	expr expression
}

// columnRef is an expression node that refers to a column.
type columnRef struct {
	Table  string
	Column string
}

type star struct{}

type functionkek struct {
	Name string
	Args []expression
}

type aggregate struct {
	Name string
	Args []expression
}

// binaryOperatorNode is a comparison.
type binaryOperatorNode struct {
	op    string
	left  expression
	right expression
}

// logicalNode is AND or OR.
type logicalNode struct {
	op    string
	left  expression
	right expression
}

type notNode struct {
	expr expression
}

type isNullNode struct {
	expr   expression
	negate bool
}

// existsNode is EXISTS (subquery). The subquery may refer to the columns
// of the enclosing query.
type existsNode struct {
	q *Query
}

// inNode is "expr [NOT] IN (subquery)".
type inNode struct {
	expr   expression
	q      *Query
	negate bool
}
