package sql

import (
	"fmt"
	"strings"
)

// FormatQuery renders the query on several lines, one clause per line.
func FormatQuery(q Query) string {
	return q.format("\n", "%8s")
}

// String renders the query on one line.
func (q Query) String() string {
	return q.format(" ", "%s")
}

func (q Query) format(sep, kw string) string {
	r := strings.Builder{}
	clause := func(name string) {
		if r.Len() > 0 {
			r.WriteString(sep)
		}
		r.WriteString(fmt.Sprintf(kw, name))
	}

	clause("SELECT")
	for i, s := range q.Selectors {
		if i > 0 {
			r.WriteString(",")
		}
		r.WriteString(" ")
		r.WriteString(s.expr.String())
		if s.alias != "" {
			r.WriteString(fmt.Sprintf(" AS %s", s.alias))
		}
	}

	if q.From != nil {
		clause("FROM")
		r.WriteString(" " + q.From.String())
	}

	for _, j := range q.Joins {
		if j.Left {
			clause("LEFT JOIN")
		} else {
			clause("JOIN")
		}
		r.WriteString(" " + j.Table.String())
		r.WriteString(" ON ")
		r.WriteString(j.Condition.String())
	}

	if q.Filter != nil {
		clause("WHERE")
		r.WriteString(" " + q.Filter.String())
	}

	if len(q.GroupBy) > 0 {
		clause("GROUP BY")
		r.WriteString(" " + joinExpressions(q.GroupBy))
	}
	if len(q.OrderBy) > 0 {
		clause("ORDER BY")
		for i, o := range q.OrderBy {
			if i > 0 {
				r.WriteString(",")
			}
			r.WriteString(" ")
			r.WriteString(o.expr.String())
			if o.desc {
				r.WriteString(" DESC")
			}
		}
	}
	if q.Limit.Set {
		clause("LIMIT")
		r.WriteString(fmt.Sprintf(" %d", q.Limit.Value))
	}
	return r.String()
}

func joinExpressions(xs []expression) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = x.String()
	}
	return strings.Join(parts, ", ")
}

func (t tableRef) String() string {
	if t.Alias == "" {
		return fmt.Sprintf("\"%s\"", t.Name)
	}
	return fmt.Sprintf("\"%s\" AS \"%s\"", t.Name, t.Alias)
}

func (s star) String() string {
	return "*"
}

func (e aggregate) String() string {
	return fmt.Sprintf("%s(%s)", e.Name, joinExpressions(e.Args))
}

func (f functionkek) String() string {
	return fmt.Sprintf("%s(%s)", f.Name, joinExpressions(f.Args))
}

func (e binaryOperatorNode) String() string {
	return fmt.Sprintf("%s %s %s", e.left.String(), e.op, e.right.String())
}

func (e logicalNode) String() string {
	return fmt.Sprintf("(%s %s %s)", e.left.String(), e.op, e.right.String())
}

func (e notNode) String() string {
	return "NOT " + e.expr.String()
}

func (e isNullNode) String() string {
	if e.negate {
		return e.expr.String() + " IS NOT NULL"
	}
	return e.expr.String() + " IS NULL"
}

func (e existsNode) String() string {
	return fmt.Sprintf("EXISTS (%s)", e.q)
}

func (e inNode) String() string {
	if e.negate {
		return fmt.Sprintf("%s NOT IN (%s)", e.expr, e.q)
	}
	return fmt.Sprintf("%s IN (%s)", e.expr, e.q)
}

func (e columnRef) String() string {
	if e.Table == "" {
		return fmt.Sprintf("\"%s\"", e.Column)
	}
	return fmt.Sprintf("\"%s\".\"%s\"", e.Table, e.Column)
}

func formatRows(rr []Row) string {
	sb := strings.Builder{}
	for _, r := range rr {
		for i, c := range r {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", c.Name, c.Data))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
