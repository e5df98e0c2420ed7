package sql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// normalize binds the query's table references to tables, expands stars
// and checks that every column reference can be satisfied by some table
// visible to the query. outer lists the tables of the enclosing queries,
// innermost first.
func normalize(q *Query, tables map[string]Table, outer []boundTable) error {
	q.tables = nil
	refs := []*tableRef{}
	if q.From != nil {
		refs = append(refs, q.From)
	}
	for _, j := range q.Joins {
		refs = append(refs, j.Table)
	}
	for _, ref := range refs {
		n, err := canonicalTableName(tables, ref.Name)
		if err != nil {
			return err
		}
		alias := ref.alias()
		if lo.ContainsBy(q.tables, func(t boundTable) bool { return t.alias == alias }) {
			return fmt.Errorf("duplicate table alias: %s", alias)
		}
		table := tables[n]
		q.tables = append(q.tables, boundTable{alias, table, table.Columns()})
	}
	visible := append(append([]boundTable{}, q.tables...), outer...)

	err := traverse(q, func(node any) error {
		switch v := node.(type) {
		case *columnRef:
			return checkColumn(v, visible)
		case *existsNode:
			return normalize(v.q, tables, visible)
		case *inNode:
			if err := normalize(v.q, tables, visible); err != nil {
				return err
			}
			if len(v.q.Selectors) != 1 {
				return fmt.Errorf("subquery in IN must select exactly one column, got %d", len(v.q.Selectors))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, x := range append([]expression{q.Filter}, lo.Map(q.Joins, func(j joinspec, _ int) expression { return j.Condition })...) {
		if err := rejectAggregates(x); err != nil {
			return err
		}
	}

	// Replace stars
	var selects = q.Selectors
	q.Selectors = []selector{}
	for _, s := range selects {
		if _, ok := s.expr.(*star); ok {
			if len(q.tables) == 0 {
				return fmt.Errorf("* used without a FROM clause")
			}
			for _, t := range q.tables {
				for _, col := range t.columns {
					q.Selectors = append(q.Selectors, selector{expr: &columnRef{t.alias, col}, alias: col})
				}
			}
			continue
		}
		q.Selectors = append(q.Selectors, s)
	}
	return nil
}

func checkColumn(ref *columnRef, visible []boundTable) error {
	aliasSeen := false
	for _, t := range visible {
		if ref.Table != "" && t.alias != ref.Table {
			continue
		}
		aliasSeen = true
		if lo.Contains(t.columns, ref.Column) {
			return nil
		}
	}
	if ref.Table != "" && !aliasSeen {
		return fmt.Errorf("unknown table %s in column reference %s", ref.Table, ref)
	}
	return fmt.Errorf("unknown column %s", ref)
}

func rejectAggregates(x expression) error {
	return traverse(x, func(node any) error {
		if a, ok := node.(*aggregate); ok {
			return fmt.Errorf("aggregate %s is not allowed here", a)
		}
		return nil
	})
}

func canonicalTableName(tables map[string]Table, tbl string) (string, error) {
	var matches []string
	for t := range tables {
		if idMatch(t, tbl) {
			matches = append(matches, t)
		}
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("could not resolve table name '%s'", tbl)
	}
	if len(matches) > 1 {
		sort.Strings(matches)
		return "", fmt.Errorf("ambiguous table name \"%s\": %s", tbl, strings.Join(matches, ", "))
	}
	return matches[0], nil
}

func idMatch(full, x string) bool {
	if strings.Contains(full, "/") {
		return nsMatch(full, x)
	}
	return strings.EqualFold(full, x)
}

// nsMatch matches "ns/name" table names against either "name" or
// "ns/name".
func nsMatch(full, x string) bool {
	fullParts := strings.SplitN(full, "/", 2)
	xParts := strings.Split(x, "/")
	switch len(xParts) {
	case 1:
		return strings.EqualFold(xParts[0], fullParts[1])
	case 2:
		return strings.EqualFold(xParts[0], fullParts[0]) && strings.EqualFold(xParts[1], fullParts[1])
	default:
		return false
	}
}
