// Package blend describes a combination of joined rows: one level per
// table taking part in the combination, linked through Next.
package blend

import (
	"strings"

	"github.com/gaswelder/blendsql/value"
)

// Context is one level of a joined row combination.
type Context struct {
	// Alias under which the table's columns are addressable.
	TableAlias string
	// Column names, positionally matching Row.
	Columns []string
	// The table's current row. Nil when the table has no matching row,
	// such as the right side of a LEFT JOIN that found nothing.
	Row *value.Row
	// The next level, or nil.
	Next *Context
}

// Push returns a new level in front of next. The existing levels are
// shared, not copied.
func Push(alias string, columns []string, row *value.Row, next *Context) *Context {
	return &Context{
		TableAlias: alias,
		Columns:    columns,
		Row:        row,
		Next:       next,
	}
}

// Len returns the number of levels, including the ones without a row.
func (c *Context) Len() int {
	n := 0
	for ; c != nil; c = c.Next {
		n++
	}
	return n
}

func (c *Context) String() string {
	b := strings.Builder{}
	for l := c; l != nil; l = l.Next {
		if l != c {
			b.WriteString(" -> ")
		}
		b.WriteString(l.TableAlias)
		if l.Row == nil {
			b.WriteString("(none)")
		} else {
			b.WriteString(l.Row.String())
		}
	}
	return b.String()
}
