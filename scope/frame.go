// Package scope resolves column names while a predicate is evaluated.
//
// A scope is a chain of frames. Each frame binds a table alias and its
// column names to one row; lookups walk the chain from the head and stop
// at the first frame that can answer. Frames never change after they are
// built, so one chain, or a shared tail of several chains, can be read
// from any number of goroutines at once.
package scope

import (
	"strings"

	"github.com/gaswelder/blendsql/blend"
	"github.com/gaswelder/blendsql/value"
)

// Frame is one link of a scope chain. A nil *Frame is the empty chain.
type Frame struct {
	alias   string
	columns []string
	row     *value.Row
	next    *Frame
}

// New returns a frame in front of next. The columns and the row are
// referenced, not copied, and must not be changed while the frame is in
// use.
func New(alias string, columns []string, row *value.Row, next *Frame) *Frame {
	return &Frame{
		alias:   alias,
		columns: columns,
		row:     row,
		next:    next,
	}
}

// Extend walks the binding levels of b in order and pushes a frame for
// every level that has a row. Levels without a row are skipped but the
// walk goes on past them.
//
// Every new frame goes in front of the ones made before it, so the last
// level of b ends up at the head of the result and chain ends up at the
// very bottom. Lookups therefore see b's levels in reverse order.
func Extend(chain *Frame, b *blend.Context) *Frame {
	for ; b != nil; b = b.Next {
		if b.Row == nil {
			continue
		}
		chain = New(b.TableAlias, b.Columns, b.Row, chain)
	}
	return chain
}

// Alias returns the table alias of the frame.
func (f *Frame) Alias() string {
	return f.alias
}

// Columns returns the column names of the frame's row.
func (f *Frame) Columns() []string {
	return f.columns
}

// Next returns the frame searched after f, or nil.
func (f *Frame) Next() *Frame {
	return f.next
}

// Len returns the number of frames in the chain starting at f.
func (f *Frame) Len() int {
	n := 0
	for ; f != nil; f = f.next {
		n++
	}
	return n
}

// Aliases lists the chain's aliases in lookup order.
func (f *Frame) Aliases() []string {
	var r []string
	for ; f != nil; f = f.next {
		r = append(r, f.alias)
	}
	return r
}

func (f *Frame) String() string {
	if f == nil {
		return "<empty scope>"
	}
	b := strings.Builder{}
	for c := f; c != nil; c = c.next {
		if c != f {
			b.WriteString(" -> ")
		}
		b.WriteString(c.alias)
		b.WriteString("(")
		b.WriteString(strings.Join(c.columns, ", "))
		b.WriteString(")")
	}
	return b.String()
}
