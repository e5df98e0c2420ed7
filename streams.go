package sql

import (
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gaswelder/blendsql/blend"
	"github.com/gaswelder/blendsql/value"
)

// Stream is a lazy sequence of items.
type Stream[T any] struct {
	name string
	gen  func() (T, bool, error)
}

// Next returns the next item. The boolean is true when the stream is
// exhausted.
func (s *Stream[T]) Next() (T, bool, error) {
	return s.gen()
}

// Consume reads the rest of the stream.
func (s *Stream[T]) Consume() ([]T, error) {
	var items []T
	for {
		r, done, err := s.Next()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		items = append(items, r)
	}
	return items, nil
}

func (s *Stream[T]) filter(f func(T) (bool, error)) *Stream[T] {
	var t T
	return &Stream[T]{
		s.name + ".filter",
		func() (T, bool, error) {
			for {
				r, done, err := s.Next()
				if done || err != nil {
					return t, done, err
				}
				ok, err := f(r)
				if err != nil {
					return r, false, err
				}
				if ok {
					return r, false, nil
				}
			}
		},
	}
}

// parallelFilter is filter that runs f on up to n items at a time. It
// reads the whole input on the first call and keeps the input order.
func (s *Stream[T]) parallelFilter(n int, f func(T) (bool, error)) *Stream[T] {
	var out *Stream[T]
	var t T
	return &Stream[T]{
		s.name + ".pfilter",
		func() (T, bool, error) {
			if out == nil {
				items, err := s.Consume()
				if err != nil {
					return t, false, err
				}
				keep := make([]bool, len(items))
				var g errgroup.Group
				g.SetLimit(n)
				for i := range items {
					i := i
					g.Go(func() error {
						ok, err := f(items[i])
						keep[i] = ok
						return err
					})
				}
				if err := g.Wait(); err != nil {
					return t, false, err
				}
				var kept []T
				for i, item := range items {
					if keep[i] {
						kept = append(kept, item)
					}
				}
				out = arrstream(kept)
			}
			return out.Next()
		},
	}
}

func (s *Stream[T]) limit(take int) *Stream[T] {
	i := 0
	var t T
	return &Stream[T]{
		s.name + ".limit",
		func() (T, bool, error) {
			if i >= take {
				return t, true, nil
			}
			i++
			return s.Next()
		}}
}

func mapStream[T, U any](s *Stream[T], f func(T) (U, error)) *Stream[U] {
	var u U
	return &Stream[U]{
		s.name + ".map",
		func() (U, bool, error) {
			item, done, err := s.Next()
			if err != nil || done {
				return u, done, err
			}
			val, err := f(item)
			return val, false, err
		},
	}
}

// flatMapStream replaces every item with zero or more items.
func flatMapStream[T, U any](s *Stream[T], f func(T) ([]U, error)) *Stream[U] {
	var u U
	var pending []U
	return &Stream[U]{
		s.name + ".flatmap",
		func() (U, bool, error) {
			for len(pending) == 0 {
				item, done, err := s.Next()
				if err != nil || done {
					return u, done, err
				}
				pending, err = f(item)
				if err != nil {
					return u, false, err
				}
			}
			r := pending[0]
			pending = pending[1:]
			return r, false, nil
		},
	}
}

// tableStream reads a table's rows as single-level bindings.
func tableStream(t boundTable) *Stream[*blend.Context] {
	next := t.table.Rows()
	return &Stream[*blend.Context]{
		"table " + t.alias,
		func() (*blend.Context, bool, error) {
			row, err := next()
			if err != nil {
				return nil, false, errors.Wrapf(err, "failed to read table %s", t.alias)
			}
			if row == nil {
				return nil, true, nil
			}
			if len(row) < len(t.columns) {
				return nil, false, errors.Errorf("table %s: row has %d values, expected %d", t.alias, len(row), len(t.columns))
			}
			return blend.Push(t.alias, t.columns, &row, nil), false, nil
		},
	}
}

// readTable reads all rows of a table into memory.
func readTable(t boundTable) ([]value.Row, error) {
	rows, err := mapStream(tableStream(t), func(b *blend.Context) (value.Row, error) {
		return *b.Row, nil
	}).Consume()
	return rows, err
}

func arrstream[T any](xs []T) *Stream[T] {
	var t T
	i := 0
	return &Stream[T]{
		"array",
		func() (T, bool, error) {
			if i >= len(xs) {
				return t, true, nil
			}
			r := xs[i]
			i++
			return r, false, nil
		},
	}
}
