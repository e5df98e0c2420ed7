package scope

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/gaswelder/blendsql/value"
)

// ErrValueNotFound is returned when no frame of a chain can provide the
// requested column.
var ErrValueNotFound = errors.New("value not found")

// Resolve returns the value of the column named target from the first
// frame, counting from f, that has such a column. Names are compared
// exactly. The returned pointer refers to the row the frame was built
// with.
func (f *Frame) Resolve(target string) (*value.Value, error) {
	for c := f; c != nil; c = c.next {
		if v, ok := c.lookup(target); ok {
			return v, nil
		}
	}
	return nil, errors.WithMessagef(ErrValueNotFound, "column %q", target)
}

// ResolveQualified is Resolve restricted to frames bound to the given
// table alias. Frames with any other alias are passed over even if they
// have a column named target.
func (f *Frame) ResolveQualified(alias, target string) (*value.Value, error) {
	for c := f; c != nil; c = c.next {
		if c.alias != alias {
			continue
		}
		if v, ok := c.lookup(target); ok {
			return v, nil
		}
	}
	return nil, errors.WithMessagef(ErrValueNotFound, "column %q.%q", alias, target)
}

func (f *Frame) lookup(target string) (*value.Value, bool) {
	if f.row == nil {
		return nil, false
	}
	i := lo.IndexOf(f.columns, target)
	if i < 0 {
		return nil, false
	}
	return f.row.Get(i)
}
