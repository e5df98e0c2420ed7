package value

import "strings"

// Row is a positional sequence of values. What each position means is
// decided by whoever holds the column names for it.
type Row []Value

// Get returns a pointer to the value at position i, or false if the row
// is shorter than that. The pointer refers to the row's own storage.
func (r Row) Get(i int) (*Value, bool) {
	if i < 0 || i >= len(r) {
		return nil, false
	}
	return &r[i], true
}

func (r Row) String() string {
	b := strings.Builder{}
	b.WriteString("(")
	for i, v := range r {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteString(")")
	return b.String()
}
