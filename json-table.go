package sql

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/gaswelder/blendsql/value"
)

// Table is a source of rows. Rows returns a fresh iterator on every call;
// the iterator returns a nil row when there are no more rows. Each row's
// values follow the order of Columns.
type Table interface {
	Columns() []string
	Rows() func() (value.Row, error)
}

// MemTable is a table held in memory. It is safe for concurrent readers.
type MemTable struct {
	columns []string
	rows    []value.Row
}

// NewTable returns an in-memory table.
func NewTable(columns []string, rows []value.Row) *MemTable {
	return &MemTable{columns, rows}
}

// TableFromMaps builds an in-memory table from rows given as maps. The
// columns are the union of all keys, sorted; missing values are NULL.
func TableFromMaps(items []map[string]Value) *MemTable {
	types := map[string]ValueTypeID{}
	for _, item := range items {
		for k, v := range item {
			if _, ok := types[k]; !ok || v.Data != nil {
				types[k] = v.Type
			}
		}
	}
	columns := sortedKeys(types)
	t := &MemTable{columns: columns}
	for _, item := range items {
		row := make(value.Row, len(columns))
		for i, c := range columns {
			v, ok := item[c]
			if !ok {
				v = value.Null(types[c])
			}
			row[i] = v
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func (t *MemTable) Columns() []string {
	return t.columns
}

func (t *MemTable) Rows() func() (value.Row, error) {
	i := 0
	return func() (value.Row, error) {
		if i >= len(t.rows) {
			return nil, nil
		}
		row := t.rows[i]
		i++
		return row, nil
	}
}

// ReadJSONTable loads a file with a JSON array of objects. Column types are
// inferred from the data.
func ReadJSONTable(path string) (*MemTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	for _, item := range items {
		castToInt(item)
	}

	schema := map[string]ValueTypeID{}
	for _, item := range items {
		for k, v := range item {
			t, err := guessType(v)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: column %s", path, k)
			}
			schema[k], err = widenType(schema[k], t)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: column %s", path, k)
			}
		}
	}

	maps := make([]map[string]Value, len(items))
	for i, item := range items {
		row := map[string]Value{}
		for k, t := range schema {
			row[k], err = convert(t, item[k])
			if err != nil {
				return nil, errors.Wrapf(err, "%s: column %s", path, k)
			}
		}
		maps[i] = row
	}
	return TableFromMaps(maps), nil
}

// jsonStream is a table read from a stream of JSON objects. The schema is
// taken from the first object. Decoded rows are kept, so every iterator
// returned by Rows starts from the first row and only reads the
// underlying stream past the rows seen so far.
type jsonStream struct {
	mu      sync.Mutex
	_init   bool
	dec     *json.Decoder
	columns []string
	schema  map[string]ValueTypeID
	rows    []value.Row
	done    bool
	err     error
}

// JSONStream returns a table that reads JSON objects from r.
func JSONStream(r io.Reader) Table {
	return &jsonStream{dec: json.NewDecoder(bufio.NewReader(r))}
}

func (s *jsonStream) init() error {
	if s._init {
		return s.err
	}
	s._init = true
	s.err = s.readSchema()
	return s.err
}

func (s *jsonStream) readSchema() error {
	var m map[string]any
	err := s.dec.Decode(&m)

	// An empty source is an empty table.
	if err == io.EOF {
		s.schema = map[string]ValueTypeID{}
		s.done = true
		return nil
	}
	if err != nil {
		return err
	}

	castToInt(m)
	schema := map[string]ValueTypeID{}
	for k, v := range m {
		schema[k], err = guessType(v)
		if err != nil {
			return errors.Wrapf(err, "column %s", k)
		}
	}
	s.schema = schema
	s.columns = sortedKeys(schema)

	row, err := s.parse(m)
	if err != nil {
		return err
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *jsonStream) Columns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.init(); err != nil {
		return nil
	}
	return s.columns
}

// readMore decodes the next object into the row cache. It returns false
// at the end of the stream. Errors are kept and returned to every reader.
func (s *jsonStream) readMore() (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.done {
		return false, nil
	}
	var m map[string]any
	err := s.dec.Decode(&m)
	if err == io.EOF {
		s.done = true
		return false, nil
	}
	if err != nil {
		s.err = err
		return false, err
	}
	castToInt(m)
	row, err := s.parse(m)
	if err != nil {
		s.err = errors.Wrapf(err, "row %d", len(s.rows)+1)
		return false, s.err
	}
	s.rows = append(s.rows, row)
	return true, nil
}

func (s *jsonStream) parse(m map[string]any) (value.Row, error) {
	row := make(value.Row, len(s.columns))
	for i, k := range s.columns {
		v, err := convert(s.schema[k], m[k])
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", k)
		}
		row[i] = v
	}
	return row, nil
}

func (s *jsonStream) Rows() func() (value.Row, error) {
	i := 0
	return func() (value.Row, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.init(); err != nil {
			return nil, err
		}
		if i == len(s.rows) {
			ok, err := s.readMore()
			if !ok {
				return nil, err
			}
		}
		row := s.rows[i]
		i++
		return row, nil
	}
}

func castToInt(item map[string]any) {
	for k, v := range item {
		if f, ok := v.(float64); ok && float64(int(f)) == f {
			item[k] = int(f)
		}
	}
}

func guessType(x any) (ValueTypeID, error) {
	switch x.(type) {
	case nil:
		return value.Undefined, nil
	case string:
		return String, nil
	case float64:
		return Double, nil
	case int:
		return Int, nil
	case bool:
		return Bool, nil
	case []any:
		return Array, nil
	case map[string]any:
		return JSON, nil
	default:
		return value.Undefined, fmt.Errorf("unexpected value type: %s", reflect.TypeOf(x))
	}
}

func widenType(t1, t2 ValueTypeID) (ValueTypeID, error) {
	switch {
	case t1 == value.Undefined:
		return t2, nil
	case t2 == value.Undefined, t1 == t2:
		return t1, nil
	case t1 == Int && t2 == Double, t1 == Double && t2 == Int:
		return Double, nil
	case t1 == Int && t2 == String, t1 == String && t2 == Int:
		return String, nil
	}
	return value.Undefined, fmt.Errorf("can't mix %s and %s", value.TypeName(t1), value.TypeName(t2))
}

// convert turns a decoded JSON value into a value of the column's type.
// A column of unknown type takes the type of the value. Values that would
// need a wider type than the column's are an error.
func convert(t ValueTypeID, x any) (Value, error) {
	if x == nil {
		return value.Null(t), nil
	}
	xt, err := guessType(x)
	if err != nil {
		return Value{}, err
	}
	if t == value.Undefined {
		t = xt
	}
	w, err := widenType(t, xt)
	if err != nil {
		return Value{}, err
	}
	if w != t {
		return Value{}, fmt.Errorf("can't store %s value in %s column", value.TypeName(xt), value.TypeName(t))
	}
	switch v := x.(type) {
	case int:
		switch t {
		case Double:
			return Value{Type: t, Data: float64(v)}, nil
		case String:
			return Value{Type: t, Data: fmt.Sprint(v)}, nil
		}
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i], err = convert(value.Undefined, item)
			if err != nil {
				return Value{}, errors.Wrapf(err, "item %d", i)
			}
		}
		return Value{Type: Array, Data: items}, nil
	}
	return Value{Type: t, Data: x}, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
