package sql

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gaswelder/blendsql/blend"
	"github.com/gaswelder/blendsql/scope"
)

// Row is a collection of cells.
type Row []Cell

// Cell is single piece of data, always part of a row.
type Cell struct {
	// Alias of the table the cell's value came from, if it came from a
	// plain column reference.
	TableName string
	// Name of the column.
	Name string
	// Value.
	Data Value
}

func (r Row) String() string {
	b := strings.Builder{}
	b.WriteString("Row {")
	for i, c := range r {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%s.%s=%s", c.TableName, c.Name, c.Data))
	}
	b.WriteString("}")
	return b.String()
}

// Engine parses and executes SQL queries.
type Engine struct {
	tables      map[string]Table
	log         *zap.Logger
	parallelism int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger queries are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithParallelism sets how many WHERE predicates may be evaluated at the
// same time. Values below 2 mean one at a time.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// New returns a new instance of the SQL engine.
func New(tables map[string]Table, opts ...Option) *Engine {
	e := &Engine{
		tables:      tables,
		log:         zap.NewNop(),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecString parses and executes a string SQL query agains the backend.
func (e *Engine) ExecString(sql string) ([]Row, error) {
	q, err := Parse(sql)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse query")
	}
	start := time.Now()
	s, err := e.Exec(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.Consume()
	if err != nil {
		return nil, err
	}
	e.log.Debug("query finished", zap.Int("rows", len(rows)), zap.Duration("took", time.Since(start)))
	return rows, nil
}

type RowsStream struct {
	s *Stream[Row]
}

func (s *RowsStream) Next() (Row, bool, error) {
	return s.s.Next()
}

func (s *RowsStream) Consume() ([]Row, error) {
	return s.s.Consume()
}

// Exec runs the query and returns the results.
func (e *Engine) Exec(Q Query) (*RowsStream, error) {
	if err := normalize(&Q, e.tables, nil); err != nil {
		return nil, err
	}
	e.log.Debug("executing query", zap.String("query", Q.String()), zap.Int("parallelism", e.parallelism))
	s, err := e.run(&Q, nil)
	if err != nil {
		return nil, err
	}
	return &RowsStream{s}, nil
}

// run executes a normalized query. outer is the scope of the enclosing
// query's current row, nil for top-level queries.
func (e *Engine) run(Q *Query, outer *scope.Frame) (*Stream[Row], error) {
	// Define the base input
	var input *Stream[*blend.Context]
	if Q.From != nil {
		input = tableStream(Q.tables[0])
	} else {
		input = arrstream([]*blend.Context{nil})
	}

	// Join other inputs
	for i, j := range Q.Joins {
		var err error
		input, err = e.join(input, Q.tables[i+1], j, outer)
		if err != nil {
			return nil, err
		}
	}

	chains := mapStream(input, func(b *blend.Context) (*scope.Frame, error) {
		return scope.Extend(outer, b), nil
	})

	if Q.Filter != nil {
		pred := func(chain *scope.Frame) (bool, error) {
			ok, err := eval(Q.Filter, env{e, chain, nil})
			if err != nil {
				return false, errors.Wrap(err, "failed to calculate filter condition")
			}
			return truthy(ok), nil
		}
		if e.parallelism > 1 {
			chains = chains.parallelFilter(e.parallelism, pred)
		} else {
			chains = chains.filter(pred)
		}
	}

	// At this state a stream of rows turns into a strem of row groups.
	// If the group by clause is present, the groups are formed according to
	// it. If not, each row is converted to its own group - so that the
	// projection step could work uniformly.
	groupsStream, err := e.groupRows(chains, Q, outer)
	if err != nil {
		return nil, err
	}
	if len(Q.OrderBy) > 0 {
		groupsStream = e.orderRows(groupsStream, Q, outer)
	}
	if Q.Limit.Set {
		groupsStream = groupsStream.limit(Q.Limit.Value)
	}

	return e.project(groupsStream, Q, outer), nil
}

// join pairs every binding of the left input with every row of the table
// that satisfies the condition. The table's level is put in front of the
// left binding, so the left levels are shared between all pairs made from
// the same left binding. For a LEFT JOIN a left binding without a match is
// kept with an empty level for the table.
func (e *Engine) join(left *Stream[*blend.Context], t boundTable, j joinspec, outer *scope.Frame) (*Stream[*blend.Context], error) {
	rows, err := readTable(t)
	if err != nil {
		return nil, err
	}
	s := flatMapStream(left, func(l *blend.Context) ([]*blend.Context, error) {
		var matched []*blend.Context
		for i := range rows {
			b := blend.Push(t.alias, t.columns, &rows[i], l)
			ok, err := eval(j.Condition, env{e, scope.Extend(outer, b), nil})
			if err != nil {
				return nil, errors.Wrapf(err, "failed to calculate join condition for %s", t.alias)
			}
			if truthy(ok) {
				matched = append(matched, b)
			}
		}
		if len(matched) == 0 && j.Left {
			matched = append(matched, blend.Push(t.alias, t.columns, nil, l))
		}
		return matched, nil
	})
	return s, nil
}

func (e *Engine) project(groupsIt *Stream[[]*scope.Frame], Q *Query, outer *scope.Frame) *Stream[Row] {
	return mapStream(groupsIt, func(group []*scope.Frame) (Row, error) {
		x := e.groupEnv(group, outer)
		groupRow := make(Row, 0, len(Q.Selectors))
		for _, selector := range Q.Selectors {
			val, err := eval(selector.expr, x)
			if err != nil {
				return nil, err
			}
			alias := selector.alias
			if alias == "" {
				alias = selector.expr.String()
			}
			cell := Cell{Name: alias, Data: val}
			if ref, ok := selector.expr.(*columnRef); ok {
				cell.TableName = ref.Table
			}
			groupRow = append(groupRow, cell)
		}
		return groupRow, nil
	})
}

// groupEnv returns the environment for evaluating expressions over a
// group. Plain column references take their values from the group's first
// row; an empty group only sees the enclosing scope.
func (e *Engine) groupEnv(group []*scope.Frame, outer *scope.Frame) env {
	if len(group) == 0 {
		return env{e, outer, group}
	}
	return env{e, group[0], group}
}

func (e *Engine) groupRows(input *Stream[*scope.Frame], Q *Query, outer *scope.Frame) (*Stream[[]*scope.Frame], error) {
	if len(Q.GroupBy) == 0 {
		return groupByNothing(input, Q)
	}

	var groups *Stream[[]*scope.Frame]
	return &Stream[[]*scope.Frame]{
		input.name + ".group",
		func() ([]*scope.Frame, bool, error) {
			if groups == nil {
				all, err := input.Consume()
				if err != nil {
					return nil, false, err
				}
				g, err := e.bucket(all, Q.GroupBy)
				if err != nil {
					return nil, false, err
				}
				groups = arrstream(g)
			}
			return groups.Next()
		},
	}, nil
}

// bucket splits rows into groups of equal keys, keeping the order in which
// the keys first appear.
func (e *Engine) bucket(all []*scope.Frame, by []expression) ([][]*scope.Frame, error) {
	keyeq := func(a, b []Value) bool {
		for i := range a {
			if !reflect.DeepEqual(a[i].Data, b[i].Data) {
				return false
			}
		}
		return true
	}
	groups := [][]*scope.Frame{}
	groupKeys := [][]Value{}
	for _, chain := range all {
		key := make([]Value, 0, len(by))
		for _, g := range by {
			ev, err := eval(g, env{e, chain, nil})
			if err != nil {
				return nil, errors.Wrapf(err, "failed to calculate group key %s", g)
			}
			key = append(key, ev)
		}

		// find the bucket
		i := -1
		for j := range groupKeys {
			if keyeq(groupKeys[j], key) {
				i = j
				break
			}
		}
		if i < 0 {
			i = len(groupKeys)
			groupKeys = append(groupKeys, key)
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], chain)
	}
	return groups, nil
}

func groupByNothing(input *Stream[*scope.Frame], Q *Query) (*Stream[[]*scope.Frame], error) {
	hasExpressions := false
	hasAggregates := false
	for _, x := range Q.Selectors {
		if containsAggregate(x.expr) {
			hasAggregates = true
		} else {
			hasExpressions = true
		}
	}
	// select id, count(*)
	if hasExpressions && hasAggregates {
		return nil, fmt.Errorf("can't use field expressions with aggregations without group by")
	}

	// select id
	if hasExpressions {
		return mapStream(input, func(r *scope.Frame) ([]*scope.Frame, error) {
			return []*scope.Frame{r}, nil
		}), nil
	}
	// select count(*)
	init := false
	return &Stream[[]*scope.Frame]{
		input.name + ".all",
		func() ([]*scope.Frame, bool, error) {
			if init {
				return nil, true, nil
			}
			init = true
			rows, err := input.Consume()
			if err != nil {
				return nil, false, err
			}
			return rows, false, nil
		}}, nil
}

func containsAggregate(x expression) bool {
	found := false
	traverse(x, func(node any) error {
		if _, ok := node.(*aggregate); ok {
			found = true
		}
		return nil
	})
	return found
}

// orderRows sorts the groups. NULLs go last in both directions.
func (e *Engine) orderRows(groupsIt *Stream[[]*scope.Frame], q *Query, outer *scope.Frame) *Stream[[]*scope.Frame] {
	var sorted *Stream[[]*scope.Frame]
	return &Stream[[]*scope.Frame]{
		groupsIt.name + ".order",
		func() ([]*scope.Frame, bool, error) {
			if sorted == nil {
				groups, err := groupsIt.Consume()
				if err != nil {
					return nil, false, err
				}
				groups, err = e.sortGroups(groups, q, outer)
				if err != nil {
					return nil, false, err
				}
				sorted = arrstream(groups)
			}
			return sorted.Next()
		},
	}
}

func (e *Engine) sortGroups(groups [][]*scope.Frame, q *Query, outer *scope.Frame) ([][]*scope.Frame, error) {
	keys := make([][]Value, len(groups))
	for i, g := range groups {
		x := e.groupEnv(g, outer)
		for _, ordering := range q.OrderBy {
			v, err := eval(ordering.expr, x)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to calculate order key %s", ordering.expr)
			}
			keys[i] = append(keys[i], v)
		}
	}

	idx := make([]int, len(groups))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := keys[idx[i]], keys[idx[j]]
		for k, ordering := range q.OrderBy {
			c, err := compareNullsLast(a[k], b[k], ordering.desc)
			if err != nil && sortErr == nil {
				sortErr = err
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}

	result := make([][]*scope.Frame, len(groups))
	for i, j := range idx {
		result[i] = groups[j]
	}
	return result, nil
}

// compareNullsLast returns -1, 0 or 1 depending on whether a goes before b.
func compareNullsLast(a, b Value, desc bool) (int, error) {
	switch {
	case a.IsNull() && b.IsNull():
		return 0, nil
	case a.IsNull():
		return 1, nil
	case b.IsNull():
		return -1, nil
	}
	if desc {
		a, b = b, a
	}
	less, err := a.LessThan(b)
	if err != nil || less {
		return -1, err
	}
	greater, err := a.GreaterThan(b)
	if greater {
		return 1, err
	}
	return 0, err
}
