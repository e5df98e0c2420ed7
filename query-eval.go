package sql

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/gaswelder/blendsql/scope"
	"github.com/gaswelder/blendsql/value"
)

// env is what an expression is evaluated against: the scope of the
// current row combination and, for aggregates, the scopes of all
// combinations in the current group.
type env struct {
	e     *Engine
	chain *scope.Frame
	group []*scope.Frame
}

func (x env) withChain(chain *scope.Frame) env {
	return env{x.e, chain, x.group}
}

func eval(node any, x env) (Value, error) {
	switch e := node.(type) {
	case *Value:
		return *e, nil

	case *columnRef:
		return evalColumnRef(e, x)

	case *aggregate:
		switch strings.ToLower(e.Name) {
		case "count":
			return evalCount(e.Args, x)
		case "min":
			return evalExtreme(e.Args, x, true)
		case "max":
			return evalExtreme(e.Args, x, false)
		}
		return Value{}, fmt.Errorf("unknown aggregate: %s", e.Name)

	case *functionkek:
		return evalFunction(e, x)

	case *binaryOperatorNode:
		return evalBinaryOp(e, x)

	case *logicalNode:
		return evalLogical(e, x)

	case *notNode:
		v, err := eval(e.expr, x)
		if err != nil || v.IsNull() {
			return Value{Type: Bool}, err
		}
		if v.Type != Bool {
			return Value{}, errors.New("NOT operand does not evaluate to bool: " + e.expr.String())
		}
		return Value{Type: Bool, Data: !v.Data.(bool)}, nil

	case *isNullNode:
		v, err := eval(e.expr, x)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: Bool, Data: v.IsNull() != e.negate}, nil

	case *existsNode:
		return evalExists(e, x)

	case *inNode:
		return evalIn(e, x)

	default:
		panic(fmt.Sprintf("unknown node in eval: %v", reflect.TypeOf(node)))
	}
}

// evalColumnRef looks the column up in the current scope. Every column
// reference was checked against the tables' schemas by normalize, so a
// miss here means the table providing the column has no row in this
// combination, as on the empty side of a LEFT JOIN. That reads as NULL.
func evalColumnRef(e *columnRef, x env) (Value, error) {
	var v *value.Value
	var err error
	if e.Table == "" {
		v, err = x.chain.Resolve(e.Column)
	} else {
		v, err = x.chain.ResolveQualified(e.Table, e.Column)
	}
	if errors.Is(err, scope.ErrValueNotFound) {
		return Value{}, nil
	}
	if err != nil {
		return Value{}, err
	}
	return *v, nil
}

func evalBinaryOp(v *binaryOperatorNode, x env) (Value, error) {
	a, err := eval(v.left, x)
	if err != nil {
		return Value{}, err
	}
	b, err := eval(v.right, x)
	if err != nil {
		return Value{}, err
	}
	if a.IsNull() || b.IsNull() {
		return Value{Type: Bool}, nil
	}
	var r bool
	switch v.op {
	case "=":
		r, err = a.Eq(b)
	case "!=", "<>":
		r, err = a.Eq(b)
		r = !r
	case ">":
		r, err = a.GreaterThan(b)
	case "<":
		r, err = a.LessThan(b)
	case ">=":
		r, err = a.LessThan(b)
		r = !r
	case "<=":
		r, err = a.GreaterThan(b)
		r = !r
	default:
		return Value{}, fmt.Errorf("unsupported binary operator: %s", v.op)
	}
	if err != nil {
		return Value{}, errors.Wrapf(err, "failed to evaluate %s", v)
	}
	return Value{Type: Bool, Data: r}, nil
}

// evalLogical implements AND and OR with short-circuiting and three-valued
// logic for NULLs.
func evalLogical(e *logicalNode, x env) (Value, error) {
	side := func(n expression, what string) (Value, error) {
		v, err := eval(n, x)
		if err != nil {
			return Value{}, err
		}
		if !v.IsNull() && v.Type != Bool {
			return Value{}, errors.New(what + " does not evaluate to bool: " + n.String())
		}
		return v, nil
	}
	// The value that decides the result on its own.
	decisive := e.op == "OR"

	a, err := side(e.left, "left-hand side")
	if err != nil {
		return Value{}, err
	}
	if !a.IsNull() && a.Data.(bool) == decisive {
		return a, nil
	}
	b, err := side(e.right, "right-hand side")
	if err != nil {
		return Value{}, err
	}
	if !b.IsNull() && b.Data.(bool) == decisive {
		return b, nil
	}
	if a.IsNull() || b.IsNull() {
		return Value{Type: Bool}, nil
	}
	return Value{Type: Bool, Data: !decisive}, nil
}

func evalExists(e *existsNode, x env) (Value, error) {
	s, err := x.e.run(e.q, x.chain)
	if err != nil {
		return Value{}, err
	}
	_, done, err := s.Next()
	if err != nil {
		return Value{}, errors.Wrap(err, "failed to evaluate EXISTS subquery")
	}
	return Value{Type: Bool, Data: !done}, nil
}

func evalIn(e *inNode, x env) (Value, error) {
	needle, err := eval(e.expr, x)
	if err != nil {
		return Value{}, err
	}
	if needle.IsNull() {
		return Value{Type: Bool}, nil
	}
	s, err := x.e.run(e.q, x.chain)
	if err != nil {
		return Value{}, err
	}
	sawNull := false
	for {
		row, done, err := s.Next()
		if err != nil {
			return Value{}, errors.Wrap(err, "failed to evaluate IN subquery")
		}
		if done {
			break
		}
		item := row[0].Data
		if item.IsNull() {
			sawNull = true
			continue
		}
		eq, err := needle.Eq(item)
		if err != nil {
			return Value{}, err
		}
		if eq {
			return Value{Type: Bool, Data: !e.negate}, nil
		}
	}
	if sawNull {
		return Value{Type: Bool}, nil
	}
	return Value{Type: Bool, Data: e.negate}, nil
}

func evalFunction(f *functionkek, x env) (Value, error) {
	args := make([]Value, len(f.Args))
	for i, argExpression := range f.Args {
		exprResult, err := eval(argExpression, x)
		if err != nil {
			return exprResult, err
		}
		args[i] = exprResult
	}
	return function(f.Name, args)
}

func evalCount(args []expression, x env) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("unimplemented arguments variant for count: %s", args)
	}
	if _, ok := args[0].(*star); ok {
		return Value{Type: Int, Data: len(x.group)}, nil
	}
	n := 0
	for _, chain := range x.group {
		v, err := eval(args[0], x.withChain(chain))
		if err != nil {
			return Value{}, err
		}
		if !v.IsNull() {
			n++
		}
	}
	return Value{Type: Int, Data: n}, nil
}

// evalExtreme computes min or max over the group, skipping NULLs.
func evalExtreme(args []expression, x env, min bool) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("unimplemented arguments variant for min/max: %s", args)
	}
	var result Value
	for _, chain := range x.group {
		v, err := eval(args[0], x.withChain(chain))
		if err != nil {
			return Value{}, err
		}
		if v.IsNull() {
			continue
		}
		if result.IsNull() {
			result = v
			continue
		}
		var better bool
		if min {
			better, err = v.LessThan(result)
		} else {
			better, err = v.GreaterThan(result)
		}
		if err != nil {
			return Value{}, err
		}
		if better {
			result = v
		}
	}
	return result, nil
}

func isAggregate(name string) bool {
	n := strings.ToLower(name)
	return n == "count" || n == "min" || n == "max"
}
