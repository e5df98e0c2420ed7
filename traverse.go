package sql

import (
	"fmt"
	"reflect"
)

// traverse calls f on all expression nodes inside x, where x is a Query or
// any node inside of it. Subqueries are passed to f but not entered: they
// have their own scope and are normalized separately.
func traverse(x any, f func(any) error) error {
	switch v := x.(type) {
	case nil:
		return nil
	case *Value, *columnRef, *star, *existsNode:
		return f(v)
	case *functionkek:
		if err := f(v); err != nil {
			return err
		}
		return traverseAll(v.Args, f)
	case *aggregate:
		if err := f(v); err != nil {
			return err
		}
		return traverseAll(v.Args, f)
	case *binaryOperatorNode:
		if err := f(v); err != nil {
			return err
		}
		return traverseAll([]expression{v.left, v.right}, f)
	case *logicalNode:
		if err := f(v); err != nil {
			return err
		}
		return traverseAll([]expression{v.left, v.right}, f)
	case *notNode:
		if err := f(v); err != nil {
			return err
		}
		return traverse(v.expr, f)
	case *isNullNode:
		if err := f(v); err != nil {
			return err
		}
		return traverse(v.expr, f)
	case *inNode:
		if err := f(v); err != nil {
			return err
		}
		return traverse(v.expr, f)
	case *Query:
		for _, sel := range v.Selectors {
			if err := traverse(sel.expr, f); err != nil {
				return err
			}
		}
		for _, j := range v.Joins {
			if err := traverse(j.Condition, f); err != nil {
				return err
			}
		}
		if v.Filter != nil {
			if err := traverse(v.Filter, f); err != nil {
				return err
			}
		}
		if err := traverseAll(v.GroupBy, f); err != nil {
			return err
		}
		for _, o := range v.OrderBy {
			if err := traverse(o.expr, f); err != nil {
				return err
			}
		}
		return nil
	default:
		panic(fmt.Errorf("don't know how to traverse %s", reflect.TypeOf(x)))
	}
}

func traverseAll(xs []expression, f func(any) error) error {
	for _, x := range xs {
		if err := traverse(x, f); err != nil {
			return err
		}
	}
	return nil
}
