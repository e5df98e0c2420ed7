package sql

import (
	"fmt"
	"strconv"
)

// Parse parses an SQL string and returns a query syntax tree.
func Parse(sqlString string) (Query, error) {
	b := newTokenizer(sqlString)
	result, err := readQuery(b)
	if err != nil {
		return result, err
	}
	if b.peek().t != tEnd {
		return result, fmt.Errorf("unexpected token: %s", b.peek())
	}
	return result, nil
}

func readQuery(b *tokenizer) (Query, error) {
	var result Query
	var err error
	if !b.eati(tKeyword, "SELECT") {
		return result, fmt.Errorf("SELECT expected, got %s", b.peek())
	}
	for {
		e, err := readSelector(b)
		if err != nil {
			return result, err
		}
		result.Selectors = append(result.Selectors, e)
		if !b.eat(tOp, ",") {
			break
		}
	}
	if b.eati(tKeyword, "FROM") {
		result.From, err = readTableRef(b)
		if err != nil {
			return result, err
		}
		result.Joins, err = readJoins(b)
		if err != nil {
			return result, err
		}
	}
	if b.eati(tKeyword, "WHERE") {
		result.Filter, err = readExpression(b)
		if err != nil {
			return result, err
		}
	}
	if b.eati(tKeyword, "GROUP") {
		if !b.eati(tKeyword, "BY") {
			return result, fmt.Errorf("expected BY after GROUP, got %s", b.peek())
		}
		for {
			gr, err := readExpression(b)
			if err != nil {
				return result, err
			}
			result.GroupBy = append(result.GroupBy, gr)
			if !b.eat(tOp, ",") {
				break
			}
		}
	}
	if b.eati(tKeyword, "ORDER") {
		if !b.eati(tKeyword, "BY") {
			return result, fmt.Errorf("expected BY after ORDER, got %s", b.peek())
		}
		for {
			o, err := readOrder(b)
			if err != nil {
				return result, err
			}
			result.OrderBy = append(result.OrderBy, o)
			if !b.eat(tOp, ",") {
				break
			}
		}
	}
	if b.eati(tKeyword, "LIMIT") {
		n, err := b.next()
		if err != nil {
			return result, err
		}
		if n.t != tNumber {
			return result, fmt.Errorf("expecting a number after LIMIT, got %s", n)
		}
		val, err := strconv.Atoi(n.val)
		if err != nil {
			return result, err
		}
		if val < 0 {
			return result, fmt.Errorf("LIMIT can't be negative: %d", val)
		}
		result.Limit.Set = true
		result.Limit.Value = val
	}
	return result, nil
}

func readOrder(b *tokenizer) (orderspec, error) {
	expr, err := readExpression(b)
	if err != nil {
		return orderspec{}, err
	}
	desc := false
	switch {
	case b.eat(tKeyword, "DESC"):
		desc = true
	case b.eat(tKeyword, "ASC"):
		//
	}
	return orderspec{desc, expr}, nil
}

func readSelector(b *tokenizer) (selector, error) {
	if b.eat(tOp, "*") {
		return selector{expr: &star{}, alias: ""}, nil
	}
	expr, err := readExpression(b)
	if err != nil {
		return selector{}, err
	}
	if b.eati(tKeyword, "as") {
		alias, err := b.next()
		if err != nil {
			return selector{}, err
		}
		if alias.t != tIdentifier {
			return selector{}, fmt.Errorf("expected identifier after AS, got %s", alias)
		}
		return selector{expr: expr, alias: alias.val}, nil
	}
	return selector{expr: expr}, nil
}

// readTableRef reads "name [[AS] alias]".
func readTableRef(b *tokenizer) (*tableRef, error) {
	name, err := b.next()
	if err != nil {
		return nil, err
	}
	if name.t != tIdentifier {
		return nil, fmt.Errorf("expected identifier, got %s", name)
	}
	ref := &tableRef{Name: name.val}
	explicit := b.eat(tKeyword, "AS")
	if b.peek().t == tIdentifier {
		alias, _ := b.next()
		ref.Alias = alias.val
	} else if explicit {
		return nil, fmt.Errorf("expected alias after AS, got %s", b.peek())
	}
	return ref, nil
}

func readJoins(b *tokenizer) ([]joinspec, error) {
	var r []joinspec
	for {
		left := false
		switch {
		case b.eat(tKeyword, "LEFT"):
			left = true
			b.eat(tKeyword, "OUTER")
			if !b.eat(tKeyword, "JOIN") {
				return nil, fmt.Errorf("expected JOIN after LEFT, got %s", b.peek())
			}
		case b.eat(tKeyword, "INNER"):
			if !b.eat(tKeyword, "JOIN") {
				return nil, fmt.Errorf("expected JOIN after INNER, got %s", b.peek())
			}
		case b.eat(tKeyword, "JOIN"):
		default:
			return r, nil
		}
		table, err := readTableRef(b)
		if err != nil {
			return nil, err
		}
		if !b.eat(tKeyword, "ON") {
			return nil, fmt.Errorf("expected ON, got %s", b.peek())
		}
		condition, err := readExpression(b)
		if err != nil {
			return nil, err
		}
		r = append(r, joinspec{table, left, condition})
	}
}

func readExpression(b *tokenizer) (expression, error) {
	e, err := readAnd(b)
	if err != nil {
		return nil, err
	}
	for b.eati(tKeyword, "OR") {
		e2, err := readAnd(b)
		if err != nil {
			return nil, err
		}
		e = &logicalNode{"OR", e, e2}
	}
	return e, nil
}

func readAnd(b *tokenizer) (expression, error) {
	e, err := readNot(b)
	if err != nil {
		return nil, err
	}
	for b.eati(tKeyword, "AND") {
		e2, err := readNot(b)
		if err != nil {
			return nil, err
		}
		e = &logicalNode{"AND", e, e2}
	}
	return e, nil
}

func readNot(b *tokenizer) (expression, error) {
	if b.eat(tKeyword, "NOT") {
		e, err := readNot(b)
		if err != nil {
			return nil, err
		}
		return &notNode{e}, nil
	}
	return readComparison(b)
}

var comparisons = []string{"=", "!=", "<>", "<", ">", "<=", ">="}

func readComparison(b *tokenizer) (expression, error) {
	e, err := readExpr0(b)
	if err != nil {
		return nil, err
	}
	if b.eat(tKeyword, "IS") {
		negate := b.eat(tKeyword, "NOT")
		if !b.eat(tKeyword, "NULL") {
			return nil, fmt.Errorf("expected NULL after IS, got %s", b.peek())
		}
		return &isNullNode{e, negate}, nil
	}
	negate := b.eat(tKeyword, "NOT")
	if p := b.peek(); negate || (p.t == tKeyword && p.val == "IN") {
		if !b.eat(tKeyword, "IN") {
			return nil, fmt.Errorf("expected IN after NOT, got %s", b.peek())
		}
		q, err := readSubquery(b)
		if err != nil {
			return nil, err
		}
		return &inNode{e, q, negate}, nil
	}
	for _, op := range comparisons {
		if b.eat(tOp, op) {
			e2, err := readExpr0(b)
			if err != nil {
				return nil, err
			}
			return &binaryOperatorNode{op, e, e2}, nil
		}
	}
	return e, nil
}

func readSubquery(b *tokenizer) (*Query, error) {
	if !b.eat(tOp, "(") {
		return nil, fmt.Errorf("( expected, got %s", b.peek())
	}
	q, err := readQuery(b)
	if err != nil {
		return nil, err
	}
	if !b.eat(tOp, ")") {
		return nil, fmt.Errorf(") expected after subquery, got %s", b.peek())
	}
	return &q, nil
}

func readExpr0(b *tokenizer) (expression, error) {
	scalar, err := readScalar(b)
	if err != nil {
		return nil, err
	}
	if scalar != nil {
		return scalar, nil
	}
	if b.eati(tKeyword, "TRUE") {
		return &Value{Type: Bool, Data: true}, nil
	}
	if b.eati(tKeyword, "FALSE") {
		return &Value{Type: Bool, Data: false}, nil
	}
	if b.eati(tKeyword, "NULL") {
		return &Value{}, nil
	}
	if b.eati(tKeyword, "EXISTS") {
		q, err := readSubquery(b)
		if err != nil {
			return nil, err
		}
		return &existsNode{q}, nil
	}
	if b.eati(tKeyword, "ARRAY") {
		if !b.eat(tOp, "[") {
			return nil, fmt.Errorf("[ expected, got %s", b.peek())
		}
		var array []Value
		for {
			item, err := readScalar(b)
			if err != nil {
				return nil, err
			}
			if item == nil {
				break
			}
			array = append(array, *item)
			if !b.eat(tOp, ",") {
				break
			}
		}
		if !b.eat(tOp, "]") {
			return nil, fmt.Errorf("] expected, got %s", b.peek())
		}
		return &Value{Type: Array, Data: array}, nil
	}
	if b.eat(tOp, "(") {
		e, err := readExpression(b)
		if err != nil {
			return nil, err
		}
		if !b.eat(tOp, ")") {
			return nil, fmt.Errorf(") expected, got %s", b.peek())
		}
		return e, nil
	}

	name1, err := b.next()
	if err != nil {
		return nil, err
	}
	if name1.t != tIdentifier {
		return nil, fmt.Errorf("identifier expected, got %s", name1)
	}

	if b.peek().t == tOp && b.peek().val == "(" && isAggregate(name1.val) {
		b.next()
		args := []expression{}
		if b.eat(tOp, "*") {
			args = append(args, &star{})
		} else {
			args, err = readArgs(b)
			if err != nil {
				return nil, err
			}
		}
		if !b.eat(tOp, ")") {
			return nil, fmt.Errorf(") expected after %s arguments, got %s", name1.val, b.peek())
		}
		return &aggregate{name1.val, args}, nil
	}

	if b.eat(tOp, "(") {
		args, err := readArgs(b)
		if err != nil {
			return nil, err
		}
		if !b.eat(tOp, ")") {
			return nil, fmt.Errorf(") expected, got %s", b.peek())
		}
		return &functionkek{name1.val, args}, nil
	}

	if b.eat(tOp, ".") {
		name2, err := b.next()
		if err != nil {
			return nil, err
		}
		if name2.t != tIdentifier {
			return nil, fmt.Errorf("identifier expected, got %s", name2)
		}
		return &columnRef{name1.val, name2.val}, nil
	}

	return &columnRef{"", name1.val}, nil
}

func readArgs(b *tokenizer) ([]expression, error) {
	args := []expression{}
	if b.peek().t == tOp && b.peek().val == ")" {
		return args, nil
	}
	for {
		e, err := readExpression(b)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if !b.eat(tOp, ",") {
			break
		}
	}
	return args, nil
}

func readScalar(b *tokenizer) (*Value, error) {
	if b.peek().t == tString {
		s, err := b.next()
		if err != nil {
			return nil, err
		}
		return &Value{Type: String, Data: s.val}, nil
	}
	if b.peek().t == tNumber {
		s, err := b.next()
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(s.val)
		if err != nil {
			return nil, err
		}
		return &Value{Type: Int, Data: n}, nil
	}
	return nil, nil
}
