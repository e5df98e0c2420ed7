package sql

import (
	"fmt"
	"strings"
)

// Alphabetical list of functions http://dev.cs.ovgu.de/db/sybase9/help/dbrfen9/00000123.htm

func function(name string, args []Value) (Value, error) {
	switch strings.ToLower(name) {
	// array_contains(array, item)
	case "array_contains":
		if len(args) != 2 {
			return Value{}, fmt.Errorf("the %s function expects 2 arguments", strings.ToUpper(name))
		}
		array, err := arrayArg(name, args[0])
		if err != nil {
			return Value{}, err
		}
		item := args[1]
		for _, x := range array {
			e, err := x.Eq(item)
			if err != nil {
				return Value{Type: Bool, Data: false}, err
			}
			if e {
				return Value{Type: Bool, Data: true}, nil
			}
		}
		return Value{Type: Bool, Data: false}, nil

	// cardinality(array)
	case "cardinality":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("the %s function expects 1 argument", strings.ToUpper(name))
		}
		array, err := arrayArg(name, args[0])
		if err != nil {
			return Value{}, err
		}
		return Value{Type: Int, Data: len(array)}, nil

	// coalesce(a, b, ...)
	case "coalesce":
		for _, a := range args {
			if !a.IsNull() {
				return a, nil
			}
		}
		return Value{}, nil

	// lower(string), upper(string)
	case "lower", "upper":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("the %s function expects 1 argument", strings.ToUpper(name))
		}
		if args[0].IsNull() {
			return Value{Type: String}, nil
		}
		s, ok := args[0].Data.(string)
		if !ok {
			return Value{}, fmt.Errorf("the %s function expects a string", strings.ToUpper(name))
		}
		if strings.ToLower(name) == "lower" {
			return Value{Type: String, Data: strings.ToLower(s)}, nil
		}
		return Value{Type: String, Data: strings.ToUpper(s)}, nil

	// substring(string, start)
	// substring(string, start, b)
	case "substring":
		if len(args) != 2 && len(args) != 3 {
			return Value{}, fmt.Errorf("the %s function expects 2 or 3 arguments", strings.ToUpper(name))
		}
		str, ok := args[0].Data.(string)
		if !ok {
			return Value{}, fmt.Errorf("the %s function expects a string", strings.ToUpper(name))
		}
		value := []rune(str)
		norm := func(arg Value) (int, error) {
			x, ok := arg.Data.(int)
			if !ok {
				return 0, fmt.Errorf("the %s function's start and length arguments must be integers", strings.ToUpper(name))
			}
			switch {
			case x > 0:
				return x - 1, nil
			case x < 0:
				return x + len(value), nil
			default:
				return x, fmt.Errorf("the %s function's start and length arguments are 1-based, not 0-based", strings.ToUpper(name))
			}
		}
		start, err := norm(args[1])
		if err != nil {
			return Value{}, err
		}
		end := len(value) - 1
		if len(args) == 3 {
			end, err = norm(args[2])
			if err != nil {
				return Value{}, err
			}
		}
		if end < start {
			end, start = start, end
		}
		if start < 0 || end >= len(value) {
			return Value{}, fmt.Errorf("the %s function's arguments are out of range", strings.ToUpper(name))
		}
		return Value{Type: String, Data: string(value[start : end+1])}, nil
	default:
		return Value{}, fmt.Errorf("unknown function %s", name)
	}
}

func arrayArg(name string, v Value) ([]Value, error) {
	array, ok := v.Data.([]Value)
	if !ok {
		return nil, fmt.Errorf("the %s function expects an array", strings.ToUpper(name))
	}
	return array, nil
}
