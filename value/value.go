// Package value holds the data types rows are made of.
package value

import (
	"fmt"
	"strings"
)

type TypeID int

const (
	Undefined TypeID = iota
	String
	Int
	Double
	Bool
	Array
	JSON
)

// Value is a single piece of typed data. A nil Data is NULL.
type Value struct {
	Type TypeID
	Data any
}

// Null returns a NULL of the given type.
func Null(t TypeID) Value {
	return Value{t, nil}
}

// TypeFromName maps a type name used in casts to a type id.
func TypeFromName(s string) TypeID {
	switch strings.ToLower(s) {
	case "int", "integer":
		return Int
	case "double", "float":
		return Double
	case "string", "text", "varchar":
		return String
	case "bool", "boolean":
		return Bool
	}
	return Undefined
}

func TypeName(t TypeID) string {
	switch t {
	case Undefined:
		return "Undefined"
	case String:
		return "String"
	case Int:
		return "Int"
	case Double:
		return "Double"
	case Bool:
		return "Bool"
	case Array:
		return "Array"
	case JSON:
		return "JSON"
	default:
		panic(fmt.Errorf("unexpected value type: %d", t))
	}
}

func (v Value) String() string {
	if v.Data == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v.Data)
}

func (v Value) IsNull() bool {
	return v.Data == nil
}

// Eq reports whether two values are equal. NULL is equal to nothing.
func (a Value) Eq(b Value) (bool, error) {
	if a.IsNull() || b.IsNull() {
		return false, nil
	}
	if a.Type != b.Type {
		return false, fmt.Errorf("can't compare values of different types: %s and %s", TypeName(a.Type), TypeName(b.Type))
	}
	switch a.Type {
	case String, Int, Double, Bool:
		return a.Data == b.Data, nil
	default:
		return false, fmt.Errorf("eq: don't know how to compare values of type %s", TypeName(a.Type))
	}
}

func (a Value) LessThan(b Value) (bool, error) {
	if a.IsNull() || b.IsNull() {
		return false, nil
	}
	if a.Type != b.Type {
		return false, fmt.Errorf("can't compare values of different types: %s and %s", TypeName(a.Type), TypeName(b.Type))
	}
	switch a.Type {
	case Int:
		return a.Data.(int) < b.Data.(int), nil
	case Double:
		return a.Data.(float64) < b.Data.(float64), nil
	case String:
		return a.Data.(string) < b.Data.(string), nil
	default:
		return false, fmt.Errorf("lessThan: don't know how to compare values of type %s", TypeName(a.Type))
	}
}

func (a Value) GreaterThan(b Value) (bool, error) {
	if a.IsNull() || b.IsNull() {
		return false, nil
	}
	eq, err := a.Eq(b)
	if err != nil || eq {
		return false, err
	}
	lt, err := a.LessThan(b)
	return !lt, err
}
