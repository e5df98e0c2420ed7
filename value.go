package sql

import "github.com/gaswelder/blendsql/value"

type Value = value.Value

type ValueTypeID = value.TypeID

const (
	String = value.String
	Int    = value.Int
	Double = value.Double
	Bool   = value.Bool
	Array  = value.Array
	JSON   = value.JSON
)

func truthy(v Value) bool {
	b, ok := v.Data.(bool)
	return ok && b
}
