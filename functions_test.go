package sql

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFunctions(t *testing.T) {
	engine := New(map[string]Table{})
	cases := []struct {
		expr   string
		result any
	}{
		{`SUBSTRING( 'back yard',1 ,4 )`, Value{Type: String, Data: "back"}},
		{`SUBSTRING( 'back yard', -1 , -4 )`, Value{Type: String, Data: "yard"}},
		{`SUBSTRING( 'back yard', 6 )`, Value{Type: String, Data: "yard"}},
		{`CARDINALITY(ARRAY[1, 2, 3])`, Value{Type: Int, Data: 3}},
		{`array_contains(array[1,2,3], 2)`, Value{Type: Bool, Data: true}},
		{`array_contains(array[1,2,3], 4)`, Value{Type: Bool, Data: false}},
		{`coalesce(null, 'x')`, Value{Type: String, Data: "x"}},
		{`upper('abc')`, Value{Type: String, Data: "ABC"}},
		{`lower('AbC')`, Value{Type: String, Data: "abc"}},
		{`1 = 1`, Value{Type: Bool, Data: true}},
		{`1 <> 1`, Value{Type: Bool, Data: false}},
		{`2 <= 1`, Value{Type: Bool, Data: false}},
		{`null = 1`, Value{Type: Bool}},
		{`null is null`, Value{Type: Bool, Data: true}},
		{`1 is not null`, Value{Type: Bool, Data: true}},
		{`false or null`, Value{Type: Bool}},
		{`true or null`, Value{Type: Bool, Data: true}},
		{`false and null`, Value{Type: Bool, Data: false}},
		{`not (1 = 2)`, Value{Type: Bool, Data: true}},
	}
	for _, c := range cases {
		t.Run(c.expr, func(t *testing.T) {
			r, err := engine.ExecString(`select ` + c.expr)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(r[0][0].Data, c.result); diff != "" {
				t.Fatalf(`%s`, diff)
			}
		})
	}
}

func TestFunctionErrors(t *testing.T) {
	cases := []struct {
		name string
		args []Value
		err  string
	}{
		{"nope", nil, "unknown function nope"},
		{"cardinality", []Value{{Type: Int, Data: 1}}, "the CARDINALITY function expects an array"},
		{"substring", []Value{{Type: String, Data: "abc"}, {Type: Int, Data: 0}}, "the SUBSTRING function's start and length arguments are 1-based, not 0-based"},
		{"substring", []Value{{Type: String, Data: "abc"}, {Type: Int, Data: 5}}, "the SUBSTRING function's arguments are out of range"},
	}
	for _, c := range cases {
		t.Run(c.err, func(t *testing.T) {
			_, err := function(c.name, c.args)
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if diff := cmp.Diff(c.err, err.Error()); diff != "" {
				t.Fatalf("%s", diff)
			}
		})
	}
}
