package sql

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testTables(t *testing.T) map[string]Table {
	cars, err := ReadJSONTable("testdata/cars.json")
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Table{
		"cars": cars,
		"t1": TableFromMaps([]map[string]Value{
			{"id": {Type: Int, Data: 1}, "name": {Type: String, Data: "one"}},
			{"id": {Type: Int, Data: 2}, "name": {Type: String, Data: "'"}},
			{"id": {Type: Int, Data: 3}, "name": {Type: String, Data: "three"}},
		}),
		"t2": TableFromMaps([]map[string]Value{
			{"bucket": {Type: Int, Data: 1}},
			{"bucket": {Type: Int, Data: 2}},
			{"bucket": {Type: Int, Data: 2}},
		}),
		"t3": TableFromMaps([]map[string]Value{
			{"x": {Type: Int, Data: 1}},
			{"x": {Type: Int, Data: 2}},
		}),
		"t5": TableFromMaps([]map[string]Value{
			{"id": {Type: Int, Data: 10}, "ref": {Type: Int, Data: 1}},
			{"id": {Type: Int, Data: 30}, "ref": {Type: Int, Data: 3}},
		}),
		"a-b": TableFromMaps([]map[string]Value{
			{"x": {Type: Int, Data: 1}},
		}),
	}
}

func TestQueries(t *testing.T) {
	mp := func(rr []map[string]any) string {
		sb := strings.Builder{}
		for _, r := range rr {
			i := 0
			for k, v := range r {
				if i > 0 {
					sb.WriteString(", ")
				}
				i++
				sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			}
			sb.WriteByte('\n')
		}
		return sb.String()
	}

	engine := New(testTables(t))
	check := func(name, query string, want []map[string]any) {
		t.Run(name, func(t *testing.T) {
			r, err := engine.ExecString(query)
			if err != nil {
				fmt.Println("query: " + query)
				t.Fatal(err)
			}
			diff := cmp.Diff(rowsAsJSON(r), want)
			if diff != "" {
				fmt.Printf("query:\n%s\n\nwant:\n%s\ngot:\n%s\n", query, mp(want), formatRows(r))
				t.Fatalf("%s", diff)
			}
		})
	}

	check("simplest projection", `select name from cars`, []map[string]any{
		{"\"name\"": "BMW Z4 Roadster (II)"},
		{"\"name\"": "Cadillac SRX"},
		{"\"name\"": "Kia Soul"},
	})
	check("quotted field name", `select id, "name" from t1`, []map[string]any{
		{"\"id\"": 1, "\"name\"": "one"},
		{"\"id\"": 2, "\"name\"": "'"},
		{"\"id\"": 3, "\"name\"": "three"},
	})
	check("case-insensitive table names", `select id, T1.name from T1`, []map[string]any{
		{`"id"`: 1, `"T1"."name"`: "one"},
		{`"id"`: 2, `"T1"."name"`: "'"},
		{`"id"`: 3, `"T1"."name"`: "three"},
	})
	check("simplest filter", `select id from t1 where name = '\''`, []map[string]any{
		{"\"id\"": 2},
	})
	check("simplest count", `select count(*) from t1`, []map[string]any{
		{"count(*)": 3},
	})
	check("count on empty input", `select count(*) from t1 where id > 100`, []map[string]any{
		{"count(*)": 0},
	})
	check("simplest order", `select id from t1 order by id desc`, []map[string]any{
		{"\"id\"": 3},
		{"\"id\"": 2},
		{"\"id\"": 1},
	})
	check("order with limit", `select id from t1 order by "id" desc limit 1`, []map[string]any{
		{`"id"`: 3},
	})
	check("simplest star", `select * from t1`, []map[string]any{
		{`id`: 1, `name`: "one"},
		{`id`: 2, `name`: "'"},
		{`id`: 3, `name`: "three"},
	})
	check("star with join", `select * from t1 join t2 on id = bucket`, []map[string]any{
		{`id`: 1, `name`: "one", `bucket`: 1},
		{`id`: 2, `name`: "'", `bucket`: 2},
		{`id`: 2, `name`: "'", `bucket`: 2},
	})
	check("funky table name", `select * from "a-b"`, []map[string]any{
		{`x`: 1},
	})
	check("bare select", `select 1`, []map[string]any{
		{"1": 1},
	})
	check("group", `select bucket, count(*) from t2 group by bucket order by count(*) desc`, []map[string]any{
		{`"bucket"`: 2, "count(*)": 2},
		{`"bucket"`: 1, "count(*)": 1},
	})
	check("limit", `select bucket from t2 limit 2`, []map[string]any{
		{`"bucket"`: 1},
		{`"bucket"`: 2},
	})
	check("min", `select year, min(price) from cars group by year`, []map[string]any{
		{`"year"`: 2009, `min("price")`: 30000},
		{`"year"`: 2005, `min("price")`: 69000},
	})
	check("max", `select year, max(price) from cars group by year`, []map[string]any{
		{`"year"`: 2009, `max("price")`: 50000},
		{`"year"`: 2005, `max("price")`: 69000},
	})
	check("join on a function", `select bucket, x from t2 join t3 on array_contains(array[1,2,3], 1)`, []map[string]any{
		{"\"bucket\"": 1, `"x"`: 1},
		{"\"bucket\"": 1, `"x"`: 2},
		{"\"bucket\"": 2, `"x"`: 1},
		{"\"bucket\"": 2, `"x"`: 2},
		{"\"bucket\"": 2, `"x"`: 1},
		{"\"bucket\"": 2, `"x"`: 2},
	})
	check("order by count", `select "bucket", count(*) from t2 group by "bucket" order by count(*) desc limit 1`, []map[string]any{
		{`"bucket"`: 2, "count(*)": 2},
	})
	check("simplest alias", `select "bucket" as b from t2`, []map[string]any{
		{`b`: 1},
		{`b`: 2},
		{`b`: 2},
	})
	check("nulls last asc", `select name, weight from cars order by weight`, []map[string]any{
		{`"name"`: "Cadillac SRX", `"weight"`: 1950},
		{`"name"`: "BMW Z4 Roadster (II)", `"weight"`: nil},
		{`"name"`: "Kia Soul", `"weight"`: nil},
	})
	check("nulls last desc", `select name, weight from cars order by weight desc`, []map[string]any{
		{`"name"`: "Cadillac SRX", `"weight"`: 1950},
		{`"name"`: "BMW Z4 Roadster (II)", `"weight"`: nil},
		{`"name"`: "Kia Soul", `"weight"`: nil},
	})
	check("filter", `select year from cars where year < 2009`, []map[string]any{
		{`"year"`: 2005},
	})
	check("filter with nulls", `select name from cars where weight < 2000`, []map[string]any{
		{`"name"`: "Cadillac SRX"},
	})
	check("and, not", `select id from t1 where id > 1 and not name = 'three'`, []map[string]any{
		{`"id"`: 2},
	})
	check("or", `select id from t1 where id = 1 or id >= 3`, []map[string]any{
		{`"id"`: 1},
		{`"id"`: 3},
	})

	// Name resolution across joined tables.
	check("first table wins unqualified names", `select id, t5.id from t1 join t5 on t1.id = ref`, []map[string]any{
		{`"id"`: 1, `"t5"."id"`: 10},
		{`"id"`: 3, `"t5"."id"`: 30},
	})
	check("left join", `select name, t5.id from t1 left join t5 on t1.id = ref`, []map[string]any{
		{`"name"`: "one", `"t5"."id"`: 10},
		{`"name"`: "'", `"t5"."id"`: nil},
		{`"name"`: "three", `"t5"."id"`: 30},
	})
	check("left join missing side is null", `select name from t1 left outer join t5 on t1.id = ref where t5.id is null`, []map[string]any{
		{`"name"`: "'"},
	})
	check("left join unique column", `select id, coalesce(ref, 0) as ref from t1 left join t5 on t1.id = ref`, []map[string]any{
		{`"id"`: 1, `ref`: 1},
		{`"id"`: 2, `ref`: 0},
		{`"id"`: 3, `ref`: 3},
	})
	check("self join with aliases", `select a.name, b.id from t1 a join t1 as b on a.id = b.id where b.id = 3`, []map[string]any{
		{`"a"."name"`: "three", `"b"."id"`: 3},
	})

	// Correlated subqueries see the enclosing row, but their own tables
	// shadow it.
	check("exists, shadowed by the subquery", `select name from t1 where exists (select ref from t5 where ref = id)`, nil)
	check("exists, qualified", `select name from t1 where exists (select ref from t5 where ref = t1.id)`, []map[string]any{
		{`"name"`: "one"},
		{`"name"`: "three"},
	})
	check("in", `select name from t1 where id in (select ref from t5)`, []map[string]any{
		{`"name"`: "one"},
		{`"name"`: "three"},
	})
	check("not in", `select name from t1 where id not in (select ref from t5)`, []map[string]any{
		{`"name"`: "'"},
	})
	check("correlated in", `select name from t1 x where 10 in (select t5.id from t5 where ref = x.id)`, []map[string]any{
		{`"name"`: "one"},
	})
}

func TestQueryErrors(t *testing.T) {
	engine := New(testTables(t))
	cases := []struct {
		query, err string
	}{
		{`select nope from t1`, `unknown column "nope"`},
		{`select x.id from t1`, `unknown table x in column reference "x"."id"`},
		{`select t1.ref from t1 join t5 on t1.id = ref`, `unknown column "t1"."ref"`},
		{`select * from t1 join t1 on id = id`, `duplicate table alias: t1`},
		{`select * from nope`, `could not resolve table name 'nope'`},
		{`select id, count(*) from t1`, `can't use field expressions with aggregations without group by`},
		{`select id from t1 where count(*) > 1`, `aggregate count(*) is not allowed here`},
		{`select *`, `* used without a FROM clause`},
		{`select name from t1 where id in (select ref, id from t5)`, `subquery in IN must select exactly one column, got 2`},
		{`select id from t1 where name = 1`, `failed to calculate filter condition: failed to evaluate "name" = 1: can't compare values of different types: String and Int`},
	}
	for _, c := range cases {
		t.Run(c.query, func(t *testing.T) {
			_, err := engine.ExecString(c.query)
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if diff := cmp.Diff(c.err, err.Error()); diff != "" {
				t.Fatalf("%s", diff)
			}
		})
	}
}

func TestParallelFilter(t *testing.T) {
	queries := []string{
		`select id from t1 where id > 1`,
		`select name from t1 where exists (select ref from t5 where ref = t1.id)`,
		`select name, t5.id from t1 left join t5 on t1.id = ref where t5.id is null or name = 'one'`,
	}
	serial := New(testTables(t))
	parallel := New(testTables(t), WithParallelism(4))
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			want, err := serial.ExecString(q)
			if err != nil {
				t.Fatal(err)
			}
			got, err := parallel.ExecString(q)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(rowsAsJSON(want), rowsAsJSON(got)); diff != "" {
				t.Fatalf("%s", diff)
			}
		})
	}
}

func TestJSONStream(t *testing.T) {
	f := strings.NewReader(`{"name": "a", "n": 1}
{"name": "b", "n": 2}
{"name": "c", "n": 3}`)
	engine := New(map[string]Table{"t": JSONStream(f)})
	r, err := engine.ExecString(`select name from t where n >= 2`)
	if err != nil {
		t.Fatal(err)
	}
	want := []map[string]any{
		{`"name"`: "b"},
		{`"name"`: "c"},
	}
	if diff := cmp.Diff(want, rowsAsJSON(r)); diff != "" {
		t.Fatalf("%s", diff)
	}
}

func TestJSONStreamReadTwice(t *testing.T) {
	stream := func() Table {
		return JSONStream(strings.NewReader(`{"ref": 3}
{"ref": 2}
{"ref": 1}`))
	}
	cases := []struct {
		query string
		want  []map[string]any
	}{
		{
			`select name from t1 where exists (select ref from s where ref = t1.id)`,
			[]map[string]any{{`"name"`: "one"}, {`"name"`: "'"}, {`"name"`: "three"}},
		},
		{
			`select name from t1 where id in (select ref from s where ref > 1)`,
			[]map[string]any{{`"name"`: "'"}, {`"name"`: "three"}},
		},
		{
			`select a.ref from s a join s b on a.ref = b.ref`,
			[]map[string]any{{`"a"."ref"`: 3}, {`"a"."ref"`: 2}, {`"a"."ref"`: 1}},
		},
	}
	for _, c := range cases {
		t.Run(c.query, func(t *testing.T) {
			tables := testTables(t)
			tables["s"] = stream()
			r, err := New(tables).ExecString(c.query)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(c.want, rowsAsJSON(r)); diff != "" {
				t.Fatalf("%s", diff)
			}
		})
	}
}

func TestJSONStreamTypes(t *testing.T) {
	f := strings.NewReader(`{"n": 1.5, "s": "a"}
{"n": 2, "s": 10}
{"n": null, "s": null}`)
	r, err := New(map[string]Table{"t": JSONStream(f)}).ExecString(`select n, s from t where s is not null`)
	if err != nil {
		t.Fatal(err)
	}
	want := []map[string]any{
		{`"n"`: 1.5, `"s"`: "a"},
		{`"n"`: 2.0, `"s"`: "10"},
	}
	if diff := cmp.Diff(want, rowsAsJSON(r)); diff != "" {
		t.Fatalf("%s", diff)
	}
}

func TestJSONStreamTypeMismatch(t *testing.T) {
	f := strings.NewReader(`{"n": 1}
{"n": 1.5}`)
	_, err := New(map[string]Table{"t": JSONStream(f)}).ExecString(`select n from t where n < 2`)
	if err == nil {
		t.Fatalf("expected an error, got nil")
	}
	want := "row 2: column n: can't store Double value in Int column"
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("got error %q, want it to contain %q", err, want)
	}
}

func rowsAsJSON(rr []Row) []map[string]any {
	var result []map[string]any
	for _, row := range rr {
		item := map[string]any{}
		for _, cell := range row {
			item[cell.Name] = cell.Data.Data
		}
		result = append(result, item)
	}
	return result
}
