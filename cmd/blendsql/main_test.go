package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd := newRootCmd(strings.NewReader(stdin), out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun(t *testing.T) {
	out, err := run(t, "", "-t", "cars=../../testdata/cars.json", `select name from cars where year < 2009`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("{\"\\\"name\\\"\":\"Cadillac SRX\"}\n", out); diff != "" {
		t.Fatalf("%s", diff)
	}
}

func TestRunJoinWithStdin(t *testing.T) {
	stdin := `{"year": 2009, "label": "new"}
{"year": 2005, "label": "old"}`
	out, err := run(t, stdin,
		"-t", "cars=../../testdata/cars.json",
		"-t", "labels=-",
		"-j", "2",
		`select c.name, l.label from cars c join labels l on c.year = l.year where l.label = 'old'`)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\"\\\"c\\\".\\\"name\\\"\":\"Cadillac SRX\",\"\\\"l\\\".\\\"label\\\"\":\"old\"}\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("%s", diff)
	}
}

func TestRunStreamFile(t *testing.T) {
	out, err := run(t, "", "-t", "cars=../../testdata/cars.jsonl", `select count(*) as n from cars where year = 2009`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("{\"n\":2}\n", out); diff != "" {
		t.Fatalf("%s", diff)
	}
}

func TestExplain(t *testing.T) {
	out, err := run(t, "", "-t", "cars=x.json", "--explain", `select name from cars`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("  SELECT \"name\"\n    FROM \"cars\"\n", out); diff != "" {
		t.Fatalf("%s", diff)
	}
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		args []string
		err  string
	}{
		{[]string{`select 1`}, "no tables configured"},
		{[]string{"-t", "bad", `select 1`}, `invalid table "bad", expected name=path`},
		{[]string{"-t", "cars=../../testdata/cars.json", `select nope from cars`}, `unknown column "nope"`},
		{[]string{"-t", "cars=../../testdata/cars.json", "-j", "0", `select 1`}, "parallelism must be at least 1, got 0"},
	}
	for _, c := range cases {
		t.Run(c.err, func(t *testing.T) {
			_, err := run(t, "", c.args...)
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if diff := cmp.Diff(c.err, err.Error()); diff != "" {
				t.Fatalf("%s", diff)
			}
		})
	}
}

func TestRowToJSONDuplicateNames(t *testing.T) {
	out, err := run(t, "", "-t", "cars=../../testdata/cars.json", `select year as y, price as y from cars limit 1`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("{\"y\":2009,\"y_1\":50000}\n", out); diff != "" {
		t.Fatalf("%s", diff)
	}
}
