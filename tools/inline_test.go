package tools

import (
	"strings"
	"testing"
)

func TestInline(t *testing.T) {
	input := `
I like %inline("tacos"), and
I also like %inline ("queso").
Both are delicious.
`
	want := `
I like TACOS, and
I also like QUESO.
Both are delicious.
`

	find := func(name string) ([]byte, error) {
		return []byte(strings.ToUpper(name)), nil
	}

	got, err := Inline([]byte(input), find)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Fatalf("got %s", got)
	}
}

func TestReadAllWithInlines(t *testing.T) {
	got, err := ReadAllWithInlines(strings.NewReader(`source: '%inline("double.js")'`), "testdata")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `source: 'return 2 * _.args[0];'` {
		t.Fatal(string(got))
	}

	if _, err = ReadAllWithInlines(strings.NewReader(`%inline("nope.js")`), "testdata"); err == nil {
		t.Fatal("didn't protest")
	}
}
