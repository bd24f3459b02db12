package command

import (
	"reflect"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{in: "Create a NEW slide!", want: []string{"create", "a", "new", "slide"}},
		{in: "Insert picture from logo.png", want: []string{"insert", "image", "from", "logo.png"}},
		{in: "delete page twenty-three", want: []string{"delete", "slide", "23"}},
		{in: "go to slide forty two", want: []string{"go", "to", "slide", "42"}},
		{in: "Résumé slide", want: []string{"resume", "slide"}},
		{in: "the slide's title", want: []string{"the", "slide", "title"}},
		{in: "add a graph, please.", want: []string{"add", "a", "chart", "please"}},
		{in: "slide twenty first", want: []string{"slide", "20", "first"}},
	}
	for _, tc := range cases {
		got := Normalize(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n", "?!..."} {
		got := Normalize(in)
		if got == nil || len(got) != 0 {
			t.Fatalf("Normalize(%q) = %#v, want empty non-nil slice", in, got)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Create a new slide with title Introduction",
		"delete the twenty-first page",
		"Insert photo from C:\\decks\\logo.png",
		"change background to Light Blue!!",
		"save as Q3 review... now",
		"twenty 1 slides",
		"go to slide fifty",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(strings.Join(once, " "))
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
