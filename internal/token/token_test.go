package token

import (
	"reflect"
	"testing"
)

func TestTerms(t *testing.T) {
	cases := []struct {
		query string
		want  []string
	}{
		{"", nil},
		{"   \t ", nil},
		{"Git", []string{"git"}},
		{"GitHub  Actions", []string{"github", "actions"}},
		{" a B  c ", []string{"a", "b", "c"}},
	}
	for _, c := range cases {
		if got := Terms(c.query); !reflect.DeepEqual(got, c.want) {
			t.Errorf("Terms(%q) = %v, want %v", c.query, got, c.want)
		}
	}
}

func TestWords(t *testing.T) {
	got := Words("The Go Programming-Language, 2nd edition!")
	want := []string{"go", "programming", "language", "2nd", "edition"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Words = %v, want %v", got, want)
	}
}

func TestWordsDropsStopwordsAndShortTokens(t *testing.T) {
	for _, w := range Words("a the of x https") {
		if w == "a" || w == "the" || w == "of" || w == "x" || w == "https" {
			t.Errorf("token %q should have been dropped", w)
		}
	}
}

func TestKeywordsDeduplicates(t *testing.T) {
	kws := Keywords("GitHub GitHub", "https://github.com/github", "github.com")
	seen := make(map[string]int)
	for _, k := range kws {
		seen[k]++
		if seen[k] > 1 {
			t.Fatalf("keyword %q appears twice in %v", k, kws)
		}
	}
	if seen["github"] != 1 {
		t.Fatalf("expected github in %v", kws)
	}
}

func TestKeywordsIncludeStems(t *testing.T) {
	kws := Keywords("Running tips", "", "")
	var hasRaw, hasStem bool
	for _, k := range kws {
		if k == "running" {
			hasRaw = true
		}
		if k == "run" {
			hasStem = true
		}
	}
	if !hasRaw || !hasStem {
		t.Fatalf("want both raw and stemmed token, got %v", kws)
	}
}

func TestDomain(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://github.com/golang/go", "github.com"},
		{"https://www.example.org/page?q=1", "example.org"},
		{"http://Sub.Example.COM:8080/x", "sub.example.com"},
		{"", ""},
		{"not a url", ""},
	}
	for _, c := range cases {
		if got := Domain(c.url); got != c.want {
			t.Errorf("Domain(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}
