// Package token normalizes text for the bookmark indices: query terms,
// derived keyword lists, and domain extraction.
package token

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/kljensen/snowball"
)

const (
	minTokenLen = 2
	maxTokenLen = 50
)

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// Terms splits a search query on whitespace into lower-cased terms.
// Empty and whitespace-only queries yield nil.
func Terms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Words extracts normalized word tokens from free text: lower-cased,
// split on non-alphanumerics, stopwords and degenerate tokens dropped.
func Words(text string) []string {
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, "-", " ")
	text = strings.ReplaceAll(text, "_", " ")

	var tokens []string
	for _, w := range wordRe.FindAllString(text, -1) {
		if len(w) < minTokenLen || len(w) > maxTokenLen {
			continue
		}
		if stopWords[w] {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// Keywords derives the deduplicated keyword list for a bookmark from its
// title, URL and domain. Each surviving token is indexed both as-is and as
// its snowball stem, so "running" matches a "run" query prefix.
func Keywords(title, rawURL, domain string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(w string) {
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	for _, src := range []string{title, urlWords(rawURL), domain} {
		for _, w := range Words(src) {
			add(w)
			if stem := Stem(w); stem != w {
				add(stem)
			}
		}
	}
	return out
}

// Stem reduces a word to its snowball stem; on failure the word is returned
// unchanged.
func Stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil {
		return word
	}
	return stemmed
}

// Domain extracts the registrable host of a URL, lower-cased, with a
// leading "www." stripped. Returns "" for unparseable or host-less URLs.
func Domain(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// urlWords strips scheme and query noise so path segments tokenize cleanly.
func urlWords(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname() + " " + u.Path
}
