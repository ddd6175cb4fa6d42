package search

import (
	"strings"

	"github.com/hazyhaar/marque/internal/store"
)

// Base field weights. A title the term starts with outranks a mere
// substring hit; URL beats domain; metadata contributions are scaled by the
// record's freshness boost so stale or failed crawls count less; keyword
// and tag list hits rank lowest.
const (
	weightTitlePrefix     = 10.0
	weightTitleContains   = 5.0
	weightURLContains     = 3.0
	weightDomainContains  = 2.0
	weightMetaTitle       = 4.0
	weightMetaKeywords    = 2.5
	weightMetaDescription = 1.5
	weightKeywordList     = 1.5
	weightTagList         = 1.0
)

// scoreBookmark sums per-term contributions across all enabled fields.
// ok is false when the total does not exceed opts.MinScore.
func scoreBookmark(b *store.Bookmark, terms []string, opts Options) (Result, bool) {
	boost := b.MetadataBoost
	if boost <= 0 {
		boost = 1.0
	}

	var total float64
	h := newHits()

	for _, term := range terms {
		if b.TitleLower != "" {
			if strings.HasPrefix(b.TitleLower, term) {
				total += weightTitlePrefix
				h.add("title", term)
			} else if strings.Contains(b.TitleLower, term) {
				total += weightTitleContains
				h.add("title", term)
			}
		}
		if opts.IncludeURL && b.URLLower != "" && strings.Contains(b.URLLower, term) {
			total += weightURLContains
			h.add("url", term)
		}
		if opts.IncludeDomain && b.Domain != "" && strings.Contains(b.Domain, term) {
			total += weightDomainContains
			h.add("domain", term)
		}

		if b.MetaTitleLower != "" && strings.Contains(b.MetaTitleLower, term) {
			total += weightMetaTitle * boost
			h.add("metaTitle", term)
		}
		if len(b.MetaKeywords) > 0 && listContains(b.MetaKeywords, term) {
			total += weightMetaKeywords * boost
			h.add("metaKeywords", term)
		}
		if b.MetaDescription != "" && strings.Contains(b.MetaDescription, term) {
			total += weightMetaDescription * boost
			h.add("metaDescription", term)
		}

		if opts.IncludeKeywords && listContains(b.Keywords, term) {
			total += weightKeywordList
			h.add("keywords", term)
		}
		if opts.IncludeTags && listContainsFold(b.Tags, term) {
			total += weightTagList
			h.add("tags", term)
		}
	}

	if total <= opts.MinScore {
		return Result{}, false
	}
	return Result{
		Bookmark:      b,
		Score:         total,
		MatchedFields: h.fields,
		Highlights:    h.highlights,
	}, true
}

// listContains reports whether any already-lowercased list entry contains
// term as a substring.
func listContains(list []string, term string) bool {
	for _, v := range list {
		if strings.Contains(v, term) {
			return true
		}
	}
	return false
}

// listContainsFold is listContains for lists that may carry mixed case
// (user tags).
func listContainsFold(list []string, term string) bool {
	for _, v := range list {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// hits accumulates matched field names (deduplicated, insertion order) and
// the literal matched terms per field.
type hits struct {
	fields     []string
	highlights map[string][]string
	seen       map[string]bool
}

func newHits() *hits {
	return &hits{
		highlights: make(map[string][]string),
		seen:       make(map[string]bool),
	}
}

func (h *hits) add(field, term string) {
	if !h.seen[field] {
		h.seen[field] = true
		h.fields = append(h.fields, field)
	}
	for _, t := range h.highlights[field] {
		if t == term {
			return
		}
	}
	h.highlights[field] = append(h.highlights[field], term)
}
