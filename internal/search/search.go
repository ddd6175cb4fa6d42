// Package search implements the ranked multi-term query engine over the
// bookmark store: per-term index probes gather a bounded candidate set,
// scoring sums weighted field matches, and results come back sorted with
// highlighted match terms.
package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/hazyhaar/marque/internal/store"
	"github.com/hazyhaar/marque/internal/token"
)

// SortMode selects the result ordering.
type SortMode string

const (
	SortRelevance  SortMode = "relevance"
	SortTitle      SortMode = "title"
	SortDateAdded  SortMode = "dateAdded"
	SortVisitCount SortMode = "visitCount"
)

// Options tunes a single search call.
type Options struct {
	// Limit truncates the result set. Default 50.
	Limit int

	// SortBy selects the ordering. Default SortRelevance.
	SortBy SortMode

	// MinScore drops candidates whose total score does not exceed it.
	MinScore float64

	// Field toggles for candidate gathering and scoring.
	IncludeURL      bool
	IncludeDomain   bool
	IncludeKeywords bool
	IncludeTags     bool

	// Source names the originating surface for the history entry.
	Source string
}

const defaultLimit = 50

// Result is one ranked hit.
type Result struct {
	Bookmark      *store.Bookmark     `json:"bookmark"`
	Score         float64             `json:"score"`
	MatchedFields []string            `json:"matched_fields"`
	Highlights    map[string][]string `json:"highlights"`
}

// Engine runs searches against one Store.
type Engine struct {
	store        *store.Store
	candidateCap int
	logHistory   bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCandidateCap bounds how many candidates each per-term index probe may
// contribute. Keeps gathering sublinear on large corpora; the exact value
// is a tuning choice, determinism holds for any fixed cap.
func WithCandidateCap(n int) EngineOption {
	return func(e *Engine) { e.candidateCap = n }
}

// WithoutHistory disables the search-history side channel.
func WithoutHistory() EngineOption {
	return func(e *Engine) { e.logHistory = false }
}

// New creates a search engine over s.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:        s,
		candidateCap: 200,
		logHistory:   true,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Search tokenizes query, gathers index-backed candidates per term, scores
// and sorts them, and returns highlighted matches. An empty or
// whitespace-only query returns an empty slice without touching storage.
// For a fixed corpus snapshot the output is deterministic: scoring depends
// only on summed per-term contributions, never on gathering order.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	terms := token.Terms(query)
	if len(terms) == 0 {
		return []Result{}, nil
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	if opts.SortBy == "" {
		opts.SortBy = SortRelevance
	}
	start := time.Now()

	candidates, err := e.gather(ctx, terms, opts)
	if err != nil {
		return nil, err
	}

	var results []Result
	if len(candidates) > 0 {
		for _, b := range candidates {
			if r, ok := scoreBookmark(b, terms, opts); ok {
				results = append(results, r)
			}
		}
	} else {
		// No index prefix matched any term: bounded full-corpus scan,
		// scored term by term.
		err := e.store.ForEachBookmark(ctx, func(b *store.Bookmark) error {
			if r, ok := scoreBookmark(b, terms, opts); ok {
				results = append(results, r)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sortResults(results, opts.SortBy)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	e.record(ctx, query, len(results), time.Since(start), opts.Source)
	return results, nil
}

// gather probes the per-term indices and merges hits into one candidate set
// deduplicated by record id.
func (e *Engine) gather(ctx context.Context, terms []string, opts Options) (map[string]*store.Bookmark, error) {
	candidates := make(map[string]*store.Bookmark)
	merge := func(bs []*store.Bookmark, err error) error {
		if err != nil {
			return err
		}
		for _, b := range bs {
			candidates[b.ID] = b
		}
		return nil
	}

	for _, term := range terms {
		if err := merge(e.store.ProbeTitlePrefix(ctx, term, e.candidateCap)); err != nil {
			return nil, err
		}
		if opts.IncludeURL {
			if err := merge(e.store.ProbeURLPrefix(ctx, term, e.candidateCap)); err != nil {
				return nil, err
			}
		}
		if opts.IncludeDomain {
			if err := merge(e.store.ProbeDomainPrefix(ctx, term, e.candidateCap)); err != nil {
				return nil, err
			}
		}
		if opts.IncludeKeywords {
			if err := merge(e.store.ProbeKeyword(ctx, term, e.candidateCap)); err != nil {
				return nil, err
			}
		}
	}
	return candidates, nil
}

// record appends the search to history, best-effort: a failing history
// store never fails the search.
func (e *Engine) record(ctx context.Context, query string, count int, dur time.Duration, source string) {
	if !e.logHistory {
		return
	}
	err := e.store.AppendSearch(ctx, &store.SearchHistoryEntry{
		Query:       query,
		ResultCount: count,
		DurationMs:  dur.Milliseconds(),
		Source:      source,
	})
	if err != nil {
		slog.Debug("search history append failed", "error", err)
	}
}

func sortResults(results []Result, mode SortMode) {
	less := func(i, j int) bool {
		a, b := results[i], results[j]
		switch mode {
		case SortTitle:
			if a.Bookmark.TitleLower != b.Bookmark.TitleLower {
				return a.Bookmark.TitleLower < b.Bookmark.TitleLower
			}
		case SortDateAdded:
			if a.Bookmark.DateAdded != b.Bookmark.DateAdded {
				return a.Bookmark.DateAdded > b.Bookmark.DateAdded
			}
		case SortVisitCount:
			if a.Bookmark.VisitCount != b.Bookmark.VisitCount {
				return a.Bookmark.VisitCount > b.Bookmark.VisitCount
			}
		default: // SortRelevance
			if a.Score != b.Score {
				return a.Score > b.Score
			}
		}
		// Stable tie-break on id keeps output reproducible.
		return a.Bookmark.ID < b.Bookmark.ID
	}
	sort.Slice(results, less)
}
