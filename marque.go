// Package marque is an embedded bookmark store and search engine: a
// single-writer, multi-index, document-oriented store over SQLite that
// ingests hierarchy-annotated bookmark trees, maintains derived indices
// (paths, domains, keywords, freshness-weighted crawl metadata), answers
// ranked multi-term queries and performs batched mutation with retry and
// progress reporting.
//
// The Engine is an explicit, dependency-injected handle: construct one with
// Open and pass it to callers. One logical connection per database; Open is
// idempotent and Close tears the handle down for good.
//
//	eng, err := marque.Open(ctx, marque.Config{Path: "bookmarks.db"})
//	defer eng.Close()
package marque

import (
	"context"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/marque/dbopen"
	"github.com/hazyhaar/marque/internal/search"
	"github.com/hazyhaar/marque/internal/store"
)

// Re-exported store and search types; the internal packages stay private.
type (
	Bookmark           = store.Bookmark
	GlobalStats        = store.GlobalStats
	Setting            = store.Setting
	SearchHistoryEntry = store.SearchHistoryEntry
	CrawlMetadata      = store.CrawlMetadata
	DatabaseStats      = store.DatabaseStats
	Health             = store.Health
	BatchOptions       = store.BatchOptions
	BatchSummary       = store.BatchSummary

	SearchOptions = search.Options
	SearchResult  = search.Result
	SortMode      = search.SortMode
)

// Sort modes for SearchOptions.SortBy.
const (
	SortRelevance  = search.SortRelevance
	SortTitle      = search.SortTitle
	SortDateAdded  = search.SortDateAdded
	SortVisitCount = search.SortVisitCount
)

// Engine is the one logical connection to a bookmark database.
type Engine struct {
	cfg Config
	mgr *store.Manager
	srv *search.Engine
}

// Open opens (or creates) the database at cfg.Path, reconciles the schema
// and returns a ready Engine. Concurrent opens of the same Engine are
// coalesced by the underlying manager.
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	cfg.defaults()

	opts := []dbopen.Option{
		dbopen.WithBusyTimeout(cfg.BusyTimeoutMs),
		dbopen.WithMkdirAll(),
	}
	if cfg.CacheSizeKiB > 0 {
		opts = append(opts, dbopen.WithCacheSize(-cfg.CacheSizeKiB))
	}

	mgr := store.NewManager(cfg.Path, store.DefaultCatalog(), opts...)
	st, err := mgr.Open(ctx)
	if err != nil {
		return nil, err
	}

	sopts := []search.EngineOption{search.WithCandidateCap(cfg.Search.CandidateCap)}
	if cfg.Search.DisableHistory {
		sopts = append(sopts, search.WithoutHistory())
	}

	return &Engine{
		cfg: cfg,
		mgr: mgr,
		srv: search.New(st, sopts...),
	}, nil
}

// Close closes the connection; afterwards every operation fails with a
// NotInitialized fault. Close is idempotent.
func (e *Engine) Close() error { return e.mgr.Close() }

// Search runs a ranked multi-term query.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	return e.srv.Search(ctx, query, opts)
}

// GetByID returns a bookmark, or nil when absent.
func (e *Engine) GetByID(ctx context.Context, id string) (*Bookmark, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return nil, err
	}
	return st.GetByID(ctx, id)
}

// GetAll returns bookmarks in id order; limit <= 0 means unbounded.
func (e *Engine) GetAll(ctx context.Context, limit, offset int) ([]*Bookmark, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return nil, err
	}
	return st.GetAll(ctx, limit, offset)
}

// GetChildren lists a folder's direct children in sibling order.
func (e *Engine) GetChildren(ctx context.Context, parentID string, offset, limit int) ([]*Bookmark, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return nil, err
	}
	return st.GetChildren(ctx, parentID, offset, limit)
}

// Insert writes one bookmark.
func (e *Engine) Insert(ctx context.Context, b *Bookmark) error {
	st, err := e.mgr.Store()
	if err != nil {
		return err
	}
	return st.Insert(ctx, b)
}

// Update replaces one stored bookmark wholesale.
func (e *Engine) Update(ctx context.Context, b *Bookmark) error {
	st, err := e.mgr.Store()
	if err != nil {
		return err
	}
	return st.Update(ctx, b)
}

// Delete removes one bookmark.
func (e *Engine) Delete(ctx context.Context, id string) error {
	st, err := e.mgr.Store()
	if err != nil {
		return err
	}
	return st.Delete(ctx, id)
}

// ClearAll empties the bookmark store.
func (e *Engine) ClearAll(ctx context.Context) error {
	st, err := e.mgr.Store()
	if err != nil {
		return err
	}
	return st.ClearAll(ctx)
}

// InsertMany bulk-inserts records in sized, retried transaction chunks.
func (e *Engine) InsertMany(ctx context.Context, records []*Bookmark, opts BatchOptions) (BatchSummary, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return BatchSummary{Total: len(records)}, err
	}
	e.applyBatchDefaults(&opts)
	return st.InsertMany(ctx, records, opts)
}

// UpdateMany bulk-updates records.
func (e *Engine) UpdateMany(ctx context.Context, records []*Bookmark, opts BatchOptions) (BatchSummary, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return BatchSummary{Total: len(records)}, err
	}
	e.applyBatchDefaults(&opts)
	return st.UpdateMany(ctx, records, opts)
}

// DeleteMany bulk-deletes by id.
func (e *Engine) DeleteMany(ctx context.Context, ids []string, opts BatchOptions) (BatchSummary, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return BatchSummary{Total: len(ids)}, err
	}
	e.applyBatchDefaults(&opts)
	return st.DeleteMany(ctx, ids, opts)
}

func (e *Engine) applyBatchDefaults(opts *BatchOptions) {
	if opts.BatchSize == 0 && e.cfg.Batch.Size > 0 {
		opts.BatchSize = e.cfg.Batch.Size
	}
}

// SaveCrawlMetadata merges externally crawled page metadata and refreshes
// the bookmark's freshness-weighted search fields in one transaction.
func (e *Engine) SaveCrawlMetadata(ctx context.Context, m *CrawlMetadata) error {
	st, err := e.mgr.Store()
	if err != nil {
		return err
	}
	return st.SaveCrawlMetadata(ctx, m)
}

// GetCrawlMetadata returns the stored crawl row for a bookmark, or nil.
func (e *Engine) GetCrawlMetadata(ctx context.Context, bookmarkID string) (*CrawlMetadata, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return nil, err
	}
	return st.GetCrawlMetadata(ctx, bookmarkID)
}

// ComputeGlobalStats rescans the corpus and replaces the stats singleton.
func (e *Engine) ComputeGlobalStats(ctx context.Context) (*GlobalStats, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return nil, err
	}
	return st.ComputeGlobalStats(ctx)
}

// GetGlobalStats returns the last computed aggregate, or nil.
func (e *Engine) GetGlobalStats(ctx context.Context) (*GlobalStats, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return nil, err
	}
	return st.GetGlobalStats(ctx)
}

// GetDatabaseStats reports per-store counts and a byte-size estimate.
func (e *Engine) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return nil, err
	}
	return st.DatabaseStats(ctx)
}

// CheckHealth pings the engine and every logical store.
func (e *Engine) CheckHealth(ctx context.Context) *Health {
	st, err := e.mgr.Store()
	if err != nil {
		return &Health{Error: err.Error()}
	}
	return st.CheckHealth(ctx)
}

// RecentSearches returns search history, newest first.
func (e *Engine) RecentSearches(ctx context.Context, limit int) ([]SearchHistoryEntry, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return nil, err
	}
	return st.RecentSearches(ctx, limit)
}

// ClearHistory empties the search history store.
func (e *Engine) ClearHistory(ctx context.Context) error {
	st, err := e.mgr.Store()
	if err != nil {
		return err
	}
	return st.ClearHistory(ctx)
}

// SetSetting stores a configuration value with its recorded kind.
func (e *Engine) SetSetting(ctx context.Context, key string, value any) error {
	st, err := e.mgr.Store()
	if err != nil {
		return err
	}
	return st.SetSetting(ctx, key, value)
}

// GetSetting returns a stored setting, or nil.
func (e *Engine) GetSetting(ctx context.Context, key string) (*Setting, error) {
	st, err := e.mgr.Store()
	if err != nil {
		return nil, err
	}
	return st.GetSetting(ctx, key)
}

// DeleteSetting removes a setting.
func (e *Engine) DeleteSetting(ctx context.Context, key string) error {
	st, err := e.mgr.Store()
	if err != nil {
		return err
	}
	return st.DeleteSetting(ctx, key)
}
