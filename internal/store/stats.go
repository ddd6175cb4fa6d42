package store

import (
	"context"
	"database/sql"

	"github.com/hazyhaar/marque/fault"
)

// Per-record byte-size heuristics for DatabaseStats. Rough averages over a
// typical corpus; the result is explicitly an estimate.
const (
	bookmarkRecordBytes = 600
	settingRecordBytes  = 80
	historyRecordBytes  = 120
	metadataRecordBytes = 300
)

// ComputeGlobalStats scans the corpus once, counting bookmarks vs folders,
// distinct domains and maximum hierarchy depth, and atomically replaces the
// singleton aggregate.
func (s *Store) ComputeGlobalStats(ctx context.Context) (*GlobalStats, error) {
	if err := s.guard("store.ComputeGlobalStats"); err != nil {
		return nil, err
	}

	var g GlobalStats
	err := s.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE is_folder = 0),
			COUNT(*) FILTER (WHERE is_folder = 1),
			COUNT(DISTINCT CASE WHEN domain <> '' THEN domain END),
			COALESCE(MAX(depth), 0)
		FROM bookmarks`).
		Scan(&g.TotalBookmarks, &g.TotalFolders, &g.TotalDomains, &g.MaxDepth)
	if err != nil {
		return nil, fault.New(fault.QueryFailed, "store.ComputeGlobalStats", err)
	}
	g.UpdatedAt = nowMilli()

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO global_stats (key, total_bookmarks, total_folders, total_domains, max_depth, updated_at)
		VALUES ('global', ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			total_bookmarks = excluded.total_bookmarks,
			total_folders = excluded.total_folders,
			total_domains = excluded.total_domains,
			max_depth = excluded.max_depth,
			updated_at = excluded.updated_at`,
		g.TotalBookmarks, g.TotalFolders, g.TotalDomains, g.MaxDepth, g.UpdatedAt)
	if err != nil {
		return nil, fault.New(fault.QueryFailed, "store.ComputeGlobalStats", err)
	}
	return &g, nil
}

// GetGlobalStats returns the last computed aggregate, or nil when none has
// been computed yet.
func (s *Store) GetGlobalStats(ctx context.Context) (*GlobalStats, error) {
	if err := s.guard("store.GetGlobalStats"); err != nil {
		return nil, err
	}
	row := s.DB.QueryRowContext(ctx,
		`SELECT total_bookmarks, total_folders, total_domains, max_depth, updated_at
		FROM global_stats WHERE key = 'global'`)

	var g GlobalStats
	if err := row.Scan(&g.TotalBookmarks, &g.TotalFolders, &g.TotalDomains,
		&g.MaxDepth, &g.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fault.New(fault.QueryFailed, "store.GetGlobalStats", err)
	}
	return &g, nil
}

// DatabaseStats reports per-store record counts and a heuristic byte-size
// estimate.
func (s *Store) DatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	if err := s.guard("store.DatabaseStats"); err != nil {
		return nil, err
	}

	var d DatabaseStats
	counts := []struct {
		table string
		dst   *int
	}{
		{"bookmarks", &d.Bookmarks},
		{"settings", &d.Settings},
		{"search_history", &d.SearchHistory},
		{"crawl_metadata", &d.CrawlMetadata},
	}
	for _, c := range counts {
		if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dst); err != nil {
			return nil, fault.New(fault.QueryFailed, "store.DatabaseStats", err)
		}
	}
	d.EstimatedBytes = int64(d.Bookmarks)*bookmarkRecordBytes +
		int64(d.Settings)*settingRecordBytes +
		int64(d.SearchHistory)*historyRecordBytes +
		int64(d.CrawlMetadata)*metadataRecordBytes
	return &d, nil
}

// CheckHealth pings the database and verifies each logical store answers a
// trivial query.
func (s *Store) CheckHealth(ctx context.Context) *Health {
	h := &Health{Stores: map[string]bool{}}
	if err := s.guard("store.CheckHealth"); err != nil {
		h.Error = err.Error()
		return h
	}
	if err := s.DB.PingContext(ctx); err != nil {
		h.Error = err.Error()
		return h
	}
	h.OK = true
	for _, table := range []string{"bookmarks", "settings", "search_history", "crawl_metadata", "global_stats"} {
		var n int
		err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
		h.Stores[table] = err == nil
		if err != nil {
			h.OK = false
			h.Error = err.Error()
		}
	}
	return h
}
