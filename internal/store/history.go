package store

import (
	"context"

	"github.com/hazyhaar/marque/fault"
)

// AppendSearch records one executed search. The entry's ID is generated
// when absent; the table is append-only apart from ClearHistory.
func (s *Store) AppendSearch(ctx context.Context, e *SearchHistoryEntry) error {
	if err := s.guard("store.AppendSearch"); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.SearchedAt == 0 {
		e.SearchedAt = nowMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO search_history (id, query, result_count, duration_ms, source, searched_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Query, e.ResultCount, e.DurationMs, e.Source, e.SearchedAt)
	if err != nil {
		return fault.New(fault.QueryFailed, "store.AppendSearch", err)
	}
	return nil
}

// RecentSearches returns history entries newest-first, bounded by limit.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]SearchHistoryEntry, error) {
	if err := s.guard("store.RecentSearches"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, query, result_count, duration_ms, source, searched_at
		FROM search_history ORDER BY searched_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fault.New(fault.QueryFailed, "store.RecentSearches", err)
	}
	defer rows.Close()

	var entries []SearchHistoryEntry
	for rows.Next() {
		var e SearchHistoryEntry
		if err := rows.Scan(&e.ID, &e.Query, &e.ResultCount, &e.DurationMs,
			&e.Source, &e.SearchedAt); err != nil {
			return nil, fault.New(fault.QueryFailed, "store.RecentSearches", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearHistory empties the search history store.
func (s *Store) ClearHistory(ctx context.Context) error {
	if err := s.guard("store.ClearHistory"); err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM search_history`); err != nil {
		return fault.New(fault.QueryFailed, "store.ClearHistory", err)
	}
	return nil
}
