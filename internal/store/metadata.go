package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hazyhaar/marque/dbopen"
	"github.com/hazyhaar/marque/fault"
	"github.com/hazyhaar/marque/internal/token"
)

// Freshness decay thresholds for metadata-driven search contributions.
const (
	freshnessMildDays   = 90
	freshnessStrongDays = 180

	freshnessMildFactor   = 0.7
	freshnessStrongFactor = 0.4
	failedCrawlFactor     = 0.5
)

// FreshnessBoost computes the metadata boost multiplier in [0,1]: full
// weight under 90 days since last crawl, mild decay past 90, stronger decay
// past 180, and a flat penalty when the crawl itself failed.
func FreshnessBoost(ageDays float64, success bool) float64 {
	boost := 1.0
	switch {
	case ageDays > freshnessStrongDays:
		boost = freshnessStrongFactor
	case ageDays > freshnessMildDays:
		boost = freshnessMildFactor
	}
	if !success {
		boost *= failedCrawlFactor
	}
	return boost
}

// SaveCrawlMetadata upserts the crawl metadata row and refreshes the
// corresponding bookmark's derived search-boost fields, all inside one
// transaction spanning both stores: a reader never observes a metadata row
// without its bookmark update or vice versa. If the bookmark is absent the
// metadata row is still written and the refresh is a no-op. Identity, URL
// and hierarchy fields are never altered.
func (s *Store) SaveCrawlMetadata(ctx context.Context, m *CrawlMetadata) error {
	if err := s.guard("store.SaveCrawlMetadata"); err != nil {
		return err
	}
	if m == nil || m.BookmarkID == "" {
		return fault.New(fault.RecordWriteFailed, "store.SaveCrawlMetadata", nil)
	}
	if m.LastCrawledAt == 0 {
		m.LastCrawledAt = nowMilli()
	}
	if m.CrawlCount == 0 {
		m.CrawlCount = 1
	}

	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO crawl_metadata (bookmark_id, title, description, keywords,
			final_url, status_class, success, crawl_count, last_crawled_at)
			VALUES (?,?,?,?,?,?,?,?,?)
			ON CONFLICT (bookmark_id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				keywords = excluded.keywords,
				final_url = excluded.final_url,
				status_class = excluded.status_class,
				success = excluded.success,
				crawl_count = crawl_metadata.crawl_count + 1,
				last_crawled_at = excluded.last_crawled_at`,
			m.BookmarkID, m.Title, m.Description, m.Keywords,
			m.FinalURL, m.StatusClass, m.Success, m.CrawlCount, m.LastCrawledAt,
		); err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx,
			`SELECT `+bookmarkCols+` FROM bookmarks WHERE id = ?`, m.BookmarkID)
		b, err := scanBookmark(row)
		if err != nil {
			return err
		}
		if b == nil {
			// No bookmark for this id; keep the metadata row for a
			// later sync.
			return nil
		}

		ageDays := float64(nowMilli()-m.LastCrawledAt) / 86_400_000
		b.MetaTitleLower = strings.ToLower(m.Title)
		b.MetaDescription = strings.ToLower(m.Description)
		b.MetaKeywords = token.Words(m.Keywords + " " + m.Title)
		b.MetadataBoost = FreshnessBoost(ageDays, m.Success)
		b.MetadataUpdatedAt = m.LastCrawledAt

		_, err = tx.ExecContext(ctx,
			`UPDATE bookmarks SET
				meta_title_lower = ?, meta_description = ?,
				meta_keywords_json = ?, metadata_boost = ?, metadata_updated_at = ?
			WHERE id = ?`,
			b.MetaTitleLower, b.MetaDescription, encodeJSON(b.MetaKeywords),
			b.MetadataBoost, b.MetadataUpdatedAt, b.ID)
		return err
	})
}

// GetCrawlMetadata returns the metadata row for a bookmark, or nil.
func (s *Store) GetCrawlMetadata(ctx context.Context, bookmarkID string) (*CrawlMetadata, error) {
	if err := s.guard("store.GetCrawlMetadata"); err != nil {
		return nil, err
	}
	row := s.DB.QueryRowContext(ctx,
		`SELECT bookmark_id, title, description, keywords, final_url,
		status_class, success, crawl_count, last_crawled_at
		FROM crawl_metadata WHERE bookmark_id = ?`, bookmarkID)

	var m CrawlMetadata
	var success int
	err := row.Scan(&m.BookmarkID, &m.Title, &m.Description, &m.Keywords,
		&m.FinalURL, &m.StatusClass, &success, &m.CrawlCount, &m.LastCrawledAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fault.New(fault.QueryFailed, "store.GetCrawlMetadata", err)
	}
	m.Success = success != 0
	return &m, nil
}

// RefreshMetadataBoost recomputes a bookmark's boost from its stored crawl
// row without new crawl input. Used by maintenance sweeps so stale boosts
// decay even when the crawler never revisits.
func (s *Store) RefreshMetadataBoost(ctx context.Context, bookmarkID string) error {
	if err := s.guard("store.RefreshMetadataBoost"); err != nil {
		return err
	}
	m, err := s.GetCrawlMetadata(ctx, bookmarkID)
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	ageDays := float64(nowMilli()-m.LastCrawledAt) / 86_400_000
	boost := FreshnessBoost(ageDays, m.Success)
	_, err = dbopen.Exec(ctx, s.DB,
		`UPDATE bookmarks SET metadata_boost = ? WHERE id = ?`, boost, bookmarkID)
	return err
}
