package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/hazyhaar/marque/dbopen"
	"github.com/hazyhaar/marque/fault"
)

const bookmarkCols = `id, parent_id, title, url, date_added, order_index,
path_json, path_ids_json, depth, ancestor_ids_json, sibling_ids_json,
title_lower, url_lower, domain, keywords_json,
is_folder, children_count, bookmark_count,
tags_json, category, notes, visit_count,
meta_title_lower, meta_description, meta_keywords_json, metadata_boost, metadata_updated_at`

// prefixHigh is the exclusive upper bound sentinel for prefix range probes:
// [term, term+prefixHigh) covers every key starting with term.
const prefixHigh = "￿"

// GetByID returns the bookmark with the given id, or nil if absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Bookmark, error) {
	if err := s.guard("store.GetByID"); err != nil {
		return nil, err
	}
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+bookmarkCols+` FROM bookmarks WHERE id = ?`, id)
	b, err := scanBookmark(row)
	if err != nil {
		return nil, fault.New(fault.QueryFailed, "store.GetByID", err)
	}
	return b, nil
}

// GetAll returns bookmarks in primary-key order. limit <= 0 means no limit.
// The cursor skips offset rows and collects limit rows; the store is never
// materialized wholesale before slicing.
func (s *Store) GetAll(ctx context.Context, limit, offset int) ([]*Bookmark, error) {
	if err := s.guard("store.GetAll"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+bookmarkCols+` FROM bookmarks ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fault.New(fault.QueryFailed, "store.GetAll", err)
	}
	return collectBookmarks(rows, "store.GetAll")
}

// GetChildren returns parentID's direct children in ascending sibling
// order. When the compound (parent_id, order_index) index is present the
// database cursor does the skip/limit; otherwise the parent_id index
// gathers and the sort happens in memory. Both paths produce identical
// ordering.
func (s *Store) GetChildren(ctx context.Context, parentID string, offset, limit int) ([]*Bookmark, error) {
	if err := s.guard("store.GetChildren"); err != nil {
		return nil, err
	}
	if s.hasCompoundChildIndex(ctx) {
		return s.childrenIndexed(ctx, parentID, offset, limit)
	}
	return s.childrenSorted(ctx, parentID, offset, limit)
}

func (s *Store) hasCompoundChildIndex(ctx context.Context) bool {
	s.compoundOnce.Do(func() {
		var name string
		err := s.DB.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'marque_bookmarks_parent_order'`).
			Scan(&name)
		s.compoundOK = err == nil
	})
	return s.compoundOK
}

func (s *Store) childrenIndexed(ctx context.Context, parentID string, offset, limit int) ([]*Bookmark, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+bookmarkCols+` FROM bookmarks
		WHERE parent_id = ?
		ORDER BY order_index ASC, id ASC
		LIMIT ? OFFSET ?`, parentID, limit, offset)
	if err != nil {
		return nil, fault.New(fault.QueryFailed, "store.GetChildren", err)
	}
	return collectBookmarks(rows, "store.GetChildren")
}

func (s *Store) childrenSorted(ctx context.Context, parentID string, offset, limit int) ([]*Bookmark, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+bookmarkCols+` FROM bookmarks WHERE parent_id = ?`, parentID)
	if err != nil {
		return nil, fault.New(fault.QueryFailed, "store.GetChildren", err)
	}
	children, err := collectBookmarks(rows, "store.GetChildren")
	if err != nil {
		return nil, err
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].OrderIndex != children[j].OrderIndex {
			return children[i].OrderIndex < children[j].OrderIndex
		}
		return children[i].ID < children[j].ID
	})
	if offset >= len(children) {
		return nil, nil
	}
	children = children[offset:]
	if limit > 0 && len(children) > limit {
		children = children[:limit]
	}
	return children, nil
}

// Insert writes one bookmark, deriving missing search fields and
// maintaining the keyword and path inverted tables in the same transaction.
func (s *Store) Insert(ctx context.Context, b *Bookmark) error {
	if err := s.guard("store.Insert"); err != nil {
		return err
	}
	if err := validate(b); err != nil {
		return err
	}
	Normalize(b)
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		return putBookmarkTx(ctx, tx, b)
	})
}

// Update replaces the stored record wholesale. Updating with an identical
// record is a no-op on state.
func (s *Store) Update(ctx context.Context, b *Bookmark) error {
	if err := s.guard("store.Update"); err != nil {
		return err
	}
	if err := validate(b); err != nil {
		return err
	}
	Normalize(b)
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		return putBookmarkTx(ctx, tx, b)
	})
}

// Delete removes a bookmark and its inverted-index rows.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.guard("store.Delete"); err != nil {
		return err
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		return deleteBookmarkTx(ctx, tx, id)
	})
}

// ClearAll empties the bookmark store and both inverted tables.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.guard("store.ClearAll"); err != nil {
		return err
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM bookmarks`,
			`DELETE FROM bookmark_keywords`,
			`DELETE FROM bookmark_paths`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored bookmark rows (folders included).
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.guard("store.Count"); err != nil {
		return 0, err
	}
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks`).Scan(&n); err != nil {
		return 0, fault.New(fault.QueryFailed, "store.Count", err)
	}
	return n, nil
}

// ForEachBookmark streams every bookmark through fn in primary-key order.
// fn returning an error stops the scan.
func (s *Store) ForEachBookmark(ctx context.Context, fn func(*Bookmark) error) error {
	if err := s.guard("store.ForEachBookmark"); err != nil {
		return err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+bookmarkCols+` FROM bookmarks ORDER BY id`)
	if err != nil {
		return fault.New(fault.QueryFailed, "store.ForEachBookmark", err)
	}
	defer rows.Close()
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return fault.New(fault.QueryFailed, "store.ForEachBookmark", err)
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ProbeTitlePrefix returns up to cap bookmarks whose lower-cased title
// starts with term, via the title index.
func (s *Store) ProbeTitlePrefix(ctx context.Context, term string, cap int) ([]*Bookmark, error) {
	return s.probePrefix(ctx, "title_lower", term, cap)
}

// ProbeURLPrefix probes the url_lower index.
func (s *Store) ProbeURLPrefix(ctx context.Context, term string, cap int) ([]*Bookmark, error) {
	return s.probePrefix(ctx, "url_lower", term, cap)
}

// ProbeDomainPrefix probes the domain index.
func (s *Store) ProbeDomainPrefix(ctx context.Context, term string, cap int) ([]*Bookmark, error) {
	return s.probePrefix(ctx, "domain", term, cap)
}

func (s *Store) probePrefix(ctx context.Context, column, term string, cap int) ([]*Bookmark, error) {
	if err := s.guard("store.probePrefix"); err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT `+bookmarkCols+` FROM bookmarks
		WHERE %s >= ? AND %s < ? ORDER BY id LIMIT ?`, column, column)
	rows, err := s.DB.QueryContext(ctx, q, term, term+prefixHigh, cap)
	if err != nil {
		return nil, fault.New(fault.QueryFailed, "store.probePrefix", err)
	}
	return collectBookmarks(rows, "store.probePrefix")
}

// ProbeKeyword returns up to cap bookmarks with an indexed keyword starting
// with term, via the (term, bookmark_id) inverted table.
func (s *Store) ProbeKeyword(ctx context.Context, term string, cap int) ([]*Bookmark, error) {
	if err := s.guard("store.ProbeKeyword"); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+bookmarkCols+` FROM bookmarks
		WHERE id IN (
			SELECT bookmark_id FROM bookmark_keywords
			WHERE term >= ? AND term < ? LIMIT ?
		) ORDER BY id`, term, term+prefixHigh, cap)
	if err != nil {
		return nil, fault.New(fault.QueryFailed, "store.ProbeKeyword", err)
	}
	return collectBookmarks(rows, "store.ProbeKeyword")
}

// Descendants returns ids of bookmarks whose path contains ancestorID, via
// the bookmark_paths inverted table.
func (s *Store) Descendants(ctx context.Context, ancestorID string) ([]string, error) {
	if err := s.guard("store.Descendants"); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT bookmark_id FROM bookmark_paths WHERE ancestor_id = ? ORDER BY bookmark_id`,
		ancestorID)
	if err != nil {
		return nil, fault.New(fault.QueryFailed, "store.Descendants", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fault.New(fault.QueryFailed, "store.Descendants", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func validate(b *Bookmark) error {
	if b == nil || b.ID == "" {
		return fault.New(fault.RecordWriteFailed, "store.validate",
			fmt.Errorf("bookmark id is required"))
	}
	return nil
}

// putBookmarkTx upserts the row and rewrites its inverted-index entries.
// Shared by single writes and batch chunks.
func putBookmarkTx(ctx context.Context, tx *sql.Tx, b *Bookmark) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO bookmarks (`+bookmarkCols+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.ParentID, b.Title, b.URL, b.DateAdded, b.OrderIndex,
		encodeJSON(b.Path), encodeJSON(b.PathIDs), b.Depth,
		encodeJSON(b.AncestorIDs), encodeJSON(b.SiblingIDs),
		b.TitleLower, b.URLLower, b.Domain, encodeJSON(b.Keywords),
		b.IsFolder, b.ChildrenCount, b.BookmarkCount,
		encodeJSON(b.Tags), b.Category, b.Notes, b.VisitCount,
		b.MetaTitleLower, b.MetaDescription, encodeJSON(b.MetaKeywords),
		b.MetadataBoost, b.MetadataUpdatedAt,
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM bookmark_keywords WHERE bookmark_id = ?`, b.ID); err != nil {
		return err
	}
	for _, kw := range b.Keywords {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO bookmark_keywords (term, bookmark_id) VALUES (?, ?)`,
			kw, b.ID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM bookmark_paths WHERE bookmark_id = ?`, b.ID); err != nil {
		return err
	}
	for _, anc := range b.PathIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO bookmark_paths (ancestor_id, bookmark_id) VALUES (?, ?)`,
			anc, b.ID); err != nil {
			return err
		}
	}
	return nil
}

func deleteBookmarkTx(ctx context.Context, tx *sql.Tx, id string) error {
	for _, stmt := range []string{
		`DELETE FROM bookmarks WHERE id = ?`,
		`DELETE FROM bookmark_keywords WHERE bookmark_id = ?`,
		`DELETE FROM bookmark_paths WHERE bookmark_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	return nil
}

func collectBookmarks(rows *sql.Rows, op string) ([]*Bookmark, error) {
	defer rows.Close()
	var out []*Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fault.New(fault.QueryFailed, op, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.New(fault.QueryFailed, op, err)
	}
	return out, nil
}

func scanBookmark(row rowScanner) (*Bookmark, error) {
	var b Bookmark
	var pathJSON, pathIDsJSON, ancJSON, sibJSON, kwJSON, tagsJSON, metaKwJSON string
	var isFolder int
	err := row.Scan(
		&b.ID, &b.ParentID, &b.Title, &b.URL, &b.DateAdded, &b.OrderIndex,
		&pathJSON, &pathIDsJSON, &b.Depth, &ancJSON, &sibJSON,
		&b.TitleLower, &b.URLLower, &b.Domain, &kwJSON,
		&isFolder, &b.ChildrenCount, &b.BookmarkCount,
		&tagsJSON, &b.Category, &b.Notes, &b.VisitCount,
		&b.MetaTitleLower, &b.MetaDescription, &metaKwJSON,
		&b.MetadataBoost, &b.MetadataUpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan bookmark: %w", err)
	}
	b.IsFolder = isFolder != 0
	b.Path = decodeJSON(pathJSON)
	b.PathIDs = decodeJSON(pathIDsJSON)
	b.AncestorIDs = decodeJSON(ancJSON)
	b.SiblingIDs = decodeJSON(sibJSON)
	b.Keywords = decodeJSON(kwJSON)
	b.Tags = decodeJSON(tagsJSON)
	b.MetaKeywords = decodeJSON(metaKwJSON)
	return &b, nil
}
