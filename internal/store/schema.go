package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/marque/fault"
)

// SchemaVersion is the current catalog version, stored in PRAGMA
// user_version. Monotonically increasing; bumping it re-runs reconciliation.
const SchemaVersion = 2

// indexPrefix namespaces every engine-managed index so reconciliation can
// drop drifted ones without touching indices a foreign tool may have added.
const indexPrefix = "marque_"

// Index declares one engine-managed secondary index.
type Index struct {
	Name    string // must carry indexPrefix
	Table   string
	Columns string // comma-separated column list
	Unique  bool
}

// Catalog declares the full persisted layout: tables with their primary
// keys, and the secondary indices the current version requires.
type Catalog struct {
	Version int
	Tables  map[string]string // name -> CREATE TABLE IF NOT EXISTS ...
	Indices []Index
}

// DefaultCatalog returns the catalog for SchemaVersion.
//
// List-valued bookmark fields persist as JSON columns; the two multi-entry
// indices (keywords, path ids) are auxiliary inverted tables keyed
// (term, bookmark_id) / (ancestor_id, bookmark_id).
func DefaultCatalog() Catalog {
	return Catalog{
		Version: SchemaVersion,
		Tables: map[string]string{
			"bookmarks": `
CREATE TABLE IF NOT EXISTS bookmarks (
    id                  TEXT PRIMARY KEY,
    parent_id           TEXT NOT NULL DEFAULT '',
    title               TEXT NOT NULL DEFAULT '',
    url                 TEXT NOT NULL DEFAULT '',
    date_added          INTEGER NOT NULL DEFAULT 0,
    order_index         INTEGER NOT NULL DEFAULT 0,
    path_json           TEXT NOT NULL DEFAULT '[]',
    path_ids_json       TEXT NOT NULL DEFAULT '[]',
    depth               INTEGER NOT NULL DEFAULT 0,
    ancestor_ids_json   TEXT NOT NULL DEFAULT '[]',
    sibling_ids_json    TEXT NOT NULL DEFAULT '[]',
    title_lower         TEXT NOT NULL DEFAULT '',
    url_lower           TEXT NOT NULL DEFAULT '',
    domain              TEXT NOT NULL DEFAULT '',
    keywords_json       TEXT NOT NULL DEFAULT '[]',
    is_folder           INTEGER NOT NULL DEFAULT 0,
    children_count      INTEGER NOT NULL DEFAULT 0,
    bookmark_count      INTEGER NOT NULL DEFAULT 0,
    tags_json           TEXT NOT NULL DEFAULT '[]',
    category            TEXT NOT NULL DEFAULT '',
    notes               TEXT NOT NULL DEFAULT '',
    visit_count         INTEGER NOT NULL DEFAULT 0,
    meta_title_lower    TEXT NOT NULL DEFAULT '',
    meta_description    TEXT NOT NULL DEFAULT '',
    meta_keywords_json  TEXT NOT NULL DEFAULT '[]',
    metadata_boost      REAL NOT NULL DEFAULT 1.0,
    metadata_updated_at INTEGER NOT NULL DEFAULT 0
)`,
			"bookmark_keywords": `
CREATE TABLE IF NOT EXISTS bookmark_keywords (
    term        TEXT NOT NULL,
    bookmark_id TEXT NOT NULL,
    PRIMARY KEY (term, bookmark_id)
) WITHOUT ROWID`,
			"bookmark_paths": `
CREATE TABLE IF NOT EXISTS bookmark_paths (
    ancestor_id TEXT NOT NULL,
    bookmark_id TEXT NOT NULL,
    PRIMARY KEY (ancestor_id, bookmark_id)
) WITHOUT ROWID`,
			"settings": `
CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL DEFAULT '',
    kind       TEXT NOT NULL DEFAULT 'string',
    updated_at INTEGER NOT NULL DEFAULT 0
)`,
			"search_history": `
CREATE TABLE IF NOT EXISTS search_history (
    id           TEXT PRIMARY KEY,
    query        TEXT NOT NULL,
    result_count INTEGER NOT NULL DEFAULT 0,
    duration_ms  INTEGER NOT NULL DEFAULT 0,
    source       TEXT NOT NULL DEFAULT '',
    searched_at  INTEGER NOT NULL
)`,
			"crawl_metadata": `
CREATE TABLE IF NOT EXISTS crawl_metadata (
    bookmark_id     TEXT PRIMARY KEY,
    title           TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    keywords        TEXT NOT NULL DEFAULT '',
    final_url       TEXT NOT NULL DEFAULT '',
    status_class    TEXT NOT NULL DEFAULT '',
    success         INTEGER NOT NULL DEFAULT 0,
    crawl_count     INTEGER NOT NULL DEFAULT 0,
    last_crawled_at INTEGER NOT NULL DEFAULT 0
)`,
			"global_stats": `
CREATE TABLE IF NOT EXISTS global_stats (
    key             TEXT PRIMARY KEY CHECK (key = 'global'),
    total_bookmarks INTEGER NOT NULL DEFAULT 0,
    total_folders   INTEGER NOT NULL DEFAULT 0,
    total_domains   INTEGER NOT NULL DEFAULT 0,
    max_depth       INTEGER NOT NULL DEFAULT 0,
    updated_at      INTEGER NOT NULL DEFAULT 0
)`,
		},
		Indices: []Index{
			{Name: "marque_bookmarks_parent", Table: "bookmarks", Columns: "parent_id"},
			{Name: "marque_bookmarks_parent_order", Table: "bookmarks", Columns: "parent_id, order_index"},
			{Name: "marque_bookmarks_url", Table: "bookmarks", Columns: "url_lower"},
			{Name: "marque_bookmarks_domain", Table: "bookmarks", Columns: "domain"},
			{Name: "marque_bookmarks_title", Table: "bookmarks", Columns: "title_lower"},
			{Name: "marque_bookmarks_depth", Table: "bookmarks", Columns: "depth"},
			{Name: "marque_bookmarks_date_added", Table: "bookmarks", Columns: "date_added"},
			{Name: "marque_bookmarks_is_folder", Table: "bookmarks", Columns: "is_folder"},
			{Name: "marque_keywords_bookmark", Table: "bookmark_keywords", Columns: "bookmark_id"},
			{Name: "marque_paths_bookmark", Table: "bookmark_paths", Columns: "bookmark_id"},
			{Name: "marque_history_query", Table: "search_history", Columns: "query"},
			{Name: "marque_history_time", Table: "search_history", Columns: "searched_at"},
		},
	}
}

// Reconcile brings the live schema in line with the catalog, inside one
// transaction: create missing tables, create missing declared indices, drop
// engine-prefixed indices that are no longer declared, then record the
// catalog version in user_version. Unknown tables are left untouched.
// Either the whole reconciliation commits or the open fails with
// SchemaUpgradeFailed and no partial schema is left active.
func Reconcile(ctx context.Context, db *sql.DB, cat Catalog) error {
	stored, err := schemaVersion(ctx, db)
	if err != nil {
		return fault.New(fault.SchemaUpgradeFailed, "store.Reconcile", err)
	}
	if stored == cat.Version {
		return nil
	}
	if stored > cat.Version {
		return fault.New(fault.SchemaUpgradeFailed, "store.Reconcile",
			fmt.Errorf("database version %d is newer than catalog version %d", stored, cat.Version))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fault.New(fault.SchemaUpgradeFailed, "store.Reconcile", err)
	}
	defer tx.Rollback()

	for name, ddl := range cat.Tables {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fault.New(fault.SchemaUpgradeFailed, "store.Reconcile",
				fmt.Errorf("create table %s: %w", name, err))
		}
	}

	declared := make(map[string]bool, len(cat.Indices))
	for _, idx := range cat.Indices {
		declared[idx.Name] = true
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		ddl := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			unique, idx.Name, idx.Table, idx.Columns)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fault.New(fault.SchemaUpgradeFailed, "store.Reconcile",
				fmt.Errorf("create index %s: %w", idx.Name, err))
		}
	}

	// Schema drift: drop engine-managed indices the catalog no longer
	// declares.
	rows, err := tx.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND name LIKE ?`,
		indexPrefix+"%")
	if err != nil {
		return fault.New(fault.SchemaUpgradeFailed, "store.Reconcile", err)
	}
	var drop []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fault.New(fault.SchemaUpgradeFailed, "store.Reconcile", err)
		}
		if !declared[name] {
			drop = append(drop, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fault.New(fault.SchemaUpgradeFailed, "store.Reconcile", err)
	}
	for _, name := range drop {
		if _, err := tx.ExecContext(ctx, "DROP INDEX "+name); err != nil {
			return fault.New(fault.SchemaUpgradeFailed, "store.Reconcile",
				fmt.Errorf("drop index %s: %w", name, err))
		}
		slog.Info("dropped drifted index", "index", name)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", cat.Version)); err != nil {
		return fault.New(fault.SchemaUpgradeFailed, "store.Reconcile", err)
	}

	if err := tx.Commit(); err != nil {
		return fault.New(fault.SchemaUpgradeFailed, "store.Reconcile", err)
	}
	slog.Debug("schema reconciled", "from", stored, "to", cat.Version)
	return nil
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}
