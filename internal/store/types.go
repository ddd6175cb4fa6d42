// Package store is the data access layer of the marque engine: one SQLite
// database holding the bookmark corpus, its secondary indices, settings,
// search history, crawl metadata and the global stats singleton.
package store

import "time"

// Bookmark is one stored bookmark or folder. A record is either a folder
// (no URL, carries ChildrenCount) or a leaf bookmark (has a URL). The
// hierarchy denormalization (Path, PathIDs, Depth, AncestorIDs, SiblingIDs)
// is computed by the ingesting collaborator against the live parent graph;
// the engine persists it verbatim and never self-heals it.
type Bookmark struct {
	ID        string `json:"id"`
	ParentID  string `json:"parent_id,omitempty"`
	Title     string `json:"title"`
	URL       string `json:"url,omitempty"`
	DateAdded int64  `json:"date_added"` // unix ms

	// Sibling ordering within the parent folder.
	OrderIndex int `json:"order_index"`

	// Hierarchy denormalization.
	Path        []string `json:"path,omitempty"`     // ancestor titles, root first
	PathIDs     []string `json:"path_ids,omitempty"` // ancestor ids, root first
	Depth       int      `json:"depth"`
	AncestorIDs []string `json:"ancestor_ids,omitempty"`
	SiblingIDs  []string `json:"sibling_ids,omitempty"`

	// Search optimization fields, derived from Title/URL (see Normalize).
	TitleLower string   `json:"title_lower"`
	URLLower   string   `json:"url_lower,omitempty"`
	Domain     string   `json:"domain,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`

	IsFolder      bool `json:"is_folder"`
	ChildrenCount int  `json:"children_count"`
	BookmarkCount int  `json:"bookmark_count"` // total descendant bookmarks

	// Free-form extensions.
	Tags       []string `json:"tags,omitempty"`
	Category   string   `json:"category,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	VisitCount int      `json:"visit_count"`

	// Externally merged crawl metadata. Weights search only; never drives
	// hierarchy. Maintained exclusively by SaveCrawlMetadata.
	MetaTitleLower    string   `json:"meta_title_lower,omitempty"`
	MetaDescription   string   `json:"meta_description,omitempty"`
	MetaKeywords      []string `json:"meta_keywords,omitempty"`
	MetadataBoost     float64  `json:"metadata_boost"` // in [0,1]
	MetadataUpdatedAt int64    `json:"metadata_updated_at,omitempty"`
}

// GlobalStats is the corpus-wide aggregate singleton, replaced atomically by
// ComputeGlobalStats.
type GlobalStats struct {
	TotalBookmarks int   `json:"total_bookmarks"`
	TotalFolders   int   `json:"total_folders"`
	TotalDomains   int   `json:"total_domains"`
	MaxDepth       int   `json:"max_depth"`
	UpdatedAt      int64 `json:"updated_at"`
}

// Setting is one key/value configuration pair with its recorded value kind.
type Setting struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Kind      string `json:"kind"` // "string", "int", "bool", "json"
	UpdatedAt int64  `json:"updated_at"`
}

// SearchHistoryEntry is one append-only record of an executed search.
type SearchHistoryEntry struct {
	ID          string `json:"id"`
	Query       string `json:"query"`
	ResultCount int    `json:"result_count"`
	DurationMs  int64  `json:"duration_ms"`
	Source      string `json:"source"` // originating surface, e.g. "popup", "cli"
	SearchedAt  int64  `json:"searched_at"`
}

// CrawlMetadata is externally fetched page metadata for one bookmark.
// Writing it triggers the derived-field refresh on the bookmark row.
type CrawlMetadata struct {
	BookmarkID    string `json:"bookmark_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Keywords      string `json:"keywords"` // raw meta-keywords text
	FinalURL      string `json:"final_url"`
	StatusClass   string `json:"status_class"` // "2xx", "3xx", ...
	Success       bool   `json:"success"`
	CrawlCount    int    `json:"crawl_count"`
	LastCrawledAt int64  `json:"last_crawled_at"` // unix ms
}

// DatabaseStats reports per-store record counts and a rough byte-size
// estimate (counts times a per-record heuristic). An estimate, not exact.
type DatabaseStats struct {
	Bookmarks      int   `json:"bookmarks"`
	Settings       int   `json:"settings"`
	SearchHistory  int   `json:"search_history"`
	CrawlMetadata  int   `json:"crawl_metadata"`
	EstimatedBytes int64 `json:"estimated_bytes"`
}

// Health reports reachability of the engine and each logical store.
type Health struct {
	OK     bool            `json:"ok"`
	Stores map[string]bool `json:"stores"`
	Error  string          `json:"error,omitempty"`
}

func nowMilli() int64 { return time.Now().UnixMilli() }
