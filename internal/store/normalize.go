package store

import (
	"strings"

	"github.com/hazyhaar/marque/internal/token"
)

// Normalize fills the derived search-optimization fields of a bookmark from
// its title and URL: lower-cased title/URL, extracted domain, and the
// deduplicated keyword list. Already-populated fields are left alone, so an
// ingesting collaborator that annotated the record wins. Hierarchy fields
// are never touched.
func Normalize(b *Bookmark) {
	if b == nil {
		return
	}
	if b.TitleLower == "" && b.Title != "" {
		b.TitleLower = strings.ToLower(b.Title)
	}
	if b.URLLower == "" && b.URL != "" {
		b.URLLower = strings.ToLower(b.URL)
	}
	if b.Domain == "" && b.URL != "" {
		b.Domain = token.Domain(b.URL)
	}
	if len(b.Keywords) == 0 {
		b.Keywords = token.Keywords(b.Title, b.URL, b.Domain)
	}
	// A record with no merged metadata contributes at full weight when
	// metadata later arrives; the boost only decays below 1 through
	// SaveCrawlMetadata.
	if b.MetadataBoost == 0 {
		b.MetadataBoost = 1.0
	}
}
