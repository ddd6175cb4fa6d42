package store

import (
	"context"
	"testing"
	"time"
)

func TestFreshnessBoost(t *testing.T) {
	cases := []struct {
		ageDays float64
		success bool
		want    float64
	}{
		{10, true, 1.0},
		{90, true, 1.0},
		{91, true, 0.7},
		{180, true, 0.7},
		{181, true, 0.4},
		{10, false, 0.5},
		{200, false, 0.2},
	}
	for _, c := range cases {
		got := FreshnessBoost(c.ageDays, c.success)
		if got != c.want {
			t.Errorf("FreshnessBoost(%v, %v) = %v, want %v", c.ageDays, c.success, got, c.want)
		}
	}

	if FreshnessBoost(200, true) >= FreshnessBoost(10, true) {
		t.Error("stale crawl should score below fresh crawl")
	}
}

func daysAgoMilli(days int) int64 {
	return time.Now().Add(-time.Duration(days)*24*time.Hour).UnixMilli()
}

func TestSaveCrawlMetadataRefreshesBookmark(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	b := &Bookmark{ID: "b1", Title: "Raft Paper", URL: "https://raft.github.io"}
	if err := s.Insert(ctx, b); err != nil {
		t.Fatal(err)
	}

	err := s.SaveCrawlMetadata(ctx, &CrawlMetadata{
		BookmarkID:    "b1",
		Title:         "In Search of an Understandable Consensus Algorithm",
		Description:   "The Raft consensus paper",
		Keywords:      "raft consensus replication",
		Success:       true,
		LastCrawledAt: daysAgoMilli(10),
	})
	if err != nil {
		t.Fatalf("save metadata: %v", err)
	}

	got, err := s.GetByID(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if got.MetaTitleLower != "in search of an understandable consensus algorithm" {
		t.Errorf("meta title = %q", got.MetaTitleLower)
	}
	if got.MetadataBoost != 1.0 {
		t.Errorf("boost = %v, want 1.0 for a fresh successful crawl", got.MetadataBoost)
	}
	if got.MetadataUpdatedAt == 0 {
		t.Error("metadata timestamp not set")
	}
	if len(got.MetaKeywords) == 0 {
		t.Error("meta keywords not derived")
	}
	found := false
	for _, k := range got.MetaKeywords {
		if k == "raft" {
			found = true
		}
	}
	if !found {
		t.Errorf("meta keywords %v missing crawl keyword", got.MetaKeywords)
	}

	m, err := s.GetCrawlMetadata(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || !m.Success || m.CrawlCount != 1 {
		t.Fatalf("metadata row = %+v", m)
	}
}

func TestSaveCrawlMetadataStaleDecay(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, &Bookmark{ID: "stale", Title: "Old", URL: "https://old.test"}); err != nil {
		t.Fatal(err)
	}
	err := s.SaveCrawlMetadata(ctx, &CrawlMetadata{
		BookmarkID:    "stale",
		Title:         "Old Page",
		Success:       true,
		LastCrawledAt: daysAgoMilli(200),
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetByID(ctx, "stale")
	if got.MetadataBoost != 0.4 {
		t.Errorf("boost = %v, want strong decay past 180 days", got.MetadataBoost)
	}
}

func TestSaveCrawlMetadataFailedCrawl(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, &Bookmark{ID: "dead", Title: "Gone", URL: "https://gone.test"}); err != nil {
		t.Fatal(err)
	}
	err := s.SaveCrawlMetadata(ctx, &CrawlMetadata{
		BookmarkID:    "dead",
		StatusClass:   "4xx",
		Success:       false,
		LastCrawledAt: daysAgoMilli(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetByID(ctx, "dead")
	if got.MetadataBoost != 0.5 {
		t.Errorf("boost = %v, want failed-crawl penalty even when fresh", got.MetadataBoost)
	}
}

func TestSaveCrawlMetadataAbsentBookmark(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.SaveCrawlMetadata(ctx, &CrawlMetadata{
		BookmarkID: "ghost",
		Title:      "Not Yet Synced",
		Success:    true,
	})
	if err != nil {
		t.Fatalf("absent bookmark should not fail: %v", err)
	}
	m, err := s.GetCrawlMetadata(ctx, "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Title != "Not Yet Synced" {
		t.Fatalf("metadata row = %+v, want it kept for a later sync", m)
	}
}

func TestSaveCrawlMetadataIncrementsCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		err := s.SaveCrawlMetadata(ctx, &CrawlMetadata{
			BookmarkID: "rep", Title: "Repeat", Success: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	m, _ := s.GetCrawlMetadata(ctx, "rep")
	if m.CrawlCount != 3 {
		t.Errorf("crawl count = %d, want 3", m.CrawlCount)
	}
}

func TestGetCrawlMetadataMissing(t *testing.T) {
	s := openTestStore(t)
	m, err := s.GetCrawlMetadata(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Fatalf("got %+v, want nil", m)
	}
}
