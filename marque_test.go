package marque

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/marque/fault"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := Open(context.Background(), Config{
		Path: filepath.Join(t.TempDir(), "marque.db"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestEngineLifecycle(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()

	b := &Bookmark{ID: "1", Title: "Go Blog", URL: "https://go.dev/blog"}
	if err := eng.Insert(ctx, b); err != nil {
		t.Fatal(err)
	}
	got, err := eng.GetByID(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Title != "Go Blog" {
		t.Fatalf("got %+v", got)
	}

	results, err := eng.Search(ctx, "go", SearchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Bookmark.ID != "1" {
		t.Fatalf("results = %+v", results)
	}

	if err := eng.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.GetByID(ctx, "1"); !fault.Is(err, fault.NotInitialized) {
		t.Errorf("after close: err = %v, want NotInitialized", err)
	}
	if err := eng.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestEngineBatchAndStats(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()

	records := []*Bookmark{
		{ID: "f", Title: "Tools", IsFolder: true, Depth: 1},
		{ID: "a", ParentID: "f", Title: "GitHub", URL: "https://github.com", OrderIndex: 0, Depth: 2},
		{ID: "b", ParentID: "f", Title: "GitLab", URL: "https://gitlab.com", OrderIndex: 1, Depth: 2},
	}
	sum, err := eng.InsertMany(ctx, records, BatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Processed != 3 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}

	children, err := eng.GetChildren(ctx, "f", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 2 || children[0].ID != "a" || children[1].ID != "b" {
		t.Fatalf("children = %+v", children)
	}

	g, err := eng.ComputeGlobalStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if g.TotalBookmarks != 2 || g.TotalFolders != 1 {
		t.Fatalf("stats = %+v", g)
	}

	h := eng.CheckHealth(ctx)
	if !h.OK {
		t.Fatalf("health = %+v", h)
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.defaults()
	if c.Path != "marque.db" {
		t.Errorf("path = %q", c.Path)
	}
	if c.BusyTimeoutMs != 10_000 {
		t.Errorf("busy timeout = %d", c.BusyTimeoutMs)
	}
	if c.Search.CandidateCap != 200 {
		t.Errorf("candidate cap = %d", c.Search.CandidateCap)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marque.yaml")
	body := []byte("path: /data/marks.db\nsearch:\n  candidate_cap: 64\n  disable_history: true\nbatch:\n  size: 100\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "/data/marks.db" {
		t.Errorf("path = %q", cfg.Path)
	}
	if cfg.Search.CandidateCap != 64 || !cfg.Search.DisableHistory {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Batch.Size != 100 {
		t.Errorf("batch = %+v", cfg.Batch)
	}
	// Unset fields keep defaults.
	if cfg.BusyTimeoutMs != 10_000 {
		t.Errorf("busy timeout = %d", cfg.BusyTimeoutMs)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
