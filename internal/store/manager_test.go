package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hazyhaar/marque/fault"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marque.db")
	m := NewManager(path, DefaultCatalog())
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManagerOpenIdempotent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s1, err := m.Open(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s2, err := m.Open(ctx)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if s1 != s2 {
		t.Fatal("open returned distinct stores")
	}
}

func TestManagerConcurrentOpen(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	const callers = 16
	stores := make([]*Store, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			stores[i], errs[i] = m.Open(ctx)
		}()
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if stores[i] != stores[0] {
			t.Fatal("concurrent opens produced distinct stores")
		}
	}
}

func TestManagerStoreBeforeOpen(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Store()
	if !fault.Is(err, fault.NotInitialized) {
		t.Fatalf("err = %v, want NotInitialized", err)
	}
}

func TestManagerCloseRejectsFurtherUse(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	st, err := m.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Store(); !fault.Is(err, fault.NotInitialized) {
		t.Errorf("manager err = %v, want NotInitialized", err)
	}
	// The old handle is dead too.
	if _, err := st.GetByID(ctx, "x"); !fault.Is(err, fault.NotInitialized) {
		t.Errorf("stale handle err = %v, want NotInitialized", err)
	}
}

func TestManagerReopenAfterClose(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s1, err := m.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Insert(ctx, &Bookmark{ID: "keep", Title: "Kept", URL: "https://keep.test"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := m.Open(ctx)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.GetByID(ctx, "keep")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Title != "Kept" {
		t.Fatalf("got %+v, want row to survive reopen", got)
	}

	// The first generation's handle stays dead after reopen.
	if _, err := s1.GetByID(ctx, "keep"); !fault.Is(err, fault.NotInitialized) {
		t.Errorf("old generation err = %v, want NotInitialized", err)
	}
}

func TestManagerDoubleClose(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
