package store

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/hazyhaar/marque/dbopen"
	"github.com/hazyhaar/marque/fault"
)

// Manager owns the single open handle to the bookmark database and
// serializes schema upgrades. Open is idempotent: concurrent callers
// awaiting initialization share one in-flight open instead of racing
// separate opens, and a caller arriving mid-upgrade blocks on the same
// flight until reconciliation completes.
type Manager struct {
	path    string
	opts    []dbopen.Option
	catalog Catalog
	storeOp []Option

	group singleflight.Group
	mu    sync.Mutex
	db    *sql.DB
	store *Store
}

// NewManager prepares a manager for the database at path. Nothing is opened
// until Open is called.
func NewManager(path string, catalog Catalog, opts ...dbopen.Option) *Manager {
	return &Manager{path: path, opts: opts, catalog: catalog}
}

// WithStoreOptions sets options applied to the Store created by Open.
func (m *Manager) WithStoreOptions(opts ...Option) *Manager {
	m.storeOp = opts
	return m
}

// Open opens the database (once) and reconciles the schema. Safe for
// concurrent use; every caller receives the same Store. Reopening after
// Close is allowed and produces a fresh handle.
func (m *Manager) Open(ctx context.Context) (*Store, error) {
	m.mu.Lock()
	if m.store != nil {
		st := m.store
		m.mu.Unlock()
		return st, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do("open", func() (any, error) {
		return m.openOnce(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (m *Manager) openOnce(ctx context.Context) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		return m.store, nil
	}

	db, err := dbopen.Open(m.path, m.opts...)
	if err != nil {
		return nil, err // already fault.StorageUnavailable
	}

	if err := Reconcile(ctx, db, m.catalog); err != nil {
		db.Close()
		return nil, err // fault.SchemaUpgradeFailed
	}

	st := NewStore(db, m.storeOp...)
	// Each open gets its own teardown flag so a Store handle from a
	// previous generation stays NotInitialized after a reopen.
	st.closed = &atomic.Bool{}
	m.db = db
	m.store = st
	return st, nil
}

// Store returns the live store, or NotInitialized when the manager has not
// been opened or has been closed.
func (m *Manager) Store() (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return nil, fault.New(fault.NotInitialized, "store.Manager.Store", nil)
	}
	return m.store, nil
}

// Close closes the handle and clears the pooled reference. All further
// operations on the manager or a previously returned Store fail with
// NotInitialized; nothing reopens silently.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	m.store.closed.Store(true)
	err := m.db.Close()
	m.db = nil
	m.store = nil
	return err
}
