package store

import (
	"database/sql"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/marque/fault"
	"github.com/hazyhaar/marque/idgen"
)

// Store wraps the open bookmark database. All rows handed out are scanned
// fresh per call: callers receive copies, never live references.
type Store struct {
	DB    *sql.DB
	newID idgen.Generator

	// closed is shared with the owning Manager; nil for standalone
	// stores (tests).
	closed *atomic.Bool

	// compound-child-index presence, probed once per handle.
	compoundOnce sync.Once
	compoundOK   bool
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets a custom generator for auto-identified rows
// (search history).
func WithIDGenerator(gen idgen.Generator) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		DB:    db,
		newID: idgen.Prefixed("hist_", idgen.Default),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// guard fails fast with NotInitialized once the owning manager has closed
// the connection, instead of letting operations block or silently reopen.
func (s *Store) guard(op string) error {
	if s.closed != nil && s.closed.Load() {
		return fault.New(fault.NotInitialized, op, nil)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func encodeJSON(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeJSON(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	return v
}
