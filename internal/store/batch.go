package store

import (
	"context"
	"database/sql"
	"log/slog"
	"runtime"

	"github.com/hazyhaar/marque/dbopen"
	"github.com/hazyhaar/marque/fault"
)

// Batch sizing thresholds. Tunable constants, not load-bearing correctness:
// small corpora fit one transaction, large ones are chunked so a
// long-running writer never starves readers.
const (
	smallCorpus   = 1_000   // below this, one chunk
	hugeCorpus    = 100_000 // above this, cap chunks harder
	baselineChunk = 500
	richChunk     = 2_000
	cappedChunk   = 250
)

// SizePolicy picks a chunk size for a batch of total records.
type SizePolicy func(total int) int

// DefaultSizePolicy implements the device-aware sizing: one transaction for
// small corpora, a larger baseline on beefy hosts, and a harder cap for
// very large corpora. CPU count stands in for device class; portable memory
// probing is not available from the runtime.
func DefaultSizePolicy(total int) int {
	if total <= smallCorpus {
		if total < 1 {
			return 1
		}
		return total
	}
	size := baselineChunk
	if runtime.NumCPU() >= 8 {
		size = richChunk
	}
	if total > hugeCorpus {
		size = cappedChunk
	}
	return size
}

// BatchOptions tunes a bulk write.
type BatchOptions struct {
	// BatchSize fixes the chunk size; 0 delegates to SizePolicy.
	BatchSize int

	// SizePolicy computes the chunk size when BatchSize is 0.
	// Defaults to DefaultSizePolicy.
	SizePolicy SizePolicy

	// OnProgress is called after each chunk with (processed, total).
	OnProgress func(processed, total int)

	// OnError is called for each record that failed inside a chunk.
	// Per-record failures never abort sibling records or the chunk's
	// transaction.
	OnError func(id string, err error)

	// Tx tunes the per-chunk transaction retry.
	Tx dbopen.TxOpts
}

func (o *BatchOptions) chunkSize(total int) int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	policy := o.SizePolicy
	if policy == nil {
		policy = DefaultSizePolicy
	}
	size := policy(total)
	if size < 1 {
		size = 1
	}
	return size
}

// BatchSummary reports the true outcome of a bulk write. Processed counts
// every attempted record; Failed counts the subset reported through
// OnError. Processed == Total always holds on a completed batch.
type BatchSummary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// InsertMany writes records in sized chunks, one retried transaction per
// chunk, yielding between chunks so a host UI stays responsive. No ordering
// is guaranteed between or within chunks beyond all puts being attempted.
func (s *Store) InsertMany(ctx context.Context, records []*Bookmark, opts BatchOptions) (BatchSummary, error) {
	return s.writeMany(ctx, "store.InsertMany", records, opts)
}

// UpdateMany is InsertMany with replace semantics for existing rows; with
// INSERT OR REPLACE storage the two share one implementation.
func (s *Store) UpdateMany(ctx context.Context, records []*Bookmark, opts BatchOptions) (BatchSummary, error) {
	return s.writeMany(ctx, "store.UpdateMany", records, opts)
}

func (s *Store) writeMany(ctx context.Context, op string, records []*Bookmark, opts BatchOptions) (BatchSummary, error) {
	summary := BatchSummary{Total: len(records)}
	if err := s.guard(op); err != nil {
		return summary, err
	}
	if len(records) == 0 {
		report(opts.OnProgress, 0, 0)
		return summary, nil
	}

	size := opts.chunkSize(len(records))
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		chunk := records[start:end]

		// Per-record failures are staged per attempt: a chunk retried
		// after a transient abort must not double-report them.
		var failed []recordFailure
		err := dbopen.RunTxOpts(ctx, s.DB, opts.Tx, func(tx *sql.Tx) error {
			failed = failed[:0]
			for _, b := range chunk {
				if err := s.putOne(ctx, tx, b); err != nil {
					// Application-level row failure: report,
					// keep the chunk's transaction alive.
					failed = append(failed, recordFailure{recordID(b), err})
				}
			}
			return nil
		})
		if err != nil {
			// The whole chunk's transaction failed (retries
			// exhausted); its rows were rolled back.
			return summary, err
		}

		summary.Failed += len(failed)
		for _, f := range failed {
			reportErr(opts.OnError, f.id, f.err)
		}
		summary.Processed += len(chunk)
		report(opts.OnProgress, summary.Processed, summary.Total)

		if err := yield(ctx); err != nil {
			return summary, err
		}
	}
	if summary.Failed > 0 {
		slog.Warn("batch completed with record failures",
			"op", op, "failed", summary.Failed, "total", summary.Total)
	}
	return summary, nil
}

func (s *Store) putOne(ctx context.Context, tx *sql.Tx, b *Bookmark) error {
	if err := validate(b); err != nil {
		return err
	}
	Normalize(b)
	if err := putBookmarkTx(ctx, tx, b); err != nil {
		return fault.New(fault.RecordWriteFailed, "store.putOne", err)
	}
	return nil
}

// DeleteMany removes ids in sized chunks with the same progress, error
// isolation and yield semantics as InsertMany.
func (s *Store) DeleteMany(ctx context.Context, ids []string, opts BatchOptions) (BatchSummary, error) {
	summary := BatchSummary{Total: len(ids)}
	if err := s.guard("store.DeleteMany"); err != nil {
		return summary, err
	}
	if len(ids) == 0 {
		report(opts.OnProgress, 0, 0)
		return summary, nil
	}

	size := opts.chunkSize(len(ids))
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunk := ids[start:end]

		var failed []recordFailure
		err := dbopen.RunTxOpts(ctx, s.DB, opts.Tx, func(tx *sql.Tx) error {
			failed = failed[:0]
			for _, id := range chunk {
				if err := deleteBookmarkTx(ctx, tx, id); err != nil {
					failed = append(failed, recordFailure{id,
						fault.New(fault.RecordWriteFailed, "store.DeleteMany", err)})
				}
			}
			return nil
		})
		if err != nil {
			return summary, err
		}

		summary.Failed += len(failed)
		for _, f := range failed {
			reportErr(opts.OnError, f.id, f.err)
		}
		summary.Processed += len(chunk)
		report(opts.OnProgress, summary.Processed, summary.Total)

		if err := yield(ctx); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// yield hands the scheduler a turn between chunks and honours
// cancellation. The SQLite handle is never held across the yield.
func yield(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		runtime.Gosched()
		return nil
	}
}

func report(fn func(int, int), processed, total int) {
	if fn != nil {
		fn(processed, total)
	}
}

func reportErr(fn func(string, error), id string, err error) {
	if fn != nil {
		fn(id, err)
	}
}

type recordFailure struct {
	id  string
	err error
}

func recordID(b *Bookmark) string {
	if b == nil {
		return ""
	}
	return b.ID
}
