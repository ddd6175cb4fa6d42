package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/marque/fault"
)

// TxOpts tunes the transaction executor.
type TxOpts struct {
	// Retries is the number of additional attempts after the first. 0
	// means try once. Default: 3.
	Retries int

	// Backoff is the base delay between attempts; attempt n sleeps
	// n*Backoff (linear). Default: 100ms.
	Backoff time.Duration

	// ReadOnly requests a read-only transaction.
	ReadOnly bool
}

func (o *TxOpts) defaults() {
	if o.Retries == 0 {
		o.Retries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 100 * time.Millisecond
	}
}

// IsBusy reports whether err indicates an SQLite BUSY condition.
// It checks for SQLITE_BUSY, "database is locked", and "database table is
// locked". This is the only place in marque that classifies errors by
// message text; everything above sees fault.TransactionAborted.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// RunTx executes fn inside a transaction with the default retry policy
// (3 retries, 100/200/300 ms linear backoff on BUSY).
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	return RunTxOpts(ctx, db, TxOpts{}, fn)
}

// RunTxOpts executes fn inside a transaction, retrying the whole closure on
// transient aborts. The transaction handle passed to fn must not outlive fn;
// fn must not await anything outside the database while it holds the handle.
// Application errors returned by fn propagate immediately without retry.
func RunTxOpts(ctx context.Context, db *sql.DB, opts TxOpts, fn func(*sql.Tx) error) error {
	opts.defaults()

	var last error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		err := runOnce(ctx, db, opts.ReadOnly, fn)
		if err == nil {
			return nil
		}
		if !fault.IsTransient(err) {
			return err
		}
		last = err
		if attempt == opts.Retries {
			break
		}
		delay := time.Duration(attempt+1) * opts.Backoff
		slog.Debug("transaction aborted, retrying", "attempt", attempt+1, "delay", delay)
		if err := sleepCtx(ctx, delay); err != nil {
			return fmt.Errorf("dbopen: context cancelled during retry: %w", err)
		}
	}
	return last
}

func runOnce(ctx context.Context, db *sql.DB, readOnly bool, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		if IsBusy(err) {
			return fault.New(fault.TransactionAborted, "dbopen.RunTx", err)
		}
		return fmt.Errorf("dbopen: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		if IsBusy(err) {
			return fault.New(fault.TransactionAborted, "dbopen.RunTx", err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		if IsBusy(err) {
			return fault.New(fault.TransactionAborted, "dbopen.RunTx", err)
		}
		return fmt.Errorf("dbopen: commit: %w", err)
	}
	return nil
}

// Exec executes a single statement with the same retry policy as RunTx.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	opts := TxOpts{}
	opts.defaults()

	var last error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		result, err := db.ExecContext(ctx, query, args...)
		if err == nil {
			return result, nil
		}
		if !IsBusy(err) {
			return nil, err
		}
		last = fault.New(fault.TransactionAborted, "dbopen.Exec", err)
		if attempt == opts.Retries {
			break
		}
		if err := sleepCtx(ctx, time.Duration(attempt+1)*opts.Backoff); err != nil {
			return nil, fmt.Errorf("dbopen: context cancelled during retry: %w", err)
		}
	}
	return nil, last
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
