package pg

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx runs fn in a transaction at the given isolation level and commits
// when fn returns nil. Serialization failures are replayed up to retries times.
func WithTx(ctx context.Context, pool *pgxpool.Pool, iso pgx.TxIsoLevel, retries int, fn func(ctx context.Context, tx pgx.Tx) error) error {
	var err error
	for range max(retries, 1) {
		err = runTx(ctx, pool, iso, fn)
		if err == nil || !IsSerializationFailure(err) {
			return err
		}
	}
	return err
}

func runTx(ctx context.Context, pool *pgxpool.Pool, iso pgx.TxIsoLevel, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return errors.Join(ErrTxFailed, err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrTxFailed, err)
	}
	return nil
}

// AdvisoryXactLock blocks until the transaction-scoped advisory lock for key
// is held. The lock is released on commit or rollback.
func AdvisoryXactLock(ctx context.Context, tx pgx.Tx, key string) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", LockID(key)); err != nil {
		return errors.Join(ErrTxFailed, err)
	}
	return nil
}

// LockID hashes key into the int64 space used by advisory locks.
func LockID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}
