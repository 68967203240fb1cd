package inventory

import (
	"context"
	"embed"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/hostelkit/pkg/pg"
	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// Migrations holds the goose migrations of the inventory schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations.
const MigrationsDir = "migrations"

type pgStore struct {
	pool    *pgxpool.Pool
	retries int
}

// NewPGStore returns a Store on PostgreSQL. Apply Migrations first.
func NewPGStore(pool *pgxpool.Pool, txRetries int) Store {
	if pool == nil {
		panic("inventory: pgxpool.Pool is required")
	}
	return &pgStore{pool: pool, retries: txRetries}
}

func ownerLockKey(ownerID string) string { return "inventory:owner:" + ownerID }

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *pgStore) Locked(ctx context.Context, ownerID string, fn func(ctx context.Context, w Writer) error) error {
	err := pg.WithTx(ctx, s.pool, pgx.ReadCommitted, s.retries, func(ctx context.Context, tx pgx.Tx) error {
		if err := pg.AdvisoryXactLock(ctx, tx, ownerLockKey(ownerID)); err != nil {
			return err
		}
		return fn(ctx, &pgWriter{tx: tx})
	})
	if errors.Is(err, pg.ErrTxFailed) {
		return billing.Storage(err)
	}
	return err
}

func (s *pgStore) Usage(ctx context.Context, ownerID string) (Usage, error) {
	return usage(ctx, s.pool, ownerID)
}

func (s *pgStore) Property(ctx context.Context, id string) (*Property, error) {
	return property(ctx, s.pool, id)
}

func (s *pgStore) Properties(ctx context.Context, ownerID string) ([]*Property, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name, created_at FROM properties WHERE owner_id = $1 ORDER BY created_at, name`,
		ownerID)
	if err != nil {
		return nil, billing.Storage(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Property, error) {
		var p Property
		err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.CreatedAt)
		return &p, err
	})
	if err != nil {
		return nil, billing.Storage(err)
	}
	return out, nil
}

func (s *pgStore) Rooms(ctx context.Context, propertyID string) ([]*Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, property_id, owner_id, floor, room_number, bed_count, status, created_at
		FROM rooms WHERE property_id = $1 ORDER BY floor, room_number`,
		propertyID)
	if err != nil {
		return nil, billing.Storage(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Room, error) {
		var r Room
		err := row.Scan(&r.ID, &r.PropertyID, &r.OwnerID, &r.Floor, &r.RoomNumber, &r.BedCount, &r.Status, &r.CreatedAt)
		return &r, err
	})
	if err != nil {
		return nil, billing.Storage(err)
	}
	return out, nil
}

func usage(ctx context.Context, q querier, ownerID string) (Usage, error) {
	var u Usage
	err := q.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM properties WHERE owner_id = $1),
			(SELECT count(*) FROM rooms WHERE owner_id = $1 AND status = 'active'),
			(SELECT count(*) FROM beds WHERE owner_id = $1 AND status = 'active')`,
		ownerID).Scan(&u.Properties, &u.Rooms, &u.Beds)
	if err != nil {
		return Usage{}, billing.Storage(err)
	}
	return u, nil
}

func property(ctx context.Context, q querier, id string) (*Property, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPropertyNotFound
	}
	var p Property
	err := q.QueryRow(ctx,
		`SELECT id, owner_id, name, created_at FROM properties WHERE id = $1`,
		id).Scan(&p.ID, &p.OwnerID, &p.Name, &p.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, billing.Storage(err)
	}
	return &p, nil
}

type pgWriter struct {
	tx pgx.Tx
}

func (w *pgWriter) Usage(ctx context.Context, ownerID string) (Usage, error) {
	return usage(ctx, w.tx, ownerID)
}

func (w *pgWriter) Property(ctx context.Context, id string) (*Property, error) {
	return property(ctx, w.tx, id)
}

func (w *pgWriter) InsertProperty(ctx context.Context, p *Property) error {
	sp, err := w.tx.Begin(ctx)
	if err != nil {
		return billing.Storage(err)
	}
	defer func() { _ = sp.Rollback(context.WithoutCancel(ctx)) }()

	_, err = sp.Exec(ctx,
		`INSERT INTO properties (id, owner_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.OwnerID, p.Name, p.CreatedAt)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateProperty
	}
	if err != nil {
		return billing.Storage(err)
	}
	if err := sp.Commit(ctx); err != nil {
		return billing.Storage(err)
	}
	return nil
}

// InsertRoom runs inside a savepoint so a failed row does not abort the
// surrounding transaction.
func (w *pgWriter) InsertRoom(ctx context.Context, r *Room, beds []*Bed) (Outcome, error) {
	sp, err := w.tx.Begin(ctx)
	if err != nil {
		return Created, billing.Storage(err)
	}
	defer func() { _ = sp.Rollback(context.WithoutCancel(ctx)) }()

	var id string
	err = sp.QueryRow(ctx, `
		INSERT INTO rooms (id, property_id, owner_id, floor, room_number, bed_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ON CONSTRAINT rooms_property_floor_number_key DO NOTHING
		RETURNING id`,
		r.ID, r.PropertyID, r.OwnerID, r.Floor, r.RoomNumber, r.BedCount, r.Status, r.CreatedAt,
	).Scan(&id)
	if pg.IsNotFoundError(err) {
		return Duplicate, nil
	}
	if err != nil {
		return Created, billing.Storage(err)
	}

	rows := make([][]any, len(beds))
	for i, b := range beds {
		rows[i] = []any{b.ID, b.RoomID, b.PropertyID, b.OwnerID, b.Label, string(b.Status), b.CreatedAt}
	}
	if _, err := sp.CopyFrom(ctx,
		pgx.Identifier{"beds"},
		[]string{"id", "room_id", "property_id", "owner_id", "label", "status", "created_at"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return Created, billing.Storage(err)
	}

	if err := sp.Commit(ctx); err != nil {
		return Created, billing.Storage(err)
	}
	return Created, nil
}
