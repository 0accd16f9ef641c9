package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/DeliverySync/internal/config"
	"github.com/JonMunkholm/DeliverySync/internal/core"
)

//go:embed schema/postgres.sql
var postgresSchema string

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

var orderColumns = []string{
	"id", "order_code", "order_date", "delivery_date",
	"customer_code", "customer_name", "customer_email", "customer_phone",
	"seller_name", "city", "state", "carrier_name",
	"status", "last_updated_at",
}

const selectOrder = `SELECT id, order_code, order_date, delivery_date,
	customer_code, customer_name, customer_email, customer_phone,
	seller_name, city, state, carrier_name,
	status, last_updated_at
FROM orders`

// Postgres stores orders in PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgresPool parses cfg.URL, applies pool limits and verifies the
// connection.
func NewPostgresPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the orders table and its unique order_code index.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate orders: %w", err)
	}
	return nil
}

func (p *Postgres) FindByCode(ctx context.Context, code string) (*core.OrderRecord, error) {
	row := p.pool.QueryRow(ctx, selectOrder+` WHERE order_code = $1`, code)
	return scanOrder(row)
}

func (p *Postgres) FindByID(ctx context.Context, id string) (*core.OrderRecord, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, core.ErrNotFound
	}
	row := p.pool.QueryRow(ctx, selectOrder+` WHERE id = $1`, pgtype.UUID{Bytes: u, Valid: true})
	return scanOrder(row)
}

// InsertMany copies all records inside one transaction. A unique violation
// rolls back the whole batch.
func (p *Postgres) InsertMany(ctx context.Context, records []core.OrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op once committed

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"orders"}, orderColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return orderValues(records[i])
		}),
	)
	if err != nil {
		return translatePgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit orders: %w", translatePgError(err))
	}
	return nil
}

func (p *Postgres) UpdateStatus(ctx context.Context, code string, status core.OrderStatus, at time.Time) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE orders SET status = $2, last_updated_at = $3 WHERE order_code = $1`,
		code, string(status), timestamptz(at),
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func orderValues(r core.OrderRecord) ([]any, error) {
	u := uuid.New()
	if r.ID != "" {
		var err error
		if u, err = uuid.Parse(r.ID); err != nil {
			return nil, fmt.Errorf("order %s: invalid id %q: %w", r.OrderCode, r.ID, err)
		}
	}
	id := pgtype.UUID{Bytes: u, Valid: true}

	return []any{
		id, r.OrderCode, r.OrderDate, r.DeliveryDate,
		r.CustomerCode, r.CustomerName, r.CustomerEmail, r.CustomerPhone,
		r.SellerName, r.City, r.State, r.CarrierName,
		string(r.Status), timestamptz(r.LastUpdatedAt),
	}, nil
}

func scanOrder(row pgx.Row) (*core.OrderRecord, error) {
	var (
		rec     core.OrderRecord
		id      pgtype.UUID
		status  string
		updated pgtype.Timestamptz
	)

	err := row.Scan(
		&id, &rec.OrderCode, &rec.OrderDate, &rec.DeliveryDate,
		&rec.CustomerCode, &rec.CustomerName, &rec.CustomerEmail, &rec.CustomerPhone,
		&rec.SellerName, &rec.City, &rec.State, &rec.CarrierName,
		&status, &updated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if id.Valid {
		rec.ID = uuid.UUID(id.Bytes).String()
	}
	rec.Status = core.OrderStatus(status)
	if updated.Valid {
		rec.LastUpdatedAt = updated.Time
	}
	return &rec, nil
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

// translatePgError maps a unique violation on order_code to ErrDuplicateCode,
// keeping the server message.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, pgErr.Message)
	}
	return err
}
