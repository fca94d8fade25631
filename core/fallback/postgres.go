package fallback

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PGStore implements Store on Postgres. Records are upserted wholesale, so
// a reader always sees either the previous payload or the new one, never a
// partial write.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed fallback store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Migrate applies the fallback schema migrations to the database at dsn.
// Called once at process start before the store is used.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply fallback migrations: %w", err)
	}
	return nil
}

// Get returns the record for shapeKey if one exists.
func (s *PGStore) Get(ctx context.Context, shapeKey string) (Record, bool, error) {
	rec := Record{ShapeKey: shapeKey}
	err := s.pool.QueryRow(ctx,
		`SELECT payload, refreshed_at FROM fallback_records WHERE shape_key = $1`,
		shapeKey,
	).Scan(&rec.Payload, &rec.RefreshedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("select fallback record: %w", err)
	}
	return rec, true, nil
}

// Put upserts the record for shapeKey.
func (s *PGStore) Put(ctx context.Context, shapeKey string, payload []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fallback_records (shape_key, payload, refreshed_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (shape_key)
		 DO UPDATE SET payload = EXCLUDED.payload, refreshed_at = now()`,
		shapeKey, payload,
	)
	if err != nil {
		return fmt.Errorf("upsert fallback record: %w", err)
	}
	return nil
}

// Healthcheck reports whether the underlying pool is reachable.
func (s *PGStore) Healthcheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
