package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/joao-fontenele/storefront-sync/internal/telemetry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewMigrate returns a migrate instance over the embedded postgres migrations.
func NewMigrate(dsn string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateUp applies pending migrations. No pending migrations is not an error.
func MigrateUp(dsn string) error {
	m, err := NewMigrate(dsn)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

type Postgres struct {
	db     *sql.DB
	origin string
}

func OpenPostgres(ctx context.Context, dsn, origin string) (*Postgres, error) {
	if err := MigrateUp(dsn); err != nil {
		return nil, err
	}

	db, err := telemetry.OpenPostgres(dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Postgres{db: db, origin: origin}, nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT value FROM storefront.kv WHERE origin = $1 AND key = $2
	`, p.origin, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO storefront.kv (origin, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (origin, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, p.origin, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `
		DELETE FROM storefront.kv WHERE origin = $1 AND key = $2
	`, p.origin, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
