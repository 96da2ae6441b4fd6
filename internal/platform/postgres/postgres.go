package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"identity-gateway/internal/platform/config"
)

// OpenPgx builds a pgxpool for cfg. Connections are dialed lazily, so a
// reachable database is not required for this call to succeed.
func OpenPgx(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	dsn, err := WithSSLMode(cfg.URL, cfg.SSLMode)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return pool, nil
}

// OpenSQL builds a database/sql pool on the lib/pq driver.
func OpenSQL(cfg config.Database) (*sql.DB, error) {
	dsn, err := WithSSLMode(cfg.URL, cfg.SSLMode)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	return db, nil
}

// SQLState returns the Postgres error code carried by err, or "" when err did
// not come from the server.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
