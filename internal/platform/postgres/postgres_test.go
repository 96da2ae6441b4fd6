package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identity-gateway/internal/platform/config"
)

func TestSQLState(t *testing.T) {
	pgxErr := fmt.Errorf("invoke: %w", &pgconn.PgError{Code: "23505"})
	pqErr := fmt.Errorf("invoke: %w", &pq.Error{Code: "42883"})

	assert.Equal(t, "23505", SQLState(pgxErr))
	assert.Equal(t, "42883", SQLState(pqErr))
	assert.Empty(t, SQLState(errors.New("dial tcp: connection refused")))
}

func TestOpenPgxAppliesPoolSettings(t *testing.T) {
	pool, err := OpenPgx(context.Background(), config.Database{
		URL:      "postgres://gateway@127.0.0.1:1/contacts",
		SSLMode:  "disable",
		MaxConns: 7,
	})
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, int32(7), pool.Config().MaxConns)
}

func TestOpenPgxRejectsMalformedDSN(t *testing.T) {
	_, err := OpenPgx(context.Background(), config.Database{URL: "host=localhost port=notaport", SSLMode: "disable"})
	assert.Error(t, err)
}

func TestOpenSQLDoesNotDial(t *testing.T) {
	db, err := OpenSQL(config.Database{URL: "postgres://gateway@127.0.0.1:1/contacts", SSLMode: "disable", MaxConns: 3})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 3, db.Stats().MaxOpenConnections)
}

func TestUnsetSSLModeKeepsVerifyFullFromURL(t *testing.T) {
	cfg, err := config.FromMap(map[string]string{
		"DATABASE_URL": "postgres://u@db/contacts?sslmode=verify-full",
	})
	require.NoError(t, err)

	dsn, err := WithSSLMode(cfg.Database.URL, cfg.Database.SSLMode)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u@db/contacts?sslmode=verify-full", dsn)

	pool, err := OpenPgx(context.Background(), cfg.Database)
	require.NoError(t, err)
	defer pool.Close()
	assert.NotNil(t, pool.Config().ConnConfig.TLSConfig)
	assert.False(t, pool.Config().ConnConfig.TLSConfig.InsecureSkipVerify)
}
