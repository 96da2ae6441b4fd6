package resolver

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool adapts a pgxpool.Pool.
type PgxPool struct {
	pool *pgxpool.Pool
}

// NewPgxPool wraps pool.
func NewPgxPool(pool *pgxpool.Pool) *PgxPool {
	return &PgxPool{pool: pool}
}

func (p *PgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return pgxConn{conn: conn}, nil
}

func (p *PgxPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PgxPool) Close() {
	p.pool.Close()
}

type pgxConn struct {
	conn *pgxpool.Conn
}

func (c pgxConn) QueryRow(ctx context.Context, query string, args ...any) Row {
	return c.conn.QueryRow(ctx, query, args...)
}

func (c pgxConn) Release() {
	c.conn.Release()
}
