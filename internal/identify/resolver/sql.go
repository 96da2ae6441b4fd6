package resolver

import (
	"context"
	"database/sql"
)

// SQLPool adapts a database/sql pool. Acquire pins one *sql.Conn so every
// statement of a call runs on the same session.
type SQLPool struct {
	db *sql.DB
}

// NewSQLPool wraps db.
func NewSQLPool(db *sql.DB) *SQLPool {
	return &SQLPool{db: db}
}

func (p *SQLPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return sqlConn{conn: conn}, nil
}

func (p *SQLPool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *SQLPool) Close() {
	_ = p.db.Close()
}

type sqlConn struct {
	conn *sql.Conn
}

func (c sqlConn) QueryRow(ctx context.Context, query string, args ...any) Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

func (c sqlConn) Release() {
	_ = c.conn.Close()
}
