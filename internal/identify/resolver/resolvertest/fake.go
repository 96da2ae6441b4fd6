// Package resolvertest provides an in-memory Pool that records checkouts,
// releases and statements, for tests of code built on resolver.Pool.
package resolvertest

import (
	"context"
	"errors"
	"sync"

	"identity-gateway/internal/identify/resolver"
)

// Call is one statement issued on a fake connection.
type Call struct {
	Query string
	Args  []any
}

// Pool is a fake resolver.Pool. Result is what each statement's row scans
// into its single destination; nil with no error scans a SQL NULL.
type Pool struct {
	mu sync.Mutex

	AcquireErr error
	PingErr    error
	Result     []byte
	QueryErr   error
	// OnQuery, when set, overrides Result and QueryErr.
	OnQuery func(ctx context.Context, query string, args ...any) ([]byte, error)

	acquired int
	released int
	closed   bool
	calls    []Call
}

// NewPool returns a fake whose statements all produce result.
func NewPool(result string) *Pool {
	return &Pool{Result: []byte(result)}
}

func (p *Pool) Acquire(ctx context.Context) (resolver.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.AcquireErr != nil {
		return nil, p.AcquireErr
	}
	p.acquired++
	return &conn{pool: p}, nil
}

func (p *Pool) Ping(ctx context.Context) error {
	return p.PingErr
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Acquired is the number of successful checkouts.
func (p *Pool) Acquired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired
}

// Released is the number of Release calls across all connections.
func (p *Pool) Released() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// Closed reports whether Close was called.
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Calls returns the statements issued so far.
func (p *Pool) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

type conn struct {
	pool     *Pool
	released bool
}

func (c *conn) QueryRow(ctx context.Context, query string, args ...any) resolver.Row {
	p := c.pool
	p.mu.Lock()
	p.calls = append(p.calls, Call{Query: query, Args: args})
	onQuery, result, queryErr := p.OnQuery, p.Result, p.QueryErr
	p.mu.Unlock()

	if onQuery != nil {
		result, queryErr = onQuery(ctx, query, args...)
	}
	return row{data: result, err: queryErr}
}

func (c *conn) Release() {
	p := c.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.released {
		panic("resolvertest: connection released twice")
	}
	c.released = true
	p.released++
}

type row struct {
	data []byte
	err  error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return errors.New("resolvertest: expected one scan destination")
	}
	target, ok := dest[0].(*[]byte)
	if !ok {
		return errors.New("resolvertest: expected *[]byte destination")
	}
	if r.data == nil {
		*target = nil
		return nil
	}
	*target = append([]byte(nil), r.data...)
	return nil
}
