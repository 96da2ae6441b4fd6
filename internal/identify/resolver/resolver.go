// Package resolver reaches the identify_contact routine in the contact store.
//
// The routine is a black box: it receives an email and a phone number and
// produces a JSON document, which is returned here as compact bytes without
// being interpreted. Two calling conventions are supported. In function mode
// the routine returns its result directly; in procedure mode it exposes the
// result as a trailing INOUT/OUT parameter, which PostgreSQL returns as the
// row of the CALL statement.
package resolver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"identity-gateway/pkg/platform/sentinel"
)

// Mode selects the routine's calling convention.
type Mode string

const (
	ModeFunction  Mode = "function"
	ModeProcedure Mode = "procedure"
)

// DefaultRoutine is the routine name used when none is configured.
const DefaultRoutine = "identify_contact"

// Row is a single result row.
type Row interface {
	Scan(dest ...any) error
}

// Conn is a connection checked out of a Pool for exclusive use. Release
// returns it to the pool and must be called exactly once.
type Conn interface {
	QueryRow(ctx context.Context, query string, args ...any) Row
	Release()
}

// Pool hands out connections to the contact store.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Ping(ctx context.Context) error
	Close()
}

// Params are the routine arguments. An empty field is sent as SQL NULL.
type Params struct {
	Email       string
	PhoneNumber string
}

// Invoker runs the routine on an acquired connection.
type Invoker struct {
	mode    Mode
	routine string
	query   string
	tracer  trace.Tracer
}

// New builds an Invoker for routine, which may be schema-qualified
// ("contacts.identify_contact"). Each name part is quoted, so it must match
// the routine's stored (normally lower-case) spelling.
func New(mode Mode, routine string) (*Invoker, error) {
	if routine == "" {
		routine = DefaultRoutine
	}
	parts := strings.Split(routine, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid routine name %q", routine)
		}
	}
	ident := pgx.Identifier(parts).Sanitize()

	var query string
	switch mode {
	case ModeFunction:
		query = "SELECT " + ident + "($1, $2) AS result_json"
	case ModeProcedure:
		query = "CALL " + ident + "($1, $2, NULL)"
	default:
		return nil, fmt.Errorf("unknown resolver mode %q", mode)
	}

	return &Invoker{
		mode:    mode,
		routine: routine,
		query:   query,
		tracer:  otel.Tracer("identity-gateway/resolver"),
	}, nil
}

// Mode reports the calling convention in use.
func (i *Invoker) Mode() Mode {
	return i.mode
}

// Query is the SQL statement issued for each call.
func (i *Invoker) Query() string {
	return i.query
}

// Invoke calls the routine once on conn and returns its result as compact
// JSON. A SQL NULL result is returned as the JSON literal null.
func (i *Invoker) Invoke(ctx context.Context, conn Conn, params Params) (json.RawMessage, error) {
	ctx, span := i.tracer.Start(ctx, "resolver.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation.name", strings.Fields(i.query)[0]),
			attribute.String("resolver.routine", i.routine),
			attribute.String("resolver.mode", string(i.mode)),
		),
	)
	defer span.End()

	result, err := i.invoke(ctx, conn, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolver invocation failed")
		return nil, err
	}
	return result, nil
}

func (i *Invoker) invoke(ctx context.Context, conn Conn, params Params) (json.RawMessage, error) {
	var raw []byte
	err := conn.QueryRow(ctx, i.query, nullable(params.Email), nullable(params.PhoneNumber)).Scan(&raw)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%s %s: %w", i.mode, i.routine, sentinel.ErrNoResult)
		}
		return nil, fmt.Errorf("%s %s: %w", i.mode, i.routine, err)
	}
	if raw == nil {
		return json.RawMessage("null"), nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %v", i.mode, i.routine, sentinel.ErrInvalidResult, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}
