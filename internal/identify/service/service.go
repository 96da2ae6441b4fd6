package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"identity-gateway/internal/identify"
	"identity-gateway/internal/identify/metrics"
	"identity-gateway/internal/identify/resolver"
	"identity-gateway/internal/platform/postgres"
	dErrors "identity-gateway/pkg/domain-errors"
	"identity-gateway/pkg/platform/sentinel"
	"identity-gateway/pkg/requestcontext"
)

// Invoker runs the contact resolver on a checked-out connection.
type Invoker interface {
	Invoke(ctx context.Context, conn resolver.Conn, params resolver.Params) (json.RawMessage, error)
	Mode() resolver.Mode
}

// Service owns the identify request lifecycle: validate, check out one
// connection, invoke the resolver once, release the connection.
type Service struct {
	pool    resolver.Pool
	invoker Invoker
	logger  *slog.Logger
	metrics *metrics.Metrics
	policy  identify.Policy
	timeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy sets the identifier policy. The default is identify.PolicyBoth.
func WithPolicy(policy identify.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithTimeout bounds each resolver call, including the wait for a connection.
// Zero means no bound beyond the driver's own.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithMetrics records outcomes and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs the service around an injected pool.
func New(pool resolver.Pool, invoker Invoker, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		pool:    pool,
		invoker: invoker,
		logger:  logger,
		policy:  identify.PolicyBoth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identify validates req and returns the resolver's JSON result. Validation
// failures are CodeValidation errors and never touch the pool. Every other
// failure is a CodeInternal error and has already been logged.
//
// The call is detached from ctx cancellation: a client that goes away does
// not abort a resolver call that may be merging contacts.
func (s *Service) Identify(ctx context.Context, req identify.Request) (json.RawMessage, error) {
	if err := req.Validate(s.policy); err != nil {
		s.countOutcome(metrics.OutcomeValidation)
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	requestID := requestcontext.RequestID(ctx)

	acquireStart := time.Now()
	conn, err := s.pool.Acquire(ctx)
	if s.metrics != nil {
		s.metrics.ObserveAcquire(acquireStart)
	}
	if err != nil {
		s.countOutcome(metrics.OutcomePoolError)
		s.logger.ErrorContext(ctx, "failed to acquire database connection",
			"request_id", requestID,
			"error", err,
		)
		return nil, dErrors.Wrap(fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err), dErrors.CodeInternal, "acquire connection")
	}
	defer conn.Release()

	mode := string(s.invoker.Mode())
	start := time.Now()
	result, err := s.invoker.Invoke(ctx, conn, resolver.Params{
		Email:       string(req.Email),
		PhoneNumber: string(req.PhoneNumber),
	})
	if s.metrics != nil {
		s.metrics.ObserveResolver(mode, start)
	}
	if err != nil {
		s.countOutcome(metrics.OutcomeResolverError)
		s.logger.ErrorContext(ctx, "contact resolver failed",
			"request_id", requestID,
			"resolver_mode", mode,
			"sqlstate", postgres.SQLState(err),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "invoke contact resolver")
	}

	s.countOutcome(metrics.OutcomeSuccess)
	s.logger.DebugContext(ctx, "contact identified",
		"request_id", requestID,
		"resolver_mode", mode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Ready pings the pool.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "database ping failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "ping database")
	}
	return nil
}

// Probe checks out and returns one connection, logging the outcome. It is
// run once at startup; a failure is reported but does not stop the process.
func (s *Service) Probe(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "error connecting to postgres", "error", err)
		return err
	}
	conn.Release()
	s.logger.InfoContext(ctx, "connected to postgres")
	return nil
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementOutcome(outcome)
	}
}
