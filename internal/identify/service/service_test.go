package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"identity-gateway/internal/identify"
	"identity-gateway/internal/identify/metrics"
	"identity-gateway/internal/identify/resolver"
	"identity-gateway/internal/identify/resolver/resolvertest"
	dErrors "identity-gateway/pkg/domain-errors"
	"identity-gateway/pkg/platform/sentinel"
	"identity-gateway/pkg/requestcontext"
)

const contactJSON = `{"contact":{"primaryContactId":1,"emails":["a@x.com"],"phoneNumbers":["123"],"secondaryContactIds":[]}}`

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	logs    *bytes.Buffer
	logger  *slog.Logger
	metrics *metrics.Metrics
	invoker *resolver.Invoker
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithRequestID(context.Background(), "req-1")
	s.logs = &bytes.Buffer{}
	s.logger = slog.New(slog.NewTextHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s.metrics = metrics.New(prometheus.NewRegistry())

	inv, err := resolver.New(resolver.ModeFunction, resolver.DefaultRoutine)
	s.Require().NoError(err)
	s.invoker = inv
}

func (s *ServiceSuite) newService(pool resolver.Pool, opts ...Option) *Service {
	opts = append([]Option{WithMetrics(s.metrics)}, opts...)
	return New(pool, s.invoker, s.logger, opts...)
}

func (s *ServiceSuite) outcome(name string) float64 {
	return promtest.ToFloat64(s.metrics.Requests.WithLabelValues(name))
}

func (s *ServiceSuite) TestIdentifyReturnsResolverResult() {
	pool := resolvertest.NewPool(contactJSON)
	svc := s.newService(pool)

	result, err := svc.Identify(s.ctx, identify.Request{Email: "a@x.com", PhoneNumber: "123"})
	s.Require().NoError(err)

	s.Equal(contactJSON, string(result))
	s.Equal(1, pool.Acquired())
	s.Equal(1, pool.Released())
	s.Len(pool.Calls(), 1)
	s.Equal([]any{"a@x.com", "123"}, pool.Calls()[0].Args)
	s.Equal(float64(1), s.outcome(metrics.OutcomeSuccess))
}

func (s *ServiceSuite) TestIdentifyValidationSkipsPool() {
	pool := resolvertest.NewPool(contactJSON)
	svc := s.newService(pool)

	for _, req := range []identify.Request{
		{Email: "a@x.com"},
		{PhoneNumber: "123"},
		{},
	} {
		_, err := svc.Identify(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	}

	s.Zero(pool.Acquired())
	s.Empty(pool.Calls())
	s.Equal(float64(3), s.outcome(metrics.OutcomeValidation))
	s.NotContains(s.logs.String(), "level=ERROR")
}

func (s *ServiceSuite) TestIdentifyAnyPolicy() {
	pool := resolvertest.NewPool(contactJSON)
	svc := s.newService(pool, WithPolicy(identify.PolicyAny))

	_, err := svc.Identify(s.ctx, identify.Request{PhoneNumber: "123"})
	s.Require().NoError(err)
	s.Equal([]any{nil, "123"}, pool.Calls()[0].Args)
}

func (s *ServiceSuite) TestIdentifyAcquireFailure() {
	pool := &resolvertest.Pool{AcquireErr: errors.New("connection refused")}
	svc := s.newService(pool)

	_, err := svc.Identify(s.ctx, identify.Request{Email: "a@x.com", PhoneNumber: "123"})
	s.Require().Error(err)

	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.ErrorIs(err, sentinel.ErrUnavailable)
	s.Empty(pool.Calls(), "resolver must not run without a connection")
	s.Zero(pool.Released())
	s.Contains(s.logs.String(), "failed to acquire database connection")
	s.Contains(s.logs.String(), "connection refused")
	s.Contains(s.logs.String(), "request_id=req-1")
	s.Equal(float64(1), s.outcome(metrics.OutcomePoolError))
}

func (s *ServiceSuite) TestIdentifyResolverFailureReleasesConnection() {
	pool := &resolvertest.Pool{QueryErr: &pgconn.PgError{Code: "23505", Message: "duplicate key value"}}
	svc := s.newService(pool)

	_, err := svc.Identify(s.ctx, identify.Request{Email: "a@x.com", PhoneNumber: "123"})
	s.Require().Error(err)

	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(1, pool.Acquired())
	s.Equal(1, pool.Released())
	s.Contains(s.logs.String(), "contact resolver failed")
	s.Contains(s.logs.String(), "sqlstate=23505")
	s.Equal(float64(1), s.outcome(metrics.OutcomeResolverError))
}

func (s *ServiceSuite) TestIdentifyRepeatedPairBehavesTheSame() {
	pool := resolvertest.NewPool(contactJSON)
	svc := s.newService(pool)
	req := identify.Request{Email: "a@x.com", PhoneNumber: "123"}

	first, err := svc.Identify(s.ctx, req)
	s.Require().NoError(err)
	second, err := svc.Identify(s.ctx, req)
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Equal(2, pool.Acquired())
	s.Equal(2, pool.Released())
}

func (s *ServiceSuite) TestIdentifyIgnoresCallerCancellation() {
	var sawCancelled bool
	pool := &resolvertest.Pool{OnQuery: func(ctx context.Context, _ string, _ ...any) ([]byte, error) {
		sawCancelled = ctx.Err() != nil
		return []byte(contactJSON), nil
	}}
	svc := s.newService(pool)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := svc.Identify(ctx, identify.Request{Email: "a@x.com", PhoneNumber: "123"})
	s.Require().NoError(err)
	s.False(sawCancelled)
}

func (s *ServiceSuite) TestIdentifyAppliesTimeout() {
	var deadline time.Time
	var hasDeadline bool
	pool := &resolvertest.Pool{OnQuery: func(ctx context.Context, _ string, _ ...any) ([]byte, error) {
		deadline, hasDeadline = ctx.Deadline()
		return []byte(contactJSON), nil
	}}
	svc := s.newService(pool, WithTimeout(time.Second))

	_, err := svc.Identify(s.ctx, identify.Request{Email: "a@x.com", PhoneNumber: "123"})
	s.Require().NoError(err)
	s.True(hasDeadline)
	s.WithinDuration(time.Now().Add(time.Second), deadline, time.Second)
}

func (s *ServiceSuite) TestReady() {
	s.NoError(s.newService(&resolvertest.Pool{}).Ready(s.ctx))

	err := s.newService(&resolvertest.Pool{PingErr: errors.New("timeout")}).Ready(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ServiceSuite) TestProbe() {
	pool := &resolvertest.Pool{}
	s.NoError(s.newService(pool).Probe(s.ctx))
	s.Equal(1, pool.Released())
	s.Contains(s.logs.String(), "connected to postgres")

	s.logs.Reset()
	s.Error(s.newService(&resolvertest.Pool{AcquireErr: errors.New("no route to host")}).Probe(s.ctx))
	s.Contains(s.logs.String(), "error connecting to postgres")
}

// Each concurrent request checks out and returns its own connection.
func TestIdentifyConcurrentRequestsReleaseEveryConnection(t *testing.T) {
	pool := resolvertest.NewPool(contactJSON)
	inv, err := resolver.New(resolver.ModeFunction, resolver.DefaultRoutine)
	require.NoError(t, err)
	svc := New(pool, inv, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	const requests = 64
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Identify(context.Background(), identify.Request{Email: "a@x.com", PhoneNumber: "123"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, requests, pool.Acquired())
	assert.Equal(t, requests, pool.Released())
}
