package metrics

import (
	"database/sql"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a registry carrying the Go runtime and process collectors.
// Module metrics register against it rather than the global default so tests
// can build isolated instances.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// RegisterSQLPool exposes database/sql pool statistics.
func RegisterSQLPool(reg prometheus.Registerer, db *sql.DB) {
	reg.MustRegister(collectors.NewDBStatsCollector(db, "contacts"))
}

// RegisterPgxPool exposes pgxpool statistics as gauges read at scrape time.
func RegisterPgxPool(reg prometheus.Registerer, pool *pgxpool.Pool) {
	factory := promauto.With(reg)
	gauge := func(name, help string, read func(*pgxpool.Stat) float64) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "identity_gateway_pool_" + name,
			Help:        help,
			ConstLabels: prometheus.Labels{"db_name": "contacts"},
		}, func() float64 {
			return read(pool.Stat())
		})
	}
	gauge("max_conns", "Maximum size of the connection pool", func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) })
	gauge("total_conns", "Connections currently open", func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) })
	gauge("acquired_conns", "Connections currently checked out", func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) })
	gauge("idle_conns", "Connections currently idle", func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name:        "identity_gateway_pool_empty_acquire_total",
		Help:        "Acquires that waited because the pool was empty",
		ConstLabels: prometheus.Labels{"db_name": "contacts"},
	}, func() float64 {
		return float64(pool.Stat().EmptyAcquireCount())
	})
}
