package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"identity-gateway/internal/platform/middleware"
	"identity-gateway/pkg/platform/httputil"
)

// Registrar mounts a module's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Readiness reports whether the contact store is reachable.
type Readiness interface {
	Ready(ctx context.Context) error
}

// Options carries everything the router mounts. Metrics is optional.
type Options struct {
	Logger    *slog.Logger
	Readiness Readiness
	Metrics   http.Handler
	Modules   []Registrar
}

// NewRouter wires the public endpoints behind the shared middleware chain.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(opts.Logger))
	r.Use(middleware.Recover(opts.Logger))

	r.Get("/health", handleHealth)
	r.Get("/ready", handleReady(opts.Readiness))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	for _, m := range opts.Modules {
		m.Register(r)
	}
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(readiness Readiness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := readiness.Ready(r.Context()); err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
