package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// New builds the HTTP server. Only header reads are bounded; request handling
// time is left to the resolver call. Server-internal errors go to logger.
func New(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
