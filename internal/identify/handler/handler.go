package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"identity-gateway/internal/identify"
	dErrors "identity-gateway/pkg/domain-errors"
	"identity-gateway/pkg/platform/httputil"
	"identity-gateway/pkg/requestcontext"
)

// Service defines the interface for identify operations.
type Service interface {
	Identify(ctx context.Context, req identify.Request) (json.RawMessage, error)
}

// Handler wires the identify endpoint to the identify service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an identify handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the identify endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/identify", h.HandleIdentify)
}

// HandleIdentify handles POST /identify. The resolver's JSON is written as
// the response body unchanged.
func (h *Handler) HandleIdentify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req identify.Request
	if err := httputil.DecodeJSON(w, r, &req, httputil.DefaultBodyLimit); err != nil {
		h.logger.DebugContext(ctx, "identify request body rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Identify(ctx, req)
	if err != nil {
		// Infrastructure failures are logged by the service with full detail.
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			h.logger.DebugContext(ctx, "identify request invalid",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteRawJSON(w, http.StatusOK, result)
}
