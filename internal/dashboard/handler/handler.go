package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"barangay/internal/dashboard/service"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/httputil"
	request "barangay/pkg/platform/middleware/request"
)

type Service interface {
	Stats(ctx context.Context) (*service.Stats, error)
	RecentRequests(ctx context.Context, limit int) ([]service.RecentRequest, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the dashboard routes. Callers apply admin auth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/dashboard/stats", h.HandleStats)
	r.Get("/admin/dashboard/recent-requests", h.HandleRecentRequests)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to load dashboard statistics", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", stats)
}

func (h *Handler) HandleRecentRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(ctx, w, "invalid limit", dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	items, err := h.service.RecentRequests(ctx, limit)
	if err != nil {
		h.writeError(ctx, w, "failed to load recent requests", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", items)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.HTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"error", err,
		"request_id", request.GetRequestID(ctx),
	)
	httputil.WriteError(w, err)
}
