// Package handler serves the admin activity log.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"barangay/internal/activity/service"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	audit "barangay/pkg/platform/audit"
	"barangay/pkg/platform/httputil"
	request "barangay/pkg/platform/middleware/request"
)

type Service interface {
	List(ctx context.Context, filter audit.Filter) (*service.Page, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the admin routes. Callers apply the admin role check.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/activity-logs", h.HandleList)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(ctx, w, "invalid activity log query", err)
		return
	}
	page, err := h.service.List(ctx, filter)
	if err != nil {
		h.writeError(ctx, w, "failed to list activity logs", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", page)
}

func parseFilter(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	var f audit.Filter

	switch t := audit.ActivityType(strings.ToLower(q.Get("type"))); t {
	case "", "all":
	case audit.TypeDocument, audit.TypeTemplate, audit.TypeProfile, audit.TypeAnnouncement, audit.TypeSystem:
		f.Type = t
	default:
		return f, dErrors.New(dErrors.CodeValidation, "type must be one of document, template, profile, announcement, system")
	}

	if raw := q.Get("user_id"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return f, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid user_id")
		}
		f.UserID = userID
	}
	f.Query = strings.TrimSpace(q.Get("q"))

	var err error
	if f.Page, err = positiveInt(q.Get("page"), "page"); err != nil {
		return f, err
	}
	if f.Limit, err = positiveInt(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.From, err = parseTime(q.Get("from"), "from", false); err != nil {
		return f, err
	}
	if f.To, err = parseTime(q.Get("to"), "to", true); err != nil {
		return f, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, dErrors.New(dErrors.CodeValidation, "to must not be before from")
	}
	return f, nil
}

func positiveInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, dErrors.New(dErrors.CodeValidation, name+" must be a positive integer")
	}
	return n, nil
}

// parseTime accepts RFC 3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func parseTime(raw, name string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, name+" must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
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
