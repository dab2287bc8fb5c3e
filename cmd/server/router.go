package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	activityhandler "barangay/internal/activity/handler"
	announcementhandler "barangay/internal/announcement/handler"
	citizenhandler "barangay/internal/citizen/handler"
	dashboardhandler "barangay/internal/dashboard/handler"
	dochandler "barangay/internal/documents/handler"
	"barangay/internal/platform/config"
	"barangay/internal/platform/metrics"
	"barangay/pkg/platform/httputil"
	"barangay/pkg/platform/middleware/admin"
	"barangay/pkg/platform/middleware/auth"
	"barangay/pkg/platform/middleware/metadata"
	request "barangay/pkg/platform/middleware/request"
	"barangay/pkg/platform/middleware/requesttime"
)

type routerDeps struct {
	cfg           config.Server
	log           *slog.Logger
	metrics       *metrics.Metrics
	validator     auth.JWTValidator
	documents     dochandler.Service
	profiles      citizenhandler.Service
	activity      activityhandler.Service
	announcements announcementhandler.Service
	dashboard     dashboardhandler.Service
	health        func(ctx context.Context) error
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.log, d.metrics))
	r.Use(request.Logger(d.log))
	r.Use(request.LatencyMiddleware(d.metrics))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.health(r.Context()); err != nil {
			d.log.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	documents := dochandler.New(d.documents, d.log)
	announcements := announcementhandler.New(d.announcements, d.log)
	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(d.cfg.Documents.RequestTimeout))
		announcements.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(d.cfg.Documents.RequestTimeout))
		r.Use(auth.RequireAuth(d.validator, d.log))

		citizenhandler.New(d.profiles, d.log).Register(r)
		documents.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdmin(d.log))
			documents.RegisterAdmin(r)
			activityhandler.New(d.activity, d.log).Register(r)
			announcements.RegisterAdmin(r)
			dashboardhandler.New(d.dashboard, d.log).Register(r)
		})
	})
	return r
}
