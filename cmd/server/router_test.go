package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	activityservice "barangay/internal/activity/service"
	announcementservice "barangay/internal/announcement/service"
	announcementstore "barangay/internal/announcement/store"
	citizenservice "barangay/internal/citizen/service"
	citizenstore "barangay/internal/citizen/store"
	dashboardservice "barangay/internal/dashboard/service"
	docservice "barangay/internal/documents/service"
	"barangay/internal/documents/store/generated"
	"barangay/internal/documents/store/request"
	"barangay/internal/documents/store/template"
	jwttoken "barangay/internal/jwt_token"
	"barangay/internal/platform/config"
	"barangay/internal/platform/metrics"
	id "barangay/pkg/domain"
	auditmemory "barangay/pkg/platform/audit/store/memory"
	"barangay/pkg/requestcontext"
	"barangay/pkg/testutil"
)

type routerFixture struct {
	handler   http.Handler
	jwt       *jwttoken.JWTService
	healthErr error
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	templates, err := template.New(t.TempDir())
	require.NoError(t, err)
	files, err := generated.New(t.TempDir())
	require.NoError(t, err)
	citizens := citizenstore.NewInMemory()
	requests := request.NewInMemory()
	images, err := announcementstore.NewImageStore(t.TempDir())
	require.NoError(t, err)
	announcements := announcementservice.New(announcementstore.NewInMemory(), images, announcementservice.WithLogger(log))

	f := &routerFixture{jwt: jwttoken.NewJWTService("test-key", "barangay", "barangay-api")}
	f.handler = newRouter(routerDeps{
		cfg:           config.Server{Documents: config.Documents{RequestTimeout: 5 * time.Second}},
		log:           log,
		metrics:       metrics.NewWithRegisterer(prometheus.NewRegistry()),
		validator:     jwttoken.NewJWTServiceAdapter(f.jwt),
		documents:     docservice.New(requests, citizens, templates, files, docservice.WithLogger(log)),
		profiles:      citizenservice.New(citizens, citizenservice.WithLogger(log)),
		activity:      activityservice.New(auditmemory.NewInMemoryStore(), activityservice.WithLogger(log)),
		announcements: announcements,
		dashboard:     dashboardservice.New(requests, citizens, announcements, dashboardservice.WithLogger(log)),
		health:        func(context.Context) error { return f.healthErr },
	})
	return f
}

func (f *routerFixture) bearer(t *testing.T, req *http.Request, role string) *http.Request {
	t.Helper()
	token, err := f.jwt.GenerateAccessToken(id.NewUserID(), "user@example.com", role, time.Minute)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHealthz(t *testing.T) {
	f := newRouterFixture(t)

	rr := testutil.DoRequest(f.handler, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "ok")

	f.healthErr = errors.New("postgres: connection refused")
	rr = testutil.DoRequest(f.handler, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	rr := testutil.DoRequest(f.handler, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
}

func TestRoutesRequireBearerToken(t *testing.T) {
	f := newRouterFixture(t)
	for _, path := range []string{"/documents/my-requests", "/profile", "/admin/activity-logs", "/admin/dashboard/stats", "/announcements/admin/all"} {
		rr := testutil.DoRequest(f.handler, testutil.NewRequest(t, http.MethodGet, path))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	f := newRouterFixture(t)

	rr := testutil.DoRequest(f.handler, f.bearer(t, testutil.NewRequest(t, http.MethodGet, "/documents/my-requests"), requestcontext.RoleResident))
	testutil.AssertStatusOK(t, rr)

	for _, path := range []string{"/documents/admin/pending", "/admin/activity-logs", "/admin/dashboard/stats", "/admin/dashboard/recent-requests", "/announcements/admin/all"} {
		rr = testutil.DoRequest(f.handler, f.bearer(t, testutil.NewRequest(t, http.MethodGet, path), requestcontext.RoleResident))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

		rr = testutil.DoRequest(f.handler, f.bearer(t, testutil.NewRequest(t, http.MethodGet, path), requestcontext.RoleSuperAdmin))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestAnnouncementsArePublicButManagedByAdmins(t *testing.T) {
	f := newRouterFixture(t)

	rr := testutil.DoRequest(f.handler, testutil.NewRequest(t, http.MethodGet, "/announcements"))
	testutil.AssertStatusOK(t, rr)

	body := map[string]string{"title": "Assembly", "description": "Covered court", "date": "2024-09-01"}
	rr = testutil.DoRequest(f.handler, testutil.NewJSONRequest(t, http.MethodPost, "/announcements", body))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	rr = testutil.DoRequest(f.handler, f.bearer(t, testutil.NewJSONRequest(t, http.MethodPost, "/announcements", body), requestcontext.RoleResident))
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

	rr = testutil.DoRequest(f.handler, f.bearer(t, testutil.NewJSONRequest(t, http.MethodPost, "/announcements", body), requestcontext.RoleAdmin))
	testutil.AssertStatus(t, rr, http.StatusCreated)
}
