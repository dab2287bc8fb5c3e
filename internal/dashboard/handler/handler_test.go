package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	citizenmodels "barangay/internal/citizen/models"
	citizenstore "barangay/internal/citizen/store"
	"barangay/internal/dashboard/service"
	docmodels "barangay/internal/documents/models"
	"barangay/internal/documents/store/request"
	id "barangay/pkg/domain"
	"barangay/pkg/testutil"
)

type headline string

func (h headline) Headline(context.Context) (string, error) { return string(h), nil }

type statsEnvelope struct {
	Success bool          `json:"success"`
	Data    service.Stats `json:"data"`
}

type recentEnvelope struct {
	Success bool                    `json:"success"`
	Data    []service.RecentRequest `json:"data"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	citizens := citizenstore.NewInMemory()
	requests := request.NewInMemory()

	resident := &citizenmodels.Profile{ID: id.NewUserID(), Email: "ana@example.com", FirstName: "Ana", LastName: "Reyes", IsProfileComplete: true}
	require.NoError(t, citizens.Create(ctx, resident))
	for i, st := range []docmodels.Status{docmodels.StatusPending, docmodels.StatusApproved, docmodels.StatusApproved} {
		require.NoError(t, requests.Create(ctx, &docmodels.Request{
			UserID:       resident.ID,
			Type:         docmodels.TypeBarangayClearance,
			Status:       st,
			AdminCreated: true,
			CreatedAt:    time.Now().Add(-time.Duration(i) * time.Hour),
			UpdatedAt:    time.Now().Add(-time.Duration(i) * time.Hour),
		}))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(service.New(requests, citizens, headline("Clean-up drive"), service.WithLogger(logger)), logger)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestDashboardStats(t *testing.T) {
	router := newRouter(t)
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/dashboard/stats"))
	testutil.AssertStatusOK(t, rr)

	resp := testutil.UnmarshalResponse[statsEnvelope](t, rr)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Complete)
	assert.Equal(t, 1, resp.Data.PendingRequests)
	assert.Equal(t, 2, resp.Data.ApprovedRequests)
	assert.Equal(t, 0, resp.Data.DeniedRequests)
	assert.Equal(t, "Clean-up drive", resp.Data.UpcomingEvent)
}

func TestDashboardRecentRequests(t *testing.T) {
	router := newRouter(t)
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/dashboard/recent-requests?limit=2"))
	testutil.AssertStatusOK(t, rr)

	resp := testutil.UnmarshalResponse[recentEnvelope](t, rr)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Created - Barangay Clearance", resp.Data[0].Title)
	assert.Equal(t, "Ana Reyes", resp.Data[0].UserName)
	assert.Equal(t, "Admin approved Barangay Clearance for Ana Reyes", resp.Data[1].Description)
}

func TestDashboardRecentRequestsRejectsBadLimit(t *testing.T) {
	router := newRouter(t)
	for _, limit := range []string{"0", "-3", "five"} {
		t.Run(limit, func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/dashboard/recent-requests?limit="+limit))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		})
	}
}
