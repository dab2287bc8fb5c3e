package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barangay/internal/citizen/models"
	"barangay/internal/citizen/service"
	"barangay/internal/citizen/store"
	"barangay/pkg/testutil"
)

type profileEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		ID                string   `json:"id"`
		FirstName         string   `json:"firstName"`
		DateOfBirth       string   `json:"dateOfBirth"`
		IsProfileComplete bool     `json:"isProfileComplete"`
		MissingFields     []string `json:"missingFields"`
	} `json:"data"`
}

func newProfileRouter(t *testing.T) (http.Handler, *models.Profile) {
	t.Helper()
	svc := service.New(store.NewInMemory())
	p, err := svc.Register(context.Background(), &models.Profile{Email: "jose@example.com", FirstName: "Jose", LastName: "Rizal"})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r, p
}

func TestGetProfileReportsMissingFields(t *testing.T) {
	router, p := newProfileRouter(t)

	req := testutil.WithUserID(testutil.NewRequest(t, http.MethodGet, "/profile"), p.ID.String())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[profileEnvelope](t, rr)
	assert.True(t, resp.Success)
	assert.False(t, resp.Data.IsProfileComplete)
	assert.Equal(t, []string{models.FieldDateOfBirth, models.FieldStreetNumber, models.FieldStreetName}, resp.Data.MissingFields)
}

func TestPatchProfileCompletesIt(t *testing.T) {
	router, p := newProfileRouter(t)

	body := map[string]any{
		"dateOfBirth":  "1990-06-19",
		"streetNumber": "10",
		"streetName":   "Calamba St",
		"email":        "ignored@example.com",
	}
	req := testutil.WithUserID(testutil.NewJSONRequest(t, http.MethodPatch, "/profile", body), p.ID.String())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[profileEnvelope](t, rr)
	assert.True(t, resp.Data.IsProfileComplete)
	assert.Empty(t, resp.Data.MissingFields)
}

func TestPatchProfileRejectsBadDate(t *testing.T) {
	router, p := newProfileRouter(t)

	req := testutil.WithUserID(testutil.NewJSONRequest(t, http.MethodPatch, "/profile", map[string]string{"dateOfBirth": "19/06/1990"}), p.ID.String())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestGetProfileUnknownUser(t *testing.T) {
	router, _ := newProfileRouter(t)

	req := testutil.WithUserID(testutil.NewRequest(t, http.MethodGet, "/profile"), "550e8400-e29b-41d4-a716-446655440000")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}
