package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"barangay/internal/citizen/models"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/httputil"
	request "barangay/pkg/platform/middleware/request"
	"barangay/pkg/requestcontext"
)

type Service interface {
	Get(ctx context.Context, userID id.UserID) (*models.Profile, error)
	Update(ctx context.Context, userID id.UserID, update models.ProfileUpdate) (*models.Profile, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts profile routes. Callers apply authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/profile", h.HandleGetProfile)
	r.Patch("/profile", h.HandleUpdateProfile)
}

type profileResponse struct {
	*models.Profile
	MissingFields []string `json:"missingFields"`
}

func newProfileResponse(p *models.Profile) profileResponse {
	missing := models.MissingFields(p)
	if missing == nil {
		missing = []string{}
	}
	return profileResponse{Profile: p, MissingFields: missing}
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.service.Get(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "failed to load profile", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", newProfileResponse(p))
}

// updateProfileRequest accepts dates as YYYY-MM-DD or RFC 3339.
type updateProfileRequest struct {
	FirstName    *string `json:"firstName"`
	MiddleName   *string `json:"middleName"`
	LastName     *string `json:"lastName"`
	Suffix       *string `json:"suffix"`
	DateOfBirth  *string `json:"dateOfBirth"`
	PhoneNumber  *string `json:"phoneNumber"`
	HouseNumber  *string `json:"houseNumber"`
	Street       *string `json:"street"`
	StreetNumber *string `json:"streetNumber"`
	StreetName   *string `json:"streetName"`
	Barangay     *string `json:"barangay"`
	City         *string `json:"city"`
	Province     *string `json:"province"`
	ZipCode      *string `json:"zipCode"`
}

func (req updateProfileRequest) toUpdate() (models.ProfileUpdate, error) {
	update := models.ProfileUpdate{
		FirstName:    req.FirstName,
		MiddleName:   req.MiddleName,
		LastName:     req.LastName,
		Suffix:       req.Suffix,
		PhoneNumber:  req.PhoneNumber,
		HouseNumber:  req.HouseNumber,
		Street:       req.Street,
		StreetNumber: req.StreetNumber,
		StreetName:   req.StreetName,
		Barangay:     req.Barangay,
		City:         req.City,
		Province:     req.Province,
		ZipCode:      req.ZipCode,
	}
	if req.DateOfBirth != nil {
		dob, err := parseDate(*req.DateOfBirth)
		if err != nil {
			return update, dErrors.New(dErrors.CodeValidation, "dateOfBirth must be YYYY-MM-DD")
		}
		update.DateOfBirth = &dob
	}
	return update, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "invalid profile update body", err)
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		h.writeError(ctx, w, "invalid profile update", err)
		return
	}

	p, err := h.service.Update(ctx, requestcontext.UserID(ctx), update)
	if err != nil {
		h.writeError(ctx, w, "failed to update profile", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Profile updated successfully", newProfileResponse(p))
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
