package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"barangay/internal/announcement/models"
	"barangay/internal/announcement/service"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/httputil"
	request "barangay/pkg/platform/middleware/request"
)

const uploadSlack = 1 << 20

type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Announcement, error)
	ListPublic(ctx context.Context) ([]*models.Announcement, error)
	ListAll(ctx context.Context) ([]*models.Announcement, error)
	Get(ctx context.Context, announcementID id.AnnouncementID, includeInactive bool) (*models.Announcement, error)
	Update(ctx context.Context, announcementID id.AnnouncementID, u models.Update, img *service.Image) (*models.Announcement, error)
	ToggleActive(ctx context.Context, announcementID id.AnnouncementID) (*models.Announcement, error)
	Delete(ctx context.Context, announcementID id.AnnouncementID) error
	Image(ctx context.Context, name string) ([]byte, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public announcement routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/announcements", h.HandleList)
	r.Get("/announcements/images/{name}", h.HandleImage)
	r.Get("/announcements/{id}", h.HandleGet)
}

// RegisterAdmin mounts announcement management. Callers apply admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/announcements/admin/all", h.HandleListAll)
	r.Post("/announcements", h.HandleCreate)
	r.Patch("/announcements/{id}", h.HandleUpdate)
	r.Patch("/announcements/{id}/toggle-active", h.HandleToggleActive)
	r.Delete("/announcements/{id}", h.HandleDelete)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.service.ListPublic(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to list announcements", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", items)
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.service.ListAll(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to list announcements", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", items)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	announcementID, err := id.ParseAnnouncementID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid announcement id", err)
		return
	}
	a, err := h.service.Get(ctx, announcementID, false)
	if err != nil {
		h.writeError(ctx, w, "failed to load announcement", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", a)
}

func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	data, err := h.service.Image(ctx, name)
	if err != nil {
		h.writeError(ctx, w, "failed to load announcement image", err)
		return
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// announcementForm is the create/update body, sent as JSON or as
// multipart/form-data with an optional "image" file.
type announcementForm struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	IsActive    *bool   `json:"isActive"`
	image       *service.Image
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := readForm(w, r)
	if err != nil {
		h.writeError(ctx, w, "invalid announcement body", err)
		return
	}
	in := service.CreateInput{Image: form.image}
	if form.Title != nil {
		in.Title = *form.Title
	}
	if form.Description != nil {
		in.Description = *form.Description
	}
	if form.Date != nil {
		d, err := parseDate(*form.Date)
		if err != nil {
			h.writeError(ctx, w, "invalid announcement date", err)
			return
		}
		in.Date = d
	}

	a, err := h.service.Create(ctx, in)
	if err != nil {
		h.writeError(ctx, w, "failed to create announcement", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "Announcement created successfully", a)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	announcementID, err := id.ParseAnnouncementID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid announcement id", err)
		return
	}
	form, err := readForm(w, r)
	if err != nil {
		h.writeError(ctx, w, "invalid announcement body", err)
		return
	}
	u := models.Update{Title: form.Title, Description: form.Description, IsActive: form.IsActive}
	if form.Date != nil {
		d, err := parseDate(*form.Date)
		if err != nil {
			h.writeError(ctx, w, "invalid announcement date", err)
			return
		}
		u.Date = &d
	}

	a, err := h.service.Update(ctx, announcementID, u, form.image)
	if err != nil {
		h.writeError(ctx, w, "failed to update announcement", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Announcement updated successfully", a)
}

func (h *Handler) HandleToggleActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	announcementID, err := id.ParseAnnouncementID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid announcement id", err)
		return
	}
	a, err := h.service.ToggleActive(ctx, announcementID)
	if err != nil {
		h.writeError(ctx, w, "failed to toggle announcement", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", a)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	announcementID, err := id.ParseAnnouncementID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid announcement id", err)
		return
	}
	if err := h.service.Delete(ctx, announcementID); err != nil {
		h.writeError(ctx, w, "failed to delete announcement", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Announcement deleted successfully", nil)
}

func readForm(w http.ResponseWriter, r *http.Request) (announcementForm, error) {
	var form announcementForm
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		err := httputil.DecodeJSON(r, &form)
		return form, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxImageBytes+uploadSlack)
	if err := r.ParseMultipartForm(service.MaxImageBytes + uploadSlack); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, dErrors.New(dErrors.CodeValidation, "image exceeds the 5 MB limit")
		}
		return form, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid multipart form")
	}
	form.Title = formValue(r, "title")
	form.Description = formValue(r, "description")
	form.Date = formValue(r, "date")
	if v := formValue(r, "isActive"); v != nil {
		active, err := strconv.ParseBool(*v)
		if err != nil {
			return form, dErrors.New(dErrors.CodeValidation, "isActive must be true or false")
		}
		form.IsActive = &active
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil
	}
	if err != nil {
		return form, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read image")
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, service.MaxImageBytes+1))
	if err != nil {
		return form, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read image")
	}
	form.image = &service.Image{FileName: header.Filename, Content: content}
	return form, nil
}

// formValue distinguishes an absent field from an empty one.
func formValue(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD")
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
