// Package handler exposes the document workflow over HTTP.
package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"barangay/internal/documents/models"
	"barangay/internal/documents/service"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/httputil"
	request "barangay/pkg/platform/middleware/request"
	"barangay/pkg/requestcontext"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	pdfContentType  = "application/pdf"

	// multipart overhead allowed on top of the template itself
	uploadSlack = 1 << 20
)

type Service interface {
	CreateRequest(ctx context.Context, userID id.UserID, in service.CreateRequest) (*models.Request, error)
	CreateAdminRequest(ctx context.Context, adminID id.UserID, in service.AdminCreateRequest) (*models.Request, error)
	ApproveRequest(ctx context.Context, requestID id.RequestID, adminID id.UserID, adminNotes string) (*service.ApprovalResult, error)
	DenyRequest(ctx context.Context, requestID id.RequestID, adminID id.UserID, reason string) (*models.Request, error)
	CancelRequest(ctx context.Context, requestID id.RequestID, userID id.UserID) error
	Download(ctx context.Context, requestID id.RequestID, userID id.UserID) (*service.File, error)
	AdminDownload(ctx context.Context, requestID id.RequestID) (*service.File, error)
	ListMine(ctx context.Context, userID id.UserID) ([]*models.Request, error)
	ListMyPending(ctx context.Context, userID id.UserID) ([]*models.Request, error)
	MyLatestPending(ctx context.Context, userID id.UserID) (*models.Request, error)
	ListPending(ctx context.Context) ([]models.RequestWithCitizen, error)
	ListAll(ctx context.Context) ([]models.RequestWithCitizen, error)
	TemplateStatus(ctx context.Context) ([]models.TemplateStatus, error)
	UploadTemplate(ctx context.Context, docType, fileName string, content []byte) (*models.TemplateStatus, error)
	InspectTemplate(ctx context.Context, content []byte) (*service.TemplateInfo, error)
	RenderPreview(ctx context.Context, content []byte, data map[string]string, fileName string) (*service.Preview, error)
	RenderPDF(ctx context.Context, content []byte, data map[string]string, fileName string) (*service.PDF, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts citizen routes. Callers apply authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents/request", h.HandleCreateRequest)
	r.Get("/documents/my-requests", h.HandleMyRequests)
	r.Get("/documents/my-pending-request", h.HandleMyPendingRequest)
	r.Get("/documents/my-pending-requests", h.HandleMyPendingRequests)
	r.Post("/documents/cancel/{id}", h.HandleCancel)
	r.Get("/documents/download/{id}", h.HandleDownload)
}

// RegisterAdmin mounts staff routes. Callers apply authentication and the
// admin role check.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/documents/admin/requests", h.HandleAdminCreate)
	r.Get("/documents/admin/pending", h.HandleListPending)
	r.Get("/documents/admin/all", h.HandleListAll)
	r.Post("/documents/admin/requests/{id}/approve", h.HandleApprove)
	r.Post("/documents/admin/requests/{id}/deny", h.HandleDeny)
	r.Get("/documents/admin/requests/{id}/download", h.HandleAdminDownload)
	r.Get("/documents/admin/templates", h.HandleTemplateStatus)
	r.Post("/documents/admin/templates/upload", h.HandleUploadTemplate)
	r.Post("/documents/admin/templates/inspect", h.HandleInspectTemplate)
	r.Post("/documents/admin/templates/preview", h.HandleRenderPreview)
	r.Post("/documents/admin/templates/pdf", h.HandleRenderPDF)
}

// createRequestBody accepts the legacy requestType name as well.
type createRequestBody struct {
	DocumentType string `json:"documentType"`
	RequestType  string `json:"requestType"`
	Purpose      string `json:"purpose"`
}

func (b createRequestBody) docType() string {
	if b.DocumentType != "" {
		return b.DocumentType
	}
	return b.RequestType
}

func (h *Handler) HandleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body createRequestBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(ctx, w, "invalid document request body", err)
		return
	}
	created, err := h.service.CreateRequest(ctx, requestcontext.UserID(ctx), service.CreateRequest{
		Type:    body.docType(),
		Purpose: body.Purpose,
	})
	if err != nil {
		h.writeError(ctx, w, "failed to create document request", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "Document request submitted successfully", created)
}

func (h *Handler) HandleMyRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListMine(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "failed to list document requests", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", nonNil(list))
}

func (h *Handler) HandleMyPendingRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	latest, err := h.service.MyLatestPending(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "failed to load pending request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, struct {
		Success bool            `json:"success"`
		Data    *models.Request `json:"data"`
	}{Success: true, Data: latest})
}

func (h *Handler) HandleMyPendingRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListMyPending(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "failed to list pending requests", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", nonNil(list))
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid request id", err)
		return
	}
	if err := h.service.CancelRequest(ctx, requestID, requestcontext.UserID(ctx)); err != nil {
		h.writeError(ctx, w, "failed to cancel document request", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Document request cancelled successfully", nil)
}

func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid request id", err)
		return
	}
	file, err := h.service.Download(ctx, requestID, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "failed to download document", err)
		return
	}
	writeAttachment(w, docxContentType, file.Name, file.Content)
}

type adminCreateBody struct {
	UserID       string `json:"userId"`
	DocumentType string `json:"documentType"`
	RequestType  string `json:"requestType"`
	Purpose      string `json:"purpose"`
}

func (h *Handler) HandleAdminCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body adminCreateBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(ctx, w, "invalid admin request body", err)
		return
	}
	userID, err := id.ParseUserID(body.UserID)
	if err != nil {
		h.writeError(ctx, w, "invalid user id", dErrors.Wrap(err, dErrors.CodeValidation, "userId must be a valid id"))
		return
	}
	docType := body.DocumentType
	if docType == "" {
		docType = body.RequestType
	}
	created, err := h.service.CreateAdminRequest(ctx, requestcontext.UserID(ctx), service.AdminCreateRequest{
		UserID:  userID,
		Type:    docType,
		Purpose: body.Purpose,
	})
	if err != nil {
		h.writeError(ctx, w, "failed to create document request", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "Document request created successfully", created)
}

func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListPending(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to list pending requests", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", nonNil(list))
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListAll(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to list document requests", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", nonNil(list))
}

type approveBody struct {
	AdminNotes string `json:"adminNotes"`
}

// HandleApprove streams the generated certificate back to the admin.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid request id", err)
		return
	}
	var body approveBody
	if err := decodeOptionalJSON(r, &body); err != nil {
		h.writeError(ctx, w, "invalid approve body", err)
		return
	}
	res, err := h.service.ApproveRequest(ctx, requestID, requestcontext.UserID(ctx), body.AdminNotes)
	if err != nil {
		h.writeError(ctx, w, "failed to approve document request", err)
		return
	}
	w.Header().Set("X-Request-Status", string(res.Request.Status))
	writeAttachment(w, docxContentType, res.FileName, res.Content)
}

type denyBody struct {
	DenialReason string `json:"denialReason"`
}

func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid request id", err)
		return
	}
	var body denyBody
	if err := decodeOptionalJSON(r, &body); err != nil {
		h.writeError(ctx, w, "invalid deny body", err)
		return
	}
	denied, err := h.service.DenyRequest(ctx, requestID, requestcontext.UserID(ctx), body.DenialReason)
	if err != nil {
		h.writeError(ctx, w, "failed to deny document request", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Document request denied", denied)
}

func (h *Handler) HandleAdminDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid request id", err)
		return
	}
	file, err := h.service.AdminDownload(ctx, requestID)
	if err != nil {
		h.writeError(ctx, w, "failed to download document", err)
		return
	}
	writeAttachment(w, docxContentType, file.Name, file.Content)
}

func (h *Handler) HandleTemplateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	statuses, err := h.service.TemplateStatus(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to read template status", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", statuses)
}

func (h *Handler) HandleUploadTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	content, fileName, err := readTemplatePart(w, r)
	if err != nil {
		h.writeError(ctx, w, "invalid template upload", err)
		return
	}
	status, err := h.service.UploadTemplate(ctx, r.FormValue("type"), fileName, content)
	if err != nil {
		h.writeError(ctx, w, "failed to upload template", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Template uploaded successfully", status)
}

func (h *Handler) HandleInspectTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	content, _, err := readTemplatePart(w, r)
	if err != nil {
		h.writeError(ctx, w, "invalid template upload", err)
		return
	}
	info, err := h.service.InspectTemplate(ctx, content)
	if err != nil {
		h.writeError(ctx, w, "failed to inspect template", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", info)
}

type renderBody struct {
	DocxBase64 string         `json:"docxBase64"`
	Data       map[string]any `json:"data"`
	FileName   string         `json:"fileName"`
}

func (b renderBody) decode() ([]byte, map[string]string, error) {
	if b.DocxBase64 == "" {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, "docxBase64 is required")
	}
	content, err := base64.StdEncoding.DecodeString(b.DocxBase64)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "docxBase64 is not valid base64")
	}
	data := make(map[string]string, len(b.Data))
	for k, v := range b.Data {
		data[k] = stringValue(v)
	}
	return content, data, nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

type previewResponse struct {
	HTML       string `json:"html"`
	DocxBase64 string `json:"docxBase64"`
	FileName   string `json:"fileName"`
}

func (h *Handler) HandleRenderPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body renderBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(ctx, w, "invalid preview body", err)
		return
	}
	content, data, err := body.decode()
	if err != nil {
		h.writeError(ctx, w, "invalid preview body", err)
		return
	}
	preview, err := h.service.RenderPreview(ctx, content, data, body.FileName)
	if err != nil {
		h.writeError(ctx, w, "failed to render template preview", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", previewResponse{
		HTML:       preview.HTML,
		DocxBase64: base64.StdEncoding.EncodeToString(preview.Docx),
		FileName:   preview.FileName,
	})
}

type pdfResponse struct {
	HTML      string `json:"html"`
	FileName  string `json:"fileName"`
	PDFBase64 string `json:"pdfBase64"`
}

func (h *Handler) HandleRenderPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body renderBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(ctx, w, "invalid pdf body", err)
		return
	}
	content, data, err := body.decode()
	if err != nil {
		h.writeError(ctx, w, "invalid pdf body", err)
		return
	}
	pdf, err := h.service.RenderPDF(ctx, content, data, body.FileName)
	if err != nil {
		h.writeError(ctx, w, "failed to render template to PDF", err)
		return
	}
	if r.URL.Query().Get("download") == "true" {
		writeAttachment(w, pdfContentType, pdf.FileName, pdf.Content)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", pdfResponse{
		HTML:      pdf.HTML,
		FileName:  pdf.FileName,
		PDFBase64: base64.StdEncoding.EncodeToString(pdf.Content),
	})
}

// readTemplatePart reads the "template" file of a multipart form.
func readTemplatePart(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxTemplateBytes+uploadSlack)
	if err := r.ParseMultipartForm(service.MaxTemplateBytes + uploadSlack); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", dErrors.New(dErrors.CodeValidation, "template exceeds the 5 MB limit")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeBadRequest, "expected a multipart form")
	}
	file, header, err := r.FormFile("template")
	if err != nil {
		return nil, "", dErrors.New(dErrors.CodeValidation, "template file is required")
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, service.MaxTemplateBytes+1))
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read template file")
	}
	return content, header.Filename, nil
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, httputil.MaxJSONBody))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read request body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	return nil
}

func writeAttachment(w http.ResponseWriter, contentType, fileName string, content []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
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
