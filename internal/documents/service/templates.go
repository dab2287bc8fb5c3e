package service

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"barangay/internal/documents/models"
	"barangay/internal/documents/render"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/email"
	audit "barangay/pkg/platform/audit"
	"barangay/pkg/requestcontext"
)

// MaxTemplateBytes caps uploaded and previewed templates.
const MaxTemplateBytes = 5 << 20

// TemplateInfo is what InspectTemplate finds in a DOCX.
type TemplateInfo struct {
	Placeholders []string          `json:"placeholders"`
	Images       map[string]string `json:"images"`
}

// Preview is a filled template with its HTML rendering.
type Preview struct {
	HTML     string `json:"html"`
	Docx     []byte `json:"-"`
	FileName string `json:"fileName"`
}

// PDF is a rendered template ready to download.
type PDF struct {
	HTML     string `json:"html"`
	Content  []byte `json:"-"`
	FileName string `json:"fileName"`
}

// TemplateStatus reports the stored template for every document type.
func (s *Service) TemplateStatus(ctx context.Context) ([]models.TemplateStatus, error) {
	out := make([]models.TemplateStatus, 0, len(models.DocumentTypes))
	for _, t := range models.DocumentTypes {
		st, err := s.templates.Status(ctx, t)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read template status")
		}
		out = append(out, st)
	}
	return out, nil
}

// UploadTemplate replaces the template for docType.
func (s *Service) UploadTemplate(ctx context.Context, docType, fileName string, content []byte) (_ *models.TemplateStatus, err error) {
	ctx, span := s.startSpan(ctx, "upload_template")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(docType) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "template type is required")
	}
	t, err := models.ParseDocumentType(docType)
	if err != nil {
		return nil, err
	}
	if err := validateTemplate(fileName, content); err != nil {
		return nil, err
	}

	if err := s.templates.Put(ctx, t, content); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store template")
	}
	st, err := s.templates.Status(ctx, t)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read template status")
	}

	s.logger.InfoContext(ctx, "template uploaded",
		"request_id", requestcontext.RequestID(ctx),
		"type", string(t),
		"bytes", len(content),
	)
	event := audit.NewEvent(ctx, audit.EventTemplateUploaded, "Template uploaded",
		t.DisplayName()+" template replaced with "+fileName)
	event.UserName = email.DisplayName(event.UserEmail, "", "")
	event.Changes = map[string]any{"type": string(t), "fileName": fileName, "size": len(content)}
	s.emit(ctx, event)
	return &st, nil
}

func validateTemplate(fileName string, content []byte) error {
	if len(content) == 0 {
		return dErrors.New(dErrors.CodeValidation, "template file is required")
	}
	if len(content) > MaxTemplateBytes {
		return dErrors.New(dErrors.CodeValidation, "template exceeds the "+strconv.Itoa(MaxTemplateBytes>>20)+" MB limit")
	}
	if fileName != "" && !strings.EqualFold(filepath.Ext(fileName), ".docx") {
		return dErrors.New(dErrors.CodeValidation, "only .docx templates are accepted")
	}
	if err := render.Validate(content); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "template is not a valid .docx file")
	}
	return nil
}

// InspectTemplate lists the placeholders and embedded images of content.
func (s *Service) InspectTemplate(_ context.Context, content []byte) (*TemplateInfo, error) {
	if err := validateTemplate("", content); err != nil {
		return nil, err
	}
	names, err := render.Placeholders(content)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "failed to read template")
	}
	images, err := render.Images(content)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "failed to read template images")
	}
	if names == nil {
		names = []string{}
	}
	return &TemplateInfo{Placeholders: names, Images: images}, nil
}

// RenderPreview fills content with data and renders it as HTML.
func (s *Service) RenderPreview(ctx context.Context, content []byte, data map[string]string, fileName string) (_ *Preview, err error) {
	_, span := s.startSpan(ctx, "render_preview")
	defer func() { endSpan(span, err) }()

	filled, html, err := fillPreview(content, data)
	if err != nil {
		return nil, err
	}
	return &Preview{HTML: string(html), Docx: filled, FileName: previewFileName(fileName, ".docx", requestcontext.Now(ctx).UnixMilli())}, nil
}

// RenderPDF fills content with data and renders it as PDF.
func (s *Service) RenderPDF(ctx context.Context, content []byte, data map[string]string, fileName string) (_ *PDF, err error) {
	_, span := s.startSpan(ctx, "render_pdf")
	defer func() { endSpan(span, err) }()

	_, html, err := fillPreview(content, data)
	if err != nil {
		return nil, err
	}
	pdf, err := render.ToPDF(html)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeGenerationFailure, "failed to render PDF")
	}
	return &PDF{HTML: string(html), Content: pdf, FileName: previewFileName(fileName, ".pdf", requestcontext.Now(ctx).UnixMilli())}, nil
}

func fillPreview(content []byte, data map[string]string) ([]byte, []byte, error) {
	if err := validateTemplate("", content); err != nil {
		return nil, nil, err
	}
	filled, err := render.Fill(content, data)
	if err != nil {
		var unresolved *render.UnresolvedError
		if errors.As(err, &unresolved) {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeValidation,
				"missing values for placeholders: "+strings.Join(unresolved.Names, ", "))
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeValidation, "failed to render template preview")
	}
	html, err := render.ToHTML(filled)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeGenerationFailure, "failed to render HTML preview")
	}
	return filled, html, nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// previewFileName sanitises name and forces ext. Blank names become
// template_<millis><ext>.
func previewFileName(name, ext string, millis int64) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "template_" + strconv.FormatInt(millis, 10) + ext
	}
	name = unsafeFileChars.ReplaceAllString(name, "_")
	if strings.HasSuffix(strings.ToLower(name), ext) {
		return name
	}
	if ext == ".pdf" && strings.HasSuffix(strings.ToLower(name), ".docx") {
		name = name[:len(name)-len(".docx")]
	}
	return name + ext
}
