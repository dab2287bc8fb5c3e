package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	citizen "barangay/internal/citizen/models"
	"barangay/internal/documents/models"
	"barangay/internal/documents/render"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/email"
	audit "barangay/pkg/platform/audit"
	"barangay/pkg/platform/sentinel"
	"barangay/pkg/requestcontext"
)

// ApprovalResult carries the approved request and the certificate that was
// generated for it.
type ApprovalResult struct {
	Request  *models.Request
	FileName string
	Content  []byte
}

// ApproveRequest generates the certificate from the citizen's current
// profile, stores it, and marks the request approved. The file is written
// before the status changes and removed again if the change does not commit.
func (s *Service) ApproveRequest(ctx context.Context, requestID id.RequestID, adminID id.UserID, adminNotes string) (_ *ApprovalResult, err error) {
	ctx, span := s.startSpan(ctx, "approve_request")
	span.SetAttributes(attribute.Int64("document_request.id", int64(requestID)))
	defer func() { endSpan(span, err) }()

	if _, busy := s.approving.LoadOrStore(requestID, struct{}{}); busy {
		return nil, dErrors.New(dErrors.CodeInvalidState, "document request is already being processed")
	}
	defer s.approving.Delete(requestID)

	r, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusPending {
		return nil, dErrors.New(dErrors.CodeInvalidState, "document request has already been processed")
	}
	profile, err := s.loadCitizen(ctx, r.UserID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	content, err := s.generate(ctx, r, profile, now)
	if err != nil {
		return nil, err
	}

	notes := adminNotes
	var updated *models.Request
	var fileName string
	written := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		name, err := s.storeGenerated(txCtx, r, profile, now, content)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store generated document")
		}
		fileName = name
		written = true
		var terr error
		updated, terr = s.requests.Transition(txCtx, requestID, models.Transition{
			To:            models.StatusApproved,
			ProcessedBy:   adminID,
			ProcessedAt:   now,
			AdminNotes:    &notes,
			GeneratedFile: &fileName,
		})
		return terr
	})
	if err != nil {
		if written {
			s.discardGenerated(context.WithoutCancel(ctx), requestID, fileName)
		}
		return nil, transitionError(err)
	}

	s.logger.InfoContext(ctx, "document request approved",
		"request_id", requestcontext.RequestID(ctx),
		"document_request_id", int64(requestID),
		"admin_id", adminID.String(),
		"file", fileName,
	)
	if s.metrics != nil {
		s.metrics.IncrementProcessed(string(r.Type), string(models.StatusApproved))
	}
	s.notify(ctx, approvedMessage(profile, updated, now))

	event := audit.NewEvent(ctx, audit.EventDocumentApproved, "Document approved",
		updated.Type.DisplayName()+" approved for "+profile.FullName())
	event.UserName = email.DisplayName(event.UserEmail, "", "")
	event.Changes = map[string]any{
		"requestId":     int64(requestID),
		"status":        string(models.StatusApproved),
		"generatedFile": fileName,
		"adminNotes":    notes,
	}
	s.emit(ctx, event)

	return &ApprovalResult{Request: updated, FileName: fileName, Content: content}, nil
}

// discardGenerated removes a file whose approval did not commit, unless a
// concurrent approval of the same request committed with that file.
func (s *Service) discardGenerated(ctx context.Context, requestID id.RequestID, fileName string) {
	if current, err := s.requests.FindByID(ctx, requestID); err == nil &&
		current.GeneratedFile != nil && *current.GeneratedFile == fileName {
		return
	}
	if err := s.generated.Remove(ctx, fileName); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove orphaned generated document", "file", fileName, "error", err)
	}
}

// DenyRequest marks a pending request denied, keeping reason verbatim.
func (s *Service) DenyRequest(ctx context.Context, requestID id.RequestID, adminID id.UserID, reason string) (_ *models.Request, err error) {
	ctx, span := s.startSpan(ctx, "deny_request")
	span.SetAttributes(attribute.Int64("document_request.id", int64(requestID)))
	defer func() { endSpan(span, err) }()

	r, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusPending {
		return nil, dErrors.New(dErrors.CodeInvalidState, "document request has already been processed")
	}

	tr := models.Transition{
		To:          models.StatusDenied,
		ProcessedBy: adminID,
		ProcessedAt: requestcontext.Now(ctx),
	}
	if reason != "" {
		tr.DenialReason = &reason
	}
	var updated *models.Request
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var terr error
		updated, terr = s.requests.Transition(txCtx, requestID, tr)
		return terr
	})
	if err != nil {
		return nil, transitionError(err)
	}

	s.logger.InfoContext(ctx, "document request denied",
		"request_id", requestcontext.RequestID(ctx),
		"document_request_id", int64(requestID),
		"admin_id", adminID.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementProcessed(string(r.Type), string(models.StatusDenied))
	}

	profile, perr := s.citizens.FindByID(ctx, r.UserID)
	if perr != nil {
		s.logger.WarnContext(ctx, "denial notification skipped", "user_id", r.UserID.String(), "error", perr)
	} else {
		s.notify(ctx, deniedMessage(profile, updated))
	}

	event := audit.NewEvent(ctx, audit.EventDocumentDenied, "Document denied",
		updated.Type.DisplayName()+" request #"+strconv.FormatInt(int64(requestID), 10)+" denied")
	event.UserName = email.DisplayName(event.UserEmail, "", "")
	event.Changes = map[string]any{"requestId": int64(requestID), "status": string(models.StatusDenied), "denialReason": reason}
	s.emit(ctx, event)
	return updated, nil
}

// generate fills the stored template for r's type with the citizen's data.
func (s *Service) generate(ctx context.Context, r *models.Request, profile *citizen.Profile, now time.Time) ([]byte, error) {
	start := time.Now()
	tpl, err := s.loadTemplate(ctx, r.Type)
	if err != nil {
		s.generationFailed()
		return nil, dErrors.Wrap(err, dErrors.CodeGenerationFailure, "failed to load document template")
	}
	out, err := render.Fill(tpl, render.FieldsFor(profile, r, now))
	if err != nil {
		s.generationFailed()
		var unresolved *render.UnresolvedError
		if errors.As(err, &unresolved) {
			return nil, dErrors.Wrap(err, dErrors.CodeGenerationFailure,
				"template has unknown placeholders: "+strings.Join(unresolved.Names, ", "))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeGenerationFailure, "failed to generate document")
	}
	if s.metrics != nil {
		s.metrics.ObserveGeneration(start)
	}
	return out, nil
}

func (s *Service) generationFailed() {
	if s.metrics != nil {
		s.metrics.IncrementGenerationFailure()
	}
}

// loadTemplate returns the stored template, installing the built-in default
// when none exists. Concurrent callers for the same type share one install.
func (s *Service) loadTemplate(ctx context.Context, t models.DocumentType) ([]byte, error) {
	tpl, err := s.templates.Get(ctx, t)
	if err == nil {
		return tpl, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	v, err, _ := s.defaults.Do(string(t), func() (any, error) {
		if tpl, err := s.templates.Get(ctx, t); err == nil {
			return tpl, nil
		}
		tpl := render.DefaultTemplate(t)
		if err := s.templates.Put(ctx, t, tpl); err != nil {
			s.logger.WarnContext(ctx, "failed to store default template, using it unsaved", "type", string(t), "error", err)
			return tpl, nil
		}
		s.logger.InfoContext(ctx, "default template installed", "type", string(t))
		if s.metrics != nil {
			s.metrics.IncrementDefaultTemplate(string(t))
		}
		event := audit.NewEvent(ctx, audit.EventDefaultTemplateRestored, "Default template installed", t.DisplayName())
		event.Changes = map[string]any{"type": string(t)}
		s.emit(ctx, event)
		return tpl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// storeGenerated writes content under the plain generated name when it is
// free. A name already held by another request gets the request id appended,
// which no other request can produce, so earlier files stay untouched.
func (s *Service) storeGenerated(ctx context.Context, r *models.Request, profile *citizen.Profile, now time.Time, content []byte) (string, error) {
	name := models.GeneratedFileName(r.Type, profile.LastName, now)
	err := s.generated.Create(ctx, name, content)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, sentinel.ErrConflict) {
		return "", err
	}
	name = strings.TrimSuffix(name, ".docx") + "_" + strconv.FormatInt(int64(r.ID), 10) + ".docx"
	if err := s.generated.Write(ctx, name, content); err != nil {
		return "", err
	}
	return name, nil
}
