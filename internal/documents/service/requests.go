package service

import (
	"context"
	"errors"
	"strings"

	citizen "barangay/internal/citizen/models"
	"barangay/internal/documents/models"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/email"
	audit "barangay/pkg/platform/audit"
	"barangay/pkg/platform/sentinel"
	"barangay/pkg/requestcontext"
)

// CreateRequest is a citizen's submission.
type CreateRequest struct {
	Type    string
	Purpose string
}

// AdminCreateRequest is a submission made by staff on a citizen's behalf.
type AdminCreateRequest struct {
	UserID  id.UserID
	Type    string
	Purpose string
}

// File is a generated document ready to stream.
type File struct {
	Name    string
	Content []byte
}

func parseSubmission(docType, purpose string) (models.DocumentType, string, error) {
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return "", "", dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	t, err := models.ParseDocumentType(docType)
	if err != nil {
		return "", "", err
	}
	return t, purpose, nil
}

// CreateRequest files a pending request after checking the citizen's live
// profile and that no request of the same type is already pending.
func (s *Service) CreateRequest(ctx context.Context, userID id.UserID, in CreateRequest) (_ *models.Request, err error) {
	ctx, span := s.startSpan(ctx, "create_request")
	defer func() { endSpan(span, err) }()

	t, purpose, err := parseSubmission(in.Type, in.Purpose)
	if err != nil {
		return nil, err
	}
	profile, err := s.loadCitizen(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !citizen.IsComplete(profile) {
		missing := citizen.MissingFields(profile)
		return nil, dErrors.New(dErrors.CodeProfileIncomplete,
			"please complete your profile before requesting documents (missing: "+strings.Join(missing, ", ")+")")
	}

	existing, err := s.requests.FindPending(ctx, userID, t)
	switch {
	case err == nil && existing != nil:
		return nil, duplicatePending(t)
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pending requests")
	}

	now := requestcontext.Now(ctx)
	r := &models.Request{
		UserID:    userID,
		Type:      t,
		Purpose:   purpose,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.requests.Create(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, duplicatePending(t)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document request")
	}

	if !profile.IsProfileComplete {
		if err := s.citizens.SetProfileComplete(ctx, userID, true); err != nil {
			s.logger.WarnContext(ctx, "failed to repair profile completeness flag", "user_id", userID.String(), "error", err)
		}
	}

	s.logger.InfoContext(ctx, "document request created",
		"request_id", requestcontext.RequestID(ctx),
		"document_request_id", int64(r.ID),
		"user_id", userID.String(),
		"type", string(t),
	)
	if s.metrics != nil {
		s.metrics.IncrementCreated(string(t), "citizen")
	}
	s.notify(ctx, submittedMessage(profile, r))

	event := audit.NewEvent(ctx, audit.EventDocumentRequested, "Document requested",
		profile.FullName()+" requested "+t.DisplayName())
	event.UserName = email.DisplayName(profile.Email, profile.FirstName, profile.LastName)
	event.Changes = map[string]any{"requestId": int64(r.ID), "requestType": string(t), "purpose": purpose}
	s.emit(ctx, event)
	return r, nil
}

func duplicatePending(t models.DocumentType) error {
	return dErrors.New(dErrors.CodeDuplicatePending,
		"you already have a pending "+t.DisplayName()+" request")
}

// CreateAdminRequest files a request for a citizen without the completeness
// and duplicate checks.
func (s *Service) CreateAdminRequest(ctx context.Context, adminID id.UserID, in AdminCreateRequest) (_ *models.Request, err error) {
	ctx, span := s.startSpan(ctx, "create_admin_request")
	defer func() { endSpan(span, err) }()

	if in.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "userId is required")
	}
	t, purpose, err := parseSubmission(in.Type, in.Purpose)
	if err != nil {
		return nil, err
	}
	profile, err := s.loadCitizen(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	r := &models.Request{
		UserID:       in.UserID,
		Type:         t,
		Purpose:      purpose,
		Status:       models.StatusPending,
		AdminCreated: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.requests.Create(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document request")
	}

	s.logger.InfoContext(ctx, "document request created by admin",
		"request_id", requestcontext.RequestID(ctx),
		"document_request_id", int64(r.ID),
		"user_id", in.UserID.String(),
		"admin_id", adminID.String(),
		"type", string(t),
	)
	if s.metrics != nil {
		s.metrics.IncrementCreated(string(t), "admin")
	}
	s.notify(ctx, submittedMessage(profile, r))

	event := audit.NewEvent(ctx, audit.EventDocumentAdminRequested, "Document requested by admin",
		t.DisplayName()+" requested for "+profile.FullName())
	event.UserName = email.DisplayName(event.UserEmail, "", "")
	event.Changes = map[string]any{"requestId": int64(r.ID), "requestType": string(t), "citizenId": in.UserID.String()}
	s.emit(ctx, event)
	return r, nil
}

// CancelRequest deletes the caller's own pending request.
func (s *Service) CancelRequest(ctx context.Context, requestID id.RequestID, userID id.UserID) (err error) {
	ctx, span := s.startSpan(ctx, "cancel_request")
	defer func() { endSpan(span, err) }()

	r, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if !r.IsOwnedBy(userID) {
		return dErrors.New(dErrors.CodeForbidden, "you can only cancel your own requests")
	}
	if r.Status != models.StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "only pending requests can be cancelled")
	}
	if err := s.requests.DeletePending(ctx, requestID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document request not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel document request")
	}

	if s.metrics != nil {
		s.metrics.IncrementCancelled()
	}
	event := audit.NewEvent(ctx, audit.EventDocumentCancelled, "Document request cancelled",
		r.Type.DisplayName()+" request cancelled")
	event.UserName = email.DisplayName(event.UserEmail, "", "")
	event.Changes = map[string]any{"requestId": int64(r.ID), "requestType": string(r.Type), "purpose": r.Purpose}
	s.emit(ctx, event)
	return nil
}

// Download returns the generated file of the caller's approved request.
func (s *Service) Download(ctx context.Context, requestID id.RequestID, userID id.UserID) (_ *File, err error) {
	ctx, span := s.startSpan(ctx, "download")
	defer func() { endSpan(span, err) }()

	r, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !r.IsOwnedBy(userID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "you can only download your own documents")
	}
	return s.readGenerated(ctx, r)
}

// AdminDownload returns the generated file of any approved request.
func (s *Service) AdminDownload(ctx context.Context, requestID id.RequestID) (_ *File, err error) {
	ctx, span := s.startSpan(ctx, "admin_download")
	defer func() { endSpan(span, err) }()

	r, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.readGenerated(ctx, r)
}

func (s *Service) readGenerated(ctx context.Context, r *models.Request) (*File, error) {
	if !r.Downloadable() {
		return nil, dErrors.New(dErrors.CodeNotReady, "document is not ready for download")
	}
	content, err := s.generated.Read(ctx, *r.GeneratedFile)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "generated document missing",
				"document_request_id", int64(r.ID),
				"file", *r.GeneratedFile,
			)
			return nil, dErrors.New(dErrors.CodeNotFound, "generated document file not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read generated document")
	}
	return &File{Name: *r.GeneratedFile, Content: content}, nil
}

// ListMine returns the caller's requests, newest first.
func (s *Service) ListMine(ctx context.Context, userID id.UserID) ([]*models.Request, error) {
	out, err := s.requests.ListByUser(ctx, userID, "")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list document requests")
	}
	return out, nil
}

// ListMyPending returns the caller's pending requests, newest first.
func (s *Service) ListMyPending(ctx context.Context, userID id.UserID) ([]*models.Request, error) {
	out, err := s.requests.ListByUser(ctx, userID, models.StatusPending)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending requests")
	}
	return out, nil
}

// MyLatestPending returns the newest pending request or nil.
func (s *Service) MyLatestPending(ctx context.Context, userID id.UserID) (*models.Request, error) {
	pending, err := s.ListMyPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}
	return pending[0], nil
}

// ListPending returns every pending request with its requester.
func (s *Service) ListPending(ctx context.Context) ([]models.RequestWithCitizen, error) {
	return s.listWithCitizens(ctx, models.StatusPending)
}

// ListAll returns every request with its requester.
func (s *Service) ListAll(ctx context.Context) ([]models.RequestWithCitizen, error) {
	return s.listWithCitizens(ctx, "")
}

func (s *Service) listWithCitizens(ctx context.Context, status models.Status) ([]models.RequestWithCitizen, error) {
	requests, err := s.requests.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list document requests")
	}
	summaries := make(map[id.UserID]*models.CitizenSummary)
	out := make([]models.RequestWithCitizen, 0, len(requests))
	for _, r := range requests {
		summary, seen := summaries[r.UserID]
		if !seen {
			p, err := s.citizens.FindByID(ctx, r.UserID)
			switch {
			case err == nil:
				summary = &models.CitizenSummary{
					ID:          p.ID,
					Email:       p.Email,
					FirstName:   p.FirstName,
					LastName:    p.LastName,
					PhoneNumber: p.PhoneNumber,
				}
			case !errors.Is(err, sentinel.ErrNotFound):
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load citizen")
			}
			summaries[r.UserID] = summary
		}
		out = append(out, models.RequestWithCitizen{Request: *r, Citizen: summary})
	}
	return out, nil
}
