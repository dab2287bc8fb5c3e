package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"barangay/internal/citizen/models"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	audit "barangay/pkg/platform/audit"
	"barangay/pkg/platform/sentinel"
	"barangay/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, p *models.Profile) error
	FindByID(ctx context.Context, userID id.UserID) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages citizen profiles and keeps the cached completeness flag
// in sync on every mutation.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a profile. Account creation proper belongs to the auth
// service; this exists for seeding and admin imports.
func (s *Service) Register(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if p.ID.IsNil() {
		p.ID = id.NewUserID()
	}
	if p.Role == "" {
		p.Role = requestcontext.RoleResident
	}
	now := requestcontext.Now(ctx)
	p.CreatedAt, p.UpdatedAt = now, now
	p.IsProfileComplete = models.IsComplete(p)

	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a citizen with this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create citizen")
	}

	event := audit.NewEvent(ctx, audit.EventCitizenRegistered, "Citizen registered", p.Email)
	event.UserName = p.FullName()
	s.emit(ctx, event)
	return p, nil
}

// Get returns the stored profile.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	p, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "citizen not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load citizen")
	}
	return p, nil
}

// Update applies the allow-listed fields in update and recomputes the
// cached completeness flag.
func (s *Service) Update(ctx context.Context, userID id.UserID, update models.ProfileUpdate) (*models.Profile, error) {
	if update.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "no profile fields to update")
	}
	if update.DateOfBirth != nil && update.DateOfBirth.After(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeValidation, "date of birth cannot be in the future")
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	changed := update.Apply(p)
	wasComplete := p.IsProfileComplete
	p.IsProfileComplete = models.IsComplete(p)
	if len(changed) == 0 && wasComplete == p.IsProfileComplete {
		return p, nil
	}
	p.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Update(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "citizen not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update citizen")
	}

	s.logger.InfoContext(ctx, "profile updated",
		"user_id", userID.String(),
		"fields", changed,
		"complete", p.IsProfileComplete,
		"request_id", requestcontext.RequestID(ctx),
	)
	event := audit.NewEvent(ctx, audit.EventProfileUpdated, "Profile updated", strings.Join(changed, ", "))
	event.UserName = p.FullName()
	event.Changes = map[string]any{"fields": changed, "isProfileComplete": p.IsProfileComplete}
	s.emit(ctx, event)
	return p, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit activity event", "action", event.Action, "error", err)
	}
}
