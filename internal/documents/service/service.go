// Package service implements the document request workflow: submission,
// admin processing, certificate generation and download.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	citizen "barangay/internal/citizen/models"
	"barangay/internal/documents/metrics"
	"barangay/internal/documents/models"
	"barangay/internal/notification/dispatcher"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	audit "barangay/pkg/platform/audit"
	"barangay/pkg/platform/sentinel"
	"barangay/pkg/platform/tx"
)

type RequestStore interface {
	Create(ctx context.Context, r *models.Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	FindPending(ctx context.Context, userID id.UserID, t models.DocumentType) (*models.Request, error)
	ListByUser(ctx context.Context, userID id.UserID, status models.Status) ([]*models.Request, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.Request, error)
	Transition(ctx context.Context, requestID id.RequestID, t models.Transition) (*models.Request, error)
	DeletePending(ctx context.Context, requestID id.RequestID) error
}

type CitizenStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*citizen.Profile, error)
	SetProfileComplete(ctx context.Context, userID id.UserID, complete bool) error
}

type TemplateStore interface {
	Get(ctx context.Context, t models.DocumentType) ([]byte, error)
	Put(ctx context.Context, t models.DocumentType, data []byte) error
	Status(ctx context.Context, t models.DocumentType) (models.TemplateStatus, error)
}

// GeneratedStore keeps approved certificates. Create must fail with
// sentinel.ErrConflict when name is taken; Write replaces.
type GeneratedStore interface {
	Create(ctx context.Context, name string, data []byte) error
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	Remove(ctx context.Context, name string) error
}

// Notifier accepts SMS notifications. Enqueue must not block.
type Notifier interface {
	Enqueue(ctx context.Context, msg dispatcher.Message)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the document workflow engine.
type Service struct {
	requests  RequestStore
	citizens  CitizenStore
	templates TemplateStore
	generated GeneratedStore
	tx        tx.Runner

	notifier       Notifier
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer

	defaults  singleflight.Group
	approving sync.Map
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithTxRunner sets the unit of work wrapping status transitions. Defaults
// to tx.NopRunner for in-memory stores.
func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

func New(requests RequestStore, citizens CitizenStore, templates TemplateStore, generated GeneratedStore, opts ...Option) *Service {
	s := &Service{
		requests:  requests,
		citizens:  citizens,
		templates: templates,
		generated: generated,
		tx:        tx.NopRunner{},
		logger:    slog.Default(),
		tracer:    otel.Tracer("barangay/documents"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "documents."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

func (s *Service) loadRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	r, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document request")
	}
	return r, nil
}

func (s *Service) loadCitizen(ctx context.Context, userID id.UserID) (*citizen.Profile, error) {
	p, err := s.citizens.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "citizen not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load citizen")
	}
	return p, nil
}

// transitionError maps a failed guarded update.
func transitionError(err error) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "document request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "document request has already been processed")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document request")
	}
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

func (s *Service) notify(ctx context.Context, msg dispatcher.Message) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(ctx, msg)
}
