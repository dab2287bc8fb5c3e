// Package service computes the admin dashboard summary from the request,
// citizen and announcement stores.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	citizen "barangay/internal/citizen/models"
	docmodels "barangay/internal/documents/models"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/requestcontext"
)

const (
	DefaultRecentLimit = 5
	MaxRecentLimit     = 50
)

type RequestStore interface {
	CountByStatus(ctx context.Context) (map[docmodels.Status]int, error)
	ListRecent(ctx context.Context, limit int) ([]*docmodels.Request, error)
}

type CitizenStore interface {
	Count(ctx context.Context) (citizen.Counts, error)
	FindByID(ctx context.Context, userID id.UserID) (*citizen.Profile, error)
}

// Announcements supplies the headline shown as the upcoming event.
type Announcements interface {
	Headline(ctx context.Context) (string, error)
}

type Stats struct {
	citizen.Counts
	PendingRequests  int    `json:"pendingRequests"`
	ApprovedRequests int    `json:"approvedRequests"`
	DeniedRequests   int    `json:"deniedRequests"`
	UpcomingEvent    string `json:"upcomingEvent"`
}

// RecentRequest is one line of the dashboard's request activity feed.
type RecentRequest struct {
	ID          id.RequestID           `json:"id"`
	Action      string                 `json:"action"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Time        string                 `json:"time"`
	Status      docmodels.Status       `json:"status"`
	RequestType docmodels.DocumentType `json:"requestType"`
	UserName    string                 `json:"userName"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

type Service struct {
	requests      RequestStore
	citizens      CitizenStore
	announcements Announcements
	logger        *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(requests RequestStore, citizens CitizenStore, announcements Announcements, opts ...Option) *Service {
	s := &Service{requests: requests, citizens: citizens, announcements: announcements, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats gathers the counters in parallel.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var (
		out    Stats
		counts map[docmodels.Status]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.citizens.Count(gctx)
		if err != nil {
			return err
		}
		out.Counts = c
		return nil
	})
	g.Go(func() error {
		c, err := s.requests.CountByStatus(gctx)
		counts = c
		return err
	})
	g.Go(func() error {
		headline, err := s.announcements.Headline(gctx)
		out.UpcomingEvent = headline
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dashboard statistics")
	}
	out.PendingRequests = counts[docmodels.StatusPending]
	out.ApprovedRequests = counts[docmodels.StatusApproved]
	out.DeniedRequests = counts[docmodels.StatusDenied]
	return &out, nil
}

// RecentRequests lists the most recently changed requests as feed entries.
// A non-positive limit selects DefaultRecentLimit.
func (s *Service) RecentRequests(ctx context.Context, limit int) ([]RecentRequest, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	requests, err := s.requests.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load recent requests")
	}

	now := requestcontext.Now(ctx)
	names := make(map[id.UserID]string)
	out := make([]RecentRequest, 0, len(requests))
	for _, r := range requests {
		userName := s.nameOf(ctx, names, r.UserID, "Unknown resident")
		typeName := r.Type.DisplayName()
		entry := RecentRequest{
			ID:          r.ID,
			Time:        humanize.RelTime(r.UpdatedAt, now, "ago", "from now"),
			Status:      r.Status,
			RequestType: r.Type,
			UserName:    userName,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
		switch r.Status {
		case docmodels.StatusApproved, docmodels.StatusDenied:
			admin := "Admin"
			if r.ProcessedBy != nil {
				admin = s.nameOf(ctx, names, *r.ProcessedBy, "Admin")
			}
			entry.Action = "Approved"
			verb := "approved"
			if r.Status == docmodels.StatusDenied {
				entry.Action, verb = "Denied", "denied"
			}
			entry.Description = admin + " " + verb + " " + typeName + " for " + userName
		default:
			entry.Action = "Created"
			entry.Description = userName + " requested " + typeName
		}
		entry.Title = entry.Action + " - " + typeName
		out = append(out, entry)
	}
	return out, nil
}

// nameOf resolves a display name once per call. Lookup failures fall back.
func (s *Service) nameOf(ctx context.Context, cache map[id.UserID]string, userID id.UserID, fallback string) string {
	if name, ok := cache[userID]; ok {
		return name
	}
	name := fallback
	p, err := s.citizens.FindByID(ctx, userID)
	if err == nil && p.FullName() != "" {
		name = p.FullName()
	} else if err != nil {
		s.logger.DebugContext(ctx, "dashboard name lookup failed", "user_id", userID.String(), "error", err)
	}
	cache[userID] = name
	return name
}
