// Package service reads the activity log and enforces its retention window.
package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/mssola/useragent"

	dErrors "barangay/pkg/domain-errors"
	audit "barangay/pkg/platform/audit"
)

// DefaultRetention is how long activity entries are kept.
const DefaultRetention = 150 * 24 * time.Hour

type Store interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Event, int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Client summarises the user agent that produced an entry.
type Client struct {
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browserVersion,omitempty"`
	OS             string `json:"os,omitempty"`
	Mobile         bool   `json:"mobile"`
	Bot            bool   `json:"bot"`
}

type Entry struct {
	audit.Event
	Client *Client `json:"client,omitempty"`
}

type Page struct {
	Logs       []Entry `json:"logs"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

type Service struct {
	store     Store
	publisher AuditPublisher
	logger    *slog.Logger
	retention time.Duration
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRetention overrides DefaultRetention. Non-positive values are ignored.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithAuditPublisher records purges as activity entries.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func withClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    slog.Default(),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of entries, newest first.
func (s *Service) List(ctx context.Context, filter audit.Filter) (*Page, error) {
	filter = filter.Normalize()
	events, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list activity logs")
	}
	logs := make([]Entry, 0, len(events))
	for _, e := range events {
		logs = append(logs, Entry{Event: e, Client: summarize(e.UserAgent)})
	}
	return &Page{
		Logs:       logs,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func summarize(raw string) *Client {
	if raw == "" {
		return nil
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	return &Client{
		Browser:        name,
		BrowserVersion: version,
		OS:             ua.OS(),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
}

// Purge deletes entries older than the retention window.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge activity logs")
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "activity logs purged", "deleted", n, "cutoff", cutoff)
		if s.publisher != nil {
			event := audit.NewEvent(ctx, audit.EventActivityPurged, "Activity logs purged",
				strconv.FormatInt(n, 10)+" entries older than "+cutoff.Format(time.DateOnly)+" removed")
			event.Timestamp = s.now().UTC()
			event.Changes = map[string]any{"deleted": n, "cutoff": cutoff.UTC().Format(time.RFC3339)}
			if err := s.publisher.Emit(ctx, event); err != nil {
				s.logger.WarnContext(ctx, "failed to record purge", "error", err)
			}
		}
	}
	return n, nil
}

// RunRetention purges once and then every interval until ctx is done.
func (s *Service) RunRetention(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Purge(ctx); err != nil {
			s.logger.ErrorContext(ctx, "activity retention failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
