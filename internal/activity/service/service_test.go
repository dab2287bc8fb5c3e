package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "barangay/pkg/domain"
	audit "barangay/pkg/platform/audit"
	auditmemory "barangay/pkg/platform/audit/store/memory"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type ActivityServiceSuite struct {
	suite.Suite
	ctx   context.Context
	store *auditmemory.InMemoryStore
	now   time.Time
	svc   *Service
}

func TestActivityServiceSuite(t *testing.T) {
	suite.Run(t, new(ActivityServiceSuite))
}

func (s *ActivityServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = auditmemory.NewInMemoryStore()
	s.now = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	s.svc = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRetention(30*24*time.Hour),
		withClock(func() time.Time { return s.now }),
	)
}

func (s *ActivityServiceSuite) append(action audit.AuditEvent, at time.Time, userID id.UserID, ua string) {
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		ID:        uuid.New(),
		Type:      action.Type(),
		Action:    string(action),
		Title:     string(action),
		UserID:    userID,
		UserAgent: ua,
		Timestamp: at,
	}))
}

func (s *ActivityServiceSuite) TestListPagesNewestFirst() {
	user := id.NewUserID()
	for i := 0; i < 5; i++ {
		s.append(audit.EventDocumentRequested, s.now.Add(-time.Duration(i)*time.Hour), user, chromeUA)
	}
	s.append(audit.EventTemplateUploaded, s.now, id.NewUserID(), "")

	page, err := s.svc.List(s.ctx, audit.Filter{Type: audit.TypeDocument, Page: 2, Limit: 2})
	s.Require().NoError(err)
	s.Equal(5, page.Total)
	s.Equal(3, page.TotalPages)
	s.Require().Len(page.Logs, 2)
	s.True(page.Logs[0].Timestamp.After(page.Logs[1].Timestamp))
	s.Require().NotNil(page.Logs[0].Client)
	s.Equal("Chrome", page.Logs[0].Client.Browser)
	s.False(page.Logs[0].Client.Mobile)

	all, err := s.svc.List(s.ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Equal(audit.DefaultPageLimit, all.Limit)
	s.Len(all.Logs, 6)
}

func (s *ActivityServiceSuite) TestPurgeRemovesOldEntries() {
	user := id.NewUserID()
	s.append(audit.EventDocumentApproved, s.now.Add(-40*24*time.Hour), user, "")
	s.append(audit.EventDocumentApproved, s.now.Add(-10*24*time.Hour), user, "")

	n, err := s.svc.Purge(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	page, err := s.svc.List(s.ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
}

func (s *ActivityServiceSuite) TestRunRetentionStopsOnCancel() {
	s.append(audit.EventDocumentApproved, s.now.Add(-40*24*time.Hour), id.NewUserID(), "")
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.svc.RunRetention(ctx, time.Hour) }()

	s.Eventually(func() bool {
		page, err := s.svc.List(s.ctx, audit.Filter{})
		return err == nil && page.Total == 0
	}, time.Second, 10*time.Millisecond)
	cancel()
	s.NoError(<-done)
}
