//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "barangay/pkg/domain"
	audit "barangay/pkg/platform/audit"
	auditpostgres "barangay/pkg/platform/audit/store/postgres"
	"barangay/pkg/testutil/containers"
)

type ActivityStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpostgres.Store
	base     time.Time
}

func TestActivityStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ActivityStoreSuite))
}

func (s *ActivityStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = auditpostgres.New(s.postgres.DB)
	s.base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ActivityStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "activity_logs"))
}

func (s *ActivityStoreSuite) append(action audit.AuditEvent, user id.UserID, title string, at time.Time) audit.Event {
	e := audit.Event{
		ID:        uuid.New(),
		Type:      action.Type(),
		Action:    string(action),
		Title:     title,
		UserID:    user,
		UserEmail: "clerk@bagongbarrio.gov.ph",
		Changes:   map[string]any{"requestId": float64(12)},
		Timestamp: at,
	}
	s.Require().NoError(s.store.Append(context.Background(), e))
	return e
}

func (s *ActivityStoreSuite) TestAppendIsIdempotentAndRoundTrips() {
	ctx := context.Background()
	e := s.append(audit.EventDocumentApproved, id.NewUserID(), "Document approved", s.base)
	s.Require().NoError(s.store.Append(ctx, e))

	events, total, err := s.store.List(ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(events, 1)
	s.Equal(e.ID, events[0].ID)
	s.Equal(audit.TypeDocument, events[0].Type)
	s.Equal(e.UserID, events[0].UserID)
	s.Equal(float64(12), events[0].Changes["requestId"])
	s.True(e.Timestamp.Equal(events[0].Timestamp))
}

func (s *ActivityStoreSuite) TestSystemEventWithoutUser() {
	ctx := context.Background()
	s.append(audit.EventActivityPurged, id.UserID{}, "Activity logs purged", s.base)

	events, _, err := s.store.List(ctx, audit.Filter{Type: audit.TypeSystem})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.True(events[0].UserID.IsNil())
}

func (s *ActivityStoreSuite) TestListFiltersSearchAndPages() {
	ctx := context.Background()
	maria := id.NewUserID()
	s.append(audit.EventDocumentRequested, maria, "Clearance requested", s.base)
	s.append(audit.EventDocumentDenied, maria, "Clearance denied", s.base.Add(time.Hour))
	s.append(audit.EventTemplateUploaded, id.NewUserID(), "Template uploaded", s.base.Add(2*time.Hour))

	events, total, err := s.store.List(ctx, audit.Filter{UserID: maria, Query: "clearance", Limit: 1, Page: 2})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(events, 1)
	s.Equal("Clearance requested", events[0].Title)

	events, total, err = s.store.List(ctx, audit.Filter{From: s.base.Add(30 * time.Minute), To: s.base.Add(90 * time.Minute)})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal("Clearance denied", events[0].Title)
}

func (s *ActivityStoreSuite) TestDeleteOlderThan() {
	ctx := context.Background()
	s.append(audit.EventDocumentApproved, id.NewUserID(), "old", s.base.AddDate(0, -6, 0))
	s.append(audit.EventDocumentApproved, id.NewUserID(), "recent", s.base)

	n, err := s.store.DeleteOlderThan(ctx, s.base.AddDate(0, 0, -150))
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, total, err := s.store.List(ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Equal(1, total)
}
