package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	citizenmodels "barangay/internal/citizen/models"
	citizenstore "barangay/internal/citizen/store"
	docmodels "barangay/internal/documents/models"
	"barangay/internal/documents/store/request"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/requestcontext"
)

type fixedHeadline struct {
	title string
	err   error
}

func (f fixedHeadline) Headline(context.Context) (string, error) {
	return f.title, f.err
}

type DashboardSuite struct {
	suite.Suite
	ctx      context.Context
	citizens *citizenstore.InMemory
	requests *request.InMemory
	resident *citizenmodels.Profile
	admin    *citizenmodels.Profile
	service  *Service
}

func TestDashboardSuite(t *testing.T) {
	suite.Run(t, new(DashboardSuite))
}

var now = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func (s *DashboardSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), now)
	s.citizens = citizenstore.NewInMemory()
	s.requests = request.NewInMemory()

	s.resident = s.addCitizen("juan@example.com", "Juan", "Santos", true)
	s.admin = s.addCitizen("kapitan@example.com", "Maria", "Cruz", false)
	s.service = New(s.requests, s.citizens, fixedHeadline{title: "Fiesta"},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func (s *DashboardSuite) addCitizen(email, first, last string, complete bool) *citizenmodels.Profile {
	p := &citizenmodels.Profile{
		ID:                id.NewUserID(),
		Email:             email,
		FirstName:         first,
		LastName:          last,
		IsProfileComplete: complete,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.Require().NoError(s.citizens.Create(s.ctx, p))
	return p
}

func (s *DashboardSuite) addRequest(user id.UserID, t docmodels.DocumentType, status docmodels.Status, processedBy *id.UserID, age time.Duration) {
	r := &docmodels.Request{
		UserID:      user,
		Type:        t,
		Purpose:     "employment",
		Status:      status,
		ProcessedBy: processedBy,
		CreatedAt:   now.Add(-age - time.Hour),
		UpdatedAt:   now.Add(-age),
	}
	s.Require().NoError(s.requests.Create(s.ctx, r))
}

func (s *DashboardSuite) seed() {
	adminID := s.admin.ID
	stranger := id.NewUserID()
	s.addRequest(s.resident.ID, docmodels.TypeBarangayClearance, docmodels.StatusPending, nil, 90*time.Minute)
	s.addRequest(s.resident.ID, docmodels.TypeCertificateOfResidency, docmodels.StatusApproved, &adminID, 72*time.Hour)
	s.addRequest(id.NewUserID(), docmodels.TypeCertificateOfIndigency, docmodels.StatusDenied, &stranger, 30*time.Second)
}

func (s *DashboardSuite) TestStats() {
	s.seed()

	stats, err := s.service.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.Total)
	s.Equal(1, stats.Complete)
	s.Equal(1, stats.PendingRequests)
	s.Equal(1, stats.ApprovedRequests)
	s.Equal(1, stats.DeniedRequests)
	s.Equal("Fiesta", stats.UpcomingEvent)
}

func (s *DashboardSuite) TestStatsOnEmptyBarangay() {
	svc := New(request.NewInMemory(), citizenstore.NewInMemory(), fixedHeadline{title: "No upcoming events"})
	stats, err := svc.Stats(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats.Total)
	s.Zero(stats.PendingRequests)
	s.Equal("No upcoming events", stats.UpcomingEvent)
}

func (s *DashboardSuite) TestStatsFailsWhenAnySourceFails() {
	svc := New(s.requests, s.citizens, fixedHeadline{err: errors.New("db down")})
	_, err := svc.Stats(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *DashboardSuite) TestRecentRequests() {
	s.seed()

	items, err := s.service.RecentRequests(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(items, 3)

	denied, pending, approved := items[0], items[1], items[2]

	s.Equal("Denied", denied.Action)
	s.Equal("Denied - Certificate of Indigency", denied.Title)
	s.Equal("Admin denied Certificate of Indigency for Unknown resident", denied.Description)
	s.Equal("30 seconds ago", denied.Time)

	s.Equal("Created", pending.Action)
	s.Equal("Created - Barangay Clearance", pending.Title)
	s.Equal("Juan Santos requested Barangay Clearance", pending.Description)
	s.Equal("Juan Santos", pending.UserName)
	s.Equal("1 hour ago", pending.Time)

	s.Equal("Approved", approved.Action)
	s.Equal("Maria Cruz approved Certificate of Residency for Juan Santos", approved.Description)
	s.Equal("3 days ago", approved.Time)
	s.Equal(docmodels.StatusApproved, approved.Status)
	s.Equal(docmodels.TypeCertificateOfResidency, approved.RequestType)
}

func (s *DashboardSuite) TestRecentRequestsLimit() {
	for i := range 8 {
		s.addRequest(id.NewUserID(), docmodels.TypeBarangayClearance, docmodels.StatusPending, nil, time.Duration(i)*time.Minute)
	}

	s.Run("defaults to five", func() {
		items, err := s.service.RecentRequests(s.ctx, 0)
		s.Require().NoError(err)
		s.Len(items, DefaultRecentLimit)
		s.Equal("now", items[0].Time)
	})

	s.Run("honours an explicit limit", func() {
		items, err := s.service.RecentRequests(s.ctx, 2)
		s.Require().NoError(err)
		s.Len(items, 2)
	})

	s.Run("caps large limits", func() {
		items, err := s.service.RecentRequests(s.ctx, 10_000)
		s.Require().NoError(err)
		s.Len(items, 8)
	})
}
