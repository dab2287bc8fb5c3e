package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"barangay/internal/announcement/models"
	id "barangay/pkg/domain"
	"barangay/pkg/platform/sentinel"
)

type AnnouncementStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *AnnouncementStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestAnnouncementStoreSuite(t *testing.T) {
	suite.Run(t, new(AnnouncementStoreSuite))
}

var base = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func (s *AnnouncementStoreSuite) add(title string, eventDay int, active bool, createdOffset time.Duration) *models.Announcement {
	a := &models.Announcement{
		ID:          id.NewAnnouncementID(),
		Title:       title,
		Description: title + " details",
		Date:        time.Date(2024, 7, eventDay, 0, 0, 0, 0, time.UTC),
		IsActive:    active,
		CreatedBy:   id.NewUserID(),
		CreatedAt:   base.Add(createdOffset),
		UpdatedAt:   base.Add(createdOffset),
	}
	s.Require().NoError(s.store.Create(s.ctx, a))
	return a
}

func titles(items []*models.Announcement) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, a.Title)
	}
	return out
}

func (s *AnnouncementStoreSuite) TestCRUD() {
	a := s.add("Clean-up drive", 10, true, 0)

	s.Run("rejects a duplicate ID", func() {
		s.ErrorIs(s.store.Create(s.ctx, a), sentinel.ErrConflict)
	})

	s.Run("returns copies", func() {
		found, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		found.Title = "mutated"

		again, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal("Clean-up drive", again.Title)
	})

	s.Run("updates existing announcements only", func() {
		a.Title = "Coastal clean-up"
		s.Require().NoError(s.store.Update(s.ctx, a))
		found, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal("Coastal clean-up", found.Title)

		ghost := *a
		ghost.ID = id.NewAnnouncementID()
		s.ErrorIs(s.store.Update(s.ctx, &ghost), sentinel.ErrNotFound)
	})

	s.Run("deletes", func() {
		s.Require().NoError(s.store.Delete(s.ctx, a.ID))
		_, err := s.store.FindByID(s.ctx, a.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.ErrorIs(s.store.Delete(s.ctx, a.ID), sentinel.ErrNotFound)
	})
}

func (s *AnnouncementStoreSuite) TestListOrdering() {
	s.add("Fiesta", 20, true, 0)
	s.add("Vaccination", 5, true, time.Hour)
	s.add("Hidden", 25, false, 2*time.Hour)
	s.add("Assembly", 20, true, 3*time.Hour)

	s.Run("active by event date then creation", func() {
		items, err := s.store.List(s.ctx, true)
		s.Require().NoError(err)
		s.Equal([]string{"Assembly", "Fiesta", "Vaccination"}, titles(items))
	})

	s.Run("all by creation time", func() {
		items, err := s.store.List(s.ctx, false)
		s.Require().NoError(err)
		s.Equal([]string{"Assembly", "Hidden", "Vaccination", "Fiesta"}, titles(items))
	})
}

func (s *AnnouncementStoreSuite) TestNextActive() {
	s.Run("not found when empty", func() {
		_, err := s.store.NextActive(s.ctx, base)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.add("Today", 1, true, 0)
	s.add("Later", 15, true, 0)
	s.add("Sooner", 8, true, 0)
	s.add("Inactive soon", 3, false, 0)

	s.Run("earliest active event after the given time", func() {
		next, err := s.store.NextActive(s.ctx, base)
		s.Require().NoError(err)
		s.Equal("Sooner", next.Title)
	})

	s.Run("not found once every event has passed", func() {
		_, err := s.store.NextActive(s.ctx, base.AddDate(0, 1, 0))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
