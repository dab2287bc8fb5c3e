package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"barangay/internal/citizen/models"
	id "barangay/pkg/domain"
	"barangay/pkg/platform/sentinel"
)

type CitizenStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *CitizenStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestCitizenStoreSuite(t *testing.T) {
	suite.Run(t, new(CitizenStoreSuite))
}

func (s *CitizenStoreSuite) newProfile(email string) *models.Profile {
	dob := time.Date(1988, 2, 1, 0, 0, 0, 0, time.UTC)
	return &models.Profile{
		ID:          id.NewUserID(),
		Email:       email,
		FirstName:   "Maria",
		LastName:    "Santos",
		DateOfBirth: &dob,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func (s *CitizenStoreSuite) TestCreateAndFind() {
	s.Run("round trips a profile", func() {
		p := s.newProfile("maria@example.com")
		s.Require().NoError(s.store.Create(s.ctx, p))

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p.Email, found.Email)
		s.Equal(*p.DateOfBirth, *found.DateOfBirth)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewUserID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate email case-insensitively", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newProfile("dup@example.com")))
		err := s.store.Create(s.ctx, s.newProfile("DUP@example.com"))
		s.ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *CitizenStoreSuite) TestReturnedProfilesAreCopies() {
	p := s.newProfile("copy@example.com")
	s.Require().NoError(s.store.Create(s.ctx, p))

	found, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	found.FirstName = "Mutated"
	newDOB := time.Now()
	found.DateOfBirth = &newDOB

	again, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Maria", again.FirstName)
	s.Equal(*p.DateOfBirth, *again.DateOfBirth)
}

func (s *CitizenStoreSuite) TestUpdateAndFlag() {
	p := s.newProfile("upd@example.com")
	s.Require().NoError(s.store.Create(s.ctx, p))

	p.StreetName = "Mabini"
	s.Require().NoError(s.store.Update(s.ctx, p))
	s.Require().NoError(s.store.SetProfileComplete(s.ctx, p.ID, true))

	found, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Mabini", found.StreetName)
	s.True(found.IsProfileComplete)

	s.ErrorIs(s.store.Update(s.ctx, s.newProfile("ghost@example.com")), sentinel.ErrNotFound)
	s.ErrorIs(s.store.SetProfileComplete(s.ctx, id.NewUserID(), true), sentinel.ErrNotFound)
}

func (s *CitizenStoreSuite) TestCount() {
	complete := s.newProfile("maria@example.com")
	complete.IsProfileComplete = true
	s.Require().NoError(s.store.Create(s.ctx, complete))
	s.Require().NoError(s.store.Create(s.ctx, s.newProfile("jose@example.com")))

	c, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Counts{Total: 2, Complete: 1}, c)
}
