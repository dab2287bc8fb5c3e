// Package store persists citizen profiles.
package store

import (
	"context"
	"strings"
	"sync"

	"barangay/internal/citizen/models"
	id "barangay/pkg/domain"
	"barangay/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded profile store for development and tests.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[id.UserID]*models.Profile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[id.UserID]*models.Profile)}
}

// Create inserts p, rejecting duplicate IDs and emails.
func (s *InMemory) Create(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.profiles {
		if strings.EqualFold(existing.Email, p.Email) {
			return sentinel.ErrConflict
		}
	}
	s.profiles[p.ID] = clone(p)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

// Update replaces the stored profile.
func (s *InMemory) Update(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.profiles[p.ID] = clone(p)
	return nil
}

// SetProfileComplete updates only the cached completeness flag.
func (s *InMemory) SetProfileComplete(_ context.Context, userID id.UserID, complete bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.IsProfileComplete = complete
	return nil
}

func (s *InMemory) Count(_ context.Context) (models.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := models.Counts{Total: len(s.profiles)}
	for _, p := range s.profiles {
		if p.IsProfileComplete {
			c.Complete++
		}
	}
	return c, nil
}

func clone(p *models.Profile) *models.Profile {
	c := *p
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		c.DateOfBirth = &dob
	}
	return &c
}
