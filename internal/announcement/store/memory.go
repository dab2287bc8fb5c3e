// Package store persists announcements and their images.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"barangay/internal/announcement/models"
	id "barangay/pkg/domain"
	"barangay/pkg/platform/sentinel"
)

type InMemory struct {
	mu    sync.RWMutex
	items map[id.AnnouncementID]*models.Announcement
}

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[id.AnnouncementID]*models.Announcement)}
}

func (s *InMemory) Create(_ context.Context, a *models.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[a.ID]; ok {
		return sentinel.ErrConflict
	}
	c := *a
	s.items[a.ID] = &c
	return nil
}

func (s *InMemory) FindByID(_ context.Context, announcementID id.AnnouncementID) (*models.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.items[announcementID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (s *InMemory) Update(_ context.Context, a *models.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	c := *a
	s.items[a.ID] = &c
	return nil
}

func (s *InMemory) Delete(_ context.Context, announcementID id.AnnouncementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[announcementID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.items, announcementID)
	return nil
}

// List returns active announcements by event date, newest first, or every
// announcement by creation time when activeOnly is false.
func (s *InMemory) List(_ context.Context, activeOnly bool) ([]*models.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Announcement, 0, len(s.items))
	for _, a := range s.items {
		if activeOnly && !a.IsActive {
			continue
		}
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if activeOnly && !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// NextActive returns the active announcement with the earliest event date
// after the given time.
func (s *InMemory) NextActive(_ context.Context, after time.Time) (*models.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var next *models.Announcement
	for _, a := range s.items {
		if !a.IsActive || !a.Date.After(after) {
			continue
		}
		if next == nil || a.Date.Before(next.Date) {
			next = a
		}
	}
	if next == nil {
		return nil, sentinel.ErrNotFound
	}
	c := *next
	return &c, nil
}
