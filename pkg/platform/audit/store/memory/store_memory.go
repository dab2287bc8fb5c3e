package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	audit "barangay/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns matching events newest first with the total match count.
func (s *InMemoryStore) List(_ context.Context, filter audit.Filter) ([]audit.Event, int, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	var matched []audit.Event
	for _, e := range s.events {
		if matches(e, filter) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b audit.Event) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func (s *InMemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	var removed int64
	for _, e := range s.events {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return removed, nil
}

func matches(e audit.Event, f audit.Filter) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if !f.UserID.IsNil() && e.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		haystack := strings.ToLower(e.Title + " " + e.Description + " " + e.UserEmail + " " + e.UserName)
		if !strings.Contains(haystack, q) {
			return false
		}
	}
	return true
}
