// Package request persists document requests and guards their transitions.
package request

import (
	"context"
	"sort"
	"sync"

	"barangay/internal/documents/models"
	id "barangay/pkg/domain"
	"barangay/pkg/platform/sentinel"
)

// InMemory keeps requests in a map. The mutex covers the pending-uniqueness
// check and the insert so concurrent submissions cannot both succeed.
type InMemory struct {
	mu       sync.RWMutex
	nextID   int64
	requests map[id.RequestID]*models.Request
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[id.RequestID]*models.Request)}
}

// Create assigns the next ID and stores r. A citizen-submitted pending
// request conflicts with another citizen-submitted pending request of the
// same type for the same user.
func (s *InMemory) Create(_ context.Context, r *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Status == models.StatusPending && !r.AdminCreated {
		for _, existing := range s.requests {
			if existing.UserID == r.UserID && existing.Type == r.Type &&
				existing.Status == models.StatusPending && !existing.AdminCreated {
				return sentinel.ErrConflict
			}
		}
	}
	s.nextID++
	r.ID = id.RequestID(s.nextID)
	s.requests[r.ID] = clone(r)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(r), nil
}

// FindPending returns the user's pending request of type t, admin-created
// ones included.
func (s *InMemory) FindPending(_ context.Context, userID id.UserID, t models.DocumentType) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.Request
	for _, r := range s.requests {
		if r.UserID == userID && r.Type == t && r.Status == models.StatusPending {
			if found == nil || newer(r, found) {
				found = r
			}
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return clone(found), nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID, status models.Status) ([]*models.Request, error) {
	return s.list(func(r *models.Request) bool {
		return r.UserID == userID && (status == "" || r.Status == status)
	}), nil
}

// ListByStatus lists every request with status, or all requests when status
// is empty. Newest first.
func (s *InMemory) ListByStatus(_ context.Context, status models.Status) ([]*models.Request, error) {
	return s.list(func(r *models.Request) bool {
		return status == "" || r.Status == status
	}), nil
}

// CountByStatus returns the number of requests in each status.
func (s *InMemory) CountByStatus(_ context.Context) (map[models.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.Status]int)
	for _, r := range s.requests {
		counts[r.Status]++
	}
	return counts, nil
}

// ListRecent returns up to limit requests, most recently updated first.
func (s *InMemory) ListRecent(_ context.Context, limit int) ([]*models.Request, error) {
	out := s.list(func(*models.Request) bool { return true })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) list(keep func(*models.Request) bool) []*models.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Request, 0)
	for _, r := range s.requests {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out
}

// Transition applies t only while the request is still pending.
func (s *InMemory) Transition(_ context.Context, requestID id.RequestID, t models.Transition) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !r.Status.CanTransitionTo(t.To) {
		return nil, sentinel.ErrInvalidState
	}
	applyTransition(r, t)
	return clone(r), nil
}

// DeletePending removes the request if it is still pending.
func (s *InMemory) DeletePending(_ context.Context, requestID id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok || r.Status != models.StatusPending {
		return sentinel.ErrNotFound
	}
	delete(s.requests, requestID)
	return nil
}

func applyTransition(r *models.Request, t models.Transition) {
	processedBy := t.ProcessedBy
	processedAt := t.ProcessedAt
	r.Status = t.To
	r.ProcessedBy = &processedBy
	r.ProcessedAt = &processedAt
	r.AdminNotes = t.AdminNotes
	r.DenialReason = t.DenialReason
	r.GeneratedFile = t.GeneratedFile
	r.UpdatedAt = t.ProcessedAt
}

func newer(a, b *models.Request) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func clone(r *models.Request) *models.Request {
	c := *r
	c.AdminNotes = cloneString(r.AdminNotes)
	c.DenialReason = cloneString(r.DenialReason)
	c.GeneratedFile = cloneString(r.GeneratedFile)
	if r.ProcessedBy != nil {
		v := *r.ProcessedBy
		c.ProcessedBy = &v
	}
	if r.ProcessedAt != nil {
		v := *r.ProcessedAt
		c.ProcessedAt = &v
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
