// Package store persists blood requests. The in-memory implementation keeps
// unit tests and local development free of external services; PostgresStore
// is the durable gateway.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"k9hope/internal/request/models"
	"k9hope/pkg/domain"
	"k9hope/pkg/platform/sentinel"
)

// InMemory stores requests in a map guarded by a RWMutex. It favors clarity
// over performance and copies records on the way in and out so callers never
// alias store state.
type InMemory struct {
	mu       sync.RWMutex
	requests map[domain.RequestID]models.BloodRequest
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[domain.RequestID]models.BloodRequest)}
}

func (s *InMemory) Create(_ context.Context, request *models.BloodRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[request.ID]; exists {
		return sentinel.ErrDuplicate
	}
	s.requests[request.ID] = *request
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.RequestID) (*models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &request, nil
}

// Close performs the open→closed transition as a single compare-and-set so
// two concurrent close calls cannot both succeed.
func (s *InMemory) Close(_ context.Context, id domain.RequestID, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if request.Status != models.RequestStatusOpen {
		return sentinel.ErrInvalidState
	}
	request.ApplyClose(closedAt)
	s.requests[id] = request
	return nil
}

func (s *InMemory) ListByClinic(_ context.Context, clinicID domain.ClinicID, status *models.RequestStatus) ([]*models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.BloodRequest
	for _, request := range s.requests {
		if request.ClinicID != clinicID {
			continue
		}
		if status != nil && request.Status != *status {
			continue
		}
		copied := request
		result = append(result, &copied)
	}

	// Newest first, matching the clinic dashboard ordering.
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
