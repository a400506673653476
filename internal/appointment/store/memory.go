package store

import (
	"context"
	"sort"
	"sync"

	"k9hope/internal/appointment/models"
	"k9hope/pkg/domain"
	"k9hope/pkg/platform/sentinel"
)

// InMemory keeps appointments in a map guarded by a RWMutex. Values are
// stored by copy so callers can't mutate shared state behind the lock.
type InMemory struct {
	mu    sync.RWMutex
	appts map[domain.AppointmentID]models.Appointment
}

func NewInMemory() *InMemory {
	return &InMemory{appts: make(map[domain.AppointmentID]models.Appointment)}
}

func (s *InMemory) Create(_ context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appts[appt.ID]; ok {
		return sentinel.ErrDuplicate
	}
	s.appts[appt.ID] = clone(appt)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.AppointmentID) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.appts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(&appt)
	return &out, nil
}

// Update mirrors the PostgreSQL store's conditional write: only a pending
// row transitions, anything terminal stays put and reports ErrInvalidState.
func (s *InMemory) Update(_ context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.appts[appt.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != models.AppointmentStatusPending {
		return sentinel.ErrInvalidState
	}
	s.appts[appt.ID] = clone(appt)
	return nil
}

func (s *InMemory) ListByRequest(_ context.Context, requestID domain.RequestID) ([]*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Appointment
	for _, appt := range s.appts {
		if appt.RequestID != requestID {
			continue
		}
		c := clone(&appt)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func clone(a *models.Appointment) models.Appointment {
	c := *a
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
