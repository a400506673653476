package store

import (
	"context"
	"sync"

	"k9hope/pkg/domain"
	"k9hope/pkg/platform/sentinel"
)

// InMemory keeps per-clinic stock levels in nested maps guarded by one
// mutex, so an adjustment's read-check-write is atomic.
type InMemory struct {
	mu     sync.RWMutex
	levels map[domain.ClinicID]map[domain.BloodType]int
}

func NewInMemory() *InMemory {
	return &InMemory{levels: make(map[domain.ClinicID]map[domain.BloodType]int)}
}

// Adjust moves one clinic's level for one blood type by deltaML and returns
// the new level. An adjustment that would take the level below zero is
// rejected with ErrInvalidState and changes nothing.
func (s *InMemory) Adjust(_ context.Context, clinicID domain.ClinicID, bloodType domain.BloodType, deltaML int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clinic, ok := s.levels[clinicID]
	if !ok {
		clinic = make(map[domain.BloodType]int)
		s.levels[clinicID] = clinic
	}
	next := clinic[bloodType] + deltaML
	if next < 0 {
		return 0, sentinel.ErrInvalidState
	}
	clinic[bloodType] = next
	return next, nil
}

// Levels returns a clinic's stock keyed by blood type. Types never adjusted
// are absent; the service zero-fills.
func (s *InMemory) Levels(_ context.Context, clinicID domain.ClinicID) (map[domain.BloodType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.BloodType]int)
	for bloodType, quantity := range s.levels[clinicID] {
		out[bloodType] = quantity
	}
	return out, nil
}
