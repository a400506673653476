package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"k9hope/internal/donor/models"
	"k9hope/pkg/domain"
	"k9hope/pkg/platform/sentinel"
)

type savedKey struct {
	clinic domain.ClinicID
	donor  domain.DonorID
}

// InMemory keeps donors, the clinic shortlists, and the donation ledger in
// maps guarded by one RWMutex. The ledger keyed by appointment id is what
// makes RecordDonation idempotent; the combined lock is what makes it atomic.
type InMemory struct {
	mu     sync.RWMutex
	donors map[domain.DonorID]models.Donor
	saved  map[savedKey]models.SavedDonorRecord
	ledger map[domain.AppointmentID]domain.DonorID
}

func NewInMemory() *InMemory {
	return &InMemory{
		donors: make(map[domain.DonorID]models.Donor),
		saved:  make(map[savedKey]models.SavedDonorRecord),
		ledger: make(map[domain.AppointmentID]domain.DonorID),
	}
}

func (s *InMemory) Create(_ context.Context, donor *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.donors[donor.ID]; ok {
		return sentinel.ErrDuplicate
	}
	s.donors[donor.ID] = cloneDonor(donor)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.DonorID) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	donor, ok := s.donors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneDonor(&donor)
	return &out, nil
}

func (s *InMemory) Update(_ context.Context, donor *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.donors[donor.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.donors[donor.ID] = cloneDonor(donor)
	return nil
}

func (s *InMemory) ListAvailable(_ context.Context) ([]*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Donor
	for _, donor := range s.donors {
		if !donor.Available {
			continue
		}
		c := cloneDonor(&donor)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// RecordDonation inserts a ledger entry keyed by appointment id and bumps the
// donor's counters in one critical section. A replay of the same appointment
// id is a no-op: recorded=false, counters untouched.
func (s *InMemory) RecordDonation(_ context.Context, donorID domain.DonorID, appointmentID domain.AppointmentID, donatedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	donor, ok := s.donors[donorID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if _, seen := s.ledger[appointmentID]; seen {
		return false, nil
	}
	s.ledger[appointmentID] = donorID
	donor.ApplyDonation(donatedAt)
	s.donors[donorID] = donor
	return true, nil
}

func (s *InMemory) SaveDonor(_ context.Context, record *models.SavedDonorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := savedKey{clinic: record.ClinicID, donor: record.DonorID}
	if _, ok := s.saved[key]; ok {
		return sentinel.ErrDuplicate
	}
	s.saved[key] = *record
	return nil
}

func (s *InMemory) RemoveSaved(_ context.Context, id domain.SavedDonorID) (*models.SavedDonorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, record := range s.saved {
		if record.ID == id {
			delete(s.saved, key)
			c := record
			return &c, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListSaved(_ context.Context, clinicID domain.ClinicID) ([]*models.SavedDonorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.SavedDonorRecord
	for key, record := range s.saved {
		if key.clinic != clinicID {
			continue
		}
		c := record
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].DonorID.String() < out[j].DonorID.String()
		}
		return out[i].SavedAt.Before(out[j].SavedAt)
	})
	return out, nil
}

func cloneDonor(d *models.Donor) models.Donor {
	c := *d
	if d.LastDonation != nil {
		t := *d.LastDonation
		c.LastDonation = &t
	}
	return c
}
