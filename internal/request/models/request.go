package models

import (
	"strings"
	"time"

	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
)

// RequestStatus is the blood request lifecycle state.
type RequestStatus string

const (
	RequestStatusOpen   RequestStatus = "open"
	RequestStatusClosed RequestStatus = "closed"
)

// CanTransitionTo encodes the one-way lifecycle: open→closed, never back.
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	return s == RequestStatusOpen && target == RequestStatusClosed
}

// LinkedPatient is an optional reference to the patient the blood is for,
// with the display name snapshotted at request time.
type LinkedPatient struct {
	ID   domain.PatientID `json:"id"`
	Name string           `json:"name"`
}

// BloodRequest is the aggregate root for a clinic's donation request.
//
// Invariants:
//   - QuantityML is positive and immutable after creation
//   - BloodType is in the recognized vocabulary and immutable after creation
//   - ExpiresAt lies in (CreatedAt, CreatedAt+30d]
//   - Status transitions only open→closed, never reversed
//
// Closing a request never cascades to its appointments: completed and
// cancelled appointments retain historical value, and pending ones stay
// visible to the clinic for follow-up.
type BloodRequest struct {
	ID            domain.RequestID `json:"id"`
	ClinicID      domain.ClinicID  `json:"clinic_id"`
	BloodType     domain.BloodType `json:"blood_type"`
	QuantityML    int              `json:"quantity_ml"`
	Urgent        bool             `json:"urgent"`
	Reason        string           `json:"reason,omitempty"`
	LinkedPatient *LinkedPatient   `json:"linked_patient,omitempty"`
	Status        RequestStatus    `json:"status"`
	ExpiresAt     time.Time        `json:"expires_at"`
	CreatedAt     time.Time        `json:"created_at"`
	ClosedAt      *time.Time       `json:"closed_at,omitempty"`
}

// NewBloodRequest validates creation invariants and returns an open request.
func NewBloodRequest(
	id domain.RequestID,
	clinicID domain.ClinicID,
	bloodType domain.BloodType,
	quantityML int,
	urgent bool,
	reason string,
	linkedPatient *LinkedPatient,
	expiresAt time.Time,
	now time.Time,
) (*BloodRequest, error) {
	if clinicID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "clinic id is required")
	}
	if !bloodType.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "blood type not in recognized set")
	}
	if quantityML <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "quantity must be a positive number of milliliters")
	}
	if !expiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expiry must be in the future")
	}
	if expiresAt.After(now.Add(domain.MaxRequestExpiryWindow)) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expiry must be within 30 days of creation")
	}
	return &BloodRequest{
		ID:            id,
		ClinicID:      clinicID,
		BloodType:     bloodType,
		QuantityML:    quantityML,
		Urgent:        urgent,
		Reason:        strings.TrimSpace(reason),
		LinkedPatient: linkedPatient,
		Status:        RequestStatusOpen,
		ExpiresAt:     expiresAt,
		CreatedAt:     now,
	}, nil
}

func (r *BloodRequest) IsOpen() bool {
	return r.Status == RequestStatusOpen
}

// CanClose checks the close transition. Closing an already-closed request is
// an explicit error, not a no-op, so callers detect stale UI state.
func (r *BloodRequest) CanClose() error {
	if !r.Status.CanTransitionTo(RequestStatusClosed) {
		return dErrors.New(dErrors.CodeInvariantViolation, "request is already closed")
	}
	return nil
}

// ApplyClose transitions the request to closed and stamps the close time.
// Call CanClose first to validate the transition.
func (r *BloodRequest) ApplyClose(now time.Time) {
	r.Status = RequestStatusClosed
	r.ClosedAt = &now
}
