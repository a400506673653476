package models

import (
	"strings"
	"time"

	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
)

// AppointmentStatus is the appointment lifecycle state.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// CanTransitionTo encodes the state machine: pending may move to completed or
// cancelled; both are terminal.
func (s AppointmentStatus) CanTransitionTo(target AppointmentStatus) bool {
	if s != AppointmentStatusPending {
		return false
	}
	return target == AppointmentStatusCompleted || target == AppointmentStatusCancelled
}

func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// DonorSnapshot captures donor identity at booking time. It is a snapshot,
// not a live join: later donor profile edits never rewrite appointment
// history.
type DonorSnapshot struct {
	DonorID domain.DonorID `json:"donor_id"`
	Name    string         `json:"name"`
	Phone   string         `json:"phone"`
	Email   string         `json:"email"`
}

// Dog carries the donating dog's attributes as given at booking.
type Dog struct {
	Name      string           `json:"name"`
	WeightKG  float64          `json:"weight_kg"`
	BloodType domain.BloodType `json:"blood_type"`
}

// Appointment is a donor's booking against a blood request.
//
// Invariants:
//   - Status is terminal once completed or cancelled
//   - Completion happens at most once; it stamps CompletedAt and must update
//     the donor aggregate in the same logical operation (the service owns
//     that transactional pairing)
type Appointment struct {
	ID          domain.AppointmentID `json:"id"`
	RequestID   domain.RequestID     `json:"request_id"`
	Donor       DonorSnapshot        `json:"donor"`
	Dog         Dog                  `json:"dog"`
	ScheduledAt time.Time            `json:"scheduled_at"`
	Status      AppointmentStatus    `json:"status"`
	Notes       string               `json:"notes,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// NewAppointment validates booking invariants and returns a pending
// appointment.
func NewAppointment(
	id domain.AppointmentID,
	requestID domain.RequestID,
	donor DonorSnapshot,
	dog Dog,
	scheduledAt time.Time,
	now time.Time,
) (*Appointment, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request id is required")
	}
	if donor.DonorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor id is required")
	}
	if strings.TrimSpace(donor.Name) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor name is required")
	}
	if strings.TrimSpace(dog.Name) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "dog name is required")
	}
	if dog.WeightKG <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "dog weight must be positive")
	}
	if !dog.BloodType.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "dog blood type not in recognized set")
	}
	if scheduledAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "scheduled date is required")
	}
	return &Appointment{
		ID:          id,
		RequestID:   requestID,
		Donor:       donor,
		Dog:         dog,
		ScheduledAt: scheduledAt,
		Status:      AppointmentStatusPending,
		CreatedAt:   now,
	}, nil
}

// CanComplete checks the pending→completed transition.
func (a *Appointment) CanComplete() error {
	if !a.Status.CanTransitionTo(AppointmentStatusCompleted) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "appointment is %s, not pending", a.Status)
	}
	return nil
}

// ApplyComplete transitions to completed, stamping time and notes. Call
// CanComplete first.
func (a *Appointment) ApplyComplete(notes string, now time.Time) {
	a.Status = AppointmentStatusCompleted
	a.Notes = strings.TrimSpace(notes)
	a.CompletedAt = &now
}

// CanCancel checks the pending→cancelled transition.
func (a *Appointment) CanCancel() error {
	if !a.Status.CanTransitionTo(AppointmentStatusCancelled) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "appointment is %s, not pending", a.Status)
	}
	return nil
}

// ApplyCancel transitions to cancelled. No donor side effect; the dog never
// donated.
func (a *Appointment) ApplyCancel() {
	a.Status = AppointmentStatusCancelled
}
