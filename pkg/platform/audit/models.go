// Package audit captures key lifecycle actions as events. Events are emitted
// from domain services, kept transport-agnostic, and fanned out to stores and
// sinks (structured log lines, the postgres outbox, Kafka).
package audit

import (
	"context"
	"time"
)

// Action names the lifecycle event. The set mirrors the operations with
// clinical or regulatory significance; routine reads are not audited.
type Action string

const (
	ActionRequestCreated       Action = "request_created"
	ActionRequestClosed        Action = "request_closed"
	ActionAppointmentBooked    Action = "appointment_booked"
	ActionAppointmentCompleted Action = "appointment_completed"
	ActionAppointmentCancelled Action = "appointment_cancelled"
	ActionDonationRecorded     Action = "donation_recorded"
	ActionDonorSaved           Action = "donor_saved"
	ActionDonorRemoved         Action = "donor_removed"
	ActionInventoryAdjusted    Action = "inventory_adjusted"
)

// Event is a single audit record. Subject identifies the primary aggregate
// (request, appointment, or saved-donor id); the clinic and donor fields are
// set when known so downstream consumers can slice by either party.
type Event struct {
	Timestamp time.Time
	Action    Action
	Subject   string
	ClinicID  string
	DonorID   string
	Detail    string
	RequestID string // HTTP correlation id, when emitted inside a request
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// Publisher delivers audit events to an external sink. Emit must not block
// the calling operation beyond its context deadline; delivery failures are
// logged, never propagated into lifecycle results.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
