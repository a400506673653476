// Package domain holds shared domain primitives: typed identifiers, the
// canine blood-type vocabulary, and the DAHD rule constants. Typed IDs keep
// clinic, donor, request, and appointment references from being swapped at
// compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "k9hope/pkg/domain-errors"
)

// Typed identifiers for the aggregates in the lifecycle engine.
type (
	ClinicID      uuid.UUID
	DonorID       uuid.UUID
	RequestID     uuid.UUID
	AppointmentID uuid.UUID
	SavedDonorID  uuid.UUID
	PatientID     uuid.UUID
)

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
// Parsing happens at trust boundaries (handlers); everything inside the
// engine carries the typed form.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, kind+" id must not be nil")
	}
	return parsed, nil
}

func ParseClinicID(raw string) (ClinicID, error) {
	parsed, err := parseUUID(raw, "clinic")
	return ClinicID(parsed), err
}

func ParseDonorID(raw string) (DonorID, error) {
	parsed, err := parseUUID(raw, "donor")
	return DonorID(parsed), err
}

func ParseRequestID(raw string) (RequestID, error) {
	parsed, err := parseUUID(raw, "request")
	return RequestID(parsed), err
}

func ParseAppointmentID(raw string) (AppointmentID, error) {
	parsed, err := parseUUID(raw, "appointment")
	return AppointmentID(parsed), err
}

func ParseSavedDonorID(raw string) (SavedDonorID, error) {
	parsed, err := parseUUID(raw, "saved donor")
	return SavedDonorID(parsed), err
}

func ParsePatientID(raw string) (PatientID, error) {
	parsed, err := parseUUID(raw, "patient")
	return PatientID(parsed), err
}

func (id ClinicID) String() string      { return uuid.UUID(id).String() }
func (id DonorID) String() string       { return uuid.UUID(id).String() }
func (id RequestID) String() string     { return uuid.UUID(id).String() }
func (id AppointmentID) String() string { return uuid.UUID(id).String() }
func (id SavedDonorID) String() string  { return uuid.UUID(id).String() }
func (id PatientID) String() string     { return uuid.UUID(id).String() }

// The types above are defined on uuid.UUID rather than aliased to it, so they
// do not pick up its encoding.TextMarshaler methods. JSON and JSONB payloads
// need the canonical string form, not the raw byte array.
func (id ClinicID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id DonorID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id RequestID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id AppointmentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id SavedDonorID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id PatientID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *ClinicID) UnmarshalText(text []byte) error {
	parsed, err := ParseClinicID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DonorID) UnmarshalText(text []byte) error {
	parsed, err := ParseDonorID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RequestID) UnmarshalText(text []byte) error {
	parsed, err := ParseRequestID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AppointmentID) UnmarshalText(text []byte) error {
	parsed, err := ParseAppointmentID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SavedDonorID) UnmarshalText(text []byte) error {
	parsed, err := ParseSavedDonorID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PatientID) UnmarshalText(text []byte) error {
	parsed, err := ParsePatientID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ClinicID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id DonorID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AppointmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SavedDonorID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id PatientID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// NewClinicID and friends mint fresh identifiers. Services own minting so
// stores never invent IDs.
func NewClinicID() ClinicID           { return ClinicID(uuid.New()) }
func NewDonorID() DonorID             { return DonorID(uuid.New()) }
func NewRequestID() RequestID         { return RequestID(uuid.New()) }
func NewPatientID() PatientID         { return PatientID(uuid.New()) }
func NewAppointmentID() AppointmentID { return AppointmentID(uuid.New()) }
func NewSavedDonorID() SavedDonorID   { return SavedDonorID(uuid.New()) }
