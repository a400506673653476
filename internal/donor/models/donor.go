package models

import (
	"strings"
	"time"

	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
)

// Donor is a registered donor household: the human contact plus the dog whose
// screening attributes gate eligibility. DonationCount and LastDonation are
// owned by the donation ledger and only move when a donation is recorded.
type Donor struct {
	ID               domain.DonorID   `json:"id"`
	Name             string           `json:"name"`
	Phone            string           `json:"phone"`
	Email            string           `json:"email"`
	City             string           `json:"city,omitempty"`
	DogName          string           `json:"dog_name"`
	WeightKG         float64          `json:"weight_kg"`
	AgeYears         int              `json:"age_years"`
	BloodType        domain.BloodType `json:"blood_type"`
	PCVPercent       float64          `json:"pcv_percent"`
	MedicalCondition string           `json:"medical_condition,omitempty"`
	Latitude         float64          `json:"latitude"`
	Longitude        float64          `json:"longitude"`
	Available        bool             `json:"available"`
	DonationCount    int              `json:"donation_count"`
	LastDonation     *time.Time       `json:"last_donation,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// NewDonor validates registration invariants and returns an available donor
// with an empty donation history.
func NewDonor(
	id domain.DonorID,
	name, phone, email, city string,
	dogName string,
	weightKG float64,
	ageYears int,
	bloodType domain.BloodType,
	pcvPercent float64,
	medicalCondition string,
	latitude, longitude float64,
	now time.Time,
) (*Donor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor name is required")
	}
	if strings.TrimSpace(dogName) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "dog name is required")
	}
	if weightKG <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "dog weight must be positive")
	}
	if ageYears < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "dog age must not be negative")
	}
	if !bloodType.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "dog blood type not in recognized set")
	}
	if pcvPercent < 0 || pcvPercent > 100 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "PCV must be a percentage")
	}
	if latitude < -90 || latitude > 90 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "latitude out of range")
	}
	if longitude < -180 || longitude > 180 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "longitude out of range")
	}
	return &Donor{
		ID:               id,
		Name:             strings.TrimSpace(name),
		Phone:            strings.TrimSpace(phone),
		Email:            strings.TrimSpace(email),
		City:             strings.TrimSpace(city),
		DogName:          strings.TrimSpace(dogName),
		WeightKG:         weightKG,
		AgeYears:         ageYears,
		BloodType:        bloodType,
		PCVPercent:       pcvPercent,
		MedicalCondition: strings.TrimSpace(medicalCondition),
		Latitude:         latitude,
		Longitude:        longitude,
		Available:        true,
		CreatedAt:        now,
	}, nil
}

// HasActiveMedicalCondition reports whether the free-text condition field
// names anything. The eligibility gate only cares that one exists; the text
// itself is for the clinic.
func (d *Donor) HasActiveMedicalCondition() bool {
	return strings.TrimSpace(d.MedicalCondition) != ""
}

// ApplyDonation moves the ledger-owned fields after a donation is recorded.
func (d *Donor) ApplyDonation(donatedAt time.Time) {
	d.DonationCount++
	t := donatedAt
	d.LastDonation = &t
}

// SavedDonorRecord is a clinic's bookmark of a donor. Contact fields are a
// snapshot taken at save time so the clinic's shortlist survives later donor
// profile edits.
type SavedDonorRecord struct {
	ID        domain.SavedDonorID `json:"id"`
	ClinicID  domain.ClinicID     `json:"clinic_id"`
	DonorID   domain.DonorID      `json:"donor_id"`
	DonorName string              `json:"donor_name"`
	DogName   string              `json:"dog_name"`
	BloodType domain.BloodType    `json:"blood_type"`
	Phone     string              `json:"phone"`
	SavedAt   time.Time           `json:"saved_at"`
}

// NewSavedDonorRecord snapshots a donor into a clinic's shortlist entry.
func NewSavedDonorRecord(id domain.SavedDonorID, clinicID domain.ClinicID, donor *Donor, now time.Time) (*SavedDonorRecord, error) {
	if clinicID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "clinic id is required")
	}
	if donor == nil || donor.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor is required")
	}
	return &SavedDonorRecord{
		ID:        id,
		ClinicID:  clinicID,
		DonorID:   donor.ID,
		DonorName: donor.Name,
		DogName:   donor.DogName,
		BloodType: donor.BloodType,
		Phone:     donor.Phone,
		SavedAt:   now,
	}, nil
}
