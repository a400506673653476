package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"k9hope/internal/donor/models"
	"k9hope/pkg/domain"
	"k9hope/pkg/platform/sentinel"
	txcontext "k9hope/pkg/platform/tx"
)

// Postgres persists donors, clinic shortlists, and the donation ledger. The
// ledger's primary key on appointment_id enforces idempotence; the shortlist's
// unique index on (clinic_id, donor_id) enforces one bookmark per pair. Both
// join the ambient transaction when one is carried in the context.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const donorColumns = `
	id, name, phone, email, city, dog_name, weight_kg, age_years, blood_type,
	pcv_percent, medical_condition, latitude, longitude, available,
	donation_count, last_donation, created_at
`

func (s *Postgres) Create(ctx context.Context, donor *models.Donor) error {
	query := `
		INSERT INTO donors (` + donorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(donor.ID),
		donor.Name, donor.Phone, donor.Email, donor.City,
		donor.DogName, donor.WeightKG, donor.AgeYears, string(donor.BloodType),
		donor.PCVPercent, donor.MedicalCondition, donor.Latitude, donor.Longitude, donor.Available,
		donor.DonationCount, donor.LastDonation, donor.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert donor: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.DonorID) (*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id = $1`
	donor, err := scanDonor(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donor: %w", err)
	}
	return donor, nil
}

func (s *Postgres) Update(ctx context.Context, donor *models.Donor) error {
	query := `
		UPDATE donors
		SET name = $2, phone = $3, email = $4, city = $5, dog_name = $6,
		    weight_kg = $7, age_years = $8, blood_type = $9, pcv_percent = $10,
		    medical_condition = $11, latitude = $12, longitude = $13,
		    available = $14
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(donor.ID),
		donor.Name, donor.Phone, donor.Email, donor.City, donor.DogName,
		donor.WeightKG, donor.AgeYears, string(donor.BloodType), donor.PCVPercent,
		donor.MedicalCondition, donor.Latitude, donor.Longitude,
		donor.Available,
	)
	if err != nil {
		return fmt.Errorf("update donor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update donor: rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListAvailable(ctx context.Context) ([]*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE available ORDER BY id`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	defer rows.Close()

	var donors []*models.Donor
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		donors = append(donors, donor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	return donors, nil
}

// RecordDonation inserts the ledger row and, only when the insert lands,
// bumps the donor's counters. A replayed appointment id hits the ledger's
// primary key, inserts nothing, and leaves the counters alone.
func (s *Postgres) RecordDonation(ctx context.Context, donorID domain.DonorID, appointmentID domain.AppointmentID, donatedAt time.Time) (bool, error) {
	ledger := `
		INSERT INTO donation_ledger (appointment_id, donor_id, donated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (appointment_id) DO NOTHING
	`
	result, err := s.execer(ctx).ExecContext(ctx, ledger, uuid.UUID(appointmentID), uuid.UUID(donorID), donatedAt)
	if err != nil {
		return false, fmt.Errorf("insert donation ledger: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert donation ledger: rows affected: %w", err)
	}
	if inserted == 0 {
		return false, nil
	}

	bump := `
		UPDATE donors
		SET donation_count = donation_count + 1, last_donation = $2
		WHERE id = $1
	`
	result, err = s.execer(ctx).ExecContext(ctx, bump, uuid.UUID(donorID), donatedAt)
	if err != nil {
		return false, fmt.Errorf("update donation counters: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update donation counters: rows affected: %w", err)
	}
	if affected == 0 {
		// Unknown donor; the surrounding transaction rolls the ledger row back.
		return false, sentinel.ErrNotFound
	}
	return true, nil
}

func (s *Postgres) SaveDonor(ctx context.Context, record *models.SavedDonorRecord) error {
	query := `
		INSERT INTO saved_donors (id, clinic_id, donor_id, donor_name, dog_name, blood_type, phone, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.ClinicID),
		uuid.UUID(record.DonorID),
		record.DonorName, record.DogName, string(record.BloodType), record.Phone, record.SavedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert saved donor: %w", err)
	}
	return nil
}

func (s *Postgres) RemoveSaved(ctx context.Context, id domain.SavedDonorID) (*models.SavedDonorRecord, error) {
	query := `
		DELETE FROM saved_donors
		WHERE id = $1
		RETURNING id, clinic_id, donor_id, donor_name, dog_name, blood_type, phone, saved_at
	`
	record, err := scanSavedDonor(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("delete saved donor: %w", err)
	}
	return record, nil
}

func (s *Postgres) ListSaved(ctx context.Context, clinicID domain.ClinicID) ([]*models.SavedDonorRecord, error) {
	query := `
		SELECT id, clinic_id, donor_id, donor_name, dog_name, blood_type, phone, saved_at
		FROM saved_donors
		WHERE clinic_id = $1
		ORDER BY saved_at, donor_id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(clinicID))
	if err != nil {
		return nil, fmt.Errorf("list saved donors: %w", err)
	}
	defer rows.Close()

	var records []*models.SavedDonorRecord
	for rows.Next() {
		record, err := scanSavedDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved donor: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list saved donors: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSavedDonor(row rowScanner) (*models.SavedDonorRecord, error) {
	var (
		record    models.SavedDonorRecord
		id        uuid.UUID
		clinic    uuid.UUID
		donor     uuid.UUID
		bloodType string
	)
	err := row.Scan(&id, &clinic, &donor, &record.DonorName, &record.DogName, &bloodType, &record.Phone, &record.SavedAt)
	if err != nil {
		return nil, err
	}
	record.ID = domain.SavedDonorID(id)
	record.ClinicID = domain.ClinicID(clinic)
	record.DonorID = domain.DonorID(donor)
	record.BloodType = domain.BloodType(bloodType)
	return &record, nil
}

func scanDonor(row rowScanner) (*models.Donor, error) {
	var (
		donor        models.Donor
		id           uuid.UUID
		bloodType    string
		lastDonation sql.NullTime
	)
	err := row.Scan(
		&id, &donor.Name, &donor.Phone, &donor.Email, &donor.City,
		&donor.DogName, &donor.WeightKG, &donor.AgeYears, &bloodType,
		&donor.PCVPercent, &donor.MedicalCondition, &donor.Latitude, &donor.Longitude, &donor.Available,
		&donor.DonationCount, &lastDonation, &donor.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	donor.ID = domain.DonorID(id)
	donor.BloodType = domain.BloodType(bloodType)
	if lastDonation.Valid {
		t := lastDonation.Time
		donor.LastDonation = &t
	}
	return &donor, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
