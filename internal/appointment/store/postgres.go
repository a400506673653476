package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"k9hope/internal/appointment/models"
	"k9hope/pkg/domain"
	"k9hope/pkg/platform/sentinel"
	txcontext "k9hope/pkg/platform/tx"
)

// Postgres persists appointments in PostgreSQL. Transition guards live in the
// model layer; Update writes the full row and joins the ambient transaction
// when one is carried in the context.
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

const appointmentColumns = `
	id, request_id, donor_id, donor_name, donor_phone, donor_email,
	dog_name, dog_weight_kg, dog_blood_type,
	scheduled_at, status, notes, created_at, completed_at
`

func (s *Postgres) Create(ctx context.Context, appt *models.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(appt.ID),
		uuid.UUID(appt.RequestID),
		uuid.UUID(appt.Donor.DonorID),
		appt.Donor.Name,
		appt.Donor.Phone,
		appt.Donor.Email,
		appt.Dog.Name,
		appt.Dog.WeightKG,
		string(appt.Dog.BloodType),
		appt.ScheduledAt,
		string(appt.Status),
		appt.Notes,
		appt.CreatedAt,
		appt.CompletedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.AppointmentID) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return appt, nil
}

// Update writes the transition off a pending row in one conditional UPDATE.
// Only pending appointments move, so the loser of a concurrent complete and
// cancel matches zero rows instead of overwriting the terminal status. Zero
// rows means missing or already terminal; a follow-up read distinguishes the
// two.
func (s *Postgres) Update(ctx context.Context, appt *models.Appointment) error {
	query := `
		UPDATE appointments
		SET status = $2, notes = $3, completed_at = $4
		WHERE id = $1 AND status = $5
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(appt.ID), string(appt.Status), appt.Notes, appt.CompletedAt,
		string(models.AppointmentStatusPending))
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update appointment: rows affected: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindByID(ctx, appt.ID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) ListByRequest(ctx context.Context, requestID domain.RequestID) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE request_id = $1 ORDER BY created_at, id`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appts []*models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var (
		appt        models.Appointment
		id          uuid.UUID
		requestID   uuid.UUID
		donorID     uuid.UUID
		bloodType   string
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(
		&id, &requestID, &donorID, &appt.Donor.Name, &appt.Donor.Phone, &appt.Donor.Email,
		&appt.Dog.Name, &appt.Dog.WeightKG, &bloodType,
		&appt.ScheduledAt, &status, &appt.Notes, &appt.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	appt.ID = domain.AppointmentID(id)
	appt.RequestID = domain.RequestID(requestID)
	appt.Donor.DonorID = domain.DonorID(donorID)
	appt.Dog.BloodType = domain.BloodType(bloodType)
	appt.Status = models.AppointmentStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		appt.CompletedAt = &t
	}
	return &appt, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
