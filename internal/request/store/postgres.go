package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"k9hope/internal/request/models"
	"k9hope/pkg/domain"
	"k9hope/pkg/platform/sentinel"
	txcontext "k9hope/pkg/platform/tx"
)

// Postgres persists blood requests in PostgreSQL. This store is pure I/O;
// transition rules live in the service and model layers, with the close CAS
// expressed as a conditional UPDATE.
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

const requestColumns = `
	id, clinic_id, blood_type, quantity_ml, urgent, reason,
	linked_patient_id, linked_patient_name, status, expires_at, created_at, closed_at
`

func (s *Postgres) Create(ctx context.Context, request *models.BloodRequest) error {
	query := `
		INSERT INTO blood_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	var patientID, patientName any
	if request.LinkedPatient != nil {
		patientID = uuid.UUID(request.LinkedPatient.ID)
		patientName = request.LinkedPatient.Name
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(request.ID),
		uuid.UUID(request.ClinicID),
		string(request.BloodType),
		request.QuantityML,
		request.Urgent,
		request.Reason,
		patientID,
		patientName,
		string(request.Status),
		request.ExpiresAt,
		request.CreatedAt,
		request.ClosedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert blood request: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.RequestID) (*models.BloodRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM blood_requests WHERE id = $1`
	request, err := scanRequest(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find blood request: %w", err)
	}
	return request, nil
}

// Close flips status open→closed in one conditional UPDATE. Zero rows means
// either the request is missing or it was already closed; a follow-up read
// distinguishes the two.
func (s *Postgres) Close(ctx context.Context, id domain.RequestID, closedAt time.Time) error {
	query := `
		UPDATE blood_requests
		SET status = $2, closed_at = $3
		WHERE id = $1 AND status = $4
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(id), string(models.RequestStatusClosed), closedAt, string(models.RequestStatusOpen))
	if err != nil {
		return fmt.Errorf("close blood request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("close blood request: rows affected: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindByID(ctx, id); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) ListByClinic(ctx context.Context, clinicID domain.ClinicID, status *models.RequestStatus) ([]*models.BloodRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM blood_requests WHERE clinic_id = $1`
	args := []any{uuid.UUID(clinicID)}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blood requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.BloodRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blood request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list blood requests: %w", err)
	}
	return requests, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.BloodRequest, error) {
	var (
		request     models.BloodRequest
		id          uuid.UUID
		clinicID    uuid.UUID
		bloodType   string
		status      string
		patientID   uuid.NullUUID
		patientName sql.NullString
		closedAt    sql.NullTime
	)
	err := row.Scan(
		&id, &clinicID, &bloodType, &request.QuantityML, &request.Urgent, &request.Reason,
		&patientID, &patientName, &status, &request.ExpiresAt, &request.CreatedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}
	request.ID = domain.RequestID(id)
	request.ClinicID = domain.ClinicID(clinicID)
	request.BloodType = domain.BloodType(bloodType)
	request.Status = models.RequestStatus(status)
	if patientID.Valid {
		request.LinkedPatient = &models.LinkedPatient{
			ID:   domain.PatientID(patientID.UUID),
			Name: patientName.String,
		}
	}
	if closedAt.Valid {
		t := closedAt.Time
		request.ClosedAt = &t
	}
	return &request, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
