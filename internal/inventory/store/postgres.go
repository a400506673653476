package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"k9hope/pkg/domain"
	"k9hope/pkg/platform/sentinel"
	txcontext "k9hope/pkg/platform/tx"
)

// Postgres persists per-clinic stock levels. Adjustments are single
// conditional statements, so concurrent clinics and blood types never need
// application-side locking.
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

// Adjust moves one clinic's level for one blood type by deltaML and returns
// the new level. Additions upsert the row; withdrawals are a conditional
// UPDATE, where zero rows means the level would have gone negative (a missing
// row counts as zero stock).
func (s *Postgres) Adjust(ctx context.Context, clinicID domain.ClinicID, bloodType domain.BloodType, deltaML int) (int, error) {
	if deltaML >= 0 {
		query := `
			INSERT INTO inventory (clinic_id, blood_type, quantity_ml)
			VALUES ($1, $2, $3)
			ON CONFLICT (clinic_id, blood_type)
			DO UPDATE SET quantity_ml = inventory.quantity_ml + EXCLUDED.quantity_ml
			RETURNING quantity_ml
		`
		var level int
		if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(clinicID), string(bloodType), deltaML).Scan(&level); err != nil {
			return 0, fmt.Errorf("adjust inventory: %w", err)
		}
		return level, nil
	}

	query := `
		UPDATE inventory
		SET quantity_ml = quantity_ml + $3
		WHERE clinic_id = $1 AND blood_type = $2 AND quantity_ml + $3 >= 0
		RETURNING quantity_ml
	`
	var level int
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(clinicID), string(bloodType), deltaML).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sentinel.ErrInvalidState
	}
	if err != nil {
		return 0, fmt.Errorf("adjust inventory: %w", err)
	}
	return level, nil
}

func (s *Postgres) Levels(ctx context.Context, clinicID domain.ClinicID) (map[domain.BloodType]int, error) {
	query := `SELECT blood_type, quantity_ml FROM inventory WHERE clinic_id = $1`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(clinicID))
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.BloodType]int)
	for rows.Next() {
		var (
			bloodType string
			quantity  int
		)
		if err := rows.Scan(&bloodType, &quantity); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		out[domain.BloodType(bloodType)] = quantity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	return out, nil
}
