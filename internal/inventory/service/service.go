// Package service implements the clinic blood stock ledger. Levels are
// per-clinic, keyed by blood type, and can never go negative; the store
// enforces that atomically so two concurrent withdrawals cannot overdraw.
package service

import (
	"context"
	"errors"
	"log/slog"

	"k9hope/internal/inventory/metrics"
	"k9hope/pkg/attrs"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/platform/audit"
	"k9hope/pkg/platform/sentinel"
	"k9hope/pkg/requestcontext"
)

// Store is the persistence gateway slice the stock ledger consumes.
type Store interface {
	Adjust(ctx context.Context, clinicID domain.ClinicID, bloodType domain.BloodType, deltaML int) (int, error)
	Levels(ctx context.Context, clinicID domain.ClinicID) (map[domain.BloodType]int, error)
}

// Service orchestrates stock adjustments and projections.
type Service struct {
	store   Store
	logger  *slog.Logger
	sink    audit.Publisher
	metrics *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditSink(sink audit.Publisher) Option {
	return func(s *Service) { s.sink = sink }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Adjust moves a clinic's stock for one blood type by deltaML (positive for
// intake, negative for use) and returns the new level. Overdrawing is a
// conflict.
func (s *Service) Adjust(ctx context.Context, clinicID domain.ClinicID, bloodType domain.BloodType, deltaML int) (int, error) {
	if clinicID.IsNil() {
		return 0, dErrors.New(dErrors.CodeValidation, "clinic id is required")
	}
	if !bloodType.Valid() {
		return 0, dErrors.New(dErrors.CodeValidation, "blood type not in recognized set")
	}
	if deltaML == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "delta must not be zero")
	}

	level, err := s.store.Adjust(ctx, clinicID, bloodType, deltaML)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrInvalidState):
		return 0, dErrors.New(dErrors.CodeConflict, "insufficient stock for withdrawal")
	default:
		return 0, translateStoreErr(ctx, err, "adjust inventory")
	}

	s.audit(ctx, clinicID, bloodType, deltaML, level)
	if s.metrics != nil {
		s.metrics.Adjustments.Inc()
		s.metrics.StockLevel.WithLabelValues(string(bloodType)).Set(float64(level))
	}
	return level, nil
}

// Levels returns a clinic's stock with every recognized blood type present,
// zero-filled where nothing has been recorded.
func (s *Service) Levels(ctx context.Context, clinicID domain.ClinicID) (map[domain.BloodType]int, error) {
	if clinicID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "clinic id is required")
	}

	stored, err := s.store.Levels(ctx, clinicID)
	if err != nil {
		return nil, translateStoreErr(ctx, err, "load inventory")
	}

	out := make(map[domain.BloodType]int, len(domain.BloodTypes))
	for _, bloodType := range domain.BloodTypes {
		out[bloodType] = stored[bloodType]
	}
	return out, nil
}

func (s *Service) audit(ctx context.Context, clinicID domain.ClinicID, bloodType domain.BloodType, deltaML, level int) {
	kv := []any{"blood_type", string(bloodType), "delta_ml", deltaML, "level_ml", level}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    audit.ActionInventoryAdjusted,
		Subject:   clinicID.String(),
		ClinicID:  clinicID.String(),
		Detail:    attrs.Format(kv),
		RequestID: requestcontext.RequestID(ctx),
	}
	if s.logger != nil {
		args := append(kv, "clinic_id", clinicID.String(), "log_type", "audit")
		s.logger.InfoContext(ctx, string(audit.ActionInventoryAdjusted), args...)
	}
	if s.sink != nil {
		if err := s.sink.Emit(ctx, event); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "audit emit failed", "event", string(audit.ActionInventoryAdjusted), "error", err.Error())
		}
	}
}

func translateStoreErr(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeGateway, msg)
}
