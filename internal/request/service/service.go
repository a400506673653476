// Package service implements the request lifecycle: creation, explicit
// closing, and clinic projections. Requests have a single logical writer (the
// owning clinic), so per-record store atomicity is sufficient; no cross-clinic
// locking happens here.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"k9hope/internal/request/metrics"
	"k9hope/internal/request/models"
	"k9hope/pkg/attrs"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/platform/audit"
	"k9hope/pkg/platform/sentinel"
	"k9hope/pkg/requestcontext"
)

// Store is the persistence gateway slice the request lifecycle consumes.
type Store interface {
	Create(ctx context.Context, request *models.BloodRequest) error
	FindByID(ctx context.Context, id domain.RequestID) (*models.BloodRequest, error)
	Close(ctx context.Context, id domain.RequestID, closedAt time.Time) error
	ListByClinic(ctx context.Context, clinicID domain.ClinicID, status *models.RequestStatus) ([]*models.BloodRequest, error)
}

// Service orchestrates blood request lifecycle operations.
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

// CreateRequest carries the clinic's input for a new blood request.
type CreateRequest struct {
	ClinicID      domain.ClinicID
	BloodType     domain.BloodType
	QuantityML    int
	Urgent        bool
	Reason        string
	LinkedPatient *models.LinkedPatient
	ExpiresAt     time.Time
}

// Create validates and persists a new open request.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.BloodRequest, error) {
	now := requestcontext.Now(ctx)

	request, err := models.NewBloodRequest(
		domain.NewRequestID(),
		req.ClinicID,
		req.BloodType,
		req.QuantityML,
		req.Urgent,
		req.Reason,
		req.LinkedPatient,
		req.ExpiresAt,
		now,
	)
	if err != nil {
		// Invariant violations on creation input are validation errors to the caller.
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.store.Create(ctx, request); err != nil {
		return nil, translateStoreErr(ctx, err, "create blood request")
	}

	s.audit(ctx, audit.ActionRequestCreated, request.ID.String(), request.ClinicID.String(), "",
		"blood_type", string(request.BloodType), "quantity_ml", request.QuantityML, "urgent", request.Urgent)
	if s.metrics != nil {
		s.metrics.RequestsCreated.Inc()
		if request.Urgent {
			s.metrics.UrgentRequests.Inc()
		}
	}
	return request, nil
}

// Close transitions a request to closed. Closing an already-closed request is
// a conflict so stale clinic dashboards find out they are stale.
func (s *Service) Close(ctx context.Context, id domain.RequestID) error {
	now := requestcontext.Now(ctx)

	err := s.store.Close(ctx, id, now)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "blood request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "blood request is already closed")
	default:
		return translateStoreErr(ctx, err, "close blood request")
	}

	s.audit(ctx, audit.ActionRequestClosed, id.String(), "", "")
	if s.metrics != nil {
		s.metrics.RequestsClosed.Inc()
	}
	return nil
}

// Get returns one request by id.
func (s *Service) Get(ctx context.Context, id domain.RequestID) (*models.BloodRequest, error) {
	request, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "blood request not found")
		}
		return nil, translateStoreErr(ctx, err, "load blood request")
	}
	return request, nil
}

// List projects a clinic's requests, optionally filtered by status, newest
// first. Read-only; no side effects.
func (s *Service) List(ctx context.Context, clinicID domain.ClinicID, status *models.RequestStatus) ([]*models.BloodRequest, error) {
	if clinicID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "clinic id is required")
	}
	requests, err := s.store.ListByClinic(ctx, clinicID, status)
	if err != nil {
		return nil, translateStoreErr(ctx, err, "list blood requests")
	}
	return requests, nil
}

func (s *Service) audit(ctx context.Context, action audit.Action, subject, clinicID, donorID string, kv ...any) {
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		Subject:   subject,
		ClinicID:  clinicID,
		DonorID:   donorID,
		Detail:    attrs.Format(kv),
		RequestID: requestcontext.RequestID(ctx),
	}
	if s.logger != nil {
		args := append(kv, "event", string(action), "subject", subject, "log_type", "audit")
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.sink != nil {
		if err := s.sink.Emit(ctx, event); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "audit emit failed", "event", string(action), "error", err.Error())
		}
	}
}

// translateStoreErr maps gateway failures onto the retryable/timeout codes so
// callers never mistake a slow store for a missing record.
func translateStoreErr(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeGateway, msg)
}
