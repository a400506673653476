// Package service implements the appointment lifecycle: booking against open
// requests, transactional completion that updates the donor aggregate, and
// cancellation. Completion and cancellation run inside the donation
// transaction boundary so concurrent transitions on one appointment serialize.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"k9hope/internal/appointment/metrics"
	"k9hope/internal/appointment/models"
	requestmodels "k9hope/internal/request/models"
	"k9hope/pkg/attrs"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/platform/audit"
	"k9hope/pkg/platform/sentinel"
	"k9hope/pkg/requestcontext"
)

// Store is the persistence gateway slice the appointment lifecycle consumes.
type Store interface {
	Create(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id domain.AppointmentID) (*models.Appointment, error)
	Update(ctx context.Context, appt *models.Appointment) error
	ListByRequest(ctx context.Context, requestID domain.RequestID) ([]*models.Appointment, error)
}

// RequestGate reads the owning blood request so booking can reject closed
// requests. Satisfied by the request service.
type RequestGate interface {
	Get(ctx context.Context, id domain.RequestID) (*requestmodels.BloodRequest, error)
}

// DonationRecorder applies the donor-side effect of a completed appointment.
// Implementations must be idempotent per appointment id. Satisfied by the
// donor registry.
type DonationRecorder interface {
	RecordDonation(ctx context.Context, donorID domain.DonorID, appointmentID domain.AppointmentID, donatedAt time.Time) error
}

// Service orchestrates appointment lifecycle operations.
type Service struct {
	store    Store
	requests RequestGate
	donors   DonationRecorder
	tx       DonationTx
	logger   *slog.Logger
	sink     audit.Publisher
	metrics  *metrics.Metrics
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

func New(store Store, requests RequestGate, donors DonationRecorder, tx DonationTx, opts ...Option) *Service {
	s := &Service{store: store, requests: requests, donors: donors, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BookRequest carries a donor's input for a new appointment.
type BookRequest struct {
	RequestID   domain.RequestID
	Donor       models.DonorSnapshot
	Dog         models.Dog
	ScheduledAt time.Time
}

// Book creates a pending appointment against an open blood request. Booking
// against a closed request is a conflict, not a validation error: the request
// was real, it just stopped accepting donors.
func (s *Service) Book(ctx context.Context, req BookRequest) (*models.Appointment, error) {
	request, err := s.requests.Get(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if !request.IsOpen() {
		return nil, dErrors.New(dErrors.CodeConflict, "blood request is closed")
	}

	now := requestcontext.Now(ctx)
	appt, err := models.NewAppointment(domain.NewAppointmentID(), req.RequestID, req.Donor, req.Dog, req.ScheduledAt, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.store.Create(ctx, appt); err != nil {
		return nil, translateStoreErr(ctx, err, "create appointment")
	}

	s.audit(ctx, audit.ActionAppointmentBooked, appt.ID.String(), request.ClinicID.String(), appt.Donor.DonorID.String(),
		"appointment_request_id", appt.RequestID.String(), "scheduled_at", appt.ScheduledAt)
	if s.metrics != nil {
		s.metrics.Booked.Inc()
	}
	return appt, nil
}

// Complete transitions a pending appointment to completed and records the
// donation on the donor aggregate inside one transaction boundary. If the
// donor update fails, the completion does not take effect.
func (s *Service) Complete(ctx context.Context, id domain.AppointmentID, notes string) (*models.Appointment, error) {
	start := time.Now()

	appt, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var completed *models.Appointment
	err = s.tx.RunInTx(ctx, appt.Donor.DonorID.String(), func(ctx context.Context) error {
		// Re-read inside the boundary: the snapshot above only chose the
		// lock key.
		current, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		if err := current.CanComplete(); err != nil {
			return terminalConflict(current.Status)
		}

		now := requestcontext.Now(ctx)
		if err := s.donors.RecordDonation(ctx, current.Donor.DonorID, current.ID, now); err != nil {
			return err
		}
		current.ApplyComplete(notes, now)
		if err := s.store.Update(ctx, current); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeConflict, "appointment is no longer pending")
			}
			return translateStoreErr(ctx, err, "complete appointment")
		}
		completed = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.ActionAppointmentCompleted, completed.ID.String(), "", completed.Donor.DonorID.String(),
		"appointment_request_id", completed.RequestID.String())
	if s.metrics != nil {
		s.metrics.Completed.Inc()
		s.metrics.CompletionDuration.Observe(time.Since(start).Seconds())
	}
	return completed, nil
}

// Cancel transitions a pending appointment to cancelled. No donor side
// effect. It runs inside the same boundary as Complete so the two can never
// interleave on one appointment.
func (s *Service) Cancel(ctx context.Context, id domain.AppointmentID) (*models.Appointment, error) {
	appt, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var cancelled *models.Appointment
	err = s.tx.RunInTx(ctx, appt.Donor.DonorID.String(), func(ctx context.Context) error {
		current, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		if err := current.CanCancel(); err != nil {
			return terminalConflict(current.Status)
		}
		current.ApplyCancel()
		if err := s.store.Update(ctx, current); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeConflict, "appointment is no longer pending")
			}
			return translateStoreErr(ctx, err, "cancel appointment")
		}
		cancelled = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.ActionAppointmentCancelled, cancelled.ID.String(), "", cancelled.Donor.DonorID.String(),
		"appointment_request_id", cancelled.RequestID.String())
	if s.metrics != nil {
		s.metrics.Cancelled.Inc()
	}
	return cancelled, nil
}

// Get returns one appointment by id.
func (s *Service) Get(ctx context.Context, id domain.AppointmentID) (*models.Appointment, error) {
	return s.get(ctx, id)
}

// ListByRequest projects the appointments booked against a request, oldest
// first.
func (s *Service) ListByRequest(ctx context.Context, requestID domain.RequestID) ([]*models.Appointment, error) {
	appts, err := s.store.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, translateStoreErr(ctx, err, "list appointments")
	}
	return appts, nil
}

func (s *Service) get(ctx context.Context, id domain.AppointmentID) (*models.Appointment, error) {
	appt, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "appointment not found")
		}
		return nil, translateStoreErr(ctx, err, "load appointment")
	}
	return appt, nil
}

func terminalConflict(status models.AppointmentStatus) error {
	return dErrors.Newf(dErrors.CodeConflict, "appointment is already %s", status)
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

func translateStoreErr(ctx context.Context, err error, msg string) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeGateway, msg)
}
