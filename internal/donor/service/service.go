// Package service implements the donor registry: donor profiles, the
// donation ledger, and clinic shortlists. RecordDonation is the write side of
// appointment completion and must stay idempotent per appointment id; the
// store provides that through the ledger.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"k9hope/internal/donor/metrics"
	"k9hope/internal/donor/models"
	"k9hope/pkg/attrs"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/email"
	"k9hope/pkg/platform/audit"
	"k9hope/pkg/platform/sentinel"
	"k9hope/pkg/requestcontext"
)

// Store is the persistence gateway slice the donor registry consumes.
type Store interface {
	Create(ctx context.Context, donor *models.Donor) error
	FindByID(ctx context.Context, id domain.DonorID) (*models.Donor, error)
	Update(ctx context.Context, donor *models.Donor) error
	ListAvailable(ctx context.Context) ([]*models.Donor, error)
	RecordDonation(ctx context.Context, donorID domain.DonorID, appointmentID domain.AppointmentID, donatedAt time.Time) (recorded bool, err error)
	SaveDonor(ctx context.Context, record *models.SavedDonorRecord) error
	RemoveSaved(ctx context.Context, id domain.SavedDonorID) (*models.SavedDonorRecord, error)
	ListSaved(ctx context.Context, clinicID domain.ClinicID) ([]*models.SavedDonorRecord, error)
}

// Service orchestrates donor registry operations.
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

// RegisterRequest carries the input for a new donor profile.
type RegisterRequest struct {
	Name             string
	Phone            string
	Email            string
	City             string
	DogName          string
	WeightKG         float64
	AgeYears         int
	BloodType        domain.BloodType
	PCVPercent       float64
	MedicalCondition string
	Latitude         float64
	Longitude        float64
}

// Register validates and persists a new donor profile. A missing name falls
// back to one derived from the email address.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.Donor, error) {
	now := requestcontext.Now(ctx)

	name := strings.TrimSpace(req.Name)
	if name == "" && req.Email != "" {
		name = email.DeriveDisplayName(req.Email)
	}

	donor, err := models.NewDonor(
		domain.NewDonorID(),
		name, req.Phone, req.Email, req.City,
		req.DogName, req.WeightKG, req.AgeYears, req.BloodType,
		req.PCVPercent, req.MedicalCondition,
		req.Latitude, req.Longitude,
		now,
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.store.Create(ctx, donor); err != nil {
		return nil, translateStoreErr(ctx, err, "create donor")
	}

	if s.metrics != nil {
		s.metrics.DonorsRegistered.Inc()
	}
	return donor, nil
}

// Get returns one donor by id.
func (s *Service) Get(ctx context.Context, id domain.DonorID) (*models.Donor, error) {
	donor, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return nil, translateStoreErr(ctx, err, "load donor")
	}
	return donor, nil
}

// SetAvailability flips whether the donor appears in discovery.
func (s *Service) SetAvailability(ctx context.Context, id domain.DonorID, available bool) (*models.Donor, error) {
	donor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	donor.Available = available
	if err := s.store.Update(ctx, donor); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return nil, translateStoreErr(ctx, err, "update donor")
	}
	return donor, nil
}

// ListAvailable returns donors open to discovery.
func (s *Service) ListAvailable(ctx context.Context) ([]*models.Donor, error) {
	donors, err := s.store.ListAvailable(ctx)
	if err != nil {
		return nil, translateStoreErr(ctx, err, "list donors")
	}
	return donors, nil
}

// RecordDonation applies a completed appointment to the donor aggregate:
// increment the count, stamp last donation, remember the appointment id.
// Replaying an appointment id already in the ledger is a successful no-op, so
// a retried completion can never double count.
func (s *Service) RecordDonation(ctx context.Context, donorID domain.DonorID, appointmentID domain.AppointmentID, donatedAt time.Time) error {
	recorded, err := s.store.RecordDonation(ctx, donorID, appointmentID, donatedAt)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donor not found")
	default:
		return translateStoreErr(ctx, err, "record donation")
	}

	if !recorded {
		if s.metrics != nil {
			s.metrics.DonationReplays.Inc()
		}
		return nil
	}

	s.audit(ctx, audit.ActionDonationRecorded, appointmentID.String(), "", donorID.String(),
		"donated_at", donatedAt)
	if s.metrics != nil {
		s.metrics.DonationsRecorded.Inc()
	}
	return nil
}

// Save bookmarks a donor onto a clinic's shortlist. A second save of the same
// pair is a conflict.
func (s *Service) Save(ctx context.Context, clinicID domain.ClinicID, donorID domain.DonorID) (*models.SavedDonorRecord, error) {
	if clinicID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "clinic id is required")
	}

	donor, err := s.Get(ctx, donorID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	record, err := models.NewSavedDonorRecord(domain.NewSavedDonorID(), clinicID, donor, now)
	if err != nil {
		return nil, err
	}

	err = s.store.SaveDonor(ctx, record)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrDuplicate):
		return nil, dErrors.New(dErrors.CodeConflict, "donor is already saved for this clinic")
	default:
		return nil, translateStoreErr(ctx, err, "save donor")
	}

	s.audit(ctx, audit.ActionDonorSaved, record.ID.String(), clinicID.String(), donorID.String())
	if s.metrics != nil {
		s.metrics.DonorsSaved.Inc()
	}
	return record, nil
}

// Remove deletes a saved-donor record by its id.
func (s *Service) Remove(ctx context.Context, id domain.SavedDonorID) error {
	record, err := s.store.RemoveSaved(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "saved donor not found")
	default:
		return translateStoreErr(ctx, err, "remove saved donor")
	}

	s.audit(ctx, audit.ActionDonorRemoved, record.DonorID.String(), record.ClinicID.String(), record.DonorID.String(), "saved_record_id", record.ID.String())
	if s.metrics != nil {
		s.metrics.DonorsRemoved.Inc()
	}
	return nil
}

// ListSaved returns a clinic's shortlist, oldest save first.
func (s *Service) ListSaved(ctx context.Context, clinicID domain.ClinicID) ([]*models.SavedDonorRecord, error) {
	if clinicID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "clinic id is required")
	}
	records, err := s.store.ListSaved(ctx, clinicID)
	if err != nil {
		return nil, translateStoreErr(ctx, err, "list saved donors")
	}
	return records, nil
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
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeGateway, msg)
}
