//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"k9hope/internal/appointment/models"
	"k9hope/internal/appointment/store"
	requestmodels "k9hope/internal/request/models"
	requeststore "k9hope/internal/request/store"
	"k9hope/pkg/domain"
	"k9hope/pkg/platform/sentinel"
	"k9hope/pkg/testutil/containers"
)

type AppointmentStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *store.Postgres
	requests  *requeststore.Postgres
	requestID domain.RequestID
	now       time.Time
}

func TestAppointmentStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AppointmentStoreSuite))
}

func (s *AppointmentStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.requests = requeststore.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *AppointmentStoreSuite) SetupTest() {
	s.postgres.TruncateTables(s.T(), "appointments", "blood_requests")

	// Appointments reference a blood request row.
	request, err := requestmodels.NewBloodRequest(
		domain.NewRequestID(), domain.NewClinicID(), domain.BloodTypeDEA11Neg,
		450, false, "transfusion", nil, s.now.Add(48*time.Hour), s.now,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.requests.Create(context.Background(), request))
	s.requestID = request.ID
}

func (s *AppointmentStoreSuite) newAppointment(scheduledAt time.Time) *models.Appointment {
	appt, err := models.NewAppointment(
		domain.NewAppointmentID(),
		s.requestID,
		models.DonorSnapshot{DonorID: domain.NewDonorID(), Name: "Meera", Phone: "+91-9800011122"},
		models.Dog{Name: "Bruno", WeightKG: 32.5, BloodType: domain.BloodTypeDEA11Neg},
		scheduledAt,
		s.now,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), appt))
	return appt
}

func (s *AppointmentStoreSuite) TestCreateAndFind() {
	appt := s.newAppointment(s.now.Add(24 * time.Hour))

	found, err := s.store.FindByID(context.Background(), appt.ID)
	s.Require().NoError(err)
	s.Equal(appt.ID, found.ID)
	s.Equal(s.requestID, found.RequestID)
	s.Equal("Meera", found.Donor.Name)
	s.Equal("Bruno", found.Dog.Name)
	s.Equal(models.AppointmentStatusPending, found.Status)
	s.Nil(found.CompletedAt)
}

func (s *AppointmentStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), domain.NewAppointmentID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *AppointmentStoreSuite) TestUpdate() {
	ctx := context.Background()
	appt := s.newAppointment(s.now.Add(24 * time.Hour))

	completedAt := s.now.Add(25 * time.Hour)
	appt.ApplyComplete("smooth draw", completedAt)
	s.Require().NoError(s.store.Update(ctx, appt))

	found, err := s.store.FindByID(ctx, appt.ID)
	s.Require().NoError(err)
	s.Equal(models.AppointmentStatusCompleted, found.Status)
	s.Equal("smooth draw", found.Notes)
	s.Require().NotNil(found.CompletedAt)
	s.True(found.CompletedAt.Equal(completedAt))
}

func (s *AppointmentStoreSuite) TestUpdateOnlyMovesPendingRows() {
	ctx := context.Background()
	appt := s.newAppointment(s.now.Add(24 * time.Hour))

	appt.ApplyComplete("smooth draw", s.now.Add(25*time.Hour))
	s.Require().NoError(s.store.Update(ctx, appt))

	// A stale writer that still saw the pending row must not overwrite the
	// terminal status.
	stale := *appt
	stale.ApplyCancel()
	s.Require().ErrorIs(s.store.Update(ctx, &stale), sentinel.ErrInvalidState)

	found, err := s.store.FindByID(ctx, appt.ID)
	s.Require().NoError(err)
	s.Equal(models.AppointmentStatusCompleted, found.Status)
	s.Require().NotNil(found.CompletedAt)
}

func (s *AppointmentStoreSuite) TestUpdateMissing() {
	appt := s.newAppointment(s.now.Add(24 * time.Hour))
	appt.ID = domain.NewAppointmentID()
	err := s.store.Update(context.Background(), appt)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *AppointmentStoreSuite) TestListByRequest() {
	ctx := context.Background()
	first := s.newAppointment(s.now.Add(24 * time.Hour))
	second := s.newAppointment(s.now.Add(26 * time.Hour))

	appts, err := s.store.ListByRequest(ctx, s.requestID)
	s.Require().NoError(err)
	s.Require().Len(appts, 2)
	ids := []domain.AppointmentID{appts[0].ID, appts[1].ID}
	s.Contains(ids, first.ID)
	s.Contains(ids, second.ID)

	none, err := s.store.ListByRequest(ctx, domain.NewRequestID())
	s.Require().NoError(err)
	s.Empty(none)
}
