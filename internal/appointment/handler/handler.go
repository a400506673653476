// Package handler is the thin HTTP layer over the appointment lifecycle.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"k9hope/internal/appointment/models"
	"k9hope/internal/appointment/service"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/platform/httputil"
	"k9hope/pkg/requestcontext"
)

type Handler struct {
	appointments *service.Service
	logger       *slog.Logger
}

func New(appointments *service.Service, logger *slog.Logger) *Handler {
	return &Handler{appointments: appointments, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/appointments", h.handleBook)
	r.Get("/appointments/{appointmentID}", h.handleGet)
	r.Post("/appointments/{appointmentID}/complete", h.handleComplete)
	r.Post("/appointments/{appointmentID}/cancel", h.handleCancel)
}

type bookPayload struct {
	RequestID   string  `json:"request_id"`
	DonorID     string  `json:"donor_id"`
	DonorName   string  `json:"donor_name"`
	DonorPhone  string  `json:"donor_phone"`
	DonorEmail  string  `json:"donor_email"`
	DogName     string  `json:"dog_name"`
	DogWeightKG float64 `json:"dog_weight_kg"`
	DogBlood    string  `json:"dog_blood_type"`
	ScheduledAt string  `json:"scheduled_at"`
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload bookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	requestID, err := domain.ParseRequestID(payload.RequestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	donorID, err := domain.ParseDonorID(payload.DonorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	bloodType, err := domain.ParseBloodType(payload.DogBlood)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, payload.ScheduledAt)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "scheduled_at must be RFC 3339"))
		return
	}

	appt, err := h.appointments.Book(ctx, service.BookRequest{
		RequestID: requestID,
		Donor: models.DonorSnapshot{
			DonorID: donorID,
			Name:    payload.DonorName,
			Phone:   payload.DonorPhone,
			Email:   payload.DonorEmail,
		},
		Dog: models.Dog{
			Name:      payload.DogName,
			WeightKG:  payload.DogWeightKG,
			BloodType: bloodType,
		},
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		h.logFailure(ctx, "book appointment failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, appt)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseAppointmentID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	appt, err := h.appointments.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, appt)
}

type completePayload struct {
	Notes string `json:"notes"`
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseAppointmentID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Notes are optional; an empty body is fine.
	var payload completePayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
			return
		}
	}

	appt, err := h.appointments.Complete(ctx, id, payload.Notes)
	if err != nil {
		h.logFailure(ctx, "complete appointment failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseAppointmentID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	appt, err := h.appointments.Cancel(ctx, id)
	if err != nil {
		h.logFailure(ctx, "cancel appointment failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}
