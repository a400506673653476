// Package handler is the thin HTTP layer over the request lifecycle. It
// parses and validates transport input, delegates to the service, and renders
// coded errors; no business logic lives here.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appointmentmodels "k9hope/internal/appointment/models"
	"k9hope/internal/request/models"
	"k9hope/internal/request/service"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/platform/httputil"
	"k9hope/pkg/requestcontext"
)

// AppointmentLister supplies a request's appointments for the detail view.
type AppointmentLister interface {
	ListByRequest(ctx context.Context, requestID domain.RequestID) ([]*appointmentmodels.Appointment, error)
}

type Handler struct {
	requests     *service.Service
	appointments AppointmentLister
	logger       *slog.Logger
}

func New(requests *service.Service, appointments AppointmentLister, logger *slog.Logger) *Handler {
	return &Handler{requests: requests, appointments: appointments, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/requests", h.handleCreate)
	r.Get("/requests", h.handleList)
	r.Get("/requests/{requestID}", h.handleGet)
	r.Post("/requests/{requestID}/close", h.handleClose)
}

type createRequestPayload struct {
	ClinicID          string `json:"clinic_id"`
	BloodType         string `json:"blood_type"`
	QuantityML        int    `json:"quantity_ml"`
	Urgent            bool   `json:"urgent"`
	Reason            string `json:"reason"`
	LinkedPatientID   string `json:"linked_patient_id"`
	LinkedPatientName string `json:"linked_patient_name"`
	ExpiresAt         string `json:"expires_at"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	clinicID, err := domain.ParseClinicID(payload.ClinicID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	bloodType, err := domain.ParseBloodType(payload.BloodType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	expiresAt, err := time.Parse(time.RFC3339, payload.ExpiresAt)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "expires_at must be RFC 3339"))
		return
	}

	var linkedPatient *models.LinkedPatient
	if payload.LinkedPatientID != "" {
		patientID, err := domain.ParsePatientID(payload.LinkedPatientID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		linkedPatient = &models.LinkedPatient{ID: patientID, Name: payload.LinkedPatientName}
	}

	request, err := h.requests.Create(ctx, service.CreateRequest{
		ClinicID:      clinicID,
		BloodType:     bloodType,
		QuantityML:    payload.QuantityML,
		Urgent:        payload.Urgent,
		Reason:        payload.Reason,
		LinkedPatient: linkedPatient,
		ExpiresAt:     expiresAt,
	})
	if err != nil {
		h.logFailure(ctx, "create blood request failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, request)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clinicID, err := domain.ParseClinicID(r.URL.Query().Get("clinic_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var status *models.RequestStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed := models.RequestStatus(raw)
		if parsed != models.RequestStatusOpen && parsed != models.RequestStatusClosed {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "status must be open or closed"))
			return
		}
		status = &parsed
	}

	requests, err := h.requests.List(ctx, clinicID, status)
	if err != nil {
		h.logFailure(ctx, "list blood requests failed", err)
		httputil.WriteError(w, err)
		return
	}
	if requests == nil {
		requests = []*models.BloodRequest{}
	}
	httputil.WriteJSON(w, http.StatusOK, requests)
}

// requestDetail embeds appointments into the single-request view so the
// clinic dashboard needs one round trip.
type requestDetail struct {
	*models.BloodRequest
	Appointments []*appointmentmodels.Appointment `json:"appointments"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	request, err := h.requests.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	appointments, err := h.appointments.ListByRequest(ctx, id)
	if err != nil {
		h.logFailure(ctx, "list appointments for request failed", err)
		httputil.WriteError(w, err)
		return
	}
	if appointments == nil {
		appointments = []*appointmentmodels.Appointment{}
	}

	httputil.WriteJSON(w, http.StatusOK, requestDetail{BloodRequest: request, Appointments: appointments})
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.requests.Close(ctx, id); err != nil {
		h.logFailure(ctx, "close blood request failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
