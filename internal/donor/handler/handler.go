// Package handler is the thin HTTP layer over the donor registry.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"k9hope/internal/donor/models"
	"k9hope/internal/donor/service"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/platform/httputil"
	"k9hope/pkg/requestcontext"
)

type Handler struct {
	donors *service.Service
	logger *slog.Logger
}

func New(donors *service.Service, logger *slog.Logger) *Handler {
	return &Handler{donors: donors, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/donors", h.handleRegister)
	r.Get("/donors/{donorID}", h.handleGet)
	r.Put("/donors/{donorID}/availability", h.handleAvailability)
	r.Get("/clinics/{clinicID}/saved-donors", h.handleListSaved)
	r.Post("/clinics/{clinicID}/saved-donors", h.handleSave)
	r.Delete("/saved-donors/{savedDonorID}", h.handleRemove)
}

type registerPayload struct {
	Name             string  `json:"name"`
	Phone            string  `json:"phone"`
	Email            string  `json:"email"`
	City             string  `json:"city"`
	DogName          string  `json:"dog_name"`
	WeightKG         float64 `json:"weight_kg"`
	AgeYears         int     `json:"age_years"`
	BloodType        string  `json:"blood_type"`
	PCVPercent       float64 `json:"pcv_percent"`
	MedicalCondition string  `json:"medical_condition"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	bloodType, err := domain.ParseBloodType(payload.BloodType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	donor, err := h.donors.Register(ctx, service.RegisterRequest{
		Name:             payload.Name,
		Phone:            payload.Phone,
		Email:            payload.Email,
		City:             payload.City,
		DogName:          payload.DogName,
		WeightKG:         payload.WeightKG,
		AgeYears:         payload.AgeYears,
		BloodType:        bloodType,
		PCVPercent:       payload.PCVPercent,
		MedicalCondition: payload.MedicalCondition,
		Latitude:         payload.Latitude,
		Longitude:        payload.Longitude,
	})
	if err != nil {
		h.logFailure(ctx, "register donor failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, donor)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseDonorID(chi.URLParam(r, "donorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	donor, err := h.donors.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donor)
}

type availabilityPayload struct {
	Available bool `json:"available"`
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseDonorID(chi.URLParam(r, "donorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var payload availabilityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	donor, err := h.donors.SetAvailability(ctx, id, payload.Available)
	if err != nil {
		h.logFailure(ctx, "set donor availability failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donor)
}

type savePayload struct {
	DonorID string `json:"donor_id"`
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clinicID, err := domain.ParseClinicID(chi.URLParam(r, "clinicID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var payload savePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	donorID, err := domain.ParseDonorID(payload.DonorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.donors.Save(ctx, clinicID, donorID)
	if err != nil {
		h.logFailure(ctx, "save donor failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseSavedDonorID(chi.URLParam(r, "savedDonorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.donors.Remove(ctx, id); err != nil {
		h.logFailure(ctx, "remove saved donor failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListSaved(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clinicID, err := domain.ParseClinicID(chi.URLParam(r, "clinicID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.donors.ListSaved(ctx, clinicID)
	if err != nil {
		h.logFailure(ctx, "list saved donors failed", err)
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []*models.SavedDonorRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, records)
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
