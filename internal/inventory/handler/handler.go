// Package handler is the thin HTTP layer over the clinic stock ledger.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"k9hope/internal/inventory/service"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/platform/httputil"
	"k9hope/pkg/requestcontext"
)

type Handler struct {
	inventory *service.Service
	logger    *slog.Logger
}

func New(inventory *service.Service, logger *slog.Logger) *Handler {
	return &Handler{inventory: inventory, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/clinics/{clinicID}/inventory", h.handleLevels)
	r.Post("/clinics/{clinicID}/inventory/adjustments", h.handleAdjust)
}

type adjustPayload struct {
	BloodType string `json:"blood_type"`
	DeltaML   int    `json:"delta_ml"`
}

type adjustResponse struct {
	BloodType domain.BloodType `json:"blood_type"`
	LevelML   int              `json:"level_ml"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clinicID, err := domain.ParseClinicID(chi.URLParam(r, "clinicID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var payload adjustPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	bloodType, err := domain.ParseBloodType(payload.BloodType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	level, err := h.inventory.Adjust(ctx, clinicID, bloodType, payload.DeltaML)
	if err != nil {
		h.logFailure(ctx, "adjust inventory failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, adjustResponse{BloodType: bloodType, LevelML: level})
}

func (h *Handler) handleLevels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clinicID, err := domain.ParseClinicID(chi.URLParam(r, "clinicID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	levels, err := h.inventory.Levels(ctx, clinicID)
	if err != nil {
		h.logFailure(ctx, "load inventory failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, levels)
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
