// Package handler is the thin HTTP layer over donor discovery.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"k9hope/internal/discovery/service"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/platform/httputil"
	"k9hope/pkg/requestcontext"
)

type Handler struct {
	discovery *service.Service
	logger    *slog.Logger
}

func New(discovery *service.Service, logger *slog.Logger) *Handler {
	return &Handler{discovery: discovery, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/discovery/donors", h.handleSearch)
	r.Get("/discovery/requests/{requestID}/candidates", h.handleCandidates)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	latitude, err := parseFloat(query.Get("latitude"), "latitude")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	longitude, err := parseFloat(query.Get("longitude"), "longitude")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	bloodType, err := domain.ParseBloodType(query.Get("blood_type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var maxKM float64
	if raw := query.Get("max_km"); raw != "" {
		maxKM, err = parseFloat(raw, "max_km")
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	matches, err := h.discovery.Search(ctx, service.SearchRequest{
		Latitude:  latitude,
		Longitude: longitude,
		BloodType: bloodType,
		MaxKM:     maxKM,
	})
	if err != nil {
		h.logFailure(ctx, "donor discovery failed", err)
		httputil.WriteError(w, err)
		return
	}
	if matches == nil {
		matches = []service.DonorMatch{}
	}
	httputil.WriteJSON(w, http.StatusOK, matches)
}

func (h *Handler) handleCandidates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	requestID, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	latitude, err := parseFloat(query.Get("latitude"), "latitude")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	longitude, err := parseFloat(query.Get("longitude"), "longitude")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var maxKM float64
	if raw := query.Get("max_km"); raw != "" {
		maxKM, err = parseFloat(raw, "max_km")
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	matches, err := h.discovery.FindCandidates(ctx, service.CandidateRequest{
		RequestID: requestID,
		Latitude:  latitude,
		Longitude: longitude,
		MaxKM:     maxKM,
	})
	if err != nil {
		h.logFailure(ctx, "candidate discovery failed", err)
		httputil.WriteError(w, err)
		return
	}
	if matches == nil {
		matches = []service.DonorMatch{}
	}
	httputil.WriteJSON(w, http.StatusOK, matches)
}

func parseFloat(raw, name string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeValidation, "%s must be a number", name)
	}
	return value, nil
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
