package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appointmentservice "k9hope/internal/appointment/service"
	appointmentstore "k9hope/internal/appointment/store"
	donorservice "k9hope/internal/donor/service"
	donorstore "k9hope/internal/donor/store"
	"k9hope/internal/request/handler"
	"k9hope/internal/request/models"
	"k9hope/internal/request/service"
	"k9hope/internal/request/store"
	"k9hope/pkg/domain"
	"k9hope/pkg/requestcontext"
	"k9hope/pkg/testutil"
)

var testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newRouter(t *testing.T) (chi.Router, *service.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	requests := service.New(store.NewInMemory())
	donors := donorservice.New(donorstore.NewInMemory())
	appointments := appointmentservice.New(
		appointmentstore.NewInMemory(), requests, donors, appointmentservice.NewShardedTx())

	r := chi.NewRouter()
	handler.New(requests, appointments, logger).Register(r)
	return r, requests
}

func serve(r chi.Router, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, testutil.WithRequestTime(req, testNow))
	return rr
}

func TestHandleCreate(t *testing.T) {
	router, _ := newRouter(t)
	clinicID := domain.NewClinicID()

	t.Run("creates an open request", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/requests", map[string]any{
			"clinic_id":   clinicID.String(),
			"blood_type":  "DEA1.1-",
			"quantity_ml": 450,
			"urgent":      true,
			"reason":      "emergency surgery",
			"expires_at":  testNow.Add(48 * time.Hour).Format(time.RFC3339),
		})
		rr := serve(router, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)
		testutil.AssertJSONContains(t, rr, "status", "open")
		testutil.AssertJSONContains(t, rr, "blood_type", "DEA1.1-")
		testutil.AssertJSONHasKey(t, rr, "id")
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/requests", "{not json")
		rr := serve(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
	})

	t.Run("rejects an unknown blood type", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/requests", map[string]any{
			"clinic_id":   clinicID.String(),
			"blood_type":  "O-",
			"quantity_ml": 450,
			"expires_at":  testNow.Add(48 * time.Hour).Format(time.RFC3339),
		})
		rr := serve(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
	})

	t.Run("rejects an unparseable expiry", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/requests", map[string]any{
			"clinic_id":   clinicID.String(),
			"blood_type":  "DEA1.1-",
			"quantity_ml": 450,
			"expires_at":  "tomorrow",
		})
		rr := serve(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
	})
}

func TestHandleList(t *testing.T) {
	router, requests := newRouter(t)
	clinicID := domain.NewClinicID()
	ctx := requestcontext.WithTime(context.Background(), testNow)

	created, err := requests.Create(ctx, service.CreateRequest{
		ClinicID:   clinicID,
		BloodType:  domain.BloodTypeDEA11Pos,
		QuantityML: 250,
		Reason:     "transfusion",
		ExpiresAt:  testNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	t.Run("lists a clinic's requests", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/requests?clinic_id="+clinicID.String())
		rr := serve(router, req)

		testutil.AssertStatusOK(t, rr)
		listed := testutil.UnmarshalResponse[[]*models.BloodRequest](t, rr)
		require.Len(t, *listed, 1)
		assert.Equal(t, created.ID, (*listed)[0].ID)
	})

	t.Run("filters by status", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet,
			"/requests?clinic_id="+clinicID.String()+"&status=closed")
		rr := serve(router, req)

		testutil.AssertStatusOK(t, rr)
		listed := testutil.UnmarshalResponse[[]*models.BloodRequest](t, rr)
		assert.Empty(t, *listed)
	})

	t.Run("rejects an unknown status filter", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet,
			"/requests?clinic_id="+clinicID.String()+"&status=expired")
		rr := serve(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
	})

	t.Run("rejects a missing clinic id", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/requests")
		rr := serve(router, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestHandleGet(t *testing.T) {
	router, requests := newRouter(t)
	ctx := requestcontext.WithTime(context.Background(), testNow)

	created, err := requests.Create(ctx, service.CreateRequest{
		ClinicID:   domain.NewClinicID(),
		BloodType:  domain.BloodTypeDEA4,
		QuantityML: 450,
		Reason:     "parvo case",
		ExpiresAt:  testNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	t.Run("returns the request with its appointments", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/requests/"+created.ID.String())
		rr := serve(router, req)

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "id", created.ID.String())
		testutil.AssertJSONHasKey(t, rr, "appointments")
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/requests/"+domain.NewRequestID().String())
		rr := serve(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("malformed id is a validation error", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/requests/not-a-uuid")
		rr := serve(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
	})
}

func TestHandleClose(t *testing.T) {
	router, requests := newRouter(t)
	ctx := requestcontext.WithTime(context.Background(), testNow)

	created, err := requests.Create(ctx, service.CreateRequest{
		ClinicID:   domain.NewClinicID(),
		BloodType:  domain.BloodTypeDEA3,
		QuantityML: 450,
		Reason:     "splenectomy",
		ExpiresAt:  testNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	t.Run("closes an open request", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/requests/"+created.ID.String()+"/close")
		rr := serve(router, req)

		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	t.Run("closing again is a conflict", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/requests/"+created.ID.String()+"/close")
		rr := serve(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})
}
