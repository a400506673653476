package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k9hope/internal/request/models"
	"k9hope/internal/request/service"
	"k9hope/internal/request/store"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/platform/audit"
	"k9hope/pkg/requestcontext"
)

var testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func validCreate() service.CreateRequest {
	return service.CreateRequest{
		ClinicID:   domain.NewClinicID(),
		BloodType:  domain.BloodTypeDEA11Neg,
		QuantityML: 450,
		Urgent:     true,
		Reason:     "post-operative transfusion",
		ExpiresAt:  testNow.Add(7 * 24 * time.Hour),
	}
}

func TestCreate(t *testing.T) {
	t.Run("valid input opens a request", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		request, err := svc.Create(testCtx(), validCreate())
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusOpen, request.Status)
		assert.Equal(t, testNow, request.CreatedAt)
		assert.Nil(t, request.ClosedAt)
	})

	t.Run("rejections are validation errors", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		cases := map[string]func(*service.CreateRequest){
			"zero quantity":       func(r *service.CreateRequest) { r.QuantityML = 0 },
			"negative quantity":   func(r *service.CreateRequest) { r.QuantityML = -100 },
			"unknown blood type":  func(r *service.CreateRequest) { r.BloodType = domain.BloodType("DEA9") },
			"expiry in the past":  func(r *service.CreateRequest) { r.ExpiresAt = testNow.Add(-time.Hour) },
			"expiry at now":       func(r *service.CreateRequest) { r.ExpiresAt = testNow },
			"expiry past 30 days": func(r *service.CreateRequest) { r.ExpiresAt = testNow.Add(31 * 24 * time.Hour) },
			"missing clinic":      func(r *service.CreateRequest) { r.ClinicID = domain.ClinicID{} },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				req := validCreate()
				mutate(&req)
				_, err := svc.Create(testCtx(), req)
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			})
		}
	})

	t.Run("expiry exactly 30 days out is accepted", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		req := validCreate()
		req.ExpiresAt = testNow.Add(domain.MaxRequestExpiryWindow)
		_, err := svc.Create(testCtx(), req)
		require.NoError(t, err)
	})

	t.Run("emits an audit event", func(t *testing.T) {
		sink := audit.NewChannelSink(4)
		svc := service.New(store.NewInMemory(), service.WithAuditSink(sink))
		request, err := svc.Create(testCtx(), validCreate())
		require.NoError(t, err)

		select {
		case event := <-sink.Inbox():
			assert.Equal(t, audit.ActionRequestCreated, event.Action)
			assert.Equal(t, request.ID.String(), event.Subject)
		default:
			t.Fatal("expected an audit event")
		}
	})
}

func TestClose(t *testing.T) {
	t.Run("closes an open request", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		request, err := svc.Create(testCtx(), validCreate())
		require.NoError(t, err)

		require.NoError(t, svc.Close(testCtx(), request.ID))

		reloaded, err := svc.Get(testCtx(), request.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusClosed, reloaded.Status)
		require.NotNil(t, reloaded.ClosedAt)
		assert.Equal(t, testNow, *reloaded.ClosedAt)
	})

	t.Run("closing twice is a conflict", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		request, err := svc.Create(testCtx(), validCreate())
		require.NoError(t, err)

		require.NoError(t, svc.Close(testCtx(), request.ID))
		err = svc.Close(testCtx(), request.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("missing request", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		err := svc.Close(testCtx(), domain.NewRequestID())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("concurrent closes admit exactly one", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		request, err := svc.Create(testCtx(), validCreate())
		require.NoError(t, err)

		const n = 10
		results := make(chan error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- svc.Close(testCtx(), request.ID)
			}()
		}
		wg.Wait()
		close(results)

		var ok int
		for err := range results {
			if err == nil {
				ok++
				continue
			}
			require.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		}
		assert.Equal(t, 1, ok)
	})
}

func TestList(t *testing.T) {
	svc := service.New(store.NewInMemory())
	clinicID := domain.NewClinicID()

	mk := func(urgent bool) *models.BloodRequest {
		req := validCreate()
		req.ClinicID = clinicID
		req.Urgent = urgent
		request, err := svc.Create(testCtx(), req)
		require.NoError(t, err)
		return request
	}
	first := mk(false)
	second := mk(true)
	require.NoError(t, svc.Close(testCtx(), first.ID))

	t.Run("all statuses", func(t *testing.T) {
		requests, err := svc.List(testCtx(), clinicID, nil)
		require.NoError(t, err)
		assert.Len(t, requests, 2)
	})

	t.Run("filtered to open", func(t *testing.T) {
		open := models.RequestStatusOpen
		requests, err := svc.List(testCtx(), clinicID, &open)
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, second.ID, requests[0].ID)
	})

	t.Run("other clinics are invisible", func(t *testing.T) {
		requests, err := svc.List(testCtx(), domain.NewClinicID(), nil)
		require.NoError(t, err)
		assert.Empty(t, requests)
	})

	t.Run("nil clinic id", func(t *testing.T) {
		_, err := svc.List(testCtx(), domain.ClinicID{}, nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
