package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k9hope/internal/discovery/service"
	donorservice "k9hope/internal/donor/service"
	donorstore "k9hope/internal/donor/store"
	requestservice "k9hope/internal/request/service"
	requeststore "k9hope/internal/request/store"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/requestcontext"
)

var searchNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

// memoryCache is a map-backed Cache for asserting hit/miss behavior.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	payload, ok := c.entries[key]
	return payload, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = payload
	return nil
}

type fixture struct {
	discovery *service.Service
	donors    *donorservice.Service
	ctx       context.Context
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	donors := donorservice.New(donorstore.NewInMemory())
	return &fixture{
		discovery: service.New(donors, opts...),
		donors:    donors,
		ctx:       requestcontext.WithTime(context.Background(), searchNow),
	}
}

type donorSpec struct {
	name      string
	bloodType domain.BloodType
	lat, lon  float64
	weight    float64
	age       int
	pcv       float64
	condition string
	last      *time.Time
}

func (f *fixture) register(t *testing.T, spec donorSpec) domain.DonorID {
	t.Helper()
	donor, err := f.donors.Register(f.ctx, donorservice.RegisterRequest{
		Name:             spec.name,
		DogName:          spec.name + "-dog",
		WeightKG:         spec.weight,
		AgeYears:         spec.age,
		BloodType:        spec.bloodType,
		PCVPercent:       spec.pcv,
		MedicalCondition: spec.condition,
		Latitude:         spec.lat,
		Longitude:        spec.lon,
	})
	require.NoError(t, err)
	if spec.last != nil {
		appt := domain.NewAppointmentID()
		require.NoError(t, f.donors.RecordDonation(f.ctx, donor.ID, appt, *spec.last))
	}
	return donor.ID
}

func healthy(name string, bloodType domain.BloodType, lat, lon float64) donorSpec {
	return donorSpec{name: name, bloodType: bloodType, lat: lat, lon: lon, weight: 30, age: 4, pcv: 42}
}

func TestSearch(t *testing.T) {
	origin := service.SearchRequest{
		Latitude:  13.08,
		Longitude: 80.27,
		BloodType: domain.BloodTypeDEA11Pos,
	}

	t.Run("ranks nearby compatible eligible donors", func(t *testing.T) {
		f := newFixture(t)
		near := f.register(t, healthy("near", domain.BloodTypeDEA11Pos, 13.09, 80.28))
		nearer := f.register(t, healthy("nearer", domain.BloodTypeDEA11Neg, 13.081, 80.271))
		f.register(t, healthy("far", domain.BloodTypeDEA11Pos, 13.20, 80.40))

		matches, err := f.discovery.Search(f.ctx, origin)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, nearer, matches[0].DonorID)
		assert.Equal(t, near, matches[1].DonorID)
		assert.Less(t, matches[0].DistanceKM, matches[1].DistanceKM)
	})

	t.Run("filters incompatible blood types", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, healthy("mismatch", domain.BloodTypeDEA3, 13.081, 80.271))
		universal := f.register(t, healthy("universal", domain.BloodTypeDEA11Neg, 13.082, 80.272))

		matches, err := f.discovery.Search(f.ctx, origin)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, universal, matches[0].DonorID)
	})

	t.Run("filters ineligible donors", func(t *testing.T) {
		f := newFixture(t)
		underweight := healthy("light", domain.BloodTypeDEA11Pos, 13.081, 80.271)
		underweight.weight = 20
		f.register(t, underweight)

		recent := searchNow.Add(-10 * 24 * time.Hour)
		cooling := healthy("cooling", domain.BloodTypeDEA11Pos, 13.082, 80.272)
		cooling.last = &recent
		f.register(t, cooling)

		sick := healthy("sick", domain.BloodTypeDEA11Pos, 13.083, 80.273)
		sick.condition = "tick fever"
		f.register(t, sick)

		matches, err := f.discovery.Search(f.ctx, origin)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("filters unavailable donors", func(t *testing.T) {
		f := newFixture(t)
		id := f.register(t, healthy("away", domain.BloodTypeDEA11Pos, 13.081, 80.271))
		_, err := f.donors.SetAvailability(f.ctx, id, false)
		require.NoError(t, err)

		matches, err := f.discovery.Search(f.ctx, origin)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("custom radius widens the net", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, healthy("far", domain.BloodTypeDEA11Pos, 13.20, 80.40))

		wide := origin
		wide.MaxKM = 30
		matches, err := f.discovery.Search(f.ctx, wide)
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("rejects bad coordinates and blood types", func(t *testing.T) {
		f := newFixture(t)
		bad := origin
		bad.Latitude = 91
		_, err := f.discovery.Search(f.ctx, bad)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		bad = origin
		bad.BloodType = domain.BloodType("DEA9")
		_, err = f.discovery.Search(f.ctx, bad)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestSearchCache(t *testing.T) {
	origin := service.SearchRequest{
		Latitude:  13.08,
		Longitude: 80.27,
		BloodType: domain.BloodTypeDEA11Pos,
	}

	cache := newMemoryCache()
	f := newFixture(t, service.WithCache(cache))
	id := f.register(t, healthy("near", domain.BloodTypeDEA11Pos, 13.09, 80.28))

	first, err := f.discovery.Search(f.ctx, origin)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, cache.sets)

	// Second search is served from the cache even after the donor leaves.
	_, err = f.donors.SetAvailability(f.ctx, id, false)
	require.NoError(t, err)

	second, err := f.discovery.Search(f.ctx, origin)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].DonorID, second[0].DonorID)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 2, cache.gets)
}

func TestFindCandidates(t *testing.T) {
	newRequests := func(t *testing.T) *requestservice.Service {
		t.Helper()
		return requestservice.New(requeststore.NewInMemory())
	}
	createRequest := func(t *testing.T, ctx context.Context, requests *requestservice.Service, bloodType domain.BloodType) domain.RequestID {
		t.Helper()
		created, err := requests.Create(ctx, requestservice.CreateRequest{
			ClinicID:   domain.NewClinicID(),
			BloodType:  bloodType,
			QuantityML: 450,
			ExpiresAt:  searchNow.Add(72 * time.Hour),
		})
		require.NoError(t, err)
		return created.ID
	}

	t.Run("matches donors compatible with the request", func(t *testing.T) {
		requests := newRequests(t)
		f := newFixture(t, service.WithRequestSource(requests))
		match := f.register(t, healthy("neg", domain.BloodTypeDEA11Neg, 13.09, 80.28))
		f.register(t, healthy("other", domain.BloodTypeDEA3, 13.081, 80.271))
		requestID := createRequest(t, f.ctx, requests, domain.BloodTypeDEA11Pos)

		matches, err := f.discovery.FindCandidates(f.ctx, service.CandidateRequest{
			RequestID: requestID,
			Latitude:  13.08,
			Longitude: 80.27,
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, match, matches[0].DonorID)
	})

	t.Run("closed request is a conflict", func(t *testing.T) {
		requests := newRequests(t)
		f := newFixture(t, service.WithRequestSource(requests))
		requestID := createRequest(t, f.ctx, requests, domain.BloodTypeDEA11Pos)
		require.NoError(t, requests.Close(f.ctx, requestID))

		_, err := f.discovery.FindCandidates(f.ctx, service.CandidateRequest{
			RequestID: requestID,
			Latitude:  13.08,
			Longitude: 80.27,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown request is not found", func(t *testing.T) {
		requests := newRequests(t)
		f := newFixture(t, service.WithRequestSource(requests))

		_, err := f.discovery.FindCandidates(f.ctx, service.CandidateRequest{
			RequestID: domain.NewRequestID(),
			Latitude:  13.08,
			Longitude: 80.27,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// failingCache always errors, standing in for an unreachable Redis.
type failingCache struct {
	mu    sync.Mutex
	calls int
}

func (c *failingCache) Get(context.Context, string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, false, errors.New("connection refused")
}

func (c *failingCache) Set(context.Context, string, []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return errors.New("connection refused")
}

func TestSearchCacheBreaker(t *testing.T) {
	origin := service.SearchRequest{
		Latitude:  13.08,
		Longitude: 80.27,
		BloodType: domain.BloodTypeDEA11Pos,
	}

	cache := &failingCache{}
	f := newFixture(t, service.WithCache(cache))
	f.register(t, healthy("near", domain.BloodTypeDEA11Pos, 13.09, 80.28))

	// Searches keep working while the cache fails, and once the circuit
	// opens the cache stops being consulted at all.
	for range 10 {
		matches, err := f.discovery.Search(f.ctx, origin)
		require.NoError(t, err)
		require.Len(t, matches, 1)
	}
	cache.mu.Lock()
	calls := cache.calls
	cache.mu.Unlock()
	assert.Less(t, calls, 10)
}
