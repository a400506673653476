// Package service implements donor discovery: the read-side search that
// clinics run against a blood request. It composes blood type compatibility,
// the eligibility screen, and the distance matcher over the registry's
// available donors. Everything here is a projection; discovery never mutates
// state.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	donormodels "k9hope/internal/donor/models"
	"k9hope/internal/eligibility"
	"k9hope/internal/matching"
	requestmodels "k9hope/internal/request/models"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
	"k9hope/pkg/platform/circuit"
	"k9hope/pkg/requestcontext"
)

var (
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "k9hope_discovery_search_seconds",
		Help:    "Latency of donor discovery searches",
		Buckets: prometheus.DefBuckets,
	})
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "k9hope_discovery_cache_hits_total",
		Help: "Discovery searches served from the cache",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "k9hope_discovery_cache_misses_total",
		Help: "Discovery searches computed from the registry",
	})
)

// DonorSource supplies the donors open to discovery. Satisfied by the donor
// registry.
type DonorSource interface {
	ListAvailable(ctx context.Context) ([]*donormodels.Donor, error)
}

// RequestSource resolves blood requests for request-anchored candidate
// searches. Satisfied by the request lifecycle service.
type RequestSource interface {
	Get(ctx context.Context, id domain.RequestID) (*requestmodels.BloodRequest, error)
}

// Cache is an optional read accelerator for search results. Failures are
// logged and ignored; the registry stays authoritative.
type Cache interface {
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)
	Set(ctx context.Context, key string, payload []byte) error
}

// Service runs donor discovery searches.
type Service struct {
	donors   DonorSource
	requests RequestSource
	table    *matching.CompatibilityTable
	cache    Cache
	breaker  *circuit.Breaker
	tracer   trace.Tracer
	logger   *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithCache(cache Cache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithCompatibilityTable(table *matching.CompatibilityTable) Option {
	return func(s *Service) { s.table = table }
}

// WithRequestSource enables FindCandidates. Without it only the coordinate
// search is available.
func WithRequestSource(requests RequestSource) Option {
	return func(s *Service) { s.requests = requests }
}

func New(donors DonorSource, opts ...Option) *Service {
	s := &Service{
		donors:  donors,
		table:   matching.DefaultCompatibilityTable(),
		breaker: circuit.New("discovery-cache"),
		tracer:  otel.Tracer("k9hope/discovery"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchRequest carries the clinic's search parameters. MaxKM at or below
// zero falls back to the default radius.
type SearchRequest struct {
	Latitude  float64
	Longitude float64
	BloodType domain.BloodType
	MaxKM     float64
}

// DonorMatch is one discovered donor with the distance that ranked it.
type DonorMatch struct {
	DonorID    domain.DonorID   `json:"donor_id"`
	DonorName  string           `json:"donor_name"`
	DogName    string           `json:"dog_name"`
	BloodType  domain.BloodType `json:"blood_type"`
	Phone      string           `json:"phone"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	DistanceKM float64          `json:"distance_km"`
}

// Search returns compatible, eligible donors within the radius, nearest
// first.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]DonorMatch, error) {
	start := time.Now()
	defer func() { searchDuration.Observe(time.Since(start).Seconds()) }()

	if req.Latitude < -90 || req.Latitude > 90 {
		return nil, dErrors.New(dErrors.CodeValidation, "latitude out of range")
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return nil, dErrors.New(dErrors.CodeValidation, "longitude out of range")
	}
	if !req.BloodType.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "blood type not in recognized set")
	}
	maxKM := req.MaxKM
	if maxKM <= 0 {
		maxKM = domain.DefaultSearchRadiusKM
	}

	ctx, span := s.tracer.Start(ctx, "discovery.search",
		trace.WithAttributes(
			attribute.String("blood_type", string(req.BloodType)),
			attribute.Float64("max_km", maxKM),
		),
	)
	defer span.End()

	key := cacheKey(req, maxKM)
	if matches, ok := s.fromCache(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		cacheHits.Inc()
		return matches, nil
	}
	cacheMisses.Inc()

	donors, err := s.donors.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	byID := make(map[domain.DonorID]*donormodels.Donor, len(donors))
	var candidates []matching.Candidate
	for _, donor := range donors {
		if !s.table.Compatible(req.BloodType, donor.BloodType) {
			continue
		}
		result := eligibility.Evaluate(eligibility.Snapshot{
			WeightKG:         donor.WeightKG,
			AgeYears:         donor.AgeYears,
			PCVPercent:       donor.PCVPercent,
			LastDonation:     donor.LastDonation,
			MedicalCondition: donor.HasActiveMedicalCondition(),
		}, now)
		if !result.Eligible {
			continue
		}
		byID[donor.ID] = donor
		candidates = append(candidates, matching.Candidate{
			DonorID:   donor.ID,
			Latitude:  donor.Latitude,
			Longitude: donor.Longitude,
		})
	}

	matches := make([]DonorMatch, 0, len(candidates))
	for _, match := range matching.FindNearby(req.Latitude, req.Longitude, candidates, maxKM) {
		donor := byID[match.Candidate.DonorID]
		matches = append(matches, DonorMatch{
			DonorID:    donor.ID,
			DonorName:  donor.Name,
			DogName:    donor.DogName,
			BloodType:  donor.BloodType,
			Phone:      donor.Phone,
			Latitude:   donor.Latitude,
			Longitude:  donor.Longitude,
			DistanceKM: match.DistanceKM,
		})
	}
	span.SetAttributes(attribute.Int("match.count", len(matches)))

	s.toCache(ctx, key, matches)
	return matches, nil
}

// CandidateRequest anchors a search on an existing blood request. The clinic
// supplies its own coordinates; requests do not store a location.
type CandidateRequest struct {
	RequestID domain.RequestID
	Latitude  float64
	Longitude float64
	MaxKM     float64
}

// FindCandidates resolves the request and searches for donors compatible
// with its blood type. Closed requests are a conflict: there is nothing left
// to match against.
func (s *Service) FindCandidates(ctx context.Context, req CandidateRequest) ([]DonorMatch, error) {
	if s.requests == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "request source not configured")
	}

	request, err := s.requests.Get(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if !request.IsOpen() {
		return nil, dErrors.New(dErrors.CodeConflict, "request is not open")
	}

	return s.Search(ctx, SearchRequest{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		BloodType: request.BloodType,
		MaxKM:     req.MaxKM,
	})
}

func cacheKey(req SearchRequest, maxKM float64) string {
	// Coordinates rounded to ~100m so nearby searches share entries.
	return fmt.Sprintf("%s:%.3f:%.3f:%.1f", req.BloodType, req.Latitude, req.Longitude, maxKM)
}

func (s *Service) fromCache(ctx context.Context, key string) ([]DonorMatch, bool) {
	if s.cache == nil || !s.breaker.Allow() {
		return nil, false
	}
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.recordCacheFailure(ctx, "discovery cache read failed", err)
		return nil, false
	}
	s.recordCacheSuccess(ctx)
	if !ok {
		return nil, false
	}
	var matches []DonorMatch
	if err := json.Unmarshal(payload, &matches); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "discovery cache entry malformed", "error", err.Error())
		}
		return nil, false
	}
	return matches, true
}

func (s *Service) toCache(ctx context.Context, key string, matches []DonorMatch) {
	if s.cache == nil || !s.breaker.Allow() {
		return
	}
	payload, err := json.Marshal(matches)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload); err != nil {
		s.recordCacheFailure(ctx, "discovery cache write failed", err)
		return
	}
	s.recordCacheSuccess(ctx)
}

// recordCacheFailure feeds the breaker so a failing cache backend stops
// adding latency to every search.
func (s *Service) recordCacheFailure(ctx context.Context, msg string, err error) {
	_, change := s.breaker.RecordFailure()
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, msg, "error", err.Error())
	if change.Opened {
		s.logger.WarnContext(ctx, "discovery cache circuit opened")
	}
}

func (s *Service) recordCacheSuccess(ctx context.Context) {
	_, change := s.breaker.RecordSuccess()
	if change.Closed && s.logger != nil {
		s.logger.InfoContext(ctx, "discovery cache circuit closed")
	}
}
