package matching

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"k9hope/pkg/domain"
)

func candidateAt(lat, lon float64) Candidate {
	return Candidate{DonorID: domain.DonorID(uuid.New()), Latitude: lat, Longitude: lon}
}

func TestHaversine(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		assert.Zero(t, Haversine(13.08, 80.27, 13.08, 80.27))
	})

	t.Run("short hop across Chennai is roughly 1.5km", func(t *testing.T) {
		d := Haversine(13.08, 80.27, 13.09, 80.28)
		assert.InDelta(t, 1.5, d, 0.2)
	})

	t.Run("is symmetric", func(t *testing.T) {
		a := Haversine(13.08, 80.27, 13.20, 80.40)
		b := Haversine(13.20, 80.40, 13.08, 80.27)
		assert.InDelta(t, a, b, 1e-9)
	})
}

func TestFindNearby(t *testing.T) {
	t.Run("filters beyond radius and keeps nearest first", func(t *testing.T) {
		near := candidateAt(13.09, 80.28) // ~1.5km
		far := candidateAt(13.20, 80.40)  // ~17km
		matches := FindNearby(13.08, 80.27, []Candidate{far, near}, 10)

		require.Len(t, matches, 1)
		assert.Equal(t, near.DonorID, matches[0].Candidate.DonorID)
		assert.Less(t, matches[0].DistanceKM, 10.0)
	})

	t.Run("defaults radius when maxKM is not positive", func(t *testing.T) {
		near := candidateAt(13.09, 80.28)
		far := candidateAt(13.20, 80.40)
		matches := FindNearby(13.08, 80.27, []Candidate{near, far}, 0)
		require.Len(t, matches, 1)
		assert.Equal(t, near.DonorID, matches[0].Candidate.DonorID)
	})

	t.Run("ties preserve input order", func(t *testing.T) {
		first := candidateAt(13.09, 80.28)
		second := candidateAt(13.09, 80.28)
		matches := FindNearby(13.08, 80.27, []Candidate{first, second}, 10)

		require.Len(t, matches, 2)
		assert.Equal(t, first.DonorID, matches[0].Candidate.DonorID)
		assert.Equal(t, second.DonorID, matches[1].Candidate.DonorID)
	})

	t.Run("empty input yields empty result", func(t *testing.T) {
		assert.Empty(t, FindNearby(13.08, 80.27, nil, 10))
	})
}

// TestFindNearby_Properties checks the ordering and radius invariants for
// arbitrary donor sets and origins.
func TestFindNearby_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		originLat := rapid.Float64Range(-85, 85).Draw(t, "origin_lat")
		originLon := rapid.Float64Range(-180, 180).Draw(t, "origin_lon")
		maxKM := rapid.Float64Range(0.1, 500).Draw(t, "max_km")

		count := rapid.IntRange(0, 40).Draw(t, "count")
		candidates := make([]Candidate, count)
		for i := range candidates {
			candidates[i] = candidateAt(
				rapid.Float64Range(-85, 85).Draw(t, "lat"),
				rapid.Float64Range(-180, 180).Draw(t, "lon"),
			)
		}

		matches := FindNearby(originLat, originLon, candidates, maxKM)

		for i, m := range matches {
			if m.DistanceKM > maxKM {
				t.Fatalf("match %d distance %f exceeds radius %f", i, m.DistanceKM, maxKM)
			}
			if math.IsNaN(m.DistanceKM) {
				t.Fatalf("match %d distance is NaN", i)
			}
			if i > 0 && matches[i-1].DistanceKM > m.DistanceKM {
				t.Fatalf("matches not sorted at %d: %f > %f", i, matches[i-1].DistanceKM, m.DistanceKM)
			}
		}
	})
}

func TestDefaultCompatibilityTable(t *testing.T) {
	table := DefaultCompatibilityTable()

	t.Run("exact match serves", func(t *testing.T) {
		assert.True(t, table.Compatible(domain.BloodTypeDEA3, domain.BloodTypeDEA3))
	})

	t.Run("universal donor serves every needed type", func(t *testing.T) {
		for _, needed := range domain.BloodTypes {
			assert.True(t, table.Compatible(needed, domain.BloodTypeDEA11Neg), string(needed))
		}
	})

	t.Run("DEA4 is broadly compatible but not for unknown recipients", func(t *testing.T) {
		assert.True(t, table.Compatible(domain.BloodTypeDEA11Pos, domain.BloodTypeDEA4))
		assert.False(t, table.Compatible(domain.BloodTypeUnknown, domain.BloodTypeDEA4))
	})

	t.Run("mismatched ordinary types do not serve", func(t *testing.T) {
		assert.False(t, table.Compatible(domain.BloodTypeDEA5, domain.BloodTypeDEA7))
	})

	t.Run("overrides replace defaults", func(t *testing.T) {
		table := DefaultCompatibilityTable()
		table.Set(domain.BloodTypeDEA5, domain.BloodTypeDEA7, true)
		assert.True(t, table.Compatible(domain.BloodTypeDEA5, domain.BloodTypeDEA7))
	})
}
