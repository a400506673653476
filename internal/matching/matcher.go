// Package matching ranks donors by great-circle distance from a request
// origin and carries the blood-type compatibility table. Distance ranking is
// a single-responsibility numeric primitive: it does not filter by
// eligibility or compatibility; discovery composes those on top.
package matching

import (
	"math"
	"sort"

	"k9hope/pkg/domain"
)

// Candidate is the minimal geolocated donor view the matcher needs.
type Candidate struct {
	DonorID   domain.DonorID
	Latitude  float64
	Longitude float64
}

// Match pairs a candidate with its computed distance from the origin.
type Match struct {
	Candidate  Candidate
	DistanceKM float64
}

// Haversine returns the great-circle distance in kilometers between two
// latitude/longitude points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return domain.EarthRadiusKM * c
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}

// FindNearby filters candidates to those within maxKM of the origin and
// returns them ordered nearest first. The sort is stable: equidistant donors
// keep their input order, so results are reproducible. maxKM ≤ 0 falls back
// to the default search radius.
func FindNearby(originLat, originLon float64, candidates []Candidate, maxKM float64) []Match {
	if maxKM <= 0 {
		maxKM = domain.DefaultSearchRadiusKM
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		distance := Haversine(originLat, originLon, c.Latitude, c.Longitude)
		if distance <= maxKM {
			matches = append(matches, Match{Candidate: c, DistanceKM: distance})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceKM < matches[j].DistanceKM
	})
	return matches
}
