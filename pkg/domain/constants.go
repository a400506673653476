package domain

import "time"

// DAHD SOP thresholds and engine-wide constants. These values are part of the
// interoperability contract; changing them changes who may donate.
const (
	// MinDonorWeightKG is the minimum dog weight for donation.
	MinDonorWeightKG = 25.0

	// MinDonorAgeYears and MaxDonorAgeYears bound the eligible age window,
	// inclusive on both ends.
	MinDonorAgeYears = 1
	MaxDonorAgeYears = 8

	// MinPCVPercent is the minimum packed-cell-volume health gate.
	MinPCVPercent = 35.0

	// DonationCooldown is the required rest period between donations.
	DonationCooldown = 30 * 24 * time.Hour

	// DefaultSearchRadiusKM bounds geospatial donor discovery.
	DefaultSearchRadiusKM = 10.0

	// MaxRequestExpiryWindow caps how far in the future a blood request may
	// expire, measured from creation.
	MaxRequestExpiryWindow = 30 * 24 * time.Hour

	// EarthRadiusKM is the sphere radius used for haversine distance.
	EarthRadiusKM = 6371.0
)
