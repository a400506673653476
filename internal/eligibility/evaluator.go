// Package eligibility implements the DAHD donor eligibility gate as a pure
// function over a donor snapshot. It performs no I/O and holds no state, so
// it is safe to call repeatedly and concurrently; discovery calls it per
// candidate donor.
package eligibility

import (
	"fmt"
	"time"

	"k9hope/pkg/domain"
)

// Snapshot carries the biometric and history fields the DAHD rules read.
type Snapshot struct {
	WeightKG         float64
	AgeYears         int
	PCVPercent       float64
	LastDonation     *time.Time
	MedicalCondition bool
}

// Result is the structured outcome of an evaluation. Ineligibility is a
// normal result, never an error: Reasons lists every failed rule so the
// caller can render all of them at once.
type Result struct {
	Eligible         bool       `json:"eligible"`
	Reasons          []string   `json:"reasons"`
	NextEligibleDate *time.Time `json:"next_eligible_date,omitempty"`
}

// Failure reasons are part of the API contract; callers match on them.
const (
	ReasonWeightBelowMinimum = "weight below minimum"
	ReasonAgeOutsideWindow   = "age outside window"
	ReasonPCVBelowThreshold  = "PCV below threshold"
	ReasonActiveMedCondition = "active medical condition"

	reasonCooldownRemainingFmt = "cooldown: %d days remaining"
)

// Evaluate applies every DAHD rule independently; a donor failing several
// rules reports all of them. Deterministic for a fixed (snapshot, now) pair.
func Evaluate(s Snapshot, now time.Time) Result {
	result := Result{Eligible: true}

	if s.WeightKG < domain.MinDonorWeightKG {
		result.fail(ReasonWeightBelowMinimum)
	}
	if s.AgeYears < domain.MinDonorAgeYears || s.AgeYears > domain.MaxDonorAgeYears {
		result.fail(ReasonAgeOutsideWindow)
	}
	if s.PCVPercent < domain.MinPCVPercent {
		result.fail(ReasonPCVBelowThreshold)
	}
	if s.LastDonation != nil {
		elapsedDays := int(now.Sub(*s.LastDonation).Hours() / 24)
		cooldownDays := int(domain.DonationCooldown.Hours() / 24)
		if elapsedDays < cooldownDays {
			next := s.LastDonation.Add(domain.DonationCooldown)
			result.NextEligibleDate = &next
			result.fail(fmt.Sprintf(reasonCooldownRemainingFmt, cooldownDays-elapsedDays))
		}
	}
	if s.MedicalCondition {
		result.fail(ReasonActiveMedCondition)
	}

	return result
}

func (r *Result) fail(reason string) {
	r.Eligible = false
	r.Reasons = append(r.Reasons, reason)
}
