package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k9hope/pkg/domain"
)

func TestHasActiveMedicalCondition(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	newDonor := func(t *testing.T, condition string) *Donor {
		t.Helper()
		donor, err := NewDonor(
			domain.NewDonorID(),
			"Priya", "+91-9800011122", "priya@example.com", "Chennai",
			"Bruno", 28, 4, domain.BloodTypeDEA11Neg, 42, condition,
			13.0827, 80.2707, now,
		)
		require.NoError(t, err)
		return donor
	}

	t.Run("clear profile", func(t *testing.T) {
		assert.False(t, newDonor(t, "").HasActiveMedicalCondition())
	})

	t.Run("named condition", func(t *testing.T) {
		assert.True(t, newDonor(t, "tick fever").HasActiveMedicalCondition())
	})

	t.Run("whitespace only", func(t *testing.T) {
		assert.False(t, newDonor(t, "   ").HasActiveMedicalCondition())
	})
}
