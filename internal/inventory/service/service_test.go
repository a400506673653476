package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k9hope/internal/inventory/service"
	"k9hope/internal/inventory/store"
	"k9hope/pkg/domain"
	dErrors "k9hope/pkg/domain-errors"
)

func TestAdjust(t *testing.T) {
	t.Run("intake then withdrawal", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		clinicID := domain.NewClinicID()

		level, err := svc.Adjust(context.Background(), clinicID, domain.BloodTypeDEA4, 900)
		require.NoError(t, err)
		assert.Equal(t, 900, level)

		level, err = svc.Adjust(context.Background(), clinicID, domain.BloodTypeDEA4, -450)
		require.NoError(t, err)
		assert.Equal(t, 450, level)
	})

	t.Run("overdraw is a conflict and changes nothing", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		clinicID := domain.NewClinicID()

		_, err := svc.Adjust(context.Background(), clinicID, domain.BloodTypeDEA4, 100)
		require.NoError(t, err)

		_, err = svc.Adjust(context.Background(), clinicID, domain.BloodTypeDEA4, -200)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		levels, err := svc.Levels(context.Background(), clinicID)
		require.NoError(t, err)
		assert.Equal(t, 100, levels[domain.BloodTypeDEA4])
	})

	t.Run("withdrawal from an empty clinic is a conflict", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		_, err := svc.Adjust(context.Background(), domain.NewClinicID(), domain.BloodTypeDEA3, -10)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("validation", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		_, err := svc.Adjust(context.Background(), domain.ClinicID{}, domain.BloodTypeDEA4, 10)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = svc.Adjust(context.Background(), domain.NewClinicID(), domain.BloodType("DEA9"), 10)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = svc.Adjust(context.Background(), domain.NewClinicID(), domain.BloodTypeDEA4, 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("concurrent withdrawals never overdraw", func(t *testing.T) {
		svc := service.New(store.NewInMemory())
		clinicID := domain.NewClinicID()

		_, err := svc.Adjust(context.Background(), clinicID, domain.BloodTypeDEA11Neg, 500)
		require.NoError(t, err)

		const n = 20
		results := make(chan error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Adjust(context.Background(), clinicID, domain.BloodTypeDEA11Neg, -100)
				results <- err
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
		assert.Equal(t, 5, ok)

		levels, err := svc.Levels(context.Background(), clinicID)
		require.NoError(t, err)
		assert.Zero(t, levels[domain.BloodTypeDEA11Neg])
	})
}

func TestLevels(t *testing.T) {
	svc := service.New(store.NewInMemory())
	clinicID := domain.NewClinicID()

	_, err := svc.Adjust(context.Background(), clinicID, domain.BloodTypeDEA11Pos, 450)
	require.NoError(t, err)

	levels, err := svc.Levels(context.Background(), clinicID)
	require.NoError(t, err)
	assert.Len(t, levels, len(domain.BloodTypes))
	assert.Equal(t, 450, levels[domain.BloodTypeDEA11Pos])
	assert.Zero(t, levels[domain.BloodTypeDEA7])
	assert.Zero(t, levels[domain.BloodTypeUnknown])
}
