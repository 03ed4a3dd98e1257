package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

func TestPlanRepository_Upsert(t *testing.T) {
	repo := NewPlanRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	first := seedPlan(t, repo, "pro", int64Ptr(500_000))
	require.NotZero(t, first.ID())

	t.Run("same name updates the existing row", func(t *testing.T) {
		updated, err := billing.NewPlan(billing.PlanAttributes{
			Name:         "Pro",
			DisplayName:  "Pro Plus",
			PriceMonthly: 5990,
			IsActive:     true,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, updated))
		assert.Equal(t, first.ID(), updated.ID())

		found, err := repo.GetByName(ctx, "pro")
		require.NoError(t, err)
		assert.Equal(t, "Pro Plus", found.DisplayName())
		assert.Equal(t, int64(5990), found.PriceMonthly())
		assert.True(t, found.HasUnlimitedTokens())
	})

	t.Run("unknown plan", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999)
		assert.ErrorIs(t, err, billing.ErrPlanNotFound)

		_, err = repo.GetByName(ctx, "enterprise")
		assert.ErrorIs(t, err, billing.ErrPlanNotFound)
	})
}

func TestPlanRepository_ListActive(t *testing.T) {
	repo := NewPlanRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	for _, attrs := range []billing.PlanAttributes{
		{Name: "business", IsActive: true, SortOrder: 2},
		{Name: "legacy", IsActive: false, SortOrder: 0},
		{Name: "pro", IsActive: true, SortOrder: 1},
	} {
		p, err := billing.NewPlan(attrs)
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, p))
	}

	plans, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "pro", plans[0].Name())
	assert.Equal(t, "business", plans[1].Name())
}
