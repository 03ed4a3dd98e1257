package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/migration"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Every new connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(migration.AutoMigrateModels()...))
	return db
}

func int64Ptr(v int64) *int64 { return &v }

func seedPlan(t *testing.T, repo billing.PlanRepository, name string, tokens *int64) *billing.Plan {
	t.Helper()
	plan, err := billing.NewPlan(billing.PlanAttributes{
		Name:                 name,
		PriceMonthly:         4990,
		TokensLimit:          tokens,
		IsActive:             true,
		StripeMonthlyPriceID: "price_" + name,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(context.Background(), plan))
	return plan
}

func newTestSubscription(t *testing.T, userID, planID uint, status vo.SubscriptionStatus, externalID string) *billing.Subscription {
	t.Helper()
	start := time.Now().UTC().Truncate(time.Second)
	sub, err := billing.NewSubscription(billing.SubscriptionParams{
		UserID:                 userID,
		PlanID:                 planID,
		Status:                 status,
		BillingCycle:           vo.BillingCycleMonthly,
		CurrentPeriodStart:     start,
		CurrentPeriodEnd:       start.AddDate(0, 1, 0),
		ExternalSubscriptionID: externalID,
		ExternalCustomerID:     "cus_" + externalID,
	})
	require.NoError(t, err)
	return sub
}

func insertUsage(t *testing.T, db *gorm.DB, userID uint, operation string, tokens int64, at time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.UsageLedgerModel{
		UserID:       userID,
		Operation:    operation,
		Model:        "test-model",
		PromptTokens: tokens,
		TotalTokens:  tokens,
		CreatedAt:    at,
	}).Error)
}
