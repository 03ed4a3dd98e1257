package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/OliSalles/StoryTeller/internal/infrastructure/database"
	"github.com/OliSalles/StoryTeller/internal/shared/config"
	"github.com/OliSalles/StoryTeller/internal/shared/constants"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func insertSubscription(db *gorm.DB, externalID any) error {
	now := time.Now().UTC()
	return db.Exec(`INSERT INTO subscriptions
		(user_id, plan_id, status, billing_cycle, current_period_start, current_period_end,
		 external_subscription_id, created_at, updated_at)
		VALUES (1, 1, 'active', 'monthly', ?, ?, ?, ?, ?)`,
		now, now.AddDate(0, 1, 0), externalID, now, now).Error
}

func TestGooseStrategy_UpAndDown(t *testing.T) {
	db := openSQLite(t)
	strategy := NewGooseStrategy("sqlite", logger.NewNopLogger())

	require.NoError(t, strategy.Migrate(db))

	version, err := strategy.GetVersion(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	for _, table := range []string{
		constants.TablePlans,
		constants.TableSubscriptions,
		constants.TablePayments,
		constants.TableUsageLedger,
		constants.TableWebhookEvents,
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	// Running again is a no-op.
	require.NoError(t, strategy.Migrate(db))

	require.NoError(t, strategy.MigrateDown(db, 1))
	assert.True(t, db.Migrator().HasTable(constants.TablePayments))
	assert.False(t, db.Migrator().HasColumn(constants.TablePayments, "attempt_ref"))

	require.NoError(t, strategy.MigrateDown(db, 1))
	assert.False(t, db.Migrator().HasTable(constants.TableSubscriptions))
}

func insertPayment(db *gorm.DB, invoiceID, status, attemptRef string) error {
	return db.Exec(`INSERT INTO payments
		(subscription_id, amount, currency, status, external_payment_id, attempt_ref, created_at)
		VALUES (1, 4990, 'BRL', ?, ?, ?, ?)`,
		status, invoiceID, attemptRef, time.Now().UTC()).Error
}

func TestGooseStrategy_PaymentAttemptsUnique(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, NewGooseStrategy("sqlite", logger.NewNopLogger()).Migrate(db))
	require.NoError(t, insertSubscription(db, "sub_1"))

	require.NoError(t, insertPayment(db, "in_1", "failed", "evt_1"))
	require.NoError(t, insertPayment(db, "in_1", "failed", "evt_2"))
	assert.Error(t, insertPayment(db, "in_1", "failed", "evt_2"))

	require.NoError(t, insertPayment(db, "in_1", "succeeded", ""))
	assert.Error(t, insertPayment(db, "in_1", "succeeded", ""))

	var count int64
	require.NoError(t, db.Table(constants.TablePayments).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestGooseStrategy_ExternalSubscriptionIDUnique(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, NewGooseStrategy("sqlite", logger.NewNopLogger()).Migrate(db))

	require.NoError(t, insertSubscription(db, "sub_1"))
	assert.Error(t, insertSubscription(db, "sub_1"))

	// Manually created rows carry no external id and may repeat.
	require.NoError(t, insertSubscription(db, nil))
	require.NoError(t, insertSubscription(db, nil))
}

func TestGooseStrategy_UnknownDriver(t *testing.T) {
	db := openSQLite(t)
	err := NewGooseStrategy("postgres", logger.NewNopLogger()).Migrate(db)
	assert.Error(t, err)
}

func TestManager_TestEnvironmentUsesAutoMigrate(t *testing.T) {
	db := openSQLite(t)
	m := NewManager(constants.EnvTest, "sqlite", logger.NewNopLogger())
	assert.Equal(t, "gorm_auto_migrate", m.GetStrategy().GetName())

	require.NoError(t, m.Migrate(db))
	assert.True(t, db.Migrator().HasTable(constants.TableWebhookEvents))
}
