package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

// AutoMigrateModels lists every persisted billing model.
func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.PlanModel{},
		&models.SubscriptionModel{},
		&models.PaymentModel{},
		&models.UsageLedgerModel{},
		&models.WebhookEventModel{},
	}
}

// GormAutoMigrateStrategy derives the schema from the persistence models. Only used for
// throwaway databases; versioned environments use GooseStrategy.
type GormAutoMigrateStrategy struct {
	logger logger.Interface
}

func NewGormAutoMigrateStrategy(log logger.Interface) *GormAutoMigrateStrategy {
	return &GormAutoMigrateStrategy{logger: log.With("component", "migration.automigrate")}
}

func (s *GormAutoMigrateStrategy) GetName() string {
	return "gorm_auto_migrate"
}

func (s *GormAutoMigrateStrategy) Migrate(db *gorm.DB) error {
	modelList := AutoMigrateModels()
	if err := db.AutoMigrate(modelList...); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	s.logger.Infow("auto-migration completed", "models_count", len(modelList))
	return nil
}
