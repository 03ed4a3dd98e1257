package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/mappers"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
	"github.com/OliSalles/StoryTeller/internal/shared/db"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

type PlanRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PlanMapper
	logger logger.Interface
}

func NewPlanRepository(db *gorm.DB, logger logger.Interface) billing.PlanRepository {
	return &PlanRepositoryImpl{
		db:     db,
		mapper: mappers.NewPlanMapper(),
		logger: logger,
	}
}

func (r *PlanRepositoryImpl) GetByID(ctx context.Context, id uint) (*billing.Plan, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PlanRepositoryImpl) GetByName(ctx context.Context, name string) (*billing.Plan, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *PlanRepositoryImpl) first(ctx context.Context, query string, arg any) (*billing.Plan, error) {
	var model models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrPlanNotFound
		}
		r.logger.Errorw("failed to get plan", "query", query, "arg", arg, "error", err)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) ListActive(ctx context.Context) ([]*billing.Plan, error) {
	var planModels []*models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&planModels).Error; err != nil {
		r.logger.Errorw("failed to list active plans", "error", err)
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return r.mapper.ToEntities(planModels)
}

// Upsert inserts plan or overwrites every column of the row with the same name.
func (r *PlanRepositoryImpl) Upsert(ctx context.Context, plan *billing.Plan) error {
	tx := db.GetTxFromContext(ctx, r.db)
	model := r.mapper.ToModel(plan)

	var existing models.PlanModel
	err := tx.Where("name = ?", model.Name).First(&existing).Error
	switch {
	case err == nil:
		model.ID = existing.ID
		model.CreatedAt = existing.CreatedAt
		if err := tx.Save(model).Error; err != nil {
			r.logger.Errorw("failed to update plan", "name", model.Name, "error", err)
			return fmt.Errorf("failed to update plan: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		model.ID = 0
		if err := tx.Create(model).Error; err != nil {
			r.logger.Errorw("failed to create plan", "name", model.Name, "error", err)
			return fmt.Errorf("failed to create plan: %w", err)
		}
	default:
		return fmt.Errorf("failed to look up plan: %w", err)
	}

	if plan.ID() == 0 {
		if err := plan.SetID(model.ID); err != nil {
			return fmt.Errorf("failed to set plan ID: %w", err)
		}
	}

	r.logger.Infow("plan upserted", "id", model.ID, "name", model.Name)
	return nil
}
