package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	apperrors "github.com/OliSalles/StoryTeller/internal/shared/errors"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

// PlanCatalog serves the read-only plan reference data.
type PlanCatalog struct {
	planRepo billing.PlanRepository
	logger   logger.Interface
}

func NewPlanCatalog(planRepo billing.PlanRepository, logger logger.Interface) *PlanCatalog {
	return &PlanCatalog{planRepo: planRepo, logger: logger}
}

func (c *PlanCatalog) ListActivePlans(ctx context.Context) ([]*dto.PlanDTO, error) {
	plans, err := c.planRepo.ListActive(ctx)
	if err != nil {
		c.logger.Errorw("failed to list plans", "error", err)
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return dto.ToPlanDTOs(plans), nil
}

func (c *PlanCatalog) GetPlanByID(ctx context.Context, id uint) (*dto.PlanDTO, error) {
	plan, err := c.planRepo.GetByID(ctx, id)
	if err != nil {
		return nil, c.mapLookupError(err, fmt.Sprintf("id=%d", id))
	}
	return dto.ToPlanDTO(plan), nil
}

func (c *PlanCatalog) GetPlanByName(ctx context.Context, name string) (*dto.PlanDTO, error) {
	plan, err := c.planRepo.GetByName(ctx, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return nil, c.mapLookupError(err, "name="+name)
	}
	return dto.ToPlanDTO(plan), nil
}

func (c *PlanCatalog) mapLookupError(err error, key string) error {
	if errors.Is(err, billing.ErrPlanNotFound) {
		return apperrors.NewNotFoundError("plan not found", key)
	}
	c.logger.Errorw("failed to get plan", "key", key, "error", err)
	return fmt.Errorf("failed to get plan: %w", err)
}

// SeedPlansUseCase upserts catalog rows keyed by name.
type SeedPlansUseCase struct {
	planRepo billing.PlanRepository
	logger   logger.Interface
}

func NewSeedPlansUseCase(planRepo billing.PlanRepository, logger logger.Interface) *SeedPlansUseCase {
	return &SeedPlansUseCase{planRepo: planRepo, logger: logger}
}

func (uc *SeedPlansUseCase) Execute(ctx context.Context, attrs []billing.PlanAttributes) (int, error) {
	seen := make(map[string]bool, len(attrs))
	for i, a := range attrs {
		plan, err := billing.NewPlan(a)
		if err != nil {
			return i, fmt.Errorf("plan #%d: %w", i+1, err)
		}
		if seen[plan.Name()] {
			return i, fmt.Errorf("plan #%d: duplicate name %q", i+1, plan.Name())
		}
		seen[plan.Name()] = true

		if err := uc.planRepo.Upsert(ctx, plan); err != nil {
			return i, fmt.Errorf("failed to upsert plan %s: %w", plan.Name(), err)
		}
		uc.logger.Infow("plan seeded", "plan", plan.Name(), "plan_id", plan.ID())
	}
	return len(attrs), nil
}
