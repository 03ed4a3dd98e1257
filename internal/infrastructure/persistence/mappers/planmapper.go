package mappers

import (
	"fmt"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
	"github.com/OliSalles/StoryTeller/internal/shared/mapper"
)

type PlanMapper interface {
	ToEntity(model *models.PlanModel) (*billing.Plan, error)
	ToModel(entity *billing.Plan) *models.PlanModel
	ToEntities(models []*models.PlanModel) ([]*billing.Plan, error)
}

type PlanMapperImpl struct{}

func NewPlanMapper() PlanMapper {
	return &PlanMapperImpl{}
}

func (m *PlanMapperImpl) ToEntity(model *models.PlanModel) (*billing.Plan, error) {
	if model == nil {
		return nil, nil
	}

	plan, err := billing.ReconstructPlan(billing.PlanAttributes{
		ID:                   model.ID,
		Name:                 model.Name,
		DisplayName:          model.DisplayName,
		Description:          model.Description,
		PriceMonthly:         model.PriceMonthly,
		PriceYearly:          model.PriceYearly,
		FeaturesLimit:        model.FeaturesLimit,
		TokensLimit:          model.TokensLimit,
		CanExportJira:        model.CanExportJira,
		CanExportAzure:       model.CanExportAzure,
		HasAPIAccess:         model.HasAPIAccess,
		HasPrioritySupport:   model.HasPrioritySupport,
		TrialDays:            model.TrialDays,
		IsActive:             model.IsActive,
		StripeMonthlyPriceID: model.StripeMonthlyPriceID,
		StripeYearlyPriceID:  model.StripeYearlyPriceID,
		SortOrder:            model.SortOrder,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct plan %d: %w", model.ID, err)
	}
	return plan, nil
}

func (m *PlanMapperImpl) ToModel(entity *billing.Plan) *models.PlanModel {
	if entity == nil {
		return nil
	}
	a := entity.Attributes()
	return &models.PlanModel{
		ID:                   a.ID,
		Name:                 a.Name,
		DisplayName:          a.DisplayName,
		Description:          a.Description,
		PriceMonthly:         a.PriceMonthly,
		PriceYearly:          a.PriceYearly,
		FeaturesLimit:        a.FeaturesLimit,
		TokensLimit:          a.TokensLimit,
		CanExportJira:        a.CanExportJira,
		CanExportAzure:       a.CanExportAzure,
		HasAPIAccess:         a.HasAPIAccess,
		HasPrioritySupport:   a.HasPrioritySupport,
		TrialDays:            a.TrialDays,
		IsActive:             a.IsActive,
		StripeMonthlyPriceID: a.StripeMonthlyPriceID,
		StripeYearlyPriceID:  a.StripeYearlyPriceID,
		SortOrder:            a.SortOrder,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

func (m *PlanMapperImpl) ToEntities(planModels []*models.PlanModel) ([]*billing.Plan, error) {
	return mapper.MapSlicePtrWithID(planModels, m.ToEntity, func(p *models.PlanModel) uint { return p.ID })
}
