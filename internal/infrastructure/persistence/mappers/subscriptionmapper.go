package mappers

import (
	"fmt"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
	"github.com/OliSalles/StoryTeller/internal/shared/mapper"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*billing.Subscription, error)
	ToModel(entity *billing.Subscription) *models.SubscriptionModel
	ToEntities(models []*models.SubscriptionModel) ([]*billing.Subscription, error)
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel) (*billing.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	status := vo.SubscriptionStatus(model.Status)
	if !vo.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid subscription status: %s", model.Status)
	}
	cycle, ok := vo.ParseBillingCycle(model.BillingCycle)
	if !ok {
		return nil, fmt.Errorf("invalid billing cycle: %s", model.BillingCycle)
	}

	entity, err := billing.ReconstructSubscription(
		model.ID,
		model.UserID,
		model.PlanID,
		status,
		cycle,
		model.CurrentPeriodStart.UTC(),
		model.CurrentPeriodEnd.UTC(),
		model.CancelAtPeriodEnd,
		model.ExternalSubscriptionID,
		model.ExternalCustomerID,
		model.TokensUsedThisPeriod,
		model.Version,
		model.CreatedAt.UTC(),
		model.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription: %w", err)
	}
	return entity, nil
}

func (m *SubscriptionMapperImpl) ToModel(entity *billing.Subscription) *models.SubscriptionModel {
	if entity == nil {
		return nil
	}
	return &models.SubscriptionModel{
		ID:                     entity.ID(),
		UserID:                 entity.UserID(),
		PlanID:                 entity.PlanID(),
		Status:                 entity.Status().String(),
		BillingCycle:           entity.BillingCycle().String(),
		CurrentPeriodStart:     entity.CurrentPeriodStart(),
		CurrentPeriodEnd:       entity.CurrentPeriodEnd(),
		CancelAtPeriodEnd:      entity.CancelAtPeriodEnd(),
		ExternalSubscriptionID: entity.ExternalSubscriptionID(),
		ExternalCustomerID:     entity.ExternalCustomerID(),
		TokensUsedThisPeriod:   entity.TokensUsedThisPeriod(),
		Version:                entity.Version(),
		CreatedAt:              entity.CreatedAt(),
		UpdatedAt:              entity.UpdatedAt(),
	}
}

func (m *SubscriptionMapperImpl) ToEntities(subModels []*models.SubscriptionModel) ([]*billing.Subscription, error) {
	return mapper.MapSlicePtrWithID(subModels, m.ToEntity, func(s *models.SubscriptionModel) uint { return s.ID })
}
