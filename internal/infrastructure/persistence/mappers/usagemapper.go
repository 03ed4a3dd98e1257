package mappers

import (
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
	"github.com/OliSalles/StoryTeller/internal/shared/mapper"
)

func UsageEntryToModel(e *billing.UsageEntry) *models.UsageLedgerModel {
	return &models.UsageLedgerModel{
		ID:               e.ID(),
		UserID:           e.UserID(),
		FeatureID:        e.FeatureID(),
		Operation:        e.Operation(),
		Model:            e.Model(),
		PromptTokens:     e.PromptTokens(),
		CompletionTokens: e.CompletionTokens(),
		TotalTokens:      e.TotalTokens(),
		CreatedAt:        e.CreatedAt(),
	}
}

func UsageEntryToDomain(m *models.UsageLedgerModel) *billing.UsageEntry {
	return billing.ReconstructUsageEntry(
		m.ID,
		m.UserID,
		m.FeatureID,
		m.Operation,
		m.Model,
		m.PromptTokens,
		m.CompletionTokens,
		m.TotalTokens,
		m.CreatedAt.UTC(),
	)
}

func UsageEntriesToDomain(rows []*models.UsageLedgerModel) []*billing.UsageEntry {
	return mapper.MapSlicePtr(rows, UsageEntryToDomain)
}
