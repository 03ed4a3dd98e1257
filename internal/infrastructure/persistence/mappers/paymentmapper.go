package mappers

import (
	"fmt"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
)

func PaymentToModel(p *billing.Payment) *models.PaymentModel {
	return &models.PaymentModel{
		ID:                p.ID(),
		SubscriptionID:    p.SubscriptionID(),
		Amount:            p.Amount(),
		Currency:          p.Currency(),
		Status:            p.Status().String(),
		ExternalPaymentID: p.ExternalPaymentID(),
		AttemptRef:        p.AttemptRef(),
		PaidAt:            p.PaidAt(),
		ErrorMessage:      p.ErrorMessage(),
		CreatedAt:         p.CreatedAt(),
	}
}

func PaymentToDomain(model *models.PaymentModel) (*billing.Payment, error) {
	status := vo.PaymentStatus(model.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid payment status: %s", model.Status)
	}

	paidAt := model.PaidAt
	if paidAt != nil {
		utc := paidAt.UTC()
		paidAt = &utc
	}

	return billing.ReconstructPayment(
		model.ID,
		model.SubscriptionID,
		model.Amount,
		model.Currency,
		status,
		model.ExternalPaymentID,
		model.AttemptRef,
		paidAt,
		model.ErrorMessage,
		model.CreatedAt.UTC(),
	)
}

func PaymentsToDomain(paymentModels []*models.PaymentModel) ([]*billing.Payment, error) {
	payments := make([]*billing.Payment, 0, len(paymentModels))
	for _, m := range paymentModels {
		p, err := PaymentToDomain(m)
		if err != nil {
			return nil, fmt.Errorf("failed to map payment %d: %w", m.ID, err)
		}
		payments = append(payments, p)
	}
	return payments, nil
}
