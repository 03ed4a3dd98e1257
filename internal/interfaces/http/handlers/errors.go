package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	apperrors "github.com/OliSalles/StoryTeller/internal/shared/errors"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
	"github.com/OliSalles/StoryTeller/internal/shared/utils"
)

// toAppError translates billing domain errors into the HTTP error envelope.
// Errors that are already AppErrors, and unknown errors, pass through unchanged.
func toAppError(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}

	var (
		quotaErr    *billing.QuotaExceededError
		configErr   *billing.ConfigurationError
		externalErr *billing.ExternalAPIError
		metaErr     *billing.MissingMetadataError
	)
	switch {
	case errors.As(err, &quotaErr):
		return apperrors.NewForbiddenError(quotaErr.Error())
	case errors.As(err, &configErr):
		return apperrors.NewServiceUnavailableError("payments are not available", configErr.Setting)
	case errors.As(err, &externalErr):
		return apperrors.NewBadGatewayError("payment provider request failed", externalErr.Op)
	case errors.As(err, &metaErr):
		return apperrors.NewBadRequestError("checkout session is incomplete", metaErr.Error())
	case errors.Is(err, billing.ErrPaymentNotSettled):
		return apperrors.NewPaymentRequiredError(err.Error())
	case errors.Is(err, billing.ErrNoSubscriptionOnSession):
		return apperrors.NewBadRequestError(err.Error())
	case errors.Is(err, billing.ErrPriceNotConfigured):
		return apperrors.NewValidationError(err.Error())
	case errors.Is(err, billing.ErrPlanNotFound),
		errors.Is(err, billing.ErrSubscriptionNotFound),
		errors.Is(err, billing.ErrNoActiveSubscription):
		return apperrors.NewNotFoundError(err.Error())
	case errors.Is(err, billing.ErrInvalidStatusTransition):
		return apperrors.NewConflictError("subscription cannot change to the requested status", err.Error())
	}
	return err
}

// respondError logs unexpected failures and renders err.
func respondError(c *gin.Context, log logger.Interface, op string, err error) {
	mapped := toAppError(err)
	if appErr := apperrors.GetAppError(mapped); appErr == nil || appErr.Code >= 500 {
		log.Errorw(op+" failed", "error", err, "path", c.FullPath())
	}
	utils.ErrorResponseWithError(c, mapped)
}
