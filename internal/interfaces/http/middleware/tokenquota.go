package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/constants"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
	"github.com/OliSalles/StoryTeller/internal/shared/utils"
)

// ContextKeyQuotaCheck holds the *usecases.QuotaCheckResult of an admitted request.
const ContextKeyQuotaCheck = constants.ContextKeyQuotaCheck

type tokenQuotaChecker interface {
	CheckTokenQuota(ctx context.Context, userID uint, requested int64) (*usecases.QuotaCheckResult, error)
}

// TokenEstimator predicts how many tokens the metered operation will consume.
type TokenEstimator func(c *gin.Context) (int64, error)

// HeaderTokenEstimator reads the estimate from the X-Token-Estimate header, 0 when absent.
func HeaderTokenEstimator(c *gin.Context) (int64, error) {
	raw := c.GetHeader(constants.HeaderTokenEstimate)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("invalid token estimate")
	}
	return n, nil
}

// QuotaExceededResponse is the upgrade prompt returned when a metered call is refused.
type QuotaExceededResponse struct {
	PlanName        string `json:"plan_name"`
	Limit           int64  `json:"limit"`
	Used            int64  `json:"used"`
	Requested       int64  `json:"requested"`
	UpgradeRequired bool   `json:"upgrade_required"`
}

type TokenQuotaMiddleware struct {
	checker tokenQuotaChecker
	logger  logger.Interface
}

func NewTokenQuotaMiddleware(checker tokenQuotaChecker, logger logger.Interface) *TokenQuotaMiddleware {
	return &TokenQuotaMiddleware{
		checker: checker,
		logger:  logger,
	}
}

// RequireTokenQuota admits the request only if the estimate fits the user's remaining quota.
func (m *TokenQuotaMiddleware) RequireTokenQuota(estimate TokenEstimator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
			c.Abort()
			return
		}

		requested, err := estimate(c)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
			c.Abort()
			return
		}

		result, err := m.checker.CheckTokenQuota(c.Request.Context(), userID, requested)
		if err != nil {
			var quotaErr *billing.QuotaExceededError
			if errors.As(err, &quotaErr) {
				c.JSON(http.StatusForbidden, utils.APIResponse{
					Success: false,
					Data: QuotaExceededResponse{
						PlanName:        quotaErr.PlanName,
						Limit:           quotaErr.Limit,
						Used:            quotaErr.Used,
						Requested:       quotaErr.Requested,
						UpgradeRequired: true,
					},
					Error: &utils.ErrorInfo{Type: "quota_exceeded", Message: quotaErr.Error()},
				})
				c.Abort()
				return
			}
			m.logger.Errorw("token quota check failed", "user_id", userID, "error", err)
			utils.ErrorResponseWithError(c, err)
			c.Abort()
			return
		}

		c.Set(ContextKeyQuotaCheck, result)
		c.Next()
	}
}
