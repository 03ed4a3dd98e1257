package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
	"github.com/OliSalles/StoryTeller/internal/shared/utils"
)

type createManualSubscriptionUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreateManualSubscriptionCommand) (*dto.SubscriptionDTO, error)
}

type reconcileUsageCountersUseCase interface {
	Execute(ctx context.Context) (*usecases.ReconcileUsageCountersResult, error)
}

// AdminBillingHandler holds operator-only billing actions.
type AdminBillingHandler struct {
	manualUC    createManualSubscriptionUseCase
	reconcileUC reconcileUsageCountersUseCase
	logger      logger.Interface
}

func NewAdminBillingHandler(
	manualUC createManualSubscriptionUseCase,
	reconcileUC reconcileUsageCountersUseCase,
	log logger.Interface,
) *AdminBillingHandler {
	return &AdminBillingHandler{manualUC: manualUC, reconcileUC: reconcileUC, logger: log}
}

type CreateManualSubscriptionRequest struct {
	UserID       uint   `json:"user_id" binding:"required,min=1"`
	PlanID       uint   `json:"plan_id" binding:"required,min=1"`
	BillingCycle string `json:"billing_cycle" binding:"required,billingcycle"`
	Trialing     bool   `json:"trialing"`
}

// CreateManualSubscription handles POST /admin/subscriptions
// @Summary Grant a plan without the payment provider
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CreateManualSubscriptionRequest true "Grant"
// @Success 201 {object} utils.APIResponse{data=dto.SubscriptionDTO}
// @Failure 400 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Router /admin/subscriptions [post]
func (h *AdminBillingHandler) CreateManualSubscription(c *gin.Context) {
	var req CreateManualSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}
	cycle, _ := vo.ParseBillingCycle(req.BillingCycle)

	result, err := h.manualUC.Execute(c.Request.Context(), usecases.CreateManualSubscriptionCommand{
		UserID:       req.UserID,
		PlanID:       req.PlanID,
		BillingCycle: cycle,
		Trialing:     req.Trialing,
	})
	if err != nil {
		respondError(c, h.logger, "create manual subscription", err)
		return
	}

	operatorID, _ := utils.GetUserIDFromContext(c)
	h.logger.Infow("manual subscription granted",
		"operator_id", operatorID,
		"user_id", req.UserID,
		"plan_id", req.PlanID,
		"subscription_id", result.ID,
	)
	utils.SuccessResponse(c, http.StatusCreated, "subscription created", result)
}

// ReconcileUsageCounters handles POST /admin/usage/reconcile
// @Summary Rebuild denormalized token counters from the ledger
// @Tags admin
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.APIResponse{data=usecases.ReconcileUsageCountersResult}
// @Router /admin/usage/reconcile [post]
func (h *AdminBillingHandler) ReconcileUsageCounters(c *gin.Context) {
	result, err := h.reconcileUC.Execute(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "reconcile usage counters", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "usage counters reconciled", result)
}
