package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
	"github.com/OliSalles/StoryTeller/internal/shared/utils"
)

// SubscriptionHandler serves the signed-in user's subscription lifecycle.
type SubscriptionHandler struct {
	getCurrentUC   getCurrentSubscriptionUseCase
	infoProvider   subscriptionInfoProvider
	checkoutUC     createCheckoutUseCase
	portalUC       createPortalUseCase
	syncUC         syncCheckoutSessionUseCase
	cancelUC       cancelSubscriptionUseCase
	reactivateUC   reactivateSubscriptionUseCase
	listPaymentsUC listPaymentsUseCase
	logger         logger.Interface
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(
	getCurrentUC getCurrentSubscriptionUseCase,
	infoProvider subscriptionInfoProvider,
	checkoutUC createCheckoutUseCase,
	portalUC createPortalUseCase,
	syncUC syncCheckoutSessionUseCase,
	cancelUC cancelSubscriptionUseCase,
	reactivateUC reactivateSubscriptionUseCase,
	listPaymentsUC listPaymentsUseCase,
	log logger.Interface,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		getCurrentUC:   getCurrentUC,
		infoProvider:   infoProvider,
		checkoutUC:     checkoutUC,
		portalUC:       portalUC,
		syncUC:         syncUC,
		cancelUC:       cancelUC,
		reactivateUC:   reactivateUC,
		listPaymentsUC: listPaymentsUC,
		logger:         log,
	}
}

type CreateCheckoutRequest struct {
	PlanID       uint   `json:"plan_id" binding:"required,min=1"`
	BillingCycle string `json:"billing_cycle" binding:"required,billingcycle"`
}

type SyncCheckoutRequest struct {
	SessionID string `json:"session_id" binding:"required,max=255"`
}

type CancelSubscriptionRequest struct {
	Immediate bool `json:"immediate"`
}

// GetCurrent handles GET /subscriptions/current
// @Summary Get current subscription
// @Description Returns the user's most recent subscription row, or null when none exists
// @Tags subscriptions
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.APIResponse{data=dto.SubscriptionDTO}
// @Failure 401 {object} utils.APIResponse
// @Router /subscriptions/current [get]
func (h *SubscriptionHandler) GetCurrent(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.getCurrentUC.Execute(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "get current subscription", err)
		return
	}
	if result == nil {
		utils.SuccessResponse(c, http.StatusOK, "no subscription", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// GetStatus handles GET /subscriptions/status
// @Summary Get subscription entitlements
// @Description Returns the effective plan and feature flags for the user
// @Tags subscriptions
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.APIResponse{data=dto.SubscriptionInfoDTO}
// @Failure 401 {object} utils.APIResponse
// @Router /subscriptions/status [get]
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	info, err := h.infoProvider.GetSubscriptionInfo(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "get subscription status", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", info)
}

// CreateCheckout handles POST /subscriptions/checkout
// @Summary Start a hosted checkout
// @Description Creates a provider checkout session for a paid plan and returns its URL
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CreateCheckoutRequest true "Plan and billing cycle"
// @Success 201 {object} utils.APIResponse{data=dto.CheckoutSessionDTO}
// @Failure 400 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Failure 503 {object} utils.APIResponse
// @Router /subscriptions/checkout [post]
func (h *SubscriptionHandler) CreateCheckout(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for create checkout", "error", err)
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}
	cycle, _ := vo.ParseBillingCycle(req.BillingCycle)

	result, err := h.checkoutUC.Execute(c.Request.Context(), usecases.CreateCheckoutCommand{
		UserID:       userID,
		UserEmail:    utils.GetUserEmailFromContext(c),
		PlanID:       req.PlanID,
		BillingCycle: cycle,
	})
	if err != nil {
		respondError(c, h.logger, "create checkout", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "checkout session created", result)
}

// CreatePortal handles POST /subscriptions/portal
// @Summary Open the billing portal
// @Tags subscriptions
// @Produce json
// @Security Bearer
// @Success 201 {object} utils.APIResponse{data=dto.PortalSessionDTO}
// @Failure 404 {object} utils.APIResponse
// @Router /subscriptions/portal [post]
func (h *SubscriptionHandler) CreatePortal(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.portalUC.Execute(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "create portal session", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "portal session created", result)
}

// SyncCheckout handles POST /subscriptions/sync
// @Summary Reconcile a finished checkout
// @Description Materializes the subscription from a checkout session when the webhook has not arrived yet
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body SyncCheckoutRequest true "Checkout session id"
// @Success 200 {object} utils.APIResponse{data=dto.SyncResultDTO}
// @Failure 400 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Failure 429 {object} utils.APIResponse
// @Router /subscriptions/sync [post]
func (h *SubscriptionHandler) SyncCheckout(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req SyncCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for checkout sync", "error", err)
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	result, err := h.syncUC.Execute(c.Request.Context(), usecases.SyncFromCheckoutSessionCommand{
		UserID:    userID,
		SessionID: req.SessionID,
	})
	if err != nil {
		respondError(c, h.logger, "sync checkout session", err)
		return
	}

	message := "subscription activated"
	if result.AlreadyExisted {
		message = "subscription already active"
	}
	utils.SuccessResponse(c, http.StatusOK, message, result)
}

// Cancel handles POST /subscriptions/cancel
// @Summary Cancel the current subscription
// @Description Cancels immediately or at the end of the paid period
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CancelSubscriptionRequest false "Cancellation mode"
// @Success 200 {object} utils.APIResponse{data=dto.SubscriptionDTO}
// @Failure 404 {object} utils.APIResponse
// @Router /subscriptions/cancel [post]
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req CancelSubscriptionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponseWithError(c, utils.BindingError(err))
			return
		}
	}

	result, err := h.cancelUC.Execute(c.Request.Context(), usecases.CancelSubscriptionCommand{
		UserID:    userID,
		Immediate: req.Immediate,
	})
	if err != nil {
		respondError(c, h.logger, "cancel subscription", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "subscription cancelled", result)
}

// Reactivate handles POST /subscriptions/reactivate
// @Summary Undo a pending cancellation
// @Tags subscriptions
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.APIResponse{data=dto.SubscriptionDTO}
// @Failure 404 {object} utils.APIResponse
// @Router /subscriptions/reactivate [post]
func (h *SubscriptionHandler) Reactivate(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.reactivateUC.Execute(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "reactivate subscription", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "subscription reactivated", result)
}

// ListPayments handles GET /payments
// @Summary List payment history
// @Tags subscriptions
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.APIResponse{data=utils.ListResponse}
// @Router /payments [get]
func (h *SubscriptionHandler) ListPayments(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	p := utils.ParsePagination(c)
	items, total, err := h.listPaymentsUC.Execute(c.Request.Context(), userID, p.Page, p.PageSize)
	if err != nil {
		respondError(c, h.logger, "list payments", err)
		return
	}

	utils.ListSuccessResponse(c, items, total, p.Page, p.PageSize)
}
