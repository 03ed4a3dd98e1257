package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
	"github.com/OliSalles/StoryTeller/internal/shared/utils"
)

type planCatalog interface {
	ListActivePlans(ctx context.Context) ([]*dto.PlanDTO, error)
	GetPlanByID(ctx context.Context, id uint) (*dto.PlanDTO, error)
}

// PlanHandler serves the public plan catalog.
type PlanHandler struct {
	catalog planCatalog
	logger  logger.Interface
}

func NewPlanHandler(catalog planCatalog, log logger.Interface) *PlanHandler {
	return &PlanHandler{catalog: catalog, logger: log}
}

// ListPlans handles GET /plans
// @Summary List active plans
// @Tags plans
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]dto.PlanDTO}
// @Router /plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	plans, err := h.catalog.ListActivePlans(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list plans", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", plans)
}

// GetPlan handles GET /plans/:id
// @Summary Get a plan
// @Tags plans
// @Produce json
// @Param id path int true "Plan ID"
// @Success 200 {object} utils.APIResponse{data=dto.PlanDTO}
// @Failure 400 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Router /plans/{id} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	planID, err := utils.ParseUintParam(c, "id", "plan")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	plan, err := h.catalog.GetPlanByID(c.Request.Context(), planID)
	if err != nil {
		respondError(c, h.logger, "get plan", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", plan)
}
