package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/biztime"
	"github.com/OliSalles/StoryTeller/internal/shared/constants"
	apperrors "github.com/OliSalles/StoryTeller/internal/shared/errors"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
	"github.com/OliSalles/StoryTeller/internal/shared/utils"
)

const usageDateLayout = "2006-01-02"

// UsageHandler exposes the usage ledger and token admission checks.
type UsageHandler struct {
	quota     usageQuotaService
	historyUC getUsageHistoryUseCase
	statsUC   getUsageStatsUseCase
	recordUC  recordUsageUseCase
	logger    logger.Interface
}

func NewUsageHandler(
	quota usageQuotaService,
	historyUC getUsageHistoryUseCase,
	statsUC getUsageStatsUseCase,
	recordUC recordUsageUseCase,
	log logger.Interface,
) *UsageHandler {
	return &UsageHandler{
		quota:     quota,
		historyUC: historyUC,
		statsUC:   statsUC,
		recordUC:  recordUC,
		logger:    log,
	}
}

type CheckQuotaRequest struct {
	Tokens int64 `json:"tokens" binding:"min=0"`
}

type RecordUsageRequest struct {
	FeatureID        *uint  `json:"feature_id"`
	Operation        string `json:"operation" binding:"omitempty,max=64"`
	Model            string `json:"model" binding:"required,max=128"`
	PromptTokens     int64  `json:"prompt_tokens" binding:"min=0"`
	CompletionTokens int64  `json:"completion_tokens" binding:"min=0"`
}

// GetUsage handles GET /usage
// @Summary Current period token usage
// @Tags usage
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.APIResponse{data=dto.UsageSnapshotDTO}
// @Router /usage [get]
func (h *UsageHandler) GetUsage(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	snapshot, err := h.quota.GetCurrentUsage(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "get current usage", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", snapshot)
}

// GetHistory handles GET /usage/history
// @Summary Usage ledger entries
// @Tags usage
// @Produce json
// @Security Bearer
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.APIResponse{data=utils.ListResponse}
// @Failure 400 {object} utils.APIResponse
// @Router /usage/history [get]
func (h *UsageHandler) GetHistory(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	from, err := parseUsageDate(c.Query("from"))
	if err != nil {
		utils.ErrorResponseWithError(c, apperrors.NewValidationError("invalid from date", "expected YYYY-MM-DD"))
		return
	}
	to, err := parseUsageDate(c.Query("to"))
	if err != nil {
		utils.ErrorResponseWithError(c, apperrors.NewValidationError("invalid to date", "expected YYYY-MM-DD"))
		return
	}
	if !to.IsZero() {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	p := utils.ParsePagination(c)
	items, total, err := h.historyUC.Execute(c.Request.Context(), usecases.GetUsageHistoryQuery{
		UserID:   userID,
		From:     from,
		To:       to,
		Page:     p.Page,
		PageSize: p.PageSize,
	})
	if err != nil {
		respondError(c, h.logger, "get usage history", err)
		return
	}

	utils.ListSuccessResponse(c, items, total, p.Page, p.PageSize)
}

// GetStats handles GET /usage/stats
// @Summary Aggregated usage
// @Description Totals per operation and per day for the last N days, today included
// @Tags usage
// @Produce json
// @Security Bearer
// @Param days query int false "Window in days" default(30)
// @Success 200 {object} utils.APIResponse{data=dto.UsageStatsDTO}
// @Failure 400 {object} utils.APIResponse
// @Router /usage/stats [get]
func (h *UsageHandler) GetStats(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	days := 0
	if raw := c.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 1 {
			utils.ErrorResponseWithError(c, apperrors.NewValidationError("days must be a positive integer"))
			return
		}
	}

	stats, err := h.statsUC.Execute(c.Request.Context(), userID, days)
	if err != nil {
		respondError(c, h.logger, "get usage stats", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", stats)
}

// CheckQuota handles POST /usage/check
// @Summary Ask whether a token amount would be admitted
// @Description Answers 200 in both cases; allowed=false when the plan limit would be exceeded
// @Tags usage
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CheckQuotaRequest true "Estimated tokens"
// @Success 200 {object} utils.APIResponse{data=dto.QuotaCheckDTO}
// @Failure 400 {object} utils.APIResponse
// @Router /usage/check [post]
func (h *UsageHandler) CheckQuota(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req CheckQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	result, err := h.quota.CheckTokenQuota(c.Request.Context(), userID, req.Tokens)
	allowed := err == nil
	if err != nil && !billing.IsQuotaExceeded(err) {
		respondError(c, h.logger, "check token quota", err)
		return
	}

	out := &dto.QuotaCheckDTO{Allowed: allowed, Requested: req.Tokens}
	if result != nil {
		out.PlanName = result.PlanName
		out.Limit = result.Limit
		out.Used = result.Used
	}

	message := ""
	if !allowed {
		message = err.Error()
	}
	utils.SuccessResponse(c, http.StatusOK, message, out)
}

// Admit handles POST /usage/admit. The token quota guard in front of it has already
// refused over-limit estimates with 403.
// @Summary Admit a metered generation
// @Description Hard gate called before a generation spends tokens
// @Tags usage
// @Produce json
// @Security Bearer
// @Param X-Token-Estimate header int false "Estimated tokens"
// @Success 200 {object} utils.APIResponse{data=dto.QuotaCheckDTO}
// @Failure 400 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Router /usage/admit [post]
func (h *UsageHandler) Admit(c *gin.Context) {
	out := &dto.QuotaCheckDTO{Allowed: true}
	if v, ok := c.Get(constants.ContextKeyQuotaCheck); ok {
		if result, ok := v.(*usecases.QuotaCheckResult); ok && result != nil {
			out.PlanName = result.PlanName
			out.Limit = result.Limit
			out.Used = result.Used
			out.Requested = result.Requested
		}
	}
	utils.SuccessResponse(c, http.StatusOK, "admitted", out)
}

// RecordUsage handles POST /usage/record
// @Summary Append a usage ledger entry
// @Description Called after a metered generation succeeds. Never refused for quota: the tokens are already spent.
// @Tags usage
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body RecordUsageRequest true "Token counts"
// @Success 201 {object} utils.APIResponse{data=dto.UsageEntryDTO}
// @Failure 400 {object} utils.APIResponse
// @Router /usage/record [post]
func (h *UsageHandler) RecordUsage(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}
	operation := req.Operation
	if operation == "" {
		operation = constants.OperationFeatureGeneration
	}

	entry, err := h.recordUC.Execute(c.Request.Context(), usecases.RecordUsageCommand{
		UserID:           userID,
		FeatureID:        req.FeatureID,
		Operation:        operation,
		Model:            req.Model,
		PromptTokens:     req.PromptTokens,
		CompletionTokens: req.CompletionTokens,
	})
	if err != nil {
		respondError(c, h.logger, "record usage", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "usage recorded", dto.ToUsageEntryDTO(entry))
}

func parseUsageDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(usageDateLayout, raw, biztime.Location())
}
