package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/constants"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

type fakeQuotaChecker struct {
	limit     int64
	used      int64
	err       error
	requested int64
}

func (f *fakeQuotaChecker) CheckTokenQuota(ctx context.Context, userID uint, requested int64) (*usecases.QuotaCheckResult, error) {
	f.requested = requested
	if f.err != nil {
		return nil, f.err
	}
	if f.used+requested > f.limit {
		return nil, &billing.QuotaExceededError{PlanName: "free", Limit: f.limit, Used: f.used, Requested: requested}
	}
	return &usecases.QuotaCheckResult{PlanName: "free", Used: f.used, Requested: requested}, nil
}

func newQuotaRouter(checker tokenQuotaChecker, userID uint) *gin.Engine {
	m := NewTokenQuotaMiddleware(checker, logger.NewNopLogger())
	r := gin.New()
	r.POST("/generate",
		func(c *gin.Context) {
			if userID != 0 {
				c.Set(constants.ContextKeyUserID, userID)
			}
		},
		m.RequireTokenQuota(HeaderTokenEstimator),
		func(c *gin.Context) {
			_, ok := c.Get(ContextKeyQuotaCheck)
			c.JSON(http.StatusOK, gin.H{"admitted": ok})
		},
	)
	return r
}

func doGenerate(r *gin.Engine, estimate string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	if estimate != "" {
		req.Header.Set(constants.HeaderTokenEstimate, estimate)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireTokenQuota_Admits(t *testing.T) {
	checker := &fakeQuotaChecker{limit: 50000, used: 49000}
	w := doGenerate(newQuotaRouter(checker, 1), "1000")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"admitted":true}`, w.Body.String())
	assert.Equal(t, int64(1000), checker.requested)
}

func TestRequireTokenQuota_RejectsWithUpgradeInfo(t *testing.T) {
	checker := &fakeQuotaChecker{limit: 50000, used: 49900}
	w := doGenerate(newQuotaRouter(checker, 1), "200")

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"plan_name":"free"`)
	assert.Contains(t, w.Body.String(), `"upgrade_required":true`)
	assert.Contains(t, w.Body.String(), `"type":"quota_exceeded"`)
	assert.Contains(t, w.Body.String(), "50,000")
}

func TestRequireTokenQuota_MissingEstimateIsZero(t *testing.T) {
	checker := &fakeQuotaChecker{limit: 10, used: 10}
	w := doGenerate(newQuotaRouter(checker, 1), "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), checker.requested)
}

func TestRequireTokenQuota_BadEstimate(t *testing.T) {
	w := doGenerate(newQuotaRouter(&fakeQuotaChecker{limit: 10}, 1), "-5")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireTokenQuota_Unauthenticated(t *testing.T) {
	w := doGenerate(newQuotaRouter(&fakeQuotaChecker{limit: 10}, 0), "1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireTokenQuota_CheckerFailure(t *testing.T) {
	w := doGenerate(newQuotaRouter(&fakeQuotaChecker{err: errors.New("db down")}, 1), "1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
