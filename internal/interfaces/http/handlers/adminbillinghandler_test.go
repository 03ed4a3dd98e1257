package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	"github.com/OliSalles/StoryTeller/internal/interfaces/http/handlers/testutil"
	apperrors "github.com/OliSalles/StoryTeller/internal/shared/errors"
)

type mockManualSubscriptionUC struct {
	cmd usecases.CreateManualSubscriptionCommand
	err error
}

func (m *mockManualSubscriptionUC) Execute(ctx context.Context, cmd usecases.CreateManualSubscriptionCommand) (*dto.SubscriptionDTO, error) {
	m.cmd = cmd
	if m.err != nil {
		return nil, m.err
	}
	return &dto.SubscriptionDTO{ID: 11, UserID: cmd.UserID, PlanID: cmd.PlanID, Status: "active"}, nil
}

type mockReconcileUC struct {
	result *usecases.ReconcileUsageCountersResult
	err    error
}

func (m *mockReconcileUC) Execute(ctx context.Context) (*usecases.ReconcileUsageCountersResult, error) {
	return m.result, m.err
}

func TestAdminBillingHandler_CreateManualSubscription(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		ucErr      error
		wantStatus int
	}{
		{"created", map[string]any{"user_id": 5, "plan_id": 3, "billing_cycle": "yearly", "trialing": true}, nil, http.StatusCreated},
		{"missing user", map[string]any{"plan_id": 3, "billing_cycle": "yearly"}, nil, http.StatusBadRequest},
		{"plan not found", map[string]any{"user_id": 5, "plan_id": 99, "billing_cycle": "monthly"}, apperrors.NewNotFoundError("plan not found"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockManualSubscriptionUC{err: tt.ucErr}
			h := NewAdminBillingHandler(uc, &mockReconcileUC{}, testutil.NewMockLogger())

			c, w := testutil.NewTestContext(http.MethodPost, "/api/admin/subscriptions", tt.body)
			testutil.SetAuthContext(c, 1)
			h.CreateManualSubscription(c)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	t.Run("maps request to command", func(t *testing.T) {
		uc := &mockManualSubscriptionUC{}
		h := NewAdminBillingHandler(uc, &mockReconcileUC{}, testutil.NewMockLogger())
		c, _ := testutil.NewTestContext(http.MethodPost, "/api/admin/subscriptions",
			map[string]any{"user_id": 5, "plan_id": 3, "billing_cycle": "yearly", "trialing": true})
		h.CreateManualSubscription(c)

		assert.Equal(t, uint(5), uc.cmd.UserID)
		assert.Equal(t, vo.BillingCycleYearly, uc.cmd.BillingCycle)
		assert.True(t, uc.cmd.Trialing)
	})
}

func TestAdminBillingHandler_ReconcileUsageCounters(t *testing.T) {
	t.Run("reports counts", func(t *testing.T) {
		uc := &mockReconcileUC{result: &usecases.ReconcileUsageCountersResult{Checked: 3, Updated: 1}}
		h := NewAdminBillingHandler(&mockManualSubscriptionUC{}, uc, testutil.NewMockLogger())

		c, w := testutil.NewTestContext(http.MethodPost, "/api/admin/usage/reconcile", nil)
		h.ReconcileUsageCounters(c)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := parseAPIResponse(t, w.Body.Bytes())
		require.True(t, resp.Success)
		assert.JSONEq(t, `{"checked":3,"updated":1,"failed":0}`, string(resp.Data))
	})

	t.Run("internal failure is opaque", func(t *testing.T) {
		uc := &mockReconcileUC{err: errors.New("connection refused")}
		h := NewAdminBillingHandler(&mockManualSubscriptionUC{}, uc, testutil.NewMockLogger())

		c, w := testutil.NewTestContext(http.MethodPost, "/api/admin/usage/reconcile", nil)
		h.ReconcileUsageCounters(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestHealthHandler_Ready(t *testing.T) {
	ok := PingerFunc(func(ctx context.Context) error { return nil })
	down := PingerFunc(func(ctx context.Context) error { return errors.New("dial tcp: refused") })

	h := NewHealthHandler(map[string]Pinger{"database": ok})
	c, w := testutil.NewTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewHealthHandler(map[string]Pinger{"database": ok, "redis": down})
	c, w = testutil.NewTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"dial tcp: refused"`)
}
