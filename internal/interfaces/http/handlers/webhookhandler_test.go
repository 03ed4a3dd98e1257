package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/interfaces/http/handlers/testutil"
)

type mockHandleWebhookUC struct {
	err       error
	payload   []byte
	signature string
}

func (m *mockHandleWebhookUC) Execute(ctx context.Context, payload []byte, signature string) error {
	m.payload = payload
	m.signature = signature
	return m.err
}

func TestWebhookHandler_HandleStripe(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"invoice.paid"}`)

	tests := []struct {
		name       string
		signature  string
		ucErr      error
		wantStatus int
		wantBody   string
	}{
		{"processed", "t=1,v1=abc", nil, http.StatusOK, `{"received":true}`},
		{"missing signature", "", nil, http.StatusBadRequest, `{"error":"missing signature"}`},
		{"bad signature", "t=1,v1=bad", &billing.SignatureVerificationError{Err: errors.New("mismatch")}, http.StatusBadRequest, `{"error":"invalid signature"}`},
		{"secret not set", "t=1,v1=abc", billing.ErrWebhookSecretMissing, http.StatusBadRequest, `{"error":"webhook not configured"}`},
		{"processing failure", "t=1,v1=abc", errors.New("db down"), http.StatusInternalServerError, `{"error":"processing failed"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockHandleWebhookUC{err: tt.ucErr}
			h := NewWebhookHandler(uc, testutil.NewMockLogger())

			headers := map[string]string{}
			if tt.signature != "" {
				headers["Stripe-Signature"] = tt.signature
			}
			c, w := testutil.NewRawRequestContext(http.MethodPost, "/webhooks/stripe", body, headers)

			h.HandleStripe(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestWebhookHandler_PassesRawBodyVerbatim(t *testing.T) {
	body := []byte("{\"id\":\"evt_1\",  \"type\":\"x\"}\n")
	uc := &mockHandleWebhookUC{}
	h := NewWebhookHandler(uc, testutil.NewMockLogger())
	c, _ := testutil.NewRawRequestContext(http.MethodPost, "/webhooks/stripe", body, map[string]string{"Stripe-Signature": "t=1,v1=abc"})

	h.HandleStripe(c)

	assert.Equal(t, body, uc.payload)
	assert.Equal(t, "t=1,v1=abc", uc.signature)
}
