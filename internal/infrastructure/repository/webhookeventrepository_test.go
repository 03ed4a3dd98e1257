package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

func TestWebhookEventRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookEventRepository(db, logger.NewNopLogger())
	ctx := context.Background()

	processed, err := repo.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, repo.MarkProcessed(ctx, "evt_1", "invoice.payment_succeeded", []byte(`{"id":"evt_1"}`)))
	require.NoError(t, repo.MarkProcessed(ctx, "evt_1", "invoice.payment_succeeded", []byte(`{"id":"evt_1"}`)))
	require.NoError(t, repo.MarkProcessed(ctx, "evt_2", "customer.updated", []byte("not json")))

	processed, err = repo.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)

	var count int64
	require.NoError(t, db.Model(&models.WebhookEventModel{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
