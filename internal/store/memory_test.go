package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeplan/internal/model"
)

func TestMemoryPlanLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec, err := m.CreatePlan(ctx, model.PlanRecord{Source: "flatfile", Locations: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, model.PlanPending, rec.Status)

	rec.Status = model.PlanSolved
	rec.Plan = &model.Plan{RouteCost: 7}
	require.NoError(t, m.UpdatePlan(ctx, rec))

	got, err := m.GetPlan(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanSolved, got.Status)
	assert.Equal(t, int64(7), got.Plan.RouteCost)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)

	_, err = m.GetPlan(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.UpdatePlan(ctx, model.PlanRecord{ID: "missing"}), ErrNotFound)
}

func TestMemoryListPlansPaginates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var ids []string
	for i := 0; i < 5; i++ {
		rec, err := m.CreatePlan(ctx, model.PlanRecord{})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	page, next, err := m.ListPlans(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], next)

	page, next, err = m.ListPlans(ctx, next, 2)
	require.NoError(t, err)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[3], next)

	page, next, err = m.ListPlans(ctx, next, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.Empty(t, next)
}

func TestMemoryWebhookQueue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	id, err := m.EnqueueWebhook(ctx, "plan.solved", "http://hook", "s", []byte(`{"id":"evt_1"}`))
	require.NoError(t, err)
	dup, err := m.EnqueueWebhook(ctx, "plan.solved", "http://hook", "s", []byte(`{"id":"evt_1"}`))
	require.NoError(t, err)
	assert.Equal(t, id, dup)

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	later := now.Add(time.Minute)
	require.NoError(t, m.MarkWebhookDelivery(ctx, id, false, &later, "boom", 500, 3))
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	assert.Empty(t, due)

	now = later
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Attempts)

	require.NoError(t, m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 2))
	list, err := m.ListWebhookDeliveries(ctx, "delivered", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].DeliveredAt)
}
