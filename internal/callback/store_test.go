package callback

import (
	"context"
	"testing"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, store.Create(ctx, &model.Delivery{ID: id}))
	}

	got, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[1], got[1].ID)

	// evicted record stays evicted
	require.NoError(t, store.Update(ctx, &model.Delivery{ID: ids[0], Attempts: 1}))
	got, _ = store.ListRecent(ctx, 0)
	assert.Len(t, got, 2)
}

func TestMemoryStore_UpdateAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)
	d := &model.Delivery{ID: uuid.New()}
	require.NoError(t, store.Create(ctx, d))
	require.NoError(t, store.Create(ctx, &model.Delivery{ID: uuid.New()}))

	d.Attempts = 3
	require.NoError(t, store.Update(ctx, d))
	// the stored value is a copy
	d.Attempts = 99

	got, err := store.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEqual(t, d.ID, got[0].ID)

	got, _ = store.ListRecent(ctx, 2)
	assert.Equal(t, 3, got[1].Attempts)
}

func TestMemoryStore_GetByID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(1)
	first := &model.Delivery{ID: uuid.New(), Gateway: model.GatewayPayment}
	require.NoError(t, store.Create(ctx, first))

	got, err := store.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GatewayPayment, got.Gateway)

	_, err = store.GetByID(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, store.Create(ctx, &model.Delivery{ID: uuid.New()}))
	_, err = store.GetByID(ctx, first.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "evicted")
}
