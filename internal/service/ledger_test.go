package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos_backend/internal/logx"
	"pos_backend/internal/models"
)

func TestLedgerGet(t *testing.T) {
	st := newTestStore(t)
	cache, _ := newTestCache(t)
	ledger := NewLedgerService(logx.Nop(), st, cache)
	checkout := NewCheckoutService(logx.Nop(), st, cache)
	ctx := context.Background()

	p := addProduct(t, st, "Milk", "1.30", 10)
	id, err := checkout.Checkout(ctx, []models.CartEntry{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)

	sale, err := ledger.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	assert.True(t, sale.TotalAmount.Equal(sale.ItemsTotal()))

	cached, err := cache.GetTransaction(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, id, cached.ID)

	again, err := ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, again.TotalAmount.Equal(sale.TotalAmount))

	_, err = ledger.Get(ctx, id+100)
	appErr := requireAppError(t, err, ErrTransactionNotFound, http.StatusNotFound)
	assert.Equal(t, id+100, appErr.Details["transaction_id"])
}

func TestLedgerListNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedgerService(logx.Nop(), st, nil)
	checkout := NewCheckoutService(logx.Nop(), st, nil)
	ctx := context.Background()

	sales, err := ledger.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)

	p := addProduct(t, st, "Tea", "1.10", 10)
	first, err := checkout.Checkout(ctx, []models.CartEntry{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	second, err := checkout.Checkout(ctx, []models.CartEntry{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	sales, err = ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, second, sales[0].ID)
	assert.Equal(t, first, sales[1].ID)
}
