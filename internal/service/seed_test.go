package service

import (
	"context"
	"math/rand/v2"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos_backend/internal/logx"
	"pos_backend/internal/models"
)

func TestSeedResetInvariants(t *testing.T) {
	st := newTestStore(t)
	svc := NewSeedService(logx.Nop(), st, nil, rand.New(rand.NewPCG(1, 2)))
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	addProduct(t, st, "Leftover", "1.00", 1)

	result, err := svc.Reset(ctx, DefaultSeedOptions())
	require.NoError(t, err)
	assert.Equal(t, len(DefaultCatalog), result.ProductsCreated)
	assert.Positive(t, result.TransactionsCreated)
	assert.LessOrEqual(t, result.TransactionsCreated, 50)

	products, err := st.ListProducts(ctx, true)
	require.NoError(t, err)
	require.Len(t, products, len(DefaultCatalog))

	minPrice, maxPrice := decimal.RequireFromString("0.50"), decimal.RequireFromString("10.00")
	minCost, maxCost := decimal.RequireFromString("0.20"), decimal.RequireFromString("5.00")
	byID := make(map[int64]models.Product, len(products))
	for _, p := range products {
		assert.NotEqual(t, "Leftover", p.Name)
		assert.GreaterOrEqual(t, p.Stock, 0)
		assert.LessOrEqual(t, p.Stock, 200)
		assert.True(t, p.Price.GreaterThanOrEqual(minPrice) && p.Price.LessThanOrEqual(maxPrice), "price %s", p.Price)
		assert.True(t, p.Cost.GreaterThanOrEqual(minCost) && p.Cost.LessThanOrEqual(maxCost), "cost %s", p.Cost)
		byID[p.ID] = p
	}

	sales, err := st.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, sales, result.TransactionsCreated)

	oldest := now.Add(-31 * 24 * time.Hour)
	for _, header := range sales {
		sale, err := st.GetTransaction(ctx, header.ID)
		require.NoError(t, err)
		require.NotEmpty(t, sale.Items)
		assert.True(t, sale.TotalAmount.Equal(sale.ItemsTotal()), "transaction %d", sale.ID)
		assert.False(t, sale.Timestamp.After(now))
		assert.True(t, sale.Timestamp.After(oldest))
		for _, item := range sale.Items {
			assert.Positive(t, item.Quantity)
			assert.LessOrEqual(t, item.Quantity, 5)
			assert.True(t, item.PriceAtSale.Equal(byID[item.ProductID].Price))
		}
	}
}

func TestSeedNeverOversells(t *testing.T) {
	st := newTestStore(t)
	svc := NewSeedService(logx.Nop(), st, nil, rand.New(rand.NewPCG(7, 7)))
	ctx := context.Background()

	opts := DefaultSeedOptions()
	opts.Catalog = []string{"Espresso", "Latte"}
	opts.Transactions = 300

	result, err := svc.Reset(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ProductsCreated)
	assert.Less(t, result.TransactionsCreated, 300, "two products cannot supply 300 sales")

	products, err := st.ListProducts(ctx, true)
	require.NoError(t, err)
	for _, p := range products {
		assert.Equal(t, 0, p.Stock, "%s should be sold out", p.Name)
	}
}

func TestSeedResetTwiceReplacesData(t *testing.T) {
	st := newTestStore(t)
	cache, mr := newTestCache(t)
	svc := NewSeedService(logx.Nop(), st, cache, nil)
	ctx := context.Background()

	_, err := svc.Reset(ctx, DefaultSeedOptions())
	require.NoError(t, err)
	version, err := cache.CatalogVersion(ctx)
	require.NoError(t, err)
	_, err = cache.SetCatalog(ctx, []models.Product{{ID: 1, Name: "stale"}}, version)
	require.NoError(t, err)

	opts := DefaultSeedOptions()
	opts.Transactions = 0
	result, err := svc.Reset(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TransactionsCreated)

	sales, err := st.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
	assert.Equal(t, []string{"pos:catalog:version"}, mr.Keys())
}

func TestSeedRejectsBadOptions(t *testing.T) {
	svc := NewSeedService(logx.Nop(), newTestStore(t), nil, nil)

	opts := DefaultSeedOptions()
	opts.Catalog = nil
	_, err := svc.Reset(context.Background(), opts)
	requireAppError(t, err, ErrInvalidInput, http.StatusBadRequest)

	opts = DefaultSeedOptions()
	opts.MaxQuantity = 0
	_, err = svc.Reset(context.Background(), opts)
	requireAppError(t, err, ErrInvalidInput, http.StatusBadRequest)
}
