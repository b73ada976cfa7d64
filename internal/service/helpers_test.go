package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pos_backend/internal/errx"
	"pos_backend/internal/models"
	"pos_backend/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pos_test.db")
	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL", path)

	st, err := store.OpenSQLite(dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newTestCache(t *testing.T) (*store.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return store.NewRedisStore(client, time.Minute, time.Hour), mr
}

func addProduct(t *testing.T, st store.Store, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Cost:  decimal.RequireFromString("1.00"),
		Stock: stock,
	}
	require.NoError(t, st.CreateProduct(context.Background(), p))
	return p
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func stockOf(t *testing.T, st store.Store, id int64) int {
	t.Helper()
	p, err := st.GetProduct(context.Background(), id, true)
	require.NoError(t, err)
	return p.Stock
}

func requireAppError(t *testing.T, err error, target error, status int) *errx.AppError {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, target)
	appErr := errx.From(err)
	require.Equal(t, status, appErr.Status)
	return appErr
}

var errDiskFull = errors.New("disk full")

// faultyStore fails the n-th DecrementStock inside InTx to exercise rollback.
type faultyStore struct {
	store.Store
	failOn int
}

func (f *faultyStore) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.InTx(ctx, func(tx store.Tx) error {
		return fn(&faultyTx{Tx: tx, failOn: f.failOn})
	})
}

type faultyTx struct {
	store.Tx
	failOn int
	calls  int
}

func (t *faultyTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	t.calls++
	if t.calls == t.failOn {
		return errDiskFull
	}
	return t.Tx.DecrementStock(ctx, productID, qty)
}

// racingStore runs afterList once, after ListProducts has read its rows and
// before the caller sees them.
type racingStore struct {
	store.Store
	afterList func()
}

func (r *racingStore) ListProducts(ctx context.Context, includeDeleted bool) ([]models.Product, error) {
	products, err := r.Store.ListProducts(ctx, includeDeleted)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return products, err
}
