package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos_backend/internal/models"
)

var productCols = []string{"id", "name", "price", "cost", "stock", "is_deleted", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*DBStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewDBStore(db, ""), mock
}

func productRow(id int64, name string, stock int, deleted bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(productCols).AddRow(id, name, "2.50", "1.00", stock, deleted, now, now)
}

func TestDBStoreInTxCommits(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(1)).
		WillReturnRows(productRow(1, "Latte", 5, false))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO transaction_items`))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transaction_items`)).
		WithArgs(int64(42), int64(1), 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET stock = stock - $2`)).
		WithArgs(int64(1), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sale := &models.Transaction{
		Timestamp:   time.Now().UTC(),
		TotalAmount: decimal.RequireFromString("5.00"),
		Items:       []models.TransactionItem{{ProductID: 1, Quantity: 2, PriceAtSale: decimal.RequireFromString("2.50")}},
	}
	err := s.InTx(context.Background(), func(tx Tx) error {
		p, err := tx.LockProduct(context.Background(), 1)
		if err != nil {
			return err
		}
		assert.True(t, p.Price.Equal(decimal.RequireFromString("2.50")))
		if err := tx.InsertTransaction(context.Background(), sale); err != nil {
			return err
		}
		return tx.DecrementStock(context.Background(), 1, 2)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), sale.ID)
	assert.Equal(t, int64(42), sale.Items[0].TransactionID)
	assert.Equal(t, int64(7), sale.Items[0].ID)
}

func TestDBStoreInTxRollsBackOnStockConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET stock = stock - $2`)).
		WithArgs(int64(1), 9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx Tx) error {
		return tx.DecrementStock(context.Background(), 1, 9)
	})
	assert.ErrorIs(t, err, ErrDBStockConflict)
}

func TestDBStoreLockProductNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(productCols))
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx Tx) error {
		_, err := tx.LockProduct(context.Background(), 99)
		return err
	})
	assert.ErrorIs(t, err, ErrDBNotFound)
}

func TestDBStoreCreateProductDuplicateName(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO products`)).
		WithArgs("Latte", sqlmock.AnyArg(), sqlmock.AnyArg(), 3).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := s.CreateProduct(context.Background(), &models.Product{Name: "Latte", Stock: 3})
	assert.ErrorIs(t, err, ErrDBDuplicateName)
}

func TestDBStoreUpdateProductStockConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE products SET`)).
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(productCols))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = $1 AND ($2 OR is_deleted = FALSE)`)).
		WithArgs(int64(1), false).
		WillReturnRows(productRow(1, "Latte", 8, false))

	stock, expected := 10, 5
	_, err := s.UpdateProduct(context.Background(), 1, models.ProductUpdate{Stock: &stock, ExpectedStock: &expected})
	assert.ErrorIs(t, err, ErrDBStockConflict)
}

func TestDBStoreUpdateProductMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE products SET`)).
		WillReturnRows(sqlmock.NewRows(productCols))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(productCols))

	name := "Mocha"
	_, err := s.UpdateProduct(context.Background(), 3, models.ProductUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrDBNotFound)
}

func TestDBStoreHardDeleteReferenced(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(int64(1)).
		WillReturnRows(productRow(1, "Latte", 5, false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := s.HardDeleteProduct(context.Background(), 1)
	assert.ErrorIs(t, err, ErrDBProductReferenced)
}

func TestDBStoreSoftDeleteMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET is_deleted = TRUE`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.SoftDeleteProduct(context.Background(), 5), ErrDBNotFound)
}

func TestDBStoreGetTransactionWithItems(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE id = $1`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp", "total_amount"}).AddRow(int64(4), ts, "7.50"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM transaction_items`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "product_id", "quantity", "price_at_sale"}).
			AddRow(int64(1), int64(4), int64(2), 1, "2.50").
			AddRow(int64(2), int64(4), int64(3), 2, "2.50"))

	sale, err := s.GetTransaction(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, sale.Items, 2)
	assert.True(t, sale.TotalAmount.Equal(sale.ItemsTotal()))
	assert.True(t, sale.Timestamp.Equal(ts))
}

func TestDBStoreResetClearsChildrenFirst(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM transaction_items`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM transactions`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM products`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.Reset(context.Background()))
}

func TestDBStoreResetRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM transaction_items`).WillReturnError(boom)
	mock.ExpectRollback()

	assert.ErrorIs(t, s.Reset(context.Background()), boom)
}

func TestTranslatePQ(t *testing.T) {
	assert.ErrorIs(t, translatePQ(&pq.Error{Code: "23503"}), ErrDBProductReferenced)
	assert.ErrorIs(t, translatePQ(&pq.Error{Code: "23514"}), ErrDBStockConflict)

	other := &pq.Error{Code: "40001"}
	assert.Equal(t, error(other), translatePQ(other))
}
