package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"pos_backend/internal/models"
)

const productColumns = `id, name, price, cost, stock, is_deleted, created_at, updated_at`

type DBStore struct {
	DB  *sql.DB
	url string
}

func NewDBStore(db *sql.DB, databaseURL string) *DBStore {
	return &DBStore{DB: db, url: databaseURL}
}

func ConnectDB(dataSourceName string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func (s *DBStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *DBStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

func (s *DBStore) Migrate(ctx context.Context) error {
	return RunMigrations(s.url)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Cost, &p.Stock, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDBNotFound
		}
		return nil, err
	}
	return p, nil
}

// translatePQ maps constraint violations onto the store's sentinel errors.
func translatePQ(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		return fmt.Errorf("%w: %s", ErrDBDuplicateName, pqErr.Message)
	case "23503":
		return fmt.Errorf("%w: %s", ErrDBProductReferenced, pqErr.Message)
	case "23514":
		return fmt.Errorf("%w: %s", ErrDBStockConflict, pqErr.Message)
	}
	return err
}

func createProduct(ctx context.Context, q queryer, p *models.Product) error {
	query := `
        INSERT INTO products (name, price, cost, stock, is_deleted)
        VALUES ($1, $2, $3, $4, FALSE)
        RETURNING id, created_at, updated_at`

	err := q.QueryRowContext(ctx, query, p.Name, p.Price, p.Cost, p.Stock).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", translatePQ(err))
	}
	p.IsDeleted = false
	return nil
}

func (s *DBStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return createProduct(ctx, s.DB, p)
}

func (s *DBStore) GetProduct(ctx context.Context, id int64, includeDeleted bool) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND ($2 OR is_deleted = FALSE)`

	p, err := scanProduct(s.DB.QueryRowContext(ctx, query, id, includeDeleted))
	if err != nil {
		if errors.Is(err, ErrDBNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (s *DBStore) ListProducts(ctx context.Context, includeDeleted bool) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE ($1 OR is_deleted = FALSE) ORDER BY id`

	rows, err := s.DB.QueryContext(ctx, query, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// UpdateProduct is a single-row statement; ExpectedStock makes the stock edit
// a compare-and-set against the current value.
func (s *DBStore) UpdateProduct(ctx context.Context, id int64, upd models.ProductUpdate) (*models.Product, error) {
	query := `
        UPDATE products SET
            name = COALESCE($2, name),
            price = COALESCE($3, price),
            cost = COALESCE($4, cost),
            stock = COALESCE($5, stock),
            updated_at = NOW()
        WHERE id = $1 AND is_deleted = FALSE AND ($6::INTEGER IS NULL OR stock = $6)
        RETURNING ` + productColumns

	p, err := scanProduct(s.DB.QueryRowContext(ctx, query,
		id, upd.Name, upd.Price, upd.Cost, upd.Stock, upd.ExpectedStock))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrDBNotFound) {
		return nil, fmt.Errorf("failed to update product: %w", translatePQ(err))
	}

	if _, getErr := s.GetProduct(ctx, id, false); getErr != nil {
		return nil, getErr
	}
	return nil, ErrDBStockConflict
}

func (s *DBStore) SoftDeleteProduct(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE products SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to soft delete product: %w", err)
	}
	if n == 0 {
		return ErrDBNotFound
	}
	return nil
}

func (s *DBStore) HardDeleteProduct(ctx context.Context, id int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := (&pgTx{tx: tx}).LockProduct(ctx, id); err != nil {
		return err
	}

	var referenced bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transaction_items WHERE product_id = $1)`, id).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("failed to check product references: %w", err)
	}
	if referenced {
		return ErrDBProductReferenced
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", translatePQ(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *DBStore) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, "timestamp", total_amount
        FROM transactions
        ORDER BY "timestamp" DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	sales := make([]models.Transaction, 0)
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		sales = append(sales, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return sales, nil
}

func (s *DBStore) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	sale := &models.Transaction{}
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, "timestamp", total_amount FROM transactions WHERE id = $1`, id).
		Scan(&sale.ID, &sale.Timestamp, &sale.TotalAmount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDBNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, transaction_id, product_id, quantity, price_at_sale
        FROM transaction_items
        WHERE transaction_id = $1
        ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction items: %w", err)
	}
	defer rows.Close()

	sale.Items = make([]models.TransactionItem, 0)
	for rows.Next() {
		var item models.TransactionItem
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.ProductID, &item.Quantity, &item.PriceAtSale); err != nil {
			return nil, fmt.Errorf("failed to scan transaction item: %w", err)
		}
		sale.Items = append(sale.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction items: %w", err)
	}
	return sale, nil
}

func (s *DBStore) Reset(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transaction_items", "transactions", "products"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InTx runs at READ COMMITTED; checkout gets its isolation from the row locks
// taken by LockProduct.
func (s *DBStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) LockProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	p, err := scanProduct(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrDBNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}
	return p, nil
}

func (t *pgTx) CreateProduct(ctx context.Context, p *models.Product) error {
	return createProduct(ctx, t.tx, p)
}

func (t *pgTx) InsertTransaction(ctx context.Context, sale *models.Transaction) error {
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO transactions ("timestamp", total_amount) VALUES ($1, $2) RETURNING id`,
		sale.Timestamp, sale.TotalAmount).Scan(&sale.ID)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if len(sale.Items) == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(ctx, `
        INSERT INTO transaction_items (transaction_id, product_id, quantity, price_at_sale)
        VALUES ($1, $2, $3, $4)
        RETURNING id`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range sale.Items {
		item := &sale.Items[i]
		item.TransactionID = sale.ID
		err := stmt.QueryRowContext(ctx, item.TransactionID, item.ProductID, item.Quantity, item.PriceAtSale).
			Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert transaction item %d: %w", i, translatePQ(err))
		}
	}
	return nil
}

func (t *pgTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", translatePQ(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if n == 0 {
		return ErrDBStockConflict
	}
	return nil
}

var (
	_ Store = (*DBStore)(nil)
	_ Tx    = (*pgTx)(nil)
)
