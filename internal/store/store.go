package store

import (
	"context"
	"errors"

	"pos_backend/internal/models"
)

var (
	ErrDBNotFound          = errors.New("database: record not found")
	ErrDBDuplicateName     = errors.New("database: product name already exists")
	ErrDBProductReferenced = errors.New("database: product is referenced by transaction items")
	ErrDBStockConflict     = errors.New("database: stock changed or would go negative")
)

// Store is the Inventory Store and Sales Ledger behind one handle.
// Stock only changes through Tx.DecrementStock or UpdateProduct.
type Store interface {
	Ping(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id int64, includeDeleted bool) (*models.Product, error)
	ListProducts(ctx context.Context, includeDeleted bool) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id int64, upd models.ProductUpdate) (*models.Product, error)
	SoftDeleteProduct(ctx context.Context, id int64) error
	HardDeleteProduct(ctx context.Context, id int64) error

	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)

	// Reset deletes items, transactions and products, children first.
	Reset(ctx context.Context) error

	// InTx runs fn inside one database transaction. The Tx handle is only valid
	// inside fn; any error returned by fn rolls everything back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the scoped transactional handle used by checkout and seeding.
type Tx interface {
	// LockProduct reads a product, soft-deleted or not, holding a write lock
	// on it until the transaction ends.
	LockProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	// InsertTransaction stores the header and its items, filling in their ids.
	InsertTransaction(ctx context.Context, sale *models.Transaction) error
	// DecrementStock fails with ErrDBStockConflict instead of going below zero.
	DecrementStock(ctx context.Context, productID int64, qty int) error
}
