package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"pos_backend/internal/models"
)

// SQLiteStore backs local development when no DATABASE_URL is configured.
// The DSN must open transactions with _txlock=immediate: SQLite has no row
// locks, so every InTx takes the database write lock up front instead.
type SQLiteStore struct {
	DB *gorm.DB
}

func OpenSQLite(dsn string, debug bool) (*SQLiteStore, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return &SQLiteStore{DB: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := s.DB.WithContext(ctx).AutoMigrate(
		&models.Product{},
		&models.Transaction{},
		&models.TransactionItem{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

func translateGorm(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrDBNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrDBDuplicateName, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrDBProductReferenced, err)
	case strings.Contains(err.Error(), "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", ErrDBStockConflict, err)
	}
	return err
}

func (s *SQLiteStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return (&sqliteTx{db: s.DB}).CreateProduct(ctx, p)
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id int64, includeDeleted bool) (*models.Product, error) {
	q := s.DB.WithContext(ctx).Where("id = ?", id)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}

	var p models.Product
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDBNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context, includeDeleted bool) ([]models.Product, error) {
	q := s.DB.WithContext(ctx).Order("id")
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}

	products := make([]models.Product, 0)
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *SQLiteStore) UpdateProduct(ctx context.Context, id int64, upd models.ProductUpdate) (*models.Product, error) {
	changes := map[string]any{}
	if upd.Name != nil {
		changes["name"] = *upd.Name
	}
	if upd.Price != nil {
		changes["price"] = *upd.Price
	}
	if upd.Cost != nil {
		changes["cost"] = *upd.Cost
	}
	if upd.Stock != nil {
		changes["stock"] = *upd.Stock
	}

	q := s.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ? AND is_deleted = ?", id, false)
	if upd.ExpectedStock != nil {
		q = q.Where("stock = ?", *upd.ExpectedStock)
	}

	res := q.Updates(changes)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update product: %w", translateGorm(res.Error))
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetProduct(ctx, id, false); err != nil {
			return nil, err
		}
		return nil, ErrDBStockConflict
	}
	return s.GetProduct(ctx, id, false)
}

func (s *SQLiteStore) SoftDeleteProduct(ctx context.Context, id int64) error {
	res := s.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return fmt.Errorf("failed to soft delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDBNotFound
	}
	return nil
}

func (s *SQLiteStore) HardDeleteProduct(ctx context.Context, id int64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, id).Error; err != nil {
			return translateGorm(err)
		}

		var refs int64
		if err := tx.Model(&models.TransactionItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return fmt.Errorf("failed to check product references: %w", err)
		}
		if refs > 0 {
			return ErrDBProductReferenced
		}

		if err := tx.Delete(&models.Product{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", translateGorm(err))
		}
		return nil
	})
}

func (s *SQLiteStore) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	sales := make([]models.Transaction, 0)
	if err := s.DB.WithContext(ctx).Order("timestamp DESC, id DESC").Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return sales, nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	var sale models.Transaction
	err := s.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&sale, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDBNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if sale.Items == nil {
		sale.Items = make([]models.TransactionItem, 0)
	}
	return &sale, nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"transaction_items", "transactions", "products"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&sqliteTx{db: tx})
	})
}

type sqliteTx struct {
	db *gorm.DB
}

// LockProduct relies on the immediate transaction already holding the write lock.
func (t *sqliteTx) LockProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := t.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDBNotFound
		}
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}
	return &p, nil
}

func (t *sqliteTx) CreateProduct(ctx context.Context, p *models.Product) error {
	p.ID = 0
	p.IsDeleted = false
	if err := t.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", translateGorm(err))
	}
	return nil
}

func (t *sqliteTx) InsertTransaction(ctx context.Context, sale *models.Transaction) error {
	db := t.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(sale).Error; err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if len(sale.Items) == 0 {
		return nil
	}
	for i := range sale.Items {
		sale.Items[i].TransactionID = sale.ID
	}
	if err := db.Create(&sale.Items).Error; err != nil {
		return fmt.Errorf("failed to insert transaction items: %w", translateGorm(err))
	}
	return nil
}

func (t *sqliteTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	res := t.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock: %w", translateGorm(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrDBStockConflict
	}
	return nil
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Tx    = (*sqliteTx)(nil)
)
