package service

import (
	"context"

	"pos_backend/internal/models"
)

// Cache is the read-through cache in front of the catalog and ledger.
// A miss is (nil, nil); errors are logged by callers and never fail a request.
type Cache interface {
	GetCatalog(ctx context.Context) ([]models.Product, error)
	CatalogVersion(ctx context.Context) (int64, error)
	// SetCatalog reports false when version is stale and the write was dropped.
	SetCatalog(ctx context.Context, products []models.Product, version int64) (bool, error)
	InvalidateCatalog(ctx context.Context) error
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	SetTransaction(ctx context.Context, sale *models.Transaction) error
	Flush(ctx context.Context) error
}

// NoopCache is used when REDIS_URL is not configured.
type NoopCache struct{}

func (NoopCache) GetCatalog(context.Context) ([]models.Product, error) { return nil, nil }
func (NoopCache) CatalogVersion(context.Context) (int64, error) { return 0, nil }
func (NoopCache) SetCatalog(context.Context, []models.Product, int64) (bool, error) {
	return true, nil
}
func (NoopCache) InvalidateCatalog(context.Context) error { return nil }
func (NoopCache) GetTransaction(context.Context, int64) (*models.Transaction, error) { return nil, nil }
func (NoopCache) SetTransaction(context.Context, *models.Transaction) error { return nil }
func (NoopCache) Flush(context.Context) error { return nil }
