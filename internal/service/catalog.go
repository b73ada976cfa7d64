package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pos_backend/internal/models"
	"pos_backend/internal/store"
)

// CatalogService is the admin surface over the Inventory Store. The active
// catalog is served from cache; every write invalidates it.
type CatalogService struct {
	store  store.Store
	cache  Cache
	logger zerolog.Logger
}

func NewCatalogService(logger zerolog.Logger, st store.Store, cache Cache) *CatalogService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &CatalogService{
		store:  st,
		cache:  cache,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

func validateMoney(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return invalidInput("%s must not be negative", field).With("field", field)
	}
	return nil
}

func (s *CatalogService) Create(ctx context.Context, in models.NewProduct) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("name is required").With("field", "name")
	}
	if in.Price == nil {
		return nil, invalidInput("price is required").With("field", "price")
	}
	if in.Cost == nil {
		return nil, invalidInput("cost is required").With("field", "cost")
	}
	if err := validateMoney("price", *in.Price); err != nil {
		return nil, err
	}
	if err := validateMoney("cost", *in.Cost); err != nil {
		return nil, err
	}
	if in.Stock < 0 {
		return nil, invalidInput("stock must not be negative").With("field", "stock")
	}

	p := &models.Product{
		Name:  name,
		Price: in.Price.Round(2),
		Cost:  in.Cost.Round(2),
		Stock: in.Stock,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, productError(err, 0, name)
	}

	s.invalidate(ctx)
	s.logger.Info().Int64("product_id", p.ID).Str("name", p.Name).Msg("product created")
	return p, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64, includeDeleted bool) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, id, includeDeleted)
	if err != nil {
		return nil, productError(err, id, "")
	}
	return p, nil
}

// List returns active products, or all of them when includeDeleted is set.
// Only the active list is cached.
func (s *CatalogService) List(ctx context.Context, includeDeleted bool) ([]models.Product, error) {
	if includeDeleted {
		products, err := s.store.ListProducts(ctx, true)
		if err != nil {
			return nil, storageFailure(err)
		}
		return products, nil
	}

	cached, err := s.cache.GetCatalog(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache read failed, falling back to database")
	}
	if cached != nil {
		return cached, nil
	}

	// The version must be read before the database so a write that commits in
	// between is detected when the result is cached.
	version, verr := s.cache.CatalogVersion(ctx)
	if verr != nil {
		s.logger.Warn().Err(verr).Msg("catalog version read failed, result will not be cached")
	}

	products, err := s.store.ListProducts(ctx, false)
	if err != nil {
		return nil, storageFailure(err)
	}

	if verr == nil {
		stored, err := s.cache.SetCatalog(ctx, products, version)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("failed to cache catalog")
		case !stored:
			s.logger.Debug().Int64("version", version).Msg("catalog changed during read, not cached")
		}
	}
	return products, nil
}

// Update applies a partial update. ExpectedStock makes a stock edit fail with
// ErrStockConflict unless the current stock still matches.
func (s *CatalogService) Update(ctx context.Context, id int64, upd models.ProductUpdate) (*models.Product, error) {
	if upd.Empty() {
		return nil, invalidInput("no fields to update")
	}
	if upd.ExpectedStock != nil && upd.Stock == nil {
		return nil, invalidInput("expected_stock requires stock").With("field", "expected_stock")
	}

	var name string
	if upd.Name != nil {
		name = strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalidInput("name must not be empty").With("field", "name")
		}
		upd.Name = &name
	}
	if upd.Price != nil {
		if err := validateMoney("price", *upd.Price); err != nil {
			return nil, err
		}
		price := upd.Price.Round(2)
		upd.Price = &price
	}
	if upd.Cost != nil {
		if err := validateMoney("cost", *upd.Cost); err != nil {
			return nil, err
		}
		cost := upd.Cost.Round(2)
		upd.Cost = &cost
	}
	if upd.Stock != nil && *upd.Stock < 0 {
		return nil, invalidInput("stock must not be negative").With("field", "stock")
	}

	p, err := s.store.UpdateProduct(ctx, id, upd)
	if err != nil {
		return nil, productError(err, id, name)
	}

	s.invalidate(ctx)
	s.logger.Info().Int64("product_id", id).Msg("product updated")
	return p, nil
}

// Delete soft deletes by default. A hard delete is refused while any
// transaction item still references the product.
func (s *CatalogService) Delete(ctx context.Context, id int64, hard bool) error {
	var err error
	if hard {
		err = s.store.HardDeleteProduct(ctx, id)
	} else {
		err = s.store.SoftDeleteProduct(ctx, id)
	}
	if err != nil {
		if hard && errors.Is(err, store.ErrDBProductReferenced) {
			s.logger.Info().Int64("product_id", id).Msg("hard delete refused, product has sales")
		}
		return productError(err, id, "")
	}

	s.invalidate(ctx)
	s.logger.Info().Int64("product_id", id).Bool("hard", hard).Msg("product deleted")
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate catalog cache")
	}
}
