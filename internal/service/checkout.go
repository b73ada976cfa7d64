package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pos_backend/internal/errx"
	"pos_backend/internal/models"
	"pos_backend/internal/store"
)

type CheckoutService struct {
	store  store.Store
	cache  Cache
	logger zerolog.Logger
	now    func() time.Time
}

func NewCheckoutService(logger zerolog.Logger, st store.Store, cache Cache) *CheckoutService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &CheckoutService{
		store:  st,
		cache:  cache,
		logger: logger.With().Str("component", "checkout").Logger(),
		now:    time.Now,
	}
}

// saleLine is one validated cart entry with the price read under lock.
type saleLine struct {
	productID int64
	quantity  int
	price     decimal.Decimal
}

// Checkout turns a cart into a committed Transaction, decrementing stock in the
// same database transaction. Either every line is recorded or nothing is.
func (s *CheckoutService) Checkout(ctx context.Context, cart []models.CartEntry) (int64, error) {
	if err := validateCart(cart); err != nil {
		return 0, err
	}

	var sale *models.Transaction
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		lines, err := reserve(ctx, tx, cart)
		if err != nil {
			return err
		}
		sale, err = recordSale(ctx, tx, lines, s.now().UTC())
		return err
	})
	if err != nil {
		var appErr *errx.AppError
		if errors.As(err, &appErr) {
			s.logger.Info().Err(err).Int("entries", len(cart)).Msg("checkout rejected")
			return 0, appErr
		}
		s.logger.Error().Err(err).Int("entries", len(cart)).Msg("checkout failed")
		return 0, storageFailure(err)
	}

	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate catalog cache after checkout")
	}

	s.logger.Info().
		Int64("transaction_id", sale.ID).
		Str("total", sale.TotalAmount.StringFixed(2)).
		Int("lines", len(sale.Items)).
		Msg("checkout committed")
	return sale.ID, nil
}

func validateCart(cart []models.CartEntry) error {
	if len(cart) == 0 {
		return invalidInput("cart must contain at least one entry")
	}
	for i, entry := range cart {
		if entry.ProductID <= 0 {
			return invalidInput("entry %d: product_id must be a positive integer", i).With("index", i)
		}
		if entry.Quantity <= 0 {
			return invalidInput("entry %d: quantity must be a positive integer", i).With("index", i)
		}
	}
	return nil
}

// reserve locks every product in the cart and checks cumulative demand per id.
// Rows are locked in ascending id order so two carts naming the same products
// in different orders cannot deadlock; validation still follows cart order.
func reserve(ctx context.Context, tx store.Tx, cart []models.CartEntry) ([]saleLine, error) {
	ids := make([]int64, 0, len(cart))
	for _, entry := range cart {
		ids = append(ids, entry.ProductID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	locked := make(map[int64]*models.Product, len(ids))
	for _, id := range ids {
		p, err := tx.LockProduct(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrDBNotFound) {
				continue
			}
			return nil, err
		}
		locked[id] = p
	}

	reserved := make(map[int64]int, len(ids))
	lines := make([]saleLine, 0, len(cart))
	for _, entry := range cart {
		p, ok := locked[entry.ProductID]
		if !ok || p.IsDeleted {
			return nil, productNotFound(entry.ProductID)
		}

		available := p.Stock - reserved[p.ID]
		if available < entry.Quantity {
			return nil, insufficientStock(p.ID, available)
		}
		reserved[p.ID] += entry.Quantity

		lines = append(lines, saleLine{productID: p.ID, quantity: entry.Quantity, price: p.Price})
	}
	return lines, nil
}

// recordSale appends one Transaction with a price snapshot per line and takes
// the quantities out of stock. Callers must have validated stock already;
// a failed decrement still aborts the surrounding transaction.
func recordSale(ctx context.Context, tx store.Tx, lines []saleLine, at time.Time) (*models.Transaction, error) {
	sale := &models.Transaction{
		Timestamp:   at,
		TotalAmount: decimal.Zero,
		Items:       make([]models.TransactionItem, 0, len(lines)),
	}
	for _, line := range lines {
		item := models.TransactionItem{
			ProductID:   line.productID,
			Quantity:    line.quantity,
			PriceAtSale: line.price,
		}
		sale.TotalAmount = sale.TotalAmount.Add(item.LineTotal())
		sale.Items = append(sale.Items, item)
	}

	if err := tx.InsertTransaction(ctx, sale); err != nil {
		return nil, err
	}

	for _, line := range lines {
		if err := tx.DecrementStock(ctx, line.productID, line.quantity); err != nil {
			if errors.Is(err, store.ErrDBStockConflict) {
				return nil, stockConflict(line.productID)
			}
			return nil, err
		}
	}
	return sale, nil
}
