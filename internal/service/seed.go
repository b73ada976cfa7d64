package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pos_backend/internal/models"
	"pos_backend/internal/store"
)

// DefaultCatalog is the demo menu written by every reseed.
var DefaultCatalog = []string{
	"Espresso", "Latte", "Cappuccino", "Tea", "Orange Juice", "Muffin", "Bagel", "Sandwich",
	"Chocolate", "Soda", "Water", "Cookie", "Salad", "Burger", "Fries", "Milk", "Yogurt",
	"Granola", "Apple", "Banana",
}

type SeedOptions struct {
	Catalog      []string
	Transactions int
	MaxLines     int
	MaxQuantity  int
	HistoryDays  int
}

func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		Catalog:      DefaultCatalog,
		Transactions: 50,
		MaxLines:     4,
		MaxQuantity:  5,
		HistoryDays:  30,
	}
}

func (o SeedOptions) validate() error {
	switch {
	case len(o.Catalog) == 0:
		return invalidInput("seed catalog must not be empty")
	case o.Transactions < 0:
		return invalidInput("seed transaction count must not be negative")
	case o.MaxLines < 1, o.MaxQuantity < 1:
		return invalidInput("seed line and quantity limits must be positive")
	case o.HistoryDays < 0:
		return invalidInput("seed history window must not be negative")
	}
	return nil
}

// SeedService wipes the store and writes a demo catalog plus sales history.
// Resets are serialized; the random source is not safe for concurrent use.
type SeedService struct {
	store  store.Store
	cache  Cache
	logger zerolog.Logger
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeedService uses rng when given so tests can fix the output.
func NewSeedService(logger zerolog.Logger, st store.Store, cache Cache, rng *rand.Rand) *SeedService {
	if cache == nil {
		cache = NoopCache{}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SeedService{
		store:  st,
		cache:  cache,
		logger: logger.With().Str("component", "seed").Logger(),
		now:    time.Now,
		rng:    rng,
	}
}

// Migrate ensures the schema exists before a first seed.
func (s *SeedService) Migrate(ctx context.Context) error {
	if err := s.store.Migrate(ctx); err != nil {
		return storageFailure(err)
	}
	return nil
}

// Reset deletes every item, transaction and product, then regenerates the
// catalog and opts.Transactions historical sales. Sales never take stock
// below zero and every total equals the sum of its lines.
func (s *SeedService) Reset(ctx context.Context, opts SeedOptions) (*models.SeedResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Reset(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to wipe store")
		return nil, storageFailure(err)
	}

	result := &models.SeedResult{}
	now := s.now().UTC()
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		products := make([]*models.Product, 0, len(opts.Catalog))
		for _, name := range opts.Catalog {
			p := &models.Product{
				Name:  name,
				Price: s.cents(50, 1000),
				Cost:  s.cents(20, 500),
				Stock: s.between(10, 200),
			}
			if err := tx.CreateProduct(ctx, p); err != nil {
				return err
			}
			products = append(products, p)
		}

		remaining := make(map[int64]int, len(products))
		for _, p := range products {
			remaining[p.ID] = p.Stock
		}

		for range opts.Transactions {
			lines := s.randomLines(products, remaining, opts)
			if len(lines) == 0 {
				continue
			}
			at := s.randomTime(now, opts.HistoryDays)
			if _, err := recordSale(ctx, tx, lines, at); err != nil {
				return err
			}
			result.TransactionsCreated++
		}
		result.ProductsCreated = len(products)
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("seed failed")
		return nil, storageFailure(err)
	}

	if err := s.cache.Flush(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to flush cache after seed")
	}

	s.logger.Info().
		Int("products", result.ProductsCreated).
		Int("transactions", result.TransactionsCreated).
		Msg("store reseeded")
	return result, nil
}

// randomLines picks up to MaxLines entries, clamping each quantity to the stock
// still left after earlier picks. Sold-out products are skipped.
func (s *SeedService) randomLines(products []*models.Product, remaining map[int64]int, opts SeedOptions) []saleLine {
	count := s.between(1, opts.MaxLines)
	lines := make([]saleLine, 0, count)
	for range count {
		p := products[s.rng.IntN(len(products))]
		qty := min(s.between(1, opts.MaxQuantity), remaining[p.ID])
		if qty <= 0 {
			continue
		}
		remaining[p.ID] -= qty
		lines = append(lines, saleLine{productID: p.ID, quantity: qty, price: p.Price})
	}
	return lines
}

func (s *SeedService) randomTime(now time.Time, days int) time.Time {
	ago := time.Duration(s.rng.IntN(days+1)) * 24 * time.Hour
	ago += time.Duration(s.rng.IntN(24*60*60)) * time.Second
	return now.Add(-ago)
}

// between returns a uniform int in [lo, hi].
func (s *SeedService) between(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo+1)
}

func (s *SeedService) cents(lo, hi int) decimal.Decimal {
	return decimal.New(int64(s.between(lo, hi)), -2)
}
