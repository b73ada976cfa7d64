package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"pos_backend/internal/models"
	"pos_backend/internal/store"
)

// LedgerService reads the append-only sales ledger. Committed transactions
// never change, so a cached detail is valid until it expires.
type LedgerService struct {
	store  store.Store
	cache  Cache
	logger zerolog.Logger
}

func NewLedgerService(logger zerolog.Logger, st store.Store, cache Cache) *LedgerService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &LedgerService{
		store:  st,
		cache:  cache,
		logger: logger.With().Str("component", "ledger").Logger(),
	}
}

// List returns transaction headers, newest first.
func (s *LedgerService) List(ctx context.Context) ([]models.Transaction, error) {
	sales, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	return sales, nil
}

func (s *LedgerService) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	cached, err := s.cache.GetTransaction(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("transaction_id", id).Msg("transaction cache read failed, falling back to database")
	}
	if cached != nil {
		return cached, nil
	}

	sale, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrDBNotFound) {
			return nil, transactionNotFound(id)
		}
		return nil, storageFailure(err)
	}

	if err := s.cache.SetTransaction(ctx, sale); err != nil {
		s.logger.Warn().Err(err).Int64("transaction_id", id).Msg("failed to cache transaction")
	}
	return sale, nil
}
