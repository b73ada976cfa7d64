package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pos_backend/internal/errx"
	"pos_backend/internal/models"
)

const (
	keyPrefix         = "pos:"
	catalogKey        = keyPrefix + "catalog:active"
	catalogVersionKey = keyPrefix + "catalog:version"
)

// setCatalogScript writes the catalog only if no invalidation happened since
// the caller read the version. KEYS: version, catalog. ARGV: version, payload, ttl ms.
var setCatalogScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

func transactionKey(id int64) string {
	return fmt.Sprintf("%stransaction:%d", keyPrefix, id)
}

// RedisStore caches the active catalog and transaction details. Transactions
// are immutable once committed, so their entries only go away on TTL or Flush.
type RedisStore struct {
	Client         redis.Cmdable
	catalogTTL     time.Duration
	transactionTTL time.Duration
}

func NewRedisClient(url string, dialTimeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.DialTimeout = dialTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewRedisStore(client redis.Cmdable, catalogTTL, transactionTTL time.Duration) *RedisStore {
	return &RedisStore{Client: client, catalogTTL: catalogTTL, transactionTTL: transactionTTL}
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	val, err := s.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, errx.WrapRedis(err)
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s from redis: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.Client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// GetCatalog returns (nil, nil) on a cache miss.
func (s *RedisStore) GetCatalog(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	found, err := s.getJSON(ctx, catalogKey, &products)
	if err != nil || !found {
		return nil, err
	}
	return products, nil
}

// CatalogVersion returns the invalidation counter; read it before loading the
// catalog from the database and hand it back to SetCatalog.
func (s *RedisStore) CatalogVersion(ctx context.Context) (int64, error) {
	v, err := s.Client.Get(ctx, catalogVersionKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, errx.WrapRedis(err)
	}
	return v, nil
}

// SetCatalog stores products unless the catalog was invalidated after version
// was read, in which case the write is dropped and stored is false.
func (s *RedisStore) SetCatalog(ctx context.Context, products []models.Product, version int64) (bool, error) {
	data, err := json.Marshal(products)
	if err != nil {
		return false, fmt.Errorf("failed to marshal %s: %w", catalogKey, err)
	}
	keys := []string{catalogVersionKey, catalogKey}
	n, err := setCatalogScript.Run(ctx, s.Client, keys, version, data, s.catalogTTL.Milliseconds()).Int()
	if err != nil {
		return false, errx.WrapRedis(err)
	}
	return n == 1, nil
}

// InvalidateCatalog bumps the version before dropping the entry so a reader
// holding the old version cannot put a stale list back.
func (s *RedisStore) InvalidateCatalog(ctx context.Context) error {
	pipe := s.Client.TxPipeline()
	pipe.Incr(ctx, catalogVersionKey)
	pipe.Del(ctx, catalogKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// GetTransaction returns (nil, nil) on a cache miss.
func (s *RedisStore) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	var sale models.Transaction
	found, err := s.getJSON(ctx, transactionKey(id), &sale)
	if err != nil || !found {
		return nil, err
	}
	return &sale, nil
}

func (s *RedisStore) SetTransaction(ctx context.Context, sale *models.Transaction) error {
	return s.setJSON(ctx, transactionKey(sale.ID), sale, s.transactionTTL)
}

// Flush drops every key this service owns; used after the store is reseeded.
// The catalog version survives and is bumped instead.
func (s *RedisStore) Flush(ctx context.Context) error {
	iter := s.Client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		if iter.Val() != catalogVersionKey {
			keys = append(keys, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return errx.WrapRedis(err)
	}
	if len(keys) > 0 {
		if err := s.Client.Del(ctx, keys...).Err(); err != nil {
			return errx.WrapRedis(err)
		}
	}
	return s.InvalidateCatalog(ctx)
}
