package credithistory

import (
	"context"
	"credit-ledger/internal/domain/borrower"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	keyPrefix = "credithistory:"
	// noHistory marks identities with no transactions so misses are cached too.
	noHistory = "none"
)

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

var _ redisClient = (*redis.Client)(nil)

type CachedSource struct {
	next   borrower.HistorySource
	client redisClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ borrower.HistorySource = (*CachedSource)(nil)

func NewCachedSource(next borrower.HistorySource, client redisClient, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if next == nil || client == nil {
		panic("CachedSource requires a history source and a redis client")
	}
	return &CachedSource{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "CachedHistorySource"),
	}
}

func (c *CachedSource) NetBalance(ctx context.Context, aadharID string) (decimal.Decimal, bool, error) {
	key := keyPrefix + aadharID

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cached == noHistory {
			return decimal.Zero, false, nil
		}
		if balance, parseErr := decimal.NewFromString(cached); parseErr == nil {
			return balance, true, nil
		}
		c.logger.WarnContext(ctx, "Discarding corrupt cached balance", slog.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.WarnContext(ctx, "Redis lookup failed, falling back to source", slog.Any("error", err))
	}

	balance, found, err := c.next.NetBalance(ctx, aadharID)
	if err != nil {
		return decimal.Zero, false, err
	}

	value := noHistory
	if found {
		value = balance.String()
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Failed to cache net balance", slog.String("key", key), slog.Any("error", err))
	}
	return balance, found, nil
}
