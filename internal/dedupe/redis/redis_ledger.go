package redis

import (
	"context"
	"dexnetwork/internal/config"
	"dexnetwork/internal/dedupe"
	rdb "dexnetwork/internal/stores/redis"
	"fmt"
	"time"

	"gitlab.com/nevasik7/alerting/logger"
)

var _ dedupe.Ledger = (*RedisLedger)(nil)

type RedisLedger struct {
	log    logger.Logger
	rdb    *rdb.Client
	ttl    time.Duration
	prefix string
}

// Shared ledger for runs on several hosts, SET + TTL
// prefix example "dexnetwork:unit:"
func NewRedisLedger(log logger.Logger, cfg *config.LedgerConfig, rdb *rdb.Client) (*RedisLedger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required to the redis ledger")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required to the redis ledger")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "dexnetwork:unit:"
	}

	return &RedisLedger{
		log:    log,
		rdb:    rdb,
		ttl:    cfg.TTL,
		prefix: prefix,
	}, nil
}

func (l *RedisLedger) Done(ctx context.Context, id string) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.prefix+id).Result()
	if err != nil {
		l.log.Errorf("Redis Exists error=%v", err)
		return false, fmt.Errorf("redis Exists error=%w", err)
	}

	return n > 0, nil
}

// MarkDone ttl 0 -> key never expires
func (l *RedisLedger) MarkDone(ctx context.Context, id string) error {
	if err := l.rdb.Set(ctx, l.prefix+id, 1, l.ttl).Err(); err != nil {
		l.log.Errorf("Redis Set error=%v", err)
		return fmt.Errorf("redis Set error=%w", err)
	}

	l.log.Debugf("Unit marked done in redis, unit_id=%s", id)

	return nil
}
