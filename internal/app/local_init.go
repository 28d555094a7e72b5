package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/storage/local"
)

const redisPingTimeout = 3 * time.Second

// localTier: фабрика слотов локального уровня и его health check.
type localTier struct {
	slots   cart.SlotFactory
	checker health.Checker
	closeFn func() error
}

func initLocalTier(ctx context.Context, cfg Config, logger *log.Entry) (*localTier, error) {
	switch cfg.LocalDriver {
	case LocalDriverMemory:
		slots := local.NewMemorySlots()
		return &localTier{slots: slots.Slot}, nil

	case LocalDriverFile:
		slots, err := local.NewFileSlots(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		logger.WithField("dir", cfg.LocalDir).Info("cart snapshots stored on disk")
		return &localTier{
			slots: func(deviceID string) domain.SnapshotSlot { return slots.Slot(deviceID) },
		}, nil

	case LocalDriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		slots := local.NewRedisSlots(client, cfg.RedisTTL)

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := slots.Ping(pingCtx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.WithField("addr", cfg.RedisAddr).Info("cart snapshots stored in redis")
		return &localTier{
			slots:   slots.Slot,
			checker: health.NewPingChecker("redis", slots.Ping),
			closeFn: client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported local driver: %q", cfg.LocalDriver)
	}
}

func (l *localTier) close(logger *log.Entry) {
	if l == nil || l.closeFn == nil {
		return
	}
	if err := l.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close local tier")
	}
}
