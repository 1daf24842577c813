package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/polarishq/polaris/internal/config"
	"github.com/polarishq/polaris/internal/entitlement"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	contextKeyPrefix  = "polaris:ctx:"
	defaultContextTTL = 60 * time.Second
)

// UserContextCache stores resolved entitlement contexts between
// requests. Invalidate is called by the reconciler when an identity
// event changes what the actor resolves to.
type UserContextCache interface {
	Get(ctx context.Context, userExternalID string) (entitlement.UserContext, bool)
	Set(ctx context.Context, userExternalID string, uc entitlement.UserContext)
	Invalidate(ctx context.Context, userExternalID string)
}

// NewUserContextCache picks redis when an address is configured and an
// in-process cache otherwise.
func NewUserContextCache(cfg config.Config, log *zap.Logger) UserContextCache {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &memoryContextCache{store: NewTTLCache[string, entitlement.UserContext]()}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	return &redisContextCache{
		client: client,
		log:    log.Named("cache.context"),
		ttl:    defaultContextTTL,
	}
}

type memoryContextCache struct {
	store Cache[string, entitlement.UserContext]
}

func (c *memoryContextCache) Get(_ context.Context, userExternalID string) (entitlement.UserContext, bool) {
	return c.store.Get(userExternalID)
}

func (c *memoryContextCache) Set(_ context.Context, userExternalID string, uc entitlement.UserContext) {
	c.store.Set(userExternalID, uc, defaultContextTTL)
}

func (c *memoryContextCache) Invalidate(_ context.Context, userExternalID string) {
	c.store.Delete(userExternalID)
}

type redisContextCache struct {
	client *redis.Client
	log    *zap.Logger
	ttl    time.Duration
}

func (c *redisContextCache) Get(ctx context.Context, userExternalID string) (entitlement.UserContext, bool) {
	var uc entitlement.UserContext
	raw, err := c.client.Get(ctx, contextKeyPrefix+userExternalID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("context cache read failed", zap.Error(err))
		}
		return uc, false
	}
	if err := json.Unmarshal(raw, &uc); err != nil {
		return uc, false
	}
	return uc, true
}

func (c *redisContextCache) Set(ctx context.Context, userExternalID string, uc entitlement.UserContext) {
	raw, err := json.Marshal(uc)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, contextKeyPrefix+userExternalID, raw, c.ttl).Err(); err != nil {
		c.log.Debug("context cache write failed", zap.Error(err))
	}
}

func (c *redisContextCache) Invalidate(ctx context.Context, userExternalID string) {
	if err := c.client.Del(ctx, contextKeyPrefix+userExternalID).Err(); err != nil {
		c.log.Debug("context cache invalidate failed", zap.Error(err))
	}
}
