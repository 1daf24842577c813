package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/polarishq/polaris/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyWebhookSource = "polaris:rl:webhook:%s:%s"
	keyAPIActor      = "polaris:rl:api:%s"
)

// SurfaceLimiter throttles the two public surfaces: webhook intake per
// source and ip, and the session API per actor. A nil limiter allows
// everything, so callers never branch on configuration.
type SurfaceLimiter struct {
	enabled bool

	bucket *TokenBucket

	webhookRate  float64
	webhookBurst int
	apiRate      float64
	apiBurst     int
}

func NewSurfaceLimiter(cfg config.Config) (*SurfaceLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.WebhookRate <= 0 || limitCfg.WebhookBurst <= 0 {
		return nil, errors.New("webhook rate limit must be positive")
	}
	if limitCfg.APIRate <= 0 || limitCfg.APIBurst <= 0 {
		return nil, errors.New("api rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &SurfaceLimiter{
		enabled:      true,
		bucket:       NewTokenBucket(client),
		webhookRate:  limitCfg.WebhookRate,
		webhookBurst: limitCfg.WebhookBurst,
		apiRate:      limitCfg.APIRate,
		apiBurst:     limitCfg.APIBurst,
	}, nil
}

func (l *SurfaceLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *SurfaceLimiter) AllowWebhook(ctx context.Context, source, remoteIP string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyWebhookSource, strings.TrimSpace(source), strings.TrimSpace(remoteIP))
	return l.bucket.Allow(ctx, key, l.webhookRate, l.webhookBurst)
}

func (l *SurfaceLimiter) AllowAPI(ctx context.Context, actorKey string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyAPIActor, strings.TrimSpace(actorKey))
	return l.bucket.Allow(ctx, key, l.apiRate, l.apiBurst)
}
