package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prohmpiriya/role-portal/internal/httperr"
	"github.com/prohmpiriya/role-portal/pkg/logger"
	pkgredis "github.com/prohmpiriya/role-portal/pkg/redis"
	"github.com/prohmpiriya/role-portal/pkg/response"
	"github.com/prohmpiriya/role-portal/pkg/telemetry"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Rate limit per second per key
	RequestsPerSecond float64
	// Burst size (token bucket capacity)
	BurstSize int
	// Key prefix for Redis
	KeyPrefix string
	// Cleanup interval for local rate limiter
	CleanupInterval time.Duration
	// Entry TTL for local rate limiter
	EntryTTL time.Duration
}

// DefaultRateLimitConfig allows 5 login attempts per second per IP with a burst of 10
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 5,
		BurstSize:         10,
		KeyPrefix:         "ratelimit:",
		CleanupInterval:   time.Minute,
		EntryTTL:          5 * time.Minute,
	}
}

// Limiter decides whether one more request for key fits in its bucket
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimiter keeps one token bucket per key in process memory
type LocalRateLimiter struct {
	config  RateLimitConfig
	mu      sync.Mutex
	entries map[string]*localEntry
	stop    chan struct{}
	once    sync.Once
}

// NewLocalRateLimiter creates a new local rate limiter
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	rl := &LocalRateLimiter{
		config:  config,
		entries: make(map[string]*localEntry),
		stop:    make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go rl.cleanup()
	}
	return rl
}

func (rl *LocalRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()

	rl.mu.Lock()
	e, ok := rl.entries[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)}
		rl.entries[key] = e
	}
	e.lastSeen = now
	rl.mu.Unlock()

	return e.limiter.AllowN(now, 1), nil
}

// cleanup periodically removes idle buckets
func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.config.EntryTTL)
			rl.mu.Lock()
			for key, e := range rl.entries {
				if e.lastSeen.Before(cutoff) {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *LocalRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

local elapsed = math.max(0, now - last_update)
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_update", tostring(now))
redis.call("EXPIRE", key, math.ceil(burst / rate) + 1)
return {allowed, math.floor(tokens)}
`

// RedisRateLimiter shares token buckets across instances through Redis
type RedisRateLimiter struct {
	client *pkgredis.Client
	config RateLimitConfig
	now    func() time.Time
}

// NewRedisRateLimiter creates a new Redis rate limiter
func NewRedisRateLimiter(client *pkgredis.Client, config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, config: config, now: time.Now}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(rl.now().UnixNano()) / 1e9

	values, err := rl.client.EvalWithFallback(ctx, "token_bucket", tokenBucketScript,
		[]string{rl.config.KeyPrefix + key},
		rl.config.RequestsPerSecond,
		rl.config.BurstSize,
		strconv.FormatFloat(now, 'f', 6, 64),
	).Slice()
	if err != nil {
		return false, err
	}
	if len(values) < 2 {
		return false, fmt.Errorf("unexpected result length: %d", len(values))
	}
	allowed, ok := values[0].(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type %T", values[0])
	}
	return allowed == 1, nil
}

// RateLimit limits requests per client IP within scope. Limiter errors fail open.
func RateLimit(limiter Limiter, scope string, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Get()
	}

	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "middleware.rate_limiter")
		defer span.End()

		clientIP := c.ClientIP()
		span.SetAttributes(attribute.String("client_ip", clientIP), attribute.String("scope", scope))

		allowed, err := limiter.Allow(ctx, scope+":"+clientIP)
		if err != nil {
			log.WithContext(ctx).Warn("rate limiter unavailable, allowing request", zap.String("scope", scope), zap.Error(err))
			allowed = true
		}
		span.SetAttributes(attribute.Bool("allowed", allowed))

		if !allowed {
			span.SetStatus(codes.Error, "rate limit exceeded")
			log.WithContext(ctx).Warn("rate limit exceeded", zap.String("scope", scope), zap.String("ip", clientIP))
			c.Header("Retry-After", "1")
			response.Abort(c, http.StatusTooManyRequests, httperr.CodeRateLimited, "Too many requests. Please retry later.")
			return
		}

		c.Next()
	}
}
