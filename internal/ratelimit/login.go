package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/mywill/internal/config"
	"github.com/smallbiznis/mywill/internal/observability/metrics"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// five attempts, then one every 12 seconds
	loginBurst = 5
	loginRate  = 1.0 / 12
)

// AuthLimiter throttles credential-bearing endpoints per email and client IP.
// A nil limiter, or one without Redis, allows everything.
type AuthLimiter struct {
	bucket  *TokenBucket
	metrics *metrics.Metrics
	log     *zap.Logger
}

type AuthLimiterParams struct {
	fx.In

	Lc      fx.Lifecycle
	Cfg     config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func NewAuthLimiter(p AuthLimiterParams) *AuthLimiter {
	l := &AuthLimiter{metrics: p.Metrics, log: p.Log.Named("ratelimit.auth")}
	if p.Cfg.RedisAddr == "" {
		l.log.Info("redis not configured, auth throttling disabled")
		return l
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Cfg.RedisAddr,
		Password: p.Cfg.RedisPassword,
		DB:       p.Cfg.RedisDB,
	})
	l.bucket = NewTokenBucket(client)
	p.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return l
}

// Allow reports whether another attempt for endpoint by (email, ip) may proceed.
// Redis failures fail open and are logged.
func (l *AuthLimiter) Allow(ctx context.Context, endpoint, email, ip string) (bool, time.Duration) {
	if l == nil || l.bucket == nil {
		return true, 0
	}

	key := "auth:" + endpoint + ":" + strings.ToLower(strings.TrimSpace(email)) + ":" + ip
	res, err := l.bucket.Allow(ctx, key, loginRate, loginBurst)
	if err != nil {
		l.log.Warn("auth rate limit check failed", zap.String("endpoint", endpoint), zap.Error(err))
		return true, 0
	}
	if !res.Allowed {
		l.metrics.RecordRateLimitDenied(ctx, endpoint, "throttled")
		return false, res.RetryAfter
	}
	l.metrics.RecordRateLimitAllowed(ctx, endpoint)
	return true, 0
}
