package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/ogevents/server/internal/logging"
	"github.com/ogevents/server/internal/repo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const otpRequestKeyPrefix = "otp:requests:"

// RequestLimiter throttles OTP requests per mobile number.
type RequestLimiter interface {
	Allow(ctx context.Context, mobile string) (bool, error)
}

// RedisRequestLimiter counts requests in a fixed window keyed by mobile.
// INCR and EXPIRE NX run in one MULTI so a counter never outlives its window.
// Redis failures are logged and the request is allowed.
type RedisRequestLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
	logger *zap.Logger
}

func NewRedisRequestLimiter(client *redis.Client, max int, window time.Duration, logger *zap.Logger) *RedisRequestLimiter {
	return &RedisRequestLimiter{client: client, max: max, window: window, logger: logger}
}

func (l *RedisRequestLimiter) Allow(ctx context.Context, mobile string) (bool, error) {
	key := otpRequestKeyPrefix + mobile
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		l.logger.Warn("otp rate limit unavailable", logging.Mobile(mobile), zap.Error(err))
		return true, nil
	}
	return incr.Val() <= int64(l.max), nil
}

// StoreRequestLimiter counts OTP records created within the window. Used when Redis is not configured.
type StoreRequestLimiter struct {
	otpRepo repo.OtpRepo
	max     int
	window  time.Duration
	now     func() time.Time
}

func NewStoreRequestLimiter(otpRepo repo.OtpRepo, max int, window time.Duration) *StoreRequestLimiter {
	return &StoreRequestLimiter{otpRepo: otpRepo, max: max, window: window, now: time.Now}
}

func (l *StoreRequestLimiter) Allow(ctx context.Context, mobile string) (bool, error) {
	count, err := l.otpRepo.CountRecentRequests(ctx, mobile, l.now().Add(-l.window))
	if err != nil {
		return false, fmt.Errorf("count recent requests: %w", err)
	}
	return count < l.max, nil
}
