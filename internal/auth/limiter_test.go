package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ogevents/server/internal/logging"
	"github.com/ogevents/server/internal/model"
	"github.com/ogevents/server/internal/repo/repotest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRequestLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisRequestLimiter(client, 3, 10*time.Minute, logging.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "5551234")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}
	ok, err := l.Allow(ctx, "5551234")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "5559999")
	require.NoError(t, err)
	assert.True(t, ok, "other mobiles have their own budget")

	assert.Equal(t, 10*time.Minute, mr.TTL("otp:requests:5551234"))

	mr.FastForward(11 * time.Minute)
	ok, err = l.Allow(ctx, "5551234")
	require.NoError(t, err)
	assert.True(t, ok, "window should reset")
}

func TestRedisRequestLimiter_WindowIsNotExtended(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisRequestLimiter(client, 5, 10*time.Minute, logging.Nop())
	ctx := context.Background()

	_, err := l.Allow(ctx, "5551234")
	require.NoError(t, err)
	mr.FastForward(4 * time.Minute)
	_, err = l.Allow(ctx, "5551234")
	require.NoError(t, err)

	assert.Equal(t, 6*time.Minute, mr.TTL("otp:requests:5551234"))
}

func TestRedisRequestLimiter_RepairsCounterWithoutTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	// counter left behind without an expiry
	require.NoError(t, mr.Set("otp:requests:5551234", "9"))

	l := NewRedisRequestLimiter(client, 3, 10*time.Minute, logging.Nop())
	ok, err := l.Allow(context.Background(), "5551234")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 10*time.Minute, mr.TTL("otp:requests:5551234"))

	mr.FastForward(11 * time.Minute)
	ok, err = l.Allow(context.Background(), "5551234")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRequestLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	l := NewRedisRequestLimiter(client, 1, time.Minute, logging.Nop())
	ok, err := l.Allow(context.Background(), "5551234")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreRequestLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	otps := repotest.NewMemoryOtpRepo()
	otps.Now = func() time.Time { return now }

	l := NewStoreRequestLimiter(otps, 2, 10*time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "5551234")
		require.NoError(t, err)
		assert.True(t, ok)
		_, err = otps.CreateAndSupersede(ctx, model.OtpRecord{Mobile: "5551234", ExpiresAt: now.Add(time.Minute)})
		require.NoError(t, err)
	}

	ok, err := l.Allow(ctx, "5551234")
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(11 * time.Minute)
	ok, err = l.Allow(ctx, "5551234")
	require.NoError(t, err)
	assert.True(t, ok)
}
