package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 3)
	t.Cleanup(rl.Stop)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("ip:1.2.3.4"))
	}
	assert.False(t, rl.Allow("ip:1.2.3.4"))
	assert.True(t, rl.Allow("ip:5.6.7.8"))
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 1)
	t.Cleanup(rl.Stop)

	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))

	rl.evictIdle(time.Now().Add(3 * time.Minute))
	assert.True(t, rl.Allow("k"), "evicted key starts with a fresh bucket")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 1)
	t.Cleanup(rl.Stop)
	h := RateLimitMiddleware(rl, GetIPKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/send-otp", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.RemoteAddr = "10.0.0.1:6666"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"Too many requests"}`, rec.Body.String())
}

func TestGetIPKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.10:1234"
	assert.Equal(t, "ip:192.168.1.10", GetIPKey(req))

	req.RemoteAddr = "192.168.1.10"
	assert.Equal(t, "ip:192.168.1.10", GetIPKey(req))
}
