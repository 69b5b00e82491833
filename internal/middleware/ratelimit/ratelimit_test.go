package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("owner:a"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("owner:a"))
	assert.True(t, rl.Allow("owner:b"), "keys are independent")
	assert.Equal(t, int64(1), rl.GetMetrics().TotalHits)

	*now = now.Add(20 * time.Second)
	assert.Equal(t, 40, rl.RetryAfter("owner:a"))

	*now = now.Add(41 * time.Second)
	assert.True(t, rl.Allow("owner:a"), "window resets")
}

func TestLimiter_DefaultsAndCleanup(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	assert.Equal(t, 60, rl.requestsPerMinute)

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("ip:1.2.3.4")
	require.Equal(t, 1, rl.ActiveClients())

	now = now.Add(11 * time.Minute)
	rl.cleanupStaleEntries()
	assert.Zero(t, rl.ActiveClients())

	rl.Stop()
	rl.Stop()
}

func TestMiddleware_OnlyMutatingMethods(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "k" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/budgets", nil))
		return rr
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost).Code)
	rr := do(http.MethodDelete)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, do(http.MethodGet).Code, "reads are never limited")
}

func TestIsMutating(t *testing.T) {
	assert.False(t, IsMutating(http.MethodGet))
	assert.False(t, IsMutating(http.MethodHead))
	assert.True(t, IsMutating(http.MethodPatch))
	assert.True(t, IsMutating(http.MethodPost))
}
