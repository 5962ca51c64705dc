package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/agentstation/refdata/internal/server/response"
)

func newTestLimiter(t *testing.T, limit int) *RateLimiter {
	t.Helper()
	logger := zerolog.Nop()
	rl := NewRateLimiter(limit, &logger)
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiterAllow(t *testing.T) {
	rl := newTestLimiter(t, 3)

	for range 3 {
		assert.True(t, rl.allow("10.0.0.1"))
	}
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "limits are per IP")
}

func TestRateLimiterWindowExpires(t *testing.T) {
	rl := newTestLimiter(t, 1)
	rl.window = 20 * time.Millisecond

	assert.True(t, rl.allow("ip"))
	assert.False(t, rl.allow("ip"))
	time.Sleep(30 * time.Millisecond)
	assert.True(t, rl.allow("ip"))
}

func TestRateLimiterTake(t *testing.T) {
	rl := newTestLimiter(t, 2)

	assert.Equal(t, 1, rl.take("ip"))
	assert.Equal(t, 0, rl.take("ip"))
	assert.Equal(t, -1, rl.take("ip"))

	secs := rl.retryAfter("ip")
	assert.True(t, secs >= 1 && secs <= 60, "retry after %d", secs)
	assert.Equal(t, 1, rl.retryAfter("unknown"))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := newTestLimiter(t, 1)
	rl.window = 10 * time.Millisecond
	rl.allow("stale")
	time.Sleep(20 * time.Millisecond)
	rl.window = time.Minute
	rl.allow("fresh")

	rl.windows.DeleteExpired()

	assert.Equal(t, 1, rl.windows.ItemCount())
	_, ok := rl.windows.Get("fresh")
	assert.True(t, ok)
}

func TestRateLimiterConcurrent(t *testing.T) {
	rl := newTestLimiter(t, 50)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.allow("shared") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 50, allowed.Load())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{"remote addr", "192.0.2.1:5555", "", "192.0.2.1"},
		{"forwarded", "192.0.2.1:5555", "203.0.113.9", "203.0.113.9"},
		{"forwarded chain", "192.0.2.1:5555", "203.0.113.9, 10.0.0.1", "203.0.113.9"},
		{"no port", "192.0.2.1", "", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := newTestLimiter(t, 2)
	h := RateLimit(rl)(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for range 3 {
		last = httptest.NewRecorder()
		h.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/api/config", nil))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Equal(t, response.CodeRateLimited, decodeError(t, last).Code)
}
