package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/agentstation/refdata/internal/server/response"
)

// RateLimiter counts requests per client IP in fixed windows. A window
// opens on the first request from an IP and expires after one minute.
type RateLimiter struct {
	limit   int
	window  time.Duration
	windows *cache.Cache
	logger  *zerolog.Logger

	done chan struct{}
	stop sync.Once
}

// NewRateLimiter allows limit requests per minute per IP. Stop ends the
// background sweep of expired windows.
func NewRateLimiter(limit int, logger *zerolog.Logger) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  time.Minute,
		windows: cache.New(cache.NoExpiration, 0),
		logger:  logger,
		done:    make(chan struct{}),
	}
	go rl.sweep(5 * time.Minute)
	return rl
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stop.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.windows.DeleteExpired()
		}
	}
}

// take counts one request from ip and returns how many remain in the
// current window. A negative result means the request is over the limit.
func (rl *RateLimiter) take(ip string) int {
	for {
		if rl.windows.Add(ip, 1, rl.window) == nil {
			return rl.limit - 1
		}
		n, err := rl.windows.IncrementInt(ip, 1)
		if err == nil {
			return rl.limit - n
		}
		// the window expired between Add and IncrementInt
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	return rl.take(ip) >= 0
}

// retryAfter is the number of whole seconds until ip's window closes.
func (rl *RateLimiter) retryAfter(ip string) int {
	_, expires, ok := rl.windows.GetWithExpiration(ip)
	if !ok {
		return 1
	}
	return max(1, int(math.Ceil(time.Until(expires).Seconds())))
}

// clientIP prefers the first X-Forwarded-For hop, then the remote host.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimit rejects requests over the per-IP limit with 429 and reports
// the budget in X-RateLimit-* headers.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	limit := strconv.Itoa(rl.limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			remaining := rl.take(ip)

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))

			if remaining < 0 {
				rl.logger.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(ip)))
				response.Fail(w, http.StatusTooManyRequests, response.CodeRateLimited,
					"Too many requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
