package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"central-illustration/internal/apierr"

	"golang.org/x/time/rate"
)

const maxTrackedKeys = 10000

// KeyedLimiter keeps one token bucket per key.
type KeyedLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// PerMinute allows n events per minute per key, with bursts of up to n.
func PerMinute(n int) *KeyedLimiter {
	if n < 1 {
		n = 1
	}
	return &KeyedLimiter{
		limit:    rate.Every(time.Minute / time.Duration(n)),
		burst:    n,
		limiters: map[string]*rate.Limiter{},
	}
}

func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	l, ok := k.limiters[key]
	if !ok {
		if len(k.limiters) >= maxTrackedKeys {
			k.limiters = map[string]*rate.Limiter{}
		}
		l = rate.NewLimiter(k.limit, k.burst)
		k.limiters[key] = l
	}
	k.mu.Unlock()
	return l.Allow()
}

// clientKey prefers the authenticated user over the remote address.
func clientKey(r *http.Request) string {
	if u, ok := UserFrom(r.Context()); ok {
		return "user:" + u.ID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// RateLimit rejects requests over the limiter's budget with 429.
func RateLimit(l *KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientKey(r)) {
				w.Header().Set("Retry-After", "60")
				apierr.Write(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
