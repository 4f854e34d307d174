package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/deepgram/voxchat/internal/config"
	"github.com/deepgram/voxchat/internal/metrics"
	"github.com/deepgram/voxchat/pkg/httpext"
	"github.com/deepgram/voxchat/pkg/logger"
	"github.com/deepgram/voxchat/pkg/ratelimit"
)

// RateLimit limits requests per client IP under the named limit. Counts are
// shared through counter when it is non-nil, and kept in memory otherwise.
func RateLimit(limitKey string, counter ratelimit.Counter) func(http.Handler) http.Handler {
	cfg := config.GetRateLimitConfig(limitKey)
	return rateLimit(limitKey, cfg, counter)
}

func rateLimit(limitKey string, cfg config.RateLimitConfig, counter ratelimit.Counter) func(http.Handler) http.Handler {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	var limiter ratelimit.Limiter = ratelimit.NewLimiter(window, cfg.MaxHits)
	if counter != nil {
		limiter = ratelimit.NewCounterLimiter(counter, limiter, "ratelimit:"+limitKey+":", window, cfg.MaxHits)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if !limiter.Allow(r.Context(), ip) {
				metrics.RateLimited.WithLabelValues(limitKey).Inc()
				logger.Warn(logger.MIDDLEWARE, "Rate limit exceeded for %s on %s", ip, limitKey)
				httpext.JsonError(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP uses the first X-Forwarded-For hop if behind a proxy, otherwise
// the remote address without its port
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
