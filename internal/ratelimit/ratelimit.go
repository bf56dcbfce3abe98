// Package ratelimit throttles the login endpoint per client IP and per
// submitted username. Counters live in redis when one is configured so
// every replica shares them, otherwise in process memory.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"orgstructure/pkg/platform/httputil"
	"orgstructure/pkg/requestcontext"
)

const storePrefix = "orgstructure:ratelimit"

type Middleware struct {
	limiter  *limiter.Limiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every check into a no-op.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// New parses formatted ("10-M", "100-H") and builds a limiter backed by
// client, or by process memory when client is nil.
func New(formatted string, client *goredis.Client, logger *slog.Logger, opts ...Option) (*Middleware, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: storePrefix})
		if err != nil {
			logger.Warn("redis rate limit store unavailable, falling back to memory", "error", err)
			store = nil
		}
	}
	if store == nil {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: storePrefix, CleanUpInterval: time.Minute})
	}
	m := &Middleware{limiter: limiter.New(store, rate), logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m, nil
}

// Login limits attempts per client IP and per form username. Either
// counter reaching the limit rejects the request with 429. Store errors
// fail open.
func (m *Middleware) Login() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			keys := []string{"login:ip:" + requestcontext.ClientIP(ctx)}
			if err := r.ParseForm(); err == nil {
				if username := strings.ToLower(strings.TrimSpace(r.PostForm.Get("username"))); username != "" {
					keys = append(keys, "login:user:"+username)
				}
			}

			var tightest *limiter.Context
			for _, key := range keys {
				result, err := m.limiter.Get(ctx, key)
				if err != nil {
					m.logger.ErrorContext(ctx, "failed to check login rate limit",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
					next.ServeHTTP(w, r)
					return
				}
				if tightest == nil || result.Reached || result.Remaining < tightest.Remaining {
					res := result
					tightest = &res
				}
				if result.Reached {
					break
				}
			}

			addRateLimitHeaders(w, tightest)
			if tightest.Reached {
				m.logger.WarnContext(ctx, "login rate limit exceeded",
					"client_ip", requestcontext.ClientIP(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeRateLimitExceeded(ctx, w, tightest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *limiter.Context) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))
}

func writeRateLimitExceeded(ctx context.Context, w http.ResponseWriter, result *limiter.Context) {
	retryAfter := max(result.Reset-requestcontext.Now(ctx).Unix(), 1)
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate_limit_exceeded",
		"detail":      "Too many login attempts. Please try again later.",
		"retry_after": retryAfter,
	})
}
