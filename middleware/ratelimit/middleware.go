package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"error-relay/middleware/ratelimit/application"
	"error-relay/middleware/ratelimit/domain"

	"github.com/rs/zerolog"
)

// DefaultMessage é o corpo da resposta 429.
const DefaultMessage = "Too many requests, please try again later."

type KeyFunc func(r *http.Request) string

type Options struct {
	Limiter             domain.Limiter
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	Message             string
	MinRetryAfter       time.Duration
	AddRateLimitHeaders bool
	Now                 func() time.Time
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				ip, _, _ := strings.Cut(xff, ",")
				if ip = strings.TrimSpace(ip); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// Middleware aplica o rate limit por cliente antes do próximo handler.
// Falha do limiter (ex.: Redis fora) é logada e a request segue.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.Message == "" {
		opts.Message = DefaultMessage
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	svc := application.Service{
		Limiter:       opts.Limiter,
		MinRetryAfter: opts.MinRetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			logger := zerolog.Ctx(r.Context())

			dec, err := svc.Decide(r.Context(), domain.Key(key))
			if err != nil {
				logger.Error().Err(err).Str("client", key).Msg("rate limiter unavailable, allowing request")
			}

			if opts.Stats != nil {
				if err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:       domain.Key(key),
					Route:     r.Method + " " + r.URL.Path,
					Allowed:   dec.Allowed,
					Remaining: dec.Remaining,
					At:        opts.Now(),
				}); err != nil {
					logger.Warn().Err(err).Msg("rate limit stats not recorded")
				}
			}

			if opts.AddRateLimitHeaders && dec.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", formatInt(dec.Limit))
				w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
				if !dec.Allowed {
					w.Header().Set("X-RateLimit-Reset", formatSeconds(dec.RetryAfter))
				}
			}

			if !dec.Allowed {
				logger.Warn().Str("client", key).Dur("retry_after", dec.RetryAfter).Msg("rate limit exceeded")
				w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter))
				http.Error(w, opts.Message, opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
