package ratelimit

import (
	"errors"
	"net/http"
	"time"

	"error-relay/middleware/ratelimit/application"
	"error-relay/middleware/ratelimit/infra"

	"github.com/rs/zerolog"
)

// BusyMessage é o corpo da resposta quando não há vaga.
const BusyMessage = "Server is busy, please try again later."

type ConcurrencyOptions struct {
	// Max <= 0 desliga o limite.
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// RetryAfter vai no header da resposta de rejeição (padrão 1s).
	RetryAfter time.Duration
	Message    string
}

// ConcurrencyLimiter segura no máximo Max requests em processamento.
type ConcurrencyLimiter struct {
	opts ConcurrencyOptions
	pool *infra.ChanPool
	svc  application.ConcurrencyService
}

func NewConcurrencyLimiter(opts ConcurrencyOptions) *ConcurrencyLimiter {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = time.Second
	}
	if opts.Message == "" {
		opts.Message = BusyMessage
	}

	l := &ConcurrencyLimiter{opts: opts}
	if opts.Max > 0 {
		l.pool = infra.NewChanPool(opts.Max)
		l.svc = application.ConcurrencyService{Pool: l.pool, AcquireTimeout: opts.AcquireTimeout}
	}
	return l
}

// InFlight é quantas requests estão sendo processadas agora (0 se desligado).
func (l *ConcurrencyLimiter) InFlight() int {
	if l.pool == nil {
		return 0
	}
	return l.pool.InFlight()
}

func (l *ConcurrencyLimiter) Max() int { return l.opts.Max }

func (l *ConcurrencyLimiter) Middleware(next http.Handler) http.Handler {
	if l.pool == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		release, err := l.svc.Acquire(r.Context())
		if err != nil {
			logger := zerolog.Ctx(r.Context())
			if !errors.Is(err, application.ErrNoSlot) {
				// cliente desistiu enquanto esperava; não há para quem responder
				logger.Debug().Err(err).Msg("client gone while waiting for a slot")
				return
			}
			logger.Warn().Int("max", l.opts.Max).Msg("concurrency limit reached")
			w.Header().Set("Retry-After", formatSeconds(l.opts.RetryAfter))
			http.Error(w, l.opts.Message, l.opts.RejectStatus)
			return
		}
		defer release()

		next.ServeHTTP(w, r)
	})
}

// ConcurrencyMiddleware é o atalho para NewConcurrencyLimiter(opts).Middleware.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	return NewConcurrencyLimiter(opts).Middleware
}
