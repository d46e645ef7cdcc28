// Package server liga as peças do relay: limiter, notifier, rotas, CORS e o
// ciclo de vida do http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"error-relay/internal/config"
	"error-relay/internal/logging"
	"error-relay/internal/report"
	"error-relay/internal/webhook"
	"error-relay/middleware/ratelimit"
	"error-relay/middleware/ratelimit/domain"
	"error-relay/middleware/ratelimit/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	ReportPath  = "/report-error"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"

	shutdownTimeout  = 10 * time.Second
	redisPingTimeout = 2 * time.Second
)

type janitor interface {
	StartJanitor(ctx infra.DoneContext)
}

type options struct {
	httpClient webhook.HTTPClient
	registry   *prometheus.Registry
	redis      *redis.Client
}

type Option func(*options)

// WithHTTPClient troca o cliente usado para falar com o webhook.
func WithHTTPClient(c webhook.HTTPClient) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRegistry usa reg no lugar de um registry novo (exposto em /metrics).
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithRedis injeta um cliente já conectado. O Server não o fecha.
func WithRedis(rdb *redis.Client) Option {
	return func(o *options) { o.redis = rdb }
}

type Server struct {
	cfg      config.Config
	logger   zerolog.Logger
	handler  http.Handler
	notifier *webhook.Notifier
	janitor  janitor

	rdb       *redis.Client
	ownsRedis bool
}

// New monta o servidor a partir de uma Config já validada.
func New(cfg config.Config, logger zerolog.Logger, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{cfg: cfg, logger: logger}

	reg := o.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.NeedsRedis() {
		rdb, owned, err := connectRedis(cfg, o.redis)
		if err != nil {
			return nil, err
		}
		s.rdb, s.ownsRedis = rdb, owned
	}

	notifier, err := newNotifier(cfg, logger, reg, o.httpClient)
	if err != nil {
		s.closeRedis()
		return nil, err
	}
	s.notifier = notifier

	limiter, err := s.newLimiter()
	if err != nil {
		s.closeRedis()
		return nil, err
	}

	stats, err := s.newStats(reg)
	if err != nil {
		s.closeRedis()
		return nil, err
	}

	mux := http.NewServeMux()
	reportHandler := report.NewHandler(notifier, report.WithMaxBodyBytes(cfg.MaxBodyBytes))
	mux.Handle("POST "+ReportPath, ratelimit.Middleware(ratelimit.Options{
		Limiter:             limiter,
		Stats:               stats,
		KeyHeader:           cfg.RateKeyHeader,
		TrustXForwardedFor:  cfg.TrustXFF,
		AddRateLimitHeaders: cfg.AddRateLimitHeaders,
	})(reportHandler))
	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET "+MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	inflight := ratelimit.NewConcurrencyLimiter(ratelimit.ConcurrencyOptions{
		Max:            cfg.ConcurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.ConcurrencyTimeout,
	})
	if err := registerInFlight(reg, inflight); err != nil {
		s.closeRedis()
		return nil, err
	}

	h := inflight.Middleware(mux)
	h = cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", logging.RequestIDHeader},
		ExposedHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", logging.RequestIDHeader},
	}).Handler(h)
	h = logging.Middleware(logger)(h)

	s.handler = h
	return s, nil
}

func connectRedis(cfg config.Config, injected *redis.Client) (*redis.Client, bool, error) {
	if injected != nil {
		return injected, false, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, false, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return rdb, true, nil
}

func newNotifier(cfg config.Config, logger zerolog.Logger, reg prometheus.Registerer, hc webhook.HTTPClient) (*webhook.Notifier, error) {
	mode, err := webhook.ParseMode(cfg.NotifyMode)
	if err != nil {
		return nil, err
	}
	client, err := webhook.NewClient(cfg.WebhookURL,
		webhook.WithHTTPClient(hc),
		webhook.WithTimeout(cfg.WebhookTimeout),
	)
	if err != nil {
		return nil, err
	}
	metrics, err := webhook.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	return webhook.NewNotifier(client, logger, webhook.Options{
		Mode:      mode,
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
		Metrics:   metrics,
	}), nil
}

func (s *Server) newLimiter() (domain.Limiter, error) {
	switch s.cfg.RateStore {
	case config.RateStoreMemory, "":
		st := infra.NewWindowStore(s.cfg.RateMax, s.cfg.RateWindow)
		s.janitor = st
		return st, nil
	case config.RateStoreToken:
		st := infra.NewTokenStore(s.cfg.RateMax, s.cfg.RateWindow)
		s.janitor = st
		return st, nil
	case config.RateStoreRedis:
		return infra.NewRedisWindowStore(s.rdb, s.cfg.RateMax, s.cfg.RateWindow,
			infra.WithWindowPrefix(s.cfg.RedisPrefix),
		), nil
	default:
		return nil, fmt.Errorf("unknown rate store %q", s.cfg.RateStore)
	}
}

func (s *Server) newStats(reg prometheus.Registerer) (domain.StatsStore, error) {
	prom, err := infra.NewPromStatsStore(reg)
	if err != nil {
		return nil, err
	}
	if !s.cfg.RateStatsRedis {
		return prom, nil
	}
	return infra.MultiStats{
		prom,
		infra.NewRedisStatsStore(s.rdb,
			infra.WithStatsPrefix(s.cfg.RedisPrefix+":stats"),
			infra.WithStatsTrackOffenders(true),
		),
	}, nil
}

func registerInFlight(reg prometheus.Registerer, l *ratelimit.ConcurrencyLimiter) error {
	err := reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "error_relay_inflight_requests",
		Help: "Requests currently holding a concurrency slot.",
	}, func() float64 { return float64(l.InFlight()) }))
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return nil
	}
	return err
}

// Handler é a cadeia completa (logging, CORS, concorrência, rotas).
func (s *Server) Handler() http.Handler { return s.handler }

// Run escuta em cfg.Addr() até ctx encerrar.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		s.closeRedis()
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve atende em ln até ctx encerrar. No retorno a fila do notifier foi drenada
// e o Redis (se próprio) fechado.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	s.notifier.Start()

	g, gctx := errgroup.WithContext(ctx)
	if s.janitor != nil {
		s.janitor.StartJanitor(gctx)
	}

	g.Go(func() error {
		s.logger.Info().
			Str("addr", ln.Addr().String()).
			Str("webhook", webhook.RedactURL(s.cfg.WebhookURL)).
			Str("rate_store", s.cfg.RateStore).
			Int("rate_max", s.cfg.RateMax).
			Dur("rate_window", s.cfg.RateWindow).
			Str("notify_mode", string(s.notifier.Mode())).
			Msg("error relay listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()

	s.notifier.Close()
	s.closeRedis()
	s.logger.Info().Msg("error relay stopped")
	return err
}

func (s *Server) closeRedis() {
	if s.rdb == nil || !s.ownsRedis {
		return
	}
	if err := s.rdb.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("close redis")
	}
	s.rdb = nil
}
