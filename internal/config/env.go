package config

import (
	"os"

	"github.com/hashicorp/go-multierror"
)

// LookupFunc é a assinatura de os.Getenv; testes injetam um mapa.
type LookupFunc func(key string) string

// ApplyEnv aplica variáveis de ambiente sobre cfg, sem sobrescrever flags alteradas.
// Todos os valores inválidos são reportados juntos.
func ApplyEnv(cfg *Config, changed map[string]bool, getenv LookupFunc) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	s := newSetter(changed)
	var errs *multierror.Error
	collect := func(err error) {
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	s.setString("host", getenv("HOST"), &cfg.Host)
	collect(s.setInt("port", getenv("PORT"), &cfg.Port))

	s.setString("webhook-url", getenv("WEBHOOK_URL"), &cfg.WebhookURL)
	collect(s.setDuration("webhook-timeout", getenv("WEBHOOK_TIMEOUT"), &cfg.WebhookTimeout))
	s.setString("notify-mode", getenv("NOTIFY_MODE"), &cfg.NotifyMode)
	collect(s.setInt("notify-workers", getenv("NOTIFY_WORKERS"), &cfg.NotifyWorkers))
	collect(s.setInt("notify-queue-size", getenv("NOTIFY_QUEUE_SIZE"), &cfg.NotifyQueueSize))

	collect(s.setDuration("rate-window", getenv("RATE_WINDOW"), &cfg.RateWindow))
	collect(s.setInt("rate-max", getenv("RATE_MAX"), &cfg.RateMax))
	s.setString("rate-store", getenv("RATE_STORE"), &cfg.RateStore)
	s.setString("rate-key-header", getenv("RATE_KEY_HEADER"), &cfg.RateKeyHeader)
	collect(s.setBool("trust-xff", getenv("TRUST_XFF"), &cfg.TrustXFF))
	collect(s.setBool("ratelimit-headers", getenv("ADD_RATELIMIT_HEADERS"), &cfg.AddRateLimitHeaders))
	collect(s.setBool("rate-stats-redis", getenv("RATE_STATS_REDIS"), &cfg.RateStatsRedis))

	s.setString("redis-addr", getenv("REDIS_ADDR"), &cfg.RedisAddr)
	s.setString("redis-password", getenv("REDIS_PASSWORD"), &cfg.RedisPassword)
	collect(s.setInt("redis-db", getenv("REDIS_DB"), &cfg.RedisDB))
	s.setString("redis-prefix", getenv("REDIS_PREFIX"), &cfg.RedisPrefix)

	collect(s.setInt("concurrency-max", getenv("CONCURRENCY_MAX"), &cfg.ConcurrencyMax))
	collect(s.setDuration("concurrency-timeout", getenv("CONCURRENCY_TIMEOUT"), &cfg.ConcurrencyTimeout))

	s.setList("cors-origin", getenv("CORS_ALLOWED_ORIGINS"), &cfg.CORSAllowedOrigins)
	collect(s.setInt64("max-body-bytes", getenv("MAX_BODY_BYTES"), &cfg.MaxBodyBytes))

	s.setString("log-level", getenv("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", getenv("LOG_FORMAT"), &cfg.LogFormat)
	s.setString("log-file", getenv("LOG_FILE"), &cfg.LogFile)

	return errs.ErrorOrNil()
}
