package config

import (
	"github.com/spf13/pflag"
)

// BindFlags registra as flags em fs apontando para cfg. Os defaults exibidos são
// os valores atuais de cfg.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Host, "host", cfg.Host, "interface to listen on (empty = all)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")

	fs.StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "webhook that receives error notifications (required)")
	fs.DurationVar(&cfg.WebhookTimeout, "webhook-timeout", cfg.WebhookTimeout, "timeout for each webhook delivery")
	fs.StringVar(&cfg.NotifyMode, "notify-mode", cfg.NotifyMode, "async (respond immediately) or sync (respond after delivery)")
	fs.IntVar(&cfg.NotifyWorkers, "notify-workers", cfg.NotifyWorkers, "webhook workers in async mode")
	fs.IntVar(&cfg.NotifyQueueSize, "notify-queue-size", cfg.NotifyQueueSize, "pending notifications kept in async mode before dropping")

	fs.DurationVar(&cfg.RateWindow, "rate-window", cfg.RateWindow, "rate limit rolling window")
	fs.IntVar(&cfg.RateMax, "rate-max", cfg.RateMax, "max accepted requests per client per window")
	fs.StringVar(&cfg.RateStore, "rate-store", cfg.RateStore, "rate limit backend: memory, token or redis")
	fs.StringVar(&cfg.RateKeyHeader, "rate-key-header", cfg.RateKeyHeader, "header identifying the client (default: remote address)")
	fs.BoolVar(&cfg.TrustXFF, "trust-xff", cfg.TrustXFF, "use the first X-Forwarded-For hop as client address")
	fs.BoolVar(&cfg.AddRateLimitHeaders, "ratelimit-headers", cfg.AddRateLimitHeaders, "send X-RateLimit-* headers")
	fs.BoolVar(&cfg.RateStatsRedis, "rate-stats-redis", cfg.RateStatsRedis, "record rate limit decisions in redis")

	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address (host:port)")
	fs.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "redis database")
	fs.StringVar(&cfg.RedisPrefix, "redis-prefix", cfg.RedisPrefix, "prefix for redis keys")

	fs.IntVar(&cfg.ConcurrencyMax, "concurrency-max", cfg.ConcurrencyMax, "max in-flight requests (0 disables)")
	fs.DurationVar(&cfg.ConcurrencyTimeout, "concurrency-timeout", cfg.ConcurrencyTimeout, "how long to wait for a free slot (0 waits for the client)")

	fs.StringSliceVar(&cfg.CORSAllowedOrigins, "cors-origin", cfg.CORSAllowedOrigins, "allowed CORS origins")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "max report body size")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "console log format: json or console")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "append JSON logs to this file (empty disables)")
}

// Changed devolve o conjunto de flags alteradas explicitamente.
func Changed(fs *pflag.FlagSet) map[string]bool {
	changed := map[string]bool{}
	fs.Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	return changed
}

// Load monta a configuração final: defaults já em cfg (via BindFlags), arquivo,
// ambiente e por fim as flags alteradas, que nunca são sobrescritas.
func Load(cfg *Config, fs *pflag.FlagSet, path string, getenv LookupFunc) error {
	changed := Changed(fs)

	if path == "" && FileExists(DefaultFile) {
		path = DefaultFile
	}
	if path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return err
		}
		if err := ApplyFile(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := ApplyEnv(cfg, changed, getenv); err != nil {
		return err
	}
	return cfg.Validate()
}
