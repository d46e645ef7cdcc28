package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultFile é lido quando existe e --config não foi informado.
const DefaultFile = "error-relay.toml"

// FileConfig espelha Config com durações em texto e ponteiros para distinguir
// "ausente" de "zero".
type FileConfig struct {
	Host string `toml:"host"`
	Port *int   `toml:"port"`

	WebhookURL      string `toml:"webhook_url"`
	WebhookTimeout  string `toml:"webhook_timeout"`
	NotifyMode      string `toml:"notify_mode"`
	NotifyWorkers   *int   `toml:"notify_workers"`
	NotifyQueueSize *int   `toml:"notify_queue_size"`

	RateWindow          string `toml:"rate_window"`
	RateMax             *int   `toml:"rate_max"`
	RateStore           string `toml:"rate_store"`
	RateKeyHeader       string `toml:"rate_key_header"`
	TrustXFF            *bool  `toml:"trust_xff"`
	AddRateLimitHeaders *bool  `toml:"ratelimit_headers"`
	RateStatsRedis      *bool  `toml:"rate_stats_redis"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       *int   `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`

	ConcurrencyMax     *int   `toml:"concurrency_max"`
	ConcurrencyTimeout string `toml:"concurrency_timeout"`

	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	MaxBodyBytes       *int64   `toml:"max_body_bytes"`

	LogLevel  string  `toml:"log_level"`
	LogFormat string  `toml:"log_format"`
	LogFile   *string `toml:"log_file"`
}

// LoadFile lê e interpreta um arquivo TOML. Chaves desconhecidas são erro.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	f, err := os.Open(path)
	if err != nil {
		return fc, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// FileExists indica se há um arquivo em p.
func FileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func setPtr[T any](s *setter, flag string, v *T, dst *T) {
	if v == nil || s.changed[flag] {
		return
	}
	*dst = *v
}

// ApplyFile aplica fc sobre cfg, sem sobrescrever flags alteradas.
func ApplyFile(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newSetter(changed)

	s.setString("host", fc.Host, &cfg.Host)
	setPtr(s, "port", fc.Port, &cfg.Port)

	s.setString("webhook-url", fc.WebhookURL, &cfg.WebhookURL)
	s.setString("notify-mode", fc.NotifyMode, &cfg.NotifyMode)
	setPtr(s, "notify-workers", fc.NotifyWorkers, &cfg.NotifyWorkers)
	setPtr(s, "notify-queue-size", fc.NotifyQueueSize, &cfg.NotifyQueueSize)

	setPtr(s, "rate-max", fc.RateMax, &cfg.RateMax)
	s.setString("rate-store", fc.RateStore, &cfg.RateStore)
	s.setString("rate-key-header", fc.RateKeyHeader, &cfg.RateKeyHeader)
	setPtr(s, "trust-xff", fc.TrustXFF, &cfg.TrustXFF)
	setPtr(s, "ratelimit-headers", fc.AddRateLimitHeaders, &cfg.AddRateLimitHeaders)
	setPtr(s, "rate-stats-redis", fc.RateStatsRedis, &cfg.RateStatsRedis)

	s.setString("redis-addr", fc.RedisAddr, &cfg.RedisAddr)
	s.setString("redis-password", fc.RedisPassword, &cfg.RedisPassword)
	setPtr(s, "redis-db", fc.RedisDB, &cfg.RedisDB)
	s.setString("redis-prefix", fc.RedisPrefix, &cfg.RedisPrefix)

	setPtr(s, "concurrency-max", fc.ConcurrencyMax, &cfg.ConcurrencyMax)
	if len(fc.CORSAllowedOrigins) > 0 && !s.changed["cors-origin"] {
		cfg.CORSAllowedOrigins = fc.CORSAllowedOrigins
	}
	setPtr(s, "max-body-bytes", fc.MaxBodyBytes, &cfg.MaxBodyBytes)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	setPtr(s, "log-file", fc.LogFile, &cfg.LogFile)

	if err := s.setDuration("webhook-timeout", fc.WebhookTimeout, &cfg.WebhookTimeout); err != nil {
		return err
	}
	if err := s.setDuration("rate-window", fc.RateWindow, &cfg.RateWindow); err != nil {
		return err
	}
	if err := s.setDuration("concurrency-timeout", fc.ConcurrencyTimeout, &cfg.ConcurrencyTimeout); err != nil {
		return err
	}
	return nil
}
