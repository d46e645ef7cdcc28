// Package config monta a configuração do relay: defaults, arquivo TOML, variáveis
// de ambiente e flags, nessa ordem de precedência.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"error-relay/internal/webhook"

	"github.com/hashicorp/go-multierror"
)

const (
	RateStoreMemory = "memory"
	RateStoreToken  = "token"
	RateStoreRedis  = "redis"
)

// Config é montada uma vez no startup e passada por valor; nada é alterado em runtime.
type Config struct {
	Host string
	Port int

	WebhookURL      string
	WebhookTimeout  time.Duration
	NotifyMode      string
	NotifyWorkers   int
	NotifyQueueSize int

	RateWindow          time.Duration
	RateMax             int
	RateStore           string
	RateKeyHeader       string
	TrustXFF            bool
	AddRateLimitHeaders bool
	RateStatsRedis      bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Default devolve a configuração padrão: porta 3000, 100 requests por minuto por cliente.
func Default() Config {
	return Config{
		Port:                3000,
		WebhookTimeout:      webhook.DefaultTimeout,
		NotifyMode:          string(webhook.ModeAsync),
		NotifyWorkers:       webhook.DefaultWorkers,
		NotifyQueueSize:     webhook.DefaultQueueSize,
		RateWindow:          time.Minute,
		RateMax:             100,
		RateStore:           RateStoreMemory,
		AddRateLimitHeaders: true,
		RedisPrefix:         "error-relay",
		ConcurrencyMax:      100,
		CORSAllowedOrigins:  []string{"*"},
		MaxBodyBytes:        100 << 10,
		LogLevel:            "info",
		LogFormat:           "json",
		LogFile:             "error.log",
	}
}

// Addr é o endereço de escuta do servidor HTTP.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NeedsRedis indica se algum componente usa Redis.
func (c Config) NeedsRedis() bool {
	return c.RateStore == RateStoreRedis || c.RateStatsRedis
}

// Validate devolve todas as violações de uma vez.
func (c Config) Validate() error {
	var errs *multierror.Error

	if err := webhook.ValidateURL(c.WebhookURL); err != nil {
		errs = multierror.Append(errs, err)
	}
	if c.WebhookTimeout <= 0 {
		errs = multierror.Append(errs, errors.New("webhook timeout must be positive"))
	}
	if _, err := webhook.ParseMode(c.NotifyMode); err != nil {
		errs = multierror.Append(errs, err)
	}
	if c.NotifyWorkers <= 0 {
		errs = multierror.Append(errs, errors.New("notify workers must be positive"))
	}
	if c.NotifyQueueSize <= 0 {
		errs = multierror.Append(errs, errors.New("notify queue size must be positive"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = multierror.Append(errs, fmt.Errorf("port must be in 1..65535, got %d", c.Port))
	}
	if c.RateWindow <= 0 {
		errs = multierror.Append(errs, errors.New("rate window must be positive"))
	}
	if c.RateMax <= 0 {
		errs = multierror.Append(errs, errors.New("rate max must be positive"))
	}
	switch c.RateStore {
	case RateStoreMemory, RateStoreToken, RateStoreRedis:
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown rate store %q (want memory, token or redis)", c.RateStore))
	}
	if c.NeedsRedis() && c.RedisAddr == "" {
		errs = multierror.Append(errs, errors.New("redis addr is required when rate store is redis or redis stats are enabled"))
	}
	if c.ConcurrencyMax < 0 {
		errs = multierror.Append(errs, errors.New("concurrency max must be >= 0"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = multierror.Append(errs, errors.New("max body bytes must be positive"))
	}

	return errs.ErrorOrNil()
}

// Redacted devolve uma cópia segura para log.
func (c Config) Redacted() Config {
	out := c
	out.WebhookURL = webhook.RedactURL(c.WebhookURL)
	if out.RedisPassword != "" {
		out.RedisPassword = "*****"
	}
	return out
}
