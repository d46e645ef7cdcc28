// Package logging constrói o logger zerolog do relay (console + arquivo) e o
// middleware de request baseado em hlog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Options struct {
	Level  string
	Format string
	// File recebe linhas JSON em modo append; vazio desliga.
	File string
	// Console substitui os.Stdout (testes).
	Console io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New devolve o logger e um Closer para o arquivo de log, que deve ser fechado no shutdown.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	switch strings.ToLower(opts.Format) {
	case "", FormatJSON:
	case FormatConsole:
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("unknown log format %q (want json or console)", opts.Format)
	}

	var closer io.Closer = nopCloser{}
	out := console
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		closer = f
		out = zerolog.MultiLevelWriter(console, f)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Str("service", "error-relay").Logger()
	return logger, closer, nil
}

// ParseLevel aceita os nomes do zerolog; vazio vira info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}
