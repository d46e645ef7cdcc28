package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"error-relay/internal/config"
	"error-relay/internal/logging"
	"error-relay/internal/server"

	"github.com/spf13/cobra"
)

const longHelp = `
Receives runtime errors reported by browsers and apps on POST /report-error,
validates them and forwards a formatted alert to a single webhook
(Discord, Slack-compatible or any endpoint accepting {"content": "..."}).

Configuration: defaults < TOML file (--config or ./error-relay.toml) <
environment (WEBHOOK_URL, PORT, RATE_MAX, ...) < flags.
`

var exampleUsage = strings.TrimSpace(`
  error-relay --webhook-url https://discord.com/api/webhooks/<id>/<token>
  WEBHOOK_URL=http://localhost:9000/hook error-relay --rate-max 20 --rate-window 30s
  error-relay --config /etc/error-relay.toml --rate-store redis --redis-addr 127.0.0.1:6379
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := config.Default()
	var cfgPath string

	root := &cobra.Command{
		Use:           "error-relay",
		Short:         "Relay client-side error reports to a webhook",
		Long:          strings.TrimSpace(longHelp),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(&cfg, cmd.Flags(), cfgPath, os.Getenv); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			logger, closer, err := logging.New(logging.Options{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				File:   cfg.LogFile,
			})
			if err != nil {
				return err
			}
			defer closer.Close()

			logger.Info().Interface("config", cfg.Redacted()).Msg("configuration")

			srv, err := server.New(cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("build server")
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := srv.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server stopped with error")
				return err
			}
			return nil
		},
	}

	fs := root.Flags()
	fs.StringVar(&cfgPath, "config", "", "path to TOML config (default ./"+config.DefaultFile+" if present)")
	config.BindFlags(fs, &cfg)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
