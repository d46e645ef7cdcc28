// webhook-sink recebe as notificações do relay e só as registra no log.
// Útil para testar localmente sem um webhook real:
//
//	go run ./cmd/webhook-sink --port 9000
//	WEBHOOK_URL=http://localhost:9000/hook go run ./cmd/error-relay
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"error-relay/internal/logging"
	"error-relay/internal/webhook"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/cobra"
)

func main() {
	var (
		host   string
		port   int
		status int
	)

	root := &cobra.Command{
		Use:          "webhook-sink",
		Short:        "Local webhook receiver that logs every delivered notification",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _, err := logging.New(logging.Options{Format: logging.FormatConsole})
			if err != nil {
				return err
			}
			return run(cmd.Context(), logger, net.JoinHostPort(host, strconv.Itoa(port)), status)
		},
	}
	root.Flags().StringVar(&host, "host", "127.0.0.1", "interface to listen on")
	root.Flags().IntVar(&port, "port", 9000, "port to listen on")
	root.Flags().IntVar(&status, "status", http.StatusNoContent, "status code to answer with (use 500 to exercise delivery failures)")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, logger zerolog.Logger, addr string, status int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
		var p webhook.Payload
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&p); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("invalid payload")
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		hlog.FromRequest(r).Info().Str("path", r.URL.Path).Msg("notification received\n" + p.Content)
		w.WriteHeader(status)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           logging.Middleware(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Int("status", status).Msg("webhook sink listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server error")
		return err
	}
	return nil
}
