package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"error-relay/internal/report"

	"github.com/rs/zerolog"
)

type Mode string

const (
	ModeAsync Mode = "async"
	ModeSync  Mode = "sync"

	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAsync, ModeSync:
		return Mode(s), nil
	case "":
		return ModeAsync, nil
	default:
		return "", fmt.Errorf("unknown notify mode %q (want async or sync)", s)
	}
}

type Options struct {
	Mode      Mode
	Workers   int
	QueueSize int
	Metrics   *Metrics
}

// Notifier implementa report.Notifier sobre um Client.
type Notifier struct {
	client  *Client
	logger  zerolog.Logger
	metrics *Metrics
	mode    Mode
	workers int

	mu     sync.RWMutex
	queue  chan report.ErrorReport
	closed bool

	startOnce sync.Once
	wg        sync.WaitGroup
}

var _ report.Notifier = (*Notifier)(nil)

func NewNotifier(client *Client, logger zerolog.Logger, opts Options) *Notifier {
	if opts.Mode == "" {
		opts.Mode = ModeAsync
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	n := &Notifier{
		client:  client,
		logger:  logger.With().Str("component", "webhook").Logger(),
		metrics: opts.Metrics,
		mode:    opts.Mode,
		workers: opts.Workers,
	}
	if n.mode == ModeAsync {
		n.queue = make(chan report.ErrorReport, opts.QueueSize)
	}
	return n
}

func (n *Notifier) Mode() Mode { return n.mode }

// Start sobe os workers do modo async. No modo sync não faz nada.
func (n *Notifier) Start() {
	if n.mode != ModeAsync {
		return
	}
	n.startOnce.Do(func() {
		for range n.workers {
			n.wg.Add(1)
			go n.worker()
		}
		n.logger.Info().
			Str("url", RedactURL(n.client.URL())).
			Int("workers", n.workers).
			Int("queue", cap(n.queue)).
			Dur("timeout", n.client.Timeout()).
			Msg("webhook notifier started")
	})
}

// Close para de aceitar relatos e espera os workers drenarem a fila.
func (n *Notifier) Close() {
	if n.mode != ModeAsync {
		return
	}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	n.wg.Wait()
}

// Notify entrega (sync) ou enfileira (async) o relato. Nunca devolve erro.
func (n *Notifier) Notify(ctx context.Context, r report.ErrorReport) {
	if n.mode == ModeSync {
		// a entrega não deve ser cancelada se o cliente desconectar
		n.deliver(context.WithoutCancel(ctx), r)
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		n.drop(r, "notifier closed")
		return
	}
	select {
	case n.queue <- r:
	default:
		n.drop(r, "queue full")
	}
}

func (n *Notifier) drop(r report.ErrorReport, reason string) {
	n.metrics.dropped()
	n.logger.Warn().
		Str("reason", reason).
		Str("errorMessage", r.ErrorMessage).
		Msg("webhook notification dropped")
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for r := range n.queue {
		n.deliver(context.Background(), r)
	}
}

func (n *Notifier) deliver(ctx context.Context, r report.ErrorReport) {
	start := time.Now()
	err := n.client.Post(ctx, FormatContent(r))
	elapsed := time.Since(start)

	if err != nil {
		n.metrics.observe("error", elapsed.Seconds())
		n.logger.Error().
			Err(err).
			Str("url", RedactURL(n.client.URL())).
			Str("errorMessage", r.ErrorMessage).
			Dur("elapsed", elapsed).
			Msg("webhook delivery failed")
		return
	}

	n.metrics.observe("success", elapsed.Seconds())
	n.logger.Debug().Dur("elapsed", elapsed).Msg("webhook delivered")
}
