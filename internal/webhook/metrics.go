package webhook

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics conta entregas por resultado e mede a duração do POST.
type Metrics struct {
	sent     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registra os coletores em reg. nil usa um registry descartável.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	sent, err := registerOrReuse(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "error_relay_webhook_send_total",
			Help: "Webhook notification attempts by status (success, error, dropped).",
		},
		[]string{"status"},
	))
	if err != nil {
		return nil, err
	}

	duration, err := registerOrReuse(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "error_relay_webhook_send_duration_seconds",
			Help:    "Duration of webhook HTTP requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	))
	if err != nil {
		return nil, err
	}

	return &Metrics{sent: sent, duration: duration}, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	var zero C
	return zero, err
}

func (m *Metrics) observe(status string, seconds float64) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(status).Inc()
	if seconds >= 0 {
		m.duration.WithLabelValues(status).Observe(seconds)
	}
}

func (m *Metrics) dropped() {
	if m == nil {
		return
	}
	m.sent.WithLabelValues("dropped").Inc()
}
