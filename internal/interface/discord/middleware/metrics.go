package middleware

import (
	"time"

	"github.com/synthia-live/synthia-bot/internal/infrastructure/metrics"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// CommandObserver records command latency and panics.
// *metrics.LedgerMetrics implements it.
type CommandObserver interface {
	ObserveCommand(command, result string, d time.Duration)
	CommandPanicked()
}

// MetricsMiddleware times slash commands and gateway events.
type MetricsMiddleware struct {
	observer CommandObserver
	now      func() time.Time
}

// NewMetricsMiddleware creates the middleware. A nil observer disables it.
func NewMetricsMiddleware(observer CommandObserver) *MetricsMiddleware {
	return &MetricsMiddleware{observer: observer, now: time.Now}
}

// Observe runs fn and records its duration under name. A panic reported by
// the recovery middleware is labelled as an error and counted.
func (m *MetricsMiddleware) Observe(name string, fn func() (*RecoveryResult, error)) (*RecoveryResult, error) {
	start := m.now()
	result, err := fn()
	if m.observer == nil {
		return result, err
	}

	if result != nil && result.Recovered {
		m.observer.CommandPanicked()
		m.observer.ObserveCommand(name, metrics.ResultError, m.now().Sub(start))
		return result, err
	}

	m.observer.ObserveCommand(name, metrics.ResultOf(err), m.now().Sub(start))
	return result, err
}
