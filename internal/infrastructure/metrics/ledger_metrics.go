// Package metrics exposes Prometheus collectors for the ledger and the bot front-end.
package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// Result labels for commands.
const (
	ResultOK     = "ok"
	ResultDenied = "denied"
	ResultError  = "error"
)

// Low-cardinality reasons for denied or failed operations.
const (
	ReasonCooldown            = "cooldown"
	ReasonUnknownReward       = "unknown_reward"
	ReasonInsufficientCredits = "insufficient_credits"
	ReasonAlreadyOwned        = "already_owned"
	ReasonUnknownUser         = "unknown_user"
	ReasonInvalidOption       = "invalid_option"
	ReasonConflict            = "conflict"
	ReasonDeadlineExceeded    = "deadline_exceeded"
	ReasonUnknown             = "unknown"
)

// Config carries constant labels attached to every collector.
type Config struct {
	ServiceName string
	Environment string
}

// LedgerMetrics holds all ledger collectors.
type LedgerMetrics struct {
	activityIngested  *prometheus.CounterVec
	levelUps          prometheus.Counter
	dailyClaims       *prometheus.CounterVec
	redemptions       *prometheus.CounterVec
	preferenceChanges *prometheus.CounterVec
	sideEffectFails   *prometheus.CounterVec
	storeConflicts    prometheus.Counter
	commandDuration   *prometheus.HistogramVec
	commandPanics     prometheus.Counter
	leaderboardSize   prometheus.Gauge
	leaderboardBuilt  prometheus.Gauge
}

// NewLedgerMetrics creates and registers the ledger collectors.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func NewLedgerMetrics(registerer prometheus.Registerer, cfg Config) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "synthia-bot"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &LedgerMetrics{
		activityIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_activity_ingested_total",
			Help:        "Activity events that changed a record, by kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ledger_level_ups_total",
			Help:        "Level threshold crossings.",
			ConstLabels: constLabels,
		}),
		dailyClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_daily_claims_total",
			Help:        "Daily reward claims by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_redemptions_total",
			Help:        "Reward redemptions by reward and result.",
			ConstLabels: constLabels,
		}, []string{"reward", "result"}),
		preferenceChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_preference_changes_total",
			Help:        "Notification preference toggles by option and value.",
			ConstLabels: constLabels,
		}, []string{"option", "enabled"}),
		sideEffectFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_side_effect_failures_total",
			Help:        "Best-effort side effects that failed, by kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		storeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ledger_store_conflicts_total",
			Help:        "Optimistic concurrency conflicts on record upsert.",
			ConstLabels: constLabels,
		}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "bot_command_duration_seconds",
			Help:        "Gateway event and slash command handling latency.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: constLabels,
		}, []string{"command", "result"}),
		commandPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "bot_command_panics_total",
			Help:        "Recovered panics in gateway handlers.",
			ConstLabels: constLabels,
		}),
		leaderboardSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ledger_leaderboard_members",
			Help:        "Members in the leaderboard snapshot after the last rebuild.",
			ConstLabels: constLabels,
		}),
		leaderboardBuilt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ledger_leaderboard_rebuilt_timestamp_seconds",
			Help:        "Unix time of the last leaderboard snapshot rebuild.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.activityIngested,
		m.levelUps,
		m.dailyClaims,
		m.redemptions,
		m.preferenceChanges,
		m.sideEffectFails,
		m.storeConflicts,
		m.commandDuration,
		m.commandPanics,
		m.leaderboardSize,
		m.leaderboardBuilt,
	)
	return m
}

// ActivityIngested counts a processed activity event.
func (m *LedgerMetrics) ActivityIngested(kind string) {
	m.activityIngested.WithLabelValues(kind).Inc()
}

// LevelUp counts a level threshold crossing.
func (m *LedgerMetrics) LevelUp() {
	m.levelUps.Inc()
}

// DailyClaim counts a daily claim attempt.
func (m *LedgerMetrics) DailyClaim(result string) {
	m.dailyClaims.WithLabelValues(result).Inc()
}

// Redemption counts a redemption attempt.
func (m *LedgerMetrics) Redemption(reward, result string) {
	m.redemptions.WithLabelValues(reward, result).Inc()
}

// PreferenceChanged counts a preference toggle.
func (m *LedgerMetrics) PreferenceChanged(option string, enabled bool) {
	value := "false"
	if enabled {
		value = "true"
	}
	m.preferenceChanges.WithLabelValues(option, value).Inc()
}

// SideEffectFailed counts a failed best-effort side effect.
func (m *LedgerMetrics) SideEffectFailed(kind string) {
	m.sideEffectFails.WithLabelValues(kind).Inc()
}

// StoreConflict counts a version conflict.
func (m *LedgerMetrics) StoreConflict() {
	m.storeConflicts.Inc()
}

// ObserveCommand records handling latency for a command.
func (m *LedgerMetrics) ObserveCommand(command, result string, d time.Duration) {
	m.commandDuration.WithLabelValues(command, result).Observe(d.Seconds())
}

// CommandPanicked counts a recovered panic.
func (m *LedgerMetrics) CommandPanicked() {
	m.commandPanics.Inc()
}

// LeaderboardRebuilt records the outcome of a snapshot rebuild.
func (m *LedgerMetrics) LeaderboardRebuilt(members int, at time.Time) {
	m.leaderboardSize.Set(float64(members))
	m.leaderboardBuilt.Set(float64(at.Unix()))
}

// ClassifyReason maps an error to a low-cardinality label.
func ClassifyReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shared.ErrCooldownActive):
		return ReasonCooldown
	case errors.Is(err, shared.ErrUnknownReward):
		return ReasonUnknownReward
	case errors.Is(err, shared.ErrInsufficientCredits):
		return ReasonInsufficientCredits
	case errors.Is(err, shared.ErrRewardAlreadyOwned):
		return ReasonAlreadyOwned
	case errors.Is(err, shared.ErrUnknownUser):
		return ReasonUnknownUser
	case errors.Is(err, shared.ErrInvalidOption):
		return ReasonInvalidOption
	case errors.Is(err, shared.ErrConcurrentModification):
		return ReasonConflict
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonDeadlineExceeded
	default:
		return ReasonUnknown
	}
}

// ResultOf maps a command error to a result label.
func ResultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case shared.IsUserFacing(err):
		return ResultDenied
	default:
		return ResultError
	}
}
