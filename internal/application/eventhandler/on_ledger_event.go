package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LEDGER EVENT: METRICS
// ═══════════════════════════════════════════════════════════════════════════

// LedgerRecorder - счётчики доменных событий.
type LedgerRecorder interface {
	ActivityIngested(kind string)
	LevelUp()
	PreferenceChanged(option string, enabled bool)
}

// OnLedgerEventMetrics переводит доменные события в счётчики.
type OnLedgerEventMetrics struct {
	recorder LedgerRecorder
}

// NewOnLedgerEventMetrics создаёт обработчик метрик.
func NewOnLedgerEventMetrics(recorder LedgerRecorder) *OnLedgerEventMetrics {
	return &OnLedgerEventMetrics{recorder: recorder}
}

// Handle реализует shared.EventHandler.
func (h *OnLedgerEventMetrics) Handle(event shared.Event) error {
	switch e := event.(type) {
	case shared.ActivityRecordedEvent:
		h.recorder.ActivityIngested(e.Kind)
	case shared.LevelUpEvent:
		h.recorder.LevelUp()
	case shared.PreferencesUpdatedEvent:
		h.recorder.PreferenceChanged(e.Option, e.Enabled)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// ON LEDGER EVENT: LEADERBOARD SNAPSHOT
// Поддерживает снимок рейтинга в актуальном состоянии между
// плановыми перестроениями.
// ═══════════════════════════════════════════════════════════════════════════

// OnXPChangedHandler обновляет XP участника в снимке рейтинга.
type OnXPChangedHandler struct {
	leaderboard member.Leaderboard
	logger      *slog.Logger
	timeout     time.Duration
}

// NewOnXPChangedHandler создаёт обработчик.
func NewOnXPChangedHandler(leaderboard member.Leaderboard, logger *slog.Logger) *OnXPChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnXPChangedHandler{
		leaderboard: leaderboard,
		logger:      logger.With("handler", "on_xp_changed"),
		timeout:     2 * time.Second,
	}
}

// Handle реализует shared.EventHandler.
func (h *OnXPChangedHandler) Handle(event shared.Event) error {
	var total int64
	switch e := event.(type) {
	case shared.ActivityRecordedEvent:
		if e.XPGained == 0 {
			return nil
		}
		total = e.TotalXP
	case shared.DailyClaimedEvent:
		total = e.TotalXP
	default:
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	userID := shared.UserID(event.AggregateID())
	if err := h.leaderboard.Update(ctx, userID, shared.XP(total)); err != nil {
		h.logger.Warn("failed to update leaderboard snapshot",
			"user_id", userID,
			"error", err,
		)
		return fmt.Errorf("update leaderboard: %w", err)
	}
	return nil
}
