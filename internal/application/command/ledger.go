package command

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// LedgerConfig holds the tunables shared by the ledger command handlers.
type LedgerConfig struct {
	// MessageXPMin and MessageXPMax bound the random XP per message (inclusive).
	MessageXPMin int64
	MessageXPMax int64

	// DailyXP and DailyCredits are granted by a successful daily claim.
	DailyXP      shared.XP
	DailyCredits shared.Credits

	// DailyCooldown is the minimum time between two daily claims.
	DailyCooldown time.Duration

	// LevelUpDelivery chooses where level-up notices go.
	LevelUpDelivery notification.Delivery

	// GrantLevelRoles emits a "Level {n}" role grant on level-up.
	GrantLevelRoles bool
}

// DefaultLedgerConfig returns default configuration.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MessageXPMin:    15,
		MessageXPMax:    25,
		DailyXP:         100,
		DailyCredits:    50,
		DailyCooldown:   24 * time.Hour,
		LevelUpDelivery: notification.Delivery{Public: true, Direct: false},
		GrantLevelRoles: true,
	}
}

// XPRoller returns a uniformly distributed XP amount in [min, max].
type XPRoller func(min, max int64) int64

// DefaultXPRoller draws from math/rand.
func DefaultXPRoller(min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + rand.Int63n(max-min+1)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL-UP CONTRACT
// Shared by activity ingestion and the daily claim.
// ══════════════════════════════════════════════════════════════════════════════

// applyLevelUp adds the level badge when the member crossed a threshold
// and wants level-up notifications. It reports whether side effects are due.
func applyLevelUp(rec *member.Record, change member.LevelChange) bool {
	if !change.Up() || !rec.Preferences.LevelUp {
		return false
	}
	rec.AddBadge(change.To.BadgeName())
	return true
}

// levelUpEffects builds the role grant and the single notice for a level-up.
func levelUpEffects(cfg LedgerConfig, rec *member.Record, guildID, channelID string) []notification.Effect {
	effects := make([]notification.Effect, 0, 2)
	if cfg.GrantLevelRoles && guildID != "" {
		effects = append(effects, notification.RoleGrant(rec.UserID, guildID, rec.Level.RoleName()))
	}
	if notice, ok := notification.LevelUpNotice(rec.UserID, guildID, channelID, rec.Level, rec.XP, cfg.LevelUpDelivery); ok {
		effects = append(effects, notice)
	}
	return effects
}

// publishAll publishes events after the record has been persisted.
// Publish failures are logged and never change the command outcome.
func publishAll(publisher shared.EventPublisher, logger *slog.Logger, correlationID string, events []shared.Event) {
	if publisher == nil {
		return
	}
	for _, event := range events {
		if err := publisher.Publish(event); err != nil {
			logger.Warn("failed to publish event",
				slog.String("event_type", string(event.EventType())),
				slog.String("user_id", event.AggregateID()),
				slog.String("correlation_id", correlationID),
				slog.String("error", err.Error()),
			)
		}
	}
}
