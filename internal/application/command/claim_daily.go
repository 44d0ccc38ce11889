package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLAIM DAILY COMMAND
// Grants the daily XP and credits, gated by a cooldown on the last claim.
// ══════════════════════════════════════════════════════════════════════════════

// ClaimDailyCommand contains the data to claim the daily reward.
type ClaimDailyCommand struct {
	// UserID is the claiming member.
	UserID shared.UserID

	// GuildID and ChannelID locate the interaction, for level-up side effects.
	GuildID   string
	ChannelID string

	// MemberJoinedAt is used if the record has to be created.
	MemberJoinedAt *time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ClaimDailyCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	return nil
}

// ClaimDailyResult contains the result of a successful claim.
type ClaimDailyResult struct {
	Record        *member.Record
	XPGained      shared.XP
	CreditsGained shared.Credits
	LeveledUp     bool

	// Effects must be dispatched by the caller after Handle returns.
	Effects []notification.Effect

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ClaimDailyHandler handles the ClaimDailyCommand.
type ClaimDailyHandler struct {
	mutator        *RecordMutator
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
	config         LedgerConfig
}

// NewClaimDailyHandler creates a new ClaimDailyHandler.
func NewClaimDailyHandler(
	mutator *RecordMutator,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config LedgerConfig,
) *ClaimDailyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimDailyHandler{
		mutator:        mutator,
		eventPublisher: eventPublisher,
		logger:         logger.With(slog.String("component", "claim_daily")),
		config:         config,
	}
}

// Handle executes the claim daily command.
// A claim inside the cooldown returns an error matching shared.ErrCooldownActive
// (a *shared.CooldownError with the remaining time) and writes nothing.
func (h *ClaimDailyHandler) Handle(ctx context.Context, cmd ClaimDailyCommand) (*ClaimDailyResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("claim_daily: validation failed: %w", err)
	}

	var change member.LevelChange
	var leveledUp bool

	rec, err := h.mutator.Mutate(ctx, cmd.UserID, CreateIfAbsent, cmd.MemberJoinedAt, func(rec *member.Record) error {
		var err error
		change, err = rec.ClaimDaily(h.mutator.Now(), h.config.DailyCooldown, h.config.DailyXP, h.config.DailyCredits)
		if err != nil {
			return err
		}
		leveledUp = applyLevelUp(rec, change)
		return nil
	})
	if err != nil {
		var cooldown *shared.CooldownError
		if errors.As(err, &cooldown) {
			h.logger.Debug("daily claim on cooldown",
				slog.String("user_id", cmd.UserID.String()),
				slog.Duration("remaining", cooldown.Remaining),
			)
		}
		return nil, fmt.Errorf("claim_daily: %w", err)
	}

	now := h.mutator.Now()
	result := &ClaimDailyResult{
		Record:        rec,
		XPGained:      h.config.DailyXP,
		CreditsGained: h.config.DailyCredits,
		LeveledUp:     change.Up(),
		Events: []shared.Event{
			shared.NewDailyClaimedEvent(rec.UserID, h.config.DailyXP, h.config.DailyCredits, rec.Credits, rec.XP, now),
		},
	}

	if change.Up() {
		result.Events = append(result.Events,
			shared.NewLevelUpEvent(rec.UserID, cmd.GuildID, change.From, change.To, rec.XP, now))
	}
	if leveledUp {
		result.Effects = append(result.Effects, levelUpEffects(h.config, rec, cmd.GuildID, cmd.ChannelID)...)
	}
	if rec.Preferences.DailyReward {
		result.Effects = append(result.Effects,
			notification.DailyRewardReceipt(rec.UserID, h.config.DailyXP, h.config.DailyCredits, rec.Credits))
	}

	h.logger.Info("daily reward claimed",
		slog.String("user_id", rec.UserID.String()),
		slog.Int64("credits", rec.Credits.Int64()),
		slog.Int64("xp", rec.XP.Int64()),
	)

	publishAll(h.eventPublisher, h.logger, cmd.CorrelationID, result.Events)
	return result, nil
}
