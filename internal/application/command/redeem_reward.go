package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/reward"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDEEM REWARD COMMAND
// Debits credits against the reward catalog and grants the badge or role.
// ══════════════════════════════════════════════════════════════════════════════

// RedeemRewardCommand contains the data to redeem a reward.
type RedeemRewardCommand struct {
	UserID    shared.UserID
	RewardKey string

	// GuildID is required for role rewards to take effect.
	GuildID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RedeemRewardCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	return nil
}

// RedeemRewardResult contains the result of a successful redemption.
type RedeemRewardResult struct {
	Record *member.Record
	Reward reward.Reward

	// Effects must be dispatched by the caller after Handle returns.
	Effects []notification.Effect

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RedeemRewardHandler handles the RedeemRewardCommand.
type RedeemRewardHandler struct {
	mutator        *RecordMutator
	catalog        *reward.Catalog
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewRedeemRewardHandler creates a new RedeemRewardHandler.
func NewRedeemRewardHandler(
	mutator *RecordMutator,
	catalog *reward.Catalog,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *RedeemRewardHandler {
	if catalog == nil {
		catalog = reward.DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedeemRewardHandler{
		mutator:        mutator,
		catalog:        catalog,
		eventPublisher: eventPublisher,
		logger:         logger.With(slog.String("component", "redeem_reward")),
	}
}

// Handle executes the redeem command.
//
// Errors: shared.ErrUnknownReward, shared.ErrUnknownUser,
// shared.ErrInsufficientCredits and shared.ErrRewardAlreadyOwned.
// None of them debit credits.
func (h *RedeemRewardHandler) Handle(ctx context.Context, cmd RedeemRewardCommand) (*RedeemRewardResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("redeem_reward: validation failed: %w", err)
	}

	item, err := h.catalog.Lookup(cmd.RewardKey)
	if err != nil {
		return nil, fmt.Errorf("redeem_reward: %w", err)
	}

	rec, err := h.mutator.Mutate(ctx, cmd.UserID, MustExist, nil, func(rec *member.Record) error {
		if item.Kind == reward.KindBadge && rec.HasBadge(item.Grant) {
			return shared.ErrRewardAlreadyOwned
		}
		if err := rec.Spend(item.Cost); err != nil {
			return err
		}
		if item.Kind == reward.KindBadge {
			rec.AddBadge(item.Grant)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redeem_reward: %w", err)
	}

	result := &RedeemRewardResult{
		Record: rec,
		Reward: item,
		Events: []shared.Event{
			shared.NewRewardRedeemedEvent(rec.UserID, string(item.Key), item.Cost, rec.Credits, h.mutator.Now()),
		},
	}
	if item.Kind == reward.KindRole && cmd.GuildID != "" {
		result.Effects = append(result.Effects, notification.RoleGrant(rec.UserID, cmd.GuildID, item.Grant))
	}

	h.logger.Info("reward redeemed",
		slog.String("user_id", rec.UserID.String()),
		slog.String("reward", string(item.Key)),
		slog.Int64("balance", rec.Credits.Int64()),
	)

	publishAll(h.eventPublisher, h.logger, cmd.CorrelationID, result.Events)
	return result, nil
}
