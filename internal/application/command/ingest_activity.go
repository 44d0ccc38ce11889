package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
	"github.com/synthia-live/synthia-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// INGEST ACTIVITY COMMAND
// Turns a qualifying Discord action into XP and activity counters.
// ══════════════════════════════════════════════════════════════════════════════

// ActivityKind defines the kind of activity being ingested.
type ActivityKind string

const (
	// ActivityMessage - a message was posted.
	ActivityMessage ActivityKind = "message"

	// ActivityReaction - a reaction was added.
	ActivityReaction ActivityKind = "reaction"
)

// IngestActivityCommand contains the data of one gateway event.
type IngestActivityCommand struct {
	// UserID is the author of the action.
	UserID shared.UserID

	// GuildID is empty for direct messages.
	GuildID string

	// ChannelID is where the action happened.
	ChannelID string

	// Kind is the kind of activity.
	Kind ActivityKind

	// AuthorIsBot marks events produced by bot accounts.
	AuthorIsBot bool

	// MemberJoinedAt is the guild join time, if known.
	MemberJoinedAt *time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c IngestActivityCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	switch c.Kind {
	case ActivityMessage, ActivityReaction:
		return nil
	default:
		return fmt.Errorf("ingest_activity: unknown activity kind: %q", c.Kind)
	}
}

// IngestActivityResult contains the result of ingesting an activity.
type IngestActivityResult struct {
	// Skipped is true when nothing was written (bot author, unknown reactor).
	Skipped bool

	// Record is the persisted record.
	Record *member.Record

	// XPGained is the XP added by this event.
	XPGained shared.XP

	// LeveledUp is true if the level increased.
	LeveledUp bool

	// Effects must be dispatched by the caller after Handle returns.
	Effects []notification.Effect

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// IngestActivityHandler handles the IngestActivityCommand.
type IngestActivityHandler struct {
	mutator        *RecordMutator
	eventPublisher shared.EventPublisher
	roll           XPRoller
	logger         *slog.Logger
	config         LedgerConfig
}

// NewIngestActivityHandler creates a new IngestActivityHandler.
func NewIngestActivityHandler(
	mutator *RecordMutator,
	eventPublisher shared.EventPublisher,
	roll XPRoller,
	logger *slog.Logger,
	config LedgerConfig,
) *IngestActivityHandler {
	if roll == nil {
		roll = DefaultXPRoller
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestActivityHandler{
		mutator:        mutator,
		eventPublisher: eventPublisher,
		roll:           roll,
		logger:         logger.With(slog.String("component", "ingest_activity")),
		config:         config,
	}
}

// Handle executes the ingest activity command.
func (h *IngestActivityHandler) Handle(ctx context.Context, cmd IngestActivityCommand) (*IngestActivityResult, error) {
	if cmd.AuthorIsBot {
		return &IngestActivityResult{Skipped: true}, nil
	}

	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("ingest_activity: validation failed: %w", err)
	}

	switch cmd.Kind {
	case ActivityReaction:
		return h.handleReaction(ctx, cmd)
	default:
		return h.handleMessage(ctx, cmd)
	}
}

func (h *IngestActivityHandler) handleMessage(ctx context.Context, cmd IngestActivityCommand) (*IngestActivityResult, error) {
	gained := shared.XP(h.roll(h.config.MessageXPMin, h.config.MessageXPMax))

	var change member.LevelChange
	var leveledUp bool

	rec, err := h.mutator.Mutate(ctx, cmd.UserID, CreateIfAbsent, cmd.MemberJoinedAt, func(rec *member.Record) error {
		rec.CountMessage()
		change = rec.GainXP(gained)
		leveledUp = applyLevelUp(rec, change)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest_activity: %w", err)
	}

	now := h.mutator.Now()
	result := &IngestActivityResult{
		Record:    rec,
		XPGained:  gained,
		LeveledUp: change.Up(),
		Events: []shared.Event{
			shared.NewActivityRecordedEvent(rec.UserID, cmd.GuildID, string(ActivityMessage), gained, rec.XP, now),
		},
	}

	if change.Up() {
		result.Events = append(result.Events,
			shared.NewLevelUpEvent(rec.UserID, cmd.GuildID, change.From, change.To, rec.XP, now))
	}
	if leveledUp {
		result.Effects = levelUpEffects(h.config, rec, cmd.GuildID, cmd.ChannelID)
		h.logger.Info("member leveled up",
			logger.UserID(rec.UserID.String()),
			logger.Level(rec.Level.Int()),
			logger.XPAmount(rec.XP.Int64()),
		)
	}

	publishAll(h.eventPublisher, h.logger, cmd.CorrelationID, result.Events)
	return result, nil
}

func (h *IngestActivityHandler) handleReaction(ctx context.Context, cmd IngestActivityCommand) (*IngestActivityResult, error) {
	rec, err := h.mutator.Mutate(ctx, cmd.UserID, SkipIfAbsent, nil, func(rec *member.Record) error {
		rec.CountReaction()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest_activity: %w", err)
	}
	if rec == nil {
		return &IngestActivityResult{Skipped: true}, nil
	}

	result := &IngestActivityResult{
		Record: rec,
		Events: []shared.Event{
			shared.NewActivityRecordedEvent(rec.UserID, cmd.GuildID, string(ActivityReaction), 0, rec.XP, h.mutator.Now()),
		},
	}
	publishAll(h.eventPublisher, h.logger, cmd.CorrelationID, result.Events)
	return result, nil
}
