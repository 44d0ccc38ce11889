package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE PREFERENCES COMMAND
// Toggles one notification preference on an existing record.
// ══════════════════════════════════════════════════════════════════════════════

// UpdatePreferencesCommand contains the data to update a preference.
type UpdatePreferencesCommand struct {
	// UserID is the member whose preference changes.
	UserID shared.UserID

	// Option is "level_up" or "daily_reward".
	Option string

	// Enabled is the new value.
	Enabled bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UpdatePreferencesCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if _, err := member.ParsePreferenceOption(c.Option); err != nil {
		return err
	}
	return nil
}

// UpdatePreferencesResult contains the result of updating preferences.
type UpdatePreferencesResult struct {
	Record      *member.Record
	Option      member.PreferenceOption
	Enabled     bool
	Preferences member.Preferences

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UpdatePreferencesHandler handles the UpdatePreferencesCommand.
type UpdatePreferencesHandler struct {
	mutator        *RecordMutator
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewUpdatePreferencesHandler creates a new UpdatePreferencesHandler.
func NewUpdatePreferencesHandler(
	mutator *RecordMutator,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *UpdatePreferencesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdatePreferencesHandler{
		mutator:        mutator,
		eventPublisher: eventPublisher,
		logger:         logger.With(slog.String("component", "update_preferences")),
	}
}

// Handle executes the update preferences command.
// Returns shared.ErrInvalidOption for an unknown key and
// shared.ErrUnknownUser when the member has no record.
func (h *UpdatePreferencesHandler) Handle(ctx context.Context, cmd UpdatePreferencesCommand) (*UpdatePreferencesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_preferences: validation failed: %w", err)
	}
	opt, _ := member.ParsePreferenceOption(cmd.Option)

	rec, err := h.mutator.Mutate(ctx, cmd.UserID, MustExist, nil, func(rec *member.Record) error {
		return rec.SetPreference(opt, cmd.Enabled)
	})
	if err != nil {
		return nil, fmt.Errorf("update_preferences: %w", err)
	}

	result := &UpdatePreferencesResult{
		Record:      rec,
		Option:      opt,
		Enabled:     cmd.Enabled,
		Preferences: rec.Preferences,
		Events: []shared.Event{
			shared.NewPreferencesUpdatedEvent(rec.UserID, string(opt), cmd.Enabled, h.mutator.Now()),
		},
	}

	h.logger.Info("preferences updated",
		slog.String("user_id", rec.UserID.String()),
		slog.String("option", string(opt)),
		slog.Bool("enabled", cmd.Enabled),
	)

	publishAll(h.eventPublisher, h.logger, cmd.CorrelationID, result.Events)
	return result, nil
}
