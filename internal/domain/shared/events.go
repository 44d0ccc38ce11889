package shared

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types published after a record has been persisted.
const (
	// Activity events
	EventActivityRecorded EventType = "activity.recorded"

	// Progress events
	EventLevelUp EventType = "progress.level_up"

	// Ledger events
	EventDailyClaimed   EventType = "ledger.daily_claimed"
	EventRewardRedeemed EventType = "ledger.reward_redeemed"

	// Member events
	EventPreferencesUpdated EventType = "member.preferences_updated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped at the given time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Activity Events
// ═══════════════════════════════════════════════════════════════════════════

// ActivityRecordedEvent is emitted after a message or reaction was counted.
type ActivityRecordedEvent struct {
	BaseEvent
	GuildID  string `json:"guild_id,omitempty"`
	Kind     string `json:"kind"`
	XPGained int64  `json:"xp_gained"`
	TotalXP  int64  `json:"total_xp"`
}

// Payload implements Event interface.
func (e ActivityRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id":  e.GuildID,
		"kind":      e.Kind,
		"xp_gained": e.XPGained,
		"total_xp":  e.TotalXP,
	}
}

// NewActivityRecordedEvent creates a new ActivityRecordedEvent.
func NewActivityRecordedEvent(userID UserID, guildID, kind string, gained, total XP, at time.Time) ActivityRecordedEvent {
	return ActivityRecordedEvent{
		BaseEvent: NewBaseEvent(EventActivityRecorded, userID.String(), at),
		GuildID:   guildID,
		Kind:      kind,
		XPGained:  gained.Int64(),
		TotalXP:   total.Int64(),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// LevelUpEvent is emitted when a member crosses a level threshold.
type LevelUpEvent struct {
	BaseEvent
	GuildID  string `json:"guild_id,omitempty"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	TotalXP  int64  `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id":  e.GuildID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID UserID, guildID string, oldLevel, newLevel Level, total XP, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID.String(), at),
		GuildID:   guildID,
		OldLevel:  oldLevel.Int(),
		NewLevel:  newLevel.Int(),
		TotalXP:   total.Int64(),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Events
// ═══════════════════════════════════════════════════════════════════════════

// DailyClaimedEvent is emitted after a successful daily claim.
type DailyClaimedEvent struct {
	BaseEvent
	XPGained      int64 `json:"xp_gained"`
	CreditsGained int64 `json:"credits_gained"`
	Balance       int64 `json:"balance"`
	TotalXP       int64 `json:"total_xp"`
}

// Payload implements Event interface.
func (e DailyClaimedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"xp_gained":      e.XPGained,
		"credits_gained": e.CreditsGained,
		"balance":        e.Balance,
		"total_xp":       e.TotalXP,
	}
}

// NewDailyClaimedEvent creates a new DailyClaimedEvent.
func NewDailyClaimedEvent(userID UserID, xp XP, credits, balance Credits, total XP, at time.Time) DailyClaimedEvent {
	return DailyClaimedEvent{
		BaseEvent:     NewBaseEvent(EventDailyClaimed, userID.String(), at),
		XPGained:      xp.Int64(),
		CreditsGained: credits.Int64(),
		Balance:       balance.Int64(),
		TotalXP:       total.Int64(),
	}
}

// RewardRedeemedEvent is emitted after credits were spent on a catalog reward.
type RewardRedeemedEvent struct {
	BaseEvent
	RewardKey string `json:"reward_key"`
	Cost      int64  `json:"cost"`
	Balance   int64  `json:"balance"`
}

// Payload implements Event interface.
func (e RewardRedeemedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reward_key": e.RewardKey,
		"cost":       e.Cost,
		"balance":    e.Balance,
	}
}

// NewRewardRedeemedEvent creates a new RewardRedeemedEvent.
func NewRewardRedeemedEvent(userID UserID, rewardKey string, cost, balance Credits, at time.Time) RewardRedeemedEvent {
	return RewardRedeemedEvent{
		BaseEvent: NewBaseEvent(EventRewardRedeemed, userID.String(), at),
		RewardKey: rewardKey,
		Cost:      cost.Int64(),
		Balance:   balance.Int64(),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Member Events
// ═══════════════════════════════════════════════════════════════════════════

// PreferencesUpdatedEvent is emitted when a notification toggle changes.
type PreferencesUpdatedEvent struct {
	BaseEvent
	Option  string `json:"option"`
	Enabled bool   `json:"enabled"`
}

// Payload implements Event interface.
func (e PreferencesUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"option":  e.Option,
		"enabled": e.Enabled,
	}
}

// NewPreferencesUpdatedEvent creates a new PreferencesUpdatedEvent.
func NewPreferencesUpdatedEvent(userID UserID, option string, enabled bool, at time.Time) PreferencesUpdatedEvent {
	return PreferencesUpdatedEvent{
		BaseEvent: NewBaseEvent(EventPreferencesUpdated, userID.String(), at),
		Option:    option,
		Enabled:   enabled,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
