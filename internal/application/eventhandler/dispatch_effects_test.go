package eventhandler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) GrantRole(ctx context.Context, guildID, userID, roleName string) error {
	args := m.Called(ctx, guildID, userID, roleName)
	return args.Error(0)
}

func (m *mockSink) SendChannelMessage(ctx context.Context, channelID, content string) error {
	args := m.Called(ctx, channelID, content)
	return args.Error(0)
}

func (m *mockSink) SendDirectMessage(ctx context.Context, userID, content string) error {
	args := m.Called(ctx, userID, content)
	return args.Error(0)
}

type plainRenderer struct{}

func (plainRenderer) RenderPublic(e notification.Effect) string { return "public:" + string(e.Topic) }
func (plainRenderer) RenderDirect(e notification.Effect) string { return "direct:" + string(e.Topic) }

type countingRecorder struct {
	failures map[string]int
}

func (r *countingRecorder) SideEffectFailed(kind string) {
	if r.failures == nil {
		r.failures = map[string]int{}
	}
	r.failures[kind]++
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDispatcher(sink notification.Sink, rec FailureRecorder) *EffectDispatcher {
	return NewEffectDispatcher(sink, plainRenderer{}, rec, quietLogger(), EffectDispatcherConfig{Timeout: time.Second})
}

func levelUpNotice(d notification.Delivery) notification.Effect {
	e, _ := notification.LevelUpNotice("42", "guild", "chan", 3, 1000, d)
	return e
}

func TestEffectDispatcher_LevelUpBothTargets(t *testing.T) {
	sink := new(mockSink)
	sink.On("GrantRole", mock.Anything, "guild", "42", "Level 3").Return(nil)
	sink.On("SendChannelMessage", mock.Anything, "chan", "public:level_up").Return(nil)
	sink.On("SendDirectMessage", mock.Anything, "42", "direct:level_up").Return(nil)

	newDispatcher(sink, nil).Dispatch(context.Background(), []notification.Effect{
		notification.RoleGrant("42", "guild", "Level 3"),
		levelUpNotice(notification.Delivery{Public: true, Direct: true}),
	})

	sink.AssertExpectations(t)
	sink.AssertNumberOfCalls(t, "SendChannelMessage", 1)
	sink.AssertNumberOfCalls(t, "SendDirectMessage", 1)
}

func TestEffectDispatcher_MissingRoleIsSilent(t *testing.T) {
	sink := new(mockSink)
	rec := &countingRecorder{}
	sink.On("GrantRole", mock.Anything, "guild", "42", "Level 3").Return(shared.ErrRoleNotFound)
	sink.On("SendChannelMessage", mock.Anything, "chan", mock.Anything).Return(nil)

	newDispatcher(sink, rec).Dispatch(context.Background(), []notification.Effect{
		notification.RoleGrant("42", "guild", "Level 3"),
		levelUpNotice(notification.Delivery{Public: true}),
	})

	sink.AssertExpectations(t)
	assert.Empty(t, rec.failures)
}

func TestEffectDispatcher_FailuresAreCountedNotPropagated(t *testing.T) {
	sink := new(mockSink)
	rec := &countingRecorder{}
	sink.On("GrantRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("missing permissions"))
	sink.On("SendChannelMessage", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("unknown channel"))
	sink.On("SendDirectMessage", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("cannot send messages to this user"))

	assert.NotPanics(t, func() {
		newDispatcher(sink, rec).Dispatch(context.Background(), []notification.Effect{
			notification.RoleGrant("42", "guild", "Level 3"),
			levelUpNotice(notification.Delivery{Public: true, Direct: true}),
			notification.DailyRewardReceipt("42", 100, 50, 50),
		})
	})

	assert.Equal(t, 1, rec.failures[failureRoleGrant])
	assert.Equal(t, 1, rec.failures[failureChannel])
	assert.Equal(t, 2, rec.failures[failureDirect])
}

func TestEffectDispatcher_RoleGrantWithoutGuildSkipped(t *testing.T) {
	sink := new(mockSink)

	newDispatcher(sink, nil).Dispatch(context.Background(), []notification.Effect{
		notification.RoleGrant("42", "", "Level 3"),
	})

	sink.AssertNotCalled(t, "GrantRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ─────────────────────────────────────────────────────────────────────────────
// Event subscribers
// ─────────────────────────────────────────────────────────────────────────────

type recorderStub struct {
	activities []string
	levelUps   int
	prefs      map[string]bool
}

func (r *recorderStub) ActivityIngested(kind string) { r.activities = append(r.activities, kind) }
func (r *recorderStub) LevelUp()                     { r.levelUps++ }
func (r *recorderStub) PreferenceChanged(option string, enabled bool) {
	if r.prefs == nil {
		r.prefs = map[string]bool{}
	}
	r.prefs[option] = enabled
}

func TestOnLedgerEventMetrics(t *testing.T) {
	rec := &recorderStub{}
	h := NewOnLedgerEventMetrics(rec)
	now := time.Now()

	assert.NoError(t, h.Handle(shared.NewActivityRecordedEvent("42", "g", "message", 20, 20, now)))
	assert.NoError(t, h.Handle(shared.NewLevelUpEvent("42", "g", 0, 1, 100, now)))
	assert.NoError(t, h.Handle(shared.NewPreferencesUpdatedEvent("42", "level_up", false, now)))

	assert.Equal(t, []string{"message"}, rec.activities)
	assert.Equal(t, 1, rec.levelUps)
	assert.Equal(t, map[string]bool{"level_up": false}, rec.prefs)
}

type leaderboardStub struct {
	member.Leaderboard
	updates map[shared.UserID]shared.XP
	err     error
}

func (l *leaderboardStub) Update(_ context.Context, id shared.UserID, xp shared.XP) error {
	if l.err != nil {
		return l.err
	}
	if l.updates == nil {
		l.updates = map[shared.UserID]shared.XP{}
	}
	l.updates[id] = xp
	return nil
}

func TestOnXPChangedHandler(t *testing.T) {
	lb := &leaderboardStub{}
	h := NewOnXPChangedHandler(lb, quietLogger())
	now := time.Now()

	assert.NoError(t, h.Handle(shared.NewActivityRecordedEvent("1", "g", "message", 20, 320, now)))
	assert.NoError(t, h.Handle(shared.NewActivityRecordedEvent("2", "g", "reaction", 0, 50, now)))
	assert.NoError(t, h.Handle(shared.NewDailyClaimedEvent("3", 100, 50, 50, 100, now)))

	assert.Equal(t, map[shared.UserID]shared.XP{"1": 320, "3": 100}, lb.updates)
}

func TestOnXPChangedHandler_ReturnsSnapshotError(t *testing.T) {
	lb := &leaderboardStub{err: errors.New("redis down")}
	h := NewOnXPChangedHandler(lb, quietLogger())

	err := h.Handle(shared.NewDailyClaimedEvent("3", 100, 50, 50, 100, time.Now()))
	assert.Error(t, err)
}
