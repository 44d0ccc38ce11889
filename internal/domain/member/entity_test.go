package member

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewRecord_Defaults(t *testing.T) {
	rec := NewRecord("123456789", nil, testNow)

	assert.Equal(t, shared.UserID("123456789"), rec.UserID)
	assert.Equal(t, testNow, rec.JoinedAt)
	assert.True(t, rec.Preferences.LevelUp)
	assert.True(t, rec.Preferences.DailyReward)
	assert.Empty(t, rec.Badges)
	assert.Nil(t, rec.LastClaimedDaily)
	assert.True(t, rec.IsNew())
}

func TestNewRecord_UsesGuildJoinTime(t *testing.T) {
	joined := testNow.Add(-72 * time.Hour)
	rec := NewRecord("1", &joined, testNow)

	assert.Equal(t, joined, rec.JoinedAt)
	assert.Equal(t, testNow, rec.CreatedAt)
}

func TestRecord_GainXP(t *testing.T) {
	rec := NewRecord("1", nil, testNow)

	change := rec.GainXP(20)
	assert.False(t, change.Up())
	assert.Equal(t, shared.XP(20), rec.XP)
	assert.Equal(t, shared.Level(0), rec.Level)

	change = rec.GainXP(80)
	assert.True(t, change.Up())
	assert.Equal(t, shared.Level(0), change.From)
	assert.Equal(t, shared.Level(1), change.To)
}

func TestRecord_GainXP_IgnoresNegative(t *testing.T) {
	rec := NewRecord("1", nil, testNow)
	rec.GainXP(50)
	rec.GainXP(-30)

	assert.Equal(t, shared.XP(50), rec.XP)
}

func TestRecord_AddBadge_NoDuplicates(t *testing.T) {
	rec := NewRecord("1", nil, testNow)

	assert.True(t, rec.AddBadge("Level 1"))
	assert.True(t, rec.AddBadge("Badge Exclusif"))
	assert.False(t, rec.AddBadge("Level 1"))

	assert.Equal(t, []string{"Level 1", "Badge Exclusif"}, rec.Badges)
}

func TestRecord_ClaimDaily_First(t *testing.T) {
	rec := NewRecord("1", nil, testNow)

	_, err := rec.ClaimDaily(testNow, 24*time.Hour, 100, 50)
	require.NoError(t, err)

	assert.Equal(t, shared.XP(100), rec.XP)
	assert.Equal(t, shared.Credits(50), rec.Credits)
	assert.Equal(t, shared.Level(1), rec.Level)
	require.NotNil(t, rec.LastClaimedDaily)
	assert.Equal(t, testNow, *rec.LastClaimedDaily)
}

func TestRecord_ClaimDaily_CooldownLeavesRecordUntouched(t *testing.T) {
	rec := NewRecord("1", nil, testNow)
	_, err := rec.ClaimDaily(testNow, 24*time.Hour, 100, 50)
	require.NoError(t, err)
	before := rec.Clone()

	_, err = rec.ClaimDaily(testNow.Add(23*time.Hour), 24*time.Hour, 100, 50)

	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrCooldownActive))
	var cd *shared.CooldownError
	require.True(t, errors.As(err, &cd))
	assert.Equal(t, time.Hour, cd.Remaining)
	assert.Equal(t, testNow.Add(24*time.Hour), cd.NextClaimAt)
	assert.Equal(t, before, rec)
}

func TestRecord_ClaimDaily_ExactlyCooldownAllowed(t *testing.T) {
	rec := NewRecord("1", nil, testNow)
	_, err := rec.ClaimDaily(testNow, 24*time.Hour, 100, 50)
	require.NoError(t, err)

	_, err = rec.ClaimDaily(testNow.Add(24*time.Hour), 24*time.Hour, 100, 50)
	require.NoError(t, err)
	assert.Equal(t, shared.Credits(100), rec.Credits)
}

func TestRecord_Spend(t *testing.T) {
	rec := NewRecord("1", nil, testNow)
	rec.Credits = 120

	err := rec.Spend(150)
	assert.ErrorIs(t, err, shared.ErrInsufficientCredits)
	assert.Equal(t, shared.Credits(120), rec.Credits)

	require.NoError(t, rec.Spend(100))
	assert.Equal(t, shared.Credits(20), rec.Credits)
}

func TestRecord_SetPreference(t *testing.T) {
	rec := NewRecord("1", nil, testNow)

	require.NoError(t, rec.SetPreference(OptionLevelUp, false))
	assert.False(t, rec.Preferences.LevelUp)
	assert.True(t, rec.Preferences.DailyReward)

	assert.ErrorIs(t, rec.SetPreference("weekly", true), shared.ErrInvalidOption)
}

func TestParsePreferenceOption(t *testing.T) {
	opt, err := ParsePreferenceOption("daily_reward")
	require.NoError(t, err)
	assert.Equal(t, OptionDailyReward, opt)

	_, err = ParsePreferenceOption("level-up")
	assert.ErrorIs(t, err, shared.ErrInvalidOption)
}

func TestRecord_Clone_IsDeep(t *testing.T) {
	rec := NewRecord("1", nil, testNow)
	rec.AddBadge("Level 1")
	claimed := testNow
	rec.LastClaimedDaily = &claimed

	cp := rec.Clone()
	cp.Badges[0] = "changed"
	*cp.LastClaimedDaily = testNow.Add(time.Hour)

	assert.Equal(t, "Level 1", rec.Badges[0])
	assert.Equal(t, testNow, *rec.LastClaimedDaily)
}

func TestSnapshotState_Covers(t *testing.T) {
	assert.False(t, SnapshotState{}.Covers(1))

	partial := SnapshotState{BuiltAt: testNow, Depth: 3}
	assert.True(t, partial.Covers(1))
	assert.True(t, partial.Covers(3))
	assert.False(t, partial.Covers(4))
	assert.False(t, partial.Covers(shared.Unranked))

	complete := SnapshotState{BuiltAt: testNow, Depth: 3, Complete: true}
	assert.True(t, complete.Covers(40))
}
