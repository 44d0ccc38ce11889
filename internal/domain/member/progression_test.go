package member

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

func TestLevelForXP_KnownValues(t *testing.T) {
	cases := []struct {
		xp    shared.XP
		level shared.Level
	}{
		{0, 0},
		{20, 0},
		{99, 0},
		{100, 1},
		{399, 1},
		{400, 2},
		{2500, 5},
		{9900, 12},
		{9925, 12},
		{10600, 12},
		{10700, 13},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelForXP(tc.xp), "xp=%d", tc.xp)
	}
}

func TestLevelForXP_NegativeIsZero(t *testing.T) {
	assert.Equal(t, shared.Level(0), LevelForXP(-500))
}

func TestLevelForXP_NonDecreasing(t *testing.T) {
	prev := LevelForXP(0)
	for xp := shared.XP(1); xp <= 250000; xp += 7 {
		cur := LevelForXP(xp)
		assert.GreaterOrEqual(t, cur, prev, "xp=%d", xp)
		prev = cur
	}
}

func TestXPThresholdForLevel(t *testing.T) {
	assert.Equal(t, shared.XP(0), XPThresholdForLevel(0))
	assert.Equal(t, shared.XP(100), XPThresholdForLevel(1))
	assert.Equal(t, shared.XP(400), XPThresholdForLevel(2))
	assert.Equal(t, shared.XP(16900), XPThresholdForLevel(13))
}

func TestXPThresholdForLevel_ReachesLevel(t *testing.T) {
	for l := shared.Level(0); l <= 200; l++ {
		assert.GreaterOrEqual(t, LevelForXP(XPThresholdForLevel(l)), l, "level=%d", l)
	}
}

func TestIsLevelUp(t *testing.T) {
	assert.True(t, IsLevelUp(1, 2))
	assert.False(t, IsLevelUp(2, 2))
	assert.False(t, IsLevelUp(3, 2))
}

func TestProgressFor(t *testing.T) {
	p := ProgressFor(9900)

	assert.Equal(t, shared.Level(12), p.Level)
	assert.Equal(t, shared.Level(13), p.NextLevel)
	assert.Equal(t, shared.XP(16900), p.NextXP)
	assert.Equal(t, shared.XP(7000), p.Remaining)
	assert.InDelta(t, 9900.0/16900.0, p.Ratio, 1e-9)
}

func TestProgressFor_RemainingAlwaysPositive(t *testing.T) {
	for xp := shared.XP(0); xp <= 100000; xp += 13 {
		p := ProgressFor(xp)
		assert.Greater(t, p.Remaining, shared.XP(0), "xp=%d", xp)
		assert.LessOrEqual(t, p.Ratio, 1.0)
	}
}
