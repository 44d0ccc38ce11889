package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

func TestClassifyReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"cooldown", &shared.CooldownError{Remaining: time.Hour}, ReasonCooldown},
		{"wrapped_cooldown", fmt.Errorf("claim_daily: %w", shared.ErrCooldownActive), ReasonCooldown},
		{"unknown_reward", shared.ErrUnknownReward, ReasonUnknownReward},
		{"insufficient", shared.ErrInsufficientCredits, ReasonInsufficientCredits},
		{"owned", shared.ErrRewardAlreadyOwned, ReasonAlreadyOwned},
		{"unknown_user", shared.ErrUnknownUser, ReasonUnknownUser},
		{"invalid_option", shared.ErrInvalidOption, ReasonInvalidOption},
		{"conflict", shared.ErrRecordConflict, ReasonConflict},
		{"deadline", context.DeadlineExceeded, ReasonDeadlineExceeded},
		{"unknown", errors.New("boom"), ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyReason(tc.err))
		})
	}
}

func TestResultOf(t *testing.T) {
	assert.Equal(t, ResultOK, ResultOf(nil))
	assert.Equal(t, ResultDenied, ResultOf(shared.ErrInsufficientCredits))
	assert.Equal(t, ResultError, ResultOf(errors.New("disk full")))
}

func TestLedgerMetrics_Counters(t *testing.T) {
	m := NewLedgerMetrics(prometheus.NewRegistry(), Config{Environment: "test"})

	m.ActivityIngested("message")
	m.ActivityIngested("message")
	m.DailyClaim(ResultDenied)
	m.Redemption("badge_exclusif", ResultOK)
	m.SideEffectFailed("role_grant")
	m.StoreConflict()
	m.LevelUp()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.activityIngested.WithLabelValues("message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dailyClaims.WithLabelValues(ResultDenied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptions.WithLabelValues("badge_exclusif", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sideEffectFails.WithLabelValues("role_grant")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.levelUps))
}

func TestLedgerMetrics_LeaderboardGauges(t *testing.T) {
	m := NewLedgerMetrics(prometheus.NewRegistry(), Config{})
	at := time.Unix(1760000000, 0)

	m.LeaderboardRebuilt(42, at)

	assert.Equal(t, 42.0, testutil.ToFloat64(m.leaderboardSize))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.leaderboardBuilt))
}
