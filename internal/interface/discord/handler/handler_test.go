package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/synthia-live/synthia-bot/internal/application/command"
	"github.com/synthia-live/synthia-bot/internal/application/query"
	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/reward"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/presenter"
)

// ─────────────────────────────────────────────────────────────────────────────
// Моки
// ─────────────────────────────────────────────────────────────────────────────

type mockRankQuery struct{ mock.Mock }

func (m *mockRankQuery) Handle(ctx context.Context, q query.GetRankQuery) (*query.RankDTO, error) {
	args := m.Called(ctx, q)
	dto, _ := args.Get(0).(*query.RankDTO)
	return dto, args.Error(1)
}

type mockLeaderboardQuery struct{ mock.Mock }

func (m *mockLeaderboardQuery) Handle(ctx context.Context, q query.GetLeaderboardQuery) (*query.GetLeaderboardResult, error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).(*query.GetLeaderboardResult)
	return res, args.Error(1)
}

type mockClaimer struct{ mock.Mock }

func (m *mockClaimer) Handle(ctx context.Context, cmd command.ClaimDailyCommand) (*command.ClaimDailyResult, error) {
	args := m.Called(ctx, cmd)
	res, _ := args.Get(0).(*command.ClaimDailyResult)
	return res, args.Error(1)
}

type mockRedeemer struct{ mock.Mock }

func (m *mockRedeemer) Handle(ctx context.Context, cmd command.RedeemRewardCommand) (*command.RedeemRewardResult, error) {
	args := m.Called(ctx, cmd)
	res, _ := args.Get(0).(*command.RedeemRewardResult)
	return res, args.Error(1)
}

type mockUpdater struct{ mock.Mock }

func (m *mockUpdater) Handle(ctx context.Context, cmd command.UpdatePreferencesCommand) (*command.UpdatePreferencesResult, error) {
	args := m.Called(ctx, cmd)
	res, _ := args.Get(0).(*command.UpdatePreferencesResult)
	return res, args.Error(1)
}

type outcomes struct {
	daily       []string
	redemptions []string
}

func (o *outcomes) DailyClaim(result string) { o.daily = append(o.daily, result) }

func (o *outcomes) Redemption(reward, result string) {
	o.redemptions = append(o.redemptions, reward+":"+result)
}

var caller = Caller{UserID: "42", GuildID: "g", ChannelID: "c"}

// ─────────────────────────────────────────────────────────────────────────────
// /rank
// ─────────────────────────────────────────────────────────────────────────────

func TestRankHandler_DefaultsToCaller(t *testing.T) {
	q := new(mockRankQuery)
	q.On("Handle", mock.Anything, query.GetRankQuery{UserID: "42"}).
		Return(&query.RankDTO{Record: query.RecordDTO{UserID: "42", XP: 450, Level: 2}, Rank: 1, Total: 1, NextLevelXP: 900, Progress: 0.5}, nil)

	resp, err := NewRankHandler(q).Handle(context.Background(), RankRequest{Caller: caller})
	require.NoError(t, err)
	require.NotNil(t, resp.Embed)
	assert.Equal(t, "Rang de <@42>", resp.Embed.Title)
	q.AssertExpectations(t)
}

func TestRankHandler_OtherMember(t *testing.T) {
	q := new(mockRankQuery)
	q.On("Handle", mock.Anything, query.GetRankQuery{UserID: "7"}).
		Return(&query.RankDTO{Record: query.RecordDTO{UserID: "7"}}, nil)

	resp, err := NewRankHandler(q).Handle(context.Background(), RankRequest{Caller: caller, TargetID: "7", TargetName: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Rang de Bob", resp.Embed.Title)
}

func TestRankHandler_NoData(t *testing.T) {
	q := new(mockRankQuery)
	q.On("Handle", mock.Anything, mock.Anything).Return(nil, shared.ErrUnknownUser)

	resp, err := NewRankHandler(q).Handle(context.Background(), RankRequest{Caller: caller})
	assert.ErrorIs(t, err, shared.ErrUnknownUser)
	require.NotNil(t, resp)
	assert.Equal(t, presenter.MessageNoRankData, resp.Content)
	assert.True(t, resp.Ephemeral)
}

func TestRankHandler_StoreFailure(t *testing.T) {
	q := new(mockRankQuery)
	q.On("Handle", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	resp, err := NewRankHandler(q).Handle(context.Background(), RankRequest{Caller: caller})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

// ─────────────────────────────────────────────────────────────────────────────
// /leaderboard
// ─────────────────────────────────────────────────────────────────────────────

func TestLeaderboardHandler(t *testing.T) {
	q := new(mockLeaderboardQuery)
	q.On("Handle", mock.Anything, query.GetLeaderboardQuery{Limit: 0}).
		Return(&query.GetLeaderboardResult{Entries: []query.StandingDTO{{Rank: 1, UserID: "1", XP: 10}}}, nil)

	resp, err := NewLeaderboardHandler(q).Handle(context.Background(), LeaderboardRequest{Caller: caller})
	require.NoError(t, err)
	require.Len(t, resp.Embed.Fields, 1)
}

// ─────────────────────────────────────────────────────────────────────────────
// /daily
// ─────────────────────────────────────────────────────────────────────────────

func TestDailyHandler_Success(t *testing.T) {
	effects := []notification.Effect{notification.DailyRewardReceipt("42", 100, 50, 50)}
	claimer := new(mockClaimer)
	claimer.On("Handle", mock.Anything, mock.MatchedBy(func(cmd command.ClaimDailyCommand) bool {
		return cmd.UserID == "42" && cmd.GuildID == "g" && cmd.ChannelID == "c"
	})).Return(&command.ClaimDailyResult{XPGained: 100, CreditsGained: 50, Effects: effects}, nil)
	rec := &outcomes{}

	resp, err := NewDailyHandler(claimer, rec).Handle(context.Background(), caller)
	require.NoError(t, err)
	assert.Equal(t, presenter.DailyClaimed(100, 50), resp.Content)
	assert.Equal(t, effects, resp.Effects)
	assert.Equal(t, []string{"ok"}, rec.daily)
}

func TestDailyHandler_Cooldown(t *testing.T) {
	claimer := new(mockClaimer)
	cooldown := &shared.CooldownError{Remaining: 5 * time.Hour}
	claimer.On("Handle", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("claim_daily: %w", cooldown))
	rec := &outcomes{}

	resp, err := NewDailyHandler(claimer, rec).Handle(context.Background(), caller)
	assert.ErrorIs(t, err, shared.ErrCooldownActive)
	require.NotNil(t, resp)
	assert.True(t, resp.Ephemeral)
	assert.Contains(t, resp.Content, "5 h 00 min")
	assert.Empty(t, resp.Effects)
	assert.Equal(t, []string{"denied"}, rec.daily)
}

func TestDailyHandler_StoreFailure(t *testing.T) {
	claimer := new(mockClaimer)
	claimer.On("Handle", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	rec := &outcomes{}

	resp, err := NewDailyHandler(claimer, rec).Handle(context.Background(), caller)
	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, []string{"error"}, rec.daily)
}

// ─────────────────────────────────────────────────────────────────────────────
// /redeem
// ─────────────────────────────────────────────────────────────────────────────

func TestRedeemHandler_Success(t *testing.T) {
	item, err := reward.DefaultCatalog().Lookup("role_special")
	require.NoError(t, err)
	grant := notification.RoleGrant("42", "g", "Special")

	redeemer := new(mockRedeemer)
	redeemer.On("Handle", mock.Anything, command.RedeemRewardCommand{UserID: "42", RewardKey: "role_special", GuildID: "g"}).
		Return(&command.RedeemRewardResult{
			Record:  &member.Record{UserID: "42", Credits: 20},
			Reward:  item,
			Effects: []notification.Effect{grant},
		}, nil)
	rec := &outcomes{}

	resp, err := NewRedeemHandler(redeemer, rec).Handle(context.Background(), RedeemRequest{Caller: caller, RewardKey: "role_special"})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "**role_special**")
	assert.Contains(t, resp.Content, "**20** crédits")
	assert.Equal(t, []notification.Effect{grant}, resp.Effects)
	assert.Equal(t, []string{"role_special:ok"}, rec.redemptions)
}

func TestRedeemHandler_Denials(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		err     error
		label   string
		message string
	}{
		{"unknown reward", "free_money", shared.ErrUnknownReward, "unknown:denied", "Récompense invalide. Veuillez choisir une récompense valide."},
		{"insufficient credits", "badge_exclusif", shared.ErrInsufficientCredits, "badge_exclusif:denied", "Vous n'avez pas assez de crédits pour cette récompense."},
		{"no record", "badge_exclusif", shared.ErrUnknownUser, "badge_exclusif:denied", "Vous n'avez pas encore de crédits."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			redeemer := new(mockRedeemer)
			redeemer.On("Handle", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("redeem_reward: %w", tc.err))
			rec := &outcomes{}

			resp, err := NewRedeemHandler(redeemer, rec).Handle(context.Background(), RedeemRequest{Caller: caller, RewardKey: tc.key})
			assert.ErrorIs(t, err, tc.err)
			require.NotNil(t, resp)
			assert.Equal(t, tc.message, resp.Content)
			assert.Equal(t, []string{tc.label}, rec.redemptions)
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// /notifications
// ─────────────────────────────────────────────────────────────────────────────

func TestNotificationsHandler(t *testing.T) {
	updater := new(mockUpdater)
	updater.On("Handle", mock.Anything, command.UpdatePreferencesCommand{UserID: "42", Option: "level_up", Enabled: false}).
		Return(&command.UpdatePreferencesResult{Option: member.OptionLevelUp, Enabled: false}, nil)

	resp, err := NewNotificationsHandler(updater).Handle(context.Background(), NotificationsRequest{
		Caller: caller, Option: "level_up", Enabled: false,
	})
	require.NoError(t, err)
	assert.Equal(t, "Notifications **level_up** désactivées.", resp.Content)
	assert.True(t, resp.Ephemeral)
}

func TestNotificationsHandler_InvalidOption(t *testing.T) {
	updater := new(mockUpdater)
	updater.On("Handle", mock.Anything, mock.Anything).Return(nil, shared.ErrInvalidOption)

	resp, err := NewNotificationsHandler(updater).Handle(context.Background(), NotificationsRequest{Caller: caller, Option: "spam"})
	assert.ErrorIs(t, err, shared.ErrInvalidOption)
	require.NotNil(t, resp)
	assert.Contains(t, resp.Content, "Option invalide")
}
