package presenter

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthia-live/synthia-bot/internal/application/query"
	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/reward"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[]", ProgressBar(0))
	assert.Equal(t, "[█████]", ProgressBar(0.5))
	assert.Equal(t, "[█████████]", ProgressBar(0.99))
	assert.Equal(t, "[██████████]", ProgressBar(1.7))
	assert.Equal(t, "[]", ProgressBar(-1))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "moins d'une minute", FormatDuration(30*time.Second))
	assert.Equal(t, "42 min", FormatDuration(42*time.Minute))
	assert.Equal(t, "3 h 05 min", FormatDuration(3*time.Hour+5*time.Minute+10*time.Second))
}

func TestNoticeRenderer(t *testing.T) {
	r := NewNoticeRenderer()

	notice, ok := notification.LevelUpNotice("42", "g", "c", 3, 900, notification.Delivery{Public: true, Direct: true})
	require.True(t, ok)
	assert.Equal(t, "🎉 Félicitations <@42>, vous êtes passé au niveau **3** !", r.RenderPublic(notice))
	assert.Equal(t, "Félicitations ! Vous êtes passé au niveau **3** !", r.RenderDirect(notice))

	receipt := notification.DailyRewardReceipt("42", 100, 50, 150)
	assert.Contains(t, r.RenderDirect(receipt), "**+100** XP")
	assert.Contains(t, r.RenderDirect(receipt), "**150** crédits")
}

func TestRankCard(t *testing.T) {
	dto := &query.RankDTO{
		Record:      query.RecordDTO{UserID: "42", XP: 450, Level: 2, Credits: 75},
		Rank:        2,
		Total:       4,
		NextLevel:   3,
		NextLevelXP: 900,
		XPRemaining: 450,
		Progress:    0.5,
	}

	card := RankCard("Alice", dto)
	assert.Equal(t, "Rang de Alice", card.Title)

	values := map[string]string{}
	for _, f := range card.Fields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "**2**", values["Niveau"])
	assert.Equal(t, "**450** / **900**", values["XP"])
	assert.Equal(t, "**450**", values["XP restant"])
	assert.Equal(t, "[█████]", values["Progression"])
	assert.Equal(t, "🥈 **#2** sur 4", values["Classement"])
	assert.Equal(t, "Aucun badge", values["Badges"])
	assert.Equal(t, "**75**", values["Crédits"])
}

func TestLeaderboardCard(t *testing.T) {
	card := LeaderboardCard(&query.GetLeaderboardResult{Entries: []query.StandingDTO{
		{Rank: 1, UserID: "1", XP: 900, Level: 3},
		{Rank: 2, UserID: "2", XP: 450, Level: 2},
		{Rank: 2, UserID: "3", XP: 450, Level: 2},
		{Rank: 4, UserID: "4", XP: 20, Level: 0},
	}})

	require.Len(t, card.Fields, 4)
	assert.Equal(t, "Top 4 des utilisateurs par XP", card.Description)
	assert.Equal(t, "🥇 Niveau 3", card.Fields[0].Name)
	assert.Equal(t, "🥈 Niveau 2", card.Fields[2].Name)
	assert.Equal(t, "4. Niveau 0", card.Fields[3].Name)
	assert.Equal(t, "<@4> - XP **20**", card.Fields[3].Value)

	empty := LeaderboardCard(&query.GetLeaderboardResult{})
	assert.Empty(t, empty.Fields)
	assert.Equal(t, "Personne n'a encore gagné d'XP.", empty.Description)
}

func TestReplies(t *testing.T) {
	assert.Equal(t, "Vous avez réclamé votre récompense quotidienne de **100** XP et **50** crédits !",
		DailyClaimed(100, 50))

	item, err := reward.DefaultCatalog().Lookup("badge_exclusif")
	require.NoError(t, err)
	assert.Equal(t, "Vous avez échangé vos crédits contre **badge_exclusif** ! Solde : **0** crédits.",
		Redeemed(item, 0))

	assert.Equal(t, "Notifications **level_up** désactivées.", PreferenceUpdated(member.OptionLevelUp, false))

	choices := RewardChoices(reward.DefaultCatalog())
	require.Len(t, choices, 2)
	assert.Equal(t, "role_special", choices[0].Value)
}

func TestDenialMessage(t *testing.T) {
	cooldown := &shared.CooldownError{Remaining: 2*time.Hour + 30*time.Minute}
	assert.Contains(t, DenialMessage(fmt.Errorf("claim_daily: %w", cooldown)), "**2 h 30 min**")

	assert.Equal(t, "Vous n'avez pas assez de crédits pour cette récompense.",
		DenialMessage(fmt.Errorf("redeem_reward: %w", shared.ErrInsufficientCredits)))
	assert.Equal(t, "Récompense invalide. Veuillez choisir une récompense valide.",
		DenialMessage(shared.ErrUnknownReward))
	assert.Equal(t, MessageInternalError, DenialMessage(fmt.Errorf("boom")))
}
