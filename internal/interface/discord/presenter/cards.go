package presenter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/synthia-live/synthia-bot/internal/application/query"
	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/reward"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// Цвета карточек.
const (
	colorBlue = 0x3498DB
	colorGold = 0xF1C40F
)

// ══════════════════════════════════════════════════════════════════════════════
// КАРТОЧКА РАНГА
// ══════════════════════════════════════════════════════════════════════════════

// RankCard строит карточку /rank.
func RankCard(displayName string, dto *query.RankDTO) *discordgo.MessageEmbed {
	badges := "Aucun badge"
	if len(dto.Record.Badges) > 0 {
		badges = strings.Join(dto.Record.Badges, ", ")
	}

	position := fmt.Sprintf("**#%d** sur %d", dto.Rank, dto.Total)
	if medal := shared.Rank(dto.Rank).Medal(); medal != "" {
		position = medal + " " + position
	}

	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Rang de %s", displayName),
		Color: colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Niveau", Value: fmt.Sprintf("**%d**", dto.Record.Level), Inline: true},
			{Name: "XP", Value: fmt.Sprintf("**%d** / **%d**", dto.Record.XP, dto.NextLevelXP), Inline: true},
			{Name: "XP restant", Value: fmt.Sprintf("**%d**", dto.XPRemaining), Inline: true},
			{Name: "Progression", Value: ProgressBar(dto.Progress)},
			{Name: "Classement", Value: position},
			{Name: "Badges", Value: badges},
			{Name: "Crédits", Value: fmt.Sprintf("**%d**", dto.Record.Credits)},
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// КЛАССЕМЕНТ
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCard строит карточку /leaderboard.
func LeaderboardCard(result *query.GetLeaderboardResult) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Classement",
		Description: fmt.Sprintf("Top %d des utilisateurs par XP", len(result.Entries)),
		Color:       colorGold,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Soyez actif pour monter dans le classement et gagner des badges !",
		},
	}

	if len(result.Entries) == 0 {
		embed.Description = "Personne n'a encore gagné d'XP."
		return embed
	}

	for _, entry := range result.Entries {
		prefix := fmt.Sprintf("%d.", entry.Rank)
		if medal := shared.Rank(entry.Rank).Medal(); medal != "" {
			prefix = medal
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s Niveau %d", prefix, entry.Level),
			Value: fmt.Sprintf("%s - XP **%d**", shared.UserID(entry.UserID).Mention(), entry.XP),
		})
	}
	return embed
}

// ══════════════════════════════════════════════════════════════════════════════
// ОТВЕТЫ НА КОМАНДЫ
// ══════════════════════════════════════════════════════════════════════════════

// DailyClaimed - ответ на успешный /daily.
func DailyClaimed(xp shared.XP, credits shared.Credits) string {
	return fmt.Sprintf("Vous avez réclamé votre récompense quotidienne de **%d** XP et **%d** crédits !",
		xp.Int64(), credits.Int64())
}

// Redeemed - ответ на успешный /redeem.
func Redeemed(item reward.Reward, balance shared.Credits) string {
	return fmt.Sprintf("Vous avez échangé vos crédits contre **%s** ! Solde : **%d** crédits.",
		item.Key, balance.Int64())
}

// PreferenceUpdated - ответ на /notifications.
func PreferenceUpdated(option member.PreferenceOption, enabled bool) string {
	state := "désactivées"
	if enabled {
		state = "activées"
	}
	return fmt.Sprintf("Notifications **%s** %s.", option, state)
}

// RewardChoices возвращает варианты для опции /redeem reward.
func RewardChoices(catalog *reward.Catalog) []*discordgo.ApplicationCommandOptionChoice {
	items := catalog.All()
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(items))
	for _, item := range items {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%s (%d crédits)", item.Description, item.Cost.Int64()),
			Value: string(item.Key),
		})
	}
	return choices
}

// ══════════════════════════════════════════════════════════════════════════════
// ОШИБКИ
// ══════════════════════════════════════════════════════════════════════════════

// Текст по умолчанию для непредвиденных ошибок.
const (
	MessageInternalError = "Une erreur est survenue. Veuillez réessayer plus tard."
	MessageNoRankData    = "Cet utilisateur n'a pas encore de données de niveau."
)

// DenialMessage переводит отказ леджера в текст.
// Для прочих ошибок возвращает MessageInternalError.
func DenialMessage(err error) string {
	var cooldown *shared.CooldownError
	switch {
	case errors.As(err, &cooldown):
		return fmt.Sprintf("Vous avez déjà réclamé votre récompense quotidienne aujourd'hui ! Revenez dans **%s**.",
			FormatDuration(cooldown.Remaining))
	case errors.Is(err, shared.ErrCooldownActive):
		return "Vous avez déjà réclamé votre récompense quotidienne aujourd'hui !"
	case errors.Is(err, shared.ErrUnknownReward):
		return "Récompense invalide. Veuillez choisir une récompense valide."
	case errors.Is(err, shared.ErrInsufficientCredits):
		return "Vous n'avez pas assez de crédits pour cette récompense."
	case errors.Is(err, shared.ErrRewardAlreadyOwned):
		return "Vous possédez déjà cette récompense."
	case errors.Is(err, shared.ErrUnknownUser):
		return "Vous n'avez pas encore de crédits."
	case errors.Is(err, shared.ErrInvalidOption):
		return "Option invalide. Choisissez `level_up` ou `daily_reward`."
	default:
		return MessageInternalError
	}
}
