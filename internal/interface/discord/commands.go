package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/reward"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// SLASH COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// Command names.
const (
	CommandRank          = "rank"
	CommandLeaderboard   = "leaderboard"
	CommandDaily         = "daily"
	CommandRedeem        = "redeem"
	CommandNotifications = "notifications"
)

// Option names.
const (
	optionMember  = "member"
	optionLimit   = "limit"
	optionReward  = "reward"
	optionOption  = "option"
	optionEnabled = "enabled"
)

// ApplicationCommands returns the slash command definitions registered
// on startup.
func ApplicationCommands(catalog *reward.Catalog) []*discordgo.ApplicationCommand {
	minLimit := 1.0

	preferenceChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 2)
	for _, opt := range member.AllPreferenceOptions() {
		preferenceChoices = append(preferenceChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  string(opt),
			Value: string(opt),
		})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandRank,
			Description: "Affiche le rang de l'utilisateur",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        optionMember,
					Description: "Le membre à afficher",
				},
			},
		},
		{
			Name:        CommandLeaderboard,
			Description: "Affiche le classement des utilisateurs",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        optionLimit,
					Description: "Nombre d'utilisateurs à afficher",
					MinValue:    &minLimit,
					MaxValue:    25,
				},
			},
		},
		{
			Name:        CommandDaily,
			Description: "Réclamez votre récompense quotidienne",
		},
		{
			Name:        CommandRedeem,
			Description: "Échangez vos crédits contre des récompenses",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionReward,
					Description: "La récompense à obtenir",
					Required:    true,
					Choices:     presenter.RewardChoices(catalog),
				},
			},
		},
		{
			Name:        CommandNotifications,
			Description: "Active ou désactive vos notifications",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionOption,
					Description: "Le type de notification",
					Required:    true,
					Choices:     preferenceChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        optionEnabled,
					Description: "Activer (true) ou désactiver (false)",
					Required:    true,
				},
			},
		},
	}
}
