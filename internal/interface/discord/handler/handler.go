// Package handler содержит обработчики slash-команд Discord.
// Обработчики не знают о discordgo-сессии: они получают уже разобранный
// запрос и возвращают Response, который бот отправляет сам.
package handler

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/synthia-live/synthia-bot/internal/application/command"
	"github.com/synthia-live/synthia-bot/internal/application/query"
	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ОБЩИЕ ТИПЫ
// ══════════════════════════════════════════════════════════════════════════════

// Caller - участник, вызвавший команду, и место вызова.
type Caller struct {
	UserID shared.UserID

	// GuildID пуст для команд в личных сообщениях.
	GuildID   string
	ChannelID string

	// JoinedAt - дата входа на сервер, если Discord её передал.
	JoinedAt *time.Time

	// CorrelationID для трассировки.
	CorrelationID string
}

// Response - ответ на команду.
type Response struct {
	Content string
	Embed   *discordgo.MessageEmbed

	// Ephemeral - ответ виден только автору команды.
	Ephemeral bool

	// Effects выполняются после отправки ответа.
	Effects []notification.Effect
}

// denied строит ответ-отказ, видимый только автору.
func denied(text string) *Response {
	return &Response{Content: text, Ephemeral: true}
}

// ══════════════════════════════════════════════════════════════════════════════
// ЗАВИСИМОСТИ
// ══════════════════════════════════════════════════════════════════════════════

// RankQuerier возвращает позицию участника.
type RankQuerier interface {
	Handle(ctx context.Context, q query.GetRankQuery) (*query.RankDTO, error)
}

// LeaderboardQuerier возвращает рейтинг.
type LeaderboardQuerier interface {
	Handle(ctx context.Context, q query.GetLeaderboardQuery) (*query.GetLeaderboardResult, error)
}

// DailyClaimer выполняет /daily.
type DailyClaimer interface {
	Handle(ctx context.Context, cmd command.ClaimDailyCommand) (*command.ClaimDailyResult, error)
}

// Redeemer выполняет /redeem.
type Redeemer interface {
	Handle(ctx context.Context, cmd command.RedeemRewardCommand) (*command.RedeemRewardResult, error)
}

// PreferenceUpdater выполняет /notifications.
type PreferenceUpdater interface {
	Handle(ctx context.Context, cmd command.UpdatePreferencesCommand) (*command.UpdatePreferencesResult, error)
}

// OutcomeRecorder считает исходы /daily и /redeem, включая отказы,
// которые не порождают доменных событий.
type OutcomeRecorder interface {
	DailyClaim(result string)
	Redemption(reward, result string)
}
