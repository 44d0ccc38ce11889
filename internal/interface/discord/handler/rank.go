package handler

import (
	"context"
	"errors"

	"github.com/synthia-live/synthia-bot/internal/application/query"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANK HANDLER
// /rank [member] - карточка уровня участника.
// ══════════════════════════════════════════════════════════════════════════════

// RankHandler обрабатывает /rank.
type RankHandler struct {
	rankQuery RankQuerier
}

// NewRankHandler создаёт обработчик.
func NewRankHandler(rankQuery RankQuerier) *RankHandler {
	return &RankHandler{rankQuery: rankQuery}
}

// RankRequest - разобранная команда /rank.
type RankRequest struct {
	Caller

	// TargetID - участник из опции member; пусто - сам автор.
	TargetID shared.UserID

	// TargetName - отображаемое имя цели.
	TargetName string
}

// Handle выполняет /rank.
func (h *RankHandler) Handle(ctx context.Context, req RankRequest) (*Response, error) {
	target := req.TargetID
	if target.IsEmpty() {
		target = req.UserID
	}
	name := req.TargetName
	if name == "" {
		name = target.Mention()
	}

	dto, err := h.rankQuery.Handle(ctx, query.GetRankQuery{UserID: target.String()})
	if errors.Is(err, shared.ErrUnknownUser) {
		return denied(presenter.MessageNoRankData), err
	}
	if err != nil {
		return nil, err
	}

	return &Response{Embed: presenter.RankCard(name, dto)}, nil
}
