package handler

import (
	"context"

	"github.com/synthia-live/synthia-bot/internal/application/query"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLER
// /leaderboard - топ участников по XP.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardHandler обрабатывает /leaderboard.
type LeaderboardHandler struct {
	leaderboardQuery LeaderboardQuerier
}

// NewLeaderboardHandler создаёт обработчик.
func NewLeaderboardHandler(leaderboardQuery LeaderboardQuerier) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardQuery: leaderboardQuery}
}

// LeaderboardRequest - разобранная команда /leaderboard.
type LeaderboardRequest struct {
	Caller

	// Limit - размер топа; 0 - значение по умолчанию.
	Limit int
}

// Handle выполняет /leaderboard.
func (h *LeaderboardHandler) Handle(ctx context.Context, req LeaderboardRequest) (*Response, error) {
	result, err := h.leaderboardQuery.Handle(ctx, query.GetLeaderboardQuery{Limit: req.Limit})
	if err != nil {
		return nil, err
	}
	return &Response{Embed: presenter.LeaderboardCard(result)}, nil
}
