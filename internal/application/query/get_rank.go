package query

import (
	"context"
	"errors"
	"log/slog"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RANK QUERY
// Данные для команды /rank: уровень, прогресс до следующего уровня
// и позиция в общем рейтинге.
// ══════════════════════════════════════════════════════════════════════════════

// GetRankQuery содержит параметры запроса позиции.
type GetRankQuery struct {
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q GetRankQuery) Validate() error {
	if !shared.UserID(q.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	return nil
}

// RankDTO - позиция участника с прогрессом уровня.
type RankDTO struct {
	Record RecordDTO `json:"record"`

	// Rank - позиция в рейтинге (1 = первое место).
	Rank int `json:"rank"`

	// Total - число участников в рейтинге.
	Total int `json:"total"`

	// NextLevel - следующий уровень и его порог.
	NextLevel   int   `json:"next_level"`
	NextLevelXP int64 `json:"next_level_xp"`

	// XPRemaining - сколько XP осталось до NextLevelXP.
	XPRemaining int64 `json:"xp_remaining"`

	// Progress - доля пути к следующему уровню (0.0 - 1.0).
	Progress float64 `json:"progress"`

	// FromSnapshot - позиция взята из снимка рейтинга, а не из хранилища.
	FromSnapshot bool `json:"from_snapshot"`
}

// GetRankHandler обрабатывает запросы позиции.
type GetRankHandler struct {
	repo        member.Repository
	leaderboard member.Leaderboard
	logger      *slog.Logger
}

// NewGetRankHandler создаёт новый обработчик.
// leaderboard может быть nil: тогда позиция считается по хранилищу.
func NewGetRankHandler(repo member.Repository, leaderboard member.Leaderboard, logger *slog.Logger) *GetRankHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetRankHandler{
		repo:        repo,
		leaderboard: leaderboard,
		logger:      logger.With("query", "get_rank"),
	}
}

// Handle выполняет запрос. Для участника без записи возвращает shared.ErrUnknownUser.
func (h *GetRankHandler) Handle(ctx context.Context, query GetRankQuery) (*RankDTO, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetRank", shared.ErrValidation, "invalid user id", err)
	}
	userID := shared.UserID(query.UserID)

	rec, err := h.repo.Get(ctx, userID)
	if errors.Is(err, shared.ErrRecordNotFound) {
		return nil, shared.ErrUnknownUser
	}
	if err != nil {
		return nil, shared.WrapError("query", "GetRank", shared.ErrServiceUnavailable, "failed to load record", err)
	}

	progress := member.ProgressFor(rec.XP)
	dto := &RankDTO{
		Record:      NewRecordDTO(rec),
		NextLevel:   progress.NextLevel.Int(),
		NextLevelXP: progress.NextXP.Int64(),
		XPRemaining: progress.Remaining.Int64(),
		Progress:    progress.Ratio,
	}

	total, err := h.repo.Count(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetRank", shared.ErrServiceUnavailable, "failed to count records", err)
	}
	dto.Total = total

	if rank, ok := h.fromSnapshot(ctx, userID); ok {
		dto.Rank, dto.FromSnapshot = rank, true
		return dto, nil
	}

	rank, err := h.repo.Rank(ctx, userID)
	if err != nil {
		return nil, shared.WrapError("query", "GetRank", shared.ErrServiceUnavailable, "failed to compute rank", err)
	}
	dto.Rank = rank.Int()
	return dto, nil
}

// fromSnapshot читает позицию из снимка, если снимок её покрывает.
// Участник ниже глубины неполного снимка считается по хранилищу.
func (h *GetRankHandler) fromSnapshot(ctx context.Context, userID shared.UserID) (int, bool) {
	state, ok := snapshotState(ctx, h.leaderboard, h.logger)
	if !ok {
		return 0, false
	}

	rank, err := h.leaderboard.Rank(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrRecordNotFound) {
			h.logger.Warn("leaderboard rank failed, falling back to store", "user_id", userID, "error", err)
		}
		return 0, false
	}
	if !state.Covers(rank) {
		return 0, false
	}
	return rank.Int(), true
}

// snapshotState возвращает состояние снимка, если он хотя бы раз перестраивался.
func snapshotState(ctx context.Context, lb member.Leaderboard, logger *slog.Logger) (member.SnapshotState, bool) {
	if lb == nil {
		return member.SnapshotState{}, false
	}
	state, err := lb.State(ctx)
	if err != nil {
		logger.Warn("leaderboard snapshot unavailable", "error", err)
		return member.SnapshotState{}, false
	}
	return state, state.Warm()
}
