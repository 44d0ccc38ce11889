package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Топ участников по XP. Читает снимок рейтинга, если он построен,
// иначе обращается к хранилищу напрямую.
// ══════════════════════════════════════════════════════════════════════════════

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 25
)

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// Limit - количество строк (по умолчанию 10, максимум 25).
	Limit int
}

// Validate проверяет и нормализует параметры запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = defaultLeaderboardLimit
	}
	if q.Limit > maxLeaderboardLimit {
		q.Limit = maxLeaderboardLimit
	}
	return nil
}

// StandingDTO - строка лидерборда.
type StandingDTO struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	XP     int64  `json:"xp"`
	Level  int    `json:"level"`
}

// GetLeaderboardResult содержит результат запроса лидерборда.
type GetLeaderboardResult struct {
	Entries []StandingDTO `json:"entries"`

	// FromSnapshot - данные взяты из снимка рейтинга.
	FromSnapshot bool `json:"from_snapshot"`

	// GeneratedAt - время формирования ответа.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetLeaderboardHandler обрабатывает запросы лидерборда.
type GetLeaderboardHandler struct {
	repo        member.Repository
	leaderboard member.Leaderboard
	logger      *slog.Logger
	now         func() time.Time
}

// NewGetLeaderboardHandler создаёт новый обработчик.
// leaderboard может быть nil.
func NewGetLeaderboardHandler(repo member.Repository, leaderboard member.Leaderboard, logger *slog.Logger) *GetLeaderboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetLeaderboardHandler{
		repo:        repo,
		leaderboard: leaderboard,
		logger:      logger.With("query", "get_leaderboard"),
		now:         time.Now,
	}
}

// Handle выполняет запрос лидерборда.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, err.Error(), err)
	}

	result := &GetLeaderboardResult{GeneratedAt: h.now().UTC()}

	if state, ok := snapshotState(ctx, h.leaderboard, h.logger); ok && state.Covers(shared.Rank(query.Limit)) {
		standings, err := h.leaderboard.Top(ctx, query.Limit)
		if err == nil {
			result.Entries = toStandingDTOs(standings)
			result.FromSnapshot = true
			return result, nil
		}
		h.logger.Warn("leaderboard snapshot read failed, falling back to store", "error", err)
	}

	records, err := h.repo.Top(ctx, query.Limit)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrServiceUnavailable, "failed to load top records", err)
	}
	result.Entries = toStandingDTOs(member.StandingsFromRecords(records))
	return result, nil
}

func toStandingDTOs(standings []member.Standing) []StandingDTO {
	out := make([]StandingDTO, 0, len(standings))
	for _, s := range standings {
		out = append(out, StandingDTO{
			Rank:   s.Rank.Int(),
			UserID: s.UserID.String(),
			XP:     s.XP.Int64(),
			Level:  s.Level.Int(),
		})
	}
	return out
}
