// Package query contains read operations (CQRS - Queries).
// Queries never modify state: they only read and return data.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RECORD QUERY
// Возвращает запись участника как есть. Отсутствие записи не ошибка:
// участник просто ещё ни разу не писал.
// ══════════════════════════════════════════════════════════════════════════════

// GetRecordQuery содержит параметры запроса.
type GetRecordQuery struct {
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q GetRecordQuery) Validate() error {
	if !shared.UserID(q.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	return nil
}

// RecordDTO - снимок записи для слоя представления.
type RecordDTO struct {
	UserID           string     `json:"user_id"`
	XP               int64      `json:"xp"`
	Level            int        `json:"level"`
	Credits          int64      `json:"credits"`
	Badges           []string   `json:"badges"`
	MessagesSent     int64      `json:"messages_sent"`
	ReactionsGiven   int64      `json:"reactions_given"`
	JoinedAt         time.Time  `json:"joined_at"`
	LastClaimedDaily *time.Time `json:"last_claimed_daily,omitempty"`
	LevelUpNotices   bool       `json:"level_up_notices"`
	DailyReceipts    bool       `json:"daily_receipts"`
}

// NewRecordDTO копирует запись в DTO.
func NewRecordDTO(rec *member.Record) RecordDTO {
	dto := RecordDTO{
		UserID:         rec.UserID.String(),
		XP:             rec.XP.Int64(),
		Level:          rec.Level.Int(),
		Credits:        rec.Credits.Int64(),
		Badges:         append([]string(nil), rec.Badges...),
		MessagesSent:   rec.MessagesSent,
		ReactionsGiven: rec.ReactionsGiven,
		JoinedAt:       rec.JoinedAt,
		LevelUpNotices: rec.Preferences.LevelUp,
		DailyReceipts:  rec.Preferences.DailyReward,
	}
	if rec.LastClaimedDaily != nil {
		t := *rec.LastClaimedDaily
		dto.LastClaimedDaily = &t
	}
	return dto
}

// GetRecordResult содержит результат запроса.
type GetRecordResult struct {
	// Found - false, если записи нет.
	Found  bool
	Record RecordDTO
}

// GetRecordHandler обрабатывает запрос записи.
type GetRecordHandler struct {
	repo member.Repository
}

// NewGetRecordHandler создаёт новый обработчик.
func NewGetRecordHandler(repo member.Repository) *GetRecordHandler {
	return &GetRecordHandler{repo: repo}
}

// Handle выполняет запрос.
func (h *GetRecordHandler) Handle(ctx context.Context, query GetRecordQuery) (*GetRecordResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetRecord", shared.ErrValidation, "invalid user id", err)
	}

	rec, err := h.repo.Get(ctx, shared.UserID(query.UserID))
	if errors.Is(err, shared.ErrRecordNotFound) {
		return &GetRecordResult{Found: false}, nil
	}
	if err != nil {
		return nil, shared.WrapError("query", "GetRecord", shared.ErrServiceUnavailable, "failed to load record", err)
	}

	return &GetRecordResult{Found: true, Record: NewRecordDTO(rec)}, nil
}
