package member

import (
	"context"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Контракт хранилища записей. Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository - долговременное хранилище записей участников.
type Repository interface {
	// Get возвращает запись по ID пользователя.
	// Возвращает shared.ErrRecordNotFound, если записи нет.
	Get(ctx context.Context, id shared.UserID) (*Record, error)

	// Upsert сохраняет запись целиком.
	//
	// Если rec.Version == 0, выполняется вставка; если запись уже
	// существует, возвращается shared.ErrRecordConflict.
	// Иначе обновление выполняется только при совпадении версии в хранилище.
	// При успехе rec.Version увеличивается на 1, а rec.UpdatedAt обновляется.
	Upsert(ctx context.Context, rec *Record) error

	// Top возвращает записи с наибольшим XP, по убыванию.
	Top(ctx context.Context, limit int) ([]*Record, error)

	// Rank возвращает позицию: 1 + количество записей со строго большим XP.
	// Возвращает shared.ErrRecordNotFound, если записи нет.
	Rank(ctx context.Context, id shared.UserID) (shared.Rank, error)

	// Count возвращает общее количество записей.
	Count(ctx context.Context) (int, error)
}

// Cache - кэш записей перед Repository.
type Cache interface {
	// Get возвращает запись из кэша или shared.ErrRecordNotFound при промахе.
	Get(ctx context.Context, id shared.UserID) (*Record, error)

	// Set сохраняет запись в кэш.
	Set(ctx context.Context, rec *Record) error

	// Delete удаляет запись из кэша.
	Delete(ctx context.Context, id shared.UserID) error
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Standing - строка таблицы лидеров.
type Standing struct {
	UserID shared.UserID
	XP     shared.XP
	Level  shared.Level
	Rank   shared.Rank
}

// StandingFromRecord строит строку таблицы из записи.
func StandingFromRecord(rec *Record, rank shared.Rank) Standing {
	return Standing{
		UserID: rec.UserID,
		XP:     rec.XP,
		Level:  rec.Level,
		Rank:   rank,
	}
}

// Leaderboard - быстрый снимок рейтинга (например, sorted set в Redis).
type Leaderboard interface {
	// Top возвращает первые limit позиций.
	Top(ctx context.Context, limit int) ([]Standing, error)

	// Rank возвращает позицию пользователя или shared.ErrRecordNotFound.
	Rank(ctx context.Context, id shared.UserID) (shared.Rank, error)

	// Update обновляет XP одного пользователя в снимке.
	Update(ctx context.Context, id shared.UserID, xp shared.XP) error

	// Rebuild атомарно заменяет снимок первыми записями хранилища.
	// complete означает, что records содержит все записи.
	Rebuild(ctx context.Context, records []*Record, complete bool) error

	// State возвращает параметры последнего Rebuild.
	State(ctx context.Context) (SnapshotState, error)
}

// SnapshotState описывает последний Rebuild снимка.
//
// Неполный снимок содержит первые Depth записей на момент Rebuild и
// активных с тех пор участников. Позиции в пределах Depth в нём верны,
// ниже - нет: отсутствующие участники не учитываются.
type SnapshotState struct {
	BuiltAt  time.Time
	Depth    int
	Complete bool
}

// Warm сообщает, что снимок хотя бы раз перестраивался.
func (s SnapshotState) Warm() bool {
	return !s.BuiltAt.IsZero()
}

// Covers сообщает, что позиция rank из снимка совпадает с хранилищем.
func (s SnapshotState) Covers(rank shared.Rank) bool {
	if !s.Warm() || rank < 1 {
		return false
	}
	return s.Complete || int(rank) <= s.Depth
}

// StandingsFromRecords нумерует записи, уже отсортированные по убыванию XP.
// Равный XP даёт равную позицию (1, 2, 2, 4).
func StandingsFromRecords(records []*Record) []Standing {
	standings := make([]Standing, 0, len(records))
	for i, rec := range records {
		rank := shared.Rank(i + 1)
		if i > 0 && rec.XP == records[i-1].XP {
			rank = standings[i-1].Rank
		}
		standings = append(standings, StandingFromRecord(rec, rank))
	}
	return standings
}
