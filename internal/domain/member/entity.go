package member

import (
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// НАСТРОЙКИ УВЕДОМЛЕНИЙ
// ══════════════════════════════════════════════════════════════════════════════

// PreferenceOption - ключ настройки уведомлений.
type PreferenceOption string

const (
	// OptionLevelUp - уведомления о новом уровне.
	OptionLevelUp PreferenceOption = "level_up"
	// OptionDailyReward - квитанция о ежедневной награде.
	OptionDailyReward PreferenceOption = "daily_reward"
)

// AllPreferenceOptions возвращает все допустимые ключи.
func AllPreferenceOptions() []PreferenceOption {
	return []PreferenceOption{OptionLevelUp, OptionDailyReward}
}

// ParsePreferenceOption проверяет ключ настройки.
func ParsePreferenceOption(s string) (PreferenceOption, error) {
	switch opt := PreferenceOption(s); opt {
	case OptionLevelUp, OptionDailyReward:
		return opt, nil
	default:
		return "", shared.ErrInvalidOption
	}
}

// Preferences - настройки уведомлений участника. По умолчанию всё включено.
type Preferences struct {
	LevelUp     bool `json:"level_up"`
	DailyReward bool `json:"daily_reward"`
}

// DefaultPreferences возвращает настройки по умолчанию.
func DefaultPreferences() Preferences {
	return Preferences{LevelUp: true, DailyReward: true}
}

// ══════════════════════════════════════════════════════════════════════════════
// ЗАПИСЬ УЧАСТНИКА
// ══════════════════════════════════════════════════════════════════════════════

// Record - агрегат леджера: один на Discord-пользователя.
type Record struct {
	UserID  shared.UserID
	XP      shared.XP
	Level   shared.Level
	Credits shared.Credits

	// Badges - упорядоченное множество без повторов.
	Badges []string

	MessagesSent   int64
	ReactionsGiven int64

	JoinedAt         time.Time
	LastClaimedDaily *time.Time

	Preferences Preferences

	// Version - токен оптимистичной блокировки. 0 означает, что
	// запись ещё не сохранялась.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord создаёт пустую запись. joinedAt - время входа на сервер,
// если оно известно; иначе используется now.
func NewRecord(userID shared.UserID, joinedAt *time.Time, now time.Time) *Record {
	joined := now
	if joinedAt != nil && !joinedAt.IsZero() {
		joined = *joinedAt
	}
	return &Record{
		UserID:      userID,
		Badges:      []string{},
		JoinedAt:    joined,
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsNew возвращает true, если запись ещё не сохранялась.
func (r *Record) IsNew() bool {
	return r.Version == 0
}

// LevelChange - результат начисления XP.
type LevelChange struct {
	From shared.Level
	To   shared.Level
}

// Up возвращает true, если уровень вырос.
func (c LevelChange) Up() bool {
	return IsLevelUp(c.From, c.To)
}

// GainXP начисляет XP и пересчитывает уровень.
func (r *Record) GainXP(amount shared.XP) LevelChange {
	from := r.Level
	r.XP = r.XP.Add(amount.Int64())
	r.Level = LevelForXP(r.XP)
	return LevelChange{From: from, To: r.Level}
}

// AddBadge добавляет значок, если его ещё нет. Возвращает true при добавлении.
func (r *Record) AddBadge(badge string) bool {
	if badge == "" || r.HasBadge(badge) {
		return false
	}
	r.Badges = append(r.Badges, badge)
	return true
}

// HasBadge проверяет наличие значка.
func (r *Record) HasBadge(badge string) bool {
	for _, b := range r.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// CountMessage увеличивает счётчик сообщений.
func (r *Record) CountMessage() {
	r.MessagesSent++
}

// CountReaction увеличивает счётчик реакций.
func (r *Record) CountReaction() {
	r.ReactionsGiven++
}

// NextDailyAt возвращает момент, когда станет доступна следующая награда.
// Для записи без предыдущих получений возвращается нулевое время.
func (r *Record) NextDailyAt(cooldown time.Duration) time.Time {
	if r.LastClaimedDaily == nil {
		return time.Time{}
	}
	return r.LastClaimedDaily.Add(cooldown)
}

// ClaimDaily начисляет ежедневную награду.
// Отказ, если с прошлого получения прошло строго меньше cooldown.
// При отказе запись не изменяется.
func (r *Record) ClaimDaily(now time.Time, cooldown time.Duration, xp shared.XP, credits shared.Credits) (LevelChange, error) {
	if r.LastClaimedDaily != nil {
		next := r.NextDailyAt(cooldown)
		if now.Before(next) {
			return LevelChange{From: r.Level, To: r.Level}, &shared.CooldownError{
				NextClaimAt: next,
				Remaining:   next.Sub(now),
			}
		}
	}

	change := r.GainXP(xp)
	r.Credits += credits
	claimed := now
	r.LastClaimedDaily = &claimed
	return change, nil
}

// Spend списывает кредиты. При нехватке баланс не меняется.
func (r *Record) Spend(cost shared.Credits) error {
	if cost < 0 {
		return shared.NewDomainError("member", "Spend", shared.ErrInvalidInput, "cost cannot be negative")
	}
	if !r.Credits.CanAfford(cost) {
		return shared.ErrInsufficientCredits
	}
	r.Credits -= cost
	return nil
}

// SetPreference меняет настройку уведомлений.
func (r *Record) SetPreference(opt PreferenceOption, enabled bool) error {
	switch opt {
	case OptionLevelUp:
		r.Preferences.LevelUp = enabled
	case OptionDailyReward:
		r.Preferences.DailyReward = enabled
	default:
		return shared.ErrInvalidOption
	}
	return nil
}

// Clone возвращает глубокую копию записи.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Badges = append([]string{}, r.Badges...)
	if r.LastClaimedDaily != nil {
		t := *r.LastClaimedDaily
		cp.LastClaimedDaily = &t
	}
	return &cp
}
