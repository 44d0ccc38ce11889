// Package member содержит доменную модель участника Discord-сервера.
//
// Это ядро леджера уровней и наград. Пакет определяет:
//
//   - Сущность Record: XP, уровень, кредиты, значки, счётчики активности
//   - Формулы прогрессии: LevelForXP, XPThresholdForLevel, IsLevelUp
//   - Интерфейсы хранилища: Repository, Cache, Leaderboard
//
// # Инварианты
//
//  1. Level всегда равен LevelForXP(XP)
//  2. XP, MessagesSent и ReactionsGiven никогда не уменьшаются
//  3. Credits никогда не становятся отрицательными
//  4. Значок присутствует в Badges не более одного раза
//
// # Прогрессия
//
// Уровень вычисляется из XP, а не хранится независимо:
//
//	level := LevelForXP(xp)             // int((xp/100) ^ 0.55)
//	next := XPThresholdForLevel(level+1) // (level+1)^2 * 100
//
// # Запись
//
//	rec := NewRecord(userID, joinedAt, now)
//	change := rec.GainXP(20)
//	if change.Up() {
//	    rec.AddBadge(change.To.BadgeName())
//	}
//
// Все мутации выполняются в памяти; сохранение делает слой приложения
// одним вызовом Repository.Upsert.
package member
