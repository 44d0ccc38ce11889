package member

import (
	"math"

	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ФОРМУЛЫ ПРОГРЕССИИ
// ══════════════════════════════════════════════════════════════════════════════

const (
	// xpPerStep - делитель XP перед возведением в степень.
	xpPerStep = 100
	// levelExponent - показатель степени кривой уровней.
	levelExponent = 0.55
)

// LevelForXP вычисляет уровень: floor((xp / 100) ^ 0.55).
// Деление целочисленное и выполняется до возведения в степень.
func LevelForXP(xp shared.XP) shared.Level {
	if xp < 0 {
		return 0
	}
	steps := int64(xp) / xpPerStep
	return shared.Level(math.Pow(float64(steps), levelExponent))
}

// XPThresholdForLevel возвращает XP, который показывается как цель
// следующего уровня: level^2 * 100.
//
// Порог не является точной обратной функцией LevelForXP, но
// LevelForXP(XPThresholdForLevel(l)) >= l для любого l >= 0.
func XPThresholdForLevel(level shared.Level) shared.XP {
	if level < 0 {
		return 0
	}
	l := int64(level)
	return shared.XP(l * l * xpPerStep)
}

// IsLevelUp возвращает true, если уровень вырос.
func IsLevelUp(oldLevel, newLevel shared.Level) bool {
	return newLevel > oldLevel
}

// ══════════════════════════════════════════════════════════════════════════════
// ПРОГРЕСС ДО СЛЕДУЮЩЕГО УРОВНЯ
// ══════════════════════════════════════════════════════════════════════════════

// Progress описывает положение участника на кривой уровней.
type Progress struct {
	XP        shared.XP
	Level     shared.Level
	NextLevel shared.Level
	// NextXP - порог следующего уровня.
	NextXP shared.XP
	// Remaining - сколько XP осталось до NextXP.
	Remaining shared.XP
	// Ratio - доля пути к NextXP в диапазоне [0, 1].
	Ratio float64
}

// ProgressFor вычисляет прогресс для заданного XP.
func ProgressFor(xp shared.XP) Progress {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	next := XPThresholdForLevel(level + 1)

	remaining := next - xp
	if remaining < 0 {
		remaining = 0
	}

	ratio := 1.0
	if next > 0 {
		ratio = float64(xp) / float64(next)
	}
	if ratio > 1 {
		ratio = 1
	}

	return Progress{
		XP:        xp,
		Level:     level,
		NextLevel: level + 1,
		NextXP:    next,
		Remaining: remaining,
		Ratio:     ratio,
	}
}
