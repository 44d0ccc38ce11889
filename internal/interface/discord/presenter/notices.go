// Package presenter форматирует ответы бота для Discord.
// Весь текст, который видит пользователь, - на французском.
package presenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/notification"
)

// ══════════════════════════════════════════════════════════════════════════════
// УВЕДОМЛЕНИЯ
// ══════════════════════════════════════════════════════════════════════════════

// NoticeRenderer реализует notification.Renderer.
type NoticeRenderer struct{}

// NewNoticeRenderer создаёт рендерер уведомлений.
func NewNoticeRenderer() *NoticeRenderer {
	return &NoticeRenderer{}
}

var _ notification.Renderer = (*NoticeRenderer)(nil)

// RenderPublic возвращает текст для канала сервера.
func (r *NoticeRenderer) RenderPublic(e notification.Effect) string {
	switch e.Topic {
	case notification.TopicLevelUp:
		return fmt.Sprintf("🎉 Félicitations %s, vous êtes passé au niveau **%d** !",
			e.UserID.Mention(), e.Params.Level.Int())
	case notification.TopicDailyReward:
		return fmt.Sprintf("%s a réclamé sa récompense quotidienne !", e.UserID.Mention())
	default:
		return ""
	}
}

// RenderDirect возвращает текст для личных сообщений.
func (r *NoticeRenderer) RenderDirect(e notification.Effect) string {
	switch e.Topic {
	case notification.TopicLevelUp:
		return fmt.Sprintf("Félicitations ! Vous êtes passé au niveau **%d** !", e.Params.Level.Int())
	case notification.TopicDailyReward:
		return fmt.Sprintf(
			"Récompense quotidienne : **+%d** XP et **+%d** crédits. Solde : **%d** crédits.",
			e.Params.XPGained.Int64(), e.Params.CreditsGained.Int64(), e.Params.Balance.Int64(),
		)
	default:
		return ""
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ВСПОМОГАТЕЛЬНЫЕ ФУНКЦИИ
// ══════════════════════════════════════════════════════════════════════════════

// ProgressBar рисует полосу прогресса из десяти делений.
// ratio обрезается до [0, 1].
func ProgressBar(ratio float64) string {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return "[" + strings.Repeat("█", int(ratio*10)) + "]"
}

// FormatDuration выводит оставшееся время как "3 h 05 min" или "42 min".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return "moins d'une minute"
	}
	d = d.Round(time.Minute)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours == 0 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%d h %02d min", hours, minutes)
}
