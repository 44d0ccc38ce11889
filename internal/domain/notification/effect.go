// Package notification описывает побочные эффекты операций леджера:
// выдачу ролей и уведомления. Эффекты - это данные; их выполняет
// диспетчер в слое приложения, а ошибки доставки никогда не влияют
// на уже сохранённую запись.
package notification

import (
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ТИПЫ ЭФФЕКТОВ
// ══════════════════════════════════════════════════════════════════════════════

// EffectKind - вид побочного эффекта.
type EffectKind string

const (
	// EffectRoleGrant - выдать роль на сервере.
	EffectRoleGrant EffectKind = "role_grant"
	// EffectNotice - отправить сообщение.
	EffectNotice EffectKind = "notice"
)

// Topic - тема уведомления, определяет шаблон текста.
type Topic string

const (
	TopicLevelUp     Topic = "level_up"
	TopicDailyReward Topic = "daily_reward"
)

// Params - данные для шаблона уведомления.
type Params struct {
	Level         shared.Level
	XP            shared.XP
	XPGained      shared.XP
	CreditsGained shared.Credits
	Balance       shared.Credits
}

// Effect - одно действие, которое нужно выполнить после сохранения записи.
type Effect struct {
	Kind    EffectKind
	UserID  shared.UserID
	GuildID string

	// RoleName - имя роли для EffectRoleGrant.
	RoleName string

	// Поля уведомления.
	Topic     Topic
	Params    Params
	ChannelID string
	// Public - отправить в канал ChannelID.
	Public bool
	// Direct - отправить в личные сообщения.
	Direct bool
}

// IsRoleGrant возвращает true для выдачи роли.
func (e Effect) IsRoleGrant() bool {
	return e.Kind == EffectRoleGrant
}

// IsNotice возвращает true для уведомления.
func (e Effect) IsNotice() bool {
	return e.Kind == EffectNotice
}

// ══════════════════════════════════════════════════════════════════════════════
// ДОСТАВКА
// ══════════════════════════════════════════════════════════════════════════════

// Delivery - куда отправлять уведомления о новом уровне. Задаётся конфигурацией.
type Delivery struct {
	Public bool
	Direct bool
}

// Any возвращает true, если включена хотя бы одна цель.
func (d Delivery) Any() bool {
	return d.Public || d.Direct
}

// ══════════════════════════════════════════════════════════════════════════════
// КОНСТРУКТОРЫ
// ══════════════════════════════════════════════════════════════════════════════

// RoleGrant создаёт эффект выдачи роли.
func RoleGrant(userID shared.UserID, guildID, roleName string) Effect {
	return Effect{
		Kind:     EffectRoleGrant,
		UserID:   userID,
		GuildID:  guildID,
		RoleName: roleName,
	}
}

// LevelUpNotice создаёт одно уведомление о новом уровне.
// Вне сервера (личные сообщения) публичная цель превращается в личную,
// чтобы не отправить одно и то же дважды в один и тот же диалог.
// Возвращает false, если доставка полностью отключена.
func LevelUpNotice(userID shared.UserID, guildID, channelID string, level shared.Level, xp shared.XP, d Delivery) (Effect, bool) {
	if !d.Any() {
		return Effect{}, false
	}
	public := d.Public && guildID != "" && channelID != ""
	direct := d.Direct || !public
	return Effect{
		Kind:      EffectNotice,
		UserID:    userID,
		GuildID:   guildID,
		Topic:     TopicLevelUp,
		Params:    Params{Level: level, XP: xp},
		ChannelID: channelID,
		Public:    public,
		Direct:    direct,
	}, true
}

// DailyRewardReceipt создаёт личную квитанцию о ежедневной награде.
func DailyRewardReceipt(userID shared.UserID, xpGained shared.XP, creditsGained, balance shared.Credits) Effect {
	return Effect{
		Kind:   EffectNotice,
		UserID: userID,
		Topic:  TopicDailyReward,
		Params: Params{
			XPGained:      xpGained,
			CreditsGained: creditsGained,
			Balance:       balance,
		},
		Direct: true,
	}
}
