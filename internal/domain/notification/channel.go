package notification

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// SINK
// ══════════════════════════════════════════════════════════════════════════════

// Sink - исполнитель эффектов во внешней системе (Discord REST).
type Sink interface {
	// GrantRole находит роль по имени и выдаёт её участнику.
	// Возвращает shared.ErrRoleNotFound, если такой роли на сервере нет.
	GrantRole(ctx context.Context, guildID, userID, roleName string) error

	// SendChannelMessage отправляет сообщение в канал.
	SendChannelMessage(ctx context.Context, channelID, content string) error

	// SendDirectMessage отправляет личное сообщение пользователю.
	SendDirectMessage(ctx context.Context, userID, content string) error
}

// Renderer превращает уведомление в текст сообщения.
type Renderer interface {
	// RenderPublic возвращает текст для канала сервера.
	RenderPublic(e Effect) string

	// RenderDirect возвращает текст для личных сообщений.
	RenderDirect(e Effect) string
}
