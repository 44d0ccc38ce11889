// Package eventhandler содержит реакции на результаты команд леджера:
// выполнение побочных эффектов и обработчики доменных событий.
//
// Всё здесь работает по принципу best-effort: запись уже сохранена,
// поэтому ошибки логируются и считаются, но никогда не возвращаются
// вызывающему коду.
package eventhandler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// EFFECT DISPATCHER
// Выполняет роли и уведомления, которые вернули команды.
// ═══════════════════════════════════════════════════════════════════════════

// FailureRecorder считает неудачные побочные эффекты.
type FailureRecorder interface {
	SideEffectFailed(kind string)
}

// Метки видов эффектов для метрик.
const (
	failureRoleGrant = "role_grant"
	failureChannel   = "channel_message"
	failureDirect    = "direct_message"
)

// EffectDispatcherConfig содержит конфигурацию диспетчера.
type EffectDispatcherConfig struct {
	// Timeout ограничивает каждый отдельный вызов Sink.
	Timeout time.Duration
}

// DefaultEffectDispatcherConfig возвращает конфигурацию по умолчанию.
func DefaultEffectDispatcherConfig() EffectDispatcherConfig {
	return EffectDispatcherConfig{Timeout: 5 * time.Second}
}

// EffectDispatcher выполняет эффекты через notification.Sink.
type EffectDispatcher struct {
	sink     notification.Sink
	renderer notification.Renderer
	failures FailureRecorder
	logger   *slog.Logger
	config   EffectDispatcherConfig
}

// NewEffectDispatcher создаёт новый диспетчер эффектов.
func NewEffectDispatcher(
	sink notification.Sink,
	renderer notification.Renderer,
	failures FailureRecorder,
	logger *slog.Logger,
	config EffectDispatcherConfig,
) *EffectDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config = DefaultEffectDispatcherConfig()
	}
	return &EffectDispatcher{
		sink:     sink,
		renderer: renderer,
		failures: failures,
		logger:   logger.With("handler", "effect_dispatcher"),
		config:   config,
	}
}

// Dispatch выполняет эффекты по порядку. Ничего не возвращает:
// ошибка одного эффекта не мешает остальным.
func (d *EffectDispatcher) Dispatch(ctx context.Context, effects []notification.Effect) {
	for _, effect := range effects {
		switch effect.Kind {
		case notification.EffectRoleGrant:
			d.grantRole(ctx, effect)
		case notification.EffectNotice:
			d.sendNotice(ctx, effect)
		default:
			d.logger.Warn("unknown effect kind", "kind", effect.Kind)
		}
	}
}

func (d *EffectDispatcher) grantRole(ctx context.Context, effect notification.Effect) {
	if effect.GuildID == "" || effect.RoleName == "" {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	err := d.sink.GrantRole(callCtx, effect.GuildID, effect.UserID.String(), effect.RoleName)
	switch {
	case err == nil:
		d.logger.Debug("role granted",
			"user_id", effect.UserID,
			"guild_id", effect.GuildID,
			"role", effect.RoleName,
		)
	case errors.Is(err, shared.ErrRoleNotFound):
		// Роли с таким именем на сервере нет: это штатная ситуация.
		d.logger.Debug("role not configured in guild, skipping",
			"guild_id", effect.GuildID,
			"role", effect.RoleName,
		)
	default:
		d.fail(failureRoleGrant, err,
			"user_id", effect.UserID,
			"guild_id", effect.GuildID,
			"role", effect.RoleName,
		)
	}
}

func (d *EffectDispatcher) sendNotice(ctx context.Context, effect notification.Effect) {
	if effect.Public && effect.ChannelID != "" {
		callCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
		err := d.sink.SendChannelMessage(callCtx, effect.ChannelID, d.renderer.RenderPublic(effect))
		cancel()
		if err != nil {
			d.fail(failureChannel, err,
				"user_id", effect.UserID,
				"channel_id", effect.ChannelID,
				"topic", effect.Topic,
			)
		}
	}

	if effect.Direct {
		callCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
		err := d.sink.SendDirectMessage(callCtx, effect.UserID.String(), d.renderer.RenderDirect(effect))
		cancel()
		if err != nil {
			d.fail(failureDirect, err,
				"user_id", effect.UserID,
				"topic", effect.Topic,
			)
		}
	}
}

func (d *EffectDispatcher) fail(kind string, err error, attrs ...any) {
	if d.failures != nil {
		d.failures.SideEffectFailed(kind)
	}
	d.logger.Warn("side effect failed",
		append([]any{"kind", kind, "error", err}, attrs...)...,
	)
}
