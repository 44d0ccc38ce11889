package handler

import (
	"context"

	"github.com/synthia-live/synthia-bot/internal/application/command"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/metrics"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// DailyHandler обрабатывает /daily.
type DailyHandler struct {
	claimer  DailyClaimer
	recorder OutcomeRecorder
}

// NewDailyHandler создаёт обработчик. recorder может быть nil.
func NewDailyHandler(claimer DailyClaimer, recorder OutcomeRecorder) *DailyHandler {
	return &DailyHandler{claimer: claimer, recorder: recorder}
}

// Handle выполняет /daily.
func (h *DailyHandler) Handle(ctx context.Context, req Caller) (*Response, error) {
	result, err := h.claimer.Handle(ctx, command.ClaimDailyCommand{
		UserID:         req.UserID,
		GuildID:        req.GuildID,
		ChannelID:      req.ChannelID,
		MemberJoinedAt: req.JoinedAt,
		CorrelationID:  req.CorrelationID,
	})
	if h.recorder != nil {
		h.recorder.DailyClaim(metrics.ResultOf(err))
	}
	if err != nil {
		return denialOrNil(err)
	}

	return &Response{
		Content: presenter.DailyClaimed(result.XPGained, result.CreditsGained),
		Effects: result.Effects,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDEEM HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RedeemHandler обрабатывает /redeem.
type RedeemHandler struct {
	redeemer Redeemer
	recorder OutcomeRecorder
}

// NewRedeemHandler создаёт обработчик. recorder может быть nil.
func NewRedeemHandler(redeemer Redeemer, recorder OutcomeRecorder) *RedeemHandler {
	return &RedeemHandler{redeemer: redeemer, recorder: recorder}
}

// RedeemRequest - разобранная команда /redeem.
type RedeemRequest struct {
	Caller
	RewardKey string
}

// Handle выполняет /redeem.
func (h *RedeemHandler) Handle(ctx context.Context, req RedeemRequest) (*Response, error) {
	result, err := h.redeemer.Handle(ctx, command.RedeemRewardCommand{
		UserID:        req.UserID,
		RewardKey:     req.RewardKey,
		GuildID:       req.GuildID,
		CorrelationID: req.CorrelationID,
	})
	if h.recorder != nil {
		h.recorder.Redemption(rewardLabel(req.RewardKey, err), metrics.ResultOf(err))
	}
	if err != nil {
		return denialOrNil(err)
	}

	return &Response{
		Content: presenter.Redeemed(result.Reward, result.Record.Credits),
		Effects: result.Effects,
	}, nil
}

// rewardLabel не пускает произвольный ввод в метки метрик.
func rewardLabel(key string, err error) string {
	if metrics.ClassifyReason(err) == metrics.ReasonUnknownReward {
		return "unknown"
	}
	return key
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// NotificationsHandler обрабатывает /notifications.
type NotificationsHandler struct {
	updater PreferenceUpdater
}

// NewNotificationsHandler создаёт обработчик.
func NewNotificationsHandler(updater PreferenceUpdater) *NotificationsHandler {
	return &NotificationsHandler{updater: updater}
}

// NotificationsRequest - разобранная команда /notifications.
type NotificationsRequest struct {
	Caller
	Option  string
	Enabled bool
}

// Handle выполняет /notifications.
func (h *NotificationsHandler) Handle(ctx context.Context, req NotificationsRequest) (*Response, error) {
	result, err := h.updater.Handle(ctx, command.UpdatePreferencesCommand{
		UserID:        req.UserID,
		Option:        req.Option,
		Enabled:       req.Enabled,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		return denialOrNil(err)
	}

	return &Response{
		Content:   presenter.PreferenceUpdated(result.Option, result.Enabled),
		Ephemeral: true,
	}, nil
}

// denialOrNil возвращает текст отказа для ожидаемых ошибок леджера
// и nil-ответ для всех прочих.
func denialOrNil(err error) (*Response, error) {
	if shared.IsUserFacing(err) {
		return denied(presenter.DenialMessage(err)), err
	}
	return nil, err
}
