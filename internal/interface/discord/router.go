package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"github.com/synthia-live/synthia-bot/internal/domain/shared"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/handler"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/middleware"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/presenter"
	"github.com/synthia-live/synthia-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERACTION
// ══════════════════════════════════════════════════════════════════════════════

// Interaction is a parsed slash command invocation.
type Interaction struct {
	Name    string
	Caller  handler.Caller
	Options map[string]*discordgo.ApplicationCommandInteractionDataOption

	// Resolved carries the users and members referenced by options.
	Resolved *discordgo.ApplicationCommandInteractionDataResolved
}

// CommandHandler handles one slash command.
type CommandHandler func(ctx context.Context, in Interaction) (*handler.Response, error)

// ParseInteraction extracts the caller and options of a slash command.
func ParseInteraction(i *discordgo.Interaction) (Interaction, error) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return Interaction{}, fmt.Errorf("not an application command")
	}
	data := i.ApplicationCommandData()

	var user *discordgo.User
	var joinedAt *time.Time
	switch {
	case i.Member != nil && i.Member.User != nil:
		user = i.Member.User
		if !i.Member.JoinedAt.IsZero() {
			joined := i.Member.JoinedAt.UTC()
			joinedAt = &joined
		}
	case i.User != nil:
		user = i.User
	default:
		return Interaction{}, fmt.Errorf("interaction %s has no user", i.ID)
	}

	userID, err := ParseUserID(user.ID)
	if err != nil {
		return Interaction{}, err
	}

	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		options[opt.Name] = opt
	}

	return Interaction{
		Name: data.Name,
		Caller: handler.Caller{
			UserID:        userID,
			GuildID:       i.GuildID,
			ChannelID:     i.ChannelID,
			JoinedAt:      joinedAt,
			CorrelationID: uuid.NewString(),
		},
		Options:  options,
		Resolved: data.Resolved,
	}, nil
}

// ParseUserID validates a raw Discord snowflake.
func ParseUserID(raw string) (shared.UserID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return "", shared.ErrInvalidUserID
	}
	return shared.NewUserID(id.String())
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// ══════════════════════════════════════════════════════════════════════════════

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	// Timeout bounds a single command.
	Timeout time.Duration

	Logger *slog.Logger
}

// Router routes slash commands to handlers under recovery and metrics.
type Router struct {
	config   RouterConfig
	logger   *slog.Logger
	recovery *middleware.RecoveryMiddleware
	metrics  *middleware.MetricsMiddleware

	handlers   map[string]CommandHandler
	handlersMu sync.RWMutex
}

// NewRouter creates a new router.
func NewRouter(config RouterConfig, recovery *middleware.RecoveryMiddleware, metrics *middleware.MetricsMiddleware) *Router {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if recovery == nil {
		recovery = middleware.NewRecoveryMiddleware(middleware.RecoveryConfig{Logger: config.Logger})
	}
	if metrics == nil {
		metrics = middleware.NewMetricsMiddleware(nil)
	}
	return &Router{
		config:   config,
		logger:   config.Logger.With(logger.Component("discord_router")),
		recovery: recovery,
		metrics:  metrics,
		handlers: make(map[string]CommandHandler),
	}
}

// Register registers a handler for a command name.
func (r *Router) Register(name string, h CommandHandler) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	r.handlers[name] = h
}

// Commands returns the registered command names.
func (r *Router) Commands() []string {
	r.handlersMu.RLock()
	defer r.handlersMu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Route runs the handler for in and always returns a response to send.
func (r *Router) Route(ctx context.Context, in Interaction) *handler.Response {
	r.handlersMu.RLock()
	h, ok := r.handlers[in.Name]
	r.handlersMu.RUnlock()
	if !ok {
		r.logger.Warn("unknown command", logger.Command(in.Name))
		return &handler.Response{Content: presenter.MessageInternalError, Ephemeral: true}
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	start := time.Now()
	var resp *handler.Response
	result, err := r.metrics.Observe(in.Name, func() (*middleware.RecoveryResult, error) {
		return r.recovery.Run(ctx, in.Caller.UserID.String(), in.Name, func() error {
			var herr error
			resp, herr = h(ctx, in)
			return herr
		})
	})

	if result != nil && result.Recovered {
		return &handler.Response{Content: result.UserMessage, Ephemeral: true}
	}

	if err != nil && !shared.IsUserFacing(err) {
		r.logger.Error("command failed",
			logger.Command(in.Name),
			logger.UserID(in.Caller.UserID.String()),
			logger.CorrelationID(in.Caller.CorrelationID),
			logger.Err(err),
		)
	} else {
		r.logger.Debug("command handled",
			logger.Command(in.Name),
			logger.Latency(time.Since(start)),
		)
	}
	if resp == nil {
		return &handler.Response{Content: presenter.MessageInternalError, Ephemeral: true}
	}
	return resp
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Handlers bundles the slash command handlers.
type Handlers struct {
	Rank          *handler.RankHandler
	Leaderboard   *handler.LeaderboardHandler
	Daily         *handler.DailyHandler
	Redeem        *handler.RedeemHandler
	Notifications *handler.NotificationsHandler
}

// RegisterHandlers wires the command handlers into the router.
func (r *Router) RegisterHandlers(h Handlers) {
	r.Register(CommandRank, func(ctx context.Context, in Interaction) (*handler.Response, error) {
		req := handler.RankRequest{Caller: in.Caller}
		if opt, ok := in.Options[optionMember]; ok {
			target, err := ParseUserID(opt.UserValue(nil).ID)
			if err != nil {
				return nil, err
			}
			req.TargetID = target
			req.TargetName = displayName(in.Resolved, target.String())
		}
		return h.Rank.Handle(ctx, req)
	})

	r.Register(CommandLeaderboard, func(ctx context.Context, in Interaction) (*handler.Response, error) {
		req := handler.LeaderboardRequest{Caller: in.Caller}
		if opt, ok := in.Options[optionLimit]; ok {
			req.Limit = int(opt.IntValue())
		}
		return h.Leaderboard.Handle(ctx, req)
	})

	r.Register(CommandDaily, func(ctx context.Context, in Interaction) (*handler.Response, error) {
		return h.Daily.Handle(ctx, in.Caller)
	})

	r.Register(CommandRedeem, func(ctx context.Context, in Interaction) (*handler.Response, error) {
		req := handler.RedeemRequest{Caller: in.Caller}
		if opt, ok := in.Options[optionReward]; ok {
			req.RewardKey = opt.StringValue()
		}
		return h.Redeem.Handle(ctx, req)
	})

	r.Register(CommandNotifications, func(ctx context.Context, in Interaction) (*handler.Response, error) {
		req := handler.NotificationsRequest{Caller: in.Caller}
		if opt, ok := in.Options[optionOption]; ok {
			req.Option = opt.StringValue()
		}
		if opt, ok := in.Options[optionEnabled]; ok {
			req.Enabled = opt.BoolValue()
		}
		return h.Notifications.Handle(ctx, req)
	})
}

// displayName picks the guild nickname, then the global name, then the
// username of a resolved user. Falls back to a mention.
func displayName(resolved *discordgo.ApplicationCommandInteractionDataResolved, id string) string {
	if resolved != nil {
		if m, ok := resolved.Members[id]; ok && m != nil && m.Nick != "" {
			return m.Nick
		}
		if u, ok := resolved.Users[id]; ok && u != nil {
			if u.GlobalName != "" {
				return u.GlobalName
			}
			if u.Username != "" {
				return u.Username
			}
		}
	}
	return shared.UserID(id).Mention()
}
