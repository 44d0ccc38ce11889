// Package discord is the Discord gateway front end of the ledger. It turns
// gateway events into activity commands and slash command interactions
// into ledger operations, and executes the returned side effects.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/synthia-live/synthia-bot/config"
	"github.com/synthia-live/synthia-bot/internal/application/command"
	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/reward"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/handler"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/middleware"
	"github.com/synthia-live/synthia-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the Discord bot.
type BotConfig struct {
	// GuildID scopes slash command registration. Empty registers globally.
	GuildID string

	// RemoveCommandsOnShutdown deletes the registered commands on Stop.
	RemoveCommandsOnShutdown bool

	// EventTimeout bounds the processing of one gateway event.
	EventTimeout time.Duration

	// EffectTimeout bounds the side effects of one event or command.
	// Defaults to EventTimeout.
	EffectTimeout time.Duration

	Logger *slog.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// ActivityIngester handles message and reaction activity.
type ActivityIngester interface {
	Handle(ctx context.Context, cmd command.IngestActivityCommand) (*command.IngestActivityResult, error)
}

// EffectRunner executes side effects after a command has been persisted.
type EffectRunner interface {
	Dispatch(ctx context.Context, effects []notification.Effect)
}

// FeatureGate reports whether a feature flag is on.
type FeatureGate interface {
	IsEnabled(featureName string, ctx *config.FeatureContext) bool
}

// Responder answers interactions. *discordgo.Session implements it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// BotDependencies contains all dependencies of the bot.
type BotDependencies struct {
	Ingest   ActivityIngester
	Router   *Router
	Effects  EffectRunner
	Flags    FeatureGate
	Catalog  *reward.Catalog
	Recovery *middleware.RecoveryMiddleware
	Metrics  *middleware.MetricsMiddleware
}

// Gateway event labels for metrics and panic reports.
const (
	eventMessageCreate = "message_create"
	eventReactionAdd   = "reaction_add"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the Discord gateway controller.
type Bot struct {
	config    BotConfig
	deps      BotDependencies
	session   *discordgo.Session
	responder Responder
	logger    *slog.Logger

	baseCtx context.Context
	selfID  string

	registered []*discordgo.ApplicationCommand
	removers   []func()
	mu         sync.Mutex
}

// NewSession creates a discordgo session with the intents the ledger needs.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages
	return session, nil
}

// NewBot creates a new bot over session.
func NewBot(session *discordgo.Session, config BotConfig, deps BotDependencies) *Bot {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.EventTimeout <= 0 {
		config.EventTimeout = 10 * time.Second
	}
	if config.EffectTimeout <= 0 {
		config.EffectTimeout = config.EventTimeout
	}
	if deps.Catalog == nil {
		deps.Catalog = reward.DefaultCatalog()
	}
	if deps.Recovery == nil {
		deps.Recovery = middleware.NewRecoveryMiddleware(middleware.RecoveryConfig{Logger: config.Logger})
	}
	if deps.Metrics == nil {
		deps.Metrics = middleware.NewMetricsMiddleware(nil)
	}

	b := &Bot{
		config:  config,
		deps:    deps,
		session: session,
		logger:  config.Logger.With(logger.Component("discord_bot")),
		baseCtx: context.Background(),
	}
	if session != nil {
		b.responder = session
	}
	return b
}

// Start connects to the gateway and registers slash commands.
func (b *Bot) Start(ctx context.Context) error {
	if b.session == nil {
		return errors.New("discord: no session")
	}
	b.baseCtx = ctx

	b.removers = append(b.removers,
		b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			b.mu.Lock()
			b.selfID = r.User.ID
			b.mu.Unlock()
			b.logger.Info("connected to gateway", "user", r.User.Username, "guilds", len(r.Guilds))
		}),
		b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			b.HandleMessage(b.baseCtx, m.Message)
		}),
		b.session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
			b.HandleReaction(b.baseCtx, r)
		}),
		b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			b.HandleInteraction(b.baseCtx, i.Interaction)
		}),
	)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}

	appID := b.session.State.User.ID
	commands, err := b.session.ApplicationCommandBulkOverwrite(appID, b.config.GuildID, ApplicationCommands(b.deps.Catalog))
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	b.registered = commands

	b.logger.Info("slash commands registered", "count", len(commands), "guild_id", b.config.GuildID)
	return nil
}

// Stop removes handlers, optionally deletes commands and closes the gateway.
func (b *Bot) Stop() error {
	if b.session == nil {
		return nil
	}
	for _, remove := range b.removers {
		remove()
	}
	b.removers = nil

	if b.config.RemoveCommandsOnShutdown && b.session.State != nil && b.session.State.User != nil {
		appID := b.session.State.User.ID
		for _, cmd := range b.registered {
			if err := b.session.ApplicationCommandDelete(appID, b.config.GuildID, cmd.ID); err != nil {
				b.logger.Warn("failed to delete command", "command", cmd.Name, "error", err)
			}
		}
	}

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close gateway: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GATEWAY EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// HandleMessage ingests a posted message as activity.
func (b *Bot) HandleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil {
		return
	}

	cmd := command.IngestActivityCommand{
		UserID:      shared.UserID(m.Author.ID),
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		Kind:        command.ActivityMessage,
		AuthorIsBot: m.Author.Bot || m.WebhookID != "",
	}
	if m.Member != nil && !m.Member.JoinedAt.IsZero() {
		joined := m.Member.JoinedAt.UTC()
		cmd.MemberJoinedAt = &joined
	}

	b.ingest(ctx, eventMessageCreate, m.Author.ID, cmd)
}

// HandleReaction records a reaction when the activity.reactions flag is on.
func (b *Bot) HandleReaction(ctx context.Context, r *discordgo.MessageReactionAdd) {
	if r == nil || r.MessageReaction == nil {
		return
	}
	if b.isSelf(r.UserID) {
		return
	}
	if b.deps.Flags != nil && !b.deps.Flags.IsEnabled(config.FeatureActivityReactions, &config.FeatureContext{UserID: r.UserID}) {
		return
	}

	isBot := r.Member != nil && r.Member.User != nil && r.Member.User.Bot
	b.ingest(ctx, eventReactionAdd, r.UserID, command.IngestActivityCommand{
		UserID:      shared.UserID(r.UserID),
		GuildID:     r.GuildID,
		ChannelID:   r.ChannelID,
		Kind:        command.ActivityReaction,
		AuthorIsBot: isBot,
	})
}

func (b *Bot) ingest(ctx context.Context, event, rawUserID string, cmd command.IngestActivityCommand) {
	if !cmd.AuthorIsBot {
		id, err := ParseUserID(rawUserID)
		if err != nil {
			b.logger.Debug("ignoring event with invalid user id", "event", event, "user_id", rawUserID)
			return
		}
		cmd.UserID = id
	}

	ingestCtx, cancel := context.WithTimeout(ctx, b.config.EventTimeout)
	defer cancel()

	var result *command.IngestActivityResult
	_, err := b.deps.Metrics.Observe(event, func() (*middleware.RecoveryResult, error) {
		return b.deps.Recovery.Run(ingestCtx, rawUserID, event, func() error {
			var herr error
			result, herr = b.deps.Ingest.Handle(ingestCtx, cmd)
			return herr
		})
	})
	if err != nil {
		b.logger.Error("activity ingestion failed",
			"event", event,
			"user_id", rawUserID,
			"guild_id", cmd.GuildID,
			"error", err,
		)
		return
	}

	if result != nil && len(result.Effects) > 0 {
		b.dispatch(ctx, result.Effects)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERACTIONS
// ══════════════════════════════════════════════════════════════════════════════

// HandleInteraction routes a slash command, answers it and then runs the
// side effects of the command.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	in, err := ParseInteraction(i)
	if err != nil {
		b.logger.Warn("ignoring malformed interaction", "interaction_id", i.ID, "error", err)
		return
	}

	resp := b.deps.Router.Route(ctx, in)
	if err := b.respond(i, resp); err != nil {
		b.logger.Warn("failed to answer interaction",
			logger.Command(in.Name),
			logger.UserID(in.Caller.UserID.String()),
			logger.Err(err),
		)
	}

	if len(resp.Effects) > 0 {
		b.dispatch(ctx, resp.Effects)
	}
}

func (b *Bot) respond(i *discordgo.Interaction, resp *handler.Response) error {
	if b.responder == nil {
		return errors.New("discord: no responder")
	}

	data := &discordgo.InteractionResponseData{Content: resp.Content}
	if resp.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{resp.Embed}
	}
	if resp.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	return b.responder.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// dispatch runs effects under their own deadline. ctx must be the event's
// parent context, not the one already spent on the store write.
func (b *Bot) dispatch(ctx context.Context, effects []notification.Effect) {
	if b.deps.Effects == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, b.config.EffectTimeout)
	defer cancel()
	b.deps.Effects.Dispatch(ctx, effects)
}

func (b *Bot) isSelf(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selfID != "" && b.selfID == userID
}
