// Package discord implements notification.Sink on the Discord REST API.
// Every call goes through a circuit breaker so an outage on Discord's side
// fails fast instead of stalling the ledger command paths.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sony/gobreaker"

	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Discord client.
type ClientConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration

	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxFailures:      5,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REST SURFACE
// ══════════════════════════════════════════════════════════════════════════════

// RESTSession is the part of *discordgo.Session the client calls.
type RESTSession interface {
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

var _ RESTSession = (*discordgo.Session)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client executes ledger side effects against Discord.
type Client struct {
	session RESTSession
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates a new Discord client.
func NewClient(session RESTSession, config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxFailures == 0 {
		config.MaxFailures = DefaultClientConfig().MaxFailures
	}
	if config.HalfOpenRequests == 0 {
		config.HalfOpenRequests = 1
	}
	logger := config.Logger.With("component", "discord_client")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "discord",
		MaxRequests: config.HalfOpenRequests,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: isHealthyOutcome,
	})

	return &Client{
		session: session,
		breaker: breaker,
		logger:  logger,
	}
}

var _ notification.Sink = (*Client)(nil)

// State returns the breaker state, for health reporting.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// GrantRole resolves roleName in the guild and adds it to the member.
// Role names are matched case-insensitively.
func (c *Client) GrantRole(ctx context.Context, guildID, userID, roleName string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list guild roles: %w", err)
		}

		roleID := findRole(roles, roleName)
		if roleID == "" {
			return nil, shared.ErrRoleNotFound
		}

		if err := c.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
			return nil, fmt.Errorf("add role %q: %w", roleName, err)
		}
		return nil, nil
	})
	return c.wrap("GrantRole", err)
}

// SendChannelMessage posts content to a guild channel.
func (c *Client) SendChannelMessage(ctx context.Context, channelID, content string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	})
	return c.wrap("SendChannelMessage", err)
}

// SendDirectMessage opens (or reuses) the DM channel and posts content.
func (c *Client) SendDirectMessage(ctx context.Context, userID, content string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		channel, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("open dm channel: %w", err)
		}
		return c.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx))
	})
	return c.wrap("SendDirectMessage", err)
}

func (c *Client) wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shared.ErrRoleNotFound):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return shared.WrapError("discord", op, shared.ErrDiscordUnavailable, "circuit open", err)
	default:
		return shared.WrapError("discord", op, shared.ErrExternalService, "request failed", err)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func findRole(roles []*discordgo.Role, name string) string {
	for _, role := range roles {
		if role != nil && strings.EqualFold(role.Name, name) {
			return role.ID
		}
	}
	return ""
}

// isHealthyOutcome decides what counts against the breaker. A missing
// role or a 4xx (missing permissions, closed DMs) is a per-request
// problem, not an outage; 429 and 5xx are.
func isHealthyOutcome(err error) bool {
	if err == nil || errors.Is(err, shared.ErrRoleNotFound) {
		return true
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		code := restErr.Response.StatusCode
		return code >= 400 && code < 500 && code != http.StatusTooManyRequests
	}
	return false
}
