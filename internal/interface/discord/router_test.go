package discord

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthia-live/synthia-bot/internal/application/command"
	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/reward"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/handler"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/middleware"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/presenter"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func quietRouter() *Router {
	recovery := middleware.NewRecoveryMiddleware(middleware.RecoveryConfig{Logger: quietLogger})
	return NewRouter(RouterConfig{Timeout: time.Second, Logger: quietLogger}, recovery, nil)
}

func slashCommand(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "900",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "100",
		ChannelID: "200",
		Member: &discordgo.Member{
			User:     &discordgo.User{ID: "42", Username: "alice"},
			JoinedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    name,
			Options: options,
		},
	}
}

func TestParseInteraction_GuildMember(t *testing.T) {
	in, err := ParseInteraction(slashCommand(CommandLeaderboard, &discordgo.ApplicationCommandInteractionDataOption{
		Name:  optionLimit,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(5),
	}))
	require.NoError(t, err)

	assert.Equal(t, CommandLeaderboard, in.Name)
	assert.Equal(t, shared.UserID("42"), in.Caller.UserID)
	assert.Equal(t, "100", in.Caller.GuildID)
	assert.Equal(t, "200", in.Caller.ChannelID)
	require.NotNil(t, in.Caller.JoinedAt)
	assert.Equal(t, 2025, in.Caller.JoinedAt.Year())
	assert.NotEmpty(t, in.Caller.CorrelationID)
	assert.Contains(t, in.Options, optionLimit)
}

func TestParseInteraction_DirectMessage(t *testing.T) {
	i := slashCommand(CommandDaily)
	i.Member = nil
	i.User = &discordgo.User{ID: "43"}

	in, err := ParseInteraction(i)
	require.NoError(t, err)
	assert.Equal(t, shared.UserID("43"), in.Caller.UserID)
	assert.Nil(t, in.Caller.JoinedAt)
}

func TestParseInteraction_Rejects(t *testing.T) {
	_, err := ParseInteraction(&discordgo.Interaction{Type: discordgo.InteractionPing})
	assert.Error(t, err)

	noUser := slashCommand(CommandDaily)
	noUser.Member = nil
	_, err = ParseInteraction(noUser)
	assert.Error(t, err)

	badID := slashCommand(CommandDaily)
	badID.Member.User.ID = "not-a-snowflake"
	_, err = ParseInteraction(badID)
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
}

func TestParseUserID(t *testing.T) {
	id, err := ParseUserID("175928847299117063")
	require.NoError(t, err)
	assert.Equal(t, shared.UserID("175928847299117063"), id)

	for _, raw := range []string{"", "abc", "0", "-5"} {
		_, err := ParseUserID(raw)
		assert.ErrorIs(t, err, shared.ErrInvalidUserID, raw)
	}
}

func TestRouter_Route(t *testing.T) {
	r := quietRouter()
	r.Register("ping", func(ctx context.Context, in Interaction) (*handler.Response, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return &handler.Response{Content: "pong " + in.Caller.UserID.String()}, nil
	})

	resp := r.Route(context.Background(), Interaction{Name: "ping", Caller: handler.Caller{UserID: "42"}})
	assert.Equal(t, "pong 42", resp.Content)
	assert.Equal(t, []string{"ping"}, r.Commands())
}

func TestRouter_UnknownCommand(t *testing.T) {
	resp := quietRouter().Route(context.Background(), Interaction{Name: "missing"})
	assert.Equal(t, presenter.MessageInternalError, resp.Content)
	assert.True(t, resp.Ephemeral)
}

func TestRouter_Panic(t *testing.T) {
	r := quietRouter()
	r.Register("boom", func(ctx context.Context, in Interaction) (*handler.Response, error) {
		panic("nil record")
	})

	resp := r.Route(context.Background(), Interaction{Name: "boom"})
	assert.Equal(t, middleware.DefaultRecoveryConfig().UserErrorMessage, resp.Content)
	assert.True(t, resp.Ephemeral)
}

func TestRouter_FailureWithoutResponse(t *testing.T) {
	r := quietRouter()
	r.Register("broken", func(ctx context.Context, in Interaction) (*handler.Response, error) {
		return nil, errors.New("db down")
	})

	resp := r.Route(context.Background(), Interaction{Name: "broken"})
	assert.Equal(t, presenter.MessageInternalError, resp.Content)
}

func TestRouter_DenialKeepsResponse(t *testing.T) {
	r := quietRouter()
	r.Register(CommandDaily, func(ctx context.Context, in Interaction) (*handler.Response, error) {
		return &handler.Response{Content: "plus tard", Ephemeral: true}, shared.ErrCooldownActive
	})

	resp := r.Route(context.Background(), Interaction{Name: CommandDaily})
	assert.Equal(t, "plus tard", resp.Content)
}

type stubUpdater struct {
	got command.UpdatePreferencesCommand
}

func (s *stubUpdater) Handle(_ context.Context, cmd command.UpdatePreferencesCommand) (*command.UpdatePreferencesResult, error) {
	s.got = cmd
	return &command.UpdatePreferencesResult{
		Option:  member.PreferenceOption(cmd.Option),
		Enabled: cmd.Enabled,
	}, nil
}

func TestRegisterHandlers_ParsesOptions(t *testing.T) {
	updater := &stubUpdater{}
	r := quietRouter()
	r.RegisterHandlers(Handlers{Notifications: handler.NewNotificationsHandler(updater)})

	in, err := ParseInteraction(slashCommand(CommandNotifications,
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  optionOption,
			Type:  discordgo.ApplicationCommandOptionString,
			Value: "level_up",
		},
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  optionEnabled,
			Type:  discordgo.ApplicationCommandOptionBoolean,
			Value: false,
		},
	))
	require.NoError(t, err)

	resp := r.Route(context.Background(), in)
	assert.True(t, resp.Ephemeral)
	assert.Equal(t, shared.UserID("42"), updater.got.UserID)
	assert.Equal(t, "level_up", updater.got.Option)
	assert.False(t, updater.got.Enabled)
	assert.Equal(t, in.Caller.CorrelationID, updater.got.CorrelationID)
}

func TestDisplayName(t *testing.T) {
	resolved := &discordgo.ApplicationCommandInteractionDataResolved{
		Members: map[string]*discordgo.Member{"1": {Nick: "Zed"}},
		Users: map[string]*discordgo.User{
			"1": {Username: "zed"},
			"2": {Username: "bob", GlobalName: "Bobby"},
			"3": {Username: "carol"},
		},
	}

	assert.Equal(t, "Zed", displayName(resolved, "1"))
	assert.Equal(t, "Bobby", displayName(resolved, "2"))
	assert.Equal(t, "carol", displayName(resolved, "3"))
	assert.Equal(t, "<@4>", displayName(resolved, "4"))
	assert.Equal(t, "<@5>", displayName(nil, "5"))
}

func TestApplicationCommands(t *testing.T) {
	cmds := ApplicationCommands(reward.DefaultCatalog())
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{CommandRank, CommandLeaderboard, CommandDaily, CommandRedeem, CommandNotifications}, names)
}
