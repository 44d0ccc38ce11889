package discord

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

type fakeSession struct {
	roles     []*discordgo.Role
	rolesErr  error
	granted   []string
	sent      map[string][]string
	sendErr   error
	dmErr     error
	dmOpened  []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{sent: map[string][]string{}}
}

func (f *fakeSession) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return f.roles, f.rolesErr
}

func (f *fakeSession) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.granted = append(f.granted, guildID+"/"+userID+"/"+roleID)
	return nil
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent[channelID] = append(f.sent[channelID], content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.dmErr != nil {
		return nil, f.dmErr
	}
	f.dmOpened = append(f.dmOpened, recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func newTestClient(session RESTSession, maxFailures uint32) *Client {
	return NewClient(session, ClientConfig{
		MaxFailures: maxFailures,
		OpenTimeout: time.Minute,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func restError(code int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: code}}
}

func TestClient_GrantRole(t *testing.T) {
	session := newFakeSession()
	session.roles = []*discordgo.Role{
		{ID: "r1", Name: "Level 1"},
		{ID: "r2", Name: "Level 2"},
	}
	c := newTestClient(session, 5)

	require.NoError(t, c.GrantRole(context.Background(), "g", "u", "level 2"))
	assert.Equal(t, []string{"g/u/r2"}, session.granted)
}

func TestClient_GrantRole_MissingRole(t *testing.T) {
	session := newFakeSession()
	session.roles = []*discordgo.Role{{ID: "r1", Name: "Level 1"}}
	c := newTestClient(session, 1)

	for i := 0; i < 3; i++ {
		err := c.GrantRole(context.Background(), "g", "u", "Level 9")
		assert.ErrorIs(t, err, shared.ErrRoleNotFound)
	}
	assert.Empty(t, session.granted)
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestClient_SendChannelMessage(t *testing.T) {
	session := newFakeSession()
	c := newTestClient(session, 5)

	require.NoError(t, c.SendChannelMessage(context.Background(), "c1", "bonjour"))
	assert.Equal(t, []string{"bonjour"}, session.sent["c1"])
}

func TestClient_SendDirectMessage(t *testing.T) {
	session := newFakeSession()
	c := newTestClient(session, 5)

	require.NoError(t, c.SendDirectMessage(context.Background(), "42", "salut"))
	assert.Equal(t, []string{"42"}, session.dmOpened)
	assert.Equal(t, []string{"salut"}, session.sent["dm-42"])
}

func TestClient_DirectMessagesClosedDoesNotTrip(t *testing.T) {
	session := newFakeSession()
	session.dmErr = restError(http.StatusForbidden)
	c := newTestClient(session, 2)

	for i := 0; i < 4; i++ {
		err := c.SendDirectMessage(context.Background(), "42", "salut")
		assert.ErrorIs(t, err, shared.ErrExternalService)
	}
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestClient_BreakerOpensOnOutage(t *testing.T) {
	session := newFakeSession()
	session.sendErr = restError(http.StatusBadGateway)
	c := newTestClient(session, 2)
	ctx := context.Background()

	assert.ErrorIs(t, c.SendChannelMessage(ctx, "c1", "x"), shared.ErrExternalService)
	assert.ErrorIs(t, c.SendChannelMessage(ctx, "c1", "x"), shared.ErrExternalService)
	assert.Equal(t, gobreaker.StateOpen, c.State())

	session.sendErr = nil
	err := c.SendChannelMessage(ctx, "c1", "x")
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.Empty(t, session.sent["c1"])
}

func TestIsHealthyOutcome(t *testing.T) {
	assert.True(t, isHealthyOutcome(nil))
	assert.True(t, isHealthyOutcome(shared.ErrRoleNotFound))
	assert.True(t, isHealthyOutcome(restError(http.StatusForbidden)))
	assert.False(t, isHealthyOutcome(restError(http.StatusTooManyRequests)))
	assert.False(t, isHealthyOutcome(restError(http.StatusInternalServerError)))
	assert.False(t, isHealthyOutcome(errors.New("connection reset")))
}
