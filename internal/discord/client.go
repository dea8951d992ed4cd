// Package discord implements the facade's client contract on top of
// discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/discordkit/internal/facade"
	"github.com/keepmind9/discordkit/internal/logger"
	"github.com/keepmind9/discordkit/pkg/constants"
	"github.com/sirupsen/logrus"
)

// ErrUnsupported is returned for account operations bots cannot perform.
var ErrUnsupported = errors.New("not supported for bot accounts")

// Client is a connected discordgo session.
type Client struct {
	session  Session
	state    *discordgo.State
	token    string
	launched time.Time
	timeout  time.Duration

	pingTimeout time.Duration

	ready     atomic.Bool
	readyMu   sync.Mutex
	readyCh   chan struct{}
	readySeen bool

	mu   sync.Mutex
	idle bool
	game string
}

var _ facade.Resource = (*Client)(nil)

// NewClient wraps session. Ready tracking starts immediately, so NewClient
// must run before the session is opened.
func NewClient(session Session, state *discordgo.State, token string) *Client {
	if state == nil {
		state = discordgo.NewState()
	}
	c := &Client{
		session:  session,
		state:    state,
		token:    token,
		launched: time.Now(),
		timeout:  constants.DefaultConnectTimeout,
		readyCh:  make(chan struct{}),

		pingTimeout: constants.DefaultPingTimeout,
	}
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Ready) {
		c.readyMu.Lock()
		defer c.readyMu.Unlock()
		c.ready.Store(true)
		if !c.readySeen {
			c.readySeen = true
			close(c.readyCh)
		}
	})
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		c.ready.Store(false)
	})
	return c
}

func (c *Client) log() *logrus.Entry {
	return logger.WithComponent("discord")
}

// resetReady arms a fresh ready channel for the next connection.
func (c *Client) resetReady() {
	c.readyMu.Lock()
	defer c.readyMu.Unlock()
	c.ready.Store(false)
	if c.readySeen {
		c.readyCh = make(chan struct{})
		c.readySeen = false
	}
}

// waitReady blocks until the current connection delivers its Ready event.
func (c *Client) waitReady(ctx context.Context, timeout time.Duration) error {
	c.readyMu.Lock()
	readyCh := c.readyCh
	c.readyMu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case <-readyCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for ready event: %w", ctx.Err())
	}
}

// open runs session.Open bounded by ctx and timeout. A handshake that
// finishes after the deadline is closed again.
func open(ctx context.Context, s Session, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	errc := make(chan error, 1)
	go func() { errc <- s.Open() }()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("open gateway: %w", err)
		}
		return nil
	case <-ctx.Done():
		go func() {
			if err := <-errc; err == nil {
				_ = s.Close()
			}
		}()
		return fmt.Errorf("open gateway: %w", ctx.Err())
	}
}

// Login reconnects the gateway and waits for the new session's Ready event.
func (c *Client) Login(ctx context.Context) error {
	c.resetReady()
	if err := c.session.Close(); err != nil {
		c.log().WithField("error", err).Debug("close-before-reconnect-failed")
	}
	if err := open(ctx, c.session, c.timeout); err != nil {
		return err
	}
	if err := c.waitReady(ctx, c.pingTimeout); err != nil {
		c.log().WithField("error", err).Error("discord-ready-event-missing")
		return err
	}
	c.log().Info("discord-gateway-reconnected")
	return nil
}

// Logout closes the gateway connection.
func (c *Client) Logout() error {
	c.ready.Store(false)
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	c.log().Info("discord-session-closed")
	return nil
}

func (c *Client) IsReady() bool { return c.ready.Load() }
func (c *Client) Token() string { return c.token }
func (c *Client) LaunchTime() time.Time { return c.launched }
func (c *Client) ResponseTime() time.Duration { return c.session.HeartbeatLatency() }
func (c *Client) Dispatcher() facade.Dispatcher { return c.session }
func (c *Client) ConnectTimeout() time.Duration { return c.timeout }
func (c *Client) State() *discordgo.State { return c.state }

// OurUser returns the user from the Ready event.
func (c *Client) OurUser() *discordgo.User {
	c.state.RLock()
	defer c.state.RUnlock()
	return c.state.User
}

func (c *Client) IsBot() bool {
	u := c.OurUser()
	return u == nil || u.Bot
}

func (c *Client) Application() (*discordgo.Application, error) {
	return c.session.Application("@me")
}

func (c *Client) Applications() ([]*discordgo.Application, error) {
	apps, err := c.session.Applications()
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []*discordgo.Application{}
	}
	return apps, nil
}

func (c *Client) Guilds() []*discordgo.Guild {
	c.state.RLock()
	defer c.state.RUnlock()
	return append([]*discordgo.Guild{}, c.state.Guilds...)
}

func (c *Client) Channels(includePrivate bool) []*discordgo.Channel {
	c.state.RLock()
	defer c.state.RUnlock()
	out := []*discordgo.Channel{}
	for _, g := range c.state.Guilds {
		out = append(out, g.Channels...)
	}
	if includePrivate {
		out = append(out, c.state.PrivateChannels...)
	}
	return out
}

func isVoice(ch *discordgo.Channel) bool {
	return ch.Type == discordgo.ChannelTypeGuildVoice || ch.Type == discordgo.ChannelTypeGuildStageVoice
}

func (c *Client) VoiceChannels() []*discordgo.Channel {
	out := []*discordgo.Channel{}
	for _, ch := range c.Channels(false) {
		if isVoice(ch) {
			out = append(out, ch)
		}
	}
	return out
}

// ConnectedVoiceChannels returns the voice channels our user is in.
func (c *Client) ConnectedVoiceChannels() []*discordgo.Channel {
	out := []*discordgo.Channel{}
	self := c.OurUser()
	if self == nil {
		return out
	}
	for _, g := range c.Guilds() {
		for _, vs := range g.VoiceStates {
			if vs.UserID != self.ID || vs.ChannelID == "" {
				continue
			}
			if ch, err := c.state.Channel(vs.ChannelID); err == nil {
				out = append(out, ch)
			}
		}
	}
	return out
}

func (c *Client) Regions() ([]*discordgo.VoiceRegion, error) {
	regions, err := c.session.VoiceRegions()
	if err != nil {
		return nil, err
	}
	if regions == nil {
		regions = []*discordgo.VoiceRegion{}
	}
	return regions, nil
}

// ChannelByID reads the state cache first and falls back to REST.
func (c *Client) ChannelByID(id string) (*discordgo.Channel, error) {
	if ch, err := c.state.Channel(id); err == nil {
		return ch, nil
	}
	return notFoundAsNil(c.session.Channel(id))
}

func (c *Client) VoiceChannelByID(id string) (*discordgo.Channel, error) {
	ch, err := c.ChannelByID(id)
	if err != nil || ch == nil || !isVoice(ch) {
		return nil, err
	}
	return ch, nil
}

func (c *Client) GuildByID(id string) (*discordgo.Guild, error) {
	if g, err := c.state.Guild(id); err == nil {
		return g, nil
	}
	return notFoundAsNil(c.session.Guild(id))
}

func (c *Client) UserByID(id string) (*discordgo.User, error) {
	if self := c.OurUser(); self != nil && self.ID == id {
		return self, nil
	}
	return notFoundAsNil(c.session.User(id))
}

func (c *Client) RegionByID(id string) (*discordgo.VoiceRegion, error) {
	regions, err := c.Regions()
	if err != nil {
		return nil, err
	}
	for _, r := range regions {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (c *Client) InviteForCode(code string) (*discordgo.Invite, error) {
	return notFoundAsNil(c.session.Invite(code))
}

func (c *Client) MessageByID(channelID, messageID string) (*discordgo.Message, error) {
	if m, err := c.state.Message(channelID, messageID); err == nil {
		return m, nil
	}
	return notFoundAsNil(c.session.ChannelMessage(channelID, messageID))
}

func (c *Client) RoleByID(guildID, roleID string) (*discordgo.Role, error) {
	if r, err := c.state.Role(guildID, roleID); err == nil {
		return r, nil
	}
	roles, err := c.session.GuildRoles(guildID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r, nil
		}
	}
	return nil, nil
}

func (c *Client) OrCreatePMChannel(userID string) (*discordgo.Channel, error) {
	return c.session.UserChannelCreate(userID)
}

// CreateGuild creates a guild, then applies region and icon, which the
// create endpoint no longer accepts.
func (c *Client) CreateGuild(name, region, icon string) (*discordgo.Guild, error) {
	g, err := c.session.GuildCreate(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create guild %s: %w", name, err)
	}
	if region == "" && icon == "" {
		return g, nil
	}
	edited, err := c.session.GuildEdit(g.ID, &discordgo.GuildParams{Region: region, Icon: icon})
	if err != nil {
		return g, fmt.Errorf("failed to update new guild %s: %w", g.ID, err)
	}
	return edited, nil
}

func (c *Client) CreateApplication(name string) (*discordgo.Application, error) {
	return c.session.ApplicationCreate(&discordgo.Application{Name: name})
}

// SendMessage sends content to a channel, keeping the tail of messages
// longer than Discord allows.
func (c *Client) SendMessage(channelID, content string) (*discordgo.Message, error) {
	const maxLength = constants.MaxDiscordMessageLength
	if runes := []rune(content); len(runes) > maxLength {
		c.log().WithFields(logrus.Fields{
			"original_length": len(runes),
			"max_length":      maxLength,
		}).Info("truncating-message-for-discord-limit")
		content = "..." + string(runes[len(runes)-maxLength+3:])
	}

	m, err := c.session.ChannelMessageSend(channelID, content)
	if err != nil {
		c.log().WithFields(logrus.Fields{
			"channel": channelID,
			"error":   err,
		}).Error("failed-to-send-message-to-discord")
		return nil, fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	c.log().WithField("channel", channelID).Debug("message-sent-to-discord")
	return m, nil
}

func (c *Client) ChangeUsername(username string) error {
	_, err := c.session.UserUpdate(username, "")
	return err
}

// ChangeAvatar sets the avatar from a data URI, see EncodeAvatar.
func (c *Client) ChangeAvatar(avatar string) error {
	_, err := c.session.UserUpdate("", avatar)
	return err
}

func (c *Client) ChangeEmail(string) error {
	return fmt.Errorf("change email: %w", ErrUnsupported)
}

func (c *Client) ChangePassword(string) error {
	return fmt.Errorf("change password: %w", ErrUnsupported)
}

// ChangeStatus sets the online status and keeps the current game.
func (c *Client) ChangeStatus(status discordgo.Status) error {
	c.mu.Lock()
	c.idle = status == discordgo.StatusIdle
	game := c.game
	c.mu.Unlock()
	return c.session.UpdateStatusComplex(statusData(status, game))
}

func (c *Client) ChangePresence(idle bool) error {
	c.mu.Lock()
	c.idle = idle
	game := c.game
	c.mu.Unlock()
	return c.session.UpdateGameStatus(idleSince(idle), game)
}

func (c *Client) ChangeGameStatus(game string) error {
	c.mu.Lock()
	c.game = game
	idle := c.idle
	c.mu.Unlock()
	return c.session.UpdateGameStatus(idleSince(idle), game)
}

func (c *Client) UpdatePresence(idle bool, game string) error {
	c.mu.Lock()
	c.idle, c.game = idle, game
	c.mu.Unlock()
	return c.session.UpdateGameStatus(idleSince(idle), game)
}

func idleSince(idle bool) int {
	if idle {
		return int(time.Now().UnixMilli())
	}
	return 0
}

func statusData(status discordgo.Status, game string) discordgo.UpdateStatusData {
	usd := discordgo.UpdateStatusData{
		Status:     string(status),
		AFK:        status == discordgo.StatusIdle,
		Activities: []*discordgo.Activity{},
	}
	if usd.AFK {
		since := idleSince(true)
		usd.IdleSince = &since
	}
	if game != "" {
		usd.Activities = append(usd.Activities, &discordgo.Activity{Name: game, Type: discordgo.ActivityTypeGame})
	}
	return usd
}
