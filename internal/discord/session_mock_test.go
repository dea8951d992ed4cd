package discord

import (
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

var _ Session = (*mockSession)(nil)

// mockSession records calls and serves canned REST responses.
type mockSession struct {
	mu       sync.Mutex
	handlers []interface{}
	calls    []string

	openErr   error
	openDelay time.Duration
	noReady   bool
	opens     int
	closes    int

	users    map[string]*discordgo.User
	channels map[string]*discordgo.Channel
	guilds   map[string]*discordgo.Guild
	messages map[string]*discordgo.Message
	roles    map[string][]*discordgo.Role
	regions  []*discordgo.VoiceRegion
	restErr  error

	statuses []discordgo.UpdateStatusData
	games    []string
	idles    []int
	updates  [][2]string
	params   []*discordgo.GuildParams
}

func newMockSession() *mockSession {
	return &mockSession{
		users:    map[string]*discordgo.User{},
		channels: map[string]*discordgo.Channel{},
		guilds:   map[string]*discordgo.Guild{},
		messages: map[string]*discordgo.Message{},
		roles:    map[string][]*discordgo.Role{},
		regions:  []*discordgo.VoiceRegion{{ID: "eu-west", Name: "EU West"}},
	}
}

func notFound() error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
}

func (m *mockSession) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockSession) AddHandler(handler interface{}) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
	idx := len(m.handlers) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.handlers[idx] = nil
	}
}

func (m *mockSession) AddHandlerOnce(handler interface{}) func() {
	return m.AddHandler(handler)
}

func (m *mockSession) emitReady() {
	m.mu.Lock()
	handlers := append([]interface{}(nil), m.handlers...)
	m.mu.Unlock()
	for _, h := range handlers {
		if fn, ok := h.(func(*discordgo.Session, *discordgo.Ready)); ok {
			fn(nil, &discordgo.Ready{})
		}
	}
}

func (m *mockSession) Open() error {
	if m.openDelay > 0 {
		time.Sleep(m.openDelay)
	}
	m.mu.Lock()
	m.opens++
	err := m.openErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if !m.noReady {
		m.emitReady()
	}
	return nil
}

func (m *mockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

func (m *mockSession) HeartbeatLatency() time.Duration { return 87 * time.Millisecond }

func (m *mockSession) User(userID string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return nil, notFound()
}

func (m *mockSession) UserUpdate(username, avatar string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	m.mu.Lock()
	m.updates = append(m.updates, [2]string{username, avatar})
	m.mu.Unlock()
	return &discordgo.User{Username: username, Avatar: avatar}, nil
}

func (m *mockSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.record("user-channel-create:" + recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (m *mockSession) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.record("channel:" + channelID)
	if m.restErr != nil {
		return nil, m.restErr
	}
	if c, ok := m.channels[channelID]; ok {
		return c, nil
	}
	return nil, notFound()
}

func (m *mockSession) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if msg, ok := m.messages[channelID+"/"+messageID]; ok {
		return msg, nil
	}
	return nil, notFound()
}

func (m *mockSession) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.record("send:" + channelID)
	if m.restErr != nil {
		return nil, m.restErr
	}
	return &discordgo.Message{ID: "m-1", ChannelID: channelID, Content: content}, nil
}

func (m *mockSession) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	m.record("guild:" + guildID)
	if g, ok := m.guilds[guildID]; ok {
		return g, nil
	}
	return nil, notFound()
}

func (m *mockSession) GuildCreate(name string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	m.record("guild-create:" + name)
	return &discordgo.Guild{ID: "new-" + name, Name: name}, nil
}

func (m *mockSession) GuildEdit(guildID string, g *discordgo.GuildParams, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	m.mu.Lock()
	m.params = append(m.params, g)
	m.mu.Unlock()
	return &discordgo.Guild{ID: guildID, Region: g.Region, Icon: g.Icon}, nil
}

func (m *mockSession) GuildRoles(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	if roles, ok := m.roles[guildID]; ok {
		return roles, nil
	}
	return nil, notFound()
}

func (m *mockSession) Invite(inviteID string, _ ...discordgo.RequestOption) (*discordgo.Invite, error) {
	if inviteID == "expired" {
		return nil, notFound()
	}
	return &discordgo.Invite{Code: inviteID}, nil
}

func (m *mockSession) VoiceRegions(_ ...discordgo.RequestOption) ([]*discordgo.VoiceRegion, error) {
	return m.regions, nil
}

func (m *mockSession) Application(appID string) (*discordgo.Application, error) {
	return &discordgo.Application{ID: "app-" + appID, Name: "kit"}, nil
}

func (m *mockSession) Applications() ([]*discordgo.Application, error) {
	return nil, nil
}

func (m *mockSession) ApplicationCreate(ap *discordgo.Application) (*discordgo.Application, error) {
	m.record("application-create:" + ap.Name)
	return &discordgo.Application{ID: "app-2", Name: ap.Name}, nil
}

func (m *mockSession) UpdateGameStatus(idle int, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idles = append(m.idles, idle)
	m.games = append(m.games, name)
	return nil
}

func (m *mockSession) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, usd)
	return nil
}

func (m *mockSession) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
