// Package facadetest provides in-memory fakes of the facade contracts.
package facadetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/discordkit/internal/facade"
)

// ErrUnauthorized is what Builder returns for a configuration without credentials.
var ErrUnauthorized = errors.New("401: Unauthorized")

// Resource is an in-memory facade.Resource. Mutating calls are recorded in
// order; Fail injects an error for a recorded call name or a lookup name.
type Resource struct {
	mu     sync.Mutex
	calls  []string
	logins int

	Fail map[string]error

	TokenValue      string
	Launched        time.Time
	Self            *discordgo.User
	App             *discordgo.Application
	GuildList       []*discordgo.Guild
	PrivateChannels []*discordgo.Channel
	Users           map[string]*discordgo.User
	Messages        map[string]*discordgo.Message // keyed by channelID/messageID
	RegionList      []*discordgo.VoiceRegion
	Events          *Dispatcher
}

// NewResource returns a Resource with a bot user, an application and a dispatcher.
func NewResource(token string) *Resource {
	return &Resource{
		Fail:       map[string]error{},
		TokenValue: token,
		Launched:   time.Unix(1700000000, 0),
		Self:       &discordgo.User{ID: "self", Username: "kit", Bot: true},
		App:        &discordgo.Application{ID: "app-1", Name: "kit", Description: "a bot", Icon: "abc"},
		Users:      map[string]*discordgo.User{},
		Messages:   map[string]*discordgo.Message{},
		RegionList: []*discordgo.VoiceRegion{{ID: "us-east", Name: "US East"}},
		Events:     NewDispatcher(),
	}
}

func (r *Resource) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.Fail[call]
}

func (r *Resource) failure(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Fail[name]
}

// Calls returns the recorded mutating calls in order.
func (r *Resource) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Logins returns how often Login was called on the resource itself.
func (r *Resource) Logins() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logins
}

func (r *Resource) Login(ctx context.Context) error {
	r.mu.Lock()
	r.logins++
	r.mu.Unlock()
	return r.record("login")
}

func (r *Resource) Logout() error               { return r.record("logout") }
func (r *Resource) IsReady() bool               { return true }
func (r *Resource) IsBot() bool                 { return true }
func (r *Resource) Token() string               { return r.TokenValue }
func (r *Resource) LaunchTime() time.Time       { return r.Launched }
func (r *Resource) ResponseTime() time.Duration { return 42 * time.Millisecond }
func (r *Resource) OurUser() *discordgo.User    { return r.Self }

func (r *Resource) Dispatcher() facade.Dispatcher {
	if r.Events == nil {
		return nil
	}
	return r.Events
}

func (r *Resource) Application() (*discordgo.Application, error) {
	if err := r.failure("application"); err != nil {
		return nil, err
	}
	return r.App, nil
}

func (r *Resource) Applications() ([]*discordgo.Application, error) {
	app, err := r.Application()
	if err != nil {
		return nil, err
	}
	return []*discordgo.Application{app}, nil
}

func (r *Resource) Guilds() []*discordgo.Guild {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*discordgo.Guild{}, r.GuildList...)
}

func (r *Resource) Channels(includePrivate bool) []*discordgo.Channel {
	var out []*discordgo.Channel
	for _, g := range r.Guilds() {
		out = append(out, g.Channels...)
	}
	if includePrivate {
		out = append(out, r.PrivateChannels...)
	}
	return out
}

func (r *Resource) VoiceChannels() []*discordgo.Channel {
	var out []*discordgo.Channel
	for _, c := range r.Channels(false) {
		if c.Type == discordgo.ChannelTypeGuildVoice {
			out = append(out, c)
		}
	}
	return out
}

func (r *Resource) ConnectedVoiceChannels() []*discordgo.Channel { return []*discordgo.Channel{} }

func (r *Resource) Regions() ([]*discordgo.VoiceRegion, error) {
	if err := r.failure("regions"); err != nil {
		return nil, err
	}
	return r.RegionList, nil
}

func (r *Resource) ChannelByID(id string) (*discordgo.Channel, error) {
	if err := r.failure("channel-by-id"); err != nil {
		return nil, err
	}
	for _, c := range r.Channels(true) {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (r *Resource) VoiceChannelByID(id string) (*discordgo.Channel, error) {
	c, err := r.ChannelByID(id)
	if err != nil || c == nil || c.Type != discordgo.ChannelTypeGuildVoice {
		return nil, err
	}
	return c, nil
}

func (r *Resource) GuildByID(id string) (*discordgo.Guild, error) {
	if err := r.failure("guild-by-id"); err != nil {
		return nil, err
	}
	for _, g := range r.Guilds() {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, nil
}

func (r *Resource) UserByID(id string) (*discordgo.User, error) {
	if err := r.failure("user-by-id"); err != nil {
		return nil, err
	}
	if r.Self != nil && r.Self.ID == id {
		return r.Self, nil
	}
	return r.Users[id], nil
}

func (r *Resource) RegionByID(id string) (*discordgo.VoiceRegion, error) {
	for _, reg := range r.RegionList {
		if reg.ID == id {
			return reg, nil
		}
	}
	return nil, nil
}

func (r *Resource) InviteForCode(code string) (*discordgo.Invite, error) {
	return &discordgo.Invite{Code: code}, nil
}

func (r *Resource) MessageByID(channelID, messageID string) (*discordgo.Message, error) {
	return r.Messages[channelID+"/"+messageID], nil
}

func (r *Resource) RoleByID(guildID, roleID string) (*discordgo.Role, error) {
	g, err := r.GuildByID(guildID)
	if err != nil || g == nil {
		return nil, err
	}
	for _, role := range g.Roles {
		if role.ID == roleID {
			return role, nil
		}
	}
	return nil, nil
}

func (r *Resource) OrCreatePMChannel(userID string) (*discordgo.Channel, error) {
	if err := r.record("pm-channel(" + userID + ")"); err != nil {
		return nil, err
	}
	return &discordgo.Channel{ID: "dm-" + userID, Type: discordgo.ChannelTypeDM}, nil
}

func (r *Resource) CreateGuild(name, region, icon string) (*discordgo.Guild, error) {
	if err := r.record(fmt.Sprintf("create-guild(%s,%s,%s)", name, region, icon)); err != nil {
		return nil, err
	}
	g := &discordgo.Guild{ID: "g-" + name, Name: name, Region: region}
	r.mu.Lock()
	r.GuildList = append(r.GuildList, g)
	r.mu.Unlock()
	return g, nil
}

func (r *Resource) CreateApplication(name string) (*discordgo.Application, error) {
	if err := r.record("create-application(" + name + ")"); err != nil {
		return nil, err
	}
	return &discordgo.Application{ID: "app-" + name, Name: name}, nil
}

func (r *Resource) SendMessage(channelID, content string) (*discordgo.Message, error) {
	if err := r.record("send-message(" + channelID + "," + content + ")"); err != nil {
		return nil, err
	}
	return &discordgo.Message{ID: "m-1", ChannelID: channelID, Content: content}, nil
}

func (r *Resource) ChangeUsername(username string) error {
	return r.record("change-username(" + username + ")")
}

func (r *Resource) ChangeAvatar(avatar string) error {
	return r.record("change-avatar(" + avatar + ")")
}

func (r *Resource) ChangeEmail(email string) error {
	return r.record("change-email(" + email + ")")
}

func (r *Resource) ChangePassword(password string) error {
	return r.record("change-password(" + password + ")")
}

func (r *Resource) ChangeStatus(status discordgo.Status) error {
	return r.record("change-status(" + string(status) + ")")
}

func (r *Resource) ChangePresence(idle bool) error {
	return r.record(fmt.Sprintf("change-presence(%v)", idle))
}

func (r *Resource) ChangeGameStatus(game string) error {
	return r.record("change-game-status(" + game + ")")
}

func (r *Resource) UpdatePresence(idle bool, game string) error {
	return r.record(fmt.Sprintf("update-presence(%v,%s)", idle, game))
}

// Builder hands out Resource and remembers every configuration it saw.
type Builder struct {
	mu     sync.Mutex
	builds int
	seen   []facade.Config

	// Resource is returned by Build; created on first Build when nil.
	Resource *Resource
	// Err fails Build for configurations that have credentials.
	Err error
	// Block, when set, holds Build until it is closed.
	Block chan struct{}
}

func (b *Builder) Build(ctx context.Context, cfg facade.Config) (facade.Resource, error) {
	b.mu.Lock()
	b.builds++
	b.seen = append(b.seen, cfg)
	block := b.Block
	b.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if cfg.Credentials() == facade.CredentialNone {
		return nil, ErrUnauthorized
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	if b.Resource == nil {
		b.Resource = NewResource(cfg.Token)
	}
	return b.Resource, nil
}

// Builds returns how often Build ran.
func (b *Builder) Builds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds
}

// LastConfig returns the configuration of the latest Build.
func (b *Builder) LastConfig() facade.Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.seen) == 0 {
		return facade.Config{}
	}
	return b.seen[len(b.seen)-1]
}

// Dispatcher is a synchronous facade.Dispatcher.
type Dispatcher struct {
	mu       sync.Mutex
	next     int
	handlers map[int]registration
}

type registration struct {
	handler interface{}
	once    bool
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: map[int]registration{}}
}

func (d *Dispatcher) add(handler interface{}, once bool) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.next
	d.next++
	d.handlers[id] = registration{handler: handler, once: once}
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers, id)
	}
}

func (d *Dispatcher) AddHandler(handler interface{}) func() { return d.add(handler, false) }

func (d *Dispatcher) AddHandlerOnce(handler interface{}) func() { return d.add(handler, true) }

// Len returns the number of registered handlers.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers)
}

// Emit delivers event to every handler registered for its type and returns
// how many handlers ran.
func Emit[E any](d *Dispatcher, event E) int {
	d.mu.Lock()
	var matched []func(*discordgo.Session, E)
	for id, reg := range d.handlers {
		fn, ok := reg.handler.(func(*discordgo.Session, E))
		if !ok {
			continue
		}
		matched = append(matched, fn)
		if reg.once {
			delete(d.handlers, id)
		}
	}
	d.mu.Unlock()

	for _, fn := range matched {
		fn(nil, event)
	}
	return len(matched)
}
