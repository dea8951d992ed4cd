package facade

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// IsReady reports whether the client exists and finished its handshake.
func (f *Facade) IsReady() bool {
	return query(f, Resource.IsReady, func() bool { return false })
}

// IsBot reports whether the account is a bot account. Facades assume bots.
func (f *Facade) IsBot() bool {
	return query(f, Resource.IsBot, func() bool { return true })
}

// Token returns the client's token, or the configured one before login.
func (f *Facade) Token() string {
	return query(f, Resource.Token, func() string { return f.Config().Token })
}

// LaunchTime returns when the client connected, or now before login.
func (f *Facade) LaunchTime() time.Time {
	return query(f, Resource.LaunchTime, time.Now)
}

// ResponseTime returns the gateway heartbeat latency.
func (f *Facade) ResponseTime() time.Duration {
	return query(f, Resource.ResponseTime, func() time.Duration { return 0 })
}

// Dispatcher returns the client's event dispatcher, nil before login.
func (f *Facade) Dispatcher() Dispatcher {
	return query(f, Resource.Dispatcher, func() Dispatcher { return nil })
}

// OurUser returns the logged in user, nil before login.
func (f *Facade) OurUser() *discordgo.User {
	return query(f, Resource.OurUser, func() *discordgo.User { return nil })
}

// Guilds returns the guilds the client is in.
func (f *Facade) Guilds() []*discordgo.Guild {
	return query(f, Resource.Guilds, func() []*discordgo.Guild { return []*discordgo.Guild{} })
}

// Channels returns every known channel, optionally including private ones.
func (f *Facade) Channels(includePrivate bool) []*discordgo.Channel {
	return query(f, func(r Resource) []*discordgo.Channel {
		return r.Channels(includePrivate)
	}, emptyChannels)
}

// VoiceChannels returns every known voice channel.
func (f *Facade) VoiceChannels() []*discordgo.Channel {
	return query(f, Resource.VoiceChannels, emptyChannels)
}

// ConnectedVoiceChannels returns the voice channels the client sits in.
func (f *Facade) ConnectedVoiceChannels() []*discordgo.Channel {
	return query(f, Resource.ConnectedVoiceChannels, emptyChannels)
}

func emptyChannels() []*discordgo.Channel { return []*discordgo.Channel{} }

// Regions returns the available voice regions.
func (f *Facade) Regions() ([]*discordgo.VoiceRegion, error) {
	if r, ok := f.current(); ok {
		return r.Regions()
	}
	return []*discordgo.VoiceRegion{}, nil
}

// Applications returns the applications owned by the account.
func (f *Facade) Applications() ([]*discordgo.Application, error) {
	if r, ok := f.current(); ok {
		return r.Applications()
	}
	return []*discordgo.Application{}, nil
}

// applicationField reads one field of the client's application, "" before login.
func (f *Facade) applicationField(get func(*discordgo.Application) string) (string, error) {
	app, err := lookup(f, Resource.Application)
	if err != nil || app == nil {
		return "", err
	}
	return get(app), nil
}

// Description returns the application description.
func (f *Facade) Description() (string, error) {
	return f.applicationField(func(a *discordgo.Application) string { return a.Description })
}

// ApplicationIconURL returns the CDN URL of the application icon.
func (f *Facade) ApplicationIconURL() (string, error) {
	return f.applicationField(func(a *discordgo.Application) string {
		if a.Icon == "" {
			return ""
		}
		return discordgo.EndpointCDN + "app-icons/" + a.ID + "/" + a.Icon + ".png"
	})
}

// ApplicationClientID returns the application's client ID.
func (f *Facade) ApplicationClientID() (string, error) {
	return f.applicationField(func(a *discordgo.Application) string { return a.ID })
}

// ApplicationName returns the application name.
func (f *Facade) ApplicationName() (string, error) {
	return f.applicationField(func(a *discordgo.Application) string { return a.Name })
}

// ChannelByID looks up a channel, nil before login.
func (f *Facade) ChannelByID(id string) (*discordgo.Channel, error) {
	return lookup(f, func(r Resource) (*discordgo.Channel, error) { return r.ChannelByID(id) })
}

// VoiceChannelByID looks up a voice channel, nil before login.
func (f *Facade) VoiceChannelByID(id string) (*discordgo.Channel, error) {
	return lookup(f, func(r Resource) (*discordgo.Channel, error) { return r.VoiceChannelByID(id) })
}

// GuildByID looks up a guild, nil before login.
func (f *Facade) GuildByID(id string) (*discordgo.Guild, error) {
	return lookup(f, func(r Resource) (*discordgo.Guild, error) { return r.GuildByID(id) })
}

// UserByID looks up a user, nil before login.
func (f *Facade) UserByID(id string) (*discordgo.User, error) {
	return lookup(f, func(r Resource) (*discordgo.User, error) { return r.UserByID(id) })
}

// RegionByID looks up a voice region, nil before login.
func (f *Facade) RegionByID(id string) (*discordgo.VoiceRegion, error) {
	return lookup(f, func(r Resource) (*discordgo.VoiceRegion, error) { return r.RegionByID(id) })
}

// InviteForCode resolves an invite code, nil before login.
func (f *Facade) InviteForCode(code string) (*discordgo.Invite, error) {
	return lookup(f, func(r Resource) (*discordgo.Invite, error) { return r.InviteForCode(code) })
}

// OrCreatePMChannel returns the direct message channel with a user, nil before login.
func (f *Facade) OrCreatePMChannel(userID string) (*discordgo.Channel, error) {
	return lookup(f, func(r Resource) (*discordgo.Channel, error) { return r.OrCreatePMChannel(userID) })
}

// The calls below need the client. Before login they are queued and
// return zero values.

// CreateGuild creates a guild. Before login it returns nil and the guild is
// created once the client is ready.
func (f *Facade) CreateGuild(name, region string) (*discordgo.Guild, error) {
	return f.CreateGuildWithIcon(name, region, "")
}

// CreateGuildWithIcon creates a guild with an icon given as a data URI.
func (f *Facade) CreateGuildWithIcon(name, region, icon string) (*discordgo.Guild, error) {
	return command(f, "create-guild", func(r Resource) (*discordgo.Guild, error) {
		return r.CreateGuild(name, region, icon)
	})
}

// CreateApplication creates an application.
func (f *Facade) CreateApplication(name string) (*discordgo.Application, error) {
	return command(f, "create-application", func(r Resource) (*discordgo.Application, error) {
		return r.CreateApplication(name)
	})
}

// SendMessage posts content to a channel.
func (f *Facade) SendMessage(channelID, content string) (*discordgo.Message, error) {
	return command(f, "send-message", func(r Resource) (*discordgo.Message, error) {
		return r.SendMessage(channelID, content)
	})
}

// ChangeUsername renames the account.
func (f *Facade) ChangeUsername(username string) error {
	return f.Defer("change-username", func(r Resource) error { return r.ChangeUsername(username) })
}

// ChangeAvatar replaces the avatar with a data URI image.
func (f *Facade) ChangeAvatar(avatar string) error {
	return f.Defer("change-avatar", func(r Resource) error { return r.ChangeAvatar(avatar) })
}

// ChangeEmail changes the account email.
func (f *Facade) ChangeEmail(email string) error {
	return f.Defer("change-email", func(r Resource) error { return r.ChangeEmail(email) })
}

// ChangePassword changes the account password.
func (f *Facade) ChangePassword(password string) error {
	return f.Defer("change-password", func(r Resource) error { return r.ChangePassword(password) })
}

// ChangeStatus sets the online status.
func (f *Facade) ChangeStatus(status discordgo.Status) error {
	return f.Defer("change-status", func(r Resource) error { return r.ChangeStatus(status) })
}

// ChangePresence toggles idle.
func (f *Facade) ChangePresence(idle bool) error {
	return f.Defer("change-presence", func(r Resource) error { return r.ChangePresence(idle) })
}

// ChangeGameStatus sets the game being played, empty to clear it.
func (f *Facade) ChangeGameStatus(game string) error {
	return f.Defer("change-game-status", func(r Resource) error { return r.ChangeGameStatus(game) })
}

// UpdatePresence sets idle and game together.
func (f *Facade) UpdatePresence(idle bool, game string) error {
	return f.Defer("update-presence", func(r Resource) error { return r.UpdatePresence(idle, game) })
}

// Logout closes the client's connection.
func (f *Facade) Logout() error {
	return f.Defer("logout", Resource.Logout)
}
