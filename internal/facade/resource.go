package facade

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Dispatcher registers event handlers. *discordgo.Session satisfies it; a
// handler must match one of discordgo's handler signatures, e.g.
// func(*discordgo.Session, *discordgo.MessageCreate).
type Dispatcher interface {
	AddHandler(handler interface{}) func()
	AddHandlerOnce(handler interface{}) func()
}

// Resource is the live client the facade stands in for.
type Resource interface {
	// Login re-establishes the connection of an existing client.
	Login(ctx context.Context) error
	Logout() error

	IsReady() bool
	IsBot() bool
	Token() string
	LaunchTime() time.Time
	ResponseTime() time.Duration
	Dispatcher() Dispatcher

	OurUser() *discordgo.User
	Application() (*discordgo.Application, error)
	Applications() ([]*discordgo.Application, error)
	Guilds() []*discordgo.Guild
	Channels(includePrivate bool) []*discordgo.Channel
	VoiceChannels() []*discordgo.Channel
	ConnectedVoiceChannels() []*discordgo.Channel
	Regions() ([]*discordgo.VoiceRegion, error)

	ChannelByID(id string) (*discordgo.Channel, error)
	VoiceChannelByID(id string) (*discordgo.Channel, error)
	GuildByID(id string) (*discordgo.Guild, error)
	UserByID(id string) (*discordgo.User, error)
	RegionByID(id string) (*discordgo.VoiceRegion, error)
	InviteForCode(code string) (*discordgo.Invite, error)
	MessageByID(channelID, messageID string) (*discordgo.Message, error)
	RoleByID(guildID, roleID string) (*discordgo.Role, error)
	OrCreatePMChannel(userID string) (*discordgo.Channel, error)

	// icon is a data URI, empty for none.
	CreateGuild(name, region, icon string) (*discordgo.Guild, error)
	CreateApplication(name string) (*discordgo.Application, error)
	SendMessage(channelID, content string) (*discordgo.Message, error)
	ChangeUsername(username string) error
	ChangeAvatar(avatar string) error
	ChangeEmail(email string) error
	ChangePassword(password string) error
	ChangeStatus(status discordgo.Status) error
	ChangePresence(idle bool) error
	ChangeGameStatus(game string) error
	UpdatePresence(idle bool, game string) error
}

// Builder creates a connected Resource from a configuration snapshot.
type Builder interface {
	Build(ctx context.Context, cfg Config) (Resource, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, cfg Config) (Resource, error)

// Build calls fn(ctx, cfg).
func (fn BuilderFunc) Build(ctx context.Context, cfg Config) (Resource, error) {
	return fn(ctx, cfg)
}
