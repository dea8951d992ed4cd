package discord

import (
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Session defines the part of discordgo.Session the client uses.
// This allows us to mock it in tests without a gateway connection.
type Session interface {
	AddHandler(handler interface{}) func()
	AddHandlerOnce(handler interface{}) func()
	Open() error
	Close() error
	HeartbeatLatency() time.Duration

	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	UserUpdate(username, avatar string, options ...discordgo.RequestOption) (*discordgo.User, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)

	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)

	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildCreate(name string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildEdit(guildID string, g *discordgo.GuildParams, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)

	Invite(inviteID string, options ...discordgo.RequestOption) (*discordgo.Invite, error)
	VoiceRegions(options ...discordgo.RequestOption) ([]*discordgo.VoiceRegion, error)

	Application(appID string) (*discordgo.Application, error)
	Applications() ([]*discordgo.Application, error)
	ApplicationCreate(ap *discordgo.Application) (*discordgo.Application, error)

	UpdateGameStatus(idle int, name string) error
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
}

var _ Session = (*discordgo.Session)(nil)

// isNotFound reports whether err is a REST 404.
func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}

// notFoundAsNil maps a REST 404 to a nil result.
func notFoundAsNil[T any](v *T, err error) (*T, error) {
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}
