// Package lookup resolves Discord objects by kind and ID against a client.
package lookup

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/discordkit/internal/facade"
	"go.uber.org/multierr"
)

// ErrUnknownKind is returned for a Kind outside the supported set.
var ErrUnknownKind = errors.New("unknown lookup kind")

// Kind selects which accessor resolves an ID.
type Kind int

const (
	Message Kind = iota
	User
	Guild
	Channel
	VoiceChannel
	PrivateChannel
	Region
	Role
)

var kindNames = map[Kind]string{
	Message:        "message",
	User:           "user",
	Guild:          "guild",
	Channel:        "channel",
	VoiceChannel:   "voice-channel",
	PrivateChannel: "private-channel",
	Region:         "region",
	Role:           "role",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name such as "voice-channel" back to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

type finder func(r facade.Resource, id string) (any, error)

// box keeps a typed nil from turning into a non-nil interface.
func box[T any](fn func(facade.Resource, string) (*T, error)) finder {
	return func(r facade.Resource, id string) (any, error) {
		v, err := fn(r, id)
		if err != nil || v == nil {
			return nil, err
		}
		return v, nil
	}
}

var finders = map[Kind]finder{
	Message:        box(FindMessage),
	User:           box(FindUser),
	Guild:          box(FindGuild),
	Channel:        box(FindChannel),
	VoiceChannel:   box(FindVoiceChannel),
	PrivateChannel: box(FindPrivateChannel),
	Region:         box(FindRegion),
	Role:           box(FindRole),
}

// Find returns the object of the given kind with the given ID, or nil when
// nothing matches.
func Find(r facade.Resource, kind Kind, id string) (any, error) {
	find, ok := finders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return find(r, id)
}

// FindOn is Find against the facade's client.
func FindOn(f *facade.Facade, kind Kind, id string) (any, error) {
	if _, ok := finders[kind]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	r, err := f.Resource()
	if err != nil {
		return nil, err
	}
	return Find(r, kind, id)
}

func FindUser(r facade.Resource, id string) (*discordgo.User, error) {
	return r.UserByID(id)
}

func FindGuild(r facade.Resource, id string) (*discordgo.Guild, error) {
	return r.GuildByID(id)
}

func FindChannel(r facade.Resource, id string) (*discordgo.Channel, error) {
	return r.ChannelByID(id)
}

func FindVoiceChannel(r facade.Resource, id string) (*discordgo.Channel, error) {
	return r.VoiceChannelByID(id)
}

func FindRegion(r facade.Resource, id string) (*discordgo.VoiceRegion, error) {
	return r.RegionByID(id)
}

// FindPrivateChannel returns the direct-message channel with the user,
// opening one if none is cached. There is no such channel with ourselves
// or with a user that cannot be resolved.
func FindPrivateChannel(r facade.Resource, userID string) (*discordgo.Channel, error) {
	if self := r.OurUser(); self != nil && self.ID == userID {
		return nil, nil
	}
	for _, c := range r.Channels(true) {
		if c.Type != discordgo.ChannelTypeDM {
			continue
		}
		for _, u := range c.Recipients {
			if u.ID == userID {
				return c, nil
			}
		}
	}
	u, err := r.UserByID(userID)
	if err != nil || u == nil {
		return nil, err
	}
	return r.OrCreatePMChannel(u.ID)
}

// FindRole searches every guild for the role.
func FindRole(r facade.Resource, id string) (*discordgo.Role, error) {
	var errs error
	for _, g := range r.Guilds() {
		role, err := r.RoleByID(g.ID, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("guild %s: %w", g.ID, err))
			continue
		}
		if role != nil {
			return role, nil
		}
	}
	return nil, errs
}

// FindMessage searches every text channel, private ones included, for the
// message. Per-channel failures are returned only when nothing matched.
func FindMessage(r facade.Resource, id string) (*discordgo.Message, error) {
	var errs error
	for _, c := range r.Channels(true) {
		if c.Type == discordgo.ChannelTypeGuildVoice || c.Type == discordgo.ChannelTypeGuildCategory {
			continue
		}
		m, err := r.MessageByID(c.ID, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("channel %s: %w", c.ID, err))
			continue
		}
		if m != nil {
			return m, nil
		}
	}
	return nil, errs
}
