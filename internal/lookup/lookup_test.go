package lookup

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/discordkit/internal/facade"
	"github.com/keepmind9/discordkit/internal/facade/facadetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func newResource() *facadetest.Resource {
	r := facadetest.NewResource("T")
	r.GuildList = []*discordgo.Guild{
		{
			ID:    "g-1",
			Roles: []*discordgo.Role{{ID: "r-1", Name: "admin"}},
			Channels: []*discordgo.Channel{
				{ID: "c-1", Type: discordgo.ChannelTypeGuildText},
				{ID: "v-1", Type: discordgo.ChannelTypeGuildVoice},
			},
		},
		{
			ID:       "g-2",
			Roles:    []*discordgo.Role{{ID: "r-2", Name: "member"}},
			Channels: []*discordgo.Channel{{ID: "c-2", Type: discordgo.ChannelTypeGuildText}},
		},
	}
	r.PrivateChannels = []*discordgo.Channel{{
		ID:         "dm-7",
		Type:       discordgo.ChannelTypeDM,
		Recipients: []*discordgo.User{{ID: "u-7"}},
	}}
	r.Users["u-1"] = &discordgo.User{ID: "u-1", Username: "ada"}
	r.Messages["c-2/m-1"] = &discordgo.Message{ID: "m-1", ChannelID: "c-2"}
	return r
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Message, "message"},
		{User, "user"},
		{Guild, "guild"},
		{Channel, "channel"},
		{VoiceChannel, "voice-channel"},
		{PrivateChannel, "private-channel"},
		{Region, "region"},
		{Role, "role"},
		{Kind(99), "kind(99)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("voice-channel")
	require.NoError(t, err)
	assert.Equal(t, VoiceChannel, k)

	_, err = ParseKind("emoji")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFind_DispatchesByKind(t *testing.T) {
	r := newResource()

	tests := []struct {
		name   string
		kind   Kind
		id     string
		wantID string
	}{
		{"user", User, "u-1", "u-1"},
		{"own user", User, "self", "self"},
		{"guild", Guild, "g-2", "g-2"},
		{"channel", Channel, "c-1", "c-1"},
		{"voice channel", VoiceChannel, "v-1", "v-1"},
		{"cached private channel", PrivateChannel, "u-7", "dm-7"},
		{"region", Region, "us-east", "us-east"},
		{"role in second guild", Role, "r-2", "r-2"},
		{"message", Message, "m-1", "m-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Find(r, tt.kind, tt.id)
			require.NoError(t, err)
			require.NotNil(t, got)

			var id string
			switch v := got.(type) {
			case *discordgo.User:
				id = v.ID
			case *discordgo.Guild:
				id = v.ID
			case *discordgo.Channel:
				id = v.ID
			case *discordgo.VoiceRegion:
				id = v.ID
			case *discordgo.Role:
				id = v.ID
			case *discordgo.Message:
				id = v.ID
			default:
				t.Fatalf("unexpected type %T", got)
			}
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestFind_NotFoundIsUntypedNil(t *testing.T) {
	r := newResource()

	for _, kind := range []Kind{User, Guild, Channel, VoiceChannel, PrivateChannel, Region, Role, Message} {
		t.Run(kind.String(), func(t *testing.T) {
			got, err := Find(r, kind, "missing")
			require.NoError(t, err)
			assert.True(t, got == nil)
		})
	}
}

func TestFind_VoiceChannelRejectsTextChannel(t *testing.T) {
	got, err := FindVoiceChannel(newResource(), "c-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFind_UnknownKind(t *testing.T) {
	_, err := Find(newResource(), Kind(42), "x")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFindPrivateChannel(t *testing.T) {
	r := newResource()

	own, err := FindPrivateChannel(r, "self")
	require.NoError(t, err)
	assert.Nil(t, own)

	opened, err := FindPrivateChannel(r, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "dm-u-1", opened.ID)
	assert.Equal(t, []string{"pm-channel(u-1)"}, r.Calls())

	unknown, err := FindPrivateChannel(r, "u-404")
	require.NoError(t, err)
	assert.Nil(t, unknown)
	assert.Equal(t, []string{"pm-channel(u-1)"}, r.Calls())
}

func TestFind_PropagatesClientErrors(t *testing.T) {
	r := newResource()
	boom := errors.New("503: Service Unavailable")
	r.Fail["user-by-id"] = boom
	r.Fail["guild-by-id"] = boom

	_, err := Find(r, User, "u-1")
	assert.ErrorIs(t, err, boom)

	_, err = FindRole(r, "r-1")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestFindOn(t *testing.T) {
	b := &facadetest.Builder{Resource: newResource()}
	f := facade.New(b, facade.WithToken("T"))

	_, err := FindOn(f, Guild, "g-1")
	assert.ErrorIs(t, err, facade.ErrNotReady)

	_, err = FindOn(f, Kind(-1), "g-1")
	assert.ErrorIs(t, err, ErrUnknownKind)

	require.NoError(t, f.Login(context.Background()))

	got, err := FindOn(f, Guild, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "g-1", got.(*discordgo.Guild).ID)
}
