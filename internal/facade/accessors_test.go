package facade_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/discordkit/internal/facade"
	"github.com/keepmind9/discordkit/internal/facade/facadetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries_BeforeLoginReturnDefaults(t *testing.T) {
	f := facade.New(&facadetest.Builder{}, facade.WithToken("T"))

	assert.False(t, f.IsReady())
	assert.True(t, f.IsBot())
	assert.Equal(t, "T", f.Token())
	assert.WithinDuration(t, time.Now(), f.LaunchTime(), time.Second)
	assert.Zero(t, f.ResponseTime())
	assert.Nil(t, f.Dispatcher())
	assert.Nil(t, f.OurUser())

	assert.NotNil(t, f.Guilds())
	assert.Empty(t, f.Guilds())
	assert.Empty(t, f.Channels(true))
	assert.Empty(t, f.VoiceChannels())
	assert.Empty(t, f.ConnectedVoiceChannels())

	regions, err := f.Regions()
	require.NoError(t, err)
	assert.Empty(t, regions)
	apps, err := f.Applications()
	require.NoError(t, err)
	assert.Empty(t, apps)

	for _, get := range []func() (string, error){
		f.Description, f.ApplicationIconURL, f.ApplicationClientID, f.ApplicationName,
	} {
		v, err := get()
		assert.NoError(t, err)
		assert.Empty(t, v)
	}

	ch, err := f.ChannelByID("c-1")
	assert.NoError(t, err)
	assert.Nil(t, ch)
	g, err := f.GuildByID("g-1")
	assert.NoError(t, err)
	assert.Nil(t, g)
	u, err := f.UserByID("u-1")
	assert.NoError(t, err)
	assert.Nil(t, u)
	vc, err := f.VoiceChannelByID("v-1")
	assert.NoError(t, err)
	assert.Nil(t, vc)
	region, err := f.RegionByID("us-east")
	assert.NoError(t, err)
	assert.Nil(t, region)
	inv, err := f.InviteForCode("abc")
	assert.NoError(t, err)
	assert.Nil(t, inv)
	dm, err := f.OrCreatePMChannel("u-1")
	assert.NoError(t, err)
	assert.Nil(t, dm)

	assert.Equal(t, 0, f.Pending())
}

func TestQueries_AfterLoginDelegate(t *testing.T) {
	b := &facadetest.Builder{Resource: facadetest.NewResource("resource-token")}
	b.Resource.GuildList = []*discordgo.Guild{
		{ID: "g-1", Channels: []*discordgo.Channel{
			{ID: "c-9", Type: discordgo.ChannelTypeGuildText},
			{ID: "v-1", Type: discordgo.ChannelTypeGuildVoice},
		}},
		{ID: "g-2"},
	}
	b.Resource.PrivateChannels = []*discordgo.Channel{{ID: "dm-9", Type: discordgo.ChannelTypeDM}}
	f := facade.New(b, facade.WithToken("T"))

	assert.Empty(t, f.Guilds())
	require.NoError(t, f.Login(context.Background()))

	assert.True(t, f.IsReady())
	assert.Equal(t, "resource-token", f.Token())
	assert.Equal(t, time.Unix(1700000000, 0), f.LaunchTime())
	assert.Equal(t, 42*time.Millisecond, f.ResponseTime())
	assert.Equal(t, "self", f.OurUser().ID)
	assert.Len(t, f.Guilds(), 2)
	assert.Len(t, f.Channels(false), 2)
	assert.Len(t, f.Channels(true), 3)
	assert.Len(t, f.VoiceChannels(), 1)

	desc, err := f.Description()
	require.NoError(t, err)
	assert.Equal(t, "a bot", desc)
	name, _ := f.ApplicationName()
	assert.Equal(t, "kit", name)
	id, _ := f.ApplicationClientID()
	assert.Equal(t, "app-1", id)
	icon, _ := f.ApplicationIconURL()
	assert.Equal(t, discordgo.EndpointCDN+"app-icons/app-1/abc.png", icon)

	regions, err := f.Regions()
	require.NoError(t, err)
	assert.Len(t, regions, 1)

	ch, err := f.ChannelByID("c-9")
	require.NoError(t, err)
	assert.Equal(t, "c-9", ch.ID)
	dm, err := f.OrCreatePMChannel("u-1")
	require.NoError(t, err)
	assert.Equal(t, "dm-u-1", dm.ID)
	inv, err := f.InviteForCode("xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", inv.Code)

	errLookup := errors.New("404: Unknown Guild")
	b.Resource.Fail["guild-by-id"] = errLookup
	_, err = f.GuildByID("missing")
	assert.ErrorIs(t, err, errLookup)

	r, err := f.Resource()
	require.NoError(t, err)
	assert.Same(t, b.Resource, r)
}

func TestLogout_DeferredUntilLogin(t *testing.T) {
	b := &facadetest.Builder{}
	f := facade.New(b, facade.WithToken("T"))

	require.NoError(t, f.Logout())
	require.NoError(t, f.Login(context.Background()))

	assert.Equal(t, []string{"logout"}, b.Resource.Calls())
}
