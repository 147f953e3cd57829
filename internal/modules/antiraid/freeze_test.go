package antiraid

import (
	"context"
	"testing"

	"gir-antiraid/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreezeAndUnfreezeAreIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.store.AddFreezableChannel(ctx, testGuild, "c3")
	require.NoError(t, err)
	manual := &discordgo.PermissionOverwrite{ID: testGuild, Type: discordgo.PermissionOverwriteTypeRole, Allow: sendMessages}
	h.platform.addChannel("c3", manual)

	changed, err := h.monitor.FreezeServer(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, changed)
	sets := h.platform.permSets

	changed, err = h.monitor.FreezeServer(ctx, testGuild)
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Equal(t, sets, h.platform.permSets, "frozen channels are not touched again")

	c3 := h.platform.overwrite("c3", testGuild)
	assert.Equal(t, sendMessages, c3.Allow)
	assert.Zero(t, c3.Deny)

	changed, err = h.monitor.UnfreezeServer(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, changed)
	for _, channelID := range []string{"c1", "c2"} {
		assert.Zero(t, (h.platform.overwrite(channelID, testGuild).Deny)&sendMessages)
		assert.Zero(t, (h.platform.overwrite(channelID, plusRole).Allow)&sendMessages)
	}
	sets = h.platform.permSets

	changed, err = h.monitor.UnfreezeServer(ctx, testGuild)
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Equal(t, sets, h.platform.permSets)
}

func TestFreezePreservesOtherPermissionBits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	embed := int64(discordgo.PermissionEmbedLinks)
	h.platform.addChannel("c1", &discordgo.PermissionOverwrite{ID: testGuild, Type: discordgo.PermissionOverwriteTypeRole, Deny: embed})

	_, err := h.monitor.FreezeServer(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, embed|sendMessages, h.platform.overwrite("c1", testGuild).Deny)

	_, err = h.monitor.UnfreezeServer(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, embed, h.platform.overwrite("c1", testGuild).Deny)
}

func TestFreezeConfigurationErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.monitor.FreezeServer(ctx, "unconfigured")
	assert.ErrorIs(t, err, ErrRoleNotConfigured)

	require.NoError(t, h.store.UpsertGuildSettings(ctx, storage.GuildSettings{GuildID: "g2", RoleMemberPlus: plusRole}))
	_, err = h.monitor.UnfreezeServer(ctx, "g2")
	assert.ErrorIs(t, err, ErrNoFreezableChannels)
}

func TestFreezeSkipsUnreachableChannels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.store.AddFreezableChannel(ctx, testGuild, "gone")
	require.NoError(t, err)

	changed, err := h.monitor.FreezeServer(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, changed)
}
