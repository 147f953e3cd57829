package storage

import (
	"context"
	"testing"
	"time"

	"gir-antiraid/internal/permissions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCaseIDIsPerGuildAndMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		id, err := store.NextCaseID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	id, err := store.NextCaseID(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestAddAndListCases(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	until := time.Now().Add(14 * 24 * time.Hour).Truncate(time.Second)

	require.NoError(t, store.AddCase(ctx, Case{GuildID: "g1", ID: 1, UserID: "u1", ModID: "bot", Type: CaseMute, Reason: "Ping spam", Punishment: "14 days", Date: time.Now(), Until: &until}))
	require.NoError(t, store.AddCase(ctx, Case{GuildID: "g1", ID: 2, UserID: "u1", ModID: "bot", Type: CaseBan, Reason: "Raid phrase detected", Punishment: "PERMANENT", Date: time.Now()}))
	require.NoError(t, store.AddCase(ctx, Case{GuildID: "g1", ID: 3, UserID: "u2", ModID: "bot", Type: CaseBan, Date: time.Now()}))

	cases, err := store.ListCases(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, int64(2), cases[0].ID)
	assert.Equal(t, CaseBan, cases[0].Type)
	assert.Nil(t, cases[0].Until)
	require.NotNil(t, cases[1].Until)
	assert.True(t, until.Equal(*cases[1].Until))
}

func TestLiftCaseOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddCase(ctx, Case{GuildID: "g1", ID: 7, UserID: "u1", ModID: "m1", Type: CaseWarn, Date: time.Now()}))

	require.NoError(t, store.LiftCase(ctx, "g1", 7, "m2", "appeal accepted"))
	got, err := store.GetCase(ctx, "g1", 7)
	require.NoError(t, err)
	assert.True(t, got.Lifted)
	assert.Equal(t, "m2", got.LiftedBy)
	assert.NotNil(t, got.LiftedDate)

	assert.ErrorIs(t, store.LiftCase(ctx, "g1", 7, "m3", "again"), ErrCaseLifted)
	assert.ErrorIs(t, store.LiftCase(ctx, "g1", 99, "m3", "missing"), ErrCaseNotFound)
	_, err = store.GetCase(ctx, "g1", 99)
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestGuildLists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddRaidPhrase(ctx, "g1", "  Free Nitro ", permissions.Genius)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = store.AddRaidPhrase(ctx, "g1", "free nitro", permissions.Moderator)
	require.NoError(t, err)
	assert.False(t, added, "duplicates are ignored")

	phrases, err := store.ListRaidPhrases(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []RaidPhrase{{Phrase: "free nitro", BypassLevel: permissions.Genius}}, phrases)

	removed, err := store.RemoveRaidPhrase(ctx, "g1", "FREE NITRO")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = store.AddFreezableChannel(ctx, "g1", "c2")
	require.NoError(t, err)
	_, err = store.AddFreezableChannel(ctx, "g1", "c1")
	require.NoError(t, err)
	channels, err := store.ListFreezableChannels(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, channels)

	require.NoError(t, store.SetRaidVerified(ctx, "g1", "u1", "m1", true))
	verified, err := store.IsRaidVerified(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.True(t, verified)
	require.NoError(t, store.SetRaidVerified(ctx, "g1", "u1", "m1", false))
	verified, err = store.IsRaidVerified(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.False(t, verified)
}
