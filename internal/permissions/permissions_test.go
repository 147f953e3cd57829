package permissions

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRoles = Roles{
	OwnerID:       "owner",
	MemberPlus:    "r-plus",
	MemberPro:     "r-pro",
	Genius:        "r-genius",
	Moderator:     "r-mod",
	Administrator: "r-admin",
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id}, Roles: roles}
}

func TestOfPicksHighestRole(t *testing.T) {
	assert.Equal(t, Everyone, Of(testRoles, member("u1")))
	assert.Equal(t, MemberPlus, Of(testRoles, member("u1", "r-plus")))
	assert.Equal(t, Moderator, Of(testRoles, member("u1", "r-plus", "r-mod")))
	assert.Equal(t, GuildOwner, Of(testRoles, member("owner")))
	assert.Equal(t, Everyone, Of(testRoles, nil))
}

func TestOfAdministratorPermission(t *testing.T) {
	m := member("u1")
	m.Permissions = discordgo.PermissionAdministrator
	assert.Equal(t, Administrator, Of(testRoles, m))
}

func TestOfIgnoresUnconfiguredRoles(t *testing.T) {
	assert.Equal(t, Everyone, Of(Roles{}, member("u1", "")))
}

func TestHas(t *testing.T) {
	ok, err := Has(testRoles, member("u1", "r-genius"), MemberPro)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Has(testRoles, member("u1", "r-genius"), Moderator)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasUndefinedLevel(t *testing.T) {
	_, err := Has(testRoles, member("u1"), Level(42))
	assert.ErrorIs(t, err, ErrUndefinedLevel)

	_, err = Parse(-1)
	assert.ErrorIs(t, err, ErrUndefinedLevel)
	level, err := Parse(5)
	require.NoError(t, err)
	assert.Equal(t, Moderator, level)
}
