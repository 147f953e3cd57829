package permissions

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Level is the ordered capability scale used by every exemption check.
type Level int

const (
	Everyone Level = iota
	MemberPlus
	MemberPro
	MemberEdition
	Genius
	Moderator
	Administrator
	GuildOwner
)

var ErrUndefinedLevel = errors.New("undefined permission level")

var levelNames = map[Level]string{
	Everyone:      "everyone",
	MemberPlus:    "member plus",
	MemberPro:     "member pro",
	MemberEdition: "member edition",
	Genius:        "genius",
	Moderator:     "moderator",
	Administrator: "administrator",
	GuildOwner:    "guild owner",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// Parse validates a level read from configuration or a command option.
func Parse(value int) (Level, error) {
	level := Level(value)
	if !level.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUndefinedLevel, value)
	}
	return level, nil
}

// Roles are the role ids a guild maps onto the scale. Empty ids never match.
type Roles struct {
	OwnerID       string
	MemberPlus    string
	MemberPro     string
	MemberEdition string
	Genius        string
	Moderator     string
	Administrator string
}

// Of returns the highest level the member holds.
func Of(roles Roles, member *discordgo.Member) Level {
	if member == nil {
		return Everyone
	}
	if member.User != nil && roles.OwnerID != "" && member.User.ID == roles.OwnerID {
		return GuildOwner
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return Administrator
	}

	held := make(map[string]struct{}, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = struct{}{}
	}
	ladder := []struct {
		id    string
		level Level
	}{
		{roles.Administrator, Administrator},
		{roles.Moderator, Moderator},
		{roles.Genius, Genius},
		{roles.MemberEdition, MemberEdition},
		{roles.MemberPro, MemberPro},
		{roles.MemberPlus, MemberPlus},
	}
	for _, step := range ladder {
		if step.id == "" {
			continue
		}
		if _, ok := held[step.id]; ok {
			return step.level
		}
	}
	return Everyone
}

// Has reports whether member holds at least level. An undefined level is a
// programming error and is returned as ErrUndefinedLevel.
func Has(roles Roles, member *discordgo.Member, level Level) (bool, error) {
	if !level.Valid() {
		return false, fmt.Errorf("%w: %d", ErrUndefinedLevel, int(level))
	}
	return Of(roles, member) >= level, nil
}
