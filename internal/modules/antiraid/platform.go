package antiraid

import (
	"context"
	"time"

	"gir-antiraid/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// Platform is the slice of the chat platform the monitor acts through.
type Platform interface {
	Ban(ctx context.Context, guildID, userID, reason string) error
	Timeout(ctx context.Context, guildID, userID string, until time.Time) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
	DirectMessage(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	SetRolePermission(ctx context.Context, channelID, roleID string, allow, deny int64) error
	GuildOwner(ctx context.Context, guildID string) (string, error)
}

// Store is the persistent state the monitor reads and appends to.
type Store interface {
	GetGuildSettings(ctx context.Context, guildID string, defaults storage.GuildSettings) (storage.GuildSettings, error)
	ListRaidPhrases(ctx context.Context, guildID string) ([]storage.RaidPhrase, error)
	IsRaidVerified(ctx context.Context, guildID, userID string) (bool, error)
	ListFreezableChannels(ctx context.Context, guildID string) ([]string, error)
	NextCaseID(ctx context.Context, guildID string) (int64, error)
	AddCase(ctx context.Context, c storage.Case) error
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
