package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// sessionPlatform carries out monitor actions over the discordgo REST API.
type sessionPlatform struct {
	session *discordgo.Session
}

func (p *sessionPlatform) Ban(ctx context.Context, guildID, userID, reason string) error {
	return p.session.GuildBanCreateWithReason(guildID, userID, reason, 1, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) Timeout(ctx context.Context, guildID, userID string, until time.Time) error {
	return p.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return p.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := p.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return err
}

func (p *sessionPlatform) DirectMessage(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	channel, err := p.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = p.session.ChannelMessageSendEmbed(channel.ID, embed, discordgo.WithContext(ctx))
	return err
}

// Channel reads through to the API so freeze decisions see current
// overwrites.
func (p *sessionPlatform) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	return p.session.Channel(channelID, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) SetRolePermission(ctx context.Context, channelID, roleID string, allow, deny int64) error {
	return p.session.ChannelPermissionSet(channelID, roleID, discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) GuildOwner(ctx context.Context, guildID string) (string, error) {
	if guild, err := p.session.State.Guild(guildID); err == nil {
		return guild.OwnerID, nil
	}
	guild, err := p.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return guild.OwnerID, nil
}
