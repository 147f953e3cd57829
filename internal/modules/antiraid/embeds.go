package antiraid

import (
	"fmt"
	"strings"
	"time"

	"gir-antiraid/internal/storage"

	"github.com/bwmarrin/discordgo"
)

const maxSnippet = 400

func (m *Monitor) alertEmbed(trigger *discordgo.Member, msg *discordgo.Message, kind string) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Detection", Value: kind, Inline: true},
	}
	if trigger != nil && trigger.User != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Member", Value: userLine(trigger.User), Inline: true})
	}
	if msg != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Message", Value: snippet(msg.Content)})
	}
	return &discordgo.MessageEmbed{
		Title:       "Possible raid occurring",
		Description: "The raid filter has been triggered. Freezable channels are being locked.",
		Color:       m.colors.Warning,
		Fields:      fields,
		Timestamp:   m.clock.Now().Format(time.RFC3339),
	}
}

func (m *Monitor) reportEmbed(member *discordgo.Member, msg *discordgo.Message, detail string) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Member", Value: userLine(member.User), Inline: true},
		{Name: "Channel", Value: "<#" + msg.ChannelID + ">", Inline: true},
		{Name: "Message", Value: snippet(msg.Content)},
	}
	return &discordgo.MessageEmbed{
		Title:       "Report",
		Description: detail,
		Color:       m.colors.Action,
		Fields:      fields,
		Timestamp:   m.clock.Now().Format(time.RFC3339),
	}
}

func (m *Monitor) caseEmbed(c storage.Case, member *discordgo.Member) *discordgo.MessageEmbed {
	color := m.colors.Action
	if c.Type == storage.CaseBan {
		color = m.colors.Error
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Member", Value: userLine(member.User), Inline: true},
		{Name: "Mod", Value: "automod", Inline: true},
		{Name: "Reason", Value: c.Reason},
	}
	if c.Until != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Until", Value: fmt.Sprintf("<t:%d:R>", c.Until.Unix()), Inline: true})
	}
	return &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Member %s", caseVerb(c.Type)),
		Color:     color,
		Fields:    fields,
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case #%d", c.ID)},
		Timestamp: c.Date.Format(time.RFC3339),
	}
}

func (m *Monitor) banNoticeEmbed(guildID, reason string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "You have been banned",
		Description: "You were banned by the automated raid filter. If this was a mistake, contact the moderators.",
		Color:       m.colors.Error,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Server " + guildID},
	}
}

func caseVerb(t storage.CaseType) string {
	switch t {
	case storage.CaseBan:
		return "banned"
	case storage.CaseMute:
		return "muted"
	default:
		return strings.ToLower(string(t))
	}
}

func userLine(user *discordgo.User) string {
	if user == nil {
		return "unknown"
	}
	return fmt.Sprintf("<@%s> (%s)", user.ID, user.ID)
}

func snippet(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return "(no text)"
	}
	runes := []rune(content)
	if len(runes) > maxSnippet {
		return string(runes[:maxSnippet]) + "..."
	}
	return content
}
