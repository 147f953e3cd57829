package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gir-antiraid/internal/modules/antiraid"
	"gir-antiraid/internal/modules/audit"
	"gir-antiraid/internal/permissions"
	"gir-antiraid/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Discord caps embed field values at 1024 characters.
const maxFieldLength = 1024

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := interaction.ApplicationCommandData()
	if interaction.GuildID == "" || interaction.Member == nil {
		b.respondEmbed(session, interaction, b.errorEmbed(data.Name, "This command only works inside a server."), true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	settings := b.guildSettings(ctx, interaction.GuildID)
	if !b.isModerator(interaction, settings) {
		b.respondEmbed(session, interaction, b.errorEmbed(data.Name, "Moderators only."), true)
		return
	}

	switch data.Name {
	case "freeze":
		b.handleFreeze(ctx, session, interaction, true)
	case "unfreeze":
		b.handleFreeze(ctx, session, interaction, false)
	case "freezable":
		b.handleFreezable(ctx, session, interaction, data.Options)
	case "raidphrase":
		b.handleRaidPhrase(ctx, session, interaction, data.Options)
	case "raidverify":
		b.handleRaidVerify(ctx, session, interaction, data.Options)
	case "spammode":
		b.handleSpamMode(ctx, session, interaction, settings, data.Options)
	case "setchannels":
		b.handleSetChannels(ctx, session, interaction, settings, data.Options)
	case "cases":
		b.handleCases(ctx, session, interaction, data.Options)
	case "liftcase":
		b.handleLiftCase(ctx, session, interaction, data.Options)
	case "raidstats":
		b.handleRaidStats(ctx, session, interaction, data.Options)
	}
}

func (b *Bot) handleFreeze(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, freeze bool) {
	title := "Freeze"
	if !freeze {
		title = "Unfreeze"
	}
	if err := b.deferEphemeral(session, interaction); err != nil {
		b.logger.Warn("interaction defer failed", zap.Error(err))
		return
	}

	var (
		changed []string
		err     error
	)
	if freeze {
		changed, err = b.monitor.FreezeServer(ctx, interaction.GuildID)
	} else {
		changed, err = b.monitor.UnfreezeServer(ctx, interaction.GuildID)
	}
	switch {
	case errors.Is(err, antiraid.ErrNoFreezableChannels):
		b.editEmbed(session, interaction, b.errorEmbed(title, "No freezable channels are configured. Add some with /freezable add."))
		return
	case errors.Is(err, antiraid.ErrRoleNotConfigured):
		b.editEmbed(session, interaction, b.errorEmbed(title, "The Member+ role is not configured."))
		return
	case err != nil:
		b.logger.Warn("freeze command failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.editEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."))
		return
	}

	if len(changed) == 0 {
		state := "locked"
		if !freeze {
			state = "unlocked"
		}
		b.editEmbed(session, interaction, b.commandEmbed(title, "Every freezable channel was already "+state+".", b.cfg.Notifications.EmbedColors.Info, nil))
		return
	}
	fields := []*discordgo.MessageEmbedField{{Name: "Channels", Value: channelList(changed)}}
	description := fmt.Sprintf("Locked %d channel(s).", len(changed))
	if !freeze {
		description = fmt.Sprintf("Unlocked %d channel(s).", len(changed))
	}
	b.editEmbed(session, interaction, b.commandEmbed(title, description, b.cfg.Notifications.EmbedColors.Action, fields))
}

func (b *Bot) handleFreezable(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Freezable channels"
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Pick a subcommand."), true)
		return
	}
	sub := options[0]
	guildID := interaction.GuildID

	switch sub.Name {
	case "add", "remove":
		channelID := optionChannel(sub.Options, "channel")
		if channelID == "" {
			b.respondEmbed(session, interaction, b.errorEmbed(title, "Pick a channel."), true)
			return
		}
		var (
			changed bool
			err     error
		)
		if sub.Name == "add" {
			changed, err = b.store.AddFreezableChannel(ctx, guildID, channelID)
		} else {
			changed, err = b.store.RemoveFreezableChannel(ctx, guildID, channelID)
		}
		if err != nil {
			b.logger.Warn("freezable update failed", zap.String("guild_id", guildID), zap.Error(err))
			b.respondEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."), true)
			return
		}
		if !changed {
			msg := "<#" + channelID + "> is already freezable."
			if sub.Name == "remove" {
				msg = "<#" + channelID + "> was not freezable."
			}
			b.respondEmbed(session, interaction, b.commandEmbed(title, msg, b.cfg.Notifications.EmbedColors.Info, nil), true)
			return
		}
		b.auditConfig(ctx, interaction, fmt.Sprintf("freezable %s %s", sub.Name, channelID))
		msg := "Added <#" + channelID + ">."
		if sub.Name == "remove" {
			msg = "Removed <#" + channelID + ">."
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, msg, b.cfg.Notifications.EmbedColors.Action, nil), true)
	case "list":
		channels, err := b.store.ListFreezableChannels(ctx, guildID)
		if err != nil {
			b.logger.Warn("freezable list failed", zap.String("guild_id", guildID), zap.Error(err))
			b.respondEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."), true)
			return
		}
		if len(channels) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed(title, "None configured.", b.cfg.Notifications.EmbedColors.Info, nil), true)
			return
		}
		fields := []*discordgo.MessageEmbedField{{Name: "Channels", Value: channelList(channels)}}
		b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("%d channel(s).", len(channels)), b.cfg.Notifications.EmbedColors.Info, fields), true)
	}
}

func (b *Bot) handleRaidPhrase(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Raid phrases"
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Pick a subcommand."), true)
		return
	}
	sub := options[0]
	guildID := interaction.GuildID

	switch sub.Name {
	case "add":
		phrase := strings.TrimSpace(optionString(sub.Options, "phrase"))
		if phrase == "" {
			b.respondEmbed(session, interaction, b.errorEmbed(title, "The phrase is empty."), true)
			return
		}
		bypass := b.cfg.Raid.PhraseBypass
		if opt := findOption(sub.Options, "bypass"); opt != nil {
			bypass = int(opt.IntValue())
		}
		level, err := permissions.Parse(bypass)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed(title, "Unknown permission level."), true)
			return
		}
		added, err := b.store.AddRaidPhrase(ctx, guildID, phrase, level)
		if err != nil {
			b.logger.Warn("raid phrase add failed", zap.String("guild_id", guildID), zap.Error(err))
			b.respondEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."), true)
			return
		}
		if !added {
			b.respondEmbed(session, interaction, b.commandEmbed(title, "That phrase is already listed.", b.cfg.Notifications.EmbedColors.Info, nil), true)
			return
		}
		b.auditConfig(ctx, interaction, fmt.Sprintf("raid phrase added (bypass %s)", level))
		fields := []*discordgo.MessageEmbedField{
			{Name: "Phrase", Value: phrase, Inline: true},
			{Name: "Bypass", Value: level.String(), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, "Phrase added.", b.cfg.Notifications.EmbedColors.Action, fields), true)
	case "remove":
		phrase := optionString(sub.Options, "phrase")
		removed, err := b.store.RemoveRaidPhrase(ctx, guildID, phrase)
		if err != nil {
			b.logger.Warn("raid phrase remove failed", zap.String("guild_id", guildID), zap.Error(err))
			b.respondEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."), true)
			return
		}
		if !removed {
			b.respondEmbed(session, interaction, b.commandEmbed(title, "That phrase is not listed.", b.cfg.Notifications.EmbedColors.Info, nil), true)
			return
		}
		b.auditConfig(ctx, interaction, "raid phrase removed")
		b.respondEmbed(session, interaction, b.commandEmbed(title, "Phrase removed.", b.cfg.Notifications.EmbedColors.Action, nil), true)
	case "list":
		phrases, err := b.store.ListRaidPhrases(ctx, guildID)
		if err != nil {
			b.logger.Warn("raid phrase list failed", zap.String("guild_id", guildID), zap.Error(err))
			b.respondEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."), true)
			return
		}
		if len(phrases) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed(title, "None configured.", b.cfg.Notifications.EmbedColors.Info, nil), true)
			return
		}
		lines := make([]string, 0, len(phrases))
		for _, p := range phrases {
			lines = append(lines, fmt.Sprintf("`%s` (bypass: %s)", p.Phrase, p.BypassLevel))
		}
		fields := []*discordgo.MessageEmbedField{{Name: "Phrases", Value: truncateField(strings.Join(lines, "\n"))}}
		b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("%d phrase(s).", len(phrases)), b.cfg.Notifications.EmbedColors.Info, fields), true)
	}
}

func (b *Bot) handleRaidVerify(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Raid verification"
	userID := optionUser(options, "user")
	if userID == "" {
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Pick a member."), true)
		return
	}
	verified := true
	if opt := findOption(options, "verified"); opt != nil {
		verified = opt.BoolValue()
	}
	if err := b.store.SetRaidVerified(ctx, interaction.GuildID, userID, invokerID(interaction), verified); err != nil {
		b.logger.Warn("raid verify failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."), true)
		return
	}
	b.auditConfig(ctx, interaction, fmt.Sprintf("raid verified %s = %t", userID, verified))
	msg := "<@" + userID + "> is now exempt from same-day join checks."
	if !verified {
		msg = "<@" + userID + "> is no longer exempt from same-day join checks."
	}
	b.respondEmbed(session, interaction, b.commandEmbed(title, msg, b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleSpamMode(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, settings storage.GuildSettings, options []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Spam mode"
	value := optionString(options, "value")
	if value != "on" && value != "off" {
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Use on or off."), true)
		return
	}
	settings.BanTodaySpamAccounts = value == "on"
	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("spam mode update failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."), true)
		return
	}
	b.auditConfig(ctx, interaction, "ban today spam accounts "+value)
	msg := "Accounts created today will be banned during same-day raids."
	if !settings.BanTodaySpamAccounts {
		msg = "Accounts created today are ignored by same-day checks."
	}
	b.respondEmbed(session, interaction, b.commandEmbed(title, msg, b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleSetChannels(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, settings storage.GuildSettings, options []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Channels"
	reports := optionChannel(options, "reports")
	public := optionChannel(options, "log")
	if reports == "" && public == "" {
		fields := []*discordgo.MessageEmbedField{
			{Name: "Reports", Value: channelOrUnset(settings.ModReportsChannel), Inline: true},
			{Name: "Public log", Value: channelOrUnset(settings.PublicLogChannel), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, "Current channels.", b.cfg.Notifications.EmbedColors.Info, fields), true)
		return
	}
	if reports != "" {
		settings.ModReportsChannel = reports
	}
	if public != "" {
		settings.PublicLogChannel = public
	}
	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("channel update failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."), true)
		return
	}
	b.auditConfig(ctx, interaction, fmt.Sprintf("channels reports=%s log=%s", settings.ModReportsChannel, settings.PublicLogChannel))
	fields := []*discordgo.MessageEmbedField{
		{Name: "Reports", Value: channelOrUnset(settings.ModReportsChannel), Inline: true},
		{Name: "Public log", Value: channelOrUnset(settings.PublicLogChannel), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed(title, "Channels updated.", b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleCases(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Cases"
	userID := optionUser(options, "user")
	if userID == "" {
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Pick a member."), true)
		return
	}
	list, err := b.store.ListCases(ctx, interaction.GuildID, userID)
	if err != nil {
		b.logger.Warn("case list failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."), true)
		return
	}
	if len(list) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed(title, "<@"+userID+"> has a clean record.", b.cfg.Notifications.EmbedColors.Info, nil), true)
		return
	}
	lines := make([]string, 0, len(list))
	for _, c := range list {
		line := fmt.Sprintf("#%d %s: %s (%s)", c.ID, c.Type, c.Reason, c.Date.UTC().Format("2006-01-02"))
		if c.Lifted {
			line = "~~" + line + "~~"
		}
		lines = append(lines, line)
	}
	fields := []*discordgo.MessageEmbedField{{Name: "History", Value: truncateField(strings.Join(lines, "\n"))}}
	b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("<@%s> has %d case(s).", userID, len(list)), b.cfg.Notifications.EmbedColors.Info, fields), true)
}

func (b *Bot) handleLiftCase(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Lift case"
	opt := findOption(options, "id")
	if opt == nil {
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Give a case id."), true)
		return
	}
	caseID := opt.IntValue()
	reason := optionString(options, "reason")

	err := b.store.LiftCase(ctx, interaction.GuildID, caseID, invokerID(interaction), reason)
	switch {
	case errors.Is(err, storage.ErrCaseNotFound):
		b.respondEmbed(session, interaction, b.errorEmbed(title, fmt.Sprintf("Case #%d does not exist.", caseID)), true)
		return
	case errors.Is(err, storage.ErrCaseLifted):
		b.respondEmbed(session, interaction, b.errorEmbed(title, fmt.Sprintf("Case #%d is already lifted.", caseID)), true)
		return
	case err != nil:
		b.logger.Warn("case lift failed", zap.String("guild_id", interaction.GuildID), zap.Int64("case_id", caseID), zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."), true)
		return
	}

	lifted, err := b.store.GetCase(ctx, interaction.GuildID, caseID)
	userID := ""
	if err == nil {
		userID = lifted.UserID
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, userID, audit.EventCaseLifted, fmt.Sprintf("case #%d lifted by %s: %s", caseID, invokerID(interaction), reason))
	fields := []*discordgo.MessageEmbedField{{Name: "Reason", Value: truncateField(reason)}}
	b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("Case #%d lifted.", caseID), b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleRaidStats(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Raid stats"
	window := 24 * time.Hour
	if optionString(options, "period") == "week" {
		window = 7 * 24 * time.Hour
	}
	report, err := b.analytics.Report(ctx, interaction.GuildID, time.Now().Add(-window))
	if err != nil {
		b.logger.Warn("raid stats failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed(title, "Something went wrong."), true)
		return
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Bans", Value: fmt.Sprintf("%d", report.ByEvent[audit.EventRaidBan]), Inline: true},
		{Name: "Mutes", Value: fmt.Sprintf("%d", report.ByEvent[audit.EventRaidMute]), Inline: true},
		{Name: "Alerts", Value: fmt.Sprintf("%d", report.ByEvent[audit.EventRaidAlert]), Inline: true},
		{Name: "Reports", Value: fmt.Sprintf("%d", report.ByEvent[audit.EventReport]), Inline: true},
		{Name: "Freezes", Value: fmt.Sprintf("%d", report.ByEvent[audit.EventFreeze]), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed(title, formatReport(report), b.cfg.Notifications.EmbedColors.Info, fields), true)
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) errorEmbed(title, description string) *discordgo.MessageEmbed {
	return b.commandEmbed(title, description, b.cfg.Notifications.EmbedColors.Error, nil)
}

func (b *Bot) auditConfig(ctx context.Context, interaction *discordgo.InteractionCreate, details string) {
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, invokerID(interaction), audit.EventConfig, details)
}

func findOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt := findOption(options, name); opt != nil {
		return opt.StringValue()
	}
	return ""
}

// Passing a nil session to the value helpers yields an object carrying only
// the id, which is all the handlers need.
func optionChannel(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt := findOption(options, name); opt != nil {
		if ch := opt.ChannelValue(nil); ch != nil {
			return ch.ID
		}
	}
	return ""
}

func optionUser(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt := findOption(options, name); opt != nil {
		if u := opt.UserValue(nil); u != nil {
			return u.ID
		}
	}
	return ""
}

func invokerID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}

func channelList(ids []string) string {
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, "<#"+id+">")
	}
	return truncateField(strings.Join(mentions, " "))
}

func channelOrUnset(id string) string {
	if id == "" {
		return "not set"
	}
	return "<#" + id + ">"
}

func truncateField(value string) string {
	if len(value) <= maxFieldLength {
		return value
	}
	return value[:maxFieldLength-3] + "..."
}
