package bot

import (
	"context"
	"fmt"
	"time"

	"gir-antiraid/internal/analytics"
	"gir-antiraid/internal/config"
	"gir-antiraid/internal/modules/antiraid"
	"gir-antiraid/internal/modules/audit"
	"gir-antiraid/internal/permissions"
	"gir-antiraid/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Upper bound for the API calls made while handling one gateway event.
const handlerTimeout = 30 * time.Second

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	audit     *audit.Logger
	analytics *analytics.Service
	session   *discordgo.Session
	monitor   *antiraid.Monitor
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, auditLogger *audit.Logger, analyticsService *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		audit:     auditLogger,
		analytics: analyticsService,
		session:   session,
	}
	b.monitor = antiraid.New(antiraid.Options{
		Raid:     cfg.Raid,
		Colors:   cfg.Notifications.EmbedColors,
		Defaults: guildDefaults(cfg.Guild),
		Logger:   logger.Named("antiraid"),
		Store:    store,
		Platform: &sessionPlatform{session: session},
		Audit:    auditLogger,
	})
	return b, nil
}

// Monitor exposes the raid monitor for maintenance jobs.
func (b *Bot) Monitor() *antiraid.Monitor {
	return b.monitor
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}
	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	if event.User != nil {
		b.monitor.SetBotID(event.User.ID)
	}
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	member := msg.Member
	if member == nil {
		member = &discordgo.Member{}
	}
	member.User = msg.Author
	member.GuildID = msg.GuildID
	if perms, err := session.State.UserChannelPermissions(msg.Author.ID, msg.ChannelID); err == nil {
		member.Permissions = perms
	}
	b.monitor.HandleMessage(ctx, msg.Message, member)
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.GuildID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if event.Member.GuildID == "" {
		event.Member.GuildID = event.GuildID
	}
	b.monitor.HandleJoin(ctx, event.Member)
}

func guildDefaults(cfg config.GuildDefaults) storage.GuildSettings {
	return storage.GuildSettings{
		ModReportsChannel:    cfg.ModReportsChannel,
		PublicLogChannel:     cfg.PublicLogChannel,
		RoleMemberPlus:       cfg.RoleMemberPlus,
		RoleMemberPro:        cfg.RoleMemberPro,
		RoleMemberEdition:    cfg.RoleMemberEdition,
		RoleGenius:           cfg.RoleGenius,
		RoleModerator:        cfg.RoleModerator,
		RoleAdministrator:    cfg.RoleAdministrator,
		BanTodaySpamAccounts: cfg.BanTodaySpamAccounts,
	}
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := guildDefaults(b.cfg.Guild)
	defaults.GuildID = guildID

	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.Error(err))
		return defaults
	}
	return settings
}

// isModerator gates every command. Owner and administrator permission count.
func (b *Bot) isModerator(interaction *discordgo.InteractionCreate, settings storage.GuildSettings) bool {
	roles := settings.Roles()
	if guild, err := b.session.State.Guild(interaction.GuildID); err == nil {
		roles.OwnerID = guild.OwnerID
	}
	ok, err := permissions.Has(roles, interaction.Member, permissions.Moderator)
	if err != nil {
		b.logger.DPanic("permission check", zap.Error(err))
		return false
	}
	return ok
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

// deferEphemeral acknowledges a slow command; finish it with editEmbed.
func (b *Bot) deferEphemeral(session *discordgo.Session, interaction *discordgo.InteractionCreate) error {
	return session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (b *Bot) editEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		b.logger.Warn("interaction edit failed", zap.Error(err))
	}
}

func formatReport(report analytics.Report) string {
	return fmt.Sprintf("Total: %d | INFO: %d | WARN: %d | CRIT: %d", report.Total, report.ByLevel[audit.LevelInfo], report.ByLevel[audit.LevelWarn], report.ByLevel[audit.LevelCrit])
}
