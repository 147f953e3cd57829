package antiraid

import (
	"context"
	"fmt"
	"strings"

	"gir-antiraid/internal/metrics"
	"gir-antiraid/internal/modules/audit"
	"gir-antiraid/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	reasonJoinSpam    = "Join spam detected"
	reasonRaidPhrase  = "Raid phrase detected"
	reasonPingSpam    = "Ping spam"
	reasonMessageSpam = "Message spam"
)

// Respond performs the side effects for a verdict. Failures are logged and
// never returned.
func (m *Monitor) Respond(ctx context.Context, verdict Verdict) {
	if verdict == nil {
		return
	}
	metrics.VerdictsTotal.WithLabelValues(verdict.Kind()).Inc()

	switch v := verdict.(type) {
	case JoinSpamBurst:
		settings := m.settings(ctx, v.GuildID)
		m.banCohort(ctx, settings, v.Cohort, reasonJoinSpam, v.Kind(), false)
		m.raidAlert(ctx, settings, v.Trigger, nil, v.Kind())
	case JoinSpamSameDay:
		settings := m.settings(ctx, v.GuildID)
		reason := fmt.Sprintf("%s (account created on %s)", reasonJoinSpam, v.CreatedOn)
		m.banCohort(ctx, settings, v.Cohort, reason, v.Kind(), true)
		m.raidAlert(ctx, settings, v.Trigger, nil, v.Kind())
	case PingSpam:
		m.spamWave(ctx, v.Member, v.Message, reasonPingSpam, v.Kind())
	case MessageSpam:
		m.spamWave(ctx, v.Member, v.Message, reasonMessageSpam, v.Kind())
	case RaidPhrase:
		settings := m.settings(ctx, v.Message.GuildID)
		m.deleteMessage(ctx, v.Message)
		if _, err := m.raidBan(ctx, settings, v.Member, reasonRaidPhrase, v.Kind(), false); err != nil {
			m.logger.Warn("raid phrase ban failed", zap.String("guild_id", settings.GuildID), zap.String("user_id", v.Member.User.ID), zap.Error(err))
		}
	case ScamLinkSuspect:
		key := v.Message.GuildID + ":" + v.Member.User.ID
		if !m.reportCooldown.Allow(key, m.clock.Now()) {
			return
		}
		settings := m.settings(ctx, v.Message.GuildID)
		detail := "Possible scam link: " + strings.Join(v.URLs, ", ")
		m.report(ctx, settings, v.Member, v.Message, detail, v.Kind())
	default:
		m.logger.DPanic("unhandled verdict", zap.String("kind", verdict.Kind()))
	}
}

// spamWave mutes the author and decides whether they are alone or part of
// a wave. A wave bans every recent spammer. Repeat triggers from a member
// inside the report cooldown only lose their message, so one member counts
// once toward the wave.
func (m *Monitor) spamWave(ctx context.Context, member *discordgo.Member, msg *discordgo.Message, reason, kind string) {
	guildID := msg.GuildID
	now := m.clock.Now()

	m.deleteMessage(ctx, msg)
	if !m.reportCooldown.Allow(guildID+":"+member.User.ID, now) {
		return
	}

	settings := m.settings(ctx, guildID)
	m.mute(ctx, settings, member, reason)
	m.spammers.Remember(guildID, member.User.ID, member)

	if !m.raidTrigger.Hit(guildID, now) {
		m.report(ctx, settings, member, msg, reason, kind)
		return
	}

	cohort := m.spammers.Drain(guildID)
	m.banCohort(ctx, settings, cohort, reason+" raid detected", kind, false)
	m.raidAlert(ctx, settings, member, msg, kind)
}

func (m *Monitor) banCohort(ctx context.Context, settings storage.GuildSettings, cohort []*discordgo.Member, reason, kind string, dm bool) int {
	banned := 0
	for _, member := range cohort {
		ok, err := m.raidBan(ctx, settings, member, reason, kind, dm)
		if err != nil {
			m.logger.Warn("cohort ban failed", zap.String("guild_id", settings.GuildID), zap.String("user_id", member.User.ID), zap.Error(err))
			continue
		}
		if ok {
			banned++
		}
	}
	return banned
}

// raidBan bans member once. It returns false without error when the member
// was already banned recently.
func (m *Monitor) raidBan(ctx context.Context, settings storage.GuildSettings, member *discordgo.Member, reason, kind string, dm bool) (bool, error) {
	guildID := settings.GuildID
	userID := member.User.ID

	m.banMu.Lock()
	defer m.banMu.Unlock()

	if m.banned.Has(guildID, userID) {
		return false, nil
	}
	if dm {
		if err := m.platform.DirectMessage(ctx, userID, m.banNoticeEmbed(settings.GuildID, reason)); err != nil {
			m.logger.Debug("ban notice not delivered", zap.String("user_id", userID), zap.Error(err))
		}
	}
	if err := m.platform.Ban(ctx, guildID, userID, reason); err != nil {
		metrics.BanFailuresTotal.Inc()
		return false, fmt.Errorf("ban %s: %w", userID, err)
	}
	m.banned.Remember(guildID, userID, struct{}{})
	metrics.BansTotal.WithLabelValues(kind).Inc()

	c := storage.Case{
		GuildID:    guildID,
		UserID:     userID,
		ModID:      m.botID,
		ModTag:     "automod",
		Type:       storage.CaseBan,
		Reason:     reason,
		Punishment: "PERMANENT",
		Date:       m.clock.Now(),
	}
	if err := m.appendCase(ctx, &c); err != nil {
		m.logger.Warn("ban case not recorded", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
	}
	m.audit.Log(ctx, audit.LevelWarn, guildID, userID, audit.EventRaidBan, reason)
	m.publicLog(ctx, settings, m.caseEmbed(c, member))
	return true, nil
}

func (m *Monitor) mute(ctx context.Context, settings storage.GuildSettings, member *discordgo.Member, reason string) {
	guildID := settings.GuildID
	userID := member.User.ID
	now := m.clock.Now()
	until := now.Add(m.cfg.MuteDuration())

	if err := m.platform.Timeout(ctx, guildID, userID, until); err != nil {
		m.logger.Warn("mute failed", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
		return
	}
	metrics.MutesTotal.Inc()

	c := storage.Case{
		GuildID:    guildID,
		UserID:     userID,
		ModID:      m.botID,
		ModTag:     "automod",
		Type:       storage.CaseMute,
		Reason:     reason,
		Punishment: fmt.Sprintf("%d days", m.cfg.MuteDays),
		Date:       now,
		Until:      &until,
	}
	if err := m.appendCase(ctx, &c); err != nil {
		m.logger.Warn("mute case not recorded", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
	}
	m.audit.Log(ctx, audit.LevelInfo, guildID, userID, audit.EventRaidMute, reason)
	m.publicLog(ctx, settings, m.caseEmbed(c, member))
}

func (m *Monitor) appendCase(ctx context.Context, c *storage.Case) error {
	id, err := m.store.NextCaseID(ctx, c.GuildID)
	if err != nil {
		return err
	}
	c.ID = id
	return m.store.AddCase(ctx, *c)
}

// raidAlert alerts moderators and freezes the server unless the guild is
// still inside its alert cooldown.
func (m *Monitor) raidAlert(ctx context.Context, settings storage.GuildSettings, trigger *discordgo.Member, msg *discordgo.Message, kind string) {
	guildID := settings.GuildID
	if !m.alertCooldown.Allow(guildID, m.clock.Now()) {
		metrics.AlertsTotal.WithLabelValues("suppressed").Inc()
		m.audit.Log(ctx, audit.LevelInfo, guildID, memberID(trigger), audit.EventAlertSkipped, kind)
		return
	}
	metrics.AlertsTotal.WithLabelValues("sent").Inc()
	m.audit.Log(ctx, audit.LevelCrit, guildID, memberID(trigger), audit.EventRaidAlert, kind)

	if settings.ModReportsChannel != "" {
		if err := m.platform.SendEmbed(ctx, settings.ModReportsChannel, m.alertEmbed(trigger, msg, kind)); err != nil {
			m.logger.Warn("raid alert not delivered", zap.String("guild_id", guildID), zap.Error(err))
		}
	}

	changed, err := m.FreezeServer(ctx, guildID)
	if err != nil {
		m.logger.Info("freeze skipped", zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	m.logger.Info("server frozen", zap.String("guild_id", guildID), zap.Int("channels", len(changed)))
}

func (m *Monitor) report(ctx context.Context, settings storage.GuildSettings, member *discordgo.Member, msg *discordgo.Message, detail, kind string) {
	if settings.ModReportsChannel == "" {
		return
	}
	if err := m.platform.SendEmbed(ctx, settings.ModReportsChannel, m.reportEmbed(member, msg, detail)); err != nil {
		m.logger.Warn("report not delivered", zap.String("guild_id", settings.GuildID), zap.Error(err))
		return
	}
	metrics.ReportsTotal.WithLabelValues(kind).Inc()
	m.audit.Log(ctx, audit.LevelWarn, settings.GuildID, memberID(member), audit.EventReport, detail)
}

func (m *Monitor) publicLog(ctx context.Context, settings storage.GuildSettings, embed *discordgo.MessageEmbed) {
	if settings.PublicLogChannel == "" {
		return
	}
	if err := m.platform.SendEmbed(ctx, settings.PublicLogChannel, embed); err != nil {
		m.logger.Warn("public log not delivered", zap.String("guild_id", settings.GuildID), zap.Error(err))
	}
}

func (m *Monitor) deleteMessage(ctx context.Context, msg *discordgo.Message) {
	if msg == nil {
		return
	}
	if err := m.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		m.logger.Debug("message delete failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}

func memberID(member *discordgo.Member) string {
	if member == nil || member.User == nil {
		return ""
	}
	return member.User.ID
}
