package antiraid

import (
	"context"
	"strings"
	"time"

	"gir-antiraid/internal/permissions"
	"gir-antiraid/internal/storage"
	"gir-antiraid/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const dayLayout = "January 02, 2006"

// ClassifyJoin records a join and returns the verdicts it completes. The
// burst and same-day checks are independent, so both can fire.
func (m *Monitor) ClassifyJoin(ctx context.Context, member *discordgo.Member) []Verdict {
	guildID := member.GuildID
	now := m.clock.Now()

	var verdicts []Verdict
	m.joined.Remember(guildID, member.User.ID, member)
	if m.joinBurst.Hit(guildID, now) {
		verdicts = append(verdicts, JoinSpamBurst{
			GuildID: guildID,
			Trigger: member,
			Cohort:  m.joined.Drain(guildID),
		})
	}

	settings := m.settings(ctx, guildID)
	if verdict := m.classifySameDay(ctx, settings, member, now); verdict != nil {
		verdicts = append(verdicts, verdict)
	}
	return verdicts
}

func (m *Monitor) classifySameDay(ctx context.Context, settings storage.GuildSettings, member *discordgo.Member, now time.Time) Verdict {
	created, err := discordgo.SnowflakeTimestamp(member.User.ID)
	if err != nil {
		return nil
	}
	if now.Sub(created) < m.cfg.MinAccountAge() || !created.After(m.cfg.Epoch()) {
		return nil
	}
	createdDay := created.UTC().Format(dayLayout)
	if createdDay == now.UTC().Format(dayLayout) && !settings.BanTodaySpamAccounts {
		return nil
	}
	verified, err := m.store.IsRaidVerified(ctx, member.GuildID, member.User.ID)
	if err != nil {
		m.logger.Warn("raid verified lookup failed", zap.String("guild_id", member.GuildID), zap.Error(err))
		return nil
	}
	if verified {
		return nil
	}

	key := member.GuildID + ":" + createdDay
	m.sameDayMu.Lock()
	defer m.sameDayMu.Unlock()
	m.sameDays.Remember(key, member.User.ID, member)
	if !m.sameDay.Hit(key, now) {
		return nil
	}
	return JoinSpamSameDay{
		GuildID:   member.GuildID,
		Trigger:   member,
		CreatedOn: createdDay,
		Cohort:    m.sameDays.Drain(key),
	}
}

// ClassifyMessage runs the message checks in priority order and returns the
// first match. Members at or above the exempt level are never classified.
func (m *Monitor) ClassifyMessage(ctx context.Context, msg *discordgo.Message, member *discordgo.Member) Verdict {
	settings := m.settings(ctx, msg.GuildID)
	roles := m.roles(ctx, settings)
	if m.atLeast(roles, member, m.cfg.ExemptLevel) {
		return nil
	}
	level := permissions.Of(roles, member)

	users, roleMentions := uniqueMentions(msg)
	if users > m.cfg.MaxUserMentions || roleMentions > m.cfg.MaxRoleMentions {
		return PingSpam{Member: member, Message: msg, Users: users, Roles: roleMentions}
	}

	if phrase, ok := m.matchRaidPhrase(ctx, msg, level); ok {
		return RaidPhrase{Member: member, Message: msg, Phrase: phrase}
	}

	if !m.atLeast(roles, member, m.cfg.SpamExemptLevel) {
		key := msg.GuildID + ":" + member.User.ID
		if m.messageSpam.Hit(key, m.clock.Now()) {
			return MessageSpam{Member: member, Message: msg}
		}
	}

	if !m.atLeast(roles, member, m.cfg.ScamExemptLevel) && m.looksLikeScam(msg) {
		return ScamLinkSuspect{Member: member, Message: msg, URLs: normalizedLinks(msg.Content)}
	}
	return nil
}

func (m *Monitor) matchRaidPhrase(ctx context.Context, msg *discordgo.Message, level permissions.Level) (string, bool) {
	if strings.TrimSpace(msg.Content) == "" {
		return "", false
	}
	phrases, err := m.store.ListRaidPhrases(ctx, msg.GuildID)
	if err != nil {
		m.logger.Warn("raid phrases unavailable", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return "", false
	}
	for _, phrase := range phrases {
		if level >= phrase.BypassLevel {
			continue
		}
		if utils.ContainsFolded(msg.Content, phrase.Phrase) {
			return phrase.Phrase, true
		}
	}
	return "", false
}

func (m *Monitor) looksLikeScam(msg *discordgo.Message) bool {
	if !utils.HasURL(msg.Content) {
		return false
	}
	if msg.MentionEveryone || strings.Contains(msg.Content, "@everyone") || strings.Contains(msg.Content, "@here") {
		return true
	}
	folded := utils.Fold(msg.Content)
	for _, keyword := range m.cfg.ScamKeywords {
		if keyword != "" && strings.Contains(folded, utils.Fold(keyword)) {
			return true
		}
	}
	return false
}

func uniqueMentions(msg *discordgo.Message) (int, int) {
	users := make(map[string]struct{}, len(msg.Mentions))
	for _, user := range msg.Mentions {
		if user != nil {
			users[user.ID] = struct{}{}
		}
	}
	roles := make(map[string]struct{}, len(msg.MentionRoles))
	for _, id := range msg.MentionRoles {
		roles[id] = struct{}{}
	}
	return len(users), len(roles)
}

func normalizedLinks(content string) []string {
	var links []string
	for _, raw := range utils.ExtractURLs(content) {
		if normalized, _, err := utils.NormalizeURL(raw); err == nil {
			links = append(links, normalized)
			continue
		}
		links = append(links, raw)
	}
	return links
}
