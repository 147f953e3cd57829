// Package antiraid detects raids from joins and messages and responds with
// mutes, bans, moderator alerts and channel freezes.
package antiraid

import (
	"context"
	"errors"
	"sync"
	"time"

	"gir-antiraid/internal/config"
	"gir-antiraid/internal/expiring"
	"gir-antiraid/internal/modules/audit"
	"gir-antiraid/internal/permissions"
	"gir-antiraid/internal/ratelimit"
	"gir-antiraid/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var (
	ErrNoFreezableChannels = errors.New("no freezable channels configured")
	ErrRoleNotConfigured   = errors.New("member plus role not configured")
	ErrNoReportsChannel    = errors.New("mod reports channel not configured")
)

// Monitor owns every piece of in-memory raid state. Build one per process
// with New; tests build a fresh one per case.
type Monitor struct {
	cfg      config.RaidConfig
	colors   config.EmbedColors
	defaults storage.GuildSettings
	logger   *zap.Logger
	store    Store
	platform Platform
	audit    *audit.Logger
	clock    Clock
	botID    string

	joinBurst   *ratelimit.Buckets
	messageSpam *ratelimit.Buckets
	sameDay     *ratelimit.Buckets
	raidTrigger *ratelimit.Buckets

	alertCooldown  *ratelimit.Cooldown
	reportCooldown *ratelimit.Cooldown

	joined   *expiring.Set[*discordgo.Member]
	sameDays *expiring.Set[*discordgo.Member]
	spammers *expiring.Set[*discordgo.Member]
	banned   *expiring.Set[struct{}]

	// sameDayMu covers the same-day bucket hit and the cohort append.
	sameDayMu sync.Mutex
	// banMu covers the banned check, the ban call and the case write.
	banMu sync.Mutex
}

type Options struct {
	Raid     config.RaidConfig
	Colors   config.EmbedColors
	Defaults storage.GuildSettings
	Logger   *zap.Logger
	Store    Store
	Platform Platform
	Audit    *audit.Logger
}

func New(opts Options) *Monitor {
	cfg := opts.Raid
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		cfg:      cfg,
		colors:   opts.Colors,
		defaults: opts.Defaults,
		logger:   logger,
		store:    opts.Store,
		platform: opts.Platform,
		audit:    opts.Audit,
		clock:    realClock{},

		joinBurst:   ratelimit.NewBuckets(cfg.JoinBurst.Rule()),
		messageSpam: ratelimit.NewBuckets(cfg.MessageSpam.Rule()),
		sameDay:     ratelimit.NewBuckets(cfg.SameDayJoin.Rule()),
		raidTrigger: ratelimit.NewBuckets(cfg.RaidTrigger.Rule()),

		alertCooldown:  ratelimit.NewCooldown(cfg.AlertCooldown()),
		reportCooldown: ratelimit.NewCooldown(cfg.ReportCooldown()),

		joined:   expiring.New[*discordgo.Member](cfg.SetCapacity, cfg.JoinedTTL()),
		sameDays: expiring.New[*discordgo.Member](cfg.SetCapacity, cfg.SameDayTTL()),
		spammers: expiring.New[*discordgo.Member](cfg.SetCapacity, cfg.SpammerTTL()),
		banned:   expiring.New[struct{}](cfg.SetCapacity, cfg.BannedTTL()),
	}
	m.syncSetClocks()
	return m
}

func (m *Monitor) WithClock(clock Clock) {
	m.clock = clock
	m.syncSetClocks()
}

// SetBotID records the bot's own user id. It is the moderator on automated
// cases.
func (m *Monitor) SetBotID(id string) {
	m.botID = id
}

func (m *Monitor) syncSetClocks() {
	now := func() time.Time { return m.clock.Now() }
	m.joined.WithClock(now)
	m.sameDays.WithClock(now)
	m.spammers.WithClock(now)
	m.banned.WithClock(now)
}

// HandleJoin classifies a member join and acts on every verdict it yields.
func (m *Monitor) HandleJoin(ctx context.Context, member *discordgo.Member) {
	if member == nil || member.User == nil || member.GuildID == "" || member.User.Bot {
		return
	}
	for _, verdict := range m.ClassifyJoin(ctx, member) {
		m.Respond(ctx, verdict)
	}
}

// HandleMessage classifies a guild message and acts on the verdict.
func (m *Monitor) HandleMessage(ctx context.Context, msg *discordgo.Message, member *discordgo.Member) {
	if msg == nil || msg.Author == nil || msg.GuildID == "" || msg.Author.Bot {
		return
	}
	if member == nil {
		return
	}
	if member.User == nil {
		member.User = msg.Author
	}
	if member.GuildID == "" {
		member.GuildID = msg.GuildID
	}
	if verdict := m.ClassifyMessage(ctx, msg, member); verdict != nil {
		m.Respond(ctx, verdict)
	}
}

// Prune drops idle bucket and cooldown keys.
func (m *Monitor) Prune() int {
	now := m.clock.Now()
	removed := 0
	for _, buckets := range []*ratelimit.Buckets{m.joinBurst, m.messageSpam, m.sameDay, m.raidTrigger} {
		removed += buckets.Prune(now)
	}
	removed += m.alertCooldown.Prune(now)
	removed += m.reportCooldown.Prune(now)
	return removed
}

func (m *Monitor) settings(ctx context.Context, guildID string) storage.GuildSettings {
	settings, err := m.store.GetGuildSettings(ctx, guildID, m.defaults)
	if err != nil {
		m.logger.Warn("guild settings unavailable", zap.String("guild_id", guildID), zap.Error(err))
		settings = m.defaults
		settings.GuildID = guildID
	}
	return settings
}

func (m *Monitor) roles(ctx context.Context, settings storage.GuildSettings) permissions.Roles {
	roles := settings.Roles()
	owner, err := m.platform.GuildOwner(ctx, settings.GuildID)
	if err == nil {
		roles.OwnerID = owner
	}
	return roles
}

// atLeast reports whether member holds level. An undefined level is a
// configuration bug and counts as "not held".
func (m *Monitor) atLeast(roles permissions.Roles, member *discordgo.Member, level int) bool {
	ok, err := permissions.Has(roles, member, permissions.Level(level))
	if err != nil {
		m.logger.DPanic("permission check", zap.Int("level", level), zap.Error(err))
		return false
	}
	return ok
}
