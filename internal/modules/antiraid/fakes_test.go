package antiraid

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"gir-antiraid/internal/config"
	"gir-antiraid/internal/modules/audit"
	"gir-antiraid/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testGuild   = "g1"
	reportsChan = "reports"
	publicChan  = "public"
	plusRole    = "role-plus"
	geniusRole  = "role-genius"
	modRole     = "role-mod"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fakePlatform struct {
	mu       sync.Mutex
	bans     []string
	banErr   map[string]error
	timeouts map[string]time.Time
	deleted  []string
	sent     map[string][]*discordgo.MessageEmbed
	dms      map[string]int
	channels map[string]*discordgo.Channel
	permSets int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		banErr:   make(map[string]error),
		timeouts: make(map[string]time.Time),
		sent:     make(map[string][]*discordgo.MessageEmbed),
		dms:      make(map[string]int),
		channels: make(map[string]*discordgo.Channel),
	}
}

func (p *fakePlatform) Ban(ctx context.Context, guildID, userID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.banErr[userID]; err != nil {
		return err
	}
	p.bans = append(p.bans, userID)
	return nil
}

func (p *fakePlatform) Timeout(ctx context.Context, guildID, userID string, until time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeouts[userID] = until
	return nil
}

func (p *fakePlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, messageID)
	return nil
}

func (p *fakePlatform) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent[channelID] = append(p.sent[channelID], embed)
	return nil
}

func (p *fakePlatform) DirectMessage(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dms[userID]++
	return nil
}

func (p *fakePlatform) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	channel, ok := p.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	copied := &discordgo.Channel{ID: channel.ID}
	for _, overwrite := range channel.PermissionOverwrites {
		o := *overwrite
		copied.PermissionOverwrites = append(copied.PermissionOverwrites, &o)
	}
	return copied, nil
}

func (p *fakePlatform) SetRolePermission(ctx context.Context, channelID, roleID string, allow, deny int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permSets++
	channel := p.channels[channelID]
	for _, overwrite := range channel.PermissionOverwrites {
		if overwrite.ID == roleID {
			overwrite.Allow, overwrite.Deny = allow, deny
			return nil
		}
	}
	channel.PermissionOverwrites = append(channel.PermissionOverwrites, &discordgo.PermissionOverwrite{
		ID: roleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: allow, Deny: deny,
	})
	return nil
}

func (p *fakePlatform) GuildOwner(ctx context.Context, guildID string) (string, error) {
	return "owner", nil
}

func (p *fakePlatform) addChannel(id string, overwrites ...*discordgo.PermissionOverwrite) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[id] = &discordgo.Channel{ID: id, PermissionOverwrites: overwrites}
}

func (p *fakePlatform) overwrite(channelID, roleID string) discordgo.PermissionOverwrite {
	p.mu.Lock()
	defer p.mu.Unlock()
	return roleOverwrite(p.channels[channelID], roleID)
}

func (p *fakePlatform) banCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bans)
}

func (p *fakePlatform) embedsTitled(channelID, title string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, embed := range p.sent[channelID] {
		if embed.Title == title {
			count++
		}
	}
	return count
}

type harness struct {
	monitor  *Monitor
	platform *fakePlatform
	store    *storage.Store
	clock    *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := storage.New(storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate())

	ctx := context.Background()
	require.NoError(t, store.UpsertGuildSettings(ctx, storage.GuildSettings{
		GuildID:           testGuild,
		ModReportsChannel: reportsChan,
		PublicLogChannel:  publicChan,
		RoleMemberPlus:    plusRole,
		RoleGenius:        geniusRole,
		RoleModerator:     modRole,
	}))

	platform := newFakePlatform()
	for _, id := range []string{"c1", "c2"} {
		_, err := store.AddFreezableChannel(ctx, testGuild, id)
		require.NoError(t, err)
		platform.addChannel(id)
	}

	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	cfg := config.DefaultConfig()
	auditLog := audit.NewLogger(store, zap.NewNop())
	auditLog.SetClock(clock.Now)
	monitor := New(Options{
		Raid:     cfg.Raid,
		Colors:   cfg.Notifications.EmbedColors,
		Logger:   zap.NewNop(),
		Store:    store,
		Platform: platform,
		Audit:    auditLog,
	})
	monitor.WithClock(clock)
	monitor.SetBotID("bot")
	return &harness{monitor: monitor, platform: platform, store: store, clock: clock}
}

// snowflake builds a user id whose embedded creation time is created.
func snowflake(created time.Time, seq int) string {
	ms := created.UnixMilli() - 1420070400000
	return strconv.FormatInt(ms<<22|int64(seq), 10)
}

func newMember(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{GuildID: testGuild, User: &discordgo.User{ID: id}, Roles: roles}
}

func newMessage(id string, author *discordgo.Member, content string) *discordgo.Message {
	return &discordgo.Message{ID: id, GuildID: testGuild, ChannelID: "general", Author: author.User, Content: content}
}
