package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"gir-antiraid/internal/permissions"
	"gir-antiraid/internal/ratelimit"
)

// Discord rejects timeouts longer than 28 days.
const maxMuteDays = 28

const epochLayout = "2006-01-02"

type Config struct {
	DiscordToken  string            `yaml:"discord_token"`
	Database      DatabaseConfig    `yaml:"database"`
	LogLevel      string            `yaml:"log_level"`
	Health        HealthConfig      `yaml:"health"`
	Guild         GuildDefaults     `yaml:"guild"`
	Raid          RaidConfig        `yaml:"raid"`
	Maintenance   MaintenanceConfig `yaml:"maintenance"`
	Notifications NotifyConfig      `yaml:"notifications"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// GuildDefaults fill in per-guild settings that were never stored.
type GuildDefaults struct {
	ModReportsChannel    string `yaml:"mod_reports_channel"`
	PublicLogChannel     string `yaml:"public_log_channel"`
	RoleMemberPlus       string `yaml:"role_member_plus"`
	RoleMemberPro        string `yaml:"role_member_pro"`
	RoleMemberEdition    string `yaml:"role_member_edition"`
	RoleGenius           string `yaml:"role_genius"`
	RoleModerator        string `yaml:"role_moderator"`
	RoleAdministrator    string `yaml:"role_administrator"`
	BanTodaySpamAccounts bool   `yaml:"ban_today_spam_accounts"`
}

type RateRule struct {
	Events        int `yaml:"events"`
	WindowSeconds int `yaml:"window_seconds"`
}

func (r RateRule) Rule() ratelimit.Rule {
	return ratelimit.Rule{Events: r.Events, Window: time.Duration(r.WindowSeconds) * time.Second}
}

type RaidConfig struct {
	JoinBurst   RateRule `yaml:"join_burst"`
	MessageSpam RateRule `yaml:"message_spam"`
	SameDayJoin RateRule `yaml:"same_day_join"`
	RaidTrigger RateRule `yaml:"raid_trigger"`

	AlertCooldownSeconds  int `yaml:"alert_cooldown_seconds"`
	ReportCooldownSeconds int `yaml:"report_cooldown_seconds"`

	JoinedTTLSeconds  int `yaml:"joined_ttl_seconds"`
	SameDayTTLSeconds int `yaml:"same_day_ttl_seconds"`
	SpammerTTLSeconds int `yaml:"spammer_ttl_seconds"`
	BannedTTLSeconds  int `yaml:"banned_ttl_seconds"`
	SetCapacity       int `yaml:"set_capacity"`

	MinAccountAgeMinutes int    `yaml:"min_account_age_minutes"`
	AccountEpoch         string `yaml:"account_epoch"`
	MuteDays             int    `yaml:"mute_days"`

	MaxUserMentions int `yaml:"max_user_mentions"`
	MaxRoleMentions int `yaml:"max_role_mentions"`

	ExemptLevel     int `yaml:"exempt_level"`
	SpamExemptLevel int `yaml:"spam_exempt_level"`
	ScamExemptLevel int `yaml:"scam_exempt_level"`
	PhraseBypass    int `yaml:"phrase_bypass_level"`

	ScamKeywords []string `yaml:"scam_keywords"`
	FreezeWorkers int     `yaml:"freeze_workers"`
}

func (r RaidConfig) Epoch() time.Time {
	epoch, err := time.Parse(epochLayout, r.AccountEpoch)
	if err != nil {
		return time.Time{}
	}
	return epoch
}

func (r RaidConfig) MinAccountAge() time.Duration {
	return time.Duration(r.MinAccountAgeMinutes) * time.Minute
}

func (r RaidConfig) MuteDuration() time.Duration {
	return time.Duration(r.MuteDays) * 24 * time.Hour
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (r RaidConfig) AlertCooldown() time.Duration  { return seconds(r.AlertCooldownSeconds) }
func (r RaidConfig) ReportCooldown() time.Duration { return seconds(r.ReportCooldownSeconds) }
func (r RaidConfig) JoinedTTL() time.Duration      { return seconds(r.JoinedTTLSeconds) }
func (r RaidConfig) SameDayTTL() time.Duration     { return seconds(r.SameDayTTLSeconds) }
func (r RaidConfig) SpammerTTL() time.Duration     { return seconds(r.SpammerTTLSeconds) }
func (r RaidConfig) BannedTTL() time.Duration      { return seconds(r.BannedTTLSeconds) }

type MaintenanceConfig struct {
	RetentionDays     int    `yaml:"retention_days"`
	PruneSchedule     string `yaml:"prune_schedule"`
	RetentionSchedule string `yaml:"retention_schedule"`
}

type NotifyConfig struct {
	EmbedColors EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
	Info    int `yaml:"info"`
}

func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "/data/gir.db"},
		LogLevel: "info",
		Health:   HealthConfig{Enabled: false, Addr: ":8080"},
		Raid: RaidConfig{
			JoinBurst:             RateRule{Events: 10, WindowSeconds: 8},
			MessageSpam:           RateRule{Events: 7, WindowSeconds: 6},
			SameDayJoin:           RateRule{Events: 4, WindowSeconds: 2700},
			RaidTrigger:           RateRule{Events: 4, WindowSeconds: 15},
			AlertCooldownSeconds:  600,
			ReportCooldownSeconds: 10,
			JoinedTTLSeconds:      10,
			SameDayTTLSeconds:     2700,
			SpammerTTLSeconds:     10,
			BannedTTLSeconds:      120,
			SetCapacity:           100,
			MinAccountAgeMinutes:  15,
			AccountEpoch:          "2021-05-01",
			MuteDays:              14,
			MaxUserMentions:       4,
			MaxRoleMentions:       2,
			ExemptLevel:           int(permissions.Moderator),
			SpamExemptLevel:       int(permissions.MemberPlus),
			ScamExemptLevel:       int(permissions.MemberPlus),
			PhraseBypass:          int(permissions.Moderator),
			ScamKeywords:          []string{"airdrop", "nitro", "take it"},
			FreezeWorkers:         4,
		},
		Maintenance: MaintenanceConfig{
			RetentionDays:     30,
			PruneSchedule:     "@every 5m",
			RetentionSchedule: "@daily",
		},
		Notifications: NotifyConfig{
			EmbedColors: EmbedColors{
				Action:  0xF59E0B,
				Warning: 0xEF4444,
				Error:   0xF97316,
				Info:    0x3B82F6,
			},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.Raid.MuteDays > maxMuteDays {
		cfg.Raid.MuteDays = maxMuteDays
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	rules := map[string]RateRule{
		"join_burst":    c.Raid.JoinBurst,
		"message_spam":  c.Raid.MessageSpam,
		"same_day_join": c.Raid.SameDayJoin,
		"raid_trigger":  c.Raid.RaidTrigger,
	}
	for name, rule := range rules {
		if rule.Events <= 0 || rule.WindowSeconds <= 0 {
			return fmt.Errorf("raid.%s: events and window_seconds must be positive", name)
		}
	}

	durations := map[string]int{
		"alert_cooldown_seconds":  c.Raid.AlertCooldownSeconds,
		"report_cooldown_seconds": c.Raid.ReportCooldownSeconds,
		"joined_ttl_seconds":      c.Raid.JoinedTTLSeconds,
		"same_day_ttl_seconds":    c.Raid.SameDayTTLSeconds,
		"spammer_ttl_seconds":     c.Raid.SpammerTTLSeconds,
		"banned_ttl_seconds":      c.Raid.BannedTTLSeconds,
		"set_capacity":            c.Raid.SetCapacity,
		"mute_days":               c.Raid.MuteDays,
	}
	for name, value := range durations {
		if value <= 0 {
			return fmt.Errorf("raid.%s must be positive", name)
		}
	}

	levels := map[string]int{
		"exempt_level":        c.Raid.ExemptLevel,
		"spam_exempt_level":   c.Raid.SpamExemptLevel,
		"scam_exempt_level":   c.Raid.ScamExemptLevel,
		"phrase_bypass_level": c.Raid.PhraseBypass,
	}
	for name, value := range levels {
		if _, err := permissions.Parse(value); err != nil {
			return fmt.Errorf("raid.%s: %w", name, err)
		}
	}

	if _, err := time.Parse(epochLayout, c.Raid.AccountEpoch); err != nil {
		return fmt.Errorf("raid.account_epoch: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.Database.Driver = envString("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = envString("DATABASE_DSN", cfg.Database.DSN)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Guild.ModReportsChannel = envString("MOD_REPORTS_CHANNEL", cfg.Guild.ModReportsChannel)
	cfg.Guild.PublicLogChannel = envString("PUBLIC_LOG_CHANNEL", cfg.Guild.PublicLogChannel)
	cfg.Guild.RoleMemberPlus = envString("ROLE_MEMBER_PLUS", cfg.Guild.RoleMemberPlus)
	cfg.Guild.RoleModerator = envString("ROLE_MODERATOR", cfg.Guild.RoleModerator)
	cfg.Guild.RoleAdministrator = envString("ROLE_ADMINISTRATOR", cfg.Guild.RoleAdministrator)
	cfg.Guild.BanTodaySpamAccounts = envBool("BAN_TODAY_SPAM_ACCOUNTS", cfg.Guild.BanTodaySpamAccounts)
	cfg.Raid.JoinBurst.Events = envInt("RAID_JOIN_EVENTS", cfg.Raid.JoinBurst.Events)
	cfg.Raid.JoinBurst.WindowSeconds = envInt("RAID_JOIN_WINDOW_SECONDS", cfg.Raid.JoinBurst.WindowSeconds)
	cfg.Raid.MessageSpam.Events = envInt("SPAM_MESSAGES", cfg.Raid.MessageSpam.Events)
	cfg.Raid.MessageSpam.WindowSeconds = envInt("SPAM_WINDOW_SECONDS", cfg.Raid.MessageSpam.WindowSeconds)
	cfg.Raid.AlertCooldownSeconds = envInt("RAID_ALERT_COOLDOWN_SECONDS", cfg.Raid.AlertCooldownSeconds)
	cfg.Raid.AccountEpoch = envString("RAID_ACCOUNT_EPOCH", cfg.Raid.AccountEpoch)
	cfg.Raid.MuteDays = envInt("RAID_MUTE_DAYS", cfg.Raid.MuteDays)
	cfg.Maintenance.RetentionDays = envInt("RETENTION_DAYS", cfg.Maintenance.RetentionDays)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
