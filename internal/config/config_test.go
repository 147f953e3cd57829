package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.Raid.JoinBurst.Rule(); got.Events != 10 || got.Window != 8*time.Second {
		t.Fatalf("unexpected join burst rule: %+v", got)
	}
	if !cfg.Raid.Epoch().Equal(time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected epoch: %v", cfg.Raid.Epoch())
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
raid:
  join_burst:
    events: 5
    window_seconds: 4
  mute_days: 60
guild:
  mod_reports_channel: reports
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("PUBLIC_LOG_CHANNEL", "public")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Raid.JoinBurst.Events != 5 || cfg.Raid.JoinBurst.WindowSeconds != 4 {
		t.Fatalf("file values not applied: %+v", cfg.Raid.JoinBurst)
	}
	if cfg.Raid.MessageSpam.Events != 7 {
		t.Fatalf("defaults lost for unset keys: %+v", cfg.Raid.MessageSpam)
	}
	if cfg.Raid.MuteDays != maxMuteDays {
		t.Fatalf("mute days should clamp to %d, got %d", maxMuteDays, cfg.Raid.MuteDays)
	}
	if cfg.Guild.ModReportsChannel != "reports" || cfg.Guild.PublicLogChannel != "public" {
		t.Fatalf("guild defaults not loaded: %+v", cfg.Guild)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without token")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"zero window":   func(c *Config) { c.Raid.RaidTrigger.WindowSeconds = 0 },
		"zero events":   func(c *Config) { c.Raid.SameDayJoin.Events = 0 },
		"bad level":     func(c *Config) { c.Raid.ExemptLevel = 42 },
		"bad epoch":     func(c *Config) { c.Raid.AccountEpoch = "May 2021" },
		"bad driver":    func(c *Config) { c.Database.Driver = "mongo" },
		"zero capacity": func(c *Config) { c.Raid.SetCapacity = 0 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
