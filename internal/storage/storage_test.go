package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings := GuildSettings{
		GuildID:              "g1",
		ModReportsChannel:    "c1",
		PublicLogChannel:     "c-log",
		RoleMemberPlus:       "r-plus",
		RoleModerator:        "r-mod",
		BanTodaySpamAccounts: true,
	}
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}

	settings.ModReportsChannel = "c2"
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, err := store.GetGuildSettings(ctx, "g1", GuildSettings{RoleGenius: "r-genius-default"})
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.ModReportsChannel != "c2" {
		t.Fatalf("expected channel c2, got %q", got.ModReportsChannel)
	}
	if !got.BanTodaySpamAccounts {
		t.Fatalf("expected ban_today_spam_accounts to persist")
	}
	if got.RoleGenius != "r-genius-default" {
		t.Fatalf("expected blank role to fall back to default, got %q", got.RoleGenius)
	}
}

func TestGuildSettingsDefaultsWhenMissing(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetGuildSettings(context.Background(), "g-none", GuildSettings{ModReportsChannel: "fallback"})
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.GuildID != "g-none" || got.ModReportsChannel != "fallback" {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestAuditLogRetention(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := AuditLog{GuildID: "g1", Level: "WARN", Event: "raid_ban", CreatedAt: time.Now().AddDate(0, 0, -40)}
	fresh := AuditLog{GuildID: "g1", Level: "INFO", Event: "raid_mute", CreatedAt: time.Now()}
	for _, entry := range []AuditLog{old, fresh} {
		if err := store.AddAuditLog(ctx, entry); err != nil {
			t.Fatalf("add audit log: %v", err)
		}
	}

	removed, err := store.CleanupAuditLogs(ctx, 30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	logs, err := store.ListAuditLogs(ctx, "g1", time.Now().AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "raid_mute" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}

func TestRebindPostgres(t *testing.T) {
	store := &Store{dialect: DriverPostgres}
	got := store.rebind("SELECT a FROM t WHERE b = ? AND c = ?")
	if got != "SELECT a FROM t WHERE b = $1 AND c = $2" {
		t.Fatalf("unexpected rebind: %s", got)
	}
	sqlite := &Store{dialect: DriverSQLite}
	if sqlite.rebind("x = ?") != "x = ?" {
		t.Fatalf("sqlite queries must be left alone")
	}
}

func TestUnknownDriver(t *testing.T) {
	if _, err := New("oracle", "dsn"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
