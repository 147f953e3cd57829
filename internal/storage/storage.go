package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"gir-antiraid/internal/permissions"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Store struct {
	db      *sql.DB
	dialect string
}

// GuildSettings is the per-guild configuration the monitor and the
// moderator commands read. Missing rows fall back to config defaults.
type GuildSettings struct {
	GuildID              string
	ModReportsChannel    string
	PublicLogChannel     string
	RoleMemberPlus       string
	RoleMemberPro        string
	RoleMemberEdition    string
	RoleGenius           string
	RoleModerator        string
	RoleAdministrator    string
	BanTodaySpamAccounts bool
}

func (s GuildSettings) Roles() permissions.Roles {
	return permissions.Roles{
		MemberPlus:    s.RoleMemberPlus,
		MemberPro:     s.RoleMemberPro,
		MemberEdition: s.RoleMemberEdition,
		Genius:        s.RoleGenius,
		Moderator:     s.RoleModerator,
		Administrator: s.RoleAdministrator,
	}
}

type AuditLog struct {
	ID        int64
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

// New opens the database. driver is "sqlite" (dsn is a file path or
// ":memory:") or "postgres" (dsn is a pgx connection string).
func New(driver, dsn string) (*Store, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite, "":
		driver, sqlDriver = DriverSQLite, "sqlite"
	case DriverPostgres:
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// every connection to ":memory:" is a separate database
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db, dialect: driver}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Migrate() error {
	dir := path.Join("migrations", s.dialect)
	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join(dir, file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT mod_reports_channel, public_log_channel,
		role_member_plus, role_member_pro, role_member_edition,
		role_genius, role_moderator, role_administrator,
		ban_today_spam_accounts
		FROM guild_settings WHERE guild_id = ?`), guildID)

	result := defaults
	result.GuildID = guildID

	var banToday int
	err := row.Scan(
		&result.ModReportsChannel,
		&result.PublicLogChannel,
		&result.RoleMemberPlus,
		&result.RoleMemberPro,
		&result.RoleMemberEdition,
		&result.RoleGenius,
		&result.RoleModerator,
		&result.RoleAdministrator,
		&banToday,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	result.BanTodaySpamAccounts = banToday == 1
	fillBlank(&result.ModReportsChannel, defaults.ModReportsChannel)
	fillBlank(&result.PublicLogChannel, defaults.PublicLogChannel)
	fillBlank(&result.RoleMemberPlus, defaults.RoleMemberPlus)
	fillBlank(&result.RoleMemberPro, defaults.RoleMemberPro)
	fillBlank(&result.RoleMemberEdition, defaults.RoleMemberEdition)
	fillBlank(&result.RoleGenius, defaults.RoleGenius)
	fillBlank(&result.RoleModerator, defaults.RoleModerator)
	fillBlank(&result.RoleAdministrator, defaults.RoleAdministrator)
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO guild_settings (
			guild_id, mod_reports_channel, public_log_channel,
			role_member_plus, role_member_pro, role_member_edition,
			role_genius, role_moderator, role_administrator,
			ban_today_spam_accounts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			mod_reports_channel = excluded.mod_reports_channel,
			public_log_channel = excluded.public_log_channel,
			role_member_plus = excluded.role_member_plus,
			role_member_pro = excluded.role_member_pro,
			role_member_edition = excluded.role_member_edition,
			role_genius = excluded.role_genius,
			role_moderator = excluded.role_moderator,
			role_administrator = excluded.role_administrator,
			ban_today_spam_accounts = excluded.ban_today_spam_accounts
	`),
		settings.GuildID,
		settings.ModReportsChannel,
		settings.PublicLogChannel,
		settings.RoleMemberPlus,
		settings.RoleMemberPro,
		settings.RoleMemberEdition,
		settings.RoleGenius,
		settings.RoleModerator,
		settings.RoleAdministrator,
		boolToInt(settings.BanTodaySpamAccounts),
	)
	return err
}

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO audit_logs (guild_id, user_id, level, event, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), log.GuildID, log.UserID, log.Level, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, guild_id, user_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
	`), guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.UserID, &log.Level, &log.Event, &log.Details, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// CleanupAuditLogs deletes audit rows older than retentionDays and returns
// how many were removed.
func (s *Store) CleanupAuditLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM audit_logs WHERE created_at < ?`), cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// rebind rewrites '?' placeholders to '$n' for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fillBlank(target *string, fallback string) {
	if *target == "" {
		*target = fallback
	}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
