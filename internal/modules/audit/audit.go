package audit

import (
	"context"
	"time"

	"gir-antiraid/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Events recorded by the raid monitor and the moderator commands.
const (
	EventRaidBan      = "raid_ban"
	EventRaidMute     = "raid_mute"
	EventRaidAlert    = "raid_alert"
	EventAlertSkipped = "raid_alert_suppressed"
	EventReport       = "mod_report"
	EventFreeze       = "freeze"
	EventUnfreeze     = "unfreeze"
	EventCaseLifted   = "case_lifted"
	EventConfig       = "config_changed"
)

type Sink interface {
	AddAuditLog(ctx context.Context, log storage.AuditLog) error
}

type Logger struct {
	store  Sink
	logger *zap.Logger
	now    func() time.Time
	notify func(context.Context, storage.AuditLog)
}

func NewLogger(store Sink, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger, now: time.Now}
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

func (l *Logger) SetClock(now func() time.Time) {
	l.now = now
}

// Log persists the entry and mirrors it to the structured log. A failed
// write is logged and otherwise ignored.
func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	if l == nil {
		return
	}
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.now(),
	}
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("audit write failed", zap.String("event", event), zap.Error(err))
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}
