package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"gir-antiraid/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySink struct {
	entries []storage.AuditLog
	err     error
}

func (m *memorySink) AddAuditLog(ctx context.Context, log storage.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, log)
	return nil
}

func TestLogPersistsAndNotifies(t *testing.T) {
	sink := &memorySink{}
	stamp := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewLogger(sink, zap.NewNop())
	l.SetClock(func() time.Time { return stamp })

	var notified []storage.AuditLog
	l.SetNotifier(func(_ context.Context, entry storage.AuditLog) {
		notified = append(notified, entry)
	})

	l.Log(context.Background(), LevelCrit, "g1", "u1", EventRaidAlert, "raid")

	require.Len(t, sink.entries, 1)
	assert.Equal(t, stamp, sink.entries[0].CreatedAt)
	assert.Equal(t, EventRaidAlert, sink.entries[0].Event)
	assert.Equal(t, sink.entries, notified)
}

func TestLogSurvivesWriteFailure(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	l := NewLogger(sink, zap.NewNop())

	calls := 0
	l.SetNotifier(func(context.Context, storage.AuditLog) { calls++ })
	l.Log(context.Background(), LevelInfo, "g1", "", EventConfig, "x")

	assert.Empty(t, sink.entries)
	assert.Equal(t, 1, calls)
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Log(context.Background(), LevelInfo, "g1", "", EventConfig, "x")
	})
}
