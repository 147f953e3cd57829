package maintenance

import (
	"context"
	"time"

	"gir-antiraid/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Pruner interface {
	Prune() int
}

type AuditCleaner interface {
	CleanupAuditLogs(ctx context.Context, retentionDays int) (int64, error)
}

// Scheduler runs the periodic housekeeping jobs: dropping idle rate-limit
// keys and deleting audit rows past retention.
type Scheduler struct {
	cfg     config.MaintenanceConfig
	logger  *zap.Logger
	pruner  Pruner
	cleaner AuditCleaner
	cron    *cron.Cron
}

func New(cfg config.MaintenanceConfig, logger *zap.Logger, pruner Pruner, cleaner AuditCleaner) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		logger:  logger,
		pruner:  pruner,
		cleaner: cleaner,
		cron:    cron.New(),
	}
}

func (s *Scheduler) Start() error {
	if s.cfg.PruneSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.PruneSchedule, s.RunPrune); err != nil {
			return err
		}
	}
	if s.cfg.RetentionSchedule != "" && s.cfg.RetentionDays > 0 {
		if _, err := s.cron.AddFunc(s.cfg.RetentionSchedule, s.RunRetention); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs or for ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) RunPrune() {
	removed := s.pruner.Prune()
	s.logger.Debug("rate limit keys pruned", zap.Int("removed", removed))
}

func (s *Scheduler) RunRetention() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	removed, err := s.cleaner.CleanupAuditLogs(ctx, s.cfg.RetentionDays)
	if err != nil {
		s.logger.Warn("audit retention failed", zap.Error(err))
		return
	}
	s.logger.Info("audit retention", zap.Int64("removed", removed), zap.Int("retention_days", s.cfg.RetentionDays))
}
