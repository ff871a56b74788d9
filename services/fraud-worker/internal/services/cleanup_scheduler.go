package services

import (
	"context"
	"sync"
	"time"

	"github.com/astroshop/fraud-detection/pkg/repositories"
	"github.com/astroshop/fraud-detection/services/fraud-worker/internal/observability"
	"go.uber.org/zap"
)

// CleanupScheduler prunes order log entries and fraud alerts older than the
// retention horizon on a fixed interval, independent of consumer throughput.
type CleanupScheduler interface {
	// Start launches the background task and returns a closer that stops it
	// and waits for the in-flight cycle to finish.
	Start() func()
}

const defaultCycleTimeout = 5 * time.Minute

type CleanupConfig struct {
	Context       context.Context
	Logger        *zap.Logger
	RetentionDays int
	Interval      time.Duration
	CycleTimeout  time.Duration // defaults to 5m
	OrderLogRepo  repositories.OrderLogRepository
	AlertRepo     repositories.FraudAlertRepository
	Now           func() time.Time
}

type CleanupSchedulerImpl struct {
	cfg CleanupConfig
	wg  sync.WaitGroup
}

func NewCleanupScheduler(cfg CleanupConfig) CleanupScheduler {
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = defaultCycleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CleanupSchedulerImpl{cfg: cfg}
}

func (s *CleanupSchedulerImpl) Start() func() {
	ctx, cancel := context.WithCancel(s.cfg.Context)

	s.cfg.Logger.Info("cleanup scheduler started",
		zap.Int("retention_days", s.cfg.RetentionDays),
		zap.Duration("interval", s.cfg.Interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runCycle(ctx)
			}
		}
	}()

	return func() {
		cancel()
		s.wg.Wait()
		s.cfg.Logger.Info("cleanup scheduler stopped")
	}
}

// runCycle deletes everything strictly older than now - retentionDays.
// Errors are logged, never propagated: the next tick always proceeds.
func (s *CleanupSchedulerImpl) runCycle(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CycleTimeout)
	defer cancel()

	cutoff := s.cfg.Now().AddDate(0, 0, -s.cfg.RetentionDays)

	deleted, err := s.cfg.OrderLogRepo.DeleteOlderThan(cctx, cutoff)
	if err != nil {
		s.cfg.Logger.Error("order log cleanup failed", zap.Time("cutoff", cutoff), zap.Error(err))
	} else {
		observability.CleanupRowsDeleted.WithLabelValues("order_log").Add(float64(deleted))
		s.cfg.Logger.Info("order log pruned", zap.Time("cutoff", cutoff), zap.Int64("deleted", deleted))
	}

	alertsDeleted, err := s.cfg.AlertRepo.DeleteOlderThan(cctx, cutoff)
	if err != nil {
		s.cfg.Logger.Error("fraud alert cleanup failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return
	}
	observability.CleanupRowsDeleted.WithLabelValues("fraud_alerts").Add(float64(alertsDeleted))
	s.cfg.Logger.Info("fraud alerts pruned", zap.Time("cutoff", cutoff), zap.Int64("deleted", alertsDeleted))
}
