package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type QuotaRefiller interface {
	Refill(ctx context.Context, freeSwipes, freeSuperLikes, paidSuperLikes int, now time.Time) (int64, error)
}

type Pruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

type Dependencies struct {
	Quotas        QuotaRefiller
	Notifications Pruner
	Activity      Pruner
	Logger        *zap.Logger
}

type Config struct {
	RefillSchedule        string
	CleanupSchedule       string
	NotificationRetention time.Duration
	ActivityRetention     time.Duration
	FreeSwipes            int
	FreeSuperLikes        int
	PaidSuperLikes        int
}

// Scheduler runs the periodic upkeep of the worker: the quota refill at
// the start of each period and the pruning of old rows.
type Scheduler struct {
	quotas        QuotaRefiller
	notifications Pruner
	activity      Pruner
	cfg           Config
	logger        *zap.Logger
	now           func() time.Time
}

func New(deps Dependencies, cfg Config) *Scheduler {
	if cfg.RefillSchedule == "" {
		cfg.RefillSchedule = "0 0 * * *"
	}
	if cfg.CleanupSchedule == "" {
		cfg.CleanupSchedule = "30 3 * * *"
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Scheduler{
		quotas:        deps.Quotas,
		notifications: deps.Notifications,
		activity:      deps.Activity,
		cfg:           cfg,
		logger:        deps.Logger,
		now:           time.Now,
	}
}

// Run schedules both jobs and blocks until ctx is cancelled. Jobs in
// flight are allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger{s.logger}),
		cron.WithChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})),
	)

	if _, err := c.AddFunc(s.cfg.RefillSchedule, func() { s.logRun(ctx, "quota_refill", s.RefillQuotas) }); err != nil {
		return fmt.Errorf("schedule quota refill %q: %w", s.cfg.RefillSchedule, err)
	}
	if _, err := c.AddFunc(s.cfg.CleanupSchedule, func() { s.logRun(ctx, "cleanup", s.Cleanup) }); err != nil {
		return fmt.Errorf("schedule cleanup %q: %w", s.cfg.CleanupSchedule, err)
	}

	c.Start()
	s.logger.Info("maintenance scheduler started",
		zap.String("refill_schedule", s.cfg.RefillSchedule),
		zap.String("cleanup_schedule", s.cfg.CleanupSchedule),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// RefillQuotas starts a new period for every subscription.
func (s *Scheduler) RefillQuotas(ctx context.Context) error {
	if s.quotas == nil {
		return nil
	}
	rows, err := s.quotas.Refill(ctx, s.cfg.FreeSwipes, s.cfg.FreeSuperLikes, s.cfg.PaidSuperLikes, s.now())
	if err != nil {
		return fmt.Errorf("refill quotas: %w", err)
	}
	s.logger.Info("quota refill completed", zap.Int64("subscriptions", rows))
	return nil
}

// Cleanup prunes read notifications and old activity. Both run even if the
// first fails.
func (s *Scheduler) Cleanup(ctx context.Context) error {
	var errs []error

	if s.notifications != nil && s.cfg.NotificationRetention > 0 {
		rows, err := s.notifications.Prune(ctx, s.cfg.NotificationRetention)
		if err != nil {
			errs = append(errs, fmt.Errorf("prune notifications: %w", err))
		} else if rows > 0 {
			s.logger.Info("pruned notifications", zap.Int64("deleted", rows))
		}
	}

	if s.activity != nil && s.cfg.ActivityRetention > 0 {
		rows, err := s.activity.Prune(ctx, s.cfg.ActivityRetention)
		if err != nil {
			errs = append(errs, fmt.Errorf("prune activity: %w", err))
		} else if rows > 0 {
			s.logger.Info("pruned activity events", zap.Int64("deleted", rows))
		}
	}

	return errors.Join(errs...)
}

func (s *Scheduler) logRun(ctx context.Context, name string, fn func(context.Context) error) {
	started := s.now()
	if err := fn(ctx); err != nil {
		s.logger.Error("maintenance job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Debug("maintenance job finished", zap.String("job", name), zap.Duration("took", s.now().Sub(started)))
}

type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
