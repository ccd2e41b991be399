package workerapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivankudzin/jobswipe/internal/config"
	"github.com/ivankudzin/jobswipe/internal/events"
	natsinfra "github.com/ivankudzin/jobswipe/internal/infra/nats"
	"github.com/ivankudzin/jobswipe/internal/jobs/maintenance"
	"github.com/ivankudzin/jobswipe/internal/metrics"
	"github.com/ivankudzin/jobswipe/internal/realtime"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
	redrepo "github.com/ivankudzin/jobswipe/internal/repo/redis"
	activitysvc "github.com/ivankudzin/jobswipe/internal/services/activity"
	notificationsvc "github.com/ivankudzin/jobswipe/internal/services/notifications"
)

// App consumes domain events into notifications and runs the periodic
// upkeep jobs.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	postgres  *pgxpool.Pool
	redis     *goredis.Client
	natsConn  *nats.Conn
	js        nats.JetStreamContext
	emitter   *notificationsvc.Emitter
	streams   *redrepo.StreamRepo
	scheduler *maintenance.Scheduler
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for worker: %w", err)
	}

	redisClient, err := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis for worker: %w", err)
	}

	notificationRepo := pgrepo.NewNotificationRepo(pool)
	subscriptionRepo := pgrepo.NewSubscriptionRepo(pool)

	app := &App{
		cfg:      cfg,
		logger:   logger,
		postgres: pool,
		redis:    redisClient,
		streams:  redrepo.NewStreamRepo(redisClient, 0),
		emitter: notificationsvc.NewEmitter(notificationsvc.EmitterDependencies{
			Store:   notificationRepo,
			Jobs:    pgrepo.NewJobRepo(pool),
			Pusher:  realtime.NewRedisFanout(redisClient, realtime.DefaultChannel, logger.Named("fanout")),
			Metrics: metrics.Nop{},
			Logger:  logger.Named("emitter"),
		}),
		scheduler: maintenance.New(maintenance.Dependencies{
			Quotas:        subscriptionRepo,
			Notifications: notificationsvc.NewService(notificationRepo),
			Activity:      activitysvc.NewService(pgrepo.NewActivityRepo(pool), logger.Named("activity")),
			Logger:        logger.Named("maintenance"),
		}, maintenance.Config{
			RefillSchedule:        cfg.Worker.QuotaRefillSchedule,
			CleanupSchedule:       cfg.Worker.CleanupSchedule,
			NotificationRetention: cfg.Worker.NotificationRetention,
			ActivityRetention:     cfg.Worker.ActivityRetention,
			FreeSwipes:            cfg.Limits.FreeSwipesPerPeriod,
			FreeSuperLikes:        cfg.Limits.FreeSuperLikesPerPeriod,
			PaidSuperLikes:        cfg.Limits.PaidSuperLikesPerPeriod,
		}),
	}

	if driver(cfg) == events.DriverNATS {
		conn, err := natsinfra.Connect(natsinfra.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name + "-worker",
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       cfg.NATS.Timeout,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.natsConn = conn
		js, err := natsinfra.JetStream(conn, natsinfra.StreamConfig{
			Name:     cfg.NATS.Stream,
			Subjects: []string{events.SubjectFilter(cfg.NATS.SubjectPrefix)},
			MaxAge:   cfg.NATS.MaxAge,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.js = js
	}

	return app, nil
}

// Run blocks until ctx is cancelled or one of the loops fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})
	g.Go(func() error {
		return a.consume(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) consume(ctx context.Context) error {
	switch driver(a.cfg) {
	case events.DriverRedis:
		consumer := events.NewRedisConsumer(a.streams, a.emitter, a.logger.Named("consumer"), events.ConsumerConfig{
			Stream:           a.cfg.Events.Stream,
			Group:            a.cfg.Events.Group,
			Consumer:         a.cfg.Events.Consumer,
			BatchSize:        a.cfg.Events.BatchSize,
			BlockTimeout:     a.cfg.Events.BlockTimeout,
			RetryBackoff:     a.cfg.Events.RetryBackoff,
			MaxDeliveries:    a.cfg.Events.MaxDeliveries,
			DeadLetterStream: a.cfg.Events.DeadLetterStream,
		})
		return consumer.Run(ctx)
	case events.DriverNATS:
		sub, err := events.SubscribeNATS(a.js, events.NATSConsumerConfig{
			SubjectPrefix: a.cfg.NATS.SubjectPrefix,
			Queue:         a.cfg.NATS.Queue,
			AckWait:       a.cfg.NATS.AckWait,
			MaxAckPending: a.cfg.NATS.MaxAckPending,
			MaxDeliveries: int(a.cfg.Events.MaxDeliveries),
			RetryBackoff:  a.cfg.Events.RetryBackoff,
		}, a.emitter, a.logger.Named("consumer"))
		if err != nil {
			return err
		}
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			a.logger.Warn("drain nats subscription failed", zap.Error(err))
		}
		return ctx.Err()
	case events.DriverInline:
		a.logger.Info("inline events driver: notifications are produced by the api, consumer idle")
		<-ctx.Done()
		return ctx.Err()
	default:
		return fmt.Errorf("unknown events driver %q", a.cfg.Events.Driver)
	}
}

func (a *App) Close() {
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.logger.Warn("drain nats connection failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis failed", zap.Error(err))
		}
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
}

func driver(cfg config.Config) string {
	d := strings.ToLower(strings.TrimSpace(cfg.Events.Driver))
	if d == "" {
		return events.DriverRedis
	}
	return d
}
