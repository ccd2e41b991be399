package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/config"
	"github.com/ivankudzin/jobswipe/internal/events"
	"github.com/ivankudzin/jobswipe/internal/infra/httpclient"
	natsinfra "github.com/ivankudzin/jobswipe/internal/infra/nats"
	s3infra "github.com/ivankudzin/jobswipe/internal/infra/s3"
	"github.com/ivankudzin/jobswipe/internal/metrics"
	"github.com/ivankudzin/jobswipe/internal/realtime"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
	redrepo "github.com/ivankudzin/jobswipe/internal/repo/redis"
	activitysvc "github.com/ivankudzin/jobswipe/internal/services/activity"
	assistantsvc "github.com/ivankudzin/jobswipe/internal/services/assistant"
	authsvc "github.com/ivankudzin/jobswipe/internal/services/auth"
	dashboardsvc "github.com/ivankudzin/jobswipe/internal/services/dashboard"
	jobsvc "github.com/ivankudzin/jobswipe/internal/services/jobs"
	matchsvc "github.com/ivankudzin/jobswipe/internal/services/matches"
	notificationsvc "github.com/ivankudzin/jobswipe/internal/services/notifications"
	profilesvc "github.com/ivankudzin/jobswipe/internal/services/profiles"
	ratesvc "github.com/ivankudzin/jobswipe/internal/services/rate"
	resumesvc "github.com/ivankudzin/jobswipe/internal/services/resumes"
	swipesvc "github.com/ivankudzin/jobswipe/internal/services/swipes"
	"github.com/ivankudzin/jobswipe/internal/transport/http/handlers"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	natsConn   *nats.Conn
	hub        *realtime.Hub
	fanout     *realtime.RedisFanout
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.Metrics.Enabled {
		recorder = metrics.NewCollector(registry)
	}

	if cfg.Postgres.MigrateOnBoot {
		if err := pgrepo.RunMigrations(cfg.Postgres.DSN); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info("migrations applied")
	}

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient, err := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("init redis: %w", err)
	}

	app := &App{
		cfg:      cfg,
		logger:   log,
		postgres: pool,
		redis:    redisClient,
		hub:      realtime.NewHub(log.Named("hub"), cfg.HTTP.AllowedOrigins),
	}

	txManager := pgrepo.NewTxManager(pool)
	userRepo := pgrepo.NewUserRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	jobRepo := pgrepo.NewJobRepo(pool)
	swipeRepo := pgrepo.NewSwipeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	subscriptionRepo := pgrepo.NewSubscriptionRepo(pool)
	notificationRepo := pgrepo.NewNotificationRepo(pool)
	activityRepo := pgrepo.NewActivityRepo(pool)
	statsRepo := pgrepo.NewStatsRepo(pool)

	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	cacheRepo := redrepo.NewCacheRepo(redisClient, "jobswipe:suggestions")

	activityService := activitysvc.NewService(activityRepo, log.Named("activity"))
	notificationService := notificationsvc.NewService(notificationRepo)

	publisher, err := app.publisher(cfg, redisClient, notificationRepo, jobRepo, recorder)
	if err != nil {
		_ = app.Shutdown(ctx)
		return nil, err
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(authsvc.Dependencies{
		JWT:           jwtManager,
		Sessions:      sessionRepo,
		Users:         userRepo,
		Profiles:      profileRepo,
		Subscriptions: subscriptionRepo,
		Tx:            txManager,
		Events:        publisher,
		Logger:        log.Named("auth"),
	}, authsvc.Config{
		RefreshTTL:              cfg.Auth.RefreshTTL,
		BcryptCost:              cfg.Auth.BcryptCost,
		FreeSwipesPerPeriod:     cfg.Limits.FreeSwipesPerPeriod,
		FreeSuperLikesPerPeriod: cfg.Limits.FreeSuperLikesPerPeriod,
		SignupAICredits:         cfg.Limits.SignupAICredits,
	})

	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Tx:          txManager,
		Jobs:        jobRepo,
		Swipes:      swipeRepo,
		Quotas:      subscriptionRepo,
		Matches:     matchRepo,
		RateLimiter: ratesvc.NewLimiter(rateRepo, cfg.Limits.PaidRatePerMinute, cfg.Limits.PaidRatePer10Seconds),
		Events:      publisher,
		Activity:    activityService,
		Metrics:     recorder,
		Logger:      log.Named("swipes"),
	})

	assistantDeps := assistantsvc.Dependencies{
		Credits: subscriptionRepo,
		Cache:   cacheRepo,
		Metrics: recorder,
		Logger:  log.Named("assistant"),
	}
	if strings.TrimSpace(cfg.AI.APIKey) != "" {
		assistantDeps.Completer = assistantsvc.NewChatClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, httpclient.New(cfg.AI.Timeout))
	}
	assistantService := assistantsvc.NewService(assistantDeps, assistantsvc.Config{
		Timeout:        cfg.AI.Timeout,
		CacheTTL:       cfg.AI.SuggestionsTTL,
		RequestsPerSec: cfg.AI.RequestsPerSec,
		Burst:          cfg.AI.Burst,
	})

	matchService := matchsvc.NewService(matchsvc.Dependencies{
		Tx:        txManager,
		Matches:   matchRepo,
		Messages:  messageRepo,
		Suggester: assistantService,
		Events:    publisher,
		Activity:  activityService,
		Metrics:   recorder,
		Logger:    log.Named("matches"),
	}, matchsvc.Config{
		MaxMessageRunes:  cfg.Limits.MaxMessageRunes,
		SuggestionsBelow: cfg.AI.SuggestionsBelow,
	})

	jobService := jobsvc.NewService(jobsvc.Dependencies{
		Tx:       txManager,
		Jobs:     jobRepo,
		Profiles: profileRepo,
		Users:    userRepo,
		Activity: activityService,
		Logger:   log.Named("jobs"),
	})
	profileService := profilesvc.NewService(txManager, profileRepo, userRepo)
	dashboardService := dashboardsvc.NewService(statsRepo)

	var resumeService *resumesvc.Service
	if s3Client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Region:    cfg.S3.Region,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, resume uploads disabled", zap.Error(err))
	} else {
		resumeService = resumesvc.NewService(profileRepo, resumesvc.NewS3Storage(s3Client, cfg.S3.Bucket, cfg.S3.Region), resumesvc.Config{
			URLTTL: cfg.S3.PresignTTL,
		}, log.Named("resumes"))
	}

	checks := map[string]handlers.Check{
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"postgres": func(ctx context.Context) error {
			if pool == nil {
				return errors.New("postgres pool is not configured")
			}
			return pool.Ping(ctx)
		},
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = metrics.Handler(registry)
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, recorder)
	RegisterRoutes(r, Dependencies{
		AuthService:         authService,
		SwipeService:        swipeService,
		MatchService:        matchService,
		NotificationService: notificationService,
		JobService:          jobService,
		ProfileService:      profileService,
		ResumeService:       resumeService,
		AssistantService:    assistantService,
		DashboardService:    dashboardService,
		Stream:              app.hub,
		HealthChecks:        checks,
		MetricsPath:         cfg.Metrics.Path,
		MetricsHandler:      metricsHandler,
		Logger:              log,
	})

	app.httpRouter = r
	app.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return app, nil
}

// publisher picks the event transport. With the inline driver the API turns
// events into notifications itself and pushes them to its own hub; otherwise
// a worker does that and the API relays its pushes from Redis.
func (a *App) publisher(cfg config.Config, client *goredis.Client, store notificationsvc.Store, jobs notificationsvc.JobReader, rec metrics.Recorder) (events.Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Events.Driver)) {
	case "", events.DriverRedis:
		a.fanout = realtime.NewRedisFanout(client, realtime.DefaultChannel, a.logger.Named("fanout"))
		return events.NewRedisPublisher(redrepo.NewStreamRepo(client, 0), cfg.Events.Stream), nil
	case events.DriverNATS:
		conn, err := natsinfra.Connect(natsinfra.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name + "-api",
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       cfg.NATS.Timeout,
		})
		if err != nil {
			return nil, err
		}
		a.natsConn = conn
		js, err := natsinfra.JetStream(conn, natsStream(cfg.NATS))
		if err != nil {
			return nil, err
		}
		a.fanout = realtime.NewRedisFanout(client, realtime.DefaultChannel, a.logger.Named("fanout"))
		return events.NewNATSPublisher(js, cfg.NATS.SubjectPrefix), nil
	case events.DriverInline:
		emitter := notificationsvc.NewEmitter(notificationsvc.EmitterDependencies{
			Store:   store,
			Jobs:    jobs,
			Pusher:  a.hub,
			Metrics: rec,
			Logger:  a.logger.Named("emitter"),
		})
		return events.NewInline(emitter), nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
	}
}

func (a *App) Run(ctx context.Context) error {
	if a.fanout != nil {
		go func() {
			if err := a.fanout.Relay(ctx, a.hub); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("notification relay stopped", zap.Error(err))
			}
		}()
	}

	a.logger.Info("api server started",
		zap.String("addr", a.cfg.HTTP.Addr),
		zap.String("events_driver", a.cfg.Events.Driver),
	)
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			shutdownErr = err
		}
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

func natsStream(cfg config.NATSConfig) natsinfra.StreamConfig {
	return natsinfra.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{events.SubjectFilter(cfg.SubjectPrefix)},
		MaxAge:   cfg.MaxAge,
	}
}
