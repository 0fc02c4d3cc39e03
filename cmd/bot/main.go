package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"internbot/internal/app"
	"internbot/internal/bot"
	"internbot/internal/config"
	"internbot/internal/database"
	"internbot/internal/events"
	"internbot/internal/i18n"
	"internbot/internal/metrics"
	"internbot/internal/notify"
	"internbot/internal/observability"
	"internbot/internal/ratelimit"
	"internbot/internal/repository/sqlstore"
	"internbot/internal/server"
	"internbot/internal/session"
	"internbot/internal/telegram"
)

// cache holds the optional redis client; client is nil when redis is off
// or unreachable.
type cache struct {
	client *redis.Client
}

type stores struct {
	tx           *sqlstore.Transactor
	actors       *sqlstore.ActorRepository
	students     *sqlstore.StudentRepository
	employers    *sqlstore.EmployerRepository
	postings     *sqlstore.PostingRepository
	applications *sqlstore.ApplicationRepository
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.LogLevel)
}

func newTracing(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) error {
	shutdown, err := observability.InitTracer(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
		if err := shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
		return nil
	}})
	return nil
}

func newDB(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DatabaseURL,
		Path:            cfg.DBPath,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdle:     cfg.DBConnMaxIdle,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database ready", zap.String("driver", cfg.DBDriver))
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		return db.Close()
	}})
	return db, nil
}

func newStores(db *sql.DB) *stores {
	return &stores{
		tx:           sqlstore.NewTransactor(db),
		actors:       sqlstore.NewActorRepository(db),
		students:     sqlstore.NewStudentRepository(db),
		employers:    sqlstore.NewEmployerRepository(db),
		postings:     sqlstore.NewPostingRepository(db),
		applications: sqlstore.NewApplicationRepository(db),
	}
}

func newCache(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) cache {
	if cfg.RedisURL == "" {
		return cache{}
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("redis url parse failed", zap.Error(err))
		return cache{}
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis ping failed, using in-memory sessions and limiter", zap.Error(err))
		_ = client.Close()
		return cache{}
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		return client.Close()
	}})
	return cache{client: client}
}

func newSessionStore(cfg *config.Config, c cache) session.Store {
	if c.client != nil {
		return session.NewRedisStore(c.client, cfg.SessionTTL)
	}
	return session.NewMemoryStore(cfg.SessionTTL)
}

func newLimiter(cfg *config.Config, c cache) ratelimit.Limiter {
	if c.client != nil {
		return ratelimit.New(c.client, cfg.TelegramInboundRateLimit, time.Minute, "telegram:inbound")
	}
	return ratelimit.New(nil, cfg.TelegramInboundRateLimit, time.Minute, "telegram:inbound")
}

func newPublisher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) events.Publisher {
	if cfg.NATSURL == "" {
		return events.NoopPublisher{}
	}
	publisher, err := events.Connect(cfg.NATSURL, cfg.NATSConnTimeout, logger)
	if err != nil {
		logger.Error("nats unavailable, domain events disabled", zap.Error(err))
		return events.NoopPublisher{}
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		publisher.Close()
		return nil
	}})
	return publisher
}

func newTelegramClient(cfg *config.Config) *telegram.Client {
	timeout := cfg.TelegramPollingTimeout + 5*time.Second
	if timeout < cfg.TelegramTimeout {
		timeout = cfg.TelegramTimeout
	}
	return telegram.NewClient(cfg.BotToken, &http.Client{Timeout: timeout})
}

func newNotifier(lc fx.Lifecycle, cfg *config.Config, client *telegram.Client, logger *zap.Logger, collector *metrics.Collector) *notify.Notifier {
	n := notify.New(client, logger, collector, notify.Config{
		Timeout:    cfg.NotifyTimeout,
		RetryDelay: cfg.NotifyRetryDelay,
	})
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
		if err := n.Wait(ctx); err != nil {
			logger.Warn("pending notifications abandoned", zap.Error(err))
		}
		return nil
	}})
	return n
}

func newProfileService(cfg *config.Config, s *stores) *app.ProfileService {
	return app.NewProfileService(s.actors, s.students, s.employers, s.tx, cfg.AdminIDs)
}

func newPostingService(s *stores, publisher events.Publisher, logger *zap.Logger) *app.PostingService {
	return app.NewPostingService(s.postings, s.employers, s.applications, s.tx, publisher, logger)
}

func newApplicationService(s *stores, n *notify.Notifier, texts *i18n.Catalog, publisher events.Publisher, collector *metrics.Collector, logger *zap.Logger) *app.ApplicationService {
	return app.NewApplicationService(app.ApplicationDeps{
		Repo:      s.applications,
		Postings:  s.postings,
		Students:  s.students,
		Employers: s.employers,
		Actors:    s.actors,
		Tx:        s.tx,
		Notifier:  n,
		Texts:     texts,
		Publisher: publisher,
		Metrics:   collector,
		Logger:    logger,
	})
}

func newRouter(
	client *telegram.Client,
	sessions session.Store,
	profiles *app.ProfileService,
	postings *app.PostingService,
	applications *app.ApplicationService,
	texts *i18n.Catalog,
	limiter ratelimit.Limiter,
	collector *metrics.Collector,
	logger *zap.Logger,
) *bot.Router {
	return bot.NewRouter(bot.Deps{
		Sender:       client,
		Sessions:     sessions,
		Profiles:     profiles,
		Postings:     postings,
		Applications: applications,
		Texts:        texts,
		Limiter:      limiter,
		Metrics:      collector,
		Logger:       logger,
	})
}

func newAdapter(client *telegram.Client, router *bot.Router, logger *zap.Logger) *telegram.Adapter {
	return telegram.NewAdapter(client, router, logger)
}

func newServer(cfg *config.Config, adapter *telegram.Adapter, collector *metrics.Collector, logger *zap.Logger) *server.Server {
	var webhook http.Handler
	if !cfg.TelegramPollingEnabled {
		webhook = telegram.NewWebhookHandler(adapter, cfg.WebhookSecret, logger)
	}
	return server.New(server.Config{Port: cfg.Port}, webhook, collector, logger)
}

// run starts the HTTP surface and the update source: the long-poll loop,
// or a registered webhook.
func run(lc fx.Lifecycle, cfg *config.Config, srv *server.Server, client *telegram.Client, adapter *telegram.Adapter, logger *zap.Logger) {
	pollCtx, stopPolling := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			srv.Start()
			if cfg.TelegramPollingEnabled {
				poller := telegram.NewPoller(client, adapter, logger, telegram.PollerConfig{
					Timeout:     cfg.TelegramPollingTimeout,
					Interval:    cfg.TelegramPollingInterval,
					Limit:       cfg.TelegramPollingLimit,
					DropPending: cfg.TelegramPollingDropPending,
					Workers:     cfg.PollWorkers,
				})
				go func() {
					defer close(done)
					poller.Run(pollCtx)
				}()
				logger.Info("telegram polling enabled", zap.Duration("timeout", cfg.TelegramPollingTimeout), zap.Int("workers", cfg.PollWorkers))
				return nil
			}
			close(done)
			if cfg.TelegramWebhookURL == "" {
				logger.Warn("telegram webhook url missing; bot will not receive updates")
				return nil
			}
			if err := client.SetWebhook(ctx, cfg.TelegramWebhookURL, cfg.WebhookSecret, cfg.TelegramWebhookDropPending); err != nil {
				return err
			}
			logger.Info("telegram webhook configured", zap.String("url", cfg.TelegramWebhookURL))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopPolling()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("http shutdown error", zap.Error(err))
			}
			select {
			case <-done:
			case <-ctx.Done():
			}
			_ = logger.Sync()
			return nil
		},
	})
}

func main() {
	service := fx.New(
		fx.NopLogger,
		fx.Provide(
			config.Load,
			newLogger,
			newDB,
			newStores,
			newCache,
			newSessionStore,
			newLimiter,
			newPublisher,
			i18n.Load,
			metrics.NewCollector,
			newTelegramClient,
			newNotifier,
			newProfileService,
			newPostingService,
			newApplicationService,
			newRouter,
			newAdapter,
			newServer,
		),
		fx.Invoke(newTracing, run),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := service.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := service.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
