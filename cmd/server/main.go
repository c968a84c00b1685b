package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmitrymomot/wealthcrm/migrations"
	notificationsmod "github.com/dmitrymomot/wealthcrm/modules/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/channels"
	"github.com/dmitrymomot/wealthcrm/pkg/directory"
	"github.com/dmitrymomot/wealthcrm/pkg/email"
	"github.com/dmitrymomot/wealthcrm/pkg/httpserver"
	"github.com/dmitrymomot/wealthcrm/pkg/jwt"
	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/pg"
	"github.com/dmitrymomot/wealthcrm/pkg/preferences"
	"github.com/dmitrymomot/wealthcrm/pkg/ratelimiter"
	"github.com/dmitrymomot/wealthcrm/pkg/rbac"
	"github.com/dmitrymomot/wealthcrm/pkg/realtime"
	"github.com/dmitrymomot/wealthcrm/pkg/redis"
	"github.com/dmitrymomot/wealthcrm/pkg/requestid"
	"github.com/dmitrymomot/wealthcrm/svc/dispatch"
	"github.com/dmitrymomot/wealthcrm/svc/jobs"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.app.Env, cfg.app.Service),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.pg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.pg, migrations.FS, log); err != nil {
		return err
	}

	checks := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}}

	store := notifications.NewPostgresStorage(pool)

	var (
		prefStorage preferences.Storage = preferences.NewPostgresStorage(pool)
		limitStore  ratelimiter.Store
	)
	if cfg.app.RedisEnabled {
		client, err := redis.Connect(ctx, cfg.redis)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		prefStorage = preferences.NewCachedStorage(prefStorage, client,
			preferences.WithCacheTTL(cfg.app.CacheTTL),
			preferences.WithCacheLogger(log),
		)
		limitStore = ratelimiter.NewRedisStore(client)
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	} else {
		mem := ratelimiter.NewMemoryStore()
		defer mem.Close()
		limitStore = mem
	}
	prefs := preferences.NewService(prefStorage, preferences.WithServiceLogger(log))

	tokens, err := jwt.NewFromConfig(cfg.jwt)
	if err != nil {
		return err
	}

	registry := realtime.NewRegistry(realtime.JWTAuthenticator(tokens), realtime.WithRegistryLogger(log))
	ws := realtime.NewHandler(registry,
		realtime.WithHandlerLogger(log),
		realtime.WithCheckOrigin(checkOrigin(cfg.app.AllowedOrigins)),
	)

	dir := directory.NewPostgres(pool)

	mailer, err := email.New(cfg.email)
	if err != nil {
		return err
	}

	router := channels.NewRouter().
		Handle(notifications.ChannelEmail, channels.NewEmailSender(mailer, dir, channels.WithEmailLogger(log)))

	var queue channels.Sender = channels.NewNoOpSender(log)
	if cfg.channels.AMQPURL != "" {
		conn, ch, err := channels.DialAMQP(cfg.channels)
		if err != nil {
			return err
		}
		defer closeAMQP(log, conn, ch)

		queue = channels.NewAMQPPublisher(ch,
			channels.WithExchange(cfg.channels.Exchange),
			channels.WithPublishTimeout(cfg.channels.PublishTimeout),
			channels.WithAMQPLogger(log),
		)
	}
	router.Handle(notifications.ChannelPush, queue).Handle(notifications.ChannelSMS, queue)

	dispatcher := dispatch.New(store, prefs, registry,
		dispatch.WithSender(router),
		dispatch.WithDirectory(dir),
		dispatch.WithLocation(cfg.dispatch.Location()),
		dispatch.WithSendTimeout(cfg.dispatch.SendTimeout),
		dispatch.WithLogger(log),
	)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.http.ShutdownTimeout)
		defer cancel()
		if err := dispatcher.Shutdown(sctx); err != nil {
			log.LogAttrs(sctx, slog.LevelWarn, "pending deliveries abandoned", logger.Error(err))
		}
	}()

	scheduler, err := newScheduler(cfg.jobs, log, store, prefStorage, jobs.NewEmailDigestComposer(mailer, dir))
	if err != nil {
		return err
	}
	if cfg.jobs.Enabled {
		scheduler.Start(ctx)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.http.ShutdownTimeout)
			defer cancel()
			if err := scheduler.Stop(sctx); err != nil {
				log.LogAttrs(sctx, slog.LevelWarn, "scheduler stop timed out", logger.Error(err))
			}
		}()
	}

	roles := rbac.DefaultSource()
	if cfg.app.RolesFile != "" {
		roles = rbac.FileSource(cfg.app.RolesFile)
	}
	authz, err := rbac.NewAuthorizer(ctx, roles)
	if err != nil {
		return err
	}

	moduleOpts := []notificationsmod.Option{
		notificationsmod.WithLogger(log),
		notificationsmod.WithWebsocket(ws),
		notificationsmod.WithAuthorizer(authz),
	}
	if cfg.limits.Enabled {
		bucket, err := ratelimiter.NewBucket(limitStore, cfg.limits)
		if err != nil {
			return err
		}
		moduleOpts = append(moduleOpts, notificationsmod.WithRateLimiter(bucket))
	}
	module := notificationsmod.New(dispatcher, prefs, tokens, moduleOpts...)

	r := chi.NewRouter()
	r.Use(requestid.Middleware, middleware.Recoverer)
	r.Get("/health/live", httpserver.HealthCheckHandler(log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(log, checks...))
	r.Mount("/notifications", module.Router())

	server := httpserver.NewFromConfig(cfg.http,
		httpserver.WithLogger(log),
		httpserver.WithShutdownHook(registry.Reset),
	)
	return server.Run(ctx, r)
}

func newScheduler(cfg jobs.Config, log *slog.Logger, store *notifications.PostgresStorage, subs jobs.DigestSubscribers, composer jobs.DigestComposer) (*jobs.Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := jobs.NewScheduler(jobs.WithLocation(loc), jobs.WithSchedulerLogger(log))
	cleanup := jobs.NewCleanup(store, jobs.WithCleanupLogger(log))
	digest := jobs.NewDigestJob(subs, store, composer, jobs.WithDigestLogger(log))

	if err := jobs.Register(s, cfg, cleanup, digest); err != nil {
		return nil, err
	}
	return s, nil
}

// checkOrigin allows any origin when the list is empty.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}

func closeAMQP(log *slog.Logger, conn *amqp.Connection, ch *amqp.Channel) {
	err := errors.Join(ch.Close(), conn.Close())
	if err != nil {
		log.LogAttrs(context.Background(), slog.LevelWarn, "failed to close amqp connection", logger.Error(err))
	}
}
