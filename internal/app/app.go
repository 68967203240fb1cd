package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/hostelkit/pkg/async"
	"github.com/dmitrymomot/hostelkit/pkg/email"
	"github.com/dmitrymomot/hostelkit/pkg/file"
	"github.com/dmitrymomot/hostelkit/pkg/httpserver"
	"github.com/dmitrymomot/hostelkit/pkg/lock"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/pkg/mongo"
	"github.com/dmitrymomot/hostelkit/pkg/pg"
	"github.com/dmitrymomot/hostelkit/pkg/redis"
	"github.com/dmitrymomot/hostelkit/svc/entitlement"
	"github.com/dmitrymomot/hostelkit/svc/inventory"
	"github.com/dmitrymomot/hostelkit/svc/notify"
	"github.com/dmitrymomot/hostelkit/svc/payment"
	"github.com/dmitrymomot/hostelkit/svc/plan"
	"github.com/dmitrymomot/hostelkit/svc/quota"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

// App holds the connections and services of one process.
type App struct {
	Config Config
	Log    *slog.Logger

	Mongo *mongodriver.Client
	PG    *pgxpool.Pool
	Redis *goredis.Client

	Registry *prometheus.Registry
	Runner   *async.Runner

	Catalog    *plan.Catalog
	Engine     *subscription.Engine
	Inventory  inventory.Store
	Resolver   *entitlement.Resolver
	Gate       *quota.Gate
	Reconciler *payment.Reconciler
	Hub        *notify.Hub
	Bridge     *notify.RedisBridge
}

// New connects to MongoDB, PostgreSQL and Redis and builds the services.
// Close releases the connections.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var err error
	if a.Mongo, err = mongo.Connect(ctx, cfg.Mongo); err != nil {
		return nil, err
	}
	if a.PG, err = pg.Connect(ctx, cfg.PG); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if a.Redis, err = redis.Connect(ctx, cfg.Redis); err != nil {
		a.Close(ctx)
		return nil, err
	}

	if err := a.wire(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg, log := a.Config, a.Log
	db := a.Mongo.Database(cfg.Mongo.Database)

	plans := plan.NewMongoStore(db)
	subs := subscription.NewMongoStore(db)
	if err := plans.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("plan indexes: %w", err)
	}
	if err := subs.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("subscription indexes: %w", err)
	}

	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return fmt.Errorf("parse BILLING_LOCALE: %w", err)
	}

	sender, err := email.New(cfg.Email)
	if err != nil {
		return err
	}
	archive, err := a.archiveStorage(ctx)
	if err != nil {
		return err
	}

	a.Hub = notify.NewHub(notify.WithHubLogger(log.With(logger.Component("notify.hub"))))
	a.Bridge = notify.NewRedisBridge(a.Redis, a.Hub, notify.WithBridgeLogger(log.With(logger.Component("notify.bridge"))))
	publisher := notify.NewMultiPublisher(log,
		a.Bridge,
		notify.NewEmailPublisher(sender, UserDirectory(db, cfg.UsersCollection), log.With(logger.Component("notify.email"))),
	)

	a.Catalog = plan.NewCatalog(plans,
		plan.WithCache(cfg.PlanCacheSize, cfg.PlanCacheTTL),
		plan.WithFormatter(plan.NewFormatter(tag)),
		plan.WithLogger(log.With(logger.Component("plan.catalog"))),
	)
	a.Engine = subscription.NewEngine(subs, a.Catalog, mongo.NewTransactor(a.Mongo),
		subscription.WithLocker(lock.NewRedisLocker(a.Redis, lock.WithKeyPrefix(cfg.Name+":lock:"))),
		subscription.WithPublisher(publisher),
		subscription.WithConfig(cfg.Subscription),
		subscription.WithMetrics(subscription.NewMetrics(a.Registry)),
		subscription.WithLogger(log.With(logger.Component("subscription.engine"))),
	)
	a.Inventory = inventory.NewPGStore(a.PG, cfg.PG.TxRetries)
	a.Resolver = entitlement.NewResolver(a.Engine, a.Inventory,
		entitlement.WithConfig(cfg.Entitlement),
		entitlement.WithLogger(log.With(logger.Component("entitlement"))),
	)
	a.Gate = quota.NewGate(a.Resolver, a.Inventory, a.Engine,
		quota.WithPublisher(publisher),
		quota.WithConfig(cfg.Quota),
		quota.WithMetrics(quota.NewMetrics(a.Registry)),
		quota.WithLogger(log.With(logger.Component("quota.gate"))),
	)

	a.Runner = async.NewRunner(async.WithLogger(log), async.WithTimeout(30*time.Second))
	a.Reconciler = payment.NewReconciler(a.Engine, payment.Gateways(cfg.Payment),
		payment.WithPublisher(publisher),
		payment.WithArchive(payment.NewArchive(archive, cfg.Payment.ArchivePrefix)),
		payment.WithRunner(a.Runner),
		payment.WithMetrics(payment.NewMetrics(a.Registry)),
		payment.WithMaxBodyBytes(cfg.Payment.MaxBodyBytes),
		payment.WithLogger(log.With(logger.Component("payment.webhook"))),
	)
	return nil
}

// archiveStorage keeps raw webhooks in S3 when a bucket is configured and on
// local disk otherwise.
func (a *App) archiveStorage(ctx context.Context) (file.Storage, error) {
	if a.Config.S3.Bucket != "" {
		return file.NewS3Storage(ctx, a.Config.S3)
	}
	return file.NewLocalStorage(a.Config.ArchiveDir)
}

// Migrate applies the inventory schema.
func (a *App) Migrate(ctx context.Context) error {
	return pg.Migrate(ctx, a.PG, inventory.Migrations, "migrations", a.Config.PG, a.Log)
}

// Checks are the readiness probes of the process dependencies.
func (a *App) Checks() []httpserver.Check {
	return []httpserver.Check{
		{Name: "mongo", Fn: mongo.Healthcheck(a.Mongo)},
		{Name: "postgres", Fn: pg.Healthcheck(a.PG)},
		{Name: "redis", Fn: redis.Healthcheck(a.Redis)},
	}
}

// Close waits for pending side effects and closes the connections.
func (a *App) Close(ctx context.Context) {
	if a.Runner != nil {
		if err := a.Runner.Wait(ctx); err != nil {
			a.Log.WarnContext(ctx, "pending side effects abandoned", logger.Error(err))
		}
	}
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.PG != nil {
		a.PG.Close()
	}
	if a.Mongo != nil {
		errs = append(errs, a.Mongo.Disconnect(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.Log.WarnContext(ctx, "closing connections", logger.Error(err))
	}
}
