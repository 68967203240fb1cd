// Command billingd serves the billing API, gateway webhooks and the owner
// event stream.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/hostelkit/internal/app"
	"github.com/dmitrymomot/hostelkit/modules/billing"
	"github.com/dmitrymomot/hostelkit/pkg/config"
	"github.com/dmitrymomot/hostelkit/pkg/httpserver"
	"github.com/dmitrymomot/hostelkit/pkg/jwt"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/pkg/ratelimit"
	"github.com/dmitrymomot/hostelkit/pkg/requestid"
)

func main() {
	var cfg app.Config
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("billingd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg app.Config, log *slog.Logger) error {
	tokens, err := jwt.NewFromString(cfg.JWTSecret)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.Close(closeCtx)
	}()

	if err := a.Migrate(ctx); err != nil {
		return err
	}

	limiter, err := ratelimit.NewRedisLimiter(a.Redis, cfg.WebhookRate, time.Minute,
		ratelimit.WithKeyPrefix(cfg.Name+":ratelimit:"))
	if err != nil {
		return err
	}

	mod := billing.New(billing.Deps{
		Catalog:    a.Catalog,
		Engine:     a.Engine,
		Resolver:   a.Resolver,
		Gate:       a.Gate,
		Inventory:  a.Inventory,
		Reconciler: a.Reconciler,
		Hub:        a.Hub,
		Viewer:     app.TokenViewer(tokens),
	},
		billing.WithMetrics(a.Registry),
		billing.WithWebhookRateLimit(limiter),
		billing.WithLogger(log.With(logger.Component("billing"))),
	)

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/healthz", httpserver.LivenessHandler())
	r.Method(http.MethodGet, "/readyz", httpserver.ReadinessHandler(log, a.Checks()...))
	r.Mount(cfg.MountPath, mod.Router())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Hub.Run(ctx) })
	g.Go(func() error { return a.Bridge.Run(ctx) })
	g.Go(func() error { return httpserver.New(cfg.HTTP, log).Run(ctx, r) })

	log.InfoContext(ctx, "billingd started", slog.String("addr", cfg.HTTP.Addr), slog.String("mount", cfg.MountPath))
	return g.Wait()
}
