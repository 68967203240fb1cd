package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/hostelkit/handler"
	"github.com/dmitrymomot/hostelkit/pkg/clientip"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/pkg/ratelimit"
	"github.com/dmitrymomot/hostelkit/pkg/requestid"
	"github.com/dmitrymomot/hostelkit/svc/entitlement"
	"github.com/dmitrymomot/hostelkit/svc/inventory"
	"github.com/dmitrymomot/hostelkit/svc/notify"
	"github.com/dmitrymomot/hostelkit/svc/payment"
	"github.com/dmitrymomot/hostelkit/svc/plan"
	"github.com/dmitrymomot/hostelkit/svc/quota"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

// Deps are the services the module serves. All are required.
type Deps struct {
	Catalog    *plan.Catalog
	Engine     *subscription.Engine
	Resolver   *entitlement.Resolver
	Gate       *quota.Gate
	Inventory  inventory.Store
	Reconciler *payment.Reconciler
	Hub        *notify.Hub
	Viewer     ViewerFunc
}

// Module is the billing HTTP surface.
type Module struct {
	catalog  *plan.Catalog
	engine   *subscription.Engine
	resolver *entitlement.Resolver
	gate     *quota.Gate
	inv      inventory.Store
	rec      *payment.Reconciler
	hub      *notify.Hub
	viewer   ViewerFunc

	gatherer       prometheus.Gatherer
	webhookMW      []func(http.Handler) http.Handler
	webhookLimiter ratelimit.Limiter
	maxUpload      int64
	errorHandler   handler.ErrorHandler[handler.Context]
	log            *slog.Logger
}

// Option configures a Module.
type Option func(*Module)

// WithMetrics serves g at /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(m *Module) { m.gatherer = g }
}

// WithWebhookMiddleware wraps the gateway webhook routes, for example with a
// rate limiter.
func WithWebhookMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(m *Module) { m.webhookMW = append(m.webhookMW, mw...) }
}

// WithWebhookRateLimit throttles webhook deliveries per client address and
// gateway.
func WithWebhookRateLimit(l ratelimit.Limiter) Option {
	return func(m *Module) { m.webhookLimiter = l }
}

// WithMaxUploadBytes caps request bodies of the bulk room upload.
func WithMaxUploadBytes(n int64) Option {
	return func(m *Module) {
		if n > 0 {
			m.maxUpload = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.log = l
		}
	}
}

// New creates the module. It panics when a dependency is missing.
func New(deps Deps, opts ...Option) *Module {
	switch {
	case deps.Catalog == nil:
		panic("billing: catalog is required")
	case deps.Engine == nil:
		panic("billing: engine is required")
	case deps.Resolver == nil:
		panic("billing: resolver is required")
	case deps.Gate == nil:
		panic("billing: quota gate is required")
	case deps.Inventory == nil:
		panic("billing: inventory store is required")
	case deps.Reconciler == nil:
		panic("billing: reconciler is required")
	case deps.Hub == nil:
		panic("billing: hub is required")
	case deps.Viewer == nil:
		panic("billing: viewer func is required")
	}

	m := &Module{
		catalog:   deps.Catalog,
		engine:    deps.Engine,
		resolver:  deps.Resolver,
		gate:      deps.Gate,
		inv:       deps.Inventory,
		rec:       deps.Reconciler,
		hub:       deps.Hub,
		viewer:    deps.Viewer,
		maxUpload: 5 << 20,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.errorHandler = handler.NewErrorHandler(m.log.With(logger.Component("billing.http")))
	if m.webhookLimiter != nil {
		m.webhookMW = append([]func(http.Handler) http.Handler{
			ratelimit.Middleware(m.webhookLimiter,
				ratelimit.Composite(ratelimit.ClientIP, ratelimit.Path),
				ratelimit.WithOnLimitReached(m.rateLimited),
				ratelimit.WithLogger(m.log),
			),
		}, m.webhookMW...)
	}
	return m
}

// Router returns the module routes. Mount it under /billing.
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(
		requestid.New(payment.RazorpayEventIDHeader),
		clientip.Middleware,
		middleware.Recoverer,
	)

	r.Group(func(r chi.Router) {
		r.Use(m.webhookMW...)
		for _, gateway := range m.rec.Gateways() {
			r.Method(http.MethodPost, "/webhooks/"+gateway, m.rec.Handler(gateway))
		}
	})
	if m.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(m.authenticate)

		r.Get("/plans", wrap(m, m.listPlans))
		r.Post("/plans/{planID}/cost", wrap(m, m.planCost, pathBinder, jsonBinder))
		r.Post("/plans/{planID}/upgrade-requests", wrap(m, m.requestUpgrade, pathBinder, jsonBinder))

		r.Get("/subscription", wrap(m, m.currentSubscription))
		r.Get("/subscription/history", wrap(m, m.subscriptionHistory))
		r.Get("/subscription/usage", wrap(m, m.subscriptionUsage))
		r.Post("/subscription", wrap(m, m.subscribe, jsonBinder))
		r.Post("/subscription/trial", wrap(m, m.activateTrial))
		r.Post("/subscription/change", wrap(m, m.changeSubscription, jsonBinder))
		r.Post("/subscription/cancel", wrap(m, m.cancelSubscription, jsonBinder))
		r.Put("/subscription/auto-renew", wrap(m, m.setAutoRenew, jsonBinder))

		r.Get("/properties", wrap(m, m.listProperties))
		r.Post("/properties", wrap(m, m.createProperty, jsonBinder))
		r.Post("/properties/{propertyID}/rooms", wrap(m, m.createRoom, pathBinder, jsonBinder))
		r.With(m.limitUpload).Post("/properties/{propertyID}/rooms/bulk",
			wrap(m, m.bulkCreateRooms, pathBinder, jsonBinder, formBinder))

		r.Method(http.MethodGet, "/events", notify.StreamHandler(m.hub, m.streamUser, m.log))

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/plans", wrap(m, m.createPlan, jsonBinder))
			r.Put("/plans/{planID}", wrap(m, m.updatePlan, pathBinder, jsonBinder))
			r.Delete("/plans/{planID}", wrap(m, m.retirePlan, pathBinder))
			r.Post("/plans/{planID}/upgrade-requests/{requestID}/respond", wrap(m, m.respondToUpgrade, pathBinder, jsonBinder))
			r.Post("/subscriptions/{subscriptionID}/extend", wrap(m, m.extendSubscription, pathBinder, jsonBinder))
		})
	})

	return r
}

func (m *Module) rateLimited(w http.ResponseWriter, r *http.Request, _ ratelimit.Result) {
	if err := handler.JSONError(ErrRateLimited).Render(w, r); err != nil {
		m.log.ErrorContext(r.Context(), "render rate limit response", logger.Error(err))
	}
}

func (m *Module) limitUpload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, m.maxUpload)
		next.ServeHTTP(w, r)
	})
}
