package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/guna684/book-shop-project-sub001/internal/analytics"
	"github.com/guna684/book-shop-project-sub001/internal/auth"
	"github.com/guna684/book-shop-project-sub001/internal/checkout"
	"github.com/guna684/book-shop-project-sub001/internal/common"
	"github.com/guna684/book-shop-project-sub001/internal/config"
	"github.com/guna684/book-shop-project-sub001/internal/health"
	"github.com/guna684/book-shop-project-sub001/internal/obs"
	"github.com/guna684/book-shop-project-sub001/internal/order"
	"github.com/guna684/book-shop-project-sub001/internal/promo"
	"github.com/guna684/book-shop-project-sub001/internal/ratelimit"
	"github.com/guna684/book-shop-project-sub001/internal/security"
)

type routerDeps struct {
	cfg            *config.Config
	logger         zerolog.Logger
	tracingEnabled bool

	authMW        auth.Middleware
	serviceKey    auth.ServiceKey
	idem          common.Idem
	validateLimit ratelimit.Handler
	checkoutLimit ratelimit.Handler
	health        health.Handler

	promos    *promo.Handler
	checkout  *checkout.Handler
	orders    *order.Handler
	analytics *analytics.Handler
}

func newRouter(d routerDeps) http.Handler {
	cfg := d.cfg

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.tracingEnabled {
		r.Use(otelhttp.NewMiddleware("bookstore-api"))
	}
	if cfg.Obs.MetricsEnabled {
		httpMetrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.EnableHSTS}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", common.IdempotencyHeader},
		ExposedHeaders:   []string{"Link", "X-Request-Id", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.PprofEnabled {
		r.Handle(pprofPrefix+"/*", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPass))
	}
	r.Get("/health/live", d.health.Live)
	r.Get("/health/ready", d.health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		v.Use(security.CSRF{AccessCookie: cfg.AccessCookieName}.Middleware)
		v.Use(d.authMW.Authenticate)

		v.With(d.validateLimit.Middleware).Post("/promos/validate", d.promos.Validate)

		v.Route("/checkout", func(c chi.Router) {
			c.Use(d.checkoutLimit.Middleware)
			c.Post("/quote", d.checkout.Quote)
			c.With(d.authMW.RequireAuth, d.idem.Middleware).Post("/", d.checkout.Checkout)
		})

		v.Group(func(authR chi.Router) {
			authR.Use(d.authMW.RequireAuth)
			authR.Get("/orders", d.orders.List)
			authR.Get("/orders/{id}", d.orders.Get)
			authR.Get("/orders/{id}/invoice", d.orders.Invoice)
		})

		v.With(d.serviceKey.Require, d.idem.Middleware).Post("/payments/{id}/confirm", d.orders.MarkPaid)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(d.authMW.RequireAuth)
			admin.Use(d.authMW.RequireRole(auth.RoleAdmin))

			admin.Get("/promos", d.promos.List)
			admin.Post("/promos", d.promos.Create)
			admin.Get("/promos/{code}", d.promos.Get)
			admin.Put("/promos/{code}", d.promos.Update)
			admin.Delete("/promos/{code}", d.promos.Deactivate)

			admin.Get("/orders/{id}", d.orders.Get)
			admin.Post("/orders/{id}/paid", d.orders.MarkPaid)

			admin.Get("/analytics/promos", d.analytics.Promos)
		})
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
