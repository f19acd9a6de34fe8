package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/guna684/book-shop-project-sub001/internal/analytics"
	"github.com/guna684/book-shop-project-sub001/internal/app"
	"github.com/guna684/book-shop-project-sub001/internal/auth"
	"github.com/guna684/book-shop-project-sub001/internal/checkout"
	"github.com/guna684/book-shop-project-sub001/internal/common"
	"github.com/guna684/book-shop-project-sub001/internal/config"
	"github.com/guna684/book-shop-project-sub001/internal/db"
	"github.com/guna684/book-shop-project-sub001/internal/events"
	"github.com/guna684/book-shop-project-sub001/internal/health"
	"github.com/guna684/book-shop-project-sub001/internal/lock"
	"github.com/guna684/book-shop-project-sub001/internal/obs"
	"github.com/guna684/book-shop-project-sub001/internal/order"
	"github.com/guna684/book-shop-project-sub001/internal/promo"
	"github.com/guna684/book-shop-project-sub001/internal/queue"
	"github.com/guna684/book-shop-project-sub001/internal/ratelimit"
	"github.com/guna684/book-shop-project-sub001/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("component", "api").
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api exited")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	// Money fields travel as JSON numbers on the public API.
	decimal.MarshalJSONWithoutQuotes = true

	tracingEnabled := cfg.Obs.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "bookstore-api",
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	resilience.RegisterMetrics(nil)

	if cfg.MigrationsAuto {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	startCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := app.OpenPostgres(startCtx, cfg.DatabaseURL, "bookstore-api")
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := app.OpenRedis(startCtx, cfg.RedisURL, app.RedisOptions{Tracing: tracingEnabled, Metrics: cfg.Obs.MetricsEnabled}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	taskRedis, err := app.TaskRedis(cfg.RedisURL)
	if err != nil {
		return err
	}
	taskClient := asynq.NewClient(taskRedis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	store := db.NewStore(pool)

	notifiers := []events.Notifier{events.LogNotifier{Logger: logger}}
	if len(cfg.KafkaBrokers) > 0 {
		writer := events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error().Err(err).Msg("close kafka writer")
			}
		}()
		notifiers = append(notifiers, events.KafkaNotifier{
			Writer: writer,
			Topics: events.DefaultTopics(),
			Guard:  app.KafkaGuard(logger),
		})
	}
	bus := &events.Bus{Store: store, Notifiers: notifiers}

	promoSvc := &promo.Service{
		Store:   store,
		Cache:   promo.NewCache(redisClient, cfg.PromoCacheTTL),
		Locker:  lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff, MaxWait: cfg.LockTTL},
		LockTTL: cfg.LockTTL,
		Events:  bus,
		Logger:  &logger,
	}
	checkoutSvc := &checkout.Service{
		Store:    store,
		Promos:   promoSvc,
		Pricing:  cfg.Pricing,
		Currency: cfg.CurrencyCode,
		Events:   bus,
		Logger:   &logger,
	}
	orderSvc := &order.Service{
		Store: store,
		Queue: queue.Enqueuer{
			Client:   taskClient,
			Queue:    queue.DefaultQueue,
			MaxRetry: cfg.PromoRedeemRetry,
			Timeout:  30 * time.Second,
		},
		Events: bus,
		Logger: &logger,
	}
	analyticsSvc := &analytics.Service{
		Q:            store,
		R:            redisClient,
		TTL:          cfg.AnalyticsCacheTTL,
		DefaultRange: cfg.AnalyticsDefaultRange,
	}

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	if err != nil {
		return fmt.Errorf("initialise verifier: %w", err)
	}

	onLimitErr := func(err error) {
		logger.Warn().Err(err).Msg("rate limiter unavailable")
	}
	validateLimit, err := ratelimit.ConfigFromRate(cfg.PromoValidateRate, ratelimit.ByClientIP)
	if err != nil {
		return err
	}
	fixed, err := ratelimit.NewFixedWindow(redisClient, "rl:promo-validate")
	if err != nil {
		return err
	}
	checkoutLimit, err := ratelimit.ConfigFromRate(cfg.CheckoutRate, ratelimit.ByUserOrIP)
	if err != nil {
		return err
	}

	handler := newRouter(routerDeps{
		cfg:            cfg,
		logger:         logger,
		tracingEnabled: tracingEnabled,
		authMW:         auth.Middleware{Verifier: verifier, AccessCookie: cfg.AccessCookieName},
		serviceKey:     auth.ServiceKey{Hash: cfg.PaymentServiceKeyHash},
		idem:           common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL},
		validateLimit:  ratelimit.Handler{Limiter: fixed, Config: validateLimit, OnError: onLimitErr},
		checkoutLimit: ratelimit.Handler{
			Limiter: ratelimit.SlidingWindow{Client: redisClient, Prefix: "rl:checkout"},
			Config:  checkoutLimit,
			OnError: onLimitErr,
		},
		health: health.Handler{Probes: []health.Probe{
			health.PostgresProbe(pool, cfg.HealthDBTimeout),
			health.RedisProbe(redisClient, cfg.HealthRedisTimeout),
		}},
		promos:    &promo.Handler{Svc: promoSvc, Logger: &logger},
		checkout:  &checkout.Handler{Svc: checkoutSvc, Logger: &logger},
		orders:    &order.Handler{Svc: orderSvc, Logger: &logger},
		analytics: &analytics.Handler{Svc: analyticsSvc},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		health.SetReady(true)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info().Msg("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
