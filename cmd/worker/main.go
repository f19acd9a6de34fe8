package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/guna684/book-shop-project-sub001/internal/app"
	"github.com/guna684/book-shop-project-sub001/internal/config"
	"github.com/guna684/book-shop-project-sub001/internal/db"
	"github.com/guna684/book-shop-project-sub001/internal/events"
	"github.com/guna684/book-shop-project-sub001/internal/lock"
	"github.com/guna684/book-shop-project-sub001/internal/obs"
	"github.com/guna684/book-shop-project-sub001/internal/promo"
	"github.com/guna684/book-shop-project-sub001/internal/queue"
	"github.com/guna684/book-shop-project-sub001/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("component", "worker").
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker exited")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	resilience.RegisterMetrics(nil)
	queue.RegisterMetrics(nil)

	startCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := app.OpenPostgres(startCtx, cfg.DatabaseURL, "bookstore-worker")
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := app.OpenRedis(startCtx, cfg.RedisURL, app.RedisOptions{Metrics: cfg.Obs.MetricsEnabled}, logger)
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

	promoSvc := &promo.Service{
		Store:   store,
		Cache:   promo.NewCache(redisClient, cfg.PromoCacheTTL),
		Locker:  lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff, MaxWait: cfg.LockTTL},
		LockTTL: cfg.LockTTL,
		Events:  &events.Bus{Store: store, Notifiers: notifiers},
		Logger:  &logger,
	}

	srv := asynq.NewServer(taskRedis, asynq.Config{
		Concurrency:     cfg.WorkerConcurrency,
		Queues:          map[string]int{queue.DefaultQueue: 1},
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          asynqLogger{logger: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Warn().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})
	if err := srv.Start(queue.NewMux(logger, promoSvc)); err != nil {
		return err
	}
	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")

	metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Obs.MetricsEnabled {
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("worker shutting down")
		srv.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
