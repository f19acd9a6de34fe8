package queue

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// PromoRedeemHandler processes decoded promo redemption tasks.
type PromoRedeemHandler interface {
	HandlePromoRedeem(ctx context.Context, p PromoRedeemPayload) error
}

// NewMux routes task types to their handlers, with structured logging and metrics.
func NewMux(logger zerolog.Logger, promo PromoRedeemHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(observe(logger))
	mux.HandleFunc(TypePromoRedeem, func(ctx context.Context, t *asynq.Task) error {
		p, err := DecodePromoRedeem(t)
		if err != nil {
			return err
		}
		return promo.HandlePromoRedeem(ctx, p)
	})
	return mux
}

func observe(logger zerolog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			start := time.Now()
			err := next.ProcessTask(ctx, t)

			status := "ok"
			evt := logger.Info()
			switch {
			case err == nil:
			case errors.Is(err, asynq.SkipRetry):
				status = "dropped"
				evt = logger.Warn().Err(err)
			default:
				status = "retry"
				evt = logger.Error().Err(err)
			}
			if id, ok := asynq.GetTaskID(ctx); ok {
				evt = evt.Str("task_id", id)
			}
			if n, ok := asynq.GetRetryCount(ctx); ok {
				evt = evt.Int("retry", n)
			}
			evt.Str("type", t.Type()).
				Str("status", status).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Msg("task_processed")
			ProcessedTotal.WithLabelValues(t.Type(), status).Inc()
			return err
		})
	}
}
