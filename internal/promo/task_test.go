package promo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/guna684/book-shop-project-sub001/internal/queue"
)

func TestHandlePromoRedeemMarksTerminalErrorsPermanent(t *testing.T) {
	f := newFixture(t)
	seedPercent(f.store, "ONCE", 1, 1)
	ctx := context.Background()

	first := queue.PromoRedeemPayload{OrderID: uuid.New(), Code: "ONCE", UserID: "user-1", Discount: decimal.NewFromInt(10)}
	require.NoError(t, f.svc.HandlePromoRedeem(ctx, first))
	// Redelivery of the same order is a no-op.
	require.NoError(t, f.svc.HandlePromoRedeem(ctx, first))

	err := f.svc.HandlePromoRedeem(ctx, queue.PromoRedeemPayload{OrderID: uuid.New(), Code: "ONCE", UserID: "user-2"})
	require.ErrorIs(t, err, ErrUsageLimitReached)
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = f.svc.HandlePromoRedeem(ctx, queue.PromoRedeemPayload{OrderID: uuid.New(), Code: "GONE", UserID: "user-2"})
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlePromoRedeemRetriesTransientErrors(t *testing.T) {
	f := newFixture(t)
	seedPercent(f.store, "SAVE10", 5, 1)
	f.store.Fail["CountPromoUsageByUser"] = errors.New("connection reset")

	err := f.svc.HandlePromoRedeem(context.Background(), queue.PromoRedeemPayload{OrderID: uuid.New(), Code: "SAVE10", UserID: "user-1"})
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}
