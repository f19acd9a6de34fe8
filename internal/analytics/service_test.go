package analytics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/guna684/book-shop-project-sub001/internal/analytics"
	"github.com/guna684/book-shop-project-sub001/internal/db"
	"github.com/guna684/book-shop-project-sub001/internal/db/dbtest"
)

type stubQueries struct {
	calls int
	last  db.GetPromoSalesRangeParams
	err   error
}

func (s *stubQueries) GetPromoSalesRange(ctx context.Context, arg db.GetPromoSalesRangeParams) ([]db.PromoSalesRow, error) {
	s.calls++
	s.last = arg
	if s.err != nil {
		return nil, s.err
	}
	return []db.PromoSalesRow{
		{Code: "SAVE10", Redemptions: 3, UniqueUsers: 2, TotalDiscount: decimal.RequireFromString("150.50"), OrderRevenue: decimal.RequireFromString("2000")},
		{Code: "FLAT50", Redemptions: 1, UniqueUsers: 1, TotalDiscount: decimal.RequireFromString("50"), OrderRevenue: decimal.RequireFromString("450")},
	}, nil
}

func TestPromoSummaryCached(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	queries := &stubQueries{}
	svc := &analytics.Service{Q: queries, R: rdb, TTL: time.Minute, DefaultRange: 30}
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	first, err := svc.PromoSummary(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, int64(4), first.Redemptions)
	require.True(t, first.TotalDiscount.Equal(decimal.RequireFromString("200.5")))
	require.True(t, first.OrderRevenue.Equal(decimal.RequireFromString("2450")))
	require.Len(t, first.Codes, 2)

	second, err := svc.PromoSummary(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, 1, queries.calls)
	require.Equal(t, first.Redemptions, second.Redemptions)
	require.True(t, second.TotalDiscount.Equal(first.TotalDiscount))
}

func TestPromoSummaryError(t *testing.T) {
	svc := &analytics.Service{Q: &stubQueries{err: errors.New("boom")}}
	_, err := svc.PromoSummary(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
}

func TestPromoSummaryHalfOpenRange(t *testing.T) {
	store := dbtest.NewMemory()
	p := store.SeedPromo(db.PromoCode{Code: "SAVE10", DiscountType: "PERCENT", DiscountValue: decimal.NewFromInt(10), UsageLimit: 10, PerUserLimit: 5, IsActive: true})
	ctx := context.Background()
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{from, to.Add(-time.Nanosecond), to} {
		orderID := uuid.New()
		_, err := store.InsertPromoUsage(ctx, db.InsertPromoUsageParams{PromoID: p.ID, OrderID: orderID, UserID: "user-1", Discount: decimal.NewFromInt(5)})
		require.NoError(t, err)
		store.SetUsageTime(orderID, at)
	}

	svc := &analytics.Service{Q: store}
	summary, err := svc.PromoSummary(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, int64(2), summary.Redemptions)
	require.Equal(t, int64(1), summary.Codes[0].UniqueUsers)
}

func TestPromosHandlerParsesDates(t *testing.T) {
	queries := &stubQueries{}
	now := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	h := &analytics.Handler{Svc: &analytics.Service{Q: queries, DefaultRange: 7, Now: func() time.Time { return now }}}

	rec := httptest.NewRecorder()
	h.Promos(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics/promos?from=2026-06-01&to=2026-06-30", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), queries.last.From)
	require.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), queries.last.To)

	rec = httptest.NewRecorder()
	h.Promos(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics/promos", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, now.AddDate(0, 0, -7), queries.last.From)
	require.Equal(t, now, queries.last.To)

	rec = httptest.NewRecorder()
	h.Promos(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics/promos?from=2026-06-30&to=2026-06-01", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Promos(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics/promos?from=yesterday&to=2026-06-01", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
