package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/guna684/book-shop-project-sub001/internal/db"
)

// Querier defines the database access required for analytics operations.
type Querier interface {
	GetPromoSalesRange(ctx context.Context, arg db.GetPromoSalesRangeParams) ([]db.PromoSalesRow, error)
}

// Service provides cached promo performance reports.
type Service struct {
	Q            Querier
	R            redis.Cmdable
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

// CodeStats aggregates the redemptions of one promo code.
type CodeStats struct {
	Code          string          `json:"code"`
	Redemptions   int64           `json:"redemptions"`
	UniqueUsers   int64           `json:"uniqueUsers"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	OrderRevenue  decimal.Decimal `json:"orderRevenue"`
}

// PromoSummary is the promo report for [From, To).
type PromoSummary struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	Redemptions   int64           `json:"redemptions"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	OrderRevenue  decimal.Decimal `json:"orderRevenue"`
	Codes         []CodeStats     `json:"codes"`
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// DefaultWindow returns the range covering the last DefaultRange days up to now.
func (s *Service) DefaultWindow() (time.Time, time.Time) {
	days := s.DefaultRange
	if days <= 0 {
		days = 30
	}
	to := s.now().UTC()
	return to.AddDate(0, 0, -days), to
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// PromoSummary reports redemptions per promo code used within [from, to).
func (s *Service) PromoSummary(ctx context.Context, from, to time.Time) (PromoSummary, error) {
	if s == nil || s.Q == nil {
		return PromoSummary{}, fmt.Errorf("analytics service not configured")
	}
	from, to = from.UTC(), to.UTC()
	key := cacheKey("an", "promos", from.Format(time.RFC3339), to.Format(time.RFC3339))
	var cached PromoSummary
	if s.load(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Q.GetPromoSalesRange(ctx, db.GetPromoSalesRangeParams{From: from, To: to})
	if err != nil {
		return PromoSummary{}, err
	}
	summary := PromoSummary{
		From:          from,
		To:            to,
		TotalDiscount: decimal.Zero,
		OrderRevenue:  decimal.Zero,
		Codes:         make([]CodeStats, 0, len(rows)),
	}
	for _, row := range rows {
		summary.Redemptions += row.Redemptions
		summary.TotalDiscount = summary.TotalDiscount.Add(row.TotalDiscount)
		summary.OrderRevenue = summary.OrderRevenue.Add(row.OrderRevenue)
		summary.Codes = append(summary.Codes, CodeStats{
			Code:          row.Code,
			Redemptions:   row.Redemptions,
			UniqueUsers:   row.UniqueUsers,
			TotalDiscount: row.TotalDiscount,
			OrderRevenue:  row.OrderRevenue,
		})
	}
	s.store(ctx, key, summary)
	return summary, nil
}

func (s *Service) load(ctx context.Context, key string, dst any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
