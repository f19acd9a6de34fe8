package promo

import (
	"context"
	"errors"

	"github.com/guna684/book-shop-project-sub001/internal/queue"
)

var _ queue.PromoRedeemHandler = (*Service)(nil)

// HandlePromoRedeem runs a queued redemption. Outcomes that retrying cannot change
// are marked permanent so the worker archives the task.
func (s *Service) HandlePromoRedeem(ctx context.Context, p queue.PromoRedeemPayload) error {
	_, err := s.Redeem(ctx, Redemption{
		Code:     p.Code,
		OrderID:  p.OrderID,
		UserID:   p.UserID,
		Discount: p.Discount,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrUsageLimitReached),
		errors.Is(err, ErrPerUserLimitReached),
		errors.Is(err, ErrInvalidPromo):
		return queue.Permanent(err)
	default:
		return err
	}
}
