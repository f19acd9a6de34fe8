package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/guna684/book-shop-project-sub001/internal/common"
	"github.com/guna684/book-shop-project-sub001/internal/db"
	"github.com/guna684/book-shop-project-sub001/internal/events"
	"github.com/guna684/book-shop-project-sub001/internal/queue"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("order cannot be marked paid")
	ErrPaymentRef        = errors.New("payment reference is required")
)

// RedemptionQueue schedules promo bookkeeping for paid orders.
type RedemptionQueue interface {
	EnqueuePromoRedemption(ctx context.Context, p queue.PromoRedeemPayload) error
}

// Item is an order line as shown to clients.
type Item struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int32           `json:"quantity"`
}

// View is an order as shown to clients.
type View struct {
	ID             uuid.UUID       `json:"id"`
	UserID         string          `json:"userId"`
	Status         db.OrderStatus  `json:"status"`
	Currency       string          `json:"currency"`
	ItemsPrice     decimal.Decimal `json:"itemsPrice"`
	TaxPrice       decimal.Decimal `json:"taxPrice"`
	ShippingPrice  decimal.Decimal `json:"shippingPrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	PromoCode      *string         `json:"promoCode,omitempty"`
	PaymentRef     *string         `json:"paymentRef,omitempty"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	Items          []Item          `json:"items,omitempty"`
}

func toView(o db.Order, items []db.OrderItem) View {
	v := View{
		ID:             o.ID,
		UserID:         o.UserID,
		Status:         o.Status,
		Currency:       o.Currency,
		ItemsPrice:     o.ItemsPrice,
		TaxPrice:       o.TaxPrice,
		ShippingPrice:  o.ShippingPrice,
		DiscountAmount: o.DiscountAmount,
		TotalPrice:     o.TotalPrice,
		PromoCode:      nullableText(o.PromoCode),
		PaymentRef:     nullableText(o.PaymentRef),
		CreatedAt:      o.CreatedAt,
	}
	if o.PaidAt.Valid {
		paidAt := o.PaidAt.Time
		v.PaidAt = &paidAt
	}
	for _, it := range items {
		v.Items = append(v.Items, Item{ProductID: it.ProductID, Title: it.Title, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return v
}

func nullableText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

type Service struct {
	Store  db.TxStore
	Queue  RedemptionQueue
	Events events.Emitter
	Logger *zerolog.Logger
	Now    func() time.Time
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("order service not configured")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Get loads an order with its lines. Orders of other users are reported as not found unless asAdmin is set.
func (s *Service) Get(ctx context.Context, id uuid.UUID, userID string, asAdmin bool) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	o, err := s.Store.GetOrderByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return View{}, ErrNotFound
		}
		return View{}, fmt.Errorf("load order: %w", err)
	}
	if !asAdmin && o.UserID != userID {
		return View{}, ErrNotFound
	}
	items, err := s.Store.ListOrderItems(ctx, o.ID)
	if err != nil {
		return View{}, fmt.Errorf("load order items: %w", err)
	}
	return toView(o, items), nil
}

// ListByUser pages through a user's orders, newest first. Lines are omitted.
func (s *Service) ListByUser(ctx context.Context, userID string, page common.Pagination) ([]View, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.Store.ListOrdersByUser(ctx, db.ListOrdersByUserParams{
		UserID: userID,
		Limit:  int32(page.PerPage),
		Offset: int32(page.Offset()),
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]View, 0, len(rows))
	for _, o := range rows {
		out = append(out, toView(o, nil))
	}
	return out, nil
}

// MarkPaid moves a pending order to PAID and schedules redemption of its promo code.
// Repeating the call with the same payment reference is a no-op apart from
// re-queueing the redemption, which the queue de-duplicates per order.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return View{}, ErrPaymentRef
	}

	var paid db.Order
	var transitioned bool
	err := s.Store.InTx(ctx, func(q db.Querier) error {
		current, err := q.GetOrderByID(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return ErrNotFound
			}
			return fmt.Errorf("load order: %w", err)
		}
		switch {
		case current.Status == db.OrderStatusPaid && current.PaymentRef.String == paymentRef:
			paid = current
			return nil
		case current.Status != db.OrderStatusPendingPayment:
			return fmt.Errorf("%w: status is %s", ErrInvalidTransition, current.Status)
		}
		paid, err = q.MarkOrderPaid(ctx, db.MarkOrderPaidParams{ID: id, PaymentRef: paymentRef, PaidAt: s.now().UTC()})
		if err != nil {
			if db.IsNoRows(err) {
				return ErrInvalidTransition
			}
			return fmt.Errorf("mark order paid: %w", err)
		}
		transitioned = true
		return nil
	})
	if err != nil {
		return View{}, err
	}

	if transitioned && s.Events != nil {
		payload := map[string]any{
			"orderId":    paid.ID,
			"userId":     paid.UserID,
			"total":      paid.TotalPrice,
			"paymentRef": paymentRef,
		}
		if _, err := s.Events.Emit(ctx, events.TopicOrderPaid, paid.ID, payload); err != nil && s.Logger != nil {
			s.Logger.Warn().Err(err).Str("order_id", paid.ID.String()).Msg("order.paid emit failed")
		}
	}
	if paid.PromoCode.Valid && s.Queue != nil {
		err := s.Queue.EnqueuePromoRedemption(ctx, queue.PromoRedeemPayload{
			OrderID:  paid.ID,
			Code:     paid.PromoCode.String,
			UserID:   paid.UserID,
			Discount: paid.DiscountAmount,
		})
		if err != nil {
			return View{}, fmt.Errorf("order %s paid but promo redemption not queued: %w", paid.ID, err)
		}
	}
	return toView(paid, nil), nil
}
