package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/guna684/book-shop-project-sub001/internal/db"
	"github.com/guna684/book-shop-project-sub001/internal/events"
	"github.com/guna684/book-shop-project-sub001/internal/obs"
	"github.com/guna684/book-shop-project-sub001/internal/pricing"
	"github.com/guna684/book-shop-project-sub001/internal/promo"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrUnauthorized = errors.New("user is required for checkout")
)

// Promos evaluates promo codes against a cart subtotal.
type Promos interface {
	Validate(ctx context.Context, code, userID string, cartTotal decimal.Decimal) (promo.ValidateResult, error)
}

// LineInput is one cart line as submitted by the storefront.
type LineInput struct {
	ProductID string          `json:"productId" validate:"required,max=64"`
	Title     string          `json:"title" validate:"max=256"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity" validate:"gte=1,lte=1000"`
}

type Input struct {
	Items     []LineInput `json:"items" validate:"max=100,dive"`
	PromoCode string      `json:"promoCode" validate:"omitempty,max=64"`
}

// Quote is a priced cart. Promo is set whenever a code was submitted, valid or not.
type Quote struct {
	pricing.Result
	Currency string                `json:"currency"`
	Promo    *promo.ValidateResult `json:"promo,omitempty"`
}

// Placed is the outcome of a successful checkout.
type Placed struct {
	OrderID uuid.UUID      `json:"orderId"`
	Status  db.OrderStatus `json:"status"`
	Quote
}

type Service struct {
	Store    db.TxStore
	Promos   Promos
	Pricing  pricing.Config
	Currency string
	Events   events.Emitter
	Logger   *zerolog.Logger
}

func (in Input) lines() []pricing.CartLine {
	lines := make([]pricing.CartLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, pricing.CartLine{ProductID: it.ProductID, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return lines
}

// Quote prices the cart and evaluates the optional promo code against the items subtotal.
// A promo that does not apply contributes no discount.
func (s *Service) Quote(ctx context.Context, userID string, in Input) (Quote, error) {
	if s == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	lines := in.lines()
	if err := pricing.ValidateLines(lines); err != nil {
		return Quote{}, err
	}
	q := Quote{Currency: s.Currency}
	code := promo.NormalizeCode(in.PromoCode)
	if code == "" || s.Promos == nil {
		q.Result = pricing.Compute(lines, s.Pricing)
		obs.ObserveCheckoutQuote("none")
		return q, nil
	}

	items := pricing.ItemsPrice(lines)
	res, err := s.Promos.Validate(ctx, code, userID, items)
	if err != nil {
		return Quote{}, fmt.Errorf("validate promo: %w", err)
	}
	discount := decimal.Zero
	label := "rejected"
	if res.Valid {
		discount = res.Discount
		label = "applied"
	}
	q.Result = pricing.Assemble(items, pricing.Tax(items, s.Pricing.TaxRate), pricing.Shipping(items, s.Pricing.FreeShippingThreshold, s.Pricing.ShippingFee), discount)
	q.Promo = &res
	obs.ObserveCheckoutQuote(label)
	return q, nil
}

// PlaceOrder prices the cart and persists the order with its lines in one transaction.
// The promo code is stored only when it applied; redemption happens once the order is paid.
func (s *Service) PlaceOrder(ctx context.Context, userID string, in Input) (Placed, error) {
	if s == nil || s.Store == nil {
		return Placed{}, errors.New("checkout service not configured")
	}
	if userID == "" {
		return Placed{}, ErrUnauthorized
	}
	if len(in.Items) == 0 {
		return Placed{}, ErrEmptyCart
	}
	q, err := s.Quote(ctx, userID, in)
	if err != nil {
		return Placed{}, err
	}
	var promoCode pgtype.Text
	if q.Promo != nil && q.Promo.Valid {
		promoCode = pgtype.Text{String: q.Promo.Code, Valid: true}
	}

	var order db.Order
	err = s.Store.InTx(ctx, func(tx db.Querier) error {
		var err error
		order, err = tx.CreateOrder(ctx, db.CreateOrderParams{
			UserID:         userID,
			Status:         db.OrderStatusPendingPayment,
			Currency:       s.Currency,
			ItemsPrice:     q.ItemsPrice,
			TaxPrice:       q.TaxPrice,
			ShippingPrice:  q.ShippingPrice,
			DiscountAmount: q.DiscountAmount,
			TotalPrice:     q.TotalPrice,
			PromoCode:      promoCode,
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for _, it := range in.Items {
			if _, err := tx.CreateOrderItem(ctx, db.CreateOrderItemParams{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Title:     it.Title,
				UnitPrice: it.UnitPrice,
				Quantity:  int32(it.Quantity),
			}); err != nil {
				return fmt.Errorf("create order item %s: %w", it.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Placed{}, err
	}
	obs.ObserveOrderCreated()

	if s.Events != nil {
		payload := map[string]any{
			"orderId":   order.ID,
			"userId":    userID,
			"total":     order.TotalPrice,
			"currency":  order.Currency,
			"promoCode": promoCode.String,
		}
		if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, order.ID, payload); err != nil && s.Logger != nil {
			s.Logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("order.created emit failed")
		}
	}
	return Placed{OrderID: order.ID, Status: order.Status, Quote: q}, nil
}
