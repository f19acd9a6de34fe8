package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

type PromoCode struct {
	ID            uuid.UUID           `json:"id"`
	Code          string              `json:"code"`
	DiscountType  string              `json:"discount_type"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	MinCartValue  decimal.Decimal     `json:"min_cart_value"`
	MaxDiscount   decimal.NullDecimal `json:"max_discount"`
	UsageLimit    int32               `json:"usage_limit"`
	UsedCount     int32               `json:"used_count"`
	PerUserLimit  int32               `json:"per_user_limit"`
	ExpiryDate    time.Time           `json:"expiry_date"`
	IsActive      bool                `json:"is_active"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type PromoUsage struct {
	ID       uuid.UUID       `json:"id"`
	PromoID  uuid.UUID       `json:"promo_id"`
	OrderID  uuid.UUID       `json:"order_id"`
	UserID   string          `json:"user_id"`
	Discount decimal.Decimal `json:"discount"`
	UsedAt   time.Time       `json:"used_at"`
}

type Order struct {
	ID             uuid.UUID          `json:"id"`
	UserID         string             `json:"user_id"`
	Status         OrderStatus        `json:"status"`
	Currency       string             `json:"currency"`
	ItemsPrice     decimal.Decimal    `json:"items_price"`
	TaxPrice       decimal.Decimal    `json:"tax_price"`
	ShippingPrice  decimal.Decimal    `json:"shipping_price"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TotalPrice     decimal.Decimal    `json:"total_price"`
	PromoCode      pgtype.Text        `json:"promo_code"`
	PaymentRef     pgtype.Text        `json:"payment_ref"`
	PaidAt         pgtype.Timestamptz `json:"paid_at"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int32           `json:"quantity"`
}

type DomainEvent struct {
	ID          uuid.UUID `json:"id"`
	Topic       string    `json:"topic"`
	AggregateID uuid.UUID `json:"aggregate_id"`
	Payload     []byte    `json:"payload"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type PromoSalesRow struct {
	Code          string          `json:"code"`
	Redemptions   int64           `json:"redemptions"`
	UniqueUsers   int64           `json:"unique_users"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	OrderRevenue  decimal.Decimal `json:"order_revenue"`
}
