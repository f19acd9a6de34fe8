package db

import (
	"context"

	"github.com/google/uuid"
)

type Querier interface {
	CountPromoUsageByUser(ctx context.Context, arg CountPromoUsageByUserParams) (int64, error)
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error)
	CreatePromoCode(ctx context.Context, arg CreatePromoCodeParams) (PromoCode, error)
	DeactivatePromoCode(ctx context.Context, code string) (PromoCode, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (Order, error)
	GetPromoCodeByCode(ctx context.Context, code string) (PromoCode, error)
	GetPromoCodeByCodeForUpdate(ctx context.Context, code string) (PromoCode, error)
	GetPromoSalesRange(ctx context.Context, arg GetPromoSalesRangeParams) ([]PromoSalesRow, error)
	GetPromoUsageByOrder(ctx context.Context, arg GetPromoUsageByOrderParams) (PromoUsage, error)
	IncrementPromoUsedCount(ctx context.Context, id uuid.UUID) (int32, error)
	InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error)
	InsertPromoUsage(ctx context.Context, arg InsertPromoUsageParams) (PromoUsage, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)
	ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error)
	ListPromoCodes(ctx context.Context, arg ListPromoCodesParams) ([]PromoCode, error)
	MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error)
	UpdatePromoCode(ctx context.Context, arg UpdatePromoCodeParams) (PromoCode, error)
}
