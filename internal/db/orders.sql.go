package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, user_id, status, currency, items_price, tax_price, shipping_price,
       discount_amount, total_price, promo_code, payment_ref, paid_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Status,
		&i.Currency,
		&i.ItemsPrice,
		&i.TaxPrice,
		&i.ShippingPrice,
		&i.DiscountAmount,
		&i.TotalPrice,
		&i.PromoCode,
		&i.PaymentRef,
		&i.PaidAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (user_id, status, currency, items_price, tax_price, shipping_price,
                    discount_amount, total_price, promo_code)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID         string
	Status         OrderStatus
	Currency       string
	ItemsPrice     decimal.Decimal
	TaxPrice       decimal.Decimal
	ShippingPrice  decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalPrice     decimal.Decimal
	PromoCode      pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.Status,
		arg.Currency,
		arg.ItemsPrice,
		arg.TaxPrice,
		arg.ShippingPrice,
		arg.DiscountAmount,
		arg.TotalPrice,
		arg.PromoCode,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, product_id, title, unit_price, quantity)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, product_id, title, unit_price, quantity`

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	ProductID string
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int32
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.ProductID, arg.Title, arg.UnitPrice, arg.Quantity).Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.Title,
		&i.UnitPrice,
		&i.Quantity,
	)
	return i, err
}

const getOrderByID = `-- name: GetOrderByID :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1`

func (q *Queries) GetOrderByID(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByID, id))
}

const listOrderItems = `-- name: ListOrderItems :many
SELECT id, order_id, product_id, title, unit_price, quantity
FROM order_items
WHERE order_id = $1
ORDER BY product_id`

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Title, &i.UnitPrice, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOrdersByUser = `-- name: ListOrdersByUser :many
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

type ListOrdersByUserParams struct {
	UserID string
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markOrderPaid = `-- name: MarkOrderPaid :one
UPDATE orders
SET status = 'PAID', payment_ref = $2, paid_at = $3, updated_at = now()
WHERE id = $1 AND status = 'PENDING_PAYMENT'
RETURNING ` + orderColumns

type MarkOrderPaidParams struct {
	ID         uuid.UUID
	PaymentRef string
	PaidAt     time.Time
}

func (q *Queries) MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPaid, arg.ID, arg.PaymentRef, arg.PaidAt))
}
