package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const promoCodeColumns = `id, code, discount_type, discount_value, min_cart_value, max_discount,
       usage_limit, used_count, per_user_limit, expiry_date, is_active, created_at, updated_at`

func scanPromoCode(row interface{ Scan(...any) error }) (PromoCode, error) {
	var i PromoCode
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.DiscountType,
		&i.DiscountValue,
		&i.MinCartValue,
		&i.MaxDiscount,
		&i.UsageLimit,
		&i.UsedCount,
		&i.PerUserLimit,
		&i.ExpiryDate,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPromoCode = `-- name: CreatePromoCode :one
INSERT INTO promo_codes (code, discount_type, discount_value, min_cart_value, max_discount,
                         usage_limit, per_user_limit, expiry_date, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + promoCodeColumns

type CreatePromoCodeParams struct {
	Code          string
	DiscountType  string
	DiscountValue decimal.Decimal
	MinCartValue  decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	UsageLimit    int32
	PerUserLimit  int32
	ExpiryDate    time.Time
	IsActive      bool
}

func (q *Queries) CreatePromoCode(ctx context.Context, arg CreatePromoCodeParams) (PromoCode, error) {
	row := q.db.QueryRow(ctx, createPromoCode,
		arg.Code,
		arg.DiscountType,
		arg.DiscountValue,
		arg.MinCartValue,
		arg.MaxDiscount,
		arg.UsageLimit,
		arg.PerUserLimit,
		arg.ExpiryDate,
		arg.IsActive,
	)
	return scanPromoCode(row)
}

const updatePromoCode = `-- name: UpdatePromoCode :one
UPDATE promo_codes
SET discount_type = $2,
    discount_value = $3,
    min_cart_value = $4,
    max_discount = $5,
    usage_limit = $6,
    per_user_limit = $7,
    expiry_date = $8,
    is_active = $9,
    updated_at = now()
WHERE code = $1
RETURNING ` + promoCodeColumns

type UpdatePromoCodeParams struct {
	Code          string
	DiscountType  string
	DiscountValue decimal.Decimal
	MinCartValue  decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	UsageLimit    int32
	PerUserLimit  int32
	ExpiryDate    time.Time
	IsActive      bool
}

func (q *Queries) UpdatePromoCode(ctx context.Context, arg UpdatePromoCodeParams) (PromoCode, error) {
	row := q.db.QueryRow(ctx, updatePromoCode,
		arg.Code,
		arg.DiscountType,
		arg.DiscountValue,
		arg.MinCartValue,
		arg.MaxDiscount,
		arg.UsageLimit,
		arg.PerUserLimit,
		arg.ExpiryDate,
		arg.IsActive,
	)
	return scanPromoCode(row)
}

const deactivatePromoCode = `-- name: DeactivatePromoCode :one
UPDATE promo_codes SET is_active = FALSE, updated_at = now()
WHERE code = $1
RETURNING ` + promoCodeColumns

func (q *Queries) DeactivatePromoCode(ctx context.Context, code string) (PromoCode, error) {
	return scanPromoCode(q.db.QueryRow(ctx, deactivatePromoCode, code))
}

const getPromoCodeByCode = `-- name: GetPromoCodeByCode :one
SELECT ` + promoCodeColumns + `
FROM promo_codes
WHERE code = $1`

func (q *Queries) GetPromoCodeByCode(ctx context.Context, code string) (PromoCode, error) {
	return scanPromoCode(q.db.QueryRow(ctx, getPromoCodeByCode, code))
}

const getPromoCodeByCodeForUpdate = getPromoCodeByCode + `
FOR UPDATE`

func (q *Queries) GetPromoCodeByCodeForUpdate(ctx context.Context, code string) (PromoCode, error) {
	return scanPromoCode(q.db.QueryRow(ctx, getPromoCodeByCodeForUpdate, code))
}

const listPromoCodes = `-- name: ListPromoCodes :many
SELECT ` + promoCodeColumns + `
FROM promo_codes
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

type ListPromoCodesParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListPromoCodes(ctx context.Context, arg ListPromoCodesParams) ([]PromoCode, error) {
	rows, err := q.db.Query(ctx, listPromoCodes, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PromoCode{}
	for rows.Next() {
		i, err := scanPromoCode(rows)
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

// The guard on used_count makes concurrent redemptions unable to push the counter past usage_limit.
const incrementPromoUsedCount = `-- name: IncrementPromoUsedCount :one
UPDATE promo_codes
SET used_count = used_count + 1, updated_at = now()
WHERE id = $1 AND used_count < usage_limit
RETURNING used_count`

func (q *Queries) IncrementPromoUsedCount(ctx context.Context, id uuid.UUID) (int32, error) {
	var usedCount int32
	err := q.db.QueryRow(ctx, incrementPromoUsedCount, id).Scan(&usedCount)
	return usedCount, err
}

const countPromoUsageByUser = `-- name: CountPromoUsageByUser :one
SELECT COUNT(*) FROM promo_usages
WHERE promo_id = $1 AND user_id = $2`

type CountPromoUsageByUserParams struct {
	PromoID uuid.UUID
	UserID  string
}

func (q *Queries) CountPromoUsageByUser(ctx context.Context, arg CountPromoUsageByUserParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countPromoUsageByUser, arg.PromoID, arg.UserID).Scan(&count)
	return count, err
}

const getPromoUsageByOrder = `-- name: GetPromoUsageByOrder :one
SELECT id, promo_id, order_id, user_id, discount, used_at
FROM promo_usages
WHERE promo_id = $1 AND order_id = $2`

type GetPromoUsageByOrderParams struct {
	PromoID uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) GetPromoUsageByOrder(ctx context.Context, arg GetPromoUsageByOrderParams) (PromoUsage, error) {
	var i PromoUsage
	err := q.db.QueryRow(ctx, getPromoUsageByOrder, arg.PromoID, arg.OrderID).Scan(
		&i.ID,
		&i.PromoID,
		&i.OrderID,
		&i.UserID,
		&i.Discount,
		&i.UsedAt,
	)
	return i, err
}

const insertPromoUsage = `-- name: InsertPromoUsage :one
INSERT INTO promo_usages (promo_id, order_id, user_id, discount)
VALUES ($1, $2, $3, $4)
RETURNING id, promo_id, order_id, user_id, discount, used_at`

type InsertPromoUsageParams struct {
	PromoID  uuid.UUID
	OrderID  uuid.UUID
	UserID   string
	Discount decimal.Decimal
}

func (q *Queries) InsertPromoUsage(ctx context.Context, arg InsertPromoUsageParams) (PromoUsage, error) {
	var i PromoUsage
	err := q.db.QueryRow(ctx, insertPromoUsage, arg.PromoID, arg.OrderID, arg.UserID, arg.Discount).Scan(
		&i.ID,
		&i.PromoID,
		&i.OrderID,
		&i.UserID,
		&i.Discount,
		&i.UsedAt,
	)
	return i, err
}
