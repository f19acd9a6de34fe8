package db

import (
	"context"
	"time"
)

const getPromoSalesRange = `-- name: GetPromoSalesRange :many
SELECT p.code,
       COUNT(u.id)                      AS redemptions,
       COUNT(DISTINCT u.user_id)        AS unique_users,
       COALESCE(SUM(u.discount), 0)     AS total_discount,
       COALESCE(SUM(o.total_price), 0)  AS order_revenue
FROM promo_usages u
JOIN promo_codes p ON p.id = u.promo_id
JOIN orders o ON o.id = u.order_id
WHERE u.used_at >= $1 AND u.used_at < $2
GROUP BY p.code
ORDER BY redemptions DESC, p.code`

type GetPromoSalesRangeParams struct {
	From time.Time
	To   time.Time
}

func (q *Queries) GetPromoSalesRange(ctx context.Context, arg GetPromoSalesRangeParams) ([]PromoSalesRow, error) {
	rows, err := q.db.Query(ctx, getPromoSalesRange, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PromoSalesRow{}
	for rows.Next() {
		var i PromoSalesRow
		if err := rows.Scan(&i.Code, &i.Redemptions, &i.UniqueUsers, &i.TotalDiscount, &i.OrderRevenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
