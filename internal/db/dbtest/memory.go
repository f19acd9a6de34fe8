// Package dbtest provides an in-memory db.TxStore for service tests.
package dbtest

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/guna684/book-shop-project-sub001/internal/db"
)

// Memory mimics the Postgres schema closely enough for service tests:
// unique keys raise 23505, missing rows raise pgx.ErrNoRows and InTx
// rolls back every table when the callback fails.
type Memory struct {
	tx     sync.Mutex
	mu     sync.Mutex
	promos map[string]db.PromoCode
	usages []db.PromoUsage
	orders map[uuid.UUID]db.Order
	items  map[uuid.UUID][]db.OrderItem
	events []db.DomainEvent
	clock  time.Time

	// Fail makes the named method return the error once.
	Fail map[string]error
}

var _ db.TxStore = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		promos: map[string]db.PromoCode{},
		orders: map[uuid.UUID]db.Order{},
		items:  map[uuid.UUID][]db.OrderItem{},
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Fail:   map[string]error{},
	}
}

// now returns a strictly increasing timestamp so created_at ordering is deterministic.
func (m *Memory) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *Memory) fail(method string) error {
	if err, ok := m.Fail[method]; ok {
		delete(m.Fail, method)
		return err
	}
	return nil
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

type snapshot struct {
	promos map[string]db.PromoCode
	usages []db.PromoUsage
	orders map[uuid.UUID]db.Order
	items  map[uuid.UUID][]db.OrderItem
	events []db.DomainEvent
}

// InTx runs fn against the store and restores the previous state when fn fails.
// Transactions are serialized so a rollback never discards another caller's commit.
func (m *Memory) InTx(_ context.Context, fn func(db.Querier) error) error {
	m.tx.Lock()
	defer m.tx.Unlock()
	m.mu.Lock()
	snap := snapshot{
		promos: maps.Clone(m.promos),
		usages: slices.Clone(m.usages),
		orders: maps.Clone(m.orders),
		items:  maps.Clone(m.items),
		events: slices.Clone(m.events),
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.promos, m.usages, m.orders, m.items, m.events = snap.promos, snap.usages, snap.orders, snap.items, snap.events
		m.mu.Unlock()
		return err
	}
	return nil
}

// SeedPromo stores p as is, filling id and timestamps when empty.
func (m *Memory) SeedPromo(p db.PromoCode) db.PromoCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
		p.UpdatedAt = p.CreatedAt
	}
	m.promos[p.Code] = p
	return p
}

// Promo returns the stored row for code.
func (m *Memory) Promo(code string) (db.PromoCode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promos[code]
	return p, ok
}

// Usages returns a copy of the promo usage ledger.
func (m *Memory) Usages() []db.PromoUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.usages)
}

// Events returns a copy of persisted domain events.
func (m *Memory) Events() []db.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

// Orders returns every stored order.
func (m *Memory) Orders() []db.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(maps.Values(m.orders))
}

func (m *Memory) CountPromoUsageByUser(_ context.Context, arg db.CountPromoUsageByUserParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CountPromoUsageByUser"); err != nil {
		return 0, err
	}
	var n int64
	for _, u := range m.usages {
		if u.PromoID == arg.PromoID && u.UserID == arg.UserID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateOrder(_ context.Context, arg db.CreateOrderParams) (db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateOrder"); err != nil {
		return db.Order{}, err
	}
	now := m.now()
	o := db.Order{
		ID:             uuid.New(),
		UserID:         arg.UserID,
		Status:         arg.Status,
		Currency:       arg.Currency,
		ItemsPrice:     arg.ItemsPrice,
		TaxPrice:       arg.TaxPrice,
		ShippingPrice:  arg.ShippingPrice,
		DiscountAmount: arg.DiscountAmount,
		TotalPrice:     arg.TotalPrice,
		PromoCode:      arg.PromoCode,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *Memory) CreateOrderItem(_ context.Context, arg db.CreateOrderItemParams) (db.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateOrderItem"); err != nil {
		return db.OrderItem{}, err
	}
	if _, ok := m.orders[arg.OrderID]; !ok {
		return db.OrderItem{}, &pgconn.PgError{Code: "23503", ConstraintName: "order_items_order_id_fkey"}
	}
	it := db.OrderItem{
		ID:        uuid.New(),
		OrderID:   arg.OrderID,
		ProductID: arg.ProductID,
		Title:     arg.Title,
		UnitPrice: arg.UnitPrice,
		Quantity:  arg.Quantity,
	}
	m.items[arg.OrderID] = append(slices.Clone(m.items[arg.OrderID]), it)
	return it, nil
}

func (m *Memory) CreatePromoCode(_ context.Context, arg db.CreatePromoCodeParams) (db.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreatePromoCode"); err != nil {
		return db.PromoCode{}, err
	}
	if _, exists := m.promos[arg.Code]; exists {
		return db.PromoCode{}, uniqueViolation("promo_codes_code_key")
	}
	now := m.now()
	p := db.PromoCode{
		ID:            uuid.New(),
		Code:          arg.Code,
		DiscountType:  arg.DiscountType,
		DiscountValue: arg.DiscountValue,
		MinCartValue:  arg.MinCartValue,
		MaxDiscount:   arg.MaxDiscount,
		UsageLimit:    arg.UsageLimit,
		PerUserLimit:  arg.PerUserLimit,
		ExpiryDate:    arg.ExpiryDate,
		IsActive:      arg.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.promos[p.Code] = p
	return p, nil
}

func (m *Memory) DeactivatePromoCode(_ context.Context, code string) (db.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promos[code]
	if !ok {
		return db.PromoCode{}, pgx.ErrNoRows
	}
	p.IsActive = false
	p.UpdatedAt = m.now()
	m.promos[code] = p
	return p, nil
}

func (m *Memory) GetOrderByID(_ context.Context, id uuid.UUID) (db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetOrderByID"); err != nil {
		return db.Order{}, err
	}
	o, ok := m.orders[id]
	if !ok {
		return db.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *Memory) GetPromoCodeByCode(_ context.Context, code string) (db.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetPromoCodeByCode"); err != nil {
		return db.PromoCode{}, err
	}
	p, ok := m.promos[code]
	if !ok {
		return db.PromoCode{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *Memory) GetPromoCodeByCodeForUpdate(ctx context.Context, code string) (db.PromoCode, error) {
	return m.GetPromoCodeByCode(ctx, code)
}

func (m *Memory) GetPromoSalesRange(_ context.Context, arg db.GetPromoSalesRangeParams) ([]db.PromoSalesRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetPromoSalesRange"); err != nil {
		return nil, err
	}
	codes := map[uuid.UUID]string{}
	for _, p := range m.promos {
		codes[p.ID] = p.Code
	}
	rows := map[string]*db.PromoSalesRow{}
	users := map[string]map[string]struct{}{}
	for _, u := range m.usages {
		if u.UsedAt.Before(arg.From) || !u.UsedAt.Before(arg.To) {
			continue
		}
		code := codes[u.PromoID]
		row, ok := rows[code]
		if !ok {
			row = &db.PromoSalesRow{Code: code, TotalDiscount: decimal.Zero, OrderRevenue: decimal.Zero}
			rows[code] = row
			users[code] = map[string]struct{}{}
		}
		row.Redemptions++
		users[code][u.UserID] = struct{}{}
		row.TotalDiscount = row.TotalDiscount.Add(u.Discount)
		row.OrderRevenue = row.OrderRevenue.Add(m.orders[u.OrderID].TotalPrice)
	}
	out := make([]db.PromoSalesRow, 0, len(rows))
	for code, row := range rows {
		row.UniqueUsers = int64(len(users[code]))
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Redemptions != out[j].Redemptions {
			return out[i].Redemptions > out[j].Redemptions
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (m *Memory) GetPromoUsageByOrder(_ context.Context, arg db.GetPromoUsageByOrderParams) (db.PromoUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.usages {
		if u.PromoID == arg.PromoID && u.OrderID == arg.OrderID {
			return u, nil
		}
	}
	return db.PromoUsage{}, pgx.ErrNoRows
}

func (m *Memory) IncrementPromoUsedCount(_ context.Context, id uuid.UUID) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("IncrementPromoUsedCount"); err != nil {
		return 0, err
	}
	for code, p := range m.promos {
		if p.ID != id {
			continue
		}
		if p.UsedCount >= p.UsageLimit {
			return 0, pgx.ErrNoRows
		}
		p.UsedCount++
		p.UpdatedAt = m.now()
		m.promos[code] = p
		return p.UsedCount, nil
	}
	return 0, pgx.ErrNoRows
}

func (m *Memory) InsertDomainEvent(_ context.Context, arg db.InsertDomainEventParams) (db.DomainEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertDomainEvent"); err != nil {
		return db.DomainEvent{}, err
	}
	ev := db.DomainEvent{
		ID:          uuid.New(),
		Topic:       arg.Topic,
		AggregateID: arg.AggregateID,
		Payload:     slices.Clone(arg.Payload),
		OccurredAt:  m.now(),
	}
	m.events = append(m.events, ev)
	return ev, nil
}

func (m *Memory) InsertPromoUsage(_ context.Context, arg db.InsertPromoUsageParams) (db.PromoUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertPromoUsage"); err != nil {
		return db.PromoUsage{}, err
	}
	for _, u := range m.usages {
		if u.PromoID == arg.PromoID && u.OrderID == arg.OrderID {
			return db.PromoUsage{}, uniqueViolation("promo_usages_promo_id_order_id_key")
		}
	}
	u := db.PromoUsage{
		ID:       uuid.New(),
		PromoID:  arg.PromoID,
		OrderID:  arg.OrderID,
		UserID:   arg.UserID,
		Discount: arg.Discount,
		UsedAt:   m.now(),
	}
	m.usages = append(m.usages, u)
	return u, nil
}

// SetUsageTime rewrites used_at for every usage of orderID.
func (m *Memory) SetUsageTime(orderID uuid.UUID, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.usages {
		if m.usages[i].OrderID == orderID {
			m.usages[i].UsedAt = at
		}
	}
}

func (m *Memory) ListOrderItems(_ context.Context, orderID uuid.UUID) ([]db.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := slices.Clone(m.items[orderID])
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	if items == nil {
		items = []db.OrderItem{}
	}
	return items, nil
}

func (m *Memory) ListOrdersByUser(_ context.Context, arg db.ListOrdersByUserParams) ([]db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []db.Order
	for _, o := range m.orders {
		if o.UserID == arg.UserID {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return page(orders, arg.Limit, arg.Offset), nil
}

func (m *Memory) ListPromoCodes(_ context.Context, arg db.ListPromoCodesParams) ([]db.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	promos := slices.Collect(maps.Values(m.promos))
	sort.Slice(promos, func(i, j int) bool { return promos[i].CreatedAt.After(promos[j].CreatedAt) })
	return page(promos, arg.Limit, arg.Offset), nil
}

func page[T any](rows []T, limit, offset int32) []T {
	start := min(int(offset), len(rows))
	end := len(rows)
	if limit > 0 {
		end = min(start+int(limit), len(rows))
	}
	out := slices.Clone(rows[start:end])
	if out == nil {
		out = []T{}
	}
	return out
}

func (m *Memory) MarkOrderPaid(_ context.Context, arg db.MarkOrderPaidParams) (db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkOrderPaid"); err != nil {
		return db.Order{}, err
	}
	o, ok := m.orders[arg.ID]
	if !ok || o.Status != db.OrderStatusPendingPayment {
		return db.Order{}, pgx.ErrNoRows
	}
	o.Status = db.OrderStatusPaid
	o.PaymentRef = pgtype.Text{String: arg.PaymentRef, Valid: true}
	o.PaidAt = pgtype.Timestamptz{Time: arg.PaidAt, Valid: true}
	o.UpdatedAt = m.now()
	m.orders[arg.ID] = o
	return o, nil
}

func (m *Memory) UpdatePromoCode(_ context.Context, arg db.UpdatePromoCodeParams) (db.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdatePromoCode"); err != nil {
		return db.PromoCode{}, err
	}
	p, ok := m.promos[arg.Code]
	if !ok {
		return db.PromoCode{}, pgx.ErrNoRows
	}
	if arg.UsageLimit < p.UsedCount {
		return db.PromoCode{}, &pgconn.PgError{Code: "23514", ConstraintName: "promo_codes_usage_bound"}
	}
	p.DiscountType = arg.DiscountType
	p.DiscountValue = arg.DiscountValue
	p.MinCartValue = arg.MinCartValue
	p.MaxDiscount = arg.MaxDiscount
	p.UsageLimit = arg.UsageLimit
	p.PerUserLimit = arg.PerUserLimit
	p.ExpiryDate = arg.ExpiryDate
	p.IsActive = arg.IsActive
	p.UpdatedAt = m.now()
	m.promos[arg.Code] = p
	return p, nil
}
