package order

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/guna684/book-shop-project-sub001/internal/common"
	"github.com/guna684/book-shop-project-sub001/internal/db"
	"github.com/guna684/book-shop-project-sub001/internal/db/dbtest"
	"github.com/guna684/book-shop-project-sub001/internal/events"
	"github.com/guna684/book-shop-project-sub001/internal/queue"
)

var paidAt = time.Date(2026, 7, 4, 15, 30, 0, 0, time.UTC)

type stubQueue struct {
	payloads []queue.PromoRedeemPayload
	err      error
}

func (s *stubQueue) EnqueuePromoRedemption(_ context.Context, p queue.PromoRedeemPayload) error {
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, p)
	return nil
}

func newService(t *testing.T) (*Service, *dbtest.Memory, *stubQueue) {
	t.Helper()
	store := dbtest.NewMemory()
	q := &stubQueue{}
	svc := &Service{
		Store:  store,
		Queue:  q,
		Events: &events.Bus{Store: store},
		Now:    func() time.Time { return paidAt },
	}
	return svc, store, q
}

func seedOrder(t *testing.T, store *dbtest.Memory, userID, promoCode string) db.Order {
	t.Helper()
	ctx := context.Background()
	params := db.CreateOrderParams{
		UserID:         userID,
		Status:         db.OrderStatusPendingPayment,
		Currency:       "INR",
		ItemsPrice:     decimal.RequireFromString("800"),
		TaxPrice:       decimal.RequireFromString("144"),
		ShippingPrice:  decimal.Zero,
		DiscountAmount: decimal.RequireFromString("80"),
		TotalPrice:     decimal.RequireFromString("864"),
	}
	if promoCode != "" {
		params.PromoCode = pgtype.Text{String: promoCode, Valid: true}
	}
	o, err := store.CreateOrder(ctx, params)
	require.NoError(t, err)
	_, err = store.CreateOrderItem(ctx, db.CreateOrderItemParams{
		OrderID:   o.ID,
		ProductID: "book-1",
		Title:     "Go in Action",
		UnitPrice: decimal.RequireFromString("400"),
		Quantity:  2,
	})
	require.NoError(t, err)
	return o
}

func TestGetHidesOtherUsersOrders(t *testing.T) {
	svc, store, _ := newService(t)
	o := seedOrder(t, store, "user-1", "")
	ctx := context.Background()

	v, err := svc.Get(ctx, o.ID, "user-1", false)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	require.Nil(t, v.PromoCode)

	_, err = svc.Get(ctx, o.ID, "user-2", false)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, o.ID, "admin-1", true)
	require.NoError(t, err)

	_, err = svc.Get(ctx, uuid.New(), "user-1", false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListByUser(t *testing.T) {
	svc, store, _ := newService(t)
	first := seedOrder(t, store, "user-1", "")
	second := seedOrder(t, store, "user-1", "")
	seedOrder(t, store, "user-2", "")

	orders, err := svc.ListByUser(context.Background(), "user-1", common.Pagination{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, second.ID, orders[0].ID)
	require.Equal(t, first.ID, orders[1].ID)
}

func TestMarkPaidQueuesPromoRedemptionOnce(t *testing.T) {
	svc, store, q := newService(t)
	o := seedOrder(t, store, "user-1", "SAVE10")
	ctx := context.Background()

	v, err := svc.MarkPaid(ctx, o.ID, "pay_123")
	require.NoError(t, err)
	require.Equal(t, db.OrderStatusPaid, v.Status)
	require.Equal(t, "pay_123", *v.PaymentRef)
	require.Equal(t, paidAt, *v.PaidAt)

	require.Len(t, q.payloads, 1)
	require.Equal(t, queue.PromoRedeemPayload{
		OrderID:  o.ID,
		Code:     "SAVE10",
		UserID:   "user-1",
		Discount: decimal.RequireFromString("80"),
	}, q.payloads[0])

	evs := store.Events()
	require.Len(t, evs, 1)
	require.Equal(t, events.TopicOrderPaid, evs[0].Topic)

	// A repeated confirmation re-queues (de-duplicated downstream) but emits nothing new.
	_, err = svc.MarkPaid(ctx, o.ID, "pay_123")
	require.NoError(t, err)
	require.Len(t, store.Events(), 1)

	_, err = svc.MarkPaid(ctx, o.ID, "pay_other")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkPaidWithoutPromoSkipsQueue(t *testing.T) {
	svc, store, q := newService(t)
	o := seedOrder(t, store, "user-1", "")
	_, err := svc.MarkPaid(context.Background(), o.ID, "pay_1")
	require.NoError(t, err)
	require.Empty(t, q.payloads)
}

func TestMarkPaidErrors(t *testing.T) {
	svc, store, q := newService(t)
	ctx := context.Background()

	_, err := svc.MarkPaid(ctx, uuid.New(), "pay_1")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.MarkPaid(ctx, uuid.New(), "  ")
	require.ErrorIs(t, err, ErrPaymentRef)

	o := seedOrder(t, store, "user-1", "SAVE10")
	q.err = errors.New("redis unavailable")
	_, err = svc.MarkPaid(ctx, o.ID, "pay_1")
	require.Error(t, err)
	// The payment itself stays recorded.
	stored, getErr := store.GetOrderByID(ctx, o.ID)
	require.NoError(t, getErr)
	require.Equal(t, db.OrderStatusPaid, stored.Status)
}

func TestInvoiceFormatsAmounts(t *testing.T) {
	svc, store, _ := newService(t)
	o := seedOrder(t, store, "user-1", "SAVE10")

	inv, err := svc.Invoice(context.Background(), o.ID, "user-1", false, "en-IN,en;q=0.8")
	require.NoError(t, err)
	require.Equal(t, "en-IN", inv.Language)
	require.Equal(t, "SAVE10", inv.PromoCode)
	require.True(t, strings.HasPrefix(inv.Number, "INV-"))
	require.Len(t, inv.Lines, 1)
	require.Contains(t, inv.Lines[0].Amount, "800")
	require.Contains(t, inv.Total, "864")
	require.Contains(t, inv.Discount, "80")
	require.Equal(t, "2 books, 1 lines", inv.Summary)

	inv = BuildInvoice(View{ID: o.ID, Currency: "ZZZ", TotalPrice: decimal.RequireFromString("5")}, "")
	require.Equal(t, "en", inv.Language)
	require.Equal(t, "5.00 ZZZ", inv.Total)
}

func TestHandlers(t *testing.T) {
	svc, store, _ := newService(t)
	o := seedOrder(t, store, "user-1", "")
	h := &Handler{Svc: svc}
	r := chi.NewRouter()
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Get("/orders/{id}/invoice", h.Invoice)
	r.Post("/admin/orders/{id}/paid", h.MarkPaid)

	call := func(method, path, body, userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if userID != "" {
			req = req.WithContext(common.WithUserID(req.Context(), userID))
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/orders", "", "").Code)
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/orders", "", "user-1").Code)
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/orders/"+o.ID.String(), "", "user-1").Code)
	require.Equal(t, http.StatusNotFound, call(http.MethodGet, "/orders/"+o.ID.String(), "", "user-2").Code)
	require.Equal(t, http.StatusBadRequest, call(http.MethodGet, "/orders/not-a-uuid", "", "user-1").Code)
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/orders/"+o.ID.String()+"/invoice?lang=de", "", "user-1").Code)

	rec := call(http.MethodPost, "/admin/orders/"+o.ID.String()+"/paid", `{"paymentRef":"pay_9"}`, "admin-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = call(http.MethodPost, "/admin/orders/"+o.ID.String()+"/paid", `{"paymentRef":"pay_10"}`, "admin-1")
	require.Equal(t, http.StatusConflict, rec.Code)
	rec = call(http.MethodPost, "/admin/orders/"+o.ID.String()+"/paid", `{}`, "admin-1")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
