package promo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/guna684/book-shop-project-sub001/internal/common"
	"github.com/guna684/book-shop-project-sub001/internal/db"
	"github.com/guna684/book-shop-project-sub001/internal/events"
	"github.com/guna684/book-shop-project-sub001/internal/obs"
	"github.com/guna684/book-shop-project-sub001/internal/pricing"
)

// Locker serializes redemptions that compete for the same allowance.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service implements promo lookup, validation, redemption and administration.
type Service struct {
	Store   db.TxStore
	Cache   *Cache
	Locker  Locker
	LockTTL time.Duration
	Events  events.Emitter
	Logger  *zerolog.Logger
	Now     func() time.Time
}

// ValidateResult is the public answer to "what would this code do for my cart".
type ValidateResult struct {
	Code string `json:"code"`
	pricing.PromoResult
}

// Redemption identifies a discount granted to a paid order.
type Redemption struct {
	Code     string
	OrderID  uuid.UUID
	UserID   string
	Discount decimal.Decimal
}

// RedeemResult reports the usage row written (or found) for a redemption.
type RedeemResult struct {
	Usage           db.PromoUsage `json:"usage"`
	UsedCount       int32         `json:"usedCount"`
	AlreadyRedeemed bool          `json:"alreadyRedeemed"`
}

var errDuplicateUsage = errors.New("promo usage already recorded")

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("promo service not configured")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *zerolog.Logger {
	if s != nil && s.Logger != nil {
		return s.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// Lookup finds a promo by exact code, reading through the cache. It returns nil, nil when absent.
func (s *Service) Lookup(ctx context.Context, code string) (*Promo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	code = NormalizeCode(code)
	if code == "" {
		return nil, nil
	}
	if cached, ok, err := s.Cache.Get(ctx, code); err != nil {
		s.logger().Warn().Err(err).Str("code", code).Msg("promo cache read failed")
	} else if ok {
		return &cached, nil
	}

	row, err := s.Store.GetPromoCodeByCode(ctx, code)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup promo %s: %w", code, err)
	}
	p := fromModel(row)
	if err := s.Cache.Set(ctx, p); err != nil {
		s.logger().Warn().Err(err).Str("code", code).Msg("promo cache write failed")
	}
	return &p, nil
}

// Validate evaluates code against cartTotal for userID without changing any state.
// An unknown or unusable code is a normal result, not an error.
func (s *Service) Validate(ctx context.Context, code, userID string, cartTotal decimal.Decimal) (ValidateResult, error) {
	p, err := s.Lookup(ctx, code)
	if err != nil {
		return ValidateResult{}, err
	}
	out := ValidateResult{Code: NormalizeCode(code), PromoResult: pricing.ApplyPromo(cartTotal, p.Rule(), s.now())}
	outcome := validationOutcome(p, out.PromoResult)

	if out.Valid && userID != "" {
		used, err := s.Store.CountPromoUsageByUser(ctx, db.CountPromoUsageByUserParams{PromoID: p.ID, UserID: userID})
		if err != nil {
			return ValidateResult{}, fmt.Errorf("count promo usage: %w", err)
		}
		if used >= int64(p.PerUserLimit) {
			out.PromoResult = pricing.PromoResult{
				Valid:       false,
				Discount:    decimal.Zero,
				FinalAmount: pricing.Round(cartTotal),
				Message:     MsgAlreadyUsed,
			}
			outcome = "per_user_limit"
		}
	}
	obs.ObservePromoValidation(outcome)
	return out, nil
}

func validationOutcome(p *Promo, res pricing.PromoResult) string {
	switch {
	case res.Valid:
		return "valid"
	case p == nil:
		return "not_found"
	case res.Message == pricing.MsgPromoInvalid:
		return "invalid"
	default:
		return "below_minimum"
	}
}

// Redeem records that r.OrderID used r.Code. It is idempotent per order: a second call for
// the same order reports the existing usage. The usage limit is enforced by a guarded
// increment, so concurrent redemptions can never push used_count past usage_limit.
func (s *Service) Redeem(ctx context.Context, r Redemption) (RedeemResult, error) {
	if err := s.ready(); err != nil {
		return RedeemResult{}, err
	}
	r.Code = NormalizeCode(r.Code)
	if r.Code == "" || r.OrderID == uuid.Nil || r.UserID == "" {
		return RedeemResult{}, invalid("code, order and user are required")
	}
	if r.Discount.IsNegative() {
		r.Discount = decimal.Zero
	}

	var res RedeemResult
	redeem := func(ctx context.Context) error {
		res = RedeemResult{}
		err := s.Store.InTx(ctx, func(q db.Querier) error {
			return s.redeemTx(ctx, q, r, &res)
		})
		if errors.Is(err, errDuplicateUsage) {
			existing, lookupErr := s.existingUsage(ctx, r)
			if lookupErr != nil {
				return lookupErr
			}
			res = existing
			return nil
		}
		return err
	}

	var err error
	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, "lock:promo:"+r.Code+":"+r.UserID, s.LockTTL, redeem)
	} else {
		err = redeem(ctx)
	}
	if err != nil {
		obs.ObservePromoRedemption(redemptionOutcome(err))
		return RedeemResult{}, err
	}
	if res.AlreadyRedeemed {
		obs.ObservePromoRedemption("duplicate")
		return res, nil
	}

	if err := s.Cache.Invalidate(ctx, r.Code); err != nil {
		s.logger().Warn().Err(err).Str("code", r.Code).Msg("promo cache invalidate failed")
	}
	if s.Events != nil {
		payload := map[string]any{
			"code":      r.Code,
			"orderId":   r.OrderID,
			"userId":    r.UserID,
			"discount":  res.Usage.Discount,
			"usedCount": res.UsedCount,
		}
		if _, err := s.Events.Emit(ctx, events.TopicPromoRedeemed, r.OrderID, payload); err != nil {
			s.logger().Warn().Err(err).Str("order_id", r.OrderID.String()).Msg("promo.redeemed emit failed")
		}
	}
	obs.ObservePromoRedemption("redeemed")
	s.logger().Info().
		Str("code", r.Code).
		Str("order_id", r.OrderID.String()).
		Str("user_id", r.UserID).
		Int32("used_count", res.UsedCount).
		Msg("promo redeemed")
	return res, nil
}

func (s *Service) redeemTx(ctx context.Context, q db.Querier, r Redemption, res *RedeemResult) error {
	p, err := q.GetPromoCodeByCodeForUpdate(ctx, r.Code)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("load promo %s: %w", r.Code, err)
	}

	existing, err := q.GetPromoUsageByOrder(ctx, db.GetPromoUsageByOrderParams{PromoID: p.ID, OrderID: r.OrderID})
	if err == nil {
		*res = RedeemResult{Usage: existing, UsedCount: p.UsedCount, AlreadyRedeemed: true}
		return nil
	}
	if !db.IsNoRows(err) {
		return fmt.Errorf("load promo usage: %w", err)
	}

	used, err := q.CountPromoUsageByUser(ctx, db.CountPromoUsageByUserParams{PromoID: p.ID, UserID: r.UserID})
	if err != nil {
		return fmt.Errorf("count promo usage: %w", err)
	}
	if used >= int64(max(p.PerUserLimit, 1)) {
		return ErrPerUserLimitReached
	}

	count, err := q.IncrementPromoUsedCount(ctx, p.ID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrUsageLimitReached
		}
		return fmt.Errorf("increment promo usage: %w", err)
	}

	usage, err := q.InsertPromoUsage(ctx, db.InsertPromoUsageParams{
		PromoID:  p.ID,
		OrderID:  r.OrderID,
		UserID:   r.UserID,
		Discount: pricing.Round(r.Discount),
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return errDuplicateUsage
		}
		return fmt.Errorf("insert promo usage: %w", err)
	}
	*res = RedeemResult{Usage: usage, UsedCount: count}
	return nil
}

func (s *Service) existingUsage(ctx context.Context, r Redemption) (RedeemResult, error) {
	p, err := s.Store.GetPromoCodeByCode(ctx, r.Code)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("load promo %s: %w", r.Code, err)
	}
	usage, err := s.Store.GetPromoUsageByOrder(ctx, db.GetPromoUsageByOrderParams{PromoID: p.ID, OrderID: r.OrderID})
	if err != nil {
		return RedeemResult{}, fmt.Errorf("load promo usage: %w", err)
	}
	return RedeemResult{Usage: usage, UsedCount: p.UsedCount, AlreadyRedeemed: true}, nil
}

func redemptionOutcome(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUsageLimitReached):
		return "usage_limit"
	case errors.Is(err, ErrPerUserLimitReached):
		return "per_user_limit"
	case errors.Is(err, ErrInvalidPromo):
		return "invalid"
	default:
		return "error"
	}
}

// Create stores a new promo code.
func (s *Service) Create(ctx context.Context, in Input) (Promo, error) {
	if err := s.ready(); err != nil {
		return Promo{}, err
	}
	n, err := in.normalize()
	if err != nil {
		return Promo{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	row, err := s.Store.CreatePromoCode(ctx, db.CreatePromoCodeParams{
		Code:          n.code,
		DiscountType:  string(n.discountType),
		DiscountValue: n.discountValue,
		MinCartValue:  n.minCartValue,
		MaxDiscount:   n.maxDiscount,
		UsageLimit:    n.usageLimit,
		PerUserLimit:  n.perUserLimit,
		ExpiryDate:    n.expiryDate,
		IsActive:      active,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Promo{}, ErrConflict
		}
		if db.IsCheckViolation(err) {
			return Promo{}, invalid("rejected by database constraint")
		}
		return Promo{}, fmt.Errorf("create promo: %w", err)
	}
	return fromModel(row), nil
}

// Update replaces the editable fields of code. The usage limit may not drop below used_count.
func (s *Service) Update(ctx context.Context, code string, in Input) (Promo, error) {
	if err := s.ready(); err != nil {
		return Promo{}, err
	}
	in.Code = code
	n, err := in.normalize()
	if err != nil {
		return Promo{}, err
	}

	var updated db.PromoCode
	err = s.Store.InTx(ctx, func(q db.Querier) error {
		current, err := q.GetPromoCodeByCodeForUpdate(ctx, n.code)
		if err != nil {
			if db.IsNoRows(err) {
				return ErrNotFound
			}
			return fmt.Errorf("load promo %s: %w", n.code, err)
		}
		if n.usageLimit < current.UsedCount {
			return invalid("usageLimit %d is below used count %d", n.usageLimit, current.UsedCount)
		}
		active := current.IsActive
		if in.IsActive != nil {
			active = *in.IsActive
		}
		updated, err = q.UpdatePromoCode(ctx, db.UpdatePromoCodeParams{
			Code:          n.code,
			DiscountType:  string(n.discountType),
			DiscountValue: n.discountValue,
			MinCartValue:  n.minCartValue,
			MaxDiscount:   n.maxDiscount,
			UsageLimit:    n.usageLimit,
			PerUserLimit:  n.perUserLimit,
			ExpiryDate:    n.expiryDate,
			IsActive:      active,
		})
		if err != nil {
			if db.IsCheckViolation(err) {
				return invalid("rejected by database constraint")
			}
			return fmt.Errorf("update promo: %w", err)
		}
		return nil
	})
	if err != nil {
		return Promo{}, err
	}
	if err := s.Cache.Invalidate(ctx, n.code); err != nil {
		s.logger().Warn().Err(err).Str("code", n.code).Msg("promo cache invalidate failed")
	}
	return fromModel(updated), nil
}

// Get returns the stored promo without consulting the cache.
func (s *Service) Get(ctx context.Context, code string) (Promo, error) {
	if err := s.ready(); err != nil {
		return Promo{}, err
	}
	row, err := s.Store.GetPromoCodeByCode(ctx, canonicalCode(code))
	if err != nil {
		if db.IsNoRows(err) {
			return Promo{}, ErrNotFound
		}
		return Promo{}, fmt.Errorf("get promo: %w", err)
	}
	return fromModel(row), nil
}

// List pages through promo codes, newest first.
func (s *Service) List(ctx context.Context, page common.Pagination) ([]Promo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.Store.ListPromoCodes(ctx, db.ListPromoCodesParams{
		Limit:  int32(page.PerPage),
		Offset: int32(page.Offset()),
	})
	if err != nil {
		return nil, fmt.Errorf("list promos: %w", err)
	}
	out := make([]Promo, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

// Deactivate switches code off. Existing usages are kept.
func (s *Service) Deactivate(ctx context.Context, code string) (Promo, error) {
	if err := s.ready(); err != nil {
		return Promo{}, err
	}
	code = canonicalCode(code)
	row, err := s.Store.DeactivatePromoCode(ctx, code)
	if err != nil {
		if db.IsNoRows(err) {
			return Promo{}, ErrNotFound
		}
		return Promo{}, fmt.Errorf("deactivate promo: %w", err)
	}
	if err := s.Cache.Invalidate(ctx, code); err != nil {
		s.logger().Warn().Err(err).Str("code", code).Msg("promo cache invalidate failed")
	}
	return fromModel(row), nil
}
