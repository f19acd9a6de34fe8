package promo

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/guna684/book-shop-project-sub001/internal/db"
	"github.com/guna684/book-shop-project-sub001/internal/pricing"
)

const maxCodeLength = 32

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)

var (
	ErrNotFound            = errors.New("promo code not found")
	ErrConflict            = errors.New("promo code already exists")
	ErrInvalidPromo        = errors.New("invalid promo")
	ErrUsageLimitReached   = errors.New("promo usage limit reached")
	ErrPerUserLimitReached = errors.New("promo per-user limit reached")
)

// MsgAlreadyUsed is reported by Validate when the caller has exhausted their per-user allowance.
const MsgAlreadyUsed = "You have already used this promo code"

// Promo is a stored promo code together with its bookkeeping columns.
type Promo struct {
	ID uuid.UUID `json:"id"`
	pricing.PromoRule
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Rule returns a pointer to the pricing rule for use with the calculator.
func (p *Promo) Rule() *pricing.PromoRule {
	if p == nil {
		return nil
	}
	rule := p.PromoRule
	return &rule
}

// NormalizeCode strips surrounding whitespace from a code entered by a shopper.
// Matching is otherwise exact: "save10" does not find "SAVE10".
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// canonicalCode is the stored form. Admin writes and admin lookups go through it.
func canonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func fromModel(p db.PromoCode) Promo {
	rule := pricing.PromoRule{
		Code:          p.Code,
		DiscountType:  pricing.DiscountType(p.DiscountType),
		DiscountValue: p.DiscountValue,
		MinCartValue:  p.MinCartValue,
		UsageLimit:    int(p.UsageLimit),
		UsedCount:     int(p.UsedCount),
		PerUserLimit:  int(p.PerUserLimit),
		ExpiryDate:    p.ExpiryDate,
		IsActive:      p.IsActive,
	}
	if p.MaxDiscount.Valid {
		maxDiscount := p.MaxDiscount.Decimal
		rule.MaxDiscount = &maxDiscount
	}
	return Promo{ID: p.ID, PromoRule: rule, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

// Input carries the admin-editable fields of a promo code.
type Input struct {
	Code          string           `json:"code" validate:"omitempty,max=32"`
	DiscountType  string           `json:"discountType" validate:"required"`
	DiscountValue decimal.Decimal  `json:"discountValue"`
	MinCartValue  decimal.Decimal  `json:"minCartValue"`
	MaxDiscount   *decimal.Decimal `json:"maxDiscount"`
	UsageLimit    int32            `json:"usageLimit" validate:"gte=1"`
	PerUserLimit  int32            `json:"perUserLimit" validate:"gte=0"`
	ExpiryDate    time.Time        `json:"expiryDate" validate:"required"`
	IsActive      *bool            `json:"isActive"`
}

type normalized struct {
	code          string
	discountType  pricing.DiscountType
	discountValue decimal.Decimal
	minCartValue  decimal.Decimal
	maxDiscount   decimal.NullDecimal
	usageLimit    int32
	perUserLimit  int32
	expiryDate    time.Time
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPromo, fmt.Sprintf(format, args...))
}

func (in Input) normalize() (normalized, error) {
	out := normalized{code: canonicalCode(in.Code)}
	if out.code == "" {
		return out, invalid("code is required")
	}
	if len(out.code) > maxCodeLength || !codePattern.MatchString(out.code) {
		return out, invalid("code must be 1-%d characters of A-Z, 0-9, '_' or '-'", maxCodeLength)
	}
	kind, ok := pricing.ParseDiscountType(in.DiscountType)
	if !ok {
		return out, invalid("discountType must be PERCENT or FLAT")
	}
	out.discountType = kind
	if !in.DiscountValue.IsPositive() {
		return out, invalid("discountValue must be greater than zero")
	}
	if kind == pricing.DiscountPercent && in.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return out, invalid("percent discountValue must not exceed 100")
	}
	out.discountValue = pricing.Round(in.DiscountValue)
	if in.MinCartValue.IsNegative() {
		return out, invalid("minCartValue must not be negative")
	}
	out.minCartValue = pricing.Round(in.MinCartValue)
	if in.MaxDiscount != nil {
		if in.MaxDiscount.IsNegative() {
			return out, invalid("maxDiscount must not be negative")
		}
		out.maxDiscount = decimal.NewNullDecimal(pricing.Round(*in.MaxDiscount))
	}
	if in.UsageLimit < 1 {
		return out, invalid("usageLimit must be at least 1")
	}
	out.usageLimit = in.UsageLimit
	out.perUserLimit = in.PerUserLimit
	if out.perUserLimit <= 0 {
		out.perUserLimit = 1
	}
	if in.ExpiryDate.IsZero() {
		return out, invalid("expiryDate is required")
	}
	out.expiryDate = in.ExpiryDate.UTC()
	return out, nil
}
