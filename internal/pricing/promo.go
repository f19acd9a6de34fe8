package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType enumerates how a promo rule reduces the cart total.
type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFlat    DiscountType = "FLAT"
)

const (
	MsgPromoApplied  = "Promo code applied"
	MsgPromoInvalid  = "Promo code is not valid"
	MsgPromoNotFound = "Promo code not found"
)

// ParseDiscountType normalises user input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, bool) {
	switch DiscountType(strings.ToUpper(strings.TrimSpace(value))) {
	case DiscountPercent:
		return DiscountPercent, true
	case DiscountFlat:
		return DiscountFlat, true
	default:
		return "", false
	}
}

// PromoRule captures the eligibility and usage constraints of a promo code.
type PromoRule struct {
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue Money        `json:"discountValue"`
	MinCartValue  Money        `json:"minCartValue"`
	MaxDiscount   *Money       `json:"maxDiscount,omitempty"`
	UsageLimit    int          `json:"usageLimit"`
	UsedCount     int          `json:"usedCount"`
	PerUserLimit  int          `json:"perUserLimit"`
	ExpiryDate    time.Time    `json:"expiryDate"`
	IsActive      bool         `json:"isActive"`
}

// Usable reports whether the rule is active, unexpired and not exhausted at now.
func (r PromoRule) Usable(now time.Time) bool {
	return r.IsActive && r.ExpiryDate.After(now) && r.UsedCount < r.UsageLimit
}

// PromoResult is the structured outcome of applying a promo rule. Callers branch on Valid.
type PromoResult struct {
	Valid       bool   `json:"valid"`
	Discount    Money  `json:"discount"`
	FinalAmount Money  `json:"finalAmount"`
	Message     string `json:"message"`
}

// ApplyPromo evaluates rule against cartTotal. A nil rule means the code does not exist.
// Checks run in a fixed order: active/expiry/usage, then minimum cart value, then the discount.
func ApplyPromo(cartTotal Money, rule *PromoRule, now time.Time) PromoResult {
	if rule == nil {
		return rejected(cartTotal, MsgPromoNotFound)
	}
	if !rule.Usable(now) {
		return rejected(cartTotal, MsgPromoInvalid)
	}
	if cartTotal.LessThan(rule.MinCartValue) {
		return rejected(cartTotal, fmt.Sprintf("Minimum cart value of %s required", rule.MinCartValue.String()))
	}

	var discount Money
	switch rule.DiscountType {
	case DiscountPercent:
		discount = cartTotal.Mul(rule.DiscountValue).Div(decimal.NewFromInt(100))
		if rule.MaxDiscount != nil && discount.GreaterThan(*rule.MaxDiscount) {
			discount = *rule.MaxDiscount
		}
	case DiscountFlat:
		discount = decimal.Min(rule.DiscountValue, cartTotal)
	default:
		return rejected(cartTotal, MsgPromoInvalid)
	}
	discount = Round(discount)

	final := cartTotal.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}
	return PromoResult{
		Valid:       true,
		Discount:    discount,
		FinalAmount: Round(final),
		Message:     MsgPromoApplied,
	}
}

func rejected(cartTotal Money, message string) PromoResult {
	final := cartTotal
	if final.IsNegative() {
		final = decimal.Zero
	}
	return PromoResult{
		Valid:       false,
		Discount:    decimal.Zero,
		FinalAmount: Round(final),
		Message:     message,
	}
}

// ComputeWithPromo prices a cart and applies rule to the items subtotal.
// An invalid promo contributes no discount; the PromoResult explains why.
func ComputeWithPromo(lines []CartLine, cfg Config, rule *PromoRule, now time.Time) (Result, PromoResult) {
	items := ItemsPrice(lines)
	promo := ApplyPromo(items, rule, now)
	discount := decimal.Zero
	if promo.Valid {
		discount = promo.Discount
	}
	result := Assemble(items, Tax(items, cfg.TaxRate), Shipping(items, cfg.FreeShippingThreshold, cfg.ShippingFee), discount)
	return result, promo
}
