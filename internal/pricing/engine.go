package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount. Results are rounded to two fractional digits.
type Money = decimal.Decimal

// ErrInvalidCartLine marks a cart line with a negative price or a non-positive quantity.
var ErrInvalidCartLine = errors.New("invalid cart line")

// CartLine describes a single product entry used for pricing calculation.
type CartLine struct {
	ProductID string
	UnitPrice Money
	Quantity  int
}

// Config holds the externally configured pricing constants.
type Config struct {
	FreeShippingThreshold Money
	ShippingFee           Money
	TaxRate               Money
}

// Result aggregates computed pricing components.
type Result struct {
	ItemsPrice     Money `json:"itemsPrice"`
	TaxPrice       Money `json:"taxPrice"`
	ShippingPrice  Money `json:"shippingPrice"`
	DiscountAmount Money `json:"discountAmount"`
	TotalPrice     Money `json:"totalPrice"`
}

// ValidateLines rejects lines the calculator must never see. Callers run it at the request boundary.
func ValidateLines(lines []CartLine) error {
	for i, line := range lines {
		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("line %d: negative unit price: %w", i, ErrInvalidCartLine)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("line %d: quantity must be at least 1: %w", i, ErrInvalidCartLine)
		}
	}
	return nil
}

// ItemsPrice sums unit price times quantity over all lines.
func ItemsPrice(lines []CartLine) Money {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Shipping waives the flat fee only when itemsPrice is strictly above the threshold.
func Shipping(itemsPrice, freeThreshold, flatFee Money) Money {
	if itemsPrice.GreaterThan(freeThreshold) {
		return decimal.Zero
	}
	return flatFee
}

// Tax applies the rate to itemsPrice without rounding.
func Tax(itemsPrice, rate Money) Money {
	return itemsPrice.Mul(rate)
}

// Assemble rounds each component before summing so the total always matches the displayed parts.
func Assemble(itemsPrice, taxPrice, shippingPrice, discountAmount Money) Result {
	items := Round(itemsPrice)
	tax := Round(taxPrice)
	shipping := Round(shippingPrice)
	discount := Round(discountAmount)
	total := items.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Result{
		ItemsPrice:     items,
		TaxPrice:       tax,
		ShippingPrice:  shipping,
		DiscountAmount: discount,
		TotalPrice:     total,
	}
}

// Compute prices a cart without a promo code.
func Compute(lines []CartLine, cfg Config) Result {
	items := ItemsPrice(lines)
	return Assemble(items, Tax(items, cfg.TaxRate), Shipping(items, cfg.FreeShippingThreshold, cfg.ShippingFee), decimal.Zero)
}

// Round rounds half away from zero to two fractional digits.
func Round(v Money) Money {
	return v.Round(2)
}
