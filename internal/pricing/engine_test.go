package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func money(t *testing.T, v string) Money {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func requireMoney(t *testing.T, want string, got Money) {
	t.Helper()
	require.Truef(t, money(t, want).Equal(got), "expected %s, got %s", want, got.String())
}

func storeConfig(t *testing.T) Config {
	return Config{
		FreeShippingThreshold: money(t, "500"),
		ShippingFee:           money(t, "50"),
		TaxRate:               money(t, "0.18"),
	}
}

func TestItemsPriceEmpty(t *testing.T) {
	requireMoney(t, "0", ItemsPrice(nil))
}

func TestItemsPriceOrderIndependent(t *testing.T) {
	a := CartLine{UnitPrice: money(t, "199.99"), Quantity: 3}
	b := CartLine{UnitPrice: money(t, "45.50"), Quantity: 1}
	c := CartLine{UnitPrice: money(t, "0"), Quantity: 7}

	first := ItemsPrice([]CartLine{a, b, c})
	second := ItemsPrice([]CartLine{c, a, b})
	require.True(t, first.Equal(second))
	requireMoney(t, "645.47", first)
}

func TestShippingStrictThreshold(t *testing.T) {
	threshold := money(t, "500")
	fee := money(t, "50")
	requireMoney(t, "50", Shipping(money(t, "500.00"), threshold, fee))
	requireMoney(t, "0", Shipping(money(t, "500.01"), threshold, fee))
	requireMoney(t, "50", Shipping(decimal.Zero, threshold, fee))
}

func TestTaxUnrounded(t *testing.T) {
	requireMoney(t, "216", Tax(money(t, "1200"), money(t, "0.18")))
	requireMoney(t, "1.8018", Tax(money(t, "10.01"), money(t, "0.18")))
}

func TestAssembleRoundsEachComponent(t *testing.T) {
	result := Assemble(money(t, "10.004"), money(t, "10.004"), decimal.Zero, decimal.Zero)
	requireMoney(t, "10.00", result.ItemsPrice)
	requireMoney(t, "10.00", result.TaxPrice)
	requireMoney(t, "20.00", result.TotalPrice)
}

func TestAssembleNeverNegative(t *testing.T) {
	result := Assemble(money(t, "100"), decimal.Zero, decimal.Zero, money(t, "150"))
	requireMoney(t, "0", result.TotalPrice)
	requireMoney(t, "150", result.DiscountAmount)
}

func TestAssembleIdempotent(t *testing.T) {
	args := []Money{money(t, "1234.565"), money(t, "222.2217"), money(t, "50"), money(t, "123.455")}
	first := Assemble(args[0], args[1], args[2], args[3])
	second := Assemble(args[0], args[1], args[2], args[3])
	require.True(t, first.TotalPrice.Equal(second.TotalPrice))
	require.True(t, first.ItemsPrice.Equal(second.ItemsPrice))
	require.True(t, first.TaxPrice.Equal(second.TaxPrice))
	require.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
	requireMoney(t, "1234.57", first.ItemsPrice)
	requireMoney(t, "1383.33", first.TotalPrice)
}

func TestComputeWithoutPromo(t *testing.T) {
	lines := []CartLine{{UnitPrice: money(t, "120"), Quantity: 2}}
	result := Compute(lines, storeConfig(t))
	requireMoney(t, "240", result.ItemsPrice)
	requireMoney(t, "50", result.ShippingPrice)
	requireMoney(t, "43.2", result.TaxPrice)
	requireMoney(t, "0", result.DiscountAmount)
	requireMoney(t, "333.2", result.TotalPrice)
}

func TestComputeWithPromoEndToEnd(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	rule := &PromoRule{
		Code:          "SAVE10",
		DiscountType:  DiscountPercent,
		DiscountValue: money(t, "10"),
		MinCartValue:  decimal.Zero,
		UsageLimit:    100,
		PerUserLimit:  1,
		ExpiryDate:    now.Add(24 * time.Hour),
		IsActive:      true,
	}
	lines := []CartLine{
		{ProductID: "book-1", UnitPrice: money(t, "400"), Quantity: 2},
		{ProductID: "book-2", UnitPrice: money(t, "200"), Quantity: 2},
	}

	result, promo := ComputeWithPromo(lines, storeConfig(t), rule, now)
	require.True(t, promo.Valid)
	require.Equal(t, MsgPromoApplied, promo.Message)
	requireMoney(t, "1200.00", result.ItemsPrice)
	requireMoney(t, "0.00", result.ShippingPrice)
	requireMoney(t, "216.00", result.TaxPrice)
	requireMoney(t, "120.00", result.DiscountAmount)
	requireMoney(t, "1296.00", result.TotalPrice)
}

func TestComputeWithInvalidPromoAddsNoDiscount(t *testing.T) {
	lines := []CartLine{{UnitPrice: money(t, "100"), Quantity: 1}}
	result, promo := ComputeWithPromo(lines, storeConfig(t), nil, time.Now())
	require.False(t, promo.Valid)
	require.Equal(t, MsgPromoNotFound, promo.Message)
	requireMoney(t, "0", result.DiscountAmount)
	requireMoney(t, "168", result.TotalPrice)
}

func TestValidateLines(t *testing.T) {
	require.NoError(t, ValidateLines(nil))
	require.NoError(t, ValidateLines([]CartLine{{UnitPrice: decimal.Zero, Quantity: 1}}))
	require.ErrorIs(t, ValidateLines([]CartLine{{UnitPrice: money(t, "-1"), Quantity: 1}}), ErrInvalidCartLine)
	require.ErrorIs(t, ValidateLines([]CartLine{{UnitPrice: money(t, "10"), Quantity: 0}}), ErrInvalidCartLine)
}
