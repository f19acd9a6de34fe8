package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/guna684/book-shop-project-sub001/internal/promo"
)

type promoFixture struct {
	Code          string     `yaml:"code"`
	DiscountType  string     `yaml:"discountType"`
	DiscountValue string     `yaml:"discountValue"`
	MinCartValue  string     `yaml:"minCartValue"`
	MaxDiscount   string     `yaml:"maxDiscount"`
	UsageLimit    int32      `yaml:"usageLimit"`
	PerUserLimit  int32      `yaml:"perUserLimit"`
	ExpiresIn     string     `yaml:"expiresIn"`
	ExpiryDate    *time.Time `yaml:"expiryDate"`
	Active        *bool      `yaml:"active"`
}

type fixtureFile struct {
	Promos []promoFixture `yaml:"promos"`
}

// loadFixtures decodes promo fixtures. Relative expiries are resolved against now.
func loadFixtures(r io.Reader, now time.Time) ([]promo.Input, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file fixtureFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	inputs := make([]promo.Input, 0, len(file.Promos))
	for i, f := range file.Promos {
		in, err := f.input(now)
		if err != nil {
			return nil, fmt.Errorf("promo #%d (%s): %w", i+1, f.Code, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func (f promoFixture) input(now time.Time) (promo.Input, error) {
	value, err := decimal.NewFromString(f.DiscountValue)
	if err != nil {
		return promo.Input{}, fmt.Errorf("discountValue: %w", err)
	}
	minCart := decimal.Zero
	if strings.TrimSpace(f.MinCartValue) != "" {
		if minCart, err = decimal.NewFromString(f.MinCartValue); err != nil {
			return promo.Input{}, fmt.Errorf("minCartValue: %w", err)
		}
	}
	var maxDiscount *decimal.Decimal
	if strings.TrimSpace(f.MaxDiscount) != "" {
		v, err := decimal.NewFromString(f.MaxDiscount)
		if err != nil {
			return promo.Input{}, fmt.Errorf("maxDiscount: %w", err)
		}
		maxDiscount = &v
	}

	var expiry time.Time
	switch {
	case f.ExpiryDate != nil:
		expiry = f.ExpiryDate.UTC()
	case f.ExpiresIn != "":
		d, err := time.ParseDuration(f.ExpiresIn)
		if err != nil {
			return promo.Input{}, fmt.Errorf("expiresIn: %w", err)
		}
		expiry = now.Add(d).UTC()
	default:
		return promo.Input{}, fmt.Errorf("expiryDate or expiresIn is required")
	}

	return promo.Input{
		Code:          f.Code,
		DiscountType:  f.DiscountType,
		DiscountValue: value,
		MinCartValue:  minCart,
		MaxDiscount:   maxDiscount,
		UsageLimit:    f.UsageLimit,
		PerUserLimit:  f.PerUserLimit,
		ExpiryDate:    expiry,
		IsActive:      f.Active,
	}, nil
}
