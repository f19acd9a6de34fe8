package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/guna684/book-shop-project-sub001/internal/db/dbtest"
	"github.com/guna684/book-shop-project-sub001/internal/promo"
)

var seedNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func TestLoadBundledFixtures(t *testing.T) {
	inputs, err := loadFixtures(bytes.NewReader(defaultFixtures), seedNow)
	require.NoError(t, err)
	require.Len(t, inputs, 4)

	welcome := inputs[0]
	require.Equal(t, "WELCOME50", welcome.Code)
	require.Equal(t, "50", welcome.DiscountValue.String())
	require.Equal(t, seedNow.Add(2160*time.Hour), welcome.ExpiryDate)
	require.Nil(t, welcome.MaxDiscount)

	readMore := inputs[1]
	require.NotNil(t, readMore.MaxDiscount)
	require.Equal(t, "250", readMore.MaxDiscount.String())

	require.Equal(t, time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), inputs[2].ExpiryDate)
	require.NotNil(t, inputs[3].IsActive)
	require.False(t, *inputs[3].IsActive)
}

func TestLoadFixturesRejectsBadInput(t *testing.T) {
	_, err := loadFixtures(strings.NewReader("promos:\n  - code: X\n    discountType: FLAT\n    discountValue: ten\n    expiresIn: 1h\n"), seedNow)
	require.ErrorContains(t, err, "discountValue")

	_, err = loadFixtures(strings.NewReader("promos:\n  - code: X\n    discountType: FLAT\n    discountValue: \"1\"\n"), seedNow)
	require.ErrorContains(t, err, "expiryDate or expiresIn")

	_, err = loadFixtures(strings.NewReader("promos:\n  - code: X\n    colour: red\n"), seedNow)
	require.Error(t, err)
}

func TestSeedPromosSkipsExisting(t *testing.T) {
	inputs, err := loadFixtures(bytes.NewReader(defaultFixtures), seedNow)
	require.NoError(t, err)
	svc := &promo.Service{Store: dbtest.NewMemory(), Now: func() time.Time { return seedNow }}

	created, skipped, err := seedPromos(context.Background(), svc, inputs, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 4, created)
	require.Zero(t, skipped)

	created, skipped, err = seedPromos(context.Background(), svc, inputs, zerolog.Nop())
	require.NoError(t, err)
	require.Zero(t, created)
	require.Equal(t, 4, skipped)
}
