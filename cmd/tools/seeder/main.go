package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/guna684/book-shop-project-sub001/internal/app"
	"github.com/guna684/book-shop-project-sub001/internal/auth"
	"github.com/guna684/book-shop-project-sub001/internal/db"
	"github.com/guna684/book-shop-project-sub001/internal/obs"
	"github.com/guna684/book-shop-project-sub001/internal/promo"
)

//go:embed promos.yaml
var defaultFixtures []byte

func main() {
	fixturesPath := flag.String("fixtures", "", "promo fixtures YAML (defaults to the bundled set)")
	hashKey := flag.String("hash-key", "", "print the argon2id hash for a payment service key and exit")
	migrations := flag.Bool("migrate", true, "apply migrations before seeding")
	flag.Parse()

	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()

	if *hashKey != "" {
		hash, err := auth.HashServiceKey(*hashKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("hash service key")
		}
		fmt.Println(hash)
		return
	}

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, relying on environment variables")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	var source io.Reader = bytes.NewReader(defaultFixtures)
	if *fixturesPath != "" {
		f, err := os.Open(*fixturesPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("open fixtures")
		}
		defer f.Close()
		source = f
	}
	inputs, err := loadFixtures(source, time.Now())
	if err != nil {
		logger.Fatal().Err(err).Msg("load fixtures")
	}

	if *migrations {
		if err := db.Migrate(dbURL); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	pool, err := app.OpenPostgres(ctx, dbURL, "bookstore-seeder")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	created, skipped, err := seedPromos(ctx, &promo.Service{Store: db.NewStore(pool), Logger: &logger}, inputs, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed promos")
	}
	logger.Info().Int("created", created).Int("skipped", skipped).Msg("seeding completed")
}

type promoCreator interface {
	Create(ctx context.Context, in promo.Input) (promo.Promo, error)
}

// seedPromos creates each fixture, leaving codes that already exist untouched.
func seedPromos(ctx context.Context, svc promoCreator, inputs []promo.Input, logger zerolog.Logger) (created, skipped int, err error) {
	for _, in := range inputs {
		p, err := svc.Create(ctx, in)
		switch {
		case errors.Is(err, promo.ErrConflict):
			skipped++
			logger.Info().Str("code", in.Code).Msg("promo exists, skipping")
		case err != nil:
			return created, skipped, fmt.Errorf("create %s: %w", in.Code, err)
		default:
			created++
			logger.Info().Str("code", p.Code).Time("expires", p.ExpiryDate).Msg("promo created")
		}
	}
	return created, skipped, nil
}
