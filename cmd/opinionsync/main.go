package main

import (
	"context"
	"database/sql"
	"strconv"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"safestay/internal/adapters/apify"
	"safestay/internal/adapters/geocode"
	"safestay/internal/adapters/llm"
	"safestay/internal/adapters/observability"
	"safestay/internal/app"
	"safestay/internal/shared"
	mysqlrepo "safestay/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger("opinionsync", cfg.AppEnv)
	observability.Serve(cfg.MetricsAddr)

	if cfg.ApifyDataset == "" {
		log.Fatal().Msg("APIFY_DATASET is required")
	}

	log.Info().
		Str("dataset", cfg.ApifyDataset).
		Ints64("cities", cfg.CityIDs).
		Msg("opinion sync starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	source := apify.New(cfg.ApifyBase, cfg.ApifyToken, cfg.ApifyRPS)
	geocoder := geocode.New(cfg.MapboxBase, cfg.MapboxToken, cfg.MapboxRPS)
	analyst := llm.New(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIRPS)

	pipeline := app.NewOpinionPipeline(source, geocoder, analyst, repo, cfg.Workers)

	for _, cityID := range cfg.CityIDs {
		n, err := pipeline.Sync(ctx, cfg.ApifyDataset, cityID, cfg.OpinionLimit)
		if err != nil {
			log.Warn().Int64("city", cityID).Err(err).Msg("opinion sync failed")
			continue
		}
		observability.ObservePipeline("opinions", strconv.FormatInt(cityID, 10), n)
		log.Info().Int64("city", cityID).Int("stored", n).Msg("opinion sync ok")
	}

	if err := pipeline.Classify(ctx, cfg.ClassifyLimit); err != nil {
		log.Warn().Err(err).Msg("classification finished with errors")
	}
	log.Info().Msg("opinion sync completed")
}
