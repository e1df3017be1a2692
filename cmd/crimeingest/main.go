package main

import (
	"context"
	"database/sql"
	"strconv"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"safestay/internal/adapters/observability"
	redisad "safestay/internal/adapters/redis"
	"safestay/internal/adapters/socrata"
	"safestay/internal/app"
	"safestay/internal/shared"
	mysqlrepo "safestay/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger("crimeingest", cfg.AppEnv)
	observability.Serve(cfg.MetricsAddr)

	log.Info().
		Str("base", cfg.SocrataBase).
		Str("dataset", cfg.SocrataDataset).
		Ints64("cities", cfg.CityIDs).
		Int("days_back", cfg.IngestDaysBack).
		Msg("crime ingest starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	fields := socrata.LAPDFields()
	if cfg.SocrataFields == "nypd" {
		fields = socrata.NYPDFields()
	}
	crimes := socrata.New(cfg.SocrataBase, cfg.SocrataDataset, cfg.SocrataToken, fields, cfg.SocrataRPS)

	pipeline := app.NewMetricsPipeline(crimes, repo, cache, cfg.SocrataFields, cfg.TrustHours)
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, id := range cfg.CityIDs {
		id := id

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(cityID int64) {
			defer wg.Done()
			defer sem.Release(1)

			n, err := pipeline.Run(ctx, cityID, cfg.IngestDaysBack, cfg.IngestMaxRecords)
			if err != nil {
				log.Warn().Int64("city", cityID).Err(err).Msg("ingest failed")
				return
			}
			observability.ObservePipeline("crime", strconv.FormatInt(cityID, 10), n)
			log.Info().Int64("city", cityID).Int("incidents", n).Msg("ingest ok")
		}(id)
	}

	wg.Wait()
	log.Info().Msg("crime ingestion completed")
}
