package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "safestay/internal/adapters/http_server"
	"safestay/internal/adapters/llm"
	"safestay/internal/adapters/observability"
	"safestay/internal/adapters/overpass"
	redisad "safestay/internal/adapters/redis"
	"safestay/internal/app"
	"safestay/internal/shared"
	mysqlrepo "safestay/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger("api", cfg.AppEnv)

	observability.Serve(cfg.MetricsAddr)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	poi := overpass.New(cfg.OverpassURL, cfg.OverpassRPS)
	analyst := llm.New(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIRPS)

	reports := app.NewReportService(repo, cache, poi, cfg.CacheTTL)
	takeaways := app.NewTakeawayService(repo, analyst, cfg.TakeawayTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Reports: reports, Takeaways: takeaways})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
