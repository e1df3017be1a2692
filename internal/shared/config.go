package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	SocrataBase    string
	SocrataDataset string
	SocrataToken   string
	SocrataFields  string // "lapd" or "nypd"
	SocrataRPS     int

	OverpassURL string
	OverpassRPS int

	MapboxBase  string
	MapboxToken string
	MapboxRPS   int

	ApifyBase    string
	ApifyToken   string
	ApifyDataset string
	ApifyRPS     int

	OpenAIKey   string
	OpenAIModel string
	OpenAIRPS   int

	CityIDs []int64
	Workers int

	IngestDaysBack   int
	IngestMaxRecords int
	TrustHours       bool

	OpinionLimit  int
	ClassifyLimit int

	CacheTTL    time.Duration
	TakeawayTTL time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""), // empty disables the standalone listener
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/safestay?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPass:   env("REDIS_PASSWORD", ""),

		SocrataBase:    env("SOCRATA_BASE_URL", "https://data.lacity.org"),
		SocrataDataset: env("SOCRATA_DATASET", "2nrs-mtv8"),
		SocrataToken:   env("SOCRATA_APP_TOKEN", ""),
		SocrataFields:  env("SOCRATA_FIELDS", "lapd"),
		SocrataRPS:     atoi("SOCRATA_RPS", 5),

		OverpassURL: env("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OverpassRPS: atoi("OVERPASS_RPS", 1),

		MapboxBase:  env("MAPBOX_BASE_URL", "https://api.mapbox.com"),
		MapboxToken: env("MAPBOX_TOKEN", ""),
		MapboxRPS:   atoi("MAPBOX_RPS", 5),

		ApifyBase:    env("APIFY_BASE_URL", "https://api.apify.com"),
		ApifyToken:   env("APIFY_TOKEN", ""),
		ApifyDataset: env("APIFY_DATASET", ""),
		ApifyRPS:     atoi("APIFY_RPS", 2),

		OpenAIKey:   env("OPENAI_API_KEY", ""),
		OpenAIModel: env("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIRPS:   atoi("OPENAI_RPS", 2),

		CityIDs: cityIDs(env("CITY_IDS", "1")),
		Workers: atoi("WORKERS", 4),

		IngestDaysBack:   atoi("INGEST_DAYS_BACK", 180),
		IngestMaxRecords: atoi("INGEST_MAX_RECORDS", 100000),
		TrustHours:       env("INGEST_TRUST_HOURS", "true") == "true",

		OpinionLimit:  atoi("OPINION_LIMIT", 2000),
		ClassifyLimit: atoi("CLASSIFY_LIMIT", 500),

		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		TakeawayTTL: time.Duration(atoi("TAKEAWAY_TTL_SECONDS", 7*24*3600)) * time.Second,
	}
	if c.MapboxToken == "" {
		log.Warn().Msg("MAPBOX_TOKEN is empty")
	}
	if c.OpenAIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// cityIDs parses a comma-separated id list, dropping anything unparsable.
func cityIDs(s string) []int64 {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, id)
		} else {
			log.Warn().Str("value", part).Msg("ignoring bad city id")
		}
	}
	return out
}
