package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	DealsBase   string
	DealsToken  string
	DealsRPS    int
	AdminToken  string
	Workers     int
	CacheTTL    time.Duration

	LabelMaxLen       int
	LabelPlacesMaxLen int
}

// Load reads the environment. A .env file in the working directory, when
// present, fills variables that are not already set.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/deals?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		DealsBase:   env("DEALS_API_BASE_URL", "http://localhost:4000/api"),
		DealsToken:  env("DEALS_API_TOKEN", ""),
		DealsRPS:    atoi("DEALS_API_RPS", 5),
		AdminToken:  env("ADMIN_TOKEN", ""),
		Workers:     atoi("SYNC_WORKERS", 8),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		LabelMaxLen:       atoi("LABEL_MAX_LEN", 40),
		LabelPlacesMaxLen: atoi("LABEL_PLACES_MAX_LEN", 25),
	}
	if c.DealsToken == "" {
		log.Warn().Msg("DEALS_API_TOKEN is empty")
	}
	if c.AdminToken == "" && c.AppEnv != "dev" {
		log.Warn().Msg("ADMIN_TOKEN is empty; admin routes are unauthenticated")
	}
	return c
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
	}
	return def
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
