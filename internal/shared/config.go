package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StoreDriver string // memory | mysql | mongo
	MySQLDSN    string
	MongoURI    string
	MongoDB     string

	CacheDriver string // memory | redis | none
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	HostawayBase    string
	HostawayAccount string
	HostawayKey     string
	HostawayTimeout time.Duration
	HostawayRPS     int

	PlacesKey  string
	PlacesBase string

	AllowedOrigins []string
	SyncCron       string
	Workers        int

	PlaceIDTTL      time.Duration
	PlaceDetailsTTL time.Duration
}

// Load reads the environment once, after merging an optional .env file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env could not be loaded")
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    httpAddr(),
		MetricsAddr: env("METRICS_ADDR", ""),

		StoreDriver: strings.ToLower(env("STORE_DRIVER", "memory")),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/flex?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		MongoURI:    env("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:     env("MONGO_DB", "flexliving"),

		CacheDriver: strings.ToLower(env("CACHE_DRIVER", "memory")),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		HostawayBase:    env("HOSTAWAY_BASE_URL", "https://api.hostaway.com/v1"),
		HostawayAccount: env("HOSTAWAY_ACCOUNT", ""),
		HostawayKey:     env("HOSTAWAY_API_KEY", ""),
		HostawayTimeout: duration("HOSTAWAY_TIMEOUT", 5*time.Second),
		HostawayRPS:     atoi("HOSTAWAY_RPS", 5),

		PlacesKey:  env("GOOGLE_PLACES_KEY", ""),
		PlacesBase: env("GOOGLE_PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),

		AllowedOrigins: parseList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		SyncCron:       env("SYNC_CRON", ""),
		Workers:        atoi("INGEST_WORKERS", 8),

		PlaceIDTTL:      duration("PLACE_ID_CACHE_TTL", time.Hour),
		PlaceDetailsTTL: duration("PLACE_DETAILS_CACHE_TTL", 10*time.Minute),
	}
	if !c.HostawayEnabled() {
		log.Warn().Msg("HOSTAWAY_ACCOUNT or HOSTAWAY_API_KEY is empty, reviews sync from seed data only")
	}
	return c
}

// HostawayEnabled reports whether both credentials are present.
func (c Config) HostawayEnabled() bool {
	return c.HostawayAccount != "" && c.HostawayKey != ""
}

func env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
	}
	return def
}

// duration accepts Go durations ("90s") or plain seconds ("90").
func duration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Warn().Str("key", k).Str("value", v).Msg("invalid duration, using default")
	return def
}

// httpAddr prefers HTTP_ADDR, then PORT.
func httpAddr() string {
	if v := env("HTTP_ADDR", ""); v != "" {
		return v
	}
	if p := env("PORT", ""); p != "" {
		return ":" + p
	}
	return ":8080"
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
