package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backends de almacenamiento del carrito
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

type Config struct {
	Port     string
	MongoURI string
	MongoDB  string

	CartBackend         string
	CartDir             string
	PostgresDSN         string
	CartMaxLineQuantity int
	CartRateLimit       float64
	CartRateBurst       int
	CartIdleTimeout     time.Duration
	SecureCookies       bool

	CatalogSeedFile string
	CatalogCacheTTL time.Duration

	Currency string
	LogLevel string

	// EnvFile indica si se cargó un .env; EnvFileErr guarda el error al leerlo
	EnvFile    bool
	EnvFileErr error
}

func LoadConfig() *Config {
	cfg := &Config{}

	// Solo cargar .env en desarrollo local
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			cfg.EnvFileErr = err
		} else {
			cfg.EnvFile = true
		}
	}

	cfg.Port = getEnv("PORT", "8080")
	cfg.MongoURI = getEnv("MONGO_URI", "")
	cfg.MongoDB = getEnv("MONGO_DB", "babyfoodStore")

	cfg.CartBackend = strings.ToLower(getEnv("CART_BACKEND", BackendMemory))
	cfg.CartDir = getEnv("CART_DIR", "data/carts")
	cfg.PostgresDSN = getEnv("POSTGRES_DSN", "")
	cfg.CartMaxLineQuantity = getEnvInt("CART_MAX_LINE_QUANTITY", 99)
	cfg.CartRateLimit = getEnvFloat("CART_RATE_LIMIT", 5)
	cfg.CartRateBurst = getEnvInt("CART_RATE_BURST", 10)
	cfg.CartIdleTimeout = getEnvDuration("CART_IDLE_TIMEOUT", 30*time.Minute)
	cfg.SecureCookies = getEnvBool("SESSION_COOKIE_SECURE", false)

	cfg.CatalogSeedFile = getEnv("CATALOG_SEED_FILE", "")
	cfg.CatalogCacheTTL = getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute)

	cfg.Currency = strings.ToUpper(getEnv("CURRENCY", "MXN"))
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// getEnvInt usa fallback cuando el valor no es un entero positivo
func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
