package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Shopify  ShopifyConfig
	Siesa    SiesaConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ShopifyConfig holds storefront API credentials and request tuning.
type ShopifyConfig struct {
	ShopDomain     string
	AccessToken    string
	APIVersion     string
	WebhookSecret  string
	LocationID     string
	APITimeout     time.Duration
	RateLimitDelay time.Duration
	MaxRetries     int
}

// SiesaConfig holds ERP API credentials and flat-file export settings.
// SIESA reads the exported flat files from FlatFilesPath to import orders.
type SiesaConfig struct {
	APIURL            string
	Username          string
	Password          string
	TokenEndpoint     string
	InventoryEndpoint string
	APITimeout        time.Duration
	TokenCacheTTL     time.Duration
	FlatFilesPath     string
	FilePrefix        string
	DefaultWarehouse  string
	DefaultUnitCode   string
	DefaultCurrency   string
}

// JobsConfig tunes the background export and reconciliation jobs.
type JobsConfig struct {
	ExportInterval   time.Duration
	ExportBatchSize  int
	MaxAttempts      int
	StalledThreshold time.Duration
	SyncInterval     time.Duration
	SyncWorkers      int
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("APP_PORT", "8080"),
			Mode: getEnv("APP_MODE", "debug"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "siesa_sync"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Shopify: ShopifyConfig{
			ShopDomain:     getEnv("SHOPIFY_SHOP_DOMAIN", ""),
			AccessToken:    getEnv("SHOPIFY_ACCESS_TOKEN", ""),
			APIVersion:     getEnv("SHOPIFY_API_VERSION", "2024-01"),
			WebhookSecret:  getEnv("SHOPIFY_WEBHOOK_SECRET", ""),
			LocationID:     getEnv("SHOPIFY_INVENTORY_LOCATION_ID", ""),
			APITimeout:     getEnvAsSeconds("SHOPIFY_API_TIMEOUT", 30),
			RateLimitDelay: getEnvAsMillis("SHOPIFY_RATE_LIMIT_DELAY", 500),
			MaxRetries:     getEnvAsInt("SHOPIFY_MAX_RETRIES", 3),
		},
		Siesa: SiesaConfig{
			APIURL:            getEnv("SIESA_API_URL", "http://localhost:8000"),
			Username:          getEnv("SIESA_USERNAME", ""),
			Password:          getEnv("SIESA_PASSWORD", ""),
			TokenEndpoint:     getEnv("SIESA_TOKEN_ENDPOINT", "/token"),
			InventoryEndpoint: getEnv("SIESA_INVENTORY_ENDPOINT", "/api/CONSINV1"),
			APITimeout:        getEnvAsSeconds("SIESA_API_TIMEOUT", 30),
			TokenCacheTTL:     getEnvAsSeconds("SIESA_TOKEN_CACHE_TTL", 3600),
			FlatFilesPath:     getEnv("SIESA_FLAT_FILES_PATH", "siesa/pedidos"),
			FilePrefix:        getEnv("SIESA_FILE_PREFIX", "PEDIDO_"),
			DefaultWarehouse:  getEnv("SIESA_DEFAULT_WAREHOUSE", "001"),
			DefaultUnitCode:   getEnv("SIESA_DEFAULT_UNIT_CODE", "UND"),
			DefaultCurrency:   getEnv("SIESA_DEFAULT_CURRENCY", "COP"),
		},
		Jobs: JobsConfig{
			ExportInterval:   getEnvAsSeconds("EXPORT_INTERVAL", 60),
			ExportBatchSize:  getEnvAsInt("EXPORT_BATCH_SIZE", 50),
			MaxAttempts:      getEnvAsInt("EXPORT_MAX_ATTEMPTS", 3),
			StalledThreshold: getEnvAsSeconds("EXPORT_STALLED_THRESHOLD", 900),
			SyncInterval:     getEnvAsSeconds("SYNC_INTERVAL", 3600),
			SyncWorkers:      getEnvAsInt("SYNC_WORKERS", 5),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}

func getEnvAsMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Millisecond
}
