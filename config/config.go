package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	RawPath    string
	DataPath   string
	ModelPath  string
	ScalerPath string
	OutputDir  string
	ZonesFile  string
	LogLevel   string

	StoreDriver      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string

	HTTPAddr string

	CityCenterLat float64
	CityCenterLng float64
	BBox          string

	OutlierK      float64
	OutlierPolicy string
	MinArea       float64
	MaxArea       float64
	MinPrice      float64
	MaxPrice      float64
	ZoneCount     int

	RangeBand            float64
	OverpricedThreshold  float64
	UnderpricedThreshold float64
	CompsN               int

	OverpassURL string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	ChromeBin      string
	URLsFile       string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		RawPath:    getEnv("RAW_PATH", "data/raw_listings.json"),
		DataPath:   getEnv("DATA_PATH", "data/final_data.json"),
		ModelPath:  getEnv("MODEL_PATH", "model/model.json"),
		ScalerPath: getEnv("SCALER_PATH", "model/scaler.json"),
		OutputDir:  getEnv("OUTPUT_DIR", "./output"),
		ZonesFile:  getEnv("ZONES_FILE", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", "none")),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "estate"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "estate123"),
		PostgresDB:       getEnv("POSTGRES_DB", "listings_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "./output/listings.db"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),

		CityCenterLat: getEnvFloat("CITY_CENTER_LAT", 41.3275),
		CityCenterLng: getEnvFloat("CITY_CENTER_LNG", 19.8187),
		BBox:          getEnv("BBOX", "41.25,19.65,41.45,20.00"),

		OutlierK:      getEnvFloat("OUTLIER_K", 2.5),
		OutlierPolicy: strings.ToLower(getEnv("OUTLIER_POLICY", "delete")),
		MinArea:       getEnvFloat("MIN_AREA", 15),
		MaxArea:       getEnvFloat("MAX_AREA", 300),
		MinPrice:      getEnvFloat("MIN_PRICE", 10000),
		MaxPrice:      getEnvFloat("MAX_PRICE", 2000000),
		ZoneCount:     getEnvInt("ZONE_COUNT", 3),

		RangeBand:            getEnvFloat("RANGE_BAND", 0.08),
		OverpricedThreshold:  getEnvFloat("OVERPRICED_THRESHOLD", 1.10),
		UnderpricedThreshold: getEnvFloat("UNDERPRICED_THRESHOLD", 0.90),
		CompsN:               getEnvInt("N_COMPS", 5),

		OverpassURL: getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		URLsFile:       getEnv("URLS_FILE", "data/listing_urls.txt"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.OutlierPolicy {
	case "delete", "cap", "flag":
	default:
		return fmt.Errorf("config: OUTLIER_POLICY must be delete, cap or flag, got %q", c.OutlierPolicy)
	}
	switch c.StoreDriver {
	case "none", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: STORE_DRIVER must be none, postgres or sqlite, got %q", c.StoreDriver)
	}
	if c.OutlierK < 0 {
		return fmt.Errorf("config: OUTLIER_K must be >= 0, got %v", c.OutlierK)
	}
	if c.RangeBand <= 0 || c.RangeBand >= 1 {
		return fmt.Errorf("config: RANGE_BAND must be in (0, 1), got %v", c.RangeBand)
	}
	if c.MinArea > c.MaxArea || c.MinPrice > c.MaxPrice {
		return fmt.Errorf("config: plausibility window is inverted")
	}
	if c.ZoneCount < 1 {
		return fmt.Errorf("config: ZONE_COUNT must be >= 1, got %d", c.ZoneCount)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
