package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	AppMode       string
	CORSOrigins   []string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	DBSSLMode     string
	JWTSecret     string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	ObjectStore ObjectStoreConfig
	Upload      UploadConfig
	RateLimit   RateLimitConfig
	Summarizer  SummarizerConfig
	Tracing     TracingConfig
}

// ObjectStoreConfig selects and configures the attachment blob backend.
type ObjectStoreConfig struct {
	Backend      string // "s3" or "gcs"
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	EmulatorHost string
	PublicBase   string
	PublicPrefix string
}

type UploadConfig struct {
	MaxRequestBytes     int64
	CompensationTimeout time.Duration
	OrphanGracePeriod   time.Duration
	OrphanSweepInterval time.Duration
}

type RateLimitConfig struct {
	UploadLimit   int
	UploadWindow  time.Duration
	SummaryLimit  int
	SummaryWindow time.Duration
	VoteLimit     int
	VoteWindow    time.Duration
}

type SummarizerConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	SampleRatio float64
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	bucket := getEnv("OBJECT_STORE_BUCKET", "notes")

	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		AppMode:       getEnv("APP_MODE", "debug"),
		CORSOrigins:   getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "studynotes"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		ObjectStore: ObjectStoreConfig{
			Backend:      strings.ToLower(getEnv("OBJECT_STORE_BACKEND", "s3")),
			Bucket:       bucket,
			Region:       getEnv("OBJECT_STORE_REGION", "us-east-1"),
			Endpoint:     getEnv("OBJECT_STORE_ENDPOINT", ""),
			AccessKey:    getEnv("OBJECT_STORE_ACCESS_KEY", ""),
			SecretKey:    getEnv("OBJECT_STORE_SECRET_KEY", ""),
			EmulatorHost: getEnv("OBJECT_STORE_EMULATOR_HOST", ""),
			PublicBase:   getEnv("OBJECT_STORE_PUBLIC_BASE", ""),
			PublicPrefix: getEnv("OBJECT_STORE_PUBLIC_PREFIX", bucket),
		},
		Upload: UploadConfig{
			MaxRequestBytes:     int64(getEnvAsInt("UPLOAD_MAX_REQUEST_BYTES", 16<<20)),
			CompensationTimeout: getEnvAsDuration("UPLOAD_COMPENSATION_TIMEOUT", 10*time.Second),
			OrphanGracePeriod:   getEnvAsDuration("ORPHAN_GRACE_PERIOD", 24*time.Hour),
			OrphanSweepInterval: getEnvAsDuration("ORPHAN_SWEEP_INTERVAL", 0),
		},
		RateLimit: RateLimitConfig{
			UploadLimit:   getEnvAsInt("RATE_LIMIT_UPLOADS", 20),
			UploadWindow:  getEnvAsDuration("RATE_LIMIT_UPLOADS_WINDOW", time.Minute),
			SummaryLimit:  getEnvAsInt("RATE_LIMIT_SUMMARIES", 5),
			SummaryWindow: getEnvAsDuration("RATE_LIMIT_SUMMARIES_WINDOW", time.Minute),
			VoteLimit:     getEnvAsInt("RATE_LIMIT_VOTES", 120),
			VoteWindow:    getEnvAsDuration("RATE_LIMIT_VOTES_WINDOW", time.Minute),
		},
		Summarizer: SummarizerConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			Timeout: getEnvAsDuration("GEMINI_TIMEOUT", 60*time.Second),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "studynotes"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
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

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "5m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
