package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// app config, read from the environment (and .env when present)
type Config struct {
	Port           string
	AllowedOrigins []string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret      string
	JWTTTL         time.Duration
	GoogleClientID string

	AIProvider        string
	AITimeout         time.Duration
	AIMaxRetries      int
	AIBreakerFailures int
	AIBreakerCooldown time.Duration

	UploadDir      string
	MaxUploadBytes int64
	UploadMaxAge   time.Duration

	WorkerCount    int
	JobMaxAttempts int
	JobStaleAfter  time.Duration
	SweepSchedule  string
}

var supportedProviders = map[string]bool{
	"aiservice": true,
	"gemini":    true,
}

// loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// a missing .env is fine, the process environment is used as is
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		MongoURI:    getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnvOrDefault("MONGO_DB_NAME", "ai_interviewer"),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTTTL:         getEnvDuration("JWT_TTL", 24*time.Hour),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		AIProvider:        getEnvOrDefault("AI_PROVIDER", "aiservice"),
		AITimeout:         getEnvDuration("AI_TIMEOUT", 60*time.Second),
		AIMaxRetries:      getEnvInt("AI_MAX_RETRIES", 3),
		AIBreakerFailures: getEnvInt("AI_BREAKER_FAILURES", 5),
		AIBreakerCooldown: getEnvDuration("AI_BREAKER_COOLDOWN", 30*time.Second),

		UploadDir:      getEnvOrDefault("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		UploadMaxAge:   getEnvDuration("UPLOAD_MAX_AGE", time.Hour),

		WorkerCount:    getEnvInt("WORKER_COUNT", 4),
		JobMaxAttempts: getEnvInt("JOB_MAX_ATTEMPTS", 3),
		JobStaleAfter:  getEnvDuration("JOB_STALE_AFTER", 10*time.Minute),
		SweepSchedule:  getEnvOrDefault("SWEEP_SCHEDULE", "@every 1m"),
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if !supportedProviders[config.AIProvider] {
		return errors.New("unsupported AI provider: " + config.AIProvider + ". Currently supported: aiservice, gemini")
	}
	if config.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1, got %d", config.WorkerCount)
	}
	if config.JobMaxAttempts < 1 {
		return fmt.Errorf("JOB_MAX_ATTEMPTS must be at least 1, got %d", config.JobMaxAttempts)
	}
	if config.AIMaxRetries < 0 {
		return fmt.Errorf("AI_MAX_RETRIES cannot be negative, got %d", config.AIMaxRetries)
	}
	if config.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", config.MaxUploadBytes)
	}
	// Gemini validation is handled by gemini.NewConfig()
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
