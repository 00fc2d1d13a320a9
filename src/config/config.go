package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	LogLevel     string
	DatabasePath string
	TaxRatesPath string

	JWTSecret         string
	APIKey            string
	AccessTokenExpiry time.Duration

	// ProverMode selects the proving backend: "local" runs the in-process
	// Groth16 backend, "http" calls the external proving service.
	ProverMode    string
	ProverURL     string
	ProverTimeout time.Duration

	ProofWorkers   int
	ProofQueueSize int

	// JobStore selects where proof jobs live: "memory" or "sqlite".
	JobStore string

	MaxRequestBytes int64
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes")
	if jwtSecret == "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	apiKey := getEnv("API_KEY", "dev-api-key")
	if apiKey == "dev-api-key" {
		log.Println("WARNING: Using default insecure API_KEY. Set API_KEY environment variable for production.")
	}

	proverMode := getEnv("PROVER_MODE", "local")
	if proverMode != "local" && proverMode != "http" {
		log.Printf("WARNING: Invalid PROVER_MODE %q. Using 'local'.", proverMode)
		proverMode = "local"
	}
	proverURL := getEnv("PROVER_URL", "http://localhost:3001")
	if proverMode == "http" && proverURL == "" {
		log.Fatalf("FATAL: PROVER_URL is required when PROVER_MODE is 'http', but it's not set in environment or .env file.")
	}

	jobStore := getEnv("JOB_STORE", "memory")
	if jobStore != "memory" && jobStore != "sqlite" {
		log.Printf("WARNING: Invalid JOB_STORE %q. Using 'memory'.", jobStore)
		jobStore = "memory"
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DatabasePath: getEnv("DATABASE_PATH", "./financoor.db"),
		TaxRatesPath: getEnv("TAX_RATES_PATH", "data/taxRates.json"),

		JWTSecret:         jwtSecret,
		APIKey:            apiKey,
		AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute),

		ProverMode:    proverMode,
		ProverURL:     proverURL,
		ProverTimeout: getEnvAsDuration("PROVER_TIMEOUT", 10*time.Minute),

		ProofWorkers:   getEnvAsInt("PROOF_WORKERS", 2),
		ProofQueueSize: getEnvAsInt("PROOF_QUEUE_SIZE", 16),

		JobStore: jobStore,

		MaxRequestBytes: getEnvAsInt64("MAX_REQUEST_BYTES", 4*1024*1024),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, ProverMode=%s, JobStore=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.ProverMode, Cfg.JobStore)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
