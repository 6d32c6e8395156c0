package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting for the check deposit service.
// All values come from the environment; a .env file is loaded first if present.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Recognition RecognitionConfig
	Deposit     DepositConfig
	Archive     ArchiveConfig

	// APIKeys maps an inbound API key to the caller (user) it authenticates.
	APIKeys map[string]string
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RecognitionConfig selects the recognition provider. When GeminiAPIKey is set
// the vision-model provider is used with a single combined request; otherwise
// the plain OCR provider at OCRBaseURL is called once per image.
type RecognitionConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	OCRBaseURL   string
	OCRAPIKey    string
	Debug        bool
}

type DepositConfig struct {
	// CoreURL is the downstream core-banking deposit endpoint.
	CoreURL string
	APIKey  string
}

// ArchiveConfig controls optional archival of check images and raw recognition
// output to a GCS bucket. Archival is disabled when Bucket is empty.
type ArchiveConfig struct {
	Bucket          string
	CredentialsFile string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "check_deposit"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Recognition: RecognitionConfig{
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			OCRBaseURL:   getEnv("OCR_BASE_URL", ""),
			OCRAPIKey:    getEnv("OCR_API_KEY", ""),
			Debug:        getEnvBool("DEBUG_RECOGNITION", false),
		},
		Deposit: DepositConfig{
			CoreURL: getEnv("CORE_DEPOSIT_URL", ""),
			APIKey:  getEnv("CORE_DEPOSIT_API_KEY", ""),
		},
		Archive: ArchiveConfig{
			Bucket:          getEnv("CHECK_IMAGE_BUCKET", ""),
			CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		},
	}

	keys, err := parseAPIKeys(getEnv("API_KEYS", ""))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.APIKeys = keys

	return cfg, nil
}

// DSN renders the Postgres connection string for pgx.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// HasProvider reports whether at least one recognition provider is configured.
func (r RecognitionConfig) HasProvider() bool {
	return r.GeminiAPIKey != "" || r.OCRBaseURL != ""
}

// parseAPIKeys parses "key1:user1,key2:user2" into a lookup map.
func parseAPIKeys(raw string) (map[string]string, error) {
	keys := make(map[string]string)
	if raw == "" {
		return keys, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed API_KEYS entry %q", pair)
		}
		keys[parts[0]] = parts[1]
	}
	return keys, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err == nil {
			return boolVal
		}
	}
	return defaultValue
}
