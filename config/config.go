package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	App       AppConfig
}

type ServerConfig struct {
	Port      string
	PublicURL string
}

type StorageConfig struct {
	// Backend selects the blob store implementation: "redis" or "postgres".
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PostgresDSN   string
}

// AdminAccount is one entry of the administrator allow-list. The
// password itself is the credential; there are no admin usernames.
type AdminAccount struct {
	Password string
	ID       string
	Name     string
}

type AuthConfig struct {
	Accounts      []AdminAccount
	AdminTokenTTL time.Duration
	JWTSigningKey string
	JWTExpiration time.Duration
}

type RateLimitConfig struct {
	ClientRPS   int
	ClientBurst int
}

type AppConfig struct {
	Environment string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnv("PORT", "8080"),
			PublicURL: getEnv("PUBLIC_URL", ""),
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", "redis"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			PostgresDSN:   getEnv("DB_DSN", ""),
		},
		Auth: AuthConfig{
			Accounts:      parseAdminAccounts(getEnv("ADMIN_ACCOUNTS", "admin-dev-password:acc_dev:Developer")),
			AdminTokenTTL: time.Duration(getEnvAsInt("ADMIN_TOKEN_TTL_MINUTES", 720)) * time.Minute,
			JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-signing-key"),
			JWTExpiration: time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		},
		RateLimit: RateLimitConfig{
			ClientRPS:   getEnvAsInt("CLIENT_RATE_LIMIT_RPS", 20),
			ClientBurst: getEnvAsInt("CLIENT_RATE_LIMIT_BURST", 40),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:" + cfg.Server.Port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Storage.Backend {
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("DB_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be redis or postgres, got %q", c.Storage.Backend)
	}

	if len(c.Auth.Accounts) == 0 {
		return fmt.Errorf("ADMIN_ACCOUNTS must list at least one account")
	}

	return nil
}

// parseAdminAccounts reads a comma-separated list of
// password:accountId:displayName triples.
func parseAdminAccounts(raw string) []AdminAccount {
	var out []AdminAccount
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			log.Printf("Warning: skipping malformed ADMIN_ACCOUNTS entry %q", entry)
			continue
		}
		out = append(out, AdminAccount{Password: parts[0], ID: parts[1], Name: parts[2]})
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}
