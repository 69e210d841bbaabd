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

// ResetTokenTTL is how long a password reset token stays valid
const ResetTokenTTL = time.Hour

const (
	defaultJWTSecret = "default_secret"
	defaultAdminCode = "default_admin_code"
)

// Config holds all configuration for the application
type Config struct {
	AppMode      string
	Port         string
	AdminCode    string
	StoreTimeout time.Duration
	AuthRateMax  int
	BcryptCost   int
	PhoneRegion  string
	Database     DatabaseConfig
	JWT          JWTConfig
	SMTP         SMTPConfig
	Kafka        KafkaConfig
	Seed         SeedConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // mysql | postgres | mongo | memory
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	MongoURI string
}

// JWTConfig holds session token configuration
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// SMTPConfig holds password reset mail delivery configuration
type SMTPConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	From         string
	ResetURLBase string
}

// Enabled reports whether mail delivery is configured
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// KafkaConfig holds event publishing configuration
type KafkaConfig struct {
	Broker string
	Topic  string
}

// Enabled reports whether event publishing is configured
func (k KafkaConfig) Enabled() bool {
	return k.Broker != ""
}

// SeedConfig holds the bootstrap administrator account
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	database, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		AppMode:      appMode,
		Port:         getEnv("PORT", "3000"),
		AdminCode:    getEnv("ADMIN_CODE", defaultAdminCode),
		StoreTimeout: time.Duration(getEnvInt("STORE_TIMEOUT_SECONDS", 10)) * time.Second,
		AuthRateMax:  getEnvInt("AUTH_RATE_LIMIT", 10),
		BcryptCost:   getEnvInt("BCRYPT_COST", 12),
		PhoneRegion:  getEnv("PHONE_REGION", "US"),
		Database:     database,
		JWT:          loadJWTConfig(),
		SMTP:         loadSMTPConfig(),
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_TOPIC", "registration-events"),
		},
		Seed: SeedConfig{
			AdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
	}

	if config.IsProd() {
		if config.JWT.Secret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in prod mode")
		}
		if config.AdminCode == defaultAdminCode {
			return nil, fmt.Errorf("ADMIN_CODE must be set in prod mode")
		}
	}

	log.Printf("✅ Configuration loaded successfully [MODE: %s, DB: %s]", appMode, database.Driver)
	return config, nil
}

// loadDatabaseConfig loads database config
func loadDatabaseConfig() (DatabaseConfig, error) {
	driver := strings.ToLower(getEnv("DB_DRIVER", "mysql"))

	defaultPort := "3306"
	switch driver {
	case "mysql", "mongo", "memory":
	case "postgres":
		defaultPort = "5432"
	default:
		return DatabaseConfig{}, fmt.Errorf("invalid DB_DRIVER: '%s' (must be mysql, postgres, mongo or memory)", driver)
	}

	return DatabaseConfig{
		Driver:   driver,
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", defaultPort),
		User:     getEnv("DB_USER", "root"),
		Password: getEnv("DB_PASS", ""),
		DBName:   getEnv("DB_NAME", "attendtrack"),
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
	}, nil
}

// loadJWTConfig loads JWT config
func loadJWTConfig() JWTConfig {
	return JWTConfig{
		Secret: getEnv("JWT_SECRET", defaultJWTSecret),
		Expiry: time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 7*24)) * time.Hour,
	}
}

// loadSMTPConfig loads SMTP config
func loadSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host:         getEnv("SMTP_HOST", ""),
		Port:         getEnvInt("SMTP_PORT", 587),
		User:         getEnv("SMTP_USER", ""),
		Password:     getEnv("SMTP_PASS", ""),
		From:         getEnv("SMTP_FROM", ""),
		ResetURLBase: getEnv("RESET_URL_BASE", "http://localhost:5173/reset-password"),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable, falling back on parse errors
func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		log.Printf("⚠️ Invalid %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return n
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "http://localhost:5173"
	}
	return origins
}
