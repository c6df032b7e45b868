package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"restaurant_order_backend/pkg/utils"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SchemaPath string
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string // Empty disables the catalog cache
	Password string
	DB       int
	CacheTTL time.Duration
}

type RabbitMQConfig struct {
	URL      string // Empty disables event publication
	Exchange string
}

// Config is the runtime configuration of the server.
type Config struct {
	Port               string
	StorageDriver      string
	Database           DatabaseConfig
	Redis              RedisConfig
	RabbitMQ           RabbitMQConfig
	JWTSecret          string
	UnitOfWorkTimeout  time.Duration
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string
}

// Load reads the configuration from the environment. A .env file in the working directory is
// loaded first when present; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          utils.Getenv("PORT", "8080"),
		StorageDriver: strings.ToLower(utils.Getenv("STORAGE_DRIVER", StorageDriverPostgres)),
		Database: DatabaseConfig{
			Host:       utils.Getenv("DB_HOST", "localhost"),
			Port:       utils.Getenv("DB_PORT", "5432"),
			User:       utils.Getenv("DB_USER", "restaurant_user"),
			Password:   utils.Getenv("DB_PASSWORD", "restaurant_password"),
			Name:       utils.Getenv("DB_NAME", "restaurant_db"),
			SSLMode:    utils.Getenv("DB_SSLMODE", "disable"),
			SchemaPath: utils.Getenv("DB_SCHEMA_PATH", ""),
		},
		Redis: RedisConfig{
			Addr:     utils.Getenv("REDIS_ADDR", ""),
			Password: utils.Getenv("REDIS_PASSWORD", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      utils.Getenv("RABBITMQ_URL", ""),
			Exchange: utils.Getenv("ORDER_EVENTS_EXCHANGE", "orders"),
		},
		JWTSecret: utils.Getenv("JWT_SECRET", ""),
		LogLevel:  utils.Getenv("LOG_LEVEL", "info"),
		LogFormat: utils.Getenv("LOG_FORMAT", "console"),
	}

	if cfg.StorageDriver != StorageDriverPostgres && cfg.StorageDriver != StorageDriverMemory {
		return nil, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, cfg.StorageDriver)
	}

	var err error
	if cfg.Redis.DB, err = strconv.Atoi(utils.Getenv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.Redis.CacheTTL, err = parsePositiveDuration("CATALOG_CACHE_TTL", "5m"); err != nil {
		return nil, err
	}
	if cfg.UnitOfWorkTimeout, err = parsePositiveDuration("UNIT_OF_WORK_TIMEOUT", "5s"); err != nil {
		return nil, err
	}

	cfg.CORSAllowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	if origins := utils.Getenv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.CORSAllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	if utils.IsEmpty(cfg.JWTSecret) {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(utils.Getenv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
