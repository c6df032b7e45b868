package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"restaurant_order_backend/internal/config"
	"restaurant_order_backend/pkg/utils"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// InitDB opens and pings the PostgreSQL pool, then applies the schema when a path is configured.
func InitDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	utils.LogInfo("Successfully connected to the database", map[string]interface{}{"host": cfg.Host, "name": cfg.Name})

	if err := applySchema(db, cfg.SchemaPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// applySchema reads and executes the schema file
func applySchema(db *sqlx.DB, schemaPath string) error {
	if schemaPath == "" {
		utils.LogInfo("No schema path provided, skipping schema application")
		return nil
	}
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("could not read schema file %s: %w", schemaPath, err)
	}

	if _, err := db.Exec(string(content)); err != nil {
		return fmt.Errorf("could not execute schema script: %w", err)
	}
	utils.LogInfo("Database schema applied successfully", map[string]interface{}{"path": schemaPath})
	return nil
}

// InitRedis connects to Redis. It returns nil when no address is configured.
func InitRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("error connecting to redis at %s: %w", cfg.Addr, err)
	}
	utils.LogInfo("Successfully connected to redis", map[string]interface{}{"addr": cfg.Addr})
	return client, nil
}
