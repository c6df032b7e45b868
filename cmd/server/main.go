package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant_order_backend/internal/config"
	"restaurant_order_backend/internal/database"
	"restaurant_order_backend/internal/messaging"
	"restaurant_order_backend/internal/repositories"
	"restaurant_order_backend/internal/router"
	"restaurant_order_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.InitLogger("info", "console")
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	utils.SetJWTSecret(cfg.JWTSecret)

	deps := router.Dependencies{
		CatalogCacheTTL:   cfg.Redis.CacheTTL,
		UnitOfWorkTimeout: cfg.UnitOfWorkTimeout,
	}

	if cfg.StorageDriver == config.StorageDriverMemory {
		store := repositories.NewMemoryStore()
		if err := seedDemoCatalog(store, time.Now()); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed in-memory catalog")
		}
		deps.Memory = store
		utils.LogInfo("Using in-memory storage", map[string]interface{}{"seeded": true})
	} else {
		db, err := database.InitDB(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()
		deps.DB = db
	}

	redisClient, err := database.InitRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		deps.Redis = redisClient
	}

	if cfg.RabbitMQ.URL != "" {
		publisher, err := messaging.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to rabbitmq")
		}
		defer publisher.Close()
		deps.Publisher = publisher
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.GinLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	router.Setup(engine, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port, "storage": cfg.StorageDriver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.LogInfo("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.LogError(err, "Server forced to shutdown")
	}
}
