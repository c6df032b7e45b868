package router

import (
	"net/http"
	"time"

	"restaurant_order_backend/internal/handlers"
	"restaurant_order_backend/internal/middleware"
	"restaurant_order_backend/internal/repositories"
	"restaurant_order_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Dependencies are the storage and messaging backends the routes are built on.
// Exactly one of DB and Memory is set. Redis and Publisher are optional.
type Dependencies struct {
	DB                *sqlx.DB
	Memory            *repositories.MemoryStore
	Redis             *redis.Client
	CatalogCacheTTL   time.Duration
	Publisher         services.OrderEventPublisher
	UnitOfWorkTimeout time.Duration
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, deps Dependencies) {
	// Initialize Repositories
	var (
		catalogRepo repositories.CatalogRepository
		orderStore  repositories.OrderStore
	)
	if deps.Memory != nil {
		catalogRepo = deps.Memory
		orderStore = deps.Memory
	} else {
		catalogRepo = repositories.NewCatalogRepository(deps.DB)
		orderStore = repositories.NewPostgresOrderStore(deps.DB, repositories.NewOrderRepository(deps.DB), repositories.NewStockRepository())
	}
	if deps.Redis != nil {
		catalogRepo = repositories.NewCachedCatalogRepository(catalogRepo, deps.Redis, deps.CatalogCacheTTL)
	}

	// Initialize Services
	orderService := services.NewOrderService(catalogRepo, orderStore, deps.Publisher, deps.UnitOfWorkTimeout)

	// Initialize Handlers
	orderHandler := handlers.NewOrderHandler(orderService)

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := engine.Group("/api/v1")

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupOrderRoutes(authenticated, orderHandler)
	}
}
