package main

import (
	"os"

	_ "github.com/CodingEnthusiastic/oodo-hacks-sub000/api/swagger" // swagger docs
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/cache"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/database"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/handler"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/middleware"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/repository"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/service"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/websocket"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// @title           Inventory Management API
// @version         1.0
// @description     Warehouse inventory API: products, warehouses, stock operations and reconciliation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	log := logger.New(logger.Config{
		Env:   getenv("APP_ENV", "development"),
		Level: getenv("LOG_LEVEL", "info"),
	})

	if err := godotenv.Load("configs/.env"); err != nil {
		log.Info().Msg("no configs/.env file found, using environment")
	}

	dsn := "postgres://" + getenv("DB_USER", "postgres") +
		":" + getenv("DB_PASSWORD", "postgres") +
		"@" + getenv("DB_HOST", "localhost") +
		":" + getenv("DB_PORT", "5432") +
		"/" + getenv("DB_NAME", "inventory") +
		"?sslmode=" + getenv("DB_SSLMODE", "disable")

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to PostgreSQL")

	// Redis is optional; the dashboard falls back to uncached queries.
	var cacheClient cache.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient, redisErr := cache.NewRedisClient(addr)
		if redisErr != nil {
			log.Warn().Err(redisErr).Str("addr", addr).Msg("redis unavailable, caching disabled")
		} else {
			cacheClient = redisClient
			log.Info().Str("addr", addr).Msg("connected to Redis")
		}
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	resetRepo := repository.NewPasswordResetRepository(db)
	productRepo := repository.NewProductRepository(db)
	warehouseRepo := repository.NewWarehouseRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	operationRepo := repository.NewOperationRepository(db)
	stockRepo := repository.NewStockRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Services
	userService := service.NewUserService(userRepo, resetRepo, txManager, service.NewLogMailer(log), log)
	productService := service.NewProductService(productRepo, operationRepo, auditRepo, txManager)
	warehouseService := service.NewWarehouseService(warehouseRepo, locationRepo, operationRepo, auditRepo, txManager)
	operationService := service.NewOperationService(operationRepo, stockRepo, productRepo, locationRepo, auditRepo, txManager, wsHub, cacheClient, log)
	stockService := service.NewStockService(stockRepo, productRepo)
	auditService := service.NewAuditService(auditRepo)
	dashboardService := service.NewDashboardService(db, cacheClient, log)

	// Handlers
	userHandler := handler.NewUserHandler(userService)
	productHandler := handler.NewProductHandler(productService)
	warehouseHandler := handler.NewWarehouseHandler(warehouseService)
	operationHandler := handler.NewOperationHandler(operationService)
	stockHandler := handler.NewStockHandler(stockService)
	auditHandler := handler.NewAuditHandler(auditService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// API routing
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	productHandler.RegisterRoutes(root)
	warehouseHandler.RegisterRoutes(root)
	operationHandler.RegisterRoutes(root)
	stockHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)
	dashboardHandler.RegisterRoutes(root)

	port := getenv("PORT", "8080")
	log.Info().Str("port", port).Msg("server listening")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
