package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"comandero_backend/internal/clients"
	"comandero_backend/internal/database"
	"comandero_backend/internal/events"
	router_pkg "comandero_backend/internal/router"
	"comandero_backend/internal/store"
	"comandero_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize Logger
	utils.InitLogger() // Initialize zerolog

	// Load database configuration from environment variables
	dbHost := utils.Getenv("DB_HOST", "localhost")
	dbPort := utils.Getenv("DB_PORT", "5432")
	dbUser := utils.Getenv("DB_USER", "comandero_user")
	dbPassword := utils.Getenv("DB_PASSWORD", "comandero_password")
	dbName := utils.Getenv("DB_NAME", "comandero_db")
	dbSSLMode := utils.Getenv("DB_SSLMODE", "disable")

	// Initialize Database
	database.InitDB(dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)
	utils.LogInfo("Database initialized", map[string]interface{}{"configured_from_env": true})

	// Comanda and production state lives in Redis when available, falling
	// back to the in-process store for local development.
	var kv store.Store
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisClient, err := database.InitRedis(redisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		kv = store.NewRedisStore(redisClient)
		utils.LogInfo("Redis store initialized", map[string]interface{}{"configured_from_env": true})
	} else {
		kv = store.NewMemoryStore()
		utils.LogInfo("In-memory store initialized; state will not survive restarts")
	}
	tenantStore := store.NewTenantStore(kv)

	// Collaborator APIs
	apiToken := utils.Getenv("API_BEARER_TOKEN", "")
	catalogClient := clients.NewCatalogClient(utils.Getenv("CATALOG_API_URL", "http://localhost:9000/api"), apiToken)
	salesClient := clients.NewSalesClient(utils.Getenv("SALES_API_URL", "http://localhost:9001/api"), apiToken)

	bus := events.NewBus()

	router := gin.Default()

	// Add GinLogger middleware for request logging
	router.Use(utils.GinLogger())

	// CORS configuration
	corsAllowedOriginsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	var allowedOrigins []string
	if corsAllowedOriginsEnv != "" {
		allowedOrigins = strings.Split(corsAllowedOriginsEnv, ",")
	} else {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"} // Default origins
	}

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowCredentials = true
	router.Use(cors.New(config))

	// Setup all application routes
	dbConn := database.GetDB()
	comandaService, boardHub := router_pkg.Setup(router, dbConn, tenantStore, catalogClient, salesClient, bus)

	// Background loops: websocket event pump and the periodic reconciliation
	// pass that keeps every board within one interval of the persisted state.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go boardHub.Run(ctx, bus)

	refreshSeconds, err := utils.StrToInt64(utils.Getenv("BOARD_REFRESH_SECONDS", "10"))
	if err != nil || refreshSeconds <= 0 {
		refreshSeconds = 10
	}
	comandaService.StartReconciler(ctx, time.Duration(refreshSeconds)*time.Second)

	// Server port configuration
	port := utils.Getenv("PORT", "8080") // Default to 8080 if not set
	utils.LogInfo("Server starting", map[string]interface{}{"port": port, "configured_from_env": true})

	if err := router.Run(":" + port); err != nil {
		utils.LogError(err, "Failed to start server")
		log.Fatalf("Failed to start server: %v", err)
	}
}
