package main

import (
	"context"  // context package is needed for Redis operations
	"log"      // log package is needed for logging
	"net/http" // HTTP status codes

	"party_credits/internal/api"        // Custom package for API handlers
	"party_credits/internal/config"     // Custom package for configuration
	"party_credits/internal/db"         // Custom package for database access
	"party_credits/internal/ledger"     // Ledger service
	"party_credits/internal/middleware" // Custom package for middleware

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	gormDB, err := db.Open(dsn)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := ledger.New(gormDB) // Ledger service over the database handle

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Static pages
	r.StaticFile("/login.html", "./public/login.html")         // Login page
	r.StaticFile("/dashboard.html", "./public/dashboard.html") // Dashboard page
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/login.html") // Root goes to the login page
	})

	// Auth routes
	r.POST("/login", api.LoginHandler(gormDB, redisClient, cfg.JWTSecret)) // Login endpoint
	r.GET("/logout", api.LogoutHandler(redisClient, cfg.JWTSecret))        // Logout endpoint

	// User routes (session required)
	userGroup := r.Group("/api")
	userGroup.Use(middleware.AuthMiddleware(cfg.JWTSecret, redisClient))
	userGroup.GET("/user", api.GetUserHandler(svc, redisClient))       // Caller's account info endpoint
	userGroup.GET("/users", api.ListUsersHandler(svc, redisClient))    // Other usernames endpoint
	userGroup.POST("/transfer", api.TransferHandler(svc, redisClient)) // Credit transfer endpoint

	// Admin routes (session required, admin only)
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(cfg.JWTSecret, redisClient), middleware.AdminOnlyMiddleware(gormDB))
	adminGroup.POST("/adduser", api.AddUserHandler(svc, redisClient, cfg.StartingCredits)) // Provision account endpoint
	adminGroup.POST("/modcredits", api.ModCreditsHandler(svc, redisClient))                // Adjust credits endpoint
	adminGroup.POST("/setcredits", api.SetCreditsHandler(svc, redisClient))                // Set exact credits endpoint
	adminGroup.POST("/deleteuser", api.DeleteUserHandler(svc, redisClient))                // Delete account endpoint
	adminGroup.GET("/leaderboard", api.LeaderboardHandler(svc, redisClient))               // Leaderboard endpoint
	adminGroup.GET("/transactions", api.ListTransactionsHandler(svc, redisClient))         // Audit trail endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
