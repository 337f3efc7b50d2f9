package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"finanzas/internal/config"
	"finanzas/internal/database"
	"finanzas/internal/handlers"
	"finanzas/internal/logger"
	"finanzas/internal/middleware"
	"finanzas/internal/recurrence"
	"finanzas/internal/scheduler"
	"finanzas/internal/services"
	"finanzas/internal/validator"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	holidays := recurrence.NewHolidayCalendar(appConfig.Holidays)
	accountService := services.NewAccountService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db, accountService)
	recurringService := services.NewRecurringService(db, accountService)
	generationService := services.NewGenerationService(db, recurringService, holidays)
	dashboardService := services.NewDashboardService(db)

	// Start the generation scheduler
	sched, err := scheduler.New(appConfig, generationService)
	if err != nil {
		return fmt.Errorf("failed to build scheduler: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// Initialize handlers
	accountHandler := handlers.NewAccountHandler(accountService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	recurringHandler := handlers.NewRecurringHandler(recurringService, sched)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Account routes
	accounts := v1.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PUT("/:id", accountHandler.UpdateAccount)

	// Category routes
	categories := v1.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Transaction routes
	transactions := v1.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Recurring series routes
	recurring := v1.Group("/recurring")
	recurring.POST("/series", recurringHandler.CreateSeries)
	recurring.GET("/series", recurringHandler.GetActiveSeries)
	recurring.GET("/series/:id", recurringHandler.GetSeries)
	recurring.PUT("/series/:id", recurringHandler.UpdateSeries)
	recurring.PATCH("/series/:id/toggle", recurringHandler.ToggleSeries)
	recurring.DELETE("/series/:id", recurringHandler.DeleteSeries)
	recurring.GET("/series/:id/transactions", recurringHandler.GetSeriesTransactions)
	recurring.POST("/generate", recurringHandler.GenerateNow)
	recurring.POST("/validate-logic", recurringHandler.ValidateLogic)

	// Dashboard routes
	v1.GET("/dashboard/summary", dashboardHandler.GetSummary)

	// Serve until interrupted so the deferred scheduler stop runs.
	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting finanzas server on port %s", appConfig.Port)
		errCh <- router.Run(":" + appConfig.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Infof("Received %s, shutting down", sig)
		return nil
	}
}
