package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"finanzas/internal/config"
	"finanzas/internal/handlers"
	"finanzas/internal/logger"
	"finanzas/internal/middleware"
	"finanzas/internal/models"
	"finanzas/internal/recurrence"
	"finanzas/internal/scheduler"
	"finanzas/internal/services"
	"finanzas/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:integrationdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.Account{},
		&models.Category{},
		&models.Transaction{},
		&models.RecurringSeries{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	cfg := &config.Config{
		SchedulerTimezone: "America/Bogota",
		WindowStartHour:   7,
		WindowEndHour:     22,
		BackstopHour:      6,
		RetentionYears:    2,
	}

	// Services
	holidays := recurrence.NewHolidayCalendar(cfg.Holidays)
	accountService := services.NewAccountService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db, accountService)
	recurringService := services.NewRecurringService(db, accountService)
	generationService := services.NewGenerationService(db, recurringService, holidays)
	dashboardService := services.NewDashboardService(db)

	// The scheduler is built but never started; manual generation goes
	// through its trigger just like in production.
	sched, err := scheduler.New(cfg, generationService)
	if err != nil {
		t.Fatalf("failed to build scheduler: %v", err)
	}

	// Handlers
	accountHandler := handlers.NewAccountHandler(accountService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	recurringHandler := handlers.NewRecurringHandler(recurringService, sched)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	accounts := v1.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PUT("/:id", accountHandler.UpdateAccount)

	categories := v1.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	transactions := v1.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

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

	v1.GET("/dashboard/summary", dashboardHandler.GetSummary)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// createAccount creates an account through the API and returns its ID.
func (app *testApp) createAccount(t *testing.T, name string, balance int) float64 {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"type":"cash","initial_balance":"%d"}`, name, balance)
	rec := app.request("POST", "/api/v1/accounts", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account failed: %d %s", rec.Code, rec.Body.String())
	}
	account := parseJSON(t, rec)["account"].(map[string]interface{})
	return account["id"].(float64)
}
