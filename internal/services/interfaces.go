package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"finanzas/internal/models"
	"finanzas/internal/pagination"
)

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(name string, accountType models.AccountType, description, currency string, initialBalance decimal.Decimal) (*models.Account, error)
	GetAccounts(page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(accountID uint) (*models.Account, error)
	UpdateAccount(accountID uint, name, description string) (*models.Account, error)
	ApplyTransaction(tx *gorm.DB, account *models.Account, transactionType models.TransactionType, amount decimal.Decimal) error
	ReverseTransaction(tx *gorm.DB, account *models.Account, transactionType models.TransactionType, amount decimal.Decimal) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(name string, categoryType models.CategoryType, icon, color string) (*models.Category, error)
	GetCategories(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(categoryID uint) (*models.Category, error)
	UpdateCategory(categoryID uint, name, icon, color string) (*models.Category, error)
	DeleteCategory(categoryID uint) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate    *time.Time
	ToDate      *time.Time
	Type        *models.TransactionType
	CategoryID  *uint
	AccountID   *uint
	IsGenerated *bool
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(accountID uint, categoryID *uint, transactionType models.TransactionType, amount decimal.Decimal, description, notes string, date time.Time) (*models.Transaction, error)
	GetTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(transactionID uint) (*models.Transaction, error)
	DeleteTransaction(transactionID uint) error
}

// UpdateScope selects how far a series edit cascades.
type UpdateScope string

const (
	// UpdateScopeSeries edits the series template only.
	UpdateScopeSeries UpdateScope = "series"
	// UpdateScopeFuture also rewrites generated transactions dated today or later.
	UpdateScopeFuture UpdateScope = "future"
	// UpdateScopeAll also rewrites every generated transaction of the series.
	UpdateScopeAll UpdateScope = "all"
)

// SeriesSummary is a series row decorated with the joined names and the
// number of transactions it has generated, for listing endpoints.
type SeriesSummary struct {
	models.RecurringSeries
	AccountName    string `json:"account_name"`
	CategoryName   string `json:"category_name"`
	GeneratedCount int64  `json:"generated_transactions_count"`
}

// RecurringServicer owns recurring-series records and the transactions they
// spawn. The generation engine consumes the due-series query, the generated
// insert, and the cursor advance; everything else serves the authoring API.
type RecurringServicer interface {
	CreateSeries(input CreateSeriesInput) (*models.RecurringSeries, error)
	GetActiveSeries() ([]SeriesSummary, error)
	GetSeriesByID(seriesID uint) (*models.RecurringSeries, error)
	UpdateSeries(seriesID uint, scope UpdateScope, input UpdateSeriesInput) (*models.RecurringSeries, error)
	ToggleSeries(seriesID uint) (*models.RecurringSeries, error)
	DeleteSeries(seriesID uint, notBefore time.Time) (int64, error)
	GetSeriesTransactions(seriesID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)

	FindDueSeries(asOf time.Time) ([]models.RecurringSeries, error)
	InsertGeneratedTransaction(tx *gorm.DB, series *models.RecurringSeries, effectiveDate, generatedAt time.Time) (*models.Transaction, error)
	AdvanceNextGenerationDate(tx *gorm.DB, seriesID uint, next time.Time) error
	DeleteFutureGeneratedTransactions(seriesID uint, notBefore time.Time) (int64, error)
	PurgeGeneratedOlderThan(cutoff time.Time) (int64, error)
}

// GenerationServicer drives the materialization of due recurring series.
type GenerationServicer interface {
	GenerateDue(asOf time.Time) (int, error)
	PurgeGeneratedOlderThan(cutoff time.Time) (int64, error)
}

// CategoryTotal is a per-category expense aggregate for the dashboard.
type CategoryTotal struct {
	CategoryID   *uint           `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
}

// Summary aggregates transactions over an optional date range.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Net          decimal.Decimal `json:"net"`
	ByCategory   []CategoryTotal `json:"by_category"`
}

// DashboardServicer defines the contract for dashboard aggregation.
type DashboardServicer interface {
	GetSummary(from, to *time.Time) (*Summary, error)
}
