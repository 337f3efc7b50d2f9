package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"finanzas/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestAccount creates a cash account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, decimal.Zero)
}

// CreateTestAccountWithBalance creates a cash account with the given balance.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, balance decimal.Decimal) *models.Account {
	t.Helper()

	account := &models.Account{
		Name:     fmt.Sprintf("Test Account %d", nextID()),
		Type:     models.AccountTypeCash,
		Balance:  balance,
		Currency: "COP",
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		Name: fmt.Sprintf("Test Category %d", nextID()),
		Type: categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a manually entered transaction.
func CreateTestTransaction(t *testing.T, db *gorm.DB, accountID uint, txType models.TransactionType, amount decimal.Decimal, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		AccountID: accountID,
		Type:      txType,
		Amount:    amount,
		Date:      date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// SeriesOption mutates a series fixture before it is persisted.
type SeriesOption func(*models.RecurringSeries)

// CreateTestSeries creates an active daily series due on the given date.
func CreateTestSeries(t *testing.T, db *gorm.DB, accountID uint, due time.Time, opts ...SeriesOption) *models.RecurringSeries {
	t.Helper()

	series := &models.RecurringSeries{
		AccountID:          accountID,
		Amount:             decimal.NewFromInt(50000),
		Type:               models.TransactionTypeExpense,
		Description:        fmt.Sprintf("Test Series %d", nextID()),
		StartDate:          due,
		FrequencyType:      models.FrequencyDaily,
		FrequencyInterval:  1,
		RecurrenceType:     models.RecurrenceSimple,
		NextGenerationDate: due,
		IsActive:           true,
	}
	for _, opt := range opts {
		opt(series)
	}
	inactive := !series.IsActive
	if err := db.Create(series).Error; err != nil {
		t.Fatalf("failed to create test series: %v", err)
	}
	// The is_active column default would override a zero value on insert.
	if inactive {
		if err := db.Model(series).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to pause test series: %v", err)
		}
	}
	return series
}

// WithFrequency sets the series cadence.
func WithFrequency(freq models.FrequencyType, interval int) SeriesOption {
	return func(s *models.RecurringSeries) {
		s.FrequencyType = freq
		s.FrequencyInterval = interval
	}
}

// WithEndDate sets the series end date.
func WithEndDate(end time.Time) SeriesOption {
	return func(s *models.RecurringSeries) {
		s.EndDate = &end
	}
}

// WithSkipWeekends enables weekend skipping.
func WithSkipWeekends() SeriesOption {
	return func(s *models.RecurringSeries) {
		s.SkipWeekends = true
	}
}

// WithAmount sets the series amount.
func WithAmount(amount decimal.Decimal) SeriesOption {
	return func(s *models.RecurringSeries) {
		s.Amount = amount
	}
}

// WithInactive marks the series paused.
func WithInactive() SeriesOption {
	return func(s *models.RecurringSeries) {
		s.IsActive = false
	}
}
