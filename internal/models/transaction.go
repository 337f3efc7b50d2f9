package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction represents a financial transaction in the system.
// Rows materialized from a recurring series carry IsGenerated=true, a
// back-reference to the series, and the timestamp they were created at
// (distinct from the effective transaction date).
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AccountID   uint            `gorm:"not null;index" json:"account_id"`
	CategoryID  *uint           `gorm:"index" json:"category_id,omitempty"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Description string          `json:"description"`
	Notes       string          `json:"notes"`
	Date        time.Time       `gorm:"not null;index" json:"date"`

	IsGenerated       bool       `gorm:"default:false;index" json:"is_generated"`
	RecurringSeriesID *uint      `gorm:"index" json:"recurring_series_id,omitempty"`
	GenerationDate    *time.Time `json:"generation_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Account  Account   `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
