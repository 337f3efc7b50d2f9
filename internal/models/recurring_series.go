package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FrequencyType represents the cadence of a recurring series.
type FrequencyType string

const (
	FrequencyDaily   FrequencyType = "daily"
	FrequencyWeekly  FrequencyType = "weekly"
	FrequencyMonthly FrequencyType = "monthly"
	FrequencyYearly  FrequencyType = "yearly"
)

// RecurrenceType distinguishes plain calendar recurrence from series that
// carry a user-authored date-shift rule.
type RecurrenceType string

const (
	RecurrenceSimple RecurrenceType = "simple"
	RecurrenceCustom RecurrenceType = "custom"
)

// RecurringSeries is a template for generating transactions.
//
// NextGenerationDate is the sole progress marker: it holds the date of the
// next transaction to materialize and is advanced exactly once per
// generation. Once EndDate is set and the cursor moves past it the series
// is permanently dormant, even while IsActive remains true.
type RecurringSeries struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AccountID   uint            `gorm:"not null;index" json:"account_id"`
	CategoryID  *uint           `gorm:"index" json:"category_id,omitempty"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Description string          `gorm:"not null" json:"description"`
	Notes       string          `json:"notes"`

	StartDate         time.Time      `gorm:"not null" json:"start_date"`
	EndDate           *time.Time     `json:"end_date,omitempty"`
	FrequencyType     FrequencyType  `gorm:"not null" json:"frequency_type"`
	FrequencyInterval int            `gorm:"not null;default:1" json:"frequency_interval"`
	RecurrenceType    RecurrenceType `gorm:"not null;default:'simple'" json:"recurrence_type"`

	SkipWeekends bool `gorm:"default:false" json:"skip_weekends"`
	SkipHolidays bool `gorm:"default:false" json:"skip_holidays"`

	UseCustomLogic bool   `gorm:"default:false" json:"use_custom_logic"`
	CustomLogic    string `gorm:"type:text" json:"custom_logic"`

	NextGenerationDate time.Time `gorm:"not null;index" json:"next_generation_date"`
	IsActive           bool      `gorm:"default:true;index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Account  Account   `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
