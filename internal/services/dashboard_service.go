package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finanzas/internal/errors"
	"finanzas/internal/models"
	"finanzas/internal/recurrence"
)

// dashboardService aggregates transactions for the dashboard.
type dashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new DashboardServicer.
func NewDashboardService(db *gorm.DB) DashboardServicer {
	return &dashboardService{db: db}
}

// GetSummary totals income and expenses over an optional date range, with a
// per-category expense breakdown. Sums are computed over decimals in Go to
// avoid driver-dependent numeric aggregation.
func (s *dashboardService) GetSummary(from, to *time.Time) (*Summary, error) {
	query := s.db.Model(&models.Transaction{}).Preload("Category")
	if from != nil {
		query = query.Where("date >= ?", recurrence.CivilDate(*from))
	}
	if to != nil {
		query = query.Where("date <= ?", recurrence.CivilDate(*to))
	}

	var transactions []models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	type bucket struct {
		id    *uint
		name  string
		total decimal.Decimal
	}
	buckets := map[uint]*bucket{}
	uncategorized := &bucket{name: "Uncategorized", total: decimal.Zero}

	for i := range transactions {
		t := &transactions[i]
		switch t.Type {
		case models.TransactionTypeIncome:
			summary.TotalIncome = summary.TotalIncome.Add(t.Amount)
		case models.TransactionTypeExpense:
			summary.TotalExpense = summary.TotalExpense.Add(t.Amount)
			if t.CategoryID == nil {
				uncategorized.total = uncategorized.total.Add(t.Amount)
				continue
			}
			b, ok := buckets[*t.CategoryID]
			if !ok {
				name := ""
				if t.Category != nil {
					name = t.Category.Name
				}
				b = &bucket{id: t.CategoryID, name: name, total: decimal.Zero}
				buckets[*t.CategoryID] = b
			}
			b.total = b.total.Add(t.Amount)
		}
	}
	summary.Net = summary.TotalIncome.Sub(summary.TotalExpense)

	for _, b := range buckets {
		summary.ByCategory = append(summary.ByCategory, CategoryTotal{
			CategoryID:   b.id,
			CategoryName: b.name,
			Total:        b.total,
		})
	}
	if uncategorized.total.IsPositive() {
		summary.ByCategory = append(summary.ByCategory, CategoryTotal{
			CategoryName: uncategorized.name,
			Total:        uncategorized.total,
		})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].Total.GreaterThan(summary.ByCategory[j].Total)
	})

	return summary, nil
}
