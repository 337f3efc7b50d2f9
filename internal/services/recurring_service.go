package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finanzas/internal/errors"
	"finanzas/internal/models"
	"finanzas/internal/pagination"
	"finanzas/internal/recurrence"
)

// CreateSeriesInput holds the fields for creating a recurring series.
type CreateSeriesInput struct {
	AccountID         uint
	CategoryID        *uint
	Amount            decimal.Decimal
	Type              models.TransactionType
	Description       string
	Notes             string
	StartDate         time.Time
	EndDate           *time.Time
	FrequencyType     models.FrequencyType
	FrequencyInterval int
	RecurrenceType    models.RecurrenceType
	SkipWeekends      bool
	SkipHolidays      bool
	UseCustomLogic    bool
	CustomLogic       string
}

// UpdateSeriesInput holds the optional fields for editing a series.
// Nil fields are left unchanged. Under the future/all scopes only amount,
// description, and notes cascade onto generated transactions.
type UpdateSeriesInput struct {
	AccountID         *uint
	CategoryID        *uint
	Amount            *decimal.Decimal
	Type              *models.TransactionType
	Description       *string
	Notes             *string
	EndDate           *time.Time
	FrequencyType     *models.FrequencyType
	FrequencyInterval *int
	RecurrenceType    *models.RecurrenceType
	SkipWeekends      *bool
	SkipHolidays      *bool
	UseCustomLogic    *bool
	CustomLogic       *string
}

// recurringService owns recurring-series records and their generated
// transactions. All writes to the series cursor and to generated rows go
// through here; nothing else mutates them.
type recurringService struct {
	db             *gorm.DB
	accountService AccountServicer
}

// NewRecurringService creates a new RecurringServicer.
func NewRecurringService(db *gorm.DB, accountService AccountServicer) RecurringServicer {
	return &recurringService{db: db, accountService: accountService}
}

// CreateSeries creates a recurring series with its cursor initialized to
// the start date.
func (s *recurringService) CreateSeries(input CreateSeriesInput) (*models.RecurringSeries, error) {
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if input.Description == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if input.StartDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start date is required")
	}
	if _, err := s.accountService.GetAccountByID(input.AccountID); err != nil {
		return nil, err
	}
	if input.FrequencyInterval < 1 {
		input.FrequencyInterval = 1
	}
	if input.RecurrenceType == "" {
		input.RecurrenceType = models.RecurrenceSimple
	}
	if input.UseCustomLogic {
		if ok, reason := recurrence.ValidateCustomLogic(input.CustomLogic); !ok {
			return nil, apperrors.WithMessage(apperrors.ErrUnsafeCustomLogic, reason)
		}
	}

	startDate := recurrence.CivilDate(input.StartDate)
	series := &models.RecurringSeries{
		AccountID:          input.AccountID,
		CategoryID:         input.CategoryID,
		Amount:             input.Amount,
		Type:               input.Type,
		Description:        input.Description,
		Notes:              input.Notes,
		StartDate:          startDate,
		EndDate:            input.EndDate,
		FrequencyType:      input.FrequencyType,
		FrequencyInterval:  input.FrequencyInterval,
		RecurrenceType:     input.RecurrenceType,
		SkipWeekends:       input.SkipWeekends,
		SkipHolidays:       input.SkipHolidays,
		UseCustomLogic:     input.UseCustomLogic,
		CustomLogic:        input.CustomLogic,
		NextGenerationDate: startDate,
		IsActive:           true,
	}
	if err := s.db.Create(series).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return series, nil
}

// GetActiveSeries lists active series with joined account/category names and
// generated-transaction counts, soonest due first.
func (s *recurringService) GetActiveSeries() ([]SeriesSummary, error) {
	var summaries []SeriesSummary
	err := s.db.Model(&models.RecurringSeries{}).
		Select("recurring_series.*, accounts.name AS account_name, categories.name AS category_name, COUNT(transactions.id) AS generated_count").
		Joins("LEFT JOIN accounts ON accounts.id = recurring_series.account_id").
		Joins("LEFT JOIN categories ON categories.id = recurring_series.category_id").
		Joins("LEFT JOIN transactions ON transactions.recurring_series_id = recurring_series.id").
		Where("recurring_series.is_active = ?", true).
		Group("recurring_series.id, accounts.name, categories.name").
		Order("recurring_series.next_generation_date ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return summaries, nil
}

// GetSeriesByID retrieves a recurring series by ID.
func (s *recurringService) GetSeriesByID(seriesID uint) (*models.RecurringSeries, error) {
	var series models.RecurringSeries
	if err := s.db.First(&series, seriesID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSeriesNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &series, nil
}

// UpdateSeries edits a series. The series scope touches the template only;
// the future and all scopes additionally rewrite generated transactions
// (dated today or later for future) in the same database transaction,
// correcting account balances for amount changes.
func (s *recurringService) UpdateSeries(seriesID uint, scope UpdateScope, input UpdateSeriesInput) (*models.RecurringSeries, error) {
	series, err := s.GetSeriesByID(seriesID)
	if err != nil {
		return nil, err
	}

	switch scope {
	case UpdateScopeSeries, UpdateScopeFuture, UpdateScopeAll:
	default:
		return nil, apperrors.ErrInvalidUpdateScope
	}

	if input.UseCustomLogic != nil && *input.UseCustomLogic {
		logic := series.CustomLogic
		if input.CustomLogic != nil {
			logic = *input.CustomLogic
		}
		if ok, reason := recurrence.ValidateCustomLogic(logic); !ok {
			return nil, apperrors.WithMessage(apperrors.ErrUnsafeCustomLogic, reason)
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if scope != UpdateScopeSeries {
			if err := s.cascadeToGenerated(tx, series, scope, input); err != nil {
				return err
			}
		}
		applySeriesInput(series, input)
		if err := tx.Save(series).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return series, nil
}

func applySeriesInput(series *models.RecurringSeries, input UpdateSeriesInput) {
	if input.AccountID != nil {
		series.AccountID = *input.AccountID
	}
	if input.CategoryID != nil {
		series.CategoryID = input.CategoryID
	}
	if input.Amount != nil {
		series.Amount = *input.Amount
	}
	if input.Type != nil {
		series.Type = *input.Type
	}
	if input.Description != nil {
		series.Description = *input.Description
	}
	if input.Notes != nil {
		series.Notes = *input.Notes
	}
	if input.EndDate != nil {
		series.EndDate = input.EndDate
	}
	if input.FrequencyType != nil {
		series.FrequencyType = *input.FrequencyType
	}
	if input.FrequencyInterval != nil && *input.FrequencyInterval >= 1 {
		series.FrequencyInterval = *input.FrequencyInterval
	}
	if input.RecurrenceType != nil {
		series.RecurrenceType = *input.RecurrenceType
	}
	if input.SkipWeekends != nil {
		series.SkipWeekends = *input.SkipWeekends
	}
	if input.SkipHolidays != nil {
		series.SkipHolidays = *input.SkipHolidays
	}
	if input.UseCustomLogic != nil {
		series.UseCustomLogic = *input.UseCustomLogic
	}
	if input.CustomLogic != nil {
		series.CustomLogic = *input.CustomLogic
	}
}

// cascadeToGenerated rewrites amount/description/notes on the series'
// generated transactions and keeps account balances consistent when the
// amount changes.
func (s *recurringService) cascadeToGenerated(tx *gorm.DB, series *models.RecurringSeries, scope UpdateScope, input UpdateSeriesInput) error {
	query := tx.Where("recurring_series_id = ? AND is_generated = ?", series.ID, true)
	if scope == UpdateScopeFuture {
		query = query.Where("date >= ?", recurrence.CivilDate(time.Now()))
	}

	var affected []models.Transaction
	if err := query.Find(&affected).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range affected {
		row := &affected[i]
		if input.Amount != nil && !input.Amount.Equal(row.Amount) {
			account, err := s.accountService.GetAccountByID(row.AccountID)
			if err != nil {
				return err
			}
			if err := s.accountService.ReverseTransaction(tx, account, row.Type, row.Amount); err != nil {
				return err
			}
			if err := s.accountService.ApplyTransaction(tx, account, row.Type, *input.Amount); err != nil {
				return err
			}
			row.Amount = *input.Amount
		}
		if input.Description != nil {
			row.Description = *input.Description
		}
		if input.Notes != nil {
			row.Notes = *input.Notes
		}
		if err := tx.Save(row).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// ToggleSeries pauses or reactivates a series. Paused series are skipped by
// generation but kept for history.
func (s *recurringService) ToggleSeries(seriesID uint) (*models.RecurringSeries, error) {
	series, err := s.GetSeriesByID(seriesID)
	if err != nil {
		return nil, err
	}

	series.IsActive = !series.IsActive
	if err := s.db.Save(series).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return series, nil
}

// DeleteSeries removes a series along with its not-yet-elapsed generated
// transactions (dated notBefore or later). Historical transactions are
// preserved. Returns the number of removed transactions.
func (s *recurringService) DeleteSeries(seriesID uint, notBefore time.Time) (int64, error) {
	series, err := s.GetSeriesByID(seriesID)
	if err != nil {
		return 0, err
	}

	var removed int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		n, err := s.deleteFutureGenerated(tx, series.ID, notBefore)
		if err != nil {
			return err
		}
		removed = n

		// Detach surviving historical rows before the series row goes away.
		if err := tx.Model(&models.Transaction{}).
			Where("recurring_series_id = ?", series.ID).
			Update("recurring_series_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Delete(series).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// GetSeriesTransactions lists the transactions spawned by a series, newest
// first.
func (s *recurringService) GetSeriesTransactions(seriesID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := s.GetSeriesByID(seriesID); err != nil {
		return nil, err
	}

	page.Defaults()
	base := s.db.Model(&models.Transaction{}).Where("recurring_series_id = ?", seriesID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// FindDueSeries returns active series whose cursor is due as of the given
// date and not past their end date, oldest due first. The ordering matters:
// if a batch is interrupted, the most overdue series have already advanced.
func (s *recurringService) FindDueSeries(asOf time.Time) ([]models.RecurringSeries, error) {
	asOf = recurrence.CivilDate(asOf)

	var due []models.RecurringSeries
	err := s.db.
		Where("is_active = ? AND next_generation_date <= ?", true, asOf).
		Where("end_date IS NULL OR next_generation_date <= end_date").
		Order("next_generation_date ASC").
		Find(&due).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return due, nil
}

// InsertGeneratedTransaction materializes one transaction for a series on
// the given effective date, copying the series' financial fields and
// applying the amount to the account balance.
func (s *recurringService) InsertGeneratedTransaction(tx *gorm.DB, series *models.RecurringSeries, effectiveDate, generatedAt time.Time) (*models.Transaction, error) {
	var account models.Account
	if err := tx.First(&account, series.AccountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	transaction := &models.Transaction{
		AccountID:         series.AccountID,
		CategoryID:        series.CategoryID,
		Type:              series.Type,
		Amount:            series.Amount,
		Description:       series.Description,
		Notes:             series.Notes,
		Date:              recurrence.CivilDate(effectiveDate),
		IsGenerated:       true,
		RecurringSeriesID: &series.ID,
		GenerationDate:    &generatedAt,
	}
	if err := tx.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.accountService.ApplyTransaction(tx, &account, series.Type, series.Amount); err != nil {
		return nil, err
	}
	return transaction, nil
}

// AdvanceNextGenerationDate persists a new cursor for the series. Called
// exactly once per generated transaction.
func (s *recurringService) AdvanceNextGenerationDate(tx *gorm.DB, seriesID uint, next time.Time) error {
	err := tx.Model(&models.RecurringSeries{}).
		Where("id = ?", seriesID).
		Update("next_generation_date", recurrence.CivilDate(next)).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteFutureGeneratedTransactions removes generated transactions of a
// series dated notBefore or later, reversing their balance effects.
func (s *recurringService) DeleteFutureGeneratedTransactions(seriesID uint, notBefore time.Time) (int64, error) {
	var removed int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		n, err := s.deleteFutureGenerated(tx, seriesID, notBefore)
		removed = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *recurringService) deleteFutureGenerated(tx *gorm.DB, seriesID uint, notBefore time.Time) (int64, error) {
	var rows []models.Transaction
	err := tx.
		Where("recurring_series_id = ? AND is_generated = ? AND date >= ?", seriesID, true, recurrence.CivilDate(notBefore)).
		Find(&rows).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range rows {
		row := &rows[i]
		account, err := s.accountService.GetAccountByID(row.AccountID)
		if err != nil {
			return 0, err
		}
		if err := s.accountService.ReverseTransaction(tx, account, row.Type, row.Amount); err != nil {
			return 0, err
		}
		if err := tx.Delete(row).Error; err != nil {
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return int64(len(rows)), nil
}

// PurgeGeneratedOlderThan deletes generated transactions dated before the
// cutoff. Manually entered rows and newer generated rows are untouched, and
// balances are not adjusted: these transactions genuinely happened.
func (s *recurringService) PurgeGeneratedOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.
		Where("is_generated = ? AND date < ?", true, recurrence.CivilDate(cutoff)).
		Delete(&models.Transaction{})
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return result.RowsAffected, nil
}
