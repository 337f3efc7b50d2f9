package services

import (
	"time"

	"gorm.io/gorm"

	"finanzas/internal/logger"
	"finanzas/internal/models"
	"finanzas/internal/recurrence"
)

// generationService materializes due recurring series into transactions.
type generationService struct {
	db        *gorm.DB
	recurring RecurringServicer
	holidays  recurrence.HolidayCalendar
}

// NewGenerationService creates a new GenerationServicer.
func NewGenerationService(db *gorm.DB, recurring RecurringServicer, holidays recurrence.HolidayCalendar) GenerationServicer {
	return &generationService{db: db, recurring: recurring, holidays: holidays}
}

// GenerateDue generates one transaction for every series due as of the
// given date and returns how many were generated. Series are processed
// sequentially, oldest due first. A failing series is logged and skipped
// without advancing its cursor, so it is retried on the next run; the rest
// of the batch continues.
func (s *generationService) GenerateDue(asOf time.Time) (int, error) {
	log := logger.Get()

	due, err := s.recurring.FindDueSeries(asOf)
	if err != nil {
		return 0, err
	}

	generated := 0
	for i := range due {
		series := &due[i]
		if err := s.generateOne(series); err != nil {
			log.Errorw("failed to generate transaction for series",
				"series_id", series.ID,
				"error", err,
			)
			continue
		}
		generated++
	}

	if generated > 0 {
		log.Infow("generated recurring transactions", "count", generated)
	} else {
		log.Infow("no recurring transactions pending generation")
	}
	return generated, nil
}

// generateOne produces the transaction for a single due series and
// advances its cursor.
//
// The effective date may be shifted off weekends/holidays, but the next
// cursor always advances from the originally scheduled date so the
// underlying cadence is never distorted by business-day adjustment. The
// insert and the cursor advance share one database transaction, so a
// series is either fully generated or untouched (exactly-once per cycle).
func (s *generationService) generateOne(series *models.RecurringSeries) error {
	scheduled := recurrence.CivilDate(series.NextGenerationDate)

	effective := recurrence.StrategyFor(series).
		Apply(scheduled, series.SkipWeekends, series.SkipHolidays, s.holidays)

	next := recurrence.NextOccurrence(scheduled, series.FrequencyType, series.FrequencyInterval)
	generatedAt := time.Now()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.recurring.InsertGeneratedTransaction(tx, series, effective, generatedAt); err != nil {
			return err
		}
		return s.recurring.AdvanceNextGenerationDate(tx, series.ID, next)
	})
}

// PurgeGeneratedOlderThan runs the retention sweep over old generated
// transactions. Exposed here so the scheduler only needs the generation
// service.
func (s *generationService) PurgeGeneratedOlderThan(cutoff time.Time) (int64, error) {
	return s.recurring.PurgeGeneratedOlderThan(cutoff)
}
