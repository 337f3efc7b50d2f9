package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finanzas/internal/errors"
	"finanzas/internal/models"
	"finanzas/internal/pagination"
	"finanzas/internal/recurrence"
	"finanzas/internal/services"
)

// GenerationTrigger starts one generation pass on demand. Implemented by the
// scheduler handle so manual runs share its overlap guard.
type GenerationTrigger interface {
	TriggerGeneration() (int, error)
}

// RecurringHandler handles recurring-series requests.
type RecurringHandler struct {
	recurringService services.RecurringServicer
	trigger          GenerationTrigger
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService services.RecurringServicer, trigger GenerationTrigger) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService, trigger: trigger}
}

// CreateSeriesRequest represents the request payload for creating a
// recurring series.
type CreateSeriesRequest struct {
	AccountID         uint                   `json:"account_id" binding:"required"`
	CategoryID        *uint                  `json:"category_id"`
	Amount            decimal.Decimal        `json:"amount" binding:"required"`
	Type              models.TransactionType `json:"type" binding:"required,transaction_type"`
	Description       string                 `json:"description" binding:"required,min=1,max=255"`
	Notes             string                 `json:"notes"`
	StartDate         time.Time              `json:"start_date" binding:"required"`
	EndDate           *time.Time             `json:"end_date"`
	FrequencyType     models.FrequencyType   `json:"frequency_type" binding:"required,frequency_type"`
	FrequencyInterval int                    `json:"frequency_interval" binding:"omitempty,min=1"`
	RecurrenceType    models.RecurrenceType  `json:"recurrence_type" binding:"omitempty,recurrence_type"`
	SkipWeekends      bool                   `json:"skip_weekends"`
	SkipHolidays      bool                   `json:"skip_holidays"`
	UseCustomLogic    bool                   `json:"use_custom_logic"`
	CustomLogic       string                 `json:"custom_logic"`
}

// UpdateSeriesRequest represents the request payload for editing a series.
// Omitted fields are left unchanged.
type UpdateSeriesRequest struct {
	AccountID         *uint                   `json:"account_id"`
	CategoryID        *uint                   `json:"category_id"`
	Amount            *decimal.Decimal        `json:"amount"`
	Type              *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Description       *string                 `json:"description" binding:"omitempty,min=1,max=255"`
	Notes             *string                 `json:"notes"`
	EndDate           *time.Time              `json:"end_date"`
	FrequencyType     *models.FrequencyType   `json:"frequency_type" binding:"omitempty,frequency_type"`
	FrequencyInterval *int                    `json:"frequency_interval" binding:"omitempty,min=1"`
	RecurrenceType    *models.RecurrenceType  `json:"recurrence_type" binding:"omitempty,recurrence_type"`
	SkipWeekends      *bool                   `json:"skip_weekends"`
	SkipHolidays      *bool                   `json:"skip_holidays"`
	UseCustomLogic    *bool                   `json:"use_custom_logic"`
	CustomLogic       *string                 `json:"custom_logic"`
}

// ValidateLogicRequest represents the request payload for checking custom
// logic before saving it on a series.
type ValidateLogicRequest struct {
	CustomLogic string `json:"custom_logic" binding:"required"`
}

// CreateSeries handles the creation of a new recurring series.
func (h *RecurringHandler) CreateSeries(c *gin.Context) {
	var req CreateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	series, err := h.recurringService.CreateSeries(services.CreateSeriesInput{
		AccountID:         req.AccountID,
		CategoryID:        req.CategoryID,
		Amount:            req.Amount,
		Type:              req.Type,
		Description:       req.Description,
		Notes:             req.Notes,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		FrequencyType:     req.FrequencyType,
		FrequencyInterval: req.FrequencyInterval,
		RecurrenceType:    req.RecurrenceType,
		SkipWeekends:      req.SkipWeekends,
		SkipHolidays:      req.SkipHolidays,
		UseCustomLogic:    req.UseCustomLogic,
		CustomLogic:       req.CustomLogic,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"series": series})
}

// GetActiveSeries handles listing active series with account/category names
// and generated-transaction counts, soonest due first.
func (h *RecurringHandler) GetActiveSeries(c *gin.Context) {
	summaries, err := h.recurringService.GetActiveSeries()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"series": summaries})
}

// GetSeries handles retrieving a single series.
func (h *RecurringHandler) GetSeries(c *gin.Context) {
	seriesID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	series, err := h.recurringService.GetSeriesByID(seriesID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"series": series})
}

// UpdateSeries handles editing a series. The update_scope query parameter
// selects how far the edit cascades onto generated transactions; it
// defaults to editing the series template only.
func (h *RecurringHandler) UpdateSeries(c *gin.Context) {
	seriesID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	scope := services.UpdateScope(c.DefaultQuery("update_scope", string(services.UpdateScopeSeries)))

	var req UpdateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	series, err := h.recurringService.UpdateSeries(seriesID, scope, services.UpdateSeriesInput{
		AccountID:         req.AccountID,
		CategoryID:        req.CategoryID,
		Amount:            req.Amount,
		Type:              req.Type,
		Description:       req.Description,
		Notes:             req.Notes,
		EndDate:           req.EndDate,
		FrequencyType:     req.FrequencyType,
		FrequencyInterval: req.FrequencyInterval,
		RecurrenceType:    req.RecurrenceType,
		SkipWeekends:      req.SkipWeekends,
		SkipHolidays:      req.SkipHolidays,
		UseCustomLogic:    req.UseCustomLogic,
		CustomLogic:       req.CustomLogic,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"series": series})
}

// ToggleSeries handles pausing or reactivating a series.
func (h *RecurringHandler) ToggleSeries(c *gin.Context) {
	seriesID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	series, err := h.recurringService.ToggleSeries(seriesID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"series": series})
}

// DeleteSeries handles deleting a series. Generated transactions dated
// today or later are removed with it; past ones are kept as history.
func (h *RecurringHandler) DeleteSeries(c *gin.Context) {
	seriesID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	removed, err := h.recurringService.DeleteSeries(seriesID, recurrence.CivilDate(time.Now()))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":              "Series deleted successfully",
		"removed_transactions": removed,
	})
}

// GetSeriesTransactions handles listing the transactions a series has
// generated.
func (h *RecurringHandler) GetSeriesTransactions(c *gin.Context) {
	seriesID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transactions, err := h.recurringService.GetSeriesTransactions(seriesID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// GenerateNow handles a manual generation pass, outside the scheduled
// triggers. Returns 409 if a pass is already running.
func (h *RecurringHandler) GenerateNow(c *gin.Context) {
	count, err := h.trigger.TriggerGeneration()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"generated": count})
}

// ValidateLogic handles checking custom logic for unsafe constructs without
// persisting anything.
func (h *RecurringHandler) ValidateLogic(c *gin.Context) {
	var req ValidateLogicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	valid, reason := recurrence.ValidateCustomLogic(req.CustomLogic)
	resp := gin.H{"valid": valid}
	if !valid {
		resp["reason"] = reason
	}
	c.JSON(http.StatusOK, resp)
}
