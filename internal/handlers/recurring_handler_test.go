package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finanzas/internal/errors"
	"finanzas/internal/models"
	"finanzas/internal/pagination"
	"finanzas/internal/services"
	"finanzas/internal/validator"
)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- mock recurring service ---

type mockRecurringService struct {
	createSeriesFn          func(input services.CreateSeriesInput) (*models.RecurringSeries, error)
	getActiveSeriesFn       func() ([]services.SeriesSummary, error)
	getSeriesByIDFn         func(seriesID uint) (*models.RecurringSeries, error)
	updateSeriesFn          func(seriesID uint, scope services.UpdateScope, input services.UpdateSeriesInput) (*models.RecurringSeries, error)
	toggleSeriesFn          func(seriesID uint) (*models.RecurringSeries, error)
	deleteSeriesFn          func(seriesID uint, notBefore time.Time) (int64, error)
	getSeriesTransactionsFn func(seriesID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
}

func (m *mockRecurringService) CreateSeries(input services.CreateSeriesInput) (*models.RecurringSeries, error) {
	if m.createSeriesFn != nil {
		return m.createSeriesFn(input)
	}
	return &models.RecurringSeries{}, nil
}

func (m *mockRecurringService) GetActiveSeries() ([]services.SeriesSummary, error) {
	if m.getActiveSeriesFn != nil {
		return m.getActiveSeriesFn()
	}
	return []services.SeriesSummary{}, nil
}

func (m *mockRecurringService) GetSeriesByID(seriesID uint) (*models.RecurringSeries, error) {
	if m.getSeriesByIDFn != nil {
		return m.getSeriesByIDFn(seriesID)
	}
	return &models.RecurringSeries{}, nil
}

func (m *mockRecurringService) UpdateSeries(seriesID uint, scope services.UpdateScope, input services.UpdateSeriesInput) (*models.RecurringSeries, error) {
	if m.updateSeriesFn != nil {
		return m.updateSeriesFn(seriesID, scope, input)
	}
	return &models.RecurringSeries{}, nil
}

func (m *mockRecurringService) ToggleSeries(seriesID uint) (*models.RecurringSeries, error) {
	if m.toggleSeriesFn != nil {
		return m.toggleSeriesFn(seriesID)
	}
	return &models.RecurringSeries{}, nil
}

func (m *mockRecurringService) DeleteSeries(seriesID uint, notBefore time.Time) (int64, error) {
	if m.deleteSeriesFn != nil {
		return m.deleteSeriesFn(seriesID, notBefore)
	}
	return 0, nil
}

func (m *mockRecurringService) GetSeriesTransactions(seriesID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.getSeriesTransactionsFn != nil {
		return m.getSeriesTransactionsFn(seriesID, page)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 50, 0)
	return &resp, nil
}

func (m *mockRecurringService) FindDueSeries(asOf time.Time) ([]models.RecurringSeries, error) {
	return nil, nil
}

func (m *mockRecurringService) InsertGeneratedTransaction(tx *gorm.DB, series *models.RecurringSeries, effectiveDate, generatedAt time.Time) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (m *mockRecurringService) AdvanceNextGenerationDate(tx *gorm.DB, seriesID uint, next time.Time) error {
	return nil
}

func (m *mockRecurringService) DeleteFutureGeneratedTransactions(seriesID uint, notBefore time.Time) (int64, error) {
	return 0, nil
}

func (m *mockRecurringService) PurgeGeneratedOlderThan(cutoff time.Time) (int64, error) {
	return 0, nil
}

var _ services.RecurringServicer = (*mockRecurringService)(nil)

type mockTrigger struct {
	triggerFn func() (int, error)
}

func (m *mockTrigger) TriggerGeneration() (int, error) {
	if m.triggerFn != nil {
		return m.triggerFn()
	}
	return 0, nil
}

func setupRecurringRouter(handler *RecurringHandler) *gin.Engine {
	r := gin.New()
	r.POST("/recurring/series", handler.CreateSeries)
	r.GET("/recurring/series", handler.GetActiveSeries)
	r.GET("/recurring/series/:id", handler.GetSeries)
	r.PUT("/recurring/series/:id", handler.UpdateSeries)
	r.PATCH("/recurring/series/:id/toggle", handler.ToggleSeries)
	r.DELETE("/recurring/series/:id", handler.DeleteSeries)
	r.GET("/recurring/series/:id/transactions", handler.GetSeriesTransactions)
	r.POST("/recurring/generate", handler.GenerateNow)
	r.POST("/recurring/validate-logic", handler.ValidateLogic)
	return r
}

// --- tests ---

func TestRecurringHandler_CreateSeries(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		svc := &mockRecurringService{
			createSeriesFn: func(input services.CreateSeriesInput) (*models.RecurringSeries, error) {
				return &models.RecurringSeries{
					ID:                 1,
					AccountID:          input.AccountID,
					Amount:             input.Amount,
					Type:               input.Type,
					Description:        input.Description,
					FrequencyType:      input.FrequencyType,
					NextGenerationDate: input.StartDate,
					IsActive:           true,
				}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockTrigger{}))

		rec := doRequest(r, "POST", "/recurring/series",
			`{"account_id":1,"amount":"120000","type":"expense","description":"Rent","start_date":"2025-07-01T00:00:00Z","frequency_type":"monthly"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		series := result["series"].(map[string]interface{})
		if series["description"] != "Rent" {
			t.Errorf("expected Rent, got %v", series["description"])
		}
	})

	t.Run("returns 400 on missing frequency", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockTrigger{}))

		rec := doRequest(r, "POST", "/recurring/series",
			`{"account_id":1,"amount":"120000","type":"expense","description":"Rent","start_date":"2025-07-01T00:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on unknown frequency", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockTrigger{}))

		rec := doRequest(r, "POST", "/recurring/series",
			`{"account_id":1,"amount":"120000","type":"expense","description":"Rent","start_date":"2025-07-01T00:00:00Z","frequency_type":"fortnightly"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on unsafe custom logic", func(t *testing.T) {
		svc := &mockRecurringService{
			createSeriesFn: func(services.CreateSeriesInput) (*models.RecurringSeries, error) {
				return nil, apperrors.ErrUnsafeCustomLogic
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockTrigger{}))

		rec := doRequest(r, "POST", "/recurring/series",
			`{"account_id":1,"amount":"1000","type":"expense","description":"Rent","start_date":"2025-07-01T00:00:00Z","frequency_type":"monthly","use_custom_logic":true,"custom_logic":"require('fs')"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNSAFE_CUSTOM_LOGIC")
	})
}

func TestRecurringHandler_UpdateSeries(t *testing.T) {
	t.Run("passes scope from query parameter", func(t *testing.T) {
		var gotScope services.UpdateScope
		svc := &mockRecurringService{
			updateSeriesFn: func(_ uint, scope services.UpdateScope, _ services.UpdateSeriesInput) (*models.RecurringSeries, error) {
				gotScope = scope
				return &models.RecurringSeries{ID: 1}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockTrigger{}))

		rec := doRequest(r, "PUT", "/recurring/series/1?update_scope=future", `{"amount":"80000"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotScope != services.UpdateScopeFuture {
			t.Errorf("expected future scope, got %q", gotScope)
		}
	})

	t.Run("defaults to series scope", func(t *testing.T) {
		var gotScope services.UpdateScope
		svc := &mockRecurringService{
			updateSeriesFn: func(_ uint, scope services.UpdateScope, _ services.UpdateSeriesInput) (*models.RecurringSeries, error) {
				gotScope = scope
				return &models.RecurringSeries{ID: 1}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockTrigger{}))

		doRequest(r, "PUT", "/recurring/series/1", `{"amount":"80000"}`)

		if gotScope != services.UpdateScopeSeries {
			t.Errorf("expected series scope, got %q", gotScope)
		}
	})

	t.Run("returns 404 for unknown series", func(t *testing.T) {
		svc := &mockRecurringService{
			updateSeriesFn: func(uint, services.UpdateScope, services.UpdateSeriesInput) (*models.RecurringSeries, error) {
				return nil, apperrors.ErrSeriesNotFound
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockTrigger{}))

		rec := doRequest(r, "PUT", "/recurring/series/42", `{"amount":"80000"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SERIES_NOT_FOUND")
	})

	t.Run("returns 400 on invalid path id", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockTrigger{}))

		rec := doRequest(r, "PUT", "/recurring/series/abc", `{"amount":"80000"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRecurringHandler_DeleteSeries(t *testing.T) {
	t.Run("reports removed transaction count", func(t *testing.T) {
		svc := &mockRecurringService{
			deleteSeriesFn: func(seriesID uint, notBefore time.Time) (int64, error) {
				if seriesID != 7 {
					t.Errorf("expected series 7, got %d", seriesID)
				}
				if notBefore.IsZero() {
					t.Error("expected a cutoff date")
				}
				return 3, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockTrigger{}))

		rec := doRequest(r, "DELETE", "/recurring/series/7", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["removed_transactions"].(float64) != 3 {
			t.Errorf("expected 3 removed, got %v", result["removed_transactions"])
		}
	})
}

func TestRecurringHandler_GenerateNow(t *testing.T) {
	t.Run("returns generated count", func(t *testing.T) {
		trigger := &mockTrigger{triggerFn: func() (int, error) { return 5, nil }}
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, trigger))

		rec := doRequest(r, "POST", "/recurring/generate", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["generated"].(float64) != 5 {
			t.Errorf("expected 5 generated, got %v", result["generated"])
		}
	})

	t.Run("returns 409 when a pass is running", func(t *testing.T) {
		trigger := &mockTrigger{triggerFn: func() (int, error) { return 0, apperrors.ErrGenerationInFlight }}
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, trigger))

		rec := doRequest(r, "POST", "/recurring/generate", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "GENERATION_IN_FLIGHT")
	})
}

func TestRecurringHandler_ValidateLogic(t *testing.T) {
	t.Run("accepts safe logic", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockTrigger{}))

		rec := doRequest(r, "POST", "/recurring/validate-logic", `{"custom_logic":"return date"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["valid"] != true {
			t.Errorf("expected valid logic, got %v", result)
		}
	})

	t.Run("rejects dangerous logic with a reason", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockTrigger{}))

		rec := doRequest(r, "POST", "/recurring/validate-logic", `{"custom_logic":"require('fs'); return date"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["valid"] != false {
			t.Errorf("expected invalid logic, got %v", result)
		}
		if result["reason"] == nil || result["reason"] == "" {
			t.Error("expected a rejection reason")
		}
	})
}

func TestRecurringHandler_GetSeriesTransactions(t *testing.T) {
	t.Run("returns paginated rows", func(t *testing.T) {
		amount := decimal.NewFromInt(50000)
		svc := &mockRecurringService{
			getSeriesTransactionsFn: func(seriesID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
				resp := pagination.NewPageResponse([]models.Transaction{
					{ID: 1, AccountID: 1, Type: models.TransactionTypeExpense, Amount: amount, IsGenerated: true},
				}, 1, 50, 1)
				return &resp, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockTrigger{}))

		rec := doRequest(r, "GET", "/recurring/series/1/transactions", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["total_items"].(float64) != 1 {
			t.Errorf("expected 1 total item, got %v", result["total_items"])
		}
	})
}
