package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestTransactionFlow_SummaryAndBalance(t *testing.T) {
	app := setupApp(t)
	accountID := app.createAccount(t, "Checking", 500000)

	// Create an expense category
	rec := app.request("POST", "/api/v1/categories", `{"name":"Groceries","type":"expense"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating category, got %d: %s", rec.Code, rec.Body.String())
	}
	categoryID := parseJSON(t, rec)["category"].(map[string]interface{})["id"].(float64)

	// One income, two categorized expenses
	rec = app.request("POST", "/api/v1/transactions",
		fmt.Sprintf(`{"account_id":%.0f,"type":"income","amount":"300000","description":"Salary","date":"2025-06-01T00:00:00Z"}`, accountID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, amount := range []string{"80000", "50000"} {
		rec = app.request("POST", "/api/v1/transactions",
			fmt.Sprintf(`{"account_id":%.0f,"category_id":%.0f,"type":"expense","amount":%q,"description":"Groceries","date":"2025-06-10T00:00:00Z"}`,
				accountID, categoryID, amount))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	// Balance reflects all three: 500000 + 300000 - 130000
	rec = app.request("GET", fmt.Sprintf("/api/v1/accounts/%.0f", accountID), "")
	account := parseJSON(t, rec)["account"].(map[string]interface{})
	if got := account["balance"].(string); got != "670000" {
		t.Errorf("expected balance 670000, got %s", got)
	}

	// The category is now in use and cannot be deleted.
	rec = app.request("DELETE", fmt.Sprintf("/api/v1/categories/%.0f", categoryID), "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 deleting in-use category, got %d", rec.Code)
	}

	// The dashboard summary buckets expenses by category.
	rec = app.request("GET", "/api/v1/dashboard/summary?from=2025-06-01&to=2025-06-30", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	if got := summary["total_income"].(string); got != "300000" {
		t.Errorf("expected income 300000, got %s", got)
	}
	if got := summary["total_expense"].(string); got != "130000" {
		t.Errorf("expected expense 130000, got %s", got)
	}
	if got := summary["net"].(string); got != "170000" {
		t.Errorf("expected net 170000, got %s", got)
	}
	byCategory := summary["by_category"].([]interface{})
	if len(byCategory) != 1 {
		t.Fatalf("expected 1 expense bucket, got %d", len(byCategory))
	}
	bucket := byCategory[0].(map[string]interface{})
	if bucket["category_name"] != "Groceries" {
		t.Errorf("expected Groceries bucket, got %v", bucket["category_name"])
	}
	if got := bucket["total"].(string); got != "130000" {
		t.Errorf("expected bucket total 130000, got %s", got)
	}

	// Deleting a transaction restores the balance.
	rec = app.request("GET", "/api/v1/transactions?type=expense", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	expenses := parseJSON(t, rec)["data"].([]interface{})
	if len(expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(expenses))
	}
	firstID := expenses[0].(map[string]interface{})["id"].(float64)
	firstAmount := expenses[0].(map[string]interface{})["amount"].(string)

	rec = app.request("DELETE", fmt.Sprintf("/api/v1/transactions/%.0f", firstID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting transaction, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", fmt.Sprintf("/api/v1/accounts/%.0f", accountID), "")
	account = parseJSON(t, rec)["account"].(map[string]interface{})
	want := map[string]string{"80000": "750000", "50000": "720000"}[firstAmount]
	if got := account["balance"].(string); got != want {
		t.Errorf("expected balance %s after deleting %s expense, got %s", want, firstAmount, got)
	}
}
