package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"finanzas/internal/models"
	"finanzas/internal/pagination"
	"finanzas/internal/testutil"
)

func TestCreateAccount(t *testing.T) {
	t.Run("creates_with_defaults", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)

		account, err := svc.CreateAccount("Checking", models.AccountTypeCash, "", "", decimal.NewFromInt(100000))
		testutil.AssertNoError(t, err)
		if account.Currency != "COP" {
			t.Errorf("expected default currency COP, got %q", account.Currency)
		}
		if !account.IsActive {
			t.Error("expected new account active")
		}
		if !account.Balance.Equal(decimal.NewFromInt(100000)) {
			t.Errorf("expected balance 100000, got %s", account.Balance)
		}
	})

	t.Run("rejects_empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)

		_, err := svc.CreateAccount("", models.AccountTypeCash, "", "COP", decimal.Zero)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetAccountByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)

	account := testutil.CreateTestAccount(t, db)

	found, err := svc.GetAccountByID(account.ID)
	testutil.AssertNoError(t, err)
	if found.Name != account.Name {
		t.Errorf("expected %q, got %q", account.Name, found.Name)
	}

	_, err = svc.GetAccountByID(99999)
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
}

func TestGetAccounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)

	for i := 0; i < 3; i++ {
		testutil.CreateTestAccount(t, db)
	}

	page, err := svc.GetAccounts(pagination.PageRequest{Page: 1, PageSize: 2})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 3 {
		t.Errorf("expected 3 total, got %d", page.TotalItems)
	}
	if len(page.Data) != 2 {
		t.Errorf("expected 2 on first page, got %d", len(page.Data))
	}
	if page.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", page.TotalPages)
	}
}

func TestApplyTransaction(t *testing.T) {
	t.Run("cash_account_signs", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)

		account := testutil.CreateTestAccountWithBalance(t, db, decimal.NewFromInt(100000))

		err := svc.ApplyTransaction(db, account, models.TransactionTypeIncome, decimal.NewFromInt(20000))
		testutil.AssertNoError(t, err)
		if !account.Balance.Equal(decimal.NewFromInt(120000)) {
			t.Errorf("expected 120000 after income, got %s", account.Balance)
		}

		err = svc.ApplyTransaction(db, account, models.TransactionTypeExpense, decimal.NewFromInt(50000))
		testutil.AssertNoError(t, err)
		if !account.Balance.Equal(decimal.NewFromInt(70000)) {
			t.Errorf("expected 70000 after expense, got %s", account.Balance)
		}
	})

	t.Run("credit_account_inverts_signs", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)

		account := testutil.CreateTestAccount(t, db)
		account.Type = models.AccountTypeCredit
		if err := db.Save(account).Error; err != nil {
			t.Fatalf("failed to update account type: %v", err)
		}

		// An expense on a credit card grows the amount owed.
		err := svc.ApplyTransaction(db, account, models.TransactionTypeExpense, decimal.NewFromInt(30000))
		testutil.AssertNoError(t, err)
		if !account.Balance.Equal(decimal.NewFromInt(30000)) {
			t.Errorf("expected 30000 owed, got %s", account.Balance)
		}

		// A payment shrinks it.
		err = svc.ApplyTransaction(db, account, models.TransactionTypeIncome, decimal.NewFromInt(10000))
		testutil.AssertNoError(t, err)
		if !account.Balance.Equal(decimal.NewFromInt(20000)) {
			t.Errorf("expected 20000 owed, got %s", account.Balance)
		}
	})

	t.Run("rejects_unknown_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)

		account := testutil.CreateTestAccount(t, db)
		err := svc.ApplyTransaction(db, account, models.TransactionType("transfer"), decimal.NewFromInt(1000))
		testutil.AssertAppError(t, err, "INVALID_TRANSACTION_TYPE")
	})
}

func TestReverseTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)

	account := testutil.CreateTestAccountWithBalance(t, db, decimal.NewFromInt(100000))

	err := svc.ApplyTransaction(db, account, models.TransactionTypeExpense, decimal.NewFromInt(40000))
	testutil.AssertNoError(t, err)
	err = svc.ReverseTransaction(db, account, models.TransactionTypeExpense, decimal.NewFromInt(40000))
	testutil.AssertNoError(t, err)

	if !account.Balance.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("expected balance restored to 100000, got %s", account.Balance)
	}
}
