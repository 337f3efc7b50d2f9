package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finanzas/internal/errors"
	"finanzas/internal/models"
	"finanzas/internal/pagination"
)

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates a new account with an optional starting balance.
func (s *accountService) CreateAccount(name string, accountType models.AccountType, description, currency string, initialBalance decimal.Decimal) (*models.Account, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if currency == "" {
		currency = "COP"
	}

	account := &models.Account{
		Name:        name,
		Type:        accountType,
		Description: description,
		Balance:     initialBalance,
		Currency:    currency,
		IsActive:    true,
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// GetAccounts retrieves a paginated list of accounts.
func (s *accountService) GetAccounts(page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	base := s.db.Model(&models.Account{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).
		Order("name ASC").
		Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID.
func (s *accountService) GetAccountByID(accountID uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.First(&account, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates the editable fields of an account.
func (s *accountService) UpdateAccount(accountID uint, name, description string) (*models.Account, error) {
	account, err := s.GetAccountByID(accountID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}

	account.Name = name
	account.Description = description
	if err := s.db.Save(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// ApplyTransaction updates the account balance for a transaction being
// recorded. Credit accounts track amount owed, so the signs invert:
// an expense grows the balance and an income (payment) shrinks it.
func (s *accountService) ApplyTransaction(tx *gorm.DB, account *models.Account, transactionType models.TransactionType, amount decimal.Decimal) error {
	switch transactionType {
	case models.TransactionTypeIncome:
		if account.Type == models.AccountTypeCredit {
			account.Balance = account.Balance.Sub(amount)
		} else {
			account.Balance = account.Balance.Add(amount)
		}
	case models.TransactionTypeExpense:
		if account.Type == models.AccountTypeCredit {
			account.Balance = account.Balance.Add(amount)
		} else {
			account.Balance = account.Balance.Sub(amount)
		}
	default:
		return apperrors.ErrInvalidTransactionType
	}

	if err := tx.Model(account).Update("balance", account.Balance).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ReverseTransaction undoes the balance effect of a previously recorded
// transaction, used when a transaction row is deleted.
func (s *accountService) ReverseTransaction(tx *gorm.DB, account *models.Account, transactionType models.TransactionType, amount decimal.Decimal) error {
	var reverse models.TransactionType
	switch transactionType {
	case models.TransactionTypeIncome:
		reverse = models.TransactionTypeExpense
	case models.TransactionTypeExpense:
		reverse = models.TransactionTypeIncome
	default:
		return apperrors.ErrInvalidTransactionType
	}
	return s.ApplyTransaction(tx, account, reverse, amount)
}
