package dto

import "github.com/shopspring/decimal"

// CreateAccountRequest represents the payload for opening an account for an
// existing customer
type CreateAccountRequest struct {
	UserID string `json:"user_id" validate:"required,numeric,max=20" example:"56125810021"`
}

// AccountDTO represents account information returned by the API
type AccountDTO struct {
	UserID          string          `json:"user_id" example:"56125810021"`
	Balance         decimal.Decimal `json:"balance" example:"1250.00"`
	Branch          string          `json:"branch" example:"Midtown"`
	LastTransaction *string         `json:"last_transaction,omitempty" example:"2024-01-20T10:30:00Z"`
	Archived        bool            `json:"archived" example:"false"`
	CreatedAt       string          `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// GetAccountResponse is the account projection for a single customer
type GetAccountResponse struct {
	Account            AccountDTO       `json:"account"`
	Owner              *UserDTO         `json:"owner,omitempty"`
	RecentTransactions []LedgerEntryDTO `json:"recent_transactions"`
}

// Common error codes for account operations
const (
	ErrorCodeAccountNotFound  = "ACCOUNT_NOT_FOUND"
	ErrorCodeDuplicateAccount = "DUPLICATE_ACCOUNT"
	ErrorCodeAccountArchived  = "ACCOUNT_ARCHIVED"
)
