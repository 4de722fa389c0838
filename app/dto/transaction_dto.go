package dto

import "github.com/shopspring/decimal"

// PostTransactionRequest represents a balance change request against a
// customer account
type PostTransactionRequest struct {
	UserID string          `json:"user_id" validate:"required,numeric,max=20" example:"56125810021"`
	Amount decimal.Decimal `json:"amount" validate:"required" example:"250.00"`
	Kind   string          `json:"kind" validate:"required,oneof=increase decrease" example:"increase"`
}

// LedgerEntryDTO represents a single ledger entry returned by the API
type LedgerEntryDTO struct {
	EntryID   string          `json:"entry_id" example:"TXN9F2C4B1A"`
	UserID    string          `json:"user_id" example:"56125810021"`
	Kind      string          `json:"kind" example:"increase"`
	Amount    decimal.Decimal `json:"amount" example:"250.00"`
	CreatedAt string          `json:"created_at" example:"2024-01-20T10:30:00Z"`
}

// TransactionReceiptResponse confirms a posted transaction together with the
// balance it produced
type TransactionReceiptResponse struct {
	Entry      LedgerEntryDTO  `json:"entry"`
	NewBalance decimal.Decimal `json:"new_balance" example:"1500.00"`
	PostedAt   string          `json:"posted_at" example:"2024-01-20T10:30:00Z"`
}

// ListTransactionsResponse lists recent ledger entries for one account
type ListTransactionsResponse struct {
	UserID  string           `json:"user_id" example:"56125810021"`
	Entries []LedgerEntryDTO `json:"entries"`
	Count   int              `json:"count" example:"12"`
}

// Common error codes for transaction operations
const (
	ErrorCodeInvalidAmount     = "INVALID_AMOUNT"
	ErrorCodeInvalidEntryKind  = "INVALID_ENTRY_KIND"
	ErrorCodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	ErrorCodeBalanceConflict   = "BALANCE_CONFLICT"
)
