package models

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger entry kinds. The only two balance-changing operations.
const (
	EntryKindIncrease = "increase"
	EntryKindDecrease = "decrease"
)

// LedgerEntry is one immutable record of a balance change. Entries are only
// ever inserted; there are no update or delete paths anywhere in the codebase.
type LedgerEntry struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// EntryID is the externally visible transaction identifier ("TXN" + 8 hex chars).
	EntryID string `gorm:"size:16;not null;uniqueIndex:uk_ledger_entries_entry_id" json:"entry_id"`

	UserID    string `gorm:"size:64;not null;index:idx_ledger_entries_user_id" json:"user_id"`
	AccountID uint   `gorm:"not null;index:idx_ledger_entries_account_id" json:"account_id"`

	// Amount is always positive; Kind carries the sign.
	Amount decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Kind   string          `gorm:"size:16;not null" json:"kind"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_ledger_entries_created_at" json:"created_at"`

	// Relations
	Account *Account `gorm:"foreignKey:AccountID" json:"-"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// LedgerEntryFilter represents filter criteria for ledger entry queries
type LedgerEntryFilter struct {
	EntryID       *string
	UserID        *string
	AccountID     *uint
	Kind          *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// BeforeCreate assigns the entry identifier when the caller has not.
func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.EntryID == "" {
		e.EntryID = NewEntryID()
	}
	return nil
}

// NewEntryID builds a transaction identifier: "TXN" followed by the first
// eight hex characters of a random UUID, uppercased.
func NewEntryID() string {
	u := uuid.New()
	return "TXN" + strings.ToUpper(hex.EncodeToString(u[:4]))
}

// SignedAmount returns the amount with the sign implied by the entry kind, so
// summing signed amounts in commit order reconstructs the account balance.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Kind == EntryKindDecrease {
		return e.Amount.Neg()
	}
	return e.Amount
}

// ValidEntryKind reports whether kind is one of the accepted entry kinds.
func ValidEntryKind(kind string) bool {
	return kind == EntryKindIncrease || kind == EntryKindDecrease
}
