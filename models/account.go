package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the single ledger-holding record of a customer identity. The
// balance is written only by the transaction engine, always in the same
// database transaction as the matching ledger entry.
type Account struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"size:64;not null;uniqueIndex:uk_accounts_user_id" json:"user_id"`

	Balance decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"balance"`

	// Branch is derived once from the owner's address at creation time. It is a
	// display convenience, not an invariant-bearing field.
	Branch string `gorm:"size:64;not null;default:'Unknown'" json:"branch"`

	LastTransaction *time.Time `gorm:"index:idx_accounts_last_transaction" json:"last_transaction,omitempty"`

	// Timestamps
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Accounts are archived, never deleted, so ledger history stays attributable.
	ArchivedAt *time.Time `gorm:"index:idx_accounts_archived_at" json:"archived_at,omitempty"`

	// Relations
	User          *User         `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
	LedgerEntries []LedgerEntry `gorm:"foreignKey:AccountID" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID              *uint
	UserID          *string
	Branch          *string
	IncludeArchived bool
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
}

// IsArchived reports whether the account has been archived.
func (a *Account) IsArchived() bool {
	return a.ArchivedAt != nil
}

// CanCover reports whether the current balance covers a decrease of amount.
func (a *Account) CanCover(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
