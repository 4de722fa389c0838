// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/shopspring/decimal"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// RoleCount is one row of the per-role aggregate.
type RoleCount struct {
	RoleCode int   `json:"role_code"`
	Count    int64 `json:"count"`
}

// StatusCount is one row of the per-stored-status aggregate.
type StatusCount struct {
	StatusCode int   `json:"status_code"`
	Count      int64 `json:"count"`
}

// MonthlyLoginCount is one row of the per-identity monthly login aggregate.
type MonthlyLoginCount struct {
	UserID    string    `json:"user_id"`
	Count     int64     `json:"count"`
	LastLogin time.Time `json:"last_login"`
}

// UserLastLogin carries the most recent login of one identity.
type UserLastLogin struct {
	UserID    string    `json:"user_id"`
	LastLogin time.Time `json:"last_login"`
}

// UserRepository defines operations for identity records
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByUserID(ctx context.Context, userID string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	UpdateStatus(ctx context.Context, userID string, statusCode int) error
	MaxNumericUserID(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context) ([]RoleCount, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	ListCustomersWithoutAccounts(ctx context.Context) ([]*models.User, error)
}

// AccountRepository defines operations for ledger-holding accounts
type AccountRepository interface {
	Repository[models.Account, models.AccountFilter]
	ByUserID(ctx context.Context, userID string) (*models.Account, error)
	// ByUserIDForUpdate locks the account row for the duration of the enclosing
	// transaction. Callers must be inside WithTransaction.
	ByUserIDForUpdate(ctx context.Context, userID string) (*models.Account, error)
	// CreateIfAbsent inserts the account unless one already exists for its
	// identity; reports whether the insert happened.
	CreateIfAbsent(ctx context.Context, account *models.Account) (bool, error)
	// ApplyBalanceChange writes newBalance only if the stored balance still
	// equals prevBalance; reports whether the guarded update applied.
	ApplyBalanceChange(ctx context.Context, accountID uint, prevBalance, newBalance decimal.Decimal, at time.Time) (bool, error)
	SumBalances(ctx context.Context) (decimal.Decimal, error)
	Archive(ctx context.Context, accountID uint) error
}

// LedgerEntryRepository defines operations for the append-only ledger.
// Entries are immutable: there are deliberately no update or delete methods.
type LedgerEntryRepository interface {
	Repository[models.LedgerEntry, models.LedgerEntryFilter]
	ByEntryID(ctx context.Context, entryID string) (*models.LedgerEntry, error)
	ListRecentByAccount(ctx context.Context, accountID uint, since time.Time, limit int) ([]*models.LedgerEntry, error)
	SumSignedByAccount(ctx context.Context, accountID uint) (decimal.Decimal, error)
}

// LoginEventRepository defines operations for the append-only login history
type LoginEventRepository interface {
	Repository[models.LoginEvent, models.LoginEventFilter]
	ExistsForUserSince(ctx context.Context, userID string, since time.Time) (bool, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	ListActiveUserIDsSince(ctx context.Context, since time.Time) ([]string, error)
	MonthlyCounts(ctx context.Context, month string) ([]MonthlyLoginCount, error)
	LastLoginsBefore(ctx context.Context, before time.Time) ([]UserLastLogin, error)
}

// SequenceRepository issues strictly increasing identifiers from the persisted
// counter. The increment is a single atomic statement against the store; the
// counter row is seeded lazily from the historical maximum.
type SequenceRepository interface {
	AllocateNext(ctx context.Context) (int64, error)
	Current(ctx context.Context) (int64, bool, error)
}
