package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Identifier sequencing constants
const (
	// SequenceFloor is the baseline for generated user identifiers. New IDs start
	// above it so they never collide with legacy non-numeric or imported IDs.
	SequenceFloor int64 = 56125810020

	// UserIDSequenceName is the name of the persisted counter row for user IDs
	UserIDSequenceName = "user_id"
)

// Ledger constants
const (
	// UnknownBranch is used when no branch can be derived from an address
	UnknownBranch = "Unknown"

	// RecentTransactionsWindow bounds the transaction listing lookback
	RecentTransactionsWindow = 90 * 24 * time.Hour

	// RecentTransactionsLimit caps rows returned by the transaction listing
	RecentTransactionsLimit = 1000

	// RecentTransactionsCacheTTL is the read-through cache lifetime for listings
	RecentTransactionsCacheTTL = 30 * time.Second

	// TransactionMaxRetries bounds attempts against a stale balance snapshot.
	// Retries happen only before anything is committed.
	TransactionMaxRetries = 3
)

// Activity reporting constants
const (
	// ActivityWindow is the trailing span within which a login marks an identity Active
	ActivityWindow = 90 * 24 * time.Hour

	// LoginCountWindow is the trailing span for the aggregate login counter
	LoginCountWindow = 7 * 24 * time.Hour
)

// Pagination constants
const (
	// DefaultPageSize is applied when a list request does not name one
	DefaultPageSize = 20

	// MaxPageSize caps the page size of list requests
	MaxPageSize = 100
)
