package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCatalog(t *testing.T) {
	t.Run("RoleConstants", func(t *testing.T) {
		assert.Equal(t, 1, RoleCodeSuperAdmin)
		assert.Equal(t, 2, RoleCodeAdmin)
		assert.Equal(t, 3, RoleCodeEmployee)
		assert.Equal(t, 4, RoleCodeCustomer)

		assert.Equal(t, "Super_Admin", RoleSuperAdmin)
		assert.Equal(t, "Admin", RoleAdmin)
		assert.Equal(t, "Employee", RoleEmployee)
		assert.Equal(t, "Customer", RoleCustomer)
	})

	t.Run("StatusConstants", func(t *testing.T) {
		assert.Equal(t, 1, StatusCodeActive)
		assert.Equal(t, 2, StatusCodeInactive)
		assert.Equal(t, 3, StatusCodeSuspended)
		assert.Equal(t, 4, StatusCodePending)
	})

	t.Run("RoleRoundTrip", func(t *testing.T) {
		for _, code := range AllRoleCodes() {
			name, ok := RoleNameByCode(code)
			assert.True(t, ok)
			back, ok := RoleCodeByName(name)
			assert.True(t, ok)
			assert.Equal(t, code, back)
		}
	})

	t.Run("StatusRoundTrip", func(t *testing.T) {
		for _, code := range AllStatusCodes() {
			name, ok := StatusNameByCode(code)
			assert.True(t, ok)
			back, ok := StatusCodeByName(name)
			assert.True(t, ok)
			assert.Equal(t, code, back)
		}
	})

	t.Run("UnknownLookups", func(t *testing.T) {
		_, ok := RoleNameByCode(99)
		assert.False(t, ok)
		_, ok = RoleCodeByName("Wizard")
		assert.False(t, ok)
		_, ok = StatusNameByCode(0)
		assert.False(t, ok)
		_, ok = StatusCodeByName("active") // names are case-sensitive
		assert.False(t, ok)
	})

	t.Run("FinancialVisibility", func(t *testing.T) {
		assert.True(t, RoleHasFinancialVisibility(RoleCodeSuperAdmin))
		assert.True(t, RoleHasFinancialVisibility(RoleCodeAdmin))
		assert.False(t, RoleHasFinancialVisibility(RoleCodeEmployee))
		assert.False(t, RoleHasFinancialVisibility(RoleCodeCustomer))
	})

	t.Run("AdminTier", func(t *testing.T) {
		assert.True(t, RoleIsAdminTier(RoleCodeSuperAdmin))
		assert.True(t, RoleIsAdminTier(RoleCodeAdmin))
		assert.False(t, RoleIsAdminTier(RoleCodeEmployee))
		assert.False(t, RoleIsAdminTier(RoleCodeCustomer))
	})

	t.Run("CatalogOrder", func(t *testing.T) {
		assert.Equal(t, []int{1, 2, 3, 4}, AllRoleCodes())
		assert.Equal(t, []int{1, 2, 3, 4}, AllStatusCodes())
	})
}

func TestUser(t *testing.T) {
	t.Run("TableName", func(t *testing.T) {
		assert.Equal(t, "users", User{}.TableName())
	})

	t.Run("FullName", func(t *testing.T) {
		u := &User{FirstName: "John", LastName: "Doe"}
		assert.Equal(t, "John Doe", u.FullName())

		single := &User{FirstName: "Cher"}
		assert.Equal(t, "Cher", single.FullName())
	})

	t.Run("RoleAndStatusNames", func(t *testing.T) {
		u := &User{RoleCode: RoleCodeCustomer, StatusCode: StatusCodeSuspended}
		assert.Equal(t, "Customer", u.RoleName())
		assert.Equal(t, "Suspended", u.StatusName())

		unknown := &User{RoleCode: 42, StatusCode: 42}
		assert.Equal(t, "", unknown.RoleName())
		assert.Equal(t, "", unknown.StatusName())
	})

	t.Run("HoldsLedger", func(t *testing.T) {
		assert.True(t, (&User{RoleCode: RoleCodeCustomer}).HoldsLedger())
		assert.False(t, (&User{RoleCode: RoleCodeEmployee}).HoldsLedger())
		assert.False(t, (&User{RoleCode: RoleCodeAdmin}).HoldsLedger())
	})

	t.Run("TierHelpers", func(t *testing.T) {
		admin := &User{RoleCode: RoleCodeAdmin}
		assert.True(t, admin.IsAdminTier())
		assert.True(t, admin.HasFinancialVisibility())

		customer := &User{RoleCode: RoleCodeCustomer}
		assert.False(t, customer.IsAdminTier())
		assert.False(t, customer.HasFinancialVisibility())
	})
}

func TestAccount(t *testing.T) {
	t.Run("TableName", func(t *testing.T) {
		assert.Equal(t, "accounts", Account{}.TableName())
	})

	t.Run("IsArchived", func(t *testing.T) {
		a := &Account{}
		assert.False(t, a.IsArchived())

		now := time.Now().UTC()
		a.ArchivedAt = &now
		assert.True(t, a.IsArchived())
	})

	t.Run("CanCover", func(t *testing.T) {
		a := &Account{Balance: decimal.NewFromInt(100)}
		assert.True(t, a.CanCover(decimal.NewFromInt(100)))
		assert.True(t, a.CanCover(decimal.NewFromInt(99)))
		assert.False(t, a.CanCover(decimal.NewFromInt(101)))

		empty := &Account{Balance: decimal.Zero}
		assert.True(t, empty.CanCover(decimal.Zero))
		assert.False(t, empty.CanCover(decimal.NewFromFloat(0.01)))
	})
}

func TestLedgerEntry(t *testing.T) {
	t.Run("TableName", func(t *testing.T) {
		assert.Equal(t, "ledger_entries", LedgerEntry{}.TableName())
	})

	t.Run("NewEntryIDFormat", func(t *testing.T) {
		pattern := regexp.MustCompile(`^TXN[0-9A-F]{8}$`)
		for i := 0; i < 100; i++ {
			id := NewEntryID()
			assert.True(t, pattern.MatchString(id), "unexpected entry id %q", id)
			assert.Len(t, id, 11)
		}
	})

	t.Run("NewEntryIDUniqueness", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			id := NewEntryID()
			assert.False(t, seen[id], "duplicate entry id %q", id)
			seen[id] = true
		}
	})

	t.Run("SignedAmount", func(t *testing.T) {
		inc := &LedgerEntry{Kind: EntryKindIncrease, Amount: decimal.NewFromInt(250)}
		assert.True(t, inc.SignedAmount().Equal(decimal.NewFromInt(250)))

		dec := &LedgerEntry{Kind: EntryKindDecrease, Amount: decimal.NewFromInt(250)}
		assert.True(t, dec.SignedAmount().Equal(decimal.NewFromInt(-250)))
	})

	t.Run("SignedSumReconstructsBalance", func(t *testing.T) {
		entries := []LedgerEntry{
			{Kind: EntryKindIncrease, Amount: decimal.NewFromInt(1000)},
			{Kind: EntryKindDecrease, Amount: decimal.NewFromInt(300)},
			{Kind: EntryKindIncrease, Amount: decimal.NewFromFloat(49.50)},
			{Kind: EntryKindDecrease, Amount: decimal.NewFromFloat(0.50)},
		}
		sum := decimal.Zero
		for i := range entries {
			sum = sum.Add(entries[i].SignedAmount())
		}
		assert.True(t, sum.Equal(decimal.NewFromInt(749)), "got %s", sum)
	})

	t.Run("ValidEntryKind", func(t *testing.T) {
		assert.True(t, ValidEntryKind(EntryKindIncrease))
		assert.True(t, ValidEntryKind(EntryKindDecrease))
		assert.False(t, ValidEntryKind("transfer"))
		assert.False(t, ValidEntryKind(""))
		assert.False(t, ValidEntryKind("Increase"))
	})

	t.Run("BeforeCreateAssignsEntryID", func(t *testing.T) {
		e := &LedgerEntry{}
		assert.NoError(t, e.BeforeCreate(nil))
		assert.NotEmpty(t, e.EntryID)

		fixed := &LedgerEntry{EntryID: "TXN00000001"}
		assert.NoError(t, fixed.BeforeCreate(nil))
		assert.Equal(t, "TXN00000001", fixed.EntryID)
	})
}

func TestLoginEvent(t *testing.T) {
	t.Run("TableName", func(t *testing.T) {
		assert.Equal(t, "login_events", LoginEvent{}.TableName())
	})

	t.Run("NewLoginEventPeriodKeys", func(t *testing.T) {
		at := time.Date(2025, 11, 30, 23, 59, 59, 0, time.UTC)
		e := NewLoginEvent("56125810021", at)

		assert.Equal(t, "56125810021", e.UserID)
		assert.Equal(t, at, e.LoginTime)
		assert.Equal(t, "2025-11", e.Month)
		assert.Equal(t, "2025-11-30", e.Date)
	})

	t.Run("NewLoginEventNormalizesZone", func(t *testing.T) {
		// 03:30 in UTC+5 is 22:30 UTC the previous day; keys come from the UTC view
		zone := time.FixedZone("UTC+5", 5*3600)
		at := time.Date(2025, 3, 1, 3, 30, 0, 0, zone)
		e := NewLoginEvent("56125810021", at)

		assert.Equal(t, "2025-02", e.Month)
		assert.Equal(t, "2025-02-28", e.Date)
		assert.Equal(t, time.UTC, e.LoginTime.Location())
	})
}
