package repository

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSequenceFloor int64 = 56125810020

func seedUser(t *testing.T, repo UserRepository, userID string, roleCode int) *models.User {
	t.Helper()
	user := &models.User{
		UserID:     userID,
		FirstName:  "John",
		LastName:   "Doe",
		Email:      fmt.Sprintf("%s@example.com", userID),
		RoleCode:   roleCode,
		StatusCode: models.StatusCodeActive,
	}
	require.NoError(t, repo.Save(context.Background(), user))
	return user
}

func TestMemorySequenceRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SeedsFromFloorWhenNoNumericIDs", func(t *testing.T) {
		users := NewMemoryUserRepository()
		seq := NewMemorySequenceRepository(users, testSequenceFloor)

		first, err := seq.AllocateNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, testSequenceFloor+1, first)

		second, err := seq.AllocateNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, testSequenceFloor+2, second)
	})

	t.Run("SeedsFromMaxExistingNumericID", func(t *testing.T) {
		users := NewMemoryUserRepository()
		seedUser(t, users, strconv.FormatInt(testSequenceFloor+500, 10), models.RoleCodeCustomer)
		seedUser(t, users, strconv.FormatInt(testSequenceFloor+120, 10), models.RoleCodeCustomer)

		seq := NewMemorySequenceRepository(users, testSequenceFloor)
		next, err := seq.AllocateNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, testSequenceFloor+501, next)
	})

	t.Run("IgnoresNonNumericLegacyIDs", func(t *testing.T) {
		users := NewMemoryUserRepository()
		seedUser(t, users, "legacy-alpha-01", models.RoleCodeEmployee)
		seedUser(t, users, "OPS/4412", models.RoleCodeEmployee)

		seq := NewMemorySequenceRepository(users, testSequenceFloor)
		next, err := seq.AllocateNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, testSequenceFloor+1, next)
	})

	t.Run("SeedsOnceThenCountsPastStaleMax", func(t *testing.T) {
		// A numeric ID inserted after seeding must not rewind the counter
		users := NewMemoryUserRepository()
		seq := NewMemorySequenceRepository(users, testSequenceFloor)

		first, err := seq.AllocateNext(ctx)
		require.NoError(t, err)

		seedUser(t, users, strconv.FormatInt(testSequenceFloor-1000, 10), models.RoleCodeCustomer)

		second, err := seq.AllocateNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, first+1, second)
	})

	t.Run("Current", func(t *testing.T) {
		users := NewMemoryUserRepository()
		seq := NewMemorySequenceRepository(users, testSequenceFloor)

		_, seeded, err := seq.Current(ctx)
		require.NoError(t, err)
		assert.False(t, seeded)

		allocated, err := seq.AllocateNext(ctx)
		require.NoError(t, err)

		current, seeded, err := seq.Current(ctx)
		require.NoError(t, err)
		assert.True(t, seeded)
		assert.Equal(t, allocated, current)
	})

	t.Run("ConcurrentAllocationsAreUnique", func(t *testing.T) {
		users := NewMemoryUserRepository()
		seq := NewMemorySequenceRepository(users, testSequenceFloor)

		const workers = 50
		results := make(chan int64, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := seq.AllocateNext(ctx)
				assert.NoError(t, err)
				results <- id
			}()
		}
		wg.Wait()
		close(results)

		seen := make(map[int64]bool, workers)
		var max int64
		for id := range results {
			assert.False(t, seen[id], "identifier %d allocated twice", id)
			seen[id] = true
			assert.Greater(t, id, testSequenceFloor)
			if id > max {
				max = id
			}
		}
		assert.Len(t, seen, workers)
		assert.Equal(t, testSequenceFloor+workers, max)
	})
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveAndLookup", func(t *testing.T) {
		repo := NewMemoryUserRepository()
		user := seedUser(t, repo, "56125810021", models.RoleCodeCustomer)
		assert.NotZero(t, user.ID)

		byUserID, err := repo.ByUserID(ctx, "56125810021")
		require.NoError(t, err)
		require.NotNil(t, byUserID)
		assert.Equal(t, user.Email, byUserID.Email)

		byEmail, err := repo.ByEmail(ctx, user.Email)
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, "56125810021", byEmail.UserID)

		missing, err := repo.ByUserID(ctx, "0")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("MaxNumericUserID", func(t *testing.T) {
		repo := NewMemoryUserRepository()

		max, err := repo.MaxNumericUserID(ctx)
		require.NoError(t, err)
		assert.Zero(t, max)

		seedUser(t, repo, "100", models.RoleCodeEmployee)
		seedUser(t, repo, "legacy-900", models.RoleCodeEmployee)
		seedUser(t, repo, "56125810400", models.RoleCodeCustomer)

		max, err = repo.MaxNumericUserID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(56125810400), max)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		repo := NewMemoryUserRepository()
		seedUser(t, repo, "56125810021", models.RoleCodeCustomer)

		require.NoError(t, repo.UpdateStatus(ctx, "56125810021", models.StatusCodeSuspended))

		user, err := repo.ByUserID(ctx, "56125810021")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCodeSuspended, user.StatusCode)
	})

	t.Run("UpdateLastLogin", func(t *testing.T) {
		repo := NewMemoryUserRepository()
		seedUser(t, repo, "56125810021", models.RoleCodeCustomer)

		at := time.Date(2025, 8, 1, 9, 30, 0, 0, time.UTC)
		require.NoError(t, repo.UpdateLastLogin(ctx, "56125810021", at))

		user, err := repo.ByUserID(ctx, "56125810021")
		require.NoError(t, err)
		require.NotNil(t, user.LastLoginAt)
		assert.Equal(t, at, *user.LastLoginAt)
	})

	t.Run("CountByRoleAndStatus", func(t *testing.T) {
		repo := NewMemoryUserRepository()
		seedUser(t, repo, "1", models.RoleCodeAdmin)
		seedUser(t, repo, "2", models.RoleCodeCustomer)
		seedUser(t, repo, "3", models.RoleCodeCustomer)
		require.NoError(t, repo.UpdateStatus(ctx, "3", models.StatusCodePending))

		roles, err := repo.CountByRole(ctx)
		require.NoError(t, err)
		assert.Equal(t, []RoleCount{
			{RoleCode: models.RoleCodeAdmin, Count: 1},
			{RoleCode: models.RoleCodeCustomer, Count: 2},
		}, roles)

		statuses, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, []StatusCount{
			{StatusCode: models.StatusCodeActive, Count: 2},
			{StatusCode: models.StatusCodePending, Count: 1},
		}, statuses)
	})

	t.Run("ByFilterWithPaging", func(t *testing.T) {
		repo := NewMemoryUserRepository()
		for i := 1; i <= 5; i++ {
			seedUser(t, repo, strconv.Itoa(i), models.RoleCodeCustomer)
		}
		seedUser(t, repo, "6", models.RoleCodeAdmin)

		role := models.RoleCodeCustomer
		filter := models.UserFilter{RoleCode: &role}

		total, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)

		page, err := repo.ByFilter(ctx, filter, "id ASC", 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "3", page[0].UserID)
		assert.Equal(t, "4", page[1].UserID)

		desc, err := repo.ByFilter(ctx, filter, "id DESC", 1, 0)
		require.NoError(t, err)
		require.Len(t, desc, 1)
		assert.Equal(t, "5", desc[0].UserID)

		beyond, err := repo.ByFilter(ctx, filter, "id ASC", 10, 10)
		require.NoError(t, err)
		assert.Empty(t, beyond)
	})

	t.Run("ListCustomersWithoutAccounts", func(t *testing.T) {
		users := NewMemoryUserRepository()
		accounts := NewMemoryAccountRepository()
		users.BindAccounts(accounts)

		seedUser(t, users, "10", models.RoleCodeCustomer)
		seedUser(t, users, "11", models.RoleCodeCustomer)
		seedUser(t, users, "12", models.RoleCodeEmployee)

		_, err := accounts.CreateIfAbsent(ctx, &models.Account{UserID: "10", Balance: decimal.Zero})
		require.NoError(t, err)

		missing, err := users.ListCustomersWithoutAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, missing, 1)
		assert.Equal(t, "11", missing[0].UserID)
	})
}

func TestMemoryAccountRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateIfAbsent", func(t *testing.T) {
		repo := NewMemoryAccountRepository()

		created, err := repo.CreateIfAbsent(ctx, &models.Account{UserID: "56125810021", Balance: decimal.Zero})
		require.NoError(t, err)
		assert.True(t, created)

		again, err := repo.CreateIfAbsent(ctx, &models.Account{UserID: "56125810021", Balance: decimal.Zero})
		require.NoError(t, err)
		assert.False(t, again)

		count, err := repo.Count(ctx, models.AccountFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("DefaultsBranch", func(t *testing.T) {
		repo := NewMemoryAccountRepository()
		account := &models.Account{UserID: "56125810021", Balance: decimal.Zero}
		require.NoError(t, repo.Save(ctx, account))
		assert.Equal(t, "Unknown", account.Branch)
	})

	t.Run("ApplyBalanceChangeGuard", func(t *testing.T) {
		repo := NewMemoryAccountRepository()
		account := &models.Account{UserID: "56125810021", Balance: decimal.NewFromInt(100)}
		require.NoError(t, repo.Save(ctx, account))

		at := time.Now().UTC()
		applied, err := repo.ApplyBalanceChange(ctx, account.ID, decimal.NewFromInt(100), decimal.NewFromInt(40), at)
		require.NoError(t, err)
		assert.True(t, applied)

		// Second write against the stale snapshot must be refused
		applied, err = repo.ApplyBalanceChange(ctx, account.ID, decimal.NewFromInt(100), decimal.NewFromInt(40), at)
		require.NoError(t, err)
		assert.False(t, applied)

		stored, err := repo.ByUserID(ctx, "56125810021")
		require.NoError(t, err)
		assert.True(t, stored.Balance.Equal(decimal.NewFromInt(40)))
		require.NotNil(t, stored.LastTransaction)
	})

	t.Run("SumBalancesSkipsArchived", func(t *testing.T) {
		repo := NewMemoryAccountRepository()

		a := &models.Account{UserID: "1", Balance: decimal.NewFromInt(100)}
		b := &models.Account{UserID: "2", Balance: decimal.NewFromInt(250)}
		require.NoError(t, repo.Save(ctx, a))
		require.NoError(t, repo.Save(ctx, b))

		sum, err := repo.SumBalances(ctx)
		require.NoError(t, err)
		assert.True(t, sum.Equal(decimal.NewFromInt(350)))

		require.NoError(t, repo.Archive(ctx, b.ID))

		sum, err = repo.SumBalances(ctx)
		require.NoError(t, err)
		assert.True(t, sum.Equal(decimal.NewFromInt(100)))
	})

	t.Run("ArchiveIsSticky", func(t *testing.T) {
		repo := NewMemoryAccountRepository()
		account := &models.Account{UserID: "1", Balance: decimal.Zero}
		require.NoError(t, repo.Save(ctx, account))

		require.NoError(t, repo.Archive(ctx, account.ID))
		stored, err := repo.ByUserID(ctx, "1")
		require.NoError(t, err)
		require.NotNil(t, stored.ArchivedAt)
		firstArchive := *stored.ArchivedAt

		// Archiving again keeps the original timestamp
		require.NoError(t, repo.Archive(ctx, account.ID))
		stored, err = repo.ByUserID(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, firstArchive, *stored.ArchivedAt)

		// Archived accounts stay visible when asked for
		filterAll := models.AccountFilter{IncludeArchived: true}
		count, err := repo.Count(ctx, filterAll)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		count, err = repo.Count(ctx, models.AccountFilter{})
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestMemoryLedgerEntryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveAssignsEntryID", func(t *testing.T) {
		repo := NewMemoryLedgerEntryRepository()
		entry := &models.LedgerEntry{
			UserID:    "56125810021",
			AccountID: 1,
			Amount:    decimal.NewFromInt(250),
			Kind:      models.EntryKindIncrease,
		}
		require.NoError(t, repo.Save(ctx, entry))
		assert.NotEmpty(t, entry.EntryID)

		stored, err := repo.ByEntryID(ctx, entry.EntryID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.True(t, stored.Amount.Equal(decimal.NewFromInt(250)))
	})

	t.Run("SumSignedByAccount", func(t *testing.T) {
		repo := NewMemoryLedgerEntryRepository()
		save := func(accountID uint, kind string, amount int64) {
			require.NoError(t, repo.Save(ctx, &models.LedgerEntry{
				UserID:    "56125810021",
				AccountID: accountID,
				Amount:    decimal.NewFromInt(amount),
				Kind:      kind,
			}))
		}
		save(1, models.EntryKindIncrease, 1000)
		save(1, models.EntryKindDecrease, 300)
		save(1, models.EntryKindIncrease, 50)
		save(2, models.EntryKindIncrease, 9999)

		sum, err := repo.SumSignedByAccount(ctx, 1)
		require.NoError(t, err)
		assert.True(t, sum.Equal(decimal.NewFromInt(750)), "got %s", sum)

		empty, err := repo.SumSignedByAccount(ctx, 3)
		require.NoError(t, err)
		assert.True(t, empty.IsZero())
	})

	t.Run("ListRecentByAccount", func(t *testing.T) {
		repo := NewMemoryLedgerEntryRepository()
		now := time.Now().UTC()

		old := &models.LedgerEntry{UserID: "1", AccountID: 1, Amount: decimal.NewFromInt(1), Kind: models.EntryKindIncrease, CreatedAt: now.Add(-48 * time.Hour)}
		mid := &models.LedgerEntry{UserID: "1", AccountID: 1, Amount: decimal.NewFromInt(2), Kind: models.EntryKindIncrease, CreatedAt: now.Add(-2 * time.Hour)}
		newest := &models.LedgerEntry{UserID: "1", AccountID: 1, Amount: decimal.NewFromInt(3), Kind: models.EntryKindIncrease, CreatedAt: now}
		for _, e := range []*models.LedgerEntry{old, mid, newest} {
			require.NoError(t, repo.Save(ctx, e))
		}

		recent, err := repo.ListRecentByAccount(ctx, 1, now.Add(-24*time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		// Newest first
		assert.True(t, recent[0].Amount.Equal(decimal.NewFromInt(3)))
		assert.True(t, recent[1].Amount.Equal(decimal.NewFromInt(2)))

		capped, err := repo.ListRecentByAccount(ctx, 1, now.Add(-72*time.Hour), 1)
		require.NoError(t, err)
		require.Len(t, capped, 1)
		assert.True(t, capped[0].Amount.Equal(decimal.NewFromInt(3)))
	})
}

func TestMemoryLoginEventRepository(t *testing.T) {
	ctx := context.Background()

	saveAt := func(t *testing.T, repo *MemoryLoginEventRepository, userID string, at time.Time) {
		t.Helper()
		require.NoError(t, repo.Save(ctx, models.NewLoginEvent(userID, at)))
	}

	t.Run("ExistsForUserSince", func(t *testing.T) {
		repo := NewMemoryLoginEventRepository()
		now := time.Now().UTC()
		saveAt(t, repo, "1", now.Add(-10*24*time.Hour))

		ok, err := repo.ExistsForUserSince(ctx, "1", now.Add(-11*24*time.Hour))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ExistsForUserSince(ctx, "1", now.Add(-9*24*time.Hour))
		require.NoError(t, err)
		assert.False(t, ok)

		// The window edge is inclusive
		edge := now.Add(-30 * 24 * time.Hour)
		saveAt(t, repo, "2", edge)
		ok, err = repo.ExistsForUserSince(ctx, "2", edge)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("CountSince", func(t *testing.T) {
		repo := NewMemoryLoginEventRepository()
		now := time.Now().UTC()
		saveAt(t, repo, "1", now.Add(-1*24*time.Hour))
		saveAt(t, repo, "1", now.Add(-3*24*time.Hour))
		saveAt(t, repo, "2", now.Add(-6*24*time.Hour))
		saveAt(t, repo, "3", now.Add(-8*24*time.Hour))

		count, err := repo.CountSince(ctx, now.Add(-7*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("ListActiveUserIDsSince", func(t *testing.T) {
		repo := NewMemoryLoginEventRepository()
		now := time.Now().UTC()
		saveAt(t, repo, "1", now.Add(-time.Hour))
		saveAt(t, repo, "1", now.Add(-2*time.Hour))
		saveAt(t, repo, "2", now.Add(-3*time.Hour))
		saveAt(t, repo, "3", now.Add(-100*24*time.Hour))

		ids, err := repo.ListActiveUserIDsSince(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, ids)
	})

	t.Run("MonthlyCounts", func(t *testing.T) {
		repo := NewMemoryLoginEventRepository()
		saveAt(t, repo, "1", time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC))
		saveAt(t, repo, "1", time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC))
		saveAt(t, repo, "2", time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC))
		saveAt(t, repo, "1", time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC))

		counts, err := repo.MonthlyCounts(ctx, "2025-07")
		require.NoError(t, err)
		require.Len(t, counts, 2)

		byUser := make(map[string]MonthlyLoginCount)
		for _, c := range counts {
			byUser[c.UserID] = c
		}
		assert.Equal(t, int64(2), byUser["1"].Count)
		assert.Equal(t, time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC), byUser["1"].LastLogin)
		assert.Equal(t, int64(1), byUser["2"].Count)
	})

	t.Run("LastLoginsBefore", func(t *testing.T) {
		repo := NewMemoryLoginEventRepository()
		cutoff := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
		saveAt(t, repo, "1", time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC))
		saveAt(t, repo, "1", time.Date(2025, 7, 25, 10, 0, 0, 0, time.UTC))
		saveAt(t, repo, "2", time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC))

		rows, err := repo.LastLoginsBefore(ctx, cutoff)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "1", rows[0].UserID)
		assert.Equal(t, time.Date(2025, 7, 25, 10, 0, 0, 0, time.UTC), rows[0].LastLogin)
	})
}
