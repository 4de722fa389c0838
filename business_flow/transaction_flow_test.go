package businessflow

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ledgerdesk/ledgerdesk/app/dto"
	"github.com/ledgerdesk/ledgerdesk/app/services"
	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/repository"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transactionEnv struct {
	users    *repository.MemoryUserRepository
	accounts *repository.MemoryAccountRepository
	ledger   *repository.MemoryLedgerEntryRepository
	flow     TransactionFlow
}

func newTransactionEnv(t *testing.T) *transactionEnv {
	t.Helper()

	users := repository.NewMemoryUserRepository()
	accounts := repository.NewMemoryAccountRepository()
	ledger := repository.NewMemoryLedgerEntryRepository()
	users.BindAccounts(accounts)

	flow := NewTransactionFlow(users, accounts, ledger, nil, services.NewNoopEventPublisher(), nil, nil, nil)
	return &transactionEnv{users: users, accounts: accounts, ledger: ledger, flow: flow}
}

func (env *transactionEnv) seedCustomer(t *testing.T, userID, balance string) *models.Account {
	t.Helper()
	ctx := context.Background()

	user := &models.User{
		UserID:     userID,
		FirstName:  "Holder",
		LastName:   userID,
		Email:      userID + "@example.com",
		RoleCode:   models.RoleCodeCustomer,
		StatusCode: models.StatusCodeActive,
	}
	require.NoError(t, env.users.Save(ctx, user))

	account := &models.Account{
		UserID:  userID,
		Balance: decimal.RequireFromString(balance),
		Branch:  "Downtown",
	}
	created, err := env.accounts.CreateIfAbsent(ctx, account)
	require.NoError(t, err)
	require.True(t, created)

	return account
}

func (env *transactionEnv) entryCount(t *testing.T, accountID uint) int {
	t.Helper()
	entries, err := env.ledger.ListRecentByAccount(context.Background(), accountID, time.Time{}, 1000)
	require.NoError(t, err)
	return len(entries)
}

func post(env *transactionEnv, userID, kind, amount string) (*dto.TransactionReceiptResponse, error) {
	return env.flow.PostTransaction(context.Background(), &dto.PostTransactionRequest{
		UserID: userID,
		Amount: decimal.RequireFromString(amount),
		Kind:   kind,
	}, nil)
}

func TestPostTransaction(t *testing.T) {
	ctx := context.Background()
	entryIDPattern := regexp.MustCompile(`^TXN[0-9A-F]{8}$`)

	t.Run("IncreaseThenDecrease", func(t *testing.T) {
		env := newTransactionEnv(t)
		env.seedCustomer(t, "56125810021", "0")

		receipt, err := post(env, "56125810021", models.EntryKindIncrease, "250.75")
		require.NoError(t, err)
		assert.Regexp(t, entryIDPattern, receipt.Entry.EntryID)
		assert.Equal(t, models.EntryKindIncrease, receipt.Entry.Kind)
		assert.True(t, receipt.NewBalance.Equal(decimal.RequireFromString("250.75")))

		postedAt, err := time.Parse(time.RFC3339, receipt.PostedAt)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC(), postedAt, time.Minute)

		receipt, err = post(env, "56125810021", models.EntryKindDecrease, "100.25")
		require.NoError(t, err)
		assert.True(t, receipt.NewBalance.Equal(decimal.RequireFromString("150.50")))

		account, err := env.accounts.ByUserID(ctx, "56125810021")
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(decimal.RequireFromString("150.50")))
		assert.NotNil(t, account.LastTransaction)
	})

	t.Run("DecreaseToExactlyZero", func(t *testing.T) {
		env := newTransactionEnv(t)
		env.seedCustomer(t, "1", "75.00")

		receipt, err := post(env, "1", models.EntryKindDecrease, "75.00")
		require.NoError(t, err)
		assert.True(t, receipt.NewBalance.IsZero())
	})

	t.Run("OverdraftRejected", func(t *testing.T) {
		env := newTransactionEnv(t)
		account := env.seedCustomer(t, "1", "50")

		receipt, err := post(env, "1", models.EntryKindDecrease, "50.01")
		assert.Nil(t, receipt)
		assert.True(t, IsInsufficientFunds(err))

		// Rejected attempts leave no trace
		stored, err := env.accounts.ByUserID(ctx, "1")
		require.NoError(t, err)
		assert.True(t, stored.Balance.Equal(decimal.RequireFromString("50")))
		assert.Zero(t, env.entryCount(t, account.ID))
	})

	t.Run("NonPositiveAmounts", func(t *testing.T) {
		env := newTransactionEnv(t)
		env.seedCustomer(t, "1", "100")

		_, err := post(env, "1", models.EntryKindIncrease, "0")
		assert.True(t, IsInvalidAmount(err))

		_, err = post(env, "1", models.EntryKindIncrease, "-10")
		assert.True(t, IsInvalidAmount(err))
	})

	t.Run("UnknownKind", func(t *testing.T) {
		env := newTransactionEnv(t)
		env.seedCustomer(t, "1", "100")

		_, err := post(env, "1", "transfer", "10")
		assert.True(t, IsInvalidEntryKind(err))
	})

	t.Run("UnknownUser", func(t *testing.T) {
		env := newTransactionEnv(t)

		_, err := post(env, "404", models.EntryKindIncrease, "10")
		assert.True(t, IsUserNotFound(err))
	})

	t.Run("UserWithoutAccount", func(t *testing.T) {
		env := newTransactionEnv(t)
		require.NoError(t, env.users.Save(ctx, &models.User{
			UserID:     "2",
			FirstName:  "Back",
			LastName:   "Office",
			Email:      "backoffice@example.com",
			RoleCode:   models.RoleCodeEmployee,
			StatusCode: models.StatusCodeActive,
		}))

		_, err := post(env, "2", models.EntryKindIncrease, "10")
		assert.True(t, IsAccountNotFound(err))
	})

	t.Run("ArchivedAccount", func(t *testing.T) {
		env := newTransactionEnv(t)
		account := env.seedCustomer(t, "3", "500")
		require.NoError(t, env.accounts.Archive(ctx, account.ID))

		_, err := post(env, "3", models.EntryKindIncrease, "10")
		assert.True(t, IsAccountArchived(err))
	})
}

func TestPostTransactionConcurrentDecreases(t *testing.T) {
	env := newTransactionEnv(t)
	account := env.seedCustomer(t, "1", "100")

	// Two writers race for the same balance. The loser's snapshot goes stale,
	// it retries against the committed balance of 40 and finds it cannot cover
	// another 60.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = post(env, "1", models.EntryKindDecrease, "60")
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case IsInsufficientFunds(err):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	stored, err := env.accounts.ByUserID(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("40")))
	assert.Equal(t, 1, env.entryCount(t, account.ID))
}

func TestLedgerReconstructsBalance(t *testing.T) {
	env := newTransactionEnv(t)
	account := env.seedCustomer(t, "1", "0")

	for _, p := range []struct {
		kind   string
		amount string
	}{
		{models.EntryKindIncrease, "1000"},
		{models.EntryKindDecrease, "300"},
		{models.EntryKindIncrease, "49.50"},
		{models.EntryKindDecrease, "0.50"},
	} {
		_, err := post(env, "1", p.kind, p.amount)
		require.NoError(t, err)
	}

	stored, err := env.accounts.ByUserID(context.Background(), "1")
	require.NoError(t, err)

	sum, err := env.ledger.SumSignedByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(stored.Balance), "signed ledger sum %s should equal balance %s", sum, stored.Balance)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("749")))
}

func TestGetAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("Projection", func(t *testing.T) {
		env := newTransactionEnv(t)
		env.seedCustomer(t, "1", "0")

		_, err := post(env, "1", models.EntryKindIncrease, "100")
		require.NoError(t, err)
		_, err = post(env, "1", models.EntryKindDecrease, "25")
		require.NoError(t, err)

		resp, err := env.flow.GetAccount(ctx, "1")
		require.NoError(t, err)
		assert.True(t, resp.Account.Balance.Equal(decimal.RequireFromString("75")))
		assert.Equal(t, "Downtown", resp.Account.Branch)
		require.NotNil(t, resp.Owner)
		assert.Equal(t, "1", resp.Owner.UserID)

		require.Len(t, resp.RecentTransactions, 2)
		assert.Equal(t, models.EntryKindDecrease, resp.RecentTransactions[0].Kind)
		assert.Equal(t, models.EntryKindIncrease, resp.RecentTransactions[1].Kind)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		env := newTransactionEnv(t)

		_, err := env.flow.GetAccount(ctx, "404")
		assert.True(t, IsUserNotFound(err))
	})

	t.Run("UserWithoutAccount", func(t *testing.T) {
		env := newTransactionEnv(t)
		require.NoError(t, env.users.Save(ctx, &models.User{
			UserID:     "2",
			FirstName:  "Back",
			LastName:   "Office",
			Email:      "backoffice2@example.com",
			RoleCode:   models.RoleCodeEmployee,
			StatusCode: models.StatusCodeActive,
		}))

		_, err := env.flow.GetAccount(ctx, "2")
		assert.True(t, IsAccountNotFound(err))
	})
}

func TestListRecentTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("NewestFirst", func(t *testing.T) {
		env := newTransactionEnv(t)
		env.seedCustomer(t, "1", "0")

		for _, amount := range []string{"10", "20", "30"} {
			_, err := post(env, "1", models.EntryKindIncrease, amount)
			require.NoError(t, err)
		}

		resp, err := env.flow.ListRecentTransactions(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "1", resp.UserID)
		assert.Equal(t, 3, resp.Count)
		require.Len(t, resp.Entries, 3)
		assert.True(t, resp.Entries[0].Amount.Equal(decimal.RequireFromString("30")))
		assert.True(t, resp.Entries[2].Amount.Equal(decimal.RequireFromString("10")))
	})

	t.Run("OldEntriesFallOutOfWindow", func(t *testing.T) {
		env := newTransactionEnv(t)
		account := env.seedCustomer(t, "1", "0")

		stale := &models.LedgerEntry{
			UserID:    "1",
			AccountID: account.ID,
			Amount:    decimal.RequireFromString("5"),
			Kind:      models.EntryKindIncrease,
			CreatedAt: time.Now().UTC().Add(-91 * 24 * time.Hour),
		}
		require.NoError(t, env.ledger.Save(ctx, stale))

		_, err := post(env, "1", models.EntryKindIncrease, "10")
		require.NoError(t, err)

		resp, err := env.flow.ListRecentTransactions(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Count)
		assert.True(t, resp.Entries[0].Amount.Equal(decimal.RequireFromString("10")))
	})

	t.Run("UnknownUser", func(t *testing.T) {
		env := newTransactionEnv(t)

		_, err := env.flow.ListRecentTransactions(ctx, "404")
		assert.True(t, IsUserNotFound(err))
	})
}

func TestRecentTransactionsCacheDegradation(t *testing.T) {
	ctx := context.Background()

	users := repository.NewMemoryUserRepository()
	accounts := repository.NewMemoryAccountRepository()
	ledger := repository.NewMemoryLedgerEntryRepository()
	users.BindAccounts(accounts)

	// Nothing listens on port 1, so every cache call fails. Reads must fall
	// through to the store and posts must still commit.
	rc := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		ReadTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rc.Close() })

	flow := NewTransactionFlow(users, accounts, ledger, nil, services.NewNoopEventPublisher(), rc, nil, nil)
	env := &transactionEnv{users: users, accounts: accounts, ledger: ledger, flow: flow}
	env.seedCustomer(t, "1", "100")

	receipt, err := flow.PostTransaction(ctx, &dto.PostTransactionRequest{
		UserID: "1",
		Amount: decimal.RequireFromString("25"),
		Kind:   models.EntryKindIncrease,
	}, nil)
	require.NoError(t, err)
	assert.True(t, receipt.NewBalance.Equal(decimal.RequireFromString("125")))

	resp, err := flow.ListRecentTransactions(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.True(t, resp.Entries[0].Amount.Equal(decimal.RequireFromString("25")))
}
