package businessflow

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ledgerdesk/ledgerdesk/app/dto"
	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type reportingEnv struct {
	users       *repository.MemoryUserRepository
	accounts    *repository.MemoryAccountRepository
	loginEvents *repository.MemoryLoginEventRepository
	flow        ReportingFlow
}

func newReportingEnv(t *testing.T) *reportingEnv {
	t.Helper()

	users := repository.NewMemoryUserRepository()
	accounts := repository.NewMemoryAccountRepository()
	loginEvents := repository.NewMemoryLoginEventRepository()
	users.BindAccounts(accounts)

	return &reportingEnv{
		users:       users,
		accounts:    accounts,
		loginEvents: loginEvents,
		flow:        NewReportingFlow(users, accounts, loginEvents),
	}
}

func (env *reportingEnv) addUser(t *testing.T, userID string, roleCode, statusCode int) *models.User {
	t.Helper()
	user := &models.User{
		UserID:     userID,
		FirstName:  "User",
		LastName:   userID,
		Email:      userID + "@example.com",
		RoleCode:   roleCode,
		StatusCode: statusCode,
	}
	require.NoError(t, env.users.Save(context.Background(), user))
	return user
}

func (env *reportingEnv) addLogin(t *testing.T, userID string, at time.Time) {
	t.Helper()
	require.NoError(t, env.loginEvents.Save(context.Background(), models.NewLoginEvent(userID, at)))
}

func (env *reportingEnv) addAccount(t *testing.T, userID, balance string, archived bool) {
	t.Helper()
	ctx := context.Background()
	account := &models.Account{
		UserID:  userID,
		Balance: decimal.RequireFromString(balance),
		Branch:  "Downtown",
	}
	created, err := env.accounts.CreateIfAbsent(ctx, account)
	require.NoError(t, err)
	require.True(t, created)
	if archived {
		require.NoError(t, env.accounts.Archive(ctx, account.ID))
	}
}

func TestComputeActivity(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("RecentLoginMarksActive", func(t *testing.T) {
		env := newReportingEnv(t)
		env.addUser(t, "1", models.RoleCodeCustomer, models.StatusCodeActive)
		env.addLogin(t, "1", now.Add(-89*24*time.Hour))

		resp, err := env.flow.ComputeActivity(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, resp.DerivedActivity)
		assert.Equal(t, 90, resp.WindowDays)
	})

	t.Run("StaleLoginMarksInactive", func(t *testing.T) {
		env := newReportingEnv(t)
		env.addUser(t, "1", models.RoleCodeCustomer, models.StatusCodeActive)
		env.addLogin(t, "1", now.Add(-91*24*time.Hour))

		resp, err := env.flow.ComputeActivity(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusInactive, resp.DerivedActivity)
	})

	t.Run("NoLoginsMarksInactive", func(t *testing.T) {
		env := newReportingEnv(t)
		env.addUser(t, "1", models.RoleCodeCustomer, models.StatusCodeActive)

		resp, err := env.flow.ComputeActivity(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusInactive, resp.DerivedActivity)
		assert.Nil(t, resp.LastLogin)
	})

	t.Run("DerivedIsIndependentOfStoredFlag", func(t *testing.T) {
		env := newReportingEnv(t)
		env.addUser(t, "1", models.RoleCodeCustomer, models.StatusCodeInactive)
		env.addLogin(t, "1", now.Add(-5*24*time.Hour))

		resp, err := env.flow.ComputeActivity(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusInactive, resp.StoredStatus)
		assert.Equal(t, models.StatusActive, resp.DerivedActivity)

		// Deriving activity must not write the stored flag back
		stored, err := env.users.ByUserID(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCodeInactive, stored.StatusCode)
	})

	t.Run("ReportsLastLogin", func(t *testing.T) {
		env := newReportingEnv(t)
		lastLogin := now.Add(-3 * 24 * time.Hour).Truncate(time.Second)
		env.addUser(t, "1", models.RoleCodeCustomer, models.StatusCodeActive)
		require.NoError(t, env.users.UpdateLastLogin(ctx, "1", lastLogin))
		env.addLogin(t, "1", lastLogin)

		resp, err := env.flow.ComputeActivity(ctx, "1")
		require.NoError(t, err)
		require.NotNil(t, resp.LastLogin)
		assert.Equal(t, lastLogin.Format(time.RFC3339), *resp.LastLogin)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		env := newReportingEnv(t)

		_, err := env.flow.ComputeActivity(ctx, "404")
		assert.True(t, IsUserNotFound(err))
	})
}

func TestAggregateStats(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	env := newReportingEnv(t)
	env.addUser(t, "1", models.RoleCodeSuperAdmin, models.StatusCodeActive)
	env.addUser(t, "2", models.RoleCodeAdmin, models.StatusCodeActive)
	env.addUser(t, "3", models.RoleCodeEmployee, models.StatusCodeActive)
	env.addUser(t, "4", models.RoleCodeEmployee, models.StatusCodeSuspended)
	env.addUser(t, "5", models.RoleCodeCustomer, models.StatusCodeActive)
	env.addUser(t, "6", models.RoleCodeCustomer, models.StatusCodePending)
	env.addUser(t, "7", models.RoleCodeCustomer, models.StatusCodeActive)

	env.addLogin(t, "5", now.Add(-1*24*time.Hour))
	env.addLogin(t, "5", now.Add(-6*24*time.Hour))
	env.addLogin(t, "7", now.Add(-8*24*time.Hour))

	env.addAccount(t, "5", "100.50", false)
	env.addAccount(t, "7", "249.50", false)
	env.addAccount(t, "6", "500", true)

	t.Run("CountsCoverEveryRoleAndStatus", func(t *testing.T) {
		resp, err := env.flow.AggregateStats(ctx, models.RoleCodeSuperAdmin)
		require.NoError(t, err)

		assert.Equal(t, int64(7), resp.TotalUsers)
		assert.Equal(t, []dto.NamedCountDTO{
			{Name: models.RoleSuperAdmin, Count: 1},
			{Name: models.RoleAdmin, Count: 1},
			{Name: models.RoleEmployee, Count: 2},
			{Name: models.RoleCustomer, Count: 3},
		}, resp.RoleCounts)
		assert.Equal(t, []dto.NamedCountDTO{
			{Name: models.StatusActive, Count: 5},
			{Name: models.StatusInactive, Count: 0},
			{Name: models.StatusSuspended, Count: 1},
			{Name: models.StatusPending, Count: 1},
		}, resp.StatusCounts)

		_, err = time.Parse(time.RFC3339, resp.GeneratedAt)
		assert.NoError(t, err)
	})

	t.Run("DerivedCountsComeFromLoginRecencyNotStoredFlags", func(t *testing.T) {
		resp, err := env.flow.AggregateStats(ctx, models.RoleCodeSuperAdmin)
		require.NoError(t, err)

		// Only users 5 and 7 logged in inside the window, even though five
		// users carry the stored Active flag.
		assert.Equal(t, int64(2), resp.DerivedActive)
		assert.Equal(t, int64(5), resp.DerivedInactive)
	})

	t.Run("CountsLoginsInsideTrailingWeek", func(t *testing.T) {
		resp, err := env.flow.AggregateStats(ctx, models.RoleCodeSuperAdmin)
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.RecentLoginCount)
	})

	t.Run("BalanceSumOnlyForFinanciallyVisibleRoles", func(t *testing.T) {
		for _, role := range []int{models.RoleCodeSuperAdmin, models.RoleCodeAdmin} {
			resp, err := env.flow.AggregateStats(ctx, role)
			require.NoError(t, err)
			require.NotNil(t, resp.TotalBalance, "role code %d should see balances", role)
			assert.True(t, resp.TotalBalance.Equal(decimal.RequireFromString("350")),
				"archived accounts must stay out of the sum, got %s", resp.TotalBalance)
		}

		for _, role := range []int{models.RoleCodeEmployee, models.RoleCodeCustomer} {
			resp, err := env.flow.AggregateStats(ctx, role)
			require.NoError(t, err)
			assert.Nil(t, resp.TotalBalance, "role code %d should not see balances", role)
		}
	})
}

func TestMonthlyReport(t *testing.T) {
	ctx := context.Background()

	env := newReportingEnv(t)
	env.addUser(t, "1", models.RoleCodeCustomer, models.StatusCodeActive)
	env.addUser(t, "2", models.RoleCodeCustomer, models.StatusCodeActive)
	env.addUser(t, "3", models.RoleCodeEmployee, models.StatusCodeActive)
	env.addUser(t, "4", models.RoleCodeCustomer, models.StatusCodeActive)

	env.addLogin(t, "1", time.Date(2025, 7, 5, 9, 0, 0, 0, time.UTC))
	env.addLogin(t, "1", time.Date(2025, 7, 10, 14, 30, 0, 0, time.UTC))
	env.addLogin(t, "1", time.Date(2025, 7, 20, 18, 45, 0, 0, time.UTC))
	env.addLogin(t, "2", time.Date(2025, 7, 7, 8, 15, 0, 0, time.UTC))
	env.addLogin(t, "3", time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC))
	env.addLogin(t, "3", time.Date(2025, 8, 10, 11, 0, 0, 0, time.UTC))

	t.Run("RanksAndCoversEveryUser", func(t *testing.T) {
		resp, err := env.flow.MonthlyReport(ctx, "2025-07")
		require.NoError(t, err)

		assert.Equal(t, "2025-07", resp.Month)
		assert.Equal(t, int64(4), resp.TotalLogins)
		assert.Equal(t, 4, resp.TotalUsers)
		require.Len(t, resp.Rows, 4)

		assert.Equal(t, 1, resp.Rows[0].Rank)
		assert.Equal(t, "1", resp.Rows[0].UserID)
		assert.Equal(t, int64(3), resp.Rows[0].LoginCount)
		require.NotNil(t, resp.Rows[0].LastLogin)
		assert.Equal(t, time.Date(2025, 7, 20, 18, 45, 0, 0, time.UTC).Format(time.RFC3339), *resp.Rows[0].LastLogin)

		assert.Equal(t, 2, resp.Rows[1].Rank)
		assert.Equal(t, "2", resp.Rows[1].UserID)
		assert.Equal(t, int64(1), resp.Rows[1].LoginCount)

		// Zero-login ties keep registration order
		assert.Equal(t, 3, resp.Rows[2].Rank)
		assert.Equal(t, "3", resp.Rows[2].UserID)
		assert.Zero(t, resp.Rows[2].LoginCount)
		assert.Equal(t, 4, resp.Rows[3].Rank)
		assert.Equal(t, "4", resp.Rows[3].UserID)
		assert.Zero(t, resp.Rows[3].LoginCount)
	})

	t.Run("ZeroLoginLastLoginFallsBackToBeforeMonthEnd", func(t *testing.T) {
		resp, err := env.flow.MonthlyReport(ctx, "2025-07")
		require.NoError(t, err)

		// User 3 logged in before and after July; only the pre-August login counts
		require.NotNil(t, resp.Rows[2].LastLogin)
		assert.Equal(t, time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC).Format(time.RFC3339), *resp.Rows[2].LastLogin)

		// User 4 never logged in
		assert.Nil(t, resp.Rows[3].LastLogin)
	})

	t.Run("InvalidMonth", func(t *testing.T) {
		for _, month := range []string{"", "2025", "2025-13", "07-2025"} {
			_, err := env.flow.MonthlyReport(ctx, month)
			assert.True(t, IsInvalidMonth(err), "month %q should be rejected", month)
		}
	})
}

func TestExportMonthlyReportXLSX(t *testing.T) {
	ctx := context.Background()

	env := newReportingEnv(t)
	env.addUser(t, "1", models.RoleCodeCustomer, models.StatusCodeActive)
	env.addUser(t, "2", models.RoleCodeCustomer, models.StatusCodeActive)
	env.addLogin(t, "1", time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC))
	env.addLogin(t, "1", time.Date(2025, 7, 9, 10, 0, 0, 0, time.UTC))

	filename, data, err := env.flow.ExportMonthlyReportXLSX(ctx, "2025-07")
	require.NoError(t, err)
	assert.Equal(t, "monthly_login_report_2025-07.xlsx", filename)
	require.NotEmpty(t, data)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows("Logins 2025-07")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"rank", "user_id", "full_name", "email", "role", "login_count", "last_login"}, rows[0])

	require.GreaterOrEqual(t, len(rows[1]), 6)
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "2", rows[1][5])

	require.GreaterOrEqual(t, len(rows[2]), 6)
	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "2", rows[2][1])
	assert.Equal(t, "0", rows[2][5])

	t.Run("InvalidMonth", func(t *testing.T) {
		_, _, err := env.flow.ExportMonthlyReportXLSX(ctx, "bad")
		assert.True(t, IsInvalidMonth(err))
	})
}
