package businessflow

import (
	"context"
	"strconv"
	"testing"

	"github.com/ledgerdesk/ledgerdesk/app/dto"
	"github.com/ledgerdesk/ledgerdesk/app/services"
	"github.com/ledgerdesk/ledgerdesk/config"
	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/repository"
	"github.com/ledgerdesk/ledgerdesk/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type provisioningEnv struct {
	users    *repository.MemoryUserRepository
	accounts *repository.MemoryAccountRepository
	flow     ProvisioningFlow
}

func newProvisioningEnv(t *testing.T, seq repository.SequenceRepository, allowDegraded bool) *provisioningEnv {
	t.Helper()

	users := repository.NewMemoryUserRepository()
	accounts := repository.NewMemoryAccountRepository()
	users.BindAccounts(accounts)
	if seq == nil {
		seq = repository.NewMemorySequenceRepository(users, utils.SequenceFloor)
	}

	ledgerCfg := config.LedgerConfig{
		SequenceName:     utils.UserIDSequenceName,
		SequenceFloor:    utils.SequenceFloor,
		AllowDegradedIDs: allowDegraded,
	}

	flow := NewProvisioningFlow(users, accounts, seq, nil, services.NewNoopEventPublisher(), ledgerCfg, nil)
	return &provisioningEnv{users: users, accounts: accounts, flow: flow}
}

// unreachableSequenceRepo simulates a counter store that cannot be reached
type unreachableSequenceRepo struct{}

func (unreachableSequenceRepo) AllocateNext(ctx context.Context) (int64, error) {
	return 0, ErrStorageUnavailable
}

func (unreachableSequenceRepo) Current(ctx context.Context) (int64, bool, error) {
	return 0, false, ErrStorageUnavailable
}

func customerRequest(email string) *dto.CreateUserRequest {
	return &dto.CreateUserRequest{
		FirstName:   "John",
		LastName:    "Doe",
		Email:       email,
		Role:        models.RoleCustomer,
		DateOfBirth: "1990-04-17",
		Address:     utils.ToPtr("Downtown 42 Elm Street"),
	}
}

func TestAllocateIdentifier(t *testing.T) {
	ctx := context.Background()

	t.Run("SequentialDecimalStrings", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		first, err := env.flow.AllocateIdentifier(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, strconv.FormatInt(utils.SequenceFloor+1, 10), first.UserID)
		assert.False(t, first.Degraded)

		second, err := env.flow.AllocateIdentifier(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, strconv.FormatInt(utils.SequenceFloor+2, 10), second.UserID)
	})

	t.Run("CounterStartsAboveExistingNumericID", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		imported := &models.User{
			UserID:     strconv.FormatInt(utils.SequenceFloor+900, 10),
			FirstName:  "Imported",
			LastName:   "Customer",
			Email:      "imported@example.com",
			RoleCode:   models.RoleCodeCustomer,
			StatusCode: models.StatusCodeActive,
		}
		require.NoError(t, env.users.Save(ctx, imported))

		resp, err := env.flow.AllocateIdentifier(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, strconv.FormatInt(utils.SequenceFloor+901, 10), resp.UserID)
	})

	t.Run("StorageUnreachable", func(t *testing.T) {
		env := newProvisioningEnv(t, unreachableSequenceRepo{}, false)

		resp, err := env.flow.AllocateIdentifier(ctx, nil)
		assert.Nil(t, resp)
		assert.True(t, IsStorageUnavailable(err))
	})

	t.Run("DegradedFallbackWhenEnabled", func(t *testing.T) {
		env := newProvisioningEnv(t, unreachableSequenceRepo{}, true)

		resp, err := env.flow.AllocateIdentifier(ctx, nil)
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.Degraded)

		n, err := strconv.ParseInt(resp.UserID, 10, 64)
		require.NoError(t, err)
		assert.Positive(t, n)
	})
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("CustomerGetsAccountAndInitialPassword", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		resp, err := env.flow.CreateUser(ctx, customerRequest("john.doe@example.com"), nil)
		require.NoError(t, err)

		assert.Equal(t, strconv.FormatInt(utils.SequenceFloor+1, 10), resp.User.UserID)
		assert.Equal(t, "John", resp.User.FirstName)
		assert.Equal(t, models.RoleCustomer, resp.User.Role)
		assert.Equal(t, models.StatusActive, resp.User.Status)
		assert.Equal(t, "Test@17041990", resp.InitialPassword)

		require.NotNil(t, resp.Account)
		assert.Equal(t, resp.User.UserID, resp.Account.UserID)
		assert.Equal(t, "Downtown", resp.Account.Branch)
		assert.True(t, resp.Account.Balance.IsZero())

		stored, err := env.users.ByUserID(ctx, resp.User.UserID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(resp.InitialPassword)))

		account, err := env.accounts.ByUserID(ctx, resp.User.UserID)
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.True(t, account.Balance.IsZero())
	})

	t.Run("MissingAddressYieldsUnknownBranch", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		req := customerRequest("no.address@example.com")
		req.Address = nil

		resp, err := env.flow.CreateUser(ctx, req, nil)
		require.NoError(t, err)
		require.NotNil(t, resp.Account)
		assert.Equal(t, utils.UnknownBranch, resp.Account.Branch)
	})

	t.Run("NonCustomerRolesGetNoAccount", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		for _, role := range []string{models.RoleSuperAdmin, models.RoleAdmin, models.RoleEmployee} {
			req := customerRequest(role + "@example.com")
			req.Role = role

			resp, err := env.flow.CreateUser(ctx, req, nil)
			require.NoError(t, err)
			assert.Nil(t, resp.Account, "role %s should not hold an account", role)

			account, err := env.accounts.ByUserID(ctx, resp.User.UserID)
			require.NoError(t, err)
			assert.Nil(t, account)
		}
	})

	t.Run("ExplicitStatus", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		req := customerRequest("pending@example.com")
		req.Status = models.StatusPending

		resp, err := env.flow.CreateUser(ctx, req, nil)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, resp.User.Status)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		_, err := env.flow.CreateUser(ctx, customerRequest("dup@example.com"), nil)
		require.NoError(t, err)

		resp, err := env.flow.CreateUser(ctx, customerRequest("dup@example.com"), nil)
		assert.Nil(t, resp)
		assert.True(t, IsEmailAlreadyExists(err))
	})

	t.Run("UnknownRole", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		req := customerRequest("wizard@example.com")
		req.Role = "Wizard"

		_, err := env.flow.CreateUser(ctx, req, nil)
		assert.True(t, IsRoleUnknown(err))
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		req := customerRequest("ghost@example.com")
		req.Status = "Ghost"

		_, err := env.flow.CreateUser(ctx, req, nil)
		assert.True(t, IsStatusUnknown(err))
	})

	t.Run("InvalidDateOfBirth", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		req := customerRequest("bad.dob@example.com")
		req.DateOfBirth = "17/04/1990"

		_, err := env.flow.CreateUser(ctx, req, nil)
		assert.Error(t, err)
	})

	t.Run("CreationRequiresReachableCounter", func(t *testing.T) {
		// Degraded identifiers are for the allocation endpoint only; provisioning
		// a stored user always needs the real counter.
		env := newProvisioningEnv(t, unreachableSequenceRepo{}, true)

		resp, err := env.flow.CreateUser(ctx, customerRequest("degraded@example.com"), nil)
		assert.Nil(t, resp)
		assert.True(t, IsStorageUnavailable(err))
	})
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("OpensZeroBalanceAccount", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		user := &models.User{
			UserID:     "56125810300",
			FirstName:  "Jane",
			LastName:   "Smith",
			Email:      "jane.smith@example.com",
			RoleCode:   models.RoleCodeCustomer,
			StatusCode: models.StatusCodeActive,
			Address:    utils.ToPtr("Harbor 9 Pier Road"),
		}
		require.NoError(t, env.users.Save(ctx, user))

		account, err := env.flow.CreateAccount(ctx, &dto.CreateAccountRequest{UserID: user.UserID}, nil)
		require.NoError(t, err)
		assert.Equal(t, user.UserID, account.UserID)
		assert.Equal(t, "Harbor", account.Branch)
		assert.True(t, account.Balance.IsZero())
		assert.False(t, account.Archived)
	})

	t.Run("DuplicateAccount", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		resp, err := env.flow.CreateUser(ctx, customerRequest("holder@example.com"), nil)
		require.NoError(t, err)

		account, err := env.flow.CreateAccount(ctx, &dto.CreateAccountRequest{UserID: resp.User.UserID}, nil)
		assert.Nil(t, account)
		assert.True(t, IsDuplicateAccount(err))
	})

	t.Run("UnknownUser", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		account, err := env.flow.CreateAccount(ctx, &dto.CreateAccountRequest{UserID: "0"}, nil)
		assert.Nil(t, account)
		assert.True(t, IsUserNotFound(err))
	})
}

func TestUpdateUserStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("WritesStoredFlag", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		resp, err := env.flow.CreateUser(ctx, customerRequest("status@example.com"), nil)
		require.NoError(t, err)

		updated, err := env.flow.UpdateUserStatus(ctx, resp.User.UserID, &dto.UpdateUserStatusRequest{Status: models.StatusSuspended}, nil)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSuspended, updated.Status)

		stored, err := env.users.ByUserID(ctx, resp.User.UserID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCodeSuspended, stored.StatusCode)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		resp, err := env.flow.CreateUser(ctx, customerRequest("status2@example.com"), nil)
		require.NoError(t, err)

		_, err = env.flow.UpdateUserStatus(ctx, resp.User.UserID, &dto.UpdateUserStatusRequest{Status: "Frozen"}, nil)
		assert.True(t, IsStatusUnknown(err))
	})

	t.Run("UnknownUser", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		_, err := env.flow.UpdateUserStatus(ctx, "0", &dto.UpdateUserStatusRequest{Status: models.StatusActive}, nil)
		assert.True(t, IsUserNotFound(err))
	})
}

func TestArchiveAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("ArchivesOnce", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		resp, err := env.flow.CreateUser(ctx, customerRequest("archive@example.com"), nil)
		require.NoError(t, err)

		archived, err := env.flow.ArchiveAccount(ctx, resp.User.UserID, nil)
		require.NoError(t, err)
		assert.True(t, archived.Archived)

		// Archiving is retained, not deleted
		account, err := env.accounts.ByUserID(ctx, resp.User.UserID)
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.NotNil(t, account.ArchivedAt)

		_, err = env.flow.ArchiveAccount(ctx, resp.User.UserID, nil)
		assert.True(t, IsAccountArchived(err))
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		env := newProvisioningEnv(t, nil, false)

		_, err := env.flow.ArchiveAccount(ctx, "0", nil)
		assert.True(t, IsAccountNotFound(err))
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	env := newProvisioningEnv(t, nil, false)

	for i := 0; i < 3; i++ {
		_, err := env.flow.CreateUser(ctx, customerRequest(strconv.Itoa(i)+"@example.com"), nil)
		require.NoError(t, err)
	}
	adminReq := customerRequest("ops@example.com")
	adminReq.Role = models.RoleAdmin
	_, err := env.flow.CreateUser(ctx, adminReq, nil)
	require.NoError(t, err)

	t.Run("FilterByRole", func(t *testing.T) {
		resp, err := env.flow.ListUsers(ctx, &dto.ListUsersRequest{Role: utils.ToPtr(models.RoleCustomer)})
		require.NoError(t, err)
		assert.Len(t, resp.Users, 3)
		assert.Equal(t, int64(3), resp.Pagination.Total)
	})

	t.Run("Paging", func(t *testing.T) {
		resp, err := env.flow.ListUsers(ctx, &dto.ListUsersRequest{Page: 2, PageSize: 3})
		require.NoError(t, err)
		assert.Len(t, resp.Users, 1)
		assert.Equal(t, int64(4), resp.Pagination.Total)
		assert.Equal(t, 2, resp.Pagination.Page)
	})

	t.Run("RejectsBadPaging", func(t *testing.T) {
		_, err := env.flow.ListUsers(ctx, &dto.ListUsersRequest{Page: -1})
		assert.ErrorIs(t, err, ErrInvalidPage)

		_, err = env.flow.ListUsers(ctx, &dto.ListUsersRequest{PageSize: utils.MaxPageSize + 1})
		assert.ErrorIs(t, err, ErrInvalidPageSize)
	})

	t.Run("RejectsUnknownFilterValues", func(t *testing.T) {
		_, err := env.flow.ListUsers(ctx, &dto.ListUsersRequest{Role: utils.ToPtr("Wizard")})
		assert.ErrorIs(t, err, ErrRoleUnknown)

		_, err = env.flow.ListUsers(ctx, &dto.ListUsersRequest{Status: utils.ToPtr("Ghost")})
		assert.ErrorIs(t, err, ErrStatusUnknown)
	})
}

func TestEnsureCustomerAccounts(t *testing.T) {
	ctx := context.Background()
	env := newProvisioningEnv(t, nil, false)

	// Two customers imported without accounts, one employee, one holder
	for i, role := range []int{models.RoleCodeCustomer, models.RoleCodeCustomer, models.RoleCodeEmployee} {
		user := &models.User{
			UserID:     strconv.Itoa(100 + i),
			FirstName:  "Imported",
			LastName:   strconv.Itoa(i),
			Email:      strconv.Itoa(i) + ".imported@example.com",
			RoleCode:   role,
			StatusCode: models.StatusCodeActive,
			Address:    utils.ToPtr("Station 12"),
		}
		require.NoError(t, env.users.Save(ctx, user))
	}
	_, err := env.flow.CreateUser(ctx, customerRequest("already.holder@example.com"), nil)
	require.NoError(t, err)

	created, err := env.flow.EnsureCustomerAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	for _, userID := range []string{"100", "101"} {
		account, err := env.accounts.ByUserID(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, account, "customer %s should have been backfilled", userID)
		assert.Equal(t, "Station", account.Branch)
		assert.True(t, account.Balance.IsZero())
	}

	// Employees stay without accounts
	account, err := env.accounts.ByUserID(ctx, "102")
	require.NoError(t, err)
	assert.Nil(t, account)

	// Second run is a no-op
	created, err = env.flow.EnsureCustomerAccounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	env := newProvisioningEnv(t, nil, false)

	resp, err := env.flow.CreateUser(ctx, customerRequest("get@example.com"), nil)
	require.NoError(t, err)

	user, err := env.flow.GetUser(ctx, resp.User.UserID)
	require.NoError(t, err)
	assert.Equal(t, "get@example.com", user.Email)
	require.NotNil(t, user.DateOfBirth)
	assert.Equal(t, "1990-04-17", *user.DateOfBirth)

	_, err = env.flow.GetUser(ctx, "0")
	assert.True(t, IsUserNotFound(err))
}
