// Package testing provides test utilities and database setup for testing the ledger system
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// RandomUserID returns an eleven-digit numeric identifier in the shape the
// sequence allocator hands out.
func RandomUserID() string {
	return fmt.Sprintf("561%08d", rand.Intn(100000000))
}

// CreateTestUser creates a test user with the specified role
func (tf *TestFixtures) CreateTestUser(roleCode int) (*models.User, error) {
	return tf.CreateTestUserWithStatus(roleCode, models.StatusCodeActive)
}

// CreateTestUserWithStatus creates a test user with the specified role and stored status
func (tf *TestFixtures) CreateTestUserWithStatus(roleCode, statusCode int) (*models.User, error) {
	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID := RandomUserID()
	dob := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)

	user := &models.User{
		UserID:       userID,
		FirstName:    "John",
		LastName:     "Doe",
		Email:        fmt.Sprintf("john.doe.%d.%s@example.com", roleCode, userID),
		PasswordHash: string(hashedPassword),
		RoleCode:     roleCode,
		StatusCode:   statusCode,
		DateOfBirth:  &dob,
		Address:      utils.ToPtr("Downtown 42 Elm Street"),
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}

	err = tf.DB.DB.Create(user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// CreateTestAccount creates a zero-balance account for the given user, deriving
// the branch from the address the way provisioning does
func (tf *TestFixtures) CreateTestAccount(user *models.User) (*models.Account, error) {
	address := ""
	if user.Address != nil {
		address = *user.Address
	}

	account := &models.Account{
		UserID:    user.UserID,
		Balance:   decimal.Zero,
		Branch:    utils.FirstToken(address, "Unknown"),
		CreatedAt: utils.UTCNow(),
		UpdatedAt: utils.UTCNow(),
	}

	err := tf.DB.DB.Create(account).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}

	return account, nil
}

// CreateTestCustomerWithAccount creates a customer identity together with its account
func (tf *TestFixtures) CreateTestCustomerWithAccount() (*models.User, *models.Account, error) {
	user, err := tf.CreateTestUser(models.RoleCodeCustomer)
	if err != nil {
		return nil, nil, err
	}

	account, err := tf.CreateTestAccount(user)
	if err != nil {
		return nil, nil, err
	}

	return user, account, nil
}

// CreateTestLoginEvent appends a login event for the user at the given instant
func (tf *TestFixtures) CreateTestLoginEvent(userID string, at time.Time) (*models.LoginEvent, error) {
	event := models.NewLoginEvent(userID, at)

	err := tf.DB.DB.Create(event).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test login event: %w", err)
	}

	return event, nil
}

// CreateTestLedgerEntry appends a ledger entry and moves the account balance
// with it, mirroring what the transaction engine persists
func (tf *TestFixtures) CreateTestLedgerEntry(account *models.Account, kind string, amount decimal.Decimal) (*models.LedgerEntry, error) {
	entry := &models.LedgerEntry{
		EntryID:   models.NewEntryID(),
		UserID:    account.UserID,
		AccountID: account.ID,
		Amount:    amount,
		Kind:      kind,
		CreatedAt: utils.UTCNow(),
	}

	err := tf.DB.DB.Create(entry).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test ledger entry: %w", err)
	}

	account.Balance = account.Balance.Add(entry.SignedAmount())
	err = tf.DB.DB.Model(&models.Account{}).Where("id = ?", account.ID).Update("balance", account.Balance).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update test account balance: %w", err)
	}

	return entry, nil
}

// CreateMultipleTestUsers creates one test user per catalog role
func (tf *TestFixtures) CreateMultipleTestUsers() ([]*models.User, error) {
	var users []*models.User
	for _, roleCode := range models.AllRoleCodes() {
		user, err := tf.CreateTestUser(roleCode)
		if err != nil {
			return nil, fmt.Errorf("failed to create user for role %d: %w", roleCode, err)
		}
		users = append(users, user)
	}

	return users, nil
}
