package businessflow

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/ledgerdesk/ledgerdesk/app/dto"
	"github.com/ledgerdesk/ledgerdesk/app/services"
	"github.com/ledgerdesk/ledgerdesk/config"
	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/repository"
	"github.com/ledgerdesk/ledgerdesk/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ProvisioningFlow covers identifier allocation and user/account creation
type ProvisioningFlow interface {
	AllocateIdentifier(ctx context.Context, metadata *ClientMetadata) (*dto.AllocateIdentifierResponse, error)
	CreateUser(ctx context.Context, req *dto.CreateUserRequest, metadata *ClientMetadata) (*dto.CreateUserResponse, error)
	CreateAccount(ctx context.Context, req *dto.CreateAccountRequest, metadata *ClientMetadata) (*dto.AccountDTO, error)
	GetUser(ctx context.Context, userID string) (*dto.UserDTO, error)
	ListUsers(ctx context.Context, req *dto.ListUsersRequest) (*dto.ListUsersResponse, error)
	UpdateUserStatus(ctx context.Context, userID string, req *dto.UpdateUserStatusRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
	ArchiveAccount(ctx context.Context, userID string, metadata *ClientMetadata) (*dto.AccountDTO, error)
	EnsureCustomerAccounts(ctx context.Context) (int, error)
}

// ProvisioningFlowImpl implements the provisioning business logic
type ProvisioningFlowImpl struct {
	userRepo        repository.UserRepository
	accountRepo     repository.AccountRepository
	sequenceRepo    repository.SequenceRepository
	notificationSvc services.NotificationService
	publisher       services.EventPublisher
	ledgerCfg       config.LedgerConfig
	db              *gorm.DB
}

// NewProvisioningFlow creates a new provisioning flow
func NewProvisioningFlow(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	sequenceRepo repository.SequenceRepository,
	notificationSvc services.NotificationService,
	publisher services.EventPublisher,
	ledgerCfg config.LedgerConfig,
	db *gorm.DB,
) ProvisioningFlow {
	return &ProvisioningFlowImpl{
		userRepo:        userRepo,
		accountRepo:     accountRepo,
		sequenceRepo:    sequenceRepo,
		notificationSvc: notificationSvc,
		publisher:       publisher,
		ledgerCfg:       ledgerCfg,
		db:              db,
	}
}

func (s *ProvisioningFlowImpl) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.db == nil {
		return fn(ctx)
	}
	return repository.WithTransaction(ctx, s.db, fn)
}

// AllocateIdentifier hands out the next user identifier. When the counter
// store is unreachable and degraded mode is enabled, a time-derived candidate
// is returned instead and flagged; uniqueness is then only best-effort.
func (s *ProvisioningFlowImpl) AllocateIdentifier(ctx context.Context, metadata *ClientMetadata) (*dto.AllocateIdentifierResponse, error) {
	next, err := s.sequenceRepo.AllocateNext(ctx)
	if err == nil {
		return &dto.AllocateIdentifierResponse{
			UserID: strconv.FormatInt(next, 10),
		}, nil
	}

	if !s.ledgerCfg.AllowDegradedIDs {
		return nil, NewBusinessErrorf("STORAGE_UNAVAILABLE", "identifier storage unreachable: %v", ErrStorageUnavailable, err)
	}

	candidate := utils.UTCNow().UnixNano()
	log.Printf("WARNING: identifier storage unreachable, handing out time-derived candidate %d: %v", candidate, err)

	return &dto.AllocateIdentifierResponse{
		UserID:   strconv.FormatInt(candidate, 10),
		Degraded: true,
	}, nil
}

// CreateUser provisions a user with a freshly allocated identifier. Customers
// also get a zero-balance account in the same transaction. The derived initial
// password is returned exactly once and stored only as a bcrypt hash.
func (s *ProvisioningFlowImpl) CreateUser(ctx context.Context, req *dto.CreateUserRequest, metadata *ClientMetadata) (*dto.CreateUserResponse, error) {
	roleCode, ok := models.RoleCodeByName(req.Role)
	if !ok {
		return nil, NewBusinessError("UNKNOWN_ROLE", "Unknown role", ErrRoleUnknown)
	}

	statusCode := models.StatusCodeActive
	if req.Status != "" {
		statusCode, ok = models.StatusCodeByName(req.Status)
		if !ok {
			return nil, NewBusinessError("UNKNOWN_STATUS", "Unknown status", ErrStatusUnknown)
		}
	}

	dob, err := utils.ParseDate(req.DateOfBirth)
	if err != nil {
		return nil, NewBusinessError("USER_VALIDATION_FAILED", "Invalid date of birth", err)
	}

	initialPassword := utils.InitialPassword(dob)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(initialPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_HASH_FAILED", "Failed to hash initial password", err)
	}

	var user *models.User
	var account *models.Account

	err = s.withTx(ctx, func(ctx context.Context) error {
		existing, err := s.userRepo.ByEmail(ctx, req.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		next, err := s.sequenceRepo.AllocateNext(ctx)
		if err != nil {
			return NewBusinessErrorf("STORAGE_UNAVAILABLE", "identifier storage unreachable: %v", ErrStorageUnavailable, err)
		}

		user = &models.User{
			UserID:       strconv.FormatInt(next, 10),
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			PasswordHash: string(passwordHash),
			RoleCode:     roleCode,
			StatusCode:   statusCode,
			DateOfBirth:  &dob,
			Address:      req.Address,
		}

		if err := s.userRepo.Save(ctx, user); err != nil {
			return err
		}

		if user.HoldsLedger() {
			account = &models.Account{
				UserID:  user.UserID,
				Balance: decimal.Zero,
				Branch:  utils.FirstToken(deref(req.Address), utils.UnknownBranch),
			}
			created, err := s.accountRepo.CreateIfAbsent(ctx, account)
			if err != nil {
				return err
			}
			if !created {
				return ErrDuplicateAccount
			}
		}

		return nil
	})
	if err != nil {
		if IsEmailAlreadyExists(err) || IsDuplicateAccount(err) || IsStorageUnavailable(err) {
			return nil, err
		}
		return nil, NewBusinessError("USER_CREATION_FAILED", "Failed to provision user", err)
	}

	// Side effects run after commit and never fail the operation
	go s.notifyProvisioned(*user, initialPassword)

	resp := &dto.CreateUserResponse{
		User:            ToUserDTO(*user),
		InitialPassword: initialPassword,
	}
	if account != nil {
		resp.Account = utils.ToPtr(ToAccountDTO(*account))
	}

	return resp, nil
}

func (s *ProvisioningFlowImpl) notifyProvisioned(user models.User, initialPassword string) {
	if s.notificationSvc != nil {
		subject := "Your account credentials"
		message := fmt.Sprintf("Hello %s,\n\nYour account has been created.\nUser ID: %s\nTemporary password: %s\n\nPlease change your password after first login.", user.FullName(), user.UserID, initialPassword)
		if err := s.notificationSvc.SendEmail(user.Email, subject, message); err != nil {
			log.Printf("Failed to send credentials email to user %s: %v", utils.MaskUserID(user.UserID), err)
		}
	}

	if s.publisher != nil {
		event := services.UserProvisionedEvent{
			UserID:        user.UserID,
			Role:          user.RoleName(),
			ProvisionedAt: utils.UTCNow(),
		}
		if err := s.publisher.Publish(context.Background(), user.UserID, event); err != nil {
			log.Printf("Failed to publish provisioned event for user %s: %v", utils.MaskUserID(user.UserID), err)
		}
	}
}

// CreateAccount opens a zero-balance account for an existing customer
func (s *ProvisioningFlowImpl) CreateAccount(ctx context.Context, req *dto.CreateAccountRequest, metadata *ClientMetadata) (*dto.AccountDTO, error) {
	var account *models.Account

	err := s.withTx(ctx, func(ctx context.Context) error {
		user, err := s.userRepo.ByUserID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		account = &models.Account{
			UserID:  user.UserID,
			Balance: decimal.Zero,
			Branch:  utils.FirstToken(deref(user.Address), utils.UnknownBranch),
		}

		created, err := s.accountRepo.CreateIfAbsent(ctx, account)
		if err != nil {
			return err
		}
		if !created {
			return ErrDuplicateAccount
		}

		return nil
	})
	if err != nil {
		if IsUserNotFound(err) || IsDuplicateAccount(err) {
			return nil, err
		}
		return nil, NewBusinessError("ACCOUNT_CREATION_FAILED", "Failed to create account", err)
	}

	return utils.ToPtr(ToAccountDTO(*account)), nil
}

// GetUser returns one user by identifier
func (s *ProvisioningFlowImpl) GetUser(ctx context.Context, userID string) (*dto.UserDTO, error) {
	user, err := s.userRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return utils.ToPtr(ToUserDTO(*user)), nil
}

// ListUsers returns a filtered, paginated user listing
func (s *ProvisioningFlowImpl) ListUsers(ctx context.Context, req *dto.ListUsersRequest) (*dto.ListUsersResponse, error) {
	page := req.Page
	if page == 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = utils.DefaultPageSize
	}
	if page < 1 {
		return nil, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > utils.MaxPageSize {
		return nil, ErrInvalidPageSize
	}

	filter := models.UserFilter{}
	if req.Role != nil {
		code, ok := models.RoleCodeByName(*req.Role)
		if !ok {
			return nil, ErrRoleUnknown
		}
		filter.RoleCode = &code
	}
	if req.Status != nil {
		code, ok := models.StatusCodeByName(*req.Status)
		if !ok {
			return nil, ErrStatusUnknown
		}
		filter.StatusCode = &code
	}

	users, err := s.userRepo.ByFilter(ctx, filter, "id ASC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("USER_LIST_FAILED", "Failed to list users", err)
	}

	total, err := s.userRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("USER_LIST_FAILED", "Failed to count users", err)
	}

	resp := &dto.ListUsersResponse{
		Users: make([]dto.UserDTO, 0, len(users)),
		Pagination: dto.PaginationDTO{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}
	for _, u := range users {
		resp.Users = append(resp.Users, ToUserDTO(*u))
	}

	return resp, nil
}

// UpdateUserStatus applies an explicit administrative status change. This is
// the only path that writes the stored status flag; derived activity never
// touches it.
func (s *ProvisioningFlowImpl) UpdateUserStatus(ctx context.Context, userID string, req *dto.UpdateUserStatusRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	statusCode, ok := models.StatusCodeByName(req.Status)
	if !ok {
		return nil, NewBusinessError("UNKNOWN_STATUS", "Unknown status", ErrStatusUnknown)
	}

	var user *models.User
	err := s.withTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.userRepo.ByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		if err := s.userRepo.UpdateStatus(ctx, userID, statusCode); err != nil {
			return err
		}
		user.StatusCode = statusCode

		return nil
	})
	if err != nil {
		if IsUserNotFound(err) {
			return nil, err
		}
		return nil, NewBusinessError("STATUS_UPDATE_FAILED", "Failed to update user status", err)
	}

	return utils.ToPtr(ToUserDTO(*user)), nil
}

// ArchiveAccount marks an account as archived. Archived accounts are retained
// with their full ledger history and are excluded from balance aggregation;
// nothing is ever deleted.
func (s *ProvisioningFlowImpl) ArchiveAccount(ctx context.Context, userID string, metadata *ClientMetadata) (*dto.AccountDTO, error) {
	var account *models.Account

	err := s.withTx(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.accountRepo.ByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}
		if account.IsArchived() {
			return ErrAccountArchived
		}

		if err := s.accountRepo.Archive(ctx, account.ID); err != nil {
			return err
		}
		account.ArchivedAt = utils.UTCNowPtr()

		return nil
	})
	if err != nil {
		if IsAccountNotFound(err) || IsAccountArchived(err) {
			return nil, err
		}
		return nil, NewBusinessError("ACCOUNT_ARCHIVE_FAILED", "Failed to archive account", err)
	}

	return utils.ToPtr(ToAccountDTO(*account)), nil
}

// EnsureCustomerAccounts opens accounts for customers that are missing one.
// Runs at startup so accounts created before automatic provisioning existed
// are backfilled. Returns the number of accounts created.
func (s *ProvisioningFlowImpl) EnsureCustomerAccounts(ctx context.Context) (int, error) {
	customers, err := s.userRepo.ListCustomersWithoutAccounts(ctx)
	if err != nil {
		return 0, NewBusinessError("ACCOUNT_BACKFILL_FAILED", "Failed to list customers without accounts", err)
	}

	created := 0
	for _, customer := range customers {
		account := &models.Account{
			UserID:  customer.UserID,
			Balance: decimal.Zero,
			Branch:  utils.FirstToken(deref(customer.Address), utils.UnknownBranch),
		}
		ok, err := s.accountRepo.CreateIfAbsent(ctx, account)
		if err != nil {
			log.Printf("Failed to backfill account for user %s: %v", utils.MaskUserID(customer.UserID), err)
			continue
		}
		if ok {
			created++
		}
	}

	return created, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
