// Package businessflow contains the core business logic and use cases for
// account provisioning, ledger posting and reporting workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUserIDTaken        = errors.New("user id already exists")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrUserSuspended      = errors.New("user is suspended")
	ErrUserPendingReview  = errors.New("user is pending review")
	ErrUserInactive       = errors.New("user is inactive")
	ErrRoleUnknown        = errors.New("unknown role")
	ErrStatusUnknown      = errors.New("unknown status")

	// Required field errors
	ErrFirstNameRequired = errors.New("first name is required")
	ErrLastNameRequired  = errors.New("last name is required")
	ErrEmailRequired     = errors.New("email is required")
	ErrUserIDRequired    = errors.New("user id is required")

	// Captcha errors
	ErrCaptchaRequired = errors.New("captcha is required")
	ErrCaptchaInvalid  = errors.New("captcha is invalid")

	// Account-related errors
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("account already exists for user")
	ErrAccountArchived  = errors.New("account is archived")

	// Ledger and transaction errors
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrInvalidEntryKind  = errors.New("entry kind must be increase or decrease")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceConflict   = errors.New("balance changed concurrently, transaction aborted")

	// Reporting errors
	ErrInvalidMonth = errors.New("month must be in YYYY-MM format")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStorageFailed      = errors.New("storage operation failed")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsUserIDTaken(err error) bool {
	return errors.Is(err, ErrUserIDTaken)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsUserSuspended(err error) bool {
	return errors.Is(err, ErrUserSuspended)
}

func IsUserPendingReview(err error) bool {
	return errors.Is(err, ErrUserPendingReview)
}

func IsUserInactive(err error) bool {
	return errors.Is(err, ErrUserInactive)
}

func IsRoleUnknown(err error) bool {
	return errors.Is(err, ErrRoleUnknown)
}

func IsStatusUnknown(err error) bool {
	return errors.Is(err, ErrStatusUnknown)
}

func IsFirstNameRequired(err error) bool {
	return errors.Is(err, ErrFirstNameRequired)
}

func IsLastNameRequired(err error) bool {
	return errors.Is(err, ErrLastNameRequired)
}

func IsEmailRequired(err error) bool {
	return errors.Is(err, ErrEmailRequired)
}

func IsUserIDRequired(err error) bool {
	return errors.Is(err, ErrUserIDRequired)
}

func IsCaptchaRequired(err error) bool {
	return errors.Is(err, ErrCaptchaRequired)
}

func IsCaptchaInvalid(err error) bool {
	return errors.Is(err, ErrCaptchaInvalid)
}

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsDuplicateAccount(err error) bool {
	return errors.Is(err, ErrDuplicateAccount)
}

func IsAccountArchived(err error) bool {
	return errors.Is(err, ErrAccountArchived)
}

func IsInvalidAmount(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}

func IsInvalidEntryKind(err error) bool {
	return errors.Is(err, ErrInvalidEntryKind)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsBalanceConflict(err error) bool {
	return errors.Is(err, ErrBalanceConflict)
}

func IsInvalidMonth(err error) bool {
	return errors.Is(err, ErrInvalidMonth)
}

func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

func IsStorageFailed(err error) bool {
	return errors.Is(err, ErrStorageFailed)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
