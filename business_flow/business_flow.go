// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/ledgerdesk/ledgerdesk/app/dto"
	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToUserDTO converts a user model to its API representation
func ToUserDTO(user models.User) dto.UserDTO {
	d := dto.UserDTO{
		UserID:    user.UserID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.RoleName(),
		Status:    user.StatusName(),
		Address:   user.Address,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}

	if user.DateOfBirth != nil {
		d.DateOfBirth = utils.ToPtr(user.DateOfBirth.Format(utils.DateLayout))
	}
	if user.LastLoginAt != nil {
		d.LastLoginAt = utils.ToPtr(user.LastLoginAt.Format(time.RFC3339))
	}

	return d
}

// ToAccountDTO converts an account model to its API representation
func ToAccountDTO(account models.Account) dto.AccountDTO {
	d := dto.AccountDTO{
		UserID:    account.UserID,
		Balance:   account.Balance,
		Branch:    account.Branch,
		Archived:  account.IsArchived(),
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
	}

	if account.LastTransaction != nil {
		d.LastTransaction = utils.ToPtr(account.LastTransaction.Format(time.RFC3339))
	}

	return d
}

// ToLedgerEntryDTO converts a ledger entry model to its API representation
func ToLedgerEntryDTO(entry models.LedgerEntry) dto.LedgerEntryDTO {
	return dto.LedgerEntryDTO{
		EntryID:   entry.EntryID,
		UserID:    entry.UserID,
		Kind:      entry.Kind,
		Amount:    entry.Amount,
		CreatedAt: entry.CreatedAt.Format(time.RFC3339),
	}
}

// ToSessionDTO builds the session payload for issued tokens
func ToSessionDTO(accessToken, refreshToken string) dto.SessionDTO {
	return dto.SessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    utils.AccessTokenTTLSeconds,
	}
}
