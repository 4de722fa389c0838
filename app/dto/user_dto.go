// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CreateUserRequest represents the payload for provisioning a user
type CreateUserRequest struct {
	FirstName   string  `json:"first_name" validate:"required,min=1,max=100" example:"John"`
	LastName    string  `json:"last_name" validate:"required,min=1,max=100" example:"Doe"`
	Email       string  `json:"email" validate:"required,email,max=255" example:"john.doe@example.com"`
	Role        string  `json:"role" validate:"required,oneof=Super_Admin Admin Employee Customer" example:"Customer"`
	Status      string  `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive Suspended Pending" example:"Active"`
	DateOfBirth string  `json:"date_of_birth" validate:"required,datetime=2006-01-02" example:"1990-04-17"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500" example:"Midtown 4th Ave"`
}

// UpdateUserStatusRequest represents an explicit administrative status change
type UpdateUserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Active Inactive Suspended Pending" example:"Suspended"`
}

// UserDTO represents user information returned by the API
type UserDTO struct {
	UserID      string  `json:"user_id" example:"56125810021"`
	FirstName   string  `json:"first_name" example:"John"`
	LastName    string  `json:"last_name" example:"Doe"`
	Email       string  `json:"email" example:"john.doe@example.com"`
	Role        string  `json:"role" example:"Customer"`
	Status      string  `json:"status" example:"Active"`
	DateOfBirth *string `json:"date_of_birth,omitempty" example:"1990-04-17"`
	Address     *string `json:"address,omitempty" example:"Midtown 4th Ave"`
	CreatedAt   string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
	LastLoginAt *string `json:"last_login_at,omitempty" example:"2024-01-20T09:12:44Z"`
}

// CreateUserResponse is returned after a user is provisioned. InitialPassword
// is returned exactly once and never stored in clear.
type CreateUserResponse struct {
	User            UserDTO     `json:"user"`
	Account         *AccountDTO `json:"account,omitempty"`
	InitialPassword string      `json:"initial_password" example:"Test@17041990"`
}

// AllocateIdentifierResponse carries a freshly allocated user identifier
type AllocateIdentifierResponse struct {
	UserID   string `json:"user_id" example:"56125810021"`
	Degraded bool   `json:"degraded" example:"false"`
}

// PaginationDTO describes the page window of a list response
type PaginationDTO struct {
	Page     int   `json:"page" example:"1"`
	PageSize int   `json:"page_size" example:"20"`
	Total    int64 `json:"total" example:"128"`
}

// ListUsersRequest holds the supported user list filters
type ListUsersRequest struct {
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=Super_Admin Admin Employee Customer"`
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive Suspended Pending"`
	Page     int     `json:"page" validate:"omitempty,min=1"`
	PageSize int     `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListUsersResponse is the paginated user listing
type ListUsersResponse struct {
	Users      []UserDTO     `json:"users"`
	Pagination PaginationDTO `json:"pagination"`
}

// Common error codes for user operations
const (
	ErrorCodeUserNotFound    = "USER_NOT_FOUND"
	ErrorCodeDuplicateEmail  = "DUPLICATE_EMAIL"
	ErrorCodeDuplicateUserID = "DUPLICATE_USER_ID"
	ErrorCodeUnknownRole     = "UNKNOWN_ROLE"
	ErrorCodeUnknownStatus   = "UNKNOWN_STATUS"
)
