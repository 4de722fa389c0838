// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/ledgerdesk/ledgerdesk/app/dto"
	businessflow "github.com/ledgerdesk/ledgerdesk/business_flow"
	"github.com/ledgerdesk/ledgerdesk/utils"
)

// UserHandlerInterface defines the contract for identity provisioning handlers
type UserHandlerInterface interface {
	AllocateIdentifier(c fiber.Ctx) error
	CreateUser(c fiber.Ctx) error
	GetUser(c fiber.Ctx) error
	ListUsers(c fiber.Ctx) error
	UpdateUserStatus(c fiber.Ctx) error
}

// UserHandler handles identity provisioning HTTP requests
type UserHandler struct {
	provisioningFlow businessflow.ProvisioningFlow
	validator        *validator.Validate
}

func (h *UserHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *UserHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewUserHandler creates a new user handler
func NewUserHandler(provisioningFlow businessflow.ProvisioningFlow) *UserHandler {
	return &UserHandler{
		provisioningFlow: provisioningFlow,
		validator:        validator.New(),
	}
}

// AllocateIdentifier reserves the next user identifier without creating a user
// @Summary Allocate User Identifier
// @Description Atomically reserve the next sequential user identifier. Responses produced while the counter store is unreachable are flagged as degraded.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.AllocateIdentifierResponse} "Identifier allocated"
// @Failure 503 {object} dto.APIResponse "Identifier storage unreachable"
// @Router /api/v1/users/identifiers [post]
func (h *UserHandler) AllocateIdentifier(c fiber.Ctx) error {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.provisioningFlow.AllocateIdentifier(h.createRequestContext(c, "/api/v1/users/identifiers"), metadata)
	if err != nil {
		if businessflow.IsStorageUnavailable(err) {
			return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Identifier storage unreachable", "STORAGE_UNAVAILABLE", nil)
		}

		log.Println("Identifier allocation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Identifier allocation failed", "ALLOCATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Identifier allocated", result)
}

// CreateUser registers a new identity
// @Summary Create User
// @Description Register a new identity with an allocated identifier. Ledger-holding roles also receive a zero-balance account. The generated initial password is returned exactly once.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateUserRequest true "User data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateUserResponse} "User created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Email already registered"
// @Failure 503 {object} dto.APIResponse "Identifier storage unreachable"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/users [post]
func (h *UserHandler) CreateUser(c fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.provisioningFlow.CreateUser(h.createRequestContext(c, "/api/v1/users"), &req, metadata)
	if err != nil {
		// Handle specific business errors
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email already registered", "EMAIL_EXISTS", nil)
		}
		if businessflow.IsRoleUnknown(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown role", "UNKNOWN_ROLE", nil)
		}
		if businessflow.IsStatusUnknown(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown status", "UNKNOWN_STATUS", nil)
		}
		if businessflow.IsDuplicateAccount(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "User already holds an account", "DUPLICATE_ACCOUNT", nil)
		}
		if businessflow.IsStorageUnavailable(err) {
			return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Identifier storage unreachable", "STORAGE_UNAVAILABLE", nil)
		}

		log.Println("User creation failed", err)
		// Handle generic business errors
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User creation failed", "USER_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "User created", result)
}

// GetUser returns one identity by user ID
// @Summary Get User
// @Description Fetch a single identity by its user identifier
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User identifier"
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "User found"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Router /api/v1/users/{user_id} [get]
func (h *UserHandler) GetUser(c fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "User ID is required", "MISSING_USER_ID", nil)
	}

	result, err := h.provisioningFlow.GetUser(h.createRequestContext(c, "/api/v1/users/:user_id"), userID)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}

		log.Println("User lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User lookup failed", "USER_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "User found", result)
}

// ListUsers returns identities filtered by role or status
// @Summary List Users
// @Description List identities with optional role and status filters, paginated
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role filter" Enums(Super_Admin, Admin, Employee, Customer)
// @Param status query string false "Status filter" Enums(Active, Inactive, Suspended, Pending)
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListUsersResponse} "Users listed"
// @Failure 400 {object} dto.APIResponse "Invalid filter or pagination"
// @Router /api/v1/users [get]
func (h *UserHandler) ListUsers(c fiber.Ctx) error {
	var req dto.ListUsersRequest
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Page = n
		}
	}
	if v := c.Query("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.PageSize = n
		}
	}
	if role := c.Query("role"); role != "" {
		req.Role = &role
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.provisioningFlow.ListUsers(h.createRequestContext(c, "/api/v1/users"), &req)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", "INVALID_PAGINATION", nil)
		}
		if businessflow.IsRoleUnknown(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown role", "UNKNOWN_ROLE", nil)
		}
		if businessflow.IsStatusUnknown(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown status", "UNKNOWN_STATUS", nil)
		}

		log.Println("User listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User listing failed", "USER_LISTING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Users listed", result)
}

// UpdateUserStatus writes the stored status flag of one identity
// @Summary Update User Status
// @Description Set the stored status flag. This is the only path that changes status; derived activity never writes it.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User identifier"
// @Param request body dto.UpdateUserStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "Status updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Router /api/v1/users/{user_id}/status [patch]
func (h *UserHandler) UpdateUserStatus(c fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "User ID is required", "MISSING_USER_ID", nil)
	}

	var req dto.UpdateUserStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.provisioningFlow.UpdateUserStatus(h.createRequestContext(c, "/api/v1/users/:user_id/status"), userID, &req, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsStatusUnknown(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown status", "UNKNOWN_STATUS", nil)
		}

		log.Println("Status update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Status update failed", "STATUS_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Status updated", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *UserHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *UserHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
