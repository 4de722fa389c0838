// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/ledgerdesk/ledgerdesk/app/dto"
	businessflow "github.com/ledgerdesk/ledgerdesk/business_flow"
	"github.com/ledgerdesk/ledgerdesk/utils"
)

// AccountHandlerInterface defines the contract for account handlers
type AccountHandlerInterface interface {
	CreateAccount(c fiber.Ctx) error
	GetAccount(c fiber.Ctx) error
	ArchiveAccount(c fiber.Ctx) error
}

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	provisioningFlow businessflow.ProvisioningFlow
	transactionFlow  businessflow.TransactionFlow
	validator        *validator.Validate
}

func (h *AccountHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AccountHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(provisioningFlow businessflow.ProvisioningFlow, transactionFlow businessflow.TransactionFlow) *AccountHandler {
	return &AccountHandler{
		provisioningFlow: provisioningFlow,
		transactionFlow:  transactionFlow,
		validator:        validator.New(),
	}
}

// CreateAccount opens a zero-balance account for an existing identity
// @Summary Create Account
// @Description Open a zero-balance account for an existing user. Each user holds at most one account; the branch derives from the address.
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateAccountRequest true "Account owner"
// @Success 201 {object} dto.APIResponse{data=dto.AccountDTO} "Account created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 409 {object} dto.APIResponse "User already holds an account"
// @Router /api/v1/accounts [post]
func (h *AccountHandler) CreateAccount(c fiber.Ctx) error {
	var req dto.CreateAccountRequest
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

	result, err := h.provisioningFlow.CreateAccount(h.createRequestContext(c, "/api/v1/accounts"), &req, metadata)
	if err != nil {
		// Handle specific business errors
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsDuplicateAccount(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "User already holds an account", "DUPLICATE_ACCOUNT", nil)
		}

		log.Println("Account creation failed", err)
		// Handle generic business errors
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Account creation failed", "ACCOUNT_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Account created", result)
}

// GetAccount returns an account with its owner and recent entries
// @Summary Get Account
// @Description Fetch the account of a user along with the owner identity and recent ledger entries
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Account owner user identifier"
// @Success 200 {object} dto.APIResponse{data=dto.GetAccountResponse} "Account found"
// @Failure 404 {object} dto.APIResponse "User or account not found"
// @Router /api/v1/accounts/{user_id} [get]
func (h *AccountHandler) GetAccount(c fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "User ID is required", "MISSING_USER_ID", nil)
	}

	result, err := h.transactionFlow.GetAccount(h.createRequestContext(c, "/api/v1/accounts/:user_id"), userID)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", "ACCOUNT_NOT_FOUND", nil)
		}

		log.Println("Account lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Account lookup failed", "ACCOUNT_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Account found", result)
}

// ArchiveAccount marks an account as archived without deleting it
// @Summary Archive Account
// @Description Archive the account of a user. Archived accounts reject further transactions but their history is preserved.
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Account owner user identifier"
// @Success 200 {object} dto.APIResponse{data=dto.AccountDTO} "Account archived"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 409 {object} dto.APIResponse "Account already archived"
// @Router /api/v1/accounts/{user_id}/archive [post]
func (h *AccountHandler) ArchiveAccount(c fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "User ID is required", "MISSING_USER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.provisioningFlow.ArchiveAccount(h.createRequestContext(c, "/api/v1/accounts/:user_id/archive"), userID, metadata)
	if err != nil {
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", "ACCOUNT_NOT_FOUND", nil)
		}
		if businessflow.IsAccountArchived(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Account already archived", "ACCOUNT_ARCHIVED", nil)
		}

		log.Println("Account archiving failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Account archiving failed", "ACCOUNT_ARCHIVE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Account archived", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *AccountHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *AccountHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
