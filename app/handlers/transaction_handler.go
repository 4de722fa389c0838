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

// TransactionHandlerInterface defines the contract for transaction handlers
type TransactionHandlerInterface interface {
	PostTransaction(c fiber.Ctx) error
	ListTransactions(c fiber.Ctx) error
}

// TransactionHandler handles ledger transaction HTTP requests
type TransactionHandler struct {
	transactionFlow businessflow.TransactionFlow
	validator       *validator.Validate
}

func (h *TransactionHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *TransactionHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(transactionFlow businessflow.TransactionFlow) *TransactionHandler {
	return &TransactionHandler{
		transactionFlow: transactionFlow,
		validator:       validator.New(),
	}
}

// PostTransaction records a balance change and its ledger entry as one unit
// @Summary Post Transaction
// @Description Apply an increase or decrease to an account balance and append the matching ledger entry atomically. Decreases never overdraw.
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PostTransactionRequest true "Transaction data"
// @Success 201 {object} dto.APIResponse{data=dto.TransactionReceiptResponse} "Transaction posted"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid amount"
// @Failure 404 {object} dto.APIResponse "User or account not found"
// @Failure 409 {object} dto.APIResponse "Archived account or concurrent conflict"
// @Failure 422 {object} dto.APIResponse "Insufficient funds"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) PostTransaction(c fiber.Ctx) error {
	var req dto.PostTransactionRequest
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
	if requester := requesterUserID(c); requester != "" {
		metadata.AddAdditional("requester_user_id", requester)
	}

	result, err := h.transactionFlow.PostTransaction(h.createRequestContext(c, "/api/v1/transactions"), &req, metadata)
	if err != nil {
		// Handle specific business errors
		if businessflow.IsInvalidAmount(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Amount must be a positive number", "INVALID_AMOUNT", nil)
		}
		if businessflow.IsInvalidEntryKind(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Kind must be increase or decrease", "INVALID_ENTRY_KIND", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", "ACCOUNT_NOT_FOUND", nil)
		}
		if businessflow.IsAccountArchived(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Account is archived", "ACCOUNT_ARCHIVED", nil)
		}
		if businessflow.IsInsufficientFunds(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Insufficient funds", "INSUFFICIENT_FUNDS", nil)
		}
		if businessflow.IsBalanceConflict(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Concurrent balance conflict, retry the transaction", "BALANCE_CONFLICT", nil)
		}

		log.Println("Transaction failed", err)
		// Handle generic business errors
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Transaction failed", "TRANSACTION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Transaction posted", result)
}

// ListTransactions returns the recent ledger entries of an account
// @Summary List Recent Transactions
// @Description List the most recent ledger entries of a user's account, newest first
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Account owner user identifier"
// @Success 200 {object} dto.APIResponse{data=dto.ListTransactionsResponse} "Transactions listed"
// @Failure 404 {object} dto.APIResponse "User or account not found"
// @Router /api/v1/accounts/{user_id}/transactions [get]
func (h *TransactionHandler) ListTransactions(c fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "User ID is required", "MISSING_USER_ID", nil)
	}

	result, err := h.transactionFlow.ListRecentTransactions(h.createRequestContext(c, "/api/v1/accounts/:user_id/transactions"), userID)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", "ACCOUNT_NOT_FOUND", nil)
		}

		log.Println("Transaction listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Transaction listing failed", "TRANSACTION_LISTING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Transactions listed", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *TransactionHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *TransactionHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
