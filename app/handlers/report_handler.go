// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/ledgerdesk/ledgerdesk/app/dto"
	businessflow "github.com/ledgerdesk/ledgerdesk/business_flow"
	"github.com/ledgerdesk/ledgerdesk/utils"
)

// ReportHandlerInterface defines the contract for reporting handlers
type ReportHandlerInterface interface {
	GetActivity(c fiber.Ctx) error
	GetStats(c fiber.Ctx) error
	GetMonthlyReport(c fiber.Ctx) error
	ExportMonthlyReport(c fiber.Ctx) error
}

// ReportHandler handles reporting HTTP requests
type ReportHandler struct {
	reportingFlow businessflow.ReportingFlow
}

func (h *ReportHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ReportHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportingFlow businessflow.ReportingFlow) *ReportHandler {
	return &ReportHandler{
		reportingFlow: reportingFlow,
	}
}

// GetActivity returns the derived activity classification of a user
// @Summary Get User Activity
// @Description Classify a user as Active or Inactive from recent login events. The stored status flag is reported alongside and never modified by this read.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User identifier"
// @Success 200 {object} dto.APIResponse{data=dto.ActivityResponse} "Activity computed"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Router /api/v1/users/{user_id}/activity [get]
func (h *ReportHandler) GetActivity(c fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "User ID is required", "MISSING_USER_ID", nil)
	}

	result, err := h.reportingFlow.ComputeActivity(h.createRequestContext(c, "/api/v1/users/:user_id/activity"), userID)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}

		log.Println("Activity lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Activity lookup failed", "ACTIVITY_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Activity computed", result)
}

// GetStats returns the aggregate operational snapshot
// @Summary Aggregate Statistics
// @Description Aggregate user counts per role and status, derived active/inactive counts from login recency, and recent login volume. The total balance figure appears only for roles with financial visibility.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.AggregateStatsResponse} "Statistics computed"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/reports/stats [get]
func (h *ReportHandler) GetStats(c fiber.Ctx) error {
	result, err := h.reportingFlow.AggregateStats(h.createRequestContext(c, "/api/v1/reports/stats"), requesterRole(c))
	if err != nil {
		log.Println("Stats computation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Stats computation failed", "STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Statistics computed", result)
}

// GetMonthlyReport returns the per-user login report for one month
// @Summary Monthly Login Report
// @Description Build the monthly login report covering every registered user, ranked by login count descending with registration order breaking ties.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param month path string true "Month in YYYY-MM format" example(2025-11)
// @Success 200 {object} dto.APIResponse{data=dto.MonthlyReportResponse} "Report generated"
// @Failure 400 {object} dto.APIResponse "Invalid month"
// @Router /api/v1/reports/monthly/{month} [get]
func (h *ReportHandler) GetMonthlyReport(c fiber.Ctx) error {
	month := c.Params("month")
	if month == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Month is required", "MISSING_MONTH", nil)
	}

	result, err := h.reportingFlow.MonthlyReport(h.createRequestContext(c, "/api/v1/reports/monthly/:month"), month)
	if err != nil {
		if businessflow.IsInvalidMonth(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Month must be in YYYY-MM format", "INVALID_MONTH", nil)
		}

		log.Println("Monthly report failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Monthly report failed", "REPORT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Report generated", result)
}

// ExportMonthlyReport downloads the monthly login report as a spreadsheet
// @Summary Export Monthly Login Report
// @Description Download the monthly login report as an Excel file
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param month path string true "Month in YYYY-MM format" example(2025-11)
// @Success 200 {file} binary "Excel export"
// @Failure 400 {object} dto.APIResponse "Invalid month"
// @Router /api/v1/reports/monthly/{month}/export [get]
func (h *ReportHandler) ExportMonthlyReport(c fiber.Ctx) error {
	month := c.Params("month")
	if month == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Month is required", "MISSING_MONTH", nil)
	}

	filename, data, err := h.reportingFlow.ExportMonthlyReportXLSX(h.createRequestContext(c, "/api/v1/reports/monthly/:month/export"), month)
	if err != nil {
		if businessflow.IsInvalidMonth(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Month must be in YYYY-MM format", "INVALID_MONTH", nil)
		}

		log.Println("Monthly report export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Monthly report export failed", "REPORT_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *ReportHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *ReportHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
