package businessflow

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerdesk/ledgerdesk/app/dto"
	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/repository"
	"github.com/ledgerdesk/ledgerdesk/utils"
	"github.com/xuri/excelize/v2"
)

// ReportingFlow derives activity and builds the operational reports. It only
// reads: in particular, derived activity is never written back to the stored
// status flag.
type ReportingFlow interface {
	ComputeActivity(ctx context.Context, userID string) (*dto.ActivityResponse, error)
	AggregateStats(ctx context.Context, requesterRole int) (*dto.AggregateStatsResponse, error)
	MonthlyReport(ctx context.Context, month string) (*dto.MonthlyReportResponse, error)
	ExportMonthlyReportXLSX(ctx context.Context, month string) (string, []byte, error)
}

// ReportingFlowImpl implements the reporting business logic
type ReportingFlowImpl struct {
	userRepo       repository.UserRepository
	accountRepo    repository.AccountRepository
	loginEventRepo repository.LoginEventRepository
}

// NewReportingFlow creates a new reporting flow
func NewReportingFlow(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	loginEventRepo repository.LoginEventRepository,
) ReportingFlow {
	return &ReportingFlowImpl{
		userRepo:       userRepo,
		accountRepo:    accountRepo,
		loginEventRepo: loginEventRepo,
	}
}

// ComputeActivity classifies a user as Active when at least one login event
// falls inside the trailing activity window, Inactive otherwise. The stored
// status flag is reported alongside for comparison and is never modified.
func (s *ReportingFlowImpl) ComputeActivity(ctx context.Context, userID string) (*dto.ActivityResponse, error) {
	user, err := s.userRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("ACTIVITY_LOOKUP_FAILED", "Failed to lookup user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	since := utils.UTCNow().Add(-utils.ActivityWindow)
	active, err := s.loginEventRepo.ExistsForUserSince(ctx, userID, since)
	if err != nil {
		return nil, NewBusinessError("ACTIVITY_LOOKUP_FAILED", "Failed to inspect login events", err)
	}

	derived := models.StatusInactive
	if active {
		derived = models.StatusActive
	}

	resp := &dto.ActivityResponse{
		UserID:          user.UserID,
		StoredStatus:    user.StatusName(),
		DerivedActivity: derived,
		WindowDays:      int(utils.ActivityWindow.Hours() / 24),
	}
	if user.LastLoginAt != nil {
		resp.LastLogin = utils.ToPtr(user.LastLoginAt.Format(time.RFC3339))
	}

	return resp, nil
}

// AggregateStats builds the operational snapshot: user totals per role and
// status, derived active/inactive counts from login recency, logins inside the
// trailing week, and for financially visible roles the summed balance across
// non-archived accounts. All windows are measured from one snapshot time.
func (s *ReportingFlowImpl) AggregateStats(ctx context.Context, requesterRole int) (*dto.AggregateStatsResponse, error) {
	now := utils.UTCNow()

	totalUsers, err := s.userRepo.Count(ctx, models.UserFilter{})
	if err != nil {
		return nil, NewBusinessError("STATS_FAILED", "Failed to count users", err)
	}

	roleRows, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		return nil, NewBusinessError("STATS_FAILED", "Failed to count users by role", err)
	}
	statusRows, err := s.userRepo.CountByStatus(ctx)
	if err != nil {
		return nil, NewBusinessError("STATS_FAILED", "Failed to count users by status", err)
	}

	byRole := make(map[int]int64, len(roleRows))
	for _, r := range roleRows {
		byRole[r.RoleCode] = r.Count
	}
	byStatus := make(map[int]int64, len(statusRows))
	for _, r := range statusRows {
		byStatus[r.StatusCode] = r.Count
	}

	roleCounts := make([]dto.NamedCountDTO, 0, len(models.AllRoleCodes()))
	for _, code := range models.AllRoleCodes() {
		name, _ := models.RoleNameByCode(code)
		roleCounts = append(roleCounts, dto.NamedCountDTO{Name: name, Count: byRole[code]})
	}
	statusCounts := make([]dto.NamedCountDTO, 0, len(models.AllStatusCodes()))
	for _, code := range models.AllStatusCodes() {
		name, _ := models.StatusNameByCode(code)
		statusCounts = append(statusCounts, dto.NamedCountDTO{Name: name, Count: byStatus[code]})
	}

	activeIDs, err := s.loginEventRepo.ListActiveUserIDsSince(ctx, now.Add(-utils.ActivityWindow))
	if err != nil {
		return nil, NewBusinessError("STATS_FAILED", "Failed to derive active users", err)
	}
	derivedActive := int64(len(activeIDs))

	recentLogins, err := s.loginEventRepo.CountSince(ctx, now.Add(-utils.LoginCountWindow))
	if err != nil {
		return nil, NewBusinessError("STATS_FAILED", "Failed to count recent logins", err)
	}

	resp := &dto.AggregateStatsResponse{
		TotalUsers:       totalUsers,
		DerivedActive:    derivedActive,
		DerivedInactive:  totalUsers - derivedActive,
		RoleCounts:       roleCounts,
		StatusCounts:     statusCounts,
		RecentLoginCount: recentLogins,
		GeneratedAt:      now.Format(time.RFC3339),
	}

	if models.RoleHasFinancialVisibility(requesterRole) {
		sum, err := s.accountRepo.SumBalances(ctx)
		if err != nil {
			return nil, NewBusinessError("STATS_FAILED", "Failed to sum balances", err)
		}
		resp.TotalBalance = &sum
	}

	return resp, nil
}

// MonthlyReport covers every registered user for the requested month. Users
// without logins appear with a zero count; their last login column falls back
// to the most recent login before the month ended. Rows rank by login count
// descending; ties keep registration order.
func (s *ReportingFlowImpl) MonthlyReport(ctx context.Context, month string) (*dto.MonthlyReportResponse, error) {
	_, end, err := utils.MonthBounds(month)
	if err != nil {
		return nil, ErrInvalidMonth
	}

	users, err := s.userRepo.ByFilter(ctx, models.UserFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("REPORT_FAILED", "Failed to list users", err)
	}

	counts, err := s.loginEventRepo.MonthlyCounts(ctx, month)
	if err != nil {
		return nil, NewBusinessError("REPORT_FAILED", "Failed to aggregate monthly logins", err)
	}
	countByUser := make(map[string]repository.MonthlyLoginCount, len(counts))
	for _, c := range counts {
		countByUser[c.UserID] = c
	}

	lastLogins, err := s.loginEventRepo.LastLoginsBefore(ctx, end)
	if err != nil {
		return nil, NewBusinessError("REPORT_FAILED", "Failed to resolve last logins", err)
	}
	lastByUser := make(map[string]time.Time, len(lastLogins))
	for _, l := range lastLogins {
		lastByUser[l.UserID] = l.LastLogin
	}

	rows := make([]dto.MonthlyReportRowDTO, 0, len(users))
	var totalLogins int64
	for _, u := range users {
		row := dto.MonthlyReportRowDTO{
			UserID:   u.UserID,
			FullName: u.FullName(),
			Email:    u.Email,
			Role:     u.RoleName(),
		}
		if c, ok := countByUser[u.UserID]; ok {
			row.LoginCount = c.Count
			row.LastLogin = utils.ToPtr(c.LastLogin.Format(time.RFC3339))
		} else if last, ok := lastByUser[u.UserID]; ok {
			row.LastLogin = utils.ToPtr(last.Format(time.RFC3339))
		}
		totalLogins += row.LoginCount
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].LoginCount > rows[j].LoginCount
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	return &dto.MonthlyReportResponse{
		Month:       month,
		TotalLogins: totalLogins,
		TotalUsers:  len(users),
		Rows:        rows,
		GeneratedAt: utils.UTCNowFormat(time.RFC3339),
	}, nil
}

// ExportMonthlyReportXLSX renders the monthly report as a spreadsheet and
// returns the suggested filename with the file bytes.
func (s *ReportingFlowImpl) ExportMonthlyReportXLSX(ctx context.Context, month string) (string, []byte, error) {
	report, err := s.MonthlyReport(ctx, month)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := sanitizeSheetName("Logins " + report.Month)
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"rank", "user_id", "full_name", "email", "role", "login_count", "last_login"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, row := range report.Rows {
		lastLogin := ""
		if row.LastLogin != nil {
			lastLogin = *row.LastLogin
		}
		record := []string{
			strconv.Itoa(row.Rank),
			row.UserID,
			row.FullName,
			row.Email,
			row.Role,
			strconv.FormatInt(row.LoginCount, 10),
			lastLogin,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("monthly_login_report_%s.xlsx", report.Month)
	return filename, buf.Bytes(), nil
}

func sanitizeSheetName(name string) string {
	// Excel sheet names cannot contain: : \\ / ? * [ ] and must be <= 31 chars
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	safe := replacer.Replace(name)
	return truncateSheetName(strings.TrimSpace(safe))
}

func truncateSheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	if name == "" {
		return "Sheet"
	}
	return name
}
