package dto

import "github.com/shopspring/decimal"

// ActivityResponse reports derived activity for one user. DerivedActivity is
// computed from login recency and is independent of the stored status flag.
type ActivityResponse struct {
	UserID          string  `json:"user_id" example:"56125810021"`
	StoredStatus    string  `json:"stored_status" example:"Active"`
	DerivedActivity string  `json:"derived_activity" example:"Inactive"`
	LastLogin       *string `json:"last_login,omitempty" example:"2024-01-20T09:12:44Z"`
	WindowDays      int     `json:"window_days" example:"90"`
}

// NamedCountDTO is a labelled count used by the aggregate statistics report
type NamedCountDTO struct {
	Name  string `json:"name" example:"Customer"`
	Count int64  `json:"count" example:"42"`
}

// AggregateStatsResponse is the operational statistics snapshot. The derived
// activity counts come from login recency and can disagree with StatusCounts,
// which reflect the stored flag. TotalBalance is only present when the
// requesting role has financial visibility.
type AggregateStatsResponse struct {
	TotalUsers       int64            `json:"total_users" example:"128"`
	DerivedActive    int64            `json:"derived_active" example:"97"`
	DerivedInactive  int64            `json:"derived_inactive" example:"31"`
	RoleCounts       []NamedCountDTO  `json:"role_counts"`
	StatusCounts     []NamedCountDTO  `json:"status_counts"`
	RecentLoginCount int64            `json:"recent_login_count" example:"17"`
	TotalBalance     *decimal.Decimal `json:"total_balance,omitempty" example:"93125.40"`
	GeneratedAt      string           `json:"generated_at" example:"2024-01-20T10:30:00Z"`
}

// MonthlyReportRowDTO is one ranked row of the monthly login report
type MonthlyReportRowDTO struct {
	Rank       int     `json:"rank" example:"1"`
	UserID     string  `json:"user_id" example:"56125810021"`
	FullName   string  `json:"full_name" example:"John Doe"`
	Email      string  `json:"email" example:"john.doe@example.com"`
	Role       string  `json:"role" example:"Customer"`
	LoginCount int64   `json:"login_count" example:"9"`
	LastLogin  *string `json:"last_login,omitempty" example:"2024-01-28T18:02:11Z"`
}

// MonthlyReportResponse covers every registered user for the requested month,
// including users with zero logins.
type MonthlyReportResponse struct {
	Month       string                `json:"month" example:"2024-01"`
	TotalLogins int64                 `json:"total_logins" example:"212"`
	TotalUsers  int                   `json:"total_users" example:"128"`
	Rows        []MonthlyReportRowDTO `json:"rows"`
	GeneratedAt string                `json:"generated_at" example:"2024-02-01T00:05:00Z"`
}

// Common error codes for reporting operations
const (
	ErrorCodeInvalidMonth = "INVALID_MONTH"
)
