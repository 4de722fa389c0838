package models

import (
	"time"
)

// LoginEvent is one successful authentication, append-only. Month and Date are
// denormalized period keys kept alongside the timestamp because the monthly
// report and activity queries group on them constantly.
type LoginEvent struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"size:64;not null;index:idx_login_events_user_id" json:"user_id"`

	LoginTime time.Time `gorm:"not null;index:idx_login_events_login_time" json:"login_time"`
	Month     string    `gorm:"size:7;not null;index:idx_login_events_month" json:"month"`
	Date      string    `gorm:"size:10;not null" json:"date"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (LoginEvent) TableName() string {
	return "login_events"
}

// LoginEventFilter represents filter criteria for login event queries
type LoginEventFilter struct {
	UserID      *string
	Month       *string
	LoginAfter  *time.Time
	LoginBefore *time.Time
}

// NewLoginEvent builds an event for userID at the given instant, filling the
// denormalized month and date keys from the UTC timestamp.
func NewLoginEvent(userID string, at time.Time) *LoginEvent {
	at = at.UTC()
	return &LoginEvent{
		UserID:    userID,
		LoginTime: at,
		Month:     at.Format("2006-01"),
		Date:      at.Format("2006-01-02"),
	}
}
