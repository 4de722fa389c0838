package repository

import (
	"context"
	"time"

	"github.com/ledgerdesk/ledgerdesk/models"
	"gorm.io/gorm"
)

// LoginEventRepositoryImpl implements LoginEventRepository interface
type LoginEventRepositoryImpl struct {
	*BaseRepository[models.LoginEvent, models.LoginEventFilter]
}

// NewLoginEventRepository creates a new login event repository
func NewLoginEventRepository(db *gorm.DB) LoginEventRepository {
	return &LoginEventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LoginEvent, models.LoginEventFilter](db),
	}
}

// ExistsForUserSince reports whether the identity logged in at or after since
func (r *LoginEventRepositoryImpl) ExistsForUserSince(ctx context.Context, userID string, since time.Time) (bool, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.LoginEvent{}).
		Where("user_id = ? AND login_time >= ?", userID, since).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountSince counts all logins at or after since, across all identities
func (r *LoginEventRepositoryImpl) CountSince(ctx context.Context, since time.Time) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.LoginEvent{}).
		Where("login_time >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListActiveUserIDsSince returns the distinct identities with at least one
// login at or after since.
func (r *LoginEventRepositoryImpl) ListActiveUserIDsSince(ctx context.Context, since time.Time) ([]string, error) {
	db := r.getDB(ctx)
	var userIDs []string
	err := db.Model(&models.LoginEvent{}).
		Distinct("user_id").
		Where("login_time >= ?", since).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

// MonthlyCounts aggregates logins of one calendar month per identity
func (r *LoginEventRepositoryImpl) MonthlyCounts(ctx context.Context, month string) ([]MonthlyLoginCount, error) {
	db := r.getDB(ctx)
	var rows []MonthlyLoginCount
	err := db.Model(&models.LoginEvent{}).
		Select("user_id, COUNT(*) AS count, MAX(login_time) AS last_login").
		Where("month = ?", month).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LastLoginsBefore returns, per identity, the most recent login strictly
// before the given instant.
func (r *LoginEventRepositoryImpl) LastLoginsBefore(ctx context.Context, before time.Time) ([]UserLastLogin, error) {
	db := r.getDB(ctx)
	var rows []UserLastLogin
	err := db.Model(&models.LoginEvent{}).
		Select("user_id, MAX(login_time) AS last_login").
		Where("login_time < ?", before).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ByFilter retrieves login events based on filter criteria
func (r *LoginEventRepositoryImpl) ByFilter(ctx context.Context, filter models.LoginEventFilter, orderBy string, limit, offset int) ([]*models.LoginEvent, error) {
	db := r.getDB(ctx)
	var events []*models.LoginEvent

	query := db.Model(&models.LoginEvent{})
	query = r.applyFilter(query, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of login events matching the filter
func (r *LoginEventRepositoryImpl) Count(ctx context.Context, filter models.LoginEventFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.LoginEvent{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any login event matching the filter exists
func (r *LoginEventRepositoryImpl) Exists(ctx context.Context, filter models.LoginEventFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *LoginEventRepositoryImpl) applyFilter(query *gorm.DB, filter models.LoginEventFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Month != nil {
		query = query.Where("month = ?", *filter.Month)
	}
	if filter.LoginAfter != nil {
		query = query.Where("login_time > ?", *filter.LoginAfter)
	}
	if filter.LoginBefore != nil {
		query = query.Where("login_time < ?", *filter.LoginBefore)
	}
	return query
}
