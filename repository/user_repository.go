package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/utils"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements UserRepository interface
type UserRepositoryImpl struct {
	*BaseRepository[models.User, models.UserFilter]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User, models.UserFilter](db),
	}
}

// ByUserID finds a user by its external identifier
func (r *UserRepositoryImpl) ByUserID(ctx context.Context, userID string) (*models.User, error) {
	db := r.getDB(ctx)
	var user models.User
	err := db.Where("user_id = ?", userID).Last(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ByEmail finds a user by email
func (r *UserRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.User, error) {
	db := r.getDB(ctx)
	var user models.User
	err := db.Where("email = ?", email).Last(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin stamps the user's last successful login time
func (r *UserRepositoryImpl) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"last_login_at": at,
			"updated_at":    utils.UTCNow(),
		}).Error
}

// UpdateStatus sets the stored status flag. This is the only write path for
// the flag; the activity reconciler never calls it.
func (r *UserRepositoryImpl) UpdateStatus(ctx context.Context, userID string, statusCode int) error {
	db := r.getDB(ctx)
	return db.Model(&models.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"status_code": statusCode,
			"updated_at":  utils.UTCNow(),
		}).Error
}

// MaxNumericUserID returns the largest purely numeric identifier present, or
// zero when there is none. Legacy alphanumeric identifiers are skipped.
func (r *UserRepositoryImpl) MaxNumericUserID(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)
	var max int64
	err := db.Raw(`SELECT COALESCE(MAX(user_id::bigint), 0) FROM users WHERE user_id ~ '^[0-9]+$'`).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

// CountByRole groups users by role code
func (r *UserRepositoryImpl) CountByRole(ctx context.Context) ([]RoleCount, error) {
	db := r.getDB(ctx)
	var rows []RoleCount
	err := db.Model(&models.User{}).
		Select("role_code, COUNT(*) AS count").
		Group("role_code").
		Order("role_code ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByStatus groups users by the stored status flag
func (r *UserRepositoryImpl) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	db := r.getDB(ctx)
	var rows []StatusCount
	err := db.Model(&models.User{}).
		Select("status_code, COUNT(*) AS count").
		Group("status_code").
		Order("status_code ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListCustomersWithoutAccounts returns customer-role users lacking an account,
// for the startup backfill.
func (r *UserRepositoryImpl) ListCustomersWithoutAccounts(ctx context.Context) ([]*models.User, error) {
	db := r.getDB(ctx)
	var users []*models.User
	err := db.Model(&models.User{}).
		Joins("LEFT JOIN accounts ON accounts.user_id = users.user_id").
		Where("users.role_code = ? AND accounts.id IS NULL", models.RoleCodeCustomer).
		Order("users.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ByFilter retrieves users based on filter criteria
func (r *UserRepositoryImpl) ByFilter(ctx context.Context, filter models.UserFilter, orderBy string, limit, offset int) ([]*models.User, error) {
	db := r.getDB(ctx)
	var users []*models.User

	query := db.Model(&models.User{})
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

	err := query.Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Count returns the number of users matching the filter
func (r *UserRepositoryImpl) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.User{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any user matching the filter exists
func (r *UserRepositoryImpl) Exists(ctx context.Context, filter models.UserFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *UserRepositoryImpl) applyFilter(query *gorm.DB, filter models.UserFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Email != nil {
		query = query.Where("email = ?", *filter.Email)
	}
	if filter.RoleCode != nil {
		query = query.Where("role_code = ?", *filter.RoleCode)
	}
	if filter.StatusCode != nil {
		query = query.Where("status_code = ?", *filter.StatusCode)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	if filter.LastLoginAfter != nil {
		query = query.Where("last_login_at > ?", *filter.LastLoginAfter)
	}
	if filter.LastLoginBefore != nil {
		query = query.Where("last_login_at < ?", *filter.LastLoginBefore)
	}
	return query
}
