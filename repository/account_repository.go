package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepositoryImpl implements AccountRepository interface
type AccountRepositoryImpl struct {
	*BaseRepository[models.Account, models.AccountFilter]
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Account, models.AccountFilter](db),
	}
}

// ByUserID finds the account owned by the given identity
func (r *AccountRepositoryImpl) ByUserID(ctx context.Context, userID string) (*models.Account, error) {
	db := r.getDB(ctx)
	var account models.Account
	err := db.Where("user_id = ?", userID).Last(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// ByUserIDForUpdate locks the account row until the enclosing transaction
// ends. Balance mutation for one account is serialized on this lock.
func (r *AccountRepositoryImpl) ByUserIDForUpdate(ctx context.Context, userID string) (*models.Account, error) {
	db := r.getDB(ctx)
	var account models.Account
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Last(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// CreateIfAbsent inserts the account unless the identity already holds one.
// The unique index on user_id makes this safe under concurrent provisioning.
func (r *AccountRepositoryImpl) CreateIfAbsent(ctx context.Context, account *models.Account) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(account)
	if res.Error != nil {
		err = res.Error
		return false, err
	}

	return res.RowsAffected > 0, nil
}

// ApplyBalanceChange writes the new balance guarded by the previously read
// one. A false return means another transaction won the race and the caller
// must abort or retry from a fresh read.
func (r *AccountRepositoryImpl) ApplyBalanceChange(ctx context.Context, accountID uint, prevBalance, newBalance decimal.Decimal, at time.Time) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.Account{}).
		Where("id = ? AND balance = ?", accountID, prevBalance).
		Updates(map[string]any{
			"balance":          newBalance,
			"last_transaction": at,
			"updated_at":       utils.UTCNow(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SumBalances sums balances across all non-archived accounts
func (r *AccountRepositoryImpl) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	db := r.getDB(ctx)
	var sum decimal.Decimal
	err := db.Model(&models.Account{}).
		Select("COALESCE(SUM(balance), 0)").
		Where("archived_at IS NULL").
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// Archive marks the account archived. Accounts are never deleted so the
// ledger history stays attributable.
func (r *AccountRepositoryImpl) Archive(ctx context.Context, accountID uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.Account{}).
		Where("id = ? AND archived_at IS NULL", accountID).
		Updates(map[string]any{
			"archived_at": utils.UTCNow(),
			"updated_at":  utils.UTCNow(),
		}).Error
}

// ByFilter retrieves accounts based on filter criteria
func (r *AccountRepositoryImpl) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	db := r.getDB(ctx)
	var accounts []*models.Account

	query := db.Model(&models.Account{})
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

	err := query.Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// Count returns the number of accounts matching the filter
func (r *AccountRepositoryImpl) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.Account{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any account matching the filter exists
func (r *AccountRepositoryImpl) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *AccountRepositoryImpl) applyFilter(query *gorm.DB, filter models.AccountFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Branch != nil {
		query = query.Where("branch = ?", *filter.Branch)
	}
	if !filter.IncludeArchived {
		query = query.Where("archived_at IS NULL")
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
