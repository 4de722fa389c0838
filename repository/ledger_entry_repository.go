package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntryRepositoryImpl implements LedgerEntryRepository interface
type LedgerEntryRepositoryImpl struct {
	*BaseRepository[models.LedgerEntry, models.LedgerEntryFilter]
}

// NewLedgerEntryRepository creates a new ledger entry repository
func NewLedgerEntryRepository(db *gorm.DB) LedgerEntryRepository {
	return &LedgerEntryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LedgerEntry, models.LedgerEntryFilter](db),
	}
}

// ByEntryID finds a ledger entry by its external transaction identifier
func (r *LedgerEntryRepositoryImpl) ByEntryID(ctx context.Context, entryID string) (*models.LedgerEntry, error) {
	db := r.getDB(ctx)
	var entry models.LedgerEntry
	err := db.Where("entry_id = ?", entryID).Last(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListRecentByAccount returns the newest entries of an account since the
// given instant, newest first, capped at limit.
func (r *LedgerEntryRepositoryImpl) ListRecentByAccount(ctx context.Context, accountID uint, since time.Time, limit int) ([]*models.LedgerEntry, error) {
	db := r.getDB(ctx)
	var entries []*models.LedgerEntry
	query := db.Where("account_id = ? AND created_at >= ?", accountID, since).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SumSignedByAccount folds the whole ledger of an account into one signed sum.
// Must equal the account's stored balance at all times.
func (r *LedgerEntryRepositoryImpl) SumSignedByAccount(ctx context.Context, accountID uint) (decimal.Decimal, error) {
	db := r.getDB(ctx)
	var sum decimal.Decimal
	err := db.Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(CASE WHEN kind = ? THEN -amount ELSE amount END), 0)", models.EntryKindDecrease).
		Where("account_id = ?", accountID).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// ByFilter retrieves ledger entries based on filter criteria
func (r *LedgerEntryRepositoryImpl) ByFilter(ctx context.Context, filter models.LedgerEntryFilter, orderBy string, limit, offset int) ([]*models.LedgerEntry, error) {
	db := r.getDB(ctx)
	var entries []*models.LedgerEntry

	query := db.Model(&models.LedgerEntry{})
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

	err := query.Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of ledger entries matching the filter
func (r *LedgerEntryRepositoryImpl) Count(ctx context.Context, filter models.LedgerEntryFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.LedgerEntry{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any ledger entry matching the filter exists
func (r *LedgerEntryRepositoryImpl) Exists(ctx context.Context, filter models.LedgerEntryFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *LedgerEntryRepositoryImpl) applyFilter(query *gorm.DB, filter models.LedgerEntryFilter) *gorm.DB {
	if filter.EntryID != nil {
		query = query.Where("entry_id = ?", *filter.EntryID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
