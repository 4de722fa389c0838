package repository

import (
	"context"
	"fmt"

	"github.com/ledgerdesk/ledgerdesk/utils"
	"gorm.io/gorm"
)

// SequenceRepositoryImpl implements SequenceRepository on Postgres. The
// increment is a single UPDATE .. RETURNING statement, so concurrent callers
// are serialized by the row and can never observe the same value.
type SequenceRepositoryImpl struct {
	db    *gorm.DB
	users UserRepository
	name  string
	floor int64
}

// NewSequenceRepository creates a new sequence repository. floor is the
// baseline below which no identifier is ever issued; users provides the
// historical maximum for lazy seeding.
func NewSequenceRepository(db *gorm.DB, users UserRepository, name string, floor int64) SequenceRepository {
	return &SequenceRepositoryImpl{
		db:    db,
		users: users,
		name:  name,
		floor: floor,
	}
}

func (r *SequenceRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// AllocateNext atomically increments the counter and returns the new value,
// seeding the counter row on first use.
func (r *SequenceRepositoryImpl) AllocateNext(ctx context.Context) (int64, error) {
	value, ok, err := r.increment(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence %q: %w", r.name, err)
	}
	if ok {
		return value, nil
	}

	// No counter row yet: seed it from the historical maximum, then increment.
	// ON CONFLICT DO NOTHING keeps concurrent first allocations safe; both end
	// up incrementing the same row.
	if err := r.seed(ctx); err != nil {
		return 0, fmt.Errorf("failed to seed sequence %q: %w", r.name, err)
	}

	value, ok, err = r.increment(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence %q after seed: %w", r.name, err)
	}
	if !ok {
		return 0, fmt.Errorf("sequence %q missing after seed", r.name)
	}
	return value, nil
}

// Current returns the last issued value without incrementing. The second
// return reports whether the counter row exists yet.
func (r *SequenceRepositoryImpl) Current(ctx context.Context) (int64, bool, error) {
	db := r.getDB(ctx)
	var value int64
	res := db.Raw(`SELECT last_value FROM sequence_counters WHERE name = ?`, r.name).Scan(&value)
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return value, true, nil
}

func (r *SequenceRepositoryImpl) increment(ctx context.Context) (int64, bool, error) {
	db := r.getDB(ctx)
	var value int64
	res := db.Raw(
		`UPDATE sequence_counters SET last_value = last_value + 1, updated_at = ? WHERE name = ? RETURNING last_value`,
		utils.UTCNow(), r.name,
	).Scan(&value)
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return value, true, nil
}

func (r *SequenceRepositoryImpl) seed(ctx context.Context) error {
	maxID, err := r.users.MaxNumericUserID(ctx)
	if err != nil {
		return err
	}

	seed := r.floor
	if maxID > seed {
		seed = maxID
	}

	db := r.getDB(ctx)
	now := utils.UTCNow()
	return db.Exec(
		`INSERT INTO sequence_counters (name, last_value, created_at, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT (name) DO NOTHING`,
		r.name, seed, now, now,
	).Error
}
