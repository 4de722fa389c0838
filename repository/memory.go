package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/utils"
	"github.com/shopspring/decimal"
)

// In-memory repository implementations. They back unit tests and the
// single-process demo mode; semantics mirror the Postgres implementations,
// including the balance-guarded conditional update. Ordering follows
// insertion order, which coincides with id and created_at order here; an
// orderBy ending in "DESC" reverses it.

// MemoryUserRepository is a mutex-guarded in-memory UserRepository
type MemoryUserRepository struct {
	mu       sync.Mutex
	nextID   uint
	users    []*models.User
	accounts AccountRepository
}

// NewMemoryUserRepository creates an empty in-memory user repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{}
}

func (r *MemoryUserRepository) ByID(ctx context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.users) - 1; i >= 0; i-- {
		if r.users[i].ID == id {
			cp := *r.users[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) ByUserID(ctx context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUserIDLocked(userID), nil
}

func (r *MemoryUserRepository) byUserIDLocked(userID string) *models.User {
	for i := len(r.users) - 1; i >= 0; i-- {
		if r.users[i].UserID == userID {
			cp := *r.users[i]
			return &cp
		}
	}
	return nil
}

func (r *MemoryUserRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.users) - 1; i >= 0; i-- {
		if r.users[i].Email == email {
			cp := *r.users[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) Save(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = utils.UTCNow()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	cp := *user
	r.users = append(r.users, &cp)
	return nil
}

func (r *MemoryUserRepository) SaveBatch(ctx context.Context, users []*models.User) error {
	for _, u := range users {
		if err := r.Save(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryUserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.UserID == userID {
			at := at
			u.LastLoginAt = &at
			u.UpdatedAt = utils.UTCNow()
		}
	}
	return nil
}

func (r *MemoryUserRepository) UpdateStatus(ctx context.Context, userID string, statusCode int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.UserID == userID {
			u.StatusCode = statusCode
			u.UpdatedAt = utils.UTCNow()
		}
	}
	return nil
}

func (r *MemoryUserRepository) MaxNumericUserID(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max int64
	for _, u := range r.users {
		n, err := strconv.ParseInt(u.UserID, 10, 64)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (r *MemoryUserRepository) CountByRole(ctx context.Context) ([]RoleCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[int]int64)
	for _, u := range r.users {
		counts[u.RoleCode]++
	}
	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	rows := make([]RoleCount, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, RoleCount{RoleCode: code, Count: counts[code]})
	}
	return rows, nil
}

func (r *MemoryUserRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[int]int64)
	for _, u := range r.users {
		counts[u.StatusCode]++
	}
	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	rows := make([]StatusCount, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, StatusCount{StatusCode: code, Count: counts[code]})
	}
	return rows, nil
}

// ListCustomersWithoutAccounts needs the account repository to answer; the
// memory wiring sets it via BindAccounts.
func (r *MemoryUserRepository) ListCustomersWithoutAccounts(ctx context.Context) ([]*models.User, error) {
	r.mu.Lock()
	accounts := r.accounts
	users := make([]*models.User, len(r.users))
	copy(users, r.users)
	r.mu.Unlock()

	var out []*models.User
	for _, u := range users {
		if u.RoleCode != models.RoleCodeCustomer {
			continue
		}
		if accounts != nil {
			if acc, _ := accounts.ByUserID(ctx, u.UserID); acc != nil {
				continue
			}
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

// BindAccounts wires the account repository used by ListCustomersWithoutAccounts
func (r *MemoryUserRepository) BindAccounts(accounts AccountRepository) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = accounts
}

func (r *MemoryUserRepository) ByFilter(ctx context.Context, filter models.UserFilter, orderBy string, limit, offset int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.users {
		if matchUserFilter(u, filter) {
			cp := *u
			out = append(out, &cp)
		}
	}
	out = applyMemoryOrdering(out, orderBy)
	return applyMemoryPaging(out, limit, offset), nil
}

func (r *MemoryUserRepository) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, u := range r.users {
		if matchUserFilter(u, filter) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryUserRepository) Exists(ctx context.Context, filter models.UserFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func matchUserFilter(u *models.User, f models.UserFilter) bool {
	if f.ID != nil && u.ID != *f.ID {
		return false
	}
	if f.UserID != nil && u.UserID != *f.UserID {
		return false
	}
	if f.Email != nil && u.Email != *f.Email {
		return false
	}
	if f.RoleCode != nil && u.RoleCode != *f.RoleCode {
		return false
	}
	if f.StatusCode != nil && u.StatusCode != *f.StatusCode {
		return false
	}
	if f.CreatedAfter != nil && !u.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !u.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	if f.LastLoginAfter != nil && (u.LastLoginAt == nil || !u.LastLoginAt.After(*f.LastLoginAfter)) {
		return false
	}
	if f.LastLoginBefore != nil && (u.LastLoginAt == nil || !u.LastLoginAt.Before(*f.LastLoginBefore)) {
		return false
	}
	return true
}

// MemoryAccountRepository is a mutex-guarded in-memory AccountRepository
type MemoryAccountRepository struct {
	mu       sync.Mutex
	nextID   uint
	accounts []*models.Account
}

// NewMemoryAccountRepository creates an empty in-memory account repository
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{}
}

func (r *MemoryAccountRepository) ByID(ctx context.Context, id uint) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.accounts) - 1; i >= 0; i-- {
		if r.accounts[i].ID == id {
			cp := *r.accounts[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryAccountRepository) ByUserID(ctx context.Context, userID string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.accounts) - 1; i >= 0; i-- {
		if r.accounts[i].UserID == userID {
			cp := *r.accounts[i]
			return &cp, nil
		}
	}
	return nil, nil
}

// ByUserIDForUpdate has no row lock to take in memory; callers are protected
// by the balance-guarded conditional update instead.
func (r *MemoryAccountRepository) ByUserIDForUpdate(ctx context.Context, userID string) (*models.Account, error) {
	return r.ByUserID(ctx, userID)
}

func (r *MemoryAccountRepository) Save(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveLocked(account)
	return nil
}

func (r *MemoryAccountRepository) saveLocked(account *models.Account) {
	r.nextID++
	account.ID = r.nextID
	if account.CreatedAt.IsZero() {
		account.CreatedAt = utils.UTCNow()
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	if account.Branch == "" {
		account.Branch = utils.UnknownBranch
	}
	cp := *account
	r.accounts = append(r.accounts, &cp)
}

func (r *MemoryAccountRepository) SaveBatch(ctx context.Context, accounts []*models.Account) error {
	for _, a := range accounts {
		if err := r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryAccountRepository) CreateIfAbsent(ctx context.Context, account *models.Account) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.UserID == account.UserID {
			return false, nil
		}
	}
	r.saveLocked(account)
	return true, nil
}

func (r *MemoryAccountRepository) ApplyBalanceChange(ctx context.Context, accountID uint, prevBalance, newBalance decimal.Decimal, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID != accountID {
			continue
		}
		if !a.Balance.Equal(prevBalance) {
			return false, nil
		}
		a.Balance = newBalance
		at := at
		a.LastTransaction = &at
		a.UpdatedAt = utils.UTCNow()
		return true, nil
	}
	return false, nil
}

func (r *MemoryAccountRepository) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, a := range r.accounts {
		if a.ArchivedAt != nil {
			continue
		}
		sum = sum.Add(a.Balance)
	}
	return sum, nil
}

func (r *MemoryAccountRepository) Archive(ctx context.Context, accountID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == accountID && a.ArchivedAt == nil {
			a.ArchivedAt = utils.UTCNowPtr()
			a.UpdatedAt = utils.UTCNow()
		}
	}
	return nil
}

func (r *MemoryAccountRepository) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Account
	for _, a := range r.accounts {
		if matchAccountFilter(a, filter) {
			cp := *a
			out = append(out, &cp)
		}
	}
	out = applyMemoryOrdering(out, orderBy)
	return applyMemoryPaging(out, limit, offset), nil
}

func (r *MemoryAccountRepository) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, a := range r.accounts {
		if matchAccountFilter(a, filter) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryAccountRepository) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func matchAccountFilter(a *models.Account, f models.AccountFilter) bool {
	if f.ID != nil && a.ID != *f.ID {
		return false
	}
	if f.UserID != nil && a.UserID != *f.UserID {
		return false
	}
	if f.Branch != nil && a.Branch != *f.Branch {
		return false
	}
	if !f.IncludeArchived && a.ArchivedAt != nil {
		return false
	}
	if f.CreatedAfter != nil && !a.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !a.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

// MemoryLedgerEntryRepository is a mutex-guarded in-memory LedgerEntryRepository
type MemoryLedgerEntryRepository struct {
	mu      sync.Mutex
	nextID  uint
	entries []*models.LedgerEntry
}

// NewMemoryLedgerEntryRepository creates an empty in-memory ledger repository
func NewMemoryLedgerEntryRepository() *MemoryLedgerEntryRepository {
	return &MemoryLedgerEntryRepository{}
}

func (r *MemoryLedgerEntryRepository) ByID(ctx context.Context, id uint) (*models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].ID == id {
			cp := *r.entries[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryLedgerEntryRepository) ByEntryID(ctx context.Context, entryID string) (*models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].EntryID == entryID {
			cp := *r.entries[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryLedgerEntryRepository) Save(ctx context.Context, entry *models.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	if entry.EntryID == "" {
		entry.EntryID = models.NewEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = utils.UTCNow()
	}
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MemoryLedgerEntryRepository) SaveBatch(ctx context.Context, entries []*models.LedgerEntry) error {
	for _, e := range entries {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryLedgerEntryRepository) ListRecentByAccount(ctx context.Context, accountID uint, since time.Time, limit int) ([]*models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.LedgerEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.AccountID != accountID || e.CreatedAt.Before(since) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryLedgerEntryRepository) SumSignedByAccount(ctx context.Context, accountID uint) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, e := range r.entries {
		if e.AccountID == accountID {
			sum = sum.Add(e.SignedAmount())
		}
	}
	return sum, nil
}

func (r *MemoryLedgerEntryRepository) ByFilter(ctx context.Context, filter models.LedgerEntryFilter, orderBy string, limit, offset int) ([]*models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range r.entries {
		if matchLedgerEntryFilter(e, filter) {
			cp := *e
			out = append(out, &cp)
		}
	}
	out = applyMemoryOrdering(out, orderBy)
	return applyMemoryPaging(out, limit, offset), nil
}

func (r *MemoryLedgerEntryRepository) Count(ctx context.Context, filter models.LedgerEntryFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, e := range r.entries {
		if matchLedgerEntryFilter(e, filter) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryLedgerEntryRepository) Exists(ctx context.Context, filter models.LedgerEntryFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func matchLedgerEntryFilter(e *models.LedgerEntry, f models.LedgerEntryFilter) bool {
	if f.EntryID != nil && e.EntryID != *f.EntryID {
		return false
	}
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if f.AccountID != nil && e.AccountID != *f.AccountID {
		return false
	}
	if f.Kind != nil && e.Kind != *f.Kind {
		return false
	}
	if f.CreatedAfter != nil && !e.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !e.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

// MemoryLoginEventRepository is a mutex-guarded in-memory LoginEventRepository
type MemoryLoginEventRepository struct {
	mu     sync.Mutex
	nextID uint
	events []*models.LoginEvent
}

// NewMemoryLoginEventRepository creates an empty in-memory login event repository
func NewMemoryLoginEventRepository() *MemoryLoginEventRepository {
	return &MemoryLoginEventRepository{}
}

func (r *MemoryLoginEventRepository) ByID(ctx context.Context, id uint) (*models.LoginEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].ID == id {
			cp := *r.events[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryLoginEventRepository) Save(ctx context.Context, event *models.LoginEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	event.ID = r.nextID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = utils.UTCNow()
	}
	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

func (r *MemoryLoginEventRepository) SaveBatch(ctx context.Context, events []*models.LoginEvent) error {
	for _, e := range events {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryLoginEventRepository) ExistsForUserSince(ctx context.Context, userID string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.UserID == userID && !e.LoginTime.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryLoginEventRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, e := range r.events {
		if !e.LoginTime.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryLoginEventRepository) ListActiveUserIDsSince(ctx context.Context, since time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range r.events {
		if e.LoginTime.Before(since) || seen[e.UserID] {
			continue
		}
		seen[e.UserID] = true
		out = append(out, e.UserID)
	}
	return out, nil
}

func (r *MemoryLoginEventRepository) MonthlyCounts(ctx context.Context, month string) ([]MonthlyLoginCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser := make(map[string]*MonthlyLoginCount)
	var order []string
	for _, e := range r.events {
		if e.Month != month {
			continue
		}
		row, ok := byUser[e.UserID]
		if !ok {
			row = &MonthlyLoginCount{UserID: e.UserID}
			byUser[e.UserID] = row
			order = append(order, e.UserID)
		}
		row.Count++
		if e.LoginTime.After(row.LastLogin) {
			row.LastLogin = e.LoginTime
		}
	}
	out := make([]MonthlyLoginCount, 0, len(order))
	for _, userID := range order {
		out = append(out, *byUser[userID])
	}
	return out, nil
}

func (r *MemoryLoginEventRepository) LastLoginsBefore(ctx context.Context, before time.Time) ([]UserLastLogin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser := make(map[string]time.Time)
	var order []string
	for _, e := range r.events {
		if !e.LoginTime.Before(before) {
			continue
		}
		last, ok := byUser[e.UserID]
		if !ok {
			order = append(order, e.UserID)
		}
		if !ok || e.LoginTime.After(last) {
			byUser[e.UserID] = e.LoginTime
		}
	}
	out := make([]UserLastLogin, 0, len(order))
	for _, userID := range order {
		out = append(out, UserLastLogin{UserID: userID, LastLogin: byUser[userID]})
	}
	return out, nil
}

func (r *MemoryLoginEventRepository) ByFilter(ctx context.Context, filter models.LoginEventFilter, orderBy string, limit, offset int) ([]*models.LoginEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.LoginEvent
	for _, e := range r.events {
		if matchLoginEventFilter(e, filter) {
			cp := *e
			out = append(out, &cp)
		}
	}
	out = applyMemoryOrdering(out, orderBy)
	return applyMemoryPaging(out, limit, offset), nil
}

func (r *MemoryLoginEventRepository) Count(ctx context.Context, filter models.LoginEventFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, e := range r.events {
		if matchLoginEventFilter(e, filter) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryLoginEventRepository) Exists(ctx context.Context, filter models.LoginEventFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func matchLoginEventFilter(e *models.LoginEvent, f models.LoginEventFilter) bool {
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if f.Month != nil && e.Month != *f.Month {
		return false
	}
	if f.LoginAfter != nil && !e.LoginTime.After(*f.LoginAfter) {
		return false
	}
	if f.LoginBefore != nil && !e.LoginTime.Before(*f.LoginBefore) {
		return false
	}
	return true
}

// MemorySequenceRepository is a mutex-guarded in-memory SequenceRepository.
// The mutex is the serialization point the Postgres implementation gets from
// the counter row.
type MemorySequenceRepository struct {
	mu     sync.Mutex
	users  UserRepository
	floor  int64
	seeded bool
	last   int64
}

// NewMemorySequenceRepository creates an in-memory sequence repository seeded
// lazily from users and floor, like its Postgres counterpart.
func NewMemorySequenceRepository(users UserRepository, floor int64) *MemorySequenceRepository {
	return &MemorySequenceRepository{users: users, floor: floor}
}

func (r *MemorySequenceRepository) AllocateNext(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.seeded {
		maxID, err := r.users.MaxNumericUserID(ctx)
		if err != nil {
			return 0, err
		}
		r.last = r.floor
		if maxID > r.last {
			r.last = maxID
		}
		r.seeded = true
	}
	r.last++
	return r.last, nil
}

func (r *MemorySequenceRepository) Current(ctx context.Context) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.seeded, nil
}

// memoryOrdered lets the shared ordering helper work across entity types.
type memoryOrdered interface {
	*models.User | *models.Account | *models.LedgerEntry | *models.LoginEvent
}

func applyMemoryOrdering[T memoryOrdered](items []T, orderBy string) []T {
	if strings.Contains(strings.ToUpper(orderBy), "DESC") {
		reversed := make([]T, len(items))
		for i, item := range items {
			reversed[len(items)-1-i] = item
		}
		return reversed
	}
	return items
}

func applyMemoryPaging[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Compile-time interface checks
var (
	_ UserRepository        = (*MemoryUserRepository)(nil)
	_ AccountRepository     = (*MemoryAccountRepository)(nil)
	_ LedgerEntryRepository = (*MemoryLedgerEntryRepository)(nil)
	_ LoginEventRepository  = (*MemoryLoginEventRepository)(nil)
	_ SequenceRepository    = (*MemorySequenceRepository)(nil)
)
