package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ledgerdesk/ledgerdesk/app/dto"
	"github.com/ledgerdesk/ledgerdesk/app/services"
	"github.com/ledgerdesk/ledgerdesk/config"
	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/repository"
	"github.com/ledgerdesk/ledgerdesk/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// errBalanceChanged aborts an attempt whose balance snapshot went stale before
// the conditional update landed. The transaction is rolled back, so nothing is
// visible yet and the attempt may be retried.
var errBalanceChanged = errors.New("balance snapshot went stale")

// TransactionFlow posts balance changes and serves account projections
type TransactionFlow interface {
	PostTransaction(ctx context.Context, req *dto.PostTransactionRequest, metadata *ClientMetadata) (*dto.TransactionReceiptResponse, error)
	GetAccount(ctx context.Context, userID string) (*dto.GetAccountResponse, error)
	ListRecentTransactions(ctx context.Context, userID string) (*dto.ListTransactionsResponse, error)
}

// TransactionFlowImpl implements the transaction engine
type TransactionFlowImpl struct {
	userRepo        repository.UserRepository
	accountRepo     repository.AccountRepository
	ledgerRepo      repository.LedgerEntryRepository
	notificationSvc services.NotificationService
	publisher       services.EventPublisher
	rc              *redis.Client
	cacheCfg        *config.CacheConfig
	db              *gorm.DB
}

// NewTransactionFlow creates a new transaction flow
func NewTransactionFlow(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	ledgerRepo repository.LedgerEntryRepository,
	notificationSvc services.NotificationService,
	publisher services.EventPublisher,
	rc *redis.Client,
	cacheCfg *config.CacheConfig,
	db *gorm.DB,
) TransactionFlow {
	return &TransactionFlowImpl{
		userRepo:        userRepo,
		accountRepo:     accountRepo,
		ledgerRepo:      ledgerRepo,
		notificationSvc: notificationSvc,
		publisher:       publisher,
		rc:              rc,
		cacheCfg:        cacheCfg,
		db:              db,
	}
}

func (s *TransactionFlowImpl) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.db == nil {
		return fn(ctx)
	}
	return repository.WithTransaction(ctx, s.db, fn)
}

// PostTransaction applies one balance change and appends the matching ledger
// entry as a single unit: either both become visible or neither does.
// Decreases that would take the balance below zero are rejected. Concurrent
// writers against the same account are serialized by the row lock; the
// balance-guarded update backstops stores without row locks, and a stale
// snapshot is retried a bounded number of times before the whole attempt
// rolls back.
func (s *TransactionFlowImpl) PostTransaction(ctx context.Context, req *dto.PostTransactionRequest, metadata *ClientMetadata) (*dto.TransactionReceiptResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !models.ValidEntryKind(req.Kind) {
		return nil, ErrInvalidEntryKind
	}

	var entry *models.LedgerEntry
	var newBalance decimal.Decimal
	var postedAt time.Time

	var err error
	for attempt := 0; attempt < utils.TransactionMaxRetries; attempt++ {
		err = s.withTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.ByUserIDForUpdate(ctx, req.UserID)
			if err != nil {
				return err
			}
			if account == nil {
				user, err := s.userRepo.ByUserID(ctx, req.UserID)
				if err != nil {
					return err
				}
				if user == nil {
					return ErrUserNotFound
				}
				return ErrAccountNotFound
			}
			if account.IsArchived() {
				return ErrAccountArchived
			}

			prev := account.Balance
			switch req.Kind {
			case models.EntryKindIncrease:
				newBalance = prev.Add(req.Amount)
			case models.EntryKindDecrease:
				if !account.CanCover(req.Amount) {
					return ErrInsufficientFunds
				}
				newBalance = prev.Sub(req.Amount)
			}

			postedAt = utils.UTCNow()
			applied, err := s.accountRepo.ApplyBalanceChange(ctx, account.ID, prev, newBalance, postedAt)
			if err != nil {
				return err
			}
			if !applied {
				return errBalanceChanged
			}

			entry = &models.LedgerEntry{
				UserID:    req.UserID,
				AccountID: account.ID,
				Amount:    req.Amount,
				Kind:      req.Kind,
				CreatedAt: postedAt,
			}
			if entry.EntryID == "" {
				entry.EntryID = models.NewEntryID()
			}

			return s.ledgerRepo.Save(ctx, entry)
		})
		if !errors.Is(err, errBalanceChanged) {
			break
		}
	}
	if errors.Is(err, errBalanceChanged) {
		return nil, NewBusinessError("BALANCE_CONFLICT", "Transaction aborted after concurrent balance changes", ErrBalanceConflict)
	}
	if err != nil {
		if IsUserNotFound(err) || IsAccountNotFound(err) || IsAccountArchived(err) || IsInsufficientFunds(err) {
			return nil, err
		}
		return nil, NewBusinessError("TRANSACTION_FAILED", "Failed to post transaction", err)
	}

	// Side effects run after commit and never fail the operation
	s.invalidateRecentCache(ctx, req.UserID)
	go s.notifyPosted(*entry, newBalance)

	return &dto.TransactionReceiptResponse{
		Entry:      ToLedgerEntryDTO(*entry),
		NewBalance: newBalance,
		PostedAt:   postedAt.Format(time.RFC3339),
	}, nil
}

func (s *TransactionFlowImpl) notifyPosted(entry models.LedgerEntry, newBalance decimal.Decimal) {
	if s.publisher != nil {
		event := services.TransactionPostedEvent{
			EntryID:    entry.EntryID,
			UserID:     entry.UserID,
			Kind:       entry.Kind,
			Amount:     entry.Amount,
			NewBalance: newBalance,
			PostedAt:   entry.CreatedAt,
		}
		if err := s.publisher.Publish(context.Background(), entry.UserID, event); err != nil {
			log.Printf("Failed to publish transaction event %s: %v", entry.EntryID, err)
		}
	}

	if s.notificationSvc != nil {
		user, err := s.userRepo.ByUserID(context.Background(), entry.UserID)
		if err != nil || user == nil {
			return
		}
		subject := fmt.Sprintf("Transaction receipt %s", entry.EntryID)
		message := fmt.Sprintf("Hello %s,\n\nA %s of %s was posted to your account.\nNew balance: %s\nReference: %s", user.FullName(), entry.Kind, entry.Amount.StringFixed(2), newBalance.StringFixed(2), entry.EntryID)
		if err := s.notificationSvc.SendEmail(user.Email, subject, message); err != nil {
			log.Printf("Failed to send receipt email for %s: %v", entry.EntryID, err)
		}
	}
}

// GetAccount returns the account projection for one customer: balance, branch
// and recent ledger entries.
func (s *TransactionFlowImpl) GetAccount(ctx context.Context, userID string) (*dto.GetAccountResponse, error) {
	user, err := s.userRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to lookup user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	account, err := s.accountRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to lookup account", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	recent, err := s.recentEntries(ctx, account)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to load recent transactions", err)
	}

	return &dto.GetAccountResponse{
		Account:            ToAccountDTO(*account),
		Owner:              utils.ToPtr(ToUserDTO(*user)),
		RecentTransactions: recent,
	}, nil
}

// ListRecentTransactions lists the account's ledger entries inside the recent
// window, newest first.
func (s *TransactionFlowImpl) ListRecentTransactions(ctx context.Context, userID string) (*dto.ListTransactionsResponse, error) {
	account, err := s.accountRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("TRANSACTION_LIST_FAILED", "Failed to lookup account", err)
	}
	if account == nil {
		user, err := s.userRepo.ByUserID(ctx, userID)
		if err != nil {
			return nil, NewBusinessError("TRANSACTION_LIST_FAILED", "Failed to lookup user", err)
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		return nil, ErrAccountNotFound
	}

	entries, err := s.recentEntries(ctx, account)
	if err != nil {
		return nil, NewBusinessError("TRANSACTION_LIST_FAILED", "Failed to load recent transactions", err)
	}

	return &dto.ListTransactionsResponse{
		UserID:  userID,
		Entries: entries,
		Count:   len(entries),
	}, nil
}

// recentEntries serves the recent window through a short-lived cache so the
// admin dashboards polling account views do not hammer the ledger table.
// Cache failures fall through to the store and never fail the request.
func (s *TransactionFlowImpl) recentEntries(ctx context.Context, account *models.Account) ([]dto.LedgerEntryDTO, error) {
	key := s.recentCacheKey(account.UserID)

	if s.rc != nil {
		if bs, err := s.rc.Get(ctx, key).Bytes(); err == nil && len(bs) > 0 {
			var cached []dto.LedgerEntryDTO
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	since := utils.UTCNow().Add(-utils.RecentTransactionsWindow)
	entries, err := s.ledgerRepo.ListRecentByAccount(ctx, account.ID, since, utils.RecentTransactionsLimit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.LedgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToLedgerEntryDTO(*e))
	}

	if s.rc != nil {
		if bs, err := json.Marshal(out); err == nil {
			_ = s.rc.Set(ctx, key, bs, utils.RecentTransactionsCacheTTL).Err()
		}
	}

	return out, nil
}

func (s *TransactionFlowImpl) invalidateRecentCache(ctx context.Context, userID string) {
	if s.rc == nil {
		return
	}
	if err := s.rc.Del(ctx, s.recentCacheKey(userID)).Err(); err != nil {
		log.Printf("Failed to invalidate recent transactions cache for user %s: %v", utils.MaskUserID(userID), err)
	}
}

func (s *TransactionFlowImpl) recentCacheKey(userID string) string {
	prefix := "ledgerdesk"
	if s.cacheCfg != nil && s.cacheCfg.RedisPrefix != "" {
		prefix = s.cacheCfg.RedisPrefix
	}
	return fmt.Sprintf("%s:recent_tx:%s", prefix, userID)
}
