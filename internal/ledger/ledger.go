package ledger

import (
	"errors"
	"time"

	"party_credits/internal/domain" // Importing domain models
	"party_credits/internal/utils"  // Password helpers

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Service owns every mutation of accounts and the transaction log. Handlers
// never touch balances directly.
type Service struct {
	db *gorm.DB
}

// New creates a ledger service over the given database handle
func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Account returns the account for a username
func (s *Service) Account(username string) (*domain.Account, error) {
	var account domain.Account
	if err := s.db.Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// OtherUsernames lists every username except the given one
func (s *Service) OtherUsernames(excluding string) ([]string, error) {
	var usernames []string
	err := s.db.Model(&domain.Account{}).
		Where("username != ?", excluding).
		Order("username asc").
		Pluck("username", &usernames).Error
	if err != nil {
		return nil, err
	}
	return usernames, nil
}

// Transfer moves credits from sender to receiver and appends one transaction
// record. The caller is already authenticated; the password parameter is a
// step-up proof required again for every fund movement.
//
// Debit, credit, and log append commit or roll back as one unit. The debit
// carries a balance >= amount guard re-checked by the database at commit
// time, so two transfers racing past the read below cannot overdraw.
func (s *Service) Transfer(sender, receiver string, amount int64, password string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if sender == receiver {
		return nil, ErrSelfTransfer
	}

	var record domain.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var from domain.Account
		if err := tx.Where("username = ?", sender).First(&from).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownSender
			}
			return err
		}
		// Step-up credential proof, checked before any mutation
		if !utils.CheckPassword(from.Password, password) {
			return ErrAuthenticationFailed
		}
		if from.Balance < amount {
			return ErrInsufficientFunds
		}
		var to domain.Account
		if err := tx.Where("username = ?", receiver).First(&to).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownReceiver
			}
			return err
		}
		// Guarded debit: zero rows means a concurrent transfer spent the
		// balance first
		debit := tx.Model(&domain.Account{}).
			Where("username = ? AND balance >= ?", sender, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if debit.Error != nil {
			return debit.Error
		}
		if debit.RowsAffected == 0 {
			return ErrInsufficientFunds
		}
		credit := tx.Model(&domain.Account{}).
			Where("username = ?", receiver).
			Update("balance", gorm.Expr("balance + ?", amount))
		if credit.Error != nil {
			return credit.Error
		}
		if credit.RowsAffected == 0 {
			return ErrUnknownReceiver
		}
		record = domain.Transaction{Sender: sender, Receiver: receiver, Amount: amount}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	// Log successful transfer
	logrus.WithFields(logrus.Fields{
		"sender":    sender,                          // Sender username
		"receiver":  receiver,                        // Receiver username
		"amount":    amount,                          // Transferred credits
		"tx_id":     record.ID,                       // Transaction record ID
		"timestamp": time.Now().Format(time.RFC3339), // Current timestamp
	}).Info("Transfer completed")
	return &record, nil
}

// CreateAccount provisions a new account with a hashed credential and the
// given starting balance
func (s *Service) CreateAccount(username, password string, startingBalance int64) (*domain.Account, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := domain.Account{
		Username: username,        // Unique username
		Password: hash,            // Bcrypt hash, never the plaintext
		Balance:  startingBalance, // Configured starting balance
	}
	if err := s.db.Create(&account).Error; err != nil {
		// Requires TranslateError on the gorm.Config so driver unique-index
		// violations surface as gorm.ErrDuplicatedKey
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return &account, nil
}

// SetRole changes an account's role
func (s *Service) SetRole(username, role string) error {
	res := s.db.Model(&domain.Account{}).
		Where("username = ?", username).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAccount removes an account by username
func (s *Service) DeleteAccount(username string) error {
	res := s.db.Where("username = ?", username).Delete(&domain.Account{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustBalance applies a signed delta to an account's balance. This is the
// out-of-band administrative path: it may push a balance negative and it
// does not append a transaction record.
func (s *Service) AdjustBalance(username string, delta int64) error {
	res := s.db.Model(&domain.Account{}).
		Where("username = ?", username).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	// Log administrative mutation; note there is no audit-trail record
	logrus.WithFields(logrus.Fields{
		"username": username, // Target account
		"delta":    delta,    // Signed adjustment
	}).Info("Admin balance adjustment")
	return nil
}

// SetBalance overwrites an account's balance with an absolute value. Same
// administrative caveats as AdjustBalance.
func (s *Service) SetBalance(username string, balance int64) error {
	res := s.db.Model(&domain.Account{}).
		Where("username = ?", username).
		Update("balance", balance)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	logrus.WithFields(logrus.Fields{
		"username": username, // Target account
		"balance":  balance,  // New absolute balance
	}).Info("Admin balance set")
	return nil
}

// Leaderboard returns all accounts ordered by balance descending
func (s *Service) Leaderboard() ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	err := s.db.Model(&domain.Account{}).
		Select("username", "balance").
		Order("balance desc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// TransactionFilter narrows the administrative transaction listing
type TransactionFilter struct {
	Username string // Match sender or receiver
	From     string // Created at or after (inclusive)
	To       string // Created at or before (inclusive)
}

// Transactions returns a page of the audit trail, newest first, with the
// total row count for pagination. Read-only: nothing ever mutates or
// deletes a transaction record.
func (s *Service) Transactions(filter TransactionFilter, page, pageSize int) ([]domain.Transaction, int64, error) {
	query := s.db.Model(&domain.Transaction{})
	if filter.Username != "" {
		query = query.Where("sender = ? OR receiver = ?", filter.Username, filter.Username)
	}
	if filter.From != "" {
		query = query.Where("created_at >= ?", filter.From)
	}
	if filter.To != "" {
		query = query.Where("created_at <= ?", filter.To)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []domain.Transaction
	offset := (page - 1) * pageSize
	if err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}
