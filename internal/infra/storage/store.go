package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"trade_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is the persistence boundary for accounts, holdings, orders and
// quotes. SQLite has no SELECT ... FOR UPDATE, so row-level update locks are
// provided by per-key in-process mutexes instead: callers that will mutate a
// quote must hold LockSymbol for its symbol, and callers that will move money
// must hold LockAccount for the owning user.
type Storage struct {
	db           *gorm.DB
	symbolLocks  keyedMutex
	accountLocks keyedMutex
}

// NewStorage opens (and migrates) the SQLite database at path.
func NewStorage(path string) (*Storage, error) {
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newStorage(db)
}

func newStorage(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(
		&domain.AccountProfile{},
		&domain.Account{},
		&domain.Holding{},
		&domain.Order{},
		&domain.Quote{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{
		db:           db,
		symbolLocks:  newKeyedMutex(),
		accountLocks: newKeyedMutex(),
	}, nil
}

// Transaction runs fn inside a single database transaction.
func (s *Storage) Transaction(fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}

// LockSymbol serializes price/volume mutations for one symbol. Returns the
// unlock function.
func (s *Storage) LockSymbol(symbol string) func() {
	return s.symbolLocks.lock(symbol)
}

// LockAccount serializes balance and holding mutations for one user.
func (s *Storage) LockAccount(userID string) func() {
	return s.accountLocks.lock(userID)
}

// conn picks the transaction handle when one is given.
func (s *Storage) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
