package persistence

import (
	"context"

	appreception "github.com/erp/reception/internal/application/reception"
	"github.com/erp/reception/internal/domain/reception"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appreception.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	return translateError(err, "Transaction failed")
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ReceptionRepo returns the reception repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ReceptionRepo() reception.ReceptionRepository {
	return NewGormReceptionRepository(r.tx)
}

// DetailRepo returns the detail line repository scoped to the current transaction.
func (r *gormTransactionalRepositories) DetailRepo() reception.DetailRepository {
	return NewGormDetailRepository(r.tx)
}

// HistoryRepo returns the audit trail scoped to the current transaction.
func (r *gormTransactionalRepositories) HistoryRepo() reception.HistoryRepository {
	return NewGormHistoryRepository(r.tx)
}

// SequenceRepo returns the document number generator scoped to the current transaction.
func (r *gormTransactionalRepositories) SequenceRepo() reception.SequenceGenerator {
	return NewGormSequenceGenerator(r.tx)
}

// InventoryGateway returns the product stock gateway scoped to the current transaction.
func (r *gormTransactionalRepositories) InventoryGateway() reception.InventoryGateway {
	return NewGormInventoryGateway(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appreception.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appreception.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
