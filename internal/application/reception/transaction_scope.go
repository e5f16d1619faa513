package reception

import (
	"context"

	"github.com/erp/reception/internal/domain/reception"
)

// TransactionScope runs workflow steps atomically.
// All repository operations inside fn share one database transaction and are
// committed or rolled back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to the current transaction
type TransactionalRepositories interface {
	// ReceptionRepo returns the reception header repository
	ReceptionRepo() reception.ReceptionRepository
	// DetailRepo returns the detail line repository
	DetailRepo() reception.DetailRepository
	// HistoryRepo returns the append-only audit trail
	HistoryRepo() reception.HistoryRepository
	// SequenceRepo returns the document number generator
	SequenceRepo() reception.SequenceGenerator
	// InventoryGateway returns the product stock gateway
	InventoryGateway() reception.InventoryGateway
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Used in unit tests with mocks, where atomicity is not under test.
type NoOpTransactionScope struct {
	receptions reception.ReceptionRepository
	details    reception.DetailRepository
	history    reception.HistoryRepository
	sequences  reception.SequenceGenerator
	inventory  reception.InventoryGateway
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	receptions reception.ReceptionRepository,
	details reception.DetailRepository,
	history reception.HistoryRepository,
	sequences reception.SequenceGenerator,
	inventory reception.InventoryGateway,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		receptions: receptions,
		details:    details,
		history:    history,
		sequences:  sequences,
		inventory:  inventory,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) ReceptionRepo() reception.ReceptionRepository { return s.receptions }
func (s *NoOpTransactionScope) DetailRepo() reception.DetailRepository       { return s.details }
func (s *NoOpTransactionScope) HistoryRepo() reception.HistoryRepository     { return s.history }
func (s *NoOpTransactionScope) SequenceRepo() reception.SequenceGenerator    { return s.sequences }
func (s *NoOpTransactionScope) InventoryGateway() reception.InventoryGateway { return s.inventory }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
