package reception

import (
	"context"
	"time"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/google/uuid"
)

// SearchCriteria narrows a reception search. Zero values are ignored.
type SearchCriteria struct {
	State            State
	SupplierID       uuid.UUID
	DocumentNumber   string
	PurchaseOrderRef string
	From             *time.Time
	To               *time.Time
}

// ReceptionRepository persists the reception header row
type ReceptionRepository interface {
	// FindByID loads a reception with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Reception, error)

	// FindByIDForUpdate loads a reception with its lines, holding an exclusive
	// row lock on the header until the enclosing transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Reception, error)

	// FindByNumber loads a reception by its document number
	FindByNumber(ctx context.Context, number string) (*Reception, error)

	// FindByState lists receptions in a state, newest first
	FindByState(ctx context.Context, state State, filter shared.Filter) ([]Reception, int64, error)

	// FindByDateRange lists receptions created in [from, to)
	FindByDateRange(ctx context.Context, from, to time.Time, filter shared.Filter) ([]Reception, int64, error)

	// Search lists receptions matching the criteria and the filter's free-text search
	Search(ctx context.Context, criteria SearchCriteria, filter shared.Filter) ([]Reception, int64, error)

	// Create inserts a new reception header
	Create(ctx context.Context, r *Reception) error

	// Save updates the header, failing on a version mismatch
	Save(ctx context.Context, r *Reception) error

	// Delete removes the reception; lines and history go by cascade
	Delete(ctx context.Context, id uuid.UUID) error
}

// DetailRepository persists detail lines
type DetailRepository interface {
	FindByReception(ctx context.Context, receptionID uuid.UUID) ([]DetailLine, error)
	Create(ctx context.Context, line *DetailLine) error
	Save(ctx context.Context, line *DetailLine) error
	Delete(ctx context.Context, lineID uuid.UUID) error

	// SetStateForReception moves every line of a reception to state
	SetStateForReception(ctx context.Context, receptionID uuid.UUID, state LineState) error
}

// HistoryRepository is the append-only audit trail
type HistoryRepository interface {
	// Append stores the entry, assigning the next position for its reception
	Append(ctx context.Context, entry *HistoryEntry) error

	// ListByReception returns entries in ascending position order
	ListByReception(ctx context.Context, receptionID uuid.UUID) ([]HistoryEntry, error)
}

// SequenceGenerator issues year-scoped document numbers
type SequenceGenerator interface {
	// Next increments the (prefix, year) counter under an exclusive row lock.
	// It must run inside the transaction that inserts the reception.
	Next(ctx context.Context, prefix string, year int) (DocumentNumber, error)
}

// InventoryGateway applies stock increases on the external product store
type InventoryGateway interface {
	FindByID(ctx context.Context, productID uuid.UUID) (*Product, error)

	// ApplyIncrease adds quantity to the product stock and records a movement.
	// An unknown product is a not-found error.
	ApplyIncrease(ctx context.Context, productID uuid.UUID, quantity int64, receptionID uuid.UUID) (*StockMovement, error)
}

// ReferenceResolver checks existence of supplier and user references
type ReferenceResolver interface {
	SupplierExists(ctx context.Context, id uuid.UUID) (bool, error)
	ResponsibleExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// StatisticsReader runs the aggregate queries behind the period report
type StatisticsReader interface {
	CountReceptions(ctx context.Context, p Period) (total int64, distinctSuppliers int64, err error)
	AcceptedSummary(ctx context.Context, p Period) (AcceptedSummary, error)
	SummarizeByState(ctx context.Context, p Period) ([]StateSummary, error)
	SummarizeBySupplier(ctx context.Context, p Period) ([]SupplierSummary, error)
	TopProducts(ctx context.Context, p Period, limit int) ([]ProductQuantity, error)
	DiscrepancyFigures(ctx context.Context, p Period) (DiscrepancyFigures, error)
}
