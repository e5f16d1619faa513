package reception

import (
	"time"

	"github.com/google/uuid"
)

// Product is the minimal view of the external product store
type Product struct {
	ID    uuid.UUID
	Code  string
	Name  string
	Stock int64
}

// StockMovement is the evidence row written for every stock increase
type StockMovement struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	ReceptionID uuid.UUID
	Quantity    int64
	StockBefore int64
	StockAfter  int64
	CreatedAt   time.Time
}
