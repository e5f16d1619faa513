package reception

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DetailLine is one product line within a reception
type DetailLine struct {
	ID               uuid.UUID
	ReceptionID      uuid.UUID
	ProductID        uuid.UUID
	ExpectedQuantity int
	ReceivedQuantity *int
	UnitPrice        decimal.Decimal
	State            LineState
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewDetailLine creates a pending line after validating quantity and price
func NewDetailLine(receptionID, productID uuid.UUID, expectedQty int, unitPrice decimal.Decimal, notes string) (*DetailLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError(CodeProductRequired, "Product ID cannot be empty")
	}
	if expectedQty <= 0 {
		return nil, shared.NewValidationError(CodeInvalidQuantity,
			fmt.Sprintf("Expected quantity must be positive, got %d", expectedQty))
	}
	if !unitPrice.IsPositive() {
		return nil, shared.NewValidationError(CodeInvalidPrice,
			fmt.Sprintf("Unit price must be positive, got %s", unitPrice.String()))
	}

	now := shared.Now()
	return &DetailLine{
		ID:               uuid.New(),
		ReceptionID:      receptionID,
		ProductID:        productID,
		ExpectedQuantity: expectedQty,
		UnitPrice:        unitPrice,
		State:            LineStatePending,
		Notes:            strings.TrimSpace(notes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// HasReceived reports whether the received quantity has been captured
func (l *DetailLine) HasReceived() bool {
	return l.ReceivedQuantity != nil
}

// Received returns the received quantity, or 0 when unset
func (l *DetailLine) Received() int {
	if l.ReceivedQuantity == nil {
		return 0
	}
	return *l.ReceivedQuantity
}

// RecordReceived captures the received quantity once.
// Rewrites must go through Correct.
func (l *DetailLine) RecordReceived(qty int, notes string) error {
	if qty < 0 {
		return shared.NewValidationError(CodeInvalidQuantity,
			fmt.Sprintf("Received quantity cannot be negative, got %d", qty))
	}
	if l.HasReceived() {
		return shared.NewValidationError(CodeReceivedAlreadySet,
			fmt.Sprintf("Detail line %s already has a received quantity of %d; use a correction", l.ID, *l.ReceivedQuantity))
	}
	l.ReceivedQuantity = &qty
	if n := strings.TrimSpace(notes); n != "" {
		l.Notes = n
	}
	l.UpdatedAt = shared.Now()
	return nil
}

// Correct rewrites the received quantity and appends the reason to the notes
func (l *DetailLine) Correct(qty int, reason string) error {
	if qty < 0 {
		return shared.NewValidationError(CodeInvalidQuantity,
			fmt.Sprintf("Received quantity cannot be negative, got %d", qty))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError(CodeReasonRequired, "A correction requires a reason")
	}
	previous := "unset"
	if l.HasReceived() {
		previous = fmt.Sprintf("%d", *l.ReceivedQuantity)
	}
	note := fmt.Sprintf("correction %s -> %d: %s", previous, qty, reason)
	if l.Notes == "" {
		l.Notes = note
	} else {
		l.Notes = l.Notes + "; " + note
	}
	l.ReceivedQuantity = &qty
	l.UpdatedAt = shared.Now()
	return nil
}

// MarkAccepted sets the line state after stock was applied
func (l *DetailLine) MarkAccepted() {
	l.State = LineStateAccepted
	l.UpdatedAt = shared.Now()
}

// MarkRejected sets the line state when the reception is rejected
func (l *DetailLine) MarkRejected() {
	l.State = LineStateRejected
	l.UpdatedAt = shared.Now()
}

// Total is received × price when received is set, expected × price otherwise
func (l *DetailLine) Total() decimal.Decimal {
	qty := l.ExpectedQuantity
	if l.HasReceived() {
		qty = *l.ReceivedQuantity
	}
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// ExpectedTotal is expected × price
func (l *DetailLine) ExpectedTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.ExpectedQuantity)))
}

// Difference is received − expected, or 0 while received is unset
func (l *DetailLine) Difference() int {
	if !l.HasReceived() {
		return 0
	}
	return *l.ReceivedQuantity - l.ExpectedQuantity
}

// Variance is |received − expected| × price
func (l *DetailLine) Variance() decimal.Decimal {
	diff := l.Difference()
	if diff < 0 {
		diff = -diff
	}
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(diff)))
}

// HasDiscrepancy reports received ≠ expected once received is set
func (l *DetailLine) HasDiscrepancy() bool {
	return l.HasReceived() && *l.ReceivedQuantity != l.ExpectedQuantity
}

// CopyAsPending returns a fresh pending line for another reception.
// The received quantity is not carried over.
func (l *DetailLine) CopyAsPending(targetReceptionID uuid.UUID) (*DetailLine, error) {
	return NewDetailLine(targetReceptionID, l.ProductID, l.ExpectedQuantity, l.UnitPrice, l.Notes)
}
