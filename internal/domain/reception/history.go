package reception

import (
	"time"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/google/uuid"
)

// HistoryEntry is an immutable record of one state transition.
// Position is assigned by the audit trail on append and orders entries per reception.
type HistoryEntry struct {
	ID          uuid.UUID
	ReceptionID uuid.UUID
	Position    int
	PriorState  State
	NewState    State
	OccurredAt  time.Time
	ActorID     uuid.UUID
	Reason      string
	Metadata    map[string]any
}

// NewHistoryEntry builds an entry stamped with the current time.
// PriorState is empty for the creation entry.
func NewHistoryEntry(receptionID uuid.UUID, prior, next State, actor uuid.UUID, reason string) *HistoryEntry {
	return &HistoryEntry{
		ID:          uuid.New(),
		ReceptionID: receptionID,
		PriorState:  prior,
		NewState:    next,
		OccurredAt:  shared.Now(),
		ActorID:     actor,
		Reason:      reason,
	}
}

// IsCreation reports whether the entry records the creation of the reception
func (h *HistoryEntry) IsCreation() bool {
	return h.PriorState == ""
}
