package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and audit timestamps.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch refreshes UpdatedAt
func (e *BaseEntity) Touch() {
	e.UpdatedAt = Now()
}

// BaseAggregateRoot adds the optimistic-lock version. Repositories compare it
// on update and bump it when the write succeeds.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// NewBaseAggregateRoot returns a fresh root at version 1 with a new id.
func NewBaseAggregateRoot() BaseAggregateRoot {
	now := Now()
	return BaseAggregateRoot{
		BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Version:    1,
	}
}

// Now returns the current time in UTC. sqlite stores timestamps as text, so
// a single zone keeps their ordering right.
func Now() time.Time {
	return time.Now().UTC()
}
