package models

import (
	"time"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel holds the id and timestamp columns every table has.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// AggregateModel adds the version column used for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func (m *AggregateModel) root() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Version:    m.Version,
	}
}

func (m *AggregateModel) setRoot(a shared.BaseAggregateRoot) {
	m.ID, m.CreatedAt, m.UpdatedAt = a.ID, a.CreatedAt, a.UpdatedAt
	m.Version = a.Version
}
