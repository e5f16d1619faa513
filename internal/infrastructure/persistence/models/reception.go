package models

import (
	"time"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ReceptionModel is the persistence model for the Reception aggregate root.
type ReceptionModel struct {
	AggregateModel
	DocumentNumber   string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_receptions_document_number"`
	SupplierID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	PurchaseOrderRef string          `gorm:"type:varchar(100)"`
	ResponsibleID    uuid.UUID       `gorm:"type:uuid;not null"`
	State            reception.State `gorm:"type:varchar(20);not null;default:'PENDIENTE';index"`
	Notes            string          `gorm:"type:text"`
	VerifiedAt       *time.Time
	FinalizedAt      *time.Time
	AnnulReason      string                 `gorm:"type:varchar(2000)"`
	AnnulledBy       *uuid.UUID             `gorm:"type:uuid"`
	Details          []ReceptionDetailModel `gorm:"foreignKey:ReceptionID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ReceptionModel) TableName() string {
	return "receptions"
}

// ToDomain converts the persistence model to a domain Reception.
func (m *ReceptionModel) ToDomain() *reception.Reception {
	r := &reception.Reception{
		BaseAggregateRoot: m.root(),
		DocumentNumber:    m.DocumentNumber,
		SupplierID:        m.SupplierID,
		PurchaseOrderRef:  m.PurchaseOrderRef,
		ResponsibleID:     m.ResponsibleID,
		State:             m.State,
		Notes:             m.Notes,
		VerifiedAt:        m.VerifiedAt,
		FinalizedAt:       m.FinalizedAt,
		AnnulReason:       m.AnnulReason,
		AnnulledBy:        m.AnnulledBy,
		Lines:             make([]reception.DetailLine, len(m.Details)),
	}
	for i := range m.Details {
		r.Lines[i] = *m.Details[i].ToDomain()
	}
	return r
}

// FromDomain populates the header columns from a domain Reception.
// Lines are persisted separately.
func (m *ReceptionModel) FromDomain(r *reception.Reception) {
	m.setRoot(r.BaseAggregateRoot)
	m.DocumentNumber = r.DocumentNumber
	m.SupplierID = r.SupplierID
	m.PurchaseOrderRef = r.PurchaseOrderRef
	m.ResponsibleID = r.ResponsibleID
	m.State = r.State
	m.Notes = r.Notes
	m.VerifiedAt = r.VerifiedAt
	m.FinalizedAt = r.FinalizedAt
	m.AnnulReason = r.AnnulReason
	m.AnnulledBy = r.AnnulledBy
}

// ReceptionModelFromDomain creates a new persistence model from a domain Reception.
func ReceptionModelFromDomain(r *reception.Reception) *ReceptionModel {
	m := &ReceptionModel{}
	m.FromDomain(r)
	return m
}

// ReceptionDetailModel is the persistence model for a DetailLine.
type ReceptionDetailModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	ReceptionID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpectedQuantity int       `gorm:"not null"`
	ReceivedQuantity *int
	UnitPrice        decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	State            reception.LineState `gorm:"type:varchar(20);not null;default:'PENDIENTE'"`
	Notes            string              `gorm:"type:text"`
	CreatedAt        time.Time           `gorm:"not null"`
	UpdatedAt        time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReceptionDetailModel) TableName() string {
	return "reception_details"
}

// ToDomain converts the persistence model to a domain DetailLine.
func (m *ReceptionDetailModel) ToDomain() *reception.DetailLine {
	return &reception.DetailLine{
		ID:               m.ID,
		ReceptionID:      m.ReceptionID,
		ProductID:        m.ProductID,
		ExpectedQuantity: m.ExpectedQuantity,
		ReceivedQuantity: m.ReceivedQuantity,
		UnitPrice:        m.UnitPrice,
		State:            m.State,
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// ReceptionDetailModelFromDomain creates a persistence model from a domain DetailLine.
func ReceptionDetailModelFromDomain(l *reception.DetailLine) *ReceptionDetailModel {
	return &ReceptionDetailModel{
		ID:               l.ID,
		ReceptionID:      l.ReceptionID,
		ProductID:        l.ProductID,
		ExpectedQuantity: l.ExpectedQuantity,
		ReceivedQuantity: l.ReceivedQuantity,
		UnitPrice:        l.UnitPrice,
		State:            l.State,
		Notes:            l.Notes,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

// ReceptionHistoryModel is the persistence model for a HistoryEntry. Rows are never updated.
type ReceptionHistoryModel struct {
	ID          uuid.UUID         `gorm:"type:uuid;primary_key"`
	ReceptionID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_reception_history_position,priority:1"`
	Position    int               `gorm:"not null;uniqueIndex:idx_reception_history_position,priority:2"`
	PriorState  string            `gorm:"type:varchar(20);not null;default:''"`
	NewState    string            `gorm:"type:varchar(20);not null"`
	OccurredAt  time.Time         `gorm:"not null"`
	ActorID     uuid.UUID         `gorm:"type:uuid;not null"`
	Reason      string            `gorm:"type:text"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (ReceptionHistoryModel) TableName() string {
	return "reception_history"
}

// ToDomain converts the persistence model to a domain HistoryEntry.
func (m *ReceptionHistoryModel) ToDomain() *reception.HistoryEntry {
	var meta map[string]any
	if len(m.Metadata) > 0 {
		meta = map[string]any(m.Metadata)
	}
	return &reception.HistoryEntry{
		ID:          m.ID,
		ReceptionID: m.ReceptionID,
		Position:    m.Position,
		PriorState:  reception.State(m.PriorState),
		NewState:    reception.State(m.NewState),
		OccurredAt:  m.OccurredAt,
		ActorID:     m.ActorID,
		Reason:      m.Reason,
		Metadata:    meta,
	}
}

// ReceptionHistoryModelFromDomain creates a persistence model from a domain HistoryEntry.
func ReceptionHistoryModelFromDomain(e *reception.HistoryEntry) *ReceptionHistoryModel {
	var meta datatypes.JSONMap
	if len(e.Metadata) > 0 {
		meta = datatypes.JSONMap(e.Metadata)
	}
	return &ReceptionHistoryModel{
		ID:          e.ID,
		ReceptionID: e.ReceptionID,
		Position:    e.Position,
		PriorState:  e.PriorState.String(),
		NewState:    e.NewState.String(),
		OccurredAt:  e.OccurredAt,
		ActorID:     e.ActorID,
		Reason:      e.Reason,
		Metadata:    meta,
	}
}

// ReceptionSequenceModel is the per (prefix, year) document number counter.
type ReceptionSequenceModel struct {
	Prefix    string    `gorm:"type:varchar(10);primaryKey"`
	Year      int       `gorm:"primaryKey;autoIncrement:false"`
	Value     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReceptionSequenceModel) TableName() string {
	return "reception_sequences"
}
