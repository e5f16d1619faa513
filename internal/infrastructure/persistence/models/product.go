package models

import (
	"time"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/google/uuid"
)

// ProductModel is the minimal local view of the external product store.
type ProductModel struct {
	BaseModel
	Code  string `gorm:"type:varchar(50);not null;uniqueIndex:idx_products_code"`
	Name  string `gorm:"type:varchar(200);not null"`
	Stock int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *reception.Product {
	return &reception.Product{
		ID:    m.ID,
		Code:  m.Code,
		Name:  m.Name,
		Stock: m.Stock,
	}
}

// StockMovementModel records one stock increase applied on acceptance.
type StockMovementModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ReceptionID uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity    int64     `gorm:"not null"`
	StockBefore int64     `gorm:"not null"`
	StockAfter  int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement.
func (m *StockMovementModel) ToDomain() *reception.StockMovement {
	return &reception.StockMovement{
		ID:          m.ID,
		ProductID:   m.ProductID,
		ReceptionID: m.ReceptionID,
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		CreatedAt:   m.CreatedAt,
	}
}
