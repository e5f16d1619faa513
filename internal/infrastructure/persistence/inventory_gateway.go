package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryGateway applies stock increases to the products table
type GormInventoryGateway struct {
	db *gorm.DB
}

// NewGormInventoryGateway creates a new GormInventoryGateway
func NewGormInventoryGateway(db *gorm.DB) *GormInventoryGateway {
	return &GormInventoryGateway{db: db}
}

// FindByID finds a product by its ID
func (g *GormInventoryGateway) FindByID(ctx context.Context, productID uuid.UUID) (*reception.Product, error) {
	var model models.ProductModel
	if err := g.db.WithContext(ctx).First(&model, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reception.ErrProductNotFound(productID)
		}
		return nil, translateError(err, "Failed to load product")
	}
	return model.ToDomain(), nil
}

// ApplyIncrease adds quantity to the product stock in a single UPDATE and
// records the movement. A zero quantity only checks that the product exists
// and returns a nil movement.
func (g *GormInventoryGateway) ApplyIncrease(ctx context.Context, productID uuid.UUID, quantity int64, receptionID uuid.UUID) (*reception.StockMovement, error) {
	if quantity < 0 {
		return nil, shared.NewValidationError(reception.CodeInvalidQuantity,
			fmt.Sprintf("Stock increase cannot be negative, got %d", quantity))
	}
	if quantity == 0 {
		if _, err := g.FindByID(ctx, productID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	db := g.db.WithContext(ctx)
	now := shared.Now()
	result := db.Model(&models.ProductModel{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", quantity),
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, translateError(result.Error, "Failed to increase product stock")
	}
	if result.RowsAffected == 0 {
		return nil, reception.ErrProductNotFound(productID)
	}

	// the updated row stays locked until commit, so this read sees our own write
	var product models.ProductModel
	if err := db.Select("id", "stock").First(&product, "id = ?", productID).Error; err != nil {
		return nil, translateError(err, "Failed to read product stock")
	}

	movement := &models.StockMovementModel{
		ID:          uuid.New(),
		ProductID:   productID,
		ReceptionID: receptionID,
		Quantity:    quantity,
		StockBefore: product.Stock - quantity,
		StockAfter:  product.Stock,
		CreatedAt:   now,
	}
	if err := db.Create(movement).Error; err != nil {
		return nil, translateError(err, "Failed to record stock movement")
	}
	return movement.ToDomain(), nil
}

// MovementsByReception lists the stock movements written for a reception
func (g *GormInventoryGateway) MovementsByReception(ctx context.Context, receptionID uuid.UUID) ([]reception.StockMovement, error) {
	var rows []models.StockMovementModel
	if err := g.db.WithContext(ctx).
		Where("reception_id = ?", receptionID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err, "Failed to load stock movements")
	}
	out := make([]reception.StockMovement, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Ensure GormInventoryGateway implements InventoryGateway
var _ reception.InventoryGateway = (*GormInventoryGateway)(nil)
