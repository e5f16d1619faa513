package persistence

import (
	"context"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDetailRepository implements DetailRepository using GORM
type GormDetailRepository struct {
	db *gorm.DB
}

// NewGormDetailRepository creates a new GormDetailRepository
func NewGormDetailRepository(db *gorm.DB) *GormDetailRepository {
	return &GormDetailRepository{db: db}
}

// FindByReception returns the lines of a reception in insertion order
func (r *GormDetailRepository) FindByReception(ctx context.Context, receptionID uuid.UUID) ([]reception.DetailLine, error) {
	var rows []models.ReceptionDetailModel
	if err := orderedDetails(r.db.WithContext(ctx)).
		Where("reception_id = ?", receptionID).
		Find(&rows).Error; err != nil {
		return nil, translateError(err, "Failed to load detail lines")
	}
	lines := make([]reception.DetailLine, len(rows))
	for i := range rows {
		lines[i] = *rows[i].ToDomain()
	}
	return lines, nil
}

// Create inserts a line
func (r *GormDetailRepository) Create(ctx context.Context, line *reception.DetailLine) error {
	if err := r.db.WithContext(ctx).Create(models.ReceptionDetailModelFromDomain(line)).Error; err != nil {
		return translateError(err, "Failed to insert detail line")
	}
	return nil
}

// Save updates the mutable columns of a line
func (r *GormDetailRepository) Save(ctx context.Context, line *reception.DetailLine) error {
	result := r.db.WithContext(ctx).
		Model(&models.ReceptionDetailModel{}).
		Where("id = ?", line.ID).
		Updates(map[string]interface{}{
			"received_quantity": line.ReceivedQuantity,
			"state":             line.State,
			"notes":             line.Notes,
			"updated_at":        line.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error, "Failed to update detail line")
	}
	if result.RowsAffected == 0 {
		return reception.ErrDetailNotFound(line.ID)
	}
	return nil
}

// Delete removes a line
func (r *GormDetailRepository) Delete(ctx context.Context, lineID uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ReceptionDetailModel{}, "id = ?", lineID)
	if result.Error != nil {
		return translateError(result.Error, "Failed to delete detail line")
	}
	if result.RowsAffected == 0 {
		return reception.ErrDetailNotFound(lineID)
	}
	return nil
}

// SetStateForReception moves every line of a reception to state
func (r *GormDetailRepository) SetStateForReception(ctx context.Context, receptionID uuid.UUID, state reception.LineState) error {
	if err := r.db.WithContext(ctx).
		Model(&models.ReceptionDetailModel{}).
		Where("reception_id = ?", receptionID).
		Updates(map[string]interface{}{
			"state":      state,
			"updated_at": shared.Now(),
		}).Error; err != nil {
		return translateError(err, "Failed to update detail line states")
	}
	return nil
}

// Ensure GormDetailRepository implements DetailRepository
var _ reception.DetailRepository = (*GormDetailRepository)(nil)
