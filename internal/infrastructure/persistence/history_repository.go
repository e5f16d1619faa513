package persistence

import (
	"context"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormHistoryRepository implements the append-only audit trail using GORM
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates a new GormHistoryRepository
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

// Append inserts the entry at the next position of its reception.
// Callers hold the reception row lock, so MAX(position) is stable; the unique
// (reception_id, position) index rejects anything that slips through.
func (r *GormHistoryRepository) Append(ctx context.Context, entry *reception.HistoryEntry) error {
	var last struct {
		Position int
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ReceptionHistoryModel{}).
		Select("COALESCE(MAX(position), 0) AS position").
		Where("reception_id = ?", entry.ReceptionID).
		Scan(&last).Error; err != nil {
		return translateError(err, "Failed to read history position")
	}

	entry.Position = last.Position + 1
	if err := r.db.WithContext(ctx).Create(models.ReceptionHistoryModelFromDomain(entry)).Error; err != nil {
		return translateError(err, "Failed to append history entry")
	}
	return nil
}

// ListByReception returns entries in ascending position order
func (r *GormHistoryRepository) ListByReception(ctx context.Context, receptionID uuid.UUID) ([]reception.HistoryEntry, error) {
	var rows []models.ReceptionHistoryModel
	if err := r.db.WithContext(ctx).
		Where("reception_id = ?", receptionID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err, "Failed to load history")
	}
	entries := make([]reception.HistoryEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

// Ensure GormHistoryRepository implements HistoryRepository
var _ reception.HistoryRepository = (*GormHistoryRepository)(nil)
