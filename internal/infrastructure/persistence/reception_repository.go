package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReceptionRepository implements ReceptionRepository using GORM
type GormReceptionRepository struct {
	db *gorm.DB
}

// NewGormReceptionRepository creates a new GormReceptionRepository
func NewGormReceptionRepository(db *gorm.DB) *GormReceptionRepository {
	return &GormReceptionRepository{db: db}
}

func orderedDetails(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// FindByID finds a reception with its lines
func (r *GormReceptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*reception.Reception, error) {
	var model models.ReceptionModel
	if err := r.db.WithContext(ctx).
		Preload("Details", orderedDetails).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reception.ErrReceptionNotFound(id)
		}
		return nil, translateError(err, "Failed to load reception")
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a reception and holds SELECT ... FOR UPDATE on its row
func (r *GormReceptionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*reception.Reception, error) {
	var model models.ReceptionModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reception.ErrReceptionNotFound(id)
		}
		return nil, translateError(err, "Failed to lock reception")
	}

	// lines are read after the header lock is held
	var details []models.ReceptionDetailModel
	if err := orderedDetails(r.db.WithContext(ctx)).
		Where("reception_id = ?", id).
		Find(&details).Error; err != nil {
		return nil, translateError(err, "Failed to load detail lines")
	}
	model.Details = details
	return model.ToDomain(), nil
}

// FindByNumber finds a reception by document number
func (r *GormReceptionRepository) FindByNumber(ctx context.Context, number string) (*reception.Reception, error) {
	var model models.ReceptionModel
	if err := r.db.WithContext(ctx).
		Preload("Details", orderedDetails).
		Where("document_number = ?", strings.TrimSpace(number)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reception.ErrReceptionNumberNotFound(number)
		}
		return nil, translateError(err, "Failed to load reception")
	}
	return model.ToDomain(), nil
}

// FindByState lists receptions in a state
func (r *GormReceptionRepository) FindByState(ctx context.Context, state reception.State, filter shared.Filter) ([]reception.Reception, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReceptionModel{}).Where("state = ?", state)
	return r.page(query, filter)
}

// FindByDateRange lists receptions created in [from, to)
func (r *GormReceptionRepository) FindByDateRange(ctx context.Context, from, to time.Time, filter shared.Filter) ([]reception.Reception, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReceptionModel{}).
		Where("created_at >= ? AND created_at < ?", from, to)
	return r.page(query, filter)
}

// Search lists receptions matching the criteria
func (r *GormReceptionRepository) Search(ctx context.Context, criteria reception.SearchCriteria, filter shared.Filter) ([]reception.Reception, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReceptionModel{})
	if criteria.State != "" {
		query = query.Where("state = ?", criteria.State)
	}
	if criteria.SupplierID != uuid.Nil {
		query = query.Where("supplier_id = ?", criteria.SupplierID)
	}
	if criteria.DocumentNumber != "" {
		query = query.Where("document_number LIKE ?", "%"+strings.ToUpper(strings.TrimSpace(criteria.DocumentNumber))+"%")
	}
	if criteria.PurchaseOrderRef != "" {
		query = query.Where("LOWER(purchase_order_ref) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(criteria.PurchaseOrderRef))+"%")
	}
	if criteria.From != nil {
		query = query.Where("created_at >= ?", criteria.From.UTC())
	}
	if criteria.To != nil {
		query = query.Where("created_at < ?", criteria.To.UTC())
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(document_number) LIKE ? OR LOWER(purchase_order_ref) LIKE ? OR LOWER(notes) LIKE ?", like, like, like)
	}
	return r.page(query, filter)
}

// page counts the matches and loads the requested page without lines
func (r *GormReceptionRepository) page(query *gorm.DB, filter shared.Filter) ([]reception.Reception, int64, error) {
	filter = filter.Normalize()

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "Failed to count receptions")
	}

	var rows []models.ReceptionModel
	if err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, ReceptionSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translateError(err, "Failed to list receptions")
	}

	out := make([]reception.Reception, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Create inserts the reception header. Lines are inserted by the detail repository.
func (r *GormReceptionRepository) Create(ctx context.Context, rec *reception.Reception) error {
	model := models.ReceptionModelFromDomain(rec)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		return translateError(err, "Failed to insert reception")
	}
	return nil
}

// Save updates the header with optimistic locking on version
func (r *GormReceptionRepository) Save(ctx context.Context, rec *reception.Reception) error {
	result := r.db.WithContext(ctx).
		Model(&models.ReceptionModel{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(map[string]interface{}{
			"state":              rec.State,
			"notes":              rec.Notes,
			"purchase_order_ref": rec.PurchaseOrderRef,
			"verified_at":        rec.VerifiedAt,
			"finalized_at":       rec.FinalizedAt,
			"annul_reason":       rec.AnnulReason,
			"annulled_by":        rec.AnnulledBy,
			"version":            rec.Version + 1,
			"updated_at":         rec.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error, "Failed to update reception")
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	rec.Version++
	return nil
}

// Delete removes the reception with its lines and history
func (r *GormReceptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("reception_id = ?", id).Delete(&models.ReceptionDetailModel{}).Error; err != nil {
		return translateError(err, "Failed to delete detail lines")
	}
	if err := db.Where("reception_id = ?", id).Delete(&models.ReceptionHistoryModel{}).Error; err != nil {
		return translateError(err, "Failed to delete history")
	}
	result := db.Delete(&models.ReceptionModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error, "Failed to delete reception")
	}
	if result.RowsAffected == 0 {
		return reception.ErrReceptionNotFound(id)
	}
	return nil
}

// Ensure GormReceptionRepository implements ReceptionRepository
var _ reception.ReceptionRepository = (*GormReceptionRepository)(nil)
