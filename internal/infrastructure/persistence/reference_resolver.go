package persistence

import (
	"context"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReferenceResolver checks supplier and user references against local tables
type GormReferenceResolver struct {
	db *gorm.DB
}

// NewGormReferenceResolver creates a new GormReferenceResolver
func NewGormReferenceResolver(db *gorm.DB) *GormReferenceResolver {
	return &GormReferenceResolver{db: db}
}

// SupplierExists reports whether the supplier is known
func (r *GormReferenceResolver) SupplierExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, &models.SupplierModel{}, id)
}

// ResponsibleExists reports whether the user is known
func (r *GormReferenceResolver) ResponsibleExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, &models.UserModel{}, id)
}

func (r *GormReferenceResolver) exists(ctx context.Context, model any, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, translateError(err, "Failed to resolve reference")
	}
	return count > 0, nil
}

// Ensure GormReferenceResolver implements ReferenceResolver
var _ reception.ReferenceResolver = (*GormReferenceResolver)(nil)
