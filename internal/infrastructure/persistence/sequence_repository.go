package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequenceGenerator issues document numbers from the reception_sequences table
type GormSequenceGenerator struct {
	db *gorm.DB
}

// NewGormSequenceGenerator creates a new GormSequenceGenerator
func NewGormSequenceGenerator(db *gorm.DB) *GormSequenceGenerator {
	return &GormSequenceGenerator{db: db}
}

// Next increments the (prefix, year) counter and returns the new number.
// The counter row is created at zero on first use and then locked FOR UPDATE,
// so concurrent callers serialize on it until their transactions end.
func (g *GormSequenceGenerator) Next(ctx context.Context, prefix string, year int) (reception.DocumentNumber, error) {
	prefix, err := reception.NormalizePrefix(prefix)
	if err != nil {
		return reception.DocumentNumber{}, err
	}
	if year < 1000 || year > 9999 {
		return reception.DocumentNumber{}, shared.NewValidationError(reception.CodeInvalidDocumentNumber,
			fmt.Sprintf("Year %d is out of range", year))
	}

	db := g.db.WithContext(ctx)
	seed := models.ReceptionSequenceModel{Prefix: prefix, Year: year, Value: 0, UpdatedAt: shared.Now()}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prefix"}, {Name: "year"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return reception.DocumentNumber{}, sequenceError(err, "Failed to initialize document sequence")
	}

	var seq models.ReceptionSequenceModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("prefix = ? AND year = ?", prefix, year).
		First(&seq).Error; err != nil {
		return reception.DocumentNumber{}, sequenceError(err, "Failed to lock document sequence")
	}

	next := seq.Value + 1
	if err := db.Model(&models.ReceptionSequenceModel{}).
		Where("prefix = ? AND year = ?", prefix, year).
		Updates(map[string]interface{}{
			"value":      next,
			"updated_at": shared.Now(),
		}).Error; err != nil {
		return reception.DocumentNumber{}, sequenceError(err, "Failed to advance document sequence")
	}

	return reception.DocumentNumber{Prefix: prefix, Year: year, Value: next}, nil
}

// sequenceError reports every allocation failure as retryable; the caller's
// transaction rolls back with it and no number is consumed.
func sequenceError(err error, message string) error {
	if shared.KindOf(err) != "" || errors.Is(err, gorm.ErrDuplicatedKey) {
		return translateError(err, message)
	}
	return shared.NewPersistenceError(CodeStoreUnavailable, message, err, true)
}

// Current returns the last issued value for (prefix, year), or 0 when none was issued
func (g *GormSequenceGenerator) Current(ctx context.Context, prefix string, year int) (int64, error) {
	var seq models.ReceptionSequenceModel
	result := g.db.WithContext(ctx).
		Where("prefix = ? AND year = ?", prefix, year).
		Limit(1).
		Find(&seq)
	if result.Error != nil {
		return 0, translateError(result.Error, "Failed to read document sequence")
	}
	if result.RowsAffected == 0 {
		return 0, nil
	}
	return seq.Value, nil
}

// Ensure GormSequenceGenerator implements SequenceGenerator
var _ reception.SequenceGenerator = (*GormSequenceGenerator)(nil)
