package persistence

import (
	"context"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// line total: received x price, falling back to expected x price while unset
const lineTotalExpr = "COALESCE(d.received_quantity, d.expected_quantity) * d.unit_price"

// GormStatisticsRepository implements StatisticsReader using aggregate SQL
type GormStatisticsRepository struct {
	db *gorm.DB
}

// NewGormStatisticsRepository creates a new GormStatisticsRepository
func NewGormStatisticsRepository(db *gorm.DB) *GormStatisticsRepository {
	return &GormStatisticsRepository{db: db}
}

func (r *GormStatisticsRepository) inPeriod(ctx context.Context, p reception.Period) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("receptions r").
		Where("r.created_at >= ? AND r.created_at < ?", p.From, p.To)
}

// CountReceptions counts receptions and distinct suppliers in the period
func (r *GormStatisticsRepository) CountReceptions(ctx context.Context, p reception.Period) (int64, int64, error) {
	var result struct {
		Total     int64
		Suppliers int64
	}
	if err := r.inPeriod(ctx, p).
		Select("COUNT(*) AS total, COUNT(DISTINCT r.supplier_id) AS suppliers").
		Scan(&result).Error; err != nil {
		return 0, 0, translateError(err, "Failed to count receptions")
	}
	return result.Total, result.Suppliers, nil
}

// AcceptedSummary sums, and bounds, the totals of accepted receptions.
// Average is left for the caller.
func (r *GormStatisticsRepository) AcceptedSummary(ctx context.Context, p reception.Period) (reception.AcceptedSummary, error) {
	perReception := r.inPeriod(ctx, p).
		Select("r.id, COALESCE(SUM("+lineTotalExpr+"), 0) AS total").
		Joins("LEFT JOIN reception_details d ON d.reception_id = r.id").
		Where("r.state = ?", reception.StateAccepted).
		Group("r.id")

	var result struct {
		Count    int64
		Total    decimal.Decimal
		MinTotal decimal.Decimal
		MaxTotal decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Table("(?) AS t", perReception).
		Select(`
			COUNT(*) AS count,
			COALESCE(SUM(t.total), 0) AS total,
			COALESCE(MIN(t.total), 0) AS min_total,
			COALESCE(MAX(t.total), 0) AS max_total
		`).
		Scan(&result).Error; err != nil {
		return reception.AcceptedSummary{}, translateError(err, "Failed to summarize accepted receptions")
	}

	return reception.AcceptedSummary{
		Count:   result.Count,
		Total:   result.Total,
		Average: decimal.Zero,
		Min:     result.MinTotal,
		Max:     result.MaxTotal,
	}, nil
}

// SummarizeByState counts receptions and sums their line totals per state
func (r *GormStatisticsRepository) SummarizeByState(ctx context.Context, p reception.Period) ([]reception.StateSummary, error) {
	var rows []struct {
		State string
		Count int64
		Total decimal.Decimal
	}
	if err := r.inPeriod(ctx, p).
		Select("r.state, COUNT(DISTINCT r.id) AS count, COALESCE(SUM(" + lineTotalExpr + "), 0) AS total").
		Joins("LEFT JOIN reception_details d ON d.reception_id = r.id").
		Group("r.state").
		Order("r.state ASC").
		Scan(&rows).Error; err != nil {
		return nil, translateError(err, "Failed to summarize receptions by state")
	}

	out := make([]reception.StateSummary, len(rows))
	for i, row := range rows {
		out[i] = reception.StateSummary{State: reception.State(row.State), Count: row.Count, Total: row.Total}
	}
	return out, nil
}

// SummarizeBySupplier groups receptions, accepted totals and rejections per supplier
func (r *GormStatisticsRepository) SummarizeBySupplier(ctx context.Context, p reception.Period) ([]reception.SupplierSummary, error) {
	var rows []struct {
		SupplierID    uuid.UUID
		Receptions    int64
		AcceptedTotal decimal.Decimal
		Rejections    int64
	}
	if err := r.inPeriod(ctx, p).
		Select(`
			r.supplier_id,
			COUNT(DISTINCT r.id) AS receptions,
			COALESCE(SUM(CASE WHEN r.state = ? THEN `+lineTotalExpr+` ELSE 0 END), 0) AS accepted_total,
			COUNT(DISTINCT CASE WHEN r.state = ? THEN r.id END) AS rejections
		`, reception.StateAccepted, reception.StateRejected).
		Joins("LEFT JOIN reception_details d ON d.reception_id = r.id").
		Group("r.supplier_id").
		Order("accepted_total DESC, receptions DESC, r.supplier_id ASC").
		Scan(&rows).Error; err != nil {
		return nil, translateError(err, "Failed to summarize receptions by supplier")
	}

	out := make([]reception.SupplierSummary, len(rows))
	for i, row := range rows {
		out[i] = reception.SupplierSummary{
			SupplierID:    row.SupplierID,
			Receptions:    row.Receptions,
			AcceptedTotal: row.AcceptedTotal,
			Rejections:    row.Rejections,
		}
	}
	return out, nil
}

// TopProducts ranks products by received units on accepted receptions
func (r *GormStatisticsRepository) TopProducts(ctx context.Context, p reception.Period, limit int) ([]reception.ProductQuantity, error) {
	var rows []struct {
		ProductID   uuid.UUID
		ProductCode string
		ProductName string
		Quantity    int64
	}
	if err := r.inPeriod(ctx, p).
		Select(`
			d.product_id,
			COALESCE(pr.code, '') AS product_code,
			COALESCE(pr.name, '') AS product_name,
			CAST(COALESCE(SUM(d.received_quantity), 0) AS BIGINT) AS quantity
		`).
		Joins("JOIN reception_details d ON d.reception_id = r.id").
		Joins("LEFT JOIN products pr ON pr.id = d.product_id").
		Where("r.state = ?", reception.StateAccepted).
		Group("d.product_id, pr.code, pr.name").
		Order("quantity DESC, d.product_id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, translateError(err, "Failed to rank products")
	}

	out := make([]reception.ProductQuantity, len(rows))
	for i, row := range rows {
		out[i] = reception.ProductQuantity{
			ProductID:   row.ProductID,
			ProductCode: row.ProductCode,
			ProductName: row.ProductName,
			Quantity:    row.Quantity,
		}
	}
	return out, nil
}

// DiscrepancyFigures sums the gaps between received and expected on accepted lines
func (r *GormStatisticsRepository) DiscrepancyFigures(ctx context.Context, p reception.Period) (reception.DiscrepancyFigures, error) {
	var result struct {
		AcceptedLines    int64
		DiscrepantLines  int64
		AbsDifferenceSum int64
		ShortfallLoss    decimal.Decimal
	}
	if err := r.inPeriod(ctx, p).
		Select(`
			COUNT(d.id) AS accepted_lines,
			CAST(COALESCE(SUM(CASE WHEN d.received_quantity <> d.expected_quantity THEN 1 ELSE 0 END), 0) AS BIGINT) AS discrepant_lines,
			CAST(COALESCE(SUM(ABS(d.received_quantity - d.expected_quantity)), 0) AS BIGINT) AS abs_difference_sum,
			COALESCE(SUM(CASE WHEN d.received_quantity < d.expected_quantity
				THEN (d.expected_quantity - d.received_quantity) * d.unit_price ELSE 0 END), 0) AS shortfall_loss
		`).
		Joins("JOIN reception_details d ON d.reception_id = r.id").
		Where("r.state = ?", reception.StateAccepted).
		Scan(&result).Error; err != nil {
		return reception.DiscrepancyFigures{}, translateError(err, "Failed to analyze discrepancies")
	}

	return reception.DiscrepancyFigures{
		AcceptedLines:    result.AcceptedLines,
		DiscrepantLines:  result.DiscrepantLines,
		AbsDifferenceSum: result.AbsDifferenceSum,
		ShortfallLoss:    result.ShortfallLoss,
	}, nil
}

// Ensure GormStatisticsRepository implements StatisticsReader
var _ reception.StatisticsReader = (*GormStatisticsRepository)(nil)
