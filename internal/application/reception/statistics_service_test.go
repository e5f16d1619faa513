package reception_test

import (
	"context"
	"errors"
	"testing"
	"time"

	appreception "github.com/erp/reception/internal/application/reception"
	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStatisticsReader is a mock implementation of reception.StatisticsReader
type MockStatisticsReader struct {
	mock.Mock
}

func (m *MockStatisticsReader) CountReceptions(ctx context.Context, p reception.Period) (int64, int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockStatisticsReader) AcceptedSummary(ctx context.Context, p reception.Period) (reception.AcceptedSummary, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(reception.AcceptedSummary), args.Error(1)
}

func (m *MockStatisticsReader) SummarizeByState(ctx context.Context, p reception.Period) ([]reception.StateSummary, error) {
	args := m.Called(ctx, p)
	return args.Get(0).([]reception.StateSummary), args.Error(1)
}

func (m *MockStatisticsReader) SummarizeBySupplier(ctx context.Context, p reception.Period) ([]reception.SupplierSummary, error) {
	args := m.Called(ctx, p)
	return args.Get(0).([]reception.SupplierSummary), args.Error(1)
}

func (m *MockStatisticsReader) TopProducts(ctx context.Context, p reception.Period, limit int) ([]reception.ProductQuantity, error) {
	args := m.Called(ctx, p, limit)
	return args.Get(0).([]reception.ProductQuantity), args.Error(1)
}

func (m *MockStatisticsReader) DiscrepancyFigures(ctx context.Context, p reception.Period) (reception.DiscrepancyFigures, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(reception.DiscrepancyFigures), args.Error(1)
}

func TestStatisticsService_Compute(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	period := reception.Period{From: from, To: to}

	t.Run("derives averages and rates", func(t *testing.T) {
		reader := new(MockStatisticsReader)
		reader.On("CountReceptions", mock.Anything, period).Return(int64(5), int64(2), nil)
		reader.On("AcceptedSummary", mock.Anything, period).Return(reception.AcceptedSummary{
			Count: 3,
			Total: decimal.RequireFromString("100"),
			Min:   decimal.RequireFromString("10"),
			Max:   decimal.RequireFromString("60"),
		}, nil)
		reader.On("SummarizeByState", mock.Anything, period).Return([]reception.StateSummary{
			{State: reception.StateAccepted, Count: 3, Total: decimal.RequireFromString("100")},
		}, nil)
		reader.On("SummarizeBySupplier", mock.Anything, period).Return([]reception.SupplierSummary{}, nil)
		reader.On("TopProducts", mock.Anything, period, 5).Return([]reception.ProductQuantity{}, nil)
		reader.On("DiscrepancyFigures", mock.Anything, period).Return(reception.DiscrepancyFigures{
			AcceptedLines:    3,
			DiscrepantLines:  2,
			AbsDifferenceSum: 7,
			ShortfallLoss:    decimal.RequireFromString("12.50"),
		}, nil)

		svc := appreception.NewStatisticsService(reader, 5, nil)
		stats, err := svc.Compute(ctx, from, to, 0)
		require.NoError(t, err)

		assert.Equal(t, int64(5), stats.TotalReceptions)
		assert.Equal(t, int64(2), stats.DistinctSuppliers)
		assert.Equal(t, "33.33", stats.Accepted.Average.StringFixed(2))
		assert.Equal(t, "3.50", stats.Discrepancy.AverageDifference.StringFixed(2))
		assert.Equal(t, "66.67", stats.Discrepancy.DiscrepancyRatePct.StringFixed(2))
		assert.True(t, decimal.RequireFromString("12.50").Equal(stats.Discrepancy.EstimatedLoss))
		reader.AssertExpectations(t)
	})

	t.Run("empty period", func(t *testing.T) {
		reader := new(MockStatisticsReader)
		reader.On("CountReceptions", mock.Anything, period).Return(int64(0), int64(0), nil)
		reader.On("AcceptedSummary", mock.Anything, period).Return(reception.AcceptedSummary{}, nil)
		reader.On("SummarizeByState", mock.Anything, period).Return([]reception.StateSummary{}, nil)
		reader.On("SummarizeBySupplier", mock.Anything, period).Return([]reception.SupplierSummary{}, nil)
		reader.On("TopProducts", mock.Anything, period, 20).Return([]reception.ProductQuantity{}, nil)
		reader.On("DiscrepancyFigures", mock.Anything, period).Return(reception.DiscrepancyFigures{}, nil)

		svc := appreception.NewStatisticsService(reader, 0, nil)
		stats, err := svc.Compute(ctx, from, to, 20)
		require.NoError(t, err)
		assert.True(t, stats.Accepted.Average.IsZero())
		assert.True(t, stats.Discrepancy.DiscrepancyRatePct.IsZero())
		assert.True(t, stats.Discrepancy.AverageDifference.IsZero())
	})

	t.Run("inverted range", func(t *testing.T) {
		svc := appreception.NewStatisticsService(new(MockStatisticsReader), 5, nil)
		_, err := svc.Compute(ctx, to, from, 0)
		assert.Equal(t, reception.CodeInvalidDateRange, codeOf(t, err))

		_, err = svc.Compute(ctx, from, from, 0)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("reader failure", func(t *testing.T) {
		reader := new(MockStatisticsReader)
		cause := shared.NewPersistenceError("DB_UNAVAILABLE", "Database unavailable", errors.New("timeout"), true)
		reader.On("CountReceptions", mock.Anything, period).Return(int64(0), int64(0), cause)

		svc := appreception.NewStatisticsService(reader, 5, nil)
		_, err := svc.Compute(ctx, from, to, 0)
		assert.ErrorIs(t, err, cause)
		reader.AssertNotCalled(t, "AcceptedSummary", mock.Anything, mock.Anything)
	})
}

func TestStatisticsService_ReportOverWorkflow(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	bolts := f.seed.Product("BOLT", 0)
	nuts := f.seed.Product("NUT", 0)

	accepted := f.create(line(bolts, 100, "2.50"), line(nuts, 10, "1"))
	f.receive(accepted.ID, accepted.Lines[0].ID, 95)
	f.receive(accepted.ID, accepted.Lines[1].ID, 10)
	_, err := f.workflow.Verify(ctx, accepted.ID, f.clerk, "")
	require.NoError(t, err)
	_, err = f.workflow.Accept(ctx, accepted.ID, f.clerk, "")
	require.NoError(t, err)

	rejected := f.create(line(nuts, 5, "1"))
	_, err = f.workflow.Reject(ctx, rejected.ID, f.clerk, "wrong supplier")
	require.NoError(t, err)

	now := time.Now().UTC()
	report, err := f.statistics.Report(ctx, appreception.StatisticsRequest{
		From: now.Add(-time.Hour),
		To:   now.Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.TotalReceptions)
	assert.Equal(t, int64(1), report.DistinctSuppliers)
	assert.Equal(t, int64(1), report.AcceptedCount)
	assert.True(t, decimal.RequireFromString("247.50").Equal(report.AcceptedTotal), "got %s", report.AcceptedTotal)

	require.NotEmpty(t, report.TopProducts)
	assert.Equal(t, bolts, report.TopProducts[0].ProductID)
	assert.Equal(t, int64(95), report.TopProducts[0].Quantity)

	assert.Equal(t, int64(2), report.Discrepancy.AcceptedLines)
	assert.Equal(t, int64(1), report.Discrepancy.DiscrepantLines)
	assert.Equal(t, "50.00", report.Discrepancy.RatePercent.StringFixed(2))
	assert.True(t, decimal.RequireFromString("12.50").Equal(report.Discrepancy.EstimatedLoss))

	require.Len(t, report.BySupplier, 1)
	assert.Equal(t, int64(1), report.BySupplier[0].Rejections)
}
