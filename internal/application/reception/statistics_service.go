package reception

import (
	"context"
	"time"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTopProducts is the ranking size used when the caller gives none
const DefaultTopProducts = 10

// StatisticsService computes period reports. It keeps no state between calls.
type StatisticsService struct {
	reader     reception.StatisticsReader
	defaultTop int
	logger     *zap.Logger
}

// NewStatisticsService creates a new StatisticsService
func NewStatisticsService(reader reception.StatisticsReader, defaultTop int, logger *zap.Logger) *StatisticsService {
	if defaultTop <= 0 {
		defaultTop = DefaultTopProducts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{reader: reader, defaultTop: defaultTop, logger: logger}
}

// Compute builds the report over receptions created in [from, to)
func (s *StatisticsService) Compute(ctx context.Context, from, to time.Time, topN int) (*reception.Statistics, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "statistics")
	defer span.End()

	if !from.Before(to) {
		return nil, shared.NewValidationError(reception.CodeInvalidDateRange, "The start of the range must be before its end")
	}
	if topN <= 0 {
		topN = s.defaultTop
	}
	p := reception.Period{From: from.UTC(), To: to.UTC()}

	stats, err := s.collect(ctx, p, topN)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to compute reception statistics",
			zap.Time("from", p.From), zap.Time("to", p.To), zap.Error(err))
		return nil, err
	}
	return stats, nil
}

// Report is Compute rendered as a response
func (s *StatisticsService) Report(ctx context.Context, req StatisticsRequest) (*StatisticsResponse, error) {
	stats, err := s.Compute(ctx, req.From, req.To, req.Top)
	if err != nil {
		return nil, err
	}
	resp := ToStatisticsResponse(stats)
	return &resp, nil
}

func (s *StatisticsService) collect(ctx context.Context, p reception.Period, topN int) (*reception.Statistics, error) {
	total, suppliers, err := s.reader.CountReceptions(ctx, p)
	if err != nil {
		return nil, err
	}
	accepted, err := s.reader.AcceptedSummary(ctx, p)
	if err != nil {
		return nil, err
	}
	accepted.Average = decimal.Zero
	if accepted.Count > 0 {
		accepted.Average = accepted.Total.Div(decimal.NewFromInt(accepted.Count)).Round(2)
	}
	byState, err := s.reader.SummarizeByState(ctx, p)
	if err != nil {
		return nil, err
	}
	bySupplier, err := s.reader.SummarizeBySupplier(ctx, p)
	if err != nil {
		return nil, err
	}
	top, err := s.reader.TopProducts(ctx, p, topN)
	if err != nil {
		return nil, err
	}
	figures, err := s.reader.DiscrepancyFigures(ctx, p)
	if err != nil {
		return nil, err
	}

	return &reception.Statistics{
		From:              p.From,
		To:                p.To,
		TotalReceptions:   total,
		DistinctSuppliers: suppliers,
		Accepted:          accepted,
		ByState:           byState,
		BySupplier:        bySupplier,
		TopProducts:       top,
		Discrepancy:       figures.Analyze(),
	}, nil
}
