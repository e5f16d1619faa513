package reception

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StateSummary counts receptions and their line totals for one state
type StateSummary struct {
	State State
	Count int64
	Total decimal.Decimal
}

// SupplierSummary groups receptions by supplier
type SupplierSummary struct {
	SupplierID    uuid.UUID
	Receptions    int64
	AcceptedTotal decimal.Decimal
	Rejections    int64
}

// ProductQuantity ranks a product by accepted received units
type ProductQuantity struct {
	ProductID   uuid.UUID
	ProductCode string
	ProductName string
	Quantity    int64
}

// AcceptedSummary is the monetary view over accepted receptions
type AcceptedSummary struct {
	Count   int64
	Total   decimal.Decimal
	Average decimal.Decimal
	Min     decimal.Decimal
	Max     decimal.Decimal
}

// DiscrepancyAnalysis describes received vs expected gaps on accepted lines
type DiscrepancyAnalysis struct {
	AcceptedLines      int64
	DiscrepantLines    int64
	AverageDifference  decimal.Decimal
	EstimatedLoss      decimal.Decimal
	DiscrepancyRatePct decimal.Decimal
}

// Statistics is the period report over receptions created in [From, To)
type Statistics struct {
	From              time.Time
	To                time.Time
	TotalReceptions   int64
	DistinctSuppliers int64
	Accepted          AcceptedSummary
	ByState           []StateSummary
	BySupplier        []SupplierSummary
	TopProducts       []ProductQuantity
	Discrepancy       DiscrepancyAnalysis
}

// Period is a half-open date range
type Period struct {
	From time.Time
	To   time.Time
}

// DiscrepancyFigures are the raw sums the analysis is derived from
type DiscrepancyFigures struct {
	AcceptedLines    int64
	DiscrepantLines  int64
	AbsDifferenceSum int64
	ShortfallLoss    decimal.Decimal
}

// Analyze derives averages and the rate from the raw sums.
// Rate is a percentage of all accepted lines, rounded to two places.
func (f DiscrepancyFigures) Analyze() DiscrepancyAnalysis {
	a := DiscrepancyAnalysis{
		AcceptedLines:      f.AcceptedLines,
		DiscrepantLines:    f.DiscrepantLines,
		AverageDifference:  decimal.Zero,
		EstimatedLoss:      f.ShortfallLoss,
		DiscrepancyRatePct: decimal.Zero,
	}
	if f.DiscrepantLines > 0 {
		a.AverageDifference = decimal.NewFromInt(f.AbsDifferenceSum).
			Div(decimal.NewFromInt(f.DiscrepantLines)).Round(2)
	}
	if f.AcceptedLines > 0 {
		a.DiscrepancyRatePct = decimal.NewFromInt(f.DiscrepantLines).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(f.AcceptedLines)).Round(2)
	}
	return a
}
