package reception

import (
	"github.com/shopspring/decimal"
)

// Totals aggregates the monetary view of a reception's lines
type Totals struct {
	ExpectedTotal    decimal.Decimal
	ReceivedTotal    decimal.Decimal
	VarianceTotal    decimal.Decimal
	LineCount        int
	DiscrepancyCount int
}

// ComputeTotals sums the lines. ReceivedTotal uses each line's Total, which
// falls back to expected x price while received is unset.
func ComputeTotals(lines []DetailLine) Totals {
	t := Totals{
		ExpectedTotal: decimal.Zero,
		ReceivedTotal: decimal.Zero,
		VarianceTotal: decimal.Zero,
		LineCount:     len(lines),
	}
	for i := range lines {
		l := &lines[i]
		t.ExpectedTotal = t.ExpectedTotal.Add(l.ExpectedTotal())
		t.ReceivedTotal = t.ReceivedTotal.Add(l.Total())
		t.VarianceTotal = t.VarianceTotal.Add(l.Variance())
		if l.HasDiscrepancy() {
			t.DiscrepancyCount++
		}
	}
	return t
}

// Discrepancies returns the lines whose received quantity differs from expected
func Discrepancies(lines []DetailLine) []DetailLine {
	out := make([]DetailLine, 0)
	for _, l := range lines {
		if l.HasDiscrepancy() {
			out = append(out, l)
		}
	}
	return out
}

// AllLinesHaveReceived is false for an empty slice
func AllLinesHaveReceived(lines []DetailLine) bool {
	if len(lines) == 0 {
		return false
	}
	for i := range lines {
		if !lines[i].HasReceived() {
			return false
		}
	}
	return true
}
