package reception

import (
	"testing"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLine(t *testing.T, expected int, price string) *DetailLine {
	line, err := NewDetailLine(uuid.New(), uuid.New(), expected, decimal.RequireFromString(price), "")
	require.NoError(t, err)
	return line
}

func TestNewDetailLine_Validation(t *testing.T) {
	tests := []struct {
		name     string
		product  uuid.UUID
		expected int
		price    decimal.Decimal
		code     string
	}{
		{"missing product", uuid.Nil, 1, decimal.NewFromInt(1), CodeProductRequired},
		{"zero quantity", uuid.New(), 0, decimal.NewFromInt(1), CodeInvalidQuantity},
		{"negative quantity", uuid.New(), -3, decimal.NewFromInt(1), CodeInvalidQuantity},
		{"zero price", uuid.New(), 1, decimal.Zero, CodeInvalidPrice},
		{"negative price", uuid.New(), 1, decimal.NewFromInt(-2), CodeInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetailLine(uuid.New(), tt.product, tt.expected, tt.price, "")
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestDetailLine_Discrepancy(t *testing.T) {
	line := newTestLine(t, 10, "5.00")
	assert.False(t, line.HasDiscrepancy(), "unset received is not a discrepancy")
	assert.True(t, line.Variance().IsZero())
	assert.True(t, line.Total().Equal(decimal.RequireFromString("50.00")))

	require.NoError(t, line.RecordReceived(7, ""))
	assert.True(t, line.HasDiscrepancy())
	assert.True(t, line.Variance().Equal(decimal.RequireFromString("15.00")), line.Variance().String())
	assert.True(t, line.Total().Equal(decimal.RequireFromString("35.00")))
	assert.Equal(t, -3, line.Difference())

	equal := newTestLine(t, 10, "5.00")
	require.NoError(t, equal.RecordReceived(10, ""))
	assert.False(t, equal.HasDiscrepancy())
	assert.True(t, equal.Variance().IsZero())
}

func TestDetailLine_OverDelivery(t *testing.T) {
	line := newTestLine(t, 4, "2.50")
	require.NoError(t, line.RecordReceived(6, ""))
	assert.Equal(t, 2, line.Difference())
	assert.True(t, line.Variance().Equal(decimal.RequireFromString("5.00")))
}

func TestDetailLine_RecordReceived(t *testing.T) {
	line := newTestLine(t, 10, "1")

	err := line.RecordReceived(-1, "")
	assert.True(t, shared.IsValidation(err))
	assert.False(t, line.HasReceived())

	require.NoError(t, line.RecordReceived(0, "nothing arrived"))
	assert.True(t, line.HasReceived())
	assert.Equal(t, 0, line.Received())
	assert.Equal(t, "nothing arrived", line.Notes)

	err = line.RecordReceived(5, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.NewValidationError(CodeReceivedAlreadySet, ""))
	assert.Equal(t, 0, line.Received())
}

func TestDetailLine_Correct(t *testing.T) {
	line := newTestLine(t, 10, "1")
	require.NoError(t, line.RecordReceived(7, ""))

	err := line.Correct(9, "  ")
	assert.True(t, shared.IsValidation(err))

	require.NoError(t, line.Correct(9, "recount"))
	assert.Equal(t, 9, line.Received())
	assert.Contains(t, line.Notes, "correction 7 -> 9: recount")
}

func TestDetailLine_CopyAsPending(t *testing.T) {
	line := newTestLine(t, 3, "4.20")
	require.NoError(t, line.RecordReceived(3, ""))
	line.MarkAccepted()

	target := uuid.New()
	cp, err := line.CopyAsPending(target)
	require.NoError(t, err)
	assert.NotEqual(t, line.ID, cp.ID)
	assert.Equal(t, target, cp.ReceptionID)
	assert.Equal(t, line.ProductID, cp.ProductID)
	assert.False(t, cp.HasReceived())
	assert.Equal(t, LineStatePending, cp.State)
}

func TestComputeTotals(t *testing.T) {
	a := newTestLine(t, 10, "5.00")
	require.NoError(t, a.RecordReceived(7, ""))
	b := newTestLine(t, 2, "1.25")
	c := newTestLine(t, 4, "3.00")
	require.NoError(t, c.RecordReceived(4, ""))

	lines := []DetailLine{*a, *b, *c}
	totals := ComputeTotals(lines)

	assert.Equal(t, 3, totals.LineCount)
	assert.Equal(t, 1, totals.DiscrepancyCount)
	assert.True(t, totals.ExpectedTotal.Equal(decimal.RequireFromString("64.50")), totals.ExpectedTotal.String())
	// 35.00 + 2.50 (unset falls back to expected) + 12.00
	assert.True(t, totals.ReceivedTotal.Equal(decimal.RequireFromString("49.50")), totals.ReceivedTotal.String())
	assert.True(t, totals.VarianceTotal.Equal(decimal.RequireFromString("15.00")))

	assert.Len(t, Discrepancies(lines), 1)
	assert.False(t, AllLinesHaveReceived(lines))
	assert.False(t, AllLinesHaveReceived(nil))
}
