package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// ReceptionMeterName is the instrumentation name of reception metrics
const ReceptionMeterName = "reception-service/reception"

// ReceptionMetrics holds the workflow counters.
//   - reception_transitions_total{state}: receptions entering a state, creation included
//   - reception_units_received_total: units applied to stock by accepted receptions
//   - reception_sequence_allocations_total{prefix}: document numbers issued
type ReceptionMetrics struct {
	transitions   metric.Int64Counter
	unitsReceived metric.Int64Counter
	allocations   metric.Int64Counter
}

// NewReceptionMetrics registers the reception counters on meter
func NewReceptionMetrics(meter metric.Meter) (*ReceptionMetrics, error) {
	in := &instruments{meter: meter}
	m := &ReceptionMetrics{
		transitions:   in.counter("reception_transitions_total", "Receptions entering a lifecycle state", "{reception}"),
		unitsReceived: in.counter("reception_units_received_total", "Units added to stock by accepted receptions", "{unit}"),
		allocations:   in.counter("reception_sequence_allocations_total", "Document numbers allocated", "{number}"),
	}
	if err := in.err(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordTransition counts a reception entering state
func (m *ReceptionMetrics) RecordTransition(ctx context.Context, state string) {
	m.transitions.Add(ctx, 1, attrs(AttrState.String(state)))
}

// RecordUnitsReceived adds the units applied by an accept
func (m *ReceptionMetrics) RecordUnitsReceived(ctx context.Context, units int64) {
	if units <= 0 {
		return
	}
	m.unitsReceived.Add(ctx, units)
}

// RecordSequenceAllocation counts one issued document number
func (m *ReceptionMetrics) RecordSequenceAllocation(ctx context.Context, prefix string) {
	m.allocations.Add(ctx, 1, attrs(AttrPrefix.String(prefix)))
}
