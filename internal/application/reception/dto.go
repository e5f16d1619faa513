package reception

import (
	"time"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Workflow Requests ====================

// CreateReceptionRequest represents a request to create a reception
type CreateReceptionRequest struct {
	SupplierID       uuid.UUID          `json:"supplier_id" binding:"required"`
	ResponsibleID    uuid.UUID          `json:"responsible_id" binding:"required"`
	PurchaseOrderRef string             `json:"purchase_order_ref" binding:"max=100"`
	Notes            string             `json:"notes" binding:"max=2000"`
	Lines            []AddDetailRequest `json:"lines" binding:"omitempty,dive"`

	// IdempotencyKey makes a replayed create return the original reception
	IdempotencyKey string `json:"-"`
}

// AddDetailRequest represents a request to attach a detail line
type AddDetailRequest struct {
	ProductID        uuid.UUID       `json:"product_id" binding:"required"`
	ExpectedQuantity int             `json:"expected_quantity" binding:"required,gt=0"`
	UnitPrice        decimal.Decimal `json:"unit_price" binding:"required"`
	Notes            string          `json:"notes" binding:"max=500"`
}

// RecordReceivedRequest represents the capture of a received quantity
type RecordReceivedRequest struct {
	ReceivedQuantity *int   `json:"received_quantity" binding:"required,gte=0"`
	Notes            string `json:"notes" binding:"max=500"`
}

// CorrectReceivedRequest represents an explicit correction of a received quantity
type CorrectReceivedRequest struct {
	ReceivedQuantity *int   `json:"received_quantity" binding:"required,gte=0"`
	Reason           string `json:"reason" binding:"required,min=1,max=500"`
}

// TransitionRequest carries the optional notes of verify and accept
type TransitionRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// ReasonRequest carries the mandatory reason of reject and annul
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=2000"`
}

// ==================== Query Requests ====================

// SearchReceptionsRequest is the query-string form of a reception search
type SearchReceptionsRequest struct {
	State            string     `form:"state" binding:"omitempty,oneof=PENDIENTE VERIFICADO ACEPTADO RECHAZADO ANULADO"`
	SupplierID       *uuid.UUID `form:"supplier_id"`
	DocumentNumber   string     `form:"document_number" binding:"max=50"`
	PurchaseOrderRef string     `form:"purchase_order_ref" binding:"max=100"`
	From             *time.Time `form:"from" time_format:"2006-01-02"`
	To               *time.Time `form:"to" time_format:"2006-01-02"`
	Search           string     `form:"search" binding:"max=100"`
	Page             int        `form:"page" binding:"omitempty,min=1"`
	PageSize         int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy          string     `form:"order_by"`
	OrderDir         string     `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// StatisticsRequest selects the period of a statistics report
type StatisticsRequest struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02"`
	Top  int       `form:"top" binding:"omitempty,min=1,max=100"`
}

// ==================== Responses ====================

// ReceptionResponse is the full view of a reception
type ReceptionResponse struct {
	ID               uuid.UUID            `json:"id"`
	DocumentNumber   string               `json:"document_number"`
	SupplierID       uuid.UUID            `json:"supplier_id"`
	ResponsibleID    uuid.UUID            `json:"responsible_id"`
	PurchaseOrderRef string               `json:"purchase_order_ref,omitempty"`
	State            string               `json:"state"`
	Notes            string               `json:"notes,omitempty"`
	VerifiedAt       *time.Time           `json:"verified_at,omitempty"`
	FinalizedAt      *time.Time           `json:"finalized_at,omitempty"`
	AnnulReason      string               `json:"annul_reason,omitempty"`
	AnnulledBy       *uuid.UUID           `json:"annulled_by,omitempty"`
	Lines            []DetailLineResponse `json:"lines"`
	Totals           TotalsResponse       `json:"totals"`
	Version          int                  `json:"version"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// ReceptionListItemResponse is the summary view used by lists
type ReceptionListItemResponse struct {
	ID               uuid.UUID `json:"id"`
	DocumentNumber   string    `json:"document_number"`
	SupplierID       uuid.UUID `json:"supplier_id"`
	PurchaseOrderRef string    `json:"purchase_order_ref,omitempty"`
	State            string    `json:"state"`
	CreatedAt        time.Time `json:"created_at"`
}

// DetailLineResponse is the view of one detail line
type DetailLineResponse struct {
	ID               uuid.UUID       `json:"id"`
	ReceptionID      uuid.UUID       `json:"reception_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ExpectedQuantity int             `json:"expected_quantity"`
	ReceivedQuantity *int            `json:"received_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Total            decimal.Decimal `json:"total"`
	Variance         decimal.Decimal `json:"variance"`
	Difference       int             `json:"difference"`
	HasDiscrepancy   bool            `json:"has_discrepancy"`
	State            string          `json:"state"`
	Notes            string          `json:"notes,omitempty"`
}

// TotalsResponse is the ledger view of a reception
type TotalsResponse struct {
	ExpectedTotal    decimal.Decimal `json:"expected_total"`
	ReceivedTotal    decimal.Decimal `json:"received_total"`
	VarianceTotal    decimal.Decimal `json:"variance_total"`
	LineCount        int             `json:"line_count"`
	DiscrepancyCount int             `json:"discrepancy_count"`
	AllReceived      bool            `json:"all_received"`
}

// HistoryEntryResponse is the view of one audit entry
type HistoryEntryResponse struct {
	ID         uuid.UUID      `json:"id"`
	Position   int            `json:"position"`
	PriorState string         `json:"prior_state,omitempty"`
	NewState   string         `json:"new_state"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    uuid.UUID      `json:"actor_id"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// StatisticsResponse is the period report
type StatisticsResponse struct {
	From              time.Time                 `json:"from"`
	To                time.Time                 `json:"to"`
	TotalReceptions   int64                     `json:"total_receptions"`
	DistinctSuppliers int64                     `json:"distinct_suppliers"`
	AcceptedCount     int64                     `json:"accepted_count"`
	AcceptedTotal     decimal.Decimal           `json:"accepted_total"`
	AverageAccepted   decimal.Decimal           `json:"average_accepted"`
	MinAccepted       decimal.Decimal           `json:"min_accepted"`
	MaxAccepted       decimal.Decimal           `json:"max_accepted"`
	ByState           []StateSummaryResponse    `json:"by_state"`
	BySupplier        []SupplierSummaryResponse `json:"by_supplier"`
	TopProducts       []ProductQuantityResponse `json:"top_products"`
	Discrepancy       DiscrepancyResponse       `json:"discrepancy"`
}

// StateSummaryResponse groups receptions by state
type StateSummaryResponse struct {
	State string          `json:"state"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// SupplierSummaryResponse groups receptions by supplier
type SupplierSummaryResponse struct {
	SupplierID    uuid.UUID       `json:"supplier_id"`
	Receptions    int64           `json:"receptions"`
	AcceptedTotal decimal.Decimal `json:"accepted_total"`
	Rejections    int64           `json:"rejections"`
}

// ProductQuantityResponse ranks a product by accepted units
type ProductQuantityResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductCode string    `json:"product_code"`
	ProductName string    `json:"product_name"`
	Quantity    int64     `json:"quantity"`
}

// DiscrepancyResponse is the discrepancy analysis
type DiscrepancyResponse struct {
	AcceptedLines     int64           `json:"accepted_lines"`
	DiscrepantLines   int64           `json:"discrepant_lines"`
	AverageDifference decimal.Decimal `json:"average_difference"`
	EstimatedLoss     decimal.Decimal `json:"estimated_loss"`
	RatePercent       decimal.Decimal `json:"rate_percent"`
}

// ==================== Conversions ====================

// ToReceptionResponse converts a domain reception to its response
func ToReceptionResponse(r *reception.Reception) ReceptionResponse {
	lines := make([]DetailLineResponse, len(r.Lines))
	for i := range r.Lines {
		lines[i] = ToDetailLineResponse(&r.Lines[i])
	}
	return ReceptionResponse{
		ID:               r.ID,
		DocumentNumber:   r.DocumentNumber,
		SupplierID:       r.SupplierID,
		ResponsibleID:    r.ResponsibleID,
		PurchaseOrderRef: r.PurchaseOrderRef,
		State:            r.State.String(),
		Notes:            r.Notes,
		VerifiedAt:       r.VerifiedAt,
		FinalizedAt:      r.FinalizedAt,
		AnnulReason:      r.AnnulReason,
		AnnulledBy:       r.AnnulledBy,
		Lines:            lines,
		Totals:           ToTotalsResponse(r.Totals(), r.AllLinesHaveReceived()),
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// ToReceptionListItemResponses converts a page of receptions
func ToReceptionListItemResponses(rs []reception.Reception) []ReceptionListItemResponse {
	out := make([]ReceptionListItemResponse, len(rs))
	for i, r := range rs {
		out[i] = ReceptionListItemResponse{
			ID:               r.ID,
			DocumentNumber:   r.DocumentNumber,
			SupplierID:       r.SupplierID,
			PurchaseOrderRef: r.PurchaseOrderRef,
			State:            r.State.String(),
			CreatedAt:        r.CreatedAt,
		}
	}
	return out
}

// ToDetailLineResponse converts a detail line
func ToDetailLineResponse(l *reception.DetailLine) DetailLineResponse {
	return DetailLineResponse{
		ID:               l.ID,
		ReceptionID:      l.ReceptionID,
		ProductID:        l.ProductID,
		ExpectedQuantity: l.ExpectedQuantity,
		ReceivedQuantity: l.ReceivedQuantity,
		UnitPrice:        l.UnitPrice,
		Total:            l.Total(),
		Variance:         l.Variance(),
		Difference:       l.Difference(),
		HasDiscrepancy:   l.HasDiscrepancy(),
		State:            l.State.String(),
		Notes:            l.Notes,
	}
}

// ToDetailLineResponses converts a slice of detail lines
func ToDetailLineResponses(lines []reception.DetailLine) []DetailLineResponse {
	out := make([]DetailLineResponse, len(lines))
	for i := range lines {
		out[i] = ToDetailLineResponse(&lines[i])
	}
	return out
}

// ToTotalsResponse converts ledger totals
func ToTotalsResponse(t reception.Totals, allReceived bool) TotalsResponse {
	return TotalsResponse{
		ExpectedTotal:    t.ExpectedTotal,
		ReceivedTotal:    t.ReceivedTotal,
		VarianceTotal:    t.VarianceTotal,
		LineCount:        t.LineCount,
		DiscrepancyCount: t.DiscrepancyCount,
		AllReceived:      allReceived,
	}
}

// ToHistoryEntryResponses converts audit entries
func ToHistoryEntryResponses(entries []reception.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntryResponse{
			ID:         e.ID,
			Position:   e.Position,
			PriorState: e.PriorState.String(),
			NewState:   e.NewState.String(),
			OccurredAt: e.OccurredAt,
			ActorID:    e.ActorID,
			Reason:     e.Reason,
			Metadata:   e.Metadata,
		}
	}
	return out
}

// ToStatisticsResponse converts the period report
func ToStatisticsResponse(s *reception.Statistics) StatisticsResponse {
	byState := make([]StateSummaryResponse, len(s.ByState))
	for i, b := range s.ByState {
		byState[i] = StateSummaryResponse{State: b.State.String(), Count: b.Count, Total: b.Total}
	}
	bySupplier := make([]SupplierSummaryResponse, len(s.BySupplier))
	for i, b := range s.BySupplier {
		bySupplier[i] = SupplierSummaryResponse{
			SupplierID:    b.SupplierID,
			Receptions:    b.Receptions,
			AcceptedTotal: b.AcceptedTotal,
			Rejections:    b.Rejections,
		}
	}
	top := make([]ProductQuantityResponse, len(s.TopProducts))
	for i, p := range s.TopProducts {
		top[i] = ProductQuantityResponse{
			ProductID:   p.ProductID,
			ProductCode: p.ProductCode,
			ProductName: p.ProductName,
			Quantity:    p.Quantity,
		}
	}
	return StatisticsResponse{
		From:              s.From,
		To:                s.To,
		TotalReceptions:   s.TotalReceptions,
		DistinctSuppliers: s.DistinctSuppliers,
		AcceptedCount:     s.Accepted.Count,
		AcceptedTotal:     s.Accepted.Total,
		AverageAccepted:   s.Accepted.Average,
		MinAccepted:       s.Accepted.Min,
		MaxAccepted:       s.Accepted.Max,
		ByState:           byState,
		BySupplier:        bySupplier,
		TopProducts:       top,
		Discrepancy: DiscrepancyResponse{
			AcceptedLines:     s.Discrepancy.AcceptedLines,
			DiscrepantLines:   s.Discrepancy.DiscrepantLines,
			AverageDifference: s.Discrepancy.AverageDifference,
			EstimatedLoss:     s.Discrepancy.EstimatedLoss,
			RatePercent:       s.Discrepancy.DiscrepancyRatePct,
		},
	}
}
