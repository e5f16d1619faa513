package reception

import (
	"context"
	"strings"
	"time"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// QueryService serves read-only reception queries against committed state
type QueryService struct {
	receptions reception.ReceptionRepository
	details    reception.DetailRepository
	history    reception.HistoryRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(
	receptions reception.ReceptionRepository,
	details reception.DetailRepository,
	history reception.HistoryRepository,
) *QueryService {
	return &QueryService{
		receptions: receptions,
		details:    details,
		history:    history,
	}
}

// GetByID returns a reception with its lines and totals
func (s *QueryService) GetByID(ctx context.Context, id uuid.UUID) (*ReceptionResponse, error) {
	r, err := s.receptions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToReceptionResponse(r)
	return &resp, nil
}

// FindByNumber returns the reception with the given document number
func (s *QueryService) FindByNumber(ctx context.Context, number string) (*ReceptionResponse, error) {
	if _, err := reception.ParseDocumentNumber(number); err != nil {
		return nil, err
	}
	r, err := s.receptions.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	resp := ToReceptionResponse(r)
	return &resp, nil
}

// ListByState lists receptions in a state
func (s *QueryService) ListByState(ctx context.Context, state string, filter shared.Filter) (*shared.Paginated[ReceptionListItemResponse], error) {
	st, err := reception.ParseState(strings.ToUpper(state))
	if err != nil {
		return nil, err
	}
	filter = filter.Normalize()
	items, total, err := s.receptions.FindByState(ctx, st, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToReceptionListItemResponses(items), total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListByDateRange lists receptions created in [from, to)
func (s *QueryService) ListByDateRange(ctx context.Context, from, to time.Time, filter shared.Filter) (*shared.Paginated[ReceptionListItemResponse], error) {
	if !from.Before(to) {
		return nil, shared.NewValidationError(reception.CodeInvalidDateRange, "The start of the range must be before its end")
	}
	filter = filter.Normalize()
	items, total, err := s.receptions.FindByDateRange(ctx, from.UTC(), to.UTC(), filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToReceptionListItemResponses(items), total, filter.Page, filter.PageSize)
	return &page, nil
}

// Search lists receptions matching the request
func (s *QueryService) Search(ctx context.Context, req SearchReceptionsRequest) (*shared.Paginated[ReceptionListItemResponse], error) {
	criteria := reception.SearchCriteria{
		DocumentNumber:   strings.TrimSpace(req.DocumentNumber),
		PurchaseOrderRef: strings.TrimSpace(req.PurchaseOrderRef),
	}
	if req.State != "" {
		st, err := reception.ParseState(strings.ToUpper(req.State))
		if err != nil {
			return nil, err
		}
		criteria.State = st
	}
	if req.SupplierID != nil {
		criteria.SupplierID = *req.SupplierID
	}
	if req.From != nil {
		from := req.From.UTC()
		criteria.From = &from
	}
	if req.To != nil {
		to := req.To.UTC()
		criteria.To = &to
	}
	if criteria.From != nil && criteria.To != nil && !criteria.From.Before(*criteria.To) {
		return nil, shared.NewValidationError(reception.CodeInvalidDateRange, "The start of the range must be before its end")
	}

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: strings.ToLower(req.OrderDir),
		Search:   strings.TrimSpace(req.Search),
	}.Normalize()

	items, total, err := s.receptions.Search(ctx, criteria, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToReceptionListItemResponses(items), total, filter.Page, filter.PageSize)
	return &page, nil
}

// History returns the audit trail of a reception in ascending order
func (s *QueryService) History(ctx context.Context, id uuid.UUID) ([]HistoryEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "history")
	defer span.End()

	if _, err := s.receptions.FindByID(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	entries, err := s.history.ListByReception(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToHistoryEntryResponses(entries), nil
}

// Totals returns the ledger totals of a reception
func (s *QueryService) Totals(ctx context.Context, id uuid.UUID) (*TotalsResponse, error) {
	lines, err := s.linesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTotalsResponse(reception.ComputeTotals(lines), reception.AllLinesHaveReceived(lines))
	return &resp, nil
}

// Discrepancies returns the lines whose received quantity differs from expected
func (s *QueryService) Discrepancies(ctx context.Context, id uuid.UUID) ([]DetailLineResponse, error) {
	lines, err := s.linesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToDetailLineResponses(reception.Discrepancies(lines)), nil
}

// AllLinesHaveReceivedQuantity reports whether every line has a received quantity
func (s *QueryService) AllLinesHaveReceivedQuantity(ctx context.Context, id uuid.UUID) (bool, error) {
	lines, err := s.linesOf(ctx, id)
	if err != nil {
		return false, err
	}
	return reception.AllLinesHaveReceived(lines), nil
}

func (s *QueryService) linesOf(ctx context.Context, id uuid.UUID) ([]reception.DetailLine, error) {
	if _, err := s.receptions.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.details.FindByReception(ctx, id)
}
