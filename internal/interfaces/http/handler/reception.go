package handler

import (
	appreception "github.com/erp/reception/internal/application/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/interfaces/http/dto"
	"github.com/erp/reception/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReceptionHandler serves the reception lifecycle and its queries
type ReceptionHandler struct {
	BaseHandler
	workflow *appreception.WorkflowService
	queries  *appreception.QueryService
}

// NewReceptionHandler creates a new ReceptionHandler
func NewReceptionHandler(workflow *appreception.WorkflowService, queries *appreception.QueryService) *ReceptionHandler {
	return &ReceptionHandler{
		workflow: workflow,
		queries:  queries,
	}
}

// SearchReceptionsQuery is the query string of GET /receptions
type SearchReceptionsQuery struct {
	State            string `form:"state" binding:"omitempty,oneof=PENDIENTE VERIFICADO ACEPTADO RECHAZADO ANULADO pendiente verificado aceptado rechazado anulado"`
	SupplierID       string `form:"supplier_id" binding:"omitempty,uuid"`
	DocumentNumber   string `form:"document_number" binding:"omitempty,max=50,docprefix"`
	PurchaseOrderRef string `form:"purchase_order_ref" binding:"max=100"`
	From             string `form:"from"`
	To               string `form:"to"`
	Search           string `form:"search" binding:"max=100"`
	dto.ListRequest
}

// Create handles POST /receptions.
// An Idempotency-Key header makes retries return the first reception.
func (h *ReceptionHandler) Create(c *gin.Context) {
	var req appreception.CreateReceptionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader(middleware.IdempotencyKeyHeader)

	resp, err := h.workflow.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Duplicate handles POST /receptions/:id/duplicate: a new reception carrying
// the source's pending lines
func (h *ReceptionHandler) Duplicate(c *gin.Context) {
	sourceID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appreception.CreateReceptionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.workflow.CreateFromCopy(c.Request.Context(), sourceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID handles GET /receptions/:id
func (h *ReceptionHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.queries.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetByNumber handles GET /receptions/by-number/:number
func (h *ReceptionHandler) GetByNumber(c *gin.Context) {
	resp, err := h.queries.FindByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListByState handles GET /receptions/state/:state
func (h *ReceptionHandler) ListByState(c *gin.Context) {
	var q dto.ListRequest
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.queries.ListByState(c.Request.Context(), c.Param("state"), toFilter(q))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Search handles GET /receptions
func (h *ReceptionHandler) Search(c *gin.Context) {
	var q SearchReceptionsQuery
	if !h.bindQuery(c, &q) {
		return
	}

	req := appreception.SearchReceptionsRequest{
		State:            q.State,
		DocumentNumber:   q.DocumentNumber,
		PurchaseOrderRef: q.PurchaseOrderRef,
		Search:           q.Search,
		Page:             q.Page,
		PageSize:         q.PageSize,
		OrderBy:          q.OrderBy,
		OrderDir:         q.OrderDir,
	}
	if q.SupplierID != "" {
		supplierID := uuid.MustParse(q.SupplierID)
		req.SupplierID = &supplierID
	}
	if q.From != "" {
		from, err := parseDateParam(q.From, false)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		req.From = &from
	}
	if q.To != "" {
		to, err := parseDateParam(q.To, true)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		req.To = &to
	}

	page, err := h.queries.Search(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Delete handles DELETE /receptions/:id
func (h *ReceptionHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.workflow.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AttachDetail handles POST /receptions/:id/details
func (h *ReceptionHandler) AttachDetail(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appreception.AddDetailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.workflow.AttachDetail(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// RemoveLine handles DELETE /receptions/:id/details/:detail_id
func (h *ReceptionHandler) RemoveLine(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.uuidParam(c, "detail_id")
	if !ok {
		return
	}
	if err := h.workflow.RemoveLine(c.Request.Context(), id, lineID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RecordReceived handles PUT /receptions/:id/details/:detail_id/received
func (h *ReceptionHandler) RecordReceived(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.uuidParam(c, "detail_id")
	if !ok {
		return
	}
	var req appreception.RecordReceivedRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.workflow.RecordReceived(c.Request.Context(), id, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CorrectReceived handles PUT /receptions/:id/details/:detail_id/correction
func (h *ReceptionHandler) CorrectReceived(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.uuidParam(c, "detail_id")
	if !ok {
		return
	}
	var req appreception.CorrectReceivedRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.workflow.CorrectReceived(c.Request.Context(), id, lineID, middleware.GetActorID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CopyPendingLines handles POST /receptions/:id/copy-to/:target_id
func (h *ReceptionHandler) CopyPendingLines(c *gin.Context) {
	sourceID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := h.uuidParam(c, "target_id")
	if !ok {
		return
	}

	lines, err := h.workflow.CopyPendingLines(c.Request.Context(), sourceID, targetID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lines)
}

// Verify handles POST /receptions/:id/verify
func (h *ReceptionHandler) Verify(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appreception.TransitionRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	resp, err := h.workflow.Verify(c.Request.Context(), id, middleware.GetActorID(c), req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Accept handles POST /receptions/:id/accept
func (h *ReceptionHandler) Accept(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appreception.TransitionRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	resp, err := h.workflow.Accept(c.Request.Context(), id, middleware.GetActorID(c), req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reject handles POST /receptions/:id/reject
func (h *ReceptionHandler) Reject(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appreception.ReasonRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.workflow.Reject(c.Request.Context(), id, middleware.GetActorID(c), req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Annul handles POST /receptions/:id/annul. The X-User-ID header is required.
func (h *ReceptionHandler) Annul(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appreception.ReasonRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.workflow.Annul(c.Request.Context(), id, middleware.GetActorID(c), req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// History handles GET /receptions/:id/history
func (h *ReceptionHandler) History(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.queries.History(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Totals handles GET /receptions/:id/totals
func (h *ReceptionHandler) Totals(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	totals, err := h.queries.Totals(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, totals)
}

// Discrepancies handles GET /receptions/:id/discrepancies
func (h *ReceptionHandler) Discrepancies(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	lines, err := h.queries.Discrepancies(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lines)
}

func toFilter(q dto.ListRequest) shared.Filter {
	return shared.Filter{
		Page:     q.Page,
		PageSize: q.PageSize,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
	}
}
