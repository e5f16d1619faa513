package reception

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reception represents one goods-intake document.
// It moves through PENDIENTE -> VERIFICADO -> ACEPTADO|RECHAZADO, with ANULADO
// as an administrative exit from any non-terminal state.
type Reception struct {
	shared.BaseAggregateRoot
	DocumentNumber   string
	SupplierID       uuid.UUID
	PurchaseOrderRef string
	ResponsibleID    uuid.UUID
	State            State
	Notes            string
	VerifiedAt       *time.Time
	FinalizedAt      *time.Time
	AnnulReason      string
	AnnulledBy       *uuid.UUID
	Lines            []DetailLine
}

// NewReception creates a PENDIENTE reception with an already allocated number.
// The creation history entry is returned alongside.
func NewReception(documentNumber string, supplierID, responsibleID uuid.UUID, purchaseOrderRef, notes string) (*Reception, *HistoryEntry, error) {
	if supplierID == uuid.Nil {
		return nil, nil, shared.NewValidationError(CodeSupplierRequired, "Supplier ID cannot be empty")
	}
	if responsibleID == uuid.Nil {
		return nil, nil, shared.NewValidationError(CodeResponsibleRequired, "Responsible ID cannot be empty")
	}
	if _, err := ParseDocumentNumber(documentNumber); err != nil {
		return nil, nil, err
	}

	r := &Reception{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocumentNumber:    documentNumber,
		SupplierID:        supplierID,
		PurchaseOrderRef:  strings.TrimSpace(purchaseOrderRef),
		ResponsibleID:     responsibleID,
		State:             StatePending,
		Notes:             strings.TrimSpace(notes),
		Lines:             make([]DetailLine, 0),
	}

	entry := r.newHistory("", StatePending, responsibleID, "")
	return r, entry, nil
}

// EnsurePending returns RECEPTION_NOT_PENDING unless the reception is PENDIENTE
func (r *Reception) EnsurePending(op string) error {
	if r.State != StatePending {
		return ErrNotPending(op, r.State)
	}
	return nil
}

// Line returns the line with the given id
func (r *Reception) Line(lineID uuid.UUID) (*DetailLine, error) {
	for i := range r.Lines {
		if r.Lines[i].ID == lineID {
			return &r.Lines[i], nil
		}
	}
	return nil, ErrDetailNotFound(lineID)
}

// AddLine attaches a new pending line. Only allowed while PENDIENTE.
func (r *Reception) AddLine(productID uuid.UUID, expectedQty int, unitPrice decimal.Decimal, notes string) (*DetailLine, error) {
	if err := r.EnsurePending("attach a detail line"); err != nil {
		return nil, err
	}
	line, err := NewDetailLine(r.ID, productID, expectedQty, unitPrice, notes)
	if err != nil {
		return nil, err
	}
	r.Lines = append(r.Lines, *line)
	r.Touch()
	return line, nil
}

// RemoveLine drops a line. Only allowed while PENDIENTE.
func (r *Reception) RemoveLine(lineID uuid.UUID) error {
	if err := r.EnsurePending("remove a detail line"); err != nil {
		return err
	}
	for i := range r.Lines {
		if r.Lines[i].ID == lineID {
			r.Lines = append(r.Lines[:i], r.Lines[i+1:]...)
			r.Touch()
			return nil
		}
	}
	return ErrDetailNotFound(lineID)
}

// RecordReceived captures the received quantity of a line while PENDIENTE
func (r *Reception) RecordReceived(lineID uuid.UUID, qty int, notes string) (*DetailLine, error) {
	if err := r.EnsurePending("record a received quantity"); err != nil {
		return nil, err
	}
	line, err := r.Line(lineID)
	if err != nil {
		return nil, err
	}
	if err := line.RecordReceived(qty, notes); err != nil {
		return nil, err
	}
	r.Touch()
	return line, nil
}

// CorrectReceived rewrites a received quantity while PENDIENTE or VERIFICADO
func (r *Reception) CorrectReceived(lineID uuid.UUID, qty int, reason string) (*DetailLine, error) {
	if r.State != StatePending && r.State != StateVerified {
		return nil, shared.NewIllegalTransitionError(CodeCorrectionForbidden,
			fmt.Sprintf("Cannot correct a received quantity: reception is %s", r.State))
	}
	line, err := r.Line(lineID)
	if err != nil {
		return nil, err
	}
	if err := line.Correct(qty, reason); err != nil {
		return nil, err
	}
	r.Touch()
	return line, nil
}

// AllLinesHaveReceived reports whether every line carries a received quantity.
// A reception without lines reports false.
func (r *Reception) AllLinesHaveReceived() bool {
	return AllLinesHaveReceived(r.Lines)
}

// Verify moves PENDIENTE -> VERIFICADO.
// Requires at least one line and a received quantity on every line.
func (r *Reception) Verify(actor uuid.UUID, notes string) (*HistoryEntry, error) {
	if r.State != StatePending {
		return nil, ErrIllegalTransition(r.State, StateVerified)
	}
	if len(r.Lines) == 0 {
		return nil, shared.NewIllegalTransitionError(CodeNoDetails,
			fmt.Sprintf("Reception %s has no detail lines", r.DocumentNumber))
	}
	for i := range r.Lines {
		if !r.Lines[i].HasReceived() {
			return nil, shared.NewIllegalTransitionError(CodeMissingReceived,
				fmt.Sprintf("Detail line %s has no received quantity", r.Lines[i].ID))
		}
	}

	now := shared.Now()
	prior := r.State
	r.State = StateVerified
	r.VerifiedAt = &now
	r.appendNotes(notes)
	r.Touch()

	return r.newHistory(prior, StateVerified, actor, strings.TrimSpace(notes)), nil
}

// Accept moves VERIFICADO -> ACEPTADO and marks every line accepted.
// Stock increases are applied by the caller in the same transaction.
func (r *Reception) Accept(actor uuid.UUID, notes string) (*HistoryEntry, error) {
	if r.State != StateVerified {
		return nil, ErrIllegalTransition(r.State, StateAccepted)
	}

	now := shared.Now()
	prior := r.State
	r.State = StateAccepted
	r.FinalizedAt = &now
	r.appendNotes(notes)
	units := 0
	for i := range r.Lines {
		r.Lines[i].MarkAccepted()
		units += r.Lines[i].Received()
	}
	r.Touch()

	entry := r.newHistory(prior, StateAccepted, actor, strings.TrimSpace(notes))
	entry.Metadata = map[string]any{
		"line_count":    len(r.Lines),
		"units_applied": units,
	}
	return entry, nil
}

// Reject moves PENDIENTE|VERIFICADO -> RECHAZADO. The reason becomes the notes.
func (r *Reception) Reject(actor uuid.UUID, reason string) (*HistoryEntry, error) {
	if !r.State.CanTransitionTo(StateRejected) {
		return nil, ErrIllegalTransition(r.State, StateRejected)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewValidationError(CodeReasonRequired, "A rejection requires a reason")
	}

	now := shared.Now()
	prior := r.State
	r.State = StateRejected
	r.FinalizedAt = &now
	r.Notes = reason
	for i := range r.Lines {
		r.Lines[i].MarkRejected()
	}
	r.Touch()

	return r.newHistory(prior, StateRejected, actor, reason), nil
}

// Annul moves PENDIENTE|VERIFICADO -> ANULADO, recording reason and actor
func (r *Reception) Annul(actor uuid.UUID, reason string) (*HistoryEntry, error) {
	if !r.State.CanTransitionTo(StateAnnulled) {
		return nil, ErrIllegalTransition(r.State, StateAnnulled)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewValidationError(CodeReasonRequired, "An annulment requires a reason")
	}
	if actor == uuid.Nil {
		return nil, shared.NewValidationError(CodeActorRequired, "An annulment requires the acting user")
	}

	prior := r.State
	r.State = StateAnnulled
	r.AnnulReason = reason
	r.AnnulledBy = &actor
	r.Touch()

	return r.newHistory(prior, StateAnnulled, actor, reason), nil
}

// EnsureDeletable returns DELETE_NOT_ALLOWED unless the reception is PENDIENTE
func (r *Reception) EnsureDeletable() error {
	if r.State != StatePending {
		return shared.NewIllegalTransitionError(CodeDeleteNotAllowed,
			fmt.Sprintf("Cannot delete reception %s in %s state", r.DocumentNumber, r.State))
	}
	return nil
}

// PendingLines returns the lines still in the PENDIENTE line state
func (r *Reception) PendingLines() []DetailLine {
	out := make([]DetailLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		if l.State == LineStatePending {
			out = append(out, l)
		}
	}
	return out
}

// CopyPendingFrom appends fresh copies of the source's pending lines.
// Received quantities are not carried over. Only allowed while PENDIENTE.
func (r *Reception) CopyPendingFrom(source *Reception) ([]DetailLine, error) {
	if source.ID == r.ID {
		return nil, shared.NewIllegalTransitionError(CodeSameReception, "Cannot copy lines of a reception into itself")
	}
	if err := r.EnsurePending("copy detail lines"); err != nil {
		return nil, err
	}
	copied := make([]DetailLine, 0, len(source.Lines))
	for _, l := range source.PendingLines() {
		cp, err := l.CopyAsPending(r.ID)
		if err != nil {
			return nil, err
		}
		copied = append(copied, *cp)
	}
	if len(copied) > 0 {
		r.Lines = append(r.Lines, copied...)
		r.Touch()
	}
	return copied, nil
}

// Totals computes the ledger totals over the loaded lines
func (r *Reception) Totals() Totals {
	return ComputeTotals(r.Lines)
}

func (r *Reception) appendNotes(notes string) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return
	}
	if r.Notes == "" {
		r.Notes = notes
		return
	}
	r.Notes = r.Notes + "\n" + notes
}

func (r *Reception) newHistory(prior, next State, actor uuid.UUID, reason string) *HistoryEntry {
	if actor == uuid.Nil {
		actor = r.ResponsibleID
	}
	return NewHistoryEntry(r.ID, prior, next, actor, reason)
}
