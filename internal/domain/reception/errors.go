package reception

import (
	"fmt"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/google/uuid"
)

// Error codes raised by the reception domain
const (
	CodeSupplierRequired      = "SUPPLIER_REQUIRED"
	CodeResponsibleRequired   = "RESPONSIBLE_REQUIRED"
	CodeProductRequired       = "PRODUCT_REQUIRED"
	CodeInvalidQuantity       = "INVALID_QUANTITY"
	CodeInvalidPrice          = "INVALID_PRICE"
	CodeInvalidState          = "INVALID_RECEPTION_STATE"
	CodeInvalidPrefix         = "INVALID_DOCUMENT_PREFIX"
	CodeInvalidDocumentNumber = "INVALID_DOCUMENT_NUMBER"
	CodeReasonRequired        = "REASON_REQUIRED"
	CodeActorRequired         = "ACTOR_REQUIRED"
	CodeReceivedAlreadySet    = "RECEIVED_ALREADY_RECORDED"
	CodeInvalidDateRange      = "INVALID_DATE_RANGE"

	CodeReceptionNotFound = "RECEPTION_NOT_FOUND"
	CodeDetailNotFound    = "DETAIL_NOT_FOUND"
	CodeProductNotFound   = "PRODUCT_NOT_FOUND"
	CodeSupplierNotFound  = "SUPPLIER_NOT_FOUND"
	CodeUserNotFound      = "RESPONSIBLE_NOT_FOUND"

	CodeIllegalTransition   = "ILLEGAL_TRANSITION"
	CodeNotPending          = "RECEPTION_NOT_PENDING"
	CodeNoDetails           = "RECEPTION_WITHOUT_DETAILS"
	CodeMissingReceived     = "RECEIVED_QUANTITY_MISSING"
	CodeDeleteNotAllowed    = "DELETE_NOT_ALLOWED"
	CodeCorrectionForbidden = "CORRECTION_NOT_ALLOWED"
	CodeSameReception       = "COPY_TARGET_IS_SOURCE"
)

// ErrReceptionNotFound reports a missing reception
func ErrReceptionNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError(CodeReceptionNotFound, fmt.Sprintf("Reception %s not found", id))
}

// ErrReceptionNumberNotFound reports a missing reception by document number
func ErrReceptionNumberNotFound(number string) error {
	return shared.NewNotFoundError(CodeReceptionNotFound, fmt.Sprintf("Reception %s not found", number))
}

// ErrDetailNotFound reports a missing detail line
func ErrDetailNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError(CodeDetailNotFound, fmt.Sprintf("Detail line %s not found", id))
}

// ErrProductNotFound reports a product that cannot be resolved
func ErrProductNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError(CodeProductNotFound, fmt.Sprintf("Product %s not found", id))
}

// ErrInvalidState reports an unknown state value supplied by a caller
func ErrInvalidState(value string) error {
	return shared.NewValidationError(CodeInvalidState, fmt.Sprintf("Unknown reception state %q", value))
}

// ErrIllegalTransition reports a transition outside the legal graph
func ErrIllegalTransition(from, to State) error {
	return shared.NewIllegalTransitionError(CodeIllegalTransition,
		fmt.Sprintf("Cannot move reception from %s to %s", from, to))
}

// ErrNotPending reports an operation that requires a PENDIENTE reception
func ErrNotPending(op string, current State) error {
	return shared.NewIllegalTransitionError(CodeNotPending,
		fmt.Sprintf("Cannot %s: reception is %s, expected %s", op, current, StatePending))
}
