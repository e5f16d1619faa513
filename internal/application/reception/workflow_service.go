package reception

import (
	"context"
	"time"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/infrastructure/logger"
	"github.com/erp/reception/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	serviceName = "reception"

	idempotencyKeyPrefix = "reception:create:"

	codeStoreFailure = "RECEPTION_STORE_FAILURE"
	codeIdempotency  = "IDEMPOTENCY_STORE_FAILURE"
)

// MetricsRecorder receives workflow counters
type MetricsRecorder interface {
	RecordTransition(ctx context.Context, state string)
	RecordUnitsReceived(ctx context.Context, units int64)
	RecordSequenceAllocation(ctx context.Context, prefix string)
}

type noopMetrics struct{}

func (noopMetrics) RecordTransition(context.Context, string)         {}
func (noopMetrics) RecordUnitsReceived(context.Context, int64)       {}
func (noopMetrics) RecordSequenceAllocation(context.Context, string) {}

// WorkflowConfig holds workflow settings
type WorkflowConfig struct {
	// DocumentPrefix is the prefix of issued document numbers
	DocumentPrefix string
	// IdempotencyTTL is how long an Idempotency-Key replays its first result
	IdempotencyTTL time.Duration
}

// DefaultWorkflowConfig returns the default workflow configuration
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		DocumentPrefix: reception.DefaultPrefix,
		IdempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
	}
}

// WorkflowService drives receptions through their lifecycle.
// Every operation runs in a single transaction.
type WorkflowService struct {
	scope       TransactionScope
	cfg         WorkflowConfig
	resolver    reception.ReferenceResolver
	idempotency shared.IdempotencyStore
	metrics     MetricsRecorder
	logger      *zap.Logger
	now         func() time.Time
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(scope TransactionScope, cfg WorkflowConfig, zapLogger *zap.Logger) (*WorkflowService, error) {
	prefix, err := reception.NormalizePrefix(cfg.DocumentPrefix)
	if err != nil {
		return nil, err
	}
	cfg.DocumentPrefix = prefix
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = shared.DefaultIdempotencyConfig().TTL
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &WorkflowService{
		scope:   scope,
		cfg:     cfg,
		metrics: noopMetrics{},
		logger:  zapLogger,
		now:     shared.Now,
	}, nil
}

// SetReferenceResolver enables supplier and responsible existence checks on create
func (s *WorkflowService) SetReferenceResolver(resolver reception.ReferenceResolver) {
	s.resolver = resolver
}

// SetIdempotencyStore enables Idempotency-Key handling on create
func (s *WorkflowService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetMetrics sets the metrics recorder
func (s *WorkflowService) SetMetrics(m MetricsRecorder) {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
}

// SetClock overrides the time source used for the document number year
func (s *WorkflowService) SetClock(now func() time.Time) {
	s.now = now
}

// ==================== Create ====================

// Create allocates a document number and inserts a PENDIENTE reception,
// together with any inline lines, in one transaction.
func (s *WorkflowService) Create(ctx context.Context, req CreateReceptionRequest) (*ReceptionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "create")
	defer span.End()
	telemetry.SetAttributes(span,
		"supplier_id", req.SupplierID.String(),
		"lines_count", len(req.Lines),
	)

	if req.IdempotencyKey != "" && s.idempotency != nil {
		return s.createIdempotent(ctx, span, req)
	}

	r, err := s.create(ctx, req, uuid.Nil)
	if err != nil {
		return nil, s.fail(ctx, span, "create", err)
	}
	resp := ToReceptionResponse(r)
	return &resp, nil
}

// CreateFromCopy creates a new reception and copies the source's pending lines into it
func (s *WorkflowService) CreateFromCopy(ctx context.Context, sourceID uuid.UUID, req CreateReceptionRequest) (*ReceptionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "create_from_copy")
	defer span.End()
	telemetry.SetAttributes(span, "source_id", sourceID.String())

	r, err := s.create(ctx, req, sourceID)
	if err != nil {
		return nil, s.fail(ctx, span, "create_from_copy", err, zap.String("source_id", sourceID.String()))
	}
	resp := ToReceptionResponse(r)
	return &resp, nil
}

func (s *WorkflowService) create(ctx context.Context, req CreateReceptionRequest, sourceID uuid.UUID) (*reception.Reception, error) {
	if req.SupplierID == uuid.Nil {
		return nil, shared.NewValidationError(reception.CodeSupplierRequired, "Supplier ID cannot be empty")
	}
	if req.ResponsibleID == uuid.Nil {
		return nil, shared.NewValidationError(reception.CodeResponsibleRequired, "Responsible ID cannot be empty")
	}
	if err := s.checkReferences(ctx, req.SupplierID, req.ResponsibleID); err != nil {
		return nil, err
	}

	var created *reception.Reception
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		number, err := repos.SequenceRepo().Next(ctx, s.cfg.DocumentPrefix, s.now().Year())
		if err != nil {
			return err
		}

		r, entry, err := reception.NewReception(number.String(), req.SupplierID, req.ResponsibleID, req.PurchaseOrderRef, req.Notes)
		if err != nil {
			return err
		}

		for _, in := range req.Lines {
			if _, err := repos.InventoryGateway().FindByID(ctx, in.ProductID); err != nil {
				return err
			}
			if _, err := r.AddLine(in.ProductID, in.ExpectedQuantity, in.UnitPrice, in.Notes); err != nil {
				return err
			}
		}

		if sourceID != uuid.Nil {
			source, err := repos.ReceptionRepo().FindByID(ctx, sourceID)
			if err != nil {
				return err
			}
			if _, err := r.CopyPendingFrom(source); err != nil {
				return err
			}
		}

		if err := repos.ReceptionRepo().Create(ctx, r); err != nil {
			return err
		}
		for i := range r.Lines {
			if err := repos.DetailRepo().Create(ctx, &r.Lines[i]); err != nil {
				return err
			}
		}
		if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
			return err
		}

		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSequenceAllocation(ctx, s.cfg.DocumentPrefix)
	s.metrics.RecordTransition(ctx, reception.StatePending.String())
	logger.For(ctx, s.logger).Info("Reception created",
		zap.String("reception_id", created.ID.String()),
		zap.String("document_number", created.DocumentNumber),
		zap.Int("lines", len(created.Lines)))
	return created, nil
}

func (s *WorkflowService) checkReferences(ctx context.Context, supplierID, responsibleID uuid.UUID) error {
	if s.resolver == nil {
		return nil
	}
	ok, err := s.resolver.SupplierExists(ctx, supplierID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewNotFoundError(reception.CodeSupplierNotFound, "Supplier "+supplierID.String()+" not found")
	}
	ok, err = s.resolver.ResponsibleExists(ctx, responsibleID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewNotFoundError(reception.CodeUserNotFound, "User "+responsibleID.String()+" not found")
	}
	return nil
}

// createIdempotent runs create at most once per key.
// A replay returns the reception created by the first request; a duplicate
// arriving while the first is still running gets DUPLICATE_REQUEST.
func (s *WorkflowService) createIdempotent(ctx context.Context, span trace.Span, req CreateReceptionRequest) (*ReceptionResponse, error) {
	key := idempotencyKeyPrefix + req.IdempotencyKey

	if resp, ok, err := s.replay(ctx, key); err != nil || ok {
		return resp, err
	}

	reserved, err := s.idempotency.Reserve(ctx, key, s.cfg.IdempotencyTTL)
	if err != nil {
		return nil, s.fail(ctx, span, "create", shared.NewPersistenceError(codeIdempotency, "Idempotency store unavailable", err, true))
	}
	if !reserved {
		if resp, ok, err := s.replay(ctx, key); err != nil || ok {
			return resp, err
		}
		return nil, s.fail(ctx, span, "create", shared.ErrDuplicateRequest)
	}

	r, err := s.create(ctx, req, uuid.Nil)
	if err != nil {
		if relErr := s.idempotency.Release(ctx, key); relErr != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		return nil, s.fail(ctx, span, "create", err)
	}
	if err := s.idempotency.Complete(ctx, key, r.ID.String()); err != nil {
		s.logger.Warn("Failed to record idempotency result", zap.String("key", key), zap.Error(err))
	}

	resp := ToReceptionResponse(r)
	return &resp, nil
}

func (s *WorkflowService) replay(ctx context.Context, key string) (*ReceptionResponse, bool, error) {
	result, found, err := s.idempotency.Lookup(ctx, key)
	if err != nil {
		return nil, false, shared.NewPersistenceError(codeIdempotency, "Idempotency store unavailable", err, true)
	}
	if !found {
		return nil, false, nil
	}
	id, err := uuid.Parse(result)
	if err != nil {
		return nil, false, shared.NewPersistenceError(codeIdempotency, "Corrupt idempotency record", err, false)
	}

	var r *reception.Reception
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var ferr error
		r, ferr = repos.ReceptionRepo().FindByID(ctx, id)
		return ferr
	})
	if err != nil {
		return nil, false, err
	}
	s.logger.Info("Replayed idempotent create", zap.String("reception_id", id.String()))
	resp := ToReceptionResponse(r)
	return &resp, true, nil
}

// ==================== Detail Ledger ====================

// AttachDetail adds a line to a PENDIENTE reception after resolving the product
func (s *WorkflowService) AttachDetail(ctx context.Context, receptionID uuid.UUID, req AddDetailRequest) (*DetailLineResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "attach_detail")
	defer span.End()

	var line *reception.DetailLine
	_, err := s.mutate(ctx, receptionID, func(repos TransactionalRepositories, r *reception.Reception) (*reception.HistoryEntry, error) {
		if err := r.EnsurePending("attach a detail line"); err != nil {
			return nil, err
		}
		if _, err := repos.InventoryGateway().FindByID(ctx, req.ProductID); err != nil {
			return nil, err
		}
		l, err := r.AddLine(req.ProductID, req.ExpectedQuantity, req.UnitPrice, req.Notes)
		if err != nil {
			return nil, err
		}
		line = l
		return nil, repos.DetailRepo().Create(ctx, l)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "attach_detail", err, zap.String("reception_id", receptionID.String()))
	}

	resp := ToDetailLineResponse(line)
	return &resp, nil
}

// RecordReceived captures the received quantity of a line once
func (s *WorkflowService) RecordReceived(ctx context.Context, receptionID, lineID uuid.UUID, req RecordReceivedRequest) (*DetailLineResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "record_received")
	defer span.End()

	if req.ReceivedQuantity == nil {
		return nil, s.fail(ctx, span, "record_received",
			shared.NewValidationError(reception.CodeInvalidQuantity, "Received quantity is required"))
	}

	var line *reception.DetailLine
	_, err := s.mutate(ctx, receptionID, func(repos TransactionalRepositories, r *reception.Reception) (*reception.HistoryEntry, error) {
		l, err := r.RecordReceived(lineID, *req.ReceivedQuantity, req.Notes)
		if err != nil {
			return nil, err
		}
		line = l
		return nil, repos.DetailRepo().Save(ctx, l)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "record_received", err,
			zap.String("reception_id", receptionID.String()),
			zap.String("line_id", lineID.String()))
	}

	resp := ToDetailLineResponse(line)
	return &resp, nil
}

// CorrectReceived rewrites a received quantity with a mandatory reason.
// The correction is kept in the audit trail without changing state.
func (s *WorkflowService) CorrectReceived(ctx context.Context, receptionID, lineID, actor uuid.UUID, req CorrectReceivedRequest) (*DetailLineResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "correct_received")
	defer span.End()

	if req.ReceivedQuantity == nil {
		return nil, s.fail(ctx, span, "correct_received",
			shared.NewValidationError(reception.CodeInvalidQuantity, "Received quantity is required"))
	}

	var line *reception.DetailLine
	_, err := s.mutate(ctx, receptionID, func(repos TransactionalRepositories, r *reception.Reception) (*reception.HistoryEntry, error) {
		current, err := r.Line(lineID)
		if err != nil {
			return nil, err
		}
		var previous any
		if current.HasReceived() {
			previous = current.Received()
		}

		l, err := r.CorrectReceived(lineID, *req.ReceivedQuantity, req.Reason)
		if err != nil {
			return nil, err
		}
		line = l
		if err := repos.DetailRepo().Save(ctx, l); err != nil {
			return nil, err
		}

		if actor == uuid.Nil {
			actor = r.ResponsibleID
		}
		entry := reception.NewHistoryEntry(r.ID, r.State, r.State, actor, req.Reason)
		entry.Metadata = map[string]any{
			"correction": true,
			"line_id":    lineID.String(),
			"previous":   previous,
			"corrected":  *req.ReceivedQuantity,
		}
		return entry, nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "correct_received", err,
			zap.String("reception_id", receptionID.String()),
			zap.String("line_id", lineID.String()))
	}

	logger.For(ctx, s.logger).Info("Received quantity corrected",
		zap.String("reception_id", receptionID.String()),
		zap.String("line_id", lineID.String()),
		zap.Int("received", *req.ReceivedQuantity))
	resp := ToDetailLineResponse(line)
	return &resp, nil
}

// RemoveLine deletes a line from a PENDIENTE reception
func (s *WorkflowService) RemoveLine(ctx context.Context, receptionID, lineID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "remove_line")
	defer span.End()

	_, err := s.mutate(ctx, receptionID, func(repos TransactionalRepositories, r *reception.Reception) (*reception.HistoryEntry, error) {
		if err := r.RemoveLine(lineID); err != nil {
			return nil, err
		}
		return nil, repos.DetailRepo().Delete(ctx, lineID)
	})
	if err != nil {
		return s.fail(ctx, span, "remove_line", err,
			zap.String("reception_id", receptionID.String()),
			zap.String("line_id", lineID.String()))
	}
	return nil
}

// CopyPendingLines copies the source's pending lines into a PENDIENTE target
func (s *WorkflowService) CopyPendingLines(ctx context.Context, sourceID, targetID uuid.UUID) ([]DetailLineResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "copy_pending_lines")
	defer span.End()

	if sourceID == targetID {
		return nil, s.fail(ctx, span, "copy_pending_lines",
			shared.NewIllegalTransitionError(reception.CodeSameReception, "Cannot copy lines of a reception into itself"))
	}

	var copied []reception.DetailLine
	_, err := s.mutate(ctx, targetID, func(repos TransactionalRepositories, target *reception.Reception) (*reception.HistoryEntry, error) {
		source, err := repos.ReceptionRepo().FindByID(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		lines, err := target.CopyPendingFrom(source)
		if err != nil {
			return nil, err
		}
		for i := range lines {
			if err := repos.DetailRepo().Create(ctx, &lines[i]); err != nil {
				return nil, err
			}
		}
		copied = lines
		return nil, nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "copy_pending_lines", err,
			zap.String("source_id", sourceID.String()),
			zap.String("target_id", targetID.String()))
	}
	return ToDetailLineResponses(copied), nil
}

// ==================== Transitions ====================

// Verify moves a PENDIENTE reception with all quantities captured to VERIFICADO
func (s *WorkflowService) Verify(ctx context.Context, id, actor uuid.UUID, notes string) (*ReceptionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "verify")
	defer span.End()

	r, err := s.mutate(ctx, id, func(_ TransactionalRepositories, r *reception.Reception) (*reception.HistoryEntry, error) {
		return r.Verify(actor, notes)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "verify", err, zap.String("reception_id", id.String()))
	}
	return s.transitioned(ctx, r), nil
}

// Accept applies every line's received quantity to stock and moves the
// reception to ACEPTADO. Any failure rolls back all increases.
func (s *WorkflowService) Accept(ctx context.Context, id, actor uuid.UUID, notes string) (*ReceptionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "accept")
	defer span.End()

	var units int64
	r, err := s.mutate(ctx, id, func(repos TransactionalRepositories, r *reception.Reception) (*reception.HistoryEntry, error) {
		// guard is evaluated under the row lock so a retried accept cannot apply stock twice
		entry, err := r.Accept(actor, notes)
		if err != nil {
			return nil, err
		}
		units = 0
		for i := range r.Lines {
			line := &r.Lines[i]
			qty := int64(line.Received())
			if _, err := repos.InventoryGateway().ApplyIncrease(ctx, line.ProductID, qty, r.ID); err != nil {
				return nil, err
			}
			units += qty
		}
		if err := repos.DetailRepo().SetStateForReception(ctx, r.ID, reception.LineStateAccepted); err != nil {
			return nil, err
		}
		return entry, nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "accept", err, zap.String("reception_id", id.String()))
	}

	s.metrics.RecordUnitsReceived(ctx, units)
	telemetry.SetAttributes(span, "units_applied", units)
	return s.transitioned(ctx, r), nil
}

// Reject moves a PENDIENTE or VERIFICADO reception to RECHAZADO without touching stock
func (s *WorkflowService) Reject(ctx context.Context, id, actor uuid.UUID, reason string) (*ReceptionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "reject")
	defer span.End()

	r, err := s.mutate(ctx, id, func(repos TransactionalRepositories, r *reception.Reception) (*reception.HistoryEntry, error) {
		entry, err := r.Reject(actor, reason)
		if err != nil {
			return nil, err
		}
		if err := repos.DetailRepo().SetStateForReception(ctx, r.ID, reception.LineStateRejected); err != nil {
			return nil, err
		}
		return entry, nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "reject", err, zap.String("reception_id", id.String()))
	}
	return s.transitioned(ctx, r), nil
}

// Annul moves a PENDIENTE or VERIFICADO reception to ANULADO
func (s *WorkflowService) Annul(ctx context.Context, id, actor uuid.UUID, reason string) (*ReceptionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "annul")
	defer span.End()

	r, err := s.mutate(ctx, id, func(_ TransactionalRepositories, r *reception.Reception) (*reception.HistoryEntry, error) {
		return r.Annul(actor, reason)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "annul", err, zap.String("reception_id", id.String()))
	}
	return s.transitioned(ctx, r), nil
}

// Delete removes a PENDIENTE reception together with its lines and history
func (s *WorkflowService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "delete")
	defer span.End()

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReceptionRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := r.EnsureDeletable(); err != nil {
			return err
		}
		return repos.ReceptionRepo().Delete(ctx, id)
	})
	if err != nil {
		return s.fail(ctx, span, "delete", err, zap.String("reception_id", id.String()))
	}

	logger.For(ctx, s.logger).Info("Reception deleted", zap.String("reception_id", id.String()))
	return nil
}

// ==================== Helpers ====================

// mutate locks the reception row, applies fn, saves the header and appends the
// returned history entry, all in one transaction.
func (s *WorkflowService) mutate(
	ctx context.Context,
	id uuid.UUID,
	fn func(repos TransactionalRepositories, r *reception.Reception) (*reception.HistoryEntry, error),
) (*reception.Reception, error) {
	var result *reception.Reception
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReceptionRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		entry, err := fn(repos, r)
		if err != nil {
			return err
		}
		if err := repos.ReceptionRepo().Save(ctx, r); err != nil {
			return err
		}
		if entry != nil {
			if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
				return err
			}
		}
		result = r
		return nil
	})
	return result, err
}

func (s *WorkflowService) transitioned(ctx context.Context, r *reception.Reception) *ReceptionResponse {
	s.metrics.RecordTransition(ctx, r.State.String())
	logger.For(ctx, s.logger).Info("Reception state changed",
		zap.String("reception_id", r.ID.String()),
		zap.String("document_number", r.DocumentNumber),
		zap.String("state", r.State.String()))
	resp := ToReceptionResponse(r)
	return &resp
}

// fail logs and records err on the span. Guard failures are logged at warn,
// store failures at error with the cause. Errors outside the taxonomy are
// wrapped as persistence errors.
func (s *WorkflowService) fail(ctx context.Context, span trace.Span, op string, err error, fields ...zap.Field) error {
	if shared.KindOf(err) == "" {
		err = shared.NewPersistenceError(codeStoreFailure, "Reception store failure", err, false)
	}
	telemetry.RecordError(span, err)

	fields = append(fields, zap.String("operation", op))
	l := logger.For(ctx, s.logger)
	if shared.IsPersistence(err) {
		l.Error("Reception operation failed", append(fields, zap.Error(err))...)
	} else {
		l.Warn("Reception operation rejected", append(fields, zap.String("error", err.Error()))...)
	}
	return err
}
