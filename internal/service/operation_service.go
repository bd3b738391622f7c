package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/apperror"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/cache"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/repository"
	ws "github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/websocket"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// validateMaxAttempts bounds the retry loop around lock/serialization conflicts.
const validateMaxAttempts = 3

// DTOs
type OperationLineRequest struct {
	ProductID        string  `json:"product_id" binding:"required"`
	ExpectedQuantity int     `json:"expected_quantity" binding:"gte=0"`
	ActualQuantity   *int    `json:"actual_quantity" binding:"omitempty,gte=0"`
	UnitPrice        float64 `json:"unit_price" binding:"gte=0"`
}

type CreateOperationRequest struct {
	Kind                  string                 `json:"kind" binding:"required,oneof=RECEIPT DELIVERY TRANSFER ADJUSTMENT"`
	Reference             string                 `json:"reference"`
	AdjustmentReason      string                 `json:"adjustment_reason" binding:"omitempty,oneof=FOUND DAMAGE LOSS"`
	SourceLocationID      string                 `json:"source_location_id"`
	DestinationLocationID string                 `json:"destination_location_id"`
	ScheduledDate         *time.Time             `json:"scheduled_date"`
	Note                  string                 `json:"note"`
	Lines                 []OperationLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type UpdateOperationRequest struct {
	Reference     *string                `json:"reference"`
	ScheduledDate *time.Time             `json:"scheduled_date"`
	Note          *string                `json:"note"`
	Lines         []OperationLineRequest `json:"lines" binding:"omitempty,min=1,dive"`
	// ActualQuantities overrides actual quantities on existing lines, keyed by
	// line id. This is the only field accepted once the operation is READY.
	ActualQuantities map[string]int `json:"actual_quantities" binding:"omitempty,dive,gte=0"`
}

type OperationLineResponse struct {
	ID               string  `json:"id"`
	ProductID        string  `json:"product_id"`
	ExpectedQuantity int     `json:"expected_quantity"`
	ActualQuantity   int     `json:"actual_quantity"`
	UnitPrice        float64 `json:"unit_price"`
}

type OperationResponse struct {
	ID                    string                  `json:"id"`
	Reference             string                  `json:"reference"`
	Kind                  string                  `json:"kind"`
	Status                string                  `json:"status"`
	AdjustmentReason      string                  `json:"adjustment_reason,omitempty"`
	SourceLocationID      *string                 `json:"source_location_id"`
	DestinationLocationID *string                 `json:"destination_location_id"`
	ScheduledDate         *time.Time              `json:"scheduled_date"`
	CompletedDate         *time.Time              `json:"completed_date"`
	Note                  string                  `json:"note"`
	ValuationTotal        string                  `json:"valuation_total"`
	Lines                 []OperationLineResponse `json:"lines"`
	CreatedAt             time.Time               `json:"created_at"`
	UpdatedAt             time.Time               `json:"updated_at"`
}

// OperationService owns the operation status state machine and the atomic
// application of stock deltas at validation time.
type OperationService interface {
	Create(ctx context.Context, userID string, req CreateOperationRequest) (OperationResponse, error)
	Get(ctx context.Context, id string) (OperationResponse, error)
	List(ctx context.Context, filter repository.OperationFilter) ([]OperationResponse, int64, error)
	Update(ctx context.Context, userID, id string, req UpdateOperationRequest) (OperationResponse, error)
	Delete(ctx context.Context, userID, id string) error
	Confirm(ctx context.Context, userID, id string) (OperationResponse, error)
	MarkReady(ctx context.Context, userID, id string) (OperationResponse, error)
	Validate(ctx context.Context, userID, id string) (OperationResponse, error)
	Cancel(ctx context.Context, userID, id string) (OperationResponse, error)
}

type operationService struct {
	operationRepo repository.OperationRepository
	stockRepo     repository.StockRepository
	productRepo   repository.ProductRepository
	locationRepo  repository.LocationRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	hub           *ws.Hub
	cache         cache.Client
	log           *logger.Logger
}

func NewOperationService(
	operationRepo repository.OperationRepository,
	stockRepo repository.StockRepository,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
	cacheClient cache.Client,
	log *logger.Logger,
) OperationService {
	return &operationService{
		operationRepo: operationRepo,
		stockRepo:     stockRepo,
		productRepo:   productRepo,
		locationRepo:  locationRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		hub:           hub,
		cache:         cacheClient,
		log:           log,
	}
}

func (s *operationService) Create(ctx context.Context, userID string, req CreateOperationRequest) (OperationResponse, error) {
	if req.Kind == model.KindAdjustment && req.AdjustmentReason == "" {
		return OperationResponse{}, apperror.NewValidation("adjustment_reason is required for adjustments")
	}
	if req.Kind != model.KindAdjustment && req.AdjustmentReason != "" {
		return OperationResponse{}, apperror.NewValidation("adjustment_reason is only valid for adjustments")
	}

	sourceID, destID, err := s.resolveLocations(ctx, req.Kind, req.AdjustmentReason, req.SourceLocationID, req.DestinationLocationID)
	if err != nil {
		return OperationResponse{}, err
	}

	lines, err := s.buildLines(ctx, req.Kind, req.Lines)
	if err != nil {
		return OperationResponse{}, err
	}

	op := model.Operation{
		Kind:                  req.Kind,
		Status:                model.StatusDraft,
		AdjustmentReason:      req.AdjustmentReason,
		SourceLocationID:      sourceID,
		DestinationLocationID: destID,
		ScheduledDate:         req.ScheduledDate,
		Note:                  req.Note,
	}
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		op.CreatedBy = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		reference := req.Reference
		if reference == "" {
			count, countErr := s.operationRepo.CountByKind(txCtx, req.Kind)
			if countErr != nil {
				return apperror.NewInternal("failed to generate reference", countErr)
			}
			reference = fmt.Sprintf("%s-%05d", model.ReferencePrefix(req.Kind), count+1)
		}
		op.Reference = reference

		if createErr := s.operationRepo.Create(txCtx, &op); createErr != nil {
			if isUniqueViolation(createErr) {
				return apperror.NewConflict("reference %q already exists for kind %s", reference, req.Kind)
			}
			return apperror.NewInternal("failed to create operation", createErr)
		}

		for i := range lines {
			lines[i].OperationID = op.ID
			if lineErr := s.operationRepo.CreateLine(txCtx, &lines[i]); lineErr != nil {
				return apperror.NewInternal("failed to create operation line", lineErr)
			}
		}

		return s.audit(txCtx, userID, model.ActionCreateOperation, op.ID.String(), op.Reference, map[string]interface{}{
			"kind":   op.Kind,
			"status": op.Status,
			"lines":  len(lines),
		})
	})
	if err != nil {
		return OperationResponse{}, err
	}

	return s.reload(ctx, op.ID)
}

func (s *operationService) Get(ctx context.Context, id string) (OperationResponse, error) {
	opID, err := uuid.Parse(id)
	if err != nil {
		return OperationResponse{}, apperror.NewValidation("invalid operation id")
	}
	return s.reload(ctx, opID)
}

func (s *operationService) List(ctx context.Context, filter repository.OperationFilter) ([]OperationResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	ops, total, err := s.operationRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperror.NewInternal("failed to list operations", err)
	}

	res := make([]OperationResponse, 0, len(ops))
	for i := range ops {
		res = append(res, toOperationResponse(&ops[i]))
	}
	return res, total, nil
}

func (s *operationService) Update(ctx context.Context, userID, id string, req UpdateOperationRequest) (OperationResponse, error) {
	op, err := s.load(ctx, id)
	if err != nil {
		return OperationResponse{}, err
	}
	switch {
	case op.Editable():
	case op.Status == model.StatusReady:
		// Reference, dates and the line set are frozen once READY; only the
		// actual quantities may still change until the operation is validated.
		if req.Reference != nil || req.ScheduledDate != nil || req.Note != nil || req.Lines != nil {
			return OperationResponse{}, apperror.NewInvalidStatef("operation %s is %s; only actual quantities may still change", op.Reference, op.Status)
		}
		if len(req.ActualQuantities) == 0 {
			return OperationResponse{}, apperror.NewValidation("no actual quantities provided")
		}
	default:
		return OperationResponse{}, apperror.NewInvalidStatef("operation %s is %s and can no longer be edited", op.Reference, op.Status)
	}

	if req.Lines != nil && len(req.ActualQuantities) > 0 {
		return OperationResponse{}, apperror.NewValidation("provide either lines or actual_quantities, not both")
	}

	actuals, err := resolveActualOverrides(op, req.ActualQuantities)
	if err != nil {
		return OperationResponse{}, err
	}

	if req.Reference != nil && *req.Reference != "" {
		op.Reference = *req.Reference
	}
	if req.ScheduledDate != nil {
		op.ScheduledDate = req.ScheduledDate
	}
	if req.Note != nil {
		op.Note = *req.Note
	}

	var lines []model.OperationLine
	if req.Lines != nil {
		lines, err = s.buildLines(ctx, op.Kind, req.Lines)
		if err != nil {
			return OperationResponse{}, err
		}
	}

	editable := op.Editable()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if editable {
			if saveErr := s.operationRepo.Save(txCtx, op); saveErr != nil {
				if isUniqueViolation(saveErr) {
					return apperror.NewConflict("reference %q already exists for kind %s", op.Reference, op.Kind)
				}
				return apperror.NewInternal("failed to update operation", saveErr)
			}
			if lines != nil {
				if replaceErr := s.operationRepo.ReplaceLines(txCtx, op.ID, lines); replaceErr != nil {
					return apperror.NewInternal("failed to replace operation lines", replaceErr)
				}
			}
		}
		for lineID, qty := range actuals {
			if updErr := s.operationRepo.UpdateLineActual(txCtx, lineID, qty); updErr != nil {
				return apperror.NewInternal("failed to update actual quantity", updErr)
			}
		}
		return s.audit(txCtx, userID, model.ActionUpdateOperation, op.ID.String(), op.Reference, map[string]interface{}{
			"lines_replaced":  lines != nil,
			"actuals_updated": len(actuals),
		})
	})
	if err != nil {
		return OperationResponse{}, err
	}

	return s.reload(ctx, op.ID)
}

// resolveActualOverrides maps raw line ids to lines of the operation, rejecting
// ids that belong to other operations.
func resolveActualOverrides(op *model.Operation, overrides map[string]int) (map[uuid.UUID]int, error) {
	if len(overrides) == 0 {
		return nil, nil
	}
	known := make(map[uuid.UUID]bool, len(op.Lines))
	for _, line := range op.Lines {
		known[line.ID] = true
	}
	out := make(map[uuid.UUID]int, len(overrides))
	for raw, qty := range overrides {
		lineID, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.NewValidation("invalid line id %q", raw)
		}
		if !known[lineID] {
			return nil, apperror.NewValidation("line %s does not belong to operation %s", raw, op.Reference)
		}
		out[lineID] = qty
	}
	return out, nil
}

func (s *operationService) Delete(ctx context.Context, userID, id string) error {
	op, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if op.Status != model.StatusDraft {
		return apperror.NewInvalidStatef("only draft operations may be deleted; %s is %s", op.Reference, op.Status)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.operationRepo.Delete(txCtx, op.ID); delErr != nil {
			return apperror.NewInternal("failed to delete operation", delErr)
		}
		return s.audit(txCtx, userID, model.ActionDeleteOperation, op.ID.String(), op.Reference, map[string]interface{}{
			"kind": op.Kind,
		})
	})
}

// Confirm moves a draft operation to WAITING after resolving every reference.
func (s *operationService) Confirm(ctx context.Context, userID, id string) (OperationResponse, error) {
	op, err := s.load(ctx, id)
	if err != nil {
		return OperationResponse{}, err
	}
	if !model.KindAllowsTransition(op.Kind, op.Status, model.StatusWaiting) {
		return OperationResponse{}, apperror.NewInvalidState(op.Kind, op.Status, model.StatusWaiting)
	}
	if len(op.Lines) == 0 {
		return OperationResponse{}, apperror.NewValidation("operation %s has no lines", op.Reference)
	}

	// Re-resolve references: products and locations may have been deleted
	// since the draft was created.
	if resolveErr := s.checkReferences(ctx, op); resolveErr != nil {
		return OperationResponse{}, resolveErr
	}
	for _, line := range op.Lines {
		if op.Kind != model.KindAdjustment && line.ExpectedQuantity <= 0 {
			return OperationResponse{}, apperror.NewValidation("expected quantity must be positive for %s lines", strings.ToLower(op.Kind))
		}
	}

	if err := s.transition(ctx, userID, op, model.StatusWaiting, model.ActionConfirmOperation); err != nil {
		return OperationResponse{}, err
	}
	return s.reload(ctx, op.ID)
}

// MarkReady moves a delivery or transfer to READY once the source location
// holds enough stock for every line. Receipts and adjustments skip READY.
func (s *operationService) MarkReady(ctx context.Context, userID, id string) (OperationResponse, error) {
	op, err := s.load(ctx, id)
	if err != nil {
		return OperationResponse{}, err
	}
	if !model.KindAllowsTransition(op.Kind, op.Status, model.StatusReady) {
		return OperationResponse{}, apperror.NewInvalidState(op.Kind, op.Status, model.StatusReady)
	}

	// Demand is aggregated per product: several lines of the same product must
	// be covered by the source together, not line by line.
	demand := make(map[uuid.UUID]int)
	order := make([]uuid.UUID, 0, len(op.Lines))
	for _, line := range op.Lines {
		if _, seen := demand[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		demand[line.ProductID] += line.ActualQuantity
	}
	for _, productID := range order {
		available := 0
		level, levelErr := s.stockRepo.FindLevel(ctx, productID, *op.SourceLocationID)
		if levelErr == nil {
			available = level.Quantity
		} else if !errors.Is(levelErr, gorm.ErrRecordNotFound) {
			return OperationResponse{}, apperror.NewInternal("failed to read stock level", levelErr)
		}
		if available < demand[productID] {
			return OperationResponse{}, apperror.NewInsufficientStock(productID, *op.SourceLocationID, available, demand[productID])
		}
	}

	if err := s.transition(ctx, userID, op, model.StatusReady, model.ActionReadyOperation); err != nil {
		return OperationResponse{}, err
	}
	return s.reload(ctx, op.ID)
}

// Validate is the commit point: it applies every line's stock delta as one
// atomic unit, stamps CompletedDate and moves the operation to DONE. Lock or
// serialization conflicts are retried a bounded number of times.
func (s *operationService) Validate(ctx context.Context, userID, id string) (OperationResponse, error) {
	opID, err := uuid.Parse(id)
	if err != nil {
		return OperationResponse{}, apperror.NewValidation("invalid operation id")
	}

	var lastErr error
	for attempt := 1; attempt <= validateMaxAttempts; attempt++ {
		lastErr = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			return s.validateInTx(txCtx, userID, opID)
		})
		if lastErr == nil {
			break
		}
		if !isSerializationFailure(lastErr) {
			return OperationResponse{}, lastErr
		}
		s.log.Warn().Str("operation_id", id).Int("attempt", attempt).Msg("validation conflicted, retrying")
	}
	if lastErr != nil {
		return OperationResponse{}, apperror.NewRetryableConflict("validation of operation %s kept conflicting with concurrent stock updates", id)
	}

	res, err := s.reload(ctx, opID)
	if err != nil {
		return OperationResponse{}, err
	}

	if s.hub != nil {
		s.hub.Publish(ws.EventOperationValidated, map[string]interface{}{
			"operation_id": res.ID,
			"reference":    res.Reference,
			"kind":         res.Kind,
		})
		s.hub.Publish(ws.EventStockUpdated, map[string]interface{}{
			"operation_id": res.ID,
		})
	}
	s.invalidateDashboard(ctx)

	return res, nil
}

// validateInTx runs entirely inside one database transaction. The operation
// row lock serializes concurrent validations of the same operation; stock and
// product row locks are taken in sorted key order to avoid lock-ordering
// deadlocks between operations touching overlapping keys.
func (s *operationService) validateInTx(txCtx context.Context, userID string, opID uuid.UUID) error {
	op, err := s.operationRepo.FindByIDForUpdate(txCtx, opID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound("operation", opID.String())
		}
		return apperror.NewInternal("failed to load operation", err)
	}

	if !model.KindAllowsTransition(op.Kind, op.Status, model.StatusDone) {
		return apperror.NewInvalidState(op.Kind, op.Status, model.StatusDone)
	}
	if len(op.Lines) == 0 {
		return apperror.NewValidation("operation %s has no lines", op.Reference)
	}

	// 1. Per-line checks + full delta set.
	type deltaKey struct {
		ProductID  uuid.UUID
		LocationID uuid.UUID
	}
	totals := make(map[deltaKey]int)
	productTotals := make(map[uuid.UUID]int)
	for _, line := range op.Lines {
		if line.ActualQuantity < 0 {
			return apperror.NewValidation("negative actual quantity on line %s", line.ID)
		}
		if line.ActualQuantity == 0 && op.Kind != model.KindAdjustment {
			return apperror.NewValidation("zero-quantity lines are not allowed for %s operations", strings.ToLower(op.Kind))
		}
		for _, d := range op.LineDeltas(line) {
			totals[deltaKey{d.ProductID, d.LocationID}] += d.Quantity
			productTotals[d.ProductID] += d.Quantity
		}
	}

	// 2. Deterministic lock order over the affected (product, location) keys.
	keys := make([]deltaKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ProductID != keys[j].ProductID {
			return keys[i].ProductID.String() < keys[j].ProductID.String()
		}
		return keys[i].LocationID.String() < keys[j].LocationID.String()
	})

	// 3. Lock, re-check non-negativity, apply, ledger.
	for _, key := range keys {
		delta := totals[key]

		level, levelErr := s.stockRepo.FindLevelForUpdate(txCtx, key.ProductID, key.LocationID)
		if levelErr != nil {
			if !errors.Is(levelErr, gorm.ErrRecordNotFound) {
				return apperror.NewInternal("failed to lock stock level", levelErr)
			}
			if delta < 0 {
				return apperror.NewInsufficientStock(key.ProductID, key.LocationID, 0, -delta)
			}
			level = &model.StockLevel{ProductID: key.ProductID, LocationID: key.LocationID, Quantity: 0}
			if createErr := s.stockRepo.CreateLevel(txCtx, level); createErr != nil {
				return apperror.NewInternal("failed to create stock level", createErr)
			}
		}

		newQuantity := level.Quantity + delta
		if newQuantity < 0 {
			return apperror.NewInsufficientStock(key.ProductID, key.LocationID, level.Quantity, -delta)
		}

		if updateErr := s.stockRepo.UpdateQuantity(txCtx, level.ID, newQuantity); updateErr != nil {
			return apperror.NewInternal("failed to update stock level", updateErr)
		}

		entry := &model.StockEntry{
			ProductID:       key.ProductID,
			LocationID:      key.LocationID,
			OperationID:     &op.ID,
			OperationKind:   op.Kind,
			QuantityChanged: delta,
			StockAfter:      newQuantity,
		}
		if entryErr := s.stockRepo.CreateEntry(txCtx, entry); entryErr != nil {
			return apperror.NewInternal("failed to record stock entry", entryErr)
		}
	}

	// 4. Keep the product aggregate in step, again in sorted order.
	productIDs := make([]uuid.UUID, 0, len(productTotals))
	for pid := range productTotals {
		productIDs = append(productIDs, pid)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i].String() < productIDs[j].String() })
	for _, pid := range productIDs {
		if productTotals[pid] == 0 {
			continue
		}
		product, prodErr := s.productRepo.FindByIDForUpdate(txCtx, pid)
		if prodErr != nil {
			if errors.Is(prodErr, gorm.ErrRecordNotFound) {
				return apperror.NewNotFound("product", pid.String())
			}
			return apperror.NewInternal("failed to lock product", prodErr)
		}
		if stockErr := s.productRepo.UpdateStock(txCtx, pid, product.CurrentStock+productTotals[pid]); stockErr != nil {
			return apperror.NewInternal("failed to update product stock", stockErr)
		}
	}

	// 5. Stamp completion.
	now := time.Now()
	op.Status = model.StatusDone
	op.CompletedDate = &now
	if saveErr := s.operationRepo.Save(txCtx, op); saveErr != nil {
		return apperror.NewInternal("failed to complete operation", saveErr)
	}

	return s.audit(txCtx, userID, model.ActionValidateOperation, op.ID.String(), op.Reference, map[string]interface{}{
		"kind":  op.Kind,
		"lines": len(op.Lines),
	})
}

// Cancel is permitted any time before DONE; no stock deltas are applied.
func (s *operationService) Cancel(ctx context.Context, userID, id string) (OperationResponse, error) {
	op, err := s.load(ctx, id)
	if err != nil {
		return OperationResponse{}, err
	}
	if !model.KindAllowsTransition(op.Kind, op.Status, model.StatusCancelled) {
		return OperationResponse{}, apperror.NewInvalidState(op.Kind, op.Status, model.StatusCancelled)
	}

	if err := s.transition(ctx, userID, op, model.StatusCancelled, model.ActionCancelOperation); err != nil {
		return OperationResponse{}, err
	}
	return s.reload(ctx, op.ID)
}

// --- helpers ---

func (s *operationService) load(ctx context.Context, id string) (*model.Operation, error) {
	opID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NewValidation("invalid operation id")
	}
	op, err := s.operationRepo.FindByIDWithLines(ctx, opID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("operation", id)
		}
		return nil, apperror.NewInternal("failed to load operation", err)
	}
	return op, nil
}

func (s *operationService) reload(ctx context.Context, id uuid.UUID) (OperationResponse, error) {
	op, err := s.operationRepo.FindByIDWithLines(ctx, id)
	if err != nil {
		return OperationResponse{}, apperror.NewInternal("failed to reload operation", err)
	}
	return toOperationResponse(op), nil
}

// transition flips the status inside a transaction, writes the audit row and
// pushes a status event.
func (s *operationService) transition(ctx context.Context, userID string, op *model.Operation, to, action string) error {
	from := op.Status
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.operationRepo.UpdateStatus(txCtx, op.ID, to); updateErr != nil {
			return apperror.NewInternal("failed to update operation status", updateErr)
		}
		return s.audit(txCtx, userID, action, op.ID.String(), op.Reference, map[string]interface{}{
			"from": from,
			"to":   to,
		})
	})
	if err != nil {
		return err
	}
	op.Status = to

	if s.hub != nil {
		s.hub.Publish(ws.EventOperationStatusChanged, map[string]interface{}{
			"operation_id": op.ID.String(),
			"reference":    op.Reference,
			"from":         from,
			"to":           to,
		})
	}
	return nil
}

func (s *operationService) resolveLocations(ctx context.Context, kind, reason, sourceID, destID string) (*uuid.UUID, *uuid.UUID, error) {
	var source, dest *uuid.UUID

	if model.RequiresSource(kind, reason) {
		id, err := s.resolveLocation(ctx, sourceID, "source_location_id")
		if err != nil {
			return nil, nil, err
		}
		source = id
	}
	if model.RequiresDestination(kind, reason) {
		id, err := s.resolveLocation(ctx, destID, "destination_location_id")
		if err != nil {
			return nil, nil, err
		}
		dest = id
	}
	if kind == model.KindTransfer && source != nil && dest != nil && *source == *dest {
		return nil, nil, apperror.NewValidation("transfer source and destination must differ")
	}
	return source, dest, nil
}

func (s *operationService) resolveLocation(ctx context.Context, raw, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, apperror.NewValidation("%s is required", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.NewValidation("invalid %s", field)
	}
	if _, err := s.locationRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("location", raw)
		}
		return nil, apperror.NewInternal("failed to resolve location", err)
	}
	return &id, nil
}

func (s *operationService) buildLines(ctx context.Context, kind string, reqs []OperationLineRequest) ([]model.OperationLine, error) {
	if len(reqs) == 0 {
		return nil, apperror.NewValidation("at least one line is required")
	}
	lines := make([]model.OperationLine, 0, len(reqs))
	for _, lr := range reqs {
		pid, err := uuid.Parse(lr.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product_id %q", lr.ProductID)
		}
		if _, err := s.productRepo.FindByID(ctx, pid); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NewNotFound("product", lr.ProductID)
			}
			return nil, apperror.NewInternal("failed to resolve product", err)
		}
		if kind != model.KindAdjustment && lr.ExpectedQuantity <= 0 {
			return nil, apperror.NewValidation("expected quantity must be positive for %s lines", strings.ToLower(kind))
		}
		if lr.ExpectedQuantity < 0 {
			return nil, apperror.NewValidation("expected quantity must not be negative")
		}

		actual := lr.ExpectedQuantity
		if lr.ActualQuantity != nil {
			actual = *lr.ActualQuantity
		}
		if actual < 0 {
			return nil, apperror.NewValidation("actual quantity must not be negative")
		}

		lines = append(lines, model.OperationLine{
			ProductID:        pid,
			ExpectedQuantity: lr.ExpectedQuantity,
			ActualQuantity:   actual,
			UnitPrice:        decimal.NewFromFloat(lr.UnitPrice),
		})
	}
	return lines, nil
}

func (s *operationService) checkReferences(ctx context.Context, op *model.Operation) error {
	for _, locID := range []*uuid.UUID{op.SourceLocationID, op.DestinationLocationID} {
		if locID == nil {
			continue
		}
		if _, err := s.locationRepo.FindByID(ctx, *locID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NewValidation("location %s no longer exists", locID)
			}
			return apperror.NewInternal("failed to resolve location", err)
		}
	}
	for _, line := range op.Lines {
		if _, err := s.productRepo.FindByID(ctx, line.ProductID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NewValidation("product %s no longer exists", line.ProductID)
			}
			return apperror.NewInternal("failed to resolve product", err)
		}
	}
	return nil
}

func (s *operationService) audit(ctx context.Context, userID, action, entityID, entityName string, details map[string]interface{}) error {
	return auditEntry(ctx, s.auditRepo, userID, action, entityID, entityName, details)
}

func (s *operationService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate dashboard cache")
	}
}

func toOperationResponse(op *model.Operation) OperationResponse {
	lines := make([]OperationLineResponse, 0, len(op.Lines))
	for _, line := range op.Lines {
		price, _ := line.UnitPrice.Float64()
		lines = append(lines, OperationLineResponse{
			ID:               line.ID.String(),
			ProductID:        line.ProductID.String(),
			ExpectedQuantity: line.ExpectedQuantity,
			ActualQuantity:   line.ActualQuantity,
			UnitPrice:        price,
		})
	}

	var sourceID, destID *string
	if op.SourceLocationID != nil {
		s := op.SourceLocationID.String()
		sourceID = &s
	}
	if op.DestinationLocationID != nil {
		d := op.DestinationLocationID.String()
		destID = &d
	}

	return OperationResponse{
		ID:                    op.ID.String(),
		Reference:             op.Reference,
		Kind:                  op.Kind,
		Status:                op.Status,
		AdjustmentReason:      op.AdjustmentReason,
		SourceLocationID:      sourceID,
		DestinationLocationID: destID,
		ScheduledDate:         op.ScheduledDate,
		CompletedDate:         op.CompletedDate,
		Note:                  op.Note,
		ValuationTotal:        op.ValuationTotal().StringFixed(2),
		Lines:                 lines,
		CreatedAt:             op.CreatedAt,
		UpdatedAt:             op.UpdatedAt,
	}
}

// isSerializationFailure detects Postgres deadlock/serialization aborts that
// are safe to retry from the top of the validation transaction.
func isSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value")
}
