package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/apperror"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/repository"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// The fakes below keep all state behind one mutex. The fake transaction
// manager holds that mutex for the whole transaction body, which mirrors the
// serialization the database row locks provide in production; repository
// calls outside a transaction take it per call.

type txCtxKey struct{}

type levelKey struct {
	product  uuid.UUID
	location uuid.UUID
}

type fixture struct {
	mu        sync.Mutex
	ops       map[uuid.UUID]*model.Operation
	products  map[uuid.UUID]*model.Product
	locations map[uuid.UUID]*model.Location
	levels    map[levelKey]*model.StockLevel
	levelByID map[uuid.UUID]*model.StockLevel
	entries   []model.StockEntry
	audits    []model.AuditLog

	svc OperationService
}

func (f *fixture) lock(ctx context.Context) func() {
	if ctx.Value(txCtxKey{}) != nil {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

type fakeTxManager struct{ f *fixture }

func (m *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.f.mu.Lock()
	defer m.f.mu.Unlock()
	return fn(context.WithValue(ctx, txCtxKey{}, true))
}

// --- operation repository fake ---

type fakeOperationRepo struct{ f *fixture }

func copyOperation(op *model.Operation) *model.Operation {
	cp := *op
	cp.Lines = append([]model.OperationLine(nil), op.Lines...)
	return &cp
}

func (r *fakeOperationRepo) Create(ctx context.Context, op *model.Operation) error {
	defer r.f.lock(ctx)()
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	for existing := range r.f.ops {
		if r.f.ops[existing].Kind == op.Kind && r.f.ops[existing].Reference == op.Reference {
			return errors.New("duplicate key value violates unique constraint \"idx_operations_kind_reference\"")
		}
	}
	r.f.ops[op.ID] = copyOperation(op)
	return nil
}

func (r *fakeOperationRepo) CreateLine(ctx context.Context, line *model.OperationLine) error {
	defer r.f.lock(ctx)()
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	op, ok := r.f.ops[line.OperationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	op.Lines = append(op.Lines, *line)
	return nil
}

func (r *fakeOperationRepo) Save(ctx context.Context, op *model.Operation) error {
	defer r.f.lock(ctx)()
	existing, ok := r.f.ops[op.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := copyOperation(op)
	cp.Lines = existing.Lines // Save omits lines
	r.f.ops[op.ID] = cp
	return nil
}

func (r *fakeOperationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	defer r.f.lock(ctx)()
	op, ok := r.f.ops[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	op.Status = status
	return nil
}

func (r *fakeOperationRepo) ReplaceLines(ctx context.Context, opID uuid.UUID, lines []model.OperationLine) error {
	defer r.f.lock(ctx)()
	op, ok := r.f.ops[opID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	op.Lines = nil
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
		lines[i].OperationID = opID
		op.Lines = append(op.Lines, lines[i])
	}
	return nil
}

func (r *fakeOperationRepo) UpdateLineActual(ctx context.Context, lineID uuid.UUID, actual int) error {
	defer r.f.lock(ctx)()
	for _, op := range r.f.ops {
		for i := range op.Lines {
			if op.Lines[i].ID == lineID {
				op.Lines[i].ActualQuantity = actual
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeOperationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.f.lock(ctx)()
	delete(r.f.ops, id)
	return nil
}

func (r *fakeOperationRepo) FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Operation, error) {
	defer r.f.lock(ctx)()
	op, ok := r.f.ops[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyOperation(op), nil
}

func (r *fakeOperationRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Operation, error) {
	return r.FindByIDWithLines(ctx, id)
}

func (r *fakeOperationRepo) List(ctx context.Context, filter repository.OperationFilter) ([]model.Operation, int64, error) {
	defer r.f.lock(ctx)()
	var out []model.Operation
	for _, op := range r.f.ops {
		if filter.Kind != "" && op.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && op.Status != filter.Status {
			continue
		}
		out = append(out, *copyOperation(op))
	}
	return out, int64(len(out)), nil
}

func (r *fakeOperationRepo) CountByKind(ctx context.Context, kind string) (int64, error) {
	defer r.f.lock(ctx)()
	var count int64
	for _, op := range r.f.ops {
		if op.Kind == kind {
			count++
		}
	}
	return count, nil
}

func (r *fakeOperationRepo) ExistsForLocation(ctx context.Context, locationID uuid.UUID) (bool, error) {
	defer r.f.lock(ctx)()
	for _, op := range r.f.ops {
		if op.Status == model.StatusCancelled {
			continue
		}
		if (op.SourceLocationID != nil && *op.SourceLocationID == locationID) ||
			(op.DestinationLocationID != nil && *op.DestinationLocationID == locationID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOperationRepo) ExistsForProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	defer r.f.lock(ctx)()
	for _, op := range r.f.ops {
		if op.Status == model.StatusCancelled {
			continue
		}
		for _, line := range op.Lines {
			if line.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

// --- stock repository fake ---

type fakeStockRepo struct{ f *fixture }

func (r *fakeStockRepo) FindLevel(ctx context.Context, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	defer r.f.lock(ctx)()
	level, ok := r.f.levels[levelKey{productID, locationID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *level
	return &cp, nil
}

func (r *fakeStockRepo) FindLevelForUpdate(ctx context.Context, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	return r.FindLevel(ctx, productID, locationID)
}

func (r *fakeStockRepo) CreateLevel(ctx context.Context, level *model.StockLevel) error {
	defer r.f.lock(ctx)()
	if level.ID == uuid.Nil {
		level.ID = uuid.New()
	}
	cp := *level
	r.f.levels[levelKey{level.ProductID, level.LocationID}] = &cp
	r.f.levelByID[level.ID] = &cp
	return nil
}

func (r *fakeStockRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	defer r.f.lock(ctx)()
	level, ok := r.f.levelByID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	level.Quantity = quantity
	return nil
}

func (r *fakeStockRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockLevel, error) {
	defer r.f.lock(ctx)()
	var out []model.StockLevel
	for _, level := range r.f.levels {
		if level.ProductID == productID {
			out = append(out, *level)
		}
	}
	return out, nil
}

func (r *fakeStockRepo) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]model.StockLevel, error) {
	defer r.f.lock(ctx)()
	var out []model.StockLevel
	for _, level := range r.f.levels {
		if level.LocationID == locationID {
			out = append(out, *level)
		}
	}
	return out, nil
}

func (r *fakeStockRepo) TotalByProduct(ctx context.Context, productID uuid.UUID) (int, error) {
	defer r.f.lock(ctx)()
	total := 0
	for _, level := range r.f.levels {
		if level.ProductID == productID {
			total += level.Quantity
		}
	}
	return total, nil
}

func (r *fakeStockRepo) CreateEntry(ctx context.Context, entry *model.StockEntry) error {
	defer r.f.lock(ctx)()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.f.entries = append(r.f.entries, *entry)
	return nil
}

func (r *fakeStockRepo) ListEntriesByProduct(ctx context.Context, productID uuid.UUID, page, limit int) ([]model.StockEntry, int64, error) {
	defer r.f.lock(ctx)()
	var out []model.StockEntry
	for _, entry := range r.f.entries {
		if entry.ProductID == productID {
			out = append(out, entry)
		}
	}
	return out, int64(len(out)), nil
}

// --- product repository fake ---

type fakeProductRepo struct{ f *fixture }

func (r *fakeProductRepo) Create(ctx context.Context, product *model.Product) error {
	defer r.f.lock(ctx)()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	cp := *product
	r.f.products[product.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product *model.Product) error {
	defer r.f.lock(ctx)()
	cp := *product
	r.f.products[product.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.f.lock(ctx)()
	delete(r.f.products, id)
	return nil
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	defer r.f.lock(ctx)()
	product, ok := r.f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *product
	return &cp, nil
}

func (r *fakeProductRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	defer r.f.lock(ctx)()
	for _, product := range r.f.products {
		if product.SKU == sku {
			cp := *product
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	defer r.f.lock(ctx)()
	var out []model.Product
	for _, product := range r.f.products {
		out = append(out, *product)
	}
	return out, int64(len(out)), nil
}

func (r *fakeProductRepo) ListLowStock(ctx context.Context) ([]model.Product, error) {
	defer r.f.lock(ctx)()
	var out []model.Product
	for _, product := range r.f.products {
		if product.AlertLevel() != model.AlertOK && product.AlertLevel() != model.AlertOverstock {
			out = append(out, *product)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	defer r.f.lock(ctx)()
	product, ok := r.f.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	product.CurrentStock = stock
	return nil
}

func (r *fakeProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

// --- location repository fake ---

type fakeLocationRepo struct{ f *fixture }

func (r *fakeLocationRepo) Create(ctx context.Context, location *model.Location) error {
	defer r.f.lock(ctx)()
	if location.ID == uuid.Nil {
		location.ID = uuid.New()
	}
	cp := *location
	r.f.locations[location.ID] = &cp
	return nil
}

func (r *fakeLocationRepo) Update(ctx context.Context, location *model.Location) error {
	defer r.f.lock(ctx)()
	cp := *location
	r.f.locations[location.ID] = &cp
	return nil
}

func (r *fakeLocationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.f.lock(ctx)()
	delete(r.f.locations, id)
	return nil
}

func (r *fakeLocationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	defer r.f.lock(ctx)()
	location, ok := r.f.locations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *location
	return &cp, nil
}

func (r *fakeLocationRepo) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]model.Location, error) {
	defer r.f.lock(ctx)()
	var out []model.Location
	for _, location := range r.f.locations {
		if location.WarehouseID == warehouseID {
			out = append(out, *location)
		}
	}
	return out, nil
}

func (r *fakeLocationRepo) List(ctx context.Context, page, limit int) ([]model.Location, int64, error) {
	defer r.f.lock(ctx)()
	var out []model.Location
	for _, location := range r.f.locations {
		out = append(out, *location)
	}
	return out, int64(len(out)), nil
}

// --- audit repository fake ---

type fakeAuditRepo struct{ f *fixture }

func (r *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	defer r.f.lock(ctx)()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.f.audits = append(r.f.audits, *entry)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, action string, page, limit int) ([]model.AuditLog, int64, error) {
	defer r.f.lock(ctx)()
	var out []model.AuditLog
	for _, entry := range r.f.audits {
		if action != "" && entry.Action != action {
			continue
		}
		out = append(out, entry)
	}
	return out, int64(len(out)), nil
}

// --- fixture setup ---

var testUserID = uuid.New().String()

func newFixture() *fixture {
	f := &fixture{
		ops:       make(map[uuid.UUID]*model.Operation),
		products:  make(map[uuid.UUID]*model.Product),
		locations: make(map[uuid.UUID]*model.Location),
		levels:    make(map[levelKey]*model.StockLevel),
		levelByID: make(map[uuid.UUID]*model.StockLevel),
	}
	f.svc = NewOperationService(
		&fakeOperationRepo{f},
		&fakeStockRepo{f},
		&fakeProductRepo{f},
		&fakeLocationRepo{f},
		&fakeAuditRepo{f},
		&fakeTxManager{f},
		nil, // no websocket hub in tests
		nil, // no cache in tests
		logger.Nop(),
	)
	return f
}

func (f *fixture) seedProduct(t *testing.T, sku string) uuid.UUID {
	t.Helper()
	product := &model.Product{ID: uuid.New(), SKU: sku, Name: sku, UnitPrice: decimal.NewFromInt(5)}
	f.mu.Lock()
	f.products[product.ID] = product
	f.mu.Unlock()
	return product.ID
}

func (f *fixture) seedLocation(t *testing.T, code string) uuid.UUID {
	t.Helper()
	location := &model.Location{ID: uuid.New(), WarehouseID: uuid.New(), Code: code, Name: code, Type: model.LocationTypeStorage}
	f.mu.Lock()
	f.locations[location.ID] = location
	f.mu.Unlock()
	return location.ID
}

func (f *fixture) seedStock(t *testing.T, productID, locationID uuid.UUID, qty int) {
	t.Helper()
	level := &model.StockLevel{ID: uuid.New(), ProductID: productID, LocationID: locationID, Quantity: qty}
	f.mu.Lock()
	f.levels[levelKey{productID, locationID}] = level
	f.levelByID[level.ID] = level
	f.products[productID].CurrentStock += qty
	f.mu.Unlock()
}

func (f *fixture) quantityAt(productID, locationID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	level, ok := f.levels[levelKey{productID, locationID}]
	if !ok {
		return 0
	}
	return level.Quantity
}

func (f *fixture) productStock(productID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[productID].CurrentStock
}

func (f *fixture) entryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func intPtr(v int) *int { return &v }

// --- tests ---

func TestCreateReceiptGeneratesReference(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	dest := f.seedLocation(t, "STK-A")

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:                  model.KindReceipt,
		DestinationLocationID: dest.String(),
		Lines:                 []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 10, UnitPrice: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "REC-00001", op.Reference)
	assert.Equal(t, model.StatusDraft, op.Status)
	require.Len(t, op.Lines, 1)
	assert.Equal(t, 10, op.Lines[0].ActualQuantity) // defaults to expected

	second, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:                  model.KindReceipt,
		DestinationLocationID: dest.String(),
		Lines:                 []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "REC-00002", second.Reference)
}

func TestCreateAdjustmentRequiresReason(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	loc := f.seedLocation(t, "STK-A")

	_, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:             model.KindAdjustment,
		SourceLocationID: loc.String(),
		Lines:            []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 1}},
	})
	var vErr *apperror.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:                  model.KindReceipt,
		AdjustmentReason:      model.ReasonFound,
		DestinationLocationID: loc.String(),
		Lines:                 []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 1}},
	})
	require.ErrorAs(t, err, &vErr)
}

func TestReceiptLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	dest := f.seedLocation(t, "STK-A")

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:                  model.KindReceipt,
		DestinationLocationID: dest.String(),
		Lines:                 []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 10, UnitPrice: 2.5}},
	})
	require.NoError(t, err)

	op, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaiting, op.Status)

	op, err = f.svc.Validate(ctx, testUserID, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, op.Status)
	assert.NotNil(t, op.CompletedDate)
	assert.Equal(t, "25.00", op.ValuationTotal)

	assert.Equal(t, 10, f.quantityAt(productID, dest))
	assert.Equal(t, 10, f.productStock(productID))

	require.Equal(t, 1, f.entryCount())
	f.mu.Lock()
	entry := f.entries[0]
	f.mu.Unlock()
	assert.Equal(t, 10, entry.QuantityChanged)
	assert.Equal(t, 10, entry.StockAfter)
	assert.Equal(t, model.KindReceipt, entry.OperationKind)

	// Audit trail carries every lifecycle step.
	actions := map[string]bool{}
	f.mu.Lock()
	for _, a := range f.audits {
		actions[a.Action] = true
	}
	f.mu.Unlock()
	assert.True(t, actions[model.ActionCreateOperation])
	assert.True(t, actions[model.ActionConfirmOperation])
	assert.True(t, actions[model.ActionValidateOperation])
}

func TestDeliveryMustPassThroughReady(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	source := f.seedLocation(t, "STK-A")
	f.seedStock(t, productID, source, 10)

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:             model.KindDelivery,
		SourceLocationID: source.String(),
		Lines:            []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 4}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)

	_, err = f.svc.Validate(ctx, testUserID, op.ID)
	var stateErr *apperror.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, 10, f.quantityAt(productID, source))

	_, err = f.svc.MarkReady(ctx, testUserID, op.ID)
	require.NoError(t, err)
	done, err := f.svc.Validate(ctx, testUserID, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, done.Status)
	assert.Equal(t, 6, f.quantityAt(productID, source))
}

func TestDeliveryPartialQuantity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	source := f.seedLocation(t, "STK-A")
	f.seedStock(t, productID, source, 10)

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:             model.KindDelivery,
		SourceLocationID: source.String(),
		Lines:            []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 10, ActualQuantity: intPtr(6)}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkReady(ctx, testUserID, op.ID)
	require.NoError(t, err)

	_, err = f.svc.Validate(ctx, testUserID, op.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, f.quantityAt(productID, source))
	assert.Equal(t, 4, f.productStock(productID))
}

func TestValidateInsufficientStockLeavesStateUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	source := f.seedLocation(t, "STK-A")
	f.seedStock(t, productID, source, 8)

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:             model.KindDelivery,
		SourceLocationID: source.String(),
		Lines:            []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 8}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkReady(ctx, testUserID, op.ID)
	require.NoError(t, err)

	// Another process drains the location between READY and validation.
	f.mu.Lock()
	f.levels[levelKey{productID, source}].Quantity = 5
	f.mu.Unlock()

	_, err = f.svc.Validate(ctx, testUserID, op.ID)
	var stockErr *apperror.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Current)
	assert.Equal(t, 8, stockErr.Requested)

	assert.Equal(t, 5, f.quantityAt(productID, source))
	assert.Equal(t, 0, f.entryCount())
	reloaded, err := f.svc.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, reloaded.Status)
}

func TestMarkReadyChecksAvailability(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	source := f.seedLocation(t, "STK-A")
	f.seedStock(t, productID, source, 3)

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:             model.KindDelivery,
		SourceLocationID: source.String(),
		Lines:            []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 5}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)

	_, err = f.svc.MarkReady(ctx, testUserID, op.ID)
	var stockErr *apperror.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Current)
}

func TestMarkReadyAggregatesLinesPerProduct(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	source := f.seedLocation(t, "STK-A")
	f.seedStock(t, productID, source, 5)

	// Two lines of the same product demand 6 units in total against 5 on hand.
	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:             model.KindDelivery,
		SourceLocationID: source.String(),
		Lines: []OperationLineRequest{
			{ProductID: productID.String(), ExpectedQuantity: 3},
			{ProductID: productID.String(), ExpectedQuantity: 3},
		},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)

	_, err = f.svc.MarkReady(ctx, testUserID, op.ID)
	var stockErr *apperror.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Current)
	assert.Equal(t, 6, stockErr.Requested)

	reloaded, err := f.svc.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaiting, reloaded.Status)
}

func TestTransferMovesStockAtomically(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	locA := f.seedLocation(t, "STK-A")
	locB := f.seedLocation(t, "STK-B")
	f.seedStock(t, productID, locA, 6)

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:                  model.KindTransfer,
		SourceLocationID:      locA.String(),
		DestinationLocationID: locB.String(),
		Lines:                 []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 5}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkReady(ctx, testUserID, op.ID)
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, testUserID, op.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.quantityAt(productID, locA))
	assert.Equal(t, 5, f.quantityAt(productID, locB))
	// A transfer must not change the product-wide total.
	assert.Equal(t, 6, f.productStock(productID))
	assert.Equal(t, 2, f.entryCount())
}

func TestTransferSameSourceAndDestinationRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	loc := f.seedLocation(t, "STK-A")

	_, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:                  model.KindTransfer,
		SourceLocationID:      loc.String(),
		DestinationLocationID: loc.String(),
		Lines:                 []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 1}},
	})
	var vErr *apperror.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestValidateIsNotRepeatable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	dest := f.seedLocation(t, "STK-A")

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:                  model.KindReceipt,
		DestinationLocationID: dest.String(),
		Lines:                 []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 10}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, testUserID, op.ID)
	require.NoError(t, err)

	_, err = f.svc.Validate(ctx, testUserID, op.ID)
	var stateErr *apperror.InvalidStateError
	require.ErrorAs(t, err, &stateErr)

	// Deltas were applied exactly once.
	assert.Equal(t, 10, f.quantityAt(productID, dest))
	assert.Equal(t, 1, f.entryCount())
}

func TestAdjustmentLossReducesStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	loc := f.seedLocation(t, "STK-A")
	f.seedStock(t, productID, loc, 8)

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:             model.KindAdjustment,
		AdjustmentReason: model.ReasonLoss,
		SourceLocationID: loc.String(),
		Lines:            []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 3}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)

	// Adjustments validate straight from WAITING.
	done, err := f.svc.Validate(ctx, testUserID, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, done.Status)
	assert.Equal(t, 5, f.quantityAt(productID, loc))
	assert.Equal(t, 5, f.productStock(productID))
}

func TestZeroActualQuantityRejectedOutsideAdjustments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	source := f.seedLocation(t, "STK-A")
	f.seedStock(t, productID, source, 10)

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:             model.KindDelivery,
		SourceLocationID: source.String(),
		Lines:            []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 4, ActualQuantity: intPtr(0)}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkReady(ctx, testUserID, op.ID)
	require.NoError(t, err)

	_, err = f.svc.Validate(ctx, testUserID, op.ID)
	var vErr *apperror.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 10, f.quantityAt(productID, source))
}

func TestCancelRules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	dest := f.seedLocation(t, "STK-A")

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:                  model.KindReceipt,
		DestinationLocationID: dest.String(),
		Lines:                 []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 2}},
	})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, testUserID, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	// Terminal states reject further transitions.
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	var stateErr *apperror.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	_, err = f.svc.Cancel(ctx, testUserID, op.ID)
	require.ErrorAs(t, err, &stateErr)

	// A validated operation cannot be cancelled.
	done, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:                  model.KindReceipt,
		DestinationLocationID: dest.String(),
		Lines:                 []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 2}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, done.ID)
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, testUserID, done.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, testUserID, done.ID)
	require.ErrorAs(t, err, &stateErr)
}

func TestDeleteOnlyDrafts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	dest := f.seedLocation(t, "STK-A")

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:                  model.KindReceipt,
		DestinationLocationID: dest.String(),
		Lines:                 []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 2}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, testUserID, op.ID)
	var stateErr *apperror.InvalidStateError
	require.ErrorAs(t, err, &stateErr)

	draft, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:                  model.KindReceipt,
		DestinationLocationID: dest.String(),
		Lines:                 []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 2}},
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, testUserID, draft.ID))
	_, err = f.svc.Get(ctx, draft.ID)
	var nfErr *apperror.NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestUpdateFreezesHeaderAfterReady(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	source := f.seedLocation(t, "STK-A")
	f.seedStock(t, productID, source, 10)

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:             model.KindDelivery,
		SourceLocationID: source.String(),
		Lines:            []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 2}},
	})
	require.NoError(t, err)

	note := "picked by night shift"
	updated, err := f.svc.Update(ctx, testUserID, op.ID, UpdateOperationRequest{Note: &note})
	require.NoError(t, err)
	assert.Equal(t, note, updated.Note)

	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkReady(ctx, testUserID, op.ID)
	require.NoError(t, err)

	// Header fields and the line set are frozen once READY.
	var stateErr *apperror.InvalidStateError
	_, err = f.svc.Update(ctx, testUserID, op.ID, UpdateOperationRequest{Note: &note})
	require.ErrorAs(t, err, &stateErr)
	ref := "DEL-OVERRIDE"
	_, err = f.svc.Update(ctx, testUserID, op.ID, UpdateOperationRequest{Reference: &ref})
	require.ErrorAs(t, err, &stateErr)
	_, err = f.svc.Update(ctx, testUserID, op.ID, UpdateOperationRequest{
		Lines: []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 1}},
	})
	require.ErrorAs(t, err, &stateErr)
}

func TestReadyAllowsActualQuantityEdit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	source := f.seedLocation(t, "STK-A")
	f.seedStock(t, productID, source, 10)

	op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:             model.KindDelivery,
		SourceLocationID: source.String(),
		Lines:            []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 10}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, testUserID, op.ID)
	require.NoError(t, err)
	ready, err := f.svc.MarkReady(ctx, testUserID, op.ID)
	require.NoError(t, err)
	require.Len(t, ready.Lines, 1)

	// Only 2 units were actually picked.
	updated, err := f.svc.Update(ctx, testUserID, op.ID, UpdateOperationRequest{
		ActualQuantities: map[string]int{ready.Lines[0].ID: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, updated.Status)
	assert.Equal(t, 2, updated.Lines[0].ActualQuantity)
	assert.Equal(t, 10, updated.Lines[0].ExpectedQuantity)

	done, err := f.svc.Validate(ctx, testUserID, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, done.Status)
	assert.Equal(t, 8, f.quantityAt(productID, source))

	// A line from another operation is rejected.
	other, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
		Kind:             model.KindDelivery,
		SourceLocationID: source.String(),
		Lines:            []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, testUserID, other.ID, UpdateOperationRequest{
		ActualQuantities: map[string]int{ready.Lines[0].ID: 3},
	})
	var vErr *apperror.ValidationError
	require.ErrorAs(t, err, &vErr)

	// DONE stays immutable.
	var stateErr *apperror.InvalidStateError
	_, err = f.svc.Update(ctx, testUserID, op.ID, UpdateOperationRequest{
		ActualQuantities: map[string]int{ready.Lines[0].ID: 3},
	})
	require.ErrorAs(t, err, &stateErr)
}

// TestConcurrentDeliveriesNeverOversell fires many single-unit deliveries at a
// location holding 5 units. Exactly five must validate; stock never goes
// negative and the ledger matches the successes.
func TestConcurrentDeliveriesNeverOversell(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	source := f.seedLocation(t, "STK-A")
	f.seedStock(t, productID, source, 5)

	const workers = 8
	ids := make([]string, 0, workers)
	for i := 0; i < workers; i++ {
		op, err := f.svc.Create(ctx, testUserID, CreateOperationRequest{
			Kind:             model.KindDelivery,
			SourceLocationID: source.String(),
			Lines:            []OperationLineRequest{{ProductID: productID.String(), ExpectedQuantity: 1}},
		})
		require.NoError(t, err)
		_, err = f.svc.Confirm(ctx, testUserID, op.ID)
		require.NoError(t, err)
		_, err = f.svc.MarkReady(ctx, testUserID, op.ID)
		require.NoError(t, err)
		ids = append(ids, op.ID)
	}

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.Validate(ctx, testUserID, id)
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	succeeded, insufficient := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *apperror.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		insufficient++
	}

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 3, insufficient)
	assert.Equal(t, 0, f.quantityAt(productID, source))
	assert.Equal(t, 0, f.productStock(productID))
	assert.Equal(t, 5, f.entryCount())
}
