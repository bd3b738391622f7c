package service

import (
	"context"
	"testing"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/apperror"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStockService(f *fixture) StockService {
	return NewStockService(&fakeStockRepo{f}, &fakeProductRepo{f})
}

func TestGetLevelMissingRowReadsZero(t *testing.T) {
	f := newFixture()
	svc := newStockService(f)
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	loc := f.seedLocation(t, "STK-A")

	level, err := svc.GetLevel(ctx, productID.String(), loc.String())
	require.NoError(t, err)
	assert.Equal(t, 0, level.Quantity)

	f.seedStock(t, productID, loc, 12)
	level, err = svc.GetLevel(ctx, productID.String(), loc.String())
	require.NoError(t, err)
	assert.Equal(t, 12, level.Quantity)
}

func TestGetLevelRejectsBadIDs(t *testing.T) {
	f := newFixture()
	svc := newStockService(f)

	_, err := svc.GetLevel(context.Background(), "not-a-uuid", uuid.New().String())
	var vErr *apperror.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = svc.GetLevel(context.Background(), uuid.New().String(), "not-a-uuid")
	require.ErrorAs(t, err, &vErr)
}

func TestProductAvailabilityAggregatesLocations(t *testing.T) {
	f := newFixture()
	svc := newStockService(f)
	ctx := context.Background()
	productID := f.seedProduct(t, "WIDGET-1")
	locA := f.seedLocation(t, "STK-A")
	locB := f.seedLocation(t, "STK-B")
	f.seedStock(t, productID, locA, 7)
	f.seedStock(t, productID, locB, 3)

	availability, err := svc.ProductAvailability(ctx, productID.String())
	require.NoError(t, err)
	assert.Equal(t, 10, availability.Total)
	assert.Len(t, availability.Levels, 2)

	_, err = svc.ProductAvailability(ctx, uuid.New().String())
	var nfErr *apperror.NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestLowStockProducts(t *testing.T) {
	f := newFixture()
	svc := newStockService(f)
	ctx := context.Background()

	low := &model.Product{ID: uuid.New(), SKU: "LOW-1", Name: "Low", CurrentStock: 2, ReorderPoint: 5}
	ok := &model.Product{ID: uuid.New(), SKU: "OK-1", Name: "Ok", CurrentStock: 50, ReorderPoint: 5}
	f.mu.Lock()
	f.products[low.ID] = low
	f.products[ok.ID] = ok
	f.mu.Unlock()

	products, err := svc.LowStockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "LOW-1", products[0].SKU)
	assert.Equal(t, model.AlertReorder, products[0].AlertLevel)
}
