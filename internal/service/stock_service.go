package service

import (
	"context"
	"errors"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/apperror"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type StockLevelResponse struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Quantity   int    `json:"quantity"`
}

type ProductAvailabilityResponse struct {
	ProductID  string               `json:"product_id"`
	SKU        string               `json:"sku"`
	Name       string               `json:"name"`
	Total      int                  `json:"total"`
	AlertLevel string               `json:"alert_level"`
	Levels     []StockLevelResponse `json:"levels"`
}

type StockEntryResponse struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id"`
	LocationID      string `json:"location_id"`
	OperationID     string `json:"operation_id,omitempty"`
	OperationKind   string `json:"operation_kind"`
	QuantityChanged int    `json:"quantity_changed"`
	StockAfter      int    `json:"stock_after"`
	CreatedAt       string `json:"created_at"`
}

// StockService exposes read-only stock queries. All writes go through the
// operation lifecycle; nothing here mutates quantities.
type StockService interface {
	GetLevel(ctx context.Context, productID, locationID string) (StockLevelResponse, error)
	ProductAvailability(ctx context.Context, productID string) (ProductAvailabilityResponse, error)
	ListByLocation(ctx context.Context, locationID string) ([]StockLevelResponse, error)
	Ledger(ctx context.Context, productID string, page, limit int) ([]StockEntryResponse, int64, error)
	LowStockProducts(ctx context.Context) ([]ProductAvailabilityResponse, error)
}

type stockService struct {
	stockRepo   repository.StockRepository
	productRepo repository.ProductRepository
}

func NewStockService(stockRepo repository.StockRepository, productRepo repository.ProductRepository) StockService {
	return &stockService{stockRepo: stockRepo, productRepo: productRepo}
}

func (s *stockService) GetLevel(ctx context.Context, productID, locationID string) (StockLevelResponse, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return StockLevelResponse{}, apperror.NewValidation("invalid product id")
	}
	lid, err := uuid.Parse(locationID)
	if err != nil {
		return StockLevelResponse{}, apperror.NewValidation("invalid location id")
	}

	level, err := s.stockRepo.FindLevel(ctx, pid, lid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A missing row is simply zero stock, not an error.
			return StockLevelResponse{ProductID: productID, LocationID: locationID, Quantity: 0}, nil
		}
		return StockLevelResponse{}, apperror.NewInternal("failed to read stock level", err)
	}
	return StockLevelResponse{ProductID: productID, LocationID: locationID, Quantity: level.Quantity}, nil
}

func (s *stockService) ProductAvailability(ctx context.Context, productID string) (ProductAvailabilityResponse, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return ProductAvailabilityResponse{}, apperror.NewValidation("invalid product id")
	}

	product, err := s.productRepo.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductAvailabilityResponse{}, apperror.NewNotFound("product", productID)
		}
		return ProductAvailabilityResponse{}, apperror.NewInternal("failed to load product", err)
	}

	levels, err := s.stockRepo.ListByProduct(ctx, pid)
	if err != nil {
		return ProductAvailabilityResponse{}, apperror.NewInternal("failed to list stock levels", err)
	}

	res := ProductAvailabilityResponse{
		ProductID:  product.ID.String(),
		SKU:        product.SKU,
		Name:       product.Name,
		Total:      product.CurrentStock,
		AlertLevel: product.AlertLevel(),
		Levels:     make([]StockLevelResponse, 0, len(levels)),
	}
	for _, level := range levels {
		res.Levels = append(res.Levels, StockLevelResponse{
			ProductID:  level.ProductID.String(),
			LocationID: level.LocationID.String(),
			Quantity:   level.Quantity,
		})
	}
	return res, nil
}

func (s *stockService) ListByLocation(ctx context.Context, locationID string) ([]StockLevelResponse, error) {
	lid, err := uuid.Parse(locationID)
	if err != nil {
		return nil, apperror.NewValidation("invalid location id")
	}

	levels, err := s.stockRepo.ListByLocation(ctx, lid)
	if err != nil {
		return nil, apperror.NewInternal("failed to list stock levels", err)
	}

	res := make([]StockLevelResponse, 0, len(levels))
	for _, level := range levels {
		res = append(res, StockLevelResponse{
			ProductID:  level.ProductID.String(),
			LocationID: level.LocationID.String(),
			Quantity:   level.Quantity,
		})
	}
	return res, nil
}

func (s *stockService) Ledger(ctx context.Context, productID string, page, limit int) ([]StockEntryResponse, int64, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, 0, apperror.NewValidation("invalid product id")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	entries, total, err := s.stockRepo.ListEntriesByProduct(ctx, pid, page, limit)
	if err != nil {
		return nil, 0, apperror.NewInternal("failed to list stock entries", err)
	}

	res := make([]StockEntryResponse, 0, len(entries))
	for _, entry := range entries {
		e := StockEntryResponse{
			ID:              entry.ID.String(),
			ProductID:       entry.ProductID.String(),
			LocationID:      entry.LocationID.String(),
			OperationKind:   entry.OperationKind,
			QuantityChanged: entry.QuantityChanged,
			StockAfter:      entry.StockAfter,
			CreatedAt:       entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if entry.OperationID != nil {
			e.OperationID = entry.OperationID.String()
		}
		res = append(res, e)
	}
	return res, total, nil
}

func (s *stockService) LowStockProducts(ctx context.Context) ([]ProductAvailabilityResponse, error) {
	products, err := s.productRepo.ListLowStock(ctx)
	if err != nil {
		return nil, apperror.NewInternal("failed to list low-stock products", err)
	}

	res := make([]ProductAvailabilityResponse, 0, len(products))
	for _, p := range products {
		res = append(res, ProductAvailabilityResponse{
			ProductID:  p.ID.String(),
			SKU:        p.SKU,
			Name:       p.Name,
			Total:      p.CurrentStock,
			AlertLevel: p.AlertLevel(),
		})
	}
	return res, nil
}
