package service

import (
	"context"
	"errors"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/apperror"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateProductRequest struct {
	SKU           string  `json:"sku" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	Unit          string  `json:"unit"`
	UnitPrice     float64 `json:"unit_price" binding:"gte=0"`
	ReorderPoint  int     `json:"reorder_point" binding:"gte=0"`
	MinStockLevel int     `json:"min_stock_level" binding:"gte=0"`
	MaxStockLevel int     `json:"max_stock_level" binding:"gte=0"`
}

type UpdateProductRequest struct {
	SKU           string  `json:"sku" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	Unit          string  `json:"unit"`
	UnitPrice     float64 `json:"unit_price" binding:"gte=0"`
	ReorderPoint  int     `json:"reorder_point" binding:"gte=0"`
	MinStockLevel int     `json:"min_stock_level" binding:"gte=0"`
	MaxStockLevel int     `json:"max_stock_level" binding:"gte=0"`
}

type ProductResponse struct {
	ID            string  `json:"id"`
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Unit          string  `json:"unit"`
	UnitPrice     float64 `json:"unit_price"`
	CurrentStock  int     `json:"current_stock"`
	ReorderPoint  int     `json:"reorder_point"`
	MinStockLevel int     `json:"min_stock_level"`
	MaxStockLevel int     `json:"max_stock_level"`
	AlertLevel    string  `json:"alert_level"`
}

type ProductService interface {
	List(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
	Get(ctx context.Context, id string) (ProductResponse, error)
	Create(ctx context.Context, userID string, req CreateProductRequest) (ProductResponse, error)
	Update(ctx context.Context, userID, id string, req UpdateProductRequest) (ProductResponse, error)
	Delete(ctx context.Context, userID, id string) error
}

type productService struct {
	productRepo   repository.ProductRepository
	operationRepo repository.OperationRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewProductService(
	productRepo repository.ProductRepository,
	operationRepo repository.OperationRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ProductService {
	return &productService{
		productRepo:   productRepo,
		operationRepo: operationRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

func toProductResponse(p *model.Product) ProductResponse {
	price, _ := p.UnitPrice.Float64()
	return ProductResponse{
		ID:            p.ID.String(),
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		Unit:          p.Unit,
		UnitPrice:     price,
		CurrentStock:  p.CurrentStock,
		ReorderPoint:  p.ReorderPoint,
		MinStockLevel: p.MinStockLevel,
		MaxStockLevel: p.MaxStockLevel,
		AlertLevel:    p.AlertLevel(),
	}
}

func (s *productService) List(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, apperror.NewInternal("failed to list products", err)
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

func (s *productService) Get(ctx context.Context, id string) (ProductResponse, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperror.NewValidation("invalid product id")
	}
	product, err := s.productRepo.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperror.NewNotFound("product", id)
		}
		return ProductResponse{}, apperror.NewInternal("failed to load product", err)
	}
	return toProductResponse(product), nil
}

func (s *productService) Create(ctx context.Context, userID string, req CreateProductRequest) (ProductResponse, error) {
	if req.MaxStockLevel > 0 && req.MinStockLevel > req.MaxStockLevel {
		return ProductResponse{}, apperror.NewValidation("min_stock_level cannot exceed max_stock_level")
	}
	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return ProductResponse{}, apperror.NewConflict("SKU %q already exists", req.SKU)
	}

	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}
	product := model.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		Unit:          unit,
		UnitPrice:     decimal.NewFromFloat(req.UnitPrice),
		CurrentStock:  0,
		ReorderPoint:  req.ReorderPoint,
		MinStockLevel: req.MinStockLevel,
		MaxStockLevel: req.MaxStockLevel,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.productRepo.Create(txCtx, &product); createErr != nil {
			return apperror.NewInternal("failed to create product", createErr)
		}
		return auditEntry(txCtx, s.auditRepo, userID, model.ActionCreateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(&product), nil
}

func (s *productService) Update(ctx context.Context, userID, id string, req UpdateProductRequest) (ProductResponse, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperror.NewValidation("invalid product id")
	}
	product, err := s.productRepo.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperror.NewNotFound("product", id)
		}
		return ProductResponse{}, apperror.NewInternal("failed to load product", err)
	}
	if req.MaxStockLevel > 0 && req.MinStockLevel > req.MaxStockLevel {
		return ProductResponse{}, apperror.NewValidation("min_stock_level cannot exceed max_stock_level")
	}

	product.SKU = req.SKU
	product.Name = req.Name
	product.Description = req.Description
	if req.Unit != "" {
		product.Unit = req.Unit
	}
	product.UnitPrice = decimal.NewFromFloat(req.UnitPrice)
	product.ReorderPoint = req.ReorderPoint
	product.MinStockLevel = req.MinStockLevel
	product.MaxStockLevel = req.MaxStockLevel

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.productRepo.Update(txCtx, product); updateErr != nil {
			return apperror.NewInternal("failed to update product", updateErr)
		}
		return auditEntry(txCtx, s.auditRepo, userID, model.ActionUpdateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(product), nil
}

func (s *productService) Delete(ctx context.Context, userID, id string) error {
	pid, err := uuid.Parse(id)
	if err != nil {
		return apperror.NewValidation("invalid product id")
	}
	product, err := s.productRepo.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound("product", id)
		}
		return apperror.NewInternal("failed to load product", err)
	}

	// Products referenced by live operations must stay resolvable.
	referenced, err := s.operationRepo.ExistsForProduct(ctx, pid)
	if err != nil {
		return apperror.NewInternal("failed to check product references", err)
	}
	if referenced {
		return apperror.NewConflict("product %q is referenced by existing operations", product.SKU)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.productRepo.Delete(txCtx, pid); delErr != nil {
			return apperror.NewInternal("failed to delete product", delErr)
		}
		return auditEntry(txCtx, s.auditRepo, userID, model.ActionDeleteProduct, product.ID.String(), product.Name, map[string]bool{"deleted": true})
	})
}
